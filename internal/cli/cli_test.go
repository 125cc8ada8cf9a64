package cli

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sectorSize = 2048

// makeDiscFixture writes a minimal one-title DVD structure: three
// chapters over three NTSC cells of 35, 10 and 60 frames.
func makeDiscFixture(t *testing.T) string {
	t.Helper()

	vmg := make([]byte, 2*sectorSize)
	copy(vmg, "DVDVIDEO-VMG")
	binary.BigEndian.PutUint32(vmg[0x00C4:], 1)
	binary.BigEndian.PutUint16(vmg[sectorSize:], 1)
	entry := sectorSize + 8
	binary.BigEndian.PutUint16(vmg[entry+2:], 3)
	vmg[entry+6] = 1
	vmg[entry+7] = 1

	vts := make([]byte, 4*sectorSize)
	copy(vts, "DVDVIDEO-VTS")
	binary.BigEndian.PutUint32(vts[0x00C8:], 1)
	binary.BigEndian.PutUint32(vts[0x00CC:], 2)
	ptt := sectorSize
	binary.BigEndian.PutUint16(vts[ptt:], 1)
	binary.BigEndian.PutUint32(vts[ptt+4:], 23)
	binary.BigEndian.PutUint32(vts[ptt+8:], 12)
	for chapter := 0; chapter < 3; chapter++ {
		pos := ptt + 12 + chapter*4
		binary.BigEndian.PutUint16(vts[pos:], 1)
		binary.BigEndian.PutUint16(vts[pos+2:], uint16(chapter+1))
	}
	pgcit := 2 * sectorSize
	binary.BigEndian.PutUint16(vts[pgcit:], 1)
	binary.BigEndian.PutUint32(vts[pgcit+12:], 16)
	pgc := pgcit + 16
	vts[pgc+2] = 3
	vts[pgc+3] = 3
	binary.BigEndian.PutUint16(vts[pgc+0x00E6:], 0x00EA)
	binary.BigEndian.PutUint16(vts[pgc+0x00E8:], 0x00F0)
	copy(vts[pgc+0x00EA:], []byte{1, 2, 3})
	for i, tm := range [][4]byte{
		{0x00, 0x00, 0x01, 0xC5},
		{0x00, 0x00, 0x00, 0xD0},
		{0x00, 0x00, 0x02, 0xC0},
	} {
		copy(vts[pgc+0x00F0+i*0x18+4:], tm[:])
	}

	root := t.TempDir()
	dir := filepath.Join(root, "VIDEO_TS")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "VIDEO_TS.IFO"), vmg, 0o644); err != nil {
		t.Fatalf("write VMG: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "VTS_01_0.IFO"), vts, 0o644); err != nil {
		t.Fatalf("write VTS: %v", err)
	}
	return root
}

func TestRunAllTitles(t *testing.T) {
	root := makeDiscFixture(t)

	var stdout, stderr bytes.Buffer
	if code := Run([]string{root}, Options{}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	out := stdout.String()
	if !strings.HasPrefix(out, "<?xml version=\"1.0\"?>\n") {
		t.Fatalf("missing prolog: %q", out[:40])
	}
	if got := strings.Count(out, "<EditionEntry>"); got != 1 {
		t.Fatalf("%d editions, want 1", got)
	}
	if got := strings.Count(out, "<ChapterAtom>"); got != 3 {
		t.Fatalf("%d chapter atoms, want 3", got)
	}
	if !strings.Contains(out, "<ChapterTimeStart>00:00:00.000</ChapterTimeStart>") {
		t.Fatal("missing chapter 0 at timestamp zero")
	}
	if !strings.Contains(out, "<ChapterTimeStart>00:00:01.167</ChapterTimeStart>") {
		t.Fatal("missing second chapter at 1.167s")
	}
	if !strings.Contains(out, "<ChapterTimeStart>00:00:01.501</ChapterTimeStart>") {
		t.Fatal("missing third chapter at 1.501s")
	}
	if !strings.HasSuffix(out, "</Chapters>\n") {
		t.Fatal("document not closed")
	}
	// A verified-successful run suppresses the advisory replay.
	if stderr.Len() != 0 {
		t.Fatalf("unexpected stderr: %s", stderr.String())
	}
}

func TestRunSelectorZeroMatchesAbsent(t *testing.T) {
	root := makeDiscFixture(t)

	var withSelector, withoutSelector bytes.Buffer
	var stderr bytes.Buffer
	if code := Run([]string{root, "0"}, Options{}, &withSelector, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if code := Run([]string{root}, Options{}, &withoutSelector, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	countAtoms := func(out string) int { return strings.Count(out, "<ChapterAtom>") }
	if countAtoms(withSelector.String()) != countAtoms(withoutSelector.String()) {
		t.Fatal("selector 0 and absent selector disagree")
	}
}

func TestRunSelectorOutOfRange(t *testing.T) {
	root := makeDiscFixture(t)

	var stdout, stderr bytes.Buffer
	if code := Run([]string{root, "5"}, Options{}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("range failure emitted output: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Title 5 requested, but DVD has 1 titles.") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunSelectorNotNumeric(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"somewhere", "nope"}, Options{}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "could not convert nope to integer") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunSelectorNegative(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"somewhere", "-2"}, Options{}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "title cannot be a negative integer") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunOpenFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "missing")
	if code := Run([]string{path}, Options{}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("open failure emitted output: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "DVD read error") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunAdvisoryMessagesOnFailure(t *testing.T) {
	root := makeDiscFixture(t)
	dir := filepath.Join(root, "VIDEO_TS")
	// Force a BUP fallback warning, then a failure opening a title set
	// that does not exist.
	if err := os.Rename(filepath.Join(dir, "VIDEO_TS.IFO"), filepath.Join(dir, "VIDEO_TS.BUP")); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "VTS_01_0.IFO")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := Run([]string{root}, Options{}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Messages reported by the DVD reader:") {
		t.Fatalf("advisory messages not replayed; stderr = %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "failed to open IFO for title 1") {
		t.Fatalf("stderr = %q", stderr.String())
	}
	// The document was already open when the title set failed, so the
	// root tag must still be balanced.
	if !strings.HasSuffix(stdout.String(), "</Chapters>\n") {
		t.Fatalf("aborted document not closed: %q", stdout.String())
	}
}

func TestRunOutputFile(t *testing.T) {
	root := makeDiscFixture(t)
	outPath := filepath.Join(t.TempDir(), "chapters.xml")

	var stdout, stderr bytes.Buffer
	if code := Run([]string{root}, Options{OutputPath: outPath}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("file mode wrote to stdout: %q", stdout.String())
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "<ChapterAtom>") {
		t.Fatal("output file has no chapters")
	}
}

func TestRunCustomConfig(t *testing.T) {
	root := makeDiscFixture(t)
	cfgPath := filepath.Join(t.TempDir(), "dvdchapters.yaml")
	body := "name_template: \"Part %d\"\nlanguage: eng\nlanguage_ietf: en\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := Run([]string{root}, Options{ConfigPath: cfgPath}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "<ChapterString>Part 1</ChapterString>") {
		t.Fatal("custom name template not applied")
	}
	if !strings.Contains(out, "<ChapterLanguage>eng</ChapterLanguage>") {
		t.Fatal("custom language not applied")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	root := makeDiscFixture(t)
	cfgPath := filepath.Join(t.TempDir(), "dvdchapters.yaml")
	if err := os.WriteFile(cfgPath, []byte("name_template: \"static\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := Run([]string{root}, Options{ConfigPath: cfgPath}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "name_template") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
