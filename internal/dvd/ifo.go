// Package dvd reads chapter navigation data from a DVD's IFO tables and
// computes per-title chapter start timestamps.
package dvd

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const sectorSize = 2048

const (
	vmgTTSRPTPointerOff  = 0x00C4
	vtsPTTSRPTPointerOff = 0x00C8
	vtsPGCITPointerOff   = 0x00CC

	pgcProgramCountOff = 0x02
	pgcCellCountOff    = 0x03
	pgcPlaybackTimeOff = 0x04
	pgcProgramMapOff   = 0x00E6
	pgcCellPlaybackOff = 0x00E8
	cellPlaybackStride = 0x18
)

// Title is one entry of the VMG title table.
type Title struct {
	Index           int
	ChapterCount    int
	TitleSetNr      int
	TitleSetTitleNr int
}

// IFO is one parsed navigation table: the global VMG carries the title
// table, a VTS carries chapter pointers and program chains. The file
// contents are consumed at parse time; an IFO holds no open handles.
type IFO struct {
	titles          []Title
	chapterPointers [][]ChapterMarker
	chains          []*ProgramChain
}

// Titles returns the VMG title table. Empty for a VTS IFO.
func (f *IFO) Titles() []Title {
	return f.titles
}

// ChapterMarkers returns the ordered chapter markers of the given
// 1-based title number within this title set.
func (f *IFO) ChapterMarkers(titleNr int) []ChapterMarker {
	if titleNr < 1 || titleNr > len(f.chapterPointers) {
		return nil
	}
	return f.chapterPointers[titleNr-1]
}

// ProgramChain returns the program chain with the given 1-based id.
// Ids come from parsed chapter pointers and are trusted.
func (f *IFO) ProgramChain(id int) *ProgramChain {
	return f.chains[id-1]
}

type nopSink struct{}

func (nopSink) Log(Level, string) {}

// Reader opens IFO tables under one VIDEO_TS directory.
type Reader struct {
	dir  string
	sink LogSink
}

// Open locates the VIDEO_TS directory at or under path. Advisory
// messages are delivered to sink; a nil sink discards them.
func Open(path string, sink LogSink) (*Reader, error) {
	if sink == nil {
		sink = nopSink{}
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &OpenError{Path: path, Title: -1, Err: err}
	}
	if !info.IsDir() {
		return nil, &OpenError{Path: path, Title: -1, Err: fmt.Errorf("not a directory")}
	}
	dir := path
	if !strings.EqualFold(filepath.Base(path), "VIDEO_TS") {
		sub, err := findEntry(path, "VIDEO_TS")
		if err != nil {
			return nil, &OpenError{Path: path, Title: -1, Err: err}
		}
		dir = sub
	}
	return &Reader{dir: dir, sink: sink}, nil
}

func (r *Reader) logf(level Level, format string, args ...any) {
	r.sink.Log(level, fmt.Sprintf(format, args...))
}

// OpenIFO reads and parses one navigation table: title 0 is the global
// VIDEO_TS.IFO, title n is VTS_nn_0.IFO. The BUP backup is used when
// the IFO itself is missing.
func (r *Reader) OpenIFO(title int) (*IFO, error) {
	name := "VIDEO_TS.IFO"
	if title != 0 {
		name = fmt.Sprintf("VTS_%02d_0.IFO", title)
	}
	data, err := r.readTable(name)
	if err != nil {
		return nil, &OpenError{Path: filepath.Join(r.dir, name), Title: title, Err: err}
	}

	id := ""
	if len(data) >= 12 {
		id = string(data[:12])
	}
	switch {
	case title == 0 && id == "DVDVIDEO-VMG":
		return &IFO{titles: r.parseTitleTable(data)}, nil
	case title != 0 && id == "DVDVIDEO-VTS":
		ifo := &IFO{}
		ifo.chapterPointers = r.parseChapterPointers(data)
		ifo.chains = r.parseProgramChains(data)
		return ifo, nil
	default:
		return nil, &OpenError{Path: filepath.Join(r.dir, name), Title: title,
			Err: fmt.Errorf("unrecognized IFO identifier %q", id)}
	}
}

func (r *Reader) readTable(name string) ([]byte, error) {
	path, err := findEntry(r.dir, name)
	if err != nil {
		bup := strings.TrimSuffix(name, ".IFO") + ".BUP"
		bupPath, bupErr := findEntry(r.dir, bup)
		if bupErr != nil {
			return nil, err
		}
		r.logf(LevelWarn, "%s missing, falling back to backup %s", name, bup)
		path = bupPath
	}
	return os.ReadFile(path)
}

// findEntry resolves name inside dir with a case-insensitive match;
// discs mounted through some drivers expose lowercase names.
func findEntry(dir, name string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), name) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("%s not found in %s", name, dir)
}

func sectorPointer(data []byte, offset int) int {
	if offset+4 > len(data) {
		return 0
	}
	sector := binary.BigEndian.Uint32(data[offset : offset+4])
	pos := int(sector) * sectorSize
	if pos <= 0 || pos >= len(data) {
		return 0
	}
	return pos
}

// parseTitleTable reads the VMG TT_SRPT: a 12-byte entry per title with
// the chapter count, owning title-set number and the title number
// within that set.
func (r *Reader) parseTitleTable(data []byte) []Title {
	base := sectorPointer(data, vmgTTSRPTPointerOff)
	if base == 0 || base+8 > len(data) {
		r.logf(LevelError, "VMG title table pointer out of range")
		return nil
	}
	count := int(binary.BigEndian.Uint16(data[base : base+2]))
	titles := make([]Title, 0, count)
	for i := 0; i < count; i++ {
		entry := base + 8 + i*12
		if entry+12 > len(data) {
			r.logf(LevelError, "VMG title table truncated after %d of %d entries", i, count)
			break
		}
		titles = append(titles, Title{
			Index:           i,
			ChapterCount:    int(binary.BigEndian.Uint16(data[entry+2 : entry+4])),
			TitleSetNr:      int(data[entry+6]),
			TitleSetTitleNr: int(data[entry+7]),
		})
	}
	return titles
}

// parseChapterPointers reads the VTS_PTT_SRPT: per title-in-set, an
// array of (program chain id, program number) pairs, one per chapter.
func (r *Reader) parseChapterPointers(data []byte) [][]ChapterMarker {
	base := sectorPointer(data, vtsPTTSRPTPointerOff)
	if base == 0 || base+8 > len(data) {
		r.logf(LevelError, "VTS chapter pointer table out of range")
		return nil
	}
	count := int(binary.BigEndian.Uint16(data[base : base+2]))
	lastByte := int(binary.BigEndian.Uint32(data[base+4 : base+8]))

	offsets := make([]int, 0, count)
	for i := 0; i < count; i++ {
		pos := base + 8 + i*4
		if pos+4 > len(data) {
			r.logf(LevelError, "VTS chapter pointer offsets truncated after %d of %d titles", i, count)
			break
		}
		offsets = append(offsets, int(binary.BigEndian.Uint32(data[pos:pos+4])))
	}

	pointers := make([][]ChapterMarker, 0, len(offsets))
	for i, rel := range offsets {
		start := base + rel
		end := base + lastByte + 1
		if i+1 < len(offsets) {
			end = base + offsets[i+1]
		}
		if start < base || end > len(data) || end < start {
			r.logf(LevelError, "VTS chapter pointers for title %d out of range", i+1)
			pointers = append(pointers, nil)
			continue
		}
		markers := []ChapterMarker{}
		for pos := start; pos+4 <= end; pos += 4 {
			pgcn := binary.BigEndian.Uint16(data[pos : pos+2])
			pgn := binary.BigEndian.Uint16(data[pos+2 : pos+4])
			if pgcn == 0 || pgn == 0 {
				r.logf(LevelDebug, "skipping empty chapter pointer entry for title %d", i+1)
				continue
			}
			markers = append(markers, ChapterMarker{ProgramChainID: int(pgcn), ProgramNumber: int(pgn)})
		}
		pointers = append(pointers, markers)
	}
	return pointers
}

// parseProgramChains reads the VTS_PGCIT: for every program chain, the
// program-to-cell map and the per-cell playback times.
func (r *Reader) parseProgramChains(data []byte) []*ProgramChain {
	base := sectorPointer(data, vtsPGCITPointerOff)
	if base == 0 || base+8 > len(data) {
		r.logf(LevelError, "VTS program chain table out of range")
		return nil
	}
	count := int(binary.BigEndian.Uint16(data[base : base+2]))
	chains := make([]*ProgramChain, 0, count)
	for i := 0; i < count; i++ {
		srp := base + 8 + i*8
		if srp+8 > len(data) {
			r.logf(LevelError, "VTS program chain pointers truncated after %d of %d chains", i, count)
			break
		}
		pgcBase := base + int(binary.BigEndian.Uint32(data[srp+4:srp+8]))
		chain := r.parseProgramChain(data, pgcBase, i+1)
		if chain == nil {
			chain = &ProgramChain{}
		}
		chains = append(chains, chain)
	}
	return chains
}

func (r *Reader) parseProgramChain(data []byte, pgcBase, id int) *ProgramChain {
	if pgcBase+pgcCellPlaybackOff+2 > len(data) {
		r.logf(LevelError, "program chain %d header out of range", id)
		return nil
	}
	programCount := int(data[pgcBase+pgcProgramCountOff])
	cellCount := int(data[pgcBase+pgcCellCountOff])

	progMapStart := pgcBase + int(binary.BigEndian.Uint16(data[pgcBase+pgcProgramMapOff:pgcBase+pgcProgramMapOff+2]))
	cellPlayStart := pgcBase + int(binary.BigEndian.Uint16(data[pgcBase+pgcCellPlaybackOff:pgcBase+pgcCellPlaybackOff+2]))
	if progMapStart+programCount > len(data) {
		r.logf(LevelError, "program chain %d program map out of range", id)
		return nil
	}

	chain := &ProgramChain{
		ProgramMap: data[progMapStart : progMapStart+programCount],
		Cells:      make([]CellTime, 0, cellCount),
	}
	for c := 0; c < cellCount; c++ {
		entry := cellPlayStart + c*cellPlaybackStride
		if entry+8 > len(data) {
			r.logf(LevelError, "program chain %d cell playback table truncated after %d of %d cells", id, c, cellCount)
			break
		}
		t := data[entry+pgcPlaybackTimeOff : entry+pgcPlaybackTimeOff+4]
		chain.Cells = append(chain.Cells, CellTime{Hour: t[0], Minute: t[1], Second: t[2], Frame: t[3]})
	}
	return chain
}
