// Package matroska streams a Matroska chapter XML document: one
// EditionEntry per title, one ChapterAtom per chapter boundary.
package matroska

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
)

const defaultNameTemplate = "Chapter %02d"

// Options controls the rendered chapter display entries.
type Options struct {
	// NameTemplate must contain one integer verb; it is filled with the
	// running chapter number. Empty means "Chapter %02d".
	NameTemplate string
	// Language and LanguageIETF fill ChapterLanguage and
	// ChapLanguageIETF. Empty means "und".
	Language     string
	LanguageIETF string
}

func (o Options) withDefaults() Options {
	if o.NameTemplate == "" {
		o.NameTemplate = defaultNameTemplate
	}
	if o.Language == "" {
		o.Language = "und"
	}
	if o.LanguageIETF == "" {
		o.LanguageIETF = "und"
	}
	return o
}

// Writer emits the document incrementally; previous titles are already
// flushed downstream when the next one begins. Edition and chapter UIDs
// come from a single generator seeded once per writer: unique with high
// probability across a run, not reproducible between runs.
type Writer struct {
	w          *bufio.Writer
	rng        *rand.Rand
	opts       Options
	chapterNum int
	closed     bool
}

// NewWriter starts the document on w, emitting the XML prolog and the
// root opening tag. The caller must Close the writer so the root tag is
// balanced even if emission is abandoned midway.
func NewWriter(w io.Writer, opts Options) (*Writer, error) {
	bw := bufio.NewWriter(w)
	wr := &Writer{
		w:    bw,
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		opts: opts.withDefaults(),
	}
	bw.WriteString("<?xml version=\"1.0\"?>\n")
	bw.WriteString("<!-- <!DOCTYPE Chapters SYSTEM \"matroskachapters.dtd\"> -->\n")
	bw.WriteString("<Chapters>\n")
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return wr, nil
}

// Close emits the root closing tag and flushes. The tag is written at
// most once; further calls are no-ops, so Close can both be deferred
// for early exits and called explicitly to surface flush errors.
func (wr *Writer) Close() error {
	if wr.closed {
		return nil
	}
	wr.closed = true
	wr.w.WriteString("</Chapters>\n")
	return wr.w.Flush()
}

// BeginTitle opens an EditionEntry with a fresh EditionUID and resets
// the chapter counter.
func (wr *Writer) BeginTitle() error {
	wr.chapterNum = 1
	wr.w.WriteString("  <EditionEntry>\n")
	wr.w.WriteString("    <EditionFlagHidden>0</EditionFlagHidden>\n")
	wr.w.WriteString("    <EditionFlagDefault>0</EditionFlagDefault>\n")
	wr.w.WriteString("    <EditionFlagOrdered>0</EditionFlagOrdered>\n")
	fmt.Fprintf(wr.w, "    <EditionUID>%d</EditionUID>\n", wr.rng.Uint64())
	return wr.w.Flush()
}

// EndTitle closes the current EditionEntry.
func (wr *Writer) EndTitle() error {
	wr.w.WriteString("  </EditionEntry>\n")
	return wr.w.Flush()
}

// Chapter emits one ChapterAtom at the given millisecond offset from
// title start and advances the chapter counter.
func (wr *Writer) Chapter(startMS int64) error {
	name := fmt.Sprintf(wr.opts.NameTemplate, wr.chapterNum)
	wr.chapterNum++

	wr.w.WriteString("    <ChapterAtom>\n")
	fmt.Fprintf(wr.w, "      <ChapterUID>%d</ChapterUID>\n", wr.rng.Uint64())
	fmt.Fprintf(wr.w, "      <ChapterTimeStart>%s</ChapterTimeStart>\n", FormatTimestamp(startMS))
	wr.w.WriteString("      <ChapterDisplay>\n")
	wr.w.WriteString("        <ChapterString>")
	writeEscaped(wr.w, name)
	wr.w.WriteString("</ChapterString>\n")
	fmt.Fprintf(wr.w, "        <ChapterLanguage>%s</ChapterLanguage>\n", wr.opts.Language)
	fmt.Fprintf(wr.w, "        <ChapLanguageIETF>%s</ChapLanguageIETF>\n", wr.opts.LanguageIETF)
	wr.w.WriteString("      </ChapterDisplay>\n")
	wr.w.WriteString("    </ChapterAtom>\n")
	return wr.w.Flush()
}

// FormatTimestamp renders a millisecond offset as HH:MM:SS.mmm with at
// least two hour digits.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	m := (ms / 60000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

func writeEscaped(w io.Writer, s string) {
	if !strings.ContainsAny(s, "&<>'\"") {
		io.WriteString(w, s)
		return
	}
	xml.EscapeText(w, []byte(s))
}
