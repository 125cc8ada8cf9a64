package dvd

// ChapterMarker names where a chapter begins: a program chain on the
// title set and a program number within it. Both are 1-based as stored
// on disc.
type ChapterMarker struct {
	ProgramChainID int
	ProgramNumber  int
}

// ProgramChain holds the two tables the walker needs from one PGC: the
// 1-based program-to-cell map and the per-cell playback times.
type ProgramChain struct {
	ProgramMap []byte
	Cells      []CellTime
}

// ProgramChainTable resolves a 1-based program chain id. Parsed tables
// are trusted; an id outside the table is a malformed disc, not a
// recoverable condition.
type ProgramChainTable interface {
	ProgramChain(id int) *ProgramChain
}

// ChapterSink receives chapter boundaries as they are computed, one
// title at a time.
type ChapterSink interface {
	BeginTitle() error
	Chapter(startMS int64) error
	EndTitle() error
}

// tally is the walker's accumulator: frames elapsed since title start
// and the frame rate captured from the cells seen so far. The rate is
// last-write-wins; discs carry a single video standard, so it is
// effectively constant per title.
type tally struct {
	frames uint64
	rate   uint32
}

// TitleChapterStarts computes the millisecond start timestamp of every
// chapter of one title. The first entry is always 0. Each consecutive
// marker pair bounds one chapter's cell range; the per-cell durations
// are summed in frames and converted once per boundary from the running
// total, so timestamps never drift.
func TitleChapterStarts(chains ProgramChainTable, markers []ChapterMarker) []int64 {
	starts := []int64{0}
	t := tally{}
	for i := 0; i+1 < len(markers); i++ {
		t = accumulateChapter(chains, markers[i], markers[i+1], t)
		starts = append(starts, framesToMilliseconds(t.frames, t.rate))
	}
	return starts
}

// accumulateChapter folds one chapter's cells into the tally. The end
// cell is the one before the next chapter's start cell, resolved in the
// next marker's program chain, and that chain's cell table is also the
// one iterated. This mirrors the navigation layout as mkvtoolnix reads
// it; do not "fix" the asymmetry.
func accumulateChapter(chains ProgramChainTable, cur, next ChapterMarker, t tally) tally {
	startChain := chains.ProgramChain(cur.ProgramChainID)
	startCell := int(startChain.ProgramMap[cur.ProgramNumber-1]) - 1
	endChain := chains.ProgramChain(next.ProgramChainID)
	endCell := int(endChain.ProgramMap[next.ProgramNumber-1]) - 2

	var sub uint64
	for c := startCell; c <= endCell; c++ {
		cell := endChain.Cells[c]
		t.rate = cell.Rate()
		sub += cell.Frames(t.rate)
	}
	t.frames += sub
	return t
}

// WriteTitleChapters walks one title and streams its chapter boundaries
// into the sink, bracketed by BeginTitle/EndTitle.
func (r *Reader) WriteTitleChapters(title Title, sink ChapterSink) error {
	set, err := r.OpenIFO(title.TitleSetNr)
	if err != nil {
		return err
	}
	markers := set.ChapterMarkers(title.TitleSetTitleNr)
	if title.ChapterCount < len(markers) {
		r.logf(LevelWarn, "title %d: chapter pointer table has %d entries, title table says %d; using %d",
			title.Index, len(markers), title.ChapterCount, title.ChapterCount)
		markers = markers[:title.ChapterCount]
	}

	if err := sink.BeginTitle(); err != nil {
		return err
	}
	for _, startMS := range TitleChapterStarts(set, markers) {
		if err := sink.Chapter(startMS); err != nil {
			return err
		}
	}
	return sink.EndTitle()
}
