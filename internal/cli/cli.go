// Package cli drives a chapter extraction run: argument handling,
// error-to-diagnostic mapping and process exit codes.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/autobrr/go-dvdchapters/internal/config"
	"github.com/autobrr/go-dvdchapters/internal/dvd"
	"github.com/autobrr/go-dvdchapters/internal/matroska"
)

const (
	exitOK    = 0
	exitError = 1
)

// Options are the flag-controlled settings passed down from the root
// command.
type Options struct {
	// OutputPath writes the chapter document to a file instead of
	// stdout when non-empty.
	OutputPath string
	// ConfigPath points at an explicit config file.
	ConfigPath string
}

// Run extracts chapters for the VIDEO_TS path in args[0], optionally
// restricted to the title selector in args[1]. A selector of 0 (or no
// selector at all) processes every title. Returns the process exit
// code.
func Run(args []string, opts Options, stdout, stderr io.Writer) int {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(stderr, "expected a VIDEO_TS path and an optional title number")
		return exitError
	}

	title := 0
	if len(args) == 2 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(stderr, "could not convert %s to integer\n", args[1])
			return exitError
		}
		if parsed < 0 {
			fmt.Fprintln(stderr, "title cannot be a negative integer")
			return exitError
		}
		title = parsed
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitError
	}

	// Advisory reader messages are replayed on stderr unless the run
	// produced its document.
	messages := dvd.NewMessageLog()
	defer messages.Report(stderr)

	if err := extract(args[0], title, cfg, opts, stdout, messages); err != nil {
		reportError(stderr, err)
		return exitError
	}

	messages.Disable()
	return exitOK
}

func extract(path string, title int, cfg *config.Config, opts Options, stdout io.Writer, sink dvd.LogSink) error {
	reader, err := dvd.Open(path, sink)
	if err != nil {
		return err
	}
	vmg, err := reader.OpenIFO(0)
	if err != nil {
		return err
	}

	titles := vmg.Titles()
	selected := titles
	if title != 0 {
		if title >= len(titles) {
			return &dvd.TitleRangeError{Requested: title, Available: len(titles)}
		}
		selected = titles[title : title+1]
	}

	out := stdout
	var outFile *os.File
	if opts.OutputPath != "" {
		f, err := os.Create(opts.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		outFile = f
		out = f
	}

	writer, err := matroska.NewWriter(out, matroska.Options{
		NameTemplate: cfg.NameTemplate,
		Language:     cfg.Language,
		LanguageIETF: cfg.LanguageIETF,
	})
	if err != nil {
		return err
	}
	// Closing on every exit path keeps the root tag balanced even when a
	// title fails mid-stream.
	defer writer.Close()

	for _, t := range selected {
		if err := reader.WriteTitleChapters(t, writer); err != nil {
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}
	if outFile != nil {
		if err := outFile.Close(); err != nil {
			return err
		}
	}
	return nil
}

func reportError(stderr io.Writer, err error) {
	var openErr *dvd.OpenError
	var rangeErr *dvd.TitleRangeError
	switch {
	case errors.As(err, &rangeErr):
		fmt.Fprintf(stderr, "Title %d requested, but DVD has %d titles.\n", rangeErr.Requested, rangeErr.Available)
	case errors.As(err, &openErr):
		fmt.Fprintf(stderr, "DVD read error: %v\n", err)
	default:
		fmt.Fprintf(stderr, "Fatal error: %v\n", err)
	}
}
