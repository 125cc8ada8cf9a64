package dvd

import "fmt"

// OpenError reports a failure to open the DVD navigation structure or
// one of its IFO tables. Title is -1 when the root itself failed.
type OpenError struct {
	Path  string
	Title int
	Err   error
}

func (e *OpenError) Error() string {
	if e.Title < 0 {
		return fmt.Sprintf("failed to open DVD structure under %s", e.Path)
	}
	return fmt.Sprintf("failed to open IFO for title %d", e.Title)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// TitleRangeError reports a title selector beyond the number of titles
// the disc enumerates.
type TitleRangeError struct {
	Requested int
	Available int
}

func (e *TitleRangeError) Error() string {
	return fmt.Sprintf("title %d requested, but DVD has %d titles", e.Requested, e.Available)
}
