package ingest

import "fmt"

// MalformedFilenameError reports a water export whose file name does not carry
// a recognizable month abbreviation and year
type MalformedFilenameError struct {
	Name   string
	Reason string
}

func (e *MalformedFilenameError) Error() string {
	return fmt.Sprintf("malformed export file name %q: %s (expected \"<Label> For <Mon> <Year>.csv\")", e.Name, e.Reason)
}

// MalformedDayError reports a day-of-month cell that cannot be reduced to a valid day
type MalformedDayError struct {
	Line  int
	Token string
}

func (e *MalformedDayError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: malformed day of month %q", e.Line, e.Token)
	}
	return fmt.Sprintf("malformed day of month %q", e.Token)
}

// MalformedDateError reports a date cell that is not in YYYY-MM-DD form
type MalformedDateError struct {
	Line  int
	Value string
	Err   error
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("line %d: malformed date %q: %v", e.Line, e.Value, e.Err)
}

func (e *MalformedDateError) Unwrap() error {
	return e.Err
}
