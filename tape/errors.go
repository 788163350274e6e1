package tape

import "fmt"

// FormatError is returned when a tape file cannot be decoded.
type FormatError struct {
	// Line is 1-based, 0 means the end of the input.
	Line int
	Msg  string
}

func (e FormatError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("tape format: %s", e.Msg)
	}
	return fmt.Sprintf("tape format: line %d: %s", e.Line, e.Msg)
}

// ErrInvalid is returned by Validate.
type ErrInvalid struct {
	Index int
	Msg   string
}

func (e ErrInvalid) Error() string {
	if e.Index == Unset {
		return fmt.Sprintf("invalid tape: %s", e.Msg)
	}
	return fmt.Sprintf("invalid tape: instruction %d: %s", e.Index, e.Msg)
}
