package trace

import (
	"fmt"

	"tracetape.org/tracetape/opcode"
)

// TraceError is returned when a traced function breaks the tracing contract,
// for example by comparing arrays.
type TraceError struct {
	Msg string
}

func (e TraceError) Error() string {
	return "trace: " + e.Msg
}

// UnresolvedBranchError is returned when compilation would leave branches without a block end.
// It means the traced function did not branch the same way on every pass.
type UnresolvedBranchError struct {
	// Point is the index of the branch point which was not replayed, or -1 if unknown.
	Point int
	// IDs are the branch instructions involved.
	IDs []int
}

func (e UnresolvedBranchError) Error() string {
	if e.Point < 0 {
		return fmt.Sprintf("trace: branches %v were never closed; the traced function is not deterministic", e.IDs)
	}
	return fmt.Sprintf("trace: branch point %d (branches %v) was not replayed the same way; the traced function is not deterministic", e.Point, e.IDs)
}

// LimitError is returned when compilation exceeds a configured limit.
type LimitError struct {
	Limit string
	Max   int
}

func (e LimitError) Error() string {
	return fmt.Sprintf("trace: exceeded maximum %s of %d", e.Limit, e.Max)
}

// abort carries an error out of a traced function.
// It is recovered by Compile.
type abort struct {
	err error
}

func fail(err error) {
	panic(abort{err: err})
}

func failf(op opcode.Op, format string, args ...any) {
	fail(TraceError{Msg: op.String() + ": " + fmt.Sprintf(format, args...)})
}
