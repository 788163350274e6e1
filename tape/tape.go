// package tape contains the instruction sequence produced by tracing, and its wire format.
package tape

import (
	"fmt"

	"tracetape.org/tracetape/opcode"
)

// Unset marks an operand which is not used, or a BlockEnd which has not been assigned.
const Unset = -1

// Instruction is a single entry on a Tape.
// The position of an Instruction in the Tape is its identity.
type Instruction struct {
	// BlockEnd is the jump target of a branch.
	// It is Unset for everything else.
	BlockEnd int
	Operand1 int
	Operand2 int
	Op       opcode.Op
	// Value is the literal for CONST, and a working register otherwise.
	Value float64
}

func (in Instruction) String() string {
	return fmt.Sprintf("{%v %d %d end=%d val=%v}", in.Op, in.Operand1, in.Operand2, in.BlockEnd, in.Value)
}

// Tape is a traced program.
// The first NumInputs instructions are the input placeholders.
type Tape struct {
	NumInputs    int
	NumOutputs   int
	Instructions []Instruction
}

func (t *Tape) Len() int {
	return len(t.Instructions)
}

// Clone returns a deep copy of t.
func (t *Tape) Clone() *Tape {
	return &Tape{
		NumInputs:    t.NumInputs,
		NumOutputs:   t.NumOutputs,
		Instructions: append([]Instruction{}, t.Instructions...),
	}
}

// Branches returns the indexes of all the branch instructions.
func (t *Tape) Branches() (ret []int) {
	for i, in := range t.Instructions {
		if in.Op.IsBranch() {
			ret = append(ret, i)
		}
	}
	return ret
}

// Validate checks the structural invariants of the tape:
// - operands refer to strictly earlier instructions
// - every branch has a BlockEnd after itself and within the tape
// - nothing but a branch has a BlockEnd
func (t *Tape) Validate() error {
	n := len(t.Instructions)
	if t.NumInputs < 0 || t.NumInputs > n {
		return ErrInvalid{Index: Unset, Msg: fmt.Sprintf("tape has %d inputs but only %d instructions", t.NumInputs, n)}
	}
	if t.NumOutputs < 0 || t.NumOutputs > n-t.NumInputs {
		return ErrInvalid{Index: Unset, Msg: fmt.Sprintf("tape has %d outputs but only %d non-input instructions", t.NumOutputs, n-t.NumInputs)}
	}
	for i, in := range t.Instructions {
		if !in.Op.Valid() {
			return ErrInvalid{Index: i, Msg: fmt.Sprintf("unknown operation %v", in.Op)}
		}
		if i < t.NumInputs && in.Op != opcode.CONST {
			return ErrInvalid{Index: i, Msg: fmt.Sprintf("input placeholder has operation %v", in.Op)}
		}
		deg := in.Op.InDegree()
		if deg >= 1 && (in.Operand1 < 0 || in.Operand1 >= i) {
			return ErrInvalid{Index: i, Msg: fmt.Sprintf("operand1 %d is not an earlier instruction", in.Operand1)}
		}
		if deg >= 2 && (in.Operand2 < 0 || in.Operand2 >= i) {
			return ErrInvalid{Index: i, Msg: fmt.Sprintf("operand2 %d is not an earlier instruction", in.Operand2)}
		}
		if in.Op.IsBranch() {
			if in.BlockEnd <= i || in.BlockEnd > n {
				return ErrInvalid{Index: i, Msg: fmt.Sprintf("branch has block end %d", in.BlockEnd)}
			}
		} else if in.BlockEnd != Unset {
			return ErrInvalid{Index: i, Msg: fmt.Sprintf("%v has block end %d", in.Op, in.BlockEnd)}
		}
	}
	return nil
}

// Stats summarizes a Tape.
type Stats struct {
	Instructions int
	Inputs       int
	Outputs      int
	Branches     int
	Constants    int
	ByOp         map[opcode.Op]int
}

func (t *Tape) Stats() Stats {
	st := Stats{
		Instructions: len(t.Instructions),
		Inputs:       t.NumInputs,
		Outputs:      t.NumOutputs,
		ByOp:         make(map[opcode.Op]int),
	}
	for i, in := range t.Instructions {
		st.ByOp[in.Op]++
		switch {
		case in.Op.IsBranch():
			st.Branches++
		case in.Op == opcode.CONST && i >= t.NumInputs:
			st.Constants++
		}
	}
	return st
}
