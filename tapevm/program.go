package tapevm

import (
	"tracetape.org/tracetape/opcode"
	"tracetape.org/tracetape/tape"
)

// Program is the immutable part of a tape: operations, operands and jump targets.
// A Program can be shared by any number of VMs.
type Program struct {
	numInputs  int
	numOutputs int
	code       []instr
}

type instr struct {
	op opcode.Op
	a  int
	b  int
	// end is the block end of a branch
	end int
	// lit is the initial register value; the literal for CONST
	lit float64
}

// NewProgram validates tp and prepares it for evaluation.
// The Program does not refer to tp after NewProgram returns.
func NewProgram(tp *tape.Tape) (*Program, error) {
	if err := tp.Validate(); err != nil {
		return nil, err
	}
	code := make([]instr, len(tp.Instructions))
	for i, in := range tp.Instructions {
		ix := instr{op: in.Op, a: in.Operand1, b: in.Operand2, end: in.BlockEnd, lit: in.Value}
		// unused operands read register 0, and are ignored.
		switch in.Op.InDegree() {
		case 0:
			ix.a, ix.b = 0, 0
		case 1:
			ix.b = 0
		}
		code[i] = ix
	}
	return &Program{
		numInputs:  tp.NumInputs,
		numOutputs: tp.NumOutputs,
		code:       code,
	}, nil
}

func (p *Program) NumInputs() int {
	return p.numInputs
}

func (p *Program) NumOutputs() int {
	return p.numOutputs
}

func (p *Program) Len() int {
	return len(p.code)
}
