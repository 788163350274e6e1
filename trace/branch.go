package trace

import (
	"tracetape.org/tracetape/opcode"
	"tracetape.org/tracetape/tape"
)

// Cond is a comparison between two scalars.
// It has no effect until it is passed to Branch.
type Cond struct {
	Op   opcode.Op
	A, B Scalar
}

// Compare creates a Cond. op must be one of the branch operations.
func (t *Tracer) Compare(op opcode.Op, a, b Scalar) Cond {
	if !op.IsBranch() {
		failf(op, "not a comparison")
	}
	t.operand(op, a)
	t.operand(op, b)
	return Cond{Op: op, A: a, B: b}
}

func (t *Tracer) Eq(a, b Scalar) Cond { return t.Compare(opcode.IFEQ, a, b) }
func (t *Tracer) Ne(a, b Scalar) Cond { return t.Compare(opcode.IFNE, a, b) }
func (t *Tracer) Lt(a, b Scalar) Cond { return t.Compare(opcode.IFLT, a, b) }
func (t *Tracer) Ge(a, b Scalar) Cond { return t.Compare(opcode.IFGE, a, b) }
func (t *Tracer) Gt(a, b Scalar) Cond { return t.Compare(opcode.IFGT, a, b) }
func (t *Tracer) Le(a, b Scalar) Cond { return t.Compare(opcode.IFLE, a, b) }

// Branch returns the outcome the traced function must follow for c.
// Every conditional in a traced function must go through Branch, and
// every call to Branch is a distinct branch point.
func (t *Tracer) Branch(c Cond) bool {
	if !c.Op.IsBranch() || c.A.IsZero() || c.B.IsZero() {
		failf(c.Op, "branch on an invalid condition")
	}
	i := t.cursor
	t.cursor++
	switch {
	case i >= len(t.outcomes):
		// new branch point, explore the true side first.
		if len(t.outcomes) >= t.cfg.MaxDepth {
			fail(LimitError{Limit: "branch depth", Max: t.cfg.MaxDepth})
		}
		t.pending = append(t.pending, t.emitBranch(c.Op, c))
		t.outcomes = append(t.outcomes, true)
		t.points = append(t.points, c.Op)
		t.scopes.push()
		return true

	case i == len(t.outcomes)-1 && !t.outcomes[i]:
		// the true side is closed, record the false side.
		t.checkPoint(i, c)
		t.pending = append(t.pending, t.emitBranch(c.Op.Inverse(), c))
		t.scopes.reset()
		return false

	default:
		t.checkPoint(i, c)
		return t.outcomes[i]
	}
}

func (t *Tracer) emitBranch(op opcode.Op, c Cond) int {
	return t.emit(tape.Instruction{
		BlockEnd: tape.Unset,
		Operand1: c.A.ID(),
		Operand2: c.B.ID(),
		Op:       op,
	})
}

// checkPoint ensures that a replayed branch point uses the same comparison as when it was first seen.
// Operands are not compared, zero constants get a new id on every pass.
func (t *Tracer) checkPoint(i int, c Cond) {
	if t.points[i] != c.Op {
		ids := t.unresolved()
		if i == len(t.outcomes)-1 && !t.outcomes[i] {
			ids = append(ids, t.reopened)
		}
		fail(UnresolvedBranchError{Point: i, IDs: ids})
	}
}

// closeBlock sets the block end of the innermost pending branch to the current end of the tape.
func (t *Tracer) closeBlock() {
	id := t.pending[len(t.pending)-1]
	t.pending = t.pending[:len(t.pending)-1]
	t.tp.Instructions[id].BlockEnd = t.tp.Len()
}

// unresolved returns every branch instruction without a block end.
func (t *Tracer) unresolved() (ret []int) {
	for _, id := range t.tp.Branches() {
		if t.tp.Instructions[id].BlockEnd == tape.Unset {
			ret = append(ret, id)
		}
	}
	return ret
}
