// package trace records numeric functions onto a tape.
//
// A traced function is written against a Tracer instead of float64.
// Every arithmetic operation is a method call on the Tracer, and every conditional
// must be written as
//
//	if t.Branch(t.Lt(a, b)) {
//		...
//	} else {
//		...
//	}
//
// Compile runs the function once per branch point, choosing a different outcome each time,
// until every reachable path has been recorded.
package trace

import (
	"tracetape.org/tracetape/opcode"
	"tracetape.org/tracetape/tape"
)

// Scalar refers to an instruction on the tape being traced.
// The zero Scalar is not valid.
type Scalar struct {
	// ref is the instruction index + 1
	ref int
}

func scalarAt(id int) Scalar {
	return Scalar{ref: id + 1}
}

// ID returns the index of the instruction which produces s.
func (s Scalar) ID() int {
	return s.ref - 1
}

func (s Scalar) IsZero() bool {
	return s.ref == 0
}

// Tracer records operations.
// A Tracer is only valid within a call to Compile.
type Tracer struct {
	cfg Config

	tp     *tape.Tape
	scopes scopeStack

	// outcomes holds the committed outcome of each open branch point.
	outcomes []bool
	// points holds the comparison written at each open branch point.
	points []opcode.Op
	// pending holds the ids of the branch instructions waiting for a block end.
	pending []int
	// cursor is the index into outcomes of the next branch point in this pass.
	cursor int
	// reopened is the id of the branch instruction closed before this pass,
	// whose false side the pass must record.
	reopened int
}

func newTracer(cfg Config) *Tracer {
	return &Tracer{
		cfg:    cfg,
		tp:     &tape.Tape{},
		scopes: newScopeStack(),
	}
}

// Len returns the number of instructions recorded so far.
func (t *Tracer) Len() int {
	return t.tp.Len()
}

// Depth returns the number of branch points reached so far in this pass.
// The tape is flat, so every one of them encloses the current position.
func (t *Tracer) Depth() int {
	return t.cursor
}

func (t *Tracer) emit(in tape.Instruction) int {
	id := len(t.tp.Instructions)
	t.tp.Instructions = append(t.tp.Instructions, in)
	return id
}

func (t *Tracer) input() Scalar {
	return scalarAt(t.emit(tape.Instruction{
		BlockEnd: tape.Unset,
		Operand1: tape.Unset,
		Operand2: tape.Unset,
		Op:       opcode.CONST,
	}))
}

// Const returns a constant.
// Non-zero constants are shared with any equal constant visible from the current block.
// Zero is never shared.
func (t *Tracer) Const(v float64) Scalar {
	if v != 0 {
		if id, ok := t.scopes.lookupConst(v); ok {
			return scalarAt(id)
		}
	}
	id := t.emit(tape.Instruction{
		BlockEnd: tape.Unset,
		Operand1: tape.Unset,
		Operand2: tape.Unset,
		Op:       opcode.CONST,
		Value:    v,
	})
	if v != 0 {
		t.scopes.putConst(v, id)
	}
	return scalarAt(id)
}

func (t *Tracer) operand(op opcode.Op, x Scalar) int {
	if x.IsZero() {
		failf(op, "uninitialized operand")
	}
	id := x.ID()
	if id >= t.tp.Len() {
		failf(op, "operand %d does not exist; scalars cannot be kept between passes", id)
	}
	return id
}

// Apply records op applied to a and b.
// b is ignored if op is unary.
// If the same operation on the same operands is visible from the current block,
// then it is returned instead.
func (t *Tracer) Apply(op opcode.Op, a, b Scalar) Scalar {
	if !op.Valid() || op == opcode.CONST || op.IsBranch() {
		failf(op, "not an arithmetic operation")
	}
	k := exprKey{a: t.operand(op, a), op: op, b: tape.Unset}
	if op.InDegree() == 2 {
		k.b = t.operand(op, b)
	}
	if id, ok := t.scopes.lookupExpr(k); ok {
		return scalarAt(id)
	}
	if op.IsCommutative() {
		if id, ok := t.scopes.lookupExpr(exprKey{a: k.b, op: op, b: k.a}); ok {
			return scalarAt(id)
		}
	}
	id := t.emit(tape.Instruction{
		BlockEnd: tape.Unset,
		Operand1: k.a,
		Operand2: k.b,
		Op:       op,
	})
	t.scopes.putExpr(k, id)
	return scalarAt(id)
}

func (t *Tracer) unary(op opcode.Op, a Scalar) Scalar {
	return t.Apply(op, a, Scalar{})
}

func (t *Tracer) Add(a, b Scalar) Scalar { return t.Apply(opcode.ADD, a, b) }
func (t *Tracer) Sub(a, b Scalar) Scalar { return t.Apply(opcode.SUB, a, b) }
func (t *Tracer) Mul(a, b Scalar) Scalar { return t.Apply(opcode.MUL, a, b) }
func (t *Tracer) Div(a, b Scalar) Scalar { return t.Apply(opcode.DIV, a, b) }
func (t *Tracer) Pow(a, b Scalar) Scalar { return t.Apply(opcode.POW, a, b) }
func (t *Tracer) Max(a, b Scalar) Scalar { return t.Apply(opcode.MAX, a, b) }
func (t *Tracer) Min(a, b Scalar) Scalar { return t.Apply(opcode.MIN, a, b) }

func (t *Tracer) Neg(a Scalar) Scalar  { return t.unary(opcode.NEG, a) }
func (t *Tracer) Abs(a Scalar) Scalar  { return t.unary(opcode.ABS, a) }
func (t *Tracer) Exp(a Scalar) Scalar  { return t.unary(opcode.EXP, a) }
func (t *Tracer) Log(a Scalar) Scalar  { return t.unary(opcode.LOG, a) }
func (t *Tracer) Sqrt(a Scalar) Scalar { return t.unary(opcode.SQRT, a) }
func (t *Tracer) Sin(a Scalar) Scalar  { return t.unary(opcode.SIN, a) }
func (t *Tracer) Cos(a Scalar) Scalar  { return t.unary(opcode.COS, a) }
func (t *Tracer) Tan(a Scalar) Scalar  { return t.unary(opcode.TAN, a) }
func (t *Tracer) Sinh(a Scalar) Scalar { return t.unary(opcode.SINH, a) }
func (t *Tracer) Cosh(a Scalar) Scalar { return t.unary(opcode.COSH, a) }
func (t *Tracer) Tanh(a Scalar) Scalar { return t.unary(opcode.TANH, a) }

// output records a copy of x which is never shared,
// so that the outputs of every path are the last instructions on that path.
func (t *Tracer) output(x Scalar) {
	a := t.operand(opcode.MUL, x)
	one := t.Const(1.0)
	t.emit(tape.Instruction{
		BlockEnd: tape.Unset,
		Operand1: a,
		Operand2: one.ID(),
		Op:       opcode.MUL,
	})
}
