package trace

import (
	"fmt"
	"slices"

	"go.brendoncarroll.net/exp/slices2"

	"tracetape.org/tracetape/opcode"
)

// Shape is the shape of an array. The empty Shape is a scalar.
type Shape []int

// ScalarShape is the Shape of a scalar
func ScalarShape() Shape {
	return nil
}

func (s Shape) IsScalar() bool {
	return len(s) == 0
}

// Size is the number of elements in a value of this shape.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

func (s Shape) Equals(other Shape) bool {
	return slices.Equal(s, other)
}

func (s Shape) String() string {
	if s.IsScalar() {
		return "scalar"
	}
	return fmt.Sprint([]int(s))
}

func (s Shape) validate() error {
	for _, d := range s {
		if d < 0 {
			return TraceError{Msg: fmt.Sprintf("negative dimension in shape %v", s)}
		}
	}
	return nil
}

// Value is a scalar or an array of scalars, in row-major order.
type Value struct {
	shape Shape
	elems []Scalar
}

func FromScalar(x Scalar) Value {
	return Value{elems: []Scalar{x}}
}

// FromArray creates an array Value. len(elems) must equal shape.Size().
func FromArray(shape Shape, elems []Scalar) Value {
	if shape.IsScalar() {
		fail(TraceError{Msg: "FromArray called with a scalar shape"})
	}
	if shape.Size() != len(elems) {
		fail(TraceError{Msg: fmt.Sprintf("shape %v needs %d elements, have %d", shape, shape.Size(), len(elems))})
	}
	return Value{shape: slices.Clone(shape), elems: slices.Clone(elems)}
}

func (v Value) IsZero() bool {
	return v.elems == nil
}

func (v Value) IsArray() bool {
	return !v.shape.IsScalar()
}

func (v Value) Shape() Shape {
	return slices.Clone(v.shape)
}

func (v Value) Size() int {
	return len(v.elems)
}

// Elems returns the scalars in v in row-major order.
func (v Value) Elems() []Scalar {
	return slices.Clone(v.elems)
}

// Scalar returns the scalar held by v. It is an error to call Scalar on an array.
func (v Value) Scalar() Scalar {
	if v.IsArray() || len(v.elems) != 1 {
		fail(TraceError{Msg: fmt.Sprintf("value of shape %v is not a scalar", v.shape)})
	}
	return v.elems[0]
}

// At indexes the first dimension of an array.
func (v Value) At(i int) Value {
	if !v.IsArray() {
		fail(TraceError{Msg: "cannot index a scalar"})
	}
	if i < 0 || i >= v.shape[0] {
		fail(TraceError{Msg: fmt.Sprintf("index %d out of range for shape %v", i, v.shape)})
	}
	inner := v.shape[1:]
	n := inner.Size()
	if inner.IsScalar() {
		return FromScalar(v.elems[i])
	}
	return Value{shape: slices.Clone(inner), elems: v.elems[i*n : (i+1)*n : (i+1)*n]}
}

// Slice returns the elements [beg, end) of a 1 dimensional array.
func (v Value) Slice(beg, end int) Value {
	if len(v.shape) != 1 {
		fail(TraceError{Msg: fmt.Sprintf("cannot slice value of shape %v", v.shape)})
	}
	if beg < 0 || end < beg || end > v.shape[0] {
		fail(TraceError{Msg: fmt.Sprintf("slice [%d:%d] out of range for shape %v", beg, end, v.shape)})
	}
	return FromArray(Shape{end - beg}, v.elems[beg:end])
}

// Reshape returns v with a new shape of the same size.
func (v Value) Reshape(shape Shape) Value {
	if shape.Size() != len(v.elems) {
		fail(TraceError{Msg: fmt.Sprintf("cannot reshape %v to %v", v.shape, shape)})
	}
	if shape.IsScalar() {
		return FromScalar(v.elems[0])
	}
	return FromArray(shape, v.elems)
}

// T returns the transpose of a 2 dimensional array.
// Scalars and 1 dimensional arrays are returned unchanged.
func (v Value) T() Value {
	if len(v.shape) < 2 {
		return v
	}
	if len(v.shape) > 2 {
		fail(TraceError{Msg: fmt.Sprintf("cannot transpose value of shape %v", v.shape)})
	}
	m, n := v.shape[0], v.shape[1]
	out := make([]Scalar, 0, len(v.elems))
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			out = append(out, v.elems[i*n+j])
		}
	}
	return Value{shape: Shape{n, m}, elems: out}
}

// Lit returns a constant scalar Value.
func (t *Tracer) Lit(x float64) Value {
	return FromScalar(t.Const(x))
}

// LitArray returns an array of constants.
func (t *Tracer) LitArray(shape Shape, xs []float64) Value {
	return FromArray(shape, slices2.Map(xs, t.Const))
}

// Elementwise applies a binary operation to each pair of elements.
// A scalar operand is broadcast against an array operand.
func (t *Tracer) Elementwise(op opcode.Op, a, b Value) Value {
	switch {
	case !a.IsArray() && !b.IsArray():
		return FromScalar(t.Apply(op, a.Scalar(), b.Scalar()))
	case !a.IsArray():
		x := a.Scalar()
		return Value{shape: b.Shape(), elems: slices2.Map(b.elems, func(y Scalar) Scalar { return t.Apply(op, x, y) })}
	case !b.IsArray():
		y := b.Scalar()
		return Value{shape: a.Shape(), elems: slices2.Map(a.elems, func(x Scalar) Scalar { return t.Apply(op, x, y) })}
	case a.shape.Equals(b.shape):
		out := make([]Scalar, len(a.elems))
		for i := range out {
			out[i] = t.Apply(op, a.elems[i], b.elems[i])
		}
		return Value{shape: a.Shape(), elems: out}
	default:
		failf(op, "shape mismatch %v and %v", a.shape, b.shape)
		return Value{}
	}
}

// Map applies a unary operation to every element.
func (t *Tracer) Map(op opcode.Op, a Value) Value {
	if op.InDegree() != 1 {
		failf(op, "not a unary operation")
	}
	return Value{shape: a.Shape(), elems: slices2.Map(a.elems, func(x Scalar) Scalar { return t.unary(op, x) })}
}

// Sum adds every element of a.
func (t *Tracer) Sum(a Value) Value {
	if a.Size() == 0 {
		return t.Lit(0)
	}
	acc := a.elems[0]
	for _, x := range a.elems[1:] {
		acc = t.Add(acc, x)
	}
	return FromScalar(acc)
}

func (t *Tracer) dot(xs, ys []Scalar) Scalar {
	if len(xs) == 0 {
		return t.Const(0)
	}
	acc := t.Mul(xs[0], ys[0])
	for i := 1; i < len(xs); i++ {
		acc = t.Add(acc, t.Mul(xs[i], ys[i]))
	}
	return acc
}

// Dot is the inner product of two vectors.
// If either operand has 2 dimensions Dot is MatMul, and if either is a scalar Dot is Mul.
func (t *Tracer) Dot(a, b Value) Value {
	switch {
	case !a.IsArray() || !b.IsArray():
		return t.Elementwise(opcode.MUL, a, b)
	case len(a.shape) == 1 && len(b.shape) == 1:
		if a.shape[0] != b.shape[0] {
			failf(opcode.MUL, "dot of shapes %v and %v", a.shape, b.shape)
		}
		return FromScalar(t.dot(a.elems, b.elems))
	default:
		return t.MatMul(a, b)
	}
}

// MatMul is the matrix product.
// a must have 2 dimensions, b may have 1 or 2.
func (t *Tracer) MatMul(a, b Value) Value {
	if len(a.shape) != 2 || len(b.shape) < 1 || len(b.shape) > 2 || a.shape[1] != b.shape[0] {
		failf(opcode.MUL, "matmul of shapes %v and %v", a.shape, b.shape)
	}
	m, k := a.shape[0], a.shape[1]
	if len(b.shape) == 1 {
		out := make([]Scalar, m)
		for i := range out {
			out[i] = t.dot(a.elems[i*k:(i+1)*k], b.elems)
		}
		return Value{shape: Shape{m}, elems: out}
	}
	n := b.shape[1]
	bt := b.T()
	out := make([]Scalar, 0, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out = append(out, t.dot(a.elems[i*k:(i+1)*k], bt.elems[j*k:(j+1)*k]))
		}
	}
	return Value{shape: Shape{m, n}, elems: out}
}

// Cross is the cross product of two 3-vectors.
func (t *Tracer) Cross(a, b Value) Value {
	if !a.shape.Equals(Shape{3}) || !b.shape.Equals(Shape{3}) {
		failf(opcode.MUL, "cross product of shapes %v and %v", a.shape, b.shape)
	}
	x, y := a.elems, b.elems
	return Value{shape: Shape{3}, elems: []Scalar{
		t.Sub(t.Mul(x[1], y[2]), t.Mul(x[2], y[1])),
		t.Sub(t.Mul(x[2], y[0]), t.Mul(x[0], y[2])),
		t.Sub(t.Mul(x[0], y[1]), t.Mul(x[1], y[0])),
	}}
}

// CompareValues is Compare for Values.
// Only scalars can be compared.
func (t *Tracer) CompareValues(op opcode.Op, a, b Value) Cond {
	if a.IsArray() || b.IsArray() {
		failf(op, "comparing arrays of shapes %v and %v, only scalars can be compared", a.shape, b.shape)
	}
	return t.Compare(op, a.Scalar(), b.Scalar())
}
