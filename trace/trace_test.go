package trace

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"tracetape.org/tracetape/internal/testutil"
	"tracetape.org/tracetape/opcode"
	"tracetape.org/tracetape/tape"
	"tracetape.org/tracetape/tapevm"
)

func scalars(n int) []Shape {
	ret := make([]Shape, n)
	for i := range ret {
		ret[i] = ScalarShape()
	}
	return ret
}

func compile(t testing.TB, fn Func, args []Shape, opts ...Option) *tape.Tape {
	ctx := testutil.Context(t)
	tp, err := Compile(ctx, fn, args, opts...)
	require.NoError(t, err)
	require.NoError(t, tp.Validate())
	return tp
}

func eval(t testing.TB, tp *tape.Tape, inputs ...float64) []float64 {
	out, err := tapevm.Eval(tp, inputs)
	require.NoError(t, err)
	return out
}

func TestInputsAreConstZero(t *testing.T) {
	t.Parallel()
	tp := compile(t, func(tr *Tracer, args []Value) []Value {
		return args
	}, []Shape{ScalarShape(), {2}})
	require.Equal(t, 3, tp.NumInputs)
	require.Equal(t, 3, tp.NumOutputs)
	for _, in := range tp.Instructions[:tp.NumInputs] {
		require.Equal(t, opcode.CONST, in.Op)
		require.Equal(t, 0.0, in.Value)
	}
	require.Equal(t, []float64{1, 2, 3}, eval(t, tp, 1, 2, 3))
}

func TestCSE(t *testing.T) {
	t.Parallel()
	var ids []int
	tp := compile(t, func(tr *Tracer, args []Value) []Value {
		x, y := args[0].Scalar(), args[1].Scalar()
		a := tr.Mul(x, y)
		b := tr.Mul(x, y)
		c := tr.Mul(y, x)
		d := tr.Sub(x, y)
		e := tr.Sub(y, x)
		ids = []int{a.ID(), b.ID(), c.ID(), d.ID(), e.ID()}
		return []Value{FromScalar(tr.Add(a, tr.Sub(d, e)))}
	}, scalars(2))
	require.Equal(t, []int{2, 2, 2, 3, 4}, ids)
	// 2 inputs, MUL, 2 SUB, SUB, ADD, CONST 1, output MUL
	require.Equal(t, 9, tp.Len())
	require.Equal(t, []float64{6 + 2}, eval(t, tp, 3, 2))
}

func TestConstPooling(t *testing.T) {
	t.Parallel()
	var ids []int
	tp := compile(t, func(tr *Tracer, args []Value) []Value {
		a, b := tr.Const(2), tr.Const(2)
		z1, z2 := tr.Const(0), tr.Const(0)
		ids = []int{a.ID(), b.ID(), z1.ID(), z2.ID()}
		return []Value{FromScalar(tr.Add(a, z1))}
	}, nil)
	require.Equal(t, 0, tp.NumInputs)
	require.Equal(t, ids[0], ids[1])
	require.NotEqual(t, ids[2], ids[3])
	require.Equal(t, []float64{2}, eval(t, tp))
}

func TestScopedCSE(t *testing.T) {
	t.Parallel()
	tp := compile(t, func(tr *Tracer, args []Value) []Value {
		x, y := args[0].Scalar(), args[1].Scalar()
		before := tr.Add(x, y)
		var a Scalar
		if tr.Branch(tr.Lt(x, y)) {
			a = tr.Mul(tr.Add(x, y), tr.Mul(x, y))
		} else {
			a = tr.Sub(tr.Add(y, x), tr.Mul(x, y))
		}
		return []Value{FromScalar(tr.Add(before, a))}
	}, scalars(2))

	want := []tape.Instruction{
		{BlockEnd: -1, Operand1: -1, Operand2: -1, Op: opcode.CONST},
		{BlockEnd: -1, Operand1: -1, Operand2: -1, Op: opcode.CONST},
		{BlockEnd: -1, Operand1: 0, Operand2: 1, Op: opcode.ADD},
		{BlockEnd: 9, Operand1: 0, Operand2: 1, Op: opcode.IFLT},
		{BlockEnd: -1, Operand1: 0, Operand2: 1, Op: opcode.MUL},
		{BlockEnd: -1, Operand1: 2, Operand2: 4, Op: opcode.MUL},
		{BlockEnd: -1, Operand1: 2, Operand2: 5, Op: opcode.ADD},
		{BlockEnd: -1, Operand1: -1, Operand2: -1, Op: opcode.CONST, Value: 1},
		{BlockEnd: -1, Operand1: 6, Operand2: 7, Op: opcode.MUL},
		// the sibling block cannot use anything computed in the true block.
		{BlockEnd: 15, Operand1: 0, Operand2: 1, Op: opcode.IFGE},
		{BlockEnd: -1, Operand1: 0, Operand2: 1, Op: opcode.MUL},
		{BlockEnd: -1, Operand1: 2, Operand2: 10, Op: opcode.SUB},
		{BlockEnd: -1, Operand1: 2, Operand2: 11, Op: opcode.ADD},
		{BlockEnd: -1, Operand1: -1, Operand2: -1, Op: opcode.CONST, Value: 1},
		{BlockEnd: -1, Operand1: 12, Operand2: 13, Op: opcode.MUL},
	}
	require.Equal(t, want, tp.Instructions)
	require.Equal(t, []float64{1 + 2 + 3*2}, eval(t, tp, 1, 2))
	require.Equal(t, []float64{2 + 1 + 3 - 2}, eval(t, tp, 2, 1))
}

func sequentialIfs(tr *Tracer, args []Value) []Value {
	acc := tr.Const(1)
	for _, x := range args[0].Elems() {
		if tr.Branch(tr.Gt(x, tr.Const(0))) {
			acc = tr.Add(acc, x)
		} else {
			acc = tr.Sub(acc, x)
		}
	}
	return []Value{FromScalar(acc)}
}

func TestBranchCoverage(t *testing.T) {
	t.Parallel()
	for k := 0; k <= 5; k++ {
		tp := compile(t, sequentialIfs, []Shape{{k}})
		require.Len(t, tp.Branches(), 2*((1<<k)-1))
		require.Equal(t, k, tp.NumInputs)
		require.Equal(t, 1, tp.NumOutputs)

		for mask := 0; mask < 1<<k; mask++ {
			xs := make([]float64, k)
			want := 1.0
			for i := range xs {
				xs[i] = float64(i+1) * 0.5
				if mask&(1<<i) == 0 {
					xs[i] = -xs[i]
				}
				want += math.Abs(xs[i])
			}
			require.Equal(t, []float64{want}, eval(t, tp, xs...), "k=%d mask=%b", k, mask)
		}
	}
}

func TestNestedBranches(t *testing.T) {
	t.Parallel()
	// sign(x) * sign(y), with 0 for either being 0
	tp := compile(t, func(tr *Tracer, args []Value) []Value {
		x, y := args[0].Scalar(), args[1].Scalar()
		zero := tr.Const(0)
		var ret Scalar
		if tr.Branch(tr.Eq(x, zero)) {
			ret = tr.Const(0)
		} else if tr.Branch(tr.Eq(y, zero)) {
			ret = tr.Const(0)
		} else {
			if tr.Branch(tr.Gt(tr.Mul(x, y), zero)) {
				ret = tr.Const(1)
			} else {
				ret = tr.Const(-1)
			}
		}
		return []Value{FromScalar(ret)}
	}, scalars(2))
	require.Len(t, tp.Branches(), 6)

	for _, tc := range [][3]float64{
		{0, 1, 0},
		{1, 0, 0},
		{2, 3, 1},
		{-2, 3, -1},
		{-2, -3, 1},
		{2, -3, -1},
	} {
		require.Equal(t, []float64{tc[2]}, eval(t, tp, tc[0], tc[1]))
	}
}

func TestOutputsLastOnEveryPath(t *testing.T) {
	t.Parallel()
	// returning an input directly must still produce an output instruction on each path.
	tp := compile(t, func(tr *Tracer, args []Value) []Value {
		x, y := args[0].Scalar(), args[1].Scalar()
		if tr.Branch(tr.Lt(x, y)) {
			return []Value{FromScalar(x), FromScalar(x)}
		}
		return []Value{FromScalar(y), FromScalar(x)}
	}, scalars(2))
	require.Equal(t, []float64{1, 1}, eval(t, tp, 1, 2))
	require.Equal(t, []float64{1, 2}, eval(t, tp, 2, 1))
}

func TestValues(t *testing.T) {
	t.Parallel()
	tp := compile(t, func(tr *Tracer, args []Value) []Value {
		a, b, m := args[0], args[1], args[2]
		return []Value{
			tr.Dot(a, b),
			tr.Cross(a, b),
			tr.MatMul(m, a),
			tr.Sum(tr.Elementwise(opcode.ADD, a, tr.Lit(1))),
			tr.Map(opcode.NEG, b),
			tr.Dot(m.At(1), b),
			tr.Sum(m.Reshape(Shape{6}).Slice(2, 4)),
			tr.MatMul(m.T().T(), m.T()),
		}
	}, []Shape{{3}, {3}, {2, 3}})
	require.Equal(t, 12, tp.NumInputs)
	require.Equal(t, 1+3+2+1+3+1+1+4, tp.NumOutputs)

	out := eval(t, tp,
		1, 2, 3,
		4, 5, 6,
		1, 0, 2,
		0, 1, -1,
	)
	require.Equal(t, []float64{
		32,
		-3, 6, -3,
		7, -1,
		9,
		-4, -5, -6,
		-1,
		2,
		5, -2,
		-2, 2,
	}, out)
}

func TestErrors(t *testing.T) {
	t.Parallel()
	type testCase struct {
		Name  string
		Fn    Func
		Args  []Shape
		Opts  []Option
		Check func(t *testing.T, err error)
	}
	isTraceError := func(t *testing.T, err error) {
		require.ErrorAs(t, err, &TraceError{})
	}
	isUnresolved := func(t *testing.T, err error) {
		require.ErrorAs(t, err, &UnresolvedBranchError{})
	}
	tcs := []testCase{
		{
			Name: "CompareArrays",
			Fn: func(tr *Tracer, args []Value) []Value {
				tr.Branch(tr.CompareValues(opcode.IFLT, args[0], args[1]))
				return args
			},
			Args:  []Shape{{2}, {2}},
			Check: isTraceError,
		},
		{
			Name: "ScalarOfArray",
			Fn: func(tr *Tracer, args []Value) []Value {
				return []Value{FromScalar(tr.Neg(args[0].Scalar()))}
			},
			Args:  []Shape{{2}},
			Check: isTraceError,
		},
		{
			Name: "ShapeMismatch",
			Fn: func(tr *Tracer, args []Value) []Value {
				return []Value{tr.Elementwise(opcode.ADD, args[0], args[1])}
			},
			Args:  []Shape{{2}, {3}},
			Check: isTraceError,
		},
		{
			Name: "ZeroScalar",
			Fn: func(tr *Tracer, args []Value) []Value {
				return []Value{FromScalar(tr.Add(args[0].Scalar(), Scalar{}))}
			},
			Args:  scalars(1),
			Check: isTraceError,
		},
		{
			Name: "ZeroValue",
			Fn: func(tr *Tracer, args []Value) []Value {
				return []Value{{}}
			},
			Args:  scalars(1),
			Check: isTraceError,
		},
		{
			Name: "BranchIsNotArithmetic",
			Fn: func(tr *Tracer, args []Value) []Value {
				x := args[0].Scalar()
				return []Value{FromScalar(tr.Apply(opcode.IFLT, x, x))}
			},
			Args:  scalars(1),
			Check: isTraceError,
		},
		{
			Name: "NegativeDimension",
			Fn: func(tr *Tracer, args []Value) []Value {
				return args
			},
			Args:  []Shape{{-1}},
			Check: isTraceError,
		},
		{
			Name: "OutputCount",
			Fn: func(tr *Tracer, args []Value) []Value {
				x := args[0].Scalar()
				if tr.Branch(tr.Gt(x, tr.Const(1))) {
					return []Value{FromScalar(x)}
				}
				return []Value{FromScalar(x), FromScalar(x)}
			},
			Args:  scalars(1),
			Check: isTraceError,
		},
		{
			Name:  "BranchDepth",
			Fn:    sequentialIfs,
			Args:  []Shape{{3}},
			Opts:  []Option{WithMaxDepth(2)},
			Check: func(t *testing.T, err error) { require.Equal(t, LimitError{Limit: "branch depth", Max: 2}, err) },
		},
		{
			Name:  "Passes",
			Fn:    sequentialIfs,
			Args:  []Shape{{2}},
			Opts:  []Option{WithMaxPasses(2)},
			Check: func(t *testing.T, err error) { require.Equal(t, LimitError{Limit: "passes", Max: 2}, err) },
		},
		{
			Name:  "Nondeterministic",
			Fn:    nondeterministic(),
			Args:  scalars(2),
			Check: isUnresolved,
		},
		{
			Name:  "BranchDisappears",
			Fn:    disappearingBranch(),
			Args:  scalars(2),
			Check: isUnresolved,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			ctx := testutil.Context(t)
			tp, err := Compile(ctx, tc.Fn, tc.Args, tc.Opts...)
			require.Error(t, err)
			require.Nil(t, tp)
			tc.Check(t, err)
		})
	}
}

// nondeterministic compares differently on every call.
func nondeterministic() Func {
	var calls int
	return func(tr *Tracer, args []Value) []Value {
		calls++
		x, y := args[0].Scalar(), args[1].Scalar()
		c := tr.Lt(x, y)
		if calls > 1 {
			c = tr.Gt(x, y)
		}
		if tr.Branch(c) {
			return []Value{FromScalar(x)}
		}
		return []Value{FromScalar(y)}
	}
}

// disappearingBranch only branches on the first call.
func disappearingBranch() Func {
	var calls int
	return func(tr *Tracer, args []Value) []Value {
		calls++
		x, y := args[0].Scalar(), args[1].Scalar()
		if calls == 1 && tr.Branch(tr.Lt(x, y)) {
			return []Value{FromScalar(x)}
		}
		return []Value{FromScalar(y)}
	}
}

func TestUnresolvedBranchPoint(t *testing.T) {
	t.Parallel()
	for name, fn := range map[string]Func{
		"ComparisonChanges": nondeterministic(),
		"BranchDisappears":  disappearingBranch(),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Compile(testutil.Context(t), fn, scalars(2))
			var ube UnresolvedBranchError
			require.ErrorAs(t, err, &ube)
			// the only branch point is the guard at instruction 2, right after the inputs.
			require.Equal(t, 0, ube.Point)
			require.Equal(t, []int{2}, ube.IDs)
			require.Contains(t, err.Error(), "branch point 0 (branches [2])")
		})
	}
}

func TestDepth(t *testing.T) {
	t.Parallel()
	var depths [][]int
	fn := func(tr *Tracer, args []Value) []Value {
		x, y := args[0].Scalar(), args[1].Scalar()
		ds := []int{tr.Depth()}
		out := x
		if tr.Branch(tr.Lt(x, y)) {
			out = tr.Add(out, y)
		}
		ds = append(ds, tr.Depth())
		if tr.Branch(tr.Gt(x, y)) {
			out = tr.Mul(out, y)
		}
		ds = append(ds, tr.Depth())
		depths = append(depths, ds)
		return []Value{FromScalar(out)}
	}
	_, err := Compile(testutil.Context(t), fn, scalars(2))
	require.NoError(t, err)
	// sequential branch points count, on every pass.
	require.Len(t, depths, 4)
	for _, ds := range depths {
		require.Equal(t, []int{0, 1, 2}, ds)
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()
	ctx, cf := context.WithCancel(testutil.Context(t))
	cf()
	_, err := Compile(ctx, sequentialIfs, []Shape{{2}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPanicPassesThrough(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	require.PanicsWithValue(t, "boom", func() {
		Compile(ctx, func(tr *Tracer, args []Value) []Value {
			panic("boom")
		}, nil)
	})
}

func TestScopeStack(t *testing.T) {
	t.Parallel()
	s := newScopeStack()
	k := exprKey{a: 0, op: opcode.ADD, b: 1}
	s.putExpr(k, 2)
	s.push()
	s.putConst(1.5, 3)
	id, ok := s.lookupExpr(k)
	require.True(t, ok)
	require.Equal(t, 2, id)
	_, ok = s.lookupConst(1.5)
	require.True(t, ok)

	s.reset()
	_, ok = s.lookupConst(1.5)
	require.False(t, ok)
	_, ok = s.lookupExpr(k)
	require.True(t, ok)

	s.unwind()
	require.Equal(t, 0, s.depth())
	require.Panics(t, s.pop)
}
