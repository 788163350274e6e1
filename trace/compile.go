package trace

import (
	"context"
	"fmt"

	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"tracetape.org/tracetape/tape"
)

// Func is a function which can be traced.
// It must be deterministic and must not keep Scalars or Values between calls.
type Func func(t *Tracer, args []Value) []Value

// Compile traces fn into a tape.
//
// args gives the shape of each argument. The tape has one input for each element of each argument,
// and one output for each element of each returned Value.
//
// fn is called once, and then once more for every branch point, until both sides of every
// branch point have been recorded.
func Compile(ctx context.Context, fn Func, args []Shape, opts ...Option) (*tape.Tape, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	t := newTracer(cfg)
	defer t.scopes.unwind()

	inputs := make([]Value, len(args))
	for i, sh := range args {
		if err := sh.validate(); err != nil {
			return nil, err
		}
		elems := make([]Scalar, sh.Size())
		for j := range elems {
			elems[j] = t.input()
		}
		inputs[i] = Value{shape: Shape(append([]int{}, sh...)), elems: elems}
		if sh.IsScalar() {
			inputs[i].shape = nil
		}
	}
	t.tp.NumInputs = t.tp.Len()

	numOutputs, err := t.pass(fn, inputs)
	if err != nil {
		return nil, err
	}
	t.tp.NumOutputs = numOutputs
	passes := 1
	logctx.Debug(ctx, "trace pass", zap.Int("pass", passes), zap.Int("depth", len(t.outcomes)), zap.Int("len", t.tp.Len()))

	for len(t.outcomes) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if passes >= cfg.MaxPasses {
			return nil, LimitError{Limit: "passes", Max: cfg.MaxPasses}
		}
		// The innermost branch point has only been explored on its true side.
		// Close the true block, and run again taking the false side.
		t.reopened = t.pending[len(t.pending)-1]
		t.closeBlock()
		t.outcomes[len(t.outcomes)-1] = false

		n, err := t.pass(fn, inputs)
		passes++
		if err != nil {
			return nil, err
		}
		if n != numOutputs {
			return nil, TraceError{Msg: fmt.Sprintf("pass %d produced %d outputs, the first pass produced %d", passes, n, numOutputs)}
		}
		if len(t.pending) != len(t.outcomes) {
			// the pass never reached the branch point it was meant to take the false side of.
			return nil, UnresolvedBranchError{Point: len(t.outcomes) - 1, IDs: []int{t.reopened}}
		}
		logctx.Debug(ctx, "trace pass", zap.Int("pass", passes), zap.Int("depth", len(t.outcomes)), zap.Int("len", t.tp.Len()))

		// Close every branch point which has now been explored on both sides.
		for len(t.outcomes) > 0 && !t.outcomes[len(t.outcomes)-1] {
			t.closeBlock()
			t.outcomes = t.outcomes[:len(t.outcomes)-1]
			t.points = t.points[:len(t.points)-1]
			t.scopes.pop()
		}
	}
	if ids := t.unresolved(); len(ids) > 0 {
		return nil, UnresolvedBranchError{Point: -1, IDs: ids}
	}
	logctx.Info(ctx, "compiled tape",
		zap.Int("inputs", t.tp.NumInputs),
		zap.Int("outputs", t.tp.NumOutputs),
		zap.Int("instructions", t.tp.Len()),
		zap.Int("passes", passes),
	)
	return t.tp, nil
}

// pass runs fn once, and records its outputs.
func (t *Tracer) pass(fn Func, args []Value) (n int, retErr error) {
	t.cursor = 0
	defer func() {
		if r := recover(); r != nil {
			ab, ok := r.(abort)
			if !ok {
				panic(r)
			}
			retErr = ab.err
		}
	}()
	outs := fn(t, args)
	for i, out := range outs {
		if out.IsZero() {
			fail(TraceError{Msg: fmt.Sprintf("output %d is the zero Value", i)})
		}
		for _, x := range out.elems {
			t.output(x)
			n++
		}
	}
	return n, nil
}
