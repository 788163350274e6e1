package tapecmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.brendoncarroll.net/star"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"tracetape.org/tracetape/examples"
	"tracetape.org/tracetape/opcode"
	"tracetape.org/tracetape/tape"
	"tracetape.org/tracetape/tapestore"
	"tracetape.org/tracetape/tapevm"
	"tracetape.org/tracetape/trace"
)

var fmtCmd = star.Command{
	Metadata: star.Metadata{
		Short: "reads a tape in either format and writes it in the chosen format",
	},
	Flags: []star.IParam{fileParam, formatParam, configParam},
	F: func(c star.Context) error {
		if _, _, err := setup(c); err != nil {
			return err
		}
		tp, err := readTape(fileParam.Load(c))
		if err != nil {
			return err
		}
		return tape.Write(c.StdOut, tp, formatParam.Load(c))
	},
}

var checkCmd = star.Command{
	Metadata: star.Metadata{
		Short: "validates a tape and prints statistics about it",
	},
	Flags: []star.IParam{fileParam, configParam},
	F: func(c star.Context) error {
		if _, _, err := setup(c); err != nil {
			return err
		}
		tp, err := readTape(fileParam.Load(c))
		if err != nil {
			return err
		}
		return WriteStats(c.StdOut, tp)
	},
}

var evalCmd = star.Command{
	Metadata: star.Metadata{
		Short: "evaluates a tape on input vectors read from stdin, one per line",
	},
	Flags: []star.IParam{fileParam, configParam},
	F: func(c star.Context) error {
		ctx, cfg, err := setup(c)
		if err != nil {
			return err
		}
		tp, err := readTape(fileParam.Load(c))
		if err != nil {
			return err
		}
		p, err := tapevm.NewProgram(tp)
		if err != nil {
			return err
		}
		return Eval(ctx, p, c.StdIn, c.StdOut, cfg.Parallelism)
	},
}

var exampleParam = star.Param[examples.Example]{
	Name: "example",
	Parse: func(x string) (examples.Example, error) {
		ex, ok := examples.Get(x)
		if !ok {
			return examples.Example{}, fmt.Errorf("no example %q. choose from %v", x, examples.Names())
		}
		return ex, nil
	},
}

var demoCmd = star.Command{
	Metadata: star.Metadata{
		Short: "compiles one of the built in examples, and writes the tape",
	},
	Flags: []star.IParam{formatParam, configParam},
	Pos:   []star.IParam{exampleParam},
	F: func(c star.Context) error {
		ctx, cfg, err := setup(c)
		if err != nil {
			return err
		}
		ex := exampleParam.Load(c)
		tp, err := trace.Compile(ctx, ex.Traced, ex.Args, cfg.TraceOptions()...)
		if err != nil {
			return err
		}
		return tape.Write(c.StdOut, tp, formatParam.Load(c))
	},
}

// readTape reads, validates and closes a tape file.
func readTape(f io.ReadCloser) (*tape.Tape, error) {
	defer f.Close()
	tp, err := tape.Read(f)
	if err != nil {
		return nil, err
	}
	if err := tp.Validate(); err != nil {
		return nil, err
	}
	return tp, nil
}

// Eval evaluates p on every vector in in, and writes the outputs to out.
func Eval(ctx context.Context, p *tapevm.Program, in io.Reader, out io.Writer, parallelism int) error {
	inputs, err := ReadVectors(in, p.NumInputs())
	if err != nil {
		return err
	}
	outputs, err := tapevm.EvalBatch(ctx, p, inputs, parallelism)
	if err != nil {
		return err
	}
	logctx.Info(ctx, "evaluated", zap.Int("vectors", len(inputs)), zap.Int("parallelism", parallelism))
	return WriteVectors(out, outputs)
}

// WriteStats writes a summary of tp.
func WriteStats(w io.Writer, tp *tape.Tape) error {
	id, err := tapestore.ID(tp)
	if err != nil {
		return err
	}
	st := tp.Stats()
	var sb strings.Builder
	fmt.Fprintf(&sb, "CID:          %v\n", id)
	fmt.Fprintf(&sb, "INPUTS:       %d\n", st.Inputs)
	fmt.Fprintf(&sb, "OUTPUTS:      %d\n", st.Outputs)
	fmt.Fprintf(&sb, "INSTRUCTIONS: %d\n", st.Instructions)
	fmt.Fprintf(&sb, "BRANCHES:     %d\n", st.Branches)
	fmt.Fprintf(&sb, "CONSTANTS:    %d\n", st.Constants)
	ops := make([]opcode.Op, 0, len(st.ByOp))
	for op := range st.ByOp {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	for _, op := range ops {
		fmt.Fprintf(&sb, "  %-5s %d\n", op, st.ByOp[op])
	}
	_, err = io.WriteString(w, sb.String())
	return err
}
