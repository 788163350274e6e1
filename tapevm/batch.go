package tapevm

import (
	"context"

	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EvalBatch evaluates p on each input vector, using up to parallelism goroutines.
// Each goroutine has its own VM.
func EvalBatch(ctx context.Context, p *Program, inputs [][]float64, parallelism int) ([][]float64, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	parallelism = min(parallelism, len(inputs))
	outputs := make([][]float64, len(inputs))
	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < parallelism; w++ {
		beg := w * len(inputs) / parallelism
		end := (w + 1) * len(inputs) / parallelism
		eg.Go(func() error {
			vm := New(p)
			for i := beg; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				out, err := vm.Eval(inputs[i])
				if err != nil {
					return err
				}
				outputs[i] = out
			}
			logctx.Debug(ctx, "evaluated batch", zap.Int("beg", beg), zap.Int("end", end), zap.Uint64("steps", vm.Steps()))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
