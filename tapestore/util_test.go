package tapestore

import (
	"context"

	"tracetape.org/tracetape/internal/cadata"
	"tracetape.org/tracetape/tapevm"
)

func tapevmEval(p *tapevm.Program, inputs ...float64) ([]float64, error) {
	return tapevm.New(p).Eval(inputs)
}

// corruptGetter flips a bit in everything it returns
type corruptGetter struct {
	inner cadata.Getter
}

func (g corruptGetter) Get(ctx context.Context, id *cadata.ID, buf []byte) (int, error) {
	n, err := g.inner.Get(ctx, id, buf)
	if err != nil {
		return n, err
	}
	if n > 0 {
		buf[0] ^= 1
	}
	return n, nil
}
