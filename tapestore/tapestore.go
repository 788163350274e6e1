// package tapestore stores tapes by content ID, and gives them names.
//
// Tapes are stored in the compact format, and identified by the hash of that encoding.
package tapestore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"tracetape.org/tracetape"
	"tracetape.org/tracetape/internal/cadata"
	"tracetape.org/tracetape/internal/stores"
	"tracetape.org/tracetape/tape"
)

// Put encodes tp and posts it to dst.
func Put(ctx context.Context, dst cadata.Poster, tp *tape.Tape) (tracetape.CID, error) {
	if err := tp.Validate(); err != nil {
		return tracetape.CID{}, err
	}
	data := tape.Marshal(tp, tape.Compact)
	id, err := dst.Post(ctx, data)
	if err != nil {
		return tracetape.CID{}, err
	}
	logctx.Debug(ctx, "put tape", zap.Stringer("cid", id), zap.Int("size", len(data)))
	return id, nil
}

// ID returns the CID that tp would be stored under.
func ID(tp *tape.Tape) (tracetape.CID, error) {
	return Put(context.Background(), stores.NewTotal(tracetape.Hash, tracetape.MaxTapeBytes), tp)
}

// Get retrieves the tape with the given id from src.
// The data is checked against id, and the tape is validated.
func Get(ctx context.Context, src cadata.Getter, id tracetape.CID) (*tape.Tape, error) {
	data, err := getBytes(ctx, src, id)
	if err != nil {
		return nil, err
	}
	if err := cadata.Check(tracetape.Hash, &id, data); err != nil {
		return nil, err
	}
	tp, err := tape.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("tapestore: decoding %v: %w", id, err)
	}
	if err := tp.Validate(); err != nil {
		return nil, fmt.Errorf("tapestore: %v: %w", id, err)
	}
	return tp, nil
}

// getBytes reads a blob, growing the buffer until it fits.
func getBytes(ctx context.Context, src cadata.Getter, id tracetape.CID) ([]byte, error) {
	size := 1 << 16
	for {
		buf := make([]byte, size)
		n, err := src.Get(ctx, &id, buf)
		if err == nil {
			return buf[:n], nil
		}
		if !errors.Is(err, io.ErrShortBuffer) || size >= tracetape.MaxTapeBytes {
			return nil, err
		}
		size = min(size*4, tracetape.MaxTapeBytes)
	}
}
