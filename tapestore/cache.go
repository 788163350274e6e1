package tapestore

import (
	"context"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"tracetape.org/tracetape"
	"tracetape.org/tracetape/internal/cadata"
	"tracetape.org/tracetape/tapevm"
)

// Cache holds recently used Programs, so that repeated evaluations skip decoding.
type Cache struct {
	src cadata.Getter

	mu    sync.Mutex
	progs *simplelru.LRU[tracetape.CID, *tapevm.Program]
}

// NewCache creates a Cache holding up to size Programs, loaded from src.
func NewCache(src cadata.Getter, size int) *Cache {
	size = max(size, 1)
	progs, err := simplelru.NewLRU[tracetape.CID, *tapevm.Program](size, nil)
	if err != nil {
		panic(err)
	}
	return &Cache{src: src, progs: progs}
}

// Program returns the Program for the tape with the given id.
func (c *Cache) Program(ctx context.Context, id tracetape.CID) (*tapevm.Program, error) {
	c.mu.Lock()
	p, ok := c.progs.Get(id)
	c.mu.Unlock()
	if ok {
		return p, nil
	}
	logctx.Debug(ctx, "program cache miss", zap.Stringer("cid", id))
	tp, err := Get(ctx, c.src, id)
	if err != nil {
		return nil, err
	}
	p, err = tapevm.NewProgram(tp)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.progs.Add(id, p)
	c.mu.Unlock()
	return p, nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progs.Len()
}
