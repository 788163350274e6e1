package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"tracetape.org/tracetape"
	"tracetape.org/tracetape/internal/dbutil"
	"tracetape.org/tracetape/internal/stores"
)

func Context(t testing.TB) context.Context {
	ctx := context.Background()
	ctx, cf := context.WithCancel(ctx)
	t.Cleanup(cf)
	l, err := zap.NewDevelopment()
	require.NoError(t, err)
	ctx = logctx.NewContext(ctx, l)
	return ctx
}

func NewStore(t testing.TB) *stores.Mem {
	return stores.NewMem(tracetape.Hash, tracetape.MaxTapeBytes)
}

// TempFile creates a temp file, unlinks it, and then returns the file.
// TempFile adds f.Close for Cleanup
func TempFile(t testing.TB) *os.File {
	f, err := os.CreateTemp("", "")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	require.NoError(t, os.Remove(f.Name()))
	return f
}

// NewTestDB opens a database in a temporary directory, which is closed during Cleanup.
func NewTestDB(t testing.TB) *sqlx.DB {
	db, err := dbutil.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
