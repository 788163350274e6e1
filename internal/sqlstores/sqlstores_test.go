package sqlstores

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.brendoncarroll.net/state"
	"lukechampine.com/blake3"

	"tracetape.org/tracetape/internal/cadata"
	"tracetape.org/tracetape/internal/migrations"
	"tracetape.org/tracetape/internal/testutil"
)

func hash(x []byte) cadata.ID {
	return blake3.Sum256(x)
}

func newStore(t testing.TB) *Store {
	ctx := testutil.Context(t)
	db := testutil.NewTestDB(t)
	require.NoError(t, migrations.Migrate(ctx, db, Migration(migrations.InitialState())))
	return NewStore(db, hash, 1<<10)
}

func TestStore(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	s := newStore(t)

	id, err := s.Post(ctx, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, hash([]byte("hello")), id)
	// posting twice is not an error
	id2, err := s.Post(ctx, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, id, id2)

	buf := make([]byte, 64)
	n, err := s.Get(ctx, &id, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
	_, err = s.Get(ctx, &id, buf[:1])
	require.ErrorIs(t, err, io.ErrShortBuffer)

	yes, err := s.Exists(ctx, &id)
	require.NoError(t, err)
	require.True(t, yes)

	_, err = s.Post(ctx, make([]byte, 1<<11))
	require.ErrorIs(t, err, cadata.ErrTooLarge)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	require.NoError(t, s.Delete(ctx, &id))
	_, err = s.Get(ctx, &id, buf)
	require.True(t, cadata.IsNotFound(err))
	yes, err = s.Exists(ctx, &id)
	require.NoError(t, err)
	require.False(t, yes)
}

func TestList(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	s := newStore(t)
	want := map[cadata.ID]bool{}
	for _, x := range []string{"a", "b", "c", "d", "e"} {
		id, err := s.Post(ctx, []byte(x))
		require.NoError(t, err)
		want[id] = true
	}
	have := map[cadata.ID]bool{}
	var prev cadata.ID
	require.NoError(t, cadata.ForEach(ctx, s, state.TotalSpan[cadata.ID](), func(id cadata.ID) error {
		require.True(t, prev.Compare(id) < 0 || prev.IsZero())
		prev = id
		have[id] = true
		return nil
	}))
	require.Equal(t, want, have)
}
