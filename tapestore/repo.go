package tapestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.brendoncarroll.net/tai64"
	"go.uber.org/zap"

	"tracetape.org/tracetape"
	"tracetape.org/tracetape/internal/cadata"
	"tracetape.org/tracetape/internal/dbutil"
	"tracetape.org/tracetape/internal/migrations"
	"tracetape.org/tracetape/internal/sqlstores"
	"tracetape.org/tracetape/tape"
	"tracetape.org/tracetape/tapevm"
)

func OpenDB(p string) (*sqlx.DB, error) {
	return dbutil.Open(p)
}

func SetupDB(ctx context.Context, db *sqlx.DB) error {
	return migrations.Migrate(ctx, db, currentSchema)
}

var currentSchema = func() *migrations.State {
	x := migrations.InitialState()
	x = sqlstores.Migration(x)
	x = x.ApplyStmt(`CREATE TABLE names (
		name TEXT NOT NULL,
		cid BLOB NOT NULL,
		num_inputs INTEGER NOT NULL,
		num_outputs INTEGER NOT NULL,
		num_instructions INTEGER NOT NULL,
		created_at TEXT NOT NULL,

		FOREIGN KEY(cid) REFERENCES blobs(id),
		PRIMARY KEY(name)
	) STRICT`)
	return x
}()

// Entry is a named tape.
type Entry struct {
	Name            string        `db:"name"`
	ID              tracetape.CID `db:"cid"`
	NumInputs       int           `db:"num_inputs"`
	NumOutputs      int           `db:"num_outputs"`
	NumInstructions int           `db:"num_instructions"`
	// CreatedAt is when the name was last set, as an external TAI64N label.
	CreatedAt string `db:"created_at"`
}

// Repo is a database of tapes and names for them.
type Repo struct {
	db    *sqlx.DB
	blobs *sqlstores.Store
	cache *Cache
}

// NewRepo creates a Repo on a database which has been set up with SetupDB.
// cacheSize is the number of decoded Programs to keep in memory.
func NewRepo(db *sqlx.DB, cacheSize int) *Repo {
	blobs := sqlstores.NewStore(db, tracetape.Hash, tracetape.MaxTapeBytes)
	return &Repo{
		db:    db,
		blobs: blobs,
		cache: NewCache(blobs, cacheSize),
	}
}

// Blobs returns the store holding encoded tapes.
func (r *Repo) Blobs() cadata.Store {
	return r.blobs
}

// Put stores tp, and if name is not empty, points name at it.
func (r *Repo) Put(ctx context.Context, name string, tp *tape.Tape) (tracetape.CID, error) {
	id, err := dbutil.DoTx1(ctx, r.db, func(tx *sqlx.Tx) (tracetape.CID, error) {
		id, err := Put(ctx, sqlstores.NewTxStore(tx, tracetape.Hash, tracetape.MaxTapeBytes), tp)
		if err != nil {
			return id, err
		}
		if name == "" {
			return id, nil
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO names (name, cid, num_inputs, num_outputs, num_instructions, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET
				cid = excluded.cid,
				num_inputs = excluded.num_inputs,
				num_outputs = excluded.num_outputs,
				num_instructions = excluded.num_instructions,
				created_at = excluded.created_at`,
			name, id[:], tp.NumInputs, tp.NumOutputs, tp.Len(), now())
		return id, err
	})
	if err != nil {
		return tracetape.CID{}, err
	}
	if name != "" {
		logctx.Info(ctx, "named tape", zap.String("name", name), zap.Stringer("cid", id))
	}
	return id, nil
}

// Resolve returns the CID for ref, which is either a name or a CID.
// Names take precedence.
func (r *Repo) Resolve(ctx context.Context, ref string) (tracetape.CID, error) {
	ent, err := r.Lookup(ctx, ref)
	if err == nil {
		return ent.ID, nil
	}
	if !errors.As(err, &ErrNameNotFound{}) {
		return tracetape.CID{}, err
	}
	if id, err := cadata.ParseID(ref); err == nil {
		return id, nil
	}
	return tracetape.CID{}, err
}

// Lookup returns the Entry for a name.
func (r *Repo) Lookup(ctx context.Context, name string) (*Entry, error) {
	return dbutil.DoTx1(ctx, r.db, func(tx *sqlx.Tx) (*Entry, error) {
		var ent Entry
		if err := tx.GetContext(ctx, &ent, `SELECT * FROM names WHERE name = ?`, name); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = ErrNameNotFound{Name: name}
			}
			return nil, err
		}
		return &ent, nil
	})
}

// Get returns the tape for ref.
func (r *Repo) Get(ctx context.Context, ref string) (*tape.Tape, error) {
	id, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return Get(ctx, r.blobs, id)
}

// Program returns an evaluable Program for ref.
func (r *Repo) Program(ctx context.Context, ref string) (*tapevm.Program, error) {
	id, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return r.cache.Program(ctx, id)
}

// List returns every named tape, ordered by name.
func (r *Repo) List(ctx context.Context) ([]Entry, error) {
	return dbutil.DoTx1(ctx, r.db, func(tx *sqlx.Tx) ([]Entry, error) {
		var ents []Entry
		err := tx.SelectContext(ctx, &ents, `SELECT * FROM names ORDER BY name`)
		return ents, err
	})
}

// Delete removes a name. The tape is kept until GC.
func (r *Repo) Delete(ctx context.Context, name string) error {
	return dbutil.DoTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM names WHERE name = ?`, name)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNameNotFound{Name: name}
		}
		return nil
	})
}

// GC deletes every tape which does not have a name, and returns the number deleted.
func (r *Repo) GC(ctx context.Context) (int64, error) {
	n, err := dbutil.DoTx1(ctx, r.db, func(tx *sqlx.Tx) (int64, error) {
		res, err := tx.ExecContext(ctx, `DELETE FROM blobs WHERE id NOT IN (
			SELECT cid FROM names
		)`)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
	if err != nil {
		return 0, err
	}
	logctx.Info(ctx, "collected tapes", zap.Int64("count", n))
	return n, nil
}

type ErrNameNotFound struct {
	Name string
}

func (e ErrNameNotFound) Error() string {
	return fmt.Sprintf("tapestore: no tape named %q", e.Name)
}

// now returns the current time as an external TAI64N label.
func now() string {
	ts := tai64.Now()
	return fmt.Sprintf("@%016x%08x", uint64(ts.Seconds), uint32(ts.Nanoseconds))
}
