// package migrations applies schema changes to a database.
//
// A schema is built as a chain of States, each adding one statement to the previous.
// The number of statements applied to a database is kept in its user_version.
package migrations

import (
	"context"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"
)

// State is a database schema
type State struct {
	prev    *State
	stmt    string
	version int
}

// InitialState is the empty schema
func InitialState() *State {
	return &State{}
}

// ApplyStmt returns the State after running stmt on x.
func (x *State) ApplyStmt(stmt string) *State {
	return &State{prev: x, stmt: stmt, version: x.version + 1}
}

// Version is the number of statements needed to reach x from the InitialState.
func (x *State) Version() int {
	return x.version
}

// stmtsAfter returns the statements which take a database at version v to x.
func (x *State) stmtsAfter(v int) (ret []string) {
	for s := x; s.version > v; s = s.prev {
		ret = append(ret, s.stmt)
	}
	slices.Reverse(ret)
	return ret
}

// Migrate brings db to the desired State.
// It is an error if db has had more statements applied than desired.
func Migrate(ctx context.Context, db *sqlx.DB, desired *State) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var current int
	if err := tx.GetContext(ctx, &current, `PRAGMA user_version`); err != nil {
		return err
	}
	if current > desired.Version() {
		return fmt.Errorf("migrations: database is at version %d, which is newer than %d", current, desired.Version())
	}
	if current == desired.Version() {
		return nil
	}
	for i, stmt := range desired.stmtsAfter(current) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrations: applying statement %d: %w", current+i+1, err)
		}
	}
	// PRAGMA does not accept parameters
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, desired.Version())); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logctx.Info(ctx, "migrated database", zap.Int("from", current), zap.Int("to", desired.Version()))
	return nil
}
