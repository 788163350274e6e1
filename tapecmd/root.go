// package tapecmd implements the tapec command line tool.
package tapecmd

import (
	"context"
	"os"

	"github.com/jmoiron/sqlx"
	"go.brendoncarroll.net/star"
	"go.brendoncarroll.net/stdctx/logctx"

	"tracetape.org/tracetape/tape"
	"tracetape.org/tracetape/tapestore"
)

func Root() star.Command {
	return root
}

var root = star.NewDir(star.Metadata{
	Short: "compile and store instruction tapes",
}, map[star.Symbol]star.Command{
	// tape files
	"fmt":   fmtCmd,
	"check": checkCmd,
	"eval":  evalCmd,
	"demo":  demoCmd,

	// database
	"put": putCmd,
	"get": getCmd,
	"ls":  lsCmd,
	"rm":  rmCmd,
	"run": runCmd,
	"gc":  gcCmd,
})

// setup loads the config, and returns a context with a logger.
func setup(c star.Context) (context.Context, Config, error) {
	cfg, err := LoadConfig(configParam.Load(c))
	if err != nil {
		return nil, Config{}, err
	}
	l, err := cfg.NewLogger()
	if err != nil {
		return nil, Config{}, err
	}
	return logctx.NewContext(c.Context, l), cfg, nil
}

var configParam = star.Param[string]{
	Name:    "config",
	Default: star.Ptr(""),
	Parse:   star.ParseString,
}

var DBParam = star.Param[*sqlx.DB]{
	Name:    "db",
	Default: star.Ptr("tapes.db"),
	Parse: func(x string) (*sqlx.DB, error) {
		db, err := tapestore.OpenDB(x)
		if err != nil {
			return nil, err
		}
		if err := tapestore.SetupDB(context.Background(), db); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	},
}

// fileParam opens a file for reading. "-" is stdin.
var fileParam = star.Param[*os.File]{
	Name:    "f",
	Default: star.Ptr("-"),
	Parse: func(x string) (*os.File, error) {
		if x == "-" {
			return os.Stdin, nil
		}
		return os.Open(x)
	},
}

var formatParam = star.Param[tape.Format]{
	Name:    "format",
	Default: star.Ptr("readable"),
	Parse:   tape.ParseFormat,
}

var nameParam = star.Param[string]{
	Name:    "name",
	Default: star.Ptr(""),
	Parse:   star.ParseString,
}

var refParam = star.Param[string]{
	Name:  "ref",
	Parse: star.ParseString,
}
