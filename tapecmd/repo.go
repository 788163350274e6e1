package tapecmd

import (
	"go.brendoncarroll.net/star"

	"tracetape.org/tracetape/tape"
	"tracetape.org/tracetape/tapestore"
)

func openRepo(c star.Context, cfg Config) *tapestore.Repo {
	return tapestore.NewRepo(DBParam.Load(c), cfg.CacheSize)
}

var putCmd = star.Command{
	Metadata: star.Metadata{
		Short: "stores a tape, and optionally names it",
	},
	Flags: []star.IParam{DBParam, fileParam, nameParam, configParam},
	F: func(c star.Context) error {
		ctx, cfg, err := setup(c)
		if err != nil {
			return err
		}
		tp, err := readTape(fileParam.Load(c))
		if err != nil {
			return err
		}
		id, err := openRepo(c, cfg).Put(ctx, nameParam.Load(c), tp)
		if err != nil {
			return err
		}
		c.Printf("%v\n", id)
		return nil
	},
}

var getCmd = star.Command{
	Metadata: star.Metadata{
		Short: "writes a stored tape, given its name or CID",
	},
	Flags: []star.IParam{DBParam, formatParam, configParam},
	Pos:   []star.IParam{refParam},
	F: func(c star.Context) error {
		ctx, cfg, err := setup(c)
		if err != nil {
			return err
		}
		tp, err := openRepo(c, cfg).Get(ctx, refParam.Load(c))
		if err != nil {
			return err
		}
		return tape.Write(c.StdOut, tp, formatParam.Load(c))
	},
}

var lsCmd = star.Command{
	Metadata: star.Metadata{
		Short: "lists the named tapes",
	},
	Flags: []star.IParam{DBParam, configParam},
	F: func(c star.Context) error {
		ctx, cfg, err := setup(c)
		if err != nil {
			return err
		}
		ents, err := openRepo(c, cfg).List(ctx)
		if err != nil {
			return err
		}
		c.Printf("%-20s %-44s %6s %6s %9s %s\n", "NAME", "CID", "IN", "OUT", "LEN", "CREATED")
		for _, ent := range ents {
			c.Printf("%-20s %-44v %6d %6d %9d %s\n", ent.Name, ent.ID, ent.NumInputs, ent.NumOutputs, ent.NumInstructions, ent.CreatedAt)
		}
		return nil
	},
}

var rmCmd = star.Command{
	Metadata: star.Metadata{
		Short: "removes a name. the tape is deleted by gc",
	},
	Flags: []star.IParam{DBParam, configParam},
	Pos:   []star.IParam{refParam},
	F: func(c star.Context) error {
		ctx, cfg, err := setup(c)
		if err != nil {
			return err
		}
		return openRepo(c, cfg).Delete(ctx, refParam.Load(c))
	},
}

var runCmd = star.Command{
	Metadata: star.Metadata{
		Short: "evaluates a stored tape on input vectors read from stdin, one per line",
	},
	Flags: []star.IParam{DBParam, configParam},
	Pos:   []star.IParam{refParam},
	F: func(c star.Context) error {
		ctx, cfg, err := setup(c)
		if err != nil {
			return err
		}
		p, err := openRepo(c, cfg).Program(ctx, refParam.Load(c))
		if err != nil {
			return err
		}
		return Eval(ctx, p, c.StdIn, c.StdOut, cfg.Parallelism)
	},
}

var gcCmd = star.Command{
	Metadata: star.Metadata{
		Short: "deletes tapes which do not have a name",
	},
	Flags: []star.IParam{DBParam, configParam},
	F: func(c star.Context) error {
		ctx, cfg, err := setup(c)
		if err != nil {
			return err
		}
		n, err := openRepo(c, cfg).GC(ctx)
		if err != nil {
			return err
		}
		c.Printf("deleted %d tapes\n", n)
		return nil
	},
}
