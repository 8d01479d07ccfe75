package cmd

import (
	"context"
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bedindex/bedindex"
	"github.com/grailbio/bedindex/encoding/bed"
	"github.com/grailbio/bedindex/encoding/bed/sqlstore"
	"v.io/x/lib/cmdline"
)

type indexFlags struct {
	load           loadFlags
	keepDuplicates bool
	sqlitePath     string
}

func newCmdIndex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "index",
		Short:    "Build a persistent index for a BED file",
		ArgsName: "bedpath [indexpath]",
		Long: `
Index reads the BED file (optionally gzipped) and writes an index to indexpath,
by default bedpath` + bedindex.FileSuffix + `. The index records the fingerprint of the BED file;
queries refuse to use an index whose BED file changed since, unless -stale-ok is given.`,
	}
	var f indexFlags
	f.load.register(&cmd.Flags)
	cmd.Flags.BoolVar(&f.keepDuplicates, "keep-duplicates", false, "Keep every record of a duplicated interval. By default only the last one is indexed.")
	cmd.Flags.StringVar(&f.sqlitePath, "sqlite", "", "If set, also import the records into this SQLite database")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 1 || len(argv) > 2 {
			return fmt.Errorf("index takes bedpath and an optional indexpath, but got %v", argv)
		}
		indexPath := defaultIndexPath(argv[0])
		if len(argv) == 2 {
			indexPath = argv[1]
		}
		return runIndex(vcontext.Background(), f, argv[0], indexPath)
	})
	return cmd
}

func runIndex(ctx context.Context, f indexFlags, bedPath, indexPath string) error {
	opts, err := f.load.opts()
	if err != nil {
		return err
	}
	src, err := bed.LoadPath(ctx, bedPath, opts)
	if err != nil {
		return err
	}
	idx, err := bedindex.BuildSource(src, bedindex.Opts{KeepDuplicates: f.keepDuplicates})
	if err != nil {
		return err
	}
	if err := bedindex.WriteFile(ctx, indexPath, idx); err != nil {
		return err
	}
	if f.sqlitePath == "" {
		return nil
	}
	db, err := sqlstore.Open(f.sqlitePath)
	if err != nil {
		return err
	}
	store, err := sqlstore.New(db)
	if err == nil {
		err = store.Import(ctx, src.Records)
	}
	if e := db.Close(); e != nil && err == nil {
		err = e
	}
	return err
}
