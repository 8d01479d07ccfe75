package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bedindex/interval"
	"v.io/x/lib/cmdline"
)

func newCmdFind() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "find",
		Short:    "Print the BED records lying inside the given regions",
		ArgsName: "bedpath region...",
		Long: `
Find prints, for each region, the records whose interval lies entirely inside
it, one per line: ordinal, chromosome, start, end, then the remaining fields of
the record. Coordinates are printed 0-based, half-open.

A region is either 'chr:first-last', 1-based and closed as in samtools, or
'chr' for the whole chromosome.`,
	}
	var f queryFlags
	f.register(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 2 {
			return fmt.Errorf("find takes bedpath and at least one region, but got %v", argv)
		}
		return runFind(vcontext.Background(), env.Stdout, f, argv[0], argv[1:])
	})
	return cmd
}

func runFind(ctx context.Context, out io.Writer, f queryFlags, bedPath string, regionStrs []string) (err error) {
	regions := make([]interval.Region, len(regionStrs))
	for i, s := range regionStrs {
		if regions[i], err = interval.ParseRegionString(s); err != nil {
			return err
		}
	}
	s, err := openSession(ctx, bedPath, f)
	if err != nil {
		return err
	}
	e := errors.Once{}
	defer func() {
		e.Set(s.close(ctx))
		err = e.Err()
	}()

	w := tsv.NewWriter(out)
	for _, r := range regions {
		for _, ordinal := range s.idx.FindRegion(r) {
			rec, fetchErr := s.store.Fetch(ctx, ordinal)
			if fetchErr != nil {
				e.Set(fetchErr)
				return
			}
			w.WriteUint32(uint32(ordinal))
			w.WriteString(rec.Chrom)
			w.WriteUint32(uint32(rec.Start))
			w.WriteUint32(uint32(rec.End))
			for _, field := range rec.Extra {
				w.WriteString(field)
			}
			if lineErr := w.EndLine(); lineErr != nil {
				e.Set(lineErr)
				return
			}
		}
	}
	e.Set(w.Flush())
	return
}
