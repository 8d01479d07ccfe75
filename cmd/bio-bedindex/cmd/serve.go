package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bedindex/bedindex/server"
	"github.com/rs/cors"
	"v.io/x/lib/cmdline"
)

type serveFlags struct {
	query       queryFlags
	port        int
	maxRecords  int
	corsOrigins string
}

func newCmdServe() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "serve",
		Short:    "Answer containment queries over HTTP",
		ArgsName: "bedpath",
		Long: `
Serve loads the index of the BED file and answers

  GET /records/<chr>?start=S&end=E   (0-based, half-open; both optional)
  GET /records?region=chr:first-last (1-based, closed)
  GET /chromosomes

with JSON.`,
	}
	var f serveFlags
	f.query.register(&cmd.Flags)
	cmd.Flags.IntVar(&f.port, "port", 8080, "HTTP service port")
	cmd.Flags.IntVar(&f.maxRecords, "max-records", server.DefaultOpts.MaxRecords, "Maximum number of records returned by one query; 0 for no limit")
	cmd.Flags.StringVar(&f.corsOrigins, "cors-origins", "", `Comma-separated list of origins allowed to query from a browser,
for example a genome browser page. "*" allows any origin.`)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("serve takes one bedpath argument, but got %v", argv)
		}
		return runServe(vcontext.Background(), f, argv[0])
	})
	return cmd
}

func newServer(ctx context.Context, f serveFlags, bedPath string) (http.Handler, *session, error) {
	s, err := openSession(ctx, bedPath, f.query)
	if err != nil {
		return nil, nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	var handler http.Handler = server.NewRouter(s.idx, s.store, server.Opts{MaxRecords: f.maxRecords})
	if f.corsOrigins != "" {
		handler = cors.New(cors.Options{
			AllowedOrigins: strings.Split(f.corsOrigins, ","),
			AllowedMethods: []string{http.MethodGet},
		}).Handler(handler)
	}
	return handler, s, nil
}

func runServe(ctx context.Context, f serveFlags, bedPath string) error {
	handler, s, err := newServer(ctx, f, bedPath)
	if err != nil {
		return err
	}
	log.Printf("serving index %s of %s (%d record(s)) on port %d", s.idx.ID(), bedPath, s.idx.NumRecords(), f.port)
	e := errors.Once{}
	e.Set(http.ListenAndServe(fmt.Sprintf(":%d", f.port), handler))
	e.Set(s.close(ctx))
	return e.Err()
}
