package cmd

import (
	"os"

	"github.com/grailbio/base/grail"
	"v.io/x/lib/cmdline"
)

// Run parses the command line and runs the selected subcommand.
func Run() {
	cmdline.HideGlobalFlagsExcept()
	root := &cmdline.Command{
		Name:     "bio-bedindex",
		Short:    "Containment queries over BED files",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdIndex(),
			newCmdFind(),
			newCmdServe(),
		},
	}
	shutdown := grail.Init()
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(root, env, os.Args[1:])
	shutdown()
	os.Exit(cmdline.ExitCode(err, env.Stderr))
}
