package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docpipe/cmd/docpipe/commands"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("docpipe"),
		kong.Description("Incremental, plugin driven content build pipeline."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default()}
	err := parser.Run(global, cli)
	os.Exit(derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err))
}
