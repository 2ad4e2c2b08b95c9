package main

import (
	"errors"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mdcheck/cmd/mdcheck/commands"
	"git.home.luguber.info/inful/mdcheck/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("mdcheck"),
		kong.Description("Markdown link and image validation, with redirect fixing and reference-safe file moves."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	err := ctx.Run(&cli.Global)
	if errors.Is(err, commands.ErrValidationFailed) {
		// Deferred cleanup in the command has already run by this point.
		os.Exit(1)
	}
	ctx.FatalIfErrorf(err)
}
