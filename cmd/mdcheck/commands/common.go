// Package commands defines the mdcheck CLI surface.
package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mdcheck/internal/config"
	"git.home.luguber.info/inful/mdcheck/internal/report"
)

// Global holds flags shared by all commands.
type Global struct {
	Config  string `short:"c" help:"Configuration file path (discovered by walking up the directory tree when unset)"`
	Verbose bool   `short:"v" help:"Enable verbose output"`
	Quiet   bool   `short:"q" help:"Suppress non-essential output"`
	NoColor bool   `help:"Disable colorized output"`
}

// CLI is the root command definition.
type CLI struct {
	Global
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Check    CheckCmd    `cmd:"" help:"Check markdown files for dead links and images"`
	Refactor RefactorCmd `cmd:"" help:"Refactor markdown files while keeping references intact"`
}

// AfterApply runs after flag parsing; sets up logging and loads .env.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	if c.Quiet && !c.Verbose {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	config.LoadDotEnv()
	return nil
}

// useColor resolves the effective color setting for terminal output.
func (g *Global) useColor() bool {
	return !g.NoColor && report.IsColorSupported()
}

// resolveOptions loads configuration with the standard precedence:
// defaults, then the discovered (or explicitly given) config file, then
// environment, with CLI flags applied by the caller on top.
func resolveOptions(g *Global) (config.Options, error) {
	path := g.Config
	if path == "" {
		path = config.FindConfigFile(".")
	}
	return config.Load(path)
}
