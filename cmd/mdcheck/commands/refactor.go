package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/mdcheck/internal/discover"
	"git.home.luguber.info/inful/mdcheck/internal/refactor"
)

// RefactorCmd groups refactoring subcommands.
type RefactorCmd struct {
	Move RefactorMoveCmd `cmd:"" help:"Move a markdown file and update every reference to it"`
}

// RefactorMoveCmd implements 'refactor move OLD NEW'.
type RefactorMoveCmd struct {
	OldPath string `arg:"" help:"Current path of the file"`
	NewPath string `arg:"" help:"New path for the file"`

	Dir             string `short:"d" default:"." help:"Root directory to scan for references"`
	Include         string `short:"i" help:"File pattern to include when searching for references"`
	Exclude         string `short:"e" help:"File pattern to exclude when searching for references"`
	FollowGitignore *bool  `negatable:"" help:"Respect .gitignore patterns when scanning directories"`
	DryRun          bool   `help:"Show the planned rewrites without modifying anything"`
}

// Run executes the move.
func (rm *RefactorMoveCmd) Run(g *Global) error {
	opts, err := resolveOptions(g)
	if err != nil {
		return err
	}
	if rm.Include != "" {
		opts.IncludePattern = rm.Include
	}
	if rm.Exclude != "" {
		opts.ExcludePattern = rm.Exclude
	}
	if rm.FollowGitignore != nil {
		opts.FollowGitignore = *rm.FollowGitignore
	}

	if _, err := os.Stat(rm.OldPath); err != nil {
		return fmt.Errorf("source file does not exist: %s", rm.OldPath)
	}

	candidates, err := discover.List(rm.Dir, discover.Filter{
		IncludePattern:  opts.IncludePattern,
		ExcludePattern:  opts.ExcludePattern,
		FollowGitignore: opts.FollowGitignore,
	})
	if err != nil {
		return err
	}

	plan, err := refactor.PlanMove(rm.Dir, rm.OldPath, rm.NewPath, candidates)
	if err != nil {
		return err
	}

	if rm.DryRun {
		fmt.Printf("Would move %s -> %s\n", rm.OldPath, rm.NewPath)
		for _, rw := range plan.Rewrites {
			fmt.Printf("  %s:%d: %s -> %s\n", rw.File, rw.Line, rw.OldText, rw.NewText)
		}
		return nil
	}

	if err := refactor.Apply(plan); err != nil {
		return err
	}

	fmt.Printf("Moved %s -> %s (%d reference(s) updated)\n", rm.OldPath, rm.NewPath, len(plan.Rewrites))
	return nil
}
