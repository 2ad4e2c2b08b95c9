package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/mdcheck/internal/cache"
	"git.home.luguber.info/inful/mdcheck/internal/check"
	"git.home.luguber.info/inful/mdcheck/internal/config"
	"git.home.luguber.info/inful/mdcheck/internal/discover"
	"git.home.luguber.info/inful/mdcheck/internal/notify"
	"git.home.luguber.info/inful/mdcheck/internal/report"
	"git.home.luguber.info/inful/mdcheck/internal/watch"
)

// ErrValidationFailed signals that the run found broken or errored
// references. main maps it to exit status 1 after all cleanup has run.
var ErrValidationFailed = errors.New("validation found invalid references")

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Path string `arg:"" optional:"" help:"Markdown file or directory to check (defaults to configured paths or the current directory)"`

	Timeout         time.Duration `short:"t" help:"Request timeout for external checks"`
	Output          string        `short:"o" help:"Write the JSON report to this file"`
	CheckExternal   *bool         `negatable:"" help:"Check external links/images with HTTP requests"`
	CheckLocal      *bool         `negatable:"" help:"Check that local file links/images exist"`
	CheckLinks      *bool         `negatable:"" help:"Validate links"`
	CheckImages     *bool         `negatable:"" help:"Validate images"`
	FixRedirects    bool          `help:"Rewrite references with permanent redirects to their final URL"`
	FollowGitignore *bool         `negatable:"" help:"Respect .gitignore patterns when scanning directories"`
	Include         string        `short:"i" help:"File pattern to include when searching for references"`
	Exclude         string        `short:"e" help:"File pattern to exclude when searching for references"`
	Parallel        *bool         `negatable:"" help:"Enable parallel processing for external URL checks"`
	Fail            *bool         `negatable:"" help:"Exit with status 1 if invalid links/images are found"`
	Workers         int           `short:"w" help:"Number of workers for parallel processing (defaults to CPU count)"`
	Watch           bool          `help:"Watch for changes and re-run validation"`
}

// Run executes the check command.
func (cc *CheckCmd) Run(g *Global) error {
	opts, err := resolveOptions(g)
	if err != nil {
		return err
	}
	cc.applyOverrides(&opts)

	if err := opts.Validate(); err != nil {
		return err
	}

	roots := opts.Paths
	if cc.Path != "" {
		roots = []string{cc.Path}
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}

	var store *cache.Store
	if opts.Cache.Path != "" {
		store, err = cache.Open(opts.Cache.Path, opts.Cache.TTL, opts.Cache.FailureTTL)
		if err != nil {
			slog.Warn("URL cache unavailable", "path", opts.Cache.Path, "error", err)
			store = nil
		} else {
			defer func() { _ = store.Close() }()
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	invalid, err := cc.runOnce(ctx, g, opts, roots, store)
	if err != nil {
		return err
	}

	if cc.Watch {
		return watch.Run(ctx, roots, func(ctx context.Context) {
			if _, err := cc.runOnce(ctx, g, opts, roots, store); err != nil {
				slog.Error("Validation run failed", "error", err)
			}
		})
	}

	if invalid && opts.FailOnInvalid {
		return ErrValidationFailed
	}
	return nil
}

// runOnce performs one full validation pass over all roots and renders the
// combined report. Returns whether any reference was broken or errored.
func (cc *CheckCmd) runOnce(ctx context.Context, g *Global, opts config.Options, roots []string, store *cache.Store) (bool, error) {
	combined := check.NewReport()

	for _, root := range roots {
		files, err := discover.List(root, discover.Filter{
			IncludePattern:  opts.IncludePattern,
			ExcludePattern:  opts.ExcludePattern,
			FollowGitignore: opts.FollowGitignore,
		})
		if err != nil {
			return false, err
		}
		slog.Debug("Discovered candidate files", "root", root, "count", len(files))

		checker := check.NewChecker(opts, root, cacheOrNil(store))
		rep, err := checker.CheckFiles(ctx, files)
		if err != nil {
			return false, err
		}
		combined.Files += rep.Files
		combined.Results = append(combined.Results, rep.Results...)
	}

	formatter := &report.TextFormatter{Color: g.useColor(), Verbose: g.Verbose, Quiet: g.Quiet}
	if err := formatter.Format(os.Stdout, combined); err != nil {
		return false, err
	}

	if opts.Output != "" {
		if err := report.WriteFile(opts.Output, combined); err != nil {
			return false, fmt.Errorf("failed to write report: %w", err)
		}
		slog.Info("Report written", "path", opts.Output)
	}

	if opts.FixRedirects {
		fixes := check.PlanRedirectFixes(combined)
		applied, err := check.ApplyFixes(fixes)
		if err != nil {
			return false, err
		}
		if err := report.FormatFixes(os.Stdout, "Fixed redirects", applied); err != nil {
			return false, err
		}
	}

	if opts.Notify.URL != "" && combined.HasInvalid() {
		publisher, err := notify.NewPublisher(opts.Notify)
		if err != nil {
			slog.Warn("Broken link notification unavailable", "error", err)
		} else {
			publisher.PublishReport(ctx, combined)
			publisher.Close()
		}
	}

	return combined.HasInvalid(), nil
}

// applyOverrides layers explicitly-set CLI flags over the resolved options
// (CLI has the highest precedence).
func (cc *CheckCmd) applyOverrides(opts *config.Options) {
	if cc.Timeout > 0 {
		opts.Timeout = cc.Timeout
	}
	if cc.Output != "" {
		opts.Output = cc.Output
	}
	if cc.Include != "" {
		opts.IncludePattern = cc.Include
	}
	if cc.Exclude != "" {
		opts.ExcludePattern = cc.Exclude
	}
	if cc.Workers > 0 {
		opts.Workers = cc.Workers
	}
	if cc.FixRedirects {
		opts.FixRedirects = true
	}
	setIfSet(&opts.CheckExternal, cc.CheckExternal)
	setIfSet(&opts.CheckLocal, cc.CheckLocal)
	setIfSet(&opts.CheckLinks, cc.CheckLinks)
	setIfSet(&opts.CheckImages, cc.CheckImages)
	setIfSet(&opts.FollowGitignore, cc.FollowGitignore)
	setIfSet(&opts.Parallel, cc.Parallel)
	setIfSet(&opts.FailOnInvalid, cc.Fail)
}

func setIfSet(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func cacheOrNil(store *cache.Store) check.ResultCache {
	if store == nil {
		return nil
	}
	return store
}
