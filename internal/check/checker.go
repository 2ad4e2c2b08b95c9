package check

import (
	"context"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/mdcheck/internal/config"
	"git.home.luguber.info/inful/mdcheck/internal/markdown"
)

// Checker drives extraction, local resolution and external checking for a
// set of candidate files, merging everything into one ordered Report.
type Checker struct {
	opts     config.Options
	resolver *LocalResolver
	external *ExternalChecker
}

// NewChecker creates a checker for one run. root anchors absolute local
// targets; cache may be nil.
func NewChecker(opts config.Options, root string, cache ResultCache) *Checker {
	return &Checker{
		opts:     opts,
		resolver: NewLocalResolver(root),
		external: NewExternalChecker(opts.Timeout, opts.EffectiveWorkers(), cache),
	}
}

// CheckFiles validates every reference in the candidate files. The report
// order matches input file order, then reference order within a file,
// regardless of completion order of concurrent external checks.
func (c *Checker) CheckFiles(ctx context.Context, files []string) (*Report, error) {
	report := NewReport()
	report.Files = len(files)

	// Index of pending external results into report.Results, keyed by
	// normalized target. Dedup is keyed on the normalized target so N
	// references to one URL trigger one network call.
	pending := make(map[string][]int)
	var targets []string

	for _, file := range files {
		src, err := os.ReadFile(file) // #nosec G304 -- file comes from discovery
		if err != nil {
			slog.Warn("Skipping unreadable file", "path", file, "error", err)
			continue
		}

		refs := markdown.ExtractReferences(src, file)
		usages := markdown.UndefinedLabelUsages(src, file)

		// Merge extracted references and dead label usages by source
		// position so the report stays in document order.
		ri, ui := 0, 0
		for ri < len(refs) || ui < len(usages) {
			if ui == len(usages) || (ri < len(refs) && refs[ri].Start <= usages[ui].Start) {
				ref := refs[ri]
				ri++
				if !c.wantKind(ref.Kind) {
					continue
				}

				if IsExternal(ref.Target) {
					res := ValidationResult{Reference: ref, Status: StatusUnchecked}
					report.Results = append(report.Results, res)
					if c.opts.CheckExternal {
						key := NormalizeTarget(ref.FullTarget())
						if _, seen := pending[key]; !seen {
							targets = append(targets, key)
						}
						pending[key] = append(pending[key], len(report.Results)-1)
					}
					continue
				}

				if !c.opts.CheckLocal {
					report.Results = append(report.Results, ValidationResult{Reference: ref, Status: StatusUnchecked})
					continue
				}
				report.Results = append(report.Results, c.resolver.Resolve(ref))
				continue
			}

			usage := usages[ui]
			ui++
			if !c.wantKind(usage.Kind) {
				continue
			}
			report.Results = append(report.Results, ValidationResult{
				Reference: usage.Reference,
				Status:    StatusBroken,
				Detail:    "undefined reference label: " + usage.Label,
			})
		}
	}

	if len(targets) > 0 {
		slog.Debug("Checking external targets", "distinct", len(targets), "workers", c.opts.EffectiveWorkers())
		outcomes := c.external.CheckAll(ctx, targets)

		// Broadcast each outcome to every referencing result.
		for key, indices := range pending {
			outcome, ok := outcomes[key]
			if !ok {
				continue
			}
			for _, i := range indices {
				res := &report.Results[i]
				res.Status = outcome.Status
				res.Detail = outcome.Detail
				if outcome.Status == StatusRedirected {
					res.FinalTarget = outcome.FinalTarget
					// The fragment never travels over the wire; re-attach it.
					if anchor := res.Reference.Anchor; anchor != "" {
						res.FinalTarget += "#" + anchor
					}
				}
			}
		}
	}

	return report, nil
}

func (c *Checker) wantKind(kind markdown.Kind) bool {
	switch kind {
	case markdown.KindImage:
		return c.opts.CheckImages
	default:
		return c.opts.CheckLinks
	}
}
