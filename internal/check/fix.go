package check

import (
	"log/slog"
	"os"
	"sort"

	goerrors "errors"

	"git.home.luguber.info/inful/mdcheck/internal/errors"
	"git.home.luguber.info/inful/mdcheck/internal/fsutil"
	"git.home.luguber.info/inful/mdcheck/internal/markdown"
)

// Fix is a planned text replacement in a source file, produced for
// references flagged as permanent redirects.
type Fix struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	ColumnStart int    `json:"column_start"`
	ColumnEnd   int    `json:"column_end"`
	OldText     string `json:"old_text"`
	NewText     string `json:"new_text"`

	start int // byte offsets into the file
	end   int
}

// PlanRedirectFixes derives the edit plan from a report: one Fix per
// Redirected result. Planning is pure; nothing touches the filesystem.
func PlanRedirectFixes(report *Report) []Fix {
	var fixes []Fix
	for _, res := range report.Results {
		if res.Status != StatusRedirected || res.FinalTarget == "" {
			continue
		}
		ref := res.Reference
		fixes = append(fixes, Fix{
			File:        ref.File,
			Line:        ref.Line,
			ColumnStart: ref.ColumnStart,
			ColumnEnd:   ref.ColumnEnd,
			OldText:     ref.FullTarget(),
			NewText:     res.FinalTarget,
			start:       ref.Start,
			end:         ref.End,
		})
	}
	return fixes
}

// ApplyFixes rewrites source files in place. Edits are grouped per file
// and applied in a single descending-offset pass; each file is written
// atomically, so a failure never leaves a partially-edited file. A failing
// file aborts only its own edit pass; other files proceed.
func ApplyFixes(fixes []Fix) ([]Fix, error) {
	byFile := make(map[string][]Fix)
	var order []string
	for _, fix := range fixes {
		if _, seen := byFile[fix.File]; !seen {
			order = append(order, fix.File)
		}
		byFile[fix.File] = append(byFile[fix.File], fix)
	}
	sort.Strings(order)

	var applied []Fix
	var errs []error

	for _, file := range order {
		fileFixes := byFile[file]
		if err := rewriteFile(file, fileFixes); err != nil {
			errs = append(errs, err)
			continue
		}
		applied = append(applied, fileFixes...)
		slog.Info("Rewrote redirected references", "path", file, "edits", len(fileFixes))
	}

	return applied, goerrors.Join(errs...)
}

func rewriteFile(file string, fixes []Fix) error {
	src, err := os.ReadFile(file) // #nosec G304 -- file paths originate from the report
	if err != nil {
		return errors.Wrap(err, errors.CategoryRewrite, "failed to read source file").WithContext("path", file).Build()
	}

	edits := make([]markdown.Edit, 0, len(fixes))
	for _, fix := range fixes {
		// Guard against the file having changed since extraction.
		if fix.end > len(src) || string(src[fix.start:fix.end]) != fix.OldText {
			return errors.New(errors.CategoryRewrite, "source file changed since validation").
				WithContext("path", file).WithContext("line", fix.Line).Build()
		}
		edits = append(edits, markdown.Edit{Start: fix.start, End: fix.end, Replacement: []byte(fix.NewText)})
	}

	out, err := markdown.ApplyEdits(src, edits)
	if err != nil {
		return errors.Wrap(err, errors.CategoryRewrite, "failed to apply edits").WithContext("path", file).Build()
	}

	if err := fsutil.AtomicWriteFile(file, out); err != nil {
		return errors.Wrap(err, errors.CategoryRewrite, "failed to write file").WithContext("path", file).Build()
	}
	return nil
}
