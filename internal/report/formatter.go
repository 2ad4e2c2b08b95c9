// Package report renders validation reports for terminals and files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"git.home.luguber.info/inful/mdcheck/internal/check"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
)

// TextFormatter renders a report as human-readable text, grouped per file.
type TextFormatter struct {
	Color   bool
	Verbose bool
	Quiet   bool
}

// Format writes the report. In quiet mode only invalid results and the
// summary are shown.
func (f *TextFormatter) Format(w io.Writer, rep *check.Report) error {
	var currentFile string

	for _, res := range rep.Results {
		if f.Quiet && !res.Invalid() {
			continue
		}

		if res.Reference.File != currentFile {
			currentFile = res.Reference.File
			if _, err := fmt.Fprintf(w, "\n%s:\n", currentFile); err != nil {
				return err
			}
		}

		if err := f.formatResult(w, res); err != nil {
			return err
		}
	}

	return f.formatSummary(w, rep)
}

func (f *TextFormatter) formatResult(w io.Writer, res check.ValidationResult) error {
	ref := res.Reference
	tag := strings.ToUpper(string(res.Status))

	if _, err := fmt.Fprintf(w, "  Line %d: %s -> %s %s\n",
		ref.Line, ref.RawText, ref.FullTarget(), f.colorize(tag, statusColor(res.Status))); err != nil {
		return err
	}

	if res.Detail != "" {
		if _, err := fmt.Fprintf(w, "    %s\n", f.colorize(res.Detail, ansiRed)); err != nil {
			return err
		}
	}
	if res.Status == check.StatusRedirected && res.FinalTarget != "" {
		if _, err := fmt.Fprintf(w, "    %s\n", f.colorize("Redirects to: "+res.FinalTarget, ansiYellow)); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatSummary(w io.Writer, rep *check.Report) error {
	counts := rep.Summary()
	total := len(rep.Results)

	if _, err := fmt.Fprintf(w, "\n%s\n", strings.Repeat("━", 50)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Checked %d references across %d files\n", total, rep.Files); err != nil {
		return err
	}
	for _, status := range []check.Status{
		check.StatusValid, check.StatusRedirected, check.StatusBroken,
		check.StatusError, check.StatusUnchecked,
	} {
		if n := counts[status]; n > 0 {
			line := fmt.Sprintf("  %-10s %d", status, n)
			if _, err := fmt.Fprintln(w, f.colorize(line, statusColor(status))); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *TextFormatter) colorize(s, color string) string {
	if !f.Color {
		return s
	}
	return color + s + ansiReset
}

func statusColor(status check.Status) string {
	switch status {
	case check.StatusValid:
		return ansiGreen
	case check.StatusRedirected:
		return ansiYellow
	case check.StatusBroken, check.StatusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

// jsonReport is the serialized report shape, with derived summary counts
// included for consumers that do not want to recompute them.
type jsonReport struct {
	*check.Report
	Summary map[check.Status]int `json:"summary"`
}

// FormatJSON writes the report as indented JSON.
func FormatJSON(w io.Writer, rep *check.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{Report: rep, Summary: rep.Summary()})
}

// WriteFile serializes the report as JSON to path.
func WriteFile(path string, rep *check.Report) error {
	f, err := os.Create(path) // #nosec G304 -- output path supplied by the user
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return FormatJSON(f, rep)
}

// FormatFixes lists planned or applied edits, for verbose and dry-run
// display.
func FormatFixes(w io.Writer, heading string, fixes []check.Fix) error {
	if len(fixes) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%s:\n", heading); err != nil {
		return err
	}
	for _, fix := range fixes {
		if _, err := fmt.Fprintf(w, "  %s:%d: %s -> %s\n", fix.File, fix.Line, fix.OldText, fix.NewText); err != nil {
			return err
		}
	}
	return nil
}

// IsColorSupported reports whether stdout is a terminal that renders ANSI
// color, honoring NO_COLOR.
func IsColorSupported() bool {
	info, err := os.Stdout.Stat()
	if err != nil || (info.Mode()&os.ModeCharDevice) == 0 {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}
