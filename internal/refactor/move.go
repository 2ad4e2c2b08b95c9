// Package refactor implements reference-preserving file moves: every
// markdown reference to the old path, across a candidate file set, is
// rewritten to point at the new path before the file itself moves.
package refactor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/mdcheck/internal/errors"
	"git.home.luguber.info/inful/mdcheck/internal/fsutil"
	"git.home.luguber.info/inful/mdcheck/internal/markdown"
)

// Rewrite is one planned reference update in a candidate file.
type Rewrite struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	OldText string `json:"old_text"`
	NewText string `json:"new_text"`

	start int
	end   int
}

// Plan is the full set of rewrites for one move, grouped per file.
// Plan computation is pure with respect to filesystem state: a dry run
// produces the identical plan without modifying anything.
type Plan struct {
	OldPath  string    `json:"old_path"`
	NewPath  string    `json:"new_path"`
	Rewrites []Rewrite `json:"rewrites"`
}

// PlanMove computes the rewrites needed to move oldPath to newPath.
// For every reference whose resolved local target equals oldPath, a new
// relative target is computed from the referencing file's directory to
// newPath, preserving any anchor or query suffix. Targets with a leading
// slash resolve from root instead of the referencing file's directory.
func PlanMove(root, oldPath, newPath string, candidates []string) (*Plan, error) {
	absOld, err := filepath.Abs(oldPath)
	if err != nil {
		return nil, err
	}
	absNew, err := filepath.Abs(newPath)
	if err != nil {
		return nil, err
	}

	plan := &Plan{OldPath: oldPath, NewPath: newPath}

	for _, file := range candidates {
		src, err := os.ReadFile(file) // #nosec G304 -- candidates come from discovery
		if err != nil {
			slog.Warn("Skipping unreadable file", "path", file, "error", err)
			continue
		}

		dir := filepath.Dir(file)
		for _, ref := range markdown.ExtractReferences(src, file) {
			if ref.Target == "" || strings.Contains(ref.Target, "://") {
				continue
			}

			base := dir
			target := ref.Target
			if strings.HasPrefix(target, "/") {
				base = root
				target = strings.TrimPrefix(target, "/")
			}
			resolved, err := filepath.Abs(filepath.Join(base, filepath.FromSlash(target)))
			if err != nil || resolved != absOld {
				continue
			}

			var newTarget string
			if strings.HasPrefix(ref.Target, "/") {
				// Root-relative references keep their style.
				newTarget, err = rootTarget(root, absNew)
			} else {
				newTarget, err = relativeTarget(dir, absNew, ref.Target)
			}
			if err != nil {
				return nil, err
			}
			newText := newTarget + ref.Suffix()
			if newText == ref.FullTarget() {
				continue
			}

			plan.Rewrites = append(plan.Rewrites, Rewrite{
				File:    file,
				Line:    ref.Line,
				Column:  ref.ColumnStart,
				OldText: ref.FullTarget(),
				NewText: newText,
				start:   ref.Start,
				end:     ref.End,
			})
		}
	}

	return plan, nil
}

// relativeTarget computes the new destination from the referencing file's
// directory, preserving the original's "./" style when it had one.
func relativeTarget(fromDir, absNew, original string) (string, error) {
	absDir, err := filepath.Abs(fromDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absDir, absNew)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(original, "./") && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel, nil
}

func rootTarget(root, absNew string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absNew)
	if err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(rel), nil
}

// Apply executes the plan: every candidate file is rewritten (grouped per
// file, descending source position, atomic write), and only after all
// rewrites succeed is the file itself moved. Any rewrite failure aborts
// the move; there are no partial moves.
func Apply(plan *Plan) error {
	byFile := make(map[string][]Rewrite)
	for _, rw := range plan.Rewrites {
		byFile[rw.File] = append(byFile[rw.File], rw)
	}

	for file, rewrites := range byFile {
		if err := rewriteFile(file, rewrites); err != nil {
			return err
		}
		slog.Info("Updated references", "path", file, "rewrites", len(rewrites))
	}

	return moveFile(plan.OldPath, plan.NewPath)
}

func rewriteFile(file string, rewrites []Rewrite) error {
	src, err := os.ReadFile(file) // #nosec G304 -- file paths originate from the plan
	if err != nil {
		return errors.Wrap(err, errors.CategoryRewrite, "failed to read source file").WithContext("path", file).Build()
	}

	edits := make([]markdown.Edit, 0, len(rewrites))
	for _, rw := range rewrites {
		if rw.end > len(src) || string(src[rw.start:rw.end]) != rw.OldText {
			return errors.New(errors.CategoryRewrite, "source file changed since planning").
				WithContext("path", file).WithContext("line", rw.Line).Build()
		}
		edits = append(edits, markdown.Edit{Start: rw.start, End: rw.end, Replacement: []byte(rw.NewText)})
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

// moveFile relocates the file, using git mv when the file is tracked so
// history follows the rename, and a plain rename otherwise.
func moveFile(oldPath, newPath string) error {
	if _, err := os.Stat(oldPath); err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, "move source does not exist").WithContext("path", oldPath).Build()
	}
	if _, err := os.Stat(newPath); err == nil {
		return errors.New(errors.CategoryFileSystem, "move target already exists").WithContext("path", newPath).Build()
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o750); err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, "failed to create target directory").Build()
	}

	if gitMove(oldPath, newPath) {
		return nil
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, fmt.Sprintf("failed to move %s", oldPath)).Build()
	}
	return nil
}

// gitMove attempts the move through the enclosing git worktree. Returns
// false when there is no repository, the file is untracked, or the move
// fails; the caller then falls back to a plain rename.
func gitMove(oldPath, newPath string) bool {
	absOld, err := filepath.Abs(oldPath)
	if err != nil {
		return false
	}

	repo, err := gogit.PlainOpenWithOptions(filepath.Dir(absOld), &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return false
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false
	}
	root := wt.Filesystem.Root()

	relOld, err := filepath.Rel(root, absOld)
	if err != nil || strings.HasPrefix(relOld, "..") {
		return false
	}
	absNew, err := filepath.Abs(newPath)
	if err != nil {
		return false
	}
	relNew, err := filepath.Rel(root, absNew)
	if err != nil || strings.HasPrefix(relNew, "..") {
		return false
	}

	// Only tracked files can move with git mv.
	idx, err := repo.Storer.Index()
	if err != nil {
		return false
	}
	if _, err := idx.Entry(filepath.ToSlash(relOld)); err != nil {
		return false
	}

	if _, err := wt.Move(filepath.ToSlash(relOld), filepath.ToSlash(relNew)); err != nil {
		slog.Warn("git mv failed, falling back to rename", "old", oldPath, "new", newPath, "error", err)
		return false
	}
	slog.Debug("Moved file via git", "old", relOld, "new", relNew)
	return true
}
