// Package discover lists candidate markdown files under a root, applying
// include/exclude glob patterns and .gitignore rules. The returned order
// is deterministic (lexical walk order), which anchors report ordering.
package discover

import (
	"bufio"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"git.home.luguber.info/inful/mdcheck/internal/errors"
)

// Filter controls which files a walk yields.
type Filter struct {
	IncludePattern  string // glob matched against the base name, e.g. "*.md"
	ExcludePattern  string // glob matched against base name and relative path; wins over include
	FollowGitignore bool
}

// List returns the candidate files under root. A root that is a regular
// file is returned as-is (include/exclude do not apply to an explicit
// file argument).
func List(root string, filter Filter) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFileSystem, "cannot access path").WithContext("path", root).Build()
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var matcher gitignore.Matcher
	if filter.FollowGitignore {
		matcher = gitignore.NewMatcher(loadGitignorePatterns(root))
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Skipping unreadable directory entry", "path", path, "error", err)
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if matcher != nil && rel != "." && matcher.Match(splitPath(rel), true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !matchInclude(filter.IncludePattern, d.Name()) {
			return nil
		}
		if matchExclude(filter.ExcludePattern, d.Name(), rel) {
			return nil
		}
		if matcher != nil && matcher.Match(splitPath(rel), false) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFileSystem, "directory walk failed").WithContext("path", root).Build()
	}

	return files, nil
}

func matchInclude(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}

// matchExclude tries the pattern against both the base name and the
// root-relative path, so "drafts/*" and "*.txt" both behave as expected.
// When a file matches include and exclude, exclude takes precedence.
func matchExclude(pattern, name, rel string) bool {
	if pattern == "" {
		return false
	}
	if ok, err := filepath.Match(pattern, name); err == nil && ok {
		return true
	}
	ok, err := filepath.Match(pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// loadGitignorePatterns collects patterns from every .gitignore under
// root, each scoped to its containing directory.
func loadGitignorePatterns(root string) []gitignore.Pattern {
	var patterns []gitignore.Pattern

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}

		rel, relErr := filepath.Rel(root, filepath.Dir(path))
		if relErr != nil {
			return nil
		}
		var domain []string
		if rel != "." {
			domain = splitPath(rel)
		}

		for _, line := range readLines(path) {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, domain))
		}
		return nil
	})

	return patterns
}

func readLines(path string) []string {
	f, err := os.Open(path) // #nosec G304 -- .gitignore discovered during walk
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func splitPath(rel string) []string {
	return strings.Split(filepath.ToSlash(rel), "/")
}
