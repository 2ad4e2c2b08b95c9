package check

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdcheck/internal/markdown"
)

// LocalResolver resolves scheme-less references against the filesystem.
// Relative targets resolve from the referencing file's directory, absolute
// targets from the configured root. Heading slugs of target documents are
// cached for the lifetime of the resolver (one run).
type LocalResolver struct {
	Root string

	slugCache map[string]map[string]struct{}
}

// NewLocalResolver creates a resolver rooted at root.
func NewLocalResolver(root string) *LocalResolver {
	return &LocalResolver{
		Root:      root,
		slugCache: make(map[string]map[string]struct{}),
	}
}

// IsExternal reports whether a reference target is a remote URL.
func IsExternal(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// hasOtherScheme reports whether the target uses a non-http scheme
// (mailto:, tel:, data:, ...) that the engine does not validate.
func hasOtherScheme(target string) bool {
	i := strings.Index(target, ":")
	if i <= 0 {
		return false
	}
	for _, r := range target[:i] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '+' && r != '-' && r != '.' {
			return false
		}
	}
	return true
}

// Resolve validates one local reference and returns its result.
func (lr *LocalResolver) Resolve(ref markdown.Reference) ValidationResult {
	res := ValidationResult{Reference: ref}

	if hasOtherScheme(ref.Target) {
		res.Status = StatusUnchecked
		res.Detail = "unsupported scheme"
		return res
	}

	// Anchor-only references point into the source document itself.
	if ref.Target == "" {
		if ref.Anchor == "" {
			res.Status = StatusBroken
			res.Detail = "empty reference target"
			return res
		}
		return lr.checkAnchor(res, ref.File, ref.Anchor)
	}

	resolved := lr.resolvePath(ref)

	if outside, err := lr.outsideRoot(resolved); err == nil && outside {
		res.Detail = "target resolves outside project root"
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			res.Status = StatusBroken
			res.Detail = joinDetail(res.Detail, "file does not exist")
		} else {
			res.Status = StatusError
			res.Detail = joinDetail(res.Detail, err.Error())
		}
		return res
	}

	// Anchors are validated only for markdown targets; other files may
	// expose arbitrary fragment semantics.
	if ref.Anchor != "" && !info.IsDir() && isMarkdownFile(resolved) {
		return lr.checkAnchor(res, resolved, ref.Anchor)
	}

	res.Status = StatusValid
	return res
}

// resolvePath maps a reference target to an absolute filesystem path.
// The query suffix was split off at extraction time, so no stripping is
// needed here.
func (lr *LocalResolver) resolvePath(ref markdown.Reference) string {
	if filepath.IsAbs(ref.Target) || strings.HasPrefix(ref.Target, "/") {
		return filepath.Join(lr.Root, filepath.FromSlash(strings.TrimPrefix(ref.Target, "/")))
	}
	return filepath.Join(filepath.Dir(ref.File), filepath.FromSlash(ref.Target))
}

func (lr *LocalResolver) outsideRoot(path string) (bool, error) {
	absRoot, err := filepath.Abs(lr.Root)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false, err
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}

func (lr *LocalResolver) checkAnchor(res ValidationResult, path, anchor string) ValidationResult {
	slugs, err := lr.headingSlugs(path)
	if err != nil {
		res.Status = StatusError
		res.Detail = joinDetail(res.Detail, err.Error())
		return res
	}

	if _, ok := slugs[strings.ToLower(anchor)]; ok {
		res.Status = StatusValid
		return res
	}
	if _, ok := slugs[markdown.Slug(anchor)]; ok {
		res.Status = StatusValid
		return res
	}

	res.Status = StatusBroken
	res.Detail = joinDetail(res.Detail, "anchor not found: #"+anchor)
	return res
}

func (lr *LocalResolver) headingSlugs(path string) (map[string]struct{}, error) {
	if slugs, ok := lr.slugCache[path]; ok {
		return slugs, nil
	}
	src, err := os.ReadFile(path) // #nosec G304 -- path resolved from validated references
	if err != nil {
		return nil, err
	}
	slugs := markdown.HeadingSlugs(src)
	lr.slugCache[path] = slugs
	slog.Debug("Cached heading slugs", "path", path, "count", len(slugs))
	return slugs, nil
}

func isMarkdownFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown":
		return true
	}
	return false
}

func joinDetail(existing, added string) string {
	if existing == "" {
		return added
	}
	return existing + "; " + added
}
