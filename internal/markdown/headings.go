package markdown

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"
)

// HeadingSlugs parses a Markdown document and returns the set of anchor
// slugs derived from its headings. Duplicate headings get a numeric suffix
// (-1, -2, ...) the way rendered anchors do, so both forms resolve.
func HeadingSlugs(src []byte) map[string]struct{} {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	slugs := make(map[string]struct{})
	seen := make(map[string]int)

	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}

		slug := Slug(headingText(h, src))
		if slug == "" {
			return gmast.WalkContinue, nil
		}
		if count, dup := seen[slug]; dup {
			seen[slug] = count + 1
			slugs[slug+"-"+strconv.Itoa(count)] = struct{}{}
		} else {
			seen[slug] = 1
			slugs[slug] = struct{}{}
		}
		return gmast.WalkContinue, nil
	})

	return slugs
}

// headingText concatenates the literal text content of a heading node.
func headingText(h *gmast.Heading, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(h, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(src))
		case *gmast.CodeSpan:
			for c := t.FirstChild(); c != nil; c = c.NextSibling() {
				if txt, ok := c.(*gmast.Text); ok {
					b.Write(txt.Segment.Value(src))
				}
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}

// Slug converts heading text to its anchor id: Unicode-normalized,
// lowercased, spaces become hyphens, punctuation is stripped.
func Slug(s string) string {
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining marks folded away by NFKD decomposition.
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			if r == ' ' || r == '\t' {
				r = '-'
			}
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}

