// Package markdown extracts link and image references from Markdown source
// with exact source positions, and applies byte-range edits back to it.
//
// This is an analysis API; it does not attempt to render Markdown.
package markdown

import "strings"

// Kind classifies a reference occurrence.
type Kind string

const (
	KindLink  Kind = "link"
	KindImage Kind = "image"
)

// Reference is a single link or image occurrence in a Markdown document.
//
// Target holds the destination verbatim, with anchor and query suffixes
// already split off so resolution logic does not re-parse them. Start/End
// are byte offsets of the full destination (including suffixes) into the
// source, so rewrites can target the exact span. A Reference is immutable
// once extracted; identity is (File, Line, ColumnStart).
type Reference struct {
	Kind    Kind
	RawText string // full reference markup as it appears in the source
	Target  string // destination without anchor/query
	Anchor  string // fragment without leading '#', empty when absent
	Query   string // query without leading '?', empty when absent

	File        string
	Line        int // 1-based
	ColumnStart int // byte column of the destination within the line, 0-based
	ColumnEnd   int // exclusive
	Start       int // byte offset of the destination into the source
	End         int // exclusive
}

// FullTarget reassembles the destination exactly as written, including any
// query and anchor suffix.
func (r Reference) FullTarget() string {
	return r.Target + r.Suffix()
}

// Suffix returns the query/anchor tail of the destination ("?q#a" form), or
// an empty string when the destination has neither.
func (r Reference) Suffix() string {
	s := ""
	if r.Query != "" {
		s += "?" + r.Query
	}
	if r.Anchor != "" {
		s += "#" + r.Anchor
	}
	return s
}

// splitTarget separates a raw destination into target, query and anchor.
// The anchor wins over the query when both are present in either order,
// matching how browsers treat fragments: everything after the first '#'
// belongs to the fragment.
func splitTarget(raw string) (target, query, anchor string) {
	target = raw
	if i := strings.IndexByte(target, '#'); i >= 0 {
		anchor = target[i+1:]
		target = target[:i]
	}
	if i := strings.IndexByte(target, '?'); i >= 0 {
		query = target[i+1:]
		target = target[:i]
	}
	return target, query, anchor
}
