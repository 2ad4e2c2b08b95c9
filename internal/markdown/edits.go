package markdown

import (
	"fmt"
	"sort"
)

// Edit is a planned byte-range replacement: Replacement replaces
// source[Start:End] (End exclusive). Edits implement minimal-diff rewrites;
// everything outside edited spans is preserved byte-exact.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// ApplyEdits applies non-overlapping edits to source and returns the new
// content. Edits are applied from the end of the source toward the
// beginning so earlier edits never invalidate later offsets. Overlapping or
// out-of-range edits fail the whole set; source is never partially edited.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End > sorted[j].End
		}
		return sorted[i].Start > sorted[j].Start
	})

	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(source) {
			return nil, fmt.Errorf("invalid edit [%d:%d] for %d-byte source", e.Start, e.End, len(source))
		}
		// Sorted by Start descending: this edit must end at or before the
		// previous (later-in-file) edit's start.
		if i > 0 && e.End > sorted[i-1].Start {
			return nil, fmt.Errorf("overlapping edits at offset %d", e.Start)
		}
	}

	grow := 0
	for _, e := range sorted {
		grow += len(e.Replacement) - (e.End - e.Start)
	}

	out := make([]byte, 0, len(source)+grow)
	out = append(out, source...)
	for _, e := range sorted {
		tail := append([]byte(nil), out[e.End:]...)
		out = append(out[:e.Start], e.Replacement...)
		out = append(out, tail...)
	}

	return out, nil
}
