package markdown

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEdits_Single(t *testing.T) {
	src := []byte("a [link](old.md) here\n")
	start := bytes.Index(src, []byte("old.md"))

	out, err := ApplyEdits(src, []Edit{{Start: start, End: start + 6, Replacement: []byte("new.md")}})
	require.NoError(t, err)
	assert.Equal(t, "a [link](new.md) here\n", string(out))
}

func TestApplyEdits_MultipleSameLine(t *testing.T) {
	src := []byte("[a](1.md) and [b](2.md)\n")
	first := bytes.Index(src, []byte("1.md"))
	second := bytes.Index(src, []byte("2.md"))

	// Order of the input slice must not matter; edits apply end to start.
	out, err := ApplyEdits(src, []Edit{
		{Start: first, End: first + 4, Replacement: []byte("one.md")},
		{Start: second, End: second + 4, Replacement: []byte("two.md")},
	})
	require.NoError(t, err)
	assert.Equal(t, "[a](one.md) and [b](two.md)\n", string(out))

	out, err = ApplyEdits(src, []Edit{
		{Start: second, End: second + 4, Replacement: []byte("two.md")},
		{Start: first, End: first + 4, Replacement: []byte("one.md")},
	})
	require.NoError(t, err)
	assert.Equal(t, "[a](one.md) and [b](two.md)\n", string(out))
}

func TestApplyEdits_GrowingReplacement(t *testing.T) {
	src := []byte("[a](x.md) [b](x.md) [c](x.md)\n")
	var edits []Edit
	for i := bytes.Index(src, []byte("x.md")); i != -1; {
		edits = append(edits, Edit{Start: i, End: i + 4, Replacement: []byte("longer/name.md")})
		rel := bytes.Index(src[i+4:], []byte("x.md"))
		if rel == -1 {
			break
		}
		i += 4 + rel
	}
	require.Len(t, edits, 3)

	out, err := ApplyEdits(src, edits)
	require.NoError(t, err)
	assert.Equal(t, "[a](longer/name.md) [b](longer/name.md) [c](longer/name.md)\n", string(out))
}

func TestApplyEdits_PreservesRestOfDocument(t *testing.T) {
	src := []byte("line one\r\nline [x](a.md) two\r\nline three\n")
	start := bytes.Index(src, []byte("a.md"))

	out, err := ApplyEdits(src, []Edit{{Start: start, End: start + 4, Replacement: []byte("b.md")}})
	require.NoError(t, err)
	assert.Equal(t, "line one\r\nline [x](b.md) two\r\nline three\n", string(out))
}

func TestApplyEdits_InvalidRanges(t *testing.T) {
	src := []byte("0123456789")

	_, err := ApplyEdits(src, []Edit{{Start: 5, End: 3}})
	assert.Error(t, err)

	_, err = ApplyEdits(src, []Edit{{Start: 8, End: 20}})
	assert.Error(t, err)

	_, err = ApplyEdits(src, []Edit{
		{Start: 2, End: 6, Replacement: []byte("x")},
		{Start: 4, End: 8, Replacement: []byte("y")},
	})
	assert.Error(t, err)
}

func TestApplyEdits_Empty(t *testing.T) {
	src := []byte("unchanged")
	out, err := ApplyEdits(src, nil)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}
