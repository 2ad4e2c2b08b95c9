package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReferences_InlineLink(t *testing.T) {
	src := []byte("See [API](./api-guide.md) for details.\n")

	refs := ExtractReferences(src, "doc.md")
	require.Len(t, refs, 1)

	ref := refs[0]
	assert.Equal(t, KindLink, ref.Kind)
	assert.Equal(t, "./api-guide.md", ref.Target)
	assert.Equal(t, "[API](./api-guide.md)", ref.RawText)
	assert.Equal(t, "doc.md", ref.File)
	assert.Equal(t, 1, ref.Line)
	assert.Equal(t, "./api-guide.md", string(src[ref.Start:ref.End]))
}

func TestExtractReferences_Image(t *testing.T) {
	refs := ExtractReferences([]byte("![diagram](images/arch.png)\n"), "doc.md")
	require.Len(t, refs, 1)
	assert.Equal(t, KindImage, refs[0].Kind)
	assert.Equal(t, "images/arch.png", refs[0].Target)
	assert.Equal(t, "![diagram](images/arch.png)", refs[0].RawText)
}

func TestExtractReferences_AnchorAndQuerySplit(t *testing.T) {
	refs := ExtractReferences([]byte("[a](guide.md#setup)\n[b](search?q=x)\n[c](page.md?v=2#top)\n"), "doc.md")
	require.Len(t, refs, 3)

	assert.Equal(t, "guide.md", refs[0].Target)
	assert.Equal(t, "setup", refs[0].Anchor)
	assert.Equal(t, "guide.md#setup", refs[0].FullTarget())

	assert.Equal(t, "search", refs[1].Target)
	assert.Equal(t, "q=x", refs[1].Query)

	assert.Equal(t, "page.md", refs[2].Target)
	assert.Equal(t, "v=2", refs[2].Query)
	assert.Equal(t, "top", refs[2].Anchor)
	assert.Equal(t, "page.md?v=2#top", refs[2].FullTarget())
}

func TestExtractReferences_ColumnsWithinLine(t *testing.T) {
	src := []byte("intro [a](x.md) middle ![i](y.png) end\nsecond [b](https://example.com/)\n")
	lines := strings.Split(string(src), "\n")

	refs := ExtractReferences(src, "doc.md")
	require.Len(t, refs, 3)

	for _, ref := range refs {
		line := lines[ref.Line-1]
		assert.Less(t, ref.ColumnStart, ref.ColumnEnd)
		assert.LessOrEqual(t, ref.ColumnEnd, len(line))
		assert.Equal(t, ref.FullTarget(), line[ref.ColumnStart:ref.ColumnEnd])
	}
}

func TestExtractReferences_ReferenceDefinition(t *testing.T) {
	src := []byte("Read [the guide][guide].\n\n[guide]: ./guide.md#intro \"Guide\"\n")

	refs := ExtractReferences(src, "doc.md")
	require.Len(t, refs, 1)
	assert.Equal(t, "./guide.md", refs[0].Target)
	assert.Equal(t, "intro", refs[0].Anchor)
	assert.Equal(t, 3, refs[0].Line)

	labels := DefinitionLabels(src)
	assert.Equal(t, "./guide.md#intro", labels["guide"])
}

func TestExtractReferences_FootnoteDefinitionIgnored(t *testing.T) {
	refs := ExtractReferences([]byte("[^1]: a footnote, not a link\n"), "doc.md")
	assert.Empty(t, refs)
}

func TestExtractReferences_SkipsCodeBlocks(t *testing.T) {
	src := []byte("" +
		"[real](a.md)\n" +
		"```\n" +
		"[ignored](b.md)\n" +
		"```\n" +
		"    [indented-ignored](c.md)\n" +
		"done [also-real](d.md)\n")

	refs := ExtractReferences(src, "doc.md")
	require.Len(t, refs, 2)
	assert.Equal(t, "a.md", refs[0].Target)
	assert.Equal(t, "d.md", refs[1].Target)
}

func TestExtractReferences_SkipsInlineCodeSpans(t *testing.T) {
	refs := ExtractReferences([]byte("use `[not a link](x.md)` but [yes](y.md)\n"), "doc.md")
	require.Len(t, refs, 1)
	assert.Equal(t, "y.md", refs[0].Target)
}

func TestExtractReferences_MalformedSkipped(t *testing.T) {
	src := []byte("[unterminated](no-close\n[fine](ok.md)\nbroken ](orphan)\n")
	refs := ExtractReferences(src, "doc.md")
	require.Len(t, refs, 1)
	assert.Equal(t, "ok.md", refs[0].Target)
}

func TestExtractReferences_NestedBrackets(t *testing.T) {
	refs := ExtractReferences([]byte("[see [nested] text](target.md)\n"), "doc.md")
	require.Len(t, refs, 1)
	assert.Equal(t, "target.md", refs[0].Target)
}

func TestExtractReferences_InlineHTML(t *testing.T) {
	src := []byte(`visit <a href="https://example.com/page">here</a> and <img src="logo.png">` + "\n")

	refs := ExtractReferences(src, "doc.md")
	require.Len(t, refs, 2)
	assert.Equal(t, KindLink, refs[0].Kind)
	assert.Equal(t, "https://example.com/page", refs[0].Target)
	assert.Equal(t, KindImage, refs[1].Kind)
	assert.Equal(t, "logo.png", refs[1].Target)
	assert.Equal(t, "logo.png", string(src[refs[1].Start:refs[1].End]))
}

func TestExtractReferences_TitleStripped(t *testing.T) {
	refs := ExtractReferences([]byte("[a](target.md \"a title\")\n"), "doc.md")
	require.Len(t, refs, 1)
	assert.Equal(t, "target.md", refs[0].Target)
}

func TestExtractReferences_MultiplePerLineOrdered(t *testing.T) {
	refs := ExtractReferences([]byte("[a](1.md) [b](2.md) [c](3.md)\n"), "doc.md")
	require.Len(t, refs, 3)
	assert.Equal(t, "1.md", refs[0].Target)
	assert.Equal(t, "2.md", refs[1].Target)
	assert.Equal(t, "3.md", refs[2].Target)
	assert.Less(t, refs[0].ColumnStart, refs[1].ColumnStart)
	assert.Less(t, refs[1].ColumnStart, refs[2].ColumnStart)
}

func TestUndefinedLabelUsages(t *testing.T) {
	src := []byte("Read [the guide][guide] and [orphan text][nowhere].\n\n[guide]: ./guide.md\n")

	usages := UndefinedLabelUsages(src, "doc.md")
	require.Len(t, usages, 1)
	assert.Equal(t, "nowhere", usages[0].Label)
	assert.Equal(t, "[orphan text][nowhere]", usages[0].RawText)
	assert.Equal(t, KindLink, usages[0].Kind)
	assert.Equal(t, 1, usages[0].Line)
}

func TestUndefinedLabelUsages_CollapsedForm(t *testing.T) {
	src := []byte("[defined][] and [undefined][]\n\n[defined]: a.md\n")

	usages := UndefinedLabelUsages(src, "doc.md")
	require.Len(t, usages, 1)
	assert.Equal(t, "undefined", usages[0].Label)
}

func TestUndefinedLabelUsages_Image(t *testing.T) {
	usages := UndefinedLabelUsages([]byte("![alt][missing-img]\n"), "doc.md")
	require.Len(t, usages, 1)
	assert.Equal(t, KindImage, usages[0].Kind)
	assert.Equal(t, "missing-img", usages[0].Label)
	assert.Equal(t, "![alt][missing-img]", usages[0].RawText)
}

func TestUndefinedLabelUsages_CaseInsensitive(t *testing.T) {
	usages := UndefinedLabelUsages([]byte("[x][GUIDE]\n\n[guide]: a.md\n"), "doc.md")
	assert.Empty(t, usages)
}

func TestUndefinedLabelUsages_SkipsCodeAndFootnotes(t *testing.T) {
	src := []byte("" +
		"`[not real][nope]`\n" +
		"```\n" +
		"[fenced][nope]\n" +
		"```\n" +
		"a footnote[^1]\n" +
		"\n" +
		"[^1]: text\n")

	assert.Empty(t, UndefinedLabelUsages(src, "doc.md"))
}

func TestExtractReferences_CRLFOffsets(t *testing.T) {
	src := []byte("first line\r\n[a](x.md)\r\n")
	refs := ExtractReferences(src, "doc.md")
	require.Len(t, refs, 1)
	assert.Equal(t, 2, refs[0].Line)
	assert.Equal(t, "x.md", string(src[refs[0].Start:refs[0].End]))
}
