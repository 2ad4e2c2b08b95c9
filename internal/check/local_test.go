package check

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdcheck/internal/markdown"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocalResolver_ExistingFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "doc.md"), "[x](other.md)")
	writeFile(t, filepath.Join(root, "other.md"), "# Other")

	lr := NewLocalResolver(root)
	res := lr.Resolve(markdown.Reference{
		Target: "other.md",
		File:   filepath.Join(root, "doc.md"),
	})
	assert.Equal(t, StatusValid, res.Status)
}

func TestLocalResolver_MissingFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "doc.md"), "[x](./missing.md)")

	lr := NewLocalResolver(root)
	res := lr.Resolve(markdown.Reference{
		Target: "./missing.md",
		File:   filepath.Join(root, "doc.md"),
	})
	assert.Equal(t, StatusBroken, res.Status)
	assert.Contains(t, res.Detail, "does not exist")
}

func TestLocalResolver_RelativeFromReferencingFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs", "guide.md"), "[x](../README.md)")
	writeFile(t, filepath.Join(root, "README.md"), "# Readme")

	lr := NewLocalResolver(root)
	res := lr.Resolve(markdown.Reference{
		Target: "../README.md",
		File:   filepath.Join(root, "docs", "guide.md"),
	})
	assert.Equal(t, StatusValid, res.Status)
}

func TestLocalResolver_RootRelative(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs", "deep", "page.md"), "[x](/assets/logo.png)")
	writeFile(t, filepath.Join(root, "assets", "logo.png"), "png")

	lr := NewLocalResolver(root)
	res := lr.Resolve(markdown.Reference{
		Kind:   markdown.KindImage,
		Target: "/assets/logo.png",
		File:   filepath.Join(root, "docs", "deep", "page.md"),
	})
	assert.Equal(t, StatusValid, res.Status)
}

func TestLocalResolver_Anchors(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "guide.md")
	writeFile(t, target, "# Getting Started\n\n## Deep Dive\n")
	src := filepath.Join(root, "doc.md")
	writeFile(t, src, "stub")

	lr := NewLocalResolver(root)

	res := lr.Resolve(markdown.Reference{Target: "guide.md", Anchor: "getting-started", File: src})
	assert.Equal(t, StatusValid, res.Status)

	// Raw heading text slugified at lookup time.
	res = lr.Resolve(markdown.Reference{Target: "guide.md", Anchor: "Deep Dive", File: src})
	assert.Equal(t, StatusValid, res.Status)

	res = lr.Resolve(markdown.Reference{Target: "guide.md", Anchor: "nope", File: src})
	assert.Equal(t, StatusBroken, res.Status)
	assert.Contains(t, res.Detail, "anchor not found: #nope")
}

func TestLocalResolver_AnchorOnlySelfReference(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "doc.md")
	writeFile(t, src, "# Intro\n\nsee [above](#intro) or [gone](#missing)\n")

	lr := NewLocalResolver(root)

	res := lr.Resolve(markdown.Reference{Target: "", Anchor: "intro", File: src})
	assert.Equal(t, StatusValid, res.Status)

	res = lr.Resolve(markdown.Reference{Target: "", Anchor: "missing", File: src})
	assert.Equal(t, StatusBroken, res.Status)
}

func TestLocalResolver_AnchorOnNonMarkdownTarget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data.json"), "{}")
	src := filepath.Join(root, "doc.md")
	writeFile(t, src, "stub")

	lr := NewLocalResolver(root)
	res := lr.Resolve(markdown.Reference{Target: "data.json", Anchor: "whatever", File: src})
	assert.Equal(t, StatusValid, res.Status)
}

func TestLocalResolver_OutsideRootDetail(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "project")
	writeFile(t, filepath.Join(parent, "escape.md"), "# Out")
	src := filepath.Join(root, "doc.md")
	writeFile(t, src, "stub")

	lr := NewLocalResolver(root)
	res := lr.Resolve(markdown.Reference{Target: "../escape.md", File: src})
	assert.Equal(t, StatusValid, res.Status)
	assert.Contains(t, res.Detail, "outside project root")
}

func TestLocalResolver_UnsupportedScheme(t *testing.T) {
	lr := NewLocalResolver(t.TempDir())
	for _, target := range []string{"mailto:a@b.c", "tel:+4712345678", "ftp://host/file"} {
		res := lr.Resolve(markdown.Reference{Target: target})
		assert.Equal(t, StatusUnchecked, res.Status, target)
		assert.Equal(t, "unsupported scheme", res.Detail, target)
	}
}

func TestLocalResolver_EmptyTarget(t *testing.T) {
	lr := NewLocalResolver(t.TempDir())
	res := lr.Resolve(markdown.Reference{Target: "", Anchor: ""})
	assert.Equal(t, StatusBroken, res.Status)
}

func TestIsExternal(t *testing.T) {
	assert.True(t, IsExternal("https://example.com"))
	assert.True(t, IsExternal("http://example.com"))
	assert.False(t, IsExternal("./local.md"))
	assert.False(t, IsExternal("mailto:a@b.c"))
}
