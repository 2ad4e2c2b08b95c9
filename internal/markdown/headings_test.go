package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Getting Started", "getting-started"},
		{"API & Tools!", "api--tools"},
		{"  Spaces  ", "spaces"},
		{"snake_case_kept", "snake_case_kept"},
		{"Héllo Wörld", "hello-world"},
		{"Version 2.0", "version-20"},
		{"already-slugged", "already-slugged"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.in), "Slug(%q)", tc.in)
	}
}

func TestHeadingSlugs(t *testing.T) {
	src := []byte(`# Getting Started

## Configuration

Setext Heading
==============

## With ` + "`code`" + ` Inside
`)

	slugs := HeadingSlugs(src)
	assert.Contains(t, slugs, "getting-started")
	assert.Contains(t, slugs, "configuration")
	assert.Contains(t, slugs, "setext-heading")
	assert.Contains(t, slugs, "with-code-inside")
}

func TestHeadingSlugs_Duplicates(t *testing.T) {
	src := []byte("# Usage\n\n## Usage\n\n## Usage\n")

	slugs := HeadingSlugs(src)
	assert.Contains(t, slugs, "usage")
	assert.Contains(t, slugs, "usage-1")
	assert.Contains(t, slugs, "usage-2")
}

func TestHeadingSlugs_Empty(t *testing.T) {
	slugs := HeadingSlugs([]byte("no headings here, just prose\n"))
	assert.Empty(t, slugs)
}
