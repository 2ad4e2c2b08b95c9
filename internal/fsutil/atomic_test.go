package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile_CreatesNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	require.NoError(t, AtomicWriteFile(path, []byte("hello")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestAtomicWriteFile_ReplacesAndKeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, AtomicWriteFile(path, []byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestAtomicWriteFile_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.md")
	require.NoError(t, AtomicWriteFile(path, []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.md", entries[0].Name())
}
