package cache

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdcheck/internal/check"
)

func openStore(t *testing.T, ttl, failureTTL time.Duration) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sub", "cache.db"), ttl, failureTTL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_PutGet(t *testing.T) {
	store := openStore(t, time.Hour, time.Hour)

	outcome := check.Outcome{
		Status:      check.StatusRedirected,
		FinalTarget: "https://example.com/new",
		Code:        http.StatusOK,
	}
	store.Put("https://example.com/old", outcome)

	got, ok := store.Get("https://example.com/old")
	require.True(t, ok)
	assert.Equal(t, outcome, got)
}

func TestStore_Miss(t *testing.T) {
	store := openStore(t, time.Hour, time.Hour)
	_, ok := store.Get("https://example.com/never-seen")
	assert.False(t, ok)
}

func TestStore_Upsert(t *testing.T) {
	store := openStore(t, time.Hour, time.Hour)

	store.Put("https://example.com", check.Outcome{Status: check.StatusBroken, Detail: "HTTP 503"})
	store.Put("https://example.com", check.Outcome{Status: check.StatusValid, Code: http.StatusOK})

	got, ok := store.Get("https://example.com")
	require.True(t, ok)
	assert.Equal(t, check.StatusValid, got.Status)
	assert.Empty(t, got.Detail)
}

func TestStore_Expiry(t *testing.T) {
	// Zero TTL expires entries immediately.
	store := openStore(t, 0, time.Hour)
	store.Put("https://example.com", check.Outcome{Status: check.StatusValid, Code: http.StatusOK})

	_, ok := store.Get("https://example.com")
	assert.False(t, ok)
}

func TestStore_FailureTTLSeparate(t *testing.T) {
	// Successes stay cached while failures expire immediately.
	store := openStore(t, time.Hour, 0)
	store.Put("https://ok.example.com", check.Outcome{Status: check.StatusValid, Code: http.StatusOK})
	store.Put("https://bad.example.com", check.Outcome{Status: check.StatusBroken, Detail: "HTTP 404"})

	_, ok := store.Get("https://ok.example.com")
	assert.True(t, ok)
	_, ok = store.Get("https://bad.example.com")
	assert.False(t, ok)
}

func TestStore_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	first, err := Open(path, time.Hour, time.Hour)
	require.NoError(t, err)
	first.Put("https://example.com", check.Outcome{Status: check.StatusValid, Code: http.StatusOK})
	require.NoError(t, first.Close())

	second, err := Open(path, time.Hour, time.Hour)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	got, ok := second.Get("https://example.com")
	require.True(t, ok)
	assert.Equal(t, check.StatusValid, got.Status)
}
