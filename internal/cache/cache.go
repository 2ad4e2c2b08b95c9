// Package cache persists external-check outcomes in a local sqlite
// database so repeated runs skip recently-verified URLs. Cache failures
// always degrade to a miss; they never fail a run.
package cache

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/mdcheck/internal/check"
)

const schema = `
CREATE TABLE IF NOT EXISTS url_cache (
	url        TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	final_url  TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	code       INTEGER NOT NULL DEFAULT 0,
	checked_at INTEGER NOT NULL
);
`

// Store is a sqlite-backed check.ResultCache with separate TTLs for
// successful and failing outcomes.
type Store struct {
	db         *sql.DB
	ttl        time.Duration
	failureTTL time.Duration
}

// Open creates or opens the cache database at path.
func Open(path string, ttl, failureTTL time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Debug("Opened URL cache", "path", path, "ttl", ttl, "failure_ttl", failureTTL)
	return &Store{db: db, ttl: ttl, failureTTL: failureTTL}, nil
}

// Get returns a cached outcome when present and not expired.
func (s *Store) Get(target string) (check.Outcome, bool) {
	var outcome check.Outcome
	var checkedAt int64

	row := s.db.QueryRow(
		`SELECT status, final_url, detail, code, checked_at FROM url_cache WHERE url = ?`, target)
	if err := row.Scan(&outcome.Status, &outcome.FinalTarget, &outcome.Detail, &outcome.Code, &checkedAt); err != nil {
		if err != sql.ErrNoRows {
			slog.Debug("Cache lookup failed", "url", target, "error", err)
		}
		return check.Outcome{}, false
	}

	ttl := s.ttl
	if outcome.Status == check.StatusBroken || outcome.Status == check.StatusError {
		ttl = s.failureTTL
	}
	if time.Since(time.Unix(checkedAt, 0)) >= ttl {
		return check.Outcome{}, false
	}
	return outcome, true
}

// Put stores an outcome, replacing any previous entry for the URL.
func (s *Store) Put(target string, outcome check.Outcome) {
	_, err := s.db.Exec(
		`INSERT INTO url_cache (url, status, final_url, detail, code, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			status = excluded.status,
			final_url = excluded.final_url,
			detail = excluded.detail,
			code = excluded.code,
			checked_at = excluded.checked_at`,
		target, string(outcome.Status), outcome.FinalTarget, outcome.Detail, outcome.Code, time.Now().Unix())
	if err != nil {
		slog.Debug("Cache write failed", "url", target, "error", err)
	}
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
