package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env / .env.local into the process environment without
// overriding variables that are already set. Missing files are not an
// error; a malformed file is logged and skipped.
func LoadDotEnv() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load env file", "path", path, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", path)
		return
	}
}

// applyEnv overlays MDCHECK_* environment variables onto opts. Unparsable
// values are logged and ignored rather than failing the run.
func applyEnv(opts *Options) {
	if v, ok := lookupDuration("MDCHECK_TIMEOUT"); ok {
		opts.Timeout = v
	}
	if v, ok := lookupInt("MDCHECK_WORKERS"); ok {
		opts.Workers = v
	}
	if v, ok := lookupBool("MDCHECK_CHECK_EXTERNAL"); ok {
		opts.CheckExternal = v
	}
	if v, ok := lookupBool("MDCHECK_CHECK_LOCAL"); ok {
		opts.CheckLocal = v
	}
	if v, ok := lookupBool("MDCHECK_PARALLEL"); ok {
		opts.Parallel = v
	}
	if v := os.Getenv("MDCHECK_CACHE_PATH"); v != "" {
		opts.Cache.Path = v
	}
	if v := os.Getenv("MDCHECK_NOTIFY_URL"); v != "" {
		opts.Notify.URL = v
	}
}

func lookupBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Ignoring unparsable environment variable", "key", key, "value", raw)
		return false, false
	}
	return v, true
}

func lookupInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring unparsable environment variable", "key", key, "value", raw)
		return 0, false
	}
	return v, true
}

func lookupDuration(key string) (time.Duration, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Ignoring unparsable environment variable", "key", key, "value", raw)
		return 0, false
	}
	return v, true
}
