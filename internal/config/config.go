// Package config resolves mdcheck options from defaults, a discovered
// .mdcheck.yaml file, environment variables and CLI flags, in that
// precedence order (CLI highest). The resolved Options value is immutable
// for the duration of a run; the engine never mutates it.
package config

import (
	"runtime"
	"time"

	"git.home.luguber.info/inful/mdcheck/internal/errors"
)

// Options is the fully-resolved configuration for one invocation.
type Options struct {
	Paths []string // candidate roots; defaults to the working directory

	CheckLocal      bool
	CheckExternal   bool
	CheckLinks      bool
	CheckImages     bool
	FollowGitignore bool
	IncludePattern  string
	ExcludePattern  string
	Timeout         time.Duration
	Workers         int // 0 means one worker per CPU
	Parallel        bool
	FixRedirects    bool
	FailOnInvalid   bool
	Output          string // optional report file

	Cache  CacheOptions
	Notify NotifyOptions
}

// CacheOptions configures the persistent external-check result cache.
// The cache is disabled unless Path is set.
type CacheOptions struct {
	Path       string
	TTL        time.Duration
	FailureTTL time.Duration
}

// NotifyOptions configures broken-link event publishing.
// Publishing is disabled unless URL is set.
type NotifyOptions struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Defaults returns the built-in option values, matching the documented
// behavior when neither config file nor flags are present.
func Defaults() Options {
	return Options{
		CheckLocal:      true,
		CheckExternal:   true,
		CheckLinks:      true,
		CheckImages:     true,
		FollowGitignore: true,
		IncludePattern:  "*.md",
		Timeout:         30 * time.Second,
		Parallel:        true,
		FailOnInvalid:   true,
		Cache: CacheOptions{
			TTL:        24 * time.Hour,
			FailureTTL: time.Hour,
		},
		Notify: NotifyOptions{
			Subject: "mdcheck.broken_link",
		},
	}
}

// EffectiveWorkers resolves the worker count for the external checker:
// the configured count, one per CPU when unset, and always 1 when parallel
// processing is disabled.
func (o Options) EffectiveWorkers() int {
	if !o.Parallel {
		return 1
	}
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// Validate rejects option combinations the engine cannot run with.
// Violations are fatal for the run and surface before any engine work.
func (o Options) Validate() error {
	if !o.CheckLinks && !o.CheckImages {
		return errors.ConfigError("both link and image checking disabled; nothing to do").Build()
	}
	if o.Timeout <= 0 {
		return errors.ConfigError("timeout must be positive").WithContext("timeout", o.Timeout.String()).Build()
	}
	if o.Workers < 0 {
		return errors.ConfigError("workers must not be negative").WithContext("workers", o.Workers).Build()
	}
	if o.IncludePattern == "" {
		return errors.ConfigError("include pattern must not be empty").Build()
	}
	return nil
}
