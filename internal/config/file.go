package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mdcheck/internal/errors"
)

// FileName is the per-project configuration file discovered by walking up
// the directory tree from the working directory.
const FileName = ".mdcheck.yaml"

// fileConfig mirrors the yaml layout of .mdcheck.yaml. Pointer fields so
// absent keys fall through to lower-precedence sources.
type fileConfig struct {
	Paths           []string         `yaml:"paths"`
	CheckLocal      *bool            `yaml:"check_local"`
	CheckExternal   *bool            `yaml:"check_external"`
	CheckLinks      *bool            `yaml:"check_links"`
	CheckImages     *bool            `yaml:"check_images"`
	FollowGitignore *bool            `yaml:"follow_gitignore"`
	Include         *string          `yaml:"include"`
	Exclude         *string          `yaml:"exclude"`
	Timeout         *duration        `yaml:"timeout"`
	Workers         *int             `yaml:"workers"`
	Parallel        *bool            `yaml:"parallel"`
	FixRedirects    *bool            `yaml:"fix_redirects"`
	Fail            *bool            `yaml:"fail"`
	Output          *string          `yaml:"output"`
	Cache           *cacheFileConfig `yaml:"cache"`
	Notify          *NotifyOptions   `yaml:"notify"`
}

type cacheFileConfig struct {
	Path       string   `yaml:"path"`
	TTL        duration `yaml:"ttl"`
	FailureTTL duration `yaml:"failure_ttl"`
}

// duration accepts yaml values in Go duration syntax ("30s", "2h").
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// FindConfigFile walks up from startDir looking for FileName.
// Returns an empty string when no config file exists.
func FindConfigFile(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load resolves Options for one invocation: defaults, overlaid by the
// config file at path (skipped when path is empty), overlaid by MDCHECK_*
// environment variables. CLI flags apply on top in the command layer.
func Load(path string) (Options, error) {
	opts := Defaults()

	if path != "" {
		if err := applyFile(&opts, path); err != nil {
			return opts, err
		}
	}
	applyEnv(&opts)

	return opts, nil
}

func applyFile(opts *Options, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from config discovery
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, "failed to read config file").WithContext("path", path).Build()
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return errors.Wrap(err, errors.CategoryConfig, "failed to parse config file").Fatal().WithContext("path", path).Build()
	}

	if len(fc.Paths) > 0 {
		opts.Paths = fc.Paths
	}
	setBool(&opts.CheckLocal, fc.CheckLocal)
	setBool(&opts.CheckExternal, fc.CheckExternal)
	setBool(&opts.CheckLinks, fc.CheckLinks)
	setBool(&opts.CheckImages, fc.CheckImages)
	setBool(&opts.FollowGitignore, fc.FollowGitignore)
	setString(&opts.IncludePattern, fc.Include)
	setString(&opts.ExcludePattern, fc.Exclude)
	setBool(&opts.Parallel, fc.Parallel)
	setBool(&opts.FixRedirects, fc.FixRedirects)
	setBool(&opts.FailOnInvalid, fc.Fail)
	setString(&opts.Output, fc.Output)
	if fc.Timeout != nil {
		opts.Timeout = time.Duration(*fc.Timeout)
	}
	if fc.Workers != nil {
		opts.Workers = *fc.Workers
	}
	if fc.Cache != nil {
		if fc.Cache.Path != "" {
			opts.Cache.Path = fc.Cache.Path
		}
		if fc.Cache.TTL > 0 {
			opts.Cache.TTL = time.Duration(fc.Cache.TTL)
		}
		if fc.Cache.FailureTTL > 0 {
			opts.Cache.FailureTTL = time.Duration(fc.Cache.FailureTTL)
		}
	}
	if fc.Notify != nil {
		if fc.Notify.URL != "" {
			opts.Notify.URL = fc.Notify.URL
		}
		if fc.Notify.Subject != "" {
			opts.Notify.Subject = fc.Notify.Subject
		}
	}

	return nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
