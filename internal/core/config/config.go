// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-07

// Package config handles loading and merging migration configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCutoff is the release date before which untouched open artifacts
// are considered abandoned.
const DefaultCutoff = "2017-07-21T00:00:00+02:00"

// Config is the root configuration structure.
type Config struct {
	// Extends inherits from a base config: a local path or "org/repo@branch[:path]".
	Extends string `yaml:"extends,omitempty"`

	// Source configures the Tuleap tracker being migrated.
	Source SourceConfig `yaml:"source"`

	// Target configures the GitHub repository receiving the issues.
	Target TargetConfig `yaml:"target"`

	// Assignees maps Tuleap usernames to GitHub logins.
	Assignees map[string]string `yaml:"assignees,omitempty"`

	// Projects maps Tuleap platform names to "owner/repo" or a bare repo name.
	Projects map[string]string `yaml:"projects,omitempty"`

	// Labels are pre-created on the target by the labels command.
	Labels []LabelConfig `yaml:"labels,omitempty"`

	Migration MigrationConfig `yaml:"migration"`
	Selection SelectionConfig `yaml:"selection"`
	Retry     RetryConfig     `yaml:"retry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SourceConfig holds Tuleap connection settings.
type SourceConfig struct {
	URL       string        `yaml:"url"`
	Tracker   int           `yaml:"tracker"`
	AccessKey string        `yaml:"access_key,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// TargetConfig holds GitHub settings.
type TargetConfig struct {
	Owner             string        `yaml:"owner"`
	Repo              string        `yaml:"repo"`
	Token             string        `yaml:"token,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	AttachmentsBranch string        `yaml:"attachments_branch,omitempty"`
	AttachmentsPath   string        `yaml:"attachments_path,omitempty"`
	GraphQLURL        string        `yaml:"graphql_url,omitempty"`
}

// LabelConfig describes a label to create on the target.
type LabelConfig struct {
	Name        string `yaml:"name"`
	Color       string `yaml:"color,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// MigrationConfig controls assembly.
type MigrationConfig struct {
	// Cutoff is an RFC 3339 timestamp (default: DefaultCutoff).
	Cutoff string `yaml:"cutoff,omitempty"`

	// AttachmentsRoot is where downloaded files are stored.
	AttachmentsRoot string `yaml:"attachments_root,omitempty"`

	// Workers is the number of artifacts assembled in parallel (default: 1).
	Workers int `yaml:"workers,omitempty"`

	// Workflow is a preset name ("full" or "no-attachments").
	Workflow string `yaml:"workflow,omitempty"`

	// Steps is a custom list of pipeline steps (overrides workflow).
	Steps []string `yaml:"steps,omitempty"`

	// AttachmentsFatal aborts the artifact when an attachment cannot be fetched.
	AttachmentsFatal bool `yaml:"attachments_fatal,omitempty"`

	// Ledger is the SQLite file recording runs.
	Ledger string `yaml:"ledger,omitempty"`
}

// SelectionConfig filters artifacts before their details are fetched.
type SelectionConfig struct {
	SkipDone              bool `yaml:"skip_done"`
	SkipDeclined          bool `yaml:"skip_declined"`
	SkipStaleBeforeCutoff bool `yaml:"skip_stale_before_cutoff"`
}

// RetryConfig tunes the backoff applied to transient I/O failures.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries,omitempty"`
	BaseDelay  time.Duration `yaml:"base_delay,omitempty"`
	MaxDelay   time.Duration `yaml:"max_delay,omitempty"`
}

// LoggingConfig selects the log level and output format ("console" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Load reads a config file from the given path and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := parseRaw(data)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return cfg, nil
}

// parseRaw expands environment variables and decodes YAML without defaults.
func parseRaw(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// LoadWithInheritance loads a config and resolves the 'extends' chain.
// The fetcher function is used to retrieve parent configs.
func LoadWithInheritance(path string, fetcher func(ref string) ([]byte, error)) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := parseRaw(data)
	if err != nil {
		return nil, err
	}

	if cfg.Extends == "" {
		cfg.applyDefaults()
		return cfg, nil
	}

	parentData, err := fetcher(cfg.Extends)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch parent config '%s': %w", cfg.Extends, err)
	}

	parentCfg, err := parseRaw(parentData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse parent config: %w", err)
	}

	// Merge: child overrides parent
	merged := mergeConfigs(parentCfg, cfg)
	merged.applyDefaults()

	return merged, nil
}

// LocalFetcher resolves extends references as files relative to dir.
// Remote references ("org/repo@branch") are delegated to remote when set.
func LocalFetcher(dir string, remote func(ref string) ([]byte, error)) func(ref string) ([]byte, error) {
	return func(ref string) ([]byte, error) {
		if strings.Contains(ref, "@") && remote != nil {
			return remote(ref)
		}
		if !filepath.IsAbs(ref) {
			ref = filepath.Join(dir, ref)
		}
		return os.ReadFile(ref)
	}
}

// FindConfigPath searches for a config file in standard locations.
func FindConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	candidates := []string{
		"tuleap-migrate.yaml",
		"tuleap-migrate.yml",
		".tuleap-migrate.yaml",
		".tuleap-migrate.yml",
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			abs, _ := filepath.Abs(c)
			return abs
		}
	}

	return ""
}

// applyDefaults sets default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Source.Timeout == 0 {
		c.Source.Timeout = 30 * time.Second
	}
	if c.Target.Timeout == 0 {
		c.Target.Timeout = 30 * time.Second
	}
	if c.Target.AttachmentsPath == "" {
		c.Target.AttachmentsPath = "tuleap-attachments"
	}
	if c.Target.GraphQLURL == "" {
		c.Target.GraphQLURL = "https://api.github.com/graphql"
	}
	if c.Migration.Cutoff == "" {
		c.Migration.Cutoff = DefaultCutoff
	}
	if c.Migration.AttachmentsRoot == "" {
		c.Migration.AttachmentsRoot = "attachments"
	}
	if c.Migration.Workers <= 0 {
		c.Migration.Workers = 1
	}
	if c.Migration.Ledger == "" {
		c.Migration.Ledger = "tuleap-migrate.db"
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = 500 * time.Millisecond
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// CutoffTime parses Migration.Cutoff.
func (c *Config) CutoffTime() (time.Time, error) {
	raw := c.Migration.Cutoff
	if raw == "" {
		raw = DefaultCutoff
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid migration.cutoff %q: %w", raw, err)
	}
	return t, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Source.URL == "" {
		errs = append(errs, errors.New("source.url is required"))
	}
	if c.Source.Tracker <= 0 {
		errs = append(errs, errors.New("source.tracker must be a positive tracker id"))
	}
	if c.Target.Owner == "" {
		errs = append(errs, errors.New("target.owner is required"))
	}
	if c.Target.Repo == "" {
		errs = append(errs, errors.New("target.repo is required"))
	}
	if _, err := c.CutoffTime(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// mergeConfigs merges a child config onto a parent config.
// Non-zero values in child override parent.
func mergeConfigs(parent, child *Config) *Config {
	result := *parent

	if child.Source.URL != "" {
		result.Source.URL = child.Source.URL
	}
	if child.Source.Tracker != 0 {
		result.Source.Tracker = child.Source.Tracker
	}
	if child.Source.AccessKey != "" {
		result.Source.AccessKey = child.Source.AccessKey
	}
	if child.Source.Timeout != 0 {
		result.Source.Timeout = child.Source.Timeout
	}

	if child.Target.Owner != "" {
		result.Target.Owner = child.Target.Owner
	}
	if child.Target.Repo != "" {
		result.Target.Repo = child.Target.Repo
	}
	if child.Target.Token != "" {
		result.Target.Token = child.Target.Token
	}
	if child.Target.Timeout != 0 {
		result.Target.Timeout = child.Target.Timeout
	}
	if child.Target.AttachmentsBranch != "" {
		result.Target.AttachmentsBranch = child.Target.AttachmentsBranch
	}
	if child.Target.AttachmentsPath != "" {
		result.Target.AttachmentsPath = child.Target.AttachmentsPath
	}
	if child.Target.GraphQLURL != "" {
		result.Target.GraphQLURL = child.Target.GraphQLURL
	}

	// Maps: child entries win, parent entries are kept
	result.Assignees = mergeMaps(parent.Assignees, child.Assignees)
	result.Projects = mergeMaps(parent.Projects, child.Projects)

	// Labels: child completely overrides if non-empty
	if len(child.Labels) > 0 {
		result.Labels = child.Labels
	}

	if child.Migration.Cutoff != "" {
		result.Migration.Cutoff = child.Migration.Cutoff
	}
	if child.Migration.AttachmentsRoot != "" {
		result.Migration.AttachmentsRoot = child.Migration.AttachmentsRoot
	}
	if child.Migration.Workers != 0 {
		result.Migration.Workers = child.Migration.Workers
	}
	if child.Migration.Workflow != "" {
		result.Migration.Workflow = child.Migration.Workflow
	}
	if len(child.Migration.Steps) > 0 {
		result.Migration.Steps = child.Migration.Steps
	}
	if child.Migration.Ledger != "" {
		result.Migration.Ledger = child.Migration.Ledger
	}
	// Booleans: always take the child value so it can override parent true -> false
	result.Migration.AttachmentsFatal = child.Migration.AttachmentsFatal
	result.Selection = child.Selection

	if child.Retry.MaxRetries != 0 {
		result.Retry.MaxRetries = child.Retry.MaxRetries
	}
	if child.Retry.BaseDelay != 0 {
		result.Retry.BaseDelay = child.Retry.BaseDelay
	}
	if child.Retry.MaxDelay != 0 {
		result.Retry.MaxDelay = child.Retry.MaxDelay
	}

	if child.Logging.Level != "" {
		result.Logging.Level = child.Logging.Level
	}
	if child.Logging.Format != "" {
		result.Logging.Format = child.Logging.Format
	}

	result.Extends = ""
	return &result
}

func mergeMaps(parent, child map[string]string) map[string]string {
	if len(parent) == 0 && len(child) == 0 {
		return nil
	}
	out := make(map[string]string, len(parent)+len(child))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

// ParseExtendsRef parses "org/repo@branch" into components.
func ParseExtendsRef(ref string) (org, repo, branch, path string, err error) {
	// Format: org/repo@branch or org/repo@branch:path
	parts := strings.SplitN(ref, "@", 2)
	if len(parts) != 2 {
		return "", "", "", "", fmt.Errorf("invalid extends reference: %s (expected org/repo@branch)", ref)
	}

	orgRepo := strings.SplitN(parts[0], "/", 2)
	if len(orgRepo) != 2 {
		return "", "", "", "", fmt.Errorf("invalid extends reference: %s (expected org/repo)", ref)
	}

	org = orgRepo[0]
	repo = orgRepo[1]

	branchPath := strings.SplitN(parts[1], ":", 2)
	branch = branchPath[0]
	if len(branchPath) == 2 {
		path = branchPath[1]
	} else {
		path = "tuleap-migrate.yaml"
	}

	return org, repo, branch, path, nil
}

// ResolveToken returns the GitHub token from target.token, then GITHUB_TOKEN,
// then fallback (typically the OS keyring). It returns "" when none is set.
func (c *Config) ResolveToken(fallback func() (string, error)) string {
	if c.Target.Token != "" {
		return c.Target.Token
	}
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok
	}
	if fallback != nil {
		if tok, err := fallback(); err == nil {
			return tok
		}
	}
	return ""
}
