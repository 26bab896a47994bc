package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for ipxact-meta
type Config struct {
	// Author is written into documents created by HDL import
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// Files is an explicit list of documents with optional library overrides
	Files []FileEntry `json:"files,omitempty" yaml:"files,omitempty"`

	// Libraries maps library names to the document trees they cover
	Libraries map[string]LibraryConfig `json:"libraries,omitempty" yaml:"libraries,omitempty"`

	// Resolve controls hierarchy resolution
	Resolve ResolveConfig `json:"resolve,omitempty" yaml:"resolve,omitempty"`

	// Import contains the VLNV defaults used by HDL import
	Import ImportConfig `json:"import,omitempty" yaml:"import,omitempty"`

	// Lint contains policy rule configuration
	Lint LintConfig `json:"lint,omitempty" yaml:"lint,omitempty"`

	// Analysis contains indexing options
	Analysis AnalysisConfig `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// LibraryConfig defines which IP-XACT documents make up a library
type LibraryConfig struct {
	// Files is a list of glob patterns for XML documents in this library
	Files []string `json:"files" yaml:"files"`

	// Exclude is a list of glob patterns to exclude from this library
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// IsThirdParty marks the library as third-party (suppress certain warnings)
	IsThirdParty bool `json:"isThirdParty,omitempty" yaml:"isThirdParty,omitempty"`
}

// FileEntry is an explicit file entry with optional library metadata
type FileEntry struct {
	File         string `json:"file" yaml:"file"`
	Library      string `json:"library,omitempty" yaml:"library,omitempty"`
	IsThirdParty bool   `json:"isThirdParty,omitempty" yaml:"isThirdParty,omitempty"`
}

// ResolveConfig controls how designs are resolved
type ResolveConfig struct {
	// MaxDepth limits design nesting (0 = default)
	MaxDepth int `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty"`

	// Strict fails on the first unreadable document instead of skipping it
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// ImportConfig holds the VLNV parts HDL import cannot derive from the source
type ImportConfig struct {
	Vendor  string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Library string `json:"library,omitempty" yaml:"library,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// LintConfig contains linting configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "warning", "error"
	Rules map[string]string `json:"rules,omitempty" yaml:"rules,omitempty"`

	// IgnorePatterns is a list of file patterns to skip loading entirely
	IgnorePatterns []string `json:"ignorePatterns,omitempty" yaml:"ignorePatterns,omitempty"`

	// PolicyDirs adds directories of *.rego files to the embedded rules
	PolicyDirs []string `json:"policyDirs,omitempty" yaml:"policyDirs,omitempty"`
}

// CacheConfig controls incremental indexing cache behavior
type CacheConfig struct {
	// Enabled turns on incremental cache usage
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// AnalysisConfig contains analysis options
type AnalysisConfig struct {
	// Timing writes a JSONL trace of the index, resolve and lint stages
	Timing bool `json:"timing,omitempty" yaml:"timing,omitempty"`

	// Cache controls incremental indexing cache behavior
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
}

const (
	defaultCacheDir = ".ipxact_meta_cache"
	defaultVersion  = "1.0"
	defaultMaxDepth = 32
)

var defaultLibraryFiles = []string{"*.xml", "**/*.xml"}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Libraries: map[string]LibraryConfig{
			"work": {
				Files:        append([]string(nil), defaultLibraryFiles...),
				Exclude:      []string{},
				IsThirdParty: false,
			},
		},
		Resolve: ResolveConfig{MaxDepth: defaultMaxDepth},
		Import:  ImportConfig{Library: "work", Version: defaultVersion},
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
		},
		Analysis: AnalysisConfig{
			Cache: CacheConfig{
				Enabled: boolPtr(true),
				Dir:     defaultCacheDir,
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

var configNames = []string{
	"ipxact_meta.json", ".ipxact_meta.json",
	"ipxact_meta.yaml", ".ipxact_meta.yaml",
	"ipxact_meta.yml", ".ipxact_meta.yml",
}

func candidates(dir string) []string {
	out := make([]string, 0, len(configNames))
	for _, name := range configNames {
		out = append(out, filepath.Join(dir, name))
	}
	return out
}

// Load finds and loads the configuration file
// Search order:
//  1. ./ipxact_meta.{json,yaml,yml} and the dot-prefixed variants
//  2. the same names under rootPath (if different from cwd)
//  3. ~/.config/ipxact_meta/config.{json,yaml}
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()
	searchPaths := candidates(cwd)

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths, candidates(rootPath)...)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".config", "ipxact_meta")
		searchPaths = append(searchPaths,
			filepath.Join(dir, "config.json"),
			filepath.Join(dir, "config.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFile loads configuration from a specific JSON or YAML file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.Libraries == nil {
		if len(c.Files) == 0 {
			c.Libraries = map[string]LibraryConfig{
				"work": {Files: append([]string(nil), defaultLibraryFiles...)},
			}
		} else {
			c.Libraries = map[string]LibraryConfig{}
		}
	}

	if c.Resolve.MaxDepth <= 0 {
		c.Resolve.MaxDepth = defaultMaxDepth
	}
	if c.Import.Library == "" {
		c.Import.Library = "work"
	}
	if c.Import.Version == "" {
		c.Import.Version = defaultVersion
	}
	if c.Import.Vendor == "" {
		c.Import.Vendor = c.Author
	}

	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}

	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = defaultCacheDir
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(true)
	}
}

// Save writes the configuration to a file, as YAML when the extension says so
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CacheEnabled reports whether the indexing cache is on.
func (c *Config) CacheEnabled() bool {
	return c.Analysis.Cache.Enabled == nil || *c.Analysis.Cache.Enabled
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true
}

// IsThirdPartyFile checks if a file belongs to a third-party library
func (c *Config) IsThirdPartyFile(filePath string) bool {
	for _, entry := range c.Files {
		if entry.File == "" {
			continue
		}
		if matchesPath(entry.File, filePath) {
			return entry.IsThirdParty
		}
	}
	for _, lib := range c.Libraries {
		if !lib.IsThirdParty {
			continue
		}
		for _, pattern := range lib.Files {
			if matchesPath(pattern, filePath) {
				return true
			}
		}
	}
	return false
}

// ShouldIgnoreFile checks if a file should be skipped entirely
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Lint.IgnorePatterns {
		if matchesPath(pattern, filePath) {
			return true
		}
	}
	return false
}

func matchesPath(pattern, filePath string) bool {
	if matched, _ := filepath.Match(pattern, filePath); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, filepath.Base(filePath))
	return matched
}
