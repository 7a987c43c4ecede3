// internal/config/config.go
//
// This package handles configuration and the .shortlist directory structure.
// Every directory that shortlist runs from gets a .shortlist/ folder created
// in its root, holding config.yaml, logs/ and rules/.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ShortlistDir is the name of the directory we create in each workspace
	ShortlistDir = ".shortlist"

	defaultTimeoutSeconds = 15
)

const defaultConfigYAML = `# shortlist configuration
version: 1

# Sources are the two sheet exports the engine reads from. Both must be
# URLs that return CSV (a published Google Sheet export works).
sources:
  selection_csv: ""
  roster_csv: ""

# The roster write API. Create/update/delete requests are POSTed to
# {api_url}/create, {api_url}/update and {api_url}/delete.
roster:
  api_url: ""

# Decision notifications are POSTed here before any roster write happens.
webhook:
  url: ""

request:
  timeout_seconds: 15
`

// SourcesConfig names the two CSV exports the engine ingests.
type SourcesConfig struct {
	SelectionCSV string `yaml:"selection_csv"`
	RosterCSV    string `yaml:"roster_csv"`
}

// RosterConfig holds the write-side API endpoint.
type RosterConfig struct {
	APIURL string `yaml:"api_url"`
}

// WebhookConfig holds the decision notification endpoint.
type WebhookConfig struct {
	URL string `yaml:"url"`
}

// RequestConfig tunes outbound HTTP behavior.
type RequestConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ProjectConfig models .shortlist/config.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version"`
	Sources SourcesConfig `yaml:"sources"`
	Roster  RosterConfig  `yaml:"roster"`
	Webhook WebhookConfig `yaml:"webhook"`
	Request RequestConfig `yaml:"request"`
}

// Config holds the runtime configuration for shortlist.
type Config struct {
	// WorkDir is the directory where the user ran `shortlist` from
	WorkDir string

	// ShortlistProjectDir is WorkDir/.shortlist
	ShortlistProjectDir string

	Project ProjectConfig
}

// InitShortlistDir creates the .shortlist directory structure in the given
// workspace directory. This is called when the TUI starts up.
//
// Structure created:
// .shortlist/
// ├── config.yaml   <- Endpoints and request settings
// ├── logs/         <- Activity log written by the logbook
// └── rules/        <- Operator-defined queue filter rules (.yaml or .go)
func InitShortlistDir(workDir string) error {
	dir := filepath.Join(workDir, ShortlistDir)

	dirs := []string{
		filepath.Join(dir, "logs"),
		filepath.Join(dir, "rules"),
	}

	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}

	return ensureConfigFile(filepath.Join(dir, "config.yaml"))
}

// NewConfig creates a Config populated from .shortlist/config.yaml, with
// SHORTLIST_* environment variables taking precedence over file values.
func NewConfig(workDir string) (*Config, error) {
	cfg := &Config{
		WorkDir:             workDir,
		ShortlistProjectDir: filepath.Join(workDir, ShortlistDir),
		Project:             defaultProjectConfig(),
	}

	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.ShortlistProjectDir, "logs")
}

// RulesDir returns the directory scanned for queue filter rules
func (c *Config) RulesDir() string {
	return filepath.Join(c.ShortlistProjectDir, "rules")
}

// ConfigPath returns the on-disk location for the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.ShortlistProjectDir, "config.yaml")
}

// SelectionCSVURL returns the selection queue export URL.
func (c *Config) SelectionCSVURL() string {
	return c.Project.Sources.SelectionCSV
}

// RosterCSVURL returns the roster export URL.
func (c *Config) RosterCSVURL() string {
	return c.Project.Sources.RosterCSV
}

// RosterAPIURL returns the roster write API base URL.
func (c *Config) RosterAPIURL() string {
	return c.Project.Roster.APIURL
}

// WebhookURL returns the decision notification endpoint.
func (c *Config) WebhookURL() string {
	return c.Project.Webhook.URL
}

// RequestTimeout returns the outbound HTTP timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Project.Request.TimeoutSeconds) * time.Second
}

func (c *Config) loadProjectConfig() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()

	c.Project = parsed
	return nil
}

// applyEnvOverrides lets deployments point at different endpoints without
// editing the config file.
func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("SHORTLIST_SELECTION_URL")); v != "" {
		c.Project.Sources.SelectionCSV = v
	}
	if v := strings.TrimSpace(os.Getenv("SHORTLIST_ROSTER_CSV_URL")); v != "" {
		c.Project.Sources.RosterCSV = v
	}
	if v := strings.TrimSpace(os.Getenv("SHORTLIST_ROSTER_API_URL")); v != "" {
		c.Project.Roster.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SHORTLIST_WEBHOOK_URL")); v != "" {
		c.Project.Webhook.URL = v
	}
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Request: RequestConfig{TimeoutSeconds: defaultTimeoutSeconds},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Request.TimeoutSeconds == 0 {
		pc.Request.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Sources.SelectionCSV = strings.TrimSpace(pc.Sources.SelectionCSV)
	pc.Sources.RosterCSV = strings.TrimSpace(pc.Sources.RosterCSV)
	pc.Roster.APIURL = strings.TrimRight(strings.TrimSpace(pc.Roster.APIURL), "/")
	pc.Webhook.URL = strings.TrimSpace(pc.Webhook.URL)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Request.TimeoutSeconds < 1 {
		return fmt.Errorf("request.timeout_seconds must be >= 1")
	}
	for name, raw := range map[string]string{
		"sources.selection_csv": pc.Sources.SelectionCSV,
		"sources.roster_csv":    pc.Sources.RosterCSV,
		"roster.api_url":        pc.Roster.APIURL,
		"webhook.url":           pc.Webhook.URL,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// validateURL accepts empty values; a missing endpoint surfaces as an
// operation error later, not a startup failure.
func validateURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("URL is missing a host")
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0644)
}
