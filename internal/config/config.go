package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vilaca/org-issue-sync/internal/domain"
	"github.com/vilaca/org-issue-sync/internal/org"
)

// Config holds application configuration.
type Config struct {
	// Hosting platform: "github" or "gitlab"
	Platform string `yaml:"platform"`
	// API base URL (GitHub API root, or GitLab instance URL)
	BaseURL string `yaml:"base_url"`

	// File holding the bearer token
	TokenFile string `yaml:"token_file"`
	// Org document that receives the issues
	DocumentPath string `yaml:"document_path"`

	// Watched repositories (comma-separated list of project IDs)
	// Format for GitLab: project-id (e.g., "123,456")
	// Format for GitHub: owner/repo (e.g., "facebook/react,golang/go")
	WatchedRepos string `yaml:"watched_repos"`

	// GitHub lists pull requests as issues; they are skipped unless enabled
	IncludePullRequests bool `yaml:"include_pull_requests"`

	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	WaitTimeoutSeconds  int    `yaml:"wait_timeout_seconds"`
	TimeZone            string `yaml:"time_zone"`

	Todos TodoConfig `yaml:"todos"`
	Log   LogConfig  `yaml:"log"`
	OTel  OTelConfig `yaml:"otel"`
}

// TodoConfig is the TODO keyword vocabulary, name -> keyword.
// Entries from the config file are merged into the defaults
// (todo: TODO, done: DONE): a file can rebind "todo" or "done" to another
// keyword and add states, but the default names stay defined.
type TodoConfig struct {
	TodoStates map[string]string `yaml:"todo_states"`
	DoneStates map[string]string `yaml:"done_states"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type OTelConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Headers        string `yaml:"headers"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}

// Enabled returns true if an OTLP endpoint is configured.
func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

const (
	defaultPollIntervalSeconds = 5
	defaultWaitTimeoutSeconds  = 600
)

// DefaultPath returns the config file location under the user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "org-issue-sync", "config.yaml"), nil
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, in increasing order of precedence.
// An empty path means the default location, which may be absent.
func Load(path string) (*Config, error) {
	// Pick up a local .env if there is one
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	cfg := &Config{
		Platform:            domain.PlatformGitHub,
		PollIntervalSeconds: defaultPollIntervalSeconds,
		WaitTimeoutSeconds:  defaultWaitTimeoutSeconds,
		Todos: TodoConfig{
			TodoStates: map[string]string{"todo": "TODO"},
			DoneStates: map[string]string{"done": "DONE"},
		},
		Log: LogConfig{Level: "info", Format: "text"},
		OTel: OTelConfig{
			ServiceName:    "org-issue-sync",
			ServiceVersion: "dev",
		},
	}

	explicit := path != ""
	if !explicit {
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults(home)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Platform = getEnvOrDefault("ORG_ISSUE_SYNC_PLATFORM", c.Platform)
	c.BaseURL = getEnvOrDefault("ORG_ISSUE_SYNC_BASE_URL", c.BaseURL)
	c.TokenFile = getEnvOrDefault("ORG_ISSUE_SYNC_TOKEN_FILE", c.TokenFile)
	c.DocumentPath = getEnvOrDefault("ORG_ISSUE_SYNC_DOCUMENT", c.DocumentPath)
	c.WatchedRepos = getEnvOrDefault("WATCHED_REPOS", c.WatchedRepos)
	c.TimeZone = getEnvOrDefault("ORG_ISSUE_SYNC_TIME_ZONE", c.TimeZone)
	c.PollIntervalSeconds = getEnvInt("ORG_ISSUE_SYNC_POLL_INTERVAL_SECONDS", c.PollIntervalSeconds)
	c.WaitTimeoutSeconds = getEnvInt("ORG_ISSUE_SYNC_WAIT_TIMEOUT_SECONDS", c.WaitTimeoutSeconds)
	if v := os.Getenv("ORG_ISSUE_SYNC_INCLUDE_PULL_REQUESTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.IncludePullRequests = b
		}
	}

	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("LOG_FORMAT", c.Log.Format)

	c.OTel.Endpoint = getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTel.Endpoint)
	c.OTel.Headers = getEnvOrDefault("OTEL_EXPORTER_OTLP_HEADERS", c.OTel.Headers)
	c.OTel.ServiceName = getEnvOrDefault("OTEL_SERVICE_NAME", c.OTel.ServiceName)
	c.OTel.ServiceVersion = getEnvOrDefault("OTEL_SERVICE_VERSION", c.OTel.ServiceVersion)
}

// applyDefaults fills the platform-dependent paths under the home directory.
func (c *Config) applyDefaults(home string) {
	if c.TokenFile == "" {
		c.TokenFile = filepath.Join(home, "."+c.Platform+"_creds")
	}
	if c.DocumentPath == "" {
		c.DocumentPath = filepath.Join(home, "org", c.Platform+".org")
	}
	if c.BaseURL == "" {
		switch c.Platform {
		case domain.PlatformGitHub:
			c.BaseURL = "https://api.github.com"
		case domain.PlatformGitLab:
			c.BaseURL = "https://gitlab.com"
		}
	}

	c.TokenFile = expandHome(c.TokenFile, home)
	c.DocumentPath = expandHome(c.DocumentPath, home)
}

// Validate checks the configuration for values the run cannot work with.
func (c *Config) Validate() error {
	if c.Platform != domain.PlatformGitHub && c.Platform != domain.PlatformGitLab {
		return fmt.Errorf("unsupported platform %q", c.Platform)
	}
	if c.Todos.TodoStates["todo"] == "" {
		return errors.New(`todos.todo_states must define "todo"`)
	}
	if c.Todos.DoneStates["done"] == "" {
		return errors.New(`todos.done_states must define "done"`)
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll interval must be positive, got %d", c.PollIntervalSeconds)
	}
	if c.WaitTimeoutSeconds <= 0 {
		return fmt.Errorf("wait timeout must be positive, got %d", c.WaitTimeoutSeconds)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// GetWatchedRepos returns the list of watched repository IDs.
func (c *Config) GetWatchedRepos() []string {
	if c.WatchedRepos == "" {
		return nil
	}

	repos := strings.Split(c.WatchedRepos, ",")
	result := make([]string, 0, len(repos))
	for _, repo := range repos {
		repo = strings.TrimSpace(repo)
		if repo != "" {
			result = append(result, repo)
		}
	}
	return result
}

// Vocabulary returns the TODO keyword vocabulary for the org document.
func (c *Config) Vocabulary() org.Todos {
	return org.NewTodos(c.Todos.TodoStates, c.Todos.DoneStates)
}

// Location returns the time zone closed timestamps are rendered in.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

// IsDevelopment returns true when logs should be human-readable.
func (c *Config) IsDevelopment() bool {
	return c.Log.Format != "json"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
