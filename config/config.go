package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted in configuration.
const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
)

// Duration is a time.Duration that unmarshals from YAML strings like "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// GitHubApp holds GitHub App credentials, an alternative to a personal
// access token.
type GitHubApp struct {
	AppID          string `yaml:"appId"`
	InstallationID int64  `yaml:"installationId"`
	PrivateKeyPath string `yaml:"privateKeyPath"`
}

// Config holds all fixflow settings.
type Config struct {
	Provider      string    `yaml:"provider"`
	GitHubToken   string    `yaml:"githubToken"`
	GitHubApp     GitHubApp `yaml:"githubApp"`
	GitLabToken   string    `yaml:"gitlabToken"`
	GitLabBaseURL string    `yaml:"gitlabBaseUrl"`

	MaxAttempts int      `yaml:"maxAttempts"`
	BaseBranch  string   `yaml:"baseBranch"`
	TestTimeout Duration `yaml:"testTimeout"`
	DryRun      bool     `yaml:"dryRun"`

	Model       string `yaml:"model"`
	ArtifactDir string `yaml:"artifactDir"`
	PromptDir   string `yaml:"promptDir"`
	WebhookURL  string `yaml:"webhookUrl"`

	// Warnings collects non-fatal issues hit during resolution.
	Warnings []string `yaml:"-"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Provider:    ProviderGitHub,
		MaxAttempts: 3,
		BaseBranch:  "main",
		TestTimeout: Duration(10 * time.Minute),
		ArtifactDir: ".fixflow",
	}
}

// Load resolves configuration starting from startDir. Missing files are
// skipped; malformed files produce a warning, not an error.
func Load(startDir string) *Config {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		cfg.applyFile(filepath.Join(home, ".config", "fixflow", "config.yaml"))
	}
	if root := findGitRoot(startDir); root != "" {
		cfg.applyFile(filepath.Join(root, ".fixflow.yaml"))
	}
	cfg.applyEnv()

	return cfg
}

// LoadFile resolves configuration from one explicit file plus defaults
// and the environment. A missing or malformed file is an error here,
// since the caller asked for it by name.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// Validate checks that the configuration is usable for a run.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGitHub:
		if c.GitHubToken == "" && c.GitHubApp.AppID == "" {
			return fmt.Errorf("github provider requires githubToken or githubApp credentials")
		}
	case ProviderGitLab:
		if c.GitLabToken == "" {
			return fmt.Errorf("gitlab provider requires gitlabToken")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	if c.MaxAttempts < 1 {
		return fmt.Errorf("maxAttempts must be at least 1, got %d", c.MaxAttempts)
	}
	return nil
}

// applyFile merges one YAML file into the config. Zero values in the file
// leave existing settings untouched.
func (c *Config) applyFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	layer := &Config{}
	if err := yaml.Unmarshal(data, layer); err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}
	c.merge(layer)
}

func (c *Config) merge(layer *Config) {
	if layer.Provider != "" {
		c.Provider = layer.Provider
	}
	if layer.GitHubToken != "" {
		c.GitHubToken = layer.GitHubToken
	}
	if layer.GitHubApp.AppID != "" {
		c.GitHubApp = layer.GitHubApp
	}
	if layer.GitLabToken != "" {
		c.GitLabToken = layer.GitLabToken
	}
	if layer.GitLabBaseURL != "" {
		c.GitLabBaseURL = layer.GitLabBaseURL
	}
	if layer.MaxAttempts != 0 {
		c.MaxAttempts = layer.MaxAttempts
	}
	if layer.BaseBranch != "" {
		c.BaseBranch = layer.BaseBranch
	}
	if layer.TestTimeout != 0 {
		c.TestTimeout = layer.TestTimeout
	}
	if layer.DryRun {
		c.DryRun = true
	}
	if layer.Model != "" {
		c.Model = layer.Model
	}
	if layer.ArtifactDir != "" {
		c.ArtifactDir = layer.ArtifactDir
	}
	if layer.PromptDir != "" {
		c.PromptDir = layer.PromptDir
	}
	if layer.WebhookURL != "" {
		c.WebhookURL = layer.WebhookURL
	}
}

func (c *Config) applyEnv() {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := os.Getenv(key); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.Provider, "FIXFLOW_PROVIDER")
	setString(&c.GitHubToken, "FIXFLOW_GITHUB_TOKEN", "GITHUB_TOKEN")
	setString(&c.GitLabToken, "FIXFLOW_GITLAB_TOKEN", "GITLAB_TOKEN")
	setString(&c.GitLabBaseURL, "FIXFLOW_GITLAB_BASE_URL")
	setString(&c.BaseBranch, "FIXFLOW_BASE_BRANCH")
	setString(&c.Model, "FIXFLOW_MODEL")
	setString(&c.ArtifactDir, "FIXFLOW_ARTIFACT_DIR")
	setString(&c.PromptDir, "FIXFLOW_PROMPT_DIR")
	setString(&c.WebhookURL, "FIXFLOW_WEBHOOK_URL")

	if v := os.Getenv("FIXFLOW_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxAttempts = n
		} else {
			c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring FIXFLOW_MAX_ATTEMPTS=%q", v))
		}
	}
	if v := os.Getenv("FIXFLOW_TEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.TestTimeout = Duration(d)
		} else {
			c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring FIXFLOW_TEST_TIMEOUT=%q", v))
		}
	}
	if v := os.Getenv("FIXFLOW_DRY_RUN"); v != "" {
		c.DryRun = v == "true" || v == "1"
	}
}

// findGitRoot walks up from startDir looking for a .git directory.
func findGitRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
