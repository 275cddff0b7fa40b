// Package config loads pkgscout configuration from a YAML file with
// environment-variable expansion for secrets.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the raw structure of pkgscout.yaml.
type File struct {
	BatchSize          int      `yaml:"batch_size"`
	Cooldown           string   `yaml:"cooldown"`           // Duration string like "1h"
	Interval           string   `yaml:"interval"`           // Scan cadence, like "1h"
	ScoreThreshold     float64  `yaml:"score_threshold"`    // Minimum analysis score to notify
	RelevanceThreshold float64  `yaml:"relevance_threshold"` // Minimum judged-match score to persist
	Topics             []string `yaml:"topics"`
	ManifestPath       string   `yaml:"manifest_path"`
	Language           string   `yaml:"language"`
	DBPath             string   `yaml:"db_path"`

	Forge FileForge `yaml:"forge"`
	Pool  FilePool  `yaml:"pool"`

	Credentials []FileCredential `yaml:"credentials"`
}

// FileForge holds code-hosting API settings.
type FileForge struct {
	Token   string  `yaml:"token"` // Supports $ENV_VAR references
	BaseURL string  `yaml:"base_url"`
	RPS     float64 `yaml:"rps"` // Client-side rate limit, requests per second
}

// FilePool holds completion-service scheduler settings.
type FilePool struct {
	Quota         int    `yaml:"quota"`  // Requests per credential per window
	Window        string `yaml:"window"` // Rolling window, like "1m"
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// FileCredential is one completion-service credential entry.
type FileCredential struct {
	Label  string `yaml:"label"`
	APIKey string `yaml:"api_key"` // Supports $ENV_VAR references
	Model  string `yaml:"model"`
}

// Config is the validated runtime configuration.
type Config struct {
	BatchSize          int
	Cooldown           time.Duration
	Interval           time.Duration
	ScoreThreshold     float64
	RelevanceThreshold float64
	Topics             []string
	ManifestPath       string
	Language           string
	DBPath             string

	ForgeToken   string
	ForgeBaseURL string
	ForgeRPS     float64

	PoolQuota         int
	PoolWindow        time.Duration
	PoolMaxConcurrent int

	Credentials []Credential
}

// Credential is a resolved completion-service credential.
type Credential struct {
	Label  string
	APIKey string
	Model  string
}

// Default returns the configuration used when no file is present.
// Thresholds carry the observed production values; both are
// deployment-tunable via the config file.
func Default() *Config {
	return &Config{
		BatchSize:          10,
		Cooldown:           time.Hour,
		Interval:           time.Hour,
		ScoreThreshold:     7.0,
		RelevanceThreshold: 0.7,
		Topics:             []string{"go", "library"},
		ManifestPath:       "package.json",
		Language:           "en",
		DBPath:             "pkgscout.db",
		ForgeBaseURL:       "https://api.github.com",
		ForgeRPS:           5,
		PoolQuota:          50,
		PoolWindow:         time.Minute,
		PoolMaxConcurrent:  3,
	}
}

// Load reads the config file at path. A missing file yields defaults;
// a malformed one is an error.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		applyEnv(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg, err := file.ToConfig()
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

// ToConfig converts the raw file into a validated Config, applying
// defaults for everything unset.
func (f *File) ToConfig() (*Config, error) {
	cfg := Default()

	if f.BatchSize > 0 {
		cfg.BatchSize = f.BatchSize
	}
	if f.Cooldown != "" {
		d, err := time.ParseDuration(f.Cooldown)
		if err != nil {
			return nil, fmt.Errorf("invalid cooldown: %w", err)
		}
		cfg.Cooldown = d
	}
	if f.Interval != "" {
		d, err := time.ParseDuration(f.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
		cfg.Interval = d
	}
	if f.ScoreThreshold > 0 {
		if f.ScoreThreshold > 10 {
			return nil, fmt.Errorf("score_threshold must be in [0,10] (got %v)", f.ScoreThreshold)
		}
		cfg.ScoreThreshold = f.ScoreThreshold
	}
	if f.RelevanceThreshold > 0 {
		if f.RelevanceThreshold > 1 {
			return nil, fmt.Errorf("relevance_threshold must be in [0,1] (got %v)", f.RelevanceThreshold)
		}
		cfg.RelevanceThreshold = f.RelevanceThreshold
	}
	if len(f.Topics) > 0 {
		cfg.Topics = f.Topics
	}
	if f.ManifestPath != "" {
		cfg.ManifestPath = f.ManifestPath
	}
	if f.Language != "" {
		cfg.Language = f.Language
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}

	if f.Forge.Token != "" {
		cfg.ForgeToken = expandEnv(f.Forge.Token)
	}
	if f.Forge.BaseURL != "" {
		cfg.ForgeBaseURL = strings.TrimSuffix(f.Forge.BaseURL, "/")
	}
	if f.Forge.RPS > 0 {
		cfg.ForgeRPS = f.Forge.RPS
	}

	if f.Pool.Quota > 0 {
		cfg.PoolQuota = f.Pool.Quota
	}
	if f.Pool.Window != "" {
		d, err := time.ParseDuration(f.Pool.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid pool window: %w", err)
		}
		cfg.PoolWindow = d
	}
	if f.Pool.MaxConcurrent > 0 {
		cfg.PoolMaxConcurrent = f.Pool.MaxConcurrent
	}

	for i, fc := range f.Credentials {
		key := expandEnv(fc.APIKey)
		if key == "" {
			return nil, fmt.Errorf("credential %d: api_key is empty after expansion", i)
		}
		label := fc.Label
		if label == "" {
			label = fmt.Sprintf("cred-%d", i)
		}
		cfg.Credentials = append(cfg.Credentials, Credential{
			Label:  label,
			APIKey: key,
			Model:  fc.Model,
		})
	}

	return cfg, nil
}

// applyEnv fills secrets from the environment when the file left them
// unset: FORGE_TOKEN for the hosting API, ANTHROPIC_API_KEY as a
// single-credential fallback.
func applyEnv(cfg *Config) {
	if cfg.ForgeToken == "" {
		cfg.ForgeToken = os.Getenv("FORGE_TOKEN")
	}
	if len(cfg.Credentials) == 0 {
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.Credentials = append(cfg.Credentials, Credential{
				Label:  "default",
				APIKey: key,
			})
		}
	}
}

// expandEnv resolves $VAR references in secret fields; literal values
// pass through unchanged.
func expandEnv(v string) string {
	if strings.HasPrefix(v, "$") {
		return os.Getenv(strings.TrimPrefix(v, "$"))
	}
	return v
}
