package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// TrackerType identifies the external bug-tracking backend.
type TrackerType string

const (
	TrackerTypeBitbucket TrackerType = "bitbucket"
)

// BugSystem holds the configuration for a single external issue tracker.
type BugSystem struct {
	// ID is the unique identifier for this tracker instance. It is also
	// used as the keyring key suffix for the API password.
	ID string `mapstructure:"id" yaml:"id"`

	// Name is the user-defined label for this tracker.
	Name string `mapstructure:"name" yaml:"name"`

	// TrackerType selects the backend implementation.
	TrackerType TrackerType `mapstructure:"tracker_type" yaml:"tracker_type"`

	// BaseURL is the human-facing repository URL, e.g.
	// https://bitbucket.org/{workspace}/{repository}.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// APIURL optionally overrides the API host, which otherwise is
	// https://api.bitbucket.org.
	APIURL string `mapstructure:"api_url" yaml:"api_url,omitempty"`

	// APIUsername is the account name used for Basic authentication.
	APIUsername string `mapstructure:"api_username" yaml:"api_username"`
}

// StoreConfig holds settings for the local link database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	BugSystems []BugSystem `mapstructure:"bug_systems" yaml:"bug_systems"`
	Store      StoreConfig `mapstructure:"store" yaml:"store"`
	Log        LogConfig   `mapstructure:"log" yaml:"log"`
}

// BugSystem returns the configured tracker with the given ID.
func (c *AppConfig) BugSystem(id string) (BugSystem, bool) {
	for _, bs := range c.BugSystems {
		if bs.ID == id {
			return bs, true
		}
	}
	return BugSystem{}, false
}

// SetBugSystem replaces the tracker with the same ID or appends it.
func (c *AppConfig) SetBugSystem(bs BugSystem) {
	for i := range c.BugSystems {
		if c.BugSystems[i].ID == bs.ID {
			c.BugSystems[i] = bs
			return
		}
	}
	c.BugSystems = append(c.BugSystems, bs)
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/issuetracker/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultStorePath returns the default path of the link database.
func DefaultStorePath() string {
	return filepath.Join(configDir(), "links.db")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "issuetracker")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		BugSystems: []BugSystem{},
		Store: StoreConfig{
			Path: DefaultStorePath(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// A tracker without an explicit type is a Bitbucket one.
	for i := range cfg.BugSystems {
		if cfg.BugSystems[i].TrackerType == "" {
			cfg.BugSystems[i].TrackerType = TrackerTypeBitbucket
		}
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("bug_systems", cfg.BugSystems)
	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
