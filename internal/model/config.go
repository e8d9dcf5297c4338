package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/nhle/imapfs/internal/vfs"
)

// ServerConfig holds the connection settings for one IMAP account.
type ServerConfig struct {
	// Host is the IMAP server hostname.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the IMAP service port (993 for implicit TLS).
	Port string `mapstructure:"port" yaml:"port"`

	// Username is the login account name.
	Username string `mapstructure:"username" yaml:"username"`

	// Password is optional; when empty the system keyring is consulted
	// for the account.
	Password string `mapstructure:"password" yaml:"password"`

	// TLS selects implicit TLS. When false the connection upgrades
	// with STARTTLS instead.
	TLS bool `mapstructure:"tls" yaml:"tls"`
}

// FetchConfig holds the default fetch behavior applied when callers
// pass no explicit options.
type FetchConfig struct {
	// Charset is the search charset requested from the server.
	Charset string `mapstructure:"charset" yaml:"charset"`

	// MarkSeen controls whether fetching message bodies sets the seen
	// flag on the server.
	MarkSeen bool `mapstructure:"mark_seen" yaml:"mark_seen"`

	// Bulk is the fetch chunking mode: 0 fetches one message per round
	// trip, -1 everything at once, n>0 chunks of n.
	Bulk int `mapstructure:"bulk" yaml:"bulk"`
}

// Options converts the fetch defaults into call options.
func (c FetchConfig) Options() vfs.ListOptions {
	opts := vfs.DefaultListOptions()
	if c.Charset != "" {
		opts.Charset = c.Charset
	}
	opts.MarkSeen = c.MarkSeen
	opts.Bulk = c.Bulk
	return opts
}

// Config is the top-level configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Fetch  FetchConfig  `mapstructure:"fetch" yaml:"fetch"`
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/imapfs/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "imapfs", "config.yaml")
}

// defaultConfig returns a sensible default configuration.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "993",
			TLS:  true,
		},
		Fetch: FetchConfig{
			Charset:  "US-ASCII",
			MarkSeen: true,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default
// configuration.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("server.port", "993")
	v.SetDefault("server.tls", true)
	v.SetDefault("fetch.charset", "US-ASCII")
	v.SetDefault("fetch.mark_seen", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("fetch", cfg.Fetch)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
