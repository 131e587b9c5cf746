package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RedisConfig holds connection settings for the Redis store driver.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`

	// Prefix namespaces every key written by this application.
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// StoreConfig selects and configures the durable shared store.
type StoreConfig struct {
	// Driver is "sqlite" or "redis".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the SQLite database file.
	Path string `mapstructure:"path" yaml:"path"`

	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// PollConfig controls the unread counter poller.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// DisplayConfig holds rendering preferences.
type DisplayConfig struct {
	// Locale is a BCP 47 tag used for calendar dates older than a week.
	Locale string `mapstructure:"locale" yaml:"locale"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`

	// File receives log output instead of stderr when set.
	File string `mapstructure:"file" yaml:"file"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr      string        `mapstructure:"addr" yaml:"addr"`
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// DigestConfig holds settings for exported notification digests.
type DigestConfig struct {
	From string `mapstructure:"from" yaml:"from"`
}

// SessionConfig holds settings for the keyring-backed session.
type SessionConfig struct {
	Service string `mapstructure:"service" yaml:"service"`
	FileDir string `mapstructure:"file_dir" yaml:"file_dir"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Digest  DigestConfig  `mapstructure:"digest" yaml:"digest"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
}

// configDir returns ~/.config/quizledger, or the working directory when the
// home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "quizledger")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/quizledger/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// setDefaults registers every key so that env overrides resolve on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", filepath.Join(configDir(), "ledger.db"))
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "quizledger:")

	v.SetDefault("poll.interval", "3s")
	v.SetDefault("display.locale", "en-US")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("server.addr", ":8086")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", "24h")

	v.SetDefault("digest.from", "notifications@quizmaster.com")

	v.SetDefault("session.service", "quizledger")
	v.SetDefault("session.file_dir", filepath.Join(configDir(), "session"))
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file is not an error; defaults and QUIZLEDGER_* environment
// variables still apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("QUIZLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		_, pathErr := err.(*os.PathError)
		if !notFound && !pathErr {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("invalid store.driver %q: must be sqlite or redis", c.Store.Driver)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("invalid poll.interval %s: must be positive", c.Poll.Interval)
	}
	return nil
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

	v.Set("store", cfg.Store)
	v.Set("poll.interval", cfg.Poll.Interval.String())
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.jwt_secret", cfg.Server.JWTSecret)
	v.Set("server.token_ttl", cfg.Server.TokenTTL.String())
	v.Set("digest", cfg.Digest)
	v.Set("session", cfg.Session)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
