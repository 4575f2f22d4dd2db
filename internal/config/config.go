package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/areajoin/internal/join"
	"github.com/areajoin/internal/matcher"
	"github.com/areajoin/internal/normalize"
	"github.com/areajoin/internal/similarity"
)

// EnvPrefix prefixes every environment override, e.g. AREAJOIN_POSTAL_THRESHOLD.
const EnvPrefix = "AREAJOIN"

// JoinDefaults is a named preset of normalization kind, scorer mode and
// threshold.
type JoinDefaults struct {
	Kind      string  `mapstructure:"kind"`
	Mode      string  `mapstructure:"mode"`
	Threshold float64 `mapstructure:"threshold"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// WebConfig contains HTTP server settings
type WebConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	APIKey       string        `mapstructure:"api_key"`
}

// Config is the merged configuration of defaults, config file and
// environment.
type Config struct {
	Postal     JoinDefaults   `mapstructure:"postal"`
	Address    JoinDefaults   `mapstructure:"address"`
	Workers    int            `mapstructure:"workers"`
	Blocking   bool           `mapstructure:"blocking"`
	CacheSize  int            `mapstructure:"cache_size"`
	NullMarker string         `mapstructure:"null_marker"`
	Database   DatabaseConfig `mapstructure:"database"`
	Web        WebConfig      `mapstructure:"web"`
	Debug      bool           `mapstructure:"debug"`
}

// SetDefaults registers every key so environment overrides are seen by
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("postal.kind", normalize.PostalCode.String())
	v.SetDefault("postal.mode", similarity.Ratio.String())
	v.SetDefault("postal.threshold", 70.0)
	v.SetDefault("address.kind", normalize.FreeText.String())
	v.SetDefault("address.mode", similarity.TokenSortRatio.String())
	v.SetDefault("address.threshold", 80.0)
	v.SetDefault("workers", 0)
	v.SetDefault("blocking", true)
	v.SetDefault("cache_size", 4096)
	v.SetDefault("null_marker", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("web.host", "0.0.0.0")
	v.SetDefault("web.port", 8080)
	v.SetDefault("web.read_timeout", 15*time.Second)
	v.SetDefault("web.write_timeout", 60*time.Second)
	v.SetDefault("web.max_body_bytes", int64(32<<20))
	v.SetDefault("web.api_key", "")
	v.SetDefault("debug", false)
}

// Load reads the config file set on v, if any, applies AREAJOIN_* environment
// overrides and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks presets and limits.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Postal.Options("", ""); err != nil {
		errs = append(errs, fmt.Errorf("postal: %w", err))
	}
	if _, err := c.Address.Options("", ""); err != nil {
		errs = append(errs, fmt.Errorf("address: %w", err))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative: got %d", c.Workers))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache_size must not be negative: got %d", c.CacheSize))
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		errs = append(errs, fmt.Errorf("web.port out of range: %d", c.Web.Port))
	}
	return errors.Join(errs...)
}

// Preset returns the named join preset: "postal" or "address".
func (c *Config) Preset(name string) (JoinDefaults, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postal", "postcode", "zip":
		return c.Postal, nil
	case "address", "text":
		return c.Address, nil
	}
	return JoinDefaults{}, fmt.Errorf("unknown preset %q", name)
}

// Options turns the preset into join options for the given key columns,
// leaving workers and blocking to the caller.
func (d JoinDefaults) Options(leftKey, rightKey string) (join.Options, error) {
	kind, err := normalize.ParseKind(d.Kind)
	if err != nil {
		return join.Options{}, err
	}
	mode, err := similarity.ParseMode(d.Mode)
	if err != nil {
		return join.Options{}, err
	}
	if err := matcher.ValidateThreshold(d.Threshold); err != nil {
		return join.Options{}, err
	}
	return join.Options{
		LeftKey:   leftKey,
		RightKey:  rightKey,
		Kind:      kind,
		Mode:      mode,
		Threshold: d.Threshold,
	}, nil
}
