package web

import (
	"fmt"
	"time"

	"github.com/areajoin/internal/config"
)

// Config represents the web server configuration
type Config struct {
	Server   ServerConfig
	Matching MatchingConfig
	Auth     AuthConfig
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// MatchingConfig contains the join settings applied to every request
type MatchingConfig struct {
	Workers    int
	Blocking   bool
	CacheSize  int
	NullMarker string
	Debug      bool
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	APIKey string
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// FromConfig maps the application configuration onto the server's.
func FromConfig(cfg *config.Config) *Config {
	return &Config{
		Server: ServerConfig{
			Host:         cfg.Web.Host,
			Port:         cfg.Web.Port,
			ReadTimeout:  cfg.Web.ReadTimeout,
			WriteTimeout: cfg.Web.WriteTimeout,
			MaxBodyBytes: cfg.Web.MaxBodyBytes,
		},
		Matching: MatchingConfig{
			Workers:    cfg.Workers,
			Blocking:   cfg.Blocking,
			CacheSize:  cfg.CacheSize,
			NullMarker: cfg.NullMarker,
			Debug:      cfg.Debug,
		},
		Auth: AuthConfig{
			APIKey: cfg.Web.APIKey,
		},
	}
}
