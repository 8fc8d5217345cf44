package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the full service configuration, loaded from cardtable.hcl.
type Config struct {
	Server   *ServerBlock   `hcl:"server,block"`
	Database *DatabaseBlock `hcl:"database,block"`
	Cache    *CacheBlock    `hcl:"cache,block"`
	Auth     *AuthBlock     `hcl:"auth,block"`
}

// ServerBlock configures the HTTP/WebSocket listener.
type ServerBlock struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// DatabaseBlock selects and configures the authoritative store.
type DatabaseBlock struct {
	// Driver is sqlite or postgres.
	Driver string `hcl:"driver,optional"`
	// Path is the sqlite database file.
	Path string `hcl:"path,optional"`
	// DSN is the postgres connection string.
	DSN string `hcl:"dsn,optional"`
}

// CacheBlock selects and configures the snapshot cache and task lock.
type CacheBlock struct {
	// Backend is memory or redis.
	Backend  string `hcl:"backend,optional"`
	Addr     string `hcl:"addr,optional"`
	Password string `hcl:"password,optional"`
	DB       int    `hcl:"db,optional"`
	// Capacity bounds the in-memory snapshot count.
	Capacity int `hcl:"capacity,optional"`
	// SweepInterval drives the background snapshotter; empty disables it.
	SweepInterval string `hcl:"sweep_interval,optional"`
}

// AuthBlock selects the token verifier.
type AuthBlock struct {
	// Mode is static or http.
	Mode string `hcl:"mode,optional"`
	// URL is the verification endpoint for http mode.
	URL string `hcl:"url,optional"`
	// Tokens are the accepted tokens for static mode.
	Tokens []TokenBlock `hcl:"token,block"`
}

// TokenBlock maps one static token to an identity.
type TokenBlock struct {
	Token      string `hcl:"token,label"`
	UserID     string `hcl:"user_id"`
	ScreenName string `hcl:"screen_name,optional"`
}

// DefaultConfig is a single-node dev setup: sqlite file, in-memory
// cache, static tokens.
func DefaultConfig() *Config {
	return &Config{
		Server:   &ServerBlock{Address: "localhost", Port: 8080, LogLevel: "info"},
		Database: &DatabaseBlock{Driver: "sqlite", Path: "cardtable.db"},
		Cache:    &CacheBlock{Backend: "memory", Capacity: 4096},
		Auth:     &AuthBlock{Mode: "static"},
	}
}

// LoadConfig reads the HCL file, falling back to defaults when the file
// does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
	}
	var config Config
	if diags := gohcl.DecodeBody(file.Body, nil, &config); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
	}

	defaults := DefaultConfig()
	if config.Server == nil {
		config.Server = defaults.Server
	}
	if config.Database == nil {
		config.Database = defaults.Database
	}
	if config.Cache == nil {
		config.Cache = defaults.Cache
	}
	if config.Auth == nil {
		config.Auth = defaults.Auth
	}
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Database.Driver == "" {
		config.Database.Driver = defaults.Database.Driver
	}
	if config.Database.Driver == "sqlite" && config.Database.Path == "" {
		config.Database.Path = defaults.Database.Path
	}
	if config.Cache.Backend == "" {
		config.Cache.Backend = defaults.Cache.Backend
	}
	if config.Cache.Capacity == 0 {
		config.Cache.Capacity = defaults.Cache.Capacity
	}
	if config.Auth.Mode == "" {
		config.Auth.Mode = defaults.Auth.Mode
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects configurations that could not possibly run.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database: sqlite driver needs a path")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database: postgres driver needs a dsn")
		}
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Addr == "" {
			return fmt.Errorf("cache: redis backend needs an addr")
		}
	default:
		return fmt.Errorf("cache: unknown backend %q", c.Cache.Backend)
	}
	if c.Cache.SweepInterval != "" {
		if _, err := time.ParseDuration(c.Cache.SweepInterval); err != nil {
			return fmt.Errorf("cache: bad sweep_interval: %w", err)
		}
	}

	switch c.Auth.Mode {
	case "static":
	case "http":
		if c.Auth.URL == "" {
			return fmt.Errorf("auth: http mode needs a url")
		}
	default:
		return fmt.Errorf("auth: unknown mode %q", c.Auth.Mode)
	}
	return nil
}

// ListenAddr is the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
