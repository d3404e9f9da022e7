// Package config holds the lite-client configuration: where the server is,
// how it authenticates, and how aggressively connections and the chain-head
// cache are managed.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

// Defaults mirror what public lite-servers comfortably sustain.
const (
	DefaultMaxConnections     = 10
	DefaultMinIdleConnections = 1

	DefaultSocketReadTimeout  = 5 * time.Second
	DefaultSocketSendTimeout  = 5 * time.Second
	DefaultPingTimeout        = 10 * time.Second
	DefaultPoolTimeout        = 30 * time.Second
	DefaultLastBlockThreshold = 1 * time.Second
)

// Config is the top-level lite-client configuration.
type Config struct {
	// ServerAddress is the lite-server's host:port.
	ServerAddress string `toml:"server_address"`

	// ServerKey is the server's ed25519 public key, base64.
	ServerKey string `toml:"server_key"`

	// MaxConnections bounds the total number of live connections.
	MaxConnections int `toml:"max_connections"`

	// MinIdleConnections are dialed eagerly at construction.
	MinIdleConnections int `toml:"min_idle_connections"`

	// SocketReadTimeout and SocketSendTimeout bound single transport
	// operations.
	SocketReadTimeout time.Duration `toml:"socket_read_timeout"`
	SocketSendTimeout time.Duration `toml:"socket_send_timeout"`

	// PingTimeout bounds the liveness probe issued on checkout.
	PingTimeout time.Duration `toml:"ping_timeout"`

	// PoolTimeout bounds how long a checkout may wait for a free
	// connection before giving up.
	PoolTimeout time.Duration `toml:"pool_timeout"`

	// LastBlockThreshold is the chain-head cache staleness threshold:
	// within it, queries reuse the cached head without asking the server.
	LastBlockThreshold time.Duration `toml:"last_block_threshold"`

	// LogLevel and LogFormat configure the default logger.
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// DefaultConfig returns a configuration with sane defaults and no server.
func DefaultConfig() *Config {
	return &Config{
		MaxConnections:     DefaultMaxConnections,
		MinIdleConnections: DefaultMinIdleConnections,
		SocketReadTimeout:  DefaultSocketReadTimeout,
		SocketSendTimeout:  DefaultSocketSendTimeout,
		PingTimeout:        DefaultPingTimeout,
		PoolTimeout:        DefaultPoolTimeout,
		LastBlockThreshold: DefaultLastBlockThreshold,
		LogLevel:           "info",
		LogFormat:          "plain",
	}
}

// ValidateBasic performs stateless checks on the configuration.
func (cfg *Config) ValidateBasic() error {
	if cfg.ServerAddress == "" {
		return errors.New("server_address is required")
	}
	if _, _, err := net.SplitHostPort(cfg.ServerAddress); err != nil {
		return fmt.Errorf("server_address: %w", err)
	}
	if _, err := cfg.PublicKey(); err != nil {
		return err
	}
	if cfg.MaxConnections <= 0 {
		return errors.New("max_connections must be positive")
	}
	if cfg.MinIdleConnections < 0 || cfg.MinIdleConnections > cfg.MaxConnections {
		return errors.New("min_idle_connections must be within [0, max_connections]")
	}
	if cfg.SocketReadTimeout <= 0 || cfg.SocketSendTimeout <= 0 {
		return errors.New("socket timeouts must be positive")
	}
	if cfg.PingTimeout <= 0 {
		return errors.New("ping_timeout must be positive")
	}
	if cfg.PoolTimeout <= 0 {
		return errors.New("pool_timeout must be positive")
	}
	if cfg.LastBlockThreshold < 0 {
		return errors.New("last_block_threshold must not be negative")
	}
	return nil
}

// PublicKey decodes the configured server key.
func (cfg *Config) PublicKey() (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(cfg.ServerKey)
	if err != nil {
		return nil, fmt.Errorf("server_key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("server_key: got %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// LoadFile reads a TOML configuration file.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// WriteFile renders the configuration as TOML.
func (cfg *Config) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
