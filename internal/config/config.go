// Package config loads the JSON server configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
)

const (
	DefaultPath         = "config-obsrv.json"
	DefaultBindAddress  = "0.0.0.0"
	DefaultBindPort     = 7979
	DefaultMaxBodyBytes = 8 << 20
)

type Config struct {
	BindAddress string `json:"bindAddress"`
	BindPort    Port   `json:"bindPort"`
	// MaxBodyBytes bounds an accumulated request body; 0 disables the bound.
	MaxBodyBytes *int64     `json:"maxBodyBytes"`
	LogLevel     slog.Level `json:"logLevel"`
}

// Port accepts either a JSON number or a numeric string.
type Port int

func (p *Port) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("bindPort: %q is not a port number", data)
	}
	if n < 0 || n > 65535 {
		return fmt.Errorf("bindPort: %d out of range", n)
	}
	*p = Port(n)
	return nil
}

// Load reads the configuration file at path and fills in defaults for
// missing fields.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document and applies defaults.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.BindAddress == "" {
		cfg.BindAddress = DefaultBindAddress
	}
	if cfg.BindPort == 0 {
		cfg.BindPort = DefaultBindPort
	}
	if cfg.MaxBodyBytes == nil {
		n := int64(DefaultMaxBodyBytes)
		cfg.MaxBodyBytes = &n
	} else if *cfg.MaxBodyBytes < 0 {
		return Config{}, fmt.Errorf("maxBodyBytes: %d is negative", *cfg.MaxBodyBytes)
	}
	return cfg, nil
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(int(c.BindPort)))
}

// BodyLimit returns the configured body bound, 0 meaning unbounded.
func (c Config) BodyLimit() int64 {
	if c.MaxBodyBytes == nil {
		return DefaultMaxBodyBytes
	}
	return *c.MaxBodyBytes
}
