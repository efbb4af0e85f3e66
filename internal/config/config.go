// Package config loads ledgerq configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ledgerq/internal/circuits"
	"github.com/roach88/ledgerq/internal/circuits/nationality"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/vm"
)

// Defaults.
const (
	DefaultDBPath        = "./ledgerq.db"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultReadCacheSize = vm.DefaultReadCacheSize
	DefaultContract      = nationality.ContractName
)

// Config is the ledgerq configuration. Command-line flags override it.
type Config struct {
	// DBPath is the SQLite call log.
	DBPath string `yaml:"db_path"`

	// LogLevel is a zerolog level name.
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format"`

	// ReadCacheSize bounds the interpreter's per-query read cache.
	ReadCacheSize int `yaml:"read_cache_size"`

	// Contract is the builtin contract to host.
	Contract string `yaml:"contract"`

	// Address is the base58 contract address of the hosted instance. Empty
	// means the dummy address.
	Address string `yaml:"address"`

	// PrivateState is the initial private state handed to witnesses. It is
	// never persisted.
	PrivateState string `yaml:"private_state"`

	// GasLimit caps the gas of a single call. 0 is unlimited.
	GasLimit uint64 `yaml:"gas_limit"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DBPath:        DefaultDBPath,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
		ReadCacheSize: DefaultReadCacheSize,
		Contract:      DefaultContract,
	}
}

// Load reads a YAML configuration file over the defaults. A missing file is
// an error; use Default when there is no file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if c.ReadCacheSize < 0 {
		return fmt.Errorf("read_cache_size must be non-negative, got %d", c.ReadCacheSize)
	}
	builtins := circuits.Builtins()
	if _, ok := builtins.Lookup(c.Contract); !ok {
		return fmt.Errorf("contract: unknown contract %q (builtin: %v)", c.Contract, builtins.Names())
	}
	if _, err := c.ContractAddress(); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	return nil
}

// ContractAddress returns the parsed instance address.
func (c Config) ContractAddress() (ir.ContractAddress, error) {
	if c.Address == "" {
		return ir.DummyContractAddress(), nil
	}
	return ir.ParseContractAddress(c.Address)
}

// Level returns the parsed log level.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
