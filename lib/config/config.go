// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/hessian/lib/hessian"
	"github.com/bureau-foundation/hessian/lib/service"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "HESSIAN_CONFIG"

// Config is the configuration shared by the hessian binaries.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Codec bounds what encoders and decoders produce and accept.
	Codec CodecConfig `yaml:"codec"`

	// Service configures a method server.
	Service ServiceConfig `yaml:"service"`

	// Client configures connections to a method server.
	Client ClientConfig `yaml:"client"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains the sections that can be overridden per
// environment. Zero fields in an override leave the base value alone.
type ConfigOverrides struct {
	Codec   *CodecConfig   `yaml:"codec,omitempty"`
	Service *ServiceConfig `yaml:"service,omitempty"`
	Client  *ClientConfig  `yaml:"client,omitempty"`
}

// CodecConfig configures the Hessian encoder and decoder. Zero selects
// the codec's own default.
type CodecConfig struct {
	// ChunkSize is the largest string or binary chunk written.
	// Default: 32768
	ChunkSize int `yaml:"chunk_size"`

	// MaxChunkLength rejects decoded chunks declaring more characters
	// or octets. Default: 65535 (no limit beyond the wire format's)
	MaxChunkLength int `yaml:"max_chunk_length"`

	// MaxValueBytes rejects decoded strings and binaries larger than
	// this once reassembled. Default: unlimited
	MaxValueBytes int `yaml:"max_value_bytes"`

	// MaxDepth bounds composite nesting. Default: 1000
	MaxDepth int `yaml:"max_depth"`

	// MaxLength bounds declared list lengths and class field counts.
	// Default: 16777216
	MaxLength int `yaml:"max_length"`
}

// ServiceConfig configures a method server.
type ServiceConfig struct {
	// Network is "unix" or "tcp". Default: unix
	Network string `yaml:"network"`

	// Address is the socket path or host:port to listen on.
	Address string `yaml:"address"`

	// HTTPAddress, when set, also serves calls as HTTP POSTs on this
	// host:port.
	HTTPAddress string `yaml:"http_address"`

	// ReadTimeout bounds idle time between calls and the arrival of
	// one call. Default: 30s
	ReadTimeout Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing one response. Default: 10s
	WriteTimeout Duration `yaml:"write_timeout"`

	// MaxRequestBytes bounds one call envelope. Default: 1048576
	MaxRequestBytes int64 `yaml:"max_request_bytes"`
}

// ClientConfig configures a pooled client.
type ClientConfig struct {
	// InitialConnections are opened when the client is created.
	// Default: 0
	InitialConnections int `yaml:"initial_connections"`

	// MaxConnections bounds connections open at once. Default: 16
	MaxConnections int `yaml:"max_connections"`

	// MaxIdleConnections bounds connections kept for reuse. Default: 4
	MaxIdleConnections int `yaml:"max_idle_connections"`

	// IdleTimeout closes pooled connections unused for this long.
	// Default: 1m
	IdleTimeout Duration `yaml:"idle_timeout"`

	// DialTimeout bounds connecting. Default: 5s
	DialTimeout Duration `yaml:"dial_timeout"`

	// ResponseTimeout bounds one call. Default: 45s
	ResponseTimeout Duration `yaml:"response_timeout"`

	// MaxResponseBytes bounds one response envelope. Default: 1048576
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

// Duration is a time.Duration written in YAML as a Go duration string
// ("30s", "1m30s").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"30s\": %w", node.Line, err)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	return &Config{
		Environment: Development,
		Codec: CodecConfig{
			ChunkSize:      hessian.DefaultChunkSize,
			MaxChunkLength: hessian.MaxChunkLength,
			MaxDepth:       hessian.DefaultMaxDepth,
			MaxLength:      hessian.DefaultMaxLength,
		},
		Service: ServiceConfig{
			Network:         "unix",
			Address:         filepath.Join(os.TempDir(), "hessian-echo.sock"),
			ReadTimeout:     Duration(service.DefaultReadTimeout),
			WriteTimeout:    Duration(service.DefaultWriteTimeout),
			MaxRequestBytes: service.DefaultMaxRequestBytes,
		},
		Client: ClientConfig{
			MaxConnections:     service.DefaultMaxConnections,
			MaxIdleConnections: service.DefaultMaxIdleConnections,
			IdleTimeout:        Duration(service.DefaultIdleTimeout),
			DialTimeout:        Duration(service.DefaultDialTimeout),
			ResponseTimeout:    Duration(service.DefaultResponseTimeout),
			MaxResponseBytes:   service.DefaultMaxResponseBytes,
		},
	}
}

// Load loads configuration from the HESSIAN_CONFIG environment variable.
//
// There are no fallbacks - if HESSIAN_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your hessian.yaml config file, or use --config flag", EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values; the only expansion performed is of
// ${VAR} and ${VAR:-default} in addresses.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: bound reassembled strings and binaries
		// to the request size.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Codec: &CodecConfig{
					MaxValueBytes: int(c.Service.MaxRequestBytes),
				},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Codec != nil {
		override(&c.Codec.ChunkSize, overrides.Codec.ChunkSize)
		override(&c.Codec.MaxChunkLength, overrides.Codec.MaxChunkLength)
		override(&c.Codec.MaxValueBytes, overrides.Codec.MaxValueBytes)
		override(&c.Codec.MaxDepth, overrides.Codec.MaxDepth)
		override(&c.Codec.MaxLength, overrides.Codec.MaxLength)
	}

	if overrides.Service != nil {
		override(&c.Service.Network, overrides.Service.Network)
		override(&c.Service.Address, overrides.Service.Address)
		override(&c.Service.HTTPAddress, overrides.Service.HTTPAddress)
		override(&c.Service.ReadTimeout, overrides.Service.ReadTimeout)
		override(&c.Service.WriteTimeout, overrides.Service.WriteTimeout)
		override(&c.Service.MaxRequestBytes, overrides.Service.MaxRequestBytes)
	}

	if overrides.Client != nil {
		override(&c.Client.InitialConnections, overrides.Client.InitialConnections)
		override(&c.Client.MaxConnections, overrides.Client.MaxConnections)
		override(&c.Client.MaxIdleConnections, overrides.Client.MaxIdleConnections)
		override(&c.Client.IdleTimeout, overrides.Client.IdleTimeout)
		override(&c.Client.DialTimeout, overrides.Client.DialTimeout)
		override(&c.Client.ResponseTimeout, overrides.Client.ResponseTimeout)
		override(&c.Client.MaxResponseBytes, overrides.Client.MaxResponseBytes)
	}
}

// override replaces *target with value unless value is zero.
func override[T comparable](target *T, value T) {
	var zero T
	if value != zero {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in addresses.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":    os.Getenv("HOME"),
		"TMPDIR":  os.TempDir(),
		"RUNTIME": os.Getenv("XDG_RUNTIME_DIR"),
	}

	c.Service.Address = expandVars(c.Service.Address, vars)
	c.Service.HTTPAddress = expandVars(c.Service.HTTPAddress, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Codec.ChunkSize < 0 || c.Codec.ChunkSize > hessian.MaxChunkLength {
		errs = append(errs, fmt.Errorf("codec.chunk_size must be between 0 and %d", hessian.MaxChunkLength))
	}
	if c.Codec.MaxChunkLength < 0 || c.Codec.MaxChunkLength > hessian.MaxChunkLength {
		errs = append(errs, fmt.Errorf("codec.max_chunk_length must be between 0 and %d", hessian.MaxChunkLength))
	}
	if c.Codec.MaxValueBytes < 0 {
		errs = append(errs, fmt.Errorf("codec.max_value_bytes must not be negative"))
	}
	if c.Codec.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("codec.max_depth must not be negative"))
	}
	if c.Codec.MaxLength < 0 {
		errs = append(errs, fmt.Errorf("codec.max_length must not be negative"))
	}

	if c.Service.Network != "unix" && c.Service.Network != "tcp" {
		errs = append(errs, fmt.Errorf("service.network must be unix or tcp, got %q", c.Service.Network))
	}
	if c.Service.Address == "" {
		errs = append(errs, fmt.Errorf("service.address is required"))
	}
	if c.Service.ReadTimeout <= 0 || c.Service.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("service.read_timeout and service.write_timeout must be positive"))
	}
	if c.Service.MaxRequestBytes <= 0 {
		errs = append(errs, fmt.Errorf("service.max_request_bytes must be positive"))
	}

	client := c.Client
	if client.InitialConnections < 0 || client.InitialConnections > client.MaxIdleConnections ||
		client.MaxIdleConnections > client.MaxConnections || client.MaxConnections <= 0 {
		errs = append(errs, fmt.Errorf("client pool sizes must satisfy 0 <= initial_connections <= max_idle_connections <= max_connections, with max_connections > 0 (got %d, %d, %d)",
			client.InitialConnections, client.MaxIdleConnections, client.MaxConnections))
	}
	if client.DialTimeout <= 0 || client.ResponseTimeout <= 0 {
		errs = append(errs, fmt.Errorf("client.dial_timeout and client.response_timeout must be positive"))
	}
	if client.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("client.idle_timeout must not be negative"))
	}
	if client.MaxResponseBytes <= 0 {
		errs = append(errs, fmt.Errorf("client.max_response_bytes must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EncoderOptions returns the encoder options for c.
func (c CodecConfig) EncoderOptions() []hessian.EncoderOption {
	var options []hessian.EncoderOption
	if c.ChunkSize > 0 {
		options = append(options, hessian.WithChunkSize(c.ChunkSize))
	}
	return options
}

// DecoderOptions returns the decoder options for c.
func (c CodecConfig) DecoderOptions() []hessian.DecoderOption {
	var options []hessian.DecoderOption
	if c.MaxChunkLength > 0 {
		options = append(options, hessian.WithMaxChunkLength(c.MaxChunkLength))
	}
	if c.MaxValueBytes > 0 {
		options = append(options, hessian.WithMaxValueBytes(c.MaxValueBytes))
	}
	if c.MaxDepth > 0 {
		options = append(options, hessian.WithMaxDepth(c.MaxDepth))
	}
	if c.MaxLength > 0 {
		options = append(options, hessian.WithMaxLength(c.MaxLength))
	}
	return options
}

// ServerOptions returns the options for a service.Server built from c.
func (c *Config) ServerOptions() []service.ServerOption {
	return []service.ServerOption{
		service.WithTimeouts(c.Service.ReadTimeout.Std(), c.Service.WriteTimeout.Std()),
		service.WithMaxRequestBytes(c.Service.MaxRequestBytes),
		service.WithServerCodec(c.Codec.EncoderOptions(), c.Codec.DecoderOptions()),
	}
}

// ClientOptions returns the options for a service.Client built from c.
// The codec and response limit also apply to a service.HTTPClient.
func (c *Config) ClientOptions() []service.ClientOption {
	return []service.ClientOption{
		service.WithPool(c.Client.InitialConnections, c.Client.MaxConnections, c.Client.MaxIdleConnections),
		service.WithIdleTimeout(c.Client.IdleTimeout.Std()),
		service.WithDialTimeout(c.Client.DialTimeout.Std()),
		service.WithResponseTimeout(c.Client.ResponseTimeout.Std()),
		service.WithMaxResponseBytes(c.Client.MaxResponseBytes),
		service.WithClientCodec(c.Codec.EncoderOptions(), c.Codec.DecoderOptions()),
	}
}
