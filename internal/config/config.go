// Package config loads the settings of the flowchain process.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `mapstructure:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is text or json.
	LogFormat string `mapstructure:"log_format"`

	RPC       RPC       `mapstructure:"rpc"`
	Redis     Redis     `mapstructure:"redis"`
	Journal   Journal   `mapstructure:"journal"`
	Signing   Signing   `mapstructure:"signing"`
	Execution Execution `mapstructure:"execution"`
	MCP       MCP       `mapstructure:"mcp"`
}

// RPC configures the Solana endpoint.
type RPC struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Commitment     string        `mapstructure:"commitment"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
}

// Redis configures the journal and the distributed key lock. An empty Addr keeps both in
// process memory.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Journal configures how execution records are stored.
type Journal struct {
	// EncryptionKey is a base64 AES-256 key sealing record outputs. Empty stores them in the clear.
	EncryptionKey string `mapstructure:"encryption_key"`
	// FallbackKeys are older base64 keys still accepted for reading.
	FallbackKeys []string `mapstructure:"fallback_keys"`
	// Redact lists regular expressions; output keys matching any of them are masked.
	Redact []string `mapstructure:"redact"`
}

// EncryptionKeys decodes the active and fallback keys. A nil active key means no encryption.
func (j Journal) EncryptionKeys() (active []byte, fallback [][]byte, err error) {
	if j.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey("journal.encryption_key", j.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for i, k := range j.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("journal.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s: must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

// Signing configures remote signature collection.
type Signing struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Execution configures the execution service.
type Execution struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// MCP configures the Model Context Protocol endpoint served next to the HTTP API.
type MCP struct {
	Enabled bool `mapstructure:"enabled"`
	// Path prefixes the SSE endpoints, e.g. /mcp/sse and /mcp/message.
	Path string `mapstructure:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:    ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		RPC: RPC{
			Endpoint:       "https://api.devnet.solana.com",
			Commitment:     "confirmed",
			ConfirmTimeout: 90 * time.Second,
		},
		Redis: Redis{
			Prefix: "flowchain:",
		},
		Signing: Signing{
			Timeout: 2 * time.Minute,
		},
		Execution: Execution{
			MaxConcurrent: 16,
		},
		MCP: MCP{
			Path: "/mcp",
		},
	}
}

// Load reads a YAML or JSON file over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if err := Decode(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode merges raw into cfg. Durations accept strings like "30s".
func Decode(raw map[string]any, cfg *Config) error {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Metadata:         &md,
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(md.Unused) > 0 {
		return fmt.Errorf("invalid config: unknown keys %s", strings.Join(md.Unused, ", "))
	}
	return nil
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	var errs []error
	if c.RPC.Endpoint == "" {
		errs = append(errs, errors.New("rpc.endpoint is required"))
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("rpc.commitment: unknown level %q", c.RPC.Commitment))
	}
	if c.Signing.Timeout <= 0 {
		errs = append(errs, errors.New("signing.timeout must be positive"))
	}
	if _, _, err := c.Journal.EncryptionKeys(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.Journal.Redact {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("journal.redact: %w", err))
		}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format: unknown format %q", c.LogFormat))
	}
	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path: must start with /, got %q", c.MCP.Path))
	}
	if c.Execution.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("execution.max_concurrent must be positive"))
	}
	return errors.Join(errs...)
}
