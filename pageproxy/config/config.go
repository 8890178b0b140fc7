package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-appsec/pageproxy/pageproxy/transport"
)

const (
	Version = "0.1.0"

	DefaultDirName       = ".pageproxy"
	DefaultFileName      = "config.json"
	DefaultMaxBodyBytes  = 10 << 20
	DefaultDialTimeout   = 10 * time.Second
	DefaultReadTimeout   = 30 * time.Second
	DefaultWriteTimeout  = 30 * time.Second
	DefaultNavigateLimit = 60 * time.Second
	DefaultHistoryLimit  = 1000
)

// Config holds the pageproxy configuration stored in ~/.pageproxy/config.json
type Config struct {
	Version       string    `json:"version"`
	InitializedAt time.Time `json:"initialized_at"`

	ProxyURL     string   `json:"proxy_url,omitempty"`
	DevToolsURL  string   `json:"devtools_url,omitempty"`
	Headless     *bool    `json:"headless,omitempty"`
	ChromeFlags  []string `json:"chrome_flags,omitempty"`
	Decompress   *bool    `json:"decompress,omitempty"`
	MaxBodyBytes int      `json:"max_body_bytes,omitempty"`
	HistoryLimit int      `json:"history_limit,omitempty"`

	DialTimeout     Duration `json:"dial_timeout,omitempty"`
	ReadTimeout     Duration `json:"read_timeout,omitempty"`
	WriteTimeout    Duration `json:"write_timeout,omitempty"`
	NavigateTimeout Duration `json:"navigate_timeout,omitempty"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig(version string) *Config {
	cfg := &Config{
		Version:       version,
		InitializedAt: time.Now().UTC(),
	}
	cfg.applyDefaults()
	return cfg
}

// DefaultPath returns ~/.pageproxy/config.json
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName, DefaultFileName), nil
}

// Load reads and parses config from the given path.
// If the file doesn't exist, returns os.ErrNotExist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(Version), nil
	}
	return cfg, err
}

// Resolve loads the config at path, or at DefaultPath when path is empty,
// and returns it with the path that was used.
func Resolve(path string) (*Config, string, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, "", err
		}
	}
	cfg, err := LoadOrDefault(path)
	return cfg, path, err
}

// Save writes the config to the given path atomically, creating the parent
// directory when needed.
func (c *Config) Save(path string) error {
	if c == nil {
		return errors.New("config is nil")
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	// Write atomically by writing to temp file then renaming
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// IsHeadless reports whether a launched browser runs without a window.
func (c *Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

// ShouldDecompress reports whether response bodies are decoded before they
// are handed to the browser.
func (c *Config) ShouldDecompress() bool {
	return c.Decompress == nil || *c.Decompress
}

// Timeouts returns the transport timeouts.
func (c *Config) Timeouts() transport.TimeoutConfig {
	return transport.TimeoutConfig{
		DialTimeout:  time.Duration(c.DialTimeout),
		ReadTimeout:  time.Duration(c.ReadTimeout),
		WriteTimeout: time.Duration(c.WriteTimeout),
	}
}

// Sender returns a transport configured from c.
func (c *Config) Sender() *transport.Sender {
	return &transport.Sender{
		Timeouts:     c.Timeouts(),
		Decompress:   c.ShouldDecompress(),
		MaxBodyBytes: c.MaxBodyBytes,
	}
}

// applyDefaults fills in zero values with defaults
func (c *Config) applyDefaults() {
	if c.Headless == nil {
		headless := true
		c.Headless = &headless
	}
	if c.Decompress == nil {
		decompress := true
		c.Decompress = &decompress
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = Duration(DefaultDialTimeout)
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if c.NavigateTimeout == 0 {
		c.NavigateTimeout = Duration(DefaultNavigateLimit)
	}
}

// Duration is a time.Duration stored as a string such as "30s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
