package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/toonapp/internal/toon"
)

// Environment variables that override file settings
const (
	EnvUsername = "TOONAPP_USERNAME"
	EnvPassword = "TOONAPP_PASSWORD"
	EnvTimeout  = "TOONAPP_TIMEOUT"
	EnvEndpoint = "TOONAPP_ENDPOINT"
)

// currentVersion is the config file format version
const currentVersion = 1

// Config represents the configuration file.
// Passwords are NEVER stored - they come from the environment or a prompt.
type Config struct {
	Version  int      `yaml:"version"`
	Username string   `yaml:"username,omitempty"`
	Endpoint string   `yaml:"endpoint,omitempty"` // Base URL request paths are appended to
	Referer  string   `yaml:"referer,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"` // Per-request timeout
	LogLevel string   `yaml:"log_level,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("10s")
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
// Accepts a duration string or a bare number of milliseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := parseTimeout(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// NewConfig creates a Config with default values
func NewConfig() *Config {
	return &Config{
		Version: currentVersion,
		Timeout: Duration(toon.DefaultTimeout),
	}
}

// ApplyEnv overrides settings from the environment using getenv (usually os.Getenv)
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v := getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := getenv(EnvTimeout); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = Duration(d)
	}
	return nil
}

// Validate checks the settings needed to talk to the service
func (c *Config) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("username is not set (use 'toonctl config set username <name>' or %s)", EnvUsername)
	}
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("endpoint %q is not an absolute URL", c.Endpoint)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// Set updates a single setting by its YAML key
func (c *Config) Set(key, value string) error {
	switch key {
	case "username":
		c.Username = value
	case "endpoint":
		c.Endpoint = value
	case "referer":
		c.Referer = value
	case "log_level":
		switch strings.ToLower(value) {
		case "", "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(value)
		default:
			return fmt.Errorf("invalid log level %q (want debug, info, warn or error)", value)
		}
	case "timeout":
		d, err := parseTimeout(value)
		if err != nil {
			return err
		}
		c.Timeout = Duration(d)
	case "password":
		return fmt.Errorf("the password is never stored; set %s instead", EnvPassword)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// ToonOptions builds client options from the configuration
func (c *Config) ToonOptions(password string) toon.Options {
	return toon.Options{
		Username: c.Username,
		Password: password,
		Timeout:  time.Duration(c.Timeout),
		Endpoint: c.Endpoint,
		Referer:  c.Referer,
	}
}

// parseTimeout accepts milliseconds ("5000") or a Go duration ("5s")
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.Atoi(s); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("invalid timeout %q", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return d, nil
}
