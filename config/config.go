// Package config loads the panel's YAML configuration. ${VAR} references
// are expanded from the environment before parsing, and duration strings
// are parsed into time.Duration values.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmcleod/visaexpress/gate"
)

// DefaultPort is used when neither the file nor $PORT sets one.
const DefaultPort = 8181

// Config is the complete panel configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Session       SessionConfig       `yaml:"session"`
	Gate          GateConfig          `yaml:"gate"`
	Logging       LoggingConfig       `yaml:"logging"`
	Notifications NotificationsConfig `yaml:"notifications"`
	DataDir       string              `yaml:"data_dir"`
}

// ServerConfig holds the listen address and TLS material.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	Port           int      `yaml:"port"`
	TLSCert        string   `yaml:"tls_cert"`
	TLSKey         string   `yaml:"tls_key"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// BackendConfig points at the backend API.
type BackendConfig struct {
	URL      string        `yaml:"url"`
	AuthPath string        `yaml:"auth_path"`
	Timeout  time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// SessionConfig holds session cookie settings.
type SessionConfig struct {
	Secret string        `yaml:"secret"`
	MaxAge time.Duration `yaml:"-"`

	MaxAgeRaw string `yaml:"max_age"`
}

// GateConfig selects the navigation gate behavior.
type GateConfig struct {
	Policy    string `yaml:"policy"`
	LoginPath string `yaml:"login_path"`

	// ExemptPaths are reachable while logged out under the exempt-login
	// policy. The login path is always exempt.
	ExemptPaths []string `yaml:"exempt_paths"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotificationsConfig controls optional notifications.
type NotificationsConfig struct {
	// OnLoad announces every successful listing load.
	OnLoad bool `yaml:"on_load"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: DefaultPort},
		Backend: BackendConfig{
			URL:      "http://localhost:8080",
			AuthPath: "/api/authAdmin",
			Timeout:  15 * time.Second,
		},
		Session: SessionConfig{MaxAge: 12 * time.Hour},
		Gate:    GateConfig{Policy: gate.PolicyLiteral.String(), LoginPath: gate.DefaultLoginPath},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		DataDir: "./data",
	}
}

// Load reads the configuration file at path over the defaults. An empty
// path yields the defaults. $PORT overrides server.port.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or the
// empty string when it is unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("server.tls_cert and server.tls_key must be set together")
	}
	if c.Backend.URL == "" {
		return errors.New("backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.url %q must be an absolute http(s) URL", c.Backend.URL)
	}
	if _, err := gate.ParsePolicy(c.Gate.Policy); err != nil {
		return fmt.Errorf("gate.policy: %w", err)
	}
	if c.Gate.LoginPath != "" && c.Gate.LoginPath[0] != '/' {
		return fmt.Errorf("gate.login_path %q must start with /", c.Gate.LoginPath)
	}
	for _, p := range c.Gate.ExemptPaths {
		if p == "" || p[0] != '/' {
			return fmt.Errorf("gate.exempt_paths entry %q must start with /", p)
		}
	}
	return nil
}

// Policy returns the parsed gate policy.
func (c *Config) Policy() gate.Policy {
	p, _ := gate.ParsePolicy(c.Gate.Policy)
	return p
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Addr, strconv.Itoa(c.Server.Port))
}

func parseDurations(cfg *Config) error {
	var err error

	if cfg.Backend.TimeoutRaw != "" {
		cfg.Backend.Timeout, err = time.ParseDuration(cfg.Backend.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing backend.timeout %q: %w", cfg.Backend.TimeoutRaw, err)
		}
	}

	if cfg.Session.MaxAgeRaw != "" {
		cfg.Session.MaxAge, err = time.ParseDuration(cfg.Session.MaxAgeRaw)
		if err != nil {
			return fmt.Errorf("parsing session.max_age %q: %w", cfg.Session.MaxAgeRaw, err)
		}
	}

	return nil
}
