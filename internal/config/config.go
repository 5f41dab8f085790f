package config

import (
	"errors"
	"fmt"
	"hue-bridge-client/internal/domain/discovery"
	"hue-bridge-client/internal/domain/pairing"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config represents the huectl configuration
type Config struct {
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Pairing     PairingConfig     `yaml:"pairing"`
	HTTP        HTTPConfig        `yaml:"http"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Log         LogConfig         `yaml:"log"`
}

type DiscoveryConfig struct {
	Timeout       Duration `yaml:"timeout"`
	QuietInterval Duration `yaml:"quiet_interval"` // 0 = listen for the whole timeout
	Strategy      string   `yaml:"strategy"`       // local, remote or both
	RemoteURL     string   `yaml:"remote_url"`
	Descriptions  bool     `yaml:"descriptions"` // fetch description.xml of local hits
	Interface     string   `yaml:"interface"`
	MX            int      `yaml:"mx"`
}

type PairingConfig struct {
	DeviceName   string   `yaml:"device_name"`
	PollInterval Duration `yaml:"poll_interval"`
	MaxWait      Duration `yaml:"max_wait"`
}

type HTTPConfig struct {
	Timeout Duration `yaml:"timeout"`
}

type CredentialsConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ParsedStrategy maps the configured name onto a discovery strategy.
func (c DiscoveryConfig) ParsedStrategy() (discovery.Strategy, error) {
	switch c.Strategy {
	case "local":
		return discovery.StrategyLocal, nil
	case "remote":
		return discovery.StrategyRemote, nil
	case "both", "":
		return discovery.StrategyBoth, nil
	}
	return 0, fmt.Errorf("unknown discovery strategy %q", c.Strategy)
}

// Load reads the configuration file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = Duration(5 * time.Second)
	}
	if c.Discovery.Strategy == "" {
		c.Discovery.Strategy = "both"
	}
	if c.Discovery.RemoteURL == "" {
		c.Discovery.RemoteURL = discovery.DefaultRemoteURL
	}
	if c.Discovery.MX == 0 {
		c.Discovery.MX = 3
	}

	if c.Pairing.DeviceName == "" {
		c.Pairing.DeviceName = DefaultDeviceName()
	}
	if c.Pairing.PollInterval == 0 {
		c.Pairing.PollInterval = Duration(time.Second)
	}
	if c.Pairing.MaxWait == 0 {
		c.Pairing.MaxWait = Duration(30 * time.Second)
	}

	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = Duration(10 * time.Second)
	}
	if c.Credentials.Path == "" {
		c.Credentials.Path = defaultCredentialsPath()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if _, err := c.Discovery.ParsedStrategy(); err != nil {
		return err
	}
	if c.Discovery.Timeout < 0 || c.Discovery.QuietInterval < 0 {
		return errors.New("discovery durations must not be negative")
	}
	if c.Pairing.PollInterval <= 0 || c.Pairing.MaxWait <= 0 {
		return errors.New("pairing poll_interval and max_wait must be positive")
	}
	if n := len(c.Pairing.DeviceName); n > pairing.MaxDeviceNameLength {
		return fmt.Errorf("pairing device_name is %d characters, at most %d allowed", n, pairing.MaxDeviceNameLength)
	}
	return nil
}

// DefaultDeviceName labels this installation in the bridge whitelist.
func DefaultDeviceName() string {
	return "huectl#" + uuid.NewString()[:8]
}

func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "huectl-credentials.json"
	}
	return filepath.Join(dir, "huectl", "credentials.json")
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
}
