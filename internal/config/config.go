package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/tehcyx/bnetchat/pkg/client"
)

const defaultConf = `server:
    address: "localhost:6112"
    username: ""
    channel: "w3"
handshake:
    timeout: 10s
    poll_interval: 50ms
    success_code: "2010"
    failure_literal: "Login failed"
redis:
    enabled: false
    url: "redis://localhost:6379/0"
debug: false
`

type Config struct {
	Server struct {
		Address  string `yaml:"address"`
		Username string `yaml:"username"`
		Channel  string `yaml:"channel"`
	} `yaml:"server"`
	Handshake struct {
		Timeout        time.Duration `yaml:"timeout"`
		PollInterval   time.Duration `yaml:"poll_interval"`
		SuccessCode    string        `yaml:"success_code"`
		FailureLiteral string        `yaml:"failure_literal"`
	} `yaml:"handshake"`
	Redis struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"redis"`
	Debug bool `yaml:"debug"`
}

// DefaultPath is ~/.bnetchat/conf.yaml.
func DefaultPath() (string, error) {
	osUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("looking up home directory: %w", err)
	}
	return filepath.Join(osUser.HomeDir, ".bnetchat", "conf.yaml"), nil
}

// Load reads the config at path, writing the default config there first
// when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConf), 0o600); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	}

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	c := &Config{}
	if err := yaml.Unmarshal(yamlFile, c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// ClientOptions maps the handshake settings onto client options. Unset
// values keep the client defaults.
func (c *Config) ClientOptions() client.Options {
	return client.Options{
		Timeout:        c.Handshake.Timeout,
		PollInterval:   c.Handshake.PollInterval,
		Channel:        c.Server.Channel,
		SuccessCode:    c.Handshake.SuccessCode,
		FailureLiteral: c.Handshake.FailureLiteral,
	}
}
