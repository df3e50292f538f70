package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Broadcast struct {
	Interval string `yaml:"interval"` // e.g. "1s"
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // presence-dashboard
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Broadcast Broadcast `yaml:"broadcast"`
	Logging   Logging   `yaml:"logging"`
}

// LoadConfig reads the yaml file named by CONFIG_PATH (default
// ./config/config.yaml). A missing file is not an error: the service runs on
// defaults alone, with PORT overriding the listen address either way.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, err
	}

	cfg.applyDefaults()

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.HTTP.Addr = ":" + port
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":3000"
	}
	if c.Broadcast.Interval == "" {
		c.Broadcast.Interval = "1s"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "presence-dashboard"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
}

// BroadcastInterval parses the configured tick period, falling back to 1s.
func (c *Config) BroadcastInterval() time.Duration {
	return parseDurationOr(time.Second, c.Broadcast.Interval)
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
