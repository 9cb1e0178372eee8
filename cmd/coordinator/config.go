package coordinator

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type CacheConfig struct {
	Name        string `yaml:"name"`
	NumOwners   int    `yaml:"numOwners"`
	NumSegments int    `yaml:"numSegments"`
}

type Config struct {
	NodeName    string        `yaml:"nodeName"`
	BindAddr    string        `yaml:"bindAddr,omitempty"`
	BindPort    int           `yaml:"bindPort,omitempty"`
	Peers       []string      `yaml:"peers,omitempty"`
	AdminListen string        `yaml:"adminListen,omitempty"`
	Workers     int           `yaml:"workers,omitempty"`
	Caches      []CacheConfig `yaml:"caches,omitempty"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg := &Config{
		AdminListen: "127.0.0.1:7180",
		Workers:     4,
	}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.NodeName == "" {
		return errors.New("nodeName is required")
	}
	for _, cache := range c.Caches {
		if cache.Name == "" {
			return errors.New("cache name is required")
		}
		if cache.NumOwners < 1 {
			return fmt.Errorf("cache %s: numOwners must be at least 1", cache.Name)
		}
		if cache.NumSegments < 1 {
			return fmt.Errorf("cache %s: numSegments must be at least 1", cache.Name)
		}
	}
	return nil
}
