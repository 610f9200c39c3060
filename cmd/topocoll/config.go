package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the CLI configuration, loaded from an optional TOML file
// layered over DefaultConfig.
type Config struct {
	Links   LinksConfig   `toml:"links"`
	Bench   BenchConfig   `toml:"bench"`
	Metrics MetricsConfig `toml:"metrics"`
}

// LinksConfig sets the uniform link model the simulated networks use.
type LinksConfig struct {
	BandwidthMbps float64 `toml:"bandwidth_mbps"`
	LatencyUs     float64 `toml:"latency_us"`
}

// BenchConfig selects the grid the bench command sweeps.
type BenchConfig struct {
	Nodes []int `toml:"nodes"`
	Sizes []int `toml:"sizes"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Links: LinksConfig{BandwidthMbps: 1000, LatencyUs: 25},
		Bench: BenchConfig{
			Nodes: []int{4, 8, 16},
			Sizes: []int{16, 4096, 65536},
		},
	}
}

// LoadConfig reads a TOML file over the defaults. An empty path keeps
// the defaults. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Links.BandwidthMbps <= 0 || c.Links.LatencyUs <= 0 {
		return fmt.Errorf("links need positive bandwidth and latency, got %v/%v",
			c.Links.BandwidthMbps, c.Links.LatencyUs)
	}
	if len(c.Bench.Nodes) == 0 || len(c.Bench.Sizes) == 0 {
		return fmt.Errorf("bench grid must not be empty")
	}
	for _, n := range c.Bench.Nodes {
		if n < 1 {
			return fmt.Errorf("bench node count %d out of range", n)
		}
	}
	for _, s := range c.Bench.Sizes {
		if s < 1 {
			return fmt.Errorf("bench size %d out of range", s)
		}
	}
	return nil
}
