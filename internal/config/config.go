// Package config loads the gateway's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level gateway configuration.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// SupergraphSchema is the path to the composed supergraph SDL.
	SupergraphSchema string `yaml:"supergraph_schema"`

	// APISchema is the path to the client-visible SDL. When empty, the
	// supergraph SDL doubles as the API schema.
	APISchema string `yaml:"api_schema"`

	// PlanManifest is the path to the pre-compiled query plan manifest.
	PlanManifest string `yaml:"plan_manifest"`

	Services []Service `yaml:"services"`

	Server ServerConfig `yaml:"server"`
	Otel   OtelConfig   `yaml:"opentelemetry"`
}

// Duration decodes YAML scalars like "5s" or "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts to the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Service names one subgraph and where to reach it.
type Service struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Timeout bounds each call to this subgraph; empty uses the default.
	Timeout Duration `yaml:"timeout"`
	// Headers are sent on every request to this subgraph.
	Headers map[string]string `yaml:"headers"`
	// ForwardHeaders lists client headers to propagate to this subgraph.
	ForwardHeaders []string `yaml:"forward_headers"`
}

type ServerConfig struct {
	Timeout       Duration `yaml:"timeout"`
	Pretty        bool     `yaml:"pretty"`
	MaxBodyBytes  int64    `yaml:"max_body_bytes"`
	CORSOrigins   []string `yaml:"cors_origins"`
	Introspection *bool    `yaml:"introspection"`
	// MetricsAddr exposes Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr"`
}

type OtelConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// IntrospectionEnabled defaults to true when unset.
func (s ServerConfig) IntrospectionEnabled() bool {
	return s.Introspection == nil || *s.Introspection
}

// Load reads, decodes and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SupergraphSchema == "" {
		return fmt.Errorf("config: supergraph_schema is required")
	}
	if c.PlanManifest == "" {
		return fmt.Errorf("config: plan_manifest is required")
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("config: at least one service is required")
	}
	seen := make(map[string]struct{}, len(c.Services))
	for i, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("config: services[%d] has no name", i)
		}
		if svc.URL == "" {
			return fmt.Errorf("config: service %q has no url", svc.Name)
		}
		if _, dup := seen[svc.Name]; dup {
			return fmt.Errorf("config: duplicate service %q", svc.Name)
		}
		seen[svc.Name] = struct{}{}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = Duration(10 * time.Second)
	}
	if c.Otel.ServiceName == "" {
		c.Otel.ServiceName = "federation-gateway"
	}
}
