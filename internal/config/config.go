// Package config loads the process's optional YAML defaults file, expanding
// ${VAR} references against the environment the way the teacher's own
// internal/config package does.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds non-secret process defaults. CLI flags, where parsed by the
// external collaborator CLI, take precedence over these values.
type Config struct {
	Namespace  string           `yaml:"namespace"`
	Kubeconfig string           `yaml:"kubeconfig"`
	LogLevel   string           `yaml:"log_level"`
	LogFormat  string           `yaml:"log_format"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Activation ActivationConfig `yaml:"activation"`
	Kube       KubeConfig       `yaml:"kube"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// GatewayConfig configures the HTTP demand-router surface.
type GatewayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ActivationConfig configures the cold-path activation waiter.
type ActivationConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// KubeConfig holds the kube client surface's per-call timeout setting.
// CallTimeout is loaded and defaulted but no kube call applies it.
type KubeConfig struct {
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// MetricsConfig holds the metrics toggle. Enabled is loaded but not read;
// the gateway serves /metrics and /health regardless.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the documented defaults (§5 concurrency/resource model).
func Default() *Config {
	return &Config{
		Namespace: "default",
		LogLevel:  "info",
		LogFormat: "json",
		Gateway:   GatewayConfig{Host: "0.0.0.0", Port: 8080},
		Activation: ActivationConfig{
			Timeout: 30 * time.Second,
		},
		Kube: KubeConfig{
			CallTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads path, expands ${VAR} references against the environment, and
// unmarshals onto the documented defaults. A missing file is not an error —
// the caller gets defaults back.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}
