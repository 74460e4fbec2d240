package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the file.
const (
	EnvHCloudToken = "HCLOUD_TOKEN"
	EnvS3AccessKey = "WSCTL_S3_ACCESS_KEY"
	EnvS3SecretKey = "WSCTL_S3_SECRET_KEY"
)

// LoadFile reads, normalizes and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyEnv()
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvHCloudToken); v != "" {
		c.Hetzner.Token = v
	}
	if v := os.Getenv(EnvS3AccessKey); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv(EnvS3SecretKey); v != "" {
		c.Storage.SecretKey = v
	}
}

// Normalize fills defaults and merges AllowedSSHSources into SecurityRules
// as a single tcp/22 rule. Calling it more than once is harmless.
func (c *Config) Normalize() {
	if c.NetworkCIDR == "" {
		c.NetworkCIDR = DefaultNetworkCIDR
	}
	if c.SubnetCount == 0 {
		c.SubnetCount = DefaultSubnetCount
	}
	if c.Backend == BackendHetzner {
		if c.Hetzner.Location == "" {
			c.Hetzner.Location = DefaultLocation
		}
		if c.Hetzner.NetworkZone == "" {
			c.Hetzner.NetworkZone = DefaultNetworkZone
		}
	}

	if len(c.AllowedSSHSources) > 0 {
		rule := SSHRule(c.AllowedSSHSources...)
		if !slices.ContainsFunc(c.SecurityRules, func(r SecurityRule) bool { return sameRule(r, rule) }) {
			c.SecurityRules = append(c.SecurityRules, rule)
		}
	}
}

func sameRule(a, b SecurityRule) bool {
	return a.Protocol == b.Protocol && a.FromPort == b.FromPort && a.ToPort == b.ToPort &&
		slices.Equal(a.CIDRs, b.CIDRs)
}
