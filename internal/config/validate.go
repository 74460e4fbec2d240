package config

import (
	"fmt"
	"net"
	"regexp"
	"slices"
	"sort"
)

// ValidLocations contains the Hetzner Cloud locations a workspace may use.
var ValidLocations = map[string]bool{
	"nbg1": true, // Nuremberg, Germany
	"fsn1": true, // Falkenstein, Germany
	"hel1": true, // Helsinki, Finland
	"ash":  true, // Ashburn, USA
	"hil":  true, // Hillsboro, USA
	"sin":  true, // Singapore
}

// ValidNetworkZones contains the Hetzner Cloud network zones.
var ValidNetworkZones = map[string]bool{
	"eu-central":   true,
	"us-east":      true,
	"us-west":      true,
	"ap-southeast": true,
}

var validProtocols = []string{"tcp", "udp", "icmp", "all"}

// Workspace names end up in bucket names, so they follow DNS label rules
// and leave room for the longest generated suffix.
var workspaceNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,30}[a-z0-9])?$`)

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.WorkspaceName == "" {
		return fmt.Errorf("workspace_name is required")
	}
	if !workspaceNamePattern.MatchString(c.WorkspaceName) {
		return fmt.Errorf("invalid workspace_name %q: must be 1-32 lowercase letters, digits or hyphens", c.WorkspaceName)
	}

	switch c.Backend {
	case BackendAWS, BackendHetzner, BackendFake:
	case "":
		return fmt.Errorf("backend is required")
	default:
		return fmt.Errorf("invalid backend %q: must be one of aws, hetzner, fake", c.Backend)
	}

	if err := c.validateNetwork(); err != nil {
		return fmt.Errorf("network validation failed: %w", err)
	}
	if err := c.validateSecurityRules(); err != nil {
		return fmt.Errorf("security rule validation failed: %w", err)
	}

	switch c.Backend {
	case BackendAWS:
		if err := c.validateAWS(); err != nil {
			return fmt.Errorf("aws validation failed: %w", err)
		}
	case BackendHetzner:
		if err := c.validateHetzner(); err != nil {
			return fmt.Errorf("hetzner validation failed: %w", err)
		}
	}

	return nil
}

func (c *Config) validateNetwork() error {
	ip, _, err := net.ParseCIDR(c.NetworkCIDR)
	if err != nil {
		return fmt.Errorf("invalid network_cidr: %w", err)
	}
	if ip.To4() == nil {
		return fmt.Errorf("network_cidr must be IPv4, got %s", c.NetworkCIDR)
	}

	if c.SubnetCount < DefaultSubnetCount || c.SubnetCount > MaxSubnetCount {
		return fmt.Errorf("subnet_count must be between %d and %d, got %d", DefaultSubnetCount, MaxSubnetCount, c.SubnetCount)
	}

	if c.UseWorkingNetwork && c.UsePeeringNetwork {
		return fmt.Errorf("use_peering_network cannot be combined with use_working_network")
	}
	if c.PeeringFirewall.AllowWorkingSubnet && !c.UsePeeringNetwork {
		return fmt.Errorf("peering_firewall.allow_working_subnet requires use_peering_network")
	}

	return nil
}

func (c *Config) validateSecurityRules() error {
	for i, rule := range c.SecurityRules {
		if !slices.Contains(validProtocols, rule.Protocol) {
			return fmt.Errorf("rule %d: invalid protocol %q: must be one of %v", i, rule.Protocol, validProtocols)
		}
		if rule.FromPort < 0 || rule.ToPort > 65535 || rule.FromPort > rule.ToPort {
			return fmt.Errorf("rule %d: invalid port range %d-%d", i, rule.FromPort, rule.ToPort)
		}
		if len(rule.CIDRs) == 0 {
			return fmt.Errorf("rule %d: at least one cidr is required", i)
		}
		for _, cidr := range rule.CIDRs {
			if _, _, err := net.ParseCIDR(cidr); err != nil {
				return fmt.Errorf("rule %d: invalid cidr %q: %w", i, cidr, err)
			}
		}
	}

	for _, src := range c.AllowedSSHSources {
		if _, _, err := net.ParseCIDR(src); err != nil {
			return fmt.Errorf("invalid allowed_ssh_sources entry %q: %w", src, err)
		}
	}

	return nil
}

func (c *Config) validateAWS() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	return nil
}

func (c *Config) validateHetzner() error {
	if c.Hetzner.Token == "" {
		return fmt.Errorf("hetzner token is required (set %s)", EnvHCloudToken)
	}
	if !ValidLocations[c.Hetzner.Location] {
		return fmt.Errorf("invalid location %q: must be one of %v", c.Hetzner.Location, getMapKeys(ValidLocations))
	}
	if !ValidNetworkZones[c.Hetzner.NetworkZone] {
		return fmt.Errorf("invalid network zone %q: must be one of %v", c.Hetzner.NetworkZone, getMapKeys(ValidNetworkZones))
	}

	// Hetzner networks cannot be peered.
	if c.UsePeeringNetwork {
		return fmt.Errorf("use_peering_network is not supported on hetzner")
	}
	if c.UseWorkingNetwork && c.Hetzner.WorkingNetwork == "" {
		return fmt.Errorf("hetzner.working_network is required when use_working_network is set")
	}

	if net.ParseIP(c.Hetzner.GatewayIP) == nil {
		return fmt.Errorf("hetzner.gateway_ip must be a valid IP address, got %q", c.Hetzner.GatewayIP)
	}

	if c.ManagedStorage {
		if c.Storage.Endpoint == "" {
			return fmt.Errorf("storage.endpoint is required for managed storage")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("storage credentials are required (set %s and %s)", EnvS3AccessKey, EnvS3SecretKey)
		}
	}

	return nil
}

// getMapKeys returns the sorted keys of a map for error messages.
func getMapKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
