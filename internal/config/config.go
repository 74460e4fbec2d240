package config

// Backend selects the cloud adapter used to realize a workspace.
type Backend string

const (
	BackendAWS     Backend = "aws"
	BackendHetzner Backend = "hetzner"
	BackendFake    Backend = "fake"
)

// Config holds the workspace configuration.
type Config struct {
	WorkspaceName string  `yaml:"workspace_name"`
	Backend       Backend `yaml:"backend"`

	// UseWorkingNetwork builds the workspace inside the network the caller
	// already runs in instead of creating a new one. That network is never
	// deleted by teardown.
	UseWorkingNetwork bool `yaml:"use_working_network"`
	// UsePeeringNetwork peers the workspace network with the working network.
	UsePeeringNetwork bool `yaml:"use_peering_network"`
	ManagedStorage    bool `yaml:"managed_storage"`

	NetworkCIDR string `yaml:"network_cidr"`
	SubnetCount int    `yaml:"subnet_count"`

	SecurityRules     []SecurityRule  `yaml:"security_rules"`
	AllowedSSHSources []string        `yaml:"allowed_ssh_sources"`
	PeeringFirewall   PeeringFirewall `yaml:"peering_firewall"`

	AWS     AWSConfig     `yaml:"aws"`
	Hetzner HetznerConfig `yaml:"hetzner"`
	Storage StorageConfig `yaml:"storage"`
}

// SecurityRule is an ingress rule applied to the workspace security group.
type SecurityRule struct {
	Protocol string   `yaml:"protocol"`
	FromPort int      `yaml:"from_port"`
	ToPort   int      `yaml:"to_port"`
	CIDRs    []string `yaml:"cidrs"`
}

// PeeringFirewall controls the extra rule added for traffic arriving over the
// peering connection from the working network.
type PeeringFirewall struct {
	AllowWorkingSubnet bool `yaml:"allow_working_subnet"`
	AllowSSHOnly       bool `yaml:"allow_ssh_only"`
}

type AWSConfig struct {
	Region string `yaml:"region"`
	// WorkingVPCID is discovered from instance metadata when empty.
	WorkingVPCID string `yaml:"working_vpc_id"`
	Profile      string `yaml:"profile"`
}

type HetznerConfig struct {
	Token       string `yaml:"token"`
	Location    string `yaml:"location"`
	NetworkZone string `yaml:"network_zone"`
	// WorkingNetwork is the name or ID of an existing network.
	WorkingNetwork string `yaml:"working_network"`
	// GatewayIP is the private address of the NAT host that egress routes
	// point at.
	GatewayIP string `yaml:"gateway_ip"`
}

// StorageConfig configures the S3-compatible endpoint for managed storage.
// On AWS only Region is used and credentials come from the SDK chain.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// SSHRule returns the rule that opens SSH from the given CIDRs.
func SSHRule(cidrs ...string) SecurityRule {
	return SecurityRule{Protocol: "tcp", FromPort: SSHPort, ToPort: SSHPort, CIDRs: cidrs}
}

// SubnetCountOrDefault returns the configured subnet count, defaulting when unset.
func (c *Config) SubnetCountOrDefault() int {
	if c.SubnetCount <= 0 {
		return DefaultSubnetCount
	}
	return c.SubnetCount
}
