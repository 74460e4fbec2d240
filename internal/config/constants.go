package config

// Defaults applied when the corresponding field is left empty.
const (
	DefaultNetworkCIDR = "10.0.0.0/16"
	DefaultSubnetCount = 2
	DefaultLocation    = "nbg1"
	DefaultNetworkZone = "eu-central"

	// SubnetNewBits carves /24 subnets out of a /16 network.
	SubnetNewBits = 8

	// SSHPort is the port opened for allowed SSH sources and the
	// intra-network SSH rule.
	SSHPort = 22

	MaxSubnetCount = 8
)
