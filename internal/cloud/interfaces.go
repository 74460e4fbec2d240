package cloud

import "context"

// NetworkManager manages virtual networks.
type NetworkManager interface {
	FindNetwork(ctx context.Context, name string) (*Network, error)
	CreateNetwork(ctx context.Context, spec NetworkSpec) (*Network, error)
	DeleteNetwork(ctx context.Context, network *Network) error
	// WorkingNetwork resolves the pre-existing network the caller runs in.
	WorkingNetwork(ctx context.Context) (*Network, error)
}

// SubnetManager manages subnets. ListSubnets returns every subnet of the
// network, including ones the workspace does not own.
type SubnetManager interface {
	ListSubnets(ctx context.Context, network *Network) ([]*Subnet, error)
	CreateSubnet(ctx context.Context, network *Network, spec SubnetSpec) (*Subnet, error)
	DeleteSubnet(ctx context.Context, subnet *Subnet) error
}

// GatewayManager manages the egress gateway and the rules routing subnets
// through it.
type GatewayManager interface {
	FindGateway(ctx context.Context, name string) (*Gateway, error)
	CreateGateway(ctx context.Context, spec GatewaySpec) (*Gateway, error)
	// RefreshGateway re-reads the gateway, including its current status.
	RefreshGateway(ctx context.Context, gateway *Gateway) (*Gateway, error)
	DeleteGateway(ctx context.Context, gateway *Gateway) error

	ListEgressRules(ctx context.Context, gateway *Gateway) ([]*EgressRule, error)
	CreateEgressRule(ctx context.Context, gateway *Gateway, spec EgressRuleSpec) (*EgressRule, error)
	DeleteEgressRule(ctx context.Context, rule *EgressRule) error
}

// SecurityGroupManager manages the workspace firewall and its rules.
type SecurityGroupManager interface {
	FindSecurityGroup(ctx context.Context, name string) (*SecurityGroup, error)
	CreateSecurityGroup(ctx context.Context, spec SecurityGroupSpec) (*SecurityGroup, error)
	DeleteSecurityGroup(ctx context.Context, group *SecurityGroup) error

	ListRules(ctx context.Context, group *SecurityGroup) ([]Rule, error)
	AddRules(ctx context.Context, group *SecurityGroup, rules []Rule) error
	RemoveRules(ctx context.Context, group *SecurityGroup, rules []Rule) error
}

// PeeringManager manages the peering connection between the workspace
// network and the working network, including the routes on both sides.
type PeeringManager interface {
	FindPeering(ctx context.Context, name string) (*Peering, error)
	CreatePeering(ctx context.Context, spec PeeringSpec) (*Peering, error)
	DeletePeering(ctx context.Context, peering *Peering) error
}

// IdentityManager manages per-role identity profiles and their permissions.
type IdentityManager interface {
	FindIdentityProfile(ctx context.Context, name string) (*IdentityProfile, error)
	CreateIdentityProfile(ctx context.Context, spec IdentityProfileSpec) (*IdentityProfile, error)
	DeleteIdentityProfile(ctx context.Context, profile *IdentityProfile) error
}

// StorageManager manages the workspace bucket and its contents.
type StorageManager interface {
	FindBucket(ctx context.Context, name string) (*Bucket, error)
	CreateBucket(ctx context.Context, spec BucketSpec) (*Bucket, error)
	DeleteBucket(ctx context.Context, bucket *Bucket) error

	// ListObjects returns up to limit object keys.
	ListObjects(ctx context.Context, bucket *Bucket, limit int) ([]string, error)
	DeleteObjects(ctx context.Context, bucket *Bucket, keys []string) error
}

// Backend is the full capability interface of one cloud provider.
type Backend interface {
	NetworkManager
	SubnetManager
	GatewayManager
	SecurityGroupManager
	PeeringManager
	IdentityManager
	StorageManager

	// Name identifies the backend in logs and metrics.
	Name() string
}
