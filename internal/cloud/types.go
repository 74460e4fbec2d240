package cloud

// Kind identifies a resource kind in a workspace.
type Kind string

const (
	KindNetwork         Kind = "network"
	KindSubnet          Kind = "subnet"
	KindGateway         Kind = "gateway"
	KindEgressRule      Kind = "egress-rule"
	KindSecurityGroup   Kind = "security-group"
	KindPeering         Kind = "peering"
	KindIdentityProfile Kind = "identity-profile"
	KindStorageBucket   Kind = "storage-bucket"
)

// Network is a virtual network (VPC).
type Network struct {
	ID   string
	Name string
	CIDR string
	// Working is set when the network was resolved as the caller's existing
	// network rather than found or created by name.
	Working bool
}

type NetworkSpec struct {
	Name   string
	CIDR   string
	Labels map[string]string
}

// Subnet is a subnet inside a network.
type Subnet struct {
	ID        string
	Name      string
	NetworkID string
	CIDR      string
	Zone      string
}

type SubnetSpec struct {
	Name string
	CIDR string
	// Public subnets get a default route to the internet; private ones
	// reach it through the gateway.
	Public bool
	Labels map[string]string
}

// GatewayStatus is the lifecycle state reported for a gateway.
type GatewayStatus string

const (
	GatewayPending GatewayStatus = "pending"
	GatewayActive  GatewayStatus = "active"
	GatewayFailed  GatewayStatus = "failed"
)

// Gateway is the NAT/egress gateway of a workspace. Creating one also
// allocates its public address.
type Gateway struct {
	ID        string
	Name      string
	NetworkID string
	SubnetID  string
	Address   string
	Status    GatewayStatus
}

func (g *Gateway) Active() bool {
	return g != nil && g.Status == GatewayActive
}

type GatewaySpec struct {
	Name    string
	Network *Network
	// Subnet is the public subnet the gateway is placed in.
	Subnet *Subnet
	Labels map[string]string
}

// EgressRule sends a subnet's outbound traffic through a gateway.
type EgressRule struct {
	ID        string
	Name      string
	GatewayID string
	SubnetID  string
}

type EgressRuleSpec struct {
	Name   string
	Subnet *Subnet
}

// Rule is a single ingress permission on a security group.
type Rule struct {
	Protocol string
	FromPort int
	ToPort   int
	CIDR     string
}

// SecurityGroup is the workspace firewall.
type SecurityGroup struct {
	ID        string
	Name      string
	NetworkID string
}

type SecurityGroupSpec struct {
	Name    string
	Network *Network
	Labels  map[string]string
}

// Peering connects the workspace network to the working network.
type Peering struct {
	ID                 string
	Name               string
	RequesterNetworkID string
	AccepterNetworkID  string
}

type PeeringSpec struct {
	Name      string
	Requester *Network
	Accepter  *Network
	Labels    map[string]string
}

// IdentityRole is the cluster role an identity profile is issued for.
type IdentityRole string

const (
	RoleHead   IdentityRole = "head"
	RoleWorker IdentityRole = "worker"
)

// IdentityProfile is the per-role identity nodes run with.
type IdentityProfile struct {
	ID   string
	Name string
	Role IdentityRole
	// Secret carries credential material that is only available at creation
	// time (an SSH private key on backends using keys as identities).
	Secret []byte
}

type IdentityProfileSpec struct {
	Name string
	Role IdentityRole
	// BucketName scopes storage permissions when managed storage is enabled.
	BucketName string
	Labels     map[string]string
}

// Bucket is the managed object storage bucket.
type Bucket struct {
	Name   string
	Region string
	URI    string
}

type BucketSpec struct {
	Name   string
	Labels map[string]string
}
