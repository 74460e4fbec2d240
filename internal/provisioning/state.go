package provisioning

import (
	"github.com/imamik/wsctl/internal/cloud"
)

// State holds the resources resolved or created during one operation.
// Steps populate it in plan order; later steps read what earlier ones stored.
type State struct {
	Network *cloud.Network
	// WorkingNetwork is the caller's pre-existing network, resolved when the
	// workspace uses or peers with it.
	WorkingNetwork *cloud.Network
	// Subnets is ordered by subnet index; index 0 is the public subnet.
	Subnets       []*cloud.Subnet
	Gateway       *cloud.Gateway
	EgressRules   []*cloud.EgressRule
	SecurityGroup *cloud.SecurityGroup
	Peering       *cloud.Peering
	Profiles      map[cloud.IdentityRole]*cloud.IdentityProfile
	Bucket        *cloud.Bucket
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		Profiles: make(map[cloud.IdentityRole]*cloud.IdentityProfile),
	}
}

// PublicSubnet returns the subnet the gateway is placed in, if known.
func (s *State) PublicSubnet() *cloud.Subnet {
	if len(s.Subnets) == 0 {
		return nil
	}
	return s.Subnets[0]
}

// WorkspaceHandle summarizes the resources of a workspace for consumers such
// as a cluster launcher.
type WorkspaceHandle struct {
	Workspace       string            `yaml:"workspace" json:"workspace"`
	Backend         string            `yaml:"backend" json:"backend"`
	NetworkID       string            `yaml:"network_id,omitempty" json:"network_id,omitempty"`
	NetworkCIDR     string            `yaml:"network_cidr,omitempty" json:"network_cidr,omitempty"`
	WorkingNetwork  bool              `yaml:"working_network,omitempty" json:"working_network,omitempty"`
	PublicSubnetID  string            `yaml:"public_subnet_id,omitempty" json:"public_subnet_id,omitempty"`
	PrivateSubnets  []string          `yaml:"private_subnet_ids,omitempty" json:"private_subnet_ids,omitempty"`
	GatewayID       string            `yaml:"gateway_id,omitempty" json:"gateway_id,omitempty"`
	GatewayAddress  string            `yaml:"gateway_address,omitempty" json:"gateway_address,omitempty"`
	SecurityGroupID string            `yaml:"security_group_id,omitempty" json:"security_group_id,omitempty"`
	PeeringID       string            `yaml:"peering_id,omitempty" json:"peering_id,omitempty"`
	Profiles        map[string]string `yaml:"identity_profiles,omitempty" json:"identity_profiles,omitempty"`
	BucketName      string            `yaml:"bucket_name,omitempty" json:"bucket_name,omitempty"`
	BucketURI       string            `yaml:"bucket_uri,omitempty" json:"bucket_uri,omitempty"`
}

// Handle builds a WorkspaceHandle from the current state.
func (s *State) Handle(workspace, backend string) *WorkspaceHandle {
	h := &WorkspaceHandle{Workspace: workspace, Backend: backend}

	if s.Network != nil {
		h.NetworkID = s.Network.ID
		h.NetworkCIDR = s.Network.CIDR
		h.WorkingNetwork = s.Network.Working
	}
	for i, subnet := range s.Subnets {
		if subnet == nil {
			continue
		}
		if i == 0 {
			h.PublicSubnetID = subnet.ID
			continue
		}
		h.PrivateSubnets = append(h.PrivateSubnets, subnet.ID)
	}
	if s.Gateway != nil {
		h.GatewayID = s.Gateway.ID
		h.GatewayAddress = s.Gateway.Address
	}
	if s.SecurityGroup != nil {
		h.SecurityGroupID = s.SecurityGroup.ID
	}
	if s.Peering != nil {
		h.PeeringID = s.Peering.ID
	}
	if len(s.Profiles) > 0 {
		h.Profiles = make(map[string]string, len(s.Profiles))
		for role, p := range s.Profiles {
			h.Profiles[string(role)] = p.Name
		}
	}
	if s.Bucket != nil {
		h.BucketName = s.Bucket.Name
		h.BucketURI = s.Bucket.URI
	}
	return h
}
