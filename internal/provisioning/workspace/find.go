package workspace

import (
	"fmt"
	"sort"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/provisioning"
	"github.com/imamik/wsctl/internal/util/naming"
)

// findNetwork returns the network the workspace lives in. With a working
// network that is the caller's network, otherwise the one with the
// workspace network name. A nil network without error means absent.
func findNetwork(ctx *provisioning.Context) (*cloud.Network, error) {
	if ctx.Config.UseWorkingNetwork {
		n, err := ctx.Backend.WorkingNetwork(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working network: %w", err)
		}
		return n, nil
	}

	name := naming.Network(ctx.Config.WorkspaceName)
	n, err := ctx.Backend.FindNetwork(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get network %s: %w", name, err)
	}
	return n, nil
}

// findSubnets returns the workspace subnets of network keyed by name.
// Subnets the workspace does not own are ignored.
func findSubnets(ctx *provisioning.Context, network *cloud.Network) (map[string]*cloud.Subnet, error) {
	all, err := ctx.Backend.ListSubnets(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("failed to list subnets of network %s: %w", network.Name, err)
	}

	out := make(map[string]*cloud.Subnet)
	for _, s := range all {
		if naming.IsSubnet(ctx.Config.WorkspaceName, "", s.Name) {
			out[s.Name] = s
		}
	}
	return out, nil
}

// countSubnets counts the workspace subnets of the given role.
func countSubnets(workspace, role string, subnets map[string]*cloud.Subnet) int {
	n := 0
	for name := range subnets {
		if naming.IsSubnet(workspace, role, name) {
			n++
		}
	}
	return n
}

// orderedSubnets returns subnets sorted so the public subnet comes first,
// followed by private subnets in name order.
func orderedSubnets(workspace string, subnets map[string]*cloud.Subnet) []*cloud.Subnet {
	out := make([]*cloud.Subnet, 0, len(subnets))
	for _, s := range subnets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		pi := naming.IsSubnet(workspace, naming.RolePublic, out[i].Name)
		pj := naming.IsSubnet(workspace, naming.RolePublic, out[j].Name)
		if pi != pj {
			return pi
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func findGateway(ctx *provisioning.Context) (*cloud.Gateway, error) {
	name := naming.Gateway(ctx.Config.WorkspaceName)
	gw, err := ctx.Backend.FindGateway(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get gateway %s: %w", name, err)
	}
	return gw, nil
}

func findSecurityGroup(ctx *provisioning.Context) (*cloud.SecurityGroup, error) {
	name := naming.SecurityGroup(ctx.Config.WorkspaceName)
	sg, err := ctx.Backend.FindSecurityGroup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get security group %s: %w", name, err)
	}
	return sg, nil
}

func findPeering(ctx *provisioning.Context) (*cloud.Peering, error) {
	name := naming.Peering(ctx.Config.WorkspaceName)
	p, err := ctx.Backend.FindPeering(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get peering %s: %w", name, err)
	}
	return p, nil
}

func findProfile(ctx *provisioning.Context, role cloud.IdentityRole) (*cloud.IdentityProfile, error) {
	name := naming.IdentityProfile(ctx.Config.WorkspaceName, string(role))
	p, err := ctx.Backend.FindIdentityProfile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity profile %s: %w", name, err)
	}
	return p, nil
}

func findBucket(ctx *provisioning.Context) (*cloud.Bucket, error) {
	name := naming.StorageBucket(ctx.Config.WorkspaceName)
	b, err := ctx.Backend.FindBucket(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", name, err)
	}
	return b, nil
}
