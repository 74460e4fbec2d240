package hcloud

import (
	"context"
	"fmt"
	"maps"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/wsctl/internal/cloud"
)

// subnetLabelPrefix keys the network labels that carry subnet names.
const subnetLabelPrefix = "subnet.wsctl.io/"

// rangeLabel encodes an IP range as a label key suffix ("/" is not allowed).
func rangeLabel(cidr string) string {
	return strings.ReplaceAll(cidr, "/", "-")
}

func subnetLabel(cidr string) string {
	return subnetLabelPrefix + rangeLabel(cidr)
}

func toNetwork(n *hcloud.Network) *cloud.Network {
	out := &cloud.Network{
		ID:   strconv.FormatInt(n.ID, 10),
		Name: n.Name,
	}
	if n.IPRange != nil {
		out.CIDR = n.IPRange.String()
	}
	return out
}

// FindNetwork returns the network with the given name, or nil.
func (c *RealClient) FindNetwork(ctx context.Context, name string) (*cloud.Network, error) {
	n, _, err := c.client.Network.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get network %s: %w", name, classify(err, cloud.KindNetwork, name))
	}
	if n == nil {
		return nil, nil
	}
	return toNetwork(n), nil
}

// CreateNetwork creates a network with the given IP range.
func (c *RealClient) CreateNetwork(ctx context.Context, spec cloud.NetworkSpec) (*cloud.Network, error) {
	_, ipNet, err := net.ParseCIDR(spec.CIDR)
	if err != nil {
		return nil, fmt.Errorf("invalid network ip range %q: %w", spec.CIDR, err)
	}

	n, err := (&CreateOperation[*hcloud.Network, hcloud.NetworkCreateOpts]{
		Name:   spec.Name,
		Kind:   cloud.KindNetwork,
		Get:    c.client.Network.Get,
		Create: simpleCreate(c.client.Network.Create),
		CreateOptsMapper: func() hcloud.NetworkCreateOpts {
			return hcloud.NetworkCreateOpts{
				Name:    spec.Name,
				IPRange: ipNet,
				Labels:  spec.Labels,
			}
		},
	}).Execute(ctx, c)
	if err != nil {
		return nil, err
	}
	return toNetwork(n), nil
}

// DeleteNetwork deletes the network.
func (c *RealClient) DeleteNetwork(ctx context.Context, network *cloud.Network) error {
	return (&DeleteOperation[*hcloud.Network]{
		Name:   network.ID,
		Kind:   cloud.KindNetwork,
		Get:    c.client.Network.Get,
		Delete: c.client.Network.Delete,
	}).Execute(ctx, c)
}

// WorkingNetwork resolves the configured existing network by name or ID.
// Without one configured there is nothing to resolve.
func (c *RealClient) WorkingNetwork(ctx context.Context) (*cloud.Network, error) {
	if c.workingNetwork == "" {
		return nil, nil
	}
	n, _, err := c.client.Network.Get(ctx, c.workingNetwork)
	if err != nil {
		return nil, fmt.Errorf("failed to get working network %s: %w", c.workingNetwork,
			classify(err, cloud.KindNetwork, c.workingNetwork))
	}
	if n == nil {
		return nil, nil
	}
	out := toNetwork(n)
	out.Working = true
	return out, nil
}

// getNetwork loads a network by ID and fails with cloud.ErrNotFound when it
// is gone.
func (c *RealClient) getNetwork(ctx context.Context, id string, kind cloud.Kind, name string) (*hcloud.Network, error) {
	n, _, err := c.client.Network.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get network %s: %w", id, classify(err, cloud.KindNetwork, id))
	}
	if n == nil {
		return nil, fmt.Errorf("network %s: %w", id, cloud.NotFoundError(kind, name))
	}
	return n, nil
}

// setLabel updates a single network label; an empty value removes it.
func (c *RealClient) setLabel(ctx context.Context, n *hcloud.Network, key, value string) error {
	labels := maps.Clone(n.Labels)
	if labels == nil {
		labels = make(map[string]string)
	}
	if value == "" {
		delete(labels, key)
	} else {
		labels[key] = value
	}

	updated, _, err := c.client.Network.Update(ctx, n, hcloud.NetworkUpdateOpts{Labels: labels})
	if err != nil {
		return fmt.Errorf("failed to update labels of network %s: %w", n.Name, classify(err, cloud.KindNetwork, n.Name))
	}
	if updated != nil {
		n.Labels = updated.Labels
	} else {
		n.Labels = labels
	}
	return nil
}

// ListSubnets returns every subnet of the network. Subnets without a
// workspace name label are reported under their IP range.
func (c *RealClient) ListSubnets(ctx context.Context, network *cloud.Network) ([]*cloud.Subnet, error) {
	n, err := c.getNetwork(ctx, network.ID, cloud.KindNetwork, network.Name)
	if err != nil {
		return nil, err
	}

	out := make([]*cloud.Subnet, 0, len(n.Subnets))
	for _, s := range n.Subnets {
		if s.IPRange == nil {
			continue
		}
		cidr := s.IPRange.String()
		name := n.Labels[subnetLabel(cidr)]
		if name == "" {
			name = cidr
		}
		out = append(out, &cloud.Subnet{
			ID:        cidr,
			Name:      name,
			NetworkID: network.ID,
			CIDR:      cidr,
			Zone:      string(s.NetworkZone),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CIDR < out[j].CIDR })
	return out, nil
}

// CreateSubnet adds a cloud subnet in the configured network zone. All
// Hetzner subnets are private; public ones reach the internet through
// server public IPs rather than a route.
func (c *RealClient) CreateSubnet(ctx context.Context, network *cloud.Network, spec cloud.SubnetSpec) (*cloud.Subnet, error) {
	_, ipNet, err := net.ParseCIDR(spec.CIDR)
	if err != nil {
		return nil, fmt.Errorf("invalid subnet ip range %q: %w", spec.CIDR, err)
	}

	n, err := c.getNetwork(ctx, network.ID, cloud.KindSubnet, spec.Name)
	if err != nil {
		return nil, err
	}
	for key, name := range n.Labels {
		if strings.HasPrefix(key, subnetLabelPrefix) && name == spec.Name {
			return nil, cloud.ConflictError(cloud.KindSubnet, spec.Name)
		}
	}

	action, _, err := c.client.Network.AddSubnet(ctx, n, hcloud.NetworkAddSubnetOpts{
		Subnet: hcloud.NetworkSubnet{
			Type:        hcloud.NetworkSubnetTypeCloud,
			IPRange:     ipNet,
			NetworkZone: c.networkZone,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add subnet: %w", classify(err, cloud.KindSubnet, spec.Name))
	}
	if err := waitForActions(ctx, c.client, action); err != nil {
		return nil, fmt.Errorf("failed to wait for subnet creation: %w", err)
	}

	cidr := ipNet.String()
	if err := c.setLabel(ctx, n, subnetLabel(cidr), spec.Name); err != nil {
		return nil, err
	}

	return &cloud.Subnet{
		ID:        cidr,
		Name:      spec.Name,
		NetworkID: network.ID,
		CIDR:      cidr,
		Zone:      string(c.networkZone),
	}, nil
}

// DeleteSubnet removes the subnet and its name label.
func (c *RealClient) DeleteSubnet(ctx context.Context, subnet *cloud.Subnet) error {
	n, err := c.getNetwork(ctx, subnet.NetworkID, cloud.KindSubnet, subnet.Name)
	if err != nil {
		return err
	}

	var target *hcloud.NetworkSubnet
	for i := range n.Subnets {
		if n.Subnets[i].IPRange != nil && n.Subnets[i].IPRange.String() == subnet.CIDR {
			target = &n.Subnets[i]
			break
		}
	}
	if target == nil {
		return cloud.NotFoundError(cloud.KindSubnet, subnet.Name)
	}

	action, _, err := c.client.Network.DeleteSubnet(ctx, n, hcloud.NetworkDeleteSubnetOpts{Subnet: *target})
	if err != nil {
		return fmt.Errorf("failed to delete subnet %s: %w", subnet.CIDR, classify(err, cloud.KindSubnet, subnet.Name))
	}
	if err := waitForActions(ctx, c.client, action); err != nil {
		return fmt.Errorf("failed to wait for subnet deletion: %w", err)
	}

	if _, ok := n.Labels[subnetLabel(subnet.CIDR)]; ok {
		return c.setLabel(ctx, n, subnetLabel(subnet.CIDR), "")
	}
	return nil
}
