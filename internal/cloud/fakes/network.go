package fakes

import (
	"context"
	"fmt"

	"github.com/imamik/wsctl/internal/cloud"
)

func (b *Backend) FindNetwork(_ context.Context, name string) (*cloud.Network, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpFind, cloud.KindNetwork, name); err != nil {
		return nil, err
	}
	for _, n := range b.networks {
		if n.Name == name && !n.Working {
			return copyOf(n), nil
		}
	}
	return nil, nil
}

func (b *Backend) CreateNetwork(_ context.Context, spec cloud.NetworkSpec) (*cloud.Network, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpCreate, cloud.KindNetwork, spec.Name); err != nil {
		return nil, err
	}
	for _, n := range b.networks {
		if n.Name == spec.Name {
			return nil, cloud.ConflictError(cloud.KindNetwork, spec.Name)
		}
	}
	n := &cloud.Network{ID: b.id("vpc"), Name: spec.Name, CIDR: spec.CIDR}
	b.networks[n.ID] = n
	return copyOf(n), nil
}

func (b *Backend) DeleteNetwork(_ context.Context, network *cloud.Network) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpDelete, cloud.KindNetwork, network.Name); err != nil {
		return err
	}
	if _, ok := b.networks[network.ID]; !ok {
		return cloud.NotFoundError(cloud.KindNetwork, network.Name)
	}
	for _, s := range b.subnets {
		if s.NetworkID == network.ID {
			return fmt.Errorf("network %q still has subnet %q", network.Name, s.Name)
		}
	}
	for _, g := range b.groups {
		if g.sg.NetworkID == network.ID {
			return fmt.Errorf("network %q still has security group %q", network.Name, g.sg.Name)
		}
	}
	for _, p := range b.peerings {
		if p.RequesterNetworkID == network.ID || p.AccepterNetworkID == network.ID {
			return fmt.Errorf("network %q still has peering %q", network.Name, p.Name)
		}
	}
	delete(b.networks, network.ID)
	return nil
}

func (b *Backend) WorkingNetwork(_ context.Context) (*cloud.Network, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpFind, cloud.KindNetwork, "working"); err != nil {
		return nil, err
	}
	if b.working == nil {
		return nil, nil
	}
	return copyOf(b.working), nil
}

func (b *Backend) ListSubnets(_ context.Context, network *cloud.Network) ([]*cloud.Subnet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpList, cloud.KindSubnet, network.Name); err != nil {
		return nil, err
	}
	var out []*cloud.Subnet
	for _, id := range sortedKeys(b.subnets) {
		if s := b.subnets[id]; s.NetworkID == network.ID {
			out = append(out, copyOf(s))
		}
	}
	return out, nil
}

func (b *Backend) CreateSubnet(_ context.Context, network *cloud.Network, spec cloud.SubnetSpec) (*cloud.Subnet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpCreate, cloud.KindSubnet, spec.Name); err != nil {
		return nil, err
	}
	if _, ok := b.networks[network.ID]; !ok {
		return nil, cloud.NotFoundError(cloud.KindNetwork, network.Name)
	}
	for _, s := range b.subnets {
		if s.NetworkID == network.ID && (s.Name == spec.Name || s.CIDR == spec.CIDR) {
			return nil, cloud.ConflictError(cloud.KindSubnet, spec.Name)
		}
	}
	s := &cloud.Subnet{ID: b.id("subnet"), Name: spec.Name, NetworkID: network.ID, CIDR: spec.CIDR}
	b.subnets[s.ID] = s
	return copyOf(s), nil
}

func (b *Backend) DeleteSubnet(_ context.Context, subnet *cloud.Subnet) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpDelete, cloud.KindSubnet, subnet.Name); err != nil {
		return err
	}
	if _, ok := b.subnets[subnet.ID]; !ok {
		return cloud.NotFoundError(cloud.KindSubnet, subnet.Name)
	}
	for _, g := range b.gateways {
		if g.gw.SubnetID == subnet.ID {
			return fmt.Errorf("subnet %q still hosts gateway %q", subnet.Name, g.gw.Name)
		}
	}
	for _, r := range b.egress {
		if r.SubnetID == subnet.ID {
			return fmt.Errorf("subnet %q still has egress rule %q", subnet.Name, r.Name)
		}
	}
	delete(b.subnets, subnet.ID)
	return nil
}

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}
