package fakes

import (
	"context"
	"fmt"

	"github.com/imamik/wsctl/internal/cloud"
)

func (b *Backend) FindGateway(_ context.Context, name string) (*cloud.Gateway, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpFind, cloud.KindGateway, name); err != nil {
		return nil, err
	}
	if g, ok := b.gateways[name]; ok {
		return copyOf(g.gw), nil
	}
	return nil, nil
}

func (b *Backend) CreateGateway(_ context.Context, spec cloud.GatewaySpec) (*cloud.Gateway, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpCreate, cloud.KindGateway, spec.Name); err != nil {
		return nil, err
	}
	if _, ok := b.gateways[spec.Name]; ok {
		return nil, cloud.ConflictError(cloud.KindGateway, spec.Name)
	}
	if _, ok := b.subnets[spec.Subnet.ID]; !ok {
		return nil, cloud.NotFoundError(cloud.KindSubnet, spec.Subnet.Name)
	}
	status := cloud.GatewayPending
	if b.GatewayActivateAfter == 0 {
		status = cloud.GatewayActive
	}
	g := &cloud.Gateway{
		ID:        b.id("nat"),
		Name:      spec.Name,
		NetworkID: spec.Network.ID,
		SubnetID:  spec.Subnet.ID,
		Address:   fmt.Sprintf("198.51.100.%d", b.nextID%250+1),
		Status:    status,
	}
	b.gateways[spec.Name] = &gatewayState{gw: g}
	return copyOf(g), nil
}

func (b *Backend) RefreshGateway(_ context.Context, gateway *cloud.Gateway) (*cloud.Gateway, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpRefresh, cloud.KindGateway, gateway.Name); err != nil {
		return nil, err
	}
	g, ok := b.gateways[gateway.Name]
	if !ok {
		return nil, cloud.NotFoundError(cloud.KindGateway, gateway.Name)
	}
	g.refreshes++
	switch {
	case b.GatewayFails:
		g.gw.Status = cloud.GatewayFailed
	case b.GatewayActivateAfter >= 0 && g.refreshes >= b.GatewayActivateAfter:
		g.gw.Status = cloud.GatewayActive
	}
	return copyOf(g.gw), nil
}

func (b *Backend) DeleteGateway(_ context.Context, gateway *cloud.Gateway) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpDelete, cloud.KindGateway, gateway.Name); err != nil {
		return err
	}
	if _, ok := b.gateways[gateway.Name]; !ok {
		return cloud.NotFoundError(cloud.KindGateway, gateway.Name)
	}
	for _, r := range b.egress {
		if r.GatewayID == gateway.ID {
			return fmt.Errorf("gateway %q still has egress rule %q", gateway.Name, r.Name)
		}
	}
	delete(b.gateways, gateway.Name)
	return nil
}

func (b *Backend) ListEgressRules(_ context.Context, gateway *cloud.Gateway) ([]*cloud.EgressRule, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpList, cloud.KindEgressRule, gateway.Name); err != nil {
		return nil, err
	}
	var out []*cloud.EgressRule
	for _, id := range sortedKeys(b.egress) {
		if r := b.egress[id]; r.GatewayID == gateway.ID {
			out = append(out, copyOf(r))
		}
	}
	return out, nil
}

func (b *Backend) CreateEgressRule(_ context.Context, gateway *cloud.Gateway, spec cloud.EgressRuleSpec) (*cloud.EgressRule, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpCreate, cloud.KindEgressRule, spec.Name); err != nil {
		return nil, err
	}
	for _, r := range b.egress {
		if r.GatewayID == gateway.ID && (r.Name == spec.Name || r.SubnetID == spec.Subnet.ID) {
			return nil, cloud.ConflictError(cloud.KindEgressRule, spec.Name)
		}
	}
	r := &cloud.EgressRule{ID: b.id("snat"), Name: spec.Name, GatewayID: gateway.ID, SubnetID: spec.Subnet.ID}
	b.egress[r.ID] = r
	return copyOf(r), nil
}

// DeleteEgressRule succeeds without removing the rule when StuckChildren is set.
func (b *Backend) DeleteEgressRule(_ context.Context, rule *cloud.EgressRule) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpDelete, cloud.KindEgressRule, rule.Name); err != nil {
		return err
	}
	if _, ok := b.egress[rule.ID]; !ok {
		return cloud.NotFoundError(cloud.KindEgressRule, rule.Name)
	}
	if len(b.batch([]string{rule.ID})) == 0 {
		return nil
	}
	delete(b.egress, rule.ID)
	return nil
}
