package hcloud

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/util/labels"
)

// egressLabelPrefix keys the network labels that record egress rules. The
// label value is the encoded IP range of the routed subnet.
const egressLabelPrefix = "egress.wsctl.io/"

// defaultRoute is the destination of the shared egress route.
var defaultRoute = &net.IPNet{IP: net.IPv4zero.To4(), Mask: net.CIDRMask(0, 32)}

// withNetworkLabel returns base plus the ID of the network the resource
// serves.
func withNetworkLabel(base map[string]string, network *cloud.Network) map[string]string {
	lb := labels.NewLabelBuilder(base[labels.KeyWorkspace]).Merge(base)
	if network != nil {
		lb.WithNetwork(network.ID)
	}
	return lb.Build()
}

func toGateway(fip *hcloud.FloatingIP) *cloud.Gateway {
	gw := &cloud.Gateway{
		ID:        strconv.FormatInt(fip.ID, 10),
		Name:      fip.Name,
		NetworkID: fip.Labels[labels.KeyNetwork],
		Status:    cloud.GatewayActive,
	}
	if fip.IP != nil {
		gw.Address = fip.IP.String()
	}
	if fip.Blocked {
		gw.Status = cloud.GatewayPending
	}
	return gw
}

// FindGateway returns the floating IP with the given name, or nil.
func (c *RealClient) FindGateway(ctx context.Context, name string) (*cloud.Gateway, error) {
	fip, _, err := c.client.FloatingIP.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get floating IP %s: %w", name, classify(err, cloud.KindGateway, name))
	}
	if fip == nil {
		return nil, nil
	}
	return toGateway(fip), nil
}

// CreateGateway allocates an IPv4 floating IP in the configured location.
// The network it serves is recorded in its labels.
func (c *RealClient) CreateGateway(ctx context.Context, spec cloud.GatewaySpec) (*cloud.Gateway, error) {
	name := spec.Name
	fipLabels := withNetworkLabel(spec.Labels, spec.Network)

	fip, err := (&CreateOperation[*hcloud.FloatingIP, hcloud.FloatingIPCreateOpts]{
		Name:   name,
		Kind:   cloud.KindGateway,
		Get:    c.client.FloatingIP.Get,
		Create: c.createFloatingIP,
		CreateOptsMapper: func() hcloud.FloatingIPCreateOpts {
			return hcloud.FloatingIPCreateOpts{
				Name:         &name,
				Type:         hcloud.FloatingIPTypeIPv4,
				HomeLocation: &hcloud.Location{Name: c.location},
				Labels:       fipLabels,
			}
		},
	}).Execute(ctx, c)
	if err != nil {
		return nil, err
	}
	return toGateway(fip), nil
}

func (c *RealClient) createFloatingIP(ctx context.Context, opts hcloud.FloatingIPCreateOpts) (*CreateResult[*hcloud.FloatingIP], *hcloud.Response, error) {
	res, resp, err := c.client.FloatingIP.Create(ctx, opts)
	if err != nil {
		return nil, resp, err
	}
	return &CreateResult[*hcloud.FloatingIP]{Resource: res.FloatingIP, Action: res.Action}, resp, nil
}

// RefreshGateway re-reads the floating IP. A blocked IP is reported as pending.
func (c *RealClient) RefreshGateway(ctx context.Context, gateway *cloud.Gateway) (*cloud.Gateway, error) {
	fip, _, err := c.client.FloatingIP.Get(ctx, gateway.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh floating IP %s: %w", gateway.Name, classify(err, cloud.KindGateway, gateway.Name))
	}
	if fip == nil {
		return nil, cloud.NotFoundError(cloud.KindGateway, gateway.Name)
	}
	return toGateway(fip), nil
}

// DeleteGateway releases the floating IP.
func (c *RealClient) DeleteGateway(ctx context.Context, gateway *cloud.Gateway) error {
	return (&DeleteOperation[*hcloud.FloatingIP]{
		Name:   gateway.ID,
		Kind:   cloud.KindGateway,
		Get:    c.client.FloatingIP.Get,
		Delete: c.client.FloatingIP.Delete,
	}).Execute(ctx, c)
}

// egressRuleID joins the network ID and rule name so a rule can be deleted
// without its gateway.
func egressRuleID(networkID, name string) string {
	return networkID + "/" + name
}

func parseEgressRuleID(id string) (networkID, name string, err error) {
	networkID, name, ok := strings.Cut(id, "/")
	if !ok || networkID == "" || name == "" {
		return "", "", fmt.Errorf("invalid egress rule ID %q", id)
	}
	return networkID, name, nil
}

func egressRules(n *hcloud.Network, gatewayID string) []*cloud.EgressRule {
	networkID := strconv.FormatInt(n.ID, 10)
	var out []*cloud.EgressRule
	for key, value := range n.Labels {
		name, ok := strings.CutPrefix(key, egressLabelPrefix)
		if !ok {
			continue
		}
		out = append(out, &cloud.EgressRule{
			ID:        egressRuleID(networkID, name),
			Name:      name,
			GatewayID: gatewayID,
			SubnetID:  strings.Replace(value, "-", "/", 1),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *RealClient) hasDefaultRoute(n *hcloud.Network) bool {
	for _, r := range n.Routes {
		if r.Destination != nil && r.Destination.String() == defaultRoute.String() && r.Gateway.Equal(c.gatewayIP) {
			return true
		}
	}
	return false
}

// ListEgressRules returns the egress rules recorded on the gateway's network.
func (c *RealClient) ListEgressRules(ctx context.Context, gateway *cloud.Gateway) ([]*cloud.EgressRule, error) {
	if gateway.NetworkID == "" {
		return nil, nil
	}
	n, _, err := c.client.Network.Get(ctx, gateway.NetworkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get network %s: %w", gateway.NetworkID, classify(err, cloud.KindNetwork, gateway.NetworkID))
	}
	if n == nil {
		return nil, nil
	}
	return egressRules(n, gateway.ID), nil
}

// CreateEgressRule records the rule and makes sure the default route to the
// NAT host exists.
func (c *RealClient) CreateEgressRule(ctx context.Context, gateway *cloud.Gateway, spec cloud.EgressRuleSpec) (*cloud.EgressRule, error) {
	if c.gatewayIP == nil {
		return nil, errors.New("hetzner gateway_ip is not configured")
	}
	if spec.Subnet == nil {
		return nil, fmt.Errorf("egress rule %s has no subnet", spec.Name)
	}

	n, err := c.getNetwork(ctx, spec.Subnet.NetworkID, cloud.KindEgressRule, spec.Name)
	if err != nil {
		return nil, err
	}
	if _, ok := n.Labels[egressLabelPrefix+spec.Name]; ok {
		return nil, cloud.ConflictError(cloud.KindEgressRule, spec.Name)
	}

	if !c.hasDefaultRoute(n) {
		action, _, err := c.client.Network.AddRoute(ctx, n, hcloud.NetworkAddRouteOpts{
			Route: hcloud.NetworkRoute{Destination: defaultRoute, Gateway: c.gatewayIP},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add egress route: %w", classify(err, cloud.KindEgressRule, spec.Name))
		}
		if err := waitForActions(ctx, c.client, action); err != nil {
			return nil, fmt.Errorf("failed to wait for egress route: %w", err)
		}
	}

	if err := c.setLabel(ctx, n, egressLabelPrefix+spec.Name, rangeLabel(spec.Subnet.CIDR)); err != nil {
		return nil, err
	}

	return &cloud.EgressRule{
		ID:        egressRuleID(spec.Subnet.NetworkID, spec.Name),
		Name:      spec.Name,
		GatewayID: gateway.ID,
		SubnetID:  spec.Subnet.ID,
	}, nil
}

// DeleteEgressRule removes the rule label. The default route goes with the
// last rule.
func (c *RealClient) DeleteEgressRule(ctx context.Context, rule *cloud.EgressRule) error {
	networkID, name, err := parseEgressRuleID(rule.ID)
	if err != nil {
		return err
	}

	n, err := c.getNetwork(ctx, networkID, cloud.KindEgressRule, name)
	if err != nil {
		return err
	}
	if _, ok := n.Labels[egressLabelPrefix+name]; !ok {
		return cloud.NotFoundError(cloud.KindEgressRule, name)
	}
	if err := c.setLabel(ctx, n, egressLabelPrefix+name, ""); err != nil {
		return err
	}

	if len(egressRules(n, "")) > 0 || !c.hasDefaultRoute(n) {
		return nil
	}
	action, _, err := c.client.Network.DeleteRoute(ctx, n, hcloud.NetworkDeleteRouteOpts{
		Route: hcloud.NetworkRoute{Destination: defaultRoute, Gateway: c.gatewayIP},
	})
	if err != nil {
		return fmt.Errorf("failed to delete egress route: %w", classify(err, cloud.KindEgressRule, name))
	}
	return waitForActions(ctx, c.client, action)
}
