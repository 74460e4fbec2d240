package hcloud

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/util/labels"
)

func toSecurityGroup(fw *hcloud.Firewall) *cloud.SecurityGroup {
	return &cloud.SecurityGroup{
		ID:        strconv.FormatInt(fw.ID, 10),
		Name:      fw.Name,
		NetworkID: fw.Labels[labels.KeyNetwork],
	}
}

// FindSecurityGroup returns the firewall with the given name, or nil.
func (c *RealClient) FindSecurityGroup(ctx context.Context, name string) (*cloud.SecurityGroup, error) {
	fw, _, err := c.client.Firewall.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get firewall %s: %w", name, classify(err, cloud.KindSecurityGroup, name))
	}
	if fw == nil {
		return nil, nil
	}
	return toSecurityGroup(fw), nil
}

// CreateSecurityGroup creates an empty firewall. Rules are added separately.
func (c *RealClient) CreateSecurityGroup(ctx context.Context, spec cloud.SecurityGroupSpec) (*cloud.SecurityGroup, error) {
	fw, err := (&CreateOperation[*hcloud.Firewall, hcloud.FirewallCreateOpts]{
		Name:   spec.Name,
		Kind:   cloud.KindSecurityGroup,
		Get:    c.client.Firewall.Get,
		Create: c.createFirewall,
		CreateOptsMapper: func() hcloud.FirewallCreateOpts {
			return hcloud.FirewallCreateOpts{
				Name:   spec.Name,
				Labels: withNetworkLabel(spec.Labels, spec.Network),
			}
		},
	}).Execute(ctx, c)
	if err != nil {
		return nil, err
	}
	return toSecurityGroup(fw), nil
}

func (c *RealClient) createFirewall(ctx context.Context, opts hcloud.FirewallCreateOpts) (*CreateResult[*hcloud.Firewall], *hcloud.Response, error) {
	res, resp, err := c.client.Firewall.Create(ctx, opts)
	if err != nil {
		return nil, resp, err
	}
	return &CreateResult[*hcloud.Firewall]{
		Resource: res.Firewall,
		Actions:  res.Actions,
	}, resp, nil
}

// DeleteSecurityGroup deletes the firewall.
func (c *RealClient) DeleteSecurityGroup(ctx context.Context, group *cloud.SecurityGroup) error {
	return (&DeleteOperation[*hcloud.Firewall]{
		Name:   group.ID,
		Kind:   cloud.KindSecurityGroup,
		Get:    c.client.Firewall.Get,
		Delete: c.client.Firewall.Delete,
	}).Execute(ctx, c)
}

func (c *RealClient) getFirewall(ctx context.Context, group *cloud.SecurityGroup) (*hcloud.Firewall, error) {
	fw, _, err := c.client.Firewall.Get(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get firewall %s: %w", group.Name, classify(err, cloud.KindSecurityGroup, group.Name))
	}
	if fw == nil {
		return nil, cloud.NotFoundError(cloud.KindSecurityGroup, group.Name)
	}
	return fw, nil
}

// ListRules returns the inbound rules, one per source range.
func (c *RealClient) ListRules(ctx context.Context, group *cloud.SecurityGroup) ([]cloud.Rule, error) {
	fw, err := c.getFirewall(ctx, group)
	if err != nil {
		return nil, err
	}
	_, in := splitRules(fw.Rules)
	return in, nil
}

// AddRules appends rules that are not present yet.
func (c *RealClient) AddRules(ctx context.Context, group *cloud.SecurityGroup, rules []cloud.Rule) error {
	fw, err := c.getFirewall(ctx, group)
	if err != nil {
		return err
	}
	out, in := splitRules(fw.Rules)

	seen := make(map[cloud.Rule]bool, len(in))
	for _, r := range in {
		seen[r] = true
	}
	for _, r := range rules {
		if !seen[r] {
			seen[r] = true
			in = append(in, r)
		}
	}
	return c.setRules(ctx, fw, out, in)
}

// RemoveRules drops the given rules; unknown ones are ignored.
func (c *RealClient) RemoveRules(ctx context.Context, group *cloud.SecurityGroup, rules []cloud.Rule) error {
	fw, err := c.getFirewall(ctx, group)
	if err != nil {
		return err
	}
	out, in := splitRules(fw.Rules)

	drop := make(map[cloud.Rule]bool, len(rules))
	for _, r := range rules {
		drop[r] = true
	}
	kept := in[:0]
	for _, r := range in {
		if !drop[r] {
			kept = append(kept, r)
		}
	}
	return c.setRules(ctx, fw, out, kept)
}

// setRules replaces the firewall rule set, keeping non-inbound rules as they were.
func (c *RealClient) setRules(ctx context.Context, fw *hcloud.Firewall, keep []hcloud.FirewallRule, in []cloud.Rule) error {
	rules := append([]hcloud.FirewallRule{}, keep...)
	for _, r := range in {
		fr, err := toFirewallRule(r)
		if err != nil {
			return err
		}
		rules = append(rules, fr)
	}

	actions, _, err := c.client.Firewall.SetRules(ctx, fw, hcloud.FirewallSetRulesOpts{Rules: rules})
	if err != nil {
		return fmt.Errorf("failed to set rules of firewall %s: %w", fw.Name, classify(err, cloud.KindSecurityGroup, fw.Name))
	}
	if err := waitForActions(ctx, c.client, actions...); err != nil {
		return fmt.Errorf("failed to wait for firewall %s rules: %w", fw.Name, err)
	}
	return nil
}

// splitRules separates rules the workspace does not manage from inbound
// rules expanded to one cloud.Rule per source range.
func splitRules(rules []hcloud.FirewallRule) ([]hcloud.FirewallRule, []cloud.Rule) {
	var keep []hcloud.FirewallRule
	var in []cloud.Rule
	for _, fr := range rules {
		if fr.Direction != hcloud.FirewallRuleDirectionIn {
			keep = append(keep, fr)
			continue
		}
		from, to := parsePort(fr.Port)
		for _, src := range fr.SourceIPs {
			in = append(in, cloud.Rule{
				Protocol: string(fr.Protocol),
				FromPort: from,
				ToPort:   to,
				CIDR:     src.String(),
			})
		}
	}
	return keep, in
}

// parsePort reads "22" or "1-65535". Protocols without ports yield zeros.
func parsePort(port *string) (int, int) {
	if port == nil {
		return 0, 0
	}
	lo, hi, found := strings.Cut(*port, "-")
	from, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0
	}
	if !found {
		return from, from
	}
	to, err := strconv.Atoi(hi)
	if err != nil {
		return from, from
	}
	return from, to
}

func toFirewallRule(r cloud.Rule) (hcloud.FirewallRule, error) {
	_, src, err := net.ParseCIDR(r.CIDR)
	if err != nil {
		return hcloud.FirewallRule{}, fmt.Errorf("invalid rule source %q: %w", r.CIDR, err)
	}

	fr := hcloud.FirewallRule{
		Direction: hcloud.FirewallRuleDirectionIn,
		SourceIPs: []net.IPNet{*src},
	}
	switch strings.ToLower(r.Protocol) {
	case "tcp":
		fr.Protocol = hcloud.FirewallRuleProtocolTCP
	case "udp":
		fr.Protocol = hcloud.FirewallRuleProtocolUDP
	case "icmp":
		fr.Protocol = hcloud.FirewallRuleProtocolICMP
		return fr, nil
	default:
		return hcloud.FirewallRule{}, fmt.Errorf("protocol %q is not supported by hetzner firewalls", r.Protocol)
	}

	port := strconv.Itoa(r.FromPort)
	if r.ToPort != r.FromPort {
		port = fmt.Sprintf("%d-%d", r.FromPort, r.ToPort)
	}
	fr.Port = hcloud.Ptr(port)
	return fr, nil
}
