package workspace

import (
	"fmt"
	"slices"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/config"
	"github.com/imamik/wsctl/internal/provisioning"
	"github.com/imamik/wsctl/internal/util/naming"
)

const maxPort = 65535

// BuildRules returns the ingress rules of the workspace security group:
// the configured rules, SSH from inside the workspace network and, when
// peering with the working network is allowed through the firewall, a rule
// for the working network (SSH only, or every TCP port).
// Duplicates are dropped and order is preserved.
func BuildRules(cfg *config.Config, network, working *cloud.Network) []cloud.Rule {
	var rules []cloud.Rule
	for _, r := range cfg.SecurityRules {
		for _, cidr := range r.CIDRs {
			rules = append(rules, cloud.Rule{Protocol: r.Protocol, FromPort: r.FromPort, ToPort: r.ToPort, CIDR: cidr})
		}
	}

	if network != nil && network.CIDR != "" {
		rules = append(rules, cloud.Rule{Protocol: "tcp", FromPort: config.SSHPort, ToPort: config.SSHPort, CIDR: network.CIDR})
	}

	if cfg.UsePeeringNetwork && cfg.PeeringFirewall.AllowWorkingSubnet && working != nil {
		rule := cloud.Rule{Protocol: "tcp", FromPort: 1, ToPort: maxPort, CIDR: working.CIDR}
		if cfg.PeeringFirewall.AllowSSHOnly {
			rule.FromPort, rule.ToPort = config.SSHPort, config.SSHPort
		}
		rules = append(rules, rule)
	}

	out := make([]cloud.Rule, 0, len(rules))
	for _, r := range rules {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// desiredRules resolves the working network when the peering rule needs it.
func desiredRules(ctx *provisioning.Context) ([]cloud.Rule, error) {
	var working *cloud.Network
	if ctx.Config.UsePeeringNetwork && ctx.Config.PeeringFirewall.AllowWorkingSubnet {
		n, err := workingNetwork(ctx)
		if err != nil {
			return nil, err
		}
		working = n
	}
	return BuildRules(ctx.Config, ctx.State.Network, working), nil
}

// addMissingRules adds the desired rules the group does not have yet.
// Rules present on the group but not desired are left alone.
func addMissingRules(ctx *provisioning.Context, sg *cloud.SecurityGroup) error {
	desired, err := desiredRules(ctx)
	if err != nil {
		return err
	}
	current, err := ctx.Backend.ListRules(ctx, sg)
	if err != nil {
		return fmt.Errorf("failed to list rules of security group %s: %w", sg.Name, err)
	}

	var missing []cloud.Rule
	for _, r := range desired {
		if !slices.Contains(current, r) {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if err := ctx.Backend.AddRules(ctx, sg, missing); err != nil {
		return fmt.Errorf("failed to add rules to security group %s: %w", sg.Name, err)
	}
	return nil
}

// updateFirewallStep replaces the rule set of an existing security group.
// A workspace without a network has nothing to update.
var updateFirewallStep = provisioning.StepFunc{
	Name: "Updating security group rules",
	Fn: func(ctx *provisioning.Context) error {
		ws := ctx.Config.WorkspaceName

		network, err := findNetwork(ctx)
		if err != nil {
			return err
		}
		if network == nil {
			provisioning.LogResourceSkipped(ctx.Observer, cloud.KindNetwork, naming.Network(ws), "workspace network not found")
			return nil
		}
		ctx.State.Network = network

		sg, err := findSecurityGroup(ctx)
		if err != nil {
			return err
		}
		if sg == nil {
			return cloud.NotFoundError(cloud.KindSecurityGroup, naming.SecurityGroup(ws))
		}
		ctx.State.SecurityGroup = sg

		desired, err := desiredRules(ctx)
		if err != nil {
			return err
		}
		current, err := ctx.Backend.ListRules(ctx, sg)
		if err != nil {
			return fmt.Errorf("failed to list rules of security group %s: %w", sg.Name, err)
		}
		if len(current) > 0 {
			if err := ctx.Backend.RemoveRules(ctx, sg, current); err != nil {
				return fmt.Errorf("failed to remove rules from security group %s: %w", sg.Name, err)
			}
		}
		if err := ctx.Backend.AddRules(ctx, sg, desired); err != nil {
			return fmt.Errorf("failed to add rules to security group %s: %w", sg.Name, err)
		}
		ctx.Observer.Printf("Updated security group %s with %d rules", sg.Name, len(desired))
		return nil
	},
}
