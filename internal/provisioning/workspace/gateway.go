package workspace

import (
	"fmt"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/provisioning"
)

// createGateway ensures the gateway in the public subnet, waits for it to
// become active and then ensures one egress rule per subnet.
func createGateway(ctx *provisioning.Context, step PlanStep) error {
	network := ctx.State.Network
	if network == nil {
		return provisioning.DependencyError(step.Label, string(cloud.KindNetwork))
	}
	public := ctx.State.PublicSubnet()
	if public == nil {
		return provisioning.DependencyError(step.Label, "public subnet")
	}

	gwSpec := step.Resources[0]
	gw, _, err := ensure(ctx, cloud.KindGateway, gwSpec.Name,
		func() (*cloud.Gateway, error) { return findGateway(ctx) },
		func() (*cloud.Gateway, error) {
			return ctx.Backend.CreateGateway(ctx, cloud.GatewaySpec{
				Name:    gwSpec.Name,
				Network: network,
				Subnet:  public,
				Labels:  resourceLabels(ctx, gwSpec),
			})
		},
		func(gw *cloud.Gateway) string { return gw.ID },
	)
	if err != nil {
		return err
	}

	if !gw.Active() {
		if gw, err = waitGatewayActive(ctx, gw); err != nil {
			return err
		}
	}
	ctx.State.Gateway = gw

	existing, err := ctx.Backend.ListEgressRules(ctx, gw)
	if err != nil {
		return fmt.Errorf("failed to list egress rules of gateway %s: %w", gw.Name, err)
	}
	byName := make(map[string]*cloud.EgressRule, len(existing))
	for _, r := range existing {
		byName[r.Name] = r
	}

	ctx.State.EgressRules = ctx.State.EgressRules[:0]
	for _, spec := range step.Resources[1:] {
		if spec.Index >= len(ctx.State.Subnets) || ctx.State.Subnets[spec.Index] == nil {
			return provisioning.DependencyError(step.Label, fmt.Sprintf("subnet %d", spec.Index))
		}
		subnet := ctx.State.Subnets[spec.Index]

		rule, _, err := ensure(ctx, cloud.KindEgressRule, spec.Name,
			func() (*cloud.EgressRule, error) { return byName[spec.Name], nil },
			func() (*cloud.EgressRule, error) {
				return ctx.Backend.CreateEgressRule(ctx, gw, cloud.EgressRuleSpec{
					Name:   spec.Name,
					Subnet: subnet,
				})
			},
			func(r *cloud.EgressRule) string { return r.ID },
		)
		if err != nil {
			return err
		}
		ctx.State.EgressRules = append(ctx.State.EgressRules, rule)
	}
	return nil
}
