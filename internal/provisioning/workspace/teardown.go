package workspace

import (
	"context"
	"fmt"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/provisioning"
)

// objectPageSize bounds how many object keys one drain round lists.
const objectPageSize = 1000

// TeardownPlan returns the deletion plan: the creation plan reversed. The
// storage step is included only when deleteStorage is set.
func TeardownPlan(plan *Plan, deleteStorage bool) *Plan {
	if !deleteStorage {
		plan = plan.Without(cloud.KindStorageBucket)
	}
	return plan.Reverse()
}

// DeleteSteps returns the executable deletion steps for a teardown plan.
func DeleteSteps(plan *Plan) []provisioning.Step {
	steps := make([]provisioning.Step, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		step.Label = deleteLabels[step.Kind]
		steps = append(steps, planStep{step: step, run: withDeleteTimeout(deleteFuncs[step.Kind])})
	}
	return steps
}

var deleteLabels = map[cloud.Kind]string{
	cloud.KindNetwork:         "Deleting network",
	cloud.KindSubnet:          "Deleting subnets",
	cloud.KindGateway:         "Deleting gateway and egress rules",
	cloud.KindSecurityGroup:   "Deleting security group",
	cloud.KindPeering:         "Deleting peering connection",
	cloud.KindIdentityProfile: "Deleting identity profiles",
	cloud.KindStorageBucket:   "Deleting storage bucket and objects",
}

var deleteFuncs = map[cloud.Kind]func(*provisioning.Context, PlanStep) error{
	cloud.KindNetwork:         deleteNetwork,
	cloud.KindSubnet:          deleteSubnets,
	cloud.KindGateway:         deleteGateway,
	cloud.KindSecurityGroup:   deleteSecurityGroup,
	cloud.KindPeering:         deletePeering,
	cloud.KindIdentityProfile: deleteIdentityProfiles,
	cloud.KindStorageBucket:   deleteBucket,
}

// withDeleteTimeout bounds a deletion step by the configured delete timeout.
func withDeleteTimeout(fn func(*provisioning.Context, PlanStep) error) func(*provisioning.Context, PlanStep) error {
	return func(ctx *provisioning.Context, step PlanStep) error {
		if ctx.Timeouts.Delete <= 0 {
			return fn(ctx, step)
		}
		inner, cancel := context.WithTimeout(ctx.Context, ctx.Timeouts.Delete)
		defer cancel()

		scoped := *ctx
		scoped.Context = inner
		return fn(&scoped, step)
	}
}

// remove deletes one resource. A resource that is already gone counts as
// deleted.
func remove(ctx *provisioning.Context, kind cloud.Kind, name string, del func() error) error {
	provisioning.LogResourceDeleting(ctx.Observer, kind, name)
	if err := del(); err != nil {
		if cloud.IsNotFound(err) {
			provisioning.LogResourceSkipped(ctx.Observer, kind, name, "already deleted")
			ctx.Metrics.ObserveResource(provisioning.ActionSkipped, kind)
			return nil
		}
		return fmt.Errorf("failed to delete %s %s: %w", kind, name, err)
	}
	provisioning.LogResourceDeleted(ctx.Observer, kind, name)
	ctx.Metrics.ObserveResource(provisioning.ActionDeleted, kind)
	return nil
}

func absent(ctx *provisioning.Context, kind cloud.Kind, name string) {
	provisioning.LogResourceSkipped(ctx.Observer, kind, name, "not found")
	ctx.Metrics.ObserveResource(provisioning.ActionSkipped, kind)
}

func deleteBucket(ctx *provisioning.Context, step PlanStep) error {
	spec := step.Resources[0]
	b, err := findBucket(ctx)
	if err != nil {
		return err
	}
	if b == nil {
		absent(ctx, cloud.KindStorageBucket, spec.Name)
		return nil
	}

	err = drain(ctx, loopObjects, b.Name,
		func() ([]string, error) { return ctx.Backend.ListObjects(ctx, b, objectPageSize) },
		func(keys []string) error { return ctx.Backend.DeleteObjects(ctx, b, keys) },
	)
	if err != nil {
		return err
	}
	return remove(ctx, cloud.KindStorageBucket, spec.Name, func() error {
		return ctx.Backend.DeleteBucket(ctx, b)
	})
}

func deleteIdentityProfiles(ctx *provisioning.Context, step PlanStep) error {
	for _, spec := range step.Resources {
		p, err := findProfile(ctx, cloud.IdentityRole(spec.Role))
		if err != nil {
			return err
		}
		if p == nil {
			absent(ctx, cloud.KindIdentityProfile, spec.Name)
			continue
		}
		if err := remove(ctx, cloud.KindIdentityProfile, spec.Name, func() error {
			return ctx.Backend.DeleteIdentityProfile(ctx, p)
		}); err != nil {
			return err
		}
	}
	return nil
}

func deletePeering(ctx *provisioning.Context, step PlanStep) error {
	spec := step.Resources[0]
	p, err := findPeering(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		absent(ctx, cloud.KindPeering, spec.Name)
		return nil
	}
	return remove(ctx, cloud.KindPeering, spec.Name, func() error {
		return ctx.Backend.DeletePeering(ctx, p)
	})
}

func deleteSecurityGroup(ctx *provisioning.Context, step PlanStep) error {
	spec := step.Resources[0]
	sg, err := findSecurityGroup(ctx)
	if err != nil {
		return err
	}
	if sg == nil {
		absent(ctx, cloud.KindSecurityGroup, spec.Name)
		return nil
	}
	return remove(ctx, cloud.KindSecurityGroup, spec.Name, func() error {
		return ctx.Backend.DeleteSecurityGroup(ctx, sg)
	})
}

// deleteGateway removes the egress rules in reverse plan order, drains any
// rules left behind and then deletes the gateway.
func deleteGateway(ctx *provisioning.Context, step PlanStep) error {
	var gwSpec ResourceSpec
	var ruleSpecs []ResourceSpec
	for _, spec := range step.Resources {
		if spec.Kind == cloud.KindGateway {
			gwSpec = spec
			continue
		}
		ruleSpecs = append(ruleSpecs, spec)
	}

	gw, err := findGateway(ctx)
	if err != nil {
		return err
	}
	if gw == nil {
		absent(ctx, cloud.KindGateway, gwSpec.Name)
		return nil
	}

	rules, err := ctx.Backend.ListEgressRules(ctx, gw)
	if err != nil {
		return fmt.Errorf("failed to list egress rules of gateway %s: %w", gw.Name, err)
	}
	byName := make(map[string]*cloud.EgressRule, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
	}
	for _, spec := range ruleSpecs {
		rule := byName[spec.Name]
		if rule == nil {
			continue
		}
		if err := remove(ctx, cloud.KindEgressRule, spec.Name, func() error {
			return ctx.Backend.DeleteEgressRule(ctx, rule)
		}); err != nil {
			return err
		}
	}

	err = drain(ctx, loopEgressRules, gw.Name,
		func() ([]*cloud.EgressRule, error) { return ctx.Backend.ListEgressRules(ctx, gw) },
		func(rules []*cloud.EgressRule) error {
			for _, r := range rules {
				if err := ctx.Backend.DeleteEgressRule(ctx, r); err != nil && !cloud.IsNotFound(err) {
					return err
				}
			}
			return nil
		},
	)
	if err != nil {
		return err
	}

	return remove(ctx, cloud.KindGateway, gwSpec.Name, func() error {
		return ctx.Backend.DeleteGateway(ctx, gw)
	})
}

// deleteSubnets removes the workspace subnets in reverse plan order and then
// drains subnets the plan no longer names, e.g. after subnet_count shrank.
func deleteSubnets(ctx *provisioning.Context, step PlanStep) error {
	network, err := findNetwork(ctx)
	if err != nil {
		return err
	}
	if network == nil {
		for _, spec := range step.Resources {
			absent(ctx, cloud.KindSubnet, spec.Name)
		}
		return nil
	}

	subnets, err := findSubnets(ctx, network)
	if err != nil {
		return err
	}
	for _, spec := range step.Resources {
		s := subnets[spec.Name]
		if s == nil {
			absent(ctx, cloud.KindSubnet, spec.Name)
			continue
		}
		if err := remove(ctx, cloud.KindSubnet, spec.Name, func() error {
			return ctx.Backend.DeleteSubnet(ctx, s)
		}); err != nil {
			return err
		}
	}

	return drain(ctx, loopSubnets, network.Name,
		func() ([]*cloud.Subnet, error) {
			left, err := findSubnets(ctx, network)
			if err != nil {
				return nil, err
			}
			return orderedSubnets(ctx.Config.WorkspaceName, left), nil
		},
		func(left []*cloud.Subnet) error {
			for _, s := range left {
				if err := ctx.Backend.DeleteSubnet(ctx, s); err != nil && !cloud.IsNotFound(err) {
					return err
				}
			}
			return nil
		},
	)
}

// deleteNetwork deletes the workspace network. A working network is not
// owned by the workspace and is left in place.
func deleteNetwork(ctx *provisioning.Context, step PlanStep) error {
	spec := step.Resources[0]
	if !spec.Owned {
		n, err := findNetwork(ctx)
		if err != nil {
			return err
		}
		name := spec.Name
		if n != nil {
			name = n.Name
		}
		provisioning.LogResourceSkipped(ctx.Observer, cloud.KindNetwork, name, "working network is not owned by the workspace")
		ctx.Metrics.ObserveResource(provisioning.ActionSkipped, cloud.KindNetwork)
		return nil
	}

	n, err := findNetwork(ctx)
	if err != nil {
		return err
	}
	if n == nil {
		absent(ctx, cloud.KindNetwork, spec.Name)
		return nil
	}
	return remove(ctx, cloud.KindNetwork, spec.Name, func() error {
		return ctx.Backend.DeleteNetwork(ctx, n)
	})
}
