package workspace

import (
	"slices"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/config"
	"github.com/imamik/wsctl/internal/util/naming"
)

// ResourceSpec is one planned resource.
type ResourceSpec struct {
	Kind cloud.Kind
	Name string
	// Index is the subnet index for subnets and egress rules.
	Index int
	// Role is the subnet role (public/private) or identity role (head/worker).
	Role string
	// Owned is false for resources the workspace uses but did not create,
	// such as the working network. Teardown never deletes those.
	Owned bool
	// DependsOn lists the kinds that must be resolved before this resource.
	DependsOn []cloud.Kind
}

// PlanStep groups the resources created by one step.
type PlanStep struct {
	Kind      cloud.Kind
	Label     string
	Resources []ResourceSpec
}

// Plan is the ordered list of steps for one workspace. It is rebuilt for
// every operation and never persisted.
type Plan struct {
	Workspace  string
	Steps      []PlanStep
	TotalSteps int
}

// BaseSteps is the number of steps present regardless of optional features:
// network, subnets, gateway, security group and identity profiles.
const BaseSteps = 5

// BuildPlan returns the creation plan for cfg. The order is fixed:
// network, subnets, gateway with egress rules, security group, peering
// (optional), identity profiles, storage bucket (optional).
func BuildPlan(cfg *config.Config) *Plan {
	ws := cfg.WorkspaceName
	subnets := cfg.SubnetCountOrDefault()

	steps := []PlanStep{
		networkStep(cfg),
		subnetStep(ws, subnets),
		gatewayStep(ws, subnets),
		{
			Kind:  cloud.KindSecurityGroup,
			Label: "Creating security group",
			Resources: []ResourceSpec{{
				Kind:      cloud.KindSecurityGroup,
				Name:      naming.SecurityGroup(ws),
				Owned:     true,
				DependsOn: []cloud.Kind{cloud.KindNetwork},
			}},
		},
	}

	if cfg.UsePeeringNetwork {
		steps = append(steps, PlanStep{
			Kind:  cloud.KindPeering,
			Label: "Creating peering connection",
			Resources: []ResourceSpec{{
				Kind:      cloud.KindPeering,
				Name:      naming.Peering(ws),
				Owned:     true,
				DependsOn: []cloud.Kind{cloud.KindNetwork},
			}},
		})
	}

	steps = append(steps, PlanStep{
		Kind:  cloud.KindIdentityProfile,
		Label: "Creating identity profiles",
		Resources: []ResourceSpec{
			identitySpec(ws, cloud.RoleHead),
			identitySpec(ws, cloud.RoleWorker),
		},
	})

	if cfg.ManagedStorage {
		steps = append(steps, PlanStep{
			Kind:  cloud.KindStorageBucket,
			Label: "Creating storage bucket",
			Resources: []ResourceSpec{{
				Kind:  cloud.KindStorageBucket,
				Name:  naming.StorageBucket(ws),
				Owned: true,
			}},
		})
	}

	return &Plan{Workspace: ws, Steps: steps, TotalSteps: len(steps)}
}

func networkStep(cfg *config.Config) PlanStep {
	if cfg.UseWorkingNetwork {
		return PlanStep{
			Kind:  cloud.KindNetwork,
			Label: "Resolving working network",
			Resources: []ResourceSpec{{
				Kind: cloud.KindNetwork,
				Name: naming.Network(cfg.WorkspaceName),
			}},
		}
	}
	return PlanStep{
		Kind:  cloud.KindNetwork,
		Label: "Creating network",
		Resources: []ResourceSpec{{
			Kind:  cloud.KindNetwork,
			Name:  naming.Network(cfg.WorkspaceName),
			Owned: true,
		}},
	}
}

func subnetStep(ws string, count int) PlanStep {
	step := PlanStep{Kind: cloud.KindSubnet, Label: "Creating subnets"}
	for i := range count {
		step.Resources = append(step.Resources, ResourceSpec{
			Kind:      cloud.KindSubnet,
			Name:      naming.Subnet(ws, i),
			Index:     i,
			Role:      naming.SubnetRole(i),
			Owned:     true,
			DependsOn: []cloud.Kind{cloud.KindNetwork},
		})
	}
	return step
}

func gatewayStep(ws string, subnets int) PlanStep {
	step := PlanStep{
		Kind:  cloud.KindGateway,
		Label: "Creating gateway",
		Resources: []ResourceSpec{{
			Kind:      cloud.KindGateway,
			Name:      naming.Gateway(ws),
			Owned:     true,
			DependsOn: []cloud.Kind{cloud.KindNetwork, cloud.KindSubnet},
		}},
	}
	for i := range subnets {
		step.Resources = append(step.Resources, ResourceSpec{
			Kind:      cloud.KindEgressRule,
			Name:      naming.EgressRule(ws, i),
			Index:     i,
			Role:      naming.SubnetRole(i),
			Owned:     true,
			DependsOn: []cloud.Kind{cloud.KindGateway, cloud.KindSubnet},
		})
	}
	return step
}

func identitySpec(ws string, role cloud.IdentityRole) ResourceSpec {
	return ResourceSpec{
		Kind:  cloud.KindIdentityProfile,
		Name:  naming.IdentityProfile(ws, string(role)),
		Role:  string(role),
		Owned: true,
	}
}

// Resources returns every resource of the plan in creation order.
func (p *Plan) Resources() []ResourceSpec {
	var out []ResourceSpec
	for _, step := range p.Steps {
		out = append(out, step.Resources...)
	}
	return out
}

// Step returns the step for kind, if the plan contains one.
func (p *Plan) Step(kind cloud.Kind) (PlanStep, bool) {
	for _, step := range p.Steps {
		if step.Kind == kind {
			return step, true
		}
	}
	return PlanStep{}, false
}

// Reverse returns the teardown order: steps reversed, and resources within a
// step reversed, so children are removed before the parents they depend on.
func (p *Plan) Reverse() *Plan {
	steps := make([]PlanStep, len(p.Steps))
	for i, step := range p.Steps {
		resources := slices.Clone(step.Resources)
		slices.Reverse(resources)
		steps[len(p.Steps)-1-i] = PlanStep{Kind: step.Kind, Label: step.Label, Resources: resources}
	}
	return &Plan{Workspace: p.Workspace, Steps: steps, TotalSteps: len(steps)}
}

// Without returns a copy of the plan without the step for kind.
func (p *Plan) Without(kind cloud.Kind) *Plan {
	steps := slices.DeleteFunc(slices.Clone(p.Steps), func(s PlanStep) bool { return s.Kind == kind })
	return &Plan{Workspace: p.Workspace, Steps: steps, TotalSteps: len(steps)}
}
