package workspace

import (
	"fmt"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/config"
	"github.com/imamik/wsctl/internal/provisioning"
	"github.com/imamik/wsctl/internal/util/labels"
	"github.com/imamik/wsctl/internal/util/naming"
)

// planStep binds a PlanStep to the function that realizes it.
type planStep struct {
	step PlanStep
	run  func(ctx *provisioning.Context, step PlanStep) error
}

func (s planStep) Label() string { return s.step.Label }

func (s planStep) Run(ctx *provisioning.Context) error { return s.run(ctx, s.step) }

// CreateSteps returns the executable creation steps for plan, in plan order.
func CreateSteps(plan *Plan) []provisioning.Step {
	steps := make([]provisioning.Step, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		steps = append(steps, planStep{step: step, run: createFuncs[step.Kind]})
	}
	return steps
}

var createFuncs = map[cloud.Kind]func(*provisioning.Context, PlanStep) error{
	cloud.KindNetwork:         createNetwork,
	cloud.KindSubnet:          createSubnets,
	cloud.KindGateway:         createGateway,
	cloud.KindSecurityGroup:   createSecurityGroup,
	cloud.KindPeering:         createPeering,
	cloud.KindIdentityProfile: createIdentityProfiles,
	cloud.KindStorageBucket:   createBucket,
}

// ensure returns the resource reported by find, or creates it when find
// reports nothing. created is true when the resource was created now.
func ensure[T any](
	ctx *provisioning.Context,
	kind cloud.Kind,
	name string,
	find func() (*T, error),
	create func() (*T, error),
	id func(*T) string,
) (resource *T, created bool, err error) {
	resource, err = find()
	if err != nil {
		return nil, false, err
	}
	if resource != nil {
		provisioning.LogResourceExists(ctx.Observer, kind, name, id(resource))
		ctx.Metrics.ObserveResource(provisioning.ActionExists, kind)
		return resource, false, nil
	}

	provisioning.LogResourceCreating(ctx.Observer, kind, name)
	resource, err = create()
	if err != nil {
		return nil, false, fmt.Errorf("failed to create %s %s: %w", kind, name, err)
	}
	provisioning.LogResourceCreated(ctx.Observer, kind, name, id(resource))
	ctx.Metrics.ObserveResource(provisioning.ActionCreated, kind)
	return resource, true, nil
}

func resourceLabels(ctx *provisioning.Context, spec ResourceSpec) map[string]string {
	return labels.NewLabelBuilder(ctx.Config.WorkspaceName).
		WithKind(string(spec.Kind)).
		WithRole(spec.Role).
		WithName(spec.Name).
		Build()
}

// workingNetwork resolves the caller's network once per operation.
// It returns nil when the backend cannot locate one.
func workingNetwork(ctx *provisioning.Context) (*cloud.Network, error) {
	if ctx.State.WorkingNetwork != nil {
		return ctx.State.WorkingNetwork, nil
	}
	n, err := ctx.Backend.WorkingNetwork(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working network: %w", err)
	}
	ctx.State.WorkingNetwork = n
	return n, nil
}

func createNetwork(ctx *provisioning.Context, step PlanStep) error {
	spec := step.Resources[0]

	if !spec.Owned {
		n, err := workingNetwork(ctx)
		if err != nil {
			return err
		}
		if n == nil {
			return provisioning.DependencyError(step.Label, "working network")
		}
		provisioning.LogResourceExists(ctx.Observer, cloud.KindNetwork, n.Name, n.ID)
		ctx.Metrics.ObserveResource(provisioning.ActionExists, cloud.KindNetwork)
		ctx.State.Network = n
		return nil
	}

	n, _, err := ensure(ctx, cloud.KindNetwork, spec.Name,
		func() (*cloud.Network, error) { return findNetwork(ctx) },
		func() (*cloud.Network, error) {
			return ctx.Backend.CreateNetwork(ctx, cloud.NetworkSpec{
				Name:   spec.Name,
				CIDR:   ctx.Config.NetworkCIDR,
				Labels: resourceLabels(ctx, spec),
			})
		},
		func(n *cloud.Network) string { return n.ID },
	)
	if err != nil {
		return err
	}
	ctx.State.Network = n
	return nil
}

func createSubnets(ctx *provisioning.Context, step PlanStep) error {
	network := ctx.State.Network
	if network == nil {
		return provisioning.DependencyError(step.Label, string(cloud.KindNetwork))
	}

	all, err := ctx.Backend.ListSubnets(ctx, network)
	if err != nil {
		return fmt.Errorf("failed to list subnets of network %s: %w", network.Name, err)
	}
	byName := make(map[string]*cloud.Subnet, len(all))
	used := make([]string, 0, len(all))
	for _, s := range all {
		byName[s.Name] = s
		used = append(used, s.CIDR)
	}

	missing := 0
	for _, spec := range step.Resources {
		if byName[spec.Name] == nil {
			missing++
		}
	}
	var free []string
	if missing > 0 {
		free, err = config.AvailableSubnets(network.CIDR, used, config.SubnetNewBits, missing)
		if err != nil {
			return err
		}
	}

	subnets := make([]*cloud.Subnet, len(step.Resources))
	for i, spec := range step.Resources {
		s, _, err := ensure(ctx, cloud.KindSubnet, spec.Name,
			func() (*cloud.Subnet, error) { return byName[spec.Name], nil },
			func() (*cloud.Subnet, error) {
				cidr := free[0]
				free = free[1:]
				return ctx.Backend.CreateSubnet(ctx, network, cloud.SubnetSpec{
					Name:   spec.Name,
					CIDR:   cidr,
					Public: i == 0,
					Labels: resourceLabels(ctx, spec),
				})
			},
			func(s *cloud.Subnet) string { return s.ID },
		)
		if err != nil {
			return err
		}
		subnets[i] = s
	}
	ctx.State.Subnets = subnets
	return nil
}

func createSecurityGroup(ctx *provisioning.Context, step PlanStep) error {
	network := ctx.State.Network
	if network == nil {
		return provisioning.DependencyError(step.Label, string(cloud.KindNetwork))
	}
	spec := step.Resources[0]

	sg, _, err := ensure(ctx, cloud.KindSecurityGroup, spec.Name,
		func() (*cloud.SecurityGroup, error) { return findSecurityGroup(ctx) },
		func() (*cloud.SecurityGroup, error) {
			return ctx.Backend.CreateSecurityGroup(ctx, cloud.SecurityGroupSpec{
				Name:    spec.Name,
				Network: network,
				Labels:  resourceLabels(ctx, spec),
			})
		},
		func(sg *cloud.SecurityGroup) string { return sg.ID },
	)
	if err != nil {
		return err
	}
	ctx.State.SecurityGroup = sg

	return addMissingRules(ctx, sg)
}

func createPeering(ctx *provisioning.Context, step PlanStep) error {
	network := ctx.State.Network
	if network == nil {
		return provisioning.DependencyError(step.Label, string(cloud.KindNetwork))
	}
	working, err := workingNetwork(ctx)
	if err != nil {
		return err
	}
	if working == nil {
		return provisioning.DependencyError(step.Label, "working network")
	}
	spec := step.Resources[0]

	p, _, err := ensure(ctx, cloud.KindPeering, spec.Name,
		func() (*cloud.Peering, error) { return findPeering(ctx) },
		func() (*cloud.Peering, error) {
			return ctx.Backend.CreatePeering(ctx, cloud.PeeringSpec{
				Name:      spec.Name,
				Requester: working,
				Accepter:  network,
				Labels:    resourceLabels(ctx, spec),
			})
		},
		func(p *cloud.Peering) string { return p.ID },
	)
	if err != nil {
		return err
	}
	ctx.State.Peering = p
	return nil
}

func createIdentityProfiles(ctx *provisioning.Context, step PlanStep) error {
	var bucket string
	if ctx.Config.ManagedStorage {
		bucket = naming.StorageBucket(ctx.Config.WorkspaceName)
	}

	for _, spec := range step.Resources {
		role := cloud.IdentityRole(spec.Role)
		p, _, err := ensure(ctx, cloud.KindIdentityProfile, spec.Name,
			func() (*cloud.IdentityProfile, error) { return findProfile(ctx, role) },
			func() (*cloud.IdentityProfile, error) {
				return ctx.Backend.CreateIdentityProfile(ctx, cloud.IdentityProfileSpec{
					Name:       spec.Name,
					Role:       role,
					BucketName: bucket,
					Labels:     resourceLabels(ctx, spec),
				})
			},
			func(p *cloud.IdentityProfile) string { return p.ID },
		)
		if err != nil {
			return err
		}
		ctx.State.Profiles[role] = p
	}
	return nil
}

func createBucket(ctx *provisioning.Context, step PlanStep) error {
	spec := step.Resources[0]

	b, _, err := ensure(ctx, cloud.KindStorageBucket, spec.Name,
		func() (*cloud.Bucket, error) { return findBucket(ctx) },
		func() (*cloud.Bucket, error) {
			return ctx.Backend.CreateBucket(ctx, cloud.BucketSpec{
				Name:   spec.Name,
				Labels: resourceLabels(ctx, spec),
			})
		},
		func(b *cloud.Bucket) string { return b.Name },
	)
	if err != nil {
		return err
	}
	ctx.State.Bucket = b
	return nil
}
