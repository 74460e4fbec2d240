package workspace

import (
	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/provisioning"
	"github.com/imamik/wsctl/internal/util/naming"
)

// State is the aggregate existence classification of a workspace.
type State string

const (
	StateNotExist    State = "NOT_EXIST"
	StateStorageOnly State = "STORAGE_ONLY"
	StateIncomplete  State = "INCOMPLETE"
	StateComplete    State = "COMPLETE"
)

// TargetResources is the number of counted resources without optional
// features: network, private subnets, public subnet, gateway, security
// group and the two identity profiles.
const TargetResources = 7

// Check is one counted entry of an existence report.
type Check struct {
	Kind     cloud.Kind
	Resource string
	Present  bool
	// Count is the number of matching resources for kinds with multiplicity.
	Count int
}

// ExistenceReport describes which workspace resources exist right now.
type ExistenceReport struct {
	Workspace string
	Checks    []Check
	Present   int
	Target    int
	State     State
}

// Missing returns the checks that were not satisfied.
func (r *ExistenceReport) Missing() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Present {
			out = append(out, c)
		}
	}
	return out
}

// Classify maps a present count to a workspace state. bucketPresent reports
// whether the storage bucket is among the present resources.
func Classify(present, target int, bucketPresent bool) State {
	switch {
	case present == 0:
		return StateNotExist
	case present == target:
		return StateComplete
	case present == 1 && bucketPresent:
		return StateStorageOnly
	default:
		return StateIncomplete
	}
}

// Reconcile counts the workspace resources present in the backend and
// classifies the result. Found resources are stored in ctx.State.
//
// Resources inside the network are only looked up when the network exists.
// Private subnets count once at least subnet_count-1 exist. The public
// subnet check accepts a count of zero, so it is satisfied whenever the
// network exists.
func Reconcile(ctx *provisioning.Context) (*ExistenceReport, error) {
	cfg := ctx.Config
	ws := cfg.WorkspaceName

	report := &ExistenceReport{Workspace: ws, Target: TargetResources}
	if cfg.ManagedStorage {
		report.Target++
	}
	if cfg.UsePeeringNetwork {
		report.Target++
	}

	add := func(c Check) {
		report.Checks = append(report.Checks, c)
		if c.Present {
			report.Present++
		}
	}

	network, err := findNetwork(ctx)
	if err != nil {
		return nil, err
	}
	add(Check{Kind: cloud.KindNetwork, Resource: naming.Network(ws), Present: network != nil})

	if network != nil {
		ctx.State.Network = network
		if network.Working {
			ctx.State.WorkingNetwork = network
		}

		subnets, err := findSubnets(ctx, network)
		if err != nil {
			return nil, err
		}
		ctx.State.Subnets = orderedSubnets(ws, subnets)

		private := countSubnets(ws, naming.RolePrivate, subnets)
		add(Check{
			Kind:     cloud.KindSubnet,
			Resource: naming.RolePrivate,
			Present:  private >= cfg.SubnetCountOrDefault()-1,
			Count:    private,
		})
		public := countSubnets(ws, naming.RolePublic, subnets)
		add(Check{
			Kind:     cloud.KindSubnet,
			Resource: naming.Subnet(ws, 0),
			Present:  public >= 0,
			Count:    public,
		})

		gw, err := findGateway(ctx)
		if err != nil {
			return nil, err
		}
		ctx.State.Gateway = gw
		add(Check{Kind: cloud.KindGateway, Resource: naming.Gateway(ws), Present: gw != nil})

		sg, err := findSecurityGroup(ctx)
		if err != nil {
			return nil, err
		}
		ctx.State.SecurityGroup = sg
		add(Check{Kind: cloud.KindSecurityGroup, Resource: naming.SecurityGroup(ws), Present: sg != nil})

		if cfg.UsePeeringNetwork {
			p, err := findPeering(ctx)
			if err != nil {
				return nil, err
			}
			ctx.State.Peering = p
			add(Check{Kind: cloud.KindPeering, Resource: naming.Peering(ws), Present: p != nil})
		}
	}

	for _, role := range []cloud.IdentityRole{cloud.RoleHead, cloud.RoleWorker} {
		p, err := findProfile(ctx, role)
		if err != nil {
			return nil, err
		}
		if p != nil {
			ctx.State.Profiles[role] = p
		}
		add(Check{
			Kind:     cloud.KindIdentityProfile,
			Resource: naming.IdentityProfile(ws, string(role)),
			Present:  p != nil,
		})
	}

	bucketPresent := false
	if cfg.ManagedStorage {
		b, err := findBucket(ctx)
		if err != nil {
			return nil, err
		}
		ctx.State.Bucket = b
		bucketPresent = b != nil
		add(Check{Kind: cloud.KindStorageBucket, Resource: naming.StorageBucket(ws), Present: bucketPresent})
	}

	report.State = Classify(report.Present, report.Target, bucketPresent)
	ctx.Metrics.ObserveStatus(ws, report.Present, report.Target)
	return report, nil
}
