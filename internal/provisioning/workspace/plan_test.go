package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/config"
)

func stepKinds(p *Plan) []cloud.Kind {
	var kinds []cloud.Kind
	for _, s := range p.Steps {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

func TestBuildPlan_StepCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutators  []func(*config.Config)
		wantTotal int
		wantKinds []cloud.Kind
	}{
		{
			name:      "base plan",
			wantTotal: BaseSteps,
			wantKinds: []cloud.Kind{
				cloud.KindNetwork, cloud.KindSubnet, cloud.KindGateway,
				cloud.KindSecurityGroup, cloud.KindIdentityProfile,
			},
		},
		{
			name:      "peering adds one step",
			mutators:  []func(*config.Config){withPeering},
			wantTotal: BaseSteps + 1,
			wantKinds: []cloud.Kind{
				cloud.KindNetwork, cloud.KindSubnet, cloud.KindGateway,
				cloud.KindSecurityGroup, cloud.KindPeering, cloud.KindIdentityProfile,
			},
		},
		{
			name:      "storage adds one step",
			mutators:  []func(*config.Config){withStorage},
			wantTotal: BaseSteps + 1,
			wantKinds: []cloud.Kind{
				cloud.KindNetwork, cloud.KindSubnet, cloud.KindGateway,
				cloud.KindSecurityGroup, cloud.KindIdentityProfile, cloud.KindStorageBucket,
			},
		},
		{
			name:      "all optional steps",
			mutators:  []func(*config.Config){withPeering, withStorage},
			wantTotal: BaseSteps + 2,
			wantKinds: []cloud.Kind{
				cloud.KindNetwork, cloud.KindSubnet, cloud.KindGateway,
				cloud.KindSecurityGroup, cloud.KindPeering, cloud.KindIdentityProfile,
				cloud.KindStorageBucket,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan := BuildPlan(testConfig(tt.mutators...))
			assert.Equal(t, tt.wantTotal, plan.TotalSteps)
			assert.Len(t, plan.Steps, plan.TotalSteps)
			assert.Equal(t, tt.wantKinds, stepKinds(plan))
		})
	}
}

func TestBuildPlan_DeterministicNames(t *testing.T) {
	t.Parallel()
	cfg := testConfig(withPeering, withStorage)

	first := BuildPlan(cfg).Resources()
	second := BuildPlan(cfg).Resources()
	assert.Equal(t, first, second)

	var names []string
	for _, r := range first {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{
		"wsctl-dev-network",
		"wsctl-dev-public-subnet",
		"wsctl-dev-private-1-subnet",
		"wsctl-dev-gateway",
		"wsctl-dev-egress-0",
		"wsctl-dev-egress-1",
		"wsctl-dev-sg",
		"wsctl-dev-peering",
		"wsctl-dev-head-profile",
		"wsctl-dev-worker-profile",
		"wsctl-dev-bucket",
	}, names)
}

func TestBuildPlan_SubnetCount(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testConfig(func(c *config.Config) { c.SubnetCount = 4 }))

	subnets, ok := plan.Step(cloud.KindSubnet)
	require.True(t, ok)
	require.Len(t, subnets.Resources, 4)
	assert.Equal(t, "public", subnets.Resources[0].Role)
	for i, r := range subnets.Resources[1:] {
		assert.Equal(t, "private", r.Role)
		assert.Equal(t, i+1, r.Index)
	}

	gateway, ok := plan.Step(cloud.KindGateway)
	require.True(t, ok)
	assert.Len(t, gateway.Resources, 5, "gateway plus one egress rule per subnet")
}

func TestBuildPlan_WorkingNetworkNotOwned(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testConfig(func(c *config.Config) { c.UseWorkingNetwork = true }))

	network, ok := plan.Step(cloud.KindNetwork)
	require.True(t, ok)
	assert.Equal(t, "Resolving working network", network.Label)
	assert.False(t, network.Resources[0].Owned)
	assert.Equal(t, BaseSteps, plan.TotalSteps)
}

func TestPlan_Reverse(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testConfig(withStorage))
	rev := plan.Reverse()

	assert.Equal(t, reversed(stepKinds(plan)), stepKinds(rev))
	assert.Equal(t, reversed(plan.Resources()), rev.Resources())
	assert.Equal(t, "wsctl-dev-network", plan.Resources()[0].Name, "reverse must not modify the source plan")
}

func TestPlan_Without(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testConfig(withStorage))
	trimmed := plan.Without(cloud.KindStorageBucket)

	assert.Equal(t, plan.TotalSteps-1, trimmed.TotalSteps)
	_, ok := trimmed.Step(cloud.KindStorageBucket)
	assert.False(t, ok)
	_, ok = plan.Step(cloud.KindStorageBucket)
	assert.True(t, ok)
}

func TestTeardownPlan(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testConfig(withPeering, withStorage))

	keep := TeardownPlan(plan, false)
	assert.Equal(t, plan.TotalSteps-1, keep.TotalSteps)
	assert.Equal(t, cloud.KindIdentityProfile, keep.Steps[0].Kind)

	all := TeardownPlan(plan, true)
	assert.Equal(t, plan.TotalSteps, all.TotalSteps)
	assert.Equal(t, cloud.KindStorageBucket, all.Steps[0].Kind)
	assert.Equal(t, cloud.KindNetwork, all.Steps[len(all.Steps)-1].Kind)
}
