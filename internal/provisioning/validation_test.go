package provisioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/wsctl/internal/config"
)

func TestPreflight(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		mutate       func(*config.Config)
		wantErr      string
		wantWarnings []string
	}{
		{
			name: "clean config",
		},
		{
			name:    "network too small for subnets",
			mutate:  func(c *config.Config) { c.NetworkCIDR = "10.0.0.0/28" },
			wantErr: "leaves no room",
			// The prefix warning is not reported once an error aborts.
		},
		{
			name:         "small network warns",
			mutate:       func(c *config.Config) { c.NetworkCIDR = "10.0.0.0/20" },
			wantWarnings: []string{"CIDR prefix /20 is small"},
		},
		{
			name: "working network skips cidr checks",
			mutate: func(c *config.Config) {
				c.UseWorkingNetwork = true
				c.NetworkCIDR = "10.0.0.0/28"
			},
		},
		{
			name: "ssh open to the world",
			mutate: func(c *config.Config) {
				c.SecurityRules = []config.SecurityRule{config.SSHRule("0.0.0.0/0")}
			},
			wantWarnings: []string{"SSH is reachable from the internet"},
		},
		{
			name: "all ports open",
			mutate: func(c *config.Config) {
				c.SecurityRules = []config.SecurityRule{{Protocol: "tcp", FromPort: 1, ToPort: 65535, CIDRs: []string{"0.0.0.0/0"}}}
			},
			wantWarnings: []string{"opens every port"},
		},
		{
			name: "restricted web rule is fine",
			mutate: func(c *config.Config) {
				c.SecurityRules = []config.SecurityRule{{Protocol: "tcp", FromPort: 443, ToPort: 443, CIDRs: []string{"0.0.0.0/0"}}}
			},
		},
		{
			name:         "peering without firewall rule",
			mutate:       func(c *config.Config) { c.UsePeeringNetwork = true },
			wantWarnings: []string{"working network is not allowed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &config.Config{WorkspaceName: "dev", Backend: config.BackendFake}
			cfg.Normalize()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			observer := NewMockObserver()
			ctx := newTestContext(t, observer)
			ctx.Config = cfg

			err := Preflight(ctx)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			var warnings []string
			for _, e := range observer.Events() {
				if e.Type == EventValidationWarning {
					warnings = append(warnings, e.Message)
				}
			}
			require.Len(t, warnings, len(tt.wantWarnings))
			for i, want := range tt.wantWarnings {
				assert.Contains(t, warnings[i], want)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()
	ve := ValidationError{Field: "network_cidr", Message: "bad", Severity: "error"}
	assert.True(t, ve.IsError())
	assert.Equal(t, "[error] network_cidr: bad", ve.Error())
	assert.False(t, ValidationError{Severity: "warning"}.IsError())
}
