package workspace

import (
	"context"
	"sync"
	"testing"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/config"
	"github.com/imamik/wsctl/internal/provisioning"
)

// recorder is an Observer that keeps every event, shared with its children.
type recorder struct {
	mu     *sync.Mutex
	events *[]provisioning.Event
}

func newRecorder() *recorder {
	return &recorder{mu: &sync.Mutex{}, events: &[]provisioning.Event{}}
}

func (r *recorder) Printf(string, ...any) {}

func (r *recorder) Event(e provisioning.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.events = append(*r.events, e)
}

func (r *recorder) WithFields(map[string]string) provisioning.Observer { return r }

func (r *recorder) ofType(t provisioning.EventType) []provisioning.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []provisioning.Event
	for _, e := range *r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testConfig(mutators ...func(*config.Config)) *config.Config {
	cfg := &config.Config{
		WorkspaceName: "dev",
		Backend:       config.BackendFake,
		NetworkCIDR:   config.DefaultNetworkCIDR,
		SubnetCount:   config.DefaultSubnetCount,
	}
	for _, m := range mutators {
		m(cfg)
	}
	return cfg
}

func withPeering(cfg *config.Config) {
	cfg.UsePeeringNetwork = true
	cfg.PeeringFirewall.AllowWorkingSubnet = true
}

func withStorage(cfg *config.Config) {
	cfg.ManagedStorage = true
}

func newTestOrchestrator(backend cloud.Backend, observer provisioning.Observer) *Orchestrator {
	return New(backend,
		WithObserver(observer),
		WithTimeouts(config.TestTimeouts()),
		WithMetrics(provisioning.NewMetrics()),
	)
}

func newTestContext(t *testing.T, cfg *config.Config, backend cloud.Backend) *provisioning.Context {
	t.Helper()
	return provisioning.NewContext(context.Background(), provisioning.OperationStatus, cfg, backend,
		provisioning.WithTimeouts(config.TestTimeouts()),
	)
}

func reversed[T any](in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
