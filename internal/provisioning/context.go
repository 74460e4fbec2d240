package provisioning

import (
	"context"

	"github.com/google/uuid"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/config"
)

// Operation names used in errors, events and metrics.
const (
	OperationCreate    = "create"
	OperationDelete    = "delete"
	OperationUpdate    = "update-firewall"
	OperationStatus    = "status"
	OperationIntegrity = "check-integrity"
	OperationInfo      = "info"
	OperationBootstrap = "bootstrap"
)

// Context wraps all dependencies and state needed by an operation.
type Context struct {
	context.Context
	Config   *config.Config
	Backend  cloud.Backend
	State    *State
	Observer Observer
	Timeouts *config.Timeouts
	Metrics  *Metrics

	Operation   string
	OperationID string
}

// ContextOption customizes a Context.
type ContextOption func(*Context)

func WithObserver(o Observer) ContextOption {
	return func(c *Context) { c.Observer = o }
}

func WithTimeouts(t *config.Timeouts) ContextOption {
	return func(c *Context) { c.Timeouts = t }
}

func WithMetrics(m *Metrics) ContextOption {
	return func(c *Context) { c.Metrics = m }
}

// NewContext creates a context for a single operation on the configured
// workspace. Each call gets a fresh State and operation ID.
func NewContext(ctx context.Context, operation string, cfg *config.Config, backend cloud.Backend, opts ...ContextOption) *Context {
	pctx := &Context{
		Context:     ctx,
		Config:      cfg,
		Backend:     backend,
		State:       NewState(),
		Timeouts:    config.LoadTimeouts(),
		Operation:   operation,
		OperationID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(pctx)
	}
	if pctx.Observer == nil {
		pctx.Observer = NopObserver{}
	}
	pctx.Observer = pctx.Observer.WithFields(map[string]string{
		"workspace":    cfg.WorkspaceName,
		"operation":    operation,
		"operation_id": pctx.OperationID,
	})
	return pctx
}
