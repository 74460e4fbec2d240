package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/config"
	"github.com/imamik/wsctl/internal/provisioning"
)

// Orchestrator runs workspace operations against one backend. It holds no
// workspace state between calls.
type Orchestrator struct {
	backend  cloud.Backend
	observer provisioning.Observer
	timeouts *config.Timeouts
	metrics  *provisioning.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithObserver(o provisioning.Observer) Option {
	return func(orc *Orchestrator) { orc.observer = o }
}

func WithTimeouts(t *config.Timeouts) Option {
	return func(orc *Orchestrator) { orc.timeouts = t }
}

func WithMetrics(m *provisioning.Metrics) Option {
	return func(orc *Orchestrator) { orc.metrics = m }
}

// New creates an orchestrator for backend.
func New(backend cloud.Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{backend: backend}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) newContext(ctx context.Context, operation string, cfg *config.Config) *provisioning.Context {
	opts := []provisioning.ContextOption{provisioning.WithMetrics(o.metrics)}
	if o.observer != nil {
		opts = append(opts, provisioning.WithObserver(o.observer))
	}
	if o.timeouts != nil {
		opts = append(opts, provisioning.WithTimeouts(o.timeouts))
	}
	return provisioning.NewContext(ctx, operation, cfg, o.backend, opts...)
}

// Create builds every missing workspace resource in plan order and returns
// the resulting handle. Resources that already exist are reused, so a failed
// Create can be repeated.
func (o *Orchestrator) Create(ctx context.Context, cfg *config.Config) (*provisioning.WorkspaceHandle, error) {
	pctx := o.newContext(ctx, provisioning.OperationCreate, cfg)
	if err := provisioning.Preflight(pctx); err != nil {
		return nil, err
	}

	plan := BuildPlan(cfg)
	pctx.Observer.Printf("Creating workspace %s (%d steps)", cfg.WorkspaceName, plan.TotalSteps)
	if err := provisioning.RunSteps(pctx, CreateSteps(plan)); err != nil {
		return nil, err
	}
	pctx.Observer.Printf("Successfully created workspace %s", cfg.WorkspaceName)
	return pctx.State.Handle(cfg.WorkspaceName, o.backend.Name()), nil
}

// Delete removes the workspace resources in reverse plan order. The storage
// bucket is only removed when deleteStorage is set.
func (o *Orchestrator) Delete(ctx context.Context, cfg *config.Config, deleteStorage bool) error {
	pctx := o.newContext(ctx, provisioning.OperationDelete, cfg)

	plan := TeardownPlan(BuildPlan(cfg), cfg.ManagedStorage && deleteStorage)
	pctx.Observer.Printf("Deleting workspace %s (%d steps)", cfg.WorkspaceName, plan.TotalSteps)
	if err := provisioning.RunSteps(pctx, DeleteSteps(plan)); err != nil {
		return err
	}
	pctx.Observer.Printf("Successfully deleted workspace %s", cfg.WorkspaceName)
	return nil
}

// Status reports which workspace resources exist.
func (o *Orchestrator) Status(ctx context.Context, cfg *config.Config) (*ExistenceReport, error) {
	return Reconcile(o.newContext(ctx, provisioning.OperationStatus, cfg))
}

// CheckIntegrity returns an error wrapping provisioning.ErrIntegrityViolation
// unless the workspace is complete.
func (o *Orchestrator) CheckIntegrity(ctx context.Context, cfg *config.Config) error {
	_, err := o.integrity(o.newContext(ctx, provisioning.OperationIntegrity, cfg))
	return err
}

// integrity runs the completeness check and records it as an operation.
func (o *Orchestrator) integrity(pctx *provisioning.Context) (*ExistenceReport, error) {
	start := time.Now()
	report, err := verifyComplete(pctx)
	result := provisioning.ResultSuccess
	if err != nil {
		result = provisioning.ResultFailure
	}
	pctx.Metrics.ObserveOperation(pctx.Operation, result, time.Since(start))
	return report, err
}

func verifyComplete(pctx *provisioning.Context) (*ExistenceReport, error) {
	report, err := Reconcile(pctx)
	if err != nil {
		return nil, err
	}
	if report.State == StateComplete {
		return report, nil
	}

	var missing []string
	for _, c := range report.Missing() {
		missing = append(missing, c.Resource)
	}
	msg := fmt.Sprintf("workspace %q is %s (%d/%d resources)", report.Workspace, report.State, report.Present, report.Target)
	if len(missing) > 0 {
		msg += ", missing " + strings.Join(missing, ", ")
	}
	return report, fmt.Errorf("%s: %w", msg, provisioning.ErrIntegrityViolation)
}

// UpdateFirewalls re-applies the security rules of an existing workspace.
func (o *Orchestrator) UpdateFirewalls(ctx context.Context, cfg *config.Config) error {
	pctx := o.newContext(ctx, provisioning.OperationUpdate, cfg)
	return provisioning.RunSteps(pctx, []provisioning.Step{updateFirewallStep})
}

// Info describes the managed storage of a workspace.
type Info struct {
	Workspace  string `yaml:"workspace" json:"workspace"`
	BucketName string `yaml:"bucket_name,omitempty" json:"bucket_name,omitempty"`
	BucketURI  string `yaml:"bucket_uri,omitempty" json:"bucket_uri,omitempty"`
	Region     string `yaml:"region,omitempty" json:"region,omitempty"`
}

// Info returns the managed storage bucket, if the workspace has one. The
// bucket is looked up regardless of managed_storage. A backend without
// storage fails the lookup only when managed_storage is on.
func (o *Orchestrator) Info(ctx context.Context, cfg *config.Config) (*Info, error) {
	info := &Info{Workspace: cfg.WorkspaceName}

	b, err := findBucket(o.newContext(ctx, provisioning.OperationInfo, cfg))
	if err != nil {
		if !cfg.ManagedStorage && errors.Is(err, cloud.ErrUnsupported) {
			return info, nil
		}
		return nil, err
	}
	if b != nil {
		info.BucketName = b.Name
		info.BucketURI = b.URI
		info.Region = b.Region
	}
	return info, nil
}

// Bootstrap verifies the workspace is complete and returns the handle a
// cluster launcher consumes.
func (o *Orchestrator) Bootstrap(ctx context.Context, cfg *config.Config) (*provisioning.WorkspaceHandle, error) {
	pctx := o.newContext(ctx, provisioning.OperationBootstrap, cfg)
	if _, err := o.integrity(pctx); err != nil {
		return nil, err
	}
	if cfg.ManagedStorage && pctx.State.Bucket == nil {
		return nil, fmt.Errorf("workspace %q has no storage bucket: %w", cfg.WorkspaceName, provisioning.ErrIntegrityViolation)
	}
	return pctx.State.Handle(cfg.WorkspaceName, o.backend.Name()), nil
}
