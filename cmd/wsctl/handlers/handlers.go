// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"

	"github.com/imamik/wsctl/internal/config"
	"github.com/imamik/wsctl/internal/provisioning"
	"github.com/imamik/wsctl/internal/provisioning/workspace"
)

// Options holds the flags shared by every workspace command.
type Options struct {
	ConfigPath  string
	Backend     string
	Verbose     bool
	LogFormat   string
	MetricsFile string

	// Out receives command output. Logs go to stderr.
	Out io.Writer
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file (for testing injection).
	loadConfigFile = config.LoadFile

	// newLogger builds the logger behind the console observer.
	newLogger = provisioning.NewLogger

	// newBackend creates the cloud adapter selected by the configuration.
	newBackend = defaultBackend

	// loadTimeouts reads wait and retry ceilings from the environment.
	loadTimeouts = config.LoadTimeouts
)

// session bundles what a single command invocation works with.
type session struct {
	cfg     *config.Config
	log     logr.Logger
	orc     *workspace.Orchestrator
	metrics *provisioning.Metrics
	opts    Options
}

// newSession loads the configuration and wires the backend, the observer
// and the metrics registry into an orchestrator.
func newSession(ctx context.Context, opts Options) (*session, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	logger, err := newLogger(opts.LogFormat, opts.Verbose)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(opts.ConfigPath, opts.Backend)
	if err != nil {
		return nil, err
	}

	timeouts := loadTimeouts()
	backend, err := newBackend(ctx, cfg, timeouts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", cfg.Backend, err)
	}

	metrics := provisioning.NewMetrics()
	orc := workspace.New(backend,
		workspace.WithObserver(provisioning.NewConsoleObserver(logger)),
		workspace.WithTimeouts(timeouts),
		workspace.WithMetrics(metrics),
	)

	return &session{cfg: cfg, log: logger, orc: orc, metrics: metrics, opts: opts}, nil
}

// loadConfig loads the configuration file and applies the backend override.
// The configuration is validated again when the backend changes because the
// rules differ per backend.
func loadConfig(path, backend string) (*config.Config, error) {
	cfg, err := loadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if backend == "" || config.Backend(backend) == cfg.Backend {
		return cfg, nil
	}

	cfg.Backend = config.Backend(backend)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// finish writes the metrics file when one was requested. A write failure
// is logged and does not change the command result.
func (s *session) finish() {
	if s.opts.MetricsFile == "" {
		return
	}
	if err := s.metrics.WriteTextfile(s.opts.MetricsFile); err != nil {
		s.log.Error(err, "failed to write metrics")
	}
}

