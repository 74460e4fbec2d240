package handlers

import (
	"context"
)

// Create provisions the workspace described by the configuration file.
//
// Resources that already exist are adopted. On failure the error names the
// step that failed and the resources created so far are left in place, so
// create can simply be run again.
func Create(ctx context.Context, opts Options) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.finish()

	s.log.Info("Creating workspace", "workspace", s.cfg.WorkspaceName, "backend", string(s.cfg.Backend))

	handle, err := s.orc.Create(ctx, s.cfg)
	if err != nil {
		return err
	}

	s.log.Info("Workspace created", "workspace", handle.Workspace, "network", handle.NetworkID)
	return nil
}
