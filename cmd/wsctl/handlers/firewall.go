package handlers

import (
	"context"
)

// UpdateFirewall re-applies the configured security rules.
func UpdateFirewall(ctx context.Context, opts Options) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.finish()

	if err := s.orc.UpdateFirewalls(ctx, s.cfg); err != nil {
		return err
	}

	s.log.Info("Security rules updated", "workspace", s.cfg.WorkspaceName, "rules", len(s.cfg.SecurityRules))
	return nil
}
