package handlers

import (
	"context"
)

// Status prints which workspace resources exist.
func Status(ctx context.Context, opts Options) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.finish()

	report, err := s.orc.Status(ctx, s.cfg)
	if err != nil {
		return err
	}

	renderStatus(s.opts.Out, string(s.cfg.Backend), report)
	return nil
}
