package handlers

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Info prints the managed storage of the workspace as YAML.
func Info(ctx context.Context, opts Options) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.finish()

	info, err := s.orc.Info(ctx, s.cfg)
	if err != nil {
		return err
	}
	return writeYAML(s.opts.Out, info)
}

// Bootstrap verifies the workspace is complete and prints its handle as YAML.
func Bootstrap(ctx context.Context, opts Options) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.finish()

	handle, err := s.orc.Bootstrap(ctx, s.cfg)
	if err != nil {
		return err
	}
	return writeYAML(s.opts.Out, handle)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}
