package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrNotConfirmed is returned when the user declines the delete prompt.
var ErrNotConfirmed = errors.New("delete not confirmed")

var (
	// stdinIsTerminal reports whether a prompt can be shown.
	stdinIsTerminal = func() bool {
		fd := os.Stdin.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}

	// confirmDelete asks the user to confirm the deletion.
	confirmDelete = func(workspace string, deleteStorage bool) (bool, error) {
		description := "The storage bucket is kept."
		if deleteStorage {
			description = "The storage bucket and all of its objects are deleted too."
		}

		var confirmed bool
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete workspace %q?", workspace)).
			Description(description).
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		return confirmed, err
	}
)

// Delete tears down the workspace described by the configuration file.
//
// Without yes the user is asked to confirm. When stdin is not a terminal the
// prompt cannot be shown and yes is required.
func Delete(ctx context.Context, opts Options, yes, deleteStorage bool) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.finish()

	if !yes {
		if !stdinIsTerminal() {
			return fmt.Errorf("refusing to delete workspace %q without confirmation: pass --yes", s.cfg.WorkspaceName)
		}
		ok, err := confirmDelete(s.cfg.WorkspaceName, deleteStorage)
		if err != nil {
			return fmt.Errorf("confirmation prompt failed: %w", err)
		}
		if !ok {
			return ErrNotConfirmed
		}
	}

	s.log.Info("Deleting workspace", "workspace", s.cfg.WorkspaceName, "delete_storage", deleteStorage)

	if err := s.orc.Delete(ctx, s.cfg, deleteStorage); err != nil {
		return err
	}

	s.log.Info("Workspace deleted", "workspace", s.cfg.WorkspaceName)
	return nil
}
