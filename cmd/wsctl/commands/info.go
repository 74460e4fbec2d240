package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsctl/cmd/wsctl/handlers"
)

// Info returns the info command.
func Info(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the managed storage of a workspace as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Info(cmd.Context(), bind(cmd, opts))
		},
	}
}
