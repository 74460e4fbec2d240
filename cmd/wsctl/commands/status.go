package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsctl/cmd/wsctl/handlers"
)

// Status returns the status command.
func Status(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which workspace resources exist",
		Long: `Status checks every workspace resource and reports one of:
  NOT_EXIST     nothing exists
  STORAGE_ONLY  only the storage bucket is left
  INCOMPLETE    some resources are missing
  COMPLETE      every resource exists

Example:
  wsctl status -c wsctl.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), bind(cmd, opts))
		},
	}
}
