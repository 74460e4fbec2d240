package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsctl/cmd/wsctl/handlers"
)

// Bootstrap returns the bootstrap command.
func Bootstrap(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Verify the workspace and print the handle a cluster launcher needs",
		Long: `Bootstrap checks that every workspace resource exists and prints the IDs
of the network, subnets, gateway, security group, identity profiles and
storage bucket as YAML. It fails when the workspace is not complete.

Example:
  wsctl bootstrap -c wsctl.yaml > workspace.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Bootstrap(cmd.Context(), bind(cmd, opts))
		},
	}
}
