package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsctl/cmd/wsctl/handlers"
)

// Create returns the create command.
func Create(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a workspace or complete a partially created one",
		Long: `Create provisions every resource of the workspace in dependency order:
  - Network (or the working network when use_working_network is set)
  - Public and private subnets
  - Egress gateway and one egress rule per subnet
  - Security group with the configured rules
  - Peering with the working network (use_peering_network)
  - Head and worker identity profiles
  - Storage bucket (managed_storage)

Resources that already exist are adopted, so create can be re-run after a
failure and only the missing resources are created.

Example:
  wsctl create -c wsctl.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Create(cmd.Context(), bind(cmd, opts))
		},
	}
}
