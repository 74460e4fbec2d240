package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsctl/cmd/wsctl/handlers"
)

// UpdateFirewall returns the update-firewall command.
func UpdateFirewall(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "update-firewall",
		Short: "Re-apply the security rules of an existing workspace",
		Long: `Update-firewall replaces the rules of the workspace security group with
the rules from the configuration file: the configured security rules and
allowed SSH sources, SSH from inside the workspace network and, when peering
is enabled, access from the working network.

Example:
  wsctl update-firewall -c wsctl.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.UpdateFirewall(cmd.Context(), bind(cmd, opts))
		},
	}
}
