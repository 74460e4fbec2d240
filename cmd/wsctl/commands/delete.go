package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsctl/cmd/wsctl/handlers"
)

// Delete returns the delete command.
//
// The delete command removes workspace resources in the reverse of creation
// order. The storage bucket is kept unless --delete-storage is given.
func Delete(opts *handlers.Options) *cobra.Command {
	var (
		yes           bool
		deleteStorage bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a workspace and its resources",
		Long: `Delete removes the workspace resources in reverse creation order:
  - Storage bucket and its objects (only with --delete-storage)
  - Identity profiles
  - Peering connection
  - Security group
  - Egress rules and the gateway
  - Subnets
  - Network

A working network the workspace was built in is never deleted. Resources that
are already gone are skipped, so delete can be re-run after a failure.

Example:
  wsctl delete -c wsctl.yaml --yes

WARNING: This operation is irreversible.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Delete(cmd.Context(), bind(cmd, opts), yes, deleteStorage)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&deleteStorage, "delete-storage", false, "Also empty and delete the storage bucket")

	return cmd
}
