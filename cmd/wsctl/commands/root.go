// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsctl/cmd/wsctl/handlers"
	"github.com/imamik/wsctl/internal/provisioning"
)

// Root returns the root command for the wsctl CLI.
//
// Flags shared by every workspace command are persistent on the root so
// they can be given before or after the subcommand.
func Root() *cobra.Command {
	opts := &handlers.Options{}

	cmd := &cobra.Command{
		Use:           "wsctl",
		Short:         "Provision cloud workspaces for compute clusters",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "wsctl.yaml", "Path to workspace configuration file")
	flags.StringVar(&opts.Backend, "backend", "", "Override the configured backend (aws, hetzner, fake)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log every resource check, including existing resources")
	flags.StringVar(&opts.LogFormat, "log-format", provisioning.LogFormatConsole, "Log format (console, json)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write prometheus metrics to this file after the command")

	// Workspace lifecycle
	cmd.AddCommand(Create(opts))
	cmd.AddCommand(Delete(opts))
	cmd.AddCommand(Status(opts))
	cmd.AddCommand(UpdateFirewall(opts))

	// Consumers of an existing workspace
	cmd.AddCommand(Info(opts))
	cmd.AddCommand(Bootstrap(opts))

	cmd.AddCommand(Version())

	return cmd
}

// bind returns the options for a single invocation with the command's
// output stream attached.
func bind(cmd *cobra.Command, opts *handlers.Options) handlers.Options {
	o := *opts
	o.Out = cmd.OutOrStdout()
	return o
}
