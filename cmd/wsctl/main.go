// Package main is the entry point for the wsctl CLI.
//
// wsctl provisions and tears down the cloud workspace a compute cluster runs
// in: network, subnets, egress gateway, security group, optional peering,
// per-role identity profiles and an optional storage bucket. Every command
// reads the same workspace configuration file and is safe to re-run.
//
// Commands: create, delete, status, update-firewall, info, bootstrap.
//
// For detailed usage information, run:
//
//	wsctl --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/wsctl/cmd/wsctl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
