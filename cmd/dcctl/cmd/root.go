package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/distcompute/dcctl/internal/dcctl"
	"github.com/distcompute/dcctl/pkg/client"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	return rootCmdWithApp(dcctl.New())
}

// Takes a caller-supplied app struct; useful for testing.
func rootCmdWithApp(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dcctl",
		Short: "dcctl submits and monitors jobs on the distributed compute platform.",
		Long: `dcctl submits and monitors jobs on the distributed compute platform.

Persistent config can be saved in a config file so it doesn't have to be specified every command.

Example structure:
baseUrl: https://compute.example.com
chunkSize: 50Mi
uploadTimeout: 30m
tokenStore: keyring

The location of this file can be passed in using the --config argument.
If not provided, $HOME/.dcctl.yaml is used.`,
		SilenceUsage: true,
	}

	client.AddApiConnectionCommandlineArgs(cmd)
	addAppFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		loginCmd(a),
		registerCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		refreshCmd(a),
		jobCmd(a),
		groupCmd(a),
		nodeCmd(a),
		statsCmd(a),
		versionCmd(a),
	)

	return cmd
}

// addAppFlags registers the flags read by initParams that are not connection settings.
func addAppFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (default is $HOME/.dcctl.yaml)")
	flags.String("logLevel", "info", "log level: debug, info, warn or error")
	flags.StringP("output", "o", dcctl.OutputTable, "output format of get and list commands: table, yaml or json")
	flags.String("metricsFile", "", "write upload metrics in the Prometheus text format to this file")
}
