package cmd

import (
	"github.com/spf13/cobra"

	"github.com/distcompute/dcctl/internal/dcctl"
)

func statsCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show platform wide statistics",
		Long:  "Show the number of active nodes and the lifetime earnings of the platform. No login is needed.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Statistics(cmd.Context())
		},
	}
	return cmd
}
