package cmd

import (
	"github.com/spf13/cobra"

	"github.com/distcompute/dcctl/internal/dcctl"
)

func nodeCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Inspect the nodes contributed by the logged in user",
	}
	cmd.AddCommand(nodeListCmd(a), nodeGetCmd(a))
	return cmd
}

func nodeListCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes and their earnings",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ListNodes(cmd.Context())
		},
	}
	return cmd
}

func nodeGetCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <node-id>",
		Short: "Show the tasks a node has run",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.GetNode(cmd.Context(), args[0])
		},
	}
	return cmd
}
