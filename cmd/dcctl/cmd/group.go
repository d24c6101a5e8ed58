package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/distcompute/dcctl/internal/dcctl"
	"github.com/distcompute/dcctl/pkg/client"
)

func groupCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Create and inspect groups of jobs sharing one script",
	}
	cmd.AddCommand(
		groupCreateCmd(a),
		groupListCmd(a),
		groupGetCmd(a),
		groupUploadCmd(a),
		groupSubmitCmd(a),
	)
	return cmd
}

func groupCreateCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name> <script.py>",
		Short: "Create a group of jobs",
		Args:  cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := cmd.Flags().GetInt("jobs")
			if err != nil {
				return fmt.Errorf("error reading jobs: %s", err)
			}
			aggregator, err := cmd.Flags().GetString("aggregator")
			if err != nil {
				return fmt.Errorf("error reading aggregator: %s", err)
			}
			return a.CreateGroup(cmd.Context(), dcctl.CreateGroupArgs{
				Name:           args[0],
				NumOfJobs:      jobs,
				ScriptPath:     args[1],
				AggregatorPath: aggregator,
			})
		},
	}
	cmd.Flags().Int("jobs", 1, "number of jobs in the group")
	cmd.Flags().String("aggregator", "", "Python script combining the results of the jobs")
	return cmd
}

func groupListCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your groups",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ListGroups(cmd.Context())
		},
	}
	return cmd
}

func groupGetCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <group-id>",
		Short: "Show a group and its jobs",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.GetGroup(cmd.Context(), client.ID(args[0]))
		},
	}
	return cmd
}

func groupUploadCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <group-id> <job-id>=<archive.zip>...",
		Short: "Upload the input archives of jobs in a group",
		Long: `Upload the zipped input of one or more jobs of a group.

Each archive is uploaded in chunks, one chunk at a time. Up to --parallelism
archives are uploaded at once. A failed archive does not stop the others.`,
		Args: cobra.MinimumNArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ram, err := quantityFlag(cmd.Flags(), "required-ram")
			if err != nil {
				return err
			}
			parallelism, err := cmd.Flags().GetInt("parallelism")
			if err != nil {
				return fmt.Errorf("error reading parallelism: %s", err)
			}
			archives := make([]dcctl.ArchiveUpload, 0, len(args)-1)
			for _, arg := range args[1:] {
				jobId, path, ok := strings.Cut(arg, "=")
				if !ok || jobId == "" || path == "" {
					return fmt.Errorf("invalid archive %q, expected <job-id>=<archive.zip>", arg)
				}
				archives = append(archives, dcctl.ArchiveUpload{JobId: client.ID(jobId), Path: path, RequiredRam: ram})
			}
			return a.UploadGroupArchives(cmd.Context(), client.ID(args[0]), archives, parallelism)
		},
	}
	cmd.Flags().String("required-ram", "", "memory each job needs, e.g. 1Gi")
	cmd.Flags().Int("parallelism", dcctl.DefaultParallelism, "number of archives uploaded at once")
	return cmd
}

func groupSubmitCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit ./path/to/group.yaml",
		Short: "Create a group from a manifest and upload the archive of every job",
		Long: `Create a group from a manifest and upload the archive of every job.

Example group.yaml:

groupName: sweep
pythonFile: main.py
aggregatorFile: aggregate.py
jobs:
  - archive: inputs/a.zip
    requiredRam: 1Gi
  - archive: inputs/b.zip

Relative paths are resolved against the directory of the manifest.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			parallelism, err := cmd.Flags().GetInt("parallelism")
			if err != nil {
				return fmt.Errorf("error reading parallelism: %s", err)
			}
			return a.SubmitGroup(cmd.Context(), args[0], parallelism)
		},
	}
	cmd.Flags().Int("parallelism", dcctl.DefaultParallelism, "number of archives uploaded at once")
	return cmd
}
