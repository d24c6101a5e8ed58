package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/distcompute/dcctl/internal/dcctl"
	"github.com/distcompute/dcctl/pkg/client"
	"github.com/distcompute/dcctl/pkg/client/job"
)

func jobCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Create, inspect and pay for single jobs",
	}
	cmd.AddCommand(
		jobCreateCmd(a),
		jobUploadDataCmd(a),
		jobListCmd(a),
		jobGetCmd(a),
		jobDownloadCmd(a),
		jobPaymentCmd(a),
		jobPayCmd(a),
	)
	return cmd
}

func jobCreateCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name> <script.py>",
		Short: "Create a job from a Python script",
		Long: `Create a job from a Python script, optionally uploading its input data.

The data file must be a .csv file. It is uploaded in chunks of --chunkSize, one
chunk at a time, and progress is printed after every chunk.`,
		Args: cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			jobType, err := cmd.Flags().GetString("type")
			if err != nil {
				return fmt.Errorf("error reading type: %s", err)
			}
			data, err := cmd.Flags().GetString("data")
			if err != nil {
				return fmt.Errorf("error reading data: %s", err)
			}
			ram, err := quantityFlag(cmd.Flags(), "required-ram")
			if err != nil {
				return err
			}
			return a.CreateJob(cmd.Context(), dcctl.CreateJobArgs{
				Name:        args[0],
				Type:        job.Type(jobType),
				ScriptPath:  args[1],
				DataPath:    data,
				RequiredRam: ram,
			})
		},
	}
	cmd.Flags().String("type", string(job.TypeSimple), "job type: simple or complex")
	cmd.Flags().String("data", "", "csv file uploaded as input data of the job")
	cmd.Flags().String("required-ram", "", "memory the job needs, e.g. 512Mi")
	return cmd
}

func jobUploadDataCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload-data <job-id> <data.csv>",
		Short: "Upload the input data of an existing job",
		Args:  cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ram, err := quantityFlag(cmd.Flags(), "required-ram")
			if err != nil {
				return err
			}
			return a.UploadJobData(cmd.Context(), client.ID(args[0]), args[1], ram)
		},
	}
	cmd.Flags().String("required-ram", "", "memory the job needs, e.g. 512Mi")
	return cmd
}

func jobListCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your jobs",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := cmd.Flags().GetString("status")
			if err != nil {
				return fmt.Errorf("error reading status: %s", err)
			}
			if status != "" && !job.Status(status).Valid() {
				valid := make([]string, 0, len(job.AllStatuses))
				for _, s := range job.AllStatuses {
					valid = append(valid, string(s))
				}
				return fmt.Errorf("invalid status %q, expected one of %s", status, strings.Join(valid, ", "))
			}
			page, err := cmd.Flags().GetInt("page")
			if err != nil {
				return fmt.Errorf("error reading page: %s", err)
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return fmt.Errorf("error reading limit: %s", err)
			}
			return a.ListJobs(cmd.Context(), job.ListOptions{Status: job.Status(status), Page: page, Limit: limit})
		},
	}
	cmd.Flags().String("status", "", "only list jobs with this status")
	cmd.Flags().Int("page", 0, "page to show, starting at 1")
	cmd.Flags().Int("limit", 0, "jobs per page")
	return cmd
}

func jobGetCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show a job",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.GetJob(cmd.Context(), client.ID(args[0]))
		},
	}
	return cmd
}

func jobDownloadCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Download the result of a finished job",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return fmt.Errorf("error reading out: %s", err)
			}
			return a.DownloadResult(cmd.Context(), client.ID(args[0]), out)
		},
	}
	cmd.Flags().String("out", "", "file to save the result to (default job-<id>-result.csv)")
	return cmd
}

func jobPaymentCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment <job-id>",
		Short: "Show the payment breakdown of a completed job",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Payment(cmd.Context(), client.ID(args[0]))
		},
	}
	return cmd
}

func jobPayCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay <job-id>",
		Short: "Pay for a completed job",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Pay(cmd.Context(), client.ID(args[0]))
		},
	}
	return cmd
}
