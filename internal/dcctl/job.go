package dcctl

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/distcompute/dcctl/internal/common"
	"github.com/distcompute/dcctl/internal/common/util"
	"github.com/distcompute/dcctl/pkg/client"
	"github.com/distcompute/dcctl/pkg/client/job"
	"github.com/distcompute/dcctl/pkg/client/upload"
	"github.com/distcompute/dcctl/pkg/client/validation"
)

type CreateJobArgs struct {
	Name       string
	Type       job.Type
	ScriptPath string
	// Optional input data uploaded right after the job was created.
	DataPath    string
	RequiredRam int64
}

// CreateJob creates a job from a script and, when DataPath is set, uploads its input data.
func (a *App) CreateJob(ctx context.Context, args CreateJobArgs) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	if args.DataPath != "" {
		if err := validation.ValidateJobData(args.DataPath); err != nil {
			return err
		}
	}
	script, err := upload.OpenFile(args.ScriptPath)
	if err != nil {
		return err
	}
	defer script.Close()

	created, err := job.Create(a.conn)(ctx, job.CreateRequest{Name: args.Name, Type: args.Type, Script: script})
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printf("Created job %s (%s)\n", created.Id, created.Name)

	if args.DataPath == "" {
		return nil
	}
	return a.uploadJobData(ctx, created.Id, args.DataPath, args.RequiredRam)
}

// UploadJobData uploads the input data of an existing job in chunks.
func (a *App) UploadJobData(ctx context.Context, id client.ID, dataPath string, requiredRam int64) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	if err := validation.ValidateJobData(dataPath); err != nil {
		return err
	}
	return a.uploadJobData(ctx, id, dataPath, requiredRam)
}

func (a *App) uploadJobData(ctx context.Context, id client.ID, dataPath string, requiredRam int64) error {
	file, err := upload.OpenFile(dataPath)
	if err != nil {
		return err
	}
	defer file.Close()
	task, err := upload.NewTask(file, a.Params.ApiConnectionDetails.ChunkSizeBytes())
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"job_id": id, "file": file.Name, "chunks": task.TotalChunks}).Info("uploading job data")

	err = a.pipeline().Upload(ctx, task, upload.JobData{JobId: id, RequiredRam: requiredRam}, a.progressPrinter(file.Name))
	if metricsErr := a.flushMetrics(); metricsErr != nil {
		log.WithError(metricsErr).Warn("could not write upload metrics")
	}
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printf("Uploaded %s (%s) to job %s\n", file.Name, common.FormatBytes(file.Size), id)
	return nil
}

func (a *App) ListJobs(ctx context.Context, opts job.ListOptions) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	list, err := job.ListJobs(a.conn)(ctx, opts)
	if err != nil {
		return a.fail(ctx, err)
	}
	return a.render(list, func(w *util.TabbedStringBuilder) {
		w.Row("ID", "NAME", "TYPE", "STATUS", "CREATED")
		for _, j := range list.Jobs {
			w.Row(j.Id, j.Name, orDash(string(j.Type)), j.Status, formatTime(j.CreatedAt))
		}
		w.Writef("\nShowing %d of %d jobs (page %d)\n", len(list.Jobs), list.Total, list.Page)
	})
}

func (a *App) GetJob(ctx context.Context, id client.ID) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	j, err := job.Get(a.conn)(ctx, id)
	if err != nil {
		return a.fail(ctx, err)
	}
	return a.render(j, func(w *util.TabbedStringBuilder) {
		w.Row("Job ID:", j.Id)
		w.Row("Name:", j.Name)
		w.Row("Type:", orDash(string(j.Type)))
		w.Row("Status:", j.Status)
		w.Row("Script:", orDash(j.ScriptFile))
		w.Row("Created:", formatTime(j.CreatedAt))
		w.Row("Submitted:", formatTime(j.SubmittedAt))
		if j.Description != "" {
			w.Row("Description:", j.Description)
		}
		if len(j.DataFiles) > 0 {
			w.Row("Data files:", strings.Join(j.DataFiles, ", "))
		}
	})
}

// DownloadResult saves the result of a job to outPath. An empty outPath saves to
// job-<id>-result.csv in the working directory.
func (a *App) DownloadResult(ctx context.Context, id client.ID, outPath string) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	if outPath == "" {
		outPath = "job-" + id.String() + "-result.csv"
	}
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".dcctl-download-*")
	if err != nil {
		return errors.WithStack(err)
	}
	defer os.Remove(tmp.Name())

	n, err := job.Download(a.conn)(ctx, id, tmp)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = errors.WithStack(closeErr)
	}
	if err != nil {
		return a.fail(ctx, err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return errors.WithStack(err)
	}
	a.printf("Saved result of job %s to %s (%s)\n", id, outPath, common.FormatBytes(n))
	return nil
}

func (a *App) Payment(ctx context.Context, id client.ID) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	p, err := job.GetPayment(a.conn)(ctx, id)
	if err != nil {
		return a.fail(ctx, err)
	}
	return a.renderPayment(p)
}

// Pay processes the pending payment of a completed job.
func (a *App) Pay(ctx context.Context, id client.ID) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	p, err := job.Pay(a.conn)(ctx, id)
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printf("Payment of %s for job %s processed\n", formatMoney(p.Amount), id)
	return a.renderPayment(p)
}

func (a *App) renderPayment(p *job.Payment) error {
	return a.render(p, func(w *util.TabbedStringBuilder) {
		w.Row("Job ID:", p.JobId)
		w.Row("Status:", p.Status)
		w.Row("Amount:", formatMoney(p.Amount))
		w.Row("Paid:", formatTime(p.PaymentDate))
		w.Writef("\n")
		w.Row("TASK", "ACTIVE TIME", "AVG MEMORY", "AMOUNT")
		for _, t := range p.Tasks {
			w.Row(t.TaskId, formatSeconds(t.TotalActiveTime), common.FormatBytes(t.AvgMemoryBytes), formatMoney(t.PaymentAmount))
		}
	})
}
