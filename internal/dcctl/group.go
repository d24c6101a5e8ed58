package dcctl

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/distcompute/dcctl/internal/common"
	"github.com/distcompute/dcctl/internal/common/util"
	"github.com/distcompute/dcctl/pkg/client"
	"github.com/distcompute/dcctl/pkg/client/group"
	"github.com/distcompute/dcctl/pkg/client/upload"
	"github.com/distcompute/dcctl/pkg/client/validation"
)

const DefaultParallelism = 2

type CreateGroupArgs struct {
	Name           string
	NumOfJobs      int
	ScriptPath     string
	AggregatorPath string
}

// ArchiveUpload is the zipped input of one job of a group.
type ArchiveUpload struct {
	JobId       client.ID
	Path        string
	RequiredRam int64
}

func (a *App) CreateGroup(ctx context.Context, args CreateGroupArgs) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	created, err := a.createGroup(ctx, args)
	if err != nil {
		return err
	}
	return a.renderGroup(created)
}

func (a *App) createGroup(ctx context.Context, args CreateGroupArgs) (*group.Group, error) {
	script, err := upload.OpenFile(args.ScriptPath)
	if err != nil {
		return nil, err
	}
	defer script.Close()
	req := group.CreateRequest{Name: args.Name, NumOfJobs: args.NumOfJobs, PythonFile: script}
	if args.AggregatorPath != "" {
		aggregator, err := upload.OpenFile(args.AggregatorPath)
		if err != nil {
			return nil, err
		}
		defer aggregator.Close()
		req.AggregatorFile = aggregator
	}
	created, err := group.Create(a.conn)(ctx, req)
	if err != nil {
		return nil, a.fail(ctx, err)
	}
	a.printf("Created group %s (%s) with %d jobs\n", created.Id, created.Name, len(created.MemberIds()))
	return created, nil
}

func (a *App) GetGroup(ctx context.Context, id client.ID) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	g, err := group.Get(a.conn)(ctx, id)
	if err != nil {
		return a.fail(ctx, err)
	}
	return a.renderGroup(g)
}

func (a *App) ListGroups(ctx context.Context) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	groups, err := group.ListGroups(a.conn)(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	return a.render(groups, func(w *util.TabbedStringBuilder) {
		w.Row("ID", "NAME", "STATUS", "JOBS", "CREATED")
		for _, g := range groups {
			w.Row(g.Id, g.Name, orDash(string(g.Status)), g.NumOfJobs, formatTime(g.CreatedAt))
		}
	})
}

func (a *App) renderGroup(g *group.Group) error {
	return a.render(g, func(w *util.TabbedStringBuilder) {
		w.Row("Group ID:", g.Id)
		w.Row("Name:", g.Name)
		w.Row("Status:", orDash(string(g.Status)))
		w.Row("Script:", orDash(g.PythonFileName))
		w.Row("Aggregator:", orDash(g.AggregatorFileName))
		w.Row("Created:", formatTime(g.CreatedAt))
		w.Row("Jobs:", g.NumOfJobs)
		for _, id := range g.MemberIds() {
			w.Row("", id)
		}
	})
}

// UploadGroupArchives uploads the archives of several jobs of a group. Each archive is sent
// sequentially in chunks; up to parallelism archives are in flight at once. A failed archive
// does not stop the others; all failures are returned together.
func (a *App) UploadGroupArchives(ctx context.Context, groupId client.ID, archives []ArchiveUpload, parallelism int) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	return a.uploadGroupArchives(ctx, groupId, archives, parallelism)
}

func (a *App) uploadGroupArchives(ctx context.Context, groupId client.ID, archives []ArchiveUpload, parallelism int) error {
	var errs *multierror.Error
	for _, archive := range archives {
		if err := validation.ValidateJobArchive(archive.Path); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	if parallelism < 1 {
		parallelism = DefaultParallelism
	}

	var mu sync.Mutex
	g := errgroup.Group{}
	g.SetLimit(parallelism)
	pipeline := a.pipeline()
	for _, archive := range archives {
		archive := archive
		g.Go(func() error {
			if err := a.uploadArchive(ctx, pipeline, groupId, archive); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if metricsErr := a.flushMetrics(); metricsErr != nil {
		log.WithError(metricsErr).Warn("could not write upload metrics")
	}
	if err := errs.ErrorOrNil(); err != nil {
		a.printf("%d of %d archives failed to upload\n", len(errs.Errors), len(archives))
		return a.fail(ctx, err)
	}
	a.printf("Uploaded %d archives to group %s\n", len(archives), groupId)
	return nil
}

func (a *App) uploadArchive(ctx context.Context, pipeline *upload.Pipeline, groupId client.ID, archive ArchiveUpload) error {
	file, err := upload.OpenFile(archive.Path)
	if err != nil {
		return errors.WithMessagef(err, "job %s", archive.JobId)
	}
	defer file.Close()
	task, err := upload.NewTask(file, a.Params.ApiConnectionDetails.ChunkSizeBytes())
	if err != nil {
		return err
	}
	dest := upload.GroupJobArchive{GroupId: groupId, JobId: archive.JobId, RequiredRam: archive.RequiredRam}
	label := "job " + archive.JobId.String() + " " + file.Name
	if err := pipeline.Upload(ctx, task, dest, a.progressPrinter(label)); err != nil {
		return err
	}
	log.WithFields(log.Fields{"group_id": groupId, "job_id": archive.JobId, "size": common.FormatBytes(file.Size)}).Debug("archive uploaded")
	return nil
}

// SubmitGroup creates a group from a manifest and uploads the archive of every job, matching
// manifest jobs to the created jobs by position.
func (a *App) SubmitGroup(ctx context.Context, manifestPath string, parallelism int) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	manifest, err := group.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	created, err := a.createGroup(ctx, CreateGroupArgs{
		Name:           manifest.GroupName,
		NumOfJobs:      len(manifest.Jobs),
		ScriptPath:     manifest.PythonFile,
		AggregatorPath: manifest.AggregatorFile,
	})
	if err != nil {
		return err
	}
	ids := created.MemberIds()
	if len(ids) != len(manifest.Jobs) {
		return errors.Errorf("group %s has %d jobs but the manifest lists %d", created.Id, len(ids), len(manifest.Jobs))
	}
	archives := make([]ArchiveUpload, 0, len(ids))
	for i, j := range manifest.Jobs {
		archives = append(archives, ArchiveUpload{JobId: ids[i], Path: j.Archive, RequiredRam: j.RequiredRam.Value()})
	}
	return a.uploadGroupArchives(ctx, created.Id, archives, parallelism)
}
