// Package upload sends large files to the backend in fixed-size chunks.
//
// The chunks of one file are posted strictly one after another; the first failure aborts the
// upload. Independent uploads may run concurrently, each on its own Task.
package upload

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/pkg/client"
)

// Sender posts a multipart form. *client.Connection implements it.
type Sender interface {
	PostMultipart(ctx context.Context, path string, form *client.Form, timeout time.Duration, out interface{}) error
}

type Pipeline struct {
	sender  Sender
	timeout time.Duration
	metrics *Metrics
}

type Option func(*Pipeline)

// WithMetrics records chunk and file outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithChunkTimeout bounds each chunk request. The default is the connection's upload timeout.
func WithChunkTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = timeout
	}
}

func NewPipeline(conn *client.Connection, opts ...Option) *Pipeline {
	return NewPipelineWithSender(conn, conn.Details().UploadTimeout, opts...)
}

func NewPipelineWithSender(sender Sender, timeout time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{sender: sender, timeout: timeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chunkResponse struct {
	Message string `json:"message"`
	Success *bool  `json:"success"`
}

// Upload sends every chunk of task to dest in ascending order, calling onProgress after each
// accepted chunk. It returns an *apierrors.ErrChunkUpload naming the first chunk that failed;
// no later chunk is sent and nothing is retried.
func (p *Pipeline) Upload(ctx context.Context, task *Task, dest Destination, onProgress ProgressFunc) error {
	if err := task.begin(); err != nil {
		return err
	}
	logger := log.WithFields(log.Fields{
		"file":         task.File.Name,
		"size":         task.File.Size,
		"total_chunks": task.TotalChunks,
		"destination":  dest.Path(),
	})
	logger.Debug("starting upload")

	err := p.upload(ctx, task, dest, onProgress, logger)
	task.finish(err)
	p.metrics.recordUpload(dest.Kind(), err)
	if err != nil {
		logger.WithError(err).Debug("upload failed")
		return err
	}
	logger.Debug("upload complete")
	return nil
}

func (p *Pipeline) upload(ctx context.Context, task *Task, dest Destination, onProgress ProgressFunc, logger *log.Entry) error {
	for i := 0; i < task.TotalChunks; i++ {
		if err := ctx.Err(); err != nil {
			return p.chunkError(task, i, err)
		}
		start, end := task.ChunkBounds(i)
		form := client.NewForm().
			File("file", task.File.Name, task.File.ContentType, io.NewSectionReader(task.File.Content, start, end-start)).
			IntField("chunk_index", int64(i)).
			IntField("total_chunks", int64(task.TotalChunks))
		dest.AddFields(form)

		began := time.Now()
		resp := &chunkResponse{}
		err := p.sender.PostMultipart(ctx, dest.Path(), form, p.timeout, resp)
		if err == nil && resp.Success != nil && !*resp.Success {
			err = &apierrors.ErrServer{StatusCode: http.StatusOK, Message: resp.Message}
		}
		p.metrics.recordChunk(dest.Kind(), end-start, time.Since(began), err)
		if err != nil {
			return p.chunkError(task, i, err)
		}
		logger.WithField("chunk_index", i).Debug("chunk accepted")

		progress := task.chunkDone(end - start)
		if onProgress != nil {
			onProgress(progress)
		}
	}
	return nil
}

func (p *Pipeline) chunkError(task *Task, index int, cause error) error {
	return &apierrors.ErrChunkUpload{
		File:        task.File.Name,
		ChunkIndex:  index,
		TotalChunks: task.TotalChunks,
		Cause:       errors.WithStack(cause),
	}
}
