// Package job wraps the backend's job endpoints.
package job

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/pkg/client"
	"github.com/distcompute/dcctl/pkg/client/upload"
	"github.com/distcompute/dcctl/pkg/client/validation"
)

const jobsPath = "/api/jobs"

func jobPath(id client.ID, suffix ...string) string {
	return strings.Join(append([]string{jobsPath, url.PathEscape(id.String())}, suffix...), "/")
}

type CreateRequest struct {
	Name   string
	Type   Type
	Script *upload.File
}

func (r CreateRequest) Validate() error {
	var errs *multierror.Error
	if strings.TrimSpace(r.Name) == "" {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "name", Value: r.Name, Message: "must not be empty"})
	}
	if r.Type != TypeSimple && r.Type != TypeComplex {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "type", Value: r.Type, Message: "must be simple or complex"})
	}
	if r.Script == nil {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "script", Value: "", Message: "must be provided"})
	} else if err := validation.ValidateScript(r.Script.Name); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

type CreateAPI func(context.Context, CreateRequest) (*Job, error)

func Create(conn *client.Connection) CreateAPI {
	return func(ctx context.Context, req CreateRequest) (*Job, error) {
		if err := req.Validate(); err != nil {
			return nil, err
		}
		form := client.NewForm().
			Field("job_name", strings.TrimSpace(req.Name)).
			Field("job_type", string(req.Type)).
			File("file", req.Script.Name, req.Script.ContentType, io.NewSectionReader(req.Script.Content, 0, req.Script.Size))
		created := &Job{}
		if err := conn.PostMultipart(ctx, jobsPath, form, 0, created); err != nil {
			return nil, errors.WithMessage(err, "create job request failed")
		}
		log.WithField("job_id", created.Id).Debug("job created")
		return created, nil
	}
}

type ListOptions struct {
	Status Status
	Page   int
	Limit  int
}

type ListAPI func(context.Context, ListOptions) (*List, error)

func ListJobs(conn *client.Connection) ListAPI {
	return func(ctx context.Context, opts ListOptions) (*List, error) {
		if opts.Status != "" && !opts.Status.Valid() {
			return nil, &apierrors.ErrInvalidArgument{Name: "status", Value: opts.Status, Message: fmt.Sprintf("must be one of %v", AllStatuses)}
		}
		query := url.Values{}
		if opts.Status != "" {
			query.Set("status", string(opts.Status))
		}
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.Limit > 0 {
			query.Set("limit", strconv.Itoa(opts.Limit))
		}
		list := &List{}
		if err := conn.GetJSON(ctx, jobsPath, query, list); err != nil {
			return nil, errors.WithMessage(err, "list jobs request failed")
		}
		return list, nil
	}
}

type GetAPI func(context.Context, client.ID) (*Job, error)

func Get(conn *client.Connection) GetAPI {
	return func(ctx context.Context, id client.ID) (*Job, error) {
		if id == "" {
			return nil, &apierrors.ErrInvalidArgument{Name: "jobId", Value: id, Message: "must not be empty"}
		}
		j := &Job{}
		if err := conn.GetJSON(ctx, jobPath(id), nil, j); err != nil {
			return nil, errors.WithMessagef(err, "get job %s request failed", id)
		}
		return j, nil
	}
}

// DownloadAPI writes the result of a job to w and returns the number of bytes written.
type DownloadAPI func(context.Context, client.ID, io.Writer) (int64, error)

func Download(conn *client.Connection) DownloadAPI {
	return func(ctx context.Context, id client.ID, w io.Writer) (int64, error) {
		n, err := conn.Download(ctx, jobPath(id, "download"), w)
		if err != nil {
			return n, errors.WithMessagef(err, "download of job %s failed", id)
		}
		return n, nil
	}
}

type PaymentAPI func(context.Context, client.ID) (*Payment, error)

// GetPayment fetches the payment breakdown. The backend only has one for completed jobs, so the
// job is checked first.
func GetPayment(conn *client.Connection) PaymentAPI {
	get := Get(conn)
	return func(ctx context.Context, id client.ID) (*Payment, error) {
		j, err := get(ctx, id)
		if err != nil {
			return nil, err
		}
		if j.Status != StatusCompleted {
			return nil, errors.Errorf("job %s is %s, payment details are only available for completed jobs", id, j.Status)
		}
		p := &Payment{}
		if err := conn.GetJSON(ctx, jobPath(id, "payment"), nil, p); err != nil {
			return nil, errors.WithMessagef(err, "get payment of job %s request failed", id)
		}
		return p, nil
	}
}

// Pay processes a pending payment and returns the updated breakdown.
func Pay(conn *client.Connection) PaymentAPI {
	getPayment := GetPayment(conn)
	return func(ctx context.Context, id client.ID) (*Payment, error) {
		current, err := getPayment(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status != PaymentPending {
			return nil, errors.Errorf("payment of job %s is %s, only pending payments can be processed", id, current.Status)
		}
		p := &Payment{}
		if err := conn.PostJSON(ctx, jobPath(id, "payment"), nil, p); err != nil {
			return nil, errors.WithMessagef(err, "payment of job %s failed", id)
		}
		return p, nil
	}
}
