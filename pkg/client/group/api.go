// Package group wraps the backend's group endpoints. A group runs one script over many jobs,
// each fed with its own zipped inputs, optionally followed by an aggregator script.
package group

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/pkg/client"
	"github.com/distcompute/dcctl/pkg/client/upload"
	"github.com/distcompute/dcctl/pkg/client/validation"
)

const groupPath = "/api/group"

type CreateRequest struct {
	Name           string
	NumOfJobs      int
	PythonFile     *upload.File
	AggregatorFile *upload.File
}

func (r CreateRequest) Validate() error {
	var errs *multierror.Error
	if strings.TrimSpace(r.Name) == "" {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "name", Value: r.Name, Message: "must not be empty"})
	}
	if r.NumOfJobs < 1 {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "jobs", Value: r.NumOfJobs, Message: "must be at least 1"})
	}
	if r.PythonFile == nil {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "script", Value: "", Message: "must be provided"})
	} else if err := validation.ValidateScript(r.PythonFile.Name); err != nil {
		errs = multierror.Append(errs, err)
	}
	if r.AggregatorFile != nil {
		if err := validation.ValidateExtension("aggregator", r.AggregatorFile.Name, validation.ExtPython); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

type CreateAPI func(context.Context, CreateRequest) (*Group, error)

func Create(conn *client.Connection) CreateAPI {
	return func(ctx context.Context, req CreateRequest) (*Group, error) {
		if err := req.Validate(); err != nil {
			return nil, err
		}
		form := client.NewForm().
			Field("group_name", strings.TrimSpace(req.Name)).
			IntField("num_of_jobs", int64(req.NumOfJobs)).
			File("python_file", req.PythonFile.Name, req.PythonFile.ContentType, section(req.PythonFile))
		if req.AggregatorFile != nil {
			form.File("aggregator_file", req.AggregatorFile.Name, req.AggregatorFile.ContentType, section(req.AggregatorFile))
		}
		created := &Group{}
		if err := conn.PostMultipart(ctx, groupPath, form, 0, created); err != nil {
			return nil, errors.WithMessage(err, "create group request failed")
		}
		log.WithFields(log.Fields{"group_id": created.Id, "jobs": len(created.MemberIds())}).Debug("group created")
		return created, nil
	}
}

type GetAPI func(context.Context, client.ID) (*Group, error)

func Get(conn *client.Connection) GetAPI {
	return func(ctx context.Context, id client.ID) (*Group, error) {
		if id == "" {
			return nil, &apierrors.ErrInvalidArgument{Name: "groupId", Value: id, Message: "must not be empty"}
		}
		g := &Group{}
		if err := conn.GetJSON(ctx, fmt.Sprintf("%s/%s", groupPath, url.PathEscape(id.String())), nil, g); err != nil {
			return nil, errors.WithMessagef(err, "get group %s request failed", id)
		}
		return g, nil
	}
}

type ListAPI func(context.Context) ([]Group, error)

func ListGroups(conn *client.Connection) ListAPI {
	return func(ctx context.Context) ([]Group, error) {
		list := &List{}
		if err := conn.GetJSON(ctx, groupPath, nil, list); err != nil {
			return nil, errors.WithMessage(err, "list groups request failed")
		}
		return list.Groups, nil
	}
}

func section(f *upload.File) io.Reader {
	return io.NewSectionReader(f.Content, 0, f.Size)
}
