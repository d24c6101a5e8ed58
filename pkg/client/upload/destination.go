package upload

import (
	"fmt"
	"net/url"

	"github.com/distcompute/dcctl/pkg/client"
)

// Destination is where the chunks of an upload are posted.
type Destination interface {
	// Kind labels the destination in logs and metrics.
	Kind() string
	Path() string
	// AddFields adds destination specific form fields to each chunk.
	AddFields(form *client.Form)
}

// JobData receives the input data of a single job.
type JobData struct {
	JobId client.ID
	// RequiredRam in bytes; zero leaves it to the backend.
	RequiredRam int64
}

func (d JobData) Kind() string {
	return "job_data"
}

func (d JobData) Path() string {
	return fmt.Sprintf("/api/jobs/%s/upload-data", url.PathEscape(d.JobId.String()))
}

func (d JobData) AddFields(form *client.Form) {
	if d.RequiredRam > 0 {
		form.IntField("required_ram", d.RequiredRam)
	}
}

// GroupJobArchive receives the zipped inputs of one job of a group.
type GroupJobArchive struct {
	GroupId     client.ID
	JobId       client.ID
	RequiredRam int64
}

func (d GroupJobArchive) Kind() string {
	return "group_job_archive"
}

func (d GroupJobArchive) Path() string {
	return fmt.Sprintf("/api/group/%s/%s/upload-zip-file", url.PathEscape(d.GroupId.String()), url.PathEscape(d.JobId.String()))
}

func (d GroupJobArchive) AddFields(form *client.Form) {
	form.IntField("required_ram", d.RequiredRam)
}
