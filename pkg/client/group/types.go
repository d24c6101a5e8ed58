package group

import (
	"encoding/json"
	"time"

	"github.com/distcompute/dcctl/pkg/client"
	"github.com/distcompute/dcctl/pkg/client/job"
)

type Group struct {
	Id                 client.ID   `json:"group_id"`
	Name               string      `json:"group_name"`
	NumOfJobs          int         `json:"num_of_jobs"`
	Status             job.Status  `json:"status,omitempty"`
	PythonFileName     string      `json:"python_file_name,omitempty"`
	AggregatorFileName string      `json:"aggregator_file_name,omitempty"`
	JobIds             []client.ID `json:"job_ids,omitempty"`
	Jobs               []job.Job   `json:"jobs,omitempty"`
	CreatedAt          *time.Time  `json:"created_at,omitempty"`
}

// MemberIds returns the ids of the group's jobs, from whichever of job_ids and jobs was sent.
func (g *Group) MemberIds() []client.ID {
	if len(g.JobIds) > 0 {
		return g.JobIds
	}
	ids := make([]client.ID, 0, len(g.Jobs))
	for _, j := range g.Jobs {
		ids = append(ids, j.Id)
	}
	return ids
}

type List struct {
	Groups []Group `json:"groups"`
}

// UnmarshalJSON accepts either {"groups": [...]} or a bare array.
func (l *List) UnmarshalJSON(data []byte) error {
	var groups []Group
	if err := json.Unmarshal(data, &groups); err == nil {
		l.Groups = groups
		return nil
	}
	type plain List
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = List(p)
	return nil
}
