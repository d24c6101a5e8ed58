package job

import (
	"encoding/json"
	"time"

	"github.com/distcompute/dcctl/pkg/client"
)

type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusPendingSchedule Status = "pending_schedule"
	StatusRunning         Status = "running"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

var AllStatuses = []Status{StatusSubmitted, StatusPendingSchedule, StatusRunning, StatusCompleted, StatusFailed}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether the job will not change status again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Type string

const (
	TypeSimple  Type = "simple"
	TypeComplex Type = "complex"
)

type Job struct {
	Id          client.ID  `json:"job_id"`
	Name        string     `json:"job_name"`
	Type        Type       `json:"job_type"`
	Status      Status     `json:"status"`
	ScriptFile  string     `json:"script_file_name,omitempty"`
	Description string     `json:"description,omitempty"`
	DataFiles   []string   `json:"data_files,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// UnmarshalJSON also accepts the short field names (id, name, type, script_file) some endpoints use.
func (j *Job) UnmarshalJSON(data []byte) error {
	type plain Job
	var raw struct {
		plain
		ShortId     client.ID `json:"id"`
		ShortName   string    `json:"name"`
		ShortType   Type      `json:"type"`
		ShortScript string    `json:"script_file"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*j = Job(raw.plain)
	if j.Id == "" {
		j.Id = raw.ShortId
	}
	if j.Name == "" {
		j.Name = raw.ShortName
	}
	if j.Type == "" {
		j.Type = raw.ShortType
	}
	if j.ScriptFile == "" {
		j.ScriptFile = raw.ShortScript
	}
	return nil
}

type List struct {
	Jobs  []Job `json:"jobs"`
	Total int   `json:"total"`
	Page  int   `json:"page"`
}

// UnmarshalJSON accepts either the paged object or a bare array of jobs.
func (l *List) UnmarshalJSON(data []byte) error {
	var jobs []Job
	if err := json.Unmarshal(data, &jobs); err == nil {
		*l = List{Jobs: jobs, Total: len(jobs), Page: 1}
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

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

type Payment struct {
	JobId       client.ID     `json:"job_id"`
	Status      PaymentStatus `json:"status"`
	Amount      float64       `json:"amount"`
	PaymentDate *time.Time    `json:"payment_date,omitempty"`
	Tasks       []TaskUsage   `json:"tasks"`
}

// TaskUsage is the resource usage billed for one task of a job.
type TaskUsage struct {
	TaskId client.ID `json:"task_id"`
	// TotalActiveTime in seconds.
	TotalActiveTime float64 `json:"total_active_time"`
	AvgMemoryBytes  int64   `json:"avg_memory_bytes"`
	PaymentAmount   float64 `json:"task_payment_amount"`
}
