// Package node lists the compute nodes a user contributes and what they earned.
package node

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/pkg/client"
)

const nodesPath = "/api/nodes"

type Node struct {
	Id             string     `json:"node_id"`
	IsAlive        bool       `json:"is_alive"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	TotalEarnings  float64    `json:"total_node_earnings"`
	CompletedTasks int        `json:"num_of_completed_tasks"`
}

type Dashboard struct {
	Nodes           []Node  `json:"nodes"`
	NumberOfNodes   int     `json:"number_of_nodes"`
	TotalEarnings   float64 `json:"total_earnings"`
	PaidEarnings    float64 `json:"paid_earnings"`
	PendingEarnings float64 `json:"pending_earnings"`
}

type Task struct {
	Id          client.ID  `json:"task_id"`
	JobId       client.ID  `json:"job_id,omitempty"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// ActiveTime in seconds.
	ActiveTime     float64 `json:"total_active_time"`
	AvgMemoryBytes int64   `json:"avg_memory_bytes"`
	Earning        float64 `json:"earning_amount"`
	EarningStatus  string  `json:"earning_status,omitempty"`
}

type Detail struct {
	Node
	Tasks []Task `json:"tasks"`
}

type ListAPI func(context.Context) (*Dashboard, error)

func List(conn *client.Connection) ListAPI {
	return func(ctx context.Context) (*Dashboard, error) {
		d := &Dashboard{}
		if err := conn.GetJSON(ctx, nodesPath, nil, d); err != nil {
			return nil, errors.WithMessage(err, "list nodes request failed")
		}
		if d.NumberOfNodes == 0 {
			d.NumberOfNodes = len(d.Nodes)
		}
		return d, nil
	}
}

type GetAPI func(context.Context, string) (*Detail, error)

func Get(conn *client.Connection) GetAPI {
	return func(ctx context.Context, id string) (*Detail, error) {
		if id == "" {
			return nil, &apierrors.ErrInvalidArgument{Name: "nodeId", Value: id, Message: "must not be empty"}
		}
		d := &Detail{}
		if err := conn.GetJSON(ctx, nodesPath+"/"+url.PathEscape(id), nil, d); err != nil {
			return nil, errors.WithMessagef(err, "get node %s request failed", id)
		}
		if d.Id == "" {
			d.Id = id
		}
		return d, nil
	}
}
