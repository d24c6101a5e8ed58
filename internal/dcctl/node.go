package dcctl

import (
	"context"

	"github.com/distcompute/dcctl/internal/common"
	"github.com/distcompute/dcctl/internal/common/util"
	"github.com/distcompute/dcctl/pkg/client/node"
)

func (a *App) ListNodes(ctx context.Context) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	d, err := node.List(a.conn)(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	return a.render(d, func(w *util.TabbedStringBuilder) {
		w.Row("Nodes:", d.NumberOfNodes)
		w.Row("Total earnings:", formatMoney(d.TotalEarnings))
		w.Row("Paid:", formatMoney(d.PaidEarnings))
		w.Row("Pending:", formatMoney(d.PendingEarnings))
		w.Writef("\n")
		w.Row("NODE", "ALIVE", "COMPLETED TASKS", "EARNINGS", "CREATED")
		for _, n := range d.Nodes {
			w.Row(n.Id, n.IsAlive, n.CompletedTasks, formatMoney(n.TotalEarnings), formatTime(n.CreatedAt))
		}
	})
}

func (a *App) GetNode(ctx context.Context, id string) error {
	if _, err := a.authenticated(ctx); err != nil {
		return err
	}
	d, err := node.Get(a.conn)(ctx, id)
	if err != nil {
		return a.fail(ctx, err)
	}
	return a.render(d, func(w *util.TabbedStringBuilder) {
		w.Row("Node:", d.Id)
		w.Row("Alive:", d.IsAlive)
		w.Row("Completed tasks:", d.CompletedTasks)
		w.Row("Earnings:", formatMoney(d.TotalEarnings))
		w.Writef("\n")
		w.Row("TASK", "JOB", "STATUS", "STARTED", "COMPLETED", "ACTIVE TIME", "AVG MEMORY", "EARNING", "EARNING STATUS")
		for _, t := range d.Tasks {
			w.Row(t.Id, orDash(t.JobId.String()), t.Status, formatTime(t.StartedAt), formatTime(t.CompletedAt),
				formatSeconds(t.ActiveTime), common.FormatBytes(t.AvgMemoryBytes), formatMoney(t.Earning), orDash(t.EarningStatus))
		}
	})
}
