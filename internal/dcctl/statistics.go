package dcctl

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/distcompute/dcctl/internal/common/util"
)

// Statistics prints the platform wide totals. It needs no session; when the backend cannot
// answer, zeros are shown.
func (a *App) Statistics(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	stats, err := a.stats.Get(ctx)
	if err != nil {
		log.WithError(err).Warn("statistics unavailable")
	}
	return a.render(stats, func(w *util.TabbedStringBuilder) {
		w.Row("Active nodes:", stats.Nodes)
		w.Row("Lifetime earnings:", formatMoney(stats.Earnings))
	})
}
