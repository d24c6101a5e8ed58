package dcctl

import (
	"github.com/distcompute/dcctl/internal/common/util"
	"github.com/distcompute/dcctl/internal/dcctl/build"
)

// Version prints the build of this binary. It needs neither a backend nor a session.
func (a *App) Version() error {
	info := build.Current()
	return a.render(info, func(w *util.TabbedStringBuilder) {
		w.Row("Version:", info.Version)
		w.Row("Commit:", info.Commit)
		w.Row("Go version:", info.GoVersion)
		w.Row("Built:", info.BuildTime)
	})
}
