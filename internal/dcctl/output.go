package dcctl

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/distcompute/dcctl/internal/common"
	"github.com/distcompute/dcctl/internal/common/util"
	"github.com/distcompute/dcctl/pkg/client/upload"
)

const (
	OutputTable = "table"
	OutputYAML  = "yaml"
	OutputJSON  = "json"
)

var OutputFormats = []string{OutputTable, OutputYAML, OutputJSON}

// render writes v in the requested output format, using table for the table format.
func (a *App) render(v interface{}, table func(w *util.TabbedStringBuilder)) error {
	switch strings.ToLower(a.Params.Output) {
	case "", OutputTable:
		w := util.NewTabbedStringBuilder(1, 1, 2, ' ', 0)
		table(w)
		return a.print(w.String())
	case OutputYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return errors.WithStack(err)
		}
		return a.print(string(out))
	case OutputJSON:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.WithStack(err)
		}
		return a.print(string(out) + "\n")
	default:
		return errors.Errorf("unknown output format %q, expected one of %s", a.Params.Output, strings.Join(OutputFormats, ", "))
	}
}

func (a *App) print(s string) error {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, err := fmt.Fprint(a.Out, s)
	return err
}

func (a *App) printf(format string, args ...interface{}) {
	_ = a.print(fmt.Sprintf(format, args...))
}

// progressPrinter reports upload progress of label on the app output.
func (a *App) progressPrinter(label string) upload.ProgressFunc {
	return func(p upload.Progress) {
		a.printf("%s: chunk %d/%d uploaded (%d%%, %s of %s)\n",
			label, p.ChunkIndex+1, p.TotalChunks, p.Percent,
			common.FormatBytes(p.BytesSent), common.FormatBytes(p.TotalBytes))
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatSeconds(s float64) string {
	return time.Duration(s * float64(time.Second)).Round(time.Second).String()
}
