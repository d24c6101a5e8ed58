package util

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// TabbedStringBuilder collects tab separated text and aligns it into columns when String is
// called. Writes go to memory, so none of its methods return errors.
type TabbedStringBuilder struct {
	buf strings.Builder
	w   *tabwriter.Writer
}

// NewTabbedStringBuilder takes the same parameters as tabwriter.NewWriter.
func NewTabbedStringBuilder(minwidth, tabwidth, padding int, padchar byte, flags uint) *TabbedStringBuilder {
	t := &TabbedStringBuilder{}
	t.w = tabwriter.NewWriter(&t.buf, minwidth, tabwidth, padding, padchar, flags)
	return t
}

func (t *TabbedStringBuilder) Writef(format string, a ...any) {
	_, _ = fmt.Fprintf(t.w, format, a...)
}

// Row writes one line with a column per value.
func (t *TabbedStringBuilder) Row(cols ...any) {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = fmt.Sprint(c)
	}
	_, _ = fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}

// String flushes pending lines and returns everything written so far.
func (t *TabbedStringBuilder) String() string {
	_ = t.w.Flush()
	return t.buf.String()
}
