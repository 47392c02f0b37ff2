package hotreload

import (
	"io"

	"github.com/fatih/color"
)

// Reporter surfaces build failures to the operator.
type Reporter interface {
	ReportFailure(err *ReloadError)
}

// ConsoleReporter prints build failures in red, followed by the driver log.
type ConsoleReporter struct {
	w     io.Writer
	title *color.Color
}

// NewConsoleReporter writes reports to w.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w, title: color.New(color.FgRed, color.Bold)}
}

func (c *ConsoleReporter) ReportFailure(err *ReloadError) {
	c.title.Fprintf(c.w, "%s program %s failed to build\n", err.Role, err.Path)
	io.WriteString(c.w, err.Err.Error()+"\n")
}
