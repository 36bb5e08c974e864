package report

import (
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/dependents/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs one run and returns the number of bytes written.
	Write(report *model.Report) (int, error)

	// WriteAll outputs several runs, for example from a batch scan.
	WriteAll(reports []*model.Report) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// It stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteAll outputs the reports to all configured Writers.
func (m *MultiWriter) WriteAll(reports []*model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteAll(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output  io.Writer
	printer *message.Printer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{
		output:  output,
		printer: message.NewPrinter(language.English),
	}
}

// number formats n with thousands separators.
func (b baseWriter) number(n int) string {
	return b.printer.Sprintf("%d", n)
}

// reasonLabel turns a stop reason such as "end_of_pages" into "End Of Pages".
func reasonLabel(reason model.StopReason) string {
	return cases.Title(language.English).String(strings.ReplaceAll(reason.String(), "_", " "))
}

// statusText summarizes how the walk ended.
func statusText(report *model.Report) string {
	label := reasonLabel(report.StopReason)
	switch {
	case report.StopReason.Exhausted():
		return "Complete (" + label + ")"
	case report.StopReason.Truncated():
		return "Truncated (" + label + ")"
	case report.StopReason.Failed():
		return "Stopped Early (" + label + ")"
	default:
		return label
	}
}
