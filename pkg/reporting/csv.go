package reporting

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/ducminhle1904/portfolio-analytics/internal/report"
)

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteValuesCSV writes the dated portfolio values. An .xlsx path is
// delegated to the workbook writer.
func (r *DefaultCSVReporter) WriteValuesCSV(b *report.Bundle, path string) error {
	if err := NewDefaultPathManager().EnsureDirectoryExists(path); err != nil {
		return err
	}
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteReportXLSX(b, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "Value_" + b.Currency}); err != nil {
		return err
	}
	for i, d := range b.Dates {
		if err := w.Write([]string{d, strconv.FormatFloat(b.Values[i], 'f', 6, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
