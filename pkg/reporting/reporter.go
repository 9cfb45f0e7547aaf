package reporting

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/portfolio-analytics/internal/report"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a new default reporter with all functionality
func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		paths:   NewDefaultPathManager(),
	}
}

func (r *DefaultReporter) OutputReport(w io.Writer, b *report.Bundle) {
	r.console.OutputReport(w, b)
}

func (r *DefaultReporter) WriteValuesCSV(b *report.Bundle, path string) error {
	return r.csv.WriteValuesCSV(b, path)
}

func (r *DefaultReporter) WriteReportXLSX(b *report.Bundle, path string) error {
	return r.excel.WriteReportXLSX(b, path)
}

func (r *DefaultReporter) WriteReportJSON(b *report.Bundle, path string) error {
	return WriteReportJSON(b, path)
}

func (r *DefaultReporter) GetDefaultOutputDir(currency, day string) string {
	return r.paths.GetDefaultOutputDir(currency, day)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// ReportingManager provides a high-level interface for all reporting needs
type ReportingManager struct {
	reporter Reporter
	config   ReportingConfig
	out      io.Writer
}

// NewReportingManager creates a new reporting manager with configuration
func NewReportingManager(config ReportingConfig) *ReportingManager {
	return &ReportingManager{
		reporter: NewDefaultReporter(),
		config:   config,
		out:      os.Stdout,
	}
}

// SetOutput redirects console output
func (m *ReportingManager) SetOutput(w io.Writer) {
	m.out = w
}

// ReportBundle outputs a bundle according to configuration and returns the
// written file paths
func (m *ReportingManager) ReportBundle(b *report.Bundle) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputReport(m.out, b)
	}
	if !m.config.EnableFiles {
		return nil, nil
	}

	outputDir := m.config.OutputDirectory
	if outputDir == "" {
		outputDir = m.reporter.GetDefaultOutputDir(b.Currency, b.GeneratedAt.Format("2006-01-02"))
	}

	var written []string
	if m.config.JSONEnabled {
		path := filepath.Join(outputDir, "report.json")
		if err := m.reporter.WriteReportJSON(b, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if m.config.CSVEnabled {
		path := filepath.Join(outputDir, "values.csv")
		if err := m.reporter.WriteValuesCSV(b, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if m.config.ExcelEnabled {
		path := filepath.Join(outputDir, "report.xlsx")
		if err := m.reporter.WriteReportXLSX(b, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}
