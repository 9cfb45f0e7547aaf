// Package reporting renders portfolio report bundles to the console, JSON,
// CSV and XLSX.
package reporting

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/portfolio-analytics/internal/report"
)

// ConsoleReporter prints a bundle as tables
type ConsoleReporter interface {
	OutputReport(w io.Writer, b *report.Bundle)
}

// FileReporter writes a bundle to disk
type FileReporter interface {
	WriteValuesCSV(b *report.Bundle, path string) error
	WriteReportXLSX(b *report.Bundle, path string) error
	WriteReportJSON(b *report.Bundle, path string) error
}

// PathManager decides where report files go
type PathManager interface {
	GetDefaultOutputDir(currency string, day string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle       int
	CurrencyStyle     int
	PercentStyle      int
	DecimalStyle      int
	BaseStyle         int
	RedPercentStyle   int
	GreenPercentStyle int
	SummaryStyle      int
}

// ExcelSheetWriter fills one worksheet from a bundle
type ExcelSheetWriter func(fx *excelize.File, sheet string, b *report.Bundle, styles ExcelStyles) error

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	EnableFiles     bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
}
