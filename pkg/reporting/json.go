package reporting

import (
	"encoding/json"
	"os"

	"github.com/ducminhle1904/portfolio-analytics/internal/report"
)

// FormatReport renders a bundle as indented JSON
func FormatReport(b *report.Bundle) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// WriteReportJSON writes a bundle to a JSON file, creating its directory
func WriteReportJSON(b *report.Bundle, path string) error {
	data, err := FormatReport(b)
	if err != nil {
		return err
	}
	if err := NewDefaultPathManager().EnsureDirectoryExists(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
