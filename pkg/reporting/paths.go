package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// GetDefaultOutputDir returns results/<day>_<CURRENCY>
func (p *DefaultPathManager) GetDefaultOutputDir(currency, day string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	d := strings.TrimSpace(day)
	if c == "" {
		c = "USD"
	}
	if d == "" {
		d = "latest"
	}

	return filepath.Join("results", fmt.Sprintf("%s_%s", d, c))
}

// EnsureDirectoryExists creates the parent directory of path
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// DefaultOutputDir is GetDefaultOutputDir on the default manager
func DefaultOutputDir(currency, day string) string {
	return NewDefaultPathManager().GetDefaultOutputDir(currency, day)
}
