package data

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileLocator finds per-symbol CSV files on the local file system
type DefaultFileLocator struct{}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator() *DefaultFileLocator {
	return &DefaultFileLocator{}
}

// FindSymbolFile looks for, in order:
//
//	<root>/<SYMBOL>.csv
//	<root>/<symbol>.csv
//	<root>/bybit/<category>/<SYMBOL>/{D,1440}/candles.csv
//
// The last layout is what the kline downloader writes.
func (f *DefaultFileLocator) FindSymbolFile(dataRoot, symbol string) string {
	upper := strings.ToUpper(symbol)

	candidates := []string{
		filepath.Join(dataRoot, upper+".csv"),
		filepath.Join(dataRoot, strings.ToLower(symbol)+".csv"),
	}
	for _, category := range []string{"spot", "linear", "inverse"} {
		for _, interval := range []string{"D", "1440"} {
			candidates = append(candidates, filepath.Join(dataRoot, "bybit", category, upper, interval, "candles.csv"))
		}
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
