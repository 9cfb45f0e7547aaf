package common

import (
	"bytes"
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagValidator(t *testing.T) {
	v := NewFlagValidator().
		ValidateFloat("cash", 10, 0, 100).
		ValidateInt("workers", 0, 1, 64).
		ValidateChoice("source", "ftp", []string{"sqlite", "csv"}).
		ValidateFile("trades", filepath.Join(t.TempDir(), "missing.json"), true)

	require.True(t, v.HasErrors())
	err := v.GetError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be between 1 and 64")
	assert.Contains(t, err.Error(), "source must be one of [sqlite, csv]")
	assert.Contains(t, err.Error(), "trades file does not exist")
}

func TestFlagValidator_NoErrors(t *testing.T) {
	v := NewFlagValidator().ValidateFile("optional", "", false)
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.GetError())
}

func TestCheckHelpAndVersion(t *testing.T) {
	fs := flag.NewFlagSet("portfolio-report", flag.ContinueOnError)
	cf := RegisterCommonFlags(fs)
	require.NoError(t, fs.Parse([]string{"-version"}))

	var buf bytes.Buffer
	assert.True(t, CheckHelpAndVersion(&buf, "Portfolio Report", fs, cf, NewUsageFormatter("x", "y")))
	assert.Contains(t, buf.String(), "Portfolio Report v"+ProjectVersion)
}

func TestUsageFormatter(t *testing.T) {
	fs := flag.NewFlagSet("portfolio-report", flag.ContinueOnError)
	RegisterCommonFlags(fs)

	var buf bytes.Buffer
	NewUsageFormatter("Portfolio Report", "values a portfolio").
		AddExample("portfolio-report -trades trades.json", "Report from SQLite").
		PrintUsage(&buf, fs)

	out := buf.String()
	assert.Contains(t, out, "EXAMPLES:")
	assert.Contains(t, out, "# Report from SQLite")
	assert.Contains(t, out, "-console-only")
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.ShowEmojis = false

	c.Info("loaded %d trades", 3)
	c.Debug("hidden")
	c.Success("done")
	assert.Equal(t, "[INFO]  loaded 3 trades\n[SUCCESS] done\n", buf.String())

	buf.Reset()
	c.SilentMode = true
	c.Info("quiet")
	c.Error("boom")
	assert.Equal(t, "[ERROR] boom\n", buf.String())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, SplitList(" btcusdt, ,ethusdt "))
	assert.Nil(t, SplitList(""))
}
