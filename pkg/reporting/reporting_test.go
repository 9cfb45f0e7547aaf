package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/portfolio-analytics/internal/optimizer"
	"github.com/ducminhle1904/portfolio-analytics/internal/report"
	"github.com/ducminhle1904/portfolio-analytics/internal/risk"
)

func sampleBundle() *report.Bundle {
	return &report.Bundle{
		Currency:    "USD",
		GeneratedAt: time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC),
		Dates:       []string{"2024-03-29", "2024-03-30", "2024-03-31"},
		Values:      []float64{1000, 1010, 990},
		RiskMetrics: risk.Metrics{
			Confidence:    0.99,
			Mean:          1000,
			StdDev:        8.16,
			Max:           1010,
			Min:           990,
			SharpeRatio:   0.12,
			ValueAtRisk:   -0.018,
			RollingStdDev: []float64{8.16},
		},
		Positions: []report.Consolidated{
			{Symbol: "AAPL", Quantity: 5, NetCost: 500, AverageCost: 100, CurrentValue: 550, Priced: true},
			{Symbol: "MSFT", Quantity: 2, NetCost: 400, AverageCost: 200, CurrentValue: 440, Priced: true},
		},
		PortfolioValue: 990,
		PriceHistory: map[string]map[string]float64{
			"2024-03-30": {"AAPL": 109, "MSFT": 219},
			"2024-03-31": {"AAPL": 110, "MSFT": 220},
		},
		Optimizations: map[string]optimizer.Result{
			"sharpe": {
				Method:              optimizer.MethodSharpe,
				Success:             true,
				Symbols:             []string{"AAPL", "MSFT"},
				OptimalWeights:      map[string]float64{"AAPL": 0.6, "MSFT": 0.4},
				SuggestedInvestment: map[string]float64{"AAPL": 600, "MSFT": 400},
				CurrentWeights:      map[string]float64{"AAPL": 0.55, "MSFT": 0.45},
				ExpectedReturn:      0.001,
				Risk:                0.01,
			},
			"cvar": optimizer.EmptyResult(optimizer.MethodCVaR),
		},
		Frontier:     []optimizer.FrontierPoint{{Return: 0.001, Risk: 0.01}},
		CurrentPoint: optimizer.FrontierPoint{Return: 0.0009, Risk: 0.011},
	}
}

func TestConsoleReporter_OutputReport(t *testing.T) {
	var buf bytes.Buffer
	NewDefaultConsoleReporter().OutputReport(&buf, sampleBundle())

	out := buf.String()
	assert.Contains(t, out, "PORTFOLIO POSITIONS (USD)")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "RISK METRICS")
	assert.Contains(t, out, "sharpe")
	assert.Contains(t, out, "AAPL=60.0% MSFT=40.0%")
	assert.Contains(t, out, optimizer.MessageNoAssets)

	// money cells carry the report currency
	assert.Contains(t, out, "$550.00")
	assert.Contains(t, out, "+$50.00")
	assert.Contains(t, out, "+$90.00")
	assert.Contains(t, out, "$1,000.00")

	assert.Contains(t, out, "VaR (99%)")
	assert.NotContains(t, out, "VaR (95%)")
}

func TestVarLabel(t *testing.T) {
	tests := []struct {
		confidence float64
		want       string
	}{
		{0.95, "VaR (95%)"},
		{0.99, "VaR (99%)"},
		{0.975, "VaR (97.5%)"},
		{0, "VaR"},
		{1, "VaR"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, varLabel(tt.confidence))
	}
}

func TestConsoleReporter_EmptyBundle(t *testing.T) {
	var buf bytes.Buffer
	b := &report.Bundle{Currency: "USD", Optimizations: map[string]optimizer.Result{}}
	NewDefaultConsoleReporter().OutputReport(&buf, b)

	assert.Contains(t, buf.String(), "Portfolio is empty")
	assert.NotContains(t, buf.String(), "RISK METRICS")
}

func TestWriteReportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	require.NoError(t, WriteReportJSON(sampleBundle(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "USD", decoded["currency"])
	assert.Len(t, decoded["portfolio_consolidated"], 2)
	assert.Contains(t, decoded["optimizations"], "sharpe")
	assert.Contains(t, decoded, "risk_metrics")
}

func TestWriteValuesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.csv")
	require.NoError(t, NewDefaultCSVReporter().WriteValuesCSV(sampleBundle(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Date", "Value_USD"}, records[0])
	assert.Equal(t, []string{"2024-03-31", "990.000000"}, records[3])
}

func TestWriteReportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReportXLSX(sampleBundle(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{SheetSummary, SheetPositions, SheetValuation, SheetOptimizations, SheetPriceHistory, SheetFrontier},
		fx.GetSheetList())

	symbol, err := fx.GetCellValue(SheetPositions, "A2")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", symbol)

	header, err := fx.GetCellValue(SheetPriceHistory, "C1")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", header)

	day, err := fx.GetCellValue(SheetPriceHistory, "A3")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-31", day)

	method, err := fx.GetCellValue(SheetOptimizations, "A2")
	require.NoError(t, err)
	assert.Equal(t, "sharpe", method)

	rows, err := fx.GetRows(SheetOptimizations)
	require.NoError(t, err)
	// header, two sharpe rows, one failed cvar row
	assert.Len(t, rows, 4)
}

func TestWriteValuesCSV_XLSXExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.XLSX")
	require.NoError(t, NewDefaultCSVReporter().WriteValuesCSV(sampleBundle(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()
	assert.Contains(t, fx.GetSheetList(), SheetValuation)
}

func TestGetDefaultOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "2024-03-31_INR"), DefaultOutputDir("inr", "2024-03-31"))
	assert.Equal(t, filepath.Join("results", "latest_USD"), DefaultOutputDir("", ""))
}

func TestReportingManager_ReportBundle(t *testing.T) {
	dir := t.TempDir()
	m := NewReportingManager(ReportingConfig{
		EnableConsole:   true,
		EnableFiles:     true,
		OutputDirectory: dir,
		ExcelEnabled:    true,
		CSVEnabled:      true,
		JSONEnabled:     true,
	})
	var buf bytes.Buffer
	m.SetOutput(&buf)

	written, err := m.ReportBundle(sampleBundle())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "report.json"),
		filepath.Join(dir, "values.csv"),
		filepath.Join(dir, "report.xlsx"),
	}, written)
	for _, p := range written {
		assert.FileExists(t, p)
	}
	assert.Contains(t, buf.String(), "OPTIMIZATIONS")
}

func TestReportingManager_ConsoleOnly(t *testing.T) {
	m := NewReportingManager(ReportingConfig{EnableConsole: true})
	var buf bytes.Buffer
	m.SetOutput(&buf)

	written, err := m.ReportBundle(sampleBundle())
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.NotEmpty(t, buf.String())
}
