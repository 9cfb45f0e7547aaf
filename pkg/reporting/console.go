package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/portfolio-analytics/internal/currency"
	"github.com/ducminhle1904/portfolio-analytics/internal/report"
)

// DefaultConsoleReporter implements console output functionality
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

// OutputReport prints positions, risk statistics and optimizations
func (r *DefaultConsoleReporter) OutputReport(w io.Writer, b *report.Bundle) {
	if b.IsEmpty() {
		fmt.Fprintln(w, "📭 Portfolio is empty, nothing to report")
		r.printOptimizations(w, b)
		return
	}
	r.printPositions(w, b)
	r.printRisk(w, b)
	r.printOptimizations(w, b)
}

func (r *DefaultConsoleReporter) printPositions(w io.Writer, b *report.Bundle) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("PORTFOLIO POSITIONS (" + b.Currency + ")")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Quantity", "Net Cost", "Avg Cost", "Current Value", "P&L"})

	totalCost, totalValue := 0.0, 0.0
	for _, p := range b.Positions {
		value := "n/a"
		pnl := "n/a"
		if p.Priced {
			value = formatMoney(p.CurrentValue, b.Currency)
			pnl = formatSigned(p.CurrentValue-p.NetCost, b.Currency)
		}
		t.AppendRow(table.Row{p.Symbol, fmt.Sprintf("%.4f", p.Quantity), formatMoney(p.NetCost, b.Currency),
			formatMoney(p.AverageCost, b.Currency), value, pnl})
		totalCost += p.NetCost
		totalValue += p.CurrentValue
	}
	t.AppendFooter(table.Row{"Total", "", formatMoney(totalCost, b.Currency), "", formatMoney(totalValue, b.Currency),
		formatSigned(totalValue-totalCost, b.Currency)})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(w)
}

func (r *DefaultConsoleReporter) printRisk(w io.Writer, b *report.Bundle) {
	m := b.RiskMetrics

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("RISK METRICS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📅 Valued Days", len(b.Dates)},
		{"💰 Mean Value", formatMoney(m.Mean, b.Currency)},
		{"📊 Std Dev", formatMoney(m.StdDev, b.Currency)},
		{"📈 Max", formatMoney(m.Max, b.Currency)},
		{"📉 Min", formatMoney(m.Min, b.Currency)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"📊 Sharpe Ratio", fmt.Sprintf("%.4f", m.SharpeRatio)},
		{"📊 Sortino Ratio", fmt.Sprintf("%.4f", m.SortinoRatio)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"⚠️ " + varLabel(m.Confidence), fmt.Sprintf("%.2f%%", m.ValueAtRisk*100)},
		{"⚠️ VaR Amount", formatMoney(m.ValueAtRiskDollar, b.Currency)},
		{"🎲 Monte Carlo VaR", formatMoney(m.MonteCarloVaRDollar, b.Currency)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, WidthMax: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 15, WidthMax: 25, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(w)
}

func (r *DefaultConsoleReporter) printOptimizations(w io.Writer, b *report.Bundle) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("OPTIMIZATIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Method", "Status", "Exp. Return", "Risk", "Weights"})

	for _, method := range b.SortedMethods() {
		res := b.Optimizations[method]
		if !res.Success {
			t.AppendRow(table.Row{method, "❌ " + res.Message, "-", "-", "-"})
			continue
		}
		t.AppendRow(table.Row{method, "✅", fmt.Sprintf("%.4f%%", res.ExpectedReturn*100),
			fmt.Sprintf("%.4f%%", res.Risk*100), formatWeights(res.OptimalWeights)})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 40},
		{Number: 5, WidthMax: 60},
	})
	t.Render()
	fmt.Fprintln(w)
}

// varLabel names the VaR row after its confidence level
func varLabel(confidence float64) string {
	if confidence <= 0 || confidence >= 1 {
		return "VaR"
	}
	return fmt.Sprintf("VaR (%.4g%%)", confidence*100)
}

func formatMoney(v float64, code string) string {
	return currency.Format(decimal.NewFromFloat(v), code)
}

func formatSigned(v float64, code string) string {
	if v > 0 {
		return "+" + formatMoney(v, code)
	}
	return formatMoney(v, code)
}

func formatWeights(weights map[string]float64) string {
	symbols := make([]string, 0, len(weights))
	for s := range weights {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	out := ""
	for i, s := range symbols {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%.1f%%", s, weights[s]*100)
	}
	return out
}

// OutputConsole prints a bundle to stdout with the default reporter
func OutputConsole(b *report.Bundle) {
	NewDefaultConsoleReporter().OutputReport(os.Stdout, b)
}
