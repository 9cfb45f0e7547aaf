package reporting

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/portfolio-analytics/internal/report"
)

// Worksheet names, in workbook order
const (
	SheetSummary       = "Summary"
	SheetPositions     = "Positions"
	SheetValuation     = "Valuation"
	SheetOptimizations = "Optimizations"
	SheetPriceHistory  = "Price History"
	SheetFrontier      = "Frontier"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct {
	sheets []namedSheet
}

type namedSheet struct {
	name  string
	write ExcelSheetWriter
}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	r := &DefaultExcelReporter{}
	r.sheets = []namedSheet{
		{SheetSummary, r.writeSummarySheet},
		{SheetPositions, r.writePositionsSheet},
		{SheetValuation, r.writeValuationSheet},
		{SheetOptimizations, r.writeOptimizationsSheet},
		{SheetPriceHistory, r.writePriceHistorySheet},
		{SheetFrontier, r.writeFrontierSheet},
	}
	return r
}

// WriteReportXLSX writes the bundle as a multi-sheet workbook
func (r *DefaultExcelReporter) WriteReportXLSX(b *report.Bundle, path string) error {
	if err := NewDefaultPathManager().EnsureDirectoryExists(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}

	for i, s := range r.sheets {
		if i == 0 {
			if err := fx.SetSheetName(fx.GetSheetName(0), s.name); err != nil {
				return err
			}
		} else if _, err := fx.NewSheet(s.name); err != nil {
			return err
		}
		if err := s.write(fx, s.name, b, styles); err != nil {
			return fmt.Errorf("write %s sheet: %w", s.name, err)
		}
	}
	fx.SetActiveSheet(0)

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	lightBorder := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	// Dark slate header with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	// Amounts are in the report currency, so no symbol in the format
	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.DecimalStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: stringPtr("0.0000"),
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.RedPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.GreenPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Font:      &excelize.Font{Color: "008000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: lightBorder})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 2},
			{Type: "right", Color: "000000", Style: 2},
			{Type: "top", Color: "000000", Style: 2},
			{Type: "bottom", Color: "000000", Style: 2},
		},
	})
	if err != nil {
		return styles, err
	}

	return styles, nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, b *report.Bundle, styles ExcelStyles) error {
	fx.SetColWidth(sheet, "A", "A", 28)
	fx.SetColWidth(sheet, "B", "B", 20)

	fx.SetCellValue(sheet, "A1", "PORTFOLIO REPORT")
	fx.MergeCell(sheet, "A1", "B1")
	fx.SetCellStyle(sheet, "A1", "B1", styles.SummaryStyle)

	m := b.RiskMetrics
	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Currency", b.Currency, styles.BaseStyle},
		{"Generated At", b.GeneratedAt.Format("2006-01-02 15:04:05"), styles.BaseStyle},
		{"Portfolio Value", b.PortfolioValue, styles.CurrencyStyle},
		{"Valued Days", len(b.Dates), styles.BaseStyle},
		{"Mean Value", m.Mean, styles.CurrencyStyle},
		{"Std Dev", m.StdDev, styles.CurrencyStyle},
		{"Max Value", m.Max, styles.CurrencyStyle},
		{"Min Value", m.Min, styles.CurrencyStyle},
		{"Sharpe Ratio", m.SharpeRatio, styles.DecimalStyle},
		{"Sortino Ratio", m.SortinoRatio, styles.DecimalStyle},
		{"Value at Risk", m.ValueAtRisk, signedPercentStyle(m.ValueAtRisk, styles)},
		{"Value at Risk Amount", m.ValueAtRiskDollar, styles.CurrencyStyle},
		{"Monte Carlo VaR", m.MonteCarloVaRDollar, styles.CurrencyStyle},
	}

	for i, row := range rows {
		label, value := fmt.Sprintf("A%d", i+2), fmt.Sprintf("B%d", i+2)
		fx.SetCellValue(sheet, label, row.label)
		fx.SetCellStyle(sheet, label, label, styles.BaseStyle)
		fx.SetCellValue(sheet, value, row.value)
		fx.SetCellStyle(sheet, value, value, row.style)
	}
	return nil
}

func (r *DefaultExcelReporter) writePositionsSheet(fx *excelize.File, sheet string, b *report.Bundle, styles ExcelStyles) error {
	headers := []string{"Symbol", "Quantity", "Net Cost", "Average Cost", "Trade Date Value", "Current Value", "P&L %"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}
	fx.SetColWidth(sheet, "A", "G", 16)

	for i, p := range b.Positions {
		pnl := 0.0
		if p.NetCost != 0 && p.Priced {
			pnl = (p.CurrentValue - p.NetCost) / p.NetCost
		}
		r.writeRow(fx, sheet, i+2, []interface{}{p.Symbol, p.Quantity, p.NetCost, p.AverageCost, p.TradeDateValue, p.CurrentValue, pnl},
			[]int{styles.BaseStyle, styles.DecimalStyle, styles.CurrencyStyle, styles.CurrencyStyle, styles.CurrencyStyle,
				styles.CurrencyStyle, signedPercentStyle(pnl, styles)})
	}
	return nil
}

func (r *DefaultExcelReporter) writeValuationSheet(fx *excelize.File, sheet string, b *report.Bundle, styles ExcelStyles) error {
	if err := r.writeHeader(fx, sheet, []string{"Date", "Value", "Rolling Std Dev"}, styles); err != nil {
		return err
	}
	fx.SetColWidth(sheet, "A", "C", 16)

	// The rolling series is aligned to the tail of the valuation series
	offset := len(b.Dates) - len(b.RiskMetrics.RollingStdDev)
	for i, d := range b.Dates {
		values := []interface{}{d, b.Values[i], ""}
		if j := i - offset; offset >= 0 && j >= 0 && j < len(b.RiskMetrics.RollingStdDev) {
			values[2] = b.RiskMetrics.RollingStdDev[j]
		}
		r.writeRow(fx, sheet, i+2, values, []int{styles.BaseStyle, styles.CurrencyStyle, styles.CurrencyStyle})
	}
	return nil
}

func (r *DefaultExcelReporter) writeOptimizationsSheet(fx *excelize.File, sheet string, b *report.Bundle, styles ExcelStyles) error {
	headers := []string{"Method", "Success", "Message", "Symbol", "Current Weight", "Optimal Weight", "Suggested Investment", "Expected Return", "Risk"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}
	fx.SetColWidth(sheet, "A", "I", 18)

	row := 2
	for _, method := range b.SortedMethods() {
		res := b.Optimizations[method]
		if len(res.Symbols) == 0 {
			r.writeRow(fx, sheet, row, []interface{}{method, res.Success, res.Message},
				[]int{styles.BaseStyle, styles.BaseStyle, styles.BaseStyle})
			row++
			continue
		}
		for _, s := range res.Symbols {
			r.writeRow(fx, sheet, row,
				[]interface{}{method, res.Success, res.Message, s, res.CurrentWeights[s], res.OptimalWeights[s],
					res.SuggestedInvestment[s], res.ExpectedReturn, res.Risk},
				[]int{styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.PercentStyle,
					styles.PercentStyle, styles.CurrencyStyle, styles.PercentStyle, styles.PercentStyle})
			row++
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writePriceHistorySheet(fx *excelize.File, sheet string, b *report.Bundle, styles ExcelStyles) error {
	days := make([]string, 0, len(b.PriceHistory))
	symbolSet := make(map[string]bool)
	for day, prices := range b.PriceHistory {
		days = append(days, day)
		for s := range prices {
			symbolSet[s] = true
		}
	}
	sort.Strings(days)
	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	if err := r.writeHeader(fx, sheet, append([]string{"Date"}, symbols...), styles); err != nil {
		return err
	}

	for i, day := range days {
		rowNum := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		fx.SetCellValue(sheet, cell, day)
		fx.SetCellStyle(sheet, cell, cell, styles.BaseStyle)
		for j, s := range symbols {
			price, ok := b.PriceHistory[day][s]
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+2, rowNum)
			fx.SetCellValue(sheet, cell, price)
			fx.SetCellStyle(sheet, cell, cell, styles.CurrencyStyle)
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeFrontierSheet(fx *excelize.File, sheet string, b *report.Bundle, styles ExcelStyles) error {
	if err := r.writeHeader(fx, sheet, []string{"Portfolio", "Expected Return", "Risk"}, styles); err != nil {
		return err
	}
	fx.SetColWidth(sheet, "A", "C", 18)

	rowStyles := []int{styles.BaseStyle, styles.PercentStyle, styles.PercentStyle}
	r.writeRow(fx, sheet, 2, []interface{}{"Current", b.CurrentPoint.Return, b.CurrentPoint.Risk}, rowStyles)
	for i, p := range b.Frontier {
		r.writeRow(fx, sheet, i+3, []interface{}{fmt.Sprintf("Sample %d", i+1), p.Return, p.Risk}, rowStyles)
	}
	return nil
}

func (r *DefaultExcelReporter) writeHeader(fx *excelize.File, sheet string, headers []string, styles ExcelStyles) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}
	return fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (r *DefaultExcelReporter) writeRow(fx *excelize.File, sheet string, row int, values []interface{}, cellStyles []int) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		fx.SetCellValue(sheet, cell, v)
		if i < len(cellStyles) {
			fx.SetCellStyle(sheet, cell, cell, cellStyles[i])
		}
	}
}

func signedPercentStyle(v float64, styles ExcelStyles) int {
	if v < 0 {
		return styles.RedPercentStyle
	}
	return styles.GreenPercentStyle
}

func stringPtr(s string) *string { return &s }

// WriteReportXLSX writes a workbook with the default reporter
func WriteReportXLSX(b *report.Bundle, path string) error {
	return NewDefaultExcelReporter().WriteReportXLSX(b, path)
}
