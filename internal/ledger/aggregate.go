package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// Aggregate returns one Position per symbol. The first call after the last
// AddTrades computes and memoizes the result; later calls return the memo.
func (l *Ledger) Aggregate(ctx context.Context) (map[string]Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.state.(computed); ok {
		return copyPositions(c.positions), nil
	}

	positions, err := l.aggregate(ctx)
	if err != nil {
		return nil, err
	}
	l.state = computed{positions: positions}
	return copyPositions(positions), nil
}

// aggregate must be called with l.mu held
func (l *Ledger) aggregate(ctx context.Context) (map[string]Position, error) {
	positions := make(map[string]Position)
	for _, t := range l.trades {
		p := positions[t.Symbol]
		p.NetCost = p.NetCost.Add(t.Cost())
		p.NetQuantity = p.NetQuantity.Add(t.Quantity)
		positions[t.Symbol] = p
	}

	symbols := make([]string, 0, len(positions))
	for s := range positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	from, to := l.Window()
	for _, symbol := range symbols {
		p := positions[symbol]
		if !p.NetQuantity.IsZero() {
			p.AverageCost = p.NetCost.Div(p.NetQuantity)
		}

		price, ok, err := l.provider.PointValue(ctx, symbol, types.MetricClose, from, to)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			l.log.Warning("no close for %s: %v", symbol, err)
			ok = false
		}
		if ok {
			p.CurrentValue = p.NetQuantity.Mul(decimal.NewFromFloat(price))
			p.Priced = true
		} else {
			l.log.Debug("%s has no close between %s and %s, valued at 0", symbol, types.DayKey(from), types.DayKey(to))
			p.CurrentValue = decimal.Zero
		}
		positions[symbol] = p
	}

	return positions, nil
}

func copyPositions(in map[string]Position) map[string]Position {
	out := make(map[string]Position, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// TotalCurrentValue sums the current value of every position
func TotalCurrentValue(positions map[string]Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.CurrentValue)
	}
	return total
}

// TradeDateValues values every trade at the latest close on or before its own
// trade date and sums the result per symbol. Trades with no such close are
// left out.
func (l *Ledger) TradeDateValues(ctx context.Context) (map[string]decimal.Decimal, error) {
	trades := l.Trades()

	out := make(map[string]decimal.Decimal)
	for _, t := range trades {
		from := types.StartOfDay(t.Date.Add(-l.lookback))
		price, ok, err := l.provider.PointValue(ctx, t.Symbol, types.MetricClose, from, types.EndOfDay(t.Date))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			l.log.Warning("no close for %s on %s: %v", t.Symbol, types.DayKey(t.Date), err)
			continue
		}
		if !ok {
			continue
		}
		out[t.Symbol] = out[t.Symbol].Add(t.Quantity.Mul(decimal.NewFromFloat(price)))
	}
	return out, nil
}
