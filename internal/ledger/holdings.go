package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/portfolio-analytics/pkg/data"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// Holdings maps symbol to cumulative quantity held
type Holdings map[string]float64

// DatedHoldings is the holdings snapshot for one calendar day
type DatedHoldings struct {
	Date       time.Time `json:"date"`
	Quantities Holdings  `json:"quantities"`
}

// HoldingsAsOf sums the quantity of every trade dated at or before date.
// Both sides are compared as UTC instants.
func (l *Ledger) HoldingsAsOf(date time.Time) Holdings {
	date = date.UTC()

	sums := make(map[string]decimal.Decimal)
	for _, t := range l.Trades() {
		if !t.Date.After(date) {
			sums[t.Symbol] = sums[t.Symbol].Add(t.Quantity)
		}
	}
	return toHoldings(sums)
}

// HoldingsOverWindow returns one snapshot per calendar day from start to end,
// both inclusive. A day's snapshot includes every trade placed before that
// day ends.
func (l *Ledger) HoldingsOverWindow(start, end time.Time) []DatedHoldings {
	first, last := types.StartOfDay(start), types.StartOfDay(end)
	if last.Before(first) {
		return []DatedHoldings{}
	}

	trades := l.Trades()
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].Date.Before(trades[j].Date) })

	var out []DatedHoldings
	sums := make(map[string]decimal.Decimal)
	next := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		cutoff := types.EndOfDay(d)
		for next < len(trades) && !trades[next].Date.After(cutoff) {
			t := trades[next]
			sums[t.Symbol] = sums[t.Symbol].Add(t.Quantity)
			next++
		}
		out = append(out, DatedHoldings{Date: d, Quantities: toHoldings(sums)})
	}
	return out
}

func toHoldings(sums map[string]decimal.Decimal) Holdings {
	h := make(Holdings, len(sums))
	for symbol, q := range sums {
		h[symbol] = q.InexactFloat64()
	}
	return h
}

// ValueAtDates values each snapshot at that day's metric value. Each symbol's
// series is fetched once for the whole window. Days whose total is not
// positive are dropped.
func (l *Ledger) ValueAtDates(ctx context.Context, window []DatedHoldings, metric string) (data.Series, error) {
	if len(window) == 0 {
		return data.Series{}, nil
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, dh := range window {
		for symbol := range dh.Quantities {
			if !seen[symbol] {
				seen[symbol] = true
				symbols = append(symbols, symbol)
			}
		}
	}
	sort.Strings(symbols)

	from := types.StartOfDay(window[0].Date)
	to := types.EndOfDay(window[len(window)-1].Date)

	prices := make(map[string]map[string]float64, len(symbols))
	for _, symbol := range symbols {
		s, err := l.provider.Series(ctx, symbol, metric, from, to)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			l.log.Warning("no %s history for %s: %v", metric, symbol, err)
			continue
		}
		prices[symbol] = s.ByDay()
	}

	out := data.Series{}
	for _, dh := range window {
		key := types.DayKey(dh.Date)
		total := 0.0
		for _, symbol := range symbols {
			qty, held := dh.Quantities[symbol]
			if price, ok := prices[symbol][key]; held && ok {
				total += price * qty
			}
		}
		if total > 0 {
			out = append(out, types.PricePoint{Date: types.StartOfDay(dh.Date), Value: total})
		}
	}
	return out, nil
}
