package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1h KlineInterval = "60"
	Interval4h KlineInterval = "240"
	Interval1d KlineInterval = "D"
	Interval1w KlineInterval = "W"
)

// maxKlineLimit is the largest page the v5 kline endpoint serves
const maxKlineLimit = 1000

// Kline represents a single kline/candlestick data point
type Kline struct {
	StartTime  time.Time
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64
	Volume     float64
	Turnover   float64
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Category string        // "spot", "linear", "inverse"
	Symbol   string        // Trading pair symbol (e.g., "BTCUSDT")
	Interval KlineInterval // Time interval
	Start    *time.Time    // Start time (optional)
	End      *time.Time    // End time (optional)
	Limit    int           // Number of records to return (max 1000, default 200)
}

// GetKlines fetches one page of kline data from Bybit. Bybit returns the page
// newest first.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > maxKlineLimit {
		params.Limit = maxKlineLimit
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if params.End != nil {
		reqParams["end"] = params.End.UnixMilli()
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	klines, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kline response: %w", err)
	}

	return klines, nil
}

// GetKlineHistory downloads every kline in [start, end] by paging backwards
// from end, retrying rate-limited pages. The result is ascending.
func (c *Client) GetKlineHistory(ctx context.Context, category, symbol string, interval KlineInterval, start, end time.Time) ([]Kline, error) {
	fetch := func(ctx context.Context, cursor time.Time) ([]Kline, error) {
		var page []Kline
		err := Retry(ctx, c.retry, func() error {
			var err error
			page, err = c.GetKlines(ctx, KlineParams{
				Category: category,
				Symbol:   symbol,
				Interval: interval,
				End:      &cursor,
				Limit:    maxKlineLimit,
			})
			return err
		})
		return page, err
	}

	return collectKlines(ctx, start, end, pageDelay, fetch)
}

// pageDelay keeps paged downloads under the public endpoint rate limit
const pageDelay = 200 * time.Millisecond

type klinePageFunc func(ctx context.Context, cursor time.Time) ([]Kline, error)

func collectKlines(ctx context.Context, start, end time.Time, delay time.Duration, fetch klinePageFunc) ([]Kline, error) {
	var all []Kline
	seen := make(map[int64]bool)
	cursor := end

	for !cursor.Before(start) {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		oldest := page[0].StartTime
		for _, k := range page {
			if k.StartTime.Before(oldest) {
				oldest = k.StartTime
			}
			if k.StartTime.Before(start) || k.StartTime.After(end) {
				continue
			}
			ms := k.StartTime.UnixMilli()
			if seen[ms] {
				continue
			}
			seen[ms] = true
			all = append(all, k)
		}

		if !oldest.After(start) || !oldest.Before(cursor.Add(time.Millisecond)) {
			break
		}
		cursor = oldest.Add(-time.Millisecond)

		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
	return all, nil
}

func parseKlineResponse(response interface{}) ([]Kline, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}

	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	klines := make([]Kline, 0, len(klineResult.List))
	for _, item := range klineResult.List {
		if len(item) < 7 {
			continue
		}

		// [startTime, openPrice, highPrice, lowPrice, closePrice, volume, turnover]
		klines = append(klines, Kline{
			StartTime:  time.UnixMilli(parseInt64(item[0])).UTC(),
			OpenPrice:  parseFloat64(item[1]),
			HighPrice:  parseFloat64(item[2]),
			LowPrice:   parseFloat64(item[3]),
			ClosePrice: parseFloat64(item[4]),
			Volume:     parseFloat64(item[5]),
			Turnover:   parseFloat64(item[6]),
		})
	}

	return klines, nil
}

func parseFloat64(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}
