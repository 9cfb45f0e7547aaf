package ledger

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/pkg/data"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// DefaultLookback is the trailing window used to find the latest close
const DefaultLookback = 365 * 24 * time.Hour

// Position is the aggregate of every trade in one symbol
type Position struct {
	NetCost      decimal.Decimal `json:"net_cost"`
	NetQuantity  decimal.Decimal `json:"net_quantity"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	CurrentValue decimal.Decimal `json:"current_value"`
	// Priced is false when no close was found in the lookback window
	Priced bool `json:"priced"`
}

// aggregateState is either pending or computed; AddTrades moves it back to pending
type aggregateState interface {
	isAggregateState()
}

type pending struct{}

type computed struct {
	positions map[string]Position
}

func (pending) isAggregateState()  {}
func (computed) isAggregateState() {}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock sets the clock used for "today"
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLookback sets the trailing window used for the latest close
func WithLookback(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.lookback = d
		}
	}
}

// WithLogger attaches a logger
func WithLogger(log *logger.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// Ledger aggregates buy trades into positions and dated holdings
type Ledger struct {
	provider data.HistoryProvider
	log      *logger.Logger
	now      func() time.Time
	lookback time.Duration

	mu     sync.Mutex
	trades []types.Trade
	state  aggregateState
}

// New creates an empty ledger valued through provider
func New(provider data.HistoryProvider, opts ...Option) *Ledger {
	l := &Ledger{
		provider: provider,
		now:      time.Now,
		lookback: DefaultLookback,
		state:    pending{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddTrades validates every input and appends them all, or none when any is
// malformed. Any previously computed aggregate is discarded.
func (l *Ledger) AddTrades(inputs []types.TradeInput) error {
	trades := make([]types.Trade, 0, len(inputs))
	for i, in := range inputs {
		t, err := parseTrade(i, in)
		if err != nil {
			return err
		}
		trades = append(trades, t)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.trades = append(l.trades, trades...)
	l.state = pending{}
	l.log.Debug("added %d trades (%d total)", len(trades), len(l.trades))
	return nil
}

func parseTrade(i int, in types.TradeInput) (types.Trade, error) {
	invalid := func(msg string) error {
		return apperrors.NewValidationError("ledger", "add_trades", fmt.Sprintf("trade %d: %s", i, msg)).
			WithContext("index", i).
			WithContext("symbol", in.Symbol)
	}

	symbol := strings.TrimSpace(in.Symbol)
	if symbol == "" {
		return types.Trade{}, invalid("missing symbol")
	}
	if in.Quantity == nil {
		return types.Trade{}, invalid("missing quantity")
	}
	if in.PurchasePrice == nil {
		return types.Trade{}, invalid("missing purchase price")
	}
	if !isFinite(*in.Quantity) || *in.Quantity <= 0 {
		return types.Trade{}, invalid(fmt.Sprintf("quantity must be positive, got %v", *in.Quantity))
	}
	if !isFinite(*in.PurchasePrice) || *in.PurchasePrice < 0 {
		return types.Trade{}, invalid(fmt.Sprintf("purchase price must not be negative, got %v", *in.PurchasePrice))
	}

	date, err := types.ParseTradeDate(in.Date)
	if err != nil {
		return types.Trade{}, invalid(fmt.Sprintf("invalid date: %v", err))
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}

	return types.Trade{
		ID:            id,
		Symbol:        symbol,
		PurchasePrice: decimal.NewFromFloat(*in.PurchasePrice),
		Quantity:      decimal.NewFromFloat(*in.Quantity),
		Date:          date,
	}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Trades returns a copy of the accepted trades in insertion order
func (l *Ledger) Trades() []types.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Symbols returns the distinct traded symbols, sorted
func (l *Ledger) Symbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for _, t := range l.trades {
		if !seen[t.Symbol] {
			seen[t.Symbol] = true
			out = append(out, t.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// Window returns the trailing valuation window ending today
func (l *Ledger) Window() (time.Time, time.Time) {
	return data.TrailingWindow(l.now(), l.lookback)
}
