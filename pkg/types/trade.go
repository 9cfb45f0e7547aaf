package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a validated buy trade. Date is always UTC.
type Trade struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Quantity      decimal.Decimal `json:"quantity"`
	Date          time.Time       `json:"date"`
}

// Cost returns quantity times purchase price
func (t Trade) Cost() decimal.Decimal {
	return t.Quantity.Mul(t.PurchasePrice)
}
