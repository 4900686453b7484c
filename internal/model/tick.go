package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one executed trade.
type Tick struct {
	Symbol    string
	Timestamp time.Time
	Price     decimal.Decimal
	Volume    decimal.Decimal
}

// DollarValue returns Price * Volume without rounding.
func (t Tick) DollarValue() decimal.Decimal {
	return t.Price.Mul(t.Volume)
}
