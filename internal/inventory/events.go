package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement records one stock change and what caused it.
type Movement struct {
	InventoryID int64
	ProductNo   string
	From        decimal.Decimal
	To          decimal.Decimal
	Source      string
	SourceID    int64
	At          time.Time
}

// Delta is To - From.
func (m Movement) Delta() decimal.Decimal {
	return m.To.Sub(m.From)
}
