package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot lote recibido de un producto. QuantityReceived es inmutable: debe coincidir siempre
// con la cantidad de botellas del lote.
type Lot struct {
	ID               string
	OrgID            string
	PeptideID        string
	LotNumber        string
	CostPerUnit      decimal.Decimal
	QuantityReceived int
	ReceivedDate     time.Time
	ExpiryDate       *time.Time
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TotalCost costo de adquisición del lote completo.
func (l *Lot) TotalCost() decimal.Decimal {
	return l.CostPerUnit.Mul(decimal.NewFromInt(int64(l.QuantityReceived)))
}
