package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Peptide producto del catálogo (colaborador externo, solo lectura para el ledger).
// Reconstitutable indica si la botella se entrega liofilizada y el cliente la mezcla.
type Peptide struct {
	ID                string
	OrgID             string
	Name              string
	Reconstitutable   bool
	DefaultVialSizeMg *decimal.Decimal // nil = se infiere del nombre ("BPC-157 5mg")
	DefaultDoseMg     *decimal.Decimal
	CreatedAt         time.Time
}
