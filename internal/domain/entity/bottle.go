package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BottleStatus estado del ciclo de vida de una botella.
type BottleStatus string

// Estados de botella.
const (
	BottleInStock   BottleStatus = "in_stock"
	BottleSold      BottleStatus = "sold"
	BottleGivenAway BottleStatus = "given_away"
	BottleDamaged   BottleStatus = "damaged"
	BottleLost      BottleStatus = "lost"
	BottleExpired   BottleStatus = "expired"
)

// AllBottleStatuses en orden de presentación.
var AllBottleStatuses = []BottleStatus{
	BottleInStock, BottleSold, BottleGivenAway, BottleDamaged, BottleLost, BottleExpired,
}

// ParseBottleStatus valida el texto recibido en el borde (HTTP, DB).
func ParseBottleStatus(s string) (BottleStatus, error) {
	st := BottleStatus(s)
	switch st {
	case BottleInStock, BottleSold, BottleGivenAway, BottleDamaged, BottleLost, BottleExpired:
		return st, nil
	}
	return "", fmt.Errorf("estado de botella desconocido: %q", s)
}

// InCustody true si la botella salió del stock hacia una contraparte y puede volver con un restock.
func (s BottleStatus) InCustody() bool {
	switch s {
	case BottleSold, BottleGivenAway:
		return true
	case BottleInStock, BottleDamaged, BottleLost, BottleExpired:
		return false
	}
	return false
}

// WriteOff true para estados terminales de baja; nunca vuelven a in_stock automáticamente.
func (s BottleStatus) WriteOff() bool {
	switch s {
	case BottleDamaged, BottleLost, BottleExpired:
		return true
	case BottleInStock, BottleSold, BottleGivenAway:
		return false
	}
	return false
}

// RestorableStatuses estados que RestoreBottles devuelve a in_stock.
var RestorableStatuses = []BottleStatus{BottleSold, BottleGivenAway}

// Bottle unidad física de un lote.
type Bottle struct {
	ID        string
	OrgID     string
	LotID     string
	UID       string
	Status    BottleStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BottleDetail botella con datos de su lote y producto (consultas de lectura y FIFO).
type BottleDetail struct {
	Bottle
	LotNumber    string
	LotCreatedAt time.Time
	CostPerUnit  decimal.Decimal
	PeptideID    string
	PeptideName  string
}

// BottleUID serial legible: <lote>-<secuencia de 3 dígitos>.
func BottleUID(lotNumber string, seq int) string {
	return fmt.Sprintf("%s-%03d", lotNumber, seq)
}
