package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de transacción de inventario.
type MovementType string

// Tipos de movimiento.
const (
	MovementSale       MovementType = "sale"
	MovementGiveaway   MovementType = "giveaway"
	MovementAdjustment MovementType = "adjustment" // baja: dañado, perdido, vencido
)

// ParseMovementType valida el tipo recibido en el borde.
func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(s)
	switch t {
	case MovementSale, MovementGiveaway, MovementAdjustment:
		return t, nil
	}
	return "", fmt.Errorf("tipo de movimiento desconocido: %q", s)
}

// TransfersCustody true si el movimiento entrega las botellas a un contacto (genera viales en su nevera).
func (t MovementType) TransfersCustody() bool {
	switch t {
	case MovementSale, MovementGiveaway:
		return true
	case MovementAdjustment:
		return false
	}
	return false
}

// MovementStatus estado del movimiento.
type MovementStatus string

// Estados de movimiento. returned es terminal (soft); el revert admin borra la fila.
const (
	MovementActive   MovementStatus = "active"
	MovementReturned MovementStatus = "returned"
)

// ParseMovementStatus valida el estado leído de la DB.
func ParseMovementStatus(s string) (MovementStatus, error) {
	st := MovementStatus(s)
	switch st {
	case MovementActive, MovementReturned:
		return st, nil
	}
	return "", fmt.Errorf("estado de movimiento desconocido: %q", s)
}

// PaymentStatus estado de cobro.
type PaymentStatus string

// Estados de pago (monótonos hacia paid).
const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// SettlementReturned se muestra en lugar del estado de pago cuando el movimiento fue devuelto.
const SettlementReturned = "returned"

// ParsePaymentStatus valida el estado de pago recibido.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(s)
	switch st {
	case PaymentUnpaid, PaymentPartial, PaymentPaid:
		return st, nil
	}
	return "", fmt.Errorf("estado de pago desconocido: %q", s)
}

// Rank orden de la progresión unpaid < partial < paid.
func (p PaymentStatus) Rank() int {
	switch p {
	case PaymentUnpaid:
		return 0
	case PaymentPartial:
		return 1
	case PaymentPaid:
		return 2
	}
	return -1
}

// Movement transacción de inventario con sus ítems.
type Movement struct {
	ID            string
	OrgID         string
	Type          MovementType
	ContactID     string
	Status        MovementStatus
	PaymentStatus PaymentStatus
	AmountPaid    decimal.Decimal
	MovementDate  time.Time
	Notes         string
	CreatedBy     string
	// WriteOffStatus estado aplicado a las botellas en un ajuste (damaged, lost, expired).
	WriteOffStatus BottleStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Items          []MovementItem
}

// MovementItem botella consumida por un movimiento. BottleID vacío = fila sin botella resoluble.
type MovementItem struct {
	ID          string
	MovementID  string
	BottleID    string
	PriceAtSale decimal.Decimal
	CreatedAt   time.Time
}

// Total suma de precios de venta de los ítems.
func (m *Movement) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range m.Items {
		total = total.Add(it.PriceAtSale)
	}
	return total
}

// BottleIDs IDs de botellas de los ítems (omite vacíos).
func (m *Movement) BottleIDs() []string {
	ids := make([]string, 0, len(m.Items))
	for _, it := range m.Items {
		if it.BottleID != "" {
			ids = append(ids, it.BottleID)
		}
	}
	return ids
}

// TargetBottleStatus estado que el movimiento aplicó a sus botellas.
func (m *Movement) TargetBottleStatus() BottleStatus {
	switch m.Type {
	case MovementSale:
		return BottleSold
	case MovementGiveaway:
		return BottleGivenAway
	case MovementAdjustment:
		return m.WriteOffStatus
	}
	return ""
}

// SettlementStatus estado de cobro visible: una devolución anula el estado de pago.
func (m *Movement) SettlementStatus() string {
	if m.Status == MovementReturned {
		return SettlementReturned
	}
	return string(m.PaymentStatus)
}
