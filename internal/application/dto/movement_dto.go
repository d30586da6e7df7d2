package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// MovementItemRequest botella elegida explícitamente.
type MovementItemRequest struct {
	BottleID    string          `json:"bottle_id"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
}

// FIFOLineRequest Count botellas del péptido (o de los lotes dados) en orden FIFO.
type FIFOLineRequest struct {
	PeptideID string          `json:"peptide_id"`
	LotIDs    []string        `json:"lot_ids,omitempty"`
	Count     int             `json:"count"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// MovementRequest body para POST /api/movements/sales y /giveaways.
// Se usan items (botellas explícitas) o lines (FIFO), no ambos.
type MovementRequest struct {
	ContactID     string                `json:"contact_id"`
	Items         []MovementItemRequest `json:"items,omitempty"`
	Lines         []FIFOLineRequest     `json:"lines,omitempty"`
	PaymentStatus string                `json:"payment_status,omitempty"`
	AmountPaid    decimal.Decimal       `json:"amount_paid"`
	MovementDate  *time.Time            `json:"movement_date,omitempty"`
	Notes         string                `json:"notes,omitempty"`
}

// AdjustmentRequest body para POST /api/movements/adjustments (baja de botellas).
type AdjustmentRequest struct {
	BottleIDs    []string   `json:"bottle_ids"`
	Status       string     `json:"status"` // damaged, lost, expired
	MovementDate *time.Time `json:"movement_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// PaymentRequest body para POST /api/movements/:id/payments.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// MovementItemResponse ítem de un movimiento.
type MovementItemResponse struct {
	ID          string          `json:"id"`
	BottleID    string          `json:"bottle_id,omitempty"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
}

// MovementResponse movimiento con ítems y total.
type MovementResponse struct {
	ID             string                 `json:"id"`
	Type           entity.MovementType    `json:"type"`
	ContactID      string                 `json:"contact_id,omitempty"`
	Status         entity.MovementStatus  `json:"status"`
	PaymentStatus  entity.PaymentStatus   `json:"payment_status"`
	Settlement     string                 `json:"settlement"`
	AmountPaid     decimal.Decimal        `json:"amount_paid"`
	Total          decimal.Decimal        `json:"total"`
	WriteOffStatus entity.BottleStatus    `json:"write_off_status,omitempty"`
	MovementDate   time.Time              `json:"movement_date"`
	Notes          string                 `json:"notes,omitempty"`
	CreatedBy      string                 `json:"created_by,omitempty"`
	Items          []MovementItemResponse `json:"items"`
}

// MovementFromEntity convierte la entidad a respuesta.
func MovementFromEntity(m *entity.Movement) MovementResponse {
	out := MovementResponse{
		ID:             m.ID,
		Type:           m.Type,
		ContactID:      m.ContactID,
		Status:         m.Status,
		PaymentStatus:  m.PaymentStatus,
		Settlement:     m.SettlementStatus(),
		AmountPaid:     m.AmountPaid,
		Total:          m.Total(),
		WriteOffStatus: m.WriteOffStatus,
		MovementDate:   m.MovementDate,
		Notes:          m.Notes,
		CreatedBy:      m.CreatedBy,
		Items:          make([]MovementItemResponse, len(m.Items)),
	}
	for i, it := range m.Items {
		out.Items[i] = MovementItemResponse{ID: it.ID, BottleID: it.BottleID, PriceAtSale: it.PriceAtSale}
	}
	return out
}
