package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// DateLayout formato de fechas sin hora en requests y responses.
const DateLayout = "2006-01-02"

// ReceiveLotRequest body para POST /api/lots.
type ReceiveLotRequest struct {
	PeptideID        string          `json:"peptide_id"`
	LotNumber        string          `json:"lot_number"`
	CostPerUnit      decimal.Decimal `json:"cost_per_unit"`
	QuantityReceived int             `json:"quantity_received"`
	ReceivedDate     string          `json:"received_date,omitempty"` // YYYY-MM-DD; vacío = hoy
	ExpiryDate       string          `json:"expiry_date,omitempty"`
	Notes            string          `json:"notes,omitempty"`
}

// UpdateLotRequest body para PATCH /api/lots/:id. Solo se aplican los campos presentes.
type UpdateLotRequest struct {
	LotNumber   *string          `json:"lot_number,omitempty"`
	CostPerUnit *decimal.Decimal `json:"cost_per_unit,omitempty"`
	ExpiryDate  *string          `json:"expiry_date,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
}

// LotResponse lote recibido.
type LotResponse struct {
	ID               string          `json:"id"`
	PeptideID        string          `json:"peptide_id"`
	LotNumber        string          `json:"lot_number"`
	CostPerUnit      decimal.Decimal `json:"cost_per_unit"`
	QuantityReceived int             `json:"quantity_received"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	ReceivedDate     string          `json:"received_date"`
	ExpiryDate       string          `json:"expiry_date,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// LotFromEntity convierte la entidad a respuesta.
func LotFromEntity(l *entity.Lot) LotResponse {
	out := LotResponse{
		ID:               l.ID,
		PeptideID:        l.PeptideID,
		LotNumber:        l.LotNumber,
		CostPerUnit:      l.CostPerUnit,
		QuantityReceived: l.QuantityReceived,
		TotalCost:        l.TotalCost(),
		ReceivedDate:     l.ReceivedDate.Format(DateLayout),
		Notes:            l.Notes,
		CreatedAt:        l.CreatedAt,
	}
	if l.ExpiryDate != nil {
		out.ExpiryDate = l.ExpiryDate.Format(DateLayout)
	}
	return out
}

// BottleResponse botella con su lote y producto.
type BottleResponse struct {
	ID          string              `json:"id"`
	UID         string              `json:"uid"`
	Status      entity.BottleStatus `json:"status"`
	LotID       string              `json:"lot_id"`
	LotNumber   string              `json:"lot_number,omitempty"`
	PeptideID   string              `json:"peptide_id,omitempty"`
	PeptideName string              `json:"peptide_name,omitempty"`
}

// BottlesFromDetails convierte una lista de botellas.
func BottlesFromDetails(in []*entity.BottleDetail) []BottleResponse {
	out := make([]BottleResponse, len(in))
	for i, b := range in {
		out[i] = BottleResponse{
			ID: b.ID, UID: b.UID, Status: b.Status, LotID: b.LotID,
			LotNumber: b.LotNumber, PeptideID: b.PeptideID, PeptideName: b.PeptideName,
		}
	}
	return out
}

// RestoreBottlesRequest body para POST /api/bottles/restore.
type RestoreBottlesRequest struct {
	BottleIDs []string `json:"bottle_ids"`
}
