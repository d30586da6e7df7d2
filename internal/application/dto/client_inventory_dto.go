package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// ManualVialRequest body para POST /api/contacts/:id/vials.
type ManualVialRequest struct {
	PeptideID         string          `json:"peptide_id"`
	BatchNumber       string          `json:"batch_number,omitempty"`
	VialSizeMg        decimal.Decimal `json:"vial_size_mg"`
	CurrentQuantityMg decimal.Decimal `json:"current_quantity_mg"`
}

// ReconstituteRequest body para POST /api/vials/:id/reconstitute. vial_size_mg 0 = el guardado.
type ReconstituteRequest struct {
	WaterAddedMl decimal.Decimal `json:"water_added_ml"`
	VialSizeMg   decimal.Decimal `json:"vial_size_mg"`
}

// ScheduleRequest body para POST /api/vials/:id/schedule.
type ScheduleRequest struct {
	DoseAmountMg decimal.Decimal `json:"dose_amount_mg"`
	DoseDays     []string        `json:"dose_days"`
}

// DoseRequest body para POST /api/vials/:id/doses. observed_mg es la cantidad que el cliente
// leyó antes de dosificar.
type DoseRequest struct {
	ObservedMg decimal.Decimal `json:"observed_mg"`
	DoseMg     decimal.Decimal `json:"dose_mg"`
}

// VialResponse vial de la nevera digital.
type VialResponse struct {
	ID                string            `json:"id"`
	ContactID         string            `json:"contact_id"`
	PeptideID         string            `json:"peptide_id"`
	MovementID        string            `json:"movement_id,omitempty"`
	BatchNumber       string            `json:"batch_number,omitempty"`
	VialSizeMg        decimal.Decimal   `json:"vial_size_mg"`
	WaterAddedMl      *decimal.Decimal  `json:"water_added_ml,omitempty"`
	ConcentrationMgMl *decimal.Decimal  `json:"concentration_mg_ml,omitempty"`
	InitialQuantityMg decimal.Decimal   `json:"initial_quantity_mg"`
	CurrentQuantityMg decimal.Decimal   `json:"current_quantity_mg"`
	Status            entity.VialStatus `json:"status"`
	DoseAmountMg      *decimal.Decimal  `json:"dose_amount_mg,omitempty"`
	DoseDays          []entity.Weekday  `json:"dose_days"`
	ReconstitutedAt   *time.Time        `json:"reconstituted_at,omitempty"`
}

// VialFromEntity convierte la entidad a respuesta.
func VialFromEntity(v *entity.ClientInventory) VialResponse {
	days := v.DoseDays
	if days == nil {
		days = []entity.Weekday{}
	}
	return VialResponse{
		ID:                v.ID,
		ContactID:         v.ContactID,
		PeptideID:         v.PeptideID,
		MovementID:        v.MovementID,
		BatchNumber:       v.BatchNumber,
		VialSizeMg:        v.VialSizeMg,
		WaterAddedMl:      v.WaterAddedMl,
		ConcentrationMgMl: v.ConcentrationMgMl,
		InitialQuantityMg: v.InitialQuantityMg,
		CurrentQuantityMg: v.CurrentQuantityMg,
		Status:            v.Status,
		DoseAmountMg:      v.DoseAmountMg,
		DoseDays:          days,
		ReconstitutedAt:   v.ReconstitutedAt,
	}
}

// VialsFromEntities convierte una lista de viales.
func VialsFromEntities(in []*entity.ClientInventory) []VialResponse {
	out := make([]VialResponse, len(in))
	for i, v := range in {
		out[i] = VialFromEntity(v)
	}
	return out
}
