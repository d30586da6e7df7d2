package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// ApplyDose descuenta una dosis: nueva = max(0, actual - dosis).
// El vial queda depleted exactamente cuando la nueva cantidad es 0.
func ApplyDose(current, dose decimal.Decimal) (decimal.Decimal, entity.VialStatus) {
	next := current.Sub(dose)
	if next.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, entity.VialDepleted
	}
	return next, entity.VialActive
}

// Concentration mg/ml = tamaño del vial / agua agregada.
func Concentration(vialSizeMg, waterAddedMl decimal.Decimal) (decimal.Decimal, error) {
	if !waterAddedMl.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.Invalid("water_added_ml", "debe ser mayor que 0")
	}
	if !vialSizeMg.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.Invalid("vial_size_mg", "debe ser mayor que 0")
	}
	return vialSizeMg.Div(waterAddedMl), nil
}

// DoseVolumeMl volumen a inyectar para una dosis dada la concentración.
func DoseVolumeMl(doseMg, concentrationMgMl decimal.Decimal) decimal.Decimal {
	if !concentrationMgMl.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	return doseMg.Div(concentrationMgMl)
}
