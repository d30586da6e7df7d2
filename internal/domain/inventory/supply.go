package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// SupplyStatus nivel de suministro restante de un contacto para un péptido.
type SupplyStatus string

// Umbrales en días.
const (
	SupplyAdequate SupplyStatus = "adequate"
	SupplyLow      SupplyStatus = "low"
	SupplyCritical SupplyStatus = "critical"
	SupplyDepleted SupplyStatus = "depleted"
)

var seven = decimal.NewFromInt(7)

// DailyUsage consumo diario promedio en mg: dosis * días por semana / 7.
// Sin días configurados se asume dosis diaria.
func DailyUsage(doseMg decimal.Decimal, days []entity.Weekday) decimal.Decimal {
	if !doseMg.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	if len(days) == 0 || len(days) == 7 {
		return doseMg
	}
	return doseMg.Mul(decimal.NewFromInt(int64(len(days)))).Div(seven)
}

// DaysRemaining días completos de suministro.
func DaysRemaining(totalMg, dailyMg decimal.Decimal) int {
	if !dailyMg.GreaterThan(decimal.Zero) || !totalMg.GreaterThan(decimal.Zero) {
		return 0
	}
	return int(totalMg.Div(dailyMg).Floor().IntPart())
}

// ClassifySupply: depleted 0 días, critical < 3, low < 7, adequate en otro caso.
func ClassifySupply(days int) SupplyStatus {
	switch {
	case days <= 0:
		return SupplyDepleted
	case days < 3:
		return SupplyCritical
	case days < 7:
		return SupplyLow
	default:
		return SupplyAdequate
	}
}
