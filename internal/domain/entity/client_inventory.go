package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// VialStatus estado de un vial en la nevera digital del cliente.
type VialStatus string

// Estados de vial.
const (
	VialActive   VialStatus = "active"
	VialDepleted VialStatus = "depleted"
	VialArchived VialStatus = "archived"
)

// ParseVialStatus valida el estado leído de la DB.
func ParseVialStatus(s string) (VialStatus, error) {
	st := VialStatus(s)
	switch st {
	case VialActive, VialDepleted, VialArchived:
		return st, nil
	}
	return "", fmt.Errorf("estado de vial desconocido: %q", s)
}

// Weekday día de dosis (abreviatura en minúsculas, como se guarda en dose_days).
type Weekday string

// Días de la semana.
const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

var weekdayOrder = map[Weekday]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3, Friday: 4, Saturday: 5, Sunday: 6,
}

var weekdayNames = map[string]Weekday{
	"monday": Monday, "tuesday": Tuesday, "wednesday": Wednesday, "thursday": Thursday,
	"friday": Friday, "saturday": Saturday, "sunday": Sunday,
}

// ParseWeekday acepta abreviatura o nombre completo en inglés ("Mon", "monday").
func ParseWeekday(s string) (Weekday, error) {
	low := strings.ToLower(strings.TrimSpace(s))
	if _, ok := weekdayOrder[Weekday(low)]; ok {
		return Weekday(low), nil
	}
	if d, ok := weekdayNames[low]; ok {
		return d, nil
	}
	return "", fmt.Errorf("día inválido: %q", s)
}

// NormalizeWeekdays valida, elimina duplicados y ordena lunes→domingo.
func NormalizeWeekdays(days []string) ([]Weekday, error) {
	seen := make(map[Weekday]struct{}, len(days))
	out := make([]Weekday, 0, len(days))
	for _, s := range days {
		d, err := ParseWeekday(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return weekdayOrder[out[i]] < weekdayOrder[out[j]] })
	return out, nil
}

// ClientInventory vial en posesión de un contacto. MovementID vacío = agregado manualmente.
// Invariante: CurrentQuantityMg <= VialSizeMg y status depleted exactamente cuando llega a 0.
type ClientInventory struct {
	ID                string
	OrgID             string
	ContactID         string
	PeptideID         string
	MovementID        string
	BatchNumber       string
	VialSizeMg        decimal.Decimal
	WaterAddedMl      *decimal.Decimal
	ConcentrationMgMl *decimal.Decimal
	InitialQuantityMg decimal.Decimal
	CurrentQuantityMg decimal.Decimal
	Status            VialStatus
	DoseAmountMg      *decimal.Decimal
	DoseDays          []Weekday
	ReconstitutedAt   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Reconstituted true cuando ya se fijó el agua y la concentración.
func (v *ClientInventory) Reconstituted() bool {
	return v.WaterAddedMl != nil && v.ConcentrationMgMl != nil
}
