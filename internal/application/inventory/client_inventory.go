package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

// ClientInventoryTracker nevera digital: viales en poder de cada contacto, su reconstitución,
// su protocolo de dosis y su consumo.
type ClientInventoryTracker struct {
	vials    repository.ClientInventoryRepository
	peptides repository.PeptideRepository
	contacts repository.ContactRepository
	pub      InvalidationPublisher
	log      zerolog.Logger
}

// NewClientInventoryTracker construye el caso de uso.
func NewClientInventoryTracker(
	vials repository.ClientInventoryRepository,
	peptides repository.PeptideRepository,
	contacts repository.ContactRepository,
	pub InvalidationPublisher,
	log zerolog.Logger,
) *ClientInventoryTracker {
	return &ClientInventoryTracker{vials: vials, peptides: peptides, contacts: contacts, pub: pub, log: log}
}

func (t *ClientInventoryTracker) get(ctx context.Context, orgID, id string) (*entity.ClientInventory, error) {
	v, err := t.vials.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (t *ClientInventoryTracker) changed(ctx context.Context, orgID string, ids ...string) {
	publish(ctx, t.pub, t.log, Invalidation{OrgID: orgID, Entity: EntityClientInventory, IDs: ids})
}

// Reconstitute fija el agua agregada y la concentración (una sola vez por vial).
// vialSizeMg en cero usa el tamaño registrado.
func (t *ClientInventoryTracker) Reconstitute(ctx context.Context, orgID, vialID string, waterAddedMl, vialSizeMg decimal.Decimal) (*entity.ClientInventory, error) {
	if !waterAddedMl.GreaterThan(decimal.Zero) {
		return nil, domain.Invalid("water_added_ml", "debe ser mayor que 0")
	}
	if vialSizeMg.LessThan(decimal.Zero) {
		return nil, domain.Invalid("vial_size_mg", "no puede ser negativo")
	}
	v, err := t.get(ctx, orgID, vialID)
	if err != nil {
		return nil, err
	}
	if v.Reconstituted() {
		return nil, domain.Conflict("el vial ya fue reconstituido")
	}
	size := v.VialSizeMg
	if vialSizeMg.GreaterThan(decimal.Zero) {
		size = vialSizeMg
	}
	if size.LessThan(v.CurrentQuantityMg) {
		return nil, domain.Invalid("vial_size_mg", "menor que la cantidad restante del vial")
	}
	conc, err := inventory.Concentration(size, waterAddedMl)
	if err != nil {
		return nil, err
	}
	at := time.Now()
	ok, err := t.vials.UpdateReconstitution(ctx, orgID, vialID, size, waterAddedMl, conc, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Conflict("el vial ya fue reconstituido")
	}
	v.VialSizeMg, v.WaterAddedMl, v.ConcentrationMgMl, v.ReconstitutedAt = size, &waterAddedMl, &conc, &at
	t.changed(ctx, orgID, vialID)
	return v, nil
}

// SetSchedule actualiza dosis y días de aplicación.
func (t *ClientInventoryTracker) SetSchedule(ctx context.Context, orgID, vialID string, doseMg decimal.Decimal, days []string) (*entity.ClientInventory, error) {
	if !doseMg.GreaterThan(decimal.Zero) {
		return nil, domain.Invalid("dose_amount_mg", "debe ser mayor que 0")
	}
	weekdays, err := entity.NormalizeWeekdays(days)
	if err != nil {
		return nil, domain.Invalid("dose_days", err.Error())
	}
	v, err := t.get(ctx, orgID, vialID)
	if err != nil {
		return nil, err
	}
	ok, err := t.vials.UpdateSchedule(ctx, orgID, vialID, doseMg, weekdays)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	v.DoseAmountMg, v.DoseDays = &doseMg, weekdays
	t.changed(ctx, orgID, vialID)
	return v, nil
}

// DoseResult resultado de registrar una dosis.
type DoseResult struct {
	VialID     string            `json:"vial_id"`
	PreviousMg decimal.Decimal   `json:"previous_mg"`
	CurrentMg  decimal.Decimal   `json:"current_mg"`
	Status     entity.VialStatus `json:"status"`
	VolumeMl   decimal.Decimal   `json:"volume_ml"`
}

// LogDose descuenta una dosis con compare-and-set sobre la cantidad observada por el caller.
// Si otra dosis se registró en medio, devuelve ConflictError y el caller relee y reintenta.
func (t *ClientInventoryTracker) LogDose(ctx context.Context, orgID, vialID string, observedMg, doseMg decimal.Decimal) (*DoseResult, error) {
	if !doseMg.GreaterThan(decimal.Zero) {
		return nil, domain.Invalid("dose_mg", "debe ser mayor que 0")
	}
	if observedMg.LessThan(decimal.Zero) {
		return nil, domain.Invalid("current_quantity_mg", "no puede ser negativo")
	}
	v, err := t.get(ctx, orgID, vialID)
	if err != nil {
		return nil, err
	}
	if v.Status == entity.VialArchived {
		return nil, domain.Conflict("el vial está archivado")
	}
	next, status := inventory.ApplyDose(observedMg, doseMg)
	ok, err := t.vials.CompareAndSetQuantity(ctx, orgID, vialID, observedMg, next, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Conflict("la cantidad del vial cambió; releer y reintentar")
	}
	res := &DoseResult{VialID: vialID, PreviousMg: observedMg, CurrentMg: next, Status: status}
	if v.ConcentrationMgMl != nil {
		res.VolumeMl = inventory.DoseVolumeMl(doseMg, *v.ConcentrationMgMl).Round(3)
	}
	t.changed(ctx, orgID, vialID)
	return res, nil
}

// MarkEmpty fuerza cantidad 0 y estado depleted (vial dañado o perdido).
func (t *ClientInventoryTracker) MarkEmpty(ctx context.Context, orgID, vialID string) error {
	ok, err := t.vials.ForceEmpty(ctx, orgID, vialID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	t.changed(ctx, orgID, vialID)
	return nil
}

// ManualVialInput vial adquirido fuera del ledger (sin movimiento de origen).
type ManualVialInput struct {
	OrgID             string
	ContactID         string
	PeptideID         string
	BatchNumber       string
	VialSizeMg        decimal.Decimal
	CurrentQuantityMg decimal.Decimal
}

// AddManualVial agrega un vial a la nevera de un contacto.
func (t *ClientInventoryTracker) AddManualVial(ctx context.Context, in ManualVialInput) (*entity.ClientInventory, error) {
	if in.ContactID == "" {
		return nil, domain.Invalid("contact_id", "requerido")
	}
	if in.PeptideID == "" {
		return nil, domain.Invalid("peptide_id", "requerido")
	}
	if in.VialSizeMg.LessThan(decimal.Zero) || in.CurrentQuantityMg.LessThan(decimal.Zero) {
		return nil, domain.Invalid("vial_size_mg", "no puede ser negativo")
	}
	c, err := t.contacts.GetByID(ctx, in.OrgID, in.ContactID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	p, err := t.peptides.GetByID(ctx, in.OrgID, in.PeptideID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	size := in.VialSizeMg
	if size.IsZero() {
		size = vialSize(p)
	}
	current := in.CurrentQuantityMg
	if current.IsZero() {
		current = size
	}
	if current.GreaterThan(size) {
		return nil, domain.Invalid("current_quantity_mg", "supera el tamaño del vial")
	}
	now := time.Now()
	v := &entity.ClientInventory{
		ID:                uuid.New().String(),
		OrgID:             in.OrgID,
		ContactID:         in.ContactID,
		PeptideID:         in.PeptideID,
		BatchNumber:       in.BatchNumber,
		VialSizeMg:        size,
		InitialQuantityMg: size,
		CurrentQuantityMg: current,
		Status:            entity.VialActive,
		DoseAmountMg:      p.DefaultDoseMg,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := t.vials.CreateBatch(ctx, []*entity.ClientInventory{v}); err != nil {
		return nil, err
	}
	t.changed(ctx, in.OrgID, v.ID)
	return v, nil
}

// ListForContact viales del contacto; los agotados solo si includeDepleted.
func (t *ClientInventoryTracker) ListForContact(ctx context.Context, orgID, contactID string, includeDepleted bool) ([]*entity.ClientInventory, error) {
	return t.vials.ListByContact(ctx, orgID, contactID, includeDepleted)
}

// SupplyReport días de suministro de un contacto para un péptido.
type SupplyReport struct {
	ContactID     string                 `json:"contact_id"`
	PeptideID     string                 `json:"peptide_id"`
	ActiveVials   int                    `json:"active_vials"`
	TotalMg       decimal.Decimal        `json:"total_mg"`
	DailyUsageMg  decimal.Decimal        `json:"daily_usage_mg"`
	DaysRemaining int                    `json:"days_remaining"`
	Status        inventory.SupplyStatus `json:"status"`
}

// Supply suma lo que queda en los viales activos y lo divide por el consumo diario del
// protocolo del primer vial activo con dosis configurada.
func (t *ClientInventoryTracker) Supply(ctx context.Context, orgID, contactID, peptideID string) (*SupplyReport, error) {
	if peptideID == "" {
		return nil, domain.Invalid("peptide_id", "requerido")
	}
	vials, err := t.vials.ListByContactPeptide(ctx, orgID, contactID, peptideID)
	if err != nil {
		return nil, err
	}
	rep := &SupplyReport{ContactID: contactID, PeptideID: peptideID, TotalMg: decimal.Zero, DailyUsageMg: decimal.Zero}
	for _, v := range vials {
		if v.Status != entity.VialActive {
			continue
		}
		rep.ActiveVials++
		rep.TotalMg = rep.TotalMg.Add(v.CurrentQuantityMg)
		if rep.DailyUsageMg.IsZero() && v.DoseAmountMg != nil {
			rep.DailyUsageMg = inventory.DailyUsage(*v.DoseAmountMg, v.DoseDays)
		}
	}
	rep.DaysRemaining = inventory.DaysRemaining(rep.TotalMg, rep.DailyUsageMg)
	rep.Status = inventory.ClassifySupply(rep.DaysRemaining)
	return rep, nil
}
