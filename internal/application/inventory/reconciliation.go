package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

// Finding hallazgo de integridad. Se reporta, nunca se corrige automáticamente.
type Finding struct {
	Kind     string `json:"kind"`
	EntityID string `json:"entity_id"`
	Detail   string `json:"detail"`
}

// Err convierte el hallazgo en IntegrityError.
func (f Finding) Err() error {
	return &domain.IntegrityError{Kind: f.Kind, EntityID: f.EntityID, Detail: f.Detail}
}

// PeptideValuation valorización del stock disponible de un péptido (costo promedio ponderado).
type PeptideValuation struct {
	PeptideID   string          `json:"peptide_id"`
	PeptideName string          `json:"peptide_name"`
	InStock     int             `json:"in_stock"`
	AverageCost decimal.Decimal `json:"average_cost"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

// AuditReport resultado de la conciliación.
type AuditReport struct {
	OrgID     string             `json:"org_id"`
	CheckedAt time.Time          `json:"checked_at"`
	Findings  []Finding          `json:"findings"`
	Valuation []PeptideValuation `json:"valuation"`
}

// Clean true si no hubo hallazgos.
func (r *AuditReport) Clean() bool { return len(r.Findings) == 0 }

// Reconciliation audita el ledger: lotes vs botellas, botellas fantasma, ítems obsoletos y
// viales huérfanos. Solo lectura.
type Reconciliation struct {
	lots      repository.LotRepository
	bottles   repository.BottleRepository
	movements repository.MovementRepository
	vials     repository.ClientInventoryRepository
	log       zerolog.Logger
}

// NewReconciliation construye el auditor.
func NewReconciliation(
	lots repository.LotRepository,
	bottles repository.BottleRepository,
	movements repository.MovementRepository,
	vials repository.ClientInventoryRepository,
	log zerolog.Logger,
) *Reconciliation {
	return &Reconciliation{lots: lots, bottles: bottles, movements: movements, vials: vials, log: log}
}

// Audit recorre la organización y devuelve el reporte.
func (a *Reconciliation) Audit(ctx context.Context, orgID string) (*AuditReport, error) {
	rep := &AuditReport{OrgID: orgID, CheckedAt: time.Now(), Findings: []Finding{}}

	if err := a.auditLots(ctx, orgID, rep); err != nil {
		return nil, err
	}
	if err := a.auditBottles(ctx, orgID, rep); err != nil {
		return nil, err
	}
	orphans, err := a.vials.ListOrphans(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for _, v := range orphans {
		rep.Findings = append(rep.Findings, Finding{
			Kind:     domain.IntegrityOrphanVial,
			EntityID: v.ID,
			Detail:   "el movimiento " + v.MovementID + " ya no existe",
		})
	}
	if rep.Valuation, err = a.valuation(ctx, orgID); err != nil {
		return nil, err
	}

	for _, f := range rep.Findings {
		a.log.Warn().Str("org_id", orgID).Str("kind", f.Kind).Str("entity_id", f.EntityID).Msg(f.Detail)
	}
	return rep, nil
}

func (a *Reconciliation) auditLots(ctx context.Context, orgID string, rep *AuditReport) error {
	lots, err := a.lots.ListAll(ctx, orgID)
	if err != nil {
		return err
	}
	counts, err := a.bottles.CountByLot(ctx, orgID)
	if err != nil {
		return err
	}
	for _, l := range lots {
		if n := counts[l.ID]; n != l.QuantityReceived {
			rep.Findings = append(rep.Findings, Finding{
				Kind:     domain.IntegrityLotBottleCount,
				EntityID: l.ID,
				Detail:   fmt.Sprintf("lote %s: recibidas %d, botellas %d", l.LotNumber, l.QuantityReceived, n),
			})
		}
	}
	return nil
}

func (a *Reconciliation) auditBottles(ctx context.Context, orgID string, rep *AuditReport) error {
	items, err := a.movements.ListActiveItems(ctx, orgID)
	if err != nil {
		return err
	}
	held := make(map[string]string, len(items))
	var referenced []string
	for _, it := range items {
		if it.BottleID == "" {
			rep.Findings = append(rep.Findings, Finding{
				Kind:     domain.IntegrityUnresolvedBottle,
				EntityID: it.ItemID,
				Detail:   "ítem sin botella en el movimiento " + it.MovementID,
			})
			continue
		}
		held[it.BottleID] = it.MovementID
		referenced = append(referenced, it.BottleID)
	}

	if len(referenced) > 0 {
		found, err := a.bottles.GetByIDs(ctx, orgID, referenced)
		if err != nil {
			return err
		}
		byID := make(map[string]*entity.BottleDetail, len(found))
		for _, b := range found {
			byID[b.ID] = b
		}
		for _, it := range items {
			if it.BottleID == "" {
				continue
			}
			b, ok := byID[it.BottleID]
			switch {
			case !ok:
				rep.Findings = append(rep.Findings, Finding{
					Kind:     domain.IntegrityUnresolvedBottle,
					EntityID: it.ItemID,
					Detail:   "botella " + it.BottleID + " inexistente en el movimiento " + it.MovementID,
				})
			case b.Status == entity.BottleInStock:
				rep.Findings = append(rep.Findings, Finding{
					Kind:     domain.IntegrityStaleItem,
					EntityID: it.ItemID,
					Detail:   "botella " + b.UID + " en stock con movimiento activo " + it.MovementID,
				})
			}
		}
	}

	out, err := a.bottles.ListByStatus(ctx, orgID, entity.RestorableStatuses...)
	if err != nil {
		return err
	}
	for _, b := range out {
		if _, ok := held[b.ID]; ok {
			continue
		}
		rep.Findings = append(rep.Findings, Finding{
			Kind:     domain.IntegrityGhostBottle,
			EntityID: b.ID,
			Detail:   fmt.Sprintf("botella %s en estado %s sin movimiento activo", b.UID, b.Status),
		})
	}
	return nil
}

func (a *Reconciliation) valuation(ctx context.Context, orgID string) ([]PeptideValuation, error) {
	stock, err := a.bottles.ListByStatus(ctx, orgID, entity.BottleInStock)
	if err != nil {
		return nil, err
	}
	byPeptide := make(map[string]*PeptideValuation)
	one := decimal.NewFromInt(1)
	for _, b := range stock {
		v, ok := byPeptide[b.PeptideID]
		if !ok {
			v = &PeptideValuation{PeptideID: b.PeptideID, PeptideName: b.PeptideName, AverageCost: decimal.Zero}
			byPeptide[b.PeptideID] = v
		}
		v.AverageCost = inventory.CostCalculator(decimal.NewFromInt(int64(v.InStock)), v.AverageCost, one, b.CostPerUnit)
		v.InStock++
	}
	out := make([]PeptideValuation, 0, len(byPeptide))
	for _, v := range byPeptide {
		v.TotalValue = v.AverageCost.Mul(decimal.NewFromInt(int64(v.InStock))).Round(2)
		v.AverageCost = v.AverageCost.Round(2)
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeptideName < out[j].PeptideName })
	return out, nil
}
