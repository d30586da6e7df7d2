package inventory

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// SkippedBottle botella de un movimiento que no se devolvió a stock.
type SkippedBottle struct {
	BottleID string              `json:"bottle_id"`
	Status   entity.BottleStatus `json:"status"`
	Reason   string              `json:"reason"`
}

// ReversalResult resumen de un restock o revert.
type ReversalResult struct {
	MovementID        string          `json:"movement_id"`
	RestoredBottleIDs []string        `json:"restored_bottle_ids"`
	AlreadyInStock    []string        `json:"already_in_stock,omitempty"`
	Skipped           []SkippedBottle `json:"skipped,omitempty"`
	RemovedVials      int             `json:"removed_vials"`
	Deleted           bool            `json:"deleted"`
}

// RestockEngine revierte movimientos. Restock marca el movimiento como returned y conserva el
// historial; RevertMovement (solo admin) lo borra. Ambos devuelven las botellas a stock y
// eliminan los viales del cliente en una sola transacción.
type RestockEngine struct {
	txRunner   TxRunner
	dispatcher SideEffectDispatcher
	pub        InvalidationPublisher
	log        zerolog.Logger
}

// NewRestockEngine construye el caso de uso.
func NewRestockEngine(txRunner TxRunner, dispatcher SideEffectDispatcher, pub InvalidationPublisher, log zerolog.Logger) *RestockEngine {
	return &RestockEngine{txRunner: txRunner, dispatcher: dispatcher, pub: pub, log: log}
}

// Restock devuelve las botellas de un movimiento activo y lo marca returned.
// Una segunda llamada sobre el mismo movimiento devuelve ConflictError sin tocar nada.
func (e *RestockEngine) Restock(ctx context.Context, orgID, movementID string) (*ReversalResult, error) {
	var (
		res *ReversalResult
		mov *entity.Movement
	)
	err := e.txRunner.Run(ctx, func(ctx context.Context, r Repos) error {
		m, err := r.Movements.GetForUpdate(ctx, orgID, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if m.Status == entity.MovementReturned {
			return domain.Conflict("el movimiento ya fue devuelto")
		}
		if m.Type == entity.MovementAdjustment {
			return domain.Conflict("una baja no se devuelve a stock; usar revert")
		}
		res, err = reverse(ctx, r, m)
		if err != nil {
			return err
		}
		ok, err := r.Movements.UpdateStatus(ctx, orgID, movementID, entity.MovementActive, entity.MovementReturned)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflict("el movimiento cambió de estado durante el restock")
		}
		mov = m
		return nil
	})
	if err != nil {
		e.logFailure(err, orgID, movementID, "restock")
		return nil, err
	}
	e.after(ctx, mov, res, "restock")
	return res, nil
}

// RevertMovement borra el movimiento (activo o devuelto) y deshace sus efectos.
// Si ya estaba devuelto solo queda borrar la fila: las botellas ya volvieron.
func (e *RestockEngine) RevertMovement(ctx context.Context, orgID, movementID string) (*ReversalResult, error) {
	var (
		res *ReversalResult
		mov *entity.Movement
	)
	err := e.txRunner.Run(ctx, func(ctx context.Context, r Repos) error {
		m, err := r.Movements.GetForUpdate(ctx, orgID, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if m.Status == entity.MovementActive {
			res, err = reverse(ctx, r, m)
			if err != nil {
				return err
			}
		} else {
			res = &ReversalResult{MovementID: m.ID}
		}
		if err := r.Movements.Delete(ctx, orgID, movementID); err != nil {
			return err
		}
		res.Deleted = true
		mov = m
		return nil
	})
	if err != nil {
		e.logFailure(err, orgID, movementID, "revert")
		return nil, err
	}
	e.after(ctx, mov, res, "revert")
	return res, nil
}

// reverse valida todas las botellas antes de escribir: una botella irresoluble aborta la
// transacción con IntegrityError. Las botellas retenidas por otro movimiento activo no se tocan.
func reverse(ctx context.Context, r Repos, m *entity.Movement) (*ReversalResult, error) {
	res := &ReversalResult{MovementID: m.ID, RestoredBottleIDs: []string{}}

	ids := make([]string, 0, len(m.Items))
	for _, it := range m.Items {
		if it.BottleID == "" {
			return nil, &domain.IntegrityError{
				Kind:     domain.IntegrityUnresolvedBottle,
				EntityID: it.ID,
				Detail:   "ítem sin botella en el movimiento " + m.ID,
			}
		}
		ids = append(ids, it.BottleID)
	}
	found, err := r.Bottles.GetByIDs(ctx, m.OrgID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entity.BottleDetail, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, &domain.IntegrityError{
				Kind:     domain.IntegrityUnresolvedBottle,
				EntityID: id,
				Detail:   "botella inexistente en el movimiento " + m.ID,
			}
		}
	}

	removed, err := r.Vials.DeleteByMovement(ctx, m.OrgID, m.ID)
	if err != nil {
		return nil, err
	}
	res.RemovedVials = removed

	holders, err := r.Movements.ActiveHolders(ctx, m.OrgID, ids, m.ID)
	if err != nil {
		return nil, err
	}
	target := m.TargetBottleStatus()
	var restorable []string
	for _, id := range ids {
		b := byID[id]
		switch {
		case holders[id] != "":
			res.Skipped = append(res.Skipped, SkippedBottle{BottleID: id, Status: b.Status, Reason: "retenida por el movimiento " + holders[id]})
		case b.Status == entity.BottleInStock:
			res.AlreadyInStock = append(res.AlreadyInStock, id)
		case b.Status != target:
			res.Skipped = append(res.Skipped, SkippedBottle{BottleID: id, Status: b.Status, Reason: "estado distinto al aplicado por el movimiento"})
		default:
			restorable = append(restorable, id)
		}
	}
	if len(restorable) == 0 {
		return res, nil
	}
	changed, err := r.Bottles.TransitionStatus(ctx, m.OrgID, restorable, []entity.BottleStatus{target}, entity.BottleInStock)
	if err != nil {
		return nil, err
	}
	if len(changed) != len(restorable) {
		return nil, domain.Conflict("botellas modificadas durante la reversión", missing(restorable, changed)...)
	}
	res.RestoredBottleIDs = changed
	return res, nil
}

func (e *RestockEngine) after(ctx context.Context, m *entity.Movement, res *ReversalResult, op string) {
	e.log.Info().
		Str("org_id", m.OrgID).
		Str("movement_id", m.ID).
		Str("op", op).
		Int("restored", len(res.RestoredBottleIDs)).
		Int("skipped", len(res.Skipped)).
		Int("removed_vials", res.RemovedVials).
		Msg("movimiento revertido")
	for _, s := range res.Skipped {
		e.log.Warn().Str("movement_id", m.ID).Str("bottle_id", s.BottleID).Str("status", string(s.Status)).Msg(s.Reason)
	}

	signals := []Invalidation{{OrgID: m.OrgID, Entity: EntityMovement, IDs: []string{m.ID}}}
	if len(res.RestoredBottleIDs) > 0 {
		signals = append(signals, Invalidation{OrgID: m.OrgID, Entity: EntityBottle, IDs: res.RestoredBottleIDs})
	}
	if res.RemovedVials > 0 {
		signals = append(signals, Invalidation{OrgID: m.OrgID, Entity: EntityClientInventory})
	}
	publish(ctx, e.pub, e.log, signals...)

	if m.Type == entity.MovementSale && m.Status == entity.MovementActive {
		dispatch(ctx, e.dispatcher, e.log, SideEffectJob{
			Kind:       JobCommissionReversal,
			OrgID:      m.OrgID,
			MovementID: m.ID,
			ContactID:  m.ContactID,
			Total:      m.Total(),
		})
	}
}

func (e *RestockEngine) logFailure(err error, orgID, movementID, op string) {
	ev := e.log.Debug()
	var ie *domain.IntegrityError
	if errors.As(err, &ie) {
		ev = e.log.Warn().Str("kind", ie.Kind).Str("entity_id", ie.EntityID)
	}
	ev.Err(err).Str("org_id", orgID).Str("movement_id", movementID).Str("op", op).Msg("reversión rechazada")
}
