package inventory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

// BottlePool consulta y reserva botellas. Toda reserva es condicional (solo in_stock) para
// que dos ventas concurrentes nunca tomen la misma botella.
type BottlePool struct {
	txRunner TxRunner
	bottles  repository.BottleRepository
	cache    BottleStatsCache
	pub      InvalidationPublisher
	log      zerolog.Logger
}

// NewBottlePool cache puede ser nil.
func NewBottlePool(
	txRunner TxRunner,
	bottles repository.BottleRepository,
	cache BottleStatsCache,
	pub InvalidationPublisher,
	log zerolog.Logger,
) *BottlePool {
	return &BottlePool{txRunner: txRunner, bottles: bottles, cache: cache, pub: pub, log: log}
}

// ReserveRequest reserva por IDs explícitos o por FIFO (PeptideID/LotIDs + Count).
type ReserveRequest struct {
	BottleIDs []string
	PeptideID string
	LotIDs    []string
	Count     int
}

// ListAvailable botellas in_stock del péptido en orden FIFO.
func (p *BottlePool) ListAvailable(ctx context.Context, orgID, peptideID string) ([]*entity.BottleDetail, error) {
	if peptideID == "" {
		return nil, domain.Invalid("peptide_id", "requerido")
	}
	return p.bottles.ListAvailable(ctx, orgID, peptideID)
}

// ReserveInTx mueve botellas de in_stock a target dentro de la transacción del caller.
// Con IDs explícitos: IDs inexistentes → ErrNotFound, botellas ya tomadas → ConflictError.
// Con FIFO: menos botellas que Count → ConflictError de stock insuficiente.
func (p *BottlePool) ReserveInTx(ctx context.Context, r Repos, orgID string, req ReserveRequest, target entity.BottleStatus) ([]*entity.BottleDetail, error) {
	if target == entity.BottleInStock || target == "" {
		return nil, domain.Invalid("status", "estado destino inválido")
	}
	if len(req.BottleIDs) > 0 {
		return reserveExplicit(ctx, r, orgID, req.BottleIDs, target)
	}
	return reserveFIFO(ctx, r, orgID, req, target)
}

func reserveExplicit(ctx context.Context, r Repos, orgID string, ids []string, target entity.BottleStatus) ([]*entity.BottleDetail, error) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, domain.Invalid("bottle_id", "requerido")
		}
		if _, dup := seen[id]; dup {
			return nil, domain.Invalid("bottle_id", "botella repetida: "+id)
		}
		seen[id] = struct{}{}
	}

	found, err := r.Bottles.GetByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, domain.ErrNotFound
	}

	changed, err := r.Bottles.TransitionStatus(ctx, orgID, ids, []entity.BottleStatus{entity.BottleInStock}, target)
	if err != nil {
		return nil, err
	}
	if len(changed) != len(ids) {
		return nil, domain.Conflict("botellas no disponibles", missing(ids, changed)...)
	}

	byID := make(map[string]*entity.BottleDetail, len(found))
	for _, b := range found {
		b.Status = target
		byID[b.ID] = b
	}
	out := make([]*entity.BottleDetail, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, nil
}

func reserveFIFO(ctx context.Context, r Repos, orgID string, req ReserveRequest, target entity.BottleStatus) ([]*entity.BottleDetail, error) {
	if req.Count <= 0 {
		return nil, domain.Invalid("count", "debe ser mayor que 0")
	}
	if req.PeptideID == "" && len(req.LotIDs) == 0 {
		return nil, domain.Invalid("peptide_id", "requerido")
	}
	picked, err := r.Bottles.SelectFIFO(ctx, orgID, repository.FIFOSelector{PeptideID: req.PeptideID, LotIDs: req.LotIDs}, req.Count)
	if err != nil {
		return nil, err
	}
	if len(picked) < req.Count {
		return nil, domain.InsufficientStock(req.Count, len(picked))
	}
	ids := make([]string, len(picked))
	for i, b := range picked {
		ids[i] = b.ID
	}
	changed, err := r.Bottles.TransitionStatus(ctx, orgID, ids, []entity.BottleStatus{entity.BottleInStock}, target)
	if err != nil {
		return nil, err
	}
	if len(changed) != len(ids) {
		return nil, domain.Conflict("botellas tomadas por otra operación", missing(ids, changed)...)
	}
	for _, b := range picked {
		b.Status = target
	}
	return picked, nil
}

// RestoreBottles devuelve a in_stock botellas vendidas, regaladas o de uso interno.
// Idempotente: las que ya están in_stock se ignoran. Las bajas (damaged, lost, expired) nunca
// se restauran. Una botella retenida por un movimiento activo exige restock de ese movimiento.
func (p *BottlePool) RestoreBottles(ctx context.Context, orgID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, domain.Invalid("bottle_ids", "requerido")
	}
	var restored []string
	err := p.txRunner.Run(ctx, func(ctx context.Context, r Repos) error {
		found, err := r.Bottles.GetByIDs(ctx, orgID, ids)
		if err != nil {
			return err
		}
		if len(found) != len(dedupe(ids)) {
			return domain.ErrNotFound
		}
		holders, err := r.Movements.ActiveHolders(ctx, orgID, ids, "")
		if err != nil {
			return err
		}
		if len(holders) > 0 {
			held := make([]string, 0, len(holders))
			for bottleID := range holders {
				held = append(held, bottleID)
			}
			return domain.Conflict("botellas retenidas por un movimiento activo", held...)
		}
		restored, err = r.Bottles.TransitionStatus(ctx, orgID, ids, entity.RestorableStatuses, entity.BottleInStock)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(restored) > 0 {
		publish(ctx, p.pub, p.log, Invalidation{OrgID: orgID, Entity: EntityBottle, IDs: restored})
	}
	return restored, nil
}

// Stats conteo de botellas por estado; usa la cache si está disponible.
func (p *BottlePool) Stats(ctx context.Context, orgID string) (map[entity.BottleStatus]int, error) {
	if p.cache != nil {
		if stats, ok := p.cache.Get(ctx, orgID); ok {
			return stats, nil
		}
	}
	stats, err := p.bottles.CountByStatus(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for _, st := range entity.AllBottleStatuses {
		if _, ok := stats[st]; !ok {
			stats[st] = 0
		}
	}
	if p.cache != nil {
		p.cache.Set(ctx, orgID, stats)
	}
	return stats, nil
}

// missing IDs pedidos que no aparecen en got.
func missing(want, got []string) []string {
	ok := make(map[string]struct{}, len(got))
	for _, id := range got {
		ok[id] = struct{}{}
	}
	var out []string
	for _, id := range want {
		if _, found := ok[id]; !found {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
