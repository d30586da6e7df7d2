package inventory

import (
	"context"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Lots      repository.LotRepository
	Bottles   repository.BottleRepository
	Movements repository.MovementRepository
	Vials     repository.ClientInventoryRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el ledger: si fn devuelve error se hace Rollback y nada persiste.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// BottleStatsCache cache de conteos por estado (por organización).
type BottleStatsCache interface {
	Get(ctx context.Context, orgID string) (map[entity.BottleStatus]int, bool)
	Set(ctx context.Context, orgID string, stats map[entity.BottleStatus]int)
}

// SideEffectDispatcher entrega trabajos de comisión fuera de la transacción principal.
// Un error aquí nunca invalida el movimiento ya confirmado.
type SideEffectDispatcher interface {
	Dispatch(ctx context.Context, job SideEffectJob) error
}

// CommissionEngine motor de comisiones multinivel (procedimiento en la BD, colaborador externo).
type CommissionEngine interface {
	ProcessSale(ctx context.Context, orgID, movementID string) error
	ReverseSale(ctx context.Context, orgID, movementID string) error
}

// Notifier notificación best-effort (SMS) a los partners.
type Notifier interface {
	NotifyCommission(ctx context.Context, orgID, movementID string) error
}
