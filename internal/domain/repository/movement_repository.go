package repository

import (
	"context"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// MovementFilter filtros de listado.
type MovementFilter struct {
	ContactID string
	Limit     int
	Offset    int
}

// ActiveItem ítem de un movimiento activo (para conciliación).
type ActiveItem struct {
	MovementID string
	ItemID     string
	BottleID   string
	Type       entity.MovementType
}

// MovementRepository define el puerto de persistencia para movimientos e ítems.
type MovementRepository interface {
	// Create persiste cabecera e ítems.
	Create(ctx context.Context, m *entity.Movement) error
	// GetByID devuelve el movimiento con sus ítems o nil, nil.
	GetByID(ctx context.Context, orgID, id string) (*entity.Movement, error)
	// GetForUpdate igual que GetByID bloqueando la cabecera (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, orgID, id string) (*entity.Movement, error)
	List(ctx context.Context, orgID string, f MovementFilter) ([]*entity.Movement, error)
	// UpdateStatus condicional: solo si el estado actual es from.
	UpdateStatus(ctx context.Context, orgID, id string, from, to entity.MovementStatus) (bool, error)
	UpdatePayment(ctx context.Context, m *entity.Movement) error
	// Delete borra el movimiento y sus ítems.
	Delete(ctx context.Context, orgID, id string) error
	// ActiveHolders para cada botella dada, el movimiento activo que la contiene (excluyendo excludeID).
	ActiveHolders(ctx context.Context, orgID string, bottleIDs []string, excludeID string) (map[string]string, error)
	ListActiveItems(ctx context.Context, orgID string) ([]ActiveItem, error)
}
