package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// ClientInventoryRepository define el puerto de persistencia de la nevera digital.
type ClientInventoryRepository interface {
	CreateBatch(ctx context.Context, vials []*entity.ClientInventory) error
	GetByID(ctx context.Context, orgID, id string) (*entity.ClientInventory, error)
	ListByContact(ctx context.Context, orgID, contactID string, includeDepleted bool) ([]*entity.ClientInventory, error)
	ListByContactPeptide(ctx context.Context, orgID, contactID, peptideID string) ([]*entity.ClientInventory, error)
	DeleteByMovement(ctx context.Context, orgID, movementID string) (int, error)
	UpdateReconstitution(ctx context.Context, orgID, id string, vialSizeMg, waterMl, concentration decimal.Decimal, at time.Time) (bool, error)
	UpdateSchedule(ctx context.Context, orgID, id string, doseMg decimal.Decimal, days []entity.Weekday) (bool, error)
	// CompareAndSetQuantity escribe next solo si current_quantity_mg sigue siendo expected.
	CompareAndSetQuantity(ctx context.Context, orgID, id string, expected, next decimal.Decimal, status entity.VialStatus) (bool, error)
	ForceEmpty(ctx context.Context, orgID, id string) (bool, error)
	// ListOrphans viales cuyo movement_id ya no existe.
	ListOrphans(ctx context.Context, orgID string) ([]*entity.ClientInventory, error)
}
