package repository

import (
	"context"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// LotRepository define el puerto de persistencia para lotes.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	GetByID(ctx context.Context, orgID, id string) (*entity.Lot, error)
	// Update corrección administrativa: número de lote, costo, notas, vencimiento. Nunca la cantidad.
	Update(ctx context.Context, lot *entity.Lot) error
	ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]*entity.Lot, error)
	ListAll(ctx context.Context, orgID string) ([]*entity.Lot, error)
	Delete(ctx context.Context, orgID, id string) error
}
