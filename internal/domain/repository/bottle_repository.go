package repository

import (
	"context"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// FIFOSelector criterio de selección de botellas disponibles.
// Si LotIDs no está vacío se limita a esos lotes; si no, a todos los lotes del péptido.
type FIFOSelector struct {
	PeptideID string
	LotIDs    []string
}

// BottleRepository define el puerto de persistencia para botellas.
type BottleRepository interface {
	CreateBatch(ctx context.Context, bottles []*entity.Bottle) error
	// GetByIDs devuelve solo las botellas que existen en la organización.
	GetByIDs(ctx context.Context, orgID string, ids []string) ([]*entity.BottleDetail, error)
	// ListAvailable botellas in_stock del péptido en orden FIFO (lots.created_at ASC, uid ASC).
	ListAvailable(ctx context.Context, orgID, peptideID string) ([]*entity.BottleDetail, error)
	// SelectFIFO igual que ListAvailable pero bloqueando las filas elegidas (usar dentro de tx).
	SelectFIFO(ctx context.Context, orgID string, sel FIFOSelector, limit int) ([]*entity.BottleDetail, error)
	// TransitionStatus actualización condicional: solo cambia las botellas cuyo estado actual
	// está en from. Devuelve los IDs efectivamente cambiados.
	TransitionStatus(ctx context.Context, orgID string, ids []string, from []entity.BottleStatus, to entity.BottleStatus) ([]string, error)
	CountByStatus(ctx context.Context, orgID string) (map[entity.BottleStatus]int, error)
	CountByLot(ctx context.Context, orgID string) (map[string]int, error)
	ListByStatus(ctx context.Context, orgID string, statuses ...entity.BottleStatus) ([]*entity.BottleDetail, error)
	ListByLot(ctx context.Context, orgID, lotID string) ([]*entity.Bottle, error)
	// DeleteInStockByLot borra solo las botellas in_stock del lote y devuelve cuántas borró.
	DeleteInStockByLot(ctx context.Context, orgID, lotID string) (int, error)
}
