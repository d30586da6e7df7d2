package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación del puerto LotRepository sobre PostgreSQL.
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de persistencia para lotes.
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, org_id, peptide_id, lot_number, cost_per_unit, quantity_received,
	received_date, expiry_date, COALESCE(notes, ''), created_at, updated_at`

// Create persiste un lote nuevo. (org_id, lot_number) es único.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	query := `
		INSERT INTO lots (id, org_id, peptide_id, lot_number, cost_per_unit, quantity_received,
			received_date, expiry_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		lot.ID, lot.OrgID, lot.PeptideID, lot.LotNumber, lot.CostPerUnit, lot.QuantityReceived,
		lot.ReceivedDate, lot.ExpiryDate, nullable(lot.Notes), lot.CreatedAt, lot.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isForeignKeyViolation(err) || isInvalidText(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID; nil, nil si no existe en la organización.
func (r *LotRepo) GetByID(ctx context.Context, orgID, id string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE org_id = $1 AND id = $2`
	l, err := scanLot(r.q.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return l, nil
}

// Update corrige los datos administrativos del lote. quantity_received no se toca.
func (r *LotRepo) Update(ctx context.Context, lot *entity.Lot) error {
	query := `
		UPDATE lots SET lot_number = $3, cost_per_unit = $4, expiry_date = $5, notes = $6, updated_at = $7
		WHERE org_id = $1 AND id = $2`
	cmd, err := r.q.Exec(ctx, query,
		lot.OrgID, lot.ID, lot.LotNumber, lot.CostPerUnit, lot.ExpiryDate, nullable(lot.Notes), lot.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update lot: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByOrg lista lotes, más recientes primero.
func (r *LotRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE org_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, orgID, limit, offset)
}

// ListAll todos los lotes de la organización en orden de recepción.
func (r *LotRepo) ListAll(ctx context.Context, orgID string) ([]*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE org_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, orgID)
}

// Delete borra el lote. Las botellas se borran antes con BottleRepository.DeleteInStockByLot.
func (r *LotRepo) Delete(ctx context.Context, orgID, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM lots WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Conflict("el lote todavía tiene botellas")
		}
		return fmt.Errorf("delete lot: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LotRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	var list []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func scanLot(row pgx.Row) (*entity.Lot, error) {
	var l entity.Lot
	err := row.Scan(
		&l.ID, &l.OrgID, &l.PeptideID, &l.LotNumber, &l.CostPerUnit, &l.QuantityReceived,
		&l.ReceivedDate, &l.ExpiryDate, &l.Notes, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
