package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

var _ repository.ClientInventoryRepository = (*ClientInventoryRepo)(nil)

// ClientInventoryRepo implementación de la nevera digital sobre PostgreSQL.
type ClientInventoryRepo struct {
	q Querier
}

// NewClientInventoryRepository construye el adaptador de persistencia para viales de clientes.
func NewClientInventoryRepository(q Querier) *ClientInventoryRepo {
	return &ClientInventoryRepo{q: q}
}

const vialColumns = `ci.id, ci.org_id, ci.contact_id, ci.peptide_id, COALESCE(ci.movement_id::text, ''),
	COALESCE(ci.batch_number, ''), ci.vial_size_mg, ci.water_added_ml, ci.concentration_mg_ml,
	ci.initial_quantity_mg, ci.current_quantity_mg, ci.status, ci.dose_amount_mg, ci.dose_days,
	ci.reconstituted_at, ci.created_at, ci.updated_at`

// CreateBatch inserta los viales generados por un movimiento (o uno manual).
func (r *ClientInventoryRepo) CreateBatch(ctx context.Context, vials []*entity.ClientInventory) error {
	if len(vials) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, v := range vials {
		batch.Queue(`
			INSERT INTO client_inventory (id, org_id, contact_id, peptide_id, movement_id, batch_number,
				vial_size_mg, water_added_ml, concentration_mg_ml, initial_quantity_mg, current_quantity_mg,
				status, dose_amount_mg, dose_days, reconstituted_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			v.ID, v.OrgID, v.ContactID, v.PeptideID, nullable(v.MovementID), nullable(v.BatchNumber),
			v.VialSizeMg, v.WaterAddedMl, v.ConcentrationMgMl, v.InitialQuantityMg, v.CurrentQuantityMg,
			string(v.Status), v.DoseAmountMg, weekdayStrings(v.DoseDays), v.ReconstitutedAt, v.CreatedAt, v.UpdatedAt,
		)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range vials {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert client inventory: %w", err)
		}
	}
	return nil
}

// GetByID vial por ID o nil, nil.
func (r *ClientInventoryRepo) GetByID(ctx context.Context, orgID, id string) (*entity.ClientInventory, error) {
	query := `SELECT ` + vialColumns + ` FROM client_inventory ci WHERE ci.org_id = $1 AND ci.id::text = $2`
	v, err := scanVial(r.q.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client inventory: %w", err)
	}
	return v, nil
}

// ListByContact viales del contacto; sin includeDepleted solo los activos.
func (r *ClientInventoryRepo) ListByContact(ctx context.Context, orgID, contactID string, includeDepleted bool) ([]*entity.ClientInventory, error) {
	query := `SELECT ` + vialColumns + ` FROM client_inventory ci
		WHERE ci.org_id = $1 AND ci.contact_id::text = $2 AND ($3 OR ci.status = 'active')
		ORDER BY ci.created_at`
	return r.list(ctx, query, orgID, contactID, includeDepleted)
}

// ListByContactPeptide viales del contacto para un producto, en cualquier estado.
func (r *ClientInventoryRepo) ListByContactPeptide(ctx context.Context, orgID, contactID, peptideID string) ([]*entity.ClientInventory, error) {
	query := `SELECT ` + vialColumns + ` FROM client_inventory ci
		WHERE ci.org_id = $1 AND ci.contact_id::text = $2 AND ci.peptide_id::text = $3
		ORDER BY ci.created_at`
	return r.list(ctx, query, orgID, contactID, peptideID)
}

// DeleteByMovement borra los viales generados por un movimiento.
func (r *ClientInventoryRepo) DeleteByMovement(ctx context.Context, orgID, movementID string) (int, error) {
	cmd, err := r.q.Exec(ctx,
		`DELETE FROM client_inventory WHERE org_id = $1 AND movement_id::text = $2`,
		orgID, movementID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete client inventory: %w", err)
	}
	return int(cmd.RowsAffected()), nil
}

// UpdateReconstitution fija agua y concentración una sola vez.
func (r *ClientInventoryRepo) UpdateReconstitution(ctx context.Context, orgID, id string, vialSizeMg, waterMl, concentration decimal.Decimal, at time.Time) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE client_inventory
		SET vial_size_mg = $3, water_added_ml = $4, concentration_mg_ml = $5, reconstituted_at = $6, updated_at = $6
		WHERE org_id = $1 AND id::text = $2 AND water_added_ml IS NULL`,
		orgID, id, vialSizeMg, waterMl, concentration, at,
	)
	if err != nil {
		return false, fmt.Errorf("update reconstitution: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// UpdateSchedule fija dosis y días.
func (r *ClientInventoryRepo) UpdateSchedule(ctx context.Context, orgID, id string, doseMg decimal.Decimal, days []entity.Weekday) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE client_inventory SET dose_amount_mg = $3, dose_days = $4, updated_at = NOW()
		WHERE org_id = $1 AND id::text = $2`,
		orgID, id, doseMg, weekdayStrings(days),
	)
	if err != nil {
		return false, fmt.Errorf("update schedule: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// CompareAndSetQuantity escribe next solo si la cantidad sigue siendo expected.
func (r *ClientInventoryRepo) CompareAndSetQuantity(ctx context.Context, orgID, id string, expected, next decimal.Decimal, status entity.VialStatus) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE client_inventory SET current_quantity_mg = $4, status = $5, updated_at = NOW()
		WHERE org_id = $1 AND id::text = $2 AND current_quantity_mg = $3`,
		orgID, id, expected, next, string(status),
	)
	if err != nil {
		return false, fmt.Errorf("update quantity: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// ForceEmpty marca el vial como agotado.
func (r *ClientInventoryRepo) ForceEmpty(ctx context.Context, orgID, id string) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE client_inventory SET current_quantity_mg = 0, status = 'depleted', updated_at = NOW()
		WHERE org_id = $1 AND id::text = $2`,
		orgID, id,
	)
	if err != nil {
		return false, fmt.Errorf("force empty: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// ListOrphans viales con movement_id que ya no existe en movements.
func (r *ClientInventoryRepo) ListOrphans(ctx context.Context, orgID string) ([]*entity.ClientInventory, error) {
	query := `SELECT ` + vialColumns + ` FROM client_inventory ci
		WHERE ci.org_id = $1 AND ci.movement_id IS NOT NULL
			AND NOT EXISTS (SELECT 1 FROM movements m WHERE m.id = ci.movement_id)
		ORDER BY ci.created_at`
	return r.list(ctx, query, orgID)
}

func (r *ClientInventoryRepo) list(ctx context.Context, query string, args ...any) ([]*entity.ClientInventory, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list client inventory: %w", err)
	}
	defer rows.Close()

	var list []*entity.ClientInventory
	for rows.Next() {
		v, err := scanVial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client inventory: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

func scanVial(row pgx.Row) (*entity.ClientInventory, error) {
	var v entity.ClientInventory
	var status string
	var days []string
	err := row.Scan(
		&v.ID, &v.OrgID, &v.ContactID, &v.PeptideID, &v.MovementID,
		&v.BatchNumber, &v.VialSizeMg, &v.WaterAddedMl, &v.ConcentrationMgMl,
		&v.InitialQuantityMg, &v.CurrentQuantityMg, &status, &v.DoseAmountMg, &days,
		&v.ReconstitutedAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if v.Status, err = entity.ParseVialStatus(status); err != nil {
		return nil, err
	}
	for _, d := range days {
		v.DoseDays = append(v.DoseDays, entity.Weekday(d))
	}
	return &v, nil
}
