package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

var _ repository.BottleRepository = (*BottleRepo)(nil)

// BottleRepo implementación del puerto BottleRepository sobre PostgreSQL.
type BottleRepo struct {
	q Querier
}

// NewBottleRepository construye el adaptador de persistencia para botellas.
func NewBottleRepository(q Querier) *BottleRepo {
	return &BottleRepo{q: q}
}

const bottleDetailSelect = `
	SELECT b.id, b.org_id, b.lot_id, b.uid, b.status, b.created_at, b.updated_at,
		l.lot_number, l.created_at, l.cost_per_unit, l.peptide_id, COALESCE(p.name, '')
	FROM bottles b
	JOIN lots l ON l.id = b.lot_id
	LEFT JOIN peptides p ON p.id = l.peptide_id`

// CreateBatch inserta las botellas de un lote con COPY.
func (r *BottleRepo) CreateBatch(ctx context.Context, bottles []*entity.Bottle) error {
	if len(bottles) == 0 {
		return nil
	}
	_, err := r.q.CopyFrom(ctx,
		pgx.Identifier{"bottles"},
		[]string{"id", "org_id", "lot_id", "uid", "status", "created_at", "updated_at"},
		pgx.CopyFromSlice(len(bottles), func(i int) ([]any, error) {
			b := bottles[i]
			return []any{b.ID, b.OrgID, b.LotID, b.UID, string(b.Status), b.CreatedAt, b.UpdatedAt}, nil
		}),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("copy bottles: %w", err)
	}
	return nil
}

// GetByIDs devuelve las botellas existentes entre ids (IDs mal formados simplemente no aparecen).
func (r *BottleRepo) GetByIDs(ctx context.Context, orgID string, ids []string) ([]*entity.BottleDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := bottleDetailSelect + ` WHERE b.org_id = $1 AND b.id::text = ANY($2::text[]) ORDER BY b.uid`
	return r.listDetails(ctx, query, orgID, ids)
}

// ListAvailable botellas in_stock del péptido en orden FIFO.
func (r *BottleRepo) ListAvailable(ctx context.Context, orgID, peptideID string) ([]*entity.BottleDetail, error) {
	query := bottleDetailSelect + `
		WHERE b.org_id = $1 AND l.peptide_id::text = $2 AND b.status = 'in_stock'
		ORDER BY l.created_at ASC, b.uid ASC`
	return r.listDetails(ctx, query, orgID, peptideID)
}

// SelectFIFO elige y bloquea hasta limit botellas in_stock (limit 0 = todas).
// La doble venta la impide el UPDATE condicional de TransitionStatus, no este bloqueo.
func (r *BottleRepo) SelectFIFO(ctx context.Context, orgID string, sel repository.FIFOSelector, limit int) ([]*entity.BottleDetail, error) {
	var b strings.Builder
	b.WriteString(bottleDetailSelect)
	b.WriteString(` WHERE b.org_id = $1 AND b.status = 'in_stock' AND `)
	var scope any
	if len(sel.LotIDs) > 0 {
		b.WriteString(`b.lot_id::text = ANY($2::text[])`)
		scope = sel.LotIDs
	} else {
		b.WriteString(`l.peptide_id::text = $2`)
		scope = sel.PeptideID
	}
	b.WriteString(` ORDER BY l.created_at ASC, b.uid ASC LIMIT NULLIF($3::int, 0) FOR UPDATE OF b SKIP LOCKED`)
	return r.listDetails(ctx, b.String(), orgID, scope, limit)
}

// TransitionStatus UPDATE condicional; devuelve los IDs que realmente cambiaron.
func (r *BottleRepo) TransitionStatus(ctx context.Context, orgID string, ids []string, from []entity.BottleStatus, to entity.BottleStatus) ([]string, error) {
	if len(ids) == 0 || len(from) == 0 {
		return nil, nil
	}
	query := `
		UPDATE bottles SET status = $4, updated_at = NOW()
		WHERE org_id = $1 AND id::text = ANY($2::text[]) AND status = ANY($3::text[])
		RETURNING id::text`
	rows, err := r.q.Query(ctx, query, orgID, ids, statusStrings(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("transition bottles: %w", err)
	}
	changed, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("transition bottles: %w", err)
	}
	return changed, nil
}

// CountByStatus conteo de botellas por estado.
func (r *BottleRepo) CountByStatus(ctx context.Context, orgID string) (map[entity.BottleStatus]int, error) {
	rows, err := r.q.Query(ctx, `SELECT status, COUNT(*) FROM bottles WHERE org_id = $1 GROUP BY status`, orgID)
	if err != nil {
		return nil, fmt.Errorf("count bottles by status: %w", err)
	}
	defer rows.Close()

	out := make(map[entity.BottleStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan bottle count: %w", err)
		}
		out[entity.BottleStatus(status)] = n
	}
	return out, rows.Err()
}

// CountByLot conteo de botellas por lote (todas, sin importar estado).
func (r *BottleRepo) CountByLot(ctx context.Context, orgID string) (map[string]int, error) {
	rows, err := r.q.Query(ctx, `SELECT lot_id, COUNT(*) FROM bottles WHERE org_id = $1 GROUP BY lot_id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("count bottles by lot: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var lotID string
		var n int
		if err := rows.Scan(&lotID, &n); err != nil {
			return nil, fmt.Errorf("scan lot count: %w", err)
		}
		out[lotID] = n
	}
	return out, rows.Err()
}

// ListByStatus botellas en cualquiera de los estados dados.
func (r *BottleRepo) ListByStatus(ctx context.Context, orgID string, statuses ...entity.BottleStatus) ([]*entity.BottleDetail, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := bottleDetailSelect + ` WHERE b.org_id = $1 AND b.status = ANY($2::text[]) ORDER BY b.uid`
	return r.listDetails(ctx, query, orgID, statusStrings(statuses))
}

// ListByLot botellas de un lote ordenadas por UID.
func (r *BottleRepo) ListByLot(ctx context.Context, orgID, lotID string) ([]*entity.Bottle, error) {
	query := `
		SELECT id, org_id, lot_id, uid, status, created_at, updated_at
		FROM bottles WHERE org_id = $1 AND lot_id::text = $2 ORDER BY uid`
	rows, err := r.q.Query(ctx, query, orgID, lotID)
	if err != nil {
		return nil, fmt.Errorf("list bottles by lot: %w", err)
	}
	defer rows.Close()

	var list []*entity.Bottle
	for rows.Next() {
		var b entity.Bottle
		var status string
		if err := rows.Scan(&b.ID, &b.OrgID, &b.LotID, &b.UID, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bottle: %w", err)
		}
		if b.Status, err = entity.ParseBottleStatus(status); err != nil {
			return nil, err
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}

// DeleteInStockByLot borra las botellas in_stock del lote. Una botella vendida entre la lectura
// y el borrado queda fuera del DELETE y el llamador lo detecta por el conteo.
func (r *BottleRepo) DeleteInStockByLot(ctx context.Context, orgID, lotID string) (int, error) {
	cmd, err := r.q.Exec(ctx,
		`DELETE FROM bottles WHERE org_id = $1 AND lot_id::text = $2 AND status = 'in_stock'`,
		orgID, lotID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete bottles by lot: %w", err)
	}
	return int(cmd.RowsAffected()), nil
}

func (r *BottleRepo) listDetails(ctx context.Context, query string, args ...any) ([]*entity.BottleDetail, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bottles: %w", err)
	}
	defer rows.Close()

	var list []*entity.BottleDetail
	for rows.Next() {
		var d entity.BottleDetail
		var status string
		err := rows.Scan(
			&d.ID, &d.OrgID, &d.LotID, &d.UID, &status, &d.CreatedAt, &d.UpdatedAt,
			&d.LotNumber, &d.LotCreatedAt, &d.CostPerUnit, &d.PeptideID, &d.PeptideName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bottle: %w", err)
		}
		if d.Status, err = entity.ParseBottleStatus(status); err != nil {
			return nil, err
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}
