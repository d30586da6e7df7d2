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

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación del puerto MovementRepository sobre PostgreSQL.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador de persistencia para movimientos.
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, org_id, type, contact_id, status, payment_status, amount_paid,
	movement_date, COALESCE(notes, ''), created_by, write_off_status, created_at, updated_at`

// Create inserta cabecera e ítems en un solo round-trip (pgx.Batch).
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO movements (id, org_id, type, contact_id, status, payment_status, amount_paid,
			movement_date, notes, created_by, write_off_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.OrgID, string(m.Type), nullable(m.ContactID), string(m.Status), string(m.PaymentStatus), m.AmountPaid,
		m.MovementDate, nullable(m.Notes), nullable(m.CreatedBy), nullable(string(m.WriteOffStatus)), m.CreatedAt, m.UpdatedAt,
	)
	for _, it := range m.Items {
		batch.Queue(`
			INSERT INTO movement_items (id, movement_id, bottle_id, price_at_sale, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			it.ID, m.ID, nullable(it.BottleID), it.PriceAtSale, it.CreatedAt,
		)
	}

	br := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("insert movement: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// GetByID devuelve el movimiento con sus ítems o nil, nil.
func (r *MovementRepo) GetByID(ctx context.Context, orgID, id string) (*entity.Movement, error) {
	return r.get(ctx, `SELECT `+movementColumns+` FROM movements WHERE org_id = $1 AND id::text = $2`, orgID, id)
}

// GetForUpdate bloquea la cabecera hasta el fin de la transacción.
func (r *MovementRepo) GetForUpdate(ctx context.Context, orgID, id string) (*entity.Movement, error) {
	return r.get(ctx, `SELECT `+movementColumns+` FROM movements WHERE org_id = $1 AND id::text = $2 FOR UPDATE`, orgID, id)
}

func (r *MovementRepo) get(ctx context.Context, query, orgID, id string) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	items, err := r.items(ctx, []string{m.ID})
	if err != nil {
		return nil, err
	}
	m.Items = items[m.ID]
	return m, nil
}

// List movimientos más recientes primero, con ítems.
func (r *MovementRepo) List(ctx context.Context, orgID string, f repository.MovementFilter) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements
		WHERE org_id = $1 AND ($2 = '' OR contact_id::text = $2)
		ORDER BY movement_date DESC, created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, orgID, f.ContactID, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var list []*entity.Movement
	var ids []string
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		m.Items = items[m.ID]
	}
	return list, nil
}

// UpdateStatus condicional sobre el estado actual.
func (r *MovementRepo) UpdateStatus(ctx context.Context, orgID, id string, from, to entity.MovementStatus) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE movements SET status = $4, updated_at = NOW()
		WHERE org_id = $1 AND id::text = $2 AND status = $3`,
		orgID, id, string(from), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("update movement status: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// UpdatePayment persiste monto y estado de pago.
func (r *MovementRepo) UpdatePayment(ctx context.Context, m *entity.Movement) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE movements SET amount_paid = $3, payment_status = $4, updated_at = $5
		WHERE org_id = $1 AND id::text = $2`,
		m.OrgID, m.ID, m.AmountPaid, string(m.PaymentStatus), m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update movement payment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete borra el movimiento; los ítems caen por ON DELETE CASCADE.
func (r *MovementRepo) Delete(ctx context.Context, orgID, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM movements WHERE org_id = $1 AND id::text = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ActiveHolders bottle_id -> movimiento activo que la contiene.
func (r *MovementRepo) ActiveHolders(ctx context.Context, orgID string, bottleIDs []string, excludeID string) (map[string]string, error) {
	out := make(map[string]string)
	if len(bottleIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT mi.bottle_id::text, m.id::text
		FROM movement_items mi
		JOIN movements m ON m.id = mi.movement_id
		WHERE m.org_id = $1 AND m.status = 'active'
			AND mi.bottle_id::text = ANY($2::text[]) AND m.id::text <> $3`,
		orgID, bottleIDs, excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("active holders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var bottleID, movementID string
		if err := rows.Scan(&bottleID, &movementID); err != nil {
			return nil, fmt.Errorf("scan holder: %w", err)
		}
		out[bottleID] = movementID
	}
	return out, rows.Err()
}

// ListActiveItems ítems de todos los movimientos activos.
func (r *MovementRepo) ListActiveItems(ctx context.Context, orgID string) ([]repository.ActiveItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT m.id::text, mi.id::text, COALESCE(mi.bottle_id::text, ''), m.type
		FROM movement_items mi
		JOIN movements m ON m.id = mi.movement_id
		WHERE m.org_id = $1 AND m.status = 'active'
		ORDER BY mi.id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}
	defer rows.Close()

	var out []repository.ActiveItem
	for rows.Next() {
		var it repository.ActiveItem
		var typ string
		if err := rows.Scan(&it.MovementID, &it.ItemID, &it.BottleID, &typ); err != nil {
			return nil, fmt.Errorf("scan active item: %w", err)
		}
		it.Type = entity.MovementType(typ)
		out = append(out, it)
	}
	return out, rows.Err()
}

// items ítems agrupados por movimiento.
func (r *MovementRepo) items(ctx context.Context, movementIDs []string) (map[string][]entity.MovementItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id::text, movement_id::text, COALESCE(bottle_id::text, ''), price_at_sale, created_at
		FROM movement_items WHERE movement_id::text = ANY($1::text[])
		ORDER BY created_at, id`, movementIDs)
	if err != nil {
		return nil, fmt.Errorf("list movement items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]entity.MovementItem, len(movementIDs))
	for rows.Next() {
		var it entity.MovementItem
		if err := rows.Scan(&it.ID, &it.MovementID, &it.BottleID, &it.PriceAtSale, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement item: %w", err)
		}
		out[it.MovementID] = append(out[it.MovementID], it)
	}
	return out, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var typ, status, payment string
	var contactID, createdBy, writeOff *string
	err := row.Scan(
		&m.ID, &m.OrgID, &typ, &contactID, &status, &payment, &m.AmountPaid,
		&m.MovementDate, &m.Notes, &createdBy, &writeOff, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if m.Type, err = entity.ParseMovementType(typ); err != nil {
		return nil, err
	}
	if m.Status, err = entity.ParseMovementStatus(status); err != nil {
		return nil, err
	}
	if m.PaymentStatus, err = entity.ParsePaymentStatus(payment); err != nil {
		return nil, err
	}
	m.ContactID = deref(contactID)
	m.CreatedBy = deref(createdBy)
	m.WriteOffStatus = entity.BottleStatus(deref(writeOff))
	return &m, nil
}
