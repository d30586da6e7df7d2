package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
)

var _ inventory.CommissionEngine = (*CommissionRPC)(nil)

// CommissionRPC motor de comisiones implementado como funciones de la BD.
// Cada llamada es su propia transacción: nunca comparte tx con el movimiento.
type CommissionRPC struct {
	pool *pgxpool.Pool
}

// NewCommissionRPC construye el cliente de las funciones de comisión.
func NewCommissionRPC(pool *pgxpool.Pool) *CommissionRPC {
	return &CommissionRPC{pool: pool}
}

// ProcessSale calcula y registra las comisiones de la venta.
func (c *CommissionRPC) ProcessSale(ctx context.Context, orgID, movementID string) error {
	if _, err := c.pool.Exec(ctx, `SELECT process_sale_commission($1, $2)`, orgID, movementID); err != nil {
		return fmt.Errorf("process_sale_commission: %w", err)
	}
	return nil
}

// ReverseSale descuenta los saldos acreditados y borra las comisiones de la venta.
func (c *CommissionRPC) ReverseSale(ctx context.Context, orgID, movementID string) error {
	if _, err := c.pool.Exec(ctx, `SELECT reverse_sale_commission($1, $2)`, orgID, movementID); err != nil {
		return fmt.Errorf("reverse_sale_commission: %w", err)
	}
	return nil
}
