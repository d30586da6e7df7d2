package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// ReceiptLine una botella del comprobante.
type ReceiptLine struct {
	BottleUID   string
	PeptideName string
	LotNumber   string
	Price       decimal.Decimal
}

// Receipt datos del comprobante de un movimiento.
type Receipt struct {
	Movement *entity.Movement
	Contact  *entity.Contact // nil en ajustes
	Lines    []ReceiptLine
	Total    decimal.Decimal
	Balance  decimal.Decimal
}

// ReceiptRenderer convierte un comprobante a un documento (PDF).
type ReceiptRenderer interface {
	RenderReceipt(ctx context.Context, r *Receipt) ([]byte, error)
}

// Receipt arma el comprobante: ítems resueltos a UID, producto y lote. Un ítem cuya botella
// ya no existe se muestra sin UID en lugar de fallar.
func (uc *MovementLedger) Receipt(ctx context.Context, orgID, movementID string) (*Receipt, error) {
	m, err := uc.GetMovement(ctx, orgID, movementID)
	if err != nil {
		return nil, err
	}
	rec := &Receipt{Movement: m, Total: m.Total()}
	rec.Balance = rec.Total.Sub(m.AmountPaid)
	if rec.Balance.IsNegative() {
		rec.Balance = decimal.Zero
	}

	if m.ContactID != "" {
		if rec.Contact, err = uc.contacts.GetByID(ctx, orgID, m.ContactID); err != nil {
			return nil, err
		}
	}

	details, err := uc.pool.bottles.GetByIDs(ctx, orgID, m.BottleIDs())
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entity.BottleDetail, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}
	for _, it := range m.Items {
		line := ReceiptLine{BottleUID: "-", Price: it.PriceAtSale}
		if d, ok := byID[it.BottleID]; ok {
			line.BottleUID, line.PeptideName, line.LotNumber = d.UID, d.PeptideName, d.LotNumber
		}
		rec.Lines = append(rec.Lines, line)
	}
	return rec, nil
}
