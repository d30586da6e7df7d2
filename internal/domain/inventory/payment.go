package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// PaymentStatusFor deriva el estado de pago a partir del monto cobrado y el total.
func PaymentStatusFor(amountPaid, total decimal.Decimal) entity.PaymentStatus {
	switch {
	case amountPaid.LessThanOrEqual(decimal.Zero) && total.GreaterThan(decimal.Zero):
		return entity.PaymentUnpaid
	case amountPaid.GreaterThanOrEqual(total):
		return entity.PaymentPaid
	default:
		return entity.PaymentPartial
	}
}

// ApplyPayment suma un abono y devuelve el nuevo monto y estado. El estado nunca retrocede
// y el total cobrado no puede superar el total del movimiento.
func ApplyPayment(current entity.PaymentStatus, amountPaid, payment, total decimal.Decimal) (decimal.Decimal, entity.PaymentStatus, error) {
	if !payment.GreaterThan(decimal.Zero) {
		return amountPaid, current, domain.Invalid("amount", "debe ser mayor que 0")
	}
	if current == entity.PaymentPaid {
		return amountPaid, current, domain.Conflict("el movimiento ya está pagado")
	}
	next := amountPaid.Add(payment)
	if next.GreaterThan(total) {
		return amountPaid, current, domain.Invalid("amount", "el abono supera el saldo pendiente")
	}
	status := PaymentStatusFor(next, total)
	if status.Rank() < current.Rank() {
		status = current
	}
	return next, status, nil
}
