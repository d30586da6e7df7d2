package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
)

// ReconciliationHandler auditoría de integridad del ledger.
type ReconciliationHandler struct {
	uc  *inventory.Reconciliation
	err errorMapper
}

// NewReconciliationHandler construye el handler.
func NewReconciliationHandler(uc *inventory.Reconciliation, em errorMapper) *ReconciliationHandler {
	return &ReconciliationHandler{uc: uc, err: em}
}

// Audit GET /api/reconciliation. Solo reporta; nunca corrige.
func (h *ReconciliationHandler) Audit(c *fiber.Ctx) error {
	rep, err := h.uc.Audit(c.Context(), GetOrgID(c))
	if err != nil {
		return h.err.respond(c, err)
	}
	if rep.Findings == nil {
		rep.Findings = []inventory.Finding{}
	}
	return c.JSON(fiber.Map{"clean": rep.Clean(), "report": rep})
}
