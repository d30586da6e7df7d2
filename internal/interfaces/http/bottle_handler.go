package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/peptide-ledger/internal/application/dto"
	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
)

// BottleHandler consultas y restauración de botellas.
type BottleHandler struct {
	pool *inventory.BottlePool
	err  errorMapper
}

// NewBottleHandler construye el handler.
func NewBottleHandler(pool *inventory.BottlePool, em errorMapper) *BottleHandler {
	return &BottleHandler{pool: pool, err: em}
}

// Available botellas in_stock de un péptido en orden FIFO.
// GET /api/bottles/available?peptide_id=
func (h *BottleHandler) Available(c *fiber.Ctx) error {
	peptideID := c.Query("peptide_id")
	if peptideID == "" {
		return badField(c, "peptide_id", "requerido")
	}
	list, err := h.pool.ListAvailable(c.Context(), GetOrgID(c), peptideID)
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(fiber.Map{"items": dto.BottlesFromDetails(list)})
}

// Stats conteo de botellas por estado.
// GET /api/bottles/stats
func (h *BottleHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.pool.Stats(c.Context(), GetOrgID(c))
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(stats)
}

// Restore devuelve a stock botellas dadas de baja o huérfanas.
// POST /api/bottles/restore
func (h *BottleHandler) Restore(c *fiber.Ctx) error {
	var req dto.RestoreBottlesRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	restored, err := h.pool.RestoreBottles(c.Context(), GetOrgID(c), req.BottleIDs)
	if err != nil {
		return h.err.respond(c, err)
	}
	if restored == nil {
		restored = []string{}
	}
	return c.JSON(fiber.Map{"restored_bottle_ids": restored})
}
