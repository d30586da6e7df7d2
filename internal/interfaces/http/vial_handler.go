package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/peptide-ledger/internal/application/dto"
	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
)

// VialHandler nevera digital: viales del cliente, reconstitución, protocolo y dosis.
type VialHandler struct {
	uc  *inventory.ClientInventoryTracker
	err errorMapper
}

// NewVialHandler construye el handler.
func NewVialHandler(uc *inventory.ClientInventoryTracker, em errorMapper) *VialHandler {
	return &VialHandler{uc: uc, err: em}
}

// ListForContact GET /api/contacts/:id/vials?include_depleted=true
func (h *VialHandler) ListForContact(c *fiber.Ctx) error {
	list, err := h.uc.ListForContact(c.Context(), GetOrgID(c), c.Params("id"), c.QueryBool("include_depleted"))
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(fiber.Map{"items": dto.VialsFromEntities(list)})
}

// AddManual vial adquirido fuera del ledger.
// POST /api/contacts/:id/vials
func (h *VialHandler) AddManual(c *fiber.Ctx) error {
	var req dto.ManualVialRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	v, err := h.uc.AddManualVial(c.Context(), inventory.ManualVialInput{
		OrgID:             GetOrgID(c),
		ContactID:         c.Params("id"),
		PeptideID:         req.PeptideID,
		BatchNumber:       req.BatchNumber,
		VialSizeMg:        req.VialSizeMg,
		CurrentQuantityMg: req.CurrentQuantityMg,
	})
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.VialFromEntity(v))
}

// Supply días de suministro.
// GET /api/contacts/:id/supply?peptide_id=
func (h *VialHandler) Supply(c *fiber.Ctx) error {
	rep, err := h.uc.Supply(c.Context(), GetOrgID(c), c.Params("id"), c.Query("peptide_id"))
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(rep)
}

// Reconstitute POST /api/vials/:id/reconstitute
func (h *VialHandler) Reconstitute(c *fiber.Ctx) error {
	var req dto.ReconstituteRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	v, err := h.uc.Reconstitute(c.Context(), GetOrgID(c), c.Params("id"), req.WaterAddedMl, req.VialSizeMg)
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(dto.VialFromEntity(v))
}

// Schedule POST /api/vials/:id/schedule
func (h *VialHandler) Schedule(c *fiber.Ctx) error {
	var req dto.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	v, err := h.uc.SetSchedule(c.Context(), GetOrgID(c), c.Params("id"), req.DoseAmountMg, req.DoseDays)
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(dto.VialFromEntity(v))
}

// Dose registra una dosis con la cantidad leída por el cliente.
// POST /api/vials/:id/doses
func (h *VialHandler) Dose(c *fiber.Ctx) error {
	var req dto.DoseRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	res, err := h.uc.LogDose(c.Context(), GetOrgID(c), c.Params("id"), req.ObservedMg, req.DoseMg)
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(res)
}

// Empty POST /api/vials/:id/empty
func (h *VialHandler) Empty(c *fiber.Ctx) error {
	if err := h.uc.MarkEmpty(c.Context(), GetOrgID(c), c.Params("id")); err != nil {
		return h.err.respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
