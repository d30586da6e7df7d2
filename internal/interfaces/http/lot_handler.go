package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/peptide-ledger/internal/application/dto"
	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
)

// LotHandler maneja los endpoints de lotes.
type LotHandler struct {
	uc  *inventory.LotRegistry
	err errorMapper
}

// NewLotHandler construye el handler.
func NewLotHandler(uc *inventory.LotRegistry, em errorMapper) *LotHandler {
	return &LotHandler{uc: uc, err: em}
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Receive registra un lote y sus botellas.
// POST /api/lots
func (h *LotHandler) Receive(c *fiber.Ctx) error {
	var req dto.ReceiveLotRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	received, err := parseDate(req.ReceivedDate)
	if err != nil {
		return badField(c, "received_date", "formato YYYY-MM-DD")
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		return badField(c, "expiry_date", "formato YYYY-MM-DD")
	}
	in := inventory.ReceiveLotInput{
		OrgID:            GetOrgID(c),
		PeptideID:        req.PeptideID,
		LotNumber:        req.LotNumber,
		CostPerUnit:      req.CostPerUnit,
		QuantityReceived: req.QuantityReceived,
		ExpiryDate:       expiry,
		Notes:            req.Notes,
	}
	if received != nil {
		in.ReceivedDate = *received
	}
	lot, err := h.uc.ReceiveLot(c.Context(), in)
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.LotFromEntity(lot))
}

// List lotes de la organización, más recientes primero.
// GET /api/lots?limit=&offset=
func (h *LotHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
	page.DefaultPage()
	lots, err := h.uc.ListLots(c.Context(), GetOrgID(c), page.Limit, page.Offset)
	if err != nil {
		return h.err.respond(c, err)
	}
	items := make([]dto.LotResponse, len(lots))
	for i, l := range lots {
		items[i] = dto.LotFromEntity(l)
	}
	return c.JSON(fiber.Map{"items": items, "page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// Get GET /api/lots/:id
func (h *LotHandler) Get(c *fiber.Ctx) error {
	lot, err := h.uc.GetLot(c.Context(), GetOrgID(c), c.Params("id"))
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(dto.LotFromEntity(lot))
}

// Update corrección administrativa.
// PATCH /api/lots/:id
func (h *LotHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateLotRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in := inventory.UpdateLotInput{
		LotNumber:   req.LotNumber,
		CostPerUnit: req.CostPerUnit,
		Notes:       req.Notes,
	}
	if req.ExpiryDate != nil {
		expiry, err := parseDate(*req.ExpiryDate)
		if err != nil || expiry == nil {
			return badField(c, "expiry_date", "formato YYYY-MM-DD")
		}
		in.ExpiryDate = expiry
	}
	lot, err := h.uc.UpdateLot(c.Context(), GetOrgID(c), c.Params("id"), in)
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(dto.LotFromEntity(lot))
}

// Delete borra un lote sin historial de movimientos.
// DELETE /api/lots/:id
func (h *LotHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.DeleteLot(c.Context(), GetOrgID(c), c.Params("id")); err != nil {
		return h.err.respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
