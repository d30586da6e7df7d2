package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/peptide-ledger/internal/application/dto"
	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

// MovementHandler ventas, regalos, bajas, pagos y reversiones.
type MovementHandler struct {
	ledger   *inventory.MovementLedger
	restock  *inventory.RestockEngine
	receipts inventory.ReceiptRenderer
	err      errorMapper
}

// NewMovementHandler construye el handler. receipts puede ser nil (sin PDF).
func NewMovementHandler(ledger *inventory.MovementLedger, restock *inventory.RestockEngine, receipts inventory.ReceiptRenderer, em errorMapper) *MovementHandler {
	return &MovementHandler{ledger: ledger, restock: restock, receipts: receipts, err: em}
}

func movementInput(c *fiber.Ctx, req dto.MovementRequest) inventory.MovementInput {
	in := inventory.MovementInput{
		OrgID:         GetOrgID(c),
		ContactID:     req.ContactID,
		CreatedBy:     GetUserID(c),
		PaymentStatus: req.PaymentStatus,
		AmountPaid:    req.AmountPaid,
		Notes:         req.Notes,
	}
	if req.MovementDate != nil {
		in.MovementDate = *req.MovementDate
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, inventory.ItemInput{BottleID: it.BottleID, PriceAtSale: it.PriceAtSale})
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, inventory.FIFOLine{PeptideID: l.PeptideID, LotIDs: l.LotIDs, Count: l.Count, UnitPrice: l.UnitPrice})
	}
	return in
}

// Sale registra una venta. Solo lines = FIFO; items (con o sin lines) = venta explícita.
// POST /api/movements/sales
func (h *MovementHandler) Sale(c *fiber.Ctx) error {
	var req dto.MovementRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in := movementInput(c, req)
	record := h.ledger.RecordSale
	if len(in.Items) == 0 && len(in.Lines) > 0 {
		record = h.ledger.RecordSaleFIFO
	}
	m, err := record(c.Context(), in)
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementFromEntity(m))
}

// Giveaway POST /api/movements/giveaways
func (h *MovementHandler) Giveaway(c *fiber.Ctx) error {
	var req dto.MovementRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	m, err := h.ledger.RecordGiveaway(c.Context(), movementInput(c, req))
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementFromEntity(m))
}

// Adjustment baja de botellas en stock.
// POST /api/movements/adjustments
func (h *MovementHandler) Adjustment(c *fiber.Ctx) error {
	var req dto.AdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in := inventory.AdjustmentInput{
		OrgID:     GetOrgID(c),
		CreatedBy: GetUserID(c),
		BottleIDs: req.BottleIDs,
		Status:    req.Status,
		Notes:     req.Notes,
	}
	if req.MovementDate != nil {
		in.MovementDate = *req.MovementDate
	}
	m, err := h.ledger.RecordAdjustment(c.Context(), in)
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementFromEntity(m))
}

// List GET /api/movements?contact_id=&limit=&offset=
func (h *MovementHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
	page.DefaultPage()
	list, err := h.ledger.ListMovements(c.Context(), GetOrgID(c), repository.MovementFilter{
		ContactID: c.Query("contact_id"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return h.err.respond(c, err)
	}
	items := make([]dto.MovementResponse, len(list))
	for i, m := range list {
		items[i] = dto.MovementFromEntity(m)
	}
	return c.JSON(fiber.Map{"items": items, "page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// Get GET /api/movements/:id
func (h *MovementHandler) Get(c *fiber.Ctx) error {
	m, err := h.ledger.GetMovement(c.Context(), GetOrgID(c), c.Params("id"))
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(dto.MovementFromEntity(m))
}

// Receipt comprobante en PDF.
// GET /api/movements/:id/receipt
func (h *MovementHandler) Receipt(c *fiber.Ctx) error {
	if h.receipts == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_CONFIGURED", Message: "comprobantes no configurados"})
	}
	rec, err := h.ledger.Receipt(c.Context(), GetOrgID(c), c.Params("id"))
	if err != nil {
		return h.err.respond(c, err)
	}
	pdf, err := h.receipts.RenderReceipt(c.Context(), rec)
	if err != nil {
		return h.err.respond(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, "inline; filename=\"receipt-"+rec.Movement.ID+".pdf\"")
	return c.Send(pdf)
}

// Payment registra un abono.
// POST /api/movements/:id/payments
func (h *MovementHandler) Payment(c *fiber.Ctx) error {
	var req dto.PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	m, err := h.ledger.RecordPayment(c.Context(), GetOrgID(c), c.Params("id"), req.Amount)
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(dto.MovementFromEntity(m))
}

// Restock devuelve las botellas y marca el movimiento returned.
// POST /api/movements/:id/restock
func (h *MovementHandler) Restock(c *fiber.Ctx) error {
	res, err := h.restock.Restock(c.Context(), GetOrgID(c), c.Params("id"))
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(res)
}

// Revert borra el movimiento devolviendo sus botellas a stock.
// DELETE /api/movements/:id
func (h *MovementHandler) Revert(c *fiber.Ctx) error {
	res, err := h.restock.RevertMovement(c.Context(), GetOrgID(c), c.Params("id"))
	if err != nil {
		return h.err.respond(c, err)
	}
	return c.JSON(res)
}
