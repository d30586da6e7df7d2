package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Lots           *inventory.LotRegistry
	Bottles        *inventory.BottlePool
	Ledger         *inventory.MovementLedger
	Restock        *inventory.RestockEngine
	Vials          *inventory.ClientInventoryTracker
	Reconciliation *inventory.Reconciliation
	Receipts       inventory.ReceiptRenderer // nil = sin comprobantes PDF
	Ping           func(ctx context.Context) error
	DeadLetters    func(ctx context.Context) (int64, error) // nil = sin cola Redis
	ServiceName    string
	JWTSecret      string
	JWTIssuer      string
	Log            zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	em := errorMapper{log: deps.Log}

	app.Get("/health", healthHandler(deps))

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	adminOnly := RequireRole(jwt.RoleAdmin)

	// Lotes
	lotHandler := NewLotHandler(deps.Lots, em)
	lots := api.Group("/lots")
	lots.Post("/", lotHandler.Receive)
	lots.Get("/", lotHandler.List)
	lots.Get("/:id", lotHandler.Get)
	lots.Patch("/:id", adminOnly, lotHandler.Update)
	lots.Delete("/:id", adminOnly, lotHandler.Delete)

	// Botellas
	bottleHandler := NewBottleHandler(deps.Bottles, em)
	bottles := api.Group("/bottles")
	bottles.Get("/available", bottleHandler.Available)
	bottles.Get("/stats", bottleHandler.Stats)
	bottles.Post("/restore", bottleHandler.Restore)

	// Movimientos
	movementHandler := NewMovementHandler(deps.Ledger, deps.Restock, deps.Receipts, em)
	movements := api.Group("/movements")
	movements.Post("/sales", movementHandler.Sale)
	movements.Post("/giveaways", movementHandler.Giveaway)
	movements.Post("/adjustments", movementHandler.Adjustment)
	movements.Get("/", movementHandler.List)
	movements.Get("/:id", movementHandler.Get)
	movements.Get("/:id/receipt", movementHandler.Receipt)
	movements.Post("/:id/payments", movementHandler.Payment)
	movements.Post("/:id/restock", movementHandler.Restock)
	movements.Delete("/:id", adminOnly, movementHandler.Revert)

	// Nevera digital
	vialHandler := NewVialHandler(deps.Vials, em)
	contacts := api.Group("/contacts")
	contacts.Get("/:id/vials", vialHandler.ListForContact)
	contacts.Post("/:id/vials", vialHandler.AddManual)
	contacts.Get("/:id/supply", vialHandler.Supply)
	vials := api.Group("/vials")
	vials.Post("/:id/reconstitute", vialHandler.Reconstitute)
	vials.Post("/:id/schedule", vialHandler.Schedule)
	vials.Post("/:id/doses", vialHandler.Dose)
	vials.Post("/:id/empty", vialHandler.Empty)

	// Conciliación
	reconHandler := NewReconciliationHandler(deps.Reconciliation, em)
	api.Get("/reconciliation", adminOnly, reconHandler.Audit)
}

func healthHandler(deps RouterDeps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				deps.Log.Warn().Err(err).Msg("health: base de datos no responde")
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": deps.ServiceName})
			}
		}
		body := fiber.Map{"status": "ok", "service": deps.ServiceName}
		if deps.DeadLetters != nil {
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			n, err := deps.DeadLetters(ctx)
			if err != nil {
				deps.Log.Warn().Err(err).Msg("health: cola de efectos no responde")
				body["status"] = "degraded"
				return c.Status(fiber.StatusServiceUnavailable).JSON(body)
			}
			body["dead_letters"] = n
		}
		return c.JSON(body)
	}
}
