// reconcile audita la integridad del ledger de una o más organizaciones y escribe el
// reporte en JSON por stdout. Solo reporta; nunca corrige.
//
// Uso: go run ./cmd/reconcile <org_id> [org_id...]
// Código de salida 1 si hubo error, 2 si alguna organización tiene hallazgos.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/peptide-ledger/pkg/config"
	"github.com/jhoicas/peptide-ledger/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: reconcile <org_id> [org_id...]")
		os.Exit(1)
	}
	orgs := os.Args[1:]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "reconcile",
		Out:     os.Stderr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name+"-reconcile")
	if err != nil {
		log.Error().Err(err).Msg("conexión a PostgreSQL")
		os.Exit(1)
	}
	defer pool.Close()

	audit := inventory.NewReconciliation(
		postgres.NewLotRepository(pool),
		postgres.NewBottleRepository(pool),
		postgres.NewMovementRepository(pool),
		postgres.NewClientInventoryRepository(pool),
		log.Component("reconciliation"),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	dirty := false
	for _, org := range orgs {
		rep, err := audit.Audit(ctx, org)
		if err != nil {
			log.Error().Err(err).Str("org_id", org).Msg("conciliación fallida")
			os.Exit(1)
		}
		if !rep.Clean() {
			dirty = true
		}
		if err := enc.Encode(rep); err != nil {
			log.Error().Err(err).Msg("escribir reporte")
			os.Exit(1)
		}
	}
	if dirty {
		os.Exit(2)
	}
}
