package inventory

import (
	"context"

	"github.com/rs/zerolog"
)

// Entity entidad cuyo cambio se notifica a los lectores interesados.
type Entity string

// Entidades con señal de invalidación propia.
const (
	EntityLot             Entity = "lot"
	EntityBottle          Entity = "bottle"
	EntityMovement        Entity = "movement"
	EntityClientInventory Entity = "client_inventory"
)

// Invalidation señal tipada: "cambiaron estas filas de esta entidad en esta organización".
type Invalidation struct {
	OrgID  string   `json:"org_id"`
	Entity Entity   `json:"entity"`
	IDs    []string `json:"ids,omitempty"`
}

// InvalidationPublisher publica señales después del commit.
type InvalidationPublisher interface {
	Publish(ctx context.Context, signals ...Invalidation) error
}

// LogPublisher publica solo en el log (sin Redis).
type LogPublisher struct {
	Log zerolog.Logger
}

// Publish registra cada señal en nivel debug.
func (p LogPublisher) Publish(_ context.Context, signals ...Invalidation) error {
	for _, s := range signals {
		p.Log.Debug().Str("org_id", s.OrgID).Str("entity", string(s.Entity)).Int("ids", len(s.IDs)).Msg("invalidación")
	}
	return nil
}

// publish nunca falla la operación que la origina: el commit ya ocurrió.
func publish(ctx context.Context, pub InvalidationPublisher, log zerolog.Logger, signals ...Invalidation) {
	if pub == nil || len(signals) == 0 {
		return
	}
	if err := pub.Publish(ctx, signals...); err != nil {
		log.Warn().Err(err).Msg("publicar invalidación")
	}
}
