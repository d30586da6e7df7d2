package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
)

// ChannelPrefix canal por entidad: ledger:invalidate:<entity>.
const ChannelPrefix = "ledger:invalidate:"

// Channel canal de invalidación de una entidad.
func Channel(e inventory.Entity) string {
	return ChannelPrefix + string(e)
}

var _ inventory.InvalidationPublisher = (*Publisher)(nil)

// Publisher publica las señales de invalidación por Pub/Sub. Una señal de botellas además
// borra el cache de conteos de la organización.
type Publisher struct {
	rdb *goredis.Client
}

// NewPublisher construye el publicador.
func NewPublisher(rdb *goredis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish envía todas las señales en un pipeline.
func (p *Publisher) Publish(ctx context.Context, signals ...inventory.Invalidation) error {
	if len(signals) == 0 {
		return nil
	}
	pipe := p.rdb.Pipeline()
	for _, s := range signals {
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal invalidation: %w", err)
		}
		pipe.Publish(ctx, Channel(s.Entity), payload)
		if s.Entity == inventory.EntityBottle {
			pipe.Del(ctx, statsKey(s.OrgID))
		}
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("publish invalidations: %w", err)
	}
	return nil
}

// Subscribe escucha las entidades dadas y entrega cada señal decodificada a fn hasta que ctx termine.
func Subscribe(ctx context.Context, rdb *goredis.Client, fn func(inventory.Invalidation), entities ...inventory.Entity) error {
	channels := make([]string, len(entities))
	for i, e := range entities {
		channels[i] = Channel(e)
	}
	sub := rdb.Subscribe(ctx, channels...)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var s inventory.Invalidation
			if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
				continue
			}
			fn(s)
		}
	}
}
