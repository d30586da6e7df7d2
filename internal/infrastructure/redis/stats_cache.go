package redis

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

const (
	statsTTL      = 5 * time.Minute
	localStatsTTL = 30 * time.Second
)

func statsKey(orgID string) string {
	return "ledger:bottle_stats:" + orgID
}

var _ inventory.BottleStatsCache = (*StatsCache)(nil)

type localStats struct {
	stats   map[entity.BottleStatus]int
	expires time.Time
}

// StatsCache conteos de botellas por estado. Se invalida con cada señal de botellas.
// Mientras Listen está activo guarda además una copia en memoria del proceso, que se descarta
// al recibir la señal de botellas de cualquier instancia.
type StatsCache struct {
	rdb *goredis.Client
	log zerolog.Logger

	listening atomic.Bool
	mu        sync.Mutex
	local     map[string]localStats
}

// NewStatsCache construye el cache.
func NewStatsCache(rdb *goredis.Client, log zerolog.Logger) *StatsCache {
	return &StatsCache{rdb: rdb, log: log, local: make(map[string]localStats)}
}

// Get miss ante cualquier error: el caller recalcula desde la BD.
func (c *StatsCache) Get(ctx context.Context, orgID string) (map[entity.BottleStatus]int, bool) {
	if stats, ok := c.getLocal(orgID); ok {
		return stats, true
	}
	raw, err := c.rdb.Get(ctx, statsKey(orgID)).Bytes()
	if err != nil {
		return nil, false
	}
	var stats map[entity.BottleStatus]int
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false
	}
	c.setLocal(orgID, stats)
	return stats, true
}

// Set guarda con TTL; un fallo solo se registra.
func (c *StatsCache) Set(ctx context.Context, orgID string, stats map[entity.BottleStatus]int) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, statsKey(orgID), raw, statsTTL).Err(); err != nil {
		c.log.Warn().Err(err).Str("org_id", orgID).Msg("cache de conteos")
		return
	}
	c.setLocal(orgID, stats)
}

// Listen consume las señales de botellas hasta que ctx termine. Sin Listen la copia local
// no se usa.
func (c *StatsCache) Listen(ctx context.Context) error {
	c.listening.Store(true)
	defer func() {
		c.listening.Store(false)
		c.mu.Lock()
		c.local = make(map[string]localStats)
		c.mu.Unlock()
	}()
	return Subscribe(ctx, c.rdb, func(s inventory.Invalidation) {
		c.mu.Lock()
		delete(c.local, s.OrgID)
		c.mu.Unlock()
		c.log.Debug().Str("org_id", s.OrgID).Msg("conteos locales descartados")
	}, inventory.EntityBottle)
}

func (c *StatsCache) getLocal(orgID string) (map[entity.BottleStatus]int, bool) {
	if !c.listening.Load() {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.local[orgID]
	if !ok || time.Now().After(l.expires) {
		return nil, false
	}
	return l.stats, true
}

func (c *StatsCache) setLocal(orgID string, stats map[entity.BottleStatus]int) {
	if !c.listening.Load() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[orgID] = localStats{stats: stats, expires: time.Now().Add(localStatsTTL)}
}
