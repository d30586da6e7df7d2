package redis_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	ledgerredis "github.com/jhoicas/peptide-ledger/internal/infrastructure/redis"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := ledgerredis.NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNewClient_URLInvalida(t *testing.T) {
	_, err := ledgerredis.NewClient(context.Background(), "://nada")
	assert.Error(t, err)
}

// ── Cache de conteos ──

func TestStatsCache_SetGet(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	cache := ledgerredis.NewStatsCache(rdb, zerolog.Nop())

	_, ok := cache.Get(ctx, "org-1")
	assert.False(t, ok)

	cache.Set(ctx, "org-1", map[entity.BottleStatus]int{entity.BottleInStock: 4, entity.BottleSold: 1})
	got, ok := cache.Get(ctx, "org-1")
	require.True(t, ok)
	assert.Equal(t, 4, got[entity.BottleInStock])
	assert.Equal(t, 1, got[entity.BottleSold])

	_, ok = cache.Get(ctx, "org-2")
	assert.False(t, ok)
}

// ── Invalidaciones ──

func TestPublisher_SenalDeBotellasBorraCache(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	cache := ledgerredis.NewStatsCache(rdb, zerolog.Nop())
	pub := ledgerredis.NewPublisher(rdb)

	cache.Set(ctx, "org-1", map[entity.BottleStatus]int{entity.BottleInStock: 2})
	require.NoError(t, pub.Publish(ctx, inventory.Invalidation{OrgID: "org-1", Entity: inventory.EntityLot}))
	_, ok := cache.Get(ctx, "org-1")
	assert.True(t, ok, "una señal de lotes no toca el cache de botellas")

	require.NoError(t, pub.Publish(ctx, inventory.Invalidation{OrgID: "org-1", Entity: inventory.EntityBottle, IDs: []string{"b1"}}))
	_, ok = cache.Get(ctx, "org-1")
	assert.False(t, ok)
}

func TestSubscribe_RecibeSenales(t *testing.T) {
	_, rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan inventory.Invalidation, 1)
	done := make(chan error, 1)
	go func() {
		done <- ledgerredis.Subscribe(ctx, rdb, func(s inventory.Invalidation) { got <- s }, inventory.EntityMovement)
	}()

	pub := ledgerredis.NewPublisher(rdb)
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(context.Background(), ledgerredis.Channel(inventory.EntityMovement)).Result()
		return err == nil && n[ledgerredis.Channel(inventory.EntityMovement)] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, pub.Publish(context.Background(),
		inventory.Invalidation{OrgID: "org-1", Entity: inventory.EntityMovement, IDs: []string{"m1"}}))

	select {
	case s := <-got:
		assert.Equal(t, "org-1", s.OrgID)
		assert.Equal(t, []string{"m1"}, s.IDs)
	case <-time.After(2 * time.Second):
		t.Fatal("no llegó la señal")
	}
	cancel()
	assert.NoError(t, <-done)
}

func TestStatsCache_ListenDescartaCopiaLocal(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cache := ledgerredis.NewStatsCache(rdb, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- cache.Listen(ctx) }()
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(context.Background(), ledgerredis.Channel(inventory.EntityBottle)).Result()
		return err == nil && n[ledgerredis.Channel(inventory.EntityBottle)] == 1
	}, 2*time.Second, 10*time.Millisecond)

	cache.Set(context.Background(), "org-1", map[entity.BottleStatus]int{entity.BottleInStock: 3})
	mr.Del("ledger:bottle_stats:org-1")
	got, ok := cache.Get(context.Background(), "org-1")
	require.True(t, ok, "la copia local responde sin Redis")
	assert.Equal(t, 3, got[entity.BottleInStock])

	// la señal puede venir de otra instancia: aquí se publica directo sobre el canal
	payload, err := json.Marshal(inventory.Invalidation{OrgID: "org-1", Entity: inventory.EntityBottle})
	require.NoError(t, err)
	require.NoError(t, rdb.Publish(context.Background(), ledgerredis.Channel(inventory.EntityBottle), payload).Err())
	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "org-1")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

// ── Cola de trabajos ──

type fakeCommissions struct {
	mu       sync.Mutex
	sales    []string
	reversed []string
	err      error
}

func (f *fakeCommissions) ProcessSale(_ context.Context, _, movementID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales = append(f.sales, movementID)
	return f.err
}

func (f *fakeCommissions) ReverseSale(_ context.Context, _, movementID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reversed = append(f.reversed, movementID)
	return f.err
}

func (f *fakeCommissions) processed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sales) + len(f.reversed)
}

func TestDispatcher_EncolaJSON(t *testing.T) {
	mr, rdb := newRedis(t)
	d := ledgerredis.NewDispatcher(rdb)

	job := inventory.SideEffectJob{Kind: inventory.JobCommission, OrgID: "org-1", MovementID: "m1", Total: decimal.NewFromInt(90)}
	require.NoError(t, d.Dispatch(context.Background(), job))

	items, err := mr.List(ledgerredis.QueueSideEffects)
	require.NoError(t, err)
	require.Len(t, items, 1)
	var decoded inventory.SideEffectJob
	require.NoError(t, json.Unmarshal([]byte(items[0]), &decoded))
	assert.Equal(t, "m1", decoded.MovementID)
	assert.True(t, decoded.Total.Equal(decimal.NewFromInt(90)))
}

func TestWorkerPool_ProcesaTrabajos(t *testing.T) {
	_, rdb := newRedis(t)
	comm := &fakeCommissions{}
	proc := inventory.NewSideEffectProcessor(comm, nil, zerolog.Nop())
	pool := ledgerredis.NewWorkerPool(rdb, proc, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 2)

	d := ledgerredis.NewDispatcher(rdb)
	require.NoError(t, d.Dispatch(ctx, inventory.SideEffectJob{Kind: inventory.JobCommission, OrgID: "org-1", MovementID: "m1"}))
	require.NoError(t, d.Dispatch(ctx, inventory.SideEffectJob{Kind: inventory.JobCommissionReversal, OrgID: "org-1", MovementID: "m2"}))

	assert.Eventually(t, func() bool { return comm.processed() == 2 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	pool.Wait()
}

func TestWorkerPool_FalloVaALaDLQ(t *testing.T) {
	_, rdb := newRedis(t)
	comm := &fakeCommissions{err: assert.AnError}
	proc := inventory.NewSideEffectProcessor(comm, nil, zerolog.Nop())
	pool := ledgerredis.NewWorkerPool(rdb, proc, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 1)
	require.NoError(t, ledgerredis.NewDispatcher(rdb).Dispatch(ctx,
		inventory.SideEffectJob{Kind: inventory.JobCommission, OrgID: "org-1", MovementID: "m1"}))

	assert.Eventually(t, func() bool {
		n, err := ledgerredis.DLQLength(context.Background(), rdb)
		return err == nil && n == 1
	}, 3*time.Second, 10*time.Millisecond)
	cancel()
	pool.Wait()
}
