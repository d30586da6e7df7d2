package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
)

// Colas de trabajos.
const (
	QueueSideEffects = "jobs:side_effects"
	DLQPrefix        = "dlq:"
)

// popTimeout BRPOP despierta cada tanto para revisar el ctx.
const popTimeout = 5 * time.Second

var _ inventory.SideEffectDispatcher = (*Dispatcher)(nil)

// Dispatcher encola trabajos en una lista Redis; el pool los consume con BRPOP.
type Dispatcher struct {
	rdb *goredis.Client
}

// NewDispatcher construye el dispatcher.
func NewDispatcher(rdb *goredis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// Dispatch LPUSH del trabajo serializado.
func (d *Dispatcher) Dispatch(ctx context.Context, job inventory.SideEffectJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := d.rdb.LPush(ctx, QueueSideEffects, raw).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// DeadLetter trabajo fallido guardado para inspección manual.
type DeadLetter struct {
	Job      inventory.SideEffectJob `json:"job"`
	Reason   string                  `json:"reason"`
	FailedAt time.Time               `json:"failed_at"`
}

// WorkerPool consume la cola y delega en el SideEffectProcessor.
type WorkerPool struct {
	rdb       *goredis.Client
	processor *inventory.SideEffectProcessor
	timeout   time.Duration
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewWorkerPool timeout por trabajo (<= 0 usa 30 s).
func NewWorkerPool(rdb *goredis.Client, processor *inventory.SideEffectProcessor, timeout time.Duration, log zerolog.Logger) *WorkerPool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WorkerPool{rdb: rdb, processor: processor, timeout: timeout, log: log}
}

// Start lanza n workers hasta que ctx termine. Wait espera a que salgan.
func (p *WorkerPool) Start(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	p.log.Info().Int("workers", n).Msg("worker pool iniciado")
}

// Wait bloquea hasta que todos los workers terminaron.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

func (p *WorkerPool) run(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			p.log.Debug().Int("worker", id).Msg("worker detenido")
			return
		}
		res, err := p.rdb.BRPop(ctx, popTimeout, QueueSideEffects).Result()
		if err != nil {
			if !errors.Is(err, goredis.Nil) && ctx.Err() == nil {
				p.log.Warn().Err(err).Int("worker", id).Msg("brpop")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(res) < 2 {
			continue
		}
		p.process(res[1])
	}
}

// process un trabajo con su propio timeout, independiente del ctx del pool.
func (p *WorkerPool) process(raw string) {
	var job inventory.SideEffectJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		p.log.Error().Err(err).Msg("trabajo ilegible")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.processor.Handle(ctx, job); err != nil {
		p.deadLetter(ctx, job, err)
	}
}

func (p *WorkerPool) deadLetter(ctx context.Context, job inventory.SideEffectJob, cause error) {
	raw, err := json.Marshal(DeadLetter{Job: job, Reason: cause.Error(), FailedAt: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := p.rdb.LPush(ctx, DLQPrefix+QueueSideEffects, raw).Err(); err != nil {
		p.log.Error().Err(err).Str("movement_id", job.MovementID).Msg("no se pudo guardar en DLQ")
	}
}

// DLQLength trabajos fallidos pendientes de revisión.
func DLQLength(ctx context.Context, rdb *goredis.Client) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+QueueSideEffects).Result()
}
