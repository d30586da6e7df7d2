package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain"
)

// JobKind tipo de efecto secundario.
type JobKind string

// Tipos de trabajo.
const (
	JobCommission         JobKind = "commission"
	JobCommissionReversal JobKind = "commission_reversal"
)

// SideEffectJob trabajo pendiente después de confirmar un movimiento.
type SideEffectJob struct {
	Kind       JobKind         `json:"kind"`
	OrgID      string          `json:"org_id"`
	MovementID string          `json:"movement_id"`
	ContactID  string          `json:"contact_id,omitempty"`
	RepID      string          `json:"rep_id,omitempty"`
	Total      decimal.Decimal `json:"total"`
}

// SideEffectProcessor ejecuta comisión y notificación. La notificación solo se envía si la
// comisión se procesó; cualquier fallo se registra como DependencyError y no se reintenta.
type SideEffectProcessor struct {
	commissions CommissionEngine
	notifier    Notifier
	log         zerolog.Logger
}

// NewSideEffectProcessor notifier puede ser nil (sin SMS).
func NewSideEffectProcessor(commissions CommissionEngine, notifier Notifier, log zerolog.Logger) *SideEffectProcessor {
	return &SideEffectProcessor{commissions: commissions, notifier: notifier, log: log}
}

// Handle procesa un trabajo y devuelve el primer DependencyError encontrado.
func (p *SideEffectProcessor) Handle(ctx context.Context, job SideEffectJob) error {
	switch job.Kind {
	case JobCommission:
		if err := p.commissions.ProcessSale(ctx, job.OrgID, job.MovementID); err != nil {
			return p.fail("commission", job, err)
		}
		if p.notifier == nil {
			return nil
		}
		if err := p.notifier.NotifyCommission(ctx, job.OrgID, job.MovementID); err != nil {
			return p.fail("notification", job, err)
		}
		return nil
	case JobCommissionReversal:
		if err := p.commissions.ReverseSale(ctx, job.OrgID, job.MovementID); err != nil {
			return p.fail("commission_reversal", job, err)
		}
		return nil
	}
	return domain.Invalid("kind", "tipo de trabajo desconocido: "+string(job.Kind))
}

func (p *SideEffectProcessor) fail(dep string, job SideEffectJob, err error) error {
	depErr := &domain.DependencyError{Dependency: dep, MovementID: job.MovementID, Err: err}
	p.log.Error().Err(err).
		Str("dependency", dep).
		Str("org_id", job.OrgID).
		Str("movement_id", job.MovementID).
		Msg("efecto secundario fallido")
	return depErr
}

// InlineDispatcher ejecuta cada trabajo en una goroutine propia con context.Background() y
// timeout, desacoplado del ciclo HTTP. Se usa cuando no hay Redis.
type InlineDispatcher struct {
	processor *SideEffectProcessor
	timeout   time.Duration
}

// NewInlineDispatcher timeout <= 0 usa 30 s.
func NewInlineDispatcher(processor *SideEffectProcessor, timeout time.Duration) *InlineDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InlineDispatcher{processor: processor, timeout: timeout}
}

// Dispatch nunca bloquea al caller.
func (d *InlineDispatcher) Dispatch(_ context.Context, job SideEffectJob) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		_ = d.processor.Handle(ctx, job)
	}()
	return nil
}

// SyncDispatcher ejecuta el trabajo en la misma goroutine.
type SyncDispatcher struct {
	Processor *SideEffectProcessor
}

// Dispatch procesa y descarta el error: ya quedó registrado.
func (d SyncDispatcher) Dispatch(ctx context.Context, job SideEffectJob) error {
	_ = d.Processor.Handle(ctx, job)
	return nil
}

func dispatch(ctx context.Context, d SideEffectDispatcher, log zerolog.Logger, job SideEffectJob) {
	if d == nil {
		return
	}
	if err := d.Dispatch(ctx, job); err != nil {
		log.Error().Err(err).
			Str("org_id", job.OrgID).
			Str("movement_id", job.MovementID).
			Str("kind", string(job.Kind)).
			Msg("no se pudo encolar efecto secundario")
	}
}
