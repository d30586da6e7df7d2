package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/testutil/memstore"
)

const (
	orgID      = "org-1"
	bpcID      = "pep-bpc"
	capsuleID  = "pep-caps"
	contactID  = "contact-1"
	walkInID   = "contact-2"
	repID      = "rep-1"
	operatorID = "user-1"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── Dobles ────────────────────────────────────────────────────────────────────

// recordingDispatcher guarda los trabajos encolados.
type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []inventory.SideEffectJob
}

func (r *recordingDispatcher) Dispatch(_ context.Context, job inventory.SideEffectJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingDispatcher) Jobs() []inventory.SideEffectJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]inventory.SideEffectJob(nil), r.jobs...)
}

// recordingPublisher guarda las señales publicadas.
type recordingPublisher struct {
	mu      sync.Mutex
	signals []inventory.Invalidation
}

func (p *recordingPublisher) Publish(_ context.Context, signals ...inventory.Invalidation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, signals...)
	return nil
}

func (p *recordingPublisher) Entities() []inventory.Entity {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]inventory.Entity, 0, len(p.signals))
	for _, s := range p.signals {
		out = append(out, s.Entity)
	}
	return out
}

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	store      *memstore.Store
	pub        *recordingPublisher
	dispatcher *recordingDispatcher
	lots       *inventory.LotRegistry
	pool       *inventory.BottlePool
	ledger     *inventory.MovementLedger
	vials      *inventory.ClientInventoryTracker
	restock    *inventory.RestockEngine
	audit      *inventory.Reconciliation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memstore.New()
	s.PutPeptide(&entity.Peptide{ID: bpcID, OrgID: orgID, Name: "BPC-157 5mg", Reconstitutable: true})
	s.PutPeptide(&entity.Peptide{ID: capsuleID, OrgID: orgID, Name: "NAD+ Capsules", Reconstitutable: false})
	s.PutContact(&entity.Contact{ID: contactID, OrgID: orgID, Name: "Ana", AssignedRepID: repID})
	s.PutContact(&entity.Contact{ID: walkInID, OrgID: orgID, Name: "Walk-in"})

	log := zerolog.Nop()
	pub := &recordingPublisher{}
	disp := &recordingDispatcher{}
	tx := s.TxRunner()
	pool := inventory.NewBottlePool(tx, s.Bottles(), nil, pub, log)

	return &fixture{
		store:      s,
		pub:        pub,
		dispatcher: disp,
		lots:       inventory.NewLotRegistry(tx, s.Lots(), s.Peptides(), pub, log),
		pool:       pool,
		ledger:     inventory.NewMovementLedger(tx, pool, s.Movements(), s.Peptides(), s.Contacts(), disp, pub, log),
		vials:      inventory.NewClientInventoryTracker(s.Vials(), s.Peptides(), s.Contacts(), pub, log),
		restock:    inventory.NewRestockEngine(tx, disp, pub, log),
		audit:      inventory.NewReconciliation(s.Lots(), s.Bottles(), s.Movements(), s.Vials(), log),
	}
}

// receive crea un lote y devuelve sus botellas en orden FIFO.
func (f *fixture) receive(t *testing.T, peptideID, lotNumber string, qty int) (*entity.Lot, []*entity.BottleDetail) {
	t.Helper()
	lot, err := f.lots.ReceiveLot(context.Background(), inventory.ReceiveLotInput{
		OrgID:            orgID,
		PeptideID:        peptideID,
		LotNumber:        lotNumber,
		CostPerUnit:      d("12.50"),
		QuantityReceived: qty,
	})
	require.NoError(t, err)
	// created_at distinto por lote para que el orden FIFO sea estable.
	time.Sleep(2 * time.Millisecond)
	bottles, err := f.store.Bottles().ListByLot(context.Background(), orgID, lot.ID)
	require.NoError(t, err)
	out := make([]*entity.BottleDetail, len(bottles))
	for i, b := range bottles {
		out[i] = &entity.BottleDetail{Bottle: *b, LotNumber: lot.LotNumber, PeptideID: peptideID}
	}
	return lot, out
}

// sell vende las botellas dadas al contacto principal.
func (f *fixture) sell(t *testing.T, price string, bottles ...*entity.BottleDetail) *entity.Movement {
	t.Helper()
	items := make([]inventory.ItemInput, len(bottles))
	for i, b := range bottles {
		items[i] = inventory.ItemInput{BottleID: b.ID, PriceAtSale: d(price)}
	}
	m, err := f.ledger.RecordSale(context.Background(), inventory.MovementInput{
		OrgID:     orgID,
		ContactID: contactID,
		CreatedBy: operatorID,
		Items:     items,
	})
	require.NoError(t, err)
	return m
}
