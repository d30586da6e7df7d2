package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain"
)

type fakeCommissions struct {
	err      error
	sales    []string
	reversed []string
	done     chan struct{}
}

func (c *fakeCommissions) ProcessSale(_ context.Context, _, movementID string) error {
	c.sales = append(c.sales, movementID)
	if c.done != nil {
		defer close(c.done)
	}
	return c.err
}

func (c *fakeCommissions) ReverseSale(_ context.Context, _, movementID string) error {
	c.reversed = append(c.reversed, movementID)
	return c.err
}

type fakeNotifier struct {
	err  error
	sent []string
}

func (n *fakeNotifier) NotifyCommission(_ context.Context, _, movementID string) error {
	n.sent = append(n.sent, movementID)
	return n.err
}

func TestSideEffectProcessor_ComisionYNotificacion(t *testing.T) {
	c, n := &fakeCommissions{}, &fakeNotifier{}
	p := inventory.NewSideEffectProcessor(c, n, zerolog.Nop())

	require.NoError(t, p.Handle(context.Background(), inventory.SideEffectJob{Kind: inventory.JobCommission, OrgID: orgID, MovementID: "m1"}))
	assert.Equal(t, []string{"m1"}, c.sales)
	assert.Equal(t, []string{"m1"}, n.sent)
}

func TestSideEffectProcessor_SinComisionNoHayNotificacion(t *testing.T) {
	c, n := &fakeCommissions{err: errors.New("rpc down")}, &fakeNotifier{}
	p := inventory.NewSideEffectProcessor(c, n, zerolog.Nop())

	err := p.Handle(context.Background(), inventory.SideEffectJob{Kind: inventory.JobCommission, OrgID: orgID, MovementID: "m1"})
	var de *domain.DependencyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "commission", de.Dependency)
	assert.Equal(t, "m1", de.MovementID)
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.Empty(t, n.sent)
}

func TestSideEffectProcessor_FalloDeNotificacion(t *testing.T) {
	c, n := &fakeCommissions{}, &fakeNotifier{err: errors.New("sms 503")}
	p := inventory.NewSideEffectProcessor(c, n, zerolog.Nop())

	err := p.Handle(context.Background(), inventory.SideEffectJob{Kind: inventory.JobCommission, OrgID: orgID, MovementID: "m1"})
	var de *domain.DependencyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "notification", de.Dependency)
}

func TestSideEffectProcessor_Reversion(t *testing.T) {
	c := &fakeCommissions{}
	p := inventory.NewSideEffectProcessor(c, nil, zerolog.Nop())

	require.NoError(t, p.Handle(context.Background(), inventory.SideEffectJob{Kind: inventory.JobCommissionReversal, OrgID: orgID, MovementID: "m1"}))
	assert.Equal(t, []string{"m1"}, c.reversed)

	err := p.Handle(context.Background(), inventory.SideEffectJob{Kind: "bonus"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSaleSobreviveAFalloDeComision(t *testing.T) {
	f := newFixture(t)
	_, bottles := f.receive(t, bpcID, "DEP", 1)

	c := &fakeCommissions{err: errors.New("rpc down"), done: make(chan struct{})}
	n := &fakeNotifier{}
	disp := inventory.NewInlineDispatcher(inventory.NewSideEffectProcessor(c, n, zerolog.Nop()), time.Second)
	ledger := inventory.NewMovementLedger(f.store.TxRunner(), f.pool, f.store.Movements(), f.store.Peptides(), f.store.Contacts(), disp, nil, zerolog.Nop())

	m, err := ledger.RecordSale(context.Background(), inventory.MovementInput{
		OrgID: orgID, ContactID: contactID,
		Items: []inventory.ItemInput{{BottleID: bottles[0].ID, PriceAtSale: d("10")}},
	})
	require.NoError(t, err)

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("la comisión no se ejecutó")
	}
	stored, err := ledger.GetMovement(context.Background(), orgID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, stored.ID)
	assert.Empty(t, n.sent)
}

func TestSyncDispatcher_VentaYReversionEnLinea(t *testing.T) {
	f := newFixture(t)
	_, bottles := f.receive(t, bpcID, "SYNC", 1)

	c, n := &fakeCommissions{}, &fakeNotifier{}
	disp := inventory.SyncDispatcher{Processor: inventory.NewSideEffectProcessor(c, n, zerolog.Nop())}
	ledger := inventory.NewMovementLedger(f.store.TxRunner(), f.pool, f.store.Movements(), f.store.Peptides(), f.store.Contacts(), disp, nil, zerolog.Nop())
	restock := inventory.NewRestockEngine(f.store.TxRunner(), disp, nil, zerolog.Nop())

	m, err := ledger.RecordSale(context.Background(), inventory.MovementInput{
		OrgID: orgID, ContactID: contactID,
		Items: []inventory.ItemInput{{BottleID: bottles[0].ID, PriceAtSale: d("40")}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, c.sales)
	assert.Equal(t, []string{m.ID}, n.sent)

	_, err = restock.RevertMovement(context.Background(), orgID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, c.reversed)
}

func TestSyncDispatcher_FalloNoLlegaAlLlamador(t *testing.T) {
	c := &fakeCommissions{err: errors.New("rpc down")}
	disp := inventory.SyncDispatcher{Processor: inventory.NewSideEffectProcessor(c, nil, zerolog.Nop())}

	err := disp.Dispatch(context.Background(), inventory.SideEffectJob{Kind: inventory.JobCommission, OrgID: orgID, MovementID: "m1"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"m1"}, c.sales)
}
