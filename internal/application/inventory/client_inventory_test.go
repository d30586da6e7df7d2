package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/peptide-ledger/internal/domain/inventory"
)

// putVial guarda un vial activo con la cantidad dada.
func putVial(f *fixture, id, qty string) {
	f.store.PutVial(&entity.ClientInventory{
		ID:                id,
		OrgID:             orgID,
		ContactID:         contactID,
		PeptideID:         bpcID,
		VialSizeMg:        d("10"),
		InitialQuantityMg: d("10"),
		CurrentQuantityMg: d(qty),
		Status:            entity.VialActive,
		CreatedAt:         time.Now(),
	})
}

func TestLogDose(t *testing.T) {
	cases := []struct {
		name    string
		current string
		dose    string
		want    string
		status  entity.VialStatus
	}{
		{"resta normal", "10", "3", "7", entity.VialActive},
		{"llega a cero", "3", "3", "0", entity.VialDepleted},
		{"se recorta en cero", "0", "5", "0", entity.VialDepleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			putVial(f, "v1", tc.current)

			res, err := f.vials.LogDose(context.Background(), orgID, "v1", d(tc.current), d(tc.dose))
			require.NoError(t, err)
			assert.True(t, d(tc.want).Equal(res.CurrentMg), "got %s", res.CurrentMg)
			assert.Equal(t, tc.status, res.Status)

			stored, err := f.store.Vials().GetByID(context.Background(), orgID, "v1")
			require.NoError(t, err)
			assert.True(t, d(tc.want).Equal(stored.CurrentQuantityMg))
			assert.Equal(t, tc.status, stored.Status)
		})
	}
}

func TestLogDose_CompareAndSet(t *testing.T) {
	f := newFixture(t)
	putVial(f, "v1", "10")

	// dos clientes leyeron 10; el segundo debe releer
	_, err := f.vials.LogDose(context.Background(), orgID, "v1", d("10"), d("2"))
	require.NoError(t, err)
	_, err = f.vials.LogDose(context.Background(), orgID, "v1", d("10"), d("2"))
	assert.ErrorIs(t, err, domain.ErrConflict)

	res, err := f.vials.LogDose(context.Background(), orgID, "v1", d("8"), d("2"))
	require.NoError(t, err)
	assert.True(t, d("6").Equal(res.CurrentMg))
}

func TestLogDose_Validaciones(t *testing.T) {
	f := newFixture(t)
	putVial(f, "v1", "10")

	_, err := f.vials.LogDose(context.Background(), orgID, "v1", d("10"), d("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.vials.LogDose(context.Background(), orgID, "v1", d("-1"), d("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.vials.LogDose(context.Background(), orgID, "nope", d("10"), d("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReconstitute(t *testing.T) {
	f := newFixture(t)
	putVial(f, "v1", "10")

	v, err := f.vials.Reconstitute(context.Background(), orgID, "v1", d("2"), d("10"))
	require.NoError(t, err)
	require.NotNil(t, v.ConcentrationMgMl)
	assert.True(t, d("5").Equal(*v.ConcentrationMgMl))
	require.NotNil(t, v.ReconstitutedAt)

	_, err = f.vials.Reconstitute(context.Background(), orgID, "v1", d("2"), d("10"))
	assert.ErrorIs(t, err, domain.ErrConflict)

	putVial(f, "v2", "10")
	_, err = f.vials.Reconstitute(context.Background(), orgID, "v2", d("0"), d("10"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.vials.Reconstitute(context.Background(), orgID, "v2", d("2"), d("5"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "más pequeño que lo que queda")

	// tamaño cero usa el registrado
	v, err = f.vials.Reconstitute(context.Background(), orgID, "v2", d("4"), d("0"))
	require.NoError(t, err)
	assert.True(t, d("2.5").Equal(*v.ConcentrationMgMl))

	putVial(f, "v3", "10")
	_, err = f.vials.SetSchedule(context.Background(), orgID, "v3", d("0.25"), nil)
	require.NoError(t, err)
	dose, err := f.vials.Reconstitute(context.Background(), orgID, "v3", d("2"), d("10"))
	require.NoError(t, err)
	res, err := f.vials.LogDose(context.Background(), orgID, "v3", d("10"), *dose.DoseAmountMg)
	require.NoError(t, err)
	assert.True(t, d("0.05").Equal(res.VolumeMl), "0.25 mg a 5 mg/ml")
}

func TestSetSchedule(t *testing.T) {
	f := newFixture(t)
	putVial(f, "v1", "10")

	v, err := f.vials.SetSchedule(context.Background(), orgID, "v1", d("0.5"), []string{"Fri", "monday", "fri"})
	require.NoError(t, err)
	assert.Equal(t, []entity.Weekday{entity.Monday, entity.Friday}, v.DoseDays)
	assert.True(t, d("0.5").Equal(*v.DoseAmountMg))

	_, err = f.vials.SetSchedule(context.Background(), orgID, "v1", d("0"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.vials.SetSchedule(context.Background(), orgID, "v1", d("1"), []string{"someday"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMarkEmpty(t *testing.T) {
	f := newFixture(t)
	putVial(f, "v1", "7")

	require.NoError(t, f.vials.MarkEmpty(context.Background(), orgID, "v1"))
	stored, err := f.store.Vials().GetByID(context.Background(), orgID, "v1")
	require.NoError(t, err)
	assert.True(t, stored.CurrentQuantityMg.IsZero())
	assert.Equal(t, entity.VialDepleted, stored.Status)

	active, err := f.vials.ListForContact(context.Background(), orgID, contactID, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := f.vials.ListForContact(context.Background(), orgID, contactID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, f.vials.MarkEmpty(context.Background(), orgID, "nope"), domain.ErrNotFound)
}

func TestAddManualVial(t *testing.T) {
	f := newFixture(t)

	v, err := f.vials.AddManualVial(context.Background(), inventory.ManualVialInput{
		OrgID: orgID, ContactID: contactID, PeptideID: bpcID, BatchNumber: "EXT-1",
	})
	require.NoError(t, err)
	assert.Empty(t, v.MovementID)
	assert.True(t, d("5").Equal(v.VialSizeMg))
	assert.True(t, d("5").Equal(v.CurrentQuantityMg))

	_, err = f.vials.AddManualVial(context.Background(), inventory.ManualVialInput{
		OrgID: orgID, ContactID: contactID, PeptideID: bpcID, VialSizeMg: d("2"), CurrentQuantityMg: d("3"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.vials.AddManualVial(context.Background(), inventory.ManualVialInput{
		OrgID: orgID, ContactID: "nobody", PeptideID: bpcID,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// un vial manual no es huérfano
	rep, err := f.audit.Audit(context.Background(), orgID)
	require.NoError(t, err)
	assert.True(t, rep.Clean())
}

func TestSupply(t *testing.T) {
	f := newFixture(t)
	putVial(f, "v1", "10")
	putVial(f, "v2", "4")

	rep, err := f.vials.Supply(context.Background(), orgID, contactID, bpcID)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.ActiveVials)
	assert.True(t, d("14").Equal(rep.TotalMg))
	assert.Equal(t, domaininv.SupplyDepleted, rep.Status, "sin dosis no hay consumo calculable")

	_, err = f.vials.SetSchedule(context.Background(), orgID, "v1", d("1"), []string{"mon", "wed", "fri"})
	require.NoError(t, err)
	rep, err = f.vials.Supply(context.Background(), orgID, contactID, bpcID)
	require.NoError(t, err)
	// 3 mg por semana: 14 / (3/7) = 32.67 días
	assert.Equal(t, 32, rep.DaysRemaining)
	assert.Equal(t, domaininv.SupplyAdequate, rep.Status)

	_, err = f.vials.SetSchedule(context.Background(), orgID, "v1", d("3"), nil)
	require.NoError(t, err)
	rep, err = f.vials.Supply(context.Background(), orgID, contactID, bpcID)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.DaysRemaining)
	assert.Equal(t, domaininv.SupplyLow, rep.Status)
}
