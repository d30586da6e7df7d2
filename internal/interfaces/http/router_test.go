package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	apphttp "github.com/jhoicas/peptide-ledger/internal/interfaces/http"
	"github.com/jhoicas/peptide-ledger/internal/testutil/memstore"
	pkgjwt "github.com/jhoicas/peptide-ledger/pkg/jwt"
)

const (
	bpcID     = "pep-bpc"
	contactID = "contact-1"
)

// fakeReceipts devuelve un PDF mínimo.
type fakeReceipts struct{}

func (fakeReceipts) RenderReceipt(_ context.Context, r *inventory.Receipt) ([]byte, error) {
	return []byte("%PDF-1.4 " + r.Movement.ID), nil
}

type apiFixture struct {
	app   *fiber.App
	store *memstore.Store
}

func newAPI(t *testing.T, receipts inventory.ReceiptRenderer, ping func(context.Context) error) *apiFixture {
	t.Helper()
	s := memstore.New()
	s.PutPeptide(&entity.Peptide{ID: bpcID, OrgID: testOrgID, Name: "BPC-157 5mg", Reconstitutable: true})
	s.PutContact(&entity.Contact{ID: contactID, OrgID: testOrgID, Name: "Ana"})

	log := zerolog.Nop()
	pub := inventory.LogPublisher{Log: log}
	tx := s.TxRunner()
	var dispatcher inventory.SideEffectDispatcher // sin comisiones
	pool := inventory.NewBottlePool(tx, s.Bottles(), nil, pub, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Lots:           inventory.NewLotRegistry(tx, s.Lots(), s.Peptides(), pub, log),
		Bottles:        pool,
		Ledger:         inventory.NewMovementLedger(tx, pool, s.Movements(), s.Peptides(), s.Contacts(), dispatcher, pub, log),
		Restock:        inventory.NewRestockEngine(tx, dispatcher, pub, log),
		Vials:          inventory.NewClientInventoryTracker(s.Vials(), s.Peptides(), s.Contacts(), pub, log),
		Reconciliation: inventory.NewReconciliation(s.Lots(), s.Bottles(), s.Movements(), s.Vials(), log),
		Receipts:       receipts,
		Ping:           ping,
		ServiceName:    "peptide-ledger-test",
		JWTSecret:      testJWTSecret,
		JWTIssuer:      testIssuer,
		Log:            log,
	})
	return &apiFixture{app: app, store: s}
}

// call envía la petición con el rol dado (vacío = sin token) y decodifica el JSON en out.
func (f *apiFixture) call(t *testing.T, method, path, role string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, out), string(raw))
		}
	}
	return resp.StatusCode
}

type lotBody struct {
	ID string `json:"id"`
}

type movementBody struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Total         string `json:"total"`
	AmountPaid    string `json:"amount_paid"`
	Items         []struct {
		BottleID string `json:"bottle_id"`
	} `json:"items"`
}

type errorBody struct {
	Code      string   `json:"code"`
	BottleIDs []string `json:"bottle_ids"`
}

func (f *apiFixture) receiveLot(t *testing.T, lotNumber string, qty int) string {
	t.Helper()
	var lot lotBody
	status := f.call(t, http.MethodPost, "/api/lots", pkgjwt.RoleOperator, map[string]any{
		"peptide_id":        bpcID,
		"lot_number":        lotNumber,
		"cost_per_unit":     "12.50",
		"quantity_received": qty,
		"received_date":     "2026-01-15",
	}, &lot)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, lot.ID)
	return lot.ID
}

func (f *apiFixture) sellFIFO(t *testing.T, count int) movementBody {
	t.Helper()
	var m movementBody
	status := f.call(t, http.MethodPost, "/api/movements/sales", pkgjwt.RoleOperator, map[string]any{
		"contact_id": contactID,
		"lines":      []map[string]any{{"peptide_id": bpcID, "count": count, "unit_price": "40"}},
	}, &m)
	require.Equal(t, http.StatusCreated, status)
	return m
}

func TestHealth(t *testing.T) {
	f := newAPI(t, nil, nil)
	var body map[string]any
	assert.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/health", "", nil, &body))
	assert.Equal(t, "ok", body["status"])

	down := newAPI(t, nil, func(context.Context) error { return errors.New("sin conexión") })
	assert.Equal(t, http.StatusServiceUnavailable, down.call(t, http.MethodGet, "/health", "", nil, &body))
	assert.Equal(t, "degraded", body["status"])
}

func TestHealth_ReportaColaDeFallidos(t *testing.T) {
	health := func(deadLetters func(context.Context) (int64, error)) (int, map[string]any) {
		app := fiber.New()
		apphttp.Router(app, apphttp.RouterDeps{ServiceName: "peptide-ledger-test", DeadLetters: deadLetters, Log: zerolog.Nop()})
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	status, body := health(func(context.Context) (int64, error) { return 3, nil })
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["dead_letters"])

	status, body = health(func(context.Context) (int64, error) { return 0, errors.New("redis caído") })
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
	assert.NotContains(t, body, "dead_letters")
}

func TestAPI_RequiereToken(t *testing.T) {
	f := newAPI(t, nil, nil)
	var e errorBody
	assert.Equal(t, http.StatusUnauthorized, f.call(t, http.MethodGet, "/api/lots", "", nil, &e))
	assert.Equal(t, "MISSING_TOKEN", e.Code)
}

func TestLots_RecibirYListarDisponibles(t *testing.T) {
	f := newAPI(t, nil, nil)
	lotID := f.receiveLot(t, "L-100", 3)

	var avail struct {
		Items []struct {
			UID    string `json:"uid"`
			LotID  string `json:"lot_id"`
			Status string `json:"status"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/api/bottles/available?peptide_id="+bpcID, pkgjwt.RoleOperator, nil, &avail))
	require.Len(t, avail.Items, 3)
	assert.Equal(t, "L-100-001", avail.Items[0].UID)
	assert.Equal(t, lotID, avail.Items[0].LotID)
	assert.Equal(t, "in_stock", avail.Items[0].Status)

	var stats map[string]int
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/api/bottles/stats", pkgjwt.RoleOperator, nil, &stats))
	assert.Equal(t, 3, stats["in_stock"])
}

func TestLots_ErroresDeValidacionYDuplicado(t *testing.T) {
	f := newAPI(t, nil, nil)
	var e errorBody

	status := f.call(t, http.MethodPost, "/api/lots", pkgjwt.RoleOperator, map[string]any{
		"peptide_id": bpcID, "lot_number": "L-1", "quantity_received": 0,
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", e.Code)

	status = f.call(t, http.MethodPost, "/api/lots", pkgjwt.RoleOperator, map[string]any{
		"peptide_id": bpcID, "lot_number": "L-1", "quantity_received": 1, "received_date": "15/01/2026",
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)

	f.receiveLot(t, "L-1", 1)
	status = f.call(t, http.MethodPost, "/api/lots", pkgjwt.RoleOperator, map[string]any{
		"peptide_id": bpcID, "lot_number": "L-1", "quantity_received": 1,
	}, &e)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", e.Code)
}

func TestLots_EdicionSoloAdmin(t *testing.T) {
	f := newAPI(t, nil, nil)
	lotID := f.receiveLot(t, "L-7", 1)
	body := map[string]any{"notes": "corregido"}

	assert.Equal(t, http.StatusForbidden, f.call(t, http.MethodPatch, "/api/lots/"+lotID, pkgjwt.RoleOperator, body, nil))
	assert.Equal(t, http.StatusOK, f.call(t, http.MethodPatch, "/api/lots/"+lotID, pkgjwt.RoleAdmin, body, nil))

	assert.Equal(t, http.StatusForbidden, f.call(t, http.MethodDelete, "/api/lots/"+lotID, pkgjwt.RoleOperator, nil, nil))
	assert.Equal(t, http.StatusNoContent, f.call(t, http.MethodDelete, "/api/lots/"+lotID, pkgjwt.RoleAdmin, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.call(t, http.MethodGet, "/api/lots/"+lotID, pkgjwt.RoleOperator, nil, nil))
}

func TestMovements_VentaFIFOyStockInsuficiente(t *testing.T) {
	f := newAPI(t, nil, nil)
	f.receiveLot(t, "L-1", 2)

	m := f.sellFIFO(t, 2)
	assert.Equal(t, "sale", m.Type)
	assert.Equal(t, "active", m.Status)
	assert.Equal(t, "80", m.Total)
	assert.Equal(t, "unpaid", m.PaymentStatus)
	require.Len(t, m.Items, 2)

	var e errorBody
	status := f.call(t, http.MethodPost, "/api/movements/sales", pkgjwt.RoleOperator, map[string]any{
		"contact_id": contactID,
		"lines":      []map[string]any{{"peptide_id": bpcID, "count": 1, "unit_price": "40"}},
	}, &e)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
}

func TestMovements_VentaExplicitaDeBotellaVendida(t *testing.T) {
	f := newAPI(t, nil, nil)
	f.receiveLot(t, "L-1", 1)
	first := f.sellFIFO(t, 1)
	bottleID := first.Items[0].BottleID

	var e errorBody
	status := f.call(t, http.MethodPost, "/api/movements/sales", pkgjwt.RoleOperator, map[string]any{
		"contact_id": contactID,
		"items":      []map[string]any{{"bottle_id": bottleID, "price_at_sale": "40"}},
	}, &e)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", e.Code)
	assert.Equal(t, []string{bottleID}, e.BottleIDs)
}

func TestMovements_PagoRestockYRevert(t *testing.T) {
	f := newAPI(t, nil, nil)
	f.receiveLot(t, "L-1", 2)
	m := f.sellFIFO(t, 2)

	var paid movementBody
	require.Equal(t, http.StatusOK, f.call(t, http.MethodPost, "/api/movements/"+m.ID+"/payments", pkgjwt.RoleOperator, map[string]any{"amount": "30"}, &paid))
	assert.Equal(t, "partial", paid.PaymentStatus)
	assert.Equal(t, "30", paid.AmountPaid)

	var res struct {
		RestoredBottleIDs []string `json:"restored_bottle_ids"`
		RemovedVials      int      `json:"removed_vials"`
	}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodPost, "/api/movements/"+m.ID+"/restock", pkgjwt.RoleOperator, nil, &res))
	assert.Len(t, res.RestoredBottleIDs, 2)
	assert.Equal(t, 2, res.RemovedVials)

	var e errorBody
	assert.Equal(t, http.StatusConflict, f.call(t, http.MethodPost, "/api/movements/"+m.ID+"/restock", pkgjwt.RoleOperator, nil, &e))
	assert.Equal(t, "CONFLICT", e.Code)

	second := f.sellFIFO(t, 1)
	assert.Equal(t, http.StatusForbidden, f.call(t, http.MethodDelete, "/api/movements/"+second.ID, pkgjwt.RoleOperator, nil, nil))
	assert.Equal(t, http.StatusOK, f.call(t, http.MethodDelete, "/api/movements/"+second.ID, pkgjwt.RoleAdmin, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.call(t, http.MethodGet, "/api/movements/"+second.ID, pkgjwt.RoleOperator, nil, nil))
}

func TestMovements_AjusteYRestauracion(t *testing.T) {
	f := newAPI(t, nil, nil)
	lotID := f.receiveLot(t, "L-1", 1)
	bottles, err := f.store.Bottles().ListByLot(context.Background(), testOrgID, lotID)
	require.NoError(t, err)
	bottleID := bottles[0].ID

	var m movementBody
	require.Equal(t, http.StatusCreated, f.call(t, http.MethodPost, "/api/movements/adjustments", pkgjwt.RoleOperator, map[string]any{
		"bottle_ids": []string{bottleID}, "status": "damaged", "notes": "frasco roto",
	}, &m))
	assert.Equal(t, "adjustment", m.Type)
	assert.Equal(t, entity.BottleDamaged, f.store.BottleStatus(bottleID))

	var e errorBody
	assert.Equal(t, http.StatusBadRequest, f.call(t, http.MethodPost, "/api/movements/adjustments", pkgjwt.RoleOperator, map[string]any{
		"bottle_ids": []string{bottleID}, "status": "sold",
	}, &e))
	assert.Equal(t, "VALIDATION", e.Code)
}

func TestMovements_ListarYComprobante(t *testing.T) {
	withPDF := newAPI(t, fakeReceipts{}, nil)
	withPDF.receiveLot(t, "L-1", 1)
	m := withPDF.sellFIFO(t, 1)

	var list struct {
		Items []movementBody `json:"items"`
	}
	require.Equal(t, http.StatusOK, withPDF.call(t, http.MethodGet, "/api/movements?contact_id="+contactID, pkgjwt.RoleRep, nil, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, m.ID, list.Items[0].ID)

	req := httptest.NewRequest(http.MethodGet, "/api/movements/"+m.ID+"/receipt", nil)
	req.Header.Set("Authorization", tokenForRole(t, pkgjwt.RoleRep))
	resp, err := withPDF.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))

	noPDF := newAPI(t, nil, nil)
	assert.Equal(t, http.StatusNotImplemented, noPDF.call(t, http.MethodGet, "/api/movements/"+m.ID+"/receipt", pkgjwt.RoleRep, nil, nil))
}

func TestVials_ReconstitucionDosisYSuministro(t *testing.T) {
	f := newAPI(t, nil, nil)
	f.receiveLot(t, "L-1", 1)
	f.sellFIFO(t, 1)

	var vials struct {
		Items []struct {
			ID                string `json:"id"`
			CurrentQuantityMg string `json:"current_quantity_mg"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/api/contacts/"+contactID+"/vials", pkgjwt.RoleRep, nil, &vials))
	require.Len(t, vials.Items, 1)
	vialID := vials.Items[0].ID
	assert.Equal(t, "5", vials.Items[0].CurrentQuantityMg)

	var vial struct {
		ConcentrationMgMl string `json:"concentration_mg_ml"`
	}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodPost, "/api/vials/"+vialID+"/reconstitute", pkgjwt.RoleRep, map[string]any{"water_added_ml": "2"}, &vial))
	assert.Equal(t, "2.5", vial.ConcentrationMgMl)

	var e errorBody
	assert.Equal(t, http.StatusConflict, f.call(t, http.MethodPost, "/api/vials/"+vialID+"/reconstitute", pkgjwt.RoleRep, map[string]any{"water_added_ml": "2"}, &e))

	require.Equal(t, http.StatusOK, f.call(t, http.MethodPost, "/api/vials/"+vialID+"/schedule", pkgjwt.RoleRep, map[string]any{
		"dose_amount_mg": "0.25", "dose_days": []string{"mon", "wed", "fri"},
	}, nil))

	var dose struct {
		CurrentMg string `json:"current_mg"`
		VolumeMl  string `json:"volume_ml"`
	}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodPost, "/api/vials/"+vialID+"/doses", pkgjwt.RoleRep, map[string]any{"observed_mg": "5", "dose_mg": "0.25"}, &dose))
	assert.Equal(t, "4.75", dose.CurrentMg)
	assert.Equal(t, "0.1", dose.VolumeMl)

	// Lectura vieja: la cantidad ya cambió.
	assert.Equal(t, http.StatusConflict, f.call(t, http.MethodPost, "/api/vials/"+vialID+"/doses", pkgjwt.RoleRep, map[string]any{"observed_mg": "5", "dose_mg": "0.25"}, &e))

	var supply struct {
		ActiveVials int    `json:"active_vials"`
		TotalMg     string `json:"total_mg"`
	}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/api/contacts/"+contactID+"/supply?peptide_id="+bpcID, pkgjwt.RoleRep, nil, &supply))
	assert.Equal(t, 1, supply.ActiveVials)
	assert.Equal(t, "4.75", supply.TotalMg)

	assert.Equal(t, http.StatusNoContent, f.call(t, http.MethodPost, "/api/vials/"+vialID+"/empty", pkgjwt.RoleRep, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.call(t, http.MethodPost, "/api/vials/desconocido/empty", pkgjwt.RoleRep, nil, nil))
}

func TestReconciliation_SoloAdmin(t *testing.T) {
	f := newAPI(t, nil, nil)
	f.receiveLot(t, "L-1", 2)
	f.sellFIFO(t, 1)

	assert.Equal(t, http.StatusForbidden, f.call(t, http.MethodGet, "/api/reconciliation", pkgjwt.RoleOperator, nil, nil))

	var out struct {
		Clean  bool `json:"clean"`
		Report struct {
			Findings  []any `json:"findings"`
			Valuation []struct {
				InStock int `json:"in_stock"`
			} `json:"valuation"`
		} `json:"report"`
	}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/api/reconciliation", pkgjwt.RoleAdmin, nil, &out))
	assert.True(t, out.Clean)
	assert.Empty(t, out.Report.Findings)
	require.Len(t, out.Report.Valuation, 1)
	assert.Equal(t, 1, out.Report.Valuation[0].InStock)
}
