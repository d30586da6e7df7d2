package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/peptide-ledger/internal/infrastructure/notify"
)

func TestNotifyCommission_EnviaVentaYToken(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true,"notified":1}`))
	}))
	defer srv.Close()

	c := notify.NewClient(srv.URL, "tok", time.Second)
	require.NoError(t, c.NotifyCommission(context.Background(), "org-1", "mov-1"))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, map[string]string{"org_id": "org-1", "sale_id": "mov-1"}, gotBody)
}

func TestNotifyCommission_ErrorHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "TEXTBELT_API_KEY not set", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := notify.NewClient(srv.URL, "", time.Second).NotifyCommission(context.Background(), "org-1", "mov-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "TEXTBELT_API_KEY")
}

func TestNotifyCommission_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	err := notify.NewClient(srv.URL, "", 20*time.Millisecond).NotifyCommission(context.Background(), "org-1", "mov-1")
	assert.Error(t, err)
}
