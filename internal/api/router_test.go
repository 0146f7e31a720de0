package api

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/x402-pay/internal/announcer"
	"github.com/akylbek/payment-system/x402-pay/internal/catalog"
	"github.com/akylbek/payment-system/x402-pay/internal/facilitator"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
	"github.com/akylbek/payment-system/x402-pay/internal/repository"
	"github.com/akylbek/payment-system/x402-pay/internal/service"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
	"github.com/akylbek/payment-system/x402-pay/internal/wallet"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	reg := prometheus.NewRegistry()
	cat := catalog.Default()
	signer := wallet.NewSigner(wallet.NewMockProvider(
		wallet.WithSeedBalance(1000000),
		wallet.WithRand(rand.New(rand.NewSource(5))),
	), repository.NewMemoryRestoreStore())
	fac := facilitator.NewSimulator(facilitator.WithCatalog(cat))
	recorder := announcer.NewRecorder(0)
	session := service.NewSession(signer, fac,
		service.WithConfig(service.SessionConfig{PollInterval: time.Millisecond, CallTimeout: time.Second}),
		service.WithAnnouncer(recorder),
		service.WithMetrics(telemetry.NewMetrics(reg)),
	)

	return NewRouter(Dependencies{
		Signer:      signer,
		Facilitator: fac,
		Session:     session,
		Catalog:     cat,
		Recorder:    recorder,
		Gatherer:    reg,
	})
}

func do(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestListServices(t *testing.T) {
	r := setupRouter(t)

	var resp struct {
		Services   []models.Service `json:"services"`
		Categories []string         `json:"categories"`
	}
	w := do(r, http.MethodGet, "/services?category=taxes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Len(t, resp.Services, 3)
	assert.Len(t, resp.Categories, 4)

	w = do(r, http.MethodGet, "/services?q=water&locale=en", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Services)
	assert.Equal(t, "water", resp.Services[0].ID)

	w = do(r, http.MethodGet, "/services/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProtectedResourceChallenge(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodGet, "/api/services/water", nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "25000", w.Header().Get(models.HeaderPaymentAmount))
	assert.NotEmpty(t, w.Header().Get(models.HeaderPaymentAddress))

	w = do(r, http.MethodGet, "/api/services/water", nil, models.HeaderPaymentProof, "bogus")
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_AUTHORIZED"`)
}

func TestStartPaymentRequiresWallet(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/payments", gin.H{"service_id": "water"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Wallet not connected")

	w = do(r, http.MethodGet, "/wallet/balance", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStartPaymentValidation(t *testing.T) {
	r := setupRouter(t)
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/wallet/connect", nil).Code)

	w := do(r, http.MethodPost, "/payments", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/payments", gin.H{"service_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/wallet/connect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var connected models.Wallet
	decode(t, w, &connected)
	assert.True(t, connected.Connected)

	w = do(r, http.MethodPost, "/payments", gin.H{"service_id": "water"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var started models.SessionSnapshot
	decode(t, w, &started)
	require.NotEmpty(t, started.ID)

	var snap models.SessionSnapshot
	require.Eventually(t, func() bool {
		w := do(r, http.MethodGet, "/payments/session", nil)
		snap = models.SessionSnapshot{}
		decode(t, w, &snap)
		return snap.State == models.StateConfirmed || snap.State == models.StateFailed
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, models.StateConfirmed, snap.State, snap.Error)
	require.NotNil(t, snap.Confirmation)

	var events struct {
		Events []models.SessionEvent `json:"events"`
	}
	w = do(r, http.MethodGet, "/payments/events?session_id="+started.ID, nil)
	decode(t, w, &events)
	assert.Len(t, events.Events, 6)

	var history struct {
		Payments []models.PaymentConfirmation `json:"payments"`
	}
	w = do(r, http.MethodGet, "/wallet/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &history)
	require.Len(t, history.Payments, 1)
	assert.Equal(t, snap.Confirmation.TxID, history.Payments[0].TxID)

	w = do(r, http.MethodGet, "/api/services/water", nil, models.HeaderPaymentProof, snap.Confirmation.TxID)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/wallet/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":974950`)

	w = do(r, http.MethodPost, "/payments/session/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &snap)
	assert.Equal(t, models.StateIdle, snap.State)

	w = do(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "x402pay_session_outcomes_total")
}

func TestPreferences(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPut, "/payments/preferences", gin.H{"locale": "en", "detail_level": "technical"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"locale":"en","detail_level":"technical"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/services/water", nil)
	assert.Equal(t, "en", w.Header().Get(models.HeaderLanguage))

	w = do(r, http.MethodPut, "/payments/preferences", gin.H{"locale": "fr"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWalletDisconnect(t *testing.T) {
	r := setupRouter(t)
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/wallet/connect", nil).Code)

	w := do(r, http.MethodPost, "/wallet/disconnect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodPost, "/wallet/disconnect", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state models.Wallet
	decode(t, do(r, http.MethodGet, "/wallet", nil), &state)
	assert.False(t, state.Connected)
}
