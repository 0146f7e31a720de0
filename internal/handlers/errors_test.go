package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.NewPaymentError(models.ErrCodeNotConnected, "Wallet not connected", nil), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", models.ErrSessionInProgress), http.StatusConflict},
		{models.NewPaymentError(models.ErrCodeTimeout, "slow", nil), http.StatusGatewayTimeout},
		{models.NewPaymentError(models.ErrCodeNotAuthorized, "pay first", nil), http.StatusPaymentRequired},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestWriteErrorCarriesMetadata(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := models.NewPaymentError(models.ErrCodeSettlement, "Error processing payment. Please try again.", nil).
		WithAccessibility(&models.AccessibilityMetadata{PlainLanguage: "Error processing payment. Please try again."}).
		WithDetails("txid", "abc")
	writeError(c, err)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SETTLEMENT_FAILED", body["code"])
	assert.Equal(t, "Error processing payment. Please try again.", body["error"])
	assert.NotNil(t, body["accessibility"])
	assert.Equal(t, map[string]any{"txid": "abc"}, body["details"])
}
