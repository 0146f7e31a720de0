package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{models.ErrNoProvider, http.StatusServiceUnavailable},
	{models.ErrNotConnected, http.StatusConflict},
	{models.ErrSessionInProgress, http.StatusConflict},
	{models.ErrNoSession, http.StatusConflict},
	{models.ErrSessionActive, http.StatusConflict},
	{models.ErrUnknownService, http.StatusNotFound},
	{models.ErrNotAuthorized, http.StatusPaymentRequired},
	{models.ErrUserRejected, http.StatusUnprocessableEntity},
	{models.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{models.ErrSettlement, http.StatusBadGateway},
	{models.ErrTransport, http.StatusBadGateway},
	{models.ErrUnexpectedStatus, http.StatusBadGateway},
	{models.ErrTimeout, http.StatusGatewayTimeout},
}

func statusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError renders err with its code and accessibility metadata when it
// carries them.
func writeError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}

	var perr *models.PaymentError
	if errors.As(err, &perr) {
		body["code"] = perr.Code
		if perr.Accessibility != nil {
			body["accessibility"] = perr.Accessibility
		}
		if len(perr.Details) > 0 {
			body["details"] = perr.Details
		}
	}
	c.JSON(statusFor(err), body)
}
