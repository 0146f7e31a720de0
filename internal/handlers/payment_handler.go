package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/x402-pay/internal/announcer"
	"github.com/akylbek/payment-system/x402-pay/internal/catalog"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
	"github.com/akylbek/payment-system/x402-pay/internal/service"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
)

type PaymentHandler struct {
	session  *service.Session
	catalog  *catalog.Catalog
	recorder *announcer.Recorder
}

func NewPaymentHandler(session *service.Session, cat *catalog.Catalog, recorder *announcer.Recorder) *PaymentHandler {
	return &PaymentHandler{
		session:  session,
		catalog:  cat,
		recorder: recorder,
	}
}

type startPaymentRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
}

// StartPayment begins a payment attempt in the background and answers
// 202 with the session id.
func (h *PaymentHandler) StartPayment(c *gin.Context) {
	var req startPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.Logger.Error("Error decoding payment request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	svc, ok := h.catalog.Get(req.ServiceID)
	if !ok {
		writeError(c, models.ErrUnknownService)
		return
	}

	// The attempt outlives the request.
	if _, err := h.session.StartAsync(context.WithoutCancel(c.Request.Context()), svc); err != nil {
		telemetry.Logger.Warn("Payment session rejected",
			zap.String("service_id", svc.ID),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, h.session.Snapshot())
}

func (h *PaymentHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

func (h *PaymentHandler) CloseSession(c *gin.Context) {
	if err := h.session.Close(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// GetEvents lists recorded announcements, optionally for one session.
func (h *PaymentHandler) GetEvents(c *gin.Context) {
	var events []models.SessionEvent
	if id := c.Query("session_id"); id != "" {
		events = h.recorder.Session(id)
	} else {
		events = h.recorder.Events()
	}
	if events == nil {
		events = []models.SessionEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type preferencesRequest struct {
	Locale      string `json:"locale" binding:"omitempty,oneof=es en"`
	DetailLevel string `json:"detail_level" binding:"omitempty,oneof=simple standard technical"`
}

func (h *PaymentHandler) SetPreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if locale, ok := models.ParseLocale(req.Locale); ok {
		h.session.SetLocale(locale)
	}
	if level, ok := models.ParseDetailLevel(req.DetailLevel); ok {
		h.session.SetDetailLevel(level)
	}
	c.JSON(http.StatusOK, gin.H{
		"locale":       h.session.Locale(),
		"detail_level": h.session.DetailLevel(),
	})
}
