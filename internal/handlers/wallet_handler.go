package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/x402-pay/internal/interfaces"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
	"github.com/akylbek/payment-system/x402-pay/internal/wallet"
)

type WalletHandler struct {
	signer      *wallet.Signer
	facilitator interfaces.Facilitator
}

func NewWalletHandler(signer *wallet.Signer, facilitator interfaces.Facilitator) *WalletHandler {
	return &WalletHandler{signer: signer, facilitator: facilitator}
}

func (h *WalletHandler) GetWallet(c *gin.Context) {
	c.JSON(http.StatusOK, h.signer.Wallet())
}

func (h *WalletHandler) Connect(c *gin.Context) {
	w, err := h.signer.Connect(c.Request.Context())
	if err != nil {
		telemetry.Logger.Warn("Wallet connect failed", zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *WalletHandler) Disconnect(c *gin.Context) {
	if err := h.signer.Disconnect(c.Request.Context()); err != nil {
		telemetry.Logger.Error("Wallet disconnect failed", zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.signer.Wallet())
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	balance, err := h.signer.Balance(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	w := h.signer.Wallet()
	c.JSON(http.StatusOK, gin.H{
		"address": w.Address,
		"balance": balance,
		"network": w.Network,
	})
}

// GetHistory lists the connected wallet's payments, newest first.
func (h *WalletHandler) GetHistory(c *gin.Context) {
	w := h.signer.Wallet()
	address := c.Query("address")
	if address == "" {
		address = w.Address
	}
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required when no wallet is connected"})
		return
	}

	history, err := h.facilitator.GetHistory(c.Request.Context(), address)
	if err != nil {
		telemetry.Logger.Error("Failed to fetch payment history", zap.String("address", address), zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "payments": history})
}
