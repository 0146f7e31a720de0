package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/x402-pay/internal/announcer"
	"github.com/akylbek/payment-system/x402-pay/internal/catalog"
	"github.com/akylbek/payment-system/x402-pay/internal/handlers"
	"github.com/akylbek/payment-system/x402-pay/internal/interfaces"
	"github.com/akylbek/payment-system/x402-pay/internal/service"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
	"github.com/akylbek/payment-system/x402-pay/internal/wallet"
)

type Dependencies struct {
	Signer      *wallet.Signer
	Facilitator interfaces.Facilitator
	Session     *service.Session
	Catalog     *catalog.Catalog
	Recorder    *announcer.Recorder
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": telemetry.ServiceName})
	})

	// Service catalog and protected resources
	serviceHandler := handlers.NewServiceHandler(deps.Catalog, deps.Facilitator)
	r.GET("/services", serviceHandler.ListServices)
	r.GET("/services/:id", serviceHandler.GetService)
	r.GET("/api/services/:id", serviceHandler.AccessResource)

	// Wallet routes
	walletHandler := handlers.NewWalletHandler(deps.Signer, deps.Facilitator)
	r.GET("/wallet", walletHandler.GetWallet)
	r.POST("/wallet/connect", walletHandler.Connect)
	r.POST("/wallet/disconnect", walletHandler.Disconnect)
	r.GET("/wallet/balance", walletHandler.GetBalance)
	r.GET("/wallet/history", walletHandler.GetHistory)

	// Payment session routes
	paymentHandler := handlers.NewPaymentHandler(deps.Session, deps.Catalog, deps.Recorder)
	r.POST("/payments", paymentHandler.StartPayment)
	r.GET("/payments/session", paymentHandler.GetSession)
	r.POST("/payments/session/close", paymentHandler.CloseSession)
	r.GET("/payments/events", paymentHandler.GetEvents)
	r.PUT("/payments/preferences", paymentHandler.SetPreferences)

	return r
}
