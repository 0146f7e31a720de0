package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/x402-pay/internal/announcer"
	"github.com/akylbek/payment-system/x402-pay/internal/catalog"
	"github.com/akylbek/payment-system/x402-pay/internal/config"
	"github.com/akylbek/payment-system/x402-pay/internal/facilitator"
	"github.com/akylbek/payment-system/x402-pay/internal/fault"
	"github.com/akylbek/payment-system/x402-pay/internal/interfaces"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
	"github.com/akylbek/payment-system/x402-pay/internal/repository"
	"github.com/akylbek/payment-system/x402-pay/internal/service"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
	"github.com/akylbek/payment-system/x402-pay/internal/wallet"
)

// app is the wired payment core plus the connections it owns.
type app struct {
	cfg         *config.Config
	catalog     *catalog.Catalog
	signer      *wallet.Signer
	facilitator *facilitator.Simulator
	session     *service.Session
	recorder    *announcer.Recorder
	registry    *prometheus.Registry

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// newApp connects the optional backends named in cfg. Anything left
// unconfigured falls back to its in-memory implementation.
func newApp(cfg *config.Config, extra ...interfaces.Announcer) (*app, error) {
	a := &app{
		cfg:      cfg,
		catalog:  catalog.Default(),
		recorder: announcer.NewRecorder(0),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Payment history
	var history interfaces.HistoryRepository = repository.NewMemoryHistoryRepository()
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db)

		repo := repository.NewPostgresHistoryRepository(db)
		if err := repo.InitDB(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		history = repo
	}

	// Wallet restore state and cross-process session lock
	var restore interfaces.RestoreStore = repository.NewMemoryRestoreStore()
	var lock interfaces.SessionLock
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		a.closers = append(a.closers, redisClient)
		restore = repository.NewRedisRestoreStore(redisClient, cfg.RestoreNamespace)
		lock = repository.NewRedisSessionLock(redisClient)
	}

	// Announcers
	announcers := announcer.Multi{announcer.NewLogAnnouncer(nil), a.recorder}
	announcers = append(announcers, extra...)
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kafkaWriter := announcer.NewKafkaWriter(brokers)
		a.closers = append(a.closers, kafkaWriter)
		announcers = append(announcers, announcer.NewKafkaAnnouncer(kafkaWriter))
	}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.closers = append(a.closers, closerFunc(func() error { nc.Close(); return nil }))
		announcers = append(announcers, announcer.NewNATSAnnouncer(nc))
	}

	network := models.Network(cfg.Network)
	locale, _ := models.ParseLocale(cfg.Locale)
	level, _ := models.ParseDetailLevel(cfg.DetailLevel)

	// Wallet
	walletOpts := []wallet.ProviderOption{
		wallet.WithNetwork(network),
		wallet.WithRejectPolicy(fault.NewProbability(cfg.SignRejectRate, nil)),
	}
	if cfg.SimulatedLatency {
		walletOpts = append(walletOpts, wallet.WithLatency(wallet.ReferenceLatency))
	}
	if cfg.SeedBalance > 0 {
		walletOpts = append(walletOpts, wallet.WithSeedBalance(cfg.SeedBalance))
	}
	a.signer = wallet.NewSigner(wallet.NewMockProvider(walletOpts...), restore)

	// Facilitator
	facOpts := []facilitator.Option{
		facilitator.WithCatalog(a.catalog),
		facilitator.WithHistory(history),
		facilitator.WithSettlementPolicy(fault.NewProbability(cfg.SettlementFailureRate, nil)),
		facilitator.WithNetwork(network),
		facilitator.WithConfirmAfter(cfg.ConfirmAfter),
		facilitator.WithLocale(locale),
		facilitator.WithDetailLevel(level),
	}
	if cfg.SimulatedLatency {
		facOpts = append(facOpts, facilitator.WithLatency(facilitator.ReferenceLatency))
	}
	a.facilitator = facilitator.NewSimulator(facOpts...)

	// Payment session
	sessionOpts := []service.Option{
		service.WithConfig(service.SessionConfig{
			Fee:                  cfg.Fee,
			PaymentRequiredDelay: cfg.PaymentRequiredDelay,
			CallTimeout:          cfg.CallTimeout,
			ConfirmTimeout:       cfg.ConfirmTimeout,
			PollInterval:         cfg.PollInterval,
			Locale:               locale,
			DetailLevel:          level,
			LockTTL:              cfg.LockTTL,
		}),
		service.WithAnnouncer(announcers),
		service.WithMetrics(telemetry.NewMetrics(a.registry)),
	}
	if lock != nil {
		sessionOpts = append(sessionOpts, service.WithLock(lock))
	}
	a.session = service.NewSession(a.signer, a.facilitator, sessionOpts...)

	return a, nil
}

// connectWallet restores the previous connection or opens a new one.
func (a *app) connectWallet(ctx context.Context) (models.Wallet, error) {
	if w := a.signer.Restore(ctx); w.Connected {
		return w, nil
	}
	return a.signer.Connect(ctx)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			telemetry.Logger.Warn("Failed to close resource", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
