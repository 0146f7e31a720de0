// Package service drives a single x402 payment attempt from the resource
// request to a confirmed or failed outcome.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/x402-pay/internal/catalog"
	"github.com/akylbek/payment-system/x402-pay/internal/interfaces"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
)

const (
	DefaultFee            int64 = 50
	DefaultCallTimeout          = 30 * time.Second
	DefaultConfirmTimeout       = 2 * time.Minute
	DefaultPollInterval         = time.Second
	DefaultLockTTL              = 5 * time.Minute
)

type SessionConfig struct {
	Fee int64
	// PaymentRequiredDelay keeps the payment-required state visible before
	// signing starts.
	PaymentRequiredDelay time.Duration
	CallTimeout          time.Duration
	ConfirmTimeout       time.Duration
	PollInterval         time.Duration
	Locale               models.Locale
	DetailLevel          models.DetailLevel
	LockTTL              time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Fee:            DefaultFee,
		CallTimeout:    DefaultCallTimeout,
		ConfirmTimeout: DefaultConfirmTimeout,
		PollInterval:   DefaultPollInterval,
		Locale:         models.LocaleES,
		DetailLevel:    models.DetailStandard,
		LockTTL:        DefaultLockTTL,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	d := DefaultSessionConfig()
	if c.Fee <= 0 {
		c.Fee = d.Fee
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = d.ConfirmTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if _, ok := models.ParseLocale(string(c.Locale)); !ok {
		c.Locale = d.Locale
	}
	if _, ok := models.ParseDetailLevel(string(c.DetailLevel)); !ok {
		c.DetailLevel = d.DetailLevel
	}
	if c.LockTTL <= 0 {
		c.LockTTL = d.LockTTL
	}
	return c
}

type Option func(*Session)

func WithConfig(cfg SessionConfig) Option {
	return func(s *Session) { s.cfg = cfg }
}

func WithAnnouncer(a interfaces.Announcer) Option {
	return func(s *Session) { s.announcer = a }
}

// WithLock adds a cross-process lock keyed by wallet address on top of the
// signer's in-flight guard.
func WithLock(lock interfaces.SessionLock) Option {
	return func(s *Session) { s.lock = lock }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is the payment state machine for one wallet. It runs one
// attempt at a time; Start after a terminal state begins a new attempt.
type Session struct {
	signer      interfaces.WalletSigner
	facilitator interfaces.Facilitator
	announcer   interfaces.Announcer
	lock        interfaces.SessionLock
	metrics     *telemetry.Metrics
	cfg         SessionConfig
	now         func() time.Time

	mu           sync.Mutex
	id           string
	state        models.PaymentState
	service      *models.Service
	lastErr      string
	transfer     *models.TransferRecord
	confirmation *models.PaymentConfirmation
	startedAt    time.Time
	updatedAt    time.Time
	locale       models.Locale
	level        models.DetailLevel
	lockKey      string
	// set from begin until release, including the idle gap before the
	// first transition
	running bool
}

func NewSession(signer interfaces.WalletSigner, facilitator interfaces.Facilitator, opts ...Option) *Session {
	s := &Session{
		signer:      signer,
		facilitator: facilitator,
		cfg:         DefaultSessionConfig(),
		now:         time.Now,
		state:       models.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.withDefaults()
	s.locale = s.cfg.Locale
	s.level = s.cfg.DetailLevel
	s.updatedAt = s.now()
	facilitator.SetLocale(s.locale)
	facilitator.SetDetailLevel(s.level)
	return s
}

// Start runs a payment attempt for svc to completion. The returned error
// is non-nil only when the attempt could not begin; failures during the
// attempt end in the failed state and are reported through the snapshot.
func (s *Session) Start(ctx context.Context, svc models.Service) (models.SessionSnapshot, error) {
	id, err := s.begin(ctx, svc)
	if err != nil {
		return s.Snapshot(), err
	}
	s.run(ctx, id, svc)
	return s.Snapshot(), nil
}

// StartAsync performs the same checks as Start and then runs the attempt in
// the background. The channel yields the final snapshot once the wallet is
// free again.
func (s *Session) StartAsync(ctx context.Context, svc models.Service) (<-chan models.SessionSnapshot, error) {
	id, err := s.begin(ctx, svc)
	if err != nil {
		return nil, err
	}
	done := make(chan models.SessionSnapshot, 1)
	go func() {
		defer close(done)
		s.run(ctx, id, svc)
		done <- s.Snapshot()
	}()
	return done, nil
}

func (s *Session) begin(ctx context.Context, svc models.Service) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.state.InFlight() {
		return "", models.ErrSessionInProgress
	}
	w := s.signer.Wallet()
	if !w.Connected {
		return "", models.NewPaymentError(models.ErrCodeNotConnected, "Wallet not connected", nil)
	}

	id := uuid.NewString()
	if err := s.signer.Acquire(id); err != nil {
		return "", err
	}
	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx, w.Address, s.cfg.LockTTL)
		if err != nil {
			s.signer.Release(id)
			return "", fmt.Errorf("failed to acquire session lock: %w", err)
		}
		if !ok {
			s.signer.Release(id)
			return "", models.ErrSessionInProgress
		}
		s.lockKey = w.Address
	}

	if s.state.Terminal() {
		telemetry.Logger.Info("Resetting payment session",
			zap.String("session_id", s.id),
			zap.String("from_state", string(s.state)),
		)
	}
	svcCopy := svc
	s.running = true
	s.id = id
	s.state = models.StateIdle
	s.service = &svcCopy
	s.lastErr = ""
	s.transfer = nil
	s.confirmation = nil
	s.startedAt = s.now()
	s.updatedAt = s.startedAt
	return id, nil
}

// run executes the attempt. Caller cancellation is ignored once the
// attempt has begun; each collaborator call has its own timeout instead.
func (s *Session) run(ctx context.Context, id string, svc models.Service) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := telemetry.StartSpan(ctx, "session.run",
		attribute.String("session_id", id),
		attribute.String("service_id", svc.ID),
	)
	defer span.End()
	defer s.release(ctx, id)

	if err := s.execute(ctx, svc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.fail(ctx, err)
	}
}

func (s *Session) execute(ctx context.Context, svc models.Service) error {
	s.transition(ctx, models.StateRequesting, nil)

	var challenge *models.Challenge
	err := s.call(ctx, models.StateRequesting, func(ctx context.Context) error {
		var err error
		challenge, err = s.facilitator.RequestResource(ctx, catalog.ResourcePath(svc.ID))
		return err
	})
	if err != nil {
		return err
	}
	if challenge.Status != http.StatusPaymentRequired {
		return models.NewPaymentError(models.ErrCodeUnexpectedStatus,
			fmt.Sprintf("Unexpected response status %d", challenge.Status), nil).
			WithAccessibility(challenge.Accessibility).
			WithDetails("status", challenge.Status)
	}
	s.transition(ctx, models.StatePaymentRequired, challenge.Accessibility)

	if s.cfg.PaymentRequiredDelay > 0 {
		time.Sleep(s.cfg.PaymentRequiredDelay)
	}

	s.transition(ctx, models.StateSigning, nil)
	address := challenge.Header(models.HeaderPaymentAddress)
	draft := models.TransferDraft{
		Outputs: []models.TransferOutput{{Satoshis: svc.Price, Script: address}},
		Fee:     s.cfg.Fee,
	}
	var record *models.TransferRecord
	err = s.call(ctx, models.StateSigning, func(ctx context.Context) error {
		var err error
		record, err = s.signer.SignTransfer(ctx, draft)
		return err
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.transfer = record
	s.mu.Unlock()

	s.transition(ctx, models.StateBroadcasting, nil)
	wallet := s.signer.Wallet()
	network := models.Network(challenge.Header(models.HeaderPaymentNetwork))
	if network == "" {
		network = wallet.Network
	}
	req := &models.PaymentRequest{
		Service:        svc,
		Amount:         svc.Price,
		PaymentAddress: address,
		Network:        network,
		Payer:          wallet.Address,
	}
	var confirmation *models.PaymentConfirmation
	err = s.call(ctx, models.StateBroadcasting, func(ctx context.Context) error {
		var err error
		confirmation, err = s.facilitator.SubmitPayment(ctx, req, record)
		return err
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.confirmation = confirmation
	s.mu.Unlock()

	s.transition(ctx, models.StateConfirming, &confirmation.Accessibility)
	if err := s.awaitConfirmation(ctx, confirmation.TxID); err != nil {
		return err
	}

	s.transition(ctx, models.StateConfirmed, &confirmation.Accessibility)
	return nil
}

// awaitConfirmation polls the transfer status until it is confirmed or
// ConfirmTimeout elapses.
func (s *Session) awaitConfirmation(ctx context.Context, txID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var status *models.TransferStatus
		err := s.call(ctx, models.StateConfirming, func(ctx context.Context) error {
			var err error
			status, err = s.facilitator.CheckStatus(ctx, txID)
			return err
		})
		if err != nil {
			return err
		}
		if status.Confirmed {
			s.mu.Lock()
			if s.confirmation != nil && status.Confirmations > s.confirmation.Confirmations {
				s.confirmation.Confirmations = status.Confirmations
			}
			s.mu.Unlock()
			return nil
		}

		select {
		case <-ctx.Done():
			return s.timeoutError(ctx.Err())
		case <-ticker.C:
		}
	}
}

// call runs one collaborator call inside a span, bounded by CallTimeout.
func (s *Session) call(ctx context.Context, step models.PaymentState, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "session."+string(step))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveStep(string(step), time.Since(start))

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = s.timeoutError(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Session) timeoutError(cause error) error {
	s.mu.Lock()
	locale := s.locale
	s.mu.Unlock()
	msg := models.Translated{
		ES: "La operación ha tardado demasiado. Inténtalo de nuevo.",
		EN: "The operation took too long. Please try again.",
	}.In(locale)
	return models.NewPaymentError(models.ErrCodeTimeout, msg, cause)
}

func (s *Session) fail(ctx context.Context, err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	id := s.id
	s.mu.Unlock()

	telemetry.Logger.Warn("Payment session failed",
		zap.String("session_id", id),
		zap.Error(err),
	)
	s.transitionWithError(ctx, models.StateFailed, models.AccessibilityOf(err), err.Error())
}

func (s *Session) transition(ctx context.Context, to models.PaymentState, meta *models.AccessibilityMetadata) {
	s.transitionWithError(ctx, to, meta, "")
}

func (s *Session) transitionWithError(ctx context.Context, to models.PaymentState, meta *models.AccessibilityMetadata, errMsg string) {
	s.mu.Lock()
	from := s.state
	if !canTransition(from, to) {
		id := s.id
		s.mu.Unlock()
		telemetry.Logger.Error("Invalid payment session transition",
			zap.String("session_id", id),
			zap.String("from_state", string(from)),
			zap.String("to_state", string(to)),
		)
		return
	}
	s.state = to
	s.updatedAt = s.now()
	event := models.SessionEvent{
		SessionID:     s.id,
		State:         to,
		PreviousState: from,
		Phrase:        Phrase(to, s.locale),
		Locale:        s.locale,
		Accessibility: meta,
		Error:         errMsg,
		Timestamp:     s.updatedAt,
	}
	if s.service != nil {
		event.ServiceID = s.service.ID
	}
	if s.transfer != nil {
		event.TxID = s.transfer.TxID
	}
	s.mu.Unlock()

	s.metrics.Transition(string(to))
	if to.Terminal() {
		s.metrics.Outcome(string(to))
	}

	telemetry.Logger.Info("Payment session transition",
		zap.String("session_id", event.SessionID),
		zap.String("from_state", string(from)),
		zap.String("to_state", string(to)),
	)

	if s.announcer != nil {
		s.announcer.Announce(ctx, event)
	}
}

func (s *Session) release(ctx context.Context, id string) {
	s.mu.Lock()
	key := s.lockKey
	s.lockKey = ""
	s.mu.Unlock()

	if s.lock != nil && key != "" {
		if err := s.lock.Release(ctx, key); err != nil {
			telemetry.Logger.Warn("Failed to release session lock",
				zap.String("session_id", id),
				zap.Error(err),
			)
		}
	}
	s.signer.Release(id)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Close returns a finished session to idle. It fails with ErrSessionActive
// while an attempt is running.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.state.InFlight() {
		return models.ErrSessionActive
	}
	if s.state == models.StateIdle {
		return nil
	}

	telemetry.Logger.Info("Payment session closed",
		zap.String("session_id", s.id),
		zap.String("from_state", string(s.state)),
	)
	s.metrics.Transition(string(models.StateIdle))
	s.state = models.StateIdle
	s.service = nil
	s.lastErr = ""
	s.transfer = nil
	s.confirmation = nil
	s.startedAt = time.Time{}
	s.updatedAt = s.now()
	return nil
}

// SetLocale selects the announcement language and forwards it to the
// facilitator.
func (s *Session) SetLocale(locale models.Locale) {
	s.mu.Lock()
	s.locale = locale
	s.mu.Unlock()
	s.facilitator.SetLocale(locale)
}

func (s *Session) SetDetailLevel(level models.DetailLevel) {
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
	s.facilitator.SetDetailLevel(level)
}

func (s *Session) DetailLevel() models.DetailLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *Session) Locale() models.Locale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locale
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.SessionSnapshot{
		ID:        s.id,
		State:     s.state,
		Error:     s.lastErr,
		StartedAt: s.startedAt,
		UpdatedAt: s.updatedAt,
	}
	if s.service != nil {
		svc := *s.service
		snap.Service = &svc
	}
	if s.transfer != nil {
		t := *s.transfer
		snap.Transfer = &t
	}
	if s.confirmation != nil {
		c := *s.confirmation
		snap.Confirmation = &c
	}
	return snap
}
