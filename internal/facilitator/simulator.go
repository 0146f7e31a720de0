// Package facilitator simulates the resource server side of the x402
// exchange: payment challenges, settlement, confirmations and history.
package facilitator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/x402-pay/internal/catalog"
	"github.com/akylbek/payment-system/x402-pay/internal/fault"
	"github.com/akylbek/payment-system/x402-pay/internal/interfaces"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
	"github.com/akylbek/payment-system/x402-pay/internal/repository"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
)

// DefaultAmount is charged for resources that are not in the catalog.
const DefaultAmount int64 = 50000

const receiptAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var validate = validator.New()

// Latency is the simulated round trip per facilitator call.
type Latency struct {
	Request time.Duration
	Submit  time.Duration
	Status  time.Duration
	History time.Duration
}

var ReferenceLatency = Latency{
	Request: 500 * time.Millisecond,
	Submit:  2 * time.Second,
	Status:  300 * time.Millisecond,
	History: 800 * time.Millisecond,
}

// StatusFunc overrides the status RequestResource answers with for a
// path. Returning 0 keeps the default.
type StatusFunc func(path string) int

type Option func(*Simulator)

// WithCatalog sets the services the simulator prices. A nil catalog
// charges DefaultAmount for every path.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Simulator) { s.catalog = c }
}

func WithHistory(repo interfaces.HistoryRepository) Option {
	return func(s *Simulator) { s.history = repo }
}

// WithSettlementPolicy decides when a submitted payment is refused.
func WithSettlementPolicy(policy fault.Policy) Option {
	return func(s *Simulator) { s.settlement = policy }
}

// WithTransportPolicy decides when a resource request cannot reach the
// server.
func WithTransportPolicy(policy fault.Policy) Option {
	return func(s *Simulator) { s.transport = policy }
}

func WithStatusFunc(fn StatusFunc) Option {
	return func(s *Simulator) { s.statusFn = fn }
}

func WithLatency(l Latency) Option {
	return func(s *Simulator) { s.latency = l }
}

// WithConfirmAfter sets how many status polls a transfer needs before its
// first confirmation.
func WithConfirmAfter(polls int) Option {
	return func(s *Simulator) { s.tracker = newConfirmationTracker(polls) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

func WithNetwork(network models.Network) Option {
	return func(s *Simulator) { s.network = network }
}

func WithLocale(locale models.Locale) Option {
	return func(s *Simulator) { s.locale = locale }
}

func WithDetailLevel(level models.DetailLevel) Option {
	return func(s *Simulator) { s.level = level }
}

// Simulator is an in-process facilitator.
type Simulator struct {
	catalog    *catalog.Catalog
	history    interfaces.HistoryRepository
	settlement fault.Policy
	transport  fault.Policy
	statusFn   StatusFunc
	latency    Latency
	network    models.Network
	now        func() time.Time
	tracker    *confirmationTracker

	mu     sync.RWMutex
	locale models.Locale
	level  models.DetailLevel

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		catalog:    catalog.Default(),
		settlement: fault.Never,
		transport:  fault.Never,
		network:    models.NetworkTestnet,
		now:        time.Now,
		tracker:    newConfirmationTracker(1),
		locale:     models.LocaleES,
		level:      models.DetailStandard,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.history == nil {
		s.history = repository.NewMemoryHistoryRepository()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

func (s *Simulator) SetLocale(locale models.Locale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = locale
}

func (s *Simulator) SetDetailLevel(level models.DetailLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

func (s *Simulator) builder() metadataBuilder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return metadataBuilder{locale: s.locale, level: s.level}
}

// RequestResource answers a resource request. Known catalog services and,
// without a catalog, every path are answered with a 402 challenge.
func (s *Simulator) RequestResource(ctx context.Context, path string) (*models.Challenge, error) {
	if err := wait(ctx, s.latency.Request); err != nil {
		return nil, err
	}
	b := s.builder()

	if s.transport.ShouldFail() {
		return nil, s.fail(b, models.ErrCodeTransport, msgServerError,
			b.text("No se pudo contactar con el servicio.", "Could not reach the service."), nil).
			WithDetails("path", path)
	}

	amount, known := s.priceFor(path)
	status := http.StatusPaymentRequired
	if !known {
		status = http.StatusNotFound
	}
	if s.statusFn != nil {
		if override := s.statusFn(path); override != 0 {
			status = override
		}
	}
	if status == http.StatusPaymentRequired && !known {
		amount = DefaultAmount
	}

	headers := map[string]string{
		models.HeaderAccessibilityLevel: string(b.level),
		models.HeaderLanguage:           string(b.locale),
	}

	var key messageKey
	switch {
	case status == http.StatusPaymentRequired:
		address := s.newAddress()
		headers[models.HeaderPaymentAmount] = strconv.FormatInt(amount, 10)
		headers[models.HeaderPaymentAddress] = address
		headers[models.HeaderPaymentNetwork] = string(s.network)

		telemetry.Logger.Debug("Payment challenge issued",
			zap.String("path", path),
			zap.Int64("amount", amount),
			zap.String("address", address),
		)
		return &models.Challenge{
			Status:  status,
			Headers: headers,
			Body: map[string]any{
				"message":  plainLanguage[msgPaymentRequired].In(b.locale),
				"amount":   amount,
				"currency": "satoshis",
			},
			Accessibility: b.paymentRequired(amount, address, s.network),
		}, nil
	case status == http.StatusNotFound:
		key = msgNotFound
	case status >= 200 && status < 300:
		key = msgAlreadyAuthorized
	default:
		key = msgServerError
	}

	return &models.Challenge{
		Status:        status,
		Headers:       headers,
		Body:          map[string]any{"message": plainLanguage[key].In(b.locale)},
		Accessibility: b.status(key, status),
	}, nil
}

func (s *Simulator) priceFor(path string) (int64, bool) {
	if s.catalog == nil {
		return DefaultAmount, true
	}
	id, ok := catalog.ServiceIDFromPath(path)
	if !ok {
		return 0, false
	}
	svc, ok := s.catalog.Get(id)
	if !ok {
		return 0, false
	}
	return svc.Price, true
}

// SubmitPayment settles transfer against req and records it in history.
func (s *Simulator) SubmitPayment(ctx context.Context, req *models.PaymentRequest, transfer *models.TransferRecord) (*models.PaymentConfirmation, error) {
	b := s.builder()

	if req == nil || transfer == nil {
		return nil, s.fail(b, models.ErrCodeSettlement, msgPaymentError, "missing payment request or transfer", nil)
	}
	if err := validate.Struct(req); err != nil {
		return nil, s.fail(b, models.ErrCodeSettlement, msgPaymentError,
			fmt.Sprintf("invalid payment request: %v", err), err)
	}
	if !pays(transfer, req.PaymentAddress, req.Amount) {
		return nil, s.fail(b, models.ErrCodeSettlement, msgPaymentError,
			fmt.Sprintf("transfer %s does not pay %d satoshis to %s", transfer.TxID, req.Amount, req.PaymentAddress), nil)
	}

	if err := wait(ctx, s.latency.Submit); err != nil {
		return nil, err
	}

	if s.settlement.ShouldFail() {
		telemetry.Logger.Warn("Settlement refused", zap.String("txid", transfer.TxID))
		return nil, s.fail(b, models.ErrCodeSettlement, msgPaymentError, plainLanguage[msgPaymentError].In(b.locale), nil).
			WithDetails("txid", transfer.TxID)
	}

	now := s.now().UTC()
	receiptID := fmt.Sprintf("REC-%d-%s", now.UnixMilli(), s.randomCode(9))
	confirmation := &models.PaymentConfirmation{
		TxID:          transfer.TxID,
		Service:       req.Service,
		Amount:        req.Amount,
		Timestamp:     now,
		Confirmations: 0,
		Receipt:       &models.Receipt{ID: receiptID, URL: "/receipts/" + receiptID},
		Accessibility: *b.paymentSuccess(transfer.TxID, receiptID),
	}

	entry := &models.HistoryEntry{
		Payer:        req.Payer,
		Confirmation: *confirmation,
		Transfer:     *transfer,
	}
	if err := s.history.Save(ctx, entry); err != nil {
		telemetry.Logger.Error("Failed to record payment", zap.String("txid", transfer.TxID), zap.Error(err))
		return nil, s.fail(b, models.ErrCodeTransport, msgServerError,
			b.text("No se pudo registrar el pago.", "Could not record the payment."), err)
	}
	s.tracker.track(transfer.TxID)

	telemetry.Logger.Info("Payment settled",
		zap.String("txid", transfer.TxID),
		zap.String("service_id", req.Service.ID),
		zap.Int64("amount", req.Amount),
		zap.String("receipt", receiptID),
	)
	return confirmation, nil
}

func pays(transfer *models.TransferRecord, address string, amount int64) bool {
	for _, out := range transfer.Outputs {
		if out.Script == address && out.Satoshis >= amount {
			return true
		}
	}
	return false
}

// CheckStatus reports the confirmation depth of a settled transfer.
func (s *Simulator) CheckStatus(ctx context.Context, txID string) (*models.TransferStatus, error) {
	if err := wait(ctx, s.latency.Status); err != nil {
		return nil, err
	}
	n := s.tracker.poll(txID)
	return &models.TransferStatus{
		TxID:          txID,
		Confirmations: n,
		Confirmed:     n > 0,
	}, nil
}

// GetHistory returns the payments made by address, newest first.
func (s *Simulator) GetHistory(ctx context.Context, address string) ([]models.PaymentConfirmation, error) {
	if err := wait(ctx, s.latency.History); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByPayer(ctx, address)
	if err != nil {
		b := s.builder()
		return nil, s.fail(b, models.ErrCodeTransport, msgServerError,
			b.text("No se pudo cargar el historial de pagos.", "Could not load the payment history."), err)
	}

	out := make([]models.PaymentConfirmation, 0, len(entries))
	for _, entry := range entries {
		c := entry.Confirmation
		if n := s.tracker.current(c.TxID); n > c.Confirmations {
			c.Confirmations = n
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// AccessResource returns the protected resource at path when proof is the
// txid of a settled payment for it.
func (s *Simulator) AccessResource(ctx context.Context, path, proof string) (any, error) {
	if err := wait(ctx, s.latency.Request); err != nil {
		return nil, err
	}
	b := s.builder()
	denied := func() error {
		return s.fail(b, models.ErrCodeNotAuthorized, msgNotAuthorized, plainLanguage[msgNotAuthorized].In(b.locale), nil).
			WithDetails("path", path)
	}

	proof = strings.TrimSpace(proof)
	if proof == "" {
		return nil, denied()
	}
	entry, err := s.history.GetByTxID(ctx, proof)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, denied()
	}
	if err != nil {
		return nil, s.fail(b, models.ErrCodeTransport, msgServerError,
			b.text("No se pudo verificar el pago.", "Could not verify the payment."), err)
	}
	if catalog.ResourcePath(entry.Confirmation.Service.ID) != path {
		return nil, denied()
	}

	return map[string]any{
		"message": b.text("Acceso concedido.", "Access granted."),
		"service": entry.Confirmation.Service,
		"txid":    entry.Confirmation.TxID,
		"receipt": entry.Confirmation.Receipt,
	}, nil
}

func (s *Simulator) fail(b metadataBuilder, code models.ErrorCode, key messageKey, message string, cause error) *models.PaymentError {
	return models.NewPaymentError(code, message, cause).WithAccessibility(b.failure(key, message))
}

func (s *Simulator) newAddress() string {
	version := byte(0x00)
	if s.network == models.NetworkTestnet {
		version = 0x6f
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	payload := make([]byte, 20)
	s.rng.Read(payload)
	return base58.CheckEncode(payload, version)
}

func (s *Simulator) randomCode(n int) string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(receiptAlphabet[s.rng.Intn(len(receiptAlphabet))])
	}
	return sb.String()
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
