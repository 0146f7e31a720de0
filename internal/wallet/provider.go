package wallet

import (
	"context"
	"encoding/hex"
	"math/rand"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/akylbek/payment-system/x402-pay/internal/fault"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

// DefaultFee is charged when a draft carries no fee.
const DefaultFee int64 = 50

const (
	minSeedBalance  = 100000
	seedBalanceSpan = 1000000
)

// Latency is the simulated wallet response time per call.
type Latency struct {
	Connect time.Duration
	Balance time.Duration
	Sign    time.Duration
}

// ReferenceLatency mirrors a browser wallet extension.
var ReferenceLatency = Latency{
	Connect: time.Second,
	Balance: 300 * time.Millisecond,
	Sign:    1500 * time.Millisecond,
}

type ProviderOption func(*MockProvider)

func WithLatency(l Latency) ProviderOption {
	return func(p *MockProvider) { p.latency = l }
}

// WithRejectPolicy decides when the user cancels in the signing prompt.
func WithRejectPolicy(policy fault.Policy) ProviderOption {
	return func(p *MockProvider) { p.reject = policy }
}

// WithSeedBalance fixes the balance assigned on connect.
func WithSeedBalance(balance int64) ProviderOption {
	return func(p *MockProvider) { p.seed = &balance }
}

func WithRand(rng *rand.Rand) ProviderOption {
	return func(p *MockProvider) { p.rng = rng }
}

func WithNetwork(network models.Network) ProviderOption {
	return func(p *MockProvider) { p.network = network }
}

// MockProvider simulates a BSV wallet extension on top of a Ledger.
type MockProvider struct {
	ledger  Ledger
	latency Latency
	reject  fault.Policy
	seed    *int64
	network models.Network

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewMockProvider(opts ...ProviderOption) *MockProvider {
	p := &MockProvider{
		reject:  fault.Never,
		network: models.NetworkTestnet,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p
}

func (p *MockProvider) Network() models.Network {
	return p.network
}

func (p *MockProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	if err := wait(ctx, p.latency.Connect); err != nil {
		return nil, err
	}

	balance := p.seedBalance()
	address := p.newAddress()
	p.ledger.Open(address, balance)
	return []string{address}, nil
}

// Disconnect forgets the account and its balance.
func (p *MockProvider) Disconnect(_ context.Context) error {
	p.ledger.Close()
	return nil
}

func (p *MockProvider) Balance(ctx context.Context, address string) (int64, error) {
	if err := p.checkAccount(address); err != nil {
		return 0, err
	}
	if err := wait(ctx, p.latency.Balance); err != nil {
		return 0, err
	}
	return p.ledger.Balance(), nil
}

func (p *MockProvider) SignTransaction(ctx context.Context, address string, draft models.TransferDraft) (*models.TransferRecord, error) {
	if err := p.checkAccount(address); err != nil {
		return nil, err
	}
	if err := wait(ctx, p.latency.Sign); err != nil {
		return nil, err
	}

	if p.reject.ShouldFail() {
		return nil, models.NewPaymentError(models.ErrCodeUserRejected, "User rejected transaction", nil)
	}

	record := &models.TransferRecord{
		RawTx:   p.newRawTx(),
		Inputs:  append([]models.TransferInput(nil), draft.Inputs...),
		Outputs: append([]models.TransferOutput(nil), draft.Outputs...),
		Fee:     draft.Fee,
	}
	if record.Fee <= 0 {
		record.Fee = DefaultFee
	}
	if record.Outputs == nil {
		record.Outputs = []models.TransferOutput{}
	}
	raw, _ := hex.DecodeString(record.RawTx)
	record.TxID = chainhash.DoubleHashH(raw).String()

	before, err := p.ledger.Debit(record.TotalOutput() + record.Fee)
	if err != nil {
		return nil, err
	}
	if len(record.Inputs) == 0 {
		record.Inputs = []models.TransferInput{{
			TxID:     p.newTxID(),
			Vout:     0,
			Satoshis: before,
		}}
	}
	return record, nil
}

func (p *MockProvider) checkAccount(address string) error {
	current := p.ledger.Address()
	if current == "" || current != address {
		return models.NewPaymentError(models.ErrCodeNotConnected, "Wallet not connected", nil)
	}
	return nil
}

func (p *MockProvider) seedBalance() int64 {
	if p.seed != nil {
		return *p.seed
	}
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return minSeedBalance + p.rng.Int63n(seedBalanceSpan)
}

func (p *MockProvider) randomBytes(n int) []byte {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	b := make([]byte, n)
	p.rng.Read(b)
	return b
}

// newAddress returns a Base58Check pay-to-pubkey-hash address for the
// provider network.
func (p *MockProvider) newAddress() string {
	version := byte(0x00)
	if p.network == models.NetworkTestnet {
		version = 0x6f
	}
	return base58.CheckEncode(p.randomBytes(20), version)
}

func (p *MockProvider) newTxID() string {
	return chainhash.DoubleHashH(p.randomBytes(32)).String()
}

func (p *MockProvider) newRawTx() string {
	return "01000000" + hex.EncodeToString(p.randomBytes(100))
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
