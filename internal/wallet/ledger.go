package wallet

import (
	"sync"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

// Ledger is the in-memory balance behind a simulated wallet. The balance
// never goes below zero.
type Ledger struct {
	mu      sync.Mutex
	address string
	balance int64
}

func (l *Ledger) Open(address string, balance int64) {
	if balance < 0 {
		balance = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.address = address
	l.balance = balance
}

func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.address = ""
	l.balance = 0
}

func (l *Ledger) Address() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.address
}

func (l *Ledger) Balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Debit removes amount and returns the balance it started from. Nothing
// changes when amount exceeds the balance.
func (l *Ledger) Debit(amount int64) (before int64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	before = l.balance
	if amount < 0 || amount > l.balance {
		return before, models.NewPaymentError(models.ErrCodeInsufficientFunds, "Insufficient funds", nil).
			WithDetails("balance", l.balance).
			WithDetails("required", amount)
	}
	l.balance -= amount
	return before, nil
}
