package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

type storedEntry struct {
	payer        string
	createdAt    time.Time
	confirmation []byte
	transfer     []byte
}

// MemoryHistoryRepository keeps entries encoded the same way the Postgres
// repository does, so both go through one serialization path.
type MemoryHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string]storedEntry
}

func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{entries: make(map[string]storedEntry)}
}

func (r *MemoryHistoryRepository) Save(_ context.Context, entry *models.HistoryEntry) error {
	confirmation, transfer, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.Confirmation.TxID]; exists {
		return nil
	}
	r.entries[entry.Confirmation.TxID] = storedEntry{
		payer:        entry.Payer,
		createdAt:    entry.Confirmation.Timestamp,
		confirmation: confirmation,
		transfer:     transfer,
	}
	return nil
}

func (r *MemoryHistoryRepository) GetByTxID(_ context.Context, txID string) (*models.HistoryEntry, error) {
	r.mu.RLock()
	stored, ok := r.entries[txID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeEntry(stored.payer, stored.confirmation, stored.transfer)
}

func (r *MemoryHistoryRepository) ListByPayer(_ context.Context, payer string) ([]models.HistoryEntry, error) {
	r.mu.RLock()
	var matched []storedEntry
	for _, stored := range r.entries {
		if stored.payer == payer {
			matched = append(matched, stored)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].createdAt.After(matched[j].createdAt)
	})

	entries := make([]models.HistoryEntry, 0, len(matched))
	for _, stored := range matched {
		entry, err := decodeEntry(stored.payer, stored.confirmation, stored.transfer)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

type MemoryRestoreStore struct {
	mu    sync.Mutex
	state models.RestoreState
}

func NewMemoryRestoreStore() *MemoryRestoreStore {
	return &MemoryRestoreStore{}
}

func (s *MemoryRestoreStore) Save(_ context.Context, state models.RestoreState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

func (s *MemoryRestoreStore) Load(_ context.Context) (models.RestoreState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *MemoryRestoreStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = models.RestoreState{}
	return nil
}

type MemorySessionLock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewMemorySessionLock() *MemorySessionLock {
	return &MemorySessionLock{held: make(map[string]time.Time), clock: time.Now}
}

func (l *MemorySessionLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *MemorySessionLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
