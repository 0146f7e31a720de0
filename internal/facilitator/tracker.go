package facilitator

import "sync"

// MaxConfirmations caps the simulated confirmation depth.
const MaxConfirmations = 6

// confirmationTracker simulates block confirmations for settled transfers.
// A tracked transfer gains one confirmation per poll once confirmAfter
// polls have been seen, so counts only ever grow.
type confirmationTracker struct {
	mu           sync.Mutex
	confirmAfter int
	polls        map[string]int
	counts       map[string]int
}

func newConfirmationTracker(confirmAfter int) *confirmationTracker {
	if confirmAfter < 1 {
		confirmAfter = 1
	}
	return &confirmationTracker{
		confirmAfter: confirmAfter,
		polls:        make(map[string]int),
		counts:       make(map[string]int),
	}
}

func (t *confirmationTracker) track(txID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.polls[txID]; !ok {
		t.polls[txID] = 0
		t.counts[txID] = 0
	}
}

// poll advances txID and returns its count. Unknown ids report zero.
func (t *confirmationTracker) poll(txID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	polls, ok := t.polls[txID]
	if !ok {
		return 0
	}
	polls++
	t.polls[txID] = polls

	n := polls - t.confirmAfter + 1
	if n > MaxConfirmations {
		n = MaxConfirmations
	}
	if n > t.counts[txID] {
		t.counts[txID] = n
	}
	return t.counts[txID]
}

func (t *confirmationTracker) current(txID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[txID]
}
