// Package fault decides whether a simulated call should fail.
package fault

import (
	"math/rand"
	"sync"
)

// Policy answers one question: should this call fail.
type Policy interface {
	ShouldFail() bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func() bool

func (f PolicyFunc) ShouldFail() bool { return f() }

// Never is a Policy that never injects a failure.
var Never Policy = PolicyFunc(func() bool { return false })

// Always is a Policy that always injects a failure.
var Always Policy = PolicyFunc(func() bool { return true })

// Probability fails with the given rate in [0, 1].
type Probability struct {
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

func NewProbability(rate float64, rng *rand.Rand) *Probability {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Probability{rate: rate, rng: rng}
}

func (p *Probability) ShouldFail() bool {
	if p.rate <= 0 {
		return false
	}
	if p.rate >= 1 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < p.rate
}

// Sequence replays fixed decisions in order, then keeps answering with the
// last one. An empty Sequence never fails.
type Sequence struct {
	mu        sync.Mutex
	decisions []bool
	next      int
}

func NewSequence(decisions ...bool) *Sequence {
	return &Sequence{decisions: decisions}
}

func (s *Sequence) ShouldFail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.decisions) == 0 {
		return false
	}
	if s.next >= len(s.decisions) {
		return s.decisions[len(s.decisions)-1]
	}
	d := s.decisions[s.next]
	s.next++
	return d
}

// Calls returns how many decisions have been consumed.
func (s *Sequence) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
