package fault

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedPolicies(t *testing.T) {
	assert.False(t, Never.ShouldFail())
	assert.True(t, Always.ShouldFail())
}

func TestProbabilityBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	zero := NewProbability(0, rng)
	one := NewProbability(1, rng)
	for i := 0; i < 100; i++ {
		assert.False(t, zero.ShouldFail())
		assert.True(t, one.ShouldFail())
	}
}

func TestProbabilityIsSeeded(t *testing.T) {
	a := NewProbability(0.5, rand.New(rand.NewSource(42)))
	b := NewProbability(0.5, rand.New(rand.NewSource(42)))

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.ShouldFail(), b.ShouldFail())
	}
}

func TestSequence(t *testing.T) {
	s := NewSequence(false, true)

	assert.False(t, s.ShouldFail())
	assert.True(t, s.ShouldFail())
	assert.True(t, s.ShouldFail(), "last decision repeats")
	assert.Equal(t, 2, s.Calls())

	assert.False(t, NewSequence().ShouldFail())
}
