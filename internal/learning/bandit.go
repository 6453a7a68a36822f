package learning

import (
	"math/rand"
	"sync"
	"time"
)

const (
	// epsilon is the exploration rate (0.1 = 10% explore, 90% exploit).
	epsilon = 0.1
)

// Explorer builds swipe decks with an ε-greedy policy: each slot is usually
// the best remaining unrated item and occasionally a random one.
type Explorer struct {
	// Epsilon is the exploration rate (default: 0.1).
	Epsilon float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewExplorer creates an explorer with the default rate. A zero seed uses the
// current time.
func NewExplorer(seed int64) *Explorer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Explorer{
		Epsilon: epsilon,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Pick is one deck slot.
type Pick struct {
	Scored
	Explored bool `json:"explored"`
}

// Deck selects up to size unrated items from ranked, which must be ordered by
// Rank. Items already in the profile's liked or disliked sets are skipped.
func (e *Explorer) Deck(ranked []Scored, p Profile, size int) []Pick {
	remaining := make([]Scored, 0, len(ranked))
	for _, s := range ranked {
		if !p.HasRated(s.ItemID) {
			remaining = append(remaining, s)
		}
	}

	if size <= 0 || size > len(remaining) {
		size = len(remaining)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	deck := make([]Pick, 0, size)
	for len(deck) < size {
		idx, explored := 0, false
		// Explore: random selection
		if len(remaining) > 1 && e.rng.Float64() < e.Epsilon {
			idx = 1 + e.rng.Intn(len(remaining)-1)
			explored = true
		}
		deck = append(deck, Pick{Scored: remaining[idx], Explored: explored})
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return deck
}

// SetEpsilon updates the exploration rate.
func (e *Explorer) SetEpsilon(eps float64) {
	if eps < 0 || eps > 1 {
		return
	}
	e.Epsilon = eps
}

// GetEpsilon returns the current exploration rate.
func (e *Explorer) GetEpsilon() float64 {
	return e.Epsilon
}
