package learning

import (
	"testing"
)

func rankedFixture() []Scored {
	return []Scored{
		{Features: Features{ItemID: "a"}, Score: 5},
		{Features: Features{ItemID: "b"}, Score: 4},
		{Features: Features{ItemID: "c"}, Score: 3},
		{Features: Features{ItemID: "d"}, Score: 2},
	}
}

func TestNewExplorer(t *testing.T) {
	e := NewExplorer(0)

	if e.Epsilon != epsilon {
		t.Errorf("expected epsilon %f, got %f", epsilon, e.Epsilon)
	}
	if e.rng == nil {
		t.Error("expected random source to be initialized")
	}
}

func TestDeck_PureExploitation(t *testing.T) {
	e := NewExplorer(42)
	e.SetEpsilon(0)

	deck := e.Deck(rankedFixture(), NewProfile(), 3)

	if len(deck) != 3 {
		t.Fatalf("expected 3 picks, got %d", len(deck))
	}
	for i, want := range []string{"a", "b", "c"} {
		if deck[i].ItemID != want {
			t.Errorf("slot %d: expected %s, got %s", i, want, deck[i].ItemID)
		}
		if deck[i].Explored {
			t.Errorf("slot %d: expected exploitation", i)
		}
	}
}

func TestDeck_PureExploration(t *testing.T) {
	e := NewExplorer(42)
	e.SetEpsilon(1)

	deck := e.Deck(rankedFixture(), NewProfile(), 0)

	if len(deck) != 4 {
		t.Fatalf("expected every item, got %d", len(deck))
	}

	seen := make(map[string]bool)
	for i, p := range deck {
		if seen[p.ItemID] {
			t.Errorf("item %s picked twice", p.ItemID)
		}
		seen[p.ItemID] = true
		// The last slot has a single candidate and is never an exploration.
		if i < len(deck)-1 && !p.Explored {
			t.Errorf("slot %d: expected exploration", i)
		}
	}
	if deck[0].ItemID == "a" {
		t.Error("exploration should never pick the greedy choice")
	}
}

func TestDeck_SkipsRated(t *testing.T) {
	e := NewExplorer(7)
	e.SetEpsilon(0)

	p := NewProfile()
	p.Liked = []string{"a"}
	p.Disliked = []string{"c"}

	deck := e.Deck(rankedFixture(), p, 10)

	if len(deck) != 2 {
		t.Fatalf("expected 2 unrated picks, got %d", len(deck))
	}
	if deck[0].ItemID != "b" || deck[1].ItemID != "d" {
		t.Errorf("expected b, d got %s, %s", deck[0].ItemID, deck[1].ItemID)
	}
}

func TestDeck_Empty(t *testing.T) {
	e := NewExplorer(1)

	if deck := e.Deck(nil, NewProfile(), 5); len(deck) != 0 {
		t.Errorf("expected empty deck, got %d", len(deck))
	}
}

func TestDeck_ExplorationRate(t *testing.T) {
	e := NewExplorer(12345)
	ranked := rankedFixture()

	explored := 0
	const trials = 2000
	for i := 0; i < trials; i++ {
		if e.Deck(ranked, NewProfile(), 1)[0].Explored {
			explored++
		}
	}

	rate := float64(explored) / trials
	if rate < 0.05 || rate > 0.15 {
		t.Errorf("expected exploration rate near 0.1, got %f", rate)
	}
}

func TestSetEpsilon(t *testing.T) {
	e := NewExplorer(1)

	e.SetEpsilon(0.3)
	if e.GetEpsilon() != 0.3 {
		t.Errorf("expected epsilon 0.3, got %f", e.GetEpsilon())
	}

	// Invalid values are ignored
	e.SetEpsilon(-0.1)
	if e.GetEpsilon() != 0.3 {
		t.Errorf("expected epsilon to remain 0.3, got %f", e.GetEpsilon())
	}
	e.SetEpsilon(1.5)
	if e.GetEpsilon() != 0.3 {
		t.Errorf("expected epsilon to remain 0.3, got %f", e.GetEpsilon())
	}
}
