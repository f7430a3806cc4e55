package stats

import (
	"testing"

	"github.com/esonde/galisondaggi/internal/core"
)

func TestUnanimous(t *testing.T) {
	polls := []core.Poll{
		{Question: "All in?", Options: map[string]int{"A": 5, "B": 0}},
		{Question: "Nobody voted", Options: map[string]int{"A": 0, "B": 0}},
		{Question: "Split", Options: map[string]int{"A": 3, "B": 3}},
		{Question: "Majority only", Options: map[string]int{"A": 4, "B": 1}},
		{Question: "Single option", Options: map[string]int{"Sì": 2}},
	}

	got := Unanimous(polls)
	if len(got) != 2 {
		t.Fatalf("expected 2 unanimous polls, got %d: %v", len(got), got)
	}
	if got[0].Question != "All in?" || got[0].UnanimousAnswer != "A" {
		t.Fatalf("first unanimous poll wrong: %+v", got[0])
	}
	if got[1].Question != "Single option" || got[1].UnanimousAnswer != "Sì" {
		t.Fatalf("second unanimous poll wrong: %+v", got[1])
	}
}

func TestUnanimousEmpty(t *testing.T) {
	if got := Unanimous(nil); got != nil {
		t.Fatalf("no polls means no unanimous polls, got %v", got)
	}
}
