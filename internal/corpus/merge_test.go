package corpus

import (
	"reflect"
	"testing"
	"time"

	"github.com/esonde/galisondaggi/internal/core"
)

func pollAt(author, question string, options map[string]int) core.Poll {
	p := core.Poll{
		Timestamp: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Author:    author,
		Question:  question,
		Options:   options,
	}
	p.TotalVotes = p.SumVotes()
	return p
}

func TestMergeAddsNewPolls(t *testing.T) {
	incoming := []core.Poll{pollAt("Alice", "Best color?", map[string]int{"Red": 2, "Blue": 1})}
	res := Merge(nil, incoming)

	if res.Added != 1 || res.Updated != 0 {
		t.Fatalf("expected added=1 updated=0, got %d/%d", res.Added, res.Updated)
	}
	if len(res.Polls) != 1 || res.Polls[0].TotalVotes != 3 {
		t.Fatalf("unexpected merged polls: %v", res.Polls)
	}
}

func TestMergeIdempotence(t *testing.T) {
	polls := []core.Poll{pollAt("Alice", "Best color?", map[string]int{"Red": 2, "Blue": 1})}

	first := Merge(nil, polls)
	second := Merge(first.Polls, polls)

	if second.Added != 0 {
		t.Fatalf("re-merge must add nothing, added=%d", second.Added)
	}
	if second.Updated != 1 {
		t.Fatalf("a no-op union still counts as an update, updated=%d", second.Updated)
	}
	if !reflect.DeepEqual(first.Polls[0].Options, second.Polls[0].Options) {
		t.Fatalf("options changed across idempotent merge: %v vs %v",
			first.Polls[0].Options, second.Polls[0].Options)
	}
}

func TestMergeUnionOverwritesAndInserts(t *testing.T) {
	existing := []core.Poll{pollAt("Alice", "Best color?", map[string]int{"Red": 2, "Blue": 1})}
	update := []core.Poll{pollAt("Alice", "Best color?", map[string]int{"Blue": 5, "Green": 1})}

	res := Merge(existing, update)
	if res.Added != 0 || res.Updated != 1 {
		t.Fatalf("expected added=0 updated=1, got %d/%d", res.Added, res.Updated)
	}
	got := res.Polls[0]
	want := map[string]int{"Red": 2, "Blue": 5, "Green": 1}
	if !reflect.DeepEqual(got.Options, want) {
		t.Fatalf("union mismatch: got %v want %v", got.Options, want)
	}
	if got.TotalVotes != 8 {
		t.Fatalf("TotalVotes must be recomputed, got %d", got.TotalVotes)
	}
}

func TestMergeUnionAssociativity(t *testing.T) {
	base := []core.Poll{pollAt("Alice", "Best color?", map[string]int{"Red": 2})}
	updateA := []core.Poll{pollAt("Alice", "Best color?", map[string]int{"Blue": 1})}
	updateB := []core.Poll{pollAt("Alice", "Best color?", map[string]int{"Green": 4})}

	stepwise := Merge(Merge(base, updateA).Polls, updateB)

	combined := []core.Poll{pollAt("Alice", "Best color?", map[string]int{"Blue": 1, "Green": 4})}
	oneShot := Merge(base, combined)

	if !reflect.DeepEqual(stepwise.Polls[0].Options, oneShot.Polls[0].Options) {
		t.Fatalf("two disjoint updates must equal the combined update: %v vs %v",
			stepwise.Polls[0].Options, oneShot.Polls[0].Options)
	}
}

func TestMergeDistinguishesIdentityKeys(t *testing.T) {
	a := pollAt("Alice", "Best color?", map[string]int{"Red": 1})
	b := pollAt("Bob", "Best color?", map[string]int{"Red": 1})
	c := a
	c.Timestamp = a.Timestamp.Add(time.Minute)

	res := Merge([]core.Poll{a}, []core.Poll{b, c})
	if res.Added != 2 || res.Updated != 0 {
		t.Fatalf("different author or timestamp is a different poll, got added=%d updated=%d",
			res.Added, res.Updated)
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	existing := []core.Poll{pollAt("Alice", "Q?", map[string]int{"A": 1})}
	res := Merge(existing, []core.Poll{pollAt("Alice", "Q?", map[string]int{"B": 2})})

	res.Polls[0].Options["A"] = 99
	if existing[0].Options["A"] != 1 {
		t.Fatalf("merge must deep-copy option maps, input mutated: %v", existing[0].Options)
	}
}
