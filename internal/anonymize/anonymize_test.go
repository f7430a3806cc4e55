package anonymize

import (
	"reflect"
	"strings"
	"testing"

	"github.com/esonde/galisondaggi/internal/core"
)

func TestFantasyNameShape(t *testing.T) {
	g := NewGenerator(1)
	for i := 0; i < 50; i++ {
		name := g.FantasyName()
		if !strings.Contains(name, " ") {
			t.Fatalf("pseudonym must be creature plus adjective: %q", name)
		}
	}
}

func TestMappingIsSeededAndDeterministic(t *testing.T) {
	polls := []core.Poll{{Author: "Mario Rossi"}, {Author: "Anna Bianchi"}}
	messages := []core.Message{{Author: "Luca Verdi"}, {Author: "Mario Rossi"}}

	a := NewGenerator(42).Mapping(polls, messages)
	b := NewGenerator(42).Mapping(polls, messages)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed must reproduce the same table:\n%v\n%v", a, b)
	}

	c := NewGenerator(7).Mapping(polls, messages)
	if reflect.DeepEqual(a, c) {
		t.Fatalf("different seeds should redraw the table")
	}
}

func TestMappingCoversAuthorUnion(t *testing.T) {
	polls := []core.Poll{{Author: "Mario Rossi"}}
	messages := []core.Message{{Author: "Anna Bianchi"}}

	mapping := NewGenerator(1).Mapping(polls, messages)
	if len(mapping) != 2 {
		t.Fatalf("mapping must cover every author once, got %v", mapping)
	}
	for author, anon := range mapping {
		if anon == "" || anon == author {
			t.Fatalf("author %q mapped to %q", author, anon)
		}
	}
}

func TestRewriteInPlace(t *testing.T) {
	polls := []core.Poll{{Author: "Mario Rossi"}, {Author: "Sconosciuto"}}
	messages := []core.Message{{Author: "Mario Rossi"}}
	mapping := map[string]string{"Mario Rossi": "Drago Saggio"}

	RewritePolls(polls, mapping)
	RewriteMessages(messages, mapping)

	if polls[0].Author != "Drago Saggio" || messages[0].Author != "Drago Saggio" {
		t.Fatalf("mapped authors must be rewritten: %q, %q", polls[0].Author, messages[0].Author)
	}
	if polls[1].Author != "Sconosciuto" {
		t.Fatalf("unmapped authors must pass through: %q", polls[1].Author)
	}
}
