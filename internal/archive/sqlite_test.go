package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/esonde/galisondaggi/internal/core"
	"github.com/esonde/galisondaggi/internal/httpapi"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	arch, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { arch.Close() })
	return arch
}

func TestWriteMessageIsIdempotent(t *testing.T) {
	arch := openTestArchive(t)
	ctx := context.Background()

	msg := core.Message{
		Timestamp: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Author:    "Drago Saggio",
		Text:      "ciao a tutti",
	}
	for i := 0; i < 3; i++ {
		if err := arch.WriteMessage(msg); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	n, err := arch.CountMessages(ctx, httpapi.Filters{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("re-observed message must be a no-op, got %d rows", n)
	}
}

func TestWritePollUpserts(t *testing.T) {
	arch := openTestArchive(t)
	ctx := context.Background()

	poll := core.Poll{
		Timestamp:  time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Author:     "Drago Saggio",
		Question:   "Best color?",
		Options:    map[string]int{"Red": 2},
		TotalVotes: 2,
	}
	if err := arch.WritePoll(poll); err != nil {
		t.Fatalf("first write: %v", err)
	}

	poll.Options = map[string]int{"Red": 2, "Blue": 1}
	poll.TotalVotes = 3
	if err := arch.WritePoll(poll); err != nil {
		t.Fatalf("second write: %v", err)
	}

	polls, err := arch.ListPolls(ctx, httpapi.Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(polls) != 1 {
		t.Fatalf("upsert must keep one row per identity, got %d", len(polls))
	}
	got := polls[0]
	if got.TotalVotes != 3 || got.Options["Blue"] != 1 {
		t.Fatalf("stored tallies must be overwritten: %+v", got)
	}
	if !got.Timestamp.Equal(poll.Timestamp) {
		t.Fatalf("timestamp round trip wrong: %v", got.Timestamp)
	}
}

func TestListFilters(t *testing.T) {
	arch := openTestArchive(t)
	ctx := context.Background()

	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, author := range []string{"Drago Saggio", "Fenice Arguta", "Drago Saggio"} {
		msg := core.Message{Timestamp: base.Add(time.Duration(i) * time.Hour), Author: author, Text: "msg"}
		if err := arch.WriteMessage(msg); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	msgs, err := arch.ListMessages(ctx, httpapi.Filters{Authors: []string{"drago"}, Order: httpapi.OrderAsc})
	if err != nil {
		t.Fatalf("author filter: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("case-insensitive substring match expected 2, got %d", len(msgs))
	}
	if !msgs[0].Timestamp.Before(msgs[1].Timestamp) {
		t.Fatalf("ascending order requested, got %v then %v", msgs[0].Timestamp, msgs[1].Timestamp)
	}

	since := base.Add(90 * time.Minute)
	msgs, err = arch.ListMessages(ctx, httpapi.Filters{Since: &since})
	if err != nil {
		t.Fatalf("since filter: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Author != "Drago Saggio" {
		t.Fatalf("since filter wrong: %v", msgs)
	}

	msgs, err = arch.ListMessages(ctx, httpapi.Filters{Limit: 1})
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("limit must cap the result, got %d", len(msgs))
	}
	// Default order is newest first.
	if !msgs[0].Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("default order must be descending, got %v", msgs[0].Timestamp)
	}
}

func TestResetClearsMirror(t *testing.T) {
	arch := openTestArchive(t)
	ctx := context.Background()

	if err := arch.WriteMessage(core.Message{Timestamp: time.Now().UTC(), Author: "A", Text: "x"}); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	if err := arch.WritePoll(core.Poll{Timestamp: time.Now().UTC(), Author: "A", Question: "Q?", Options: map[string]int{}}); err != nil {
		t.Fatalf("seed poll: %v", err)
	}

	if err := arch.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	n, err := arch.CountMessages(ctx, httpapi.Filters{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("reset must empty the mirror, %d messages left", n)
	}
	polls, err := arch.ListPolls(ctx, httpapi.Filters{})
	if err != nil {
		t.Fatalf("list polls: %v", err)
	}
	if len(polls) != 0 {
		t.Fatalf("reset must empty the mirror, %d polls left", len(polls))
	}
}
