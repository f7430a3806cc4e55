package stats

import (
	"testing"
	"time"

	"github.com/esonde/galisondaggi/internal/core"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func makePoll(t *testing.T, when, author string, votes int) core.Poll {
	t.Helper()
	return core.Poll{
		Timestamp:  mustParse(t, when),
		Author:     author,
		Question:   "Q by " + author,
		Options:    map[string]int{"Yes": votes},
		TotalVotes: votes,
	}
}

func TestWeekID(t *testing.T) {
	cases := []struct {
		when string
		want string
	}{
		// 2024-01-01 is a Monday, so it opens week 01.
		{"2024-01-01 10:00", "2024-01"},
		{"2024-01-07 10:00", "2024-01"},
		{"2024-01-08 10:00", "2024-02"},
		// 2023-01-01 is a Sunday, before the first Monday: week 00.
		{"2023-01-01 10:00", "2023-00"},
		{"2023-01-02 10:00", "2023-01"},
		{"2024-12-31 10:00", "2024-53"},
	}
	for _, tc := range cases {
		if got := WeekID(mustParse(t, tc.when)); got != tc.want {
			t.Errorf("WeekID(%s) = %q, want %q", tc.when, got, tc.want)
		}
	}
}

func TestDayName(t *testing.T) {
	if got := DayName(mustParse(t, "2024-01-01 10:00")); got != "Lunedì" {
		t.Fatalf("DayName(Monday) = %q", got)
	}
	if got := DayName(mustParse(t, "2024-01-07 10:00")); got != "Domenica" {
		t.Fatalf("DayName(Sunday) = %q", got)
	}
}

func TestAggregateBasicStats(t *testing.T) {
	polls := []core.Poll{
		makePoll(t, "2024-01-01 10:00", "Alice", 5),
		makePoll(t, "2024-01-02 11:00", "Bob", 2),
		makePoll(t, "2024-01-03 12:00", "Alice", 5),
	}
	rep := Aggregate(polls, nil)

	if rep.Basic.TotalPolls != 3 || rep.Basic.TotalVotes != 12 {
		t.Fatalf("totals wrong: %d polls, %d votes", rep.Basic.TotalPolls, rep.Basic.TotalVotes)
	}
	if rep.Basic.AvgVotesPerPoll != 4 {
		t.Fatalf("avg wrong: %v", rep.Basic.AvgVotesPerPoll)
	}
	// Both extremes resolve ties to the earliest occurrence.
	if rep.Basic.MostVotedPoll.Author != "Alice" ||
		!rep.Basic.MostVotedPoll.Timestamp.Equal(mustParse(t, "2024-01-01 10:00")) {
		t.Fatalf("most voted tie must keep the first poll: %+v", rep.Basic.MostVotedPoll)
	}
	if rep.Basic.LeastVotedPoll.Author != "Bob" {
		t.Fatalf("least voted wrong: %+v", rep.Basic.LeastVotedPoll)
	}
}

func TestAggregateEmptyCorpus(t *testing.T) {
	rep := Aggregate(nil, nil)
	if rep.Basic.TotalPolls != 0 || rep.Basic.AvgVotesPerPoll != 0 {
		t.Fatalf("empty corpus must yield zero stats: %+v", rep.Basic)
	}
	if rep.Basic.MostVotedPoll != nil || rep.Basic.LeastVotedPoll != nil {
		t.Fatalf("empty corpus must have nil extremes")
	}
}

func TestAggregateBuckets(t *testing.T) {
	polls := []core.Poll{
		makePoll(t, "2024-01-01 10:00", "Alice", 4), // Monday, week 01
		makePoll(t, "2024-01-01 10:30", "Bob", 2),   // same hour bucket
	}
	messages := []core.Message{
		{Timestamp: mustParse(t, "2024-01-01 22:00"), Author: "Carol", Text: "hi"},
	}
	rep := Aggregate(polls, messages)

	week := rep.Weekly["2024-01"]
	if week.Polls != 2 || week.Votes != 6 || week.Messages != 1 {
		t.Fatalf("weekly bucket wrong: %+v", week)
	}
	if week.AvgVotesPerPoll != 3 {
		t.Fatalf("weekly avg wrong: %v", week.AvgVotesPerPoll)
	}

	hour := rep.Hourly[10]
	if hour.Polls != 2 || hour.Votes != 6 {
		t.Fatalf("hourly bucket wrong: %+v", hour)
	}
	if rep.Hourly[22].Messages != 1 || rep.Hourly[22].Polls != 0 {
		t.Fatalf("message-only hour wrong: %+v", rep.Hourly[22])
	}
	if rep.Hourly[22].AvgVotesPerPoll != 0 {
		t.Fatalf("poll-free bucket avg must stay zero: %v", rep.Hourly[22].AvgVotesPerPoll)
	}

	day := rep.Daily["Lunedì"]
	if day.Polls != 2 || day.Messages != 1 {
		t.Fatalf("daily bucket wrong: %+v", day)
	}
}

func TestPollsterCumulativeCarryForward(t *testing.T) {
	polls := []core.Poll{
		makePoll(t, "2024-01-01 10:00", "Alice", 4), // week 01
		makePoll(t, "2024-01-08 10:00", "Alice", 2), // week 02
		// Alice is silent in week 03, Bob first appears there.
		makePoll(t, "2024-01-15 10:00", "Bob", 6), // week 03
	}
	messages := []core.Message{
		{Timestamp: mustParse(t, "2024-01-08 12:00"), Author: "Alice", Text: "ciao"},
	}
	rep := Aggregate(polls, messages)

	w1 := rep.Pollsters["2024-01"]["Alice"]
	if w1.CumulativePolls != 1 || w1.CumulativeVotes != 4 || w1.AvgVotesPerPoll != 4 {
		t.Fatalf("week 01 wrong: %+v", w1)
	}

	w2 := rep.Pollsters["2024-02"]["Alice"]
	if w2.CumulativePolls != 2 || w2.CumulativeVotes != 6 || w2.CumulativeMessages != 1 {
		t.Fatalf("week 02 must accumulate: %+v", w2)
	}
	if w2.AvgVotesPerPoll != 3 {
		t.Fatalf("week 02 avg wrong: %v", w2.AvgVotesPerPoll)
	}

	// Silent week: Alice still present with her week 02 totals carried forward.
	w3 := rep.Pollsters["2024-03"]["Alice"]
	if w3.CumulativePolls != 2 || w3.CumulativeVotes != 6 || w3.CumulativeMessages != 1 {
		t.Fatalf("silent week must carry totals forward: %+v", w3)
	}

	b3 := rep.Pollsters["2024-03"]["Bob"]
	if b3.CumulativePolls != 1 || b3.CumulativeVotes != 6 {
		t.Fatalf("late joiner week 03 wrong: %+v", b3)
	}
	// Bob did not exist before week 03, so earlier weeks stay as they are.
	if _, ok := rep.Pollsters["2024-01"]["Bob"]; ok {
		t.Fatalf("carry-forward must not invent history before an author's first week")
	}
}
