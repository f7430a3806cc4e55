package core

import "time"

// Message is a single free-text chat entry recovered from the transcript.
// Field names follow the persisted artifact layout consumed by the dashboard.
type Message struct {
	Timestamp time.Time `json:"DateTime"`
	Author    string    `json:"Author"`
	Text      string    `json:"Message"`
}

// Poll is a multi-option poll with per-option vote tallies.
// TotalVotes is derived from Options and recomputed on every load/merge;
// it is serialized as a convenience for the dashboard, never trusted back.
type Poll struct {
	Timestamp  time.Time      `json:"DateTime"`
	Author     string         `json:"Author"`
	Question   string         `json:"Question"`
	Options    map[string]int `json:"Options"`
	TotalVotes int            `json:"TotalVotes"`
}

// PollKey identifies the same poll re-observed across runs.
type PollKey struct {
	Timestamp time.Time
	Author    string
	Question  string
}

// Key returns the poll's structural identity. Exact triple equality,
// no fuzzy matching.
func (p Poll) Key() PollKey {
	return PollKey{Timestamp: p.Timestamp, Author: p.Author, Question: p.Question}
}

// SumVotes recomputes the derived total from the options mapping.
func (p Poll) SumVotes() int {
	total := 0
	for _, n := range p.Options {
		total += n
	}
	return total
}

// UnanimousPoll is the compact record emitted when every voter picked the
// same option.
type UnanimousPoll struct {
	Question        string         `json:"Question"`
	Options         map[string]int `json:"Options"`
	UnanimousAnswer string         `json:"Unanimous Answer"`
}

// BucketStats is one time bucket (week, hour, or weekday) of activity.
type BucketStats struct {
	Polls           int     `json:"polls"`
	Votes           int     `json:"votes"`
	Messages        int     `json:"messages"`
	AvgVotesPerPoll float64 `json:"avg_votes_per_poll"`
}

// AuthorWeekStats carries running totals as of and including a given week.
// The series is monotonically non-decreasing per author per metric.
type AuthorWeekStats struct {
	CumulativePolls    int     `json:"cumulative_polls"`
	CumulativeVotes    int     `json:"cumulative_votes"`
	CumulativeMessages int     `json:"cumulative_messages"`
	AvgVotesPerPoll    float64 `json:"avg_votes_per_poll"`
}
