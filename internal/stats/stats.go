package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/esonde/galisondaggi/internal/core"
)

// BasicStats is the global roll-up over the whole poll corpus.
type BasicStats struct {
	TotalPolls      int        `json:"total_polls"`
	TotalVotes      int        `json:"total_votes"`
	AvgVotesPerPoll float64    `json:"avg_votes_per_poll"`
	MostVotedPoll   *core.Poll `json:"most_voted_poll"`
	LeastVotedPoll  *core.Poll `json:"least_voted_poll"`
}

// Report is the aggregator output published in analysis_results.json.
// Pollsters is keyed week id, then author.
type Report struct {
	Basic     BasicStats                                 `json:"basic_stats"`
	Pollsters map[string]map[string]core.AuthorWeekStats `json:"pollsters_stats"`
	Weekly    map[string]core.BucketStats                `json:"weekly_stats"`
	Hourly    map[int]core.BucketStats                   `json:"hourly_stats"`
	Daily     map[string]core.BucketStats                `json:"daily_stats"`
}

var dayNames = map[time.Weekday]string{
	time.Monday:    "Lunedì",
	time.Tuesday:   "Martedì",
	time.Wednesday: "Mercoledì",
	time.Thursday:  "Giovedì",
	time.Friday:    "Venerdì",
	time.Saturday:  "Sabato",
	time.Sunday:    "Domenica",
}

// WeekID buckets an instant into its "year-weeknumber" id. Weeks start on
// Monday; days before the year's first Monday fall into week 00.
func WeekID(t time.Time) string {
	wdayMon := (int(t.Weekday()) + 6) % 7
	week := (t.YearDay() + 6 - wdayMon) / 7
	return fmt.Sprintf("%d-%02d", t.Year(), week)
}

// DayName returns the localized weekday bucket label.
func DayName(t time.Time) string {
	return dayNames[t.Weekday()]
}

// Aggregate consumes the chronologically sorted poll corpus and the full
// message corpus and produces the multi-dimensional report.
func Aggregate(polls []core.Poll, messages []core.Message) Report {
	rep := Report{
		Pollsters: make(map[string]map[string]core.AuthorWeekStats),
		Weekly:    make(map[string]core.BucketStats),
		Hourly:    make(map[int]core.BucketStats),
		Daily:     make(map[string]core.BucketStats),
	}

	rep.Basic.TotalPolls = len(polls)
	for i := range polls {
		poll := &polls[i]
		rep.Basic.TotalVotes += poll.TotalVotes
		// First occurrence wins ties on both extremes.
		if rep.Basic.MostVotedPoll == nil || poll.TotalVotes > rep.Basic.MostVotedPoll.TotalVotes {
			rep.Basic.MostVotedPoll = poll
		}
		if rep.Basic.LeastVotedPoll == nil || poll.TotalVotes < rep.Basic.LeastVotedPoll.TotalVotes {
			rep.Basic.LeastVotedPoll = poll
		}

		week := WeekID(poll.Timestamp)
		author := poll.Author

		authorStats := rep.pollsterBucket(week, author)
		authorStats.CumulativePolls++
		authorStats.CumulativeVotes += poll.TotalVotes
		authorStats.AvgVotesPerPoll = float64(authorStats.CumulativeVotes) / float64(authorStats.CumulativePolls)
		rep.Pollsters[week][author] = authorStats

		bumpBucket(rep.Weekly, week, poll.TotalVotes, true)
		bumpBucket(rep.Hourly, poll.Timestamp.Hour(), poll.TotalVotes, true)
		bumpBucket(rep.Daily, DayName(poll.Timestamp), poll.TotalVotes, true)
	}
	if rep.Basic.TotalPolls > 0 {
		rep.Basic.AvgVotesPerPoll = float64(rep.Basic.TotalVotes) / float64(rep.Basic.TotalPolls)
	}

	for _, msg := range messages {
		week := WeekID(msg.Timestamp)
		author := msg.Author

		authorStats := rep.pollsterBucket(week, author)
		authorStats.CumulativeMessages++
		rep.Pollsters[week][author] = authorStats

		bumpBucket(rep.Weekly, week, 0, false)
		bumpBucket(rep.Hourly, msg.Timestamp.Hour(), 0, false)
		bumpBucket(rep.Daily, DayName(msg.Timestamp), 0, false)
	}

	finishBuckets(rep.Weekly)
	finishBuckets(rep.Hourly)
	finishBuckets(rep.Daily)

	rep.carryForward()
	return rep
}

func (r *Report) pollsterBucket(week, author string) core.AuthorWeekStats {
	if r.Pollsters[week] == nil {
		r.Pollsters[week] = make(map[string]core.AuthorWeekStats)
	}
	return r.Pollsters[week][author]
}

func bumpBucket[K comparable](m map[K]core.BucketStats, key K, votes int, isPoll bool) {
	b := m[key]
	if isPoll {
		b.Polls++
		b.Votes += votes
	} else {
		b.Messages++
	}
	m[key] = b
}

func finishBuckets[K comparable](m map[K]core.BucketStats) {
	for key, b := range m {
		if b.Polls > 0 {
			b.AvgVotesPerPoll = float64(b.Votes) / float64(b.Polls)
		}
		m[key] = b
	}
}

// carryForward turns per-week own counts into running totals. Weeks are
// visited in ascending order exactly once, and every author ever seen is
// visited each week, so an author silent in week N still appears there
// with week N-1's totals.
func (r *Report) carryForward() {
	weeks := make([]string, 0, len(r.Pollsters))
	for week := range r.Pollsters {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)

	authors := make(map[string]struct{})
	for _, week := range weeks {
		for author := range r.Pollsters[week] {
			authors[author] = struct{}{}
		}
	}

	for i := 1; i < len(weeks); i++ {
		week, prevWeek := weeks[i], weeks[i-1]
		for author := range authors {
			cur := r.Pollsters[week][author]
			prev := r.Pollsters[prevWeek][author]
			cur.CumulativePolls += prev.CumulativePolls
			cur.CumulativeVotes += prev.CumulativeVotes
			cur.CumulativeMessages += prev.CumulativeMessages
			if cur.CumulativePolls > 0 {
				cur.AvgVotesPerPoll = float64(cur.CumulativeVotes) / float64(cur.CumulativePolls)
			} else {
				cur.AvgVotesPerPoll = 0
			}
			r.Pollsters[week][author] = cur
		}
	}
}
