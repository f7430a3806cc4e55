package corpus

import "github.com/esonde/galisondaggi/internal/core"

// MergeResult is the merged poll set plus the counters reported to the user.
type MergeResult struct {
	Polls   []core.Poll
	Added   int
	Updated int
}

// Merge folds newly extracted polls into the persisted set, keyed by the
// structural identity triple (timestamp, author, question). A re-observed
// poll has its options unioned key-wise: a later-seen count overwrites the
// stored one, new labels are inserted. The operation is idempotent; note
// that a union which changes nothing still counts as an update.
func Merge(existing, incoming []core.Poll) MergeResult {
	res := MergeResult{Polls: make([]core.Poll, 0, len(existing)+len(incoming))}

	index := make(map[core.PollKey]int, len(existing))
	for _, poll := range existing {
		copy := poll
		copy.Options = cloneOptions(poll.Options)
		index[copy.Key()] = len(res.Polls)
		res.Polls = append(res.Polls, copy)
	}

	for _, poll := range incoming {
		key := poll.Key()
		if i, ok := index[key]; ok {
			for label, votes := range poll.Options {
				res.Polls[i].Options[label] = votes
			}
			res.Updated++
			continue
		}
		copy := poll
		copy.Options = cloneOptions(poll.Options)
		index[key] = len(res.Polls)
		res.Polls = append(res.Polls, copy)
		res.Added++
	}

	for i := range res.Polls {
		res.Polls[i].TotalVotes = res.Polls[i].SumVotes()
	}
	return res
}

func cloneOptions(options map[string]int) map[string]int {
	out := make(map[string]int, len(options))
	for label, votes := range options {
		out[label] = votes
	}
	return out
}
