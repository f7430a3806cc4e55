package stats

import "github.com/esonde/galisondaggi/internal/core"

// Unanimous flags every poll in which a single option collected all of the
// votes. A poll with zero total votes is never unanimous; without that
// guard any zero-count option would match the degenerate 0 == 0 case.
func Unanimous(polls []core.Poll) []core.UnanimousPoll {
	var out []core.UnanimousPoll
	for _, poll := range polls {
		total := poll.SumVotes()
		if total == 0 {
			continue
		}
		for label, votes := range poll.Options {
			if votes == total {
				out = append(out, core.UnanimousPoll{
					Question:        poll.Question,
					Options:         poll.Options,
					UnanimousAnswer: label,
				})
				break
			}
		}
	}
	return out
}
