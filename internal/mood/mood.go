package mood

import (
	"regexp"
	"strings"

	"github.com/esonde/galisondaggi/internal/core"
)

// Glyph assigns a signed wellbeing level to an emoji option label.
// Levels run from -3 (terrible day) to +3; the 🙂🙃 composite is the
// neutral "so-so" answer and must be matched before its 🙂 prefix.
// Its reversed spelling 🙃🙂 is normalized onto the same bin.
type Glyph struct {
	Emoji string
	Level int
	Color string
}

var wellbeingLevels = []Glyph{
	{"😄", 3, "#00ff00"},
	{"😁", 3, "#00ff00"},
	{"😊", 2, "#7fff00"},
	{"🙂🙃", 0, "#ffa500"},
	{"🙂", 1, "#ffff00"},
	{"😐", 0, "#ffa500"},
	{"😕", -1, "#ff8c00"},
	{"🙁", -2, "#ff4500"},
	{"☹️", -3, "#ff0000"},
	{"😣", -3, "#ff0000"},
}

// MinLevel and MaxLevel bound every daily average the analyzer can emit.
const (
	MinLevel = -3
	MaxLevel = 3
)

var questionPattern = regexp.MustCompile(`(?i).*?(andata|stata|è|è stata|was|been).*?(giornata|giorno|oggi|day|today)`)

// Analysis is the day_mood_analysis section of the published results.
// DailyMoods is date → glyph → votes; DailyAverage is the weighted mean
// wellbeing level per date, 0 when no recognized votes landed that day.
type Analysis struct {
	Count        int                       `json:"day_mood_polls_count"`
	DailyMoods   map[string]map[string]int `json:"daily_moods"`
	DailyAverage map[string]float64        `json:"daily_average"`
}

// Analyze filters "how was your day" polls whose options are majority
// emoji-coded and folds their votes into per-date mood series. Votes on
// glyphs outside the wellbeing table are dropped from the index but stay
// in the poll's raw tally.
func Analyze(polls []core.Poll) Analysis {
	an := Analysis{
		DailyMoods:   make(map[string]map[string]int),
		DailyAverage: make(map[string]float64),
	}
	type accum struct {
		total int
		count int
	}
	sums := make(map[string]accum)

	for _, poll := range polls {
		if !IsDayMoodPoll(poll) {
			continue
		}
		an.Count++

		date := poll.Timestamp.Format("2006-01-02")
		if _, ok := an.DailyMoods[date]; !ok {
			hist := make(map[string]int, len(wellbeingLevels))
			for _, g := range wellbeingLevels {
				hist[g.Emoji] = 0
			}
			an.DailyMoods[date] = hist
			an.DailyAverage[date] = 0
		}

		for label, votes := range poll.Options {
			glyph, ok := matchGlyph(label)
			if !ok {
				continue
			}
			an.DailyMoods[date][glyph.Emoji] += votes
			acc := sums[date]
			acc.total += glyph.Level * votes
			acc.count += votes
			sums[date] = acc
		}
	}

	for date, acc := range sums {
		if acc.count > 0 {
			an.DailyAverage[date] = float64(acc.total) / float64(acc.count)
		}
	}
	return an
}

// IsDayMoodPoll reports whether a poll asks about the day's mood and
// answers mostly in emoji.
func IsDayMoodPoll(poll core.Poll) bool {
	if !questionPattern.MatchString(poll.Question) {
		return false
	}
	emojiCoded := 0
	for label := range poll.Options {
		if containsEmoji(label) {
			emojiCoded++
		}
	}
	return emojiCoded*2 > len(poll.Options)
}

func matchGlyph(label string) (Glyph, bool) {
	// The reversed composite spelling folds into the canonical bin so the
	// published histogram keys stay stable for the frontends.
	label = strings.ReplaceAll(label, "🙃🙂", "🙂🙃")
	for _, g := range wellbeingLevels {
		if strings.Contains(label, g.Emoji) {
			return g, true
		}
	}
	return Glyph{}, false
}

// emojiBlocks mirrors the codepoint ranges the source format uses to
// decide whether an option label is emoji-coded.
var emojiBlocks = [][2]rune{
	{0x1F600, 0x1F64F},
	{0x1F300, 0x1F5FF},
	{0x1F680, 0x1F6FF},
	{0x1F1E0, 0x1F1FF},
	{0x2702, 0x27B0},
	{0x24C2, 0x1F251},
}

func containsEmoji(s string) bool {
	for _, r := range s {
		for _, block := range emojiBlocks {
			if r >= block[0] && r <= block[1] {
				return true
			}
		}
	}
	return false
}
