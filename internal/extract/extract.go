package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/esonde/galisondaggi/internal/chatdate"
	"github.com/esonde/galisondaggi/internal/core"
)

// The transcript interleaves two grammars: stateless message lines and
// stateful poll blocks (header, question line, zero or more option lines).
var (
	entryPattern  = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}), (\d{2}:\d{2}) - (.*?): (.*)$`)
	headerPattern = regexp.MustCompile(`(?i)^(\d{1,2}/\d{1,2}/\d{2,4}), (\d{2}:\d{2}) - (.*?): (SONDAGGIO|POLL):`)
	optionPattern = regexp.MustCompile(`(?i)^(?:OPZIONE|OPTION): (.*) \(.*?(\d+) vot`)
	markerPattern = regexp.MustCompile(`(?i)^(?:SONDAGGIO|POLL):`)
)

type state int

const (
	stateIdle state = iota
	stateAwaitingQuestion
	stateCollectingOptions
)

// Diagnostics aggregates per-line outcomes of one extraction pass.
// Parse failures here are recoverable: the offending line or poll is
// skipped and the pass continues.
type Diagnostics struct {
	Lines            int
	Messages         int
	Polls            int
	MessageDateFails int
	PollDateFails    int
	Warnings         []string
}

func (d *Diagnostics) warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// LogSummary emits the pass counters through the structured logger.
func (d Diagnostics) LogSummary(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("extract: pass complete",
		"lines", d.Lines,
		"messages", d.Messages,
		"polls", d.Polls,
		"message_date_failures", d.MessageDateFails,
		"poll_date_failures", d.PollDateFails,
	)
}

// Result holds the records recovered from one transcript pass.
type Result struct {
	Messages []core.Message
	Polls    []core.Poll
	Diag     Diagnostics
}

type extractor struct {
	format chatdate.Format
	state  state
	poll   *core.Poll
	res    Result
}

// Extract runs a single ordered pass over the transcript lines.
// Message classification is stateless; the poll grammar is a small state
// machine. A line matching neither grammar while options are being
// collected is inert: the source format allows option blocks to be
// interrupted without terminating the poll.
func Extract(lines []string, format chatdate.Format) Result {
	ex := &extractor{format: format}
	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r\n")
		ex.res.Diag.Lines++
		ex.step(line)
	}
	ex.flush()
	ex.res.Diag.Messages = len(ex.res.Messages)
	ex.res.Diag.Polls = len(ex.res.Polls)
	return ex.res
}

func (ex *extractor) step(line string) {
	if m := headerPattern.FindStringSubmatch(line); m != nil {
		ex.flush()
		ts, err := ex.format.Parse(m[1], m[2])
		if err != nil {
			ex.res.Diag.PollDateFails++
			ex.res.Diag.warnf("poll header date %q %q: %v", m[1], m[2], err)
			ex.state = stateIdle
			return
		}
		ex.poll = &core.Poll{
			Timestamp: ts,
			Author:    strings.TrimSpace(m[3]),
			Options:   make(map[string]int),
		}
		ex.state = stateAwaitingQuestion
		return
	}

	switch ex.state {
	case stateAwaitingQuestion:
		// The line after a header is the question, whatever its shape.
		ex.poll.Question = strings.TrimSpace(line)
		ex.state = stateCollectingOptions
	case stateCollectingOptions:
		if m := optionPattern.FindStringSubmatch(line); m != nil {
			votes, err := strconv.Atoi(m[2])
			if err != nil {
				ex.res.Diag.warnf("option votes %q: %v", m[2], err)
				return
			}
			ex.poll.Options[strings.TrimSpace(m[1])] = votes
			return
		}
	}

	ex.maybeMessage(line)
}

// maybeMessage emits a Message for any line matching the message grammar
// whose text does not itself open a poll block.
func (ex *extractor) maybeMessage(line string) {
	m := entryPattern.FindStringSubmatch(line)
	if m == nil {
		return
	}
	if markerPattern.MatchString(m[4]) {
		return
	}
	ts, err := ex.format.Parse(m[1], m[2])
	if err != nil {
		ex.res.Diag.MessageDateFails++
		ex.res.Diag.warnf("message date %q %q: %v", m[1], m[2], err)
		return
	}
	ex.res.Messages = append(ex.res.Messages, core.Message{
		Timestamp: ts,
		Author:    strings.TrimSpace(m[3]),
		Text:      m[4],
	})
}

// flush closes the poll under construction, if any.
func (ex *extractor) flush() {
	if ex.poll != nil {
		ex.poll.TotalVotes = ex.poll.SumVotes()
		ex.res.Polls = append(ex.res.Polls, *ex.poll)
		ex.poll = nil
	}
	ex.state = stateIdle
}
