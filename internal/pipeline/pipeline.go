package pipeline

import (
	"bufio"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/esonde/galisondaggi/internal/anonymize"
	"github.com/esonde/galisondaggi/internal/chatdate"
	"github.com/esonde/galisondaggi/internal/contacts"
	"github.com/esonde/galisondaggi/internal/core"
	"github.com/esonde/galisondaggi/internal/corpus"
	"github.com/esonde/galisondaggi/internal/extract"
	"github.com/esonde/galisondaggi/internal/identikit"
	"github.com/esonde/galisondaggi/internal/mood"
	"github.com/esonde/galisondaggi/internal/stats"
)

// Inputs are the required source files. Any of them missing aborts the
// run before an artifact is touched.
type Inputs struct {
	Transcript string
	Contacts   string
	Identikits string
}

// Results is the analysis_results.json document: the aggregator report
// plus the mood series and the anonymized identikit passthrough.
type Results struct {
	stats.Report
	DayMood    mood.Analysis `json:"day_mood_analysis"`
	Identikits identikit.Set `json:"identikits"`
}

// Summary carries the run counters for process reporting.
type Summary struct {
	DateFormat     chatdate.Format
	ExistingPolls  int
	AddedPolls     int
	UpdatedPolls   int
	TotalPolls     int
	NewMessages    int
	TotalMessages  int
	UnanimousPolls int
	MoodPolls      int
	Diag           extract.Diagnostics
}

// Mirror receives the anonymized corpus after each run, typically the
// sqlite archive behind a buffered writer.
type Mirror interface {
	WriteMessage(core.Message) error
	WritePoll(core.Poll) error
}

// Run executes one full single-threaded pass: extract, merge, persist,
// analyze, anonymize, publish. The pseudonym seed is threaded in so a
// caller can pin it for reproducible output.
func Run(inputs Inputs, store *corpus.Store, mirror Mirror, seed int64) (Summary, error) {
	var sum Summary

	book, err := contacts.Load(inputs.Contacts)
	if err != nil {
		return sum, err
	}
	kits, err := identikit.Load(inputs.Identikits)
	if err != nil {
		return sum, err
	}
	lines, err := readLines(inputs.Transcript)
	if err != nil {
		return sum, err
	}

	format := chatdate.Resolve(lines)
	slog.Info("pipeline: resolved date format", "format", format.String())
	sum.DateFormat = format

	res := extract.Extract(lines, format)
	res.Diag.LogSummary(slog.Default())
	for _, warning := range res.Diag.Warnings {
		slog.Warn("extract: " + warning)
	}
	sum.Diag = res.Diag

	for i := range res.Messages {
		res.Messages[i].Author = book.Canonical(res.Messages[i].Author)
	}
	for i := range res.Polls {
		res.Polls[i].Author = book.Canonical(res.Polls[i].Author)
	}

	existingMessages, err := store.LoadMessages()
	if err != nil {
		return sum, err
	}
	allMessages := append(existingMessages, res.Messages...)
	if err := store.SaveMessages(allMessages); err != nil {
		return sum, err
	}
	sum.NewMessages = len(res.Messages)
	sum.TotalMessages = len(allMessages)

	existingPolls, err := store.LoadPolls()
	if err != nil {
		return sum, err
	}
	merged := corpus.Merge(existingPolls, res.Polls)
	if err := store.SavePolls(merged.Polls); err != nil {
		return sum, err
	}
	sum.ExistingPolls = len(existingPolls)
	sum.AddedPolls = merged.Added
	sum.UpdatedPolls = merged.Updated
	sum.TotalPolls = len(merged.Polls)

	// Reload through validation: drops non-integer vote values and sorts
	// chronologically, the aggregator's required input shape.
	polls, warnings, err := store.ValidatedPolls()
	if err != nil {
		return sum, err
	}
	for _, warning := range warnings {
		slog.Warn("corpus: " + warning)
	}

	// Anonymization sees only canonical author keys; the mapping is a
	// one-shot value threaded through every rewrite below.
	mapping := anonymize.NewGenerator(seed).Mapping(polls, allMessages)
	anonymize.RewritePolls(polls, mapping)
	anonymize.RewriteMessages(allMessages, mapping)

	results := Results{
		Report:     stats.Aggregate(polls, allMessages),
		DayMood:    mood.Analyze(polls),
		Identikits: kits.Rekey(mapping),
	}
	sum.MoodPolls = results.DayMood.Count
	if err := store.SaveJSON(corpus.ResultsFile, results); err != nil {
		return sum, err
	}

	unanimous := stats.Unanimous(polls)
	sum.UnanimousPolls = len(unanimous)
	if err := store.SaveJSON(corpus.UnanimousFile, unanimous); err != nil {
		return sum, err
	}

	if mirror != nil {
		if err := mirrorCorpus(mirror, allMessages, polls); err != nil {
			return sum, err
		}
	}

	return sum, nil
}

func mirrorCorpus(mirror Mirror, messages []core.Message, polls []core.Poll) error {
	for _, msg := range messages {
		if err := mirror.WriteMessage(msg); err != nil {
			return errors.Wrap(err, "mirror message")
		}
	}
	for _, poll := range polls {
		if err := mirror.WritePoll(poll); err != nil {
			return errors.Wrap(err, "mirror poll")
		}
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open transcript")
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read transcript")
	}
	return lines, nil
}
