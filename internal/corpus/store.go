package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/esonde/galisondaggi/internal/core"
)

// Artifact file names, shared with the dashboard frontends.
const (
	MessagesFile  = "messages.json"
	PollsFile     = "polls.json"
	ResultsFile   = "analysis_results.json"
	UnanimousFile = "unanimous_polls.json"
)

// Store reads and rewrites the persisted JSON artifacts in one directory.
// Every write is whole-file replace: the artifact is staged to a temp file
// and renamed into place, so a failed run never leaves a partial artifact.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the absolute location of a named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// LoadMessages returns the persisted message corpus, empty if absent.
func (s *Store) LoadMessages() ([]core.Message, error) {
	var out []core.Message
	if err := s.loadJSON(MessagesFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadPolls returns the persisted poll corpus as stored, empty if absent.
// Option values are not validated here; ValidatedPolls does that.
func (s *Store) LoadPolls() ([]core.Poll, error) {
	var out []core.Poll
	if err := s.loadJSON(PollsFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) loadJSON(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "read %s", name)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "decode %s", name)
	}
	return nil
}

func (s *Store) SaveMessages(msgs []core.Message) error {
	return s.SaveJSON(MessagesFile, msgs)
}

func (s *Store) SavePolls(polls []core.Poll) error {
	return s.SaveJSON(PollsFile, polls)
}

// SaveJSON atomically replaces a named artifact with the encoded value.
func (s *Store) SaveJSON(name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "stage %s", name)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "close %s", name)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "replace %s", name)
	}
	return nil
}

// validatedPoll mirrors core.Poll with untyped option values, so a corpus
// touched by older revisions can still be loaded and cleaned.
type validatedPoll struct {
	Timestamp time.Time                  `json:"DateTime"`
	Author    string                     `json:"Author"`
	Question  string                     `json:"Question"`
	Options   map[string]json.RawMessage `json:"Options"`
}

// ValidatedPolls reloads the persisted poll corpus, drops any option whose
// vote count is not a non-negative integer (with a diagnostic), recomputes
// TotalVotes over the surviving subset, and returns the polls sorted by
// timestamp. This is the aggregator's input shape.
func (s *Store) ValidatedPolls() ([]core.Poll, []string, error) {
	data, err := os.ReadFile(s.Path(PollsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrapf(err, "read %s", PollsFile)
	}

	var raw []validatedPoll
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, errors.Wrapf(err, "decode %s", PollsFile)
	}

	var warnings []string
	polls := make([]core.Poll, 0, len(raw))
	for _, rp := range raw {
		poll := core.Poll{
			Timestamp: rp.Timestamp,
			Author:    rp.Author,
			Question:  rp.Question,
			Options:   make(map[string]int, len(rp.Options)),
		}
		for label, value := range rp.Options {
			var votes int
			if err := json.Unmarshal(value, &votes); err != nil || votes < 0 {
				warnings = append(warnings, fmt.Sprintf(
					"non-numeric option value: %s = %s in poll %q by %s",
					label, string(value), rp.Question, rp.Author))
				continue
			}
			poll.Options[label] = votes
		}
		poll.TotalVotes = poll.SumVotes()
		polls = append(polls, poll)
	}

	sort.SliceStable(polls, func(i, j int) bool {
		return polls[i].Timestamp.Before(polls[j].Timestamp)
	})
	return polls, warnings, nil
}
