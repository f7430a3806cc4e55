package identikit

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Set maps a canonical author key to an opaque profile blob. Values are
// passed through the pipeline unmodified; only the keys are remapped when
// the output is anonymized.
type Set map[string]json.RawMessage

// Load reads the identikit JSON file. The file is a required input: a
// missing or malformed file aborts the run before any artifact is written.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read identikits")
	}
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, errors.Wrap(err, "decode identikits")
	}
	return set, nil
}

// Rekey returns a copy of the set keyed by each author's pseudonym.
// Authors absent from the mapping keep their original key.
func (s Set) Rekey(pseudonyms map[string]string) Set {
	out := make(Set, len(s))
	for author, profile := range s {
		key := author
		if anon, ok := pseudonyms[author]; ok {
			key = anon
		}
		out[key] = profile
	}
	return out
}
