package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/esonde/galisondaggi/internal/corpus"
)

// BuildInfo describes the compiled binary.
type BuildInfo struct {
	Version  string
	Revision string
	BuiltAt  time.Time
}

// artifactState tells a frontend whether an artifact exists yet and when
// the last ingest pass rewrote it.
type artifactState struct {
	Published bool   `json:"published"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type infoResponse struct {
	Version   string                   `json:"version"`
	Revision  string                   `json:"rev"`
	BuiltAt   string                   `json:"built_at"`
	Go        string                   `json:"go"`
	Archive   bool                     `json:"archive"`
	Artifacts map[string]artifactState `json:"artifacts"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	resp := infoResponse{
		Version:   s.opts.Build.Version,
		Revision:  s.opts.Build.Revision,
		Go:        runtime.Version(),
		Archive:   s.store != nil,
		Artifacts: make(map[string]artifactState, 4),
	}
	if !s.opts.Build.BuiltAt.IsZero() {
		resp.BuiltAt = s.opts.Build.BuiltAt.UTC().Format(time.RFC3339)
	}

	store := corpus.NewStore(s.opts.ArtifactsDir)
	names := []string{
		corpus.ResultsFile,
		corpus.UnanimousFile,
		corpus.PollsFile,
		corpus.MessagesFile,
	}
	for _, name := range names {
		state := artifactState{}
		if fi, err := os.Stat(store.Path(name)); err == nil {
			state.Published = true
			state.UpdatedAt = fi.ModTime().UTC().Format(time.RFC3339)
		}
		resp.Artifacts[name] = state
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}
