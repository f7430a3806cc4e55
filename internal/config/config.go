package config

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Inputs    InputConfig
	Artifacts ArtifactConfig
	Archive   ArchiveConfig
	Anonymize AnonymizeConfig
	HTTP      HTTPConfig
}

type InputConfig struct {
	Transcript string
	Contacts   string
	Identikits string
}

type ArtifactConfig struct {
	Dir string
}

type ArchiveConfig struct {
	Enabled    bool
	Path       string
	BatchSize  int
	FlushMaxMS int
}

type AnonymizeConfig struct {
	Seed    int64
	SeedSet bool
}

type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
	RateRPS     int
	RateBurst   int
	Metrics     bool
	AccessLog   bool
}

const (
	defaultTranscript  = "chat.txt"
	defaultContacts    = "contacts.csv"
	defaultIdentikits  = "identikits.json"
	defaultArchivePath = "archive.db"
	defaultBatchSize   = 1
	defaultFlushMS     = 0
	defaultRateRPS     = 20
	defaultRateBurst   = 40
)

func Load() Config {
	cfg := Config{}

	cfg.Inputs.Transcript = readPath("SONDAGGI_TRANSCRIPT", defaultTranscript)
	cfg.Inputs.Contacts = readPath("SONDAGGI_CONTACTS", defaultContacts)
	cfg.Inputs.Identikits = readPath("SONDAGGI_IDENTIKITS", defaultIdentikits)

	cfg.Artifacts.Dir = readPath("SONDAGGI_ARTIFACTS_DIR", ".")

	cfg.Archive.Path = readPath("SONDAGGI_ARCHIVE_PATH", defaultArchivePath)
	cfg.Archive.Enabled = readBool("SONDAGGI_ARCHIVE_ENABLED", false)
	cfg.Archive.BatchSize = readInt("SONDAGGI_ARCHIVE_BATCH_SIZE", defaultBatchSize)
	cfg.Archive.FlushMaxMS = readInt("SONDAGGI_ARCHIVE_FLUSH_MAX_MS", defaultFlushMS)

	if raw := strings.TrimSpace(os.Getenv("SONDAGGI_ANON_SEED")); raw != "" {
		if seed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.Anonymize.Seed = seed
			cfg.Anonymize.SeedSet = true
		}
	}

	cfg.HTTP.Addr = strings.TrimSpace(os.Getenv("SONDAGGI_HTTP_ADDR"))
	cfg.HTTP.CORSOrigins = splitList(os.Getenv("SONDAGGI_HTTP_CORS_ORIGINS"))
	cfg.HTTP.RateRPS = readInt("SONDAGGI_HTTP_RATE_RPS", defaultRateRPS)
	cfg.HTTP.RateBurst = readInt("SONDAGGI_HTTP_RATE_BURST", defaultRateBurst)
	cfg.HTTP.Metrics = readBool("SONDAGGI_HTTP_METRICS", true)
	cfg.HTTP.AccessLog = readBool("SONDAGGI_HTTP_ACCESS_LOG", true)

	return cfg
}

func readPath(name, def string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return def
	}
	return value
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return dedupe(out)
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(v))
	}
	sort.Strings(out)
	return out
}

// readInt accepts any non-negative value; zero is meaningful for the rate
// limiter (disabled) and the flush interval (flush on batch only).
func readInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < 0 {
		return def
	}
	return n
}

func readBool(name string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func (c Config) FlushInterval() time.Duration {
	if c.Archive.FlushMaxMS <= 0 {
		return 0
	}
	return time.Duration(c.Archive.FlushMaxMS) * time.Millisecond
}

func (c Config) Batch() int {
	if c.Archive.BatchSize <= 0 {
		return defaultBatchSize
	}
	return c.Archive.BatchSize
}

type Summary struct {
	Transcript   string   `json:"transcript"`
	Contacts     string   `json:"contacts"`
	Identikits   string   `json:"identikits"`
	ArtifactsDir string   `json:"artifacts_dir"`
	Archive      bool     `json:"archive"`
	ArchivePath  string   `json:"archive_path,omitempty"`
	Batch        int      `json:"batch"`
	FlushMaxMS   int      `json:"flush_ms"`
	AnonSeeded   bool     `json:"anon_seeded"`
	HTTPAddr     string   `json:"http_addr,omitempty"`
	CORSOrigins  []string `json:"cors_origins,omitempty"`
}

func (c Config) Summary() Summary {
	return Summary{
		Transcript:   c.Inputs.Transcript,
		Contacts:     c.Inputs.Contacts,
		Identikits:   c.Inputs.Identikits,
		ArtifactsDir: c.Artifacts.Dir,
		Archive:      c.Archive.Enabled,
		ArchivePath:  c.Archive.Path,
		Batch:        c.Batch(),
		FlushMaxMS:   c.Archive.FlushMaxMS,
		AnonSeeded:   c.Anonymize.SeedSet,
		HTTPAddr:     c.HTTP.Addr,
		CORSOrigins:  append([]string(nil), c.HTTP.CORSOrigins...),
	}
}

func (c Config) SummaryJSON() []byte {
	summary := struct {
		Config Summary `json:"config_summary"`
	}{Config: c.Summary()}
	data, _ := json.Marshal(summary)
	return data
}
