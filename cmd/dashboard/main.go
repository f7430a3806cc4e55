package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/esonde/galisondaggi/internal/archive"
	"github.com/esonde/galisondaggi/internal/config"
	"github.com/esonde/galisondaggi/internal/corpus"
	"github.com/esonde/galisondaggi/internal/httpapi"
	"github.com/esonde/galisondaggi/internal/pipeline"
	"github.com/esonde/galisondaggi/internal/version"
	"github.com/esonde/galisondaggi/internal/watch"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		versionFlag     bool
		httpAddr        string
		httpCorsOrigins string
		httpRateRPS     int
		httpRateBurst   int
		httpMetrics     bool
		httpAccessLog   bool
		artifactsDir    string
		sqlitePath      string
		noIngest        bool
	)

	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&httpAddr, "http-addr", ":8765", "HTTP listen address")
	flag.StringVar(&httpCorsOrigins, "http-cors-origins", "", "Comma-separated list of allowed CORS origins")
	flag.IntVar(&httpRateRPS, "http-rate-rps", 20, "Maximum HTTP requests per second per client")
	flag.IntVar(&httpRateBurst, "http-rate-burst", 40, "Burst size for HTTP rate limiter")
	flag.BoolVar(&httpMetrics, "http-metrics", true, "Expose Prometheus metrics endpoint")
	flag.BoolVar(&httpAccessLog, "http-access-log", true, "Log HTTP access records")
	flag.StringVar(&artifactsDir, "artifacts-dir", ".", "Directory holding the persisted JSON artifacts")
	flag.StringVar(&sqlitePath, "sqlite", "", "SQLite archive path for filterable queries")
	flag.BoolVar(&noIngest, "no-ingest", false, "Serve existing artifacts without watching the transcript")
	flag.Parse()

	if versionFlag {
		fmt.Printf(
			"dashboard version: %s (commit %s, built %s)\n",
			version.Version,
			version.Commit,
			version.BuildTime,
		)
		os.Exit(0)
	}

	overrides := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		overrides[f.Name] = true
	})

	cfg := config.Load()
	if overrides["http-addr"] {
		cfg.HTTP.Addr = strings.TrimSpace(httpAddr)
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = httpAddr
	}
	if overrides["http-cors-origins"] {
		cfg.HTTP.CORSOrigins = nil
		for _, o := range strings.Split(httpCorsOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.HTTP.CORSOrigins = append(cfg.HTTP.CORSOrigins, o)
			}
		}
	}
	if overrides["http-rate-rps"] {
		cfg.HTTP.RateRPS = httpRateRPS
	}
	if overrides["http-rate-burst"] {
		cfg.HTTP.RateBurst = httpRateBurst
	}
	if overrides["http-metrics"] {
		cfg.HTTP.Metrics = httpMetrics
	}
	if overrides["http-access-log"] {
		cfg.HTTP.AccessLog = httpAccessLog
	}
	if overrides["artifacts-dir"] {
		cfg.Artifacts.Dir = strings.TrimSpace(artifactsDir)
	}
	if overrides["sqlite"] {
		cfg.Archive.Path = strings.TrimSpace(sqlitePath)
		cfg.Archive.Enabled = cfg.Archive.Path != ""
	}

	log.Printf("%s", cfg.SummaryJSON())

	var (
		store httpapi.Store
		arch  *archive.Archive
	)
	if cfg.Archive.Enabled {
		var err error
		arch, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			log.Fatalf("dashboard: open archive: %v", err)
		}
		defer arch.Close()
		if err := archive.Migrate(context.Background(), arch.DB()); err != nil {
			log.Fatalf("dashboard: migrate archive: %v", err)
		}
		if err := arch.Ping(); err != nil {
			log.Fatalf("dashboard: ping archive: %v", err)
		}
		store = arch
	}

	buildTime, _ := time.Parse(time.RFC3339, version.BuildTime)
	srv := httpapi.New(store, httpapi.Options{
		Addr:         cfg.HTTP.Addr,
		ArtifactsDir: cfg.Artifacts.Dir,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		RateRPS:      cfg.HTTP.RateRPS,
		RateBurst:    cfg.HTTP.RateBurst,
		Metrics:      cfg.HTTP.Metrics,
		AccessLog:    cfg.HTTP.AccessLog,
		Build: httpapi.BuildInfo{
			Version:  version.Version,
			Revision: version.Commit,
			BuiltAt:  buildTime,
		},
	})

	if !noIngest {
		corpusStore := corpus.NewStore(cfg.Artifacts.Dir)
		var ingestMu sync.Mutex
		reingest := func() {
			ingestMu.Lock()
			defer ingestMu.Unlock()

			var mirror pipeline.Mirror
			var flush func() error
			if arch != nil {
				if err := arch.Reset(context.Background()); err != nil {
					log.Printf("dashboard: reset archive: %v", err)
					return
				}
				buffered := archive.NewBufferedWriter(arch, archive.BufferedOptions{
					BatchSize:     cfg.Batch(),
					FlushInterval: cfg.FlushInterval(),
				})
				mirror = buffered
				flush = buffered.Close
			}

			seed := cfg.Anonymize.Seed
			if !cfg.Anonymize.SeedSet {
				seed = time.Now().UnixNano()
			}
			sum, err := pipeline.Run(pipeline.Inputs{
				Transcript: cfg.Inputs.Transcript,
				Contacts:   cfg.Inputs.Contacts,
				Identikits: cfg.Inputs.Identikits,
			}, corpusStore, mirror, seed)
			if err != nil {
				log.Printf("dashboard: ingest failed: %v", err)
				return
			}
			if flush != nil {
				if err := flush(); err != nil {
					log.Printf("dashboard: flush archive: %v", err)
					return
				}
			}
			log.Printf("dashboard: ingest complete: polls +%d ~%d, messages +%d",
				sum.AddedPolls, sum.UpdatedPolls, sum.NewMessages)
			srv.Broadcast(httpapi.RefreshEvent{
				At:           time.Now().UTC(),
				PollsAdded:   sum.AddedPolls,
				PollsUpdated: sum.UpdatedPolls,
				Messages:     sum.NewMessages,
			})
		}

		reingest()
		if err := watch.Files(reingest, cfg.Inputs.Transcript, cfg.Inputs.Contacts); err != nil {
			log.Fatalf("dashboard: watch inputs: %v", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("dashboard: received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("dashboard: http server: %v", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("dashboard: shutdown: %v", err)
	}
}
