package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/esonde/galisondaggi/internal/archive"
	"github.com/esonde/galisondaggi/internal/config"
	"github.com/esonde/galisondaggi/internal/corpus"
	"github.com/esonde/galisondaggi/internal/pipeline"
	"github.com/esonde/galisondaggi/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		versionFlag  bool
		transcript   string
		contactsPath string
		identikits   string
		artifactsDir string
		sqlitePath   string
		anonSeed     int64
	)

	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&transcript, "transcript", "chat.txt", "Path to the exported chat transcript")
	flag.StringVar(&contactsPath, "contacts", "contacts.csv", "Path to the contacts CSV export")
	flag.StringVar(&identikits, "identikits", "identikits.json", "Path to the identikit JSON file")
	flag.StringVar(&artifactsDir, "artifacts-dir", ".", "Directory holding the persisted JSON artifacts")
	flag.StringVar(&sqlitePath, "sqlite", "", "Mirror the corpus into a SQLite archive at this path")
	flag.Int64Var(&anonSeed, "anon-seed", 0, "Pseudonym seed for reproducible anonymization (0 = random)")
	flag.Parse()

	if versionFlag {
		fmt.Printf(
			"sondaggi version: %s (commit %s, built %s)\n",
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
	if overrides["transcript"] {
		cfg.Inputs.Transcript = strings.TrimSpace(transcript)
	}
	if overrides["contacts"] {
		cfg.Inputs.Contacts = strings.TrimSpace(contactsPath)
	}
	if overrides["identikits"] {
		cfg.Inputs.Identikits = strings.TrimSpace(identikits)
	}
	if overrides["artifacts-dir"] {
		cfg.Artifacts.Dir = strings.TrimSpace(artifactsDir)
	}
	if overrides["sqlite"] {
		cfg.Archive.Path = strings.TrimSpace(sqlitePath)
		cfg.Archive.Enabled = cfg.Archive.Path != ""
	}
	if overrides["anon-seed"] {
		cfg.Anonymize.Seed = anonSeed
		cfg.Anonymize.SeedSet = anonSeed != 0
	}

	log.Printf("%s", cfg.SummaryJSON())

	seed := cfg.Anonymize.Seed
	if !cfg.Anonymize.SeedSet {
		seed = time.Now().UnixNano()
	}

	store := corpus.NewStore(cfg.Artifacts.Dir)

	var mirror pipeline.Mirror
	var flush func() error
	if cfg.Archive.Enabled {
		arch, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			log.Fatalf("sondaggi: open archive: %v", err)
		}
		defer arch.Close()
		if err := archive.Migrate(context.Background(), arch.DB()); err != nil {
			log.Fatalf("sondaggi: migrate archive: %v", err)
		}
		if err := arch.Reset(context.Background()); err != nil {
			log.Fatalf("sondaggi: reset archive: %v", err)
		}
		buffered := archive.NewBufferedWriter(arch, archive.BufferedOptions{
			BatchSize:     cfg.Batch(),
			FlushInterval: cfg.FlushInterval(),
		})
		mirror = buffered
		flush = buffered.Close
	}

	sum, err := pipeline.Run(pipeline.Inputs{
		Transcript: cfg.Inputs.Transcript,
		Contacts:   cfg.Inputs.Contacts,
		Identikits: cfg.Inputs.Identikits,
	}, store, mirror, seed)
	if err != nil {
		log.Fatalf("sondaggi: %v", err)
	}
	if flush != nil {
		if err := flush(); err != nil {
			log.Fatalf("sondaggi: flush archive: %v", err)
		}
	}

	log.Printf("sondaggi: determined date format: %s", sum.DateFormat)
	log.Printf("sondaggi: existing polls: %d", sum.ExistingPolls)
	log.Printf("sondaggi: new polls added: %d", sum.AddedPolls)
	log.Printf("sondaggi: polls updated: %d", sum.UpdatedPolls)
	log.Printf("sondaggi: total polls after update: %d", sum.TotalPolls)
	log.Printf("sondaggi: messages: %d new, %d total", sum.NewMessages, sum.TotalMessages)
	log.Printf("sondaggi: analysis complete, results saved in %q", corpus.ResultsFile)
	log.Printf("sondaggi: found %d unanimous polls, saved in %q", sum.UnanimousPolls, corpus.UnanimousFile)
	log.Printf("sondaggi: found %d daily mood polls with predominantly emoji responses", sum.MoodPolls)
}
