// Command tutor is a terminal front end: it loads course notes, then
// answers typed or recorded questions aloud.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/coursevoice/internal/config"
	"github.com/dgallion1/coursevoice/internal/genai"
	"github.com/dgallion1/coursevoice/internal/ingest"
	"github.com/dgallion1/coursevoice/internal/logging"
	"github.com/dgallion1/coursevoice/internal/parser"
	"github.com/dgallion1/coursevoice/internal/session"
	"github.com/dgallion1/coursevoice/internal/tutor"
	"github.com/dgallion1/coursevoice/internal/voice"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	audioDir := flag.String("audio-dir", ".", "Directory where voiced answers are written")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: tutor [-audio-dir DIR] FILE...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*audioDir, flag.Args()); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(audioDir string, paths []string) error {
	cfg := config.Load()

	// The terminal is for the conversation; only warnings go to stderr.
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	log, closeLog := logging.New(logging.Options{
		Level:      level,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Output:     os.Stderr,
	})
	defer closeLog()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	gen, err := genai.New(cfg)
	if err != nil {
		return err
	}
	defer gen.Close()

	speech := voice.NewElevenLabsClient(voice.ElevenLabsConfig{
		APIKey:          cfg.ElevenLabsAPIKey,
		VoiceID:         cfg.ElevenLabsVoiceID,
		ModelID:         cfg.ElevenLabsModel,
		BaseURL:         cfg.ElevenLabsBaseURL,
		OutputFormat:    cfg.ElevenLabsOutputFormat,
		Stability:       cfg.ElevenLabsStability,
		SimilarityBoost: cfg.ElevenLabsSimilarityBoost,
	})
	defer speech.Close()

	sh := &shell{
		ingestor: ingest.New(parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}, log),
		processor: tutor.NewProcessor(gen, voice.NewRenderer(speech, cfg.SynthesisTimeout, log), tutor.Options{
			Persona:             cfg.TutorPersona,
			MaxCorpusChars:      cfg.MaxCorpusChars,
			MaxHistoryTurns:     cfg.MaxHistoryTurns,
			AudioIncludeHistory: cfg.AudioIncludeHistory,
		}, cfg.GenerationTimeout, log),
		state:        session.New(uuid.NewString()),
		audioDir:     audioDir,
		out:          os.Stdout,
		showProgress: true,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh.loadCorpus(ctx, paths)
	return sh.loop(ctx, os.Stdin)
}
