package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/coursevoice/internal/api"
	"github.com/dgallion1/coursevoice/internal/config"
	"github.com/dgallion1/coursevoice/internal/genai"
	"github.com/dgallion1/coursevoice/internal/ingest"
	"github.com/dgallion1/coursevoice/internal/logging"
	"github.com/dgallion1/coursevoice/internal/parser"
	"github.com/dgallion1/coursevoice/internal/session"
	"github.com/dgallion1/coursevoice/internal/tutor"
	"github.com/dgallion1/coursevoice/internal/voice"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup, including the log
// file flush, always happens.
func run() error {
	cfg := config.Load()

	log, closeLog := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer closeLog()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return fmt.Errorf("configuration error: %w", err)
	}

	// Initialize clients.
	gen, err := genai.New(cfg)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		return err
	}
	speech := voice.NewElevenLabsClient(voice.ElevenLabsConfig{
		APIKey:          cfg.ElevenLabsAPIKey,
		VoiceID:         cfg.ElevenLabsVoiceID,
		ModelID:         cfg.ElevenLabsModel,
		BaseURL:         cfg.ElevenLabsBaseURL,
		OutputFormat:    cfg.ElevenLabsOutputFormat,
		Stability:       cfg.ElevenLabsStability,
		SimilarityBoost: cfg.ElevenLabsSimilarityBoost,
	})
	renderer := voice.NewRenderer(speech, cfg.SynthesisTimeout, log)

	processor := tutor.NewProcessor(gen, renderer, tutor.Options{
		Persona:             cfg.TutorPersona,
		MaxCorpusChars:      cfg.MaxCorpusChars,
		MaxHistoryTurns:     cfg.MaxHistoryTurns,
		AudioIncludeHistory: cfg.AudioIncludeHistory,
	}, cfg.GenerationTimeout, log)

	srv := api.NewServer(api.Deps{
		Sessions:        session.NewRegistry(cfg.SessionTTL, log),
		Ingestor:        ingest.New(parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}, log),
		Processor:       processor,
		GenerationModel: gen.Model(),
		GenerationStats: gen.Latency(),
		SynthesisStats:  renderer.Stats,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + cfg.SynthesisTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		gen.Close()
		speech.Close()
	}()

	log.Info("starting coursevoice",
		"port", cfg.Port,
		"provider", cfg.GenerationProvider,
		"model", gen.Model(),
		"voice_model", cfg.ElevenLabsModel,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		return err
	}
	return nil
}
