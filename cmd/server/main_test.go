package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_InvalidConfigFlushesLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "coursevoice.log")
	t.Setenv("LOG_FILE", logFile)
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("GENERATION_PROVIDER", "gemini")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Setenv("ELEVENLABS_VOICE_ID", "")

	err := run()
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !strings.Contains(err.Error(), "GOOGLE_API_KEY is required") {
		t.Errorf("expected missing key in error, got %v", err)
	}

	data, readErr := os.ReadFile(logFile)
	if readErr != nil {
		t.Fatalf("read log file: %v", readErr)
	}
	if !strings.Contains(string(data), "invalid configuration") {
		t.Errorf("expected configuration error in log file, got %q", data)
	}
}
