package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/coursevoice/internal/genai"
	"github.com/dgallion1/coursevoice/internal/ingest"
	"github.com/dgallion1/coursevoice/internal/parser"
	"github.com/dgallion1/coursevoice/internal/session"
	"github.com/dgallion1/coursevoice/internal/tutor"
	"github.com/dgallion1/coursevoice/internal/voice"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	answers []string
	calls   [][]genai.Part
	err     error
}

func (g *scriptedGenerator) Generate(_ context.Context, parts []genai.Part) (string, error) {
	g.calls = append(g.calls, parts)
	if g.err != nil {
		return "", g.err
	}
	a := g.answers[0]
	g.answers = g.answers[1:]
	return a, nil
}

type stubSynth struct{ err error }

func (s stubSynth) Synthesize(context.Context, string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("mp3"), nil
}
func (stubSynth) MIMEType() string { return "audio/mpeg" }

func newTestShell(t *testing.T, gen tutor.Generator, synth tutor.Synthesizer) (*shell, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var out bytes.Buffer
	return &shell{
		ingestor:  ingest.New(parser.Options{}, log),
		processor: tutor.NewProcessor(gen, synth, tutor.Options{MaxCorpusChars: 50000}, time.Second, log),
		state:     session.New("cli"),
		audioDir:  t.TempDir(),
		out:       &out,
	}, &out
}

func TestShell_LoadCorpusReportsSkippedFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "cours.txt")
	bad := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(good, []byte("Variables store data."), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("not a pdf"), 0o644))

	sh, out := newTestShell(t, &scriptedGenerator{}, stubSynth{})
	sh.loadCorpus(context.Background(), []string{good, bad, filepath.Join(dir, "missing.txt")})

	assert.Equal(t, "Variables store data.\n", sh.state.Corpus())
	text := out.String()
	assert.Contains(t, text, "skipped scan.pdf")
	assert.Contains(t, text, "missing.txt")
	assert.Contains(t, text, "Course notes ready: 22 characters from 1 document(s).")
}

func TestShell_InterruptedLoadKeepsPreviousCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cours.txt")
	require.NoError(t, os.WriteFile(path, []byte("Replacement notes."), 0o644))

	sh, out := newTestShell(t, &scriptedGenerator{}, stubSynth{})
	sh.state.SetCorpus("Earlier notes.\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sh.loadCorpus(ctx, []string{path})

	assert.Equal(t, "Earlier notes.\n", sh.state.Corpus())
	assert.Contains(t, out.String(), "previous course notes kept")
}

func TestShell_LoopAnswersTextAndAudio(t *testing.T) {
	dir := t.TempDir()
	recording := filepath.Join(dir, "question.wav")
	require.NoError(t, os.WriteFile(recording, []byte("RIFF"), 0o644))

	gen := &scriptedGenerator{answers: []string{"A variable stores a value.", "A loop repeats code."}}
	sh, out := newTestShell(t, gen, stubSynth{})
	sh.state.SetCorpus("Variables store data.")

	input := "What is a variable?\n\n/audio " + recording + "\n/quit\nnever asked\n"
	require.NoError(t, sh.loop(context.Background(), strings.NewReader(input)))

	require.Len(t, gen.calls, 2)
	require.Len(t, gen.calls[1], 2)
	assert.Equal(t, "audio/wav", gen.calls[1][1].MIMEType)

	text := out.String()
	assert.Contains(t, text, "A variable stores a value.")
	assert.Contains(t, text, "A loop repeats code.")
	assert.NotContains(t, text, "never asked")

	for _, name := range []string{"answer-001.mp3", "answer-002.mp3"} {
		data, err := os.ReadFile(filepath.Join(sh.audioDir, name))
		require.NoError(t, err, name)
		assert.Equal(t, []byte("mp3"), data)
	}
	assert.Equal(t, 4, sh.state.Len())
}

func TestShell_FailuresAndWarnings(t *testing.T) {
	gen := &scriptedGenerator{err: &genai.Error{Reason: genai.ReasonQuotaExhausted, Message: "quota"}}
	sh, out := newTestShell(t, gen, stubSynth{})
	require.NoError(t, sh.loop(context.Background(), strings.NewReader("q\n/audio\n/audio /does/not/exist.wav\n")))

	text := out.String()
	assert.Contains(t, text, "Could not answer (quota_exhausted)")
	assert.Contains(t, text, "usage: /audio PATH")
	assert.Contains(t, text, "read recording")
	assert.Equal(t, 0, sh.state.Len())

	gen = &scriptedGenerator{answers: []string{"plain answer"}}
	sh, out = newTestShell(t, gen, stubSynth{err: &voice.Error{Reason: voice.ReasonQuotaExhausted}})
	require.NoError(t, sh.loop(context.Background(), strings.NewReader("q\n")))

	text = out.String()
	assert.Contains(t, text, "No course notes loaded")
	assert.Contains(t, text, "plain answer")
	assert.Contains(t, text, "credits")
	entries, err := os.ReadDir(sh.audioDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAudioExt(t *testing.T) {
	assert.Equal(t, ".mp3", audioExt("audio/mpeg"))
	assert.Equal(t, ".bin", audioExt("audio/x-unknown"))
}
