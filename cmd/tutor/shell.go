package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/coursevoice/internal/ingest"
	"github.com/dgallion1/coursevoice/internal/session"
	"github.com/dgallion1/coursevoice/internal/tutor"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

var (
	okColor     = color.New(color.FgGreen)
	errColor    = color.New(color.FgRed)
	warnColor   = color.New(color.FgYellow)
	promptColor = color.New(color.FgCyan, color.Bold)
)

// shell drives one tutoring session from a terminal.
type shell struct {
	ingestor  *ingest.Ingestor
	processor *tutor.Processor
	state     *session.State
	audioDir  string
	out       io.Writer

	showProgress bool
	answers      int
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// loadCorpus reads and ingests the files, replacing the session corpus.
// Unreadable or unparseable files are reported and skipped.
func (s *shell) loadCorpus(ctx context.Context, paths []string) {
	files := make([]ingest.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			errColor.Fprintf(s.out, "  skipped %s: %v\n", p, err)
			continue
		}
		files = append(files, ingest.File{Name: filepath.Base(p), Data: data})
	}

	if s.showProgress && len(files) > 0 {
		bar := getProgressBar(len(files), "Reading course notes")
		s.ingestor.Progress = func(done, total int, _ ingest.DocumentReport) {
			_ = bar.Set(done)
		}
		defer func() {
			_ = bar.Finish()
			s.ingestor.Progress = nil
		}()
	}

	res := s.ingestor.Extract(ctx, files)
	if ctx.Err() != nil {
		warnColor.Fprintln(s.out, "Loading interrupted; previous course notes kept.")
		return
	}
	s.state.SetCorpus(res.Corpus)

	for _, d := range res.Failed() {
		errColor.Fprintf(s.out, "  skipped %s: %v\n", d.Filename, d.Err)
	}
	chars := utf8.RuneCountInString(res.Corpus)
	if chars == 0 {
		warnColor.Fprintln(s.out, "No course text could be extracted; answers will come from general knowledge.")
		return
	}
	okColor.Fprintf(s.out, "Course notes ready: %d characters from %d document(s).\n",
		chars, len(res.Documents)-len(res.Failed()))
}

// loop reads one question per line until EOF or /quit. A line of the form
// "/audio PATH" asks a recorded question.
func (s *shell) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		promptColor.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/audio"):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/audio"))
			input, err := readRecording(path)
			if err != nil {
				errColor.Fprintln(s.out, err)
				continue
			}
			s.render(s.processor.Respond(ctx, s.state, input))
		default:
			s.render(s.processor.Respond(ctx, s.state, tutor.TextInput{Text: line}))
		}
	}
}

func readRecording(path string) (tutor.AudioInput, error) {
	if path == "" {
		return tutor.AudioInput{}, fmt.Errorf("usage: /audio PATH")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tutor.AudioInput{}, fmt.Errorf("read recording: %w", err)
	}
	mt, ok := recordingTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mt = tutor.DefaultAudioMIME
	}
	return tutor.AudioInput{Data: data, MIMEType: mt}, nil
}

var recordingTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

func (s *shell) render(out tutor.Outcome) {
	if out.Status == tutor.StatusFailed {
		errColor.Fprintf(s.out, "Could not answer (%s): %s\n", out.Failure.Reason, out.Failure.Message)
		return
	}

	if out.HasAdvisory(tutor.AdvisoryNoCorpus) {
		warnColor.Fprintln(s.out, "No course notes loaded; answering from general knowledge.")
	}
	if out.HasAdvisory(tutor.AdvisoryHistoryTruncated) {
		warnColor.Fprintln(s.out, "Older turns were left out of the prompt.")
	}
	fmt.Fprintln(s.out, out.Text)

	if out.Warning != "" {
		warnColor.Fprintln(s.out, out.Warning)
	}
	if len(out.Audio) == 0 {
		return
	}
	s.answers++
	path := filepath.Join(s.audioDir, fmt.Sprintf("answer-%03d%s", s.answers, audioExt(out.AudioMIME)))
	if err := os.WriteFile(path, out.Audio, 0o644); err != nil {
		errColor.Fprintf(s.out, "could not save audio: %v\n", err)
		return
	}
	okColor.Fprintf(s.out, "(voiced answer saved to %s)\n", path)
}

func audioExt(mimeType string) string {
	switch mimeType {
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/basic":
		return ".ulaw"
	case "audio/pcm":
		return ".pcm"
	default:
		return ".bin"
	}
}
