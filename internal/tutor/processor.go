// Package tutor answers one student turn at a time: it assembles a prompt
// from the session's course notes and transcript, asks the model, voices
// the answer and records the exchange.
package tutor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/coursevoice/internal/genai"
	"github.com/dgallion1/coursevoice/internal/session"
	"github.com/dgallion1/coursevoice/internal/voice"
)

// Generator produces answer text from prompt parts.
type Generator interface {
	Generate(ctx context.Context, parts []genai.Part) (string, error)
}

// Synthesizer voices answer text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	MIMEType() string
}

// Status is the overall result of a turn.
type Status string

const (
	StatusAnswered Status = "answered"
	StatusFailed   Status = "failed"
)

// Failure explains why no answer was produced.
type Failure struct {
	Reason  genai.Reason `json:"reason"`
	Message string       `json:"message"`
}

// Outcome is what the presentation layer renders after a turn. Audio is nil
// when the answer could not be voiced; Warning then says why.
type Outcome struct {
	Status     Status
	Text       string
	Audio      []byte
	AudioMIME  string
	Advisories []Advisory
	Warning    string
	Failure    *Failure
	// Turns is the transcript length after the call.
	Turns int
}

// HasAdvisory reports whether a is among the outcome's advisories.
func (o Outcome) HasAdvisory(a Advisory) bool {
	for _, x := range o.Advisories {
		if x == a {
			return true
		}
	}
	return false
}

// Processor runs turns. It holds no session state of its own.
type Processor struct {
	gen        Generator
	voice      Synthesizer
	opts       Options
	genTimeout time.Duration
	log        *slog.Logger
}

func NewProcessor(gen Generator, synth Synthesizer, opts Options, genTimeout time.Duration, log *slog.Logger) *Processor {
	return &Processor{
		gen:        gen,
		voice:      synth,
		opts:       opts,
		genTimeout: genTimeout,
		log:        log,
	}
}

// Respond answers one input against st. Exactly one generation call is
// made. When it fails the transcript is left untouched and a failed outcome
// is returned. Otherwise the answer is voiced and the user and assistant
// turns are appended together; a voicing failure only drops the audio.
//
// Callers must not run two turns on the same session at once; see
// session.State.TryBeginTurn.
func (p *Processor) Respond(ctx context.Context, st *session.State, in Input) Outcome {
	log := p.log.With("session_id", st.ID)

	userTurn, ok := p.userTurn(in)
	if !ok {
		return Outcome{
			Status:  StatusFailed,
			Failure: &Failure{Reason: genai.ReasonUnsupportedInput, Message: "empty question"},
			Turns:   st.Len(),
		}
	}

	prompt := BuildPrompt(p.opts, st.Corpus(), st.All(), in)
	if len(prompt.Advisories) > 0 {
		log.Info("prompt advisories", "advisories", prompt.Advisories)
	}

	genCtx := ctx
	if p.genTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, p.genTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := p.gen.Generate(genCtx, prompt.Parts)
	if err == nil && strings.TrimSpace(text) == "" {
		err = &genai.Error{Reason: genai.ReasonEmptyResponse, Message: "empty answer"}
	}
	if err != nil {
		reason := genai.ReasonOf(err)
		log.Error("generation failed",
			"reason", reason,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return Outcome{
			Status:     StatusFailed,
			Advisories: prompt.Advisories,
			Failure:    &Failure{Reason: reason, Message: err.Error()},
			Turns:      st.Len(),
		}
	}
	log.Info("answer generated",
		"input", inputKind(in),
		"prompt_chars", promptChars(prompt.Parts),
		"est_tokens", estimateTokens(prompt.Parts),
		"corpus_chars", prompt.CorpusChars,
		"history_turns", prompt.HistoryTurns,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	out := Outcome{
		Status:     StatusAnswered,
		Text:       text,
		Advisories: prompt.Advisories,
	}

	audio, err := p.voice.Synthesize(ctx, text)
	if err != nil {
		out.Advisories = append(out.Advisories, AdvisorySynthesisFailed)
		out.Warning = voice.Warning(err)
	} else {
		out.Audio = audio
		out.AudioMIME = p.voice.MIMEType()
	}

	st.Append(userTurn, session.Turn{
		Role:      session.RoleAssistant,
		Content:   text,
		Audio:     out.Audio,
		AudioMIME: out.AudioMIME,
	})
	out.Turns = st.Len()
	return out
}

func (p *Processor) userTurn(in Input) (session.Turn, bool) {
	switch in := in.(type) {
	case TextInput:
		if strings.TrimSpace(in.Text) == "" {
			return session.Turn{}, false
		}
		return session.Turn{Role: session.RoleUser, Content: in.Text}, true
	case AudioInput:
		if len(in.Data) == 0 {
			return session.Turn{}, false
		}
		return session.Turn{Role: session.RoleUser, Content: VoiceQuestionMarker}, true
	default:
		return session.Turn{}, false
	}
}

func inputKind(in Input) string {
	if _, ok := in.(AudioInput); ok {
		return "audio"
	}
	return "text"
}
