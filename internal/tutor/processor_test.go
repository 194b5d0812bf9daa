package tutor

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/coursevoice/internal/genai"
	"github.com/dgallion1/coursevoice/internal/session"
	"github.com/dgallion1/coursevoice/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	answer string
	err    error
	calls  [][]genai.Part
}

func (f *fakeGenerator) Generate(_ context.Context, parts []genai.Part) (string, error) {
	f.calls = append(f.calls, parts)
	return f.answer, f.err
}

type fakeSynth struct {
	audio []byte
	err   error
	texts []string
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.texts = append(f.texts, text)
	return f.audio, f.err
}

func (f *fakeSynth) MIMEType() string { return "audio/mpeg" }

func newTestProcessor(gen Generator, synth Synthesizer, opts Options) *Processor {
	if opts.MaxCorpusChars == 0 {
		opts.MaxCorpusChars = 50000
	}
	return NewProcessor(gen, synth, opts, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRespond_VariableScenario(t *testing.T) {
	st := session.New("s1")
	st.SetCorpus("Variables store data.")
	gen := &fakeGenerator{answer: "A variable stores a value."}
	synth := &fakeSynth{audio: []byte("mp3")}

	out := newTestProcessor(gen, synth, Options{}).Respond(context.Background(), st, TextInput{Text: "What is a variable?"})

	require.Equal(t, StatusAnswered, out.Status)
	require.Len(t, gen.calls, 1)
	require.Len(t, gen.calls[0], 1)
	prompt := gen.calls[0][0].Text
	assert.Contains(t, prompt, "Variables store data.")
	assert.Contains(t, prompt, "What is a variable?")

	assert.Equal(t, []string{"A variable stores a value."}, synth.texts)

	turns := st.All()
	require.Len(t, turns, 2)
	assert.Equal(t, session.RoleUser, turns[0].Role)
	assert.Equal(t, "What is a variable?", turns[0].Content)
	assert.Equal(t, session.RoleAssistant, turns[1].Role)
	assert.Equal(t, "A variable stores a value.", turns[1].Content)
	assert.Equal(t, []byte("mp3"), turns[1].Audio)
	assert.Equal(t, "audio/mpeg", turns[1].AudioMIME)

	assert.Equal(t, "A variable stores a value.", out.Text)
	assert.Equal(t, []byte("mp3"), out.Audio)
	assert.Empty(t, out.Advisories)
	assert.Equal(t, 2, out.Turns)
}

func TestRespond_TextIncludesFullHistory(t *testing.T) {
	st := session.New("s1")
	st.SetCorpus("notes")
	st.Append(
		session.Turn{Role: session.RoleUser, Content: "first question"},
		session.Turn{Role: session.RoleAssistant, Content: "first answer"},
		session.Turn{Role: session.RoleUser, Content: "second question"},
		session.Turn{Role: session.RoleAssistant, Content: "second answer"},
	)
	gen := &fakeGenerator{answer: "third answer"}

	newTestProcessor(gen, &fakeSynth{audio: []byte("a")}, Options{}).Respond(context.Background(), st, TextInput{Text: "third question"})

	require.Len(t, gen.calls, 1)
	prompt := gen.calls[0][0].Text
	order := []string{"first question", "first answer", "second question", "second answer", "third question"}
	last := -1
	for _, s := range order {
		i := strings.Index(prompt, s)
		require.GreaterOrEqual(t, i, 0, "missing %q", s)
		assert.Greater(t, i, last, "%q out of order", s)
		last = i
	}
	assert.Equal(t, 6, st.Len())
}

func TestRespond_AudioSendsTwoPartsWithoutHistory(t *testing.T) {
	st := session.New("s1")
	st.SetCorpus("Loops repeat code.")
	st.Append(
		session.Turn{Role: session.RoleUser, Content: "earlier question"},
		session.Turn{Role: session.RoleAssistant, Content: "earlier answer"},
	)
	gen := &fakeGenerator{answer: "Une boucle répète du code."}
	recording := []byte("RIFF....WAVE")

	out := newTestProcessor(gen, &fakeSynth{audio: []byte("a")}, Options{}).
		Respond(context.Background(), st, AudioInput{Data: recording})

	require.Equal(t, StatusAnswered, out.Status)
	require.Len(t, gen.calls, 1)
	parts := gen.calls[0]
	require.Len(t, parts, 2)
	assert.False(t, parts[0].IsBlob())
	assert.Contains(t, parts[0].Text, "Loops repeat code.")
	assert.NotContains(t, parts[0].Text, "earlier question")
	assert.True(t, parts[1].IsBlob())
	assert.Equal(t, DefaultAudioMIME, parts[1].MIMEType)
	assert.Equal(t, recording, parts[1].Data)

	turns := st.All()
	require.Len(t, turns, 4)
	assert.Equal(t, VoiceQuestionMarker, turns[2].Content)
	assert.False(t, turns[2].HasAudio())
}

func TestRespond_GenerationFailureAppendsNothing(t *testing.T) {
	st := session.New("s1")
	st.SetCorpus("notes")
	st.Append(session.Turn{Role: session.RoleUser, Content: "q"}, session.Turn{Role: session.RoleAssistant, Content: "a"})
	gen := &fakeGenerator{err: &genai.Error{Reason: genai.ReasonQuotaExhausted, StatusCode: 429, Message: "quota"}}
	synth := &fakeSynth{audio: []byte("a")}

	out := newTestProcessor(gen, synth, Options{}).Respond(context.Background(), st, TextInput{Text: "next"})

	assert.Equal(t, StatusFailed, out.Status)
	require.NotNil(t, out.Failure)
	assert.Equal(t, genai.ReasonQuotaExhausted, out.Failure.Reason)
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, 2, out.Turns)
	assert.Empty(t, synth.texts)
}

func TestRespond_EmptyAnswerIsFailure(t *testing.T) {
	st := session.New("s1")
	out := newTestProcessor(&fakeGenerator{answer: "  "}, &fakeSynth{}, Options{}).
		Respond(context.Background(), st, TextInput{Text: "q"})

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, genai.ReasonEmptyResponse, out.Failure.Reason)
	assert.Equal(t, 0, st.Len())
}

func TestRespond_SynthesisFailureKeepsText(t *testing.T) {
	st := session.New("s1")
	st.SetCorpus("notes")
	synth := &fakeSynth{err: &voice.Error{Reason: voice.ReasonQuotaExhausted, StatusCode: 401, Message: "quota_exceeded"}}

	out := newTestProcessor(&fakeGenerator{answer: "the answer"}, synth, Options{}).
		Respond(context.Background(), st, TextInput{Text: "q"})

	assert.Equal(t, StatusAnswered, out.Status)
	assert.Equal(t, "the answer", out.Text)
	assert.Nil(t, out.Audio)
	assert.True(t, out.HasAdvisory(AdvisorySynthesisFailed))
	assert.Contains(t, out.Warning, "credits")

	turns := st.All()
	require.Len(t, turns, 2)
	assert.Equal(t, "the answer", turns[1].Content)
	assert.False(t, turns[1].HasAudio())
}

func TestRespond_NoCorpusAdvisory(t *testing.T) {
	st := session.New("s1")
	gen := &fakeGenerator{answer: "general answer"}

	out := newTestProcessor(gen, &fakeSynth{audio: []byte("a")}, Options{}).
		Respond(context.Background(), st, TextInput{Text: "What is pi?"})

	assert.Equal(t, StatusAnswered, out.Status)
	assert.True(t, out.HasAdvisory(AdvisoryNoCorpus))
	assert.Contains(t, gen.calls[0][0].Text, DefaultPersona)
}

func TestRespond_EmptyInputRejected(t *testing.T) {
	st := session.New("s1")
	gen := &fakeGenerator{answer: "x"}
	p := newTestProcessor(gen, &fakeSynth{}, Options{})

	out := p.Respond(context.Background(), st, TextInput{Text: "   "})
	assert.Equal(t, StatusFailed, out.Status)
	out = p.Respond(context.Background(), st, AudioInput{})
	assert.Equal(t, StatusFailed, out.Status)

	assert.Empty(t, gen.calls)
	assert.Equal(t, 0, st.Len())
}

type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, _ []genai.Part) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRespond_GenerationTimeout(t *testing.T) {
	st := session.New("s1")
	st.SetCorpus("notes")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := NewProcessor(slowGenerator{}, &fakeSynth{}, Options{MaxCorpusChars: 100}, 20*time.Millisecond, log)

	out := p.Respond(context.Background(), st, TextInput{Text: "q"})

	assert.Equal(t, StatusFailed, out.Status)
	require.NotNil(t, out.Failure)
	assert.Equal(t, genai.ReasonTimeout, out.Failure.Reason)
	assert.Equal(t, 0, st.Len())
}
