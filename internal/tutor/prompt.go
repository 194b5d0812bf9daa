package tutor

import (
	"strings"

	"github.com/dgallion1/coursevoice/internal/genai"
	"github.com/dgallion1/coursevoice/internal/session"
)

// DefaultPersona opens every prompt unless overridden.
const DefaultPersona = `You are an expert teacher of computer science and mathematics. ` +
	`Answer the student's question clearly, concisely and pedagogically. ` +
	`Base your answer on the course notes below; when they do not cover the question, say so before answering from general knowledge.`

const noCorpusNotice = `No course notes were provided. Answer from general knowledge and tell the student that the answer is not based on their notes.`

// Advisory is a non-fatal condition the caller should show the user.
type Advisory string

const (
	AdvisoryNoCorpus         Advisory = "no_corpus"
	AdvisorySynthesisFailed  Advisory = "synthesis_failed"
	AdvisoryHistoryTruncated Advisory = "history_truncated"
)

// Options control prompt assembly.
type Options struct {
	Persona string
	// MaxCorpusChars caps the corpus, in characters, taken as a prefix.
	MaxCorpusChars int
	// MaxHistoryTurns keeps only the most recent turns; 0 keeps all.
	MaxHistoryTurns int
	// AudioIncludeHistory folds the transcript into audio requests too.
	AudioIncludeHistory bool
}

// Prompt is the request for one generation call.
type Prompt struct {
	Parts        []genai.Part
	Advisories   []Advisory
	CorpusChars  int
	HistoryTurns int
}

// BuildPrompt assembles the generation request for one input. It has no
// side effects.
//
// A text input yields one text part: preamble, course notes, history and
// the question. An audio input yields two parts: the same context as text,
// then the recording.
func BuildPrompt(opts Options, corpus string, history []session.Turn, in Input) Prompt {
	var p Prompt
	var sb strings.Builder

	persona := strings.TrimSpace(opts.Persona)
	if persona == "" {
		persona = DefaultPersona
	}
	sb.WriteString(persona)
	sb.WriteString("\n\n")

	notes := truncateRunes(corpus, opts.MaxCorpusChars)
	p.CorpusChars = len([]rune(notes))
	if strings.TrimSpace(notes) == "" {
		p.Advisories = append(p.Advisories, AdvisoryNoCorpus)
		p.CorpusChars = 0
		sb.WriteString(noCorpusNotice)
		sb.WriteString("\n")
	} else {
		sb.WriteString("Course notes:\n---\n")
		sb.WriteString(notes)
		if !strings.HasSuffix(notes, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("---\n")
	}

	_, isAudio := in.(AudioInput)
	if !isAudio || opts.AudioIncludeHistory {
		kept := history
		if opts.MaxHistoryTurns > 0 && len(history) > opts.MaxHistoryTurns {
			kept = history[len(history)-opts.MaxHistoryTurns:]
			p.Advisories = append(p.Advisories, AdvisoryHistoryTruncated)
		}
		p.HistoryTurns = len(kept)
		writeHistory(&sb, kept)
	}

	switch in := in.(type) {
	case TextInput:
		sb.WriteString("\nStudent question: ")
		sb.WriteString(in.Text)
		p.Parts = []genai.Part{genai.TextPart(sb.String())}
	case AudioInput:
		sb.WriteString("\nThe student's question is in the attached audio. Answer it.")
		mime := in.MIMEType
		if mime == "" {
			mime = DefaultAudioMIME
		}
		p.Parts = []genai.Part{
			genai.TextPart(sb.String()),
			genai.BlobPart(mime, in.Data),
		}
	}
	return p
}

func writeHistory(sb *strings.Builder, turns []session.Turn) {
	if len(turns) == 0 {
		return
	}
	sb.WriteString("\nConversation so far:\n")
	for _, t := range turns {
		switch t.Role {
		case session.RoleAssistant:
			sb.WriteString("Teacher: ")
		default:
			sb.WriteString("Student: ")
		}
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
}

// truncateRunes returns at most limit characters of s. A limit of zero or
// less means no limit.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
