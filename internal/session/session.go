package session

import (
	"bytes"
	"sync"
	"time"
	"unicode/utf8"
)

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message. Audio is set only on assistant turns
// that were voiced.
type Turn struct {
	Role      Role
	Content   string
	Audio     []byte
	AudioMIME string
	CreatedAt time.Time
}

// HasAudio reports whether the turn carries a voiced clip.
func (t Turn) HasAudio() bool { return len(t.Audio) > 0 }

// State is the corpus and transcript of one session. The transcript is
// append-only; turns are never edited or removed.
type State struct {
	ID string

	mu        sync.Mutex
	corpus    string
	turns     []Turn
	createdAt time.Time
	updatedAt time.Time

	// Held for the duration of one turn.
	turnMu sync.Mutex
}

func New(id string) *State {
	now := time.Now()
	return &State{ID: id, createdAt: now, updatedAt: now}
}

// Append adds turns to the end of the transcript in the order given. Turns
// passed together are stored together, so a reader never sees half an
// exchange.
func (s *State) Append(turns ...Turn) {
	if len(turns) == 0 {
		return
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.Audio = bytes.Clone(t.Audio)
		s.turns = append(s.turns, t)
	}
	s.updatedAt = now
}

// All returns the transcript in chronological order. The slice is a copy;
// Audio buffers are shared and must not be modified.
func (s *State) All() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Turn returns the turn at index i.
func (s *State) Turn(i int) (Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.turns) {
		return Turn{}, false
	}
	return s.turns[i], true
}

func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// SetCorpus replaces the corpus wholesale.
func (s *State) SetCorpus(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = text
	s.updatedAt = time.Now()
}

func (s *State) Corpus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corpus
}

// TryBeginTurn claims the session for one turn. It returns false when
// another turn is already running; a successful claim must be released
// with EndTurn.
func (s *State) TryBeginTurn() bool {
	return s.turnMu.TryLock()
}

func (s *State) EndTurn() {
	s.turnMu.Unlock()
}

// Info is a read-only summary of a session.
type Info struct {
	ID          string    `json:"session_id"`
	CorpusChars int       `json:"corpus_chars"`
	Turns       int       `json:"turns"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a summary of the session state.
func (s *State) Snapshot() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:          s.ID,
		CorpusChars: utf8.RuneCountInString(s.corpus),
		Turns:       len(s.turns),
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
	}
}
