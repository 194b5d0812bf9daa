// Package voice turns answer text into speech through a hosted
// text-to-speech service.
package voice

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// SpeechClient synthesizes one clip per call.
type SpeechClient interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	MIMEType() string
}

// Reason classifies a synthesis failure.
type Reason string

const (
	ReasonQuotaExhausted Reason = "quota_exhausted"
	ReasonRejected       Reason = "rejected"
	ReasonUnavailable    Reason = "unavailable"
	ReasonTimeout        Reason = "timeout"
	ReasonEmptyAudio     Reason = "empty_audio"
	ReasonTransport      Reason = "transport"
)

// Error is a classified synthesis failure.
type Error struct {
	Reason     Reason
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("synthesis %s (status %d): %s", e.Reason, e.StatusCode, truncate(e.Message, 200))
	}
	return fmt.Sprintf("synthesis %s: %s", e.Reason, truncate(e.Message, 200))
}

// ReasonOf extracts the failure reason from err.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonTransport
}

// Warning is the user-facing message shown when an answer could not be
// voiced.
func Warning(err error) string {
	if ReasonOf(err) == ReasonQuotaExhausted {
		return "The answer could not be voiced: speech synthesis credits are exhausted. Check your ElevenLabs credits."
	}
	return "The answer could not be voiced. Check your ElevenLabs credits and voice settings."
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
