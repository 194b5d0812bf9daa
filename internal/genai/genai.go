// Package genai talks to hosted language models. A request is an ordered
// list of parts; each part is text or an opaque binary payload.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Part is one element of a generation request. Exactly one of Text or
// Data is meaningful; Data parts carry a MIME type.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart builds a text part.
func TextPart(s string) Part { return Part{Text: s} }

// BlobPart builds a binary part.
func BlobPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsBlob reports whether the part carries binary data.
func (p Part) IsBlob() bool { return p.MIMEType != "" || len(p.Data) > 0 }

// Generator produces answer text from prompt parts. One call is one
// request; implementations never retry.
type Generator interface {
	Generate(ctx context.Context, parts []Part) (string, error)
	Model() string
}

// Reason classifies a generation failure.
type Reason string

const (
	ReasonQuotaExhausted   Reason = "quota_exhausted"
	ReasonRejected         Reason = "rejected"
	ReasonUnavailable      Reason = "unavailable"
	ReasonTimeout          Reason = "timeout"
	ReasonBlocked          Reason = "blocked"
	ReasonEmptyResponse    Reason = "empty_response"
	ReasonUnsupportedInput Reason = "unsupported_input"
	ReasonTransport        Reason = "transport"
)

// Error is a classified generation failure.
type Error struct {
	Reason     Reason
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation %s (status %d): %s", e.Reason, e.StatusCode, truncate(e.Message, 200))
	}
	return fmt.Sprintf("generation %s: %s", e.Reason, truncate(e.Message, 200))
}

// ReasonOf extracts the failure reason from err. Context deadlines map to
// timeout; anything unclassified is a transport failure.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonTransport
}

// statusReason maps an HTTP status and provider error text to a reason.
func statusReason(status int, body string) Reason {
	lower := strings.ToLower(body)
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusPaymentRequired,
		strings.Contains(lower, "resource_exhausted"),
		strings.Contains(lower, "insufficient_quota"),
		strings.Contains(lower, "quota"):
		return ReasonQuotaExhausted
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ReasonTimeout
	case status >= 500:
		return ReasonUnavailable
	default:
		return ReasonRejected
	}
}

// transportError wraps a failed round trip, keeping deadline errors
// recognisable.
func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Reason: ReasonTimeout, Message: err.Error()}
	}
	return &Error{Reason: ReasonTransport, Message: err.Error()}
}

func onlyText(parts []Part) (string, error) {
	var sb strings.Builder
	for i, p := range parts {
		if p.IsBlob() {
			return "", &Error{Reason: ReasonUnsupportedInput, Message: fmt.Sprintf("part %d is %s; this provider accepts text only", i, p.MIMEType)}
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
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
