package voice

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/coursevoice/internal/stats"
)

// Renderer voices answer text with one synthesis call bounded by a
// timeout. Failures are returned to the caller, never retried.
type Renderer struct {
	client  SpeechClient
	timeout time.Duration
	log     *slog.Logger

	Stats *stats.Latency
}

func NewRenderer(client SpeechClient, timeout time.Duration, log *slog.Logger) *Renderer {
	return &Renderer{
		client:  client,
		timeout: timeout,
		log:     log,
		Stats:   stats.NewLatency(time.Hour),
	}
}

// MIMEType is the content type of the clips Synthesize returns.
func (r *Renderer) MIMEType() string { return r.client.MIMEType() }

func (r *Renderer) Synthesize(ctx context.Context, text string) (audio []byte, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, &Error{Reason: ReasonRejected, Message: "nothing to synthesize"}
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		r.Stats.Since(start, err)
		if err != nil {
			r.log.Warn("synthesis failed", "reason", ReasonOf(err), "error", err, "duration_ms", time.Since(start).Milliseconds())
		}
	}()

	audio, err = r.client.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, &Error{Reason: ReasonEmptyAudio, Message: "empty audio stream"}
	}
	return audio, nil
}
