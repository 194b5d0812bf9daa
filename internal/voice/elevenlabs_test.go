package voice

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabs_Synthesize(t *testing.T) {
	var got elRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/text-to-speech/voice-123", r.URL.Path)
		assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
		assert.Equal(t, "el-key", r.Header.Get("xi-api-key"))
		assert.Equal(t, "audio/mpeg", r.Header.Get("Accept"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-fake-mp3"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient(ElevenLabsConfig{APIKey: "el-key", VoiceID: "voice-123", BaseURL: srv.URL})
	audio, err := c.Synthesize(context.Background(), "A variable stores a value.")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-fake-mp3"), audio)

	assert.Equal(t, "A variable stores a value.", got.Text)
	assert.Equal(t, "eleven_multilingual_v2", got.ModelID)
	assert.Equal(t, 0.5, got.VoiceSettings.Stability)
	assert.Equal(t, 0.75, got.VoiceSettings.SimilarityBoost)
}

func TestElevenLabs_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Reason
	}{
		{"quota exceeded", http.StatusUnauthorized, `{"detail":{"status":"quota_exceeded","message":"This request exceeds your quota."}}`, ReasonQuotaExhausted},
		{"payment required", http.StatusPaymentRequired, `{}`, ReasonQuotaExhausted},
		{"too many requests", http.StatusTooManyRequests, `{"detail":{"status":"too_many_concurrent_requests","message":"busy"}}`, ReasonQuotaExhausted},
		{"bad key", http.StatusUnauthorized, `{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`, ReasonRejected},
		{"unknown voice", http.StatusNotFound, `{"detail":{"status":"voice_not_found","message":"nope"}}`, ReasonRejected},
		{"server", http.StatusBadGateway, `upstream down`, ReasonUnavailable},
		{"empty", http.StatusOK, ``, ReasonEmptyAudio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewElevenLabsClient(ElevenLabsConfig{APIKey: "k", VoiceID: "v", BaseURL: srv.URL})
			_, err := c.Synthesize(context.Background(), "hello")
			require.Error(t, err)
			assert.Equal(t, tt.want, ReasonOf(err))
		})
	}
}

func TestElevenLabs_MIMEType(t *testing.T) {
	tests := map[string]string{
		"mp3_22050_32":  "audio/mpeg",
		"pcm_16000":     "audio/pcm",
		"ulaw_8000":     "audio/basic",
		"opus_48000_64": "audio/ogg",
		"weird":         "application/octet-stream",
	}
	for format, want := range tests {
		c := NewElevenLabsClient(ElevenLabsConfig{OutputFormat: format})
		assert.Equal(t, want, c.MIMEType(), format)
	}
}

func TestWarningMentionsCredits(t *testing.T) {
	quota := &Error{Reason: ReasonQuotaExhausted}
	assert.Contains(t, Warning(quota), "credits")
	assert.Contains(t, Warning(&Error{Reason: ReasonUnavailable}), "credits")
}

func TestError_LongDetailCutOnRuneBoundary(t *testing.T) {
	err := &Error{Reason: ReasonRejected, StatusCode: 422, Message: "x" + strings.Repeat("é", 150)}

	got := err.Error()
	assert.True(t, utf8.ValidString(got), "error text is not valid UTF-8: %q", got)
	assert.True(t, strings.HasSuffix(got, "..."))
}
