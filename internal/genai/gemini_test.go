package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGemini_SendsTextAndInlineAudio(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Une variable "},{"text":"stocke une valeur."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key", "gemini-1.5-flash", srv.URL+"/")
	audio := []byte{0x52, 0x49, 0x46, 0x46}
	text, err := c.Generate(context.Background(), []Part{
		TextPart("context"),
		BlobPart("audio/wav", audio),
	})
	require.NoError(t, err)
	assert.Equal(t, "Une variable stocke une valeur.", text)

	require.Len(t, got.Contents, 1)
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "context", parts[0].Text)
	assert.Nil(t, parts[0].InlineData)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "audio/wav", parts[1].InlineData.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(audio), parts[1].InlineData.Data)

	assert.Equal(t, 1, c.Latency().Snapshot().Count)
}

func TestGemini_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Reason
	}{
		{"quota", http.StatusTooManyRequests, `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`, ReasonQuotaExhausted},
		{"bad key", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, ReasonRejected},
		{"server", http.StatusServiceUnavailable, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`, ReasonUnavailable},
		{"blocked prompt", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, ReasonBlocked},
		{"safety finish", http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`, ReasonBlocked},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ReasonEmptyResponse},
		{"garbage", http.StatusOK, `not json`, ReasonEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewGeminiClient("k", "m", srv.URL)
			_, err := c.Generate(context.Background(), []Part{TextPart("q")})
			require.Error(t, err)
			assert.Equal(t, tt.want, ReasonOf(err))
			assert.Equal(t, 1, c.Latency().Snapshot().Failures)
		})
	}
}

func TestGemini_ContextDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewGeminiClient("k", "m", srv.URL)
	_, err := c.Generate(ctx, []Part{TextPart("q")})
	require.Error(t, err)
	assert.Equal(t, ReasonTimeout, ReasonOf(err))
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, Reason(""), ReasonOf(nil))
	assert.Equal(t, ReasonTimeout, ReasonOf(context.DeadlineExceeded))
	assert.Equal(t, ReasonTransport, ReasonOf(errors.New("dial tcp: refused")))
	wrapped := errors.Join(errors.New("outer"), &Error{Reason: ReasonBlocked})
	assert.Equal(t, ReasonBlocked, ReasonOf(wrapped))
}
