package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	defaultElevenLabsURL   = "https://api.elevenlabs.io"
	defaultElevenLabsModel = "eleven_multilingual_v2"
	defaultOutputFormat    = "mp3_44100_128"

	// Upper bound on one synthesized clip.
	maxAudioBytes = 32 << 20
)

// ElevenLabsConfig selects the voice and synthesis parameters.
type ElevenLabsConfig struct {
	APIKey          string
	VoiceID         string
	ModelID         string
	BaseURL         string
	OutputFormat    string
	Stability       float64
	SimilarityBoost float64
}

// ElevenLabsClient calls the ElevenLabs text-to-speech REST endpoint.
type ElevenLabsClient struct {
	cfg        ElevenLabsConfig
	httpClient *http.Client
}

func NewElevenLabsClient(cfg ElevenLabsConfig) *ElevenLabsClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultElevenLabsURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ModelID == "" {
		cfg.ModelID = defaultElevenLabsModel
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = defaultOutputFormat
	}
	if cfg.Stability == 0 {
		cfg.Stability = 0.5
	}
	if cfg.SimilarityBoost == 0 {
		cfg.SimilarityBoost = 0.75
	}
	return &ElevenLabsClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type elVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elRequest struct {
	Text          string          `json:"text"`
	ModelID       string          `json:"model_id"`
	VoiceSettings elVoiceSettings `json:"voice_settings"`
}

// elErrorBody covers both error shapes the API returns.
type elErrorBody struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// MIMEType is the content type of clips produced with the configured output
// format.
func (c *ElevenLabsClient) MIMEType() string {
	f := c.cfg.OutputFormat
	switch {
	case strings.HasPrefix(f, "mp3"):
		return "audio/mpeg"
	case strings.HasPrefix(f, "pcm"):
		return "audio/pcm"
	case strings.HasPrefix(f, "ulaw"):
		return "audio/basic"
	case strings.HasPrefix(f, "opus"):
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := sonic.Marshal(elRequest{
		Text:    text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: elVoiceSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.VoiceID), url.QueryEscape(c.cfg.OutputFormat))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", c.MIMEType())
	httpReq.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, transportError(err)
	}
	if len(audio) > maxAudioBytes {
		return nil, &Error{Reason: ReasonRejected, StatusCode: resp.StatusCode, Message: "audio exceeds size limit"}
	}
	if len(audio) == 0 {
		return nil, &Error{Reason: ReasonEmptyAudio, StatusCode: resp.StatusCode, Message: "empty audio stream"}
	}
	return audio, nil
}

func classifyStatus(status int, body []byte) error {
	msg := string(body)
	var eb elErrorBody
	if err := sonic.Unmarshal(body, &eb); err == nil && eb.Detail.Status != "" {
		msg = eb.Detail.Status + ": " + eb.Detail.Message
	}

	reason := ReasonRejected
	switch {
	case status == http.StatusPaymentRequired,
		status == http.StatusTooManyRequests,
		eb.Detail.Status == "quota_exceeded":
		reason = ReasonQuotaExhausted
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		reason = ReasonTimeout
	case status >= 500:
		reason = ReasonUnavailable
	}
	return &Error{Reason: reason, StatusCode: status, Message: msg}
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Reason: ReasonTimeout, Message: err.Error()}
	}
	return &Error{Reason: ReasonTransport, Message: err.Error()}
}

// Close releases resources.
func (c *ElevenLabsClient) Close() {
	c.httpClient.CloseIdleConnections()
}
