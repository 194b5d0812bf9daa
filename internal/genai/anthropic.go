package genai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgallion1/coursevoice/internal/stats"
)

const anthropicDefaultURL = "https://api.anthropic.com"

// AnthropicClient calls the Anthropic Messages API. It accepts text parts
// only.
type AnthropicClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	Stats *stats.Latency
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicDefaultURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		Stats: stats.NewLatency(time.Hour),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) Model() string { return c.model }

func (c *AnthropicClient) Generate(ctx context.Context, parts []Part) (text string, err error) {
	start := time.Now()
	defer func() { c.Stats.Since(start, err) }()

	prompt, err := onlyText(parts)
	if err != nil {
		return "", err
	}

	body, err := sonic.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: 2048,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", transportError(err)
	}

	var apiResp anthropicResponse
	decodeErr := sonic.Unmarshal(respBody, &apiResp)

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if decodeErr == nil && apiResp.Error != nil {
			msg = apiResp.Error.Type + ": " + apiResp.Error.Message
		}
		reason := statusReason(resp.StatusCode, msg)
		// 529 is Anthropic's overloaded status.
		if resp.StatusCode == 529 {
			reason = ReasonUnavailable
		}
		return "", &Error{Reason: reason, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &Error{Reason: ReasonEmptyResponse, StatusCode: resp.StatusCode, Message: "decode response: " + decodeErr.Error()}
	}

	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text = strings.TrimSpace(sb.String())
	if text == "" {
		if apiResp.StopReason == "refusal" {
			return "", &Error{Reason: ReasonBlocked, StatusCode: resp.StatusCode, Message: "model refused"}
		}
		return "", &Error{Reason: ReasonEmptyResponse, StatusCode: resp.StatusCode, Message: "empty response from claude"}
	}
	return text, nil
}

// Close releases resources.
func (c *AnthropicClient) Close() {
	c.httpClient.CloseIdleConnections()
}
