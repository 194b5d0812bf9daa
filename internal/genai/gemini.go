package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgallion1/coursevoice/internal/stats"
)

// GeminiClient calls the Gemini generateContent REST endpoint. Binary parts
// are sent as inline data, so audio questions go to the model as-is.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	Stats *stats.Latency
}

func NewGeminiClient(apiKey, model, baseURL string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		Stats: stats.NewLatency(time.Hour),
	}
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *GeminiClient) Model() string { return c.model }

// Generate sends all parts as one user message and returns the text of the
// first candidate.
func (c *GeminiClient) Generate(ctx context.Context, parts []Part) (text string, err error) {
	start := time.Now()
	defer func() { c.Stats.Since(start, err) }()

	content := geminiContent{Role: "user", Parts: make([]geminiPart, 0, len(parts))}
	for _, p := range parts {
		if p.IsBlob() {
			content.Parts = append(content.Parts, geminiPart{InlineData: &geminiInlineData{
				MIMEType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		content.Parts = append(content.Parts, geminiPart{Text: p.Text})
	}
	body, err := sonic.Marshal(geminiRequest{Contents: []geminiContent{content}})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", transportError(err)
	}

	var apiResp geminiResponse
	decodeErr := sonic.Unmarshal(respBody, &apiResp)

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if decodeErr == nil && apiResp.Error != nil {
			msg = apiResp.Error.Status + ": " + apiResp.Error.Message
		}
		return "", &Error{Reason: statusReason(resp.StatusCode, msg), StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &Error{Reason: ReasonEmptyResponse, StatusCode: resp.StatusCode, Message: "decode response: " + decodeErr.Error()}
	}
	if apiResp.PromptFeedback != nil && apiResp.PromptFeedback.BlockReason != "" {
		return "", &Error{Reason: ReasonBlocked, StatusCode: resp.StatusCode, Message: apiResp.PromptFeedback.BlockReason}
	}
	if len(apiResp.Candidates) == 0 {
		return "", &Error{Reason: ReasonEmptyResponse, StatusCode: resp.StatusCode, Message: "no candidates"}
	}

	cand := apiResp.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	text = strings.TrimSpace(sb.String())
	if text == "" {
		if cand.FinishReason == "SAFETY" || cand.FinishReason == "RECITATION" || cand.FinishReason == "PROHIBITED_CONTENT" {
			return "", &Error{Reason: ReasonBlocked, StatusCode: resp.StatusCode, Message: "finish reason " + cand.FinishReason}
		}
		return "", &Error{Reason: ReasonEmptyResponse, StatusCode: resp.StatusCode, Message: "candidate has no text"}
	}
	return text, nil
}

// Close releases resources.
func (c *GeminiClient) Close() {
	c.httpClient.CloseIdleConnections()
}
