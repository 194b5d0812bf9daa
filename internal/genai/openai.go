package genai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/coursevoice/internal/stats"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint. It
// accepts text parts only.
type OpenAIClient struct {
	client     *openai.Client
	httpClient *http.Client
	model      string

	Stats *stats.Latency
}

func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	httpClient := &http.Client{Timeout: 120 * time.Second}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = httpClient
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(cfg),
		httpClient: httpClient,
		model:      model,
		Stats:      stats.NewLatency(time.Hour),
	}
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Generate(ctx context.Context, parts []Part) (text string, err error) {
	start := time.Now()
	defer func() { c.Stats.Since(start, err) }()

	prompt, err := onlyText(parts)
	if err != nil {
		return "", err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Reason: ReasonEmptyResponse, Message: "no choices"}
	}

	choice := resp.Choices[0]
	text = strings.TrimSpace(choice.Message.Content)
	if text == "" {
		if choice.FinishReason == openai.FinishReasonContentFilter {
			return "", &Error{Reason: ReasonBlocked, Message: "content filter"}
		}
		return "", &Error{Reason: ReasonEmptyResponse, Message: "choice has no content"}
	}
	return text, nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if apiErr.Type != "" {
			msg = apiErr.Type + ": " + msg
		}
		return &Error{Reason: statusReason(apiErr.HTTPStatusCode, msg), StatusCode: apiErr.HTTPStatusCode, Message: msg}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.Error()
		return &Error{Reason: statusReason(reqErr.HTTPStatusCode, msg), StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return transportError(err)
}

// Close releases resources.
func (c *OpenAIClient) Close() {
	c.httpClient.CloseIdleConnections()
}
