package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"carousel/internal/llm"
	"carousel/pkg/httputil"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second
	roleSystem     = "system"
	roleUser       = "user"
)

var _ llm.Completer = (*Client)(nil)

// Client talks to any OpenAI-compatible chat completions endpoint (OpenAI, DeepSeek, local gateways).
type Client struct {
	apiKey      string
	httpClient  httputil.Doer
	model       string
	visionModel string
	baseURL     string
}

type Options struct {
	Model       string
	VisionModel string
	BaseURL     string
	Timeout     time.Duration
	Retry       httputil.RetryConfig
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type request struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type response struct {
	ID      string    `json:"id"`
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewClient(apiKey string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	visionModel := opts.VisionModel
	if visionModel == "" {
		visionModel = opts.Model
	}

	return &Client{
		apiKey:      apiKey,
		httpClient:  httputil.NewRetryClient(&http.Client{Timeout: timeout}, opts.Retry),
		model:       opts.Model,
		visionModel: visionModel,
		baseURL:     baseURL,
	}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	body := request{
		Model: c.model,
		Messages: []message{
			{Role: roleSystem, Content: req.System},
			userMessage(req),
		},
	}
	if req.ImageURL != "" {
		body.Model = c.visionModel
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	slog.Debug("OpenAI completion", "model", body.Model, "json", req.JSON, "vision", req.ImageURL != "")

	resp, err := c.doRequest(ctx, data)
	if err != nil {
		return "", err
	}

	return parseResponse(resp)
}

func (c *Client) Model() string {
	return c.model
}

func userMessage(req llm.Request) message {
	if req.ImageURL == "" {
		return message{Role: roleUser, Content: req.User}
	}
	return message{
		Role: roleUser,
		Content: []contentPart{
			{Type: "text", Text: req.User},
			{Type: "image_url", ImageURL: &imageURL{URL: req.ImageURL}},
		},
	}
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error: status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func parseResponse(data []byte) (string, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("api error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errors.New("empty response")
	}
	return content, nil
}
