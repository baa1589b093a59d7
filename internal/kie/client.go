package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"carousel/pkg/httputil"
)

const (
	defaultBaseURL      = "https://api.kie.ai"
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 30

	HeroModel     = "nano-banana-pro"
	EditModel     = "google/nano-banana-edit"
	removeTextCue = "give me this image with no text, erase text"
)

var (
	ErrSubmission  = errors.New("task submission failed")
	ErrTaskFailed  = errors.New("task failed")
	ErrPollTimeout = errors.New("task polling timed out")

	errNotReady = errors.New("task not ready")
)

type Client struct {
	apiKey       string
	baseURL      string
	submitClient httputil.Doer
	pollClient   httputil.Doer
	pollInterval time.Duration
	maxAttempts  int
	sleep        func(ctx context.Context, d time.Duration) error
}

type Options struct {
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
	MaxAttempts  int
	Retry        httputil.RetryConfig
	Sleep        func(ctx context.Context, d time.Duration) error
}

type createRequest struct {
	Model string         `json:"model"`
	Input map[string]any `json:"input"`
}

type createResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type recordResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID     string          `json:"taskId"`
		State      string          `json:"state"`
		ResultJSON json.RawMessage `json:"resultJson"`
		FailMsg    string          `json:"failMsg"`
	} `json:"data"`
}

type taskResult struct {
	ResultURLs []string `json:"resultUrls"`
}

func NewClient(apiKey string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	interval := opts.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = httputil.Sleep
	}

	httpClient := &http.Client{Timeout: timeout}

	return &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		submitClient: httputil.NewRetryClient(httpClient, opts.Retry),
		pollClient:   httpClient,
		pollInterval: interval,
		maxAttempts:  attempts,
		sleep:        sleep,
	}
}

// GenerateHeroImage renders a square 1K png for prompt and waits for the result URL.
func (c *Client) GenerateHeroImage(ctx context.Context, prompt string) (string, error) {
	slog.Info("Generating hero image...", "prompt", prompt)
	return c.run(ctx, HeroModel, imageInput(prompt))
}

// GenerateImage renders a slide background with the same model and settings as the hero.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	slog.Info("Generating slide image...", "prompt", prompt)
	return c.run(ctx, HeroModel, imageInput(prompt))
}

func (c *Client) RemoveText(ctx context.Context, imageURL string) (string, error) {
	slog.Info("Removing text from image...", "url", imageURL)
	return c.run(ctx, EditModel, map[string]any{
		"prompt":        removeTextCue,
		"image_urls":    []string{imageURL},
		"output_format": "png",
		"image_size":    "1:1",
	})
}

func imageInput(prompt string) map[string]any {
	return map[string]any{
		"prompt":        prompt,
		"aspect_ratio":  "1:1",
		"resolution":    "1K",
		"output_format": "png",
	}
}

func (c *Client) run(ctx context.Context, model string, input map[string]any) (string, error) {
	taskID, err := c.CreateTask(ctx, model, input)
	if err != nil {
		return "", err
	}
	return c.PollTask(ctx, taskID)
}

func (c *Client) CreateTask(ctx context.Context, model string, input map[string]any) (string, error) {
	body, err := json.Marshal(createRequest{Model: model, Input: input})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/jobs/createTask", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.submitClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("Task creation rejected", "model", model, "status", resp.StatusCode, "body", string(respBody))
		return "", fmt.Errorf("%w: status %d", ErrSubmission, resp.StatusCode)
	}

	var result createResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrSubmission, err)
	}
	if result.Data.TaskID == "" {
		return "", fmt.Errorf("%w: no task id (code %d: %s)", ErrSubmission, result.Code, result.Msg)
	}

	slog.Debug("Task created", "model", model, "task_id", result.Data.TaskID)
	return result.Data.TaskID, nil
}

// PollTask checks the task every poll interval, at most MaxAttempts times.
// Transport errors and non-200 replies count as attempts; a "fail" state ends polling at once.
func (c *Client) PollTask(ctx context.Context, taskID string) (string, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resultURL, err := c.checkTask(ctx, taskID)
		if err == nil {
			slog.Info("Task finished", "task_id", taskID, "attempts", attempt)
			return resultURL, nil
		}
		if errors.Is(err, ErrTaskFailed) {
			return "", err
		}
		if !errors.Is(err, errNotReady) {
			slog.Warn("Task poll failed", "task_id", taskID, "attempt", attempt, "error", err)
		}

		if attempt == c.maxAttempts {
			break
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return "", fmt.Errorf("poll task %s: %w", taskID, err)
		}
	}

	return "", fmt.Errorf("%w: task %s after %d attempts", ErrPollTimeout, taskID, c.maxAttempts)
}

func (c *Client) checkTask(ctx context.Context, taskID string) (string, error) {
	params := url.Values{}
	params.Set("taskId", taskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/jobs/recordInfo?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.pollClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("record info: status %d", resp.StatusCode)
	}

	var record recordResponse
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	switch record.Data.State {
	case "success":
		return parseResultURL(record.Data.ResultJSON)
	case "fail":
		return "", fmt.Errorf("%w: task %s: %s", ErrTaskFailed, taskID, record.Data.FailMsg)
	default:
		return "", errNotReady
	}
}

// parseResultURL accepts resultJson either as an encoded JSON string or an inline object.
func parseResultURL(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: success without result", ErrTaskFailed)
	}

	payload := []byte(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: decode result: %v", ErrTaskFailed, err)
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "http") {
			return s, nil
		}
		payload = []byte(s)
	}

	var result taskResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("%w: decode result: %v", ErrTaskFailed, err)
	}
	if len(result.ResultURLs) == 0 || result.ResultURLs[0] == "" {
		return "", fmt.Errorf("%w: no result urls", ErrTaskFailed)
	}

	return result.ResultURLs[0], nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
