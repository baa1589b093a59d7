package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"carousel/internal/llm"
)

const defaultDailyLimit = 1500

var _ llm.Completer = (*Client)(nil)

var ErrDailyLimit = errors.New("daily request limit reached")

type Client struct {
	client     *genai.Client
	model      string
	usageFile  string
	dailyLimit int
	now        func() time.Time
}

type Options struct {
	Project    string
	Location   string
	Model      string
	DailyLimit int
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  opts.Project,
		Location: opts.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	limit := opts.DailyLimit
	if limit == 0 {
		limit = defaultDailyLimit
	}

	home, _ := os.UserHomeDir()

	return &Client{
		client:     client,
		model:      opts.Model,
		usageFile:  filepath.Join(home, ".carousel_gemini_usage"),
		dailyLimit: limit,
		now:        time.Now,
	}, nil
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := c.checkUsage(); err != nil {
		return "", err
	}

	slog.Debug("Gemini completion", "model", c.model, "json", req.JSON, "vision", req.ImageURL != "")

	resp, err := c.client.Models.GenerateContent(ctx, c.model, buildContents(req), buildConfig(req))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	c.incrementUsage()

	return responseText(resp)
}

func buildConfig(req llm.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

func buildContents(req llm.Request) []*genai.Content {
	parts := []*genai.Part{{Text: req.User}}
	if req.ImageURL != "" {
		parts = append(parts, &genai.Part{
			FileData: &genai.FileData{FileURI: req.ImageURL, MIMEType: imageMIMEType(req.ImageURL)},
		})
	}
	return []*genai.Content{{Role: "user", Parts: parts}}
}

func imageMIMEType(url string) string {
	ext := path.Ext(strings.SplitN(url, "?", 2)[0])
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/png"
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response")
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	return text, nil
}

func (c *Client) checkUsage() error {
	date, count := c.readUsage()
	if date != c.today() {
		return nil
	}
	if count >= c.dailyLimit {
		return fmt.Errorf("%w: %d requests, resets tomorrow", ErrDailyLimit, c.dailyLimit)
	}
	return nil
}

func (c *Client) incrementUsage() {
	date, count := c.readUsage()
	today := c.today()

	if date != today {
		count = 0
	}
	count++

	if err := os.WriteFile(c.usageFile, []byte(fmt.Sprintf("%s:%d", today, count)), 0644); err != nil {
		slog.Debug("Failed to record gemini usage", "error", err)
	}
}

func (c *Client) readUsage() (string, int) {
	data, err := os.ReadFile(c.usageFile)
	if err != nil {
		return "", 0
	}
	parts := strings.Split(strings.TrimSpace(string(data)), ":")
	if len(parts) != 2 {
		return "", 0
	}
	count, _ := strconv.Atoi(parts[1])
	return parts[0], count
}

func (c *Client) today() string {
	return c.now().Format("2006-01-02")
}
