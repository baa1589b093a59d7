package groq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conneroisu/groq-go"

	"carousel/internal/llm"
)

var _ llm.Completer = (*Client)(nil)

type Client struct {
	client      *groq.Client
	model       groq.ChatModel
	visionModel groq.ChatModel
}

type Options struct {
	Model       string
	VisionModel string
	BaseURL     string
}

func NewClient(apiKey string, opts Options) (*Client, error) {
	var clientOpts []groq.Opts
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, groq.WithBaseURL(opts.BaseURL))
	}

	client, err := groq.NewClient(apiKey, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	visionModel := opts.VisionModel
	if visionModel == "" {
		visionModel = opts.Model
	}

	return &Client{
		client:      client,
		model:       groq.ChatModel(opts.Model),
		visionModel: groq.ChatModel(visionModel),
	}, nil
}

func (c *Client) Complete(ctx context.Context, request llm.Request) (string, error) {
	req := groq.ChatCompletionRequest{
		Model: c.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: request.System},
			userMessage(request),
		},
	}

	if request.ImageURL != "" {
		req.Model = c.visionModel
	}

	if request.JSON {
		req.ResponseFormat = &groq.ChatResponseFormat{Type: "json_object"}
	}

	slog.Debug("Groq completion", "model", req.Model, "json", request.JSON, "vision", request.ImageURL != "")

	resp, err := c.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response")
	}

	return content, nil
}

func userMessage(request llm.Request) groq.ChatCompletionMessage {
	if request.ImageURL == "" {
		return groq.ChatCompletionMessage{Role: groq.RoleUser, Content: request.User}
	}

	return groq.ChatCompletionMessage{
		Role: groq.RoleUser,
		MultiContent: []groq.ChatMessagePart{
			{Type: groq.ChatMessagePartTypeText, Text: request.User},
			{
				Type:     groq.ChatMessagePartTypeImageURL,
				ImageURL: &groq.ChatMessageImageURL{URL: request.ImageURL},
			},
		},
	}
}
