package groq

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"carousel/internal/llm"
)

type groqResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []groqChoice `json:"choices"`
}

type groqChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

func makeGroqResponse(content string) groqResponse {
	choice := groqChoice{Index: 0, FinishReason: "stop"}
	choice.Message.Role = "assistant"
	choice.Message.Content = content
	return groqResponse{
		ID:      "test-id",
		Object:  "chat.completion",
		Created: 1234567890,
		Model:   "llama-3.3-70b-versatile",
		Choices: []groqChoice{choice},
	}
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient("test-api-key", Options{
		Model:       "llama-3.3-70b-versatile",
		VisionModel: "llama-4-scout",
		BaseURL:     serverURL + "/",
	})
	if err != nil {
		t.Fatalf("failed to create groq client: %v", err)
	}
	return client
}

func TestComplete(t *testing.T) {
	tests := []struct {
		name           string
		responseBody   string
		statusCode     int
		wantErr        bool
		wantErrContain string
		wantContent    string
	}{
		{
			name:         "successfulCompletion",
			responseBody: mustJSON(makeGroqResponse(`{"slides":[]}`)),
			statusCode:   http.StatusOK,
			wantContent:  `{"slides":[]}`,
		},
		{
			name:           "emptyResponse",
			responseBody:   mustJSON(makeGroqResponse("")),
			statusCode:     http.StatusOK,
			wantErr:        true,
			wantErrContain: "empty response",
		},
		{
			name: "noChoices",
			responseBody: func() string {
				resp := makeGroqResponse("")
				resp.Choices = nil
				return mustJSON(resp)
			}(),
			statusCode:     http.StatusOK,
			wantErr:        true,
			wantErrContain: "no response",
		},
		{
			name:           "httpErrorUnauthorized",
			responseBody:   `{"error": {"message": "invalid api key", "type": "authentication_error"}}`,
			statusCode:     http.StatusUnauthorized,
			wantErr:        true,
			wantErrContain: "generate",
		},
		{
			name:           "httpErrorBadRequest",
			responseBody:   `{"error": {"message": "bad request", "type": "invalid_request_error"}}`,
			statusCode:     http.StatusBadRequest,
			wantErr:        true,
			wantErrContain: "generate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			got, err := client.Complete(context.Background(), llm.Request{System: "sys", User: "plan", JSON: true})

			if tt.wantErr {
				if err == nil {
					t.Errorf("Complete() expected error containing %q, got nil", tt.wantErrContain)
					return
				}
				if !strings.Contains(err.Error(), tt.wantErrContain) {
					t.Errorf("Complete() error = %v, want error containing %q", err, tt.wantErrContain)
				}
				return
			}

			if err != nil {
				t.Errorf("Complete() unexpected error: %v", err)
				return
			}
			if got != tt.wantContent {
				t.Errorf("Complete() = %q, want %q", got, tt.wantContent)
			}
		})
	}
}

func TestCompleteRequestBody(t *testing.T) {
	tests := []struct {
		name          string
		request       llm.Request
		wantModel     string
		wantFormat    bool
		wantInRawBody string
	}{
		{
			name:       "textJSONMode",
			request:    llm.Request{System: "sys", User: "plan slides", JSON: true},
			wantModel:  "llama-3.3-70b-versatile",
			wantFormat: true,
		},
		{
			name:       "plainText",
			request:    llm.Request{System: "sys", User: "hello"},
			wantModel:  "llama-3.3-70b-versatile",
			wantFormat: false,
		},
		{
			name:          "visionUsesVisionModel",
			request:       llm.Request{System: "sys", User: "style this", ImageURL: "https://img.example/bg.png", JSON: true},
			wantModel:     "llama-4-scout",
			wantFormat:    true,
			wantInRawBody: "https://img.example/bg.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw []byte
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST request, got %s", r.Method)
				}
				if auth := r.Header.Get("Authorization"); auth != "Bearer test-api-key" {
					t.Errorf("expected Authorization Bearer test-api-key, got %s", auth)
				}
				raw, _ = io.ReadAll(r.Body)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(mustJSON(makeGroqResponse("ok"))))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			if _, err := client.Complete(context.Background(), tt.request); err != nil {
				t.Fatalf("Complete() error: %v", err)
			}

			var body map[string]any
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Fatalf("decode request body: %v", err)
			}

			if body["model"] != tt.wantModel {
				t.Errorf("model = %v, want %s", body["model"], tt.wantModel)
			}

			messages, ok := body["messages"].([]any)
			if !ok || len(messages) != 2 {
				t.Errorf("expected 2 messages, got %v", body["messages"])
			}

			_, hasFormat := body["response_format"]
			if hasFormat != tt.wantFormat {
				t.Errorf("response_format present = %v, want %v", hasFormat, tt.wantFormat)
			}

			if tt.wantInRawBody != "" && !strings.Contains(string(raw), tt.wantInRawBody) {
				t.Errorf("request body missing %q: %s", tt.wantInRawBody, raw)
			}
		})
	}
}

func TestNewClientVisionModelFallback(t *testing.T) {
	client, err := NewClient("key", Options{Model: "text-model"})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if client.visionModel != "text-model" {
		t.Errorf("visionModel = %q, want text-model", client.visionModel)
	}
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Complete(ctx, llm.Request{User: "test"}); err == nil {
		t.Error("expected error due to cancelled context, got nil")
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
