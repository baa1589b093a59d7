package llm

import "context"

// Request is one chat completion. ImageURL switches the call to the vision model.
type Request struct {
	System   string
	User     string
	ImageURL string
	JSON     bool
}

type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
