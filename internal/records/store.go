package records

import (
	"context"
	"errors"

	"carousel/internal/app/model"
)

var ErrNotFound = errors.New("not found")

const DefaultListLimit = 100

// Store persists generations. Update has field-replacement semantics and
// PatchSlide rewrites one slide addressed by its id; both bump updated_at.
type Store interface {
	Insert(ctx context.Context, gen *model.Generation) error
	Get(ctx context.Context, id string) (*model.Generation, error)
	List(ctx context.Context, limit int) ([]*model.Generation, error)
	Update(ctx context.Context, id string, update model.GenerationUpdate) error
	PatchSlide(ctx context.Context, id, slideID string, patch model.SlidePatch) error
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
