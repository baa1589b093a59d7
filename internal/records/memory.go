package records

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"carousel/internal/app/model"
)

type Memory struct {
	mu          sync.RWMutex
	generations map[string]*model.Generation
	now         func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		generations: make(map[string]*model.Generation),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Insert(_ context.Context, gen *model.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.generations[gen.ID]; ok {
		return fmt.Errorf("insert generation %s: already exists", gen.ID)
	}
	m.generations[gen.ID] = clone(gen)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*model.Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gen, ok := m.generations[id]
	if !ok {
		return nil, fmt.Errorf("generation %s: %w", id, ErrNotFound)
	}
	return clone(gen), nil
}

func (m *Memory) List(_ context.Context, limit int) ([]*model.Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Generation, 0, len(m.generations))
	for _, gen := range m.generations {
		out = append(out, clone(gen))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Update(_ context.Context, id string, update model.GenerationUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gen, ok := m.generations[id]
	if !ok {
		return fmt.Errorf("generation %s: %w", id, ErrNotFound)
	}
	update.Apply(gen, m.now())
	return nil
}

func (m *Memory) PatchSlide(_ context.Context, id, slideID string, patch model.SlidePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gen, ok := m.generations[id]
	if !ok {
		return fmt.Errorf("generation %s: %w", id, ErrNotFound)
	}
	slide, ok := gen.Slide(slideID)
	if !ok {
		return fmt.Errorf("slide %s in generation %s: %w", slideID, id, ErrNotFound)
	}
	patch.Apply(slide)
	gen.UpdatedAt = m.now()
	return nil
}

func (m *Memory) Close() error { return nil }

func clone(gen *model.Generation) *model.Generation {
	c := *gen
	c.Slides = gen.CloneSlides()
	return &c
}
