package records

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"carousel/internal/app/model"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "carousel.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newMemoryStore(t *testing.T) Store {
	t.Helper()
	return NewMemory()
}

var backends = []struct {
	name string
	open func(t *testing.T) Store
}{
	{name: "memory", open: newMemoryStore},
	{name: "sqlite", open: newSQLiteStore},
}

func seedGeneration(t *testing.T, store Store, topic string, slides int) *model.Generation {
	t.Helper()
	gen := model.NewGeneration(topic, slides, model.ModeStandard, "trust_clarity", "ctx")
	for i := range slides {
		kind := model.KindBody
		if i == 0 {
			kind = model.KindHero
		}
		gen.Slides = append(gen.Slides, model.NewSlide(kind, "t", "c", "", gen.Theme))
	}
	if err := store.Insert(context.Background(), gen); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	return gen
}

func TestInsertAndGet(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t)
			gen := seedGeneration(t, store, "Coffee", 3)

			got, err := store.Get(context.Background(), gen.ID)
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}

			if got.Topic != "Coffee" || got.Status != model.StatusPending || got.Context != "ctx" {
				t.Errorf("Get() = %+v", got)
			}
			if len(got.Slides) != 3 {
				t.Fatalf("slides = %d, want 3", len(got.Slides))
			}
			if got.Slides[0].ID != gen.Slides[0].ID || got.Slides[0].Type != model.KindHero {
				t.Errorf("slide[0] = %+v", got.Slides[0])
			}
			if got.Slides[1].BackgroundURL != nil {
				t.Errorf("BackgroundURL = %v, want nil", *got.Slides[1].BackgroundURL)
			}
			if !got.CreatedAt.Equal(gen.CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, gen.CreatedAt)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t)
			if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestEmptySlidesRoundTrip(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t)
			gen := seedGeneration(t, store, "Empty", 0)

			got, err := store.Get(context.Background(), gen.ID)
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got.Slides == nil || len(got.Slides) != 0 {
				t.Errorf("Slides = %#v, want empty non-nil", got.Slides)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)
			gen := seedGeneration(t, store, "Coffee", 2)

			status := model.StatusDraft
			if err := store.Update(ctx, gen.ID, model.GenerationUpdate{Status: &status}); err != nil {
				t.Fatalf("Update() error: %v", err)
			}

			got, _ := store.Get(ctx, gen.ID)
			if got.Status != model.StatusDraft {
				t.Errorf("Status = %q, want draft", got.Status)
			}
			if len(got.Slides) != 2 {
				t.Errorf("slides should be untouched, got %d", len(got.Slides))
			}
			if got.Topic != "Coffee" {
				t.Errorf("Topic = %q, want Coffee", got.Topic)
			}
			if got.UpdatedAt.Before(gen.UpdatedAt) {
				t.Errorf("UpdatedAt went backwards: %v < %v", got.UpdatedAt, gen.UpdatedAt)
			}

			slides := got.CloneSlides()
			slides[1].Title = "Edited"
			slides[1].BackgroundURL = model.Ptr("https://cdn.example/bg.png")
			topic := "Tea"
			if err := store.Update(ctx, gen.ID, model.GenerationUpdate{Topic: &topic, Slides: slides}); err != nil {
				t.Fatalf("Update() error: %v", err)
			}

			got, _ = store.Get(ctx, gen.ID)
			if got.Topic != "Tea" || got.Status != model.StatusDraft {
				t.Errorf("got topic %q status %q", got.Topic, got.Status)
			}
			if got.Slides[1].Title != "Edited" || got.Slides[1].BackgroundURL == nil || *got.Slides[1].BackgroundURL != "https://cdn.example/bg.png" {
				t.Errorf("slide[1] = %+v", got.Slides[1])
			}
		})
	}
}

func TestUpdateNotFound(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t)
			status := model.StatusFailed
			err := store.Update(context.Background(), "missing", model.GenerationUpdate{Status: &status})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Update() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestPatchSlide(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)
			gen := seedGeneration(t, store, "Coffee", 3)
			target := gen.Slides[1]

			patch := model.SlidePatch{
				BackgroundURL:    model.Ptr("https://cdn.example/1.png"),
				OverlayEnabled:   model.Ptr(true),
				ContainerOpacity: model.Ptr(0.6),
			}
			if err := store.PatchSlide(ctx, gen.ID, target.ID, patch); err != nil {
				t.Fatalf("PatchSlide() error: %v", err)
			}

			got, _ := store.Get(ctx, gen.ID)
			for i, s := range got.Slides {
				if i == 1 {
					if s.BackgroundURL == nil || *s.BackgroundURL != "https://cdn.example/1.png" {
						t.Errorf("patched slide BackgroundURL = %v", s.BackgroundURL)
					}
					if s.Title != target.Title || s.Type != target.Type {
						t.Errorf("patched slide lost fields: %+v", s)
					}
					continue
				}
				if s.BackgroundURL != nil {
					t.Errorf("slide[%d] should be untouched, BackgroundURL = %v", i, *s.BackgroundURL)
				}
			}

			// Same patch twice leaves the same state.
			if err := store.PatchSlide(ctx, gen.ID, target.ID, patch); err != nil {
				t.Fatalf("PatchSlide() second call error: %v", err)
			}
			again, _ := store.Get(ctx, gen.ID)
			if *again.Slides[1].BackgroundURL != *got.Slides[1].BackgroundURL || again.Status != got.Status {
				t.Error("repeated patch changed the record")
			}
		})
	}
}

func TestPatchSlideNotFound(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)
			gen := seedGeneration(t, store, "Coffee", 2)
			patch := model.SlidePatch{BackgroundURL: model.Ptr("x")}

			if err := store.PatchSlide(ctx, gen.ID, "missing-slide", patch); !errors.Is(err, ErrNotFound) {
				t.Errorf("PatchSlide() unknown slide error = %v, want ErrNotFound", err)
			}
			if err := store.PatchSlide(ctx, "missing", gen.Slides[0].ID, patch); !errors.Is(err, ErrNotFound) {
				t.Errorf("PatchSlide() unknown generation error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)

			base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
			topics := []string{"first", "second", "third"}
			for i, topic := range topics {
				gen := model.NewGeneration(topic, 5, model.ModeStandard, "trust_clarity", "")
				gen.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				gen.UpdatedAt = gen.CreatedAt
				if err := store.Insert(ctx, gen); err != nil {
					t.Fatalf("Insert() error: %v", err)
				}
			}

			got, err := store.List(ctx, 0)
			if err != nil {
				t.Fatalf("List() error: %v", err)
			}
			want := []string{"third", "second", "first"}
			if len(got) != len(want) {
				t.Fatalf("List() returned %d, want %d", len(got), len(want))
			}
			for i, gen := range got {
				if gen.Topic != want[i] {
					t.Errorf("List()[%d] = %q, want %q", i, gen.Topic, want[i])
				}
			}

			limited, _ := store.List(ctx, 2)
			if len(limited) != 2 || limited[0].Topic != "third" {
				t.Errorf("List(2) = %d items", len(limited))
			}
		})
	}
}

func TestConcurrentPatches(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)
			gen := seedGeneration(t, store, "Coffee", 6)

			var wg sync.WaitGroup
			for _, slide := range gen.Slides {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					url := "https://cdn.example/" + id + ".png"
					if err := store.PatchSlide(ctx, gen.ID, id, model.SlidePatch{BackgroundURL: &url}); err != nil {
						t.Errorf("PatchSlide(%s) error: %v", id, err)
					}
				}(slide.ID)
			}
			wg.Wait()

			got, _ := store.Get(ctx, gen.ID)
			for _, s := range got.Slides {
				if s.BackgroundURL == nil || *s.BackgroundURL != "https://cdn.example/"+s.ID+".png" {
					t.Errorf("slide %s BackgroundURL = %v", s.ID, s.BackgroundURL)
				}
			}
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	gen := seedGeneration(t, store, "Coffee", 2)

	got, _ := store.Get(ctx, gen.ID)
	got.Slides[0].Title = "mutated"
	got.Status = model.StatusFailed

	again, _ := store.Get(ctx, gen.ID)
	if again.Slides[0].Title == "mutated" || again.Status == model.StatusFailed {
		t.Error("Get() must return an independent copy")
	}
}
