package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"carousel/internal/app/model"
	"carousel/internal/records"
	"carousel/internal/theme"
)

const (
	minSlideCount = 1
	maxSlideCount = 10
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidState   = errors.New("invalid state")
)

type Pipeline struct {
	service *Service
	wg      sync.WaitGroup

	mu      sync.Mutex
	running map[string]struct{}
}

type Request struct {
	Topic      string
	SlideCount int
	Mode       model.Mode
	Theme      string
	Context    string
}

func NewPipeline(service *Service) *Pipeline {
	return &Pipeline{service: service, running: make(map[string]struct{})}
}

// Submit records a processing generation and plans it in the background.
// It returns as soon as the record is written.
func (pipeline *Pipeline) Submit(ctx context.Context, req Request) (string, error) {
	req, err := pipeline.normalize(req)
	if err != nil {
		return "", err
	}

	gen := model.NewGeneration(req.Topic, req.SlideCount, req.Mode, req.Theme, req.Context)
	gen.Status = model.StatusProcessing

	if err := pipeline.service.Store().Insert(ctx, gen); err != nil {
		return "", fmt.Errorf("create generation: %w", err)
	}

	slog.Info("Generation accepted", "generation_id", gen.ID, "topic", gen.Topic, "mode", gen.Mode, "slides", gen.SlideCount)

	pipeline.dispatch(ctx, gen.ID, func(ctx context.Context) error {
		if err := pipeline.Plan(ctx, gen); err != nil {
			return err
		}
		if gen.Mode == model.ModeViral && pipeline.service.Config().Pipeline.AutoVisuals {
			return pipeline.GenerateViralVisuals(ctx, gen.ID)
		}
		return nil
	})

	return gen.ID, nil
}

func (pipeline *Pipeline) normalize(req Request) (Request, error) {
	cfg := pipeline.service.Config().Pipeline

	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return req, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}

	upper := maxSlideCount
	if cfg.MaxSlideCount > 0 && cfg.MaxSlideCount < upper {
		upper = cfg.MaxSlideCount
	}
	if req.SlideCount == 0 {
		req.SlideCount = cfg.DefaultSlideCount
		if req.SlideCount == 0 {
			req.SlideCount = 5
		}
	}
	if req.SlideCount < minSlideCount || req.SlideCount > upper {
		return req, fmt.Errorf("%w: slide_count must be between %d and %d", ErrInvalidRequest, minSlideCount, upper)
	}

	if req.Mode == "" {
		req.Mode = model.ModeStandard
	}
	if !req.Mode.Valid() {
		return req, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}

	if req.Theme == "" {
		req.Theme = cfg.DefaultTheme
	}
	req.Theme = theme.Resolve(req.Theme)
	req.Context = strings.TrimSpace(req.Context)

	return req, nil
}

// Plan runs the planning stage: draft with skeleton slides on success, failed otherwise.
func (pipeline *Pipeline) Plan(ctx context.Context, gen *model.Generation) error {
	slog.Info("Planning slides...", "generation_id", gen.ID, "mode", gen.Mode)

	var slides []model.Slide
	var err error
	if gen.Mode == model.ModeViral {
		slides, err = pipeline.planViral(ctx, gen)
	} else {
		slides, err = pipeline.planStandard(ctx, gen)
	}
	if err != nil {
		pipeline.markFailed(ctx, gen.ID)
		return fmt.Errorf("plan slides: %w", err)
	}

	draft := model.StatusDraft
	if err := pipeline.service.Store().Update(ctx, gen.ID, model.GenerationUpdate{Slides: slides, Status: &draft}); err != nil {
		pipeline.markFailed(ctx, gen.ID)
		return fmt.Errorf("save draft: %w", err)
	}

	slog.Info("Draft ready", "generation_id", gen.ID, "slides", len(slides))
	return nil
}

func (pipeline *Pipeline) planStandard(ctx context.Context, gen *model.Generation) ([]model.Slide, error) {
	planned, err := pipeline.service.Planner().PlanSlides(ctx, gen.Topic, gen.SlideCount, gen.Context)
	if err != nil {
		return nil, err
	}

	slides := make([]model.Slide, 0, len(planned))
	for _, p := range planned {
		slides = append(slides, model.NewSlide(p.Kind, p.Title, p.Content, p.BackgroundPrompt, gen.Theme))
	}
	return slides, nil
}

func (pipeline *Pipeline) planViral(ctx context.Context, gen *model.Generation) ([]model.Slide, error) {
	plan, err := pipeline.service.Planner().PlanViralStructure(ctx, gen.Topic, gen.SlideCount, gen.Context)
	if err != nil {
		return nil, err
	}

	heroPrompt, err := pipeline.heroPrompt(gen.Topic, plan.Hero.TopHeadline, plan.Hero.BottomHeadline)
	if err != nil {
		return nil, err
	}

	hero := model.NewSlide(model.KindHero, plan.Hero.TopHeadline, plan.Hero.BottomHeadline, heroPrompt, gen.Theme)
	// Headlines are drawn into the hero image itself.
	hero.OverlayEnabled = false

	slides := make([]model.Slide, 0, len(plan.BodySlides)+1)
	slides = append(slides, hero)
	for _, body := range plan.BodySlides {
		slides = append(slides, model.NewSlide(body.Kind, body.Title, body.Content, body.BackgroundPrompt, gen.Theme))
	}
	return slides, nil
}

func (pipeline *Pipeline) heroPrompt(topic, top, bottom string) (string, error) {
	render := pipeline.service.heroPrompt
	if render == nil {
		return fmt.Sprintf("Bold editorial cover image about %q with the headline %q above and %q below.", topic, top, bottom), nil
	}
	prompt, err := render(topic, top, bottom)
	if err != nil {
		return "", fmt.Errorf("render hero prompt: %w", err)
	}
	return prompt, nil
}

// TriggerViralVisuals checks that a viral generation is ready for visuals and runs them in the background.
func (pipeline *Pipeline) TriggerViralVisuals(ctx context.Context, id string) error {
	gen, err := pipeline.service.Store().Get(ctx, id)
	if err != nil {
		return err
	}
	if gen.Mode != model.ModeViral {
		return fmt.Errorf("%w: generation %s is not viral", ErrInvalidState, id)
	}
	if gen.Status != model.StatusDraft && gen.Status != model.StatusCompleted {
		return fmt.Errorf("%w: generation %s is %s", ErrInvalidState, id, gen.Status)
	}
	if _, ok := gen.Hero(); !ok {
		return fmt.Errorf("%w: generation %s has no hero slide", ErrInvalidState, id)
	}

	started := pipeline.dispatch(ctx, id, func(ctx context.Context) error {
		return pipeline.GenerateViralVisuals(ctx, id)
	})
	if !started {
		return fmt.Errorf("%w: generation %s is already running", ErrInvalidState, id)
	}
	slog.Info("Viral visuals triggered", "generation_id", id)
	return nil
}

// GenerateViralVisuals renders the hero, derives a text-free background for
// the other slides, styles them from that background and completes the record.
// Only a hero failure is fatal.
func (pipeline *Pipeline) GenerateViralVisuals(ctx context.Context, id string) error {
	store := pipeline.service.Store()
	images := pipeline.service.Images()

	gen, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	hero, ok := gen.Hero()
	if !ok {
		return fmt.Errorf("%w: generation %s has no hero slide", ErrInvalidState, id)
	}
	heroID := hero.ID

	slog.Info("Generating hero image...", "generation_id", id)
	heroURL, err := images.GenerateHeroImage(ctx, hero.BackgroundPrompt)
	if err != nil {
		pipeline.markFailed(ctx, id)
		return fmt.Errorf("generate hero image: %w", err)
	}

	storedHero := pipeline.mirror(ctx, id, "hero", heroURL)
	if err := store.PatchSlide(ctx, id, heroID, model.SlidePatch{BackgroundURL: &storedHero}); err != nil {
		pipeline.markFailed(ctx, id)
		return fmt.Errorf("save hero image: %w", err)
	}

	slog.Info("Removing text from hero...", "generation_id", id)
	cleanURL, err := images.RemoveText(ctx, heroURL)
	storedClean := storedHero
	if err != nil {
		slog.Warn("Text removal failed, reusing hero image", "generation_id", id, "error", err)
		cleanURL = heroURL
	} else {
		storedClean = pipeline.mirror(ctx, id, "background", cleanURL)
	}

	err = pipeline.updateBodySlides(ctx, id, heroID, func(s *model.Slide) {
		s.BackgroundURL = model.Ptr(storedClean)
	})
	if err != nil {
		pipeline.markFailed(ctx, id)
		return fmt.Errorf("save shared background: %w", err)
	}

	slog.Info("Analyzing design...", "generation_id", id)
	rec := pipeline.service.Designer().Recommend(ctx, cleanURL)

	if err := pipeline.updateBodySlides(ctx, id, heroID, rec.ApplyTo); err != nil {
		pipeline.markFailed(ctx, id)
		return fmt.Errorf("save styling: %w", err)
	}

	completed := model.StatusCompleted
	if err := store.Update(ctx, id, model.GenerationUpdate{Status: &completed}); err != nil {
		pipeline.markFailed(ctx, id)
		return fmt.Errorf("complete generation: %w", err)
	}

	slog.Info("Viral carousel completed", "generation_id", id)
	return nil
}

// updateBodySlides rereads the record and applies fn to every slide except the hero.
func (pipeline *Pipeline) updateBodySlides(ctx context.Context, id, heroID string, fn func(*model.Slide)) error {
	store := pipeline.service.Store()

	gen, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	slides := gen.CloneSlides()
	for i := range slides {
		if slides[i].ID == heroID {
			continue
		}
		fn(&slides[i])
	}

	return store.Update(ctx, id, model.GenerationUpdate{Slides: slides})
}

// GenerateSlideImage renders one slide background. The record status is not
// changed and failures are only reported to the caller.
func (pipeline *Pipeline) GenerateSlideImage(ctx context.Context, id, slideID string) (string, error) {
	store := pipeline.service.Store()

	gen, err := store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	slide, ok := gen.Slide(slideID)
	if !ok {
		return "", fmt.Errorf("slide %s: %w", slideID, records.ErrNotFound)
	}

	slog.Info("Generating slide image...", "generation_id", id, "slide_id", slideID)
	url, err := pipeline.service.Images().GenerateImage(ctx, slide.BackgroundPrompt)
	if err != nil {
		return "", fmt.Errorf("generate slide image: %w", err)
	}

	stored := pipeline.mirror(ctx, id, "slide-"+slideID, url)
	patch := model.SlidePatch{
		BackgroundURL:    &stored,
		OverlayEnabled:   model.Ptr(true),
		ContainerOpacity: model.Ptr(model.DefaultContainerOpacity),
	}
	if err := store.PatchSlide(ctx, id, slideID, patch); err != nil {
		return "", fmt.Errorf("save slide image: %w", err)
	}

	return stored, nil
}

// Edit applies an editor save. The editor may only move a record between
// draft and completed; the other statuses belong to the pipeline.
func (pipeline *Pipeline) Edit(ctx context.Context, id string, update model.GenerationUpdate) error {
	if update.Status != nil && !update.Status.Editable() {
		return fmt.Errorf("%w: status %q cannot be set by an edit", ErrInvalidRequest, *update.Status)
	}
	if update.Theme != nil {
		update.Theme = model.Ptr(theme.Resolve(*update.Theme))
	}
	return pipeline.service.Store().Update(ctx, id, update)
}

func (pipeline *Pipeline) Get(ctx context.Context, id string) (*model.Generation, error) {
	return pipeline.service.Store().Get(ctx, id)
}

func (pipeline *Pipeline) List(ctx context.Context, limit int) ([]*model.Generation, error) {
	return pipeline.service.Store().List(ctx, limit)
}

// Wait blocks until every dispatched unit has finished.
func (pipeline *Pipeline) Wait() {
	pipeline.wg.Wait()
}

// dispatch runs fn on its own goroutine, detached from the caller's cancellation.
// At most one unit runs per generation; it reports false when id is already busy.
func (pipeline *Pipeline) dispatch(ctx context.Context, id string, fn func(context.Context) error) bool {
	pipeline.mu.Lock()
	if _, busy := pipeline.running[id]; busy {
		pipeline.mu.Unlock()
		return false
	}
	pipeline.running[id] = struct{}{}
	pipeline.wg.Add(1)
	pipeline.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer pipeline.wg.Done()
		defer pipeline.release(id)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Generation panicked", "generation_id", id, "panic", r)
				pipeline.markFailed(ctx, id)
			}
		}()

		if err := fn(ctx); err != nil {
			slog.Error("Generation failed", "generation_id", id, "error", err)
			pipeline.settle(ctx, id)
		}
	}()
	return true
}

func (pipeline *Pipeline) release(id string) {
	pipeline.mu.Lock()
	defer pipeline.mu.Unlock()
	delete(pipeline.running, id)
}

// settle marks id failed when a unit errored out without reaching a terminal status.
func (pipeline *Pipeline) settle(ctx context.Context, id string) {
	gen, err := pipeline.service.Store().Get(ctx, id)
	if err != nil {
		return
	}
	if !gen.Status.Terminal() {
		pipeline.markFailed(ctx, id)
	}
}

func (pipeline *Pipeline) markFailed(ctx context.Context, id string) {
	failed := model.StatusFailed
	if err := pipeline.service.Store().Update(ctx, id, model.GenerationUpdate{Status: &failed}); err != nil {
		slog.Error("Failed to mark generation failed", "generation_id", id, "error", err)
	}
}

// mirror copies url into the asset store when one is configured. On failure the remote url is kept.
func (pipeline *Pipeline) mirror(ctx context.Context, id, name, url string) string {
	m := pipeline.service.Mirror()
	if m == nil {
		return url
	}

	stored, err := m.Copy(ctx, id, name, url)
	if err != nil {
		slog.Warn("Asset mirror failed, keeping remote url", "generation_id", id, "asset", name, "error", err)
		return url
	}
	return stored
}
