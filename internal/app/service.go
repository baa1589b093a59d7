package app

import (
	"context"

	"carousel/internal/design"
	"carousel/internal/planner"
	"carousel/internal/records"
	"carousel/pkg/config"
)

type ImageGenerator interface {
	GenerateHeroImage(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	RemoveText(ctx context.Context, imageURL string) (string, error)
}

type ContentPlanner interface {
	PlanSlides(ctx context.Context, topic string, count int, extraContext string) ([]planner.PlannedSlide, error)
	PlanViralStructure(ctx context.Context, topic string, count int, brandContext string) (*planner.ViralPlan, error)
}

type DesignAdvisor interface {
	Recommend(ctx context.Context, imageURL string) design.Recommendation
}

type AssetMirror interface {
	Copy(ctx context.Context, generationID, name, sourceURL string) (string, error)
}

type HeroPromptRenderer func(topic, topHeadline, bottomHeadline string) (string, error)

type Service struct {
	cfg        *config.Config
	store      records.Store
	planner    ContentPlanner
	designer   DesignAdvisor
	images     ImageGenerator
	mirror     AssetMirror
	heroPrompt HeroPromptRenderer
	closers    []func() error
}

type ServiceOptions struct {
	Config     *config.Config
	Store      records.Store
	Planner    ContentPlanner
	Designer   DesignAdvisor
	Images     ImageGenerator
	Mirror     AssetMirror
	HeroPrompt HeroPromptRenderer
}

func NewService(opts ServiceOptions) *Service {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Service{
		cfg:        cfg,
		store:      opts.Store,
		planner:    opts.Planner,
		designer:   opts.Designer,
		images:     opts.Images,
		mirror:     opts.Mirror,
		heroPrompt: opts.HeroPrompt,
	}
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) Store() records.Store {
	return s.store
}

func (s *Service) Planner() ContentPlanner {
	return s.planner
}

func (s *Service) Designer() DesignAdvisor {
	return s.designer
}

func (s *Service) Images() ImageGenerator {
	return s.images
}

func (s *Service) Mirror() AssetMirror {
	return s.mirror
}

func (s *Service) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
