package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"carousel/internal/app/model"
	"carousel/internal/llm"
	"carousel/pkg/prompts"
)

var ErrPlanning = errors.New("planning failed")

type PlannedSlide struct {
	Title            string          `json:"title"`
	Content          string          `json:"content"`
	BackgroundPrompt string          `json:"background_prompt"`
	Kind             model.SlideKind `json:"-"`
}

type ViralHero struct {
	TopHeadline    string `json:"top_headline"`
	BottomHeadline string `json:"bottom_headline"`
}

type ViralPlan struct {
	Hero       ViralHero      `json:"hero"`
	BodySlides []PlannedSlide `json:"body_slides"`
}

type Planner struct {
	llm     llm.Completer
	prompts *prompts.Prompts
}

func New(completer llm.Completer, p *prompts.Prompts) *Planner {
	return &Planner{llm: completer, prompts: p}
}

// PlanSlides asks for count slides in one JSON completion. The first slide
// becomes the hero and, with two or more slides, the last becomes the cta.
func (p *Planner) PlanSlides(ctx context.Context, topic string, count int, extraContext string) ([]PlannedSlide, error) {
	userPrompt, err := p.prompts.RenderSlides(prompts.SlidesParams{
		Topic:      topic,
		SlideCount: count,
		Context:    extraContext,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	slog.Debug("Planning slides", "topic", topic, "count", count)

	raw, err := p.llm.Complete(ctx, llm.Request{
		System: p.prompts.System.Planner,
		User:   userPrompt,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanning, err)
	}

	var resp struct {
		Slides []PlannedSlide `json:"slides"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrPlanning, err)
	}
	if len(resp.Slides) == 0 {
		return nil, fmt.Errorf("%w: no slides in response", ErrPlanning)
	}

	slides := truncate(resp.Slides, count)
	for i := range slides {
		slides[i].Kind = kindAt(i, len(slides))
		if strings.TrimSpace(slides[i].BackgroundPrompt) == "" {
			slides[i].BackgroundPrompt = model.DefaultBackgroundPrompt
		}
	}

	return slides, nil
}

// PlanViralStructure returns hero headlines plus up to count-1 body slides, the last of which is the cta.
func (p *Planner) PlanViralStructure(ctx context.Context, topic string, count int, brandContext string) (*ViralPlan, error) {
	bodyCount := max(count-1, 0)

	userPrompt, err := p.prompts.RenderViral(prompts.ViralParams{
		Topic:        topic,
		BodyCount:    bodyCount,
		BrandContext: brandContext,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	slog.Debug("Planning viral structure", "topic", topic, "count", count)

	raw, err := p.llm.Complete(ctx, llm.Request{
		System: p.prompts.System.Viral,
		User:   userPrompt,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanning, err)
	}

	var plan ViralPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrPlanning, err)
	}
	if strings.TrimSpace(plan.Hero.TopHeadline) == "" || strings.TrimSpace(plan.Hero.BottomHeadline) == "" {
		return nil, fmt.Errorf("%w: hero headlines missing", ErrPlanning)
	}

	plan.BodySlides = truncate(plan.BodySlides, bodyCount)
	for i := range plan.BodySlides {
		plan.BodySlides[i].Kind = model.KindBody
		if i == len(plan.BodySlides)-1 {
			plan.BodySlides[i].Kind = model.KindCTA
		}
		if strings.TrimSpace(plan.BodySlides[i].BackgroundPrompt) == "" {
			plan.BodySlides[i].BackgroundPrompt = model.DefaultBackgroundPrompt
		}
	}

	return &plan, nil
}

func truncate(slides []PlannedSlide, n int) []PlannedSlide {
	if len(slides) > n {
		return slides[:n]
	}
	return slides
}

func kindAt(i, total int) model.SlideKind {
	switch {
	case i == 0:
		return model.KindHero
	case i == total-1:
		return model.KindCTA
	default:
		return model.KindBody
	}
}
