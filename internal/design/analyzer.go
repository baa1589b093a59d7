package design

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

var ErrAnalysis = errors.New("design analysis failed")

// Recommendation is the styling applied to every non-hero slide of a viral carousel.
type Recommendation struct {
	HeadlineColor    string  `json:"headline_color"`
	FontColor        string  `json:"font_color"`
	TextPosition     string  `json:"text_position"`
	TextAlign        string  `json:"text_align"`
	ContainerOpacity float64 `json:"containerOpacity"`
	TextShadow       bool    `json:"textShadow"`
	Font             string  `json:"font"`
	TextWidth        string  `json:"text_width"`
}

func DefaultRecommendation() Recommendation {
	return Recommendation{
		HeadlineColor:    "#FFFFFF",
		FontColor:        "#F1F5F9",
		TextPosition:     "bottom_center",
		TextAlign:        "center",
		ContainerOpacity: 0.6,
		TextShadow:       true,
		Font:             "modern",
		TextWidth:        "medium",
	}
}

// ApplyTo copies every recommended field onto s.
func (r Recommendation) ApplyTo(s *model.Slide) {
	s.HeadlineColor = model.Ptr(r.HeadlineColor)
	s.FontColor = model.Ptr(r.FontColor)
	s.TextPosition = r.TextPosition
	s.TextAlign = r.TextAlign
	s.ContainerOpacity = r.ContainerOpacity
	s.TextShadow = r.TextShadow
	s.Font = r.Font
	s.TextWidth = r.TextWidth
}

// wire mirrors Recommendation with optional fields so absent keys can be told apart from zero values.
type wire struct {
	HeadlineColor    *string  `json:"headline_color"`
	FontColor        *string  `json:"font_color"`
	TextPosition     *string  `json:"text_position"`
	TextAlign        *string  `json:"text_align"`
	ContainerOpacity *float64 `json:"containerOpacity"`
	TextShadow       *bool    `json:"textShadow"`
	Font             *string  `json:"font"`
	TextWidth        *string  `json:"text_width"`
}

type Analyzer struct {
	llm     llm.Completer
	prompts *prompts.Prompts
}

func NewAnalyzer(completer llm.Completer, p *prompts.Prompts) *Analyzer {
	return &Analyzer{llm: completer, prompts: p}
}

func (a *Analyzer) Analyze(ctx context.Context, imageURL string) (Recommendation, error) {
	raw, err := a.llm.Complete(ctx, llm.Request{
		System:   a.prompts.System.Design,
		User:     a.prompts.Carousel.Design,
		ImageURL: imageURL,
		JSON:     true,
	})
	if err != nil {
		return Recommendation{}, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	var w wire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Recommendation{}, fmt.Errorf("%w: parse response: %v", ErrAnalysis, err)
	}

	return w.merge(DefaultRecommendation()), nil
}

// Recommend never fails. Any analysis error is logged and the defaults are returned.
func (a *Analyzer) Recommend(ctx context.Context, imageURL string) Recommendation {
	rec, err := a.Analyze(ctx, imageURL)
	if err != nil {
		slog.Warn("Design analysis failed, using default styling", "error", err)
		return DefaultRecommendation()
	}
	return rec
}

func (w wire) merge(base Recommendation) Recommendation {
	setString(&base.HeadlineColor, w.HeadlineColor)
	setString(&base.FontColor, w.FontColor)
	setString(&base.TextPosition, w.TextPosition)
	setString(&base.TextAlign, w.TextAlign)
	setString(&base.Font, w.Font)
	setString(&base.TextWidth, w.TextWidth)
	if w.ContainerOpacity != nil {
		base.ContainerOpacity = min(max(*w.ContainerOpacity, 0), 1)
	}
	if w.TextShadow != nil {
		base.TextShadow = *w.TextShadow
	}
	return base
}

func setString(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = strings.TrimSpace(*v)
	}
}
