package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDraft      Status = "draft"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	KindHero SlideKind = "hero"
	KindBody SlideKind = "body"
	KindCTA  SlideKind = "cta"
)

const (
	ModeStandard Mode = "standard"
	ModeViral    Mode = "viral"
)

const (
	DefaultLayout           = "centered_stack"
	DefaultVariant          = "1"
	DefaultFont             = "modern"
	DefaultTextEffect       = "none"
	DefaultArrowColor       = "#ffffff"
	DefaultTextPosition     = "middle_center"
	DefaultTextAlign        = "center"
	DefaultTextWidth        = "medium"
	DefaultContainerOpacity = 0.6
	DefaultGlassIntensity   = "high"
	DefaultThemeMode        = "dark"
	DefaultBackgroundPrompt = "Abstract minimal background"
)

type Status string

// Terminal reports whether a dispatched unit of work can stop at s.
func (s Status) Terminal() bool {
	return s == StatusDraft || s == StatusCompleted || s == StatusFailed
}

// Editable reports whether an editor save may set s.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusCompleted
}

type SlideKind string

type Mode string

func (m Mode) Valid() bool {
	return m == ModeStandard || m == ModeViral
}

type Generation struct {
	ID         string    `json:"id" bson:"id"`
	Topic      string    `json:"topic" bson:"topic"`
	SlideCount int       `json:"slide_count" bson:"slide_count"`
	Mode       Mode      `json:"mode" bson:"mode"`
	Theme      string    `json:"theme" bson:"theme"`
	Context    string    `json:"context,omitempty" bson:"context,omitempty"`
	Status     Status    `json:"status" bson:"status"`
	Slides     []Slide   `json:"slides" bson:"slides"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

type Slide struct {
	ID               string    `json:"id" bson:"id"`
	Title            string    `json:"title" bson:"title"`
	Content          string    `json:"content" bson:"content"`
	BackgroundPrompt string    `json:"background_prompt" bson:"background_prompt"`
	BackgroundURL    *string   `json:"background_url" bson:"background_url"`
	Type             SlideKind `json:"type" bson:"type"`

	Layout     string `json:"layout" bson:"layout"`
	Variant    string `json:"variant" bson:"variant"`
	Font       string `json:"font" bson:"font"`
	TextEffect string `json:"text_effect" bson:"text_effect"`
	Theme      string `json:"theme" bson:"theme"`
	ArrowColor string `json:"arrow_color" bson:"arrow_color"`

	FontColor     *string `json:"font_color" bson:"font_color"`
	HeadlineColor *string `json:"headline_color" bson:"headline_color"`

	TextPosition string `json:"text_position" bson:"text_position"`
	TextAlign    string `json:"text_align" bson:"text_align"`
	TextWidth    string `json:"text_width" bson:"text_width"`

	OverlayEnabled   bool    `json:"text_bg_enabled" bson:"text_bg_enabled"`
	ContainerOpacity float64 `json:"container_opacity" bson:"container_opacity"`
	GlassIntensity   string  `json:"glass_intensity" bson:"glass_intensity"`
	ThemeMode        string  `json:"theme_mode" bson:"theme_mode"`
	TextShadow       bool    `json:"text_shadow" bson:"text_shadow"`
}

// NewSlide returns a slide with a fresh id and the default presentation bundle.
func NewSlide(kind SlideKind, title, content, backgroundPrompt, theme string) Slide {
	if backgroundPrompt == "" {
		backgroundPrompt = DefaultBackgroundPrompt
	}
	return Slide{
		ID:               uuid.NewString(),
		Title:            title,
		Content:          content,
		BackgroundPrompt: backgroundPrompt,
		Type:             kind,
		Layout:           DefaultLayout,
		Variant:          DefaultVariant,
		Font:             DefaultFont,
		TextEffect:       DefaultTextEffect,
		Theme:            theme,
		ArrowColor:       DefaultArrowColor,
		TextPosition:     DefaultTextPosition,
		TextAlign:        DefaultTextAlign,
		TextWidth:        DefaultTextWidth,
		OverlayEnabled:   true,
		ContainerOpacity: DefaultContainerOpacity,
		GlassIntensity:   DefaultGlassIntensity,
		ThemeMode:        DefaultThemeMode,
	}
}

func NewGeneration(topic string, slideCount int, mode Mode, theme, context string) *Generation {
	now := time.Now().UTC()
	return &Generation{
		ID:         uuid.NewString(),
		Topic:      topic,
		SlideCount: slideCount,
		Mode:       mode,
		Theme:      theme,
		Context:    context,
		Status:     StatusPending,
		Slides:     []Slide{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (g *Generation) Slide(id string) (*Slide, bool) {
	for i := range g.Slides {
		if g.Slides[i].ID == id {
			return &g.Slides[i], true
		}
	}
	return nil, false
}

func (g *Generation) Hero() (*Slide, bool) {
	if len(g.Slides) == 0 || g.Slides[0].Type != KindHero {
		return nil, false
	}
	return &g.Slides[0], true
}

// CloneSlides returns a deep copy so pointer fields are not shared with g.
func (g *Generation) CloneSlides() []Slide {
	return CloneSlides(g.Slides)
}

func CloneSlides(slides []Slide) []Slide {
	out := make([]Slide, len(slides))
	for i, s := range slides {
		s.BackgroundURL = clonePtr(s.BackgroundURL)
		s.FontColor = clonePtr(s.FontColor)
		s.HeadlineColor = clonePtr(s.HeadlineColor)
		out[i] = s
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// GenerationUpdate carries $set-style field replacements. Nil fields are left alone.
type GenerationUpdate struct {
	Topic  *string
	Theme  *string
	Status *Status
	Slides []Slide
}

func (u GenerationUpdate) Apply(g *Generation, now time.Time) {
	if u.Topic != nil {
		g.Topic = *u.Topic
	}
	if u.Theme != nil {
		g.Theme = *u.Theme
	}
	if u.Status != nil {
		g.Status = *u.Status
	}
	if u.Slides != nil {
		g.Slides = CloneSlides(u.Slides)
	}
	g.UpdatedAt = now
}

// SlidePatch replaces individual fields of one slide addressed by id.
type SlidePatch struct {
	BackgroundURL    *string
	OverlayEnabled   *bool
	ContainerOpacity *float64
}

func (p SlidePatch) Apply(s *Slide) {
	if p.BackgroundURL != nil {
		s.BackgroundURL = clonePtr(p.BackgroundURL)
	}
	if p.OverlayEnabled != nil {
		s.OverlayEnabled = *p.OverlayEnabled
	}
	if p.ContainerOpacity != nil {
		s.ContainerOpacity = *p.ContainerOpacity
	}
}

func Ptr[T any](v T) *T {
	return &v
}
