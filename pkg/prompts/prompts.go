package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type Prompts struct {
	System   SystemPrompts   `yaml:"system"`
	Carousel CarouselPrompts `yaml:"carousel"`
}

type SystemPrompts struct {
	Planner string `yaml:"planner"`
	Viral   string `yaml:"viral"`
	Design  string `yaml:"design"`
}

type CarouselPrompts struct {
	Slides    string `yaml:"slides"`
	Viral     string `yaml:"viral"`
	HeroImage string `yaml:"hero_image"`
	Design    string `yaml:"design"`
}

type SlidesParams struct {
	Topic      string
	SlideCount int
	Context    string
}

type ViralParams struct {
	Topic        string
	BodyCount    int
	BrandContext string
}

type HeroImageParams struct {
	Topic          string
	TopHeadline    string
	BottomHeadline string
}

// Load returns the built-in prompt set.
func Load() (*Prompts, error) {
	return parse(defaultPrompts)
}

// LoadFrom reads a prompt file. Keys missing from the file keep their built-in text.
func LoadFrom(path string) (*Prompts, error) {
	if path == "" {
		return Load()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	p, err := Load()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	return p, nil
}

func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	return &p, nil
}

func (p *Prompts) RenderSlides(params SlidesParams) (string, error) {
	return render(p.Carousel.Slides, params)
}

func (p *Prompts) RenderViral(params ViralParams) (string, error) {
	return render(p.Carousel.Viral, params)
}

func (p *Prompts) RenderHeroImage(params HeroImageParams) (string, error) {
	return render(p.Carousel.HeroImage, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
