package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	p, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	fields := map[string]string{
		"System.Planner":     p.System.Planner,
		"System.Viral":       p.System.Viral,
		"System.Design":      p.System.Design,
		"Carousel.Slides":    p.Carousel.Slides,
		"Carousel.Viral":     p.Carousel.Viral,
		"Carousel.HeroImage": p.Carousel.HeroImage,
		"Carousel.Design":    p.Carousel.Design,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestLoadFrom(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "prompts.yaml")

	content := `
system:
  planner: "Custom planner"
carousel:
  slides: "Slides about {{.Topic}}"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if p.System.Planner != "Custom planner" {
		t.Errorf("System.Planner = %q, want %q", p.System.Planner, "Custom planner")
	}
	if p.Carousel.Slides != "Slides about {{.Topic}}" {
		t.Errorf("Carousel.Slides = %q", p.Carousel.Slides)
	}
	if p.System.Design == "" {
		t.Error("System.Design should keep the built-in text")
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("system: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestRenderSlides(t *testing.T) {
	p := &Prompts{
		Carousel: CarouselPrompts{
			Slides: "{{.SlideCount}} slides on {{.Topic}} ({{.Context}})",
		},
	}

	result, err := p.RenderSlides(SlidesParams{Topic: "Coffee", SlideCount: 5, Context: "morning"})
	if err != nil {
		t.Fatalf("RenderSlides() error = %v", err)
	}

	expected := "5 slides on Coffee (morning)"
	if result != expected {
		t.Errorf("RenderSlides() = %q, want %q", result, expected)
	}
}

func TestRenderViral(t *testing.T) {
	p, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		params      ViralParams
		wantBrand   bool
		wantContain string
	}{
		{
			name:        "withBrandContext",
			params:      ViralParams{Topic: "Coffee", BodyCount: 4, BrandContext: "Roastery"},
			wantBrand:   true,
			wantContain: "4 body slides",
		},
		{
			name:        "withoutBrandContext",
			params:      ViralParams{Topic: "Coffee", BodyCount: 2},
			wantBrand:   false,
			wantContain: "2 body slides",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.RenderViral(tt.params)
			if err != nil {
				t.Fatalf("RenderViral() error = %v", err)
			}
			if !strings.Contains(result, tt.wantContain) {
				t.Errorf("RenderViral() = %q, want it to contain %q", result, tt.wantContain)
			}
			if got := strings.Contains(result, "Brand context"); got != tt.wantBrand {
				t.Errorf("brand context present = %v, want %v", got, tt.wantBrand)
			}
		})
	}
}

func TestRenderHeroImage(t *testing.T) {
	p := &Prompts{
		Carousel: CarouselPrompts{
			HeroImage: "{{.Topic}}: {{.TopHeadline}} / {{.BottomHeadline}}",
		},
	}

	result, err := p.RenderHeroImage(HeroImageParams{Topic: "Coffee", TopHeadline: "Wake up", BottomHeadline: "Brew better"})
	if err != nil {
		t.Fatalf("RenderHeroImage() error = %v", err)
	}

	expected := "Coffee: Wake up / Brew better"
	if result != expected {
		t.Errorf("RenderHeroImage() = %q, want %q", result, expected)
	}
}

func TestRenderInvalidTemplate(t *testing.T) {
	p := &Prompts{
		Carousel: CarouselPrompts{
			Slides: "{{.Invalid",
		},
	}

	if _, err := p.RenderSlides(SlidesParams{Topic: "test"}); err == nil {
		t.Error("expected error for invalid template")
	}
}
