package records

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"carousel/internal/app/model"
)

func TestUpdateDocument(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	status := model.StatusCompleted
	slides := []model.Slide{model.NewSlide(model.KindHero, "a", "b", "", "trust_clarity")}

	tests := []struct {
		name     string
		update   model.GenerationUpdate
		wantKeys []string
	}{
		{name: "timestampOnly", update: model.GenerationUpdate{}, wantKeys: []string{"updated_at"}},
		{name: "status", update: model.GenerationUpdate{Status: &status}, wantKeys: []string{"updated_at", "status"}},
		{name: "slidesAndStatus", update: model.GenerationUpdate{Status: &status, Slides: slides}, wantKeys: []string{"updated_at", "status", "slides"}},
		{name: "editorSave", update: model.GenerationUpdate{Topic: model.Ptr("t"), Theme: model.Ptr("bold_energy")}, wantKeys: []string{"updated_at", "topic", "theme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := updateDocument(tt.update, now)
			set, ok := doc["$set"].(bson.M)
			if !ok {
				t.Fatalf("missing $set: %v", doc)
			}
			if len(set) != len(tt.wantKeys) {
				t.Errorf("$set = %v, want keys %v", set, tt.wantKeys)
			}
			for _, k := range tt.wantKeys {
				if _, ok := set[k]; !ok {
					t.Errorf("$set missing %q", k)
				}
			}
			if set["updated_at"] != now {
				t.Errorf("updated_at = %v, want %v", set["updated_at"], now)
			}
		})
	}
}

func TestSlidePatchDocument(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := slidePatchDocument(model.SlidePatch{
		BackgroundURL:    model.Ptr("https://cdn.example/a.png"),
		OverlayEnabled:   model.Ptr(true),
		ContainerOpacity: model.Ptr(0.6),
	}, now)

	set := doc["$set"].(bson.M)
	want := bson.M{
		"updated_at":                 now,
		"slides.$.background_url":    "https://cdn.example/a.png",
		"slides.$.text_bg_enabled":   true,
		"slides.$.container_opacity": 0.6,
	}
	if len(set) != len(want) {
		t.Fatalf("$set = %v, want %v", set, want)
	}
	for k, v := range want {
		if set[k] != v {
			t.Errorf("$set[%s] = %v, want %v", k, set[k], v)
		}
	}

	partial := slidePatchDocument(model.SlidePatch{BackgroundURL: model.Ptr("u")}, now)["$set"].(bson.M)
	if _, ok := partial["slides.$.text_bg_enabled"]; ok {
		t.Error("unset patch fields must not be written")
	}
}
