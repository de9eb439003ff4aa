package repository

import (
	"testing"

	"github.com/google/uuid"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter *VectorFilter
		want   []string
	}{
		{"nil", nil, nil},
		{"empty", &VectorFilter{}, nil},
		{"category", &VectorFilter{Category: "Dinner"}, []string{"categories"}},
		{"both", &VectorFilter{Category: "Dinner", Dietary: "Vegan"}, []string{"categories", "dietary"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := buildFilter(tt.filter)
			if tt.want == nil {
				if f != nil {
					t.Fatalf("buildFilter() = %v, want nil", f)
				}
				return
			}
			if len(f.GetMust()) != len(tt.want) {
				t.Fatalf("got %d conditions, want %d", len(f.GetMust()), len(tt.want))
			}
			for i, key := range tt.want {
				if got := f.GetMust()[i].GetField().GetKey(); got != key {
					t.Errorf("condition %d key = %q, want %q", i, got, key)
				}
			}
		})
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	in := &RecipePayload{
		RecipeID:   uuid.NewString(),
		Title:      "Pasta",
		SiteName:   "Example Kitchen",
		Categories: []string{"Dinner"},
		Dietary:    []string{"Vegetarian", "Gluten-Free"},
	}
	out := parsePayload(in.values())
	if out.RecipeID != in.RecipeID || out.Title != in.Title || out.SiteName != in.SiteName {
		t.Errorf("parsePayload() = %+v", out)
	}
	if len(out.Dietary) != 2 || out.Dietary[1] != "Gluten-Free" || len(out.Categories) != 1 {
		t.Errorf("lists lost: %+v", out)
	}

	if empty := parsePayload(nil); empty.RecipeID != "" || empty.Categories != nil {
		t.Errorf("parsePayload(nil) = %+v", empty)
	}
}

func TestPointIDRejectsNonUUID(t *testing.T) {
	if _, err := pointID("not-a-uuid"); err == nil {
		t.Error("pointID() should reject non-UUID IDs")
	}
}
