package target_test

import (
	"reflect"
	"testing"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

func sampleTree() []target.CategoryNode {
	return []target.CategoryNode{
		{
			ID:   735,
			Name: "Computadores",
			Link: "computadores",
			Children: []target.CategoryNode{
				{ID: 421, Name: "Notebooks", Link: "notebooks"},
				{
					ID:   422,
					Name: "Desktops",
					Link: "desktops",
					Children: []target.CategoryNode{
						{ID: 501, Name: "Gamer", Link: "desktops-gamer"},
					},
				},
			},
		},
		{ID: 0, Name: "Separator", Link: "ignored"},
		{ID: 800, Name: "Sin link", Link: "  "},
		{ID: 900, Name: "Duplicado", Link: "notebooks"},
	}
}

func TestFromCategoryTree(t *testing.T) {
	cfg := config.CatalogConfig{CategoryBaseURL: "https://www.pcfactory.cl/"}
	got := target.FromCategoryTree(sampleTree(), cfg)

	wantIDs := []string{"735", "421", "422", "501"}
	gotIDs := make([]string, 0, len(got))
	for _, tg := range got {
		gotIDs = append(gotIDs, tg.ID)
	}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Errorf("Expected %v but got %v", wantIDs, gotIDs)
	}

	if got[1].URL != "https://www.pcfactory.cl/notebooks" {
		t.Errorf("Expected joined URL but got %q", got[1].URL)
	}
	if got[1].Params["link"] != "notebooks" {
		t.Errorf("Expected link param but got %q", got[1].Params["link"])
	}
}

func TestFromCategoryTreeIdempotent(t *testing.T) {
	cfg := config.CatalogConfig{CategoryBaseURL: "https://www.pcfactory.cl"}
	first := target.FromCategoryTree(sampleTree(), cfg)
	second := target.FromCategoryTree(sampleTree(), cfg)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical output across calls but got %v and %v", first, second)
	}
}

func TestFromCategoryTreeEmpty(t *testing.T) {
	got := target.FromCategoryTree(nil, config.CatalogConfig{})
	if len(got) != 0 {
		t.Errorf("Expected no targets for an empty tree but got %d", len(got))
	}
}
