package ner

import (
	"reflect"
	"testing"

	"recipe-chatbot/internal/infrastructure/kb"
	"recipe-chatbot/internal/pkg/common"
)

func newTestExtractor() *Extractor {
	return NewExtractor(&kb.KnowledgeBase{
		Ingredients: kb.IngredientKB{
			"protein_hewani": {
				"ayam":   {"ayam kampung"},
				"ikan":   {"salmon", "tuna"},
				"udang":  {},
				"santan": {},
			},
			"sayuran": {
				"kangkung": {},
				"bayam":    {},
			},
		},
		Cooking: kb.CookingKB{
			"panas_kering": {
				"goreng": {"digoreng", "menggoreng"},
				"bakar":  {"dibakar"},
			},
			"panas_basah": {
				"tumis": {"ditumis", "tumis cepat"},
			},
		},
		Health: kb.HealthKB{
			Conditions: map[string]kb.ConditionEntry{
				"diabetes": {
					Name:        "diabetes",
					Synonyms:    []string{"kencing manis"},
					Avoid:       []string{"gula", "santan"},
					Recommended: []string{"sayur"},
				},
				"hipertensi": {
					Name:     "hipertensi",
					Synonyms: []string{"darah tinggi"},
					Avoid:    []string{"garam"},
				},
			},
			TastePrefs: map[string][]string{
				"pedas": {"cabai", "sambal"},
				"manis": {"gula"},
			},
		},
	})
}

func textOf(s string) common.NormalizedText {
	return common.NormalizedText{Original: s, Normalized: s}
}

func TestExtractIngredientsAndMethods(t *testing.T) {
	e := newTestExtractor()
	got := e.ExtractAll(textOf("mau masak ayam goreng"))

	if !reflect.DeepEqual(got.Ingredients.Main, []string{"ayam"}) {
		t.Errorf("Main = %v, want [ayam]", got.Ingredients.Main)
	}
	if !reflect.DeepEqual(got.CookingMethods, []string{"goreng"}) {
		t.Errorf("CookingMethods = %v, want [goreng]", got.CookingMethods)
	}
	if len(got.Ingredients.Avoid) != 0 {
		t.Errorf("Avoid = %v, want empty", got.Ingredients.Avoid)
	}
}

func TestExtractMultiWordSynonym(t *testing.T) {
	e := newTestExtractor()
	got := e.ExtractAll(textOf("resep ayam kampung dibakar"))

	if !common.ContainsString(got.Ingredients.Main, "ayam kampung") {
		t.Errorf("Main = %v, want ayam kampung captured as bigram", got.Ingredients.Main)
	}
	if !common.ContainsString(got.CookingMethods, "dibakar") {
		t.Errorf("CookingMethods = %v, want dibakar", got.CookingMethods)
	}
}

func TestMainAndAvoidDisjoint(t *testing.T) {
	e := newTestExtractor()
	got := e.ExtractAll(textOf("resep ikan tanpa udang"))

	if !reflect.DeepEqual(got.Ingredients.Main, []string{"ikan"}) {
		t.Errorf("Main = %v, want [ikan]", got.Ingredients.Main)
	}
	if !reflect.DeepEqual(got.Ingredients.Avoid, []string{"udang"}) {
		t.Errorf("Avoid = %v, want [udang]", got.Ingredients.Avoid)
	}
	for _, m := range got.Ingredients.Main {
		if common.ContainsString(got.Ingredients.Avoid, m) {
			t.Errorf("main %q also present in avoid %v", m, got.Ingredients.Avoid)
		}
	}
}

func TestAvoidPatternIgnoresNonIngredients(t *testing.T) {
	e := newTestExtractor()
	got := e.ExtractAll(textOf("jangan lama ya masak ayam"))

	if len(got.Ingredients.Avoid) != 0 {
		t.Errorf("Avoid = %v, want empty (lama is not an ingredient)", got.Ingredients.Avoid)
	}
	if !common.ContainsString(got.Ingredients.Main, "ayam") {
		t.Errorf("Main = %v, want ayam", got.Ingredients.Main)
	}
}

func TestHealthConditionBySynonymMergesAvoid(t *testing.T) {
	e := newTestExtractor()
	got := e.ExtractAll(textOf("aku kena kencing manis mau masak ayam"))

	if len(got.HealthConditions) != 1 || got.HealthConditions[0].Name != "diabetes" {
		t.Fatalf("HealthConditions = %v, want diabetes", got.HealthConditions)
	}
	if !common.ContainsString(got.Ingredients.Avoid, "gula") ||
		!common.ContainsString(got.Ingredients.Avoid, "santan") {
		t.Errorf("Avoid = %v, want gula and santan merged in", got.Ingredients.Avoid)
	}
}

func TestMultipleConditionsSortedAndDeduped(t *testing.T) {
	e := newTestExtractor()
	got := e.ExtractAll(textOf("punya diabetes dan darah tinggi"))

	names := got.ConditionNames()
	if !reflect.DeepEqual(names, []string{"diabetes", "hipertensi"}) {
		t.Errorf("ConditionNames = %v", names)
	}
}

func TestNegatedPedasRemoved(t *testing.T) {
	e := newTestExtractor()

	got := e.ExtractAll(textOf("masak ayam yang tidak pedas"))
	if common.ContainsString(got.TastePreferences, "pedas") {
		t.Errorf("TastePreferences = %v, pedas should be removed", got.TastePreferences)
	}

	positive := e.ExtractAll(textOf("mau yang pedas pakai sambal"))
	if !common.ContainsString(positive.TastePreferences, "pedas") {
		t.Errorf("TastePreferences = %v, want pedas", positive.TastePreferences)
	}
}

func TestTimeConstraintPriority(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		input string
		want  string
	}{
		{"masak ayam 30 menit", "30 minutes"},
		{"yang cepat aja 15 menit", "15 minutes"},
		{"yang cepat dan gampang", "quick"},
		{"resep simpel", "simple"},
		{"yang mudah dong", "easy"},
		{"masak ayam", ""},
	}
	for _, tt := range tests {
		got := e.ExtractAll(textOf(tt.input))
		if got.TimeConstraint != tt.want {
			t.Errorf("TimeConstraint(%q) = %q, want %q", tt.input, got.TimeConstraint, tt.want)
		}
	}
}

func TestUnknownWordsIgnored(t *testing.T) {
	e := newTestExtractor()
	got := e.ExtractAll(textOf("xyzzy foobar quux"))
	if !got.IsEmpty() {
		t.Errorf("bundle = %+v, want empty", got)
	}
}
