package kb

import (
	"os"
	"path/filepath"
	"testing"

	"recipe-chatbot/internal/pkg/common"
)

func TestMain(m *testing.M) {
	if err := common.InitLogger("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadAllFiles(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Ingredients: writeFile(t, dir, "ingredients.json", `{
			"protein_hewani": {"ayam": ["ayam kampung", "ayam goreng"], "ikan": ["salmon", "tuna"]}
		}`),
		CookingMethods: writeFile(t, dir, "cooking.json", `{
			"panas_kering": {"goreng": ["menggoreng", "digoreng"]}
		}`),
		HealthConditions: writeFile(t, dir, "health.json", `{
			"kondisi_kesehatan": {
				"diabetes": {"nama": "diabetes", "sinonim": ["kencing manis"], "hindari": ["gula"], "anjuran": ["sayur"]}
			},
			"preferensi_rasa": {"pedas": ["cabai", "sambal"]}
		}`),
		Normalization: writeFile(t, dir, "norm.json", `{
			"normalisasi_informal": {"gmn": "gimana"},
			"typo_umum": {"ayamm": "ayam"}
		}`),
	}

	kb := Load(paths)

	if got := kb.Ingredients["protein_hewani"]["ayam"]; len(got) != 2 {
		t.Errorf("ayam synonyms = %v, want 2 entries", got)
	}
	if got := kb.Cooking["panas_kering"]["goreng"]; len(got) != 2 {
		t.Errorf("goreng synonyms = %v, want 2 entries", got)
	}
	cond, ok := kb.Health.Conditions["diabetes"]
	if !ok {
		t.Fatal("diabetes condition missing")
	}
	if cond.Name != "diabetes" || len(cond.Avoid) != 1 {
		t.Errorf("diabetes entry = %+v", cond)
	}
	if got := kb.Health.TastePrefs["pedas"]; len(got) != 2 {
		t.Errorf("pedas taste prefs = %v", got)
	}
	if kb.Normalization.Informal["gmn"] != "gimana" {
		t.Errorf("informal map = %v", kb.Normalization.Informal)
	}
	if kb.Normalization.Typos["ayamm"] != "ayam" {
		t.Errorf("typo map = %v", kb.Normalization.Typos)
	}
}

func TestLoadSeedFiles(t *testing.T) {
	paths := Paths{
		Ingredients:      "../../../data/knowledge_base_ingredients.json",
		CookingMethods:   "../../../data/knowledge_base_cooking_methods.json",
		HealthConditions: "../../../data/knowledge_base_health_conditions.json",
		Normalization:    "../../../data/knowledge_base_normalization.json",
	}

	kb := Load(paths)

	if _, ok := kb.Ingredients["protein_hewani"]["ayam"]; !ok {
		t.Error("seed ingredients missing canonical ayam under protein_hewani")
	}
	for category, entries := range kb.Ingredients {
		for _, grouping := range []string{"unggas", "daun", "pokok", "dasar"} {
			if _, ok := entries[grouping]; ok {
				t.Errorf("category %s has grouping key %q, second level must be canonical names", category, grouping)
			}
		}
	}
	if _, ok := kb.Cooking["panas_kering"]["goreng"]; !ok {
		t.Error("seed cooking methods missing canonical goreng under panas_kering")
	}
	cond, ok := kb.Health.Conditions["diabetes"]
	if !ok {
		t.Fatal("seed health conditions missing diabetes")
	}
	if len(cond.Avoid) == 0 {
		t.Error("diabetes entry has no avoid list")
	}
	if len(kb.Normalization.Informal) == 0 || len(kb.Normalization.Typos) == 0 {
		t.Error("seed normalization tables are empty")
	}
}

func TestLoadMissingFilesDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Ingredients:      filepath.Join(dir, "missing1.json"),
		CookingMethods:   filepath.Join(dir, "missing2.json"),
		HealthConditions: filepath.Join(dir, "missing3.json"),
		Normalization:    filepath.Join(dir, "missing4.json"),
	}

	kb := Load(paths)

	if kb.Ingredients == nil || len(kb.Ingredients) != 0 {
		t.Errorf("ingredients = %v, want empty map", kb.Ingredients)
	}
	if kb.Cooking == nil || len(kb.Cooking) != 0 {
		t.Errorf("cooking = %v, want empty map", kb.Cooking)
	}
	if kb.Health.Conditions == nil || kb.Health.TastePrefs == nil {
		t.Error("health maps should be non-nil")
	}
	if kb.Normalization.Informal == nil || kb.Normalization.Typos == nil {
		t.Error("normalization maps should be non-nil")
	}
}

func TestLoadMalformedFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Ingredients:      writeFile(t, dir, "bad.json", `{not json`),
		CookingMethods:   filepath.Join(dir, "missing.json"),
		HealthConditions: filepath.Join(dir, "missing.json"),
		Normalization:    filepath.Join(dir, "missing.json"),
	}

	kb := Load(paths)
	if len(kb.Ingredients) != 0 {
		t.Errorf("ingredients = %v, want empty", kb.Ingredients)
	}
}
