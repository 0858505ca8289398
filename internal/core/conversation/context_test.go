package conversation

import (
	"reflect"
	"testing"

	"recipe-chatbot/internal/pkg/common"
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore(10)

	a := s.GetOrCreate("user-1")
	b := s.GetOrCreate("user-1")
	if a != b {
		t.Error("same user should get the same context")
	}
	if collected := a.Collected(); !collected.IsEmpty() {
		t.Errorf("new context not empty: %+v", collected)
	}

	other := s.GetOrCreate("user-2")
	if other == a {
		t.Error("different users must not share context")
	}
}

func TestMergeExtendsAndDedupes(t *testing.T) {
	s := NewStore(10)
	c := s.GetOrCreate("u")

	c.Merge(common.EntityBundle{
		Ingredients:      common.IngredientSet{Main: []string{"ayam"}},
		CookingMethods:   []string{"goreng"},
		TastePreferences: []string{"pedas"},
		TimeConstraint:   "quick",
	})
	c.Merge(common.EntityBundle{
		Ingredients:      common.IngredientSet{Main: []string{"ayam", "tahu"}, Avoid: []string{"udang"}},
		CookingMethods:   []string{"goreng", "bakar"},
		TimeConstraint:   "30 minutes",
		HealthConditions: []common.HealthCondition{{Name: "diabetes", Avoid: []string{"gula"}}},
	})

	got := c.Collected()
	if !reflect.DeepEqual(got.Ingredients.Main, []string{"ayam", "tahu"}) {
		t.Errorf("Main = %v", got.Ingredients.Main)
	}
	if !reflect.DeepEqual(got.Ingredients.Avoid, []string{"udang"}) {
		t.Errorf("Avoid = %v", got.Ingredients.Avoid)
	}
	if !reflect.DeepEqual(got.CookingMethods, []string{"goreng", "bakar"}) {
		t.Errorf("CookingMethods = %v", got.CookingMethods)
	}
	if got.TimeConstraint != "30 minutes" {
		t.Errorf("TimeConstraint = %q, want last-write-wins", got.TimeConstraint)
	}
	if len(got.HealthConditions) != 1 || got.HealthConditions[0].Name != "diabetes" {
		t.Errorf("HealthConditions = %v", got.HealthConditions)
	}
}

func TestMergeEmptyTimeConstraintKeepsOld(t *testing.T) {
	s := NewStore(10)
	c := s.GetOrCreate("u")

	c.Merge(common.EntityBundle{TimeConstraint: "quick"})
	c.Merge(common.EntityBundle{Ingredients: common.IngredientSet{Main: []string{"ayam"}}})

	if got := c.Collected().TimeConstraint; got != "quick" {
		t.Errorf("TimeConstraint = %q, want quick preserved", got)
	}
}

// 合併只增不減：先說 ayam 再說 tanpa ayam 時，main 仍保留 ayam。
// 這是目前刻意保留的行為，改動前先改這個測試。
func TestMergeKeepsContradictoryMainIngredient(t *testing.T) {
	s := NewStore(10)
	c := s.GetOrCreate("u")

	c.Merge(common.EntityBundle{Ingredients: common.IngredientSet{Main: []string{"ayam"}}})
	c.Merge(common.EntityBundle{Ingredients: common.IngredientSet{Avoid: []string{"ayam"}}})

	got := c.Collected()
	if !common.ContainsString(got.Ingredients.Main, "ayam") {
		t.Errorf("Main = %v, merge must never prune earlier ingredients", got.Ingredients.Main)
	}
	if !common.ContainsString(got.Ingredients.Avoid, "ayam") {
		t.Errorf("Avoid = %v", got.Ingredients.Avoid)
	}
}

// 清除只重設已收集實體與澄清狀態，回合記錄與最近結果留給後續對話參考。
func TestClearKeepsHistoryAndLastRecipes(t *testing.T) {
	s := NewStore(10)
	c := s.GetOrCreate("u")

	c.Merge(common.EntityBundle{Ingredients: common.IngredientSet{Main: []string{"ayam"}}})
	c.SetPending(Clarification{Kind: ClarifyIngredient, OriginalMessage: "mau masak"})
	c.SetLastRecipes([]common.MatchResult{{Recipe: common.Recipe{ID: 1}}})
	c.AppendTurn("halo", "hai", common.DecisionResult{})

	c.Clear()

	if !c.Collected().IsEmpty() {
		t.Errorf("entities after clear: %+v", c.Collected())
	}
	if _, pending := c.Pending(); pending {
		t.Error("pending clarification survived clear")
	}
	if got := len(c.History()); got != 1 {
		t.Errorf("history length after clear = %d, want 1", got)
	}
	if got := len(c.LastRecipes()); got != 1 {
		t.Errorf("last recipes length after clear = %d, want 1", got)
	}

	// 清除後可以重新累積
	c.Merge(common.EntityBundle{Ingredients: common.IngredientSet{Main: []string{"ikan"}}})
	if got := c.Collected().Ingredients.Main; !reflect.DeepEqual(got, []string{"ikan"}) {
		t.Errorf("Main after clear+merge = %v", got)
	}
}

func TestPendingClarificationRecord(t *testing.T) {
	s := NewStore(10)
	c := s.GetOrCreate("u")

	if _, pending := c.Pending(); pending {
		t.Error("new context should not be pending")
	}

	c.SetPending(Clarification{Kind: ClarifyIngredient, OriginalMessage: "mau masak yang enak"})
	p, pending := c.Pending()
	if !pending {
		t.Fatal("pending clarification not recorded")
	}
	if p.Kind != ClarifyIngredient || p.OriginalMessage != "mau masak yang enak" {
		t.Errorf("pending = %+v", p)
	}

	c.ClearPending()
	if _, pending := c.Pending(); pending {
		t.Error("pending clarification survived ClearPending")
	}
}

func TestAppendTurnBounded(t *testing.T) {
	s := NewStore(3)
	c := s.GetOrCreate("u")

	for i := 0; i < 5; i++ {
		c.AppendTurn("pesan", "balasan", common.DecisionResult{})
	}
	if got := len(c.History()); got != 3 {
		t.Errorf("history size = %d, want 3", got)
	}
}
