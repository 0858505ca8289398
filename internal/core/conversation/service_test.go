package conversation

import (
	"context"
	"os"
	"strings"
	"testing"

	"recipe-chatbot/internal/core/matcher"
	"recipe-chatbot/internal/pkg/common"
)

func TestMain(m *testing.M) {
	if err := common.InitLogger("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeDecider 依序回傳預先排好的決策
type fakeDecider struct {
	results []common.DecisionResult
	calls   int
}

func (f *fakeDecider) Decide(ctx context.Context, rawText string) common.DecisionResult {
	if f.calls >= len(f.results) {
		return common.DecisionResult{Status: common.StatusFallback, Action: common.ActionRejectInput}
	}
	r := f.results[f.calls]
	f.calls++
	return r
}

// fakeRecipeStore 記憶體食譜儲存，記錄寫入呼叫
type fakeRecipeStore struct {
	corpus      []common.Recipe
	queryCalls  int
	matchCalls  int
	popular     []common.Recipe
}

func (f *fakeRecipeStore) Corpus(ctx context.Context) ([]common.Recipe, error) {
	return f.corpus, nil
}

func (f *fakeRecipeStore) GetRecipe(ctx context.Context, id int) (common.Recipe, error) {
	for _, r := range f.corpus {
		if r.ID == id {
			return r, nil
		}
	}
	return common.Recipe{}, common.ErrRecipeNotFound
}

func (f *fakeRecipeStore) LogQuery(ctx context.Context, userID, text, intent string, confidence float64) error {
	f.queryCalls++
	return nil
}

func (f *fakeRecipeStore) LogMatches(ctx context.Context, userID string, results []common.MatchResult) error {
	f.matchCalls++
	return nil
}

func (f *fakeRecipeStore) PopularRecipes(ctx context.Context, limit int) ([]common.Recipe, error) {
	return f.popular, nil
}

func (f *fakeRecipeStore) Close() error { return nil }

func serviceCorpus() []common.Recipe {
	return []common.Recipe{
		{
			ID:              1,
			Name:            "Ayam Goreng Kremes",
			MainIngredients: []string{"ayam"},
			CookingMethods:  []string{"goreng"},
			CookTimeMinutes: 30,
			Difficulty:      common.DifficultyEasy,
			Popular:         true,
		},
		{
			ID:              2,
			Name:            "Sayur Asem",
			MainIngredients: []string{"sayur"},
			CookingMethods:  []string{"rebus"},
			CookTimeMinutes: 40,
			Difficulty:      common.DifficultyEasy,
		},
	}
}

func searchDecision(main ...string) common.DecisionResult {
	return common.DecisionResult{
		Status:     common.StatusOK,
		Intent:     "cari_resep",
		Confidence: 0.9,
		Entities: common.EntityBundle{
			Ingredients: common.IngredientSet{Main: main},
		},
		Action: common.ActionMatchRecipe,
	}
}

func newTestService(decider Decider, store *fakeRecipeStore) *Service {
	return NewService(NewStore(10), decider, matcher.NewMatcher(0), nil, store, 5)
}

func TestProcessTurnSearchReturnsRecipes(t *testing.T) {
	store := &fakeRecipeStore{corpus: serviceCorpus()}
	svc := newTestService(&fakeDecider{results: []common.DecisionResult{searchDecision("ayam")}}, store)

	resp, err := svc.ProcessTurn(context.Background(), "u1", "mau masak ayam")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Recipe.ID != 1 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if !strings.Contains(resp.Message, "Ayam Goreng Kremes") {
		t.Errorf("message = %q", resp.Message)
	}
	if store.queryCalls != 1 || store.matchCalls != 1 {
		t.Errorf("log calls = %d/%d, want 1/1", store.queryCalls, store.matchCalls)
	}

	history := svc.History("u1")
	if len(history) != 1 || history[0].UserText != "mau masak ayam" {
		t.Errorf("history = %+v", history)
	}
}

func TestProcessTurnClarificationFlow(t *testing.T) {
	store := &fakeRecipeStore{corpus: serviceCorpus()}
	decider := &fakeDecider{results: []common.DecisionResult{
		{
			Status:     common.StatusClarification,
			Intent:     "cari_resep",
			Confidence: 0.8,
			Action:     common.ActionAskClarification,
			Message:    "Boleh kasih tahu bahan utamanya?",
		},
	}}
	svc := newTestService(decider, store)
	ctx := context.Background()

	first, err := svc.ProcessTurn(ctx, "u1", "mau makan yang enak")
	if err != nil {
		t.Fatal(err)
	}
	if first.Decision.Action != common.ActionAskClarification {
		t.Fatalf("first turn = %+v", first.Decision)
	}

	// 第二句直接被當成澄清回答，不再經過決策引擎
	second, err := svc.ProcessTurn(ctx, "u1", "pakai ayam aja")
	if err != nil {
		t.Fatal(err)
	}
	if decider.calls != 1 {
		t.Errorf("decider calls = %d, want clarification answer to bypass it", decider.calls)
	}
	if second.Decision.Confidence != clarificationConfidence {
		t.Errorf("confidence = %v", second.Decision.Confidence)
	}
	if len(second.Results) == 0 || second.Results[0].Recipe.ID != 1 {
		t.Errorf("results = %+v", second.Results)
	}
}

func TestProcessTurnClarificationRawAnswer(t *testing.T) {
	store := &fakeRecipeStore{corpus: serviceCorpus()}
	decider := &fakeDecider{results: []common.DecisionResult{
		{Status: common.StatusClarification, Action: common.ActionAskClarification, Message: "bahan apa?"},
	}}
	svc := newTestService(decider, store)
	ctx := context.Background()

	if _, err := svc.ProcessTurn(ctx, "u1", "laper"); err != nil {
		t.Fatal(err)
	}
	resp, err := svc.ProcessTurn(ctx, "u1", "Sayur")
	if err != nil {
		t.Fatal(err)
	}
	got := resp.Decision.Entities.Ingredients.Main
	if len(got) != 1 || got[0] != "sayur" {
		t.Errorf("clarification answer = %v, want [sayur]", got)
	}
}

func TestProcessTurnAccumulatesAcrossTurns(t *testing.T) {
	store := &fakeRecipeStore{corpus: serviceCorpus()}
	decider := &fakeDecider{results: []common.DecisionResult{
		searchDecision("ayam"),
		func() common.DecisionResult {
			d := searchDecision()
			d.Entities.CookingMethods = []string{"goreng"}
			return d
		}(),
	}}
	svc := newTestService(decider, store)
	ctx := context.Background()

	if _, err := svc.ProcessTurn(ctx, "u1", "mau ayam"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ProcessTurn(ctx, "u1", "yang digoreng"); err != nil {
		t.Fatal(err)
	}

	merged := svc.contexts.GetOrCreate("u1").Collected()
	if !common.ContainsString(merged.Ingredients.Main, "ayam") {
		t.Errorf("merged main = %v", merged.Ingredients.Main)
	}
	if !common.ContainsString(merged.CookingMethods, "goreng") {
		t.Errorf("merged methods = %v", merged.CookingMethods)
	}
}

func TestProcessTurnRejectPassesMessageThrough(t *testing.T) {
	store := &fakeRecipeStore{corpus: serviceCorpus()}
	decider := &fakeDecider{results: []common.DecisionResult{
		{Status: common.StatusFallback, Action: common.ActionRejectInput, Message: "Maaf, aku kurang mengerti"},
	}}
	svc := newTestService(decider, store)

	resp, err := svc.ProcessTurn(context.Background(), "u1", "zxqwkj")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Message != "Maaf, aku kurang mengerti" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %+v", resp.Results)
	}
	if store.queryCalls != 0 {
		t.Errorf("rejected input should not be logged as query")
	}
}

func TestClearResetsConversation(t *testing.T) {
	store := &fakeRecipeStore{corpus: serviceCorpus()}
	svc := newTestService(&fakeDecider{results: []common.DecisionResult{searchDecision("ayam")}}, store)
	ctx := context.Background()

	if _, err := svc.ProcessTurn(ctx, "u1", "mau ayam"); err != nil {
		t.Fatal(err)
	}
	msg := svc.Clear("u1")
	if msg == "" {
		t.Error("clear should return a confirmation message")
	}
	if got := svc.contexts.GetOrCreate("u1").Collected(); !got.IsEmpty() {
		t.Errorf("entities after clear = %+v", got)
	}
	if got := len(svc.History("u1")); got != 1 {
		t.Errorf("history length after clear = %d, want turn record kept", got)
	}
}
