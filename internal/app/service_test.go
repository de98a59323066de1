package app_test

import (
	"context"
	"errors"
	"testing"

	"vocab-mocktest-service/internal/app"
	"vocab-mocktest-service/internal/bank"
	"vocab-mocktest-service/internal/domain"
	"vocab-mocktest-service/internal/infra/memory"
	"vocab-mocktest-service/internal/state"
)

func strptr(s string) *string { return &s }

func serviceBank() domain.Bank {
	return domain.Bank{
		TestInfo: domain.TestInfo{Title: "RC", Duration: 600, TotalQuestions: 2},
		Questions: []domain.Question{
			{ID: 1, GroupID: 101, SharedContext: strptr("passage"), Prompt: "q1", Kind: domain.KindChoice, Choices: []string{"a", "b", "c"}, CorrectChoice: 1, Marks: domain.Marks{Positive: 3, Negative: 1}},
			{ID: 2, GroupID: 101, Prompt: "q2", Kind: domain.KindChoice, Choices: []string{"a", "b", "c"}, CorrectChoice: 2, Marks: domain.Marks{Positive: 3, Negative: 1}, Tags: []string{"tone"}},
		},
	}
}

func newTestService() (*app.TestService, *state.Store) {
	store := state.NewStore(memory.NewKVStore())
	loader := bank.NewStaticLoaderWith(map[string]domain.Bank{"rc": serviceBank()})
	return app.NewTestService(store, bank.NewRepository(loader, store)), store
}

func TestStartUnknownSetFails(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	_, err := service.Start(ctx, state.Scope{Profile: "p1", Source: "rc", SetID: 999})
	if !errors.Is(err, domain.ErrSetNotFound) {
		t.Fatalf("expected ErrSetNotFound, got %v", err)
	}
}

func TestSubmitAppendsHistoryOnce(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	scope := state.Scope{Profile: "p1", Source: "rc", SetID: 101}

	session, err := service.Start(ctx, scope)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer service.Close(scope)

	session.Visit(ctx, 0)
	session.SetAnswer(ctx, 0, domain.ChoiceAnswer(1))

	result, err := service.Submit(ctx, scope)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.CorrectCount != 1 || result.UnattemptedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Score != 3 || result.MaxScore != 6 {
		t.Fatalf("expected 3/6, got %v/%v", result.Score, result.MaxScore)
	}

	// Submitting again returns the same result without another record.
	again, err := service.Submit(ctx, scope)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if again.Score != result.Score {
		t.Fatalf("second submit changed the score")
	}
	attempts := service.Attempts(ctx, "p1", "rc", 101)
	if len(attempts) != 1 {
		t.Fatalf("expected exactly one history record, got %d", len(attempts))
	}
	if len(attempts[0].Questions) != 2 {
		t.Fatalf("record must snapshot every question")
	}
}

func TestSubmitWithoutSessionFails(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	_, err := service.Submit(ctx, state.Scope{Profile: "p1", Source: "rc", SetID: 101})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStartResumesAfterClose(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	scope := state.Scope{Profile: "p1", Source: "rc", SetID: 101}

	session, err := service.Start(ctx, scope)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	session.SetAnswer(ctx, 1, domain.ChoiceAnswer(0))
	service.Close(scope)

	resumed, err := service.Start(ctx, scope)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	defer service.Close(scope)

	if ans, ok := resumed.Answer(1); !ok || ans.Choice != 0 {
		t.Fatalf("expected answer to survive close/start, got %+v ok=%v", ans, ok)
	}
	if resumed.Status(1) != domain.StatusAnswered {
		t.Fatalf("expected status restored, got %s", resumed.Status(1))
	}
}

func TestResetAllowsRetake(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	scope := state.Scope{Profile: "p1", Source: "rc", SetID: 101}

	session, err := service.Start(ctx, scope)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer service.Close(scope)

	session.SetAnswer(ctx, 0, domain.ChoiceAnswer(1))
	if _, err := service.Submit(ctx, scope); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := service.Reset(ctx, scope); err != nil {
		t.Fatalf("reset: %v", err)
	}

	session.SetAnswer(ctx, 0, domain.ChoiceAnswer(1))
	session.SetAnswer(ctx, 1, domain.ChoiceAnswer(2))
	result, err := service.Submit(ctx, scope)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if result.Score != 6 {
		t.Fatalf("expected perfect retake, got %v", result.Score)
	}
	if got := len(service.Attempts(ctx, "p1", "rc", 101)); got != 2 {
		t.Fatalf("both sittings belong in history, got %d", got)
	}
}

func TestProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	scopeA := state.Scope{Profile: "p1", Source: "rc", SetID: 101}
	scopeB := state.Scope{Profile: "p2", Source: "rc", SetID: 101}

	sessionA, err := service.Start(ctx, scopeA)
	if err != nil {
		t.Fatalf("start a: %v", err)
	}
	defer service.Close(scopeA)
	sessionB, err := service.Start(ctx, scopeB)
	if err != nil {
		t.Fatalf("start b: %v", err)
	}
	defer service.Close(scopeB)

	sessionA.SetAnswer(ctx, 0, domain.ChoiceAnswer(1))
	if _, ok := sessionB.Answer(0); ok {
		t.Fatalf("profile p2 must not see p1's answers")
	}
}

func TestSetsListsGroups(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	groups, err := service.Sets(ctx, "rc")
	if err != nil {
		t.Fatalf("sets: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != 101 {
		t.Fatalf("expected single group 101, got %+v", groups)
	}
}

func TestSourceSummaryAggregatesHistory(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	scope := state.Scope{Profile: "p1", Source: "rc", SetID: 101}

	if summary := service.SourceSummary(ctx, "p1", "rc"); summary != nil {
		t.Fatalf("expected nil summary before any attempt, got %+v", summary)
	}

	session, err := service.Start(ctx, scope)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	session.Visit(ctx, 0)
	session.SetAnswer(ctx, 0, domain.ChoiceAnswer(1))
	if _, err := service.Submit(ctx, scope); err != nil {
		t.Fatalf("submit: %v", err)
	}
	service.Close(scope)

	summary := service.SourceSummary(ctx, "p1", "rc")
	if summary == nil {
		t.Fatal("expected a summary after one attempt")
	}
	if summary.Attempts != 1 || summary.BestScore.Score != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Accuracy != 50 {
		t.Fatalf("expected 50%% accuracy (1 of 2), got %d", summary.Accuracy)
	}

	// One tagged question is far below the minimum tag sample.
	if insights := service.TagInsights(ctx, "p1", "rc"); len(insights) != 0 {
		t.Fatalf("expected no tag insights from a single attempt, got %+v", insights)
	}
}

func TestDisplayNameRoundTrip(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if name := service.DisplayName(ctx, "p1"); name != "" {
		t.Fatalf("expected empty name before set, got %q", name)
	}
	service.SetDisplayName(ctx, "p1", "Asha")
	if name := service.DisplayName(ctx, "p1"); name != "Asha" {
		t.Fatalf("expected Asha, got %q", name)
	}
	if name := service.DisplayName(ctx, "p2"); name != "" {
		t.Fatalf("display name leaked across profiles: %q", name)
	}
}
