package analytics

import (
	"strings"
	"testing"

	"vocab-mocktest-service/internal/domain"
)

func ans(choice int) *domain.Answer {
	a := domain.ChoiceAnswer(choice)
	return &a
}

// attempt builds a record where question i is correct when correct[i] is
// true, unattempted when times[i] < 0 is not used; attempted-ness comes from
// the answered slice.
func attempt(times []float64, answered, correct []bool) domain.AttemptRecord {
	rec := domain.AttemptRecord{PerQuestionTimeSeconds: map[int]float64{}}
	for i := range times {
		rec.PerQuestionTimeSeconds[i] = times[i]
		snap := domain.QuestionSnapshot{ID: i + 1}
		if answered[i] {
			snap.UserAnswer = ans(0)
			snap.Correct = correct[i]
			if correct[i] {
				rec.CorrectCount++
			} else {
				rec.IncorrectCount++
			}
		} else {
			rec.UnattemptedCount++
		}
		rec.Questions = append(rec.Questions, snap)
		rec.TotalTimeSeconds += int(times[i])
	}
	return rec
}

func TestSummarizeAttemptTimings(t *testing.T) {
	rec := attempt(
		[]float64{10, 40, 20, 30},
		[]bool{true, true, true, false},
		[]bool{true, false, true, false},
	)

	summary := SummarizeAttempt(rec)

	if summary.TotalTime != 100 {
		t.Fatalf("expected total 100, got %v", summary.TotalTime)
	}
	if summary.AvgTime != 25 {
		t.Fatalf("expected avg 25, got %v", summary.AvgTime)
	}
	// Sorted copy [10 20 30 40]: median index (4-1)/2=1, p75 index (4-1)*75/100=2.
	if summary.MedianTime != 20 {
		t.Fatalf("expected median 20, got %v", summary.MedianTime)
	}
	if summary.P75Time != 30 {
		t.Fatalf("expected p75 30, got %v", summary.P75Time)
	}
	if summary.SlowestIndex != 1 || summary.FastestIndex != 0 {
		t.Fatalf("expected slowest=1 fastest=0, got %d/%d", summary.SlowestIndex, summary.FastestIndex)
	}
	// 2 correct of 4 questions.
	if summary.Accuracy != 50 {
		t.Fatalf("expected 50%% accuracy, got %d", summary.Accuracy)
	}
	if summary.AvgCorrectTime != 15 || summary.AvgIncorrectTime != 40 {
		t.Fatalf("expected correct=15 incorrect=40, got %v/%v", summary.AvgCorrectTime, summary.AvgIncorrectTime)
	}
}

func TestSummarizeAttemptDoesNotMutateInput(t *testing.T) {
	rec := attempt(
		[]float64{30, 10, 20},
		[]bool{true, true, true},
		[]bool{true, true, true},
	)

	summary := SummarizeAttempt(rec)

	if summary.Times[0] != 30 || summary.Times[1] != 10 || summary.Times[2] != 20 {
		t.Fatalf("times must keep positional order, got %v", summary.Times)
	}
}

func TestSummarizeAttemptZeroTimeFallback(t *testing.T) {
	// An untouched attempt has only zero times; fastest/slowest must still
	// resolve instead of failing on an empty candidate list.
	rec := attempt(
		[]float64{0, 0},
		[]bool{false, false},
		[]bool{false, false},
	)
	summary := SummarizeAttempt(rec)
	if summary.SlowestIndex != 0 || summary.FastestIndex != 0 {
		t.Fatalf("expected fallback indices 0/0, got %d/%d", summary.SlowestIndex, summary.FastestIndex)
	}

	// With one real time, zero entries are excluded.
	rec = attempt(
		[]float64{0, 12},
		[]bool{false, true},
		[]bool{false, true},
	)
	summary = SummarizeAttempt(rec)
	if summary.FastestIndex != 1 || summary.SlowestIndex != 1 {
		t.Fatalf("zero times must be excluded, got fastest=%d slowest=%d", summary.FastestIndex, summary.SlowestIndex)
	}
}

func TestBuildInsightsCapAndOrder(t *testing.T) {
	rec := attempt(
		[]float64{5, 60, 2, 3},
		[]bool{true, false, true, false},
		[]bool{true, false, false, false},
	)
	summary := SummarizeAttempt(rec)

	insights := BuildInsights(rec, summary)
	if len(insights) == 0 || len(insights) > 4 {
		t.Fatalf("expected 1..4 insights, got %d", len(insights))
	}
	if !strings.Contains(insights[0], "question 2") {
		t.Fatalf("first insight must name the slowest question, got %q", insights[0])
	}
}

func TestBuildInsightsRushedAndWrong(t *testing.T) {
	// Incorrect answers averaging well under 70% of correct time.
	rec := attempt(
		[]float64{50, 50, 5, 6},
		[]bool{true, true, true, true},
		[]bool{true, true, false, false},
	)
	summary := SummarizeAttempt(rec)

	var sawRushed, sawSlowDown bool
	for _, insight := range BuildInsights(rec, summary) {
		if strings.Contains(insight, "rushed and wrong") {
			sawRushed = true
		}
		if strings.Contains(insight, "slow down") {
			sawSlowDown = true
		}
	}
	if !sawRushed {
		t.Fatalf("expected a rushed-and-wrong insight")
	}
	if !sawSlowDown {
		t.Fatalf("expected a rushing comparison insight")
	}
}

func TestBuildInsightsGiveUpSooner(t *testing.T) {
	// Incorrect answers averaging over 130% of correct time.
	rec := attempt(
		[]float64{10, 10, 40, 45},
		[]bool{true, true, true, true},
		[]bool{true, true, false, false},
	)
	summary := SummarizeAttempt(rec)

	found := false
	for _, insight := range BuildInsights(rec, summary) {
		if strings.Contains(insight, "giving up sooner") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a give-up-sooner insight")
	}
}

func TestSummarizeTypeAttempts(t *testing.T) {
	if got := SummarizeTypeAttempts(nil); got != nil {
		t.Fatalf("empty history must summarize to nil, got %+v", got)
	}

	one := domain.AttemptRecord{
		Score:            18,
		MaxScore:         24,
		CorrectCount:     6,
		TotalTimeSeconds: 300,
		Questions:        make([]domain.QuestionSnapshot, 6),
	}
	summary := SummarizeTypeAttempts([]domain.AttemptRecord{one})
	if summary == nil {
		t.Fatalf("expected a summary")
	}
	if summary.Attempts != 1 || summary.AvgScore != 18 {
		t.Fatalf("expected 1 attempt avg 18, got %+v", summary)
	}
	if summary.Accuracy != 100 {
		t.Fatalf("expected 100%% accuracy, got %d", summary.Accuracy)
	}
	if summary.AvgTimePerQuestion != 50 {
		t.Fatalf("expected 50s per question, got %v", summary.AvgTimePerQuestion)
	}
}

func TestSummarizeTypeAttemptsBestScoreTies(t *testing.T) {
	first := domain.AttemptRecord{SetID: 1, Score: 10, Questions: make([]domain.QuestionSnapshot, 2)}
	tied := domain.AttemptRecord{SetID: 2, Score: 10, Questions: make([]domain.QuestionSnapshot, 2)}
	lower := domain.AttemptRecord{SetID: 3, Score: 4, Questions: make([]domain.QuestionSnapshot, 2)}

	summary := SummarizeTypeAttempts([]domain.AttemptRecord{first, tied, lower})
	if summary.BestScore.SetID != 1 {
		t.Fatalf("ties must keep the first encountered, got set %d", summary.BestScore.SetID)
	}
}

func TestTagInsightsMinimumSample(t *testing.T) {
	tagged := func(tag string, correct bool) domain.QuestionSnapshot {
		snap := domain.QuestionSnapshot{Tags: []string{tag}, Correct: correct}
		snap.UserAnswer = ans(0)
		return snap
	}

	var attempts []domain.AttemptRecord
	// "tone" appears 6 times (3 correct), "summary" only 4 times.
	for i := 0; i < 2; i++ {
		attempts = append(attempts, domain.AttemptRecord{
			Questions: []domain.QuestionSnapshot{
				tagged("tone", true),
				tagged("tone", i == 0),
				tagged("tone", false),
				tagged("summary", true),
				tagged("summary", true),
			},
		})
	}

	insights := TagInsights(attempts)
	if len(insights) != 1 {
		t.Fatalf("expected only tags with >=5 samples, got %+v", insights)
	}
	if insights[0].Tag != "tone" || insights[0].Attempted != 6 {
		t.Fatalf("unexpected insight %+v", insights[0])
	}
	if insights[0].Accuracy != 50 {
		t.Fatalf("expected 50%% (3/6), got %d", insights[0].Accuracy)
	}
}

func TestTagInsightsSortWorstFirst(t *testing.T) {
	snap := func(tag string, correct bool) domain.QuestionSnapshot {
		return domain.QuestionSnapshot{Tags: []string{tag}, Correct: correct, UserAnswer: ans(0)}
	}
	var questions []domain.QuestionSnapshot
	for i := 0; i < 5; i++ {
		questions = append(questions, snap("strong", true))
		questions = append(questions, snap("weak", i == 0))
	}
	insights := TagInsights([]domain.AttemptRecord{{Questions: questions}})
	if len(insights) != 2 {
		t.Fatalf("expected 2 tags, got %+v", insights)
	}
	if insights[0].Tag != "weak" {
		t.Fatalf("weakest tag must sort first, got %+v", insights)
	}
}
