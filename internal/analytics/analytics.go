// Package analytics derives human-facing summaries from attempt history. All
// functions are pure reads over records; nothing here mutates its input.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"vocab-mocktest-service/internal/domain"
)

// AttemptSummary describes the timing and accuracy profile of one attempt.
type AttemptSummary struct {
	TotalTime        float64   `json:"totalTime"`
	AvgTime          float64   `json:"avgTime"`
	MedianTime       float64   `json:"medianTime"`
	P75Time          float64   `json:"p75Time"`
	FastestIndex     int       `json:"fastestIndex"`
	SlowestIndex     int       `json:"slowestIndex"`
	Accuracy         int       `json:"accuracy"`
	AvgCorrectTime   float64   `json:"avgCorrectTime"`
	AvgIncorrectTime float64   `json:"avgIncorrectTime"`
	Times            []float64 `json:"times"`
}

// TypeSummary aggregates a profile's history for one question type.
type TypeSummary struct {
	Attempts           int                  `json:"attempts"`
	AvgScore           float64              `json:"avgScore"`
	Accuracy           int                  `json:"accuracy"`
	AvgTimePerQuestion float64              `json:"avgTimePerQuestion"`
	BestScore          domain.AttemptRecord `json:"bestScore"`
}

// TagInsight reports per-topic correctness across attempts.
type TagInsight struct {
	Tag       string `json:"tag"`
	Attempted int    `json:"attempted"`
	Accuracy  int    `json:"accuracy"`
}

// minTagSample is the attempt count below which a tag is considered too noisy
// to report.
const minTagSample = 5

// SummarizeAttempt computes the timing profile of one attempt. Per-question
// times come from the persisted map, absent entries defaulting to zero.
// Fastest/slowest skip zero-time questions when any question has real time,
// so an untouched attempt still reports something instead of nothing.
func SummarizeAttempt(attempt domain.AttemptRecord) AttemptSummary {
	n := len(attempt.Questions)
	times := make([]float64, n)
	for i := range times {
		times[i] = attempt.PerQuestionTimeSeconds[i]
	}

	summary := AttemptSummary{Times: times}
	if n == 0 {
		return summary
	}

	var total float64
	for _, t := range times {
		total += t
	}
	summary.TotalTime = total
	summary.AvgTime = total / float64(n)

	// Percentiles work on a sorted copy; the caller's order is positional and
	// must survive.
	sorted := make([]float64, n)
	copy(sorted, times)
	sort.Float64s(sorted)
	summary.MedianTime = sorted[(n-1)/2]
	summary.P75Time = sorted[(n-1)*75/100]

	candidates := nonZeroIndices(times)
	if len(candidates) == 0 {
		candidates = allIndices(n)
	}
	summary.FastestIndex = candidates[0]
	summary.SlowestIndex = candidates[0]
	for _, i := range candidates {
		if times[i] < times[summary.FastestIndex] {
			summary.FastestIndex = i
		}
		if times[i] > times[summary.SlowestIndex] {
			summary.SlowestIndex = i
		}
	}

	attemptedTotal := attempt.CorrectCount + attempt.IncorrectCount + attempt.UnattemptedCount
	if attemptedTotal > 0 {
		summary.Accuracy = roundPercent(float64(attempt.CorrectCount) / float64(attemptedTotal))
	}

	var correctTime, incorrectTime float64
	var correctN, incorrectN int
	for i, q := range attempt.Questions {
		if q.UserAnswer == nil {
			continue
		}
		if q.Correct {
			correctTime += times[i]
			correctN++
		} else {
			incorrectTime += times[i]
			incorrectN++
		}
	}
	if correctN > 0 {
		summary.AvgCorrectTime = correctTime / float64(correctN)
	}
	if incorrectN > 0 {
		summary.AvgIncorrectTime = incorrectTime / float64(incorrectN)
	}
	return summary
}

// BuildInsights turns a summary into at most four advisory messages, in a
// fixed priority order. Any subset may be empty; these are nudges, not alerts.
func BuildInsights(attempt domain.AttemptRecord, summary AttemptSummary) []string {
	if len(attempt.Questions) == 0 {
		return nil
	}
	var insights []string

	slowest := attempt.Questions[summary.SlowestIndex]
	verdict := "and got it right"
	if slowest.UserAnswer == nil {
		verdict = "and left it unattempted"
	} else if !slowest.Correct {
		verdict = "and still got it wrong"
	}
	insights = append(insights, fmt.Sprintf(
		"You spent the longest on question %d (%.0fs) %s.",
		summary.SlowestIndex+1, summary.Times[summary.SlowestIndex], verdict))

	if idx, ok := fastestIncorrect(attempt, summary.Times); ok {
		insights = append(insights, fmt.Sprintf(
			"Question %d went wrong in just %.0fs; rushed and wrong is the worst trade.",
			idx+1, summary.Times[idx]))
	}

	if summary.AvgCorrectTime > 0 && summary.AvgIncorrectTime > 0 {
		ratio := summary.AvgIncorrectTime / summary.AvgCorrectTime
		if ratio < 0.7 {
			insights = append(insights,
				"Your wrong answers were much quicker than your right ones; slow down before locking in.")
		} else if ratio > 1.3 {
			insights = append(insights,
				"You spent longest on questions you missed; consider giving up sooner and banking easy marks.")
		}
	}

	if attempt.UnattemptedCount > 0 && len(insights) < 4 {
		insights = append(insights, fmt.Sprintf(
			"%d question(s) went unattempted; even a guess beats a blank under partial negative marking only if you can eliminate options.",
			attempt.UnattemptedCount))
	}

	if len(insights) < 4 && summary.TotalTime > 0 && len(summary.Times) >= 2 {
		sorted := make([]float64, len(summary.Times))
		copy(sorted, summary.Times)
		sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
		if (sorted[0]+sorted[1])/summary.TotalTime >= 0.5 {
			insights = append(insights,
				"Two questions consumed at least half your time. Set a per-question time limit.")
		}
	}

	if len(insights) > 4 {
		insights = insights[:4]
	}
	return insights
}

// SummarizeTypeAttempts aggregates a history list for one question type.
// Returns nil for an empty history so callers render a zero-state.
func SummarizeTypeAttempts(attempts []domain.AttemptRecord) *TypeSummary {
	if len(attempts) == 0 {
		return nil
	}

	summary := &TypeSummary{
		Attempts:  len(attempts),
		BestScore: attempts[0],
	}
	var scoreSum, timeSum float64
	var correct, total, questions int
	for _, a := range attempts {
		scoreSum += a.Score
		timeSum += float64(a.TotalTimeSeconds)
		correct += a.CorrectCount
		total += a.CorrectCount + a.IncorrectCount + a.UnattemptedCount
		questions += len(a.Questions)
		// Ties keep the first encountered.
		if a.Score > summary.BestScore.Score {
			summary.BestScore = a
		}
	}
	summary.AvgScore = scoreSum / float64(len(attempts))
	if total > 0 {
		summary.Accuracy = roundPercent(float64(correct) / float64(total))
	}
	if questions > 0 {
		summary.AvgTimePerQuestion = timeSum / float64(questions)
	}
	return summary
}

// TagInsights aggregates per-tag correctness across every tagged question in
// the history. Tags seen fewer than five times are dropped as noise; the rest
// sort worst-first so weak spots surface.
func TagInsights(attempts []domain.AttemptRecord) []TagInsight {
	type tally struct {
		attempted int
		correct   int
	}
	tallies := make(map[string]*tally)
	var order []string

	for _, attempt := range attempts {
		for _, q := range attempt.Questions {
			for _, tag := range q.Tags {
				t, ok := tallies[tag]
				if !ok {
					t = &tally{}
					tallies[tag] = t
					order = append(order, tag)
				}
				t.attempted++
				if q.Correct {
					t.correct++
				}
			}
		}
	}

	var insights []TagInsight
	for _, tag := range order {
		t := tallies[tag]
		if t.attempted < minTagSample {
			continue
		}
		insights = append(insights, TagInsight{
			Tag:       tag,
			Attempted: t.attempted,
			Accuracy:  roundPercent(float64(t.correct) / float64(t.attempted)),
		})
	}
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Accuracy < insights[j].Accuracy
	})
	return insights
}

func fastestIncorrect(attempt domain.AttemptRecord, times []float64) (int, bool) {
	best := -1
	for i, q := range attempt.Questions {
		if q.UserAnswer == nil || q.Correct || times[i] <= 0 {
			continue
		}
		if best == -1 || times[i] < times[best] {
			best = i
		}
	}
	return best, best != -1
}

func nonZeroIndices(times []float64) []int {
	var out []int
	for i, t := range times {
		if t > 0 {
			out = append(out, i)
		}
	}
	return out
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func roundPercent(frac float64) int {
	return int(math.Round(100 * frac))
}
