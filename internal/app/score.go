package app

import (
	"math"
	"strings"
	"unicode"

	"vocab-mocktest-service/internal/domain"
)

// Score is the pure scoring function: questions plus final answers in, result
// record out. It persists nothing; appending the attempt to history is the
// service's job.
//
// Per question: no answer counts as unattempted, a match earns the positive
// marks, a miss deducts the negative marks. The zero floor applies to the
// grand total only, never per question.
func Score(questions []domain.Question, answers map[int]domain.Answer, elapsedSeconds int, times map[int]float64) domain.Result {
	result := domain.Result{
		TotalTimeSeconds:       elapsedSeconds,
		PerQuestionTimeSeconds: map[int]float64{},
	}

	var running float64
	for index, q := range questions {
		result.MaxScore += q.Marks.Positive
		result.PerQuestionTimeSeconds[index] = times[index]

		snap := domain.QuestionSnapshot{
			ID:            q.ID,
			CorrectAnswer: correctAnswer(q),
			Prompt:        q.Prompt,
			Choices:       q.Choices,
			Explanation:   q.Explanation,
			Tags:          q.Tags,
		}

		ans, attempted := answers[index]
		if !attempted {
			result.UnattemptedCount++
			result.Questions = append(result.Questions, snap)
			continue
		}
		snap.UserAnswer = &ans

		if answerCorrect(q, ans) {
			snap.Correct = true
			result.CorrectCount++
			running += q.Marks.Positive
		} else {
			result.IncorrectCount++
			running -= q.Marks.Negative
		}
		result.Questions = append(result.Questions, snap)
	}

	result.Score = math.Max(0, running)
	if result.MaxScore > 0 {
		result.Percentage = int(math.Round(100 * result.Score / result.MaxScore))
	}
	return result
}

func correctAnswer(q domain.Question) domain.Answer {
	if q.Kind == domain.KindFreeText {
		return domain.TextAnswer(q.CorrectText)
	}
	return domain.ChoiceAnswer(q.CorrectChoice)
}

func answerCorrect(q domain.Question, ans domain.Answer) bool {
	if ans.Kind != q.Kind {
		return false
	}
	if q.Kind == domain.KindFreeText {
		return normalizeText(ans.Text) == normalizeText(q.CorrectText)
	}
	return ans.Choice == q.CorrectChoice
}

// normalizeText casefolds, strips punctuation, and collapses whitespace, so
// "Frequency." matches "frequency" while distinct words still differ.
func normalizeText(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r):
			// skip
		default:
			if space && b.Len() > 0 {
				b.WriteRune(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
