package domain

import (
	"fmt"
	"strings"
)

// ValidationIssue flags one malformed question in a bank.
type ValidationIssue struct {
	QuestionID int
	Message    string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("question %d: %s", i.QuestionID, i.Message)
}

// ValidateBank runs the data-quality checks that keep malformed questions out
// of scoring. It reports every issue rather than stopping at the first, so
// audit tooling can list them all in one pass.
func ValidateBank(bank Bank) []ValidationIssue {
	var issues []ValidationIssue
	seen := make(map[int]bool, len(bank.Questions))
	contextByGroup := make(map[int]int)

	for _, q := range bank.Questions {
		if seen[q.ID] {
			issues = append(issues, ValidationIssue{q.ID, "duplicate question id"})
		}
		seen[q.ID] = true

		if q.GroupID == 0 {
			issues = append(issues, ValidationIssue{q.ID, "missing groupId"})
		}
		if q.SharedContext != nil {
			contextByGroup[q.GroupID]++
		}
		if strings.TrimSpace(q.Prompt) == "" {
			issues = append(issues, ValidationIssue{q.ID, "empty prompt"})
		}

		switch q.Kind {
		case KindChoice:
			if len(q.Choices) == 0 {
				issues = append(issues, ValidationIssue{q.ID, "choice question without choices"})
				continue
			}
			for i, c := range q.Choices {
				if strings.TrimSpace(c) == "" {
					issues = append(issues, ValidationIssue{q.ID, fmt.Sprintf("empty option text at index %d", i)})
				}
			}
			if q.CorrectChoice < 0 || q.CorrectChoice >= len(q.Choices) {
				issues = append(issues, ValidationIssue{q.ID, fmt.Sprintf("correctChoice %d out of range [0,%d)", q.CorrectChoice, len(q.Choices))})
			}
		case KindFreeText:
			if strings.TrimSpace(q.CorrectText) == "" {
				issues = append(issues, ValidationIssue{q.ID, "free-text question without an answer key"})
			}
		default:
			issues = append(issues, ValidationIssue{q.ID, fmt.Sprintf("unknown kind %q", q.Kind)})
		}

		if q.Marks.Positive <= 0 {
			issues = append(issues, ValidationIssue{q.ID, "non-positive marks.positive"})
		}
		if q.Marks.Negative < 0 {
			issues = append(issues, ValidationIssue{q.ID, "negative marks.negative"})
		}
	}

	for groupID, n := range contextByGroup {
		if n > 1 {
			issues = append(issues, ValidationIssue{0, fmt.Sprintf("group %d has %d shared contexts, want at most one", groupID, n)})
		}
	}
	return issues
}
