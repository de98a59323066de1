package domain

import (
	"encoding/json"
	"time"
)

// Kind distinguishes question variants.
type Kind string

const (
	KindChoice   Kind = "choice"
	KindFreeText Kind = "freeText"
)

// Marks is the positive/negative marking scheme for one question.
type Marks struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
}

// DefaultMarks applies when a question omits its marks block.
var DefaultMarks = Marks{Positive: 3, Negative: 1}

// Question models one assessable item. Questions sharing a GroupID form a set
// and are presented together; at most one member carries the shared context.
type Question struct {
	ID            int      `json:"id"`
	GroupID       int      `json:"groupId"`
	SharedContext *string  `json:"sharedContext"`
	Prompt        string   `json:"prompt"`
	Kind          Kind     `json:"kind"`
	Choices       []string `json:"choices,omitempty"`
	CorrectChoice int      `json:"-"`
	CorrectText   string   `json:"-"`
	Explanation   string   `json:"explanation,omitempty"`
	Marks         Marks    `json:"marks"`
	Tags          []string `json:"tags,omitempty"`
}

// questionJSON mirrors the wire shape, where correctChoice is a number for
// choice questions and a string for free-text ones.
type questionJSON struct {
	ID            int             `json:"id"`
	GroupID       int             `json:"groupId"`
	SharedContext *string         `json:"sharedContext"`
	Prompt        string          `json:"prompt"`
	Kind          Kind            `json:"kind"`
	Choices       []string        `json:"choices,omitempty"`
	CorrectChoice json.RawMessage `json:"correctChoice,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	Marks         *Marks          `json:"marks,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.ID = raw.ID
	q.GroupID = raw.GroupID
	q.SharedContext = raw.SharedContext
	q.Prompt = raw.Prompt
	q.Kind = raw.Kind
	if q.Kind == "" {
		q.Kind = KindChoice
	}
	q.Choices = raw.Choices
	q.Explanation = raw.Explanation
	q.Tags = raw.Tags
	q.Marks = DefaultMarks
	if raw.Marks != nil {
		q.Marks = *raw.Marks
	}
	if len(raw.CorrectChoice) > 0 {
		if q.Kind == KindFreeText {
			if err := json.Unmarshal(raw.CorrectChoice, &q.CorrectText); err != nil {
				return err
			}
		} else if err := json.Unmarshal(raw.CorrectChoice, &q.CorrectChoice); err != nil {
			return err
		}
	}
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	raw := questionJSON{
		ID:            q.ID,
		GroupID:       q.GroupID,
		SharedContext: q.SharedContext,
		Prompt:        q.Prompt,
		Kind:          q.Kind,
		Choices:       q.Choices,
		Explanation:   q.Explanation,
		Marks:         &q.Marks,
		Tags:          q.Tags,
	}
	var err error
	if q.Kind == KindFreeText {
		raw.CorrectChoice, err = json.Marshal(q.CorrectText)
	} else {
		raw.CorrectChoice, err = json.Marshal(q.CorrectChoice)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

// TestInfo describes one bank of questions.
type TestInfo struct {
	Title          string `json:"title"`
	Duration       int    `json:"duration"` // seconds; 0 means stopwatch mode
	TotalQuestions int    `json:"totalQuestions"`
}

// Bank is one question source: the document shape served as bundled data.
type Bank struct {
	TestInfo  TestInfo   `json:"testInfo"`
	Questions []Question `json:"questions"`
}

// Answer is a user's recorded value for one question. A choice index of 0 is
// a legitimate answer; absence is expressed by not having an Answer at all
// (presence-keyed maps), never by a sentinel value.
type Answer struct {
	Kind   Kind   `json:"kind"`
	Choice int    `json:"choice,omitempty"`
	Text   string `json:"text,omitempty"`
}

// ChoiceAnswer builds an answer for a choice question.
func ChoiceAnswer(index int) Answer {
	return Answer{Kind: KindChoice, Choice: index}
}

// TextAnswer builds an answer for a free-text question.
func TextAnswer(text string) Answer {
	return Answer{Kind: KindFreeText, Text: text}
}

// Result is the outcome of scoring one submitted sitting.
type Result struct {
	Score                  float64            `json:"score"`
	MaxScore               float64            `json:"maxScore"`
	Percentage             int                `json:"percentage"`
	CorrectCount           int                `json:"correctCount"`
	IncorrectCount         int                `json:"incorrectCount"`
	UnattemptedCount       int                `json:"unattemptedCount"`
	TotalTimeSeconds       int                `json:"totalTimeSeconds"`
	PerQuestionTimeSeconds map[int]float64    `json:"perQuestionTimeSeconds"`
	Questions              []QuestionSnapshot `json:"questions"`
}

// Record converts a scoring result into the attempt record appended to
// history. The two shapes agree field for field; the record just adds its
// timestamp and set identity.
func (r Result) Record(setID int, at time.Time) AttemptRecord {
	return AttemptRecord{
		Timestamp:              at,
		SetID:                  setID,
		Score:                  r.Score,
		MaxScore:               r.MaxScore,
		CorrectCount:           r.CorrectCount,
		IncorrectCount:         r.IncorrectCount,
		UnattemptedCount:       r.UnattemptedCount,
		TotalTimeSeconds:       r.TotalTimeSeconds,
		PerQuestionTimeSeconds: r.PerQuestionTimeSeconds,
		Questions:              r.Questions,
	}
}

// QuestionSnapshot freezes everything a review surface needs so old attempts
// stay readable without re-fetching the question bank.
type QuestionSnapshot struct {
	ID            int      `json:"id"`
	UserAnswer    *Answer  `json:"userAnswer"`
	CorrectAnswer Answer   `json:"correctAnswer"`
	Correct       bool     `json:"correct"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// AttemptRecord is one completed, submitted pass through a set. Appended to
// history at submission time and never mutated afterward.
type AttemptRecord struct {
	Timestamp              time.Time          `json:"timestamp"`
	SetID                  int                `json:"setId"`
	Score                  float64            `json:"score"`
	MaxScore               float64            `json:"maxScore"`
	CorrectCount           int                `json:"correctCount"`
	IncorrectCount         int                `json:"incorrectCount"`
	UnattemptedCount       int                `json:"unattemptedCount"`
	TotalTimeSeconds       int                `json:"totalTimeSeconds"`
	PerQuestionTimeSeconds map[int]float64    `json:"perQuestionTimeSeconds"`
	Questions              []QuestionSnapshot `json:"questions"`
}

// Group is one presentation set: questions sharing a group id, in original order.
type Group struct {
	ID        int        `json:"id"`
	Questions []Question `json:"questions"`
}
