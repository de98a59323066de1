package domain

import (
	"encoding/json"
	"fmt"
)

// Status is the per-question lifecycle tag. The zero value is StatusNotVisited.
type Status int

const (
	StatusNotVisited Status = iota
	StatusNotAnswered
	StatusAnswered
	StatusReview
	StatusReviewAnswered
)

var statusNames = map[Status]string{
	StatusNotVisited:     "not-visited",
	StatusNotAnswered:    "not-answered",
	StatusAnswered:       "answered",
	StatusReview:         "review",
	StatusReviewAnswered: "review-answered",
}

var statusValues = map[string]Status{
	"not-visited":     StatusNotVisited,
	"not-answered":    StatusNotAnswered,
	"answered":        StatusAnswered,
	"review":          StatusReview,
	"review-answered": StatusReviewAnswered,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// HasAnswer reports whether the status implies a recorded answer.
func (s Status) HasAnswer() bool {
	return s == StatusAnswered || s == StatusReviewAnswered
}

// Marked reports whether the status carries a review mark.
func (s Status) Marked() bool {
	return s == StatusReview || s == StatusReviewAnswered
}

func (s Status) MarshalJSON() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return json.Marshal(name)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, ok := statusValues[name]
	if !ok {
		return fmt.Errorf("unknown status %q", name)
	}
	*s = v
	return nil
}
