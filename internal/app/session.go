package app

import (
	"context"
	"sync"
	"time"

	"vocab-mocktest-service/internal/domain"
	"vocab-mocktest-service/internal/state"
)

// Statistics is a full tally over every question index in the active set.
type Statistics struct {
	Answered       int `json:"answered"`
	NotAnswered    int `json:"notAnswered"`
	NotVisited     int `json:"notVisited"`
	Review         int `json:"review"`
	ReviewAnswered int `json:"reviewAnswered"`
}

// Snapshot is the frozen view handed to the scoring engine at submission.
type Snapshot struct {
	Answers             map[int]domain.Answer
	Statuses            []domain.Status
	TotalElapsedSeconds int
	QuestionTimes       map[int]float64
}

// Session owns the per-question lifecycle for one sitting: statuses, answers,
// position, and timers. It is the single authority on what the user has done
// so far; every mutation is written through to the state store immediately,
// so a crash never loses more than the in-flight operation.
type Session struct {
	scope     state.Scope
	store     *state.Store
	now       func() time.Time
	info      domain.TestInfo
	questions []domain.Question
	mode      state.TimerMode

	mu        sync.Mutex
	statuses  []domain.Status
	answers   map[int]domain.Answer
	current   int
	submitted bool
	snapshot  *Snapshot
	stopTick  chan struct{}
	tickOnce  sync.Once
}

func newSession(ctx context.Context, scope state.Scope, store *state.Store, now func() time.Time, info domain.TestInfo, questions []domain.Question) *Session {
	s := &Session{
		scope:     scope,
		store:     store,
		now:       now,
		info:      info,
		questions: questions,
		mode:      state.Stopwatch,
		statuses:  make([]domain.Status, len(questions)),
		answers:   make(map[int]domain.Answer),
		stopTick:  make(chan struct{}),
	}
	if info.Duration > 0 {
		s.mode = state.Countdown
	}
	s.reconcile(ctx)
	return s
}

// reconcile folds previously persisted state back into the live session so a
// reconnect resumes exactly where the user left off.
func (s *Session) reconcile(ctx context.Context) {
	for index, status := range s.store.Statuses(ctx, s.scope) {
		if index >= 0 && index < len(s.statuses) {
			s.statuses[index] = status
		}
	}
	for index, ans := range s.store.Answers(ctx, s.scope) {
		if index >= 0 && index < len(s.statuses) {
			s.answers[index] = ans
		}
	}
	if current := s.store.CurrentIndex(ctx, s.scope); current >= 0 && current < len(s.statuses) {
		s.current = current
	}
	s.submitted = s.store.Submitted(ctx, s.scope)

	// A span still open here was left by an unclean shutdown and covers the
	// absence, not time on the question. Drop it instead of folding it in.
	s.store.AbandonOpenSpans(ctx, s.scope)

	if _, _, ok := s.store.ReadTimer(ctx, s.scope); !ok && !s.submitted {
		seconds := 0
		if s.mode == state.Countdown {
			seconds = s.info.Duration
		}
		s.store.SaveTimer(ctx, s.scope, s.mode, seconds)
		s.store.SetSessionStart(ctx, s.scope, s.now())
	}
}

// runTicker folds the active question's open span once a second until
// cancelled, so an unclean shutdown loses at most one tick of question time.
// The session clock needs no upkeep here: its persisted record is anchored
// once and every read derives from the wall clock, so rewriting it per tick
// would only bleed the sub-second remainder each time.
func (s *Session) runTicker(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopTick:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return
	}
	s.store.TouchQuestionTime(ctx, s.scope, s.current)
}

// StartTicker launches the one-second span-folding loop. Safe to call more
// than once; only the first call starts it.
func (s *Session) StartTicker(ctx context.Context) {
	s.tickOnce.Do(func() {
		go s.runTicker(ctx)
	})
}

// cancelTicker stops the loop. Must run on submit and on teardown so no
// interval outlives its session.
func (s *Session) cancelTicker() {
	select {
	case <-s.stopTick:
	default:
		close(s.stopTick)
	}
}

func (s *Session) clock(ctx context.Context) (state.TimerMode, int, bool) {
	return s.store.ReadTimer(ctx, s.scope)
}

// Clock reports the current countdown/stopwatch reading.
func (s *Session) Clock(ctx context.Context) (state.TimerMode, int) {
	mode, seconds, ok := s.clock(ctx)
	if !ok {
		return s.mode, 0
	}
	return mode, seconds
}

func (s *Session) inRange(index int) bool {
	return index >= 0 && index < len(s.statuses)
}

// Visit displays a question: first visit moves not-visited to not-answered,
// the per-question timer swaps from the previous question to this one, and
// the current index is persisted. Out-of-range indices are a silent no-op.
func (s *Session) Visit(ctx context.Context, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitLocked(ctx, index)
}

func (s *Session) visitLocked(ctx context.Context, index int) {
	if s.submitted || !s.inRange(index) {
		return
	}
	if index != s.current {
		s.store.StopQuestionTime(ctx, s.scope, s.current)
	}
	s.store.StartQuestionTime(ctx, s.scope, index)
	if s.statuses[index] == domain.StatusNotVisited {
		s.setStatusLocked(ctx, index, domain.StatusNotAnswered)
	}
	s.current = index
	s.store.SetCurrentIndex(ctx, s.scope, index)
}

// SetAnswer records a value for a question. A choice index of 0 or an empty
// string is as real as any other answer. Visiting is an implicit precondition
// of every status mutation, so answering an unvisited question visits it first.
func (s *Session) SetAnswer(ctx context.Context, index int, ans domain.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted || !s.inRange(index) {
		return
	}
	s.visitLocked(ctx, index)
	s.answers[index] = ans
	s.store.SetAnswer(ctx, s.scope, index, ans)
	switch s.statuses[index] {
	case domain.StatusNotAnswered:
		s.setStatusLocked(ctx, index, domain.StatusAnswered)
	case domain.StatusReview:
		s.setStatusLocked(ctx, index, domain.StatusReviewAnswered)
	}
}

// ClearAnswer removes a recorded value, stepping the status back to its
// unanswered counterpart.
func (s *Session) ClearAnswer(ctx context.Context, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted || !s.inRange(index) {
		return
	}
	s.visitLocked(ctx, index)
	delete(s.answers, index)
	s.store.ClearAnswer(ctx, s.scope, index)
	switch s.statuses[index] {
	case domain.StatusAnswered:
		s.setStatusLocked(ctx, index, domain.StatusNotAnswered)
	case domain.StatusReviewAnswered:
		s.setStatusLocked(ctx, index, domain.StatusReview)
	}
}

// ToggleReview flips the review mark, preserving whether an answer exists.
func (s *Session) ToggleReview(ctx context.Context, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted || !s.inRange(index) {
		return
	}
	s.visitLocked(ctx, index)
	switch s.statuses[index] {
	case domain.StatusNotAnswered:
		s.setStatusLocked(ctx, index, domain.StatusReview)
	case domain.StatusReview:
		s.setStatusLocked(ctx, index, domain.StatusNotAnswered)
	case domain.StatusAnswered:
		s.setStatusLocked(ctx, index, domain.StatusReviewAnswered)
	case domain.StatusReviewAnswered:
		s.setStatusLocked(ctx, index, domain.StatusAnswered)
	}
}

func (s *Session) setStatusLocked(ctx context.Context, index int, status domain.Status) {
	s.statuses[index] = status
	s.store.SetStatus(ctx, s.scope, index, status)
}

// Statistics tallies every index from the authoritative status slice. Always
// recomputed; nothing caches it.
func (s *Session) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats Statistics
	for _, status := range s.statuses {
		switch status {
		case domain.StatusAnswered:
			stats.Answered++
		case domain.StatusNotAnswered:
			stats.NotAnswered++
		case domain.StatusNotVisited:
			stats.NotVisited++
		case domain.StatusReview:
			stats.Review++
		case domain.StatusReviewAnswered:
			stats.ReviewAnswered++
		}
	}
	return stats
}

// CurrentIndex reports which question is displayed.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Answer returns the recorded value for an index, if any.
func (s *Session) Answer(index int) (domain.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ans, ok := s.answers[index]
	return ans, ok
}

// Status returns the lifecycle tag for an index.
func (s *Session) Status(index int) domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRange(index) {
		return domain.StatusNotVisited
	}
	return s.statuses[index]
}

// Questions exposes the active set in presentation order.
func (s *Session) Questions() []domain.Question {
	return s.questions
}

// Info exposes the bank's test metadata.
func (s *Session) Info() domain.TestInfo {
	return s.info
}

// Submitted reports whether the session has been frozen.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Submit freezes the session and returns the final snapshot. The active
// per-question timer stops, the ticker is cancelled, and a second call
// returns the same snapshot without side effects.
func (s *Session) Submit(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted && s.snapshot != nil {
		return *s.snapshot
	}

	s.store.StopQuestionTime(ctx, s.scope, s.current)
	s.cancelTicker()

	elapsed := 0
	if mode, seconds, ok := s.clock(ctx); ok {
		if mode == state.Countdown {
			elapsed = s.info.Duration - seconds
		} else {
			elapsed = seconds
		}
	}
	if elapsed < 0 {
		elapsed = 0
	}

	answers := make(map[int]domain.Answer, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	statuses := make([]domain.Status, len(s.statuses))
	copy(statuses, s.statuses)

	snap := Snapshot{
		Answers:             answers,
		Statuses:            statuses,
		TotalElapsedSeconds: elapsed,
		QuestionTimes:       s.store.QuestionTimes(ctx, s.scope),
	}
	s.snapshot = &snap
	s.submitted = true
	s.store.SetSubmitted(ctx, s.scope, true)
	return snap
}

// Reset clears answers, statuses, timers, and the submitted flag, returning
// every index to not-visited. This is the only path back from submission.
func (s *Session) Reset(ctx context.Context, totalQuestions int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Resetting mid-test leaves a live ticker on the old channel; stop it
	// before swapping in a fresh one.
	s.cancelTicker()
	s.store.ResetSession(ctx, s.scope)
	s.statuses = make([]domain.Status, totalQuestions)
	s.answers = make(map[int]domain.Answer)
	s.current = 0
	s.submitted = false
	s.snapshot = nil
	s.stopTick = make(chan struct{})
	s.tickOnce = sync.Once{}

	seconds := 0
	if s.mode == state.Countdown {
		seconds = s.info.Duration
	}
	s.store.SaveTimer(ctx, s.scope, s.mode, seconds)
	s.store.SetSessionStart(ctx, s.scope, s.now())
}

// Close tears the session down without submitting. The active question's
// span stops here so time away from the test is never counted against it.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.submitted {
		s.store.StopQuestionTime(context.Background(), s.scope, s.current)
	}
	s.mu.Unlock()
	s.cancelTicker()
}
