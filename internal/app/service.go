package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"vocab-mocktest-service/internal/analytics"
	"vocab-mocktest-service/internal/bank"
	"vocab-mocktest-service/internal/domain"
	"vocab-mocktest-service/internal/state"
)

// TestService contains the mock-test use cases: starting and resuming
// sessions, routing user actions to them, and turning submissions into
// permanent attempt records.
type TestService struct {
	store *state.Store
	banks *bank.Repository
	now   func() time.Time

	mu       sync.Mutex
	sessions map[state.Scope]*Session
}

func NewTestService(store *state.Store, banks *bank.Repository) *TestService {
	return NewTestServiceWithClock(store, banks, time.Now)
}

// NewTestServiceWithClock is test-only for deterministic timestamps.
func NewTestServiceWithClock(store *state.Store, banks *bank.Repository, now func() time.Time) *TestService {
	return &TestService{
		store:    store,
		banks:    banks,
		now:      now,
		sessions: make(map[state.Scope]*Session),
	}
}

// Start opens (or resumes) a session for one profile/source/set. Persisted
// answers, statuses, position, and the clock are reconciled into the live
// session, so reconnecting mid-test continues where the user left off.
func (s *TestService) Start(ctx context.Context, scope state.Scope) (*Session, error) {
	s.mu.Lock()
	if session, ok := s.sessions[scope]; ok {
		s.mu.Unlock()
		return session, nil
	}
	s.mu.Unlock()

	info, questions, err := s.banks.GetSet(ctx, scope.Source, scope.SetID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[scope]; ok {
		return session, nil
	}
	session := newSession(ctx, scope, s.store, s.now, info, questions)
	s.sessions[scope] = session
	s.store.SetSelectedSource(ctx, scope.Profile, scope.Source)
	s.store.SetSelectedSet(ctx, scope.Profile, scope.Source, scope.SetID)
	if !session.Submitted() {
		session.StartTicker(context.WithoutCancel(ctx))
	}
	return session, nil
}

// Get returns a live session, if one is open for the scope.
func (s *TestService) Get(scope state.Scope) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[scope]
	return session, ok
}

// Submit freezes the session, scores it, and appends the attempt record to
// the profile's history. Submitting twice yields the same result without a
// second history entry.
func (s *TestService) Submit(ctx context.Context, scope state.Scope) (domain.Result, error) {
	session, ok := s.Get(scope)
	if !ok {
		return domain.Result{}, domain.ErrSessionNotFound
	}

	alreadySubmitted := session.Submitted()
	snap := session.Submit(ctx)
	result := Score(session.Questions(), snap.Answers, snap.TotalElapsedSeconds, snap.QuestionTimes)
	if alreadySubmitted {
		return result, nil
	}

	// A failed history write is logged by the store; the user still gets
	// their result for this sitting.
	s.store.AppendAttempt(ctx, scope.Profile, scope.Source, result.Record(scope.SetID, s.now()))
	return result, nil
}

// Reset clears the session back to not-visited across the board, keeping the
// attempt history intact.
func (s *TestService) Reset(ctx context.Context, scope state.Scope) error {
	session, ok := s.Get(scope)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Reset(ctx, len(session.Questions()))
	session.StartTicker(context.WithoutCancel(ctx))
	return nil
}

// Close tears down a live session without submitting. Persisted state stays
// put for a later resume.
func (s *TestService) Close(scope state.Scope) {
	s.mu.Lock()
	session, ok := s.sessions[scope]
	if ok {
		delete(s.sessions, scope)
	}
	s.mu.Unlock()
	if ok {
		session.Close()
	}
}

// History lists the profile's attempts for one source, keyed by set id.
func (s *TestService) History(ctx context.Context, profile, source string) map[int][]domain.AttemptRecord {
	return s.store.AttemptHistory(ctx, profile, source)
}

// Attempts lists the profile's attempts for one set, oldest first.
func (s *TestService) Attempts(ctx context.Context, profile, source string, setID int) []domain.AttemptRecord {
	return s.store.Attempts(ctx, profile, source, setID)
}

// SetDisplayName stores a profile's presentation name.
func (s *TestService) SetDisplayName(ctx context.Context, profile, name string) {
	s.store.SetDisplayName(ctx, profile, name)
}

// DisplayName returns the profile's presentation name, empty when unset.
func (s *TestService) DisplayName(ctx context.Context, profile string) string {
	return s.store.DisplayName(ctx, profile)
}

// SourceSummary aggregates every past attempt a profile has on one source
// into a per-type summary. Nil when the profile has no attempts there.
func (s *TestService) SourceSummary(ctx context.Context, profile, source string) *analytics.TypeSummary {
	return analytics.SummarizeTypeAttempts(s.allAttempts(ctx, profile, source))
}

// TagInsights reports per-tag accuracy across a profile's attempts on one
// source, weakest tags first.
func (s *TestService) TagInsights(ctx context.Context, profile, source string) []analytics.TagInsight {
	return analytics.TagInsights(s.allAttempts(ctx, profile, source))
}

func (s *TestService) allAttempts(ctx context.Context, profile, source string) []domain.AttemptRecord {
	bySet := s.store.AttemptHistory(ctx, profile, source)
	sets := make([]int, 0, len(bySet))
	for setID := range bySet {
		sets = append(sets, setID)
	}
	sort.Ints(sets)
	var all []domain.AttemptRecord
	for _, setID := range sets {
		all = append(all, bySet[setID]...)
	}
	return all
}

// Sets lists the presentation groups of a source in first-seen order.
func (s *TestService) Sets(ctx context.Context, source string) ([]domain.Group, error) {
	b, err := s.banks.GetBank(ctx, source)
	if err != nil {
		return nil, err
	}
	return bank.GroupBy(b.Questions), nil
}
