package state

import (
	"context"
	"fmt"
	"time"

	"vocab-mocktest-service/internal/domain"
)

// TimerMode selects how the session clock runs.
type TimerMode string

const (
	// Countdown ticks a fixed duration toward zero (full-test mode).
	Countdown TimerMode = "countdown"
	// Stopwatch counts elapsed time upward (per-set mode).
	Stopwatch TimerMode = "stopwatch"
)

// Scope identifies one session namespace: a profile, a question source, and a
// set within it. The profile is the unit of isolation; two profiles never see
// each other's state.
type Scope struct {
	Profile string
	Source  string
	SetID   int
}

// timerRecord is the persisted clock snapshot. Display time is always derived
// from SavedAt against the wall clock, never from accumulated ticks, so a
// suspended process reads back the right value.
type timerRecord struct {
	Mode    TimerMode `json:"mode"`
	Seconds int       `json:"seconds"`
	SavedAt int64     `json:"savedAtMillis"`
}

// questionTime accumulates time on one question via start/stop pairs.
type questionTime struct {
	TotalMillis int64 `json:"totalMillis"`
	StartedAt   int64 `json:"startedAtMillis,omitempty"` // 0 when no span is open
}

// Store exposes every persisted concern of the application as typed
// operations over a KV. It is constructed once at startup and handed to
// collaborators; nothing reaches for it ambiently.
type Store struct {
	kv  KV
	now func() time.Time
}

func NewStore(kv KV) *Store {
	return NewStoreWithClock(kv, time.Now)
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(kv KV, now func() time.Time) *Store {
	return &Store{kv: kv, now: now}
}

// Key namespaces owned by this application. ClearProfile walks exactly this
// registry so unrelated storage is never touched.
var namespaces = []string{
	"source", "set", "name", "bank", "sess", "history",
}

func key(profile string, parts ...any) string {
	k := "mocktest:" + profile
	for _, p := range parts {
		k += fmt.Sprintf(":%v", p)
	}
	return k
}

func sessKey(scope Scope, leaf string) string {
	return key(scope.Profile, "sess", scope.Source, scope.SetID, leaf)
}

// --- selection & identity ---

func (s *Store) SelectedSource(ctx context.Context, profile string) (string, bool) {
	var v string
	ok := s.kv.Get(ctx, key(profile, "source"), &v)
	return v, ok
}

func (s *Store) SetSelectedSource(ctx context.Context, profile, source string) bool {
	return s.kv.Put(ctx, key(profile, "source"), source)
}

func (s *Store) SelectedSet(ctx context.Context, profile, source string) (int, bool) {
	var v int
	ok := s.kv.Get(ctx, key(profile, "set", source), &v)
	return v, ok
}

func (s *Store) SetSelectedSet(ctx context.Context, profile, source string, setID int) bool {
	return s.kv.Put(ctx, key(profile, "set", source), setID)
}

func (s *Store) DisplayName(ctx context.Context, profile string) string {
	var v string
	s.kv.Get(ctx, key(profile, "name"), &v)
	return v
}

func (s *Store) SetDisplayName(ctx context.Context, profile, name string) bool {
	return s.kv.Put(ctx, key(profile, "name"), name)
}

// --- bank cache ---

// Banks are cached under a shared pseudo-profile: question content is the
// same for everyone, only attempt state is per-profile.
const sharedProfile = "shared"

func (s *Store) CachedBank(ctx context.Context, source string) (domain.Bank, bool) {
	var bank domain.Bank
	ok := s.kv.Get(ctx, key(sharedProfile, "bank", source), &bank)
	return bank, ok
}

func (s *Store) CacheBank(ctx context.Context, source string, bank domain.Bank) bool {
	return s.kv.Put(ctx, key(sharedProfile, "bank", source), bank)
}

// --- answers ---

// Answers returns the presence-keyed answer map. An entry holding choice 0 is
// a real answer; only a missing entry means unanswered.
func (s *Store) Answers(ctx context.Context, scope Scope) map[int]domain.Answer {
	answers := make(map[int]domain.Answer)
	s.kv.Get(ctx, sessKey(scope, "answers"), &answers)
	return answers
}

func (s *Store) SetAnswer(ctx context.Context, scope Scope, index int, ans domain.Answer) bool {
	answers := s.Answers(ctx, scope)
	answers[index] = ans
	return s.kv.Put(ctx, sessKey(scope, "answers"), answers)
}

func (s *Store) ClearAnswer(ctx context.Context, scope Scope, index int) bool {
	answers := s.Answers(ctx, scope)
	delete(answers, index)
	return s.kv.Put(ctx, sessKey(scope, "answers"), answers)
}

// --- statuses ---

func (s *Store) Statuses(ctx context.Context, scope Scope) map[int]domain.Status {
	statuses := make(map[int]domain.Status)
	s.kv.Get(ctx, sessKey(scope, "statuses"), &statuses)
	return statuses
}

func (s *Store) SetStatus(ctx context.Context, scope Scope, index int, status domain.Status) bool {
	statuses := s.Statuses(ctx, scope)
	statuses[index] = status
	return s.kv.Put(ctx, sessKey(scope, "statuses"), statuses)
}

// --- position & submission ---

func (s *Store) CurrentIndex(ctx context.Context, scope Scope) int {
	var v int
	s.kv.Get(ctx, sessKey(scope, "current"), &v)
	return v
}

func (s *Store) SetCurrentIndex(ctx context.Context, scope Scope, index int) bool {
	return s.kv.Put(ctx, sessKey(scope, "current"), index)
}

func (s *Store) Submitted(ctx context.Context, scope Scope) bool {
	var v bool
	s.kv.Get(ctx, sessKey(scope, "submitted"), &v)
	return v
}

func (s *Store) SetSubmitted(ctx context.Context, scope Scope, submitted bool) bool {
	return s.kv.Put(ctx, sessKey(scope, "submitted"), submitted)
}

func (s *Store) SessionStart(ctx context.Context, scope Scope) (time.Time, bool) {
	var millis int64
	if !s.kv.Get(ctx, sessKey(scope, "startedAt"), &millis) {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

func (s *Store) SetSessionStart(ctx context.Context, scope Scope, at time.Time) bool {
	return s.kv.Put(ctx, sessKey(scope, "startedAt"), at.UnixMilli())
}

// --- timer ---

// SaveTimer snapshots the clock: seconds remaining for a countdown, seconds
// elapsed for a stopwatch, stamped with the wall-clock save time.
func (s *Store) SaveTimer(ctx context.Context, scope Scope, mode TimerMode, seconds int) bool {
	return s.kv.Put(ctx, sessKey(scope, "timer"), timerRecord{
		Mode:    mode,
		Seconds: seconds,
		SavedAt: s.now().UnixMilli(),
	})
}

// ReadTimer reconstructs the current clock value from the stored snapshot and
// the wall time elapsed since it was taken. A countdown clamps at zero; both
// modes stay correct across process suspension because nothing here depends
// on ticks having fired.
func (s *Store) ReadTimer(ctx context.Context, scope Scope) (TimerMode, int, bool) {
	var rec timerRecord
	if !s.kv.Get(ctx, sessKey(scope, "timer"), &rec) {
		return "", 0, false
	}
	elapsed := int((s.now().UnixMilli() - rec.SavedAt) / 1000)
	if elapsed < 0 {
		elapsed = 0
	}
	switch rec.Mode {
	case Stopwatch:
		return Stopwatch, rec.Seconds + elapsed, true
	default:
		remaining := rec.Seconds - elapsed
		if remaining < 0 {
			remaining = 0
		}
		return Countdown, remaining, true
	}
}

// --- per-question time tracking ---

func (s *Store) rawQuestionTimes(ctx context.Context, scope Scope) map[int]questionTime {
	times := make(map[int]questionTime)
	s.kv.Get(ctx, sessKey(scope, "qtime"), &times)
	return times
}

// StartQuestionTime opens a timing span for index. A span already open is
// left alone so overlapping starts cannot double-count.
func (s *Store) StartQuestionTime(ctx context.Context, scope Scope, index int) bool {
	times := s.rawQuestionTimes(ctx, scope)
	entry := times[index]
	if entry.StartedAt != 0 {
		return true
	}
	entry.StartedAt = s.now().UnixMilli()
	times[index] = entry
	return s.kv.Put(ctx, sessKey(scope, "qtime"), times)
}

// StopQuestionTime closes the open span for index, folding it into the total.
// Stopping with no open span is a no-op.
func (s *Store) StopQuestionTime(ctx context.Context, scope Scope, index int) bool {
	times := s.rawQuestionTimes(ctx, scope)
	entry, ok := times[index]
	if !ok || entry.StartedAt == 0 {
		return true
	}
	entry.TotalMillis += s.now().UnixMilli() - entry.StartedAt
	entry.StartedAt = 0
	times[index] = entry
	return s.kv.Put(ctx, sessKey(scope, "qtime"), times)
}

// TouchQuestionTime folds the open span for index into its total and
// re-anchors it at now. Totals and anchors are both milliseconds, so repeated
// touches lose nothing. No-op when no span is open.
func (s *Store) TouchQuestionTime(ctx context.Context, scope Scope, index int) bool {
	times := s.rawQuestionTimes(ctx, scope)
	entry, ok := times[index]
	if !ok || entry.StartedAt == 0 {
		return true
	}
	now := s.now().UnixMilli()
	entry.TotalMillis += now - entry.StartedAt
	entry.StartedAt = now
	times[index] = entry
	return s.kv.Put(ctx, sessKey(scope, "qtime"), times)
}

// AbandonOpenSpans drops any open spans without folding them in. An open span
// found when resuming covers absence, not time spent on the question.
func (s *Store) AbandonOpenSpans(ctx context.Context, scope Scope) bool {
	times := s.rawQuestionTimes(ctx, scope)
	changed := false
	for index, entry := range times {
		if entry.StartedAt != 0 {
			entry.StartedAt = 0
			times[index] = entry
			changed = true
		}
	}
	if !changed {
		return true
	}
	return s.kv.Put(ctx, sessKey(scope, "qtime"), times)
}

// QuestionTimes returns accumulated seconds per question index. An open span
// is projected into the returned value without being persisted, so reads
// between start and stop see time advancing.
func (s *Store) QuestionTimes(ctx context.Context, scope Scope) map[int]float64 {
	times := s.rawQuestionTimes(ctx, scope)
	out := make(map[int]float64, len(times))
	nowMillis := s.now().UnixMilli()
	for index, entry := range times {
		total := entry.TotalMillis
		if entry.StartedAt != 0 {
			total += nowMillis - entry.StartedAt
		}
		out[index] = float64(total) / 1000
	}
	return out
}

// --- attempt history ---

// AppendAttempt adds one record to the per-set history list. Records are
// append-only; nothing ever rewrites an existing attempt.
func (s *Store) AppendAttempt(ctx context.Context, profile, source string, rec domain.AttemptRecord) bool {
	history := s.AttemptHistory(ctx, profile, source)
	history[rec.SetID] = append(history[rec.SetID], rec)
	return s.kv.Put(ctx, key(profile, "history", source), history)
}

// AttemptHistory returns all attempts for a source, keyed by set id.
func (s *Store) AttemptHistory(ctx context.Context, profile, source string) map[int][]domain.AttemptRecord {
	history := make(map[int][]domain.AttemptRecord)
	s.kv.Get(ctx, key(profile, "history", source), &history)
	return history
}

// Attempts returns the attempts for one set, oldest first.
func (s *Store) Attempts(ctx context.Context, profile, source string, setID int) []domain.AttemptRecord {
	return s.AttemptHistory(ctx, profile, source)[setID]
}

// --- reset & clearing ---

// ResetSession drops every session-scoped key for one scope. History and
// selections survive; this is the "retake the set" path.
func (s *Store) ResetSession(ctx context.Context, scope Scope) {
	for _, leaf := range []string{"answers", "statuses", "current", "submitted", "timer", "qtime", "startedAt"} {
		s.kv.Delete(ctx, sessKey(scope, leaf))
	}
}

// ClearProfile removes every key this application owns for the profile,
// walking the fixed namespace registry so unrelated keys are untouched.
func (s *Store) ClearProfile(ctx context.Context, profile string) {
	for _, ns := range namespaces {
		for _, k := range s.kv.Keys(ctx, key(profile, ns)) {
			s.kv.Delete(ctx, k)
		}
	}
}
