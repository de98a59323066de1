package bank

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"

	"vocab-mocktest-service/internal/domain"
	"vocab-mocktest-service/internal/state"
)

// Loader fetches bank content from a backing store (Postgres, embedded data).
type Loader interface {
	LoadBank(ctx context.Context, sourceID string) (domain.Bank, error)
}

// Repository serves question banks with a cache-aside layer in the state
// store, so a restart or reconnect does not re-fetch. When the loader fails
// it falls back to the embedded sample bank: the app must stay demonstrable
// without its backing store.
type Repository struct {
	loader   Loader
	store    *state.Store
	fallback Loader
	sf       singleflight.Group
}

func NewRepository(loader Loader, store *state.Store) *Repository {
	return &Repository{
		loader:   loader,
		store:    store,
		fallback: NewStaticLoader(),
	}
}

// GetBank returns the bank for a source, consulting the persisted cache
// first. Concurrent misses for the same source collapse into one load.
func (r *Repository) GetBank(ctx context.Context, sourceID string) (domain.Bank, error) {
	if bank, ok := r.store.CachedBank(ctx, sourceID); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(sourceID, func() (interface{}, error) {
		// Re-check in case another caller filled the cache.
		if bank, ok := r.store.CachedBank(ctx, sourceID); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx, sourceID)
		if err != nil {
			log.Printf("load bank %s: %v, falling back to sample data", sourceID, err)
			bank, err = r.fallback.LoadBank(ctx, sourceID)
			if err != nil {
				return domain.Bank{}, err
			}
		}

		if !r.store.CacheBank(ctx, sourceID, bank) {
			log.Printf("cache bank %s: write failed, continuing uncached", sourceID)
		}
		return bank, nil
	})
	if err != nil {
		return domain.Bank{}, err
	}
	return result.(domain.Bank), nil
}

// GetSet returns one set's questions plus the bank's test info.
func (r *Repository) GetSet(ctx context.Context, sourceID string, setID int) (domain.TestInfo, []domain.Question, error) {
	bank, err := r.GetBank(ctx, sourceID)
	if err != nil {
		return domain.TestInfo{}, nil, err
	}
	questions, err := FilterByGroup(bank.Questions, setID)
	if err != nil {
		return domain.TestInfo{}, nil, err
	}
	return bank.TestInfo, questions, nil
}

// GroupBy partitions questions into sets, preserving the first-seen order of
// group ids and the original order within each group.
func GroupBy(questions []domain.Question) []domain.Group {
	index := make(map[int]int)
	var groups []domain.Group
	for _, q := range questions {
		i, ok := index[q.GroupID]
		if !ok {
			i = len(groups)
			index[q.GroupID] = i
			groups = append(groups, domain.Group{ID: q.GroupID})
		}
		groups[i].Questions = append(groups[i].Questions, q)
	}
	return groups
}

// FilterByGroup returns the subsequence belonging to one group. An empty
// result is a real error: rendering an empty set helps nobody.
func FilterByGroup(questions []domain.Question, groupID int) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range questions {
		if q.GroupID == groupID {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("group %d: %w", groupID, domain.ErrSetNotFound)
	}
	return out, nil
}

// ResolveSharedContext finds the passage for a question: its own shared
// context if present, otherwise the first member of its group that carries
// one. Nil when the group has no shared context at all.
func ResolveSharedContext(question domain.Question, group []domain.Question) *string {
	if question.SharedContext != nil {
		return question.SharedContext
	}
	for _, q := range group {
		if q.GroupID == question.GroupID && q.SharedContext != nil {
			return q.SharedContext
		}
	}
	return nil
}
