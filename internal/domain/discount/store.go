package discount

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/cache"
)

const (
	activeRulesCacheKey = "active_discount_rules"
	activeRulesCacheTTL = 5 * time.Minute
)

// Store serves the prioritized active rule set with a short-lived cache.
// Rule mutations must call Invalidate so readers observe the change
// immediately instead of waiting out the TTL.
type Store struct {
	repo  Repository
	cache cache.Cache
}

// NewStore creates a Store backed by the given repository and cache handle.
func NewStore(repo Repository, c cache.Cache) *Store {
	return &Store{repo: repo, cache: c}
}

// ActiveRules returns all active rules sorted by priority descending, ties
// broken by ascending creation time. Results are cached for five minutes;
// a cache miss recomputes from the repository and repopulates.
func (s *Store) ActiveRules(ctx context.Context) ([]Rule, error) {
	if v, ok := s.cache.Get(activeRulesCacheKey); ok {
		if rules, ok := v.([]Rule); ok {
			return rules, nil
		}
	}

	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active rules")
	}

	// The repository already orders results, but the sort contract is the
	// engine's correctness foundation, so enforce it here as well.
	slices.SortStableFunc(rules, func(a, b Rule) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	s.cache.Set(activeRulesCacheKey, rules, activeRulesCacheTTL)
	return rules, nil
}

// Invalidate drops the cached rule set. Called on every rule create, update,
// or delete.
func (s *Store) Invalidate() {
	s.cache.Delete(activeRulesCacheKey)
}
