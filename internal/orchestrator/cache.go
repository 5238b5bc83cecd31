package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/lumenpath/investigator/internal/model"
)

// queryOutcome is the memoized result of one (verifier, query) pair,
// persisted as JSON inside the run-scoped badger.DB.
type queryOutcome struct {
	Edge          *model.VerifiedEdge         `json:"edge,omitempty"`
	CoAppearances map[string]model.CoAppearance `json:"coAppearances,omitempty"`
}

// queryCache memoizes verifier calls within a single run's lifetime. It is
// backed by an in-memory badger.DB, opened fresh per run and closed on
// termination — no state crosses a run boundary, matching the Non-goal
// against cross-run persistence.
type queryCache struct {
	db *badger.DB
}

// newQueryCache opens a fresh in-memory badger.DB.
func newQueryCache() (*queryCache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: opening in-memory query cache: %w", err)
	}
	return &queryCache{db: db}, nil
}

// Close releases the badger.DB. Safe to call once at run termination.
func (c *queryCache) Close() error {
	return c.db.Close()
}

func cacheKey(subjectKey, otherKey, query string) []byte {
	return []byte(subjectKey + "\x00" + otherKey + "\x00" + query)
}

// Get returns the memoized outcome for a (subjectKey, otherKey, query)
// triple, if one was previously stored.
func (c *queryCache) Get(subjectKey, otherKey, query string) (queryOutcome, bool) {
	var out queryOutcome
	found := false
	_ = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(subjectKey, otherKey, query))
		if err != nil {
			return nil // badger.ErrKeyNotFound and anything else: cache miss
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &out); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	return out, found
}

// Set stores the outcome for a (subjectKey, otherKey, query) triple.
func (c *queryCache) Set(subjectKey, otherKey, query string, outcome queryOutcome) {
	raw, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(subjectKey, otherKey, query), raw)
	})
}
