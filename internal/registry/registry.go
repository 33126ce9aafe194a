// Package registry keeps the authoritative in-memory snapshot of every
// metric identity observed on the ingest path.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/sbilibin2017/promsink/internal/models"
)

// Registry is an identity-keyed set of latest metric states with ordered
// iteration. It supports many concurrent readers and a single writer; a
// snapshot never observes a partially-applied merge.
//
// Iteration order keeps the position an identity was first inserted at,
// except that an incremental merge removes the entry and reappends it at
// the end, while an absolute replacement updates it in place. That
// asymmetry determines exposition output ordering and is part of the
// merge contract.
type Registry struct {
	mu          sync.RWMutex
	entries     map[string]models.Metric
	order       []string
	lastReset   time.Time
	flushPeriod time.Duration
}

// New creates an empty registry. The reset timestamp starts at creation
// time; flushPeriod bounds how long set members accumulate before an
// incremental set merge clears them.
func New(flushPeriod time.Duration) *Registry {
	return &Registry{
		entries:     make(map[string]models.Metric),
		lastReset:   time.Now(),
		flushPeriod: flushPeriod,
	}
}

// Merge folds one update into the store.
//
// Absolute updates replace the entry for the identity outright, keeping
// its iteration position. Incremental updates are normalized to an
// absolute form, folded into the existing entry with type-specific
// addition, and reappended at the end of iteration order; when the
// existing value is a set and more than the flush period has elapsed
// since the global reset timestamp, the timestamp advances and the set's
// members are cleared before folding.
//
// A non-foldable kind combination is an upstream contract violation and
// comes back as an error.
func (r *Registry) Merge(m *models.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := m.Key()

	switch m.Kind {
	case models.Absolute:
		if _, ok := r.entries[key]; !ok {
			r.order = append(r.order, key)
		}
		r.entries[key] = m.Clone()

	case models.Incremental:
		existing, ok := r.entries[key]
		if !ok {
			normalized := m.ToAbsolute()
			r.entries[key] = normalized.Clone()
			r.order = append(r.order, key)
			return nil
		}

		r.remove(key)

		if set, isSet := existing.Value.(models.Set); isSet {
			now := time.Now()
			if now.Sub(r.lastReset) > r.flushPeriod {
				r.lastReset = now
				set.Values = make(map[string]struct{})
				existing.Value = set
			}
		}

		if err := existing.Add(m); err != nil {
			// reinsert untouched so the store stays consistent
			r.entries[key] = existing
			r.order = append(r.order, key)
			return fmt.Errorf("merge %q: %w", m.Name, err)
		}

		r.entries[key] = existing
		r.order = append(r.order, key)
	}

	return nil
}

// remove drops key from the iteration order; the caller holds the write
// lock and reinserts the entry afterwards.
func (r *Registry) remove(key string) {
	delete(r.entries, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Snapshot returns a consistent read-only view of all entries in iteration
// order. Entries are deep copies, so rendering needs no lock and later
// merges cannot mutate a snapshot already handed out.
func (r *Registry) Snapshot() []models.Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Metric, 0, len(r.order))
	for _, key := range r.order {
		entry := r.entries[key]
		out = append(out, entry.Clone())
	}
	return out
}

// Expired reports whether more than the flush period has elapsed since the
// global reset timestamp; renders use it to report set cardinality as zero.
func (r *Registry) Expired(now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return now.Sub(r.lastReset) > r.flushPeriod
}
