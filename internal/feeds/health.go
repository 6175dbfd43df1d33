package feeds

import (
	"sort"
	"sync"
	"time"

	"github.com/irfndi/mto-floor-go/internal/models"
)

type healthKey struct {
	source models.SourceTag
	sport  models.Sport
}

// HealthRegistry keeps the last observed health per (source, sport). It is
// observability state only.
type HealthRegistry struct {
	mu      sync.RWMutex
	entries map[healthKey]models.FeedHealth
	now     func() time.Time
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{
		entries: make(map[healthKey]models.FeedHealth),
		now:     time.Now,
	}
}

// Record stores the outcome of a fetch and returns the new snapshot.
func (r *HealthRegistry) Record(source models.SourceTag, sport models.Sport, count int, err error) models.FeedHealth {
	h := models.FeedHealth{
		Source:        source,
		Sport:         sport,
		OK:            err == nil,
		LastError:     Tag(err),
		LastCheckedAt: r.now().UTC(),
		LastCount:     count,
	}

	r.mu.Lock()
	r.entries[healthKey{source, sport}] = h
	r.mu.Unlock()
	return h
}

// Get returns the last health for (source, sport).
func (r *HealthRegistry) Get(source models.SourceTag, sport models.Sport) (models.FeedHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.entries[healthKey{source, sport}]
	return h, ok
}

// Snapshot returns every entry ordered by source then sport.
func (r *HealthRegistry) Snapshot() []models.FeedHealth {
	r.mu.RLock()
	out := make([]models.FeedHealth, 0, len(r.entries))
	for _, h := range r.entries {
		out = append(out, h)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Sport < out[j].Sport
	})
	return out
}
