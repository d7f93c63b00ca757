package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"golang.org/x/sync/singleflight"
)

// tallyLoadTimeout bounds a shared load, which outlives the caller that
// started it.
const tallyLoadTimeout = 10 * time.Second

type tallyEntry struct {
	counts     map[uuid.UUID]int64
	expires    time.Time
	generation uint64
}

// tallyCache keeps per-position counts for at most ttl. Every write bumps
// the position's generation when it begins and again when it ends, which
// drops the entry and keeps loads that overlapped the write from being
// stored. While a write is pending, reads go straight to the store.
type tallyCache struct {
	ttl   time.Duration
	clock clock.Clock
	group singleflight.Group

	mu          sync.Mutex
	entries     map[uuid.UUID]tallyEntry
	generations map[uuid.UUID]uint64
	pending     map[uuid.UUID]int
}

// NewTallyCache returns a pass-through cache when ttl is zero.
func NewTallyCache(ttl time.Duration, clk clock.Clock) ports.TallyCache {
	return &tallyCache{
		ttl:         ttl,
		clock:       clk,
		entries:     make(map[uuid.UUID]tallyEntry),
		generations: make(map[uuid.UUID]uint64),
		pending:     make(map[uuid.UUID]int),
	}
}

func (c *tallyCache) Get(ctx context.Context, positionID uuid.UUID, load func(ctx context.Context) (map[uuid.UUID]int64, error)) (map[uuid.UUID]int64, bool, error) {
	if c.ttl <= 0 {
		counts, err := load(ctx)
		return counts, false, err
	}

	c.mu.Lock()
	if c.pending[positionID] > 0 {
		c.mu.Unlock()
		counts, err := load(ctx)
		return counts, false, err
	}
	generation := c.generations[positionID]
	if e, ok := c.entries[positionID]; ok && e.generation == generation && c.clock.Now().Before(e.expires) {
		c.mu.Unlock()
		return copyCounts(e.counts), true, nil
	}
	c.mu.Unlock()

	key := fmt.Sprintf("%s/%d", positionID, generation)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tallyLoadTimeout)
		defer cancel()

		counts, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generations[positionID] == generation {
			c.entries[positionID] = tallyEntry{
				counts:     counts,
				expires:    c.clock.Now().Add(c.ttl),
				generation: generation,
			}
		}
		c.mu.Unlock()

		return counts, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return copyCounts(res.Val.(map[uuid.UUID]int64)), false, nil
	}
}

func (c *tallyCache) BeginWrite(positionIDs ...uuid.UUID) func() {
	if c.ttl <= 0 {
		return func() {}
	}

	c.mu.Lock()
	for _, id := range positionIDs {
		c.pending[id]++
		c.bump(id)
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for _, id := range positionIDs {
				c.pending[id]--
				if c.pending[id] <= 0 {
					delete(c.pending, id)
				}
				c.bump(id)
			}
		})
	}
}

// bump must be called with mu held.
func (c *tallyCache) bump(positionID uuid.UUID) {
	c.generations[positionID]++
	delete(c.entries, positionID)
}

func copyCounts(counts map[uuid.UUID]int64) map[uuid.UUID]int64 {
	out := make(map[uuid.UUID]int64, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return out
}
