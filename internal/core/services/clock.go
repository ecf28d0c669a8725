package services

import (
	"sync"
	"time"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

// checkpointClock hands out checkpoint IDs that sort in creation order.
// Two calls within the same microsecond would format identically, so the
// clock advances by one microsecond whenever time has not moved on.
type checkpointClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newCheckpointClock(now func() time.Time) *checkpointClock {
	if now == nil {
		now = time.Now
	}
	return &checkpointClock{now: now}
}

// Next returns the next timestamp and its formatted checkpoint ID.
func (c *checkpointClock) Next() (time.Time, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t, t.Format(domain.CheckpointIDLayout)
}

// Observe moves the clock past an ID loaded from storage, so new checkpoints
// always sort after existing ones even if the wall clock went backwards.
func (c *checkpointClock) Observe(id string) {
	t, err := time.Parse(domain.CheckpointIDLayout, id)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.last) {
		c.last = t.UTC()
	}
}
