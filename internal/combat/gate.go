package combat

import (
	"context"
	"sync"
)

// countdown is a barrier released once every expected faction arrived.
// reset rearms it for a new round.
type countdown struct {
	mu      sync.Mutex
	pending map[FactionID]struct{}
	arrived map[FactionID]struct{}
	done    chan struct{}
}

func newCountdown(parties []FactionID) *countdown {
	c := &countdown{}
	c.reset(parties)
	return c
}

func (c *countdown) reset(parties []FactionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[FactionID]struct{}, len(parties))
	for _, p := range parties {
		c.pending[p] = struct{}{}
	}
	c.arrived = make(map[FactionID]struct{}, len(parties))
	c.done = make(chan struct{})
	if len(c.pending) == 0 {
		close(c.done)
	}
}

// arrive marks id as submitted. It reports false when id already arrived
// and ErrUnknownFaction when id is not expected at all.
func (c *countdown) arrive(id FactionID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.arrived[id]; ok {
		return false, nil
	}
	if _, ok := c.pending[id]; !ok {
		return false, ErrUnknownFaction
	}
	delete(c.pending, id)
	c.arrived[id] = struct{}{}
	if len(c.pending) == 0 {
		close(c.done)
	}
	return true, nil
}

func (c *countdown) outstanding() []FactionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FactionID, 0, len(c.pending))
	for id := range c.pending {
		out = append(out, id)
	}
	return out
}

func (c *countdown) channel() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *countdown) complete() bool {
	select {
	case <-c.channel():
		return true
	default:
		return false
	}
}

// waitAll blocks until every countdown completed or ctx is done.
func waitAll(ctx context.Context, gates ...*countdown) error {
	for _, g := range gates {
		select {
		case <-g.channel():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
