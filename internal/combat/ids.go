package combat

import "sync/atomic"

// FactionID identifies a civilization taking part in combat.
type FactionID int

// ObjectID identifies a ship or station.
type ObjectID int

// IDGenerator hands out monotonically increasing identifiers.
type IDGenerator interface {
	NextID() int
}

// SequenceIDs is an IDGenerator backed by an atomic counter.
type SequenceIDs struct {
	last atomic.Int64
}

// NewSequenceIDs creates a generator whose first id is start+1.
func NewSequenceIDs(start int) *SequenceIDs {
	s := &SequenceIDs{}
	s.last.Store(int64(start))
	return s
}

// NextID returns the next identifier.
func (s *SequenceIDs) NextID() int {
	return int(s.last.Add(1))
}
