package queue

import (
	"errors"
	"slices"
	"sync"
)

// ErrNoRound is returned when no value exists at or before a round.
var ErrNoRound = errors.New("no value recorded for round")

// RoundMap keeps one value per combat round. Lookups fall back to the latest
// earlier round, so a unit that was not reported keeps its previous state.
type RoundMap[T any] struct {
	mu     sync.RWMutex
	values map[int]T
	last   int
	any    bool
}

// NewRoundMap creates an empty map.
func NewRoundMap[T any]() *RoundMap[T] {
	return &RoundMap[T]{values: make(map[int]T)}
}

// Set stores the value of a round, replacing an earlier one.
func (m *RoundMap[T]) Set(round int, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[round] = v
	if !m.any || round > m.last {
		m.last = round
		m.any = true
	}
}

// Len returns the number of rounds with a value.
func (m *RoundMap[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// At returns the value of round, or of the closest earlier round.
func (m *RoundMap[T]) At(round int) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for r := round; r >= 0; r-- {
		if v, ok := m.values[r]; ok {
			return v, nil
		}
	}
	var zero T
	return zero, ErrNoRound
}

// Last returns the value of the highest round.
func (m *RoundMap[T]) Last() (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.any {
		var zero T
		return zero, false
	}
	return m.values[m.last], true
}

// Rounds returns the recorded rounds in ascending order.
func (m *RoundMap[T]) Rounds() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rounds := make([]int, 0, len(m.values))
	for r := range m.values {
		rounds = append(rounds, r)
	}
	slices.Sort(rounds)
	return rounds
}
