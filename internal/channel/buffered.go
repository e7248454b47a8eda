package channel

import "context"

// Buffered queues up to its capacity before Send blocks
type Buffered[T any] struct {
	ch chan T
}

// NewBuffered creates a new buffered channel with the given size
func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{ch: make(chan T, max(size, 0))}
}

// Send blocks while the buffer is full
func (b *Buffered[T]) Send(v T) {
	b.ch <- v
}

// SendContext sends v unless ctx ends first. It reports whether v was sent.
func (b *Buffered[T]) SendContext(ctx context.Context, v T) bool {
	return sendContext(ctx, b.ch, v)
}

func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len returns the number of queued items
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

func (b *Buffered[T]) Close() {
	close(b.ch)
}
