// internal/channel/unbuffered.go
package channel

import "context"

// Unbuffered hands every value directly to a receiver
type Unbuffered[T any] struct {
	ch chan T
}

func NewUnbuffered[T any]() *Unbuffered[T] {
	return &Unbuffered[T]{ch: make(chan T)}
}

// Send blocks until received
func (u *Unbuffered[T]) Send(v T) {
	u.ch <- v
}

// SendContext sends v unless ctx ends first. It reports whether v was sent.
func (u *Unbuffered[T]) SendContext(ctx context.Context, v T) bool {
	return sendContext(ctx, u.ch, v)
}

func (u *Unbuffered[T]) Receive() <-chan T {
	return u.ch
}

// Len is always 0
func (u *Unbuffered[T]) Len() int {
	return 0
}

func (u *Unbuffered[T]) Close() {
	close(u.ch)
}
