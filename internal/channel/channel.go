// Package channel wraps Go channels behind small interfaces so that job
// queues, such as the contested locations of a batch, can switch between
// buffered and unbuffered delivery with the debug build tag.
package channel

import "context"

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
	SendContext(ctx context.Context, v T) bool
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

func sendContext[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
