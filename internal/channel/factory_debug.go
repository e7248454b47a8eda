//go:build debug

package channel

// New ignores size in debug builds so that every job is handed over
// synchronously, which makes ordering problems easier to reproduce.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
