package async

import "sync"

// Signal is a one-shot broadcast. Notifying closes the channel returned by Signal,
// so every current and future receiver wakes up. The carried value is read
// through Wait or Value, never from the channel.
type Signal[T any] struct {
	once  sync.Once
	ch    chan struct{}
	value T
}

func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{ch: make(chan struct{})}
}

// Notify fires the signal with the zero value. It reports whether this call fired it.
func (s *Signal[T]) Notify() bool {
	var zero T
	return s.NotifyValue(zero)
}

// NotifyValue fires the signal carrying value. Only the first notification counts.
func (s *Signal[T]) NotifyValue(value T) bool {
	fired := false
	s.once.Do(func() {
		s.value = value
		close(s.ch)
		fired = true
	})
	return fired
}

func (s *Signal[T]) Signal() <-chan struct{} {
	return s.ch
}

// Wait blocks until the signal fires and returns its value.
func (s *Signal[T]) Wait() T {
	<-s.ch
	return s.value
}

// Value returns the carried value and whether the signal has fired.
func (s *Signal[T]) Value() (T, bool) {
	select {
	case <-s.ch:
		return s.value, true
	default:
		var zero T
		return zero, false
	}
}
