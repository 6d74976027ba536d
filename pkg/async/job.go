package async

// Job calls f on its own goroutine. The channel is closed once f returns.
func Job(f func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	return done
}

// Run calls f on its own goroutine and delivers its result exactly once.
func Run[T any](f func() T) <-chan T {
	result := make(chan T, 1)
	go func() {
		result <- f()
	}()
	return result
}
