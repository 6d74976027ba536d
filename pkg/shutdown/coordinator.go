package shutdown

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"Jacknode/pkg/async"
)

type State uint32

const (
	Running State = iota
	ShuttingDown
	Closed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting down"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Cause records what moved the coordinator out of Running.
type Cause uint32

const (
	CauseNone Cause = iota
	CauseHost
	CauseInterrupt
	CauseCanceled
)

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseHost:
		return "host shutdown"
	case CauseInterrupt:
		return "interrupt"
	case CauseCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// state in the low byte, cause above it: a trigger is one compare-and-swap
const (
	stateMask  = 0xff
	causeShift = 8
)

func pack(s State, c Cause) uint32 {
	return uint32(s) | uint32(c)<<causeShift
}

const DefaultPollInterval = time.Second

type Closer interface {
	Close() error
}

// Coordinator reconciles shutdown requests coming from restricted contexts
// (signal delivery, the host's shutdown callback) with the control context.
//
// Triggers only write the atomic word. The control context observes it in Wait
// and closes the session exactly once.
type Coordinator struct {
	word     atomic.Uint32
	closer   Closer
	interval time.Duration

	once     sync.Once
	closeErr error
	closed   *async.Signal[Cause]
}

func New(closer Closer, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Coordinator{
		closer:   closer,
		interval: interval,
		closed:   async.NewSignal[Cause](),
	}
}

// Attach sets the session closed by Wait. It must be called from the goroutine
// that calls Wait, before Wait.
func (c *Coordinator) Attach(closer Closer) {
	c.closer = closer
}

func (c *Coordinator) trigger(cause Cause) bool {
	return c.word.CompareAndSwap(pack(Running, CauseNone), pack(ShuttingDown, cause))
}

// HostShutdown is meant to be installed as the session's shutdown hook.
func (c *Coordinator) HostShutdown() {
	c.trigger(CauseHost)
}

// Interrupt records a user interrupt. It is safe to call from a signal forwarding goroutine.
func (c *Coordinator) Interrupt() {
	c.trigger(CauseInterrupt)
}

func (c *Coordinator) State() State {
	return State(c.word.Load() & stateMask)
}

func (c *Coordinator) Cause() Cause {
	return Cause(c.word.Load() >> causeShift)
}

func (c *Coordinator) Interval() time.Duration {
	return c.interval
}

// Done is closed once the session has been closed. Cause reports why.
func (c *Coordinator) Done() <-chan struct{} {
	return c.closed.Signal()
}

// Wait polls the shutdown word every interval. Once a trigger is observed it closes the
// session, marks the coordinator Closed and returns the cause with the close error.
// Canceling ctx counts as an interrupt.
func (c *Coordinator) Wait(ctx context.Context) (Cause, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if word := c.word.Load(); State(word&stateMask) != Running {
			return c.finish(Cause(word >> causeShift))
		}
		select {
		case <-ctx.Done():
			c.trigger(CauseCanceled)
		case <-ticker.C:
		case <-c.closed.Signal():
		}
	}
}

func (c *Coordinator) finish(cause Cause) (Cause, error) {
	c.once.Do(func() {
		if c.closer != nil {
			c.closeErr = c.closer.Close()
		}
		c.word.Store(pack(Closed, cause))
		c.closed.NotifyValue(cause)
	})
	return c.closed.Wait(), c.closeErr
}
