package host

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"Jacknode/pkg/graph"
)

// Network is an in-process audio graph. It owns a pseudo client "system" with
// physical capture and playback ports, and drives registered sessions in
// activation order once per cycle.
type Network struct {
	SampleRate float64 // the fake sample rate, DefaultSampleRate when 0
	BufferSize int     // frames per cycle, BufferSize when 0
	Capture    int     // number of physical capture ports
	Playback   int     // number of physical playback ports
	MaxPorts   int     // ports per session, 0 means no limit
	Manual     bool    // cycles only run through Cycle

	Source     func(channel int, buf []float32) // fills physical capture port channel, silence when nil
	LateUpdate func()                           // the post process function

	once     sync.Once
	mu       sync.Mutex
	stopped  bool
	sessions map[string]*networkSession
	order    []*networkSession
	ports    []*networkPort
	capture  []*networkPort
	playback []*networkPort
	done     chan struct{}
	cycles   int
}

type networkPort struct {
	name     string
	dir      graph.Direction
	physical bool
	owner    *networkSession
	buf      []float32
	sources  []*networkPort
}

type networkSession struct {
	*Network
	name     string
	ports    []*networkPort
	process  func(int)
	shutdown func()
	active   bool
	closed   bool
}

func (n *Network) init() {
	n.once.Do(func() {
		if n.SampleRate == 0 {
			n.SampleRate = DefaultSampleRate
		}
		if n.BufferSize == 0 {
			n.BufferSize = BufferSize
		}
		n.sessions = make(map[string]*networkSession)
		system := &networkSession{Network: n, name: "system"}
		n.sessions[system.name] = system
		for i := 1; i <= n.Capture; i++ {
			p := n.addPort(system, fmt.Sprintf("capture_%d", i), graph.Output)
			p.physical = true
			n.capture = append(n.capture, p)
		}
		for i := 1; i <= n.Playback; i++ {
			p := n.addPort(system, fmt.Sprintf("playback_%d", i), graph.Input)
			p.physical = true
			n.playback = append(n.playback, p)
		}
	})
}

func (n *Network) addPort(s *networkSession, short string, dir graph.Direction) *networkPort {
	p := &networkPort{
		name:  s.name + ":" + short,
		dir:   dir,
		owner: s,
		buf:   make([]float32, n.BufferSize),
	}
	s.ports = append(s.ports, p)
	n.ports = append(n.ports, p)
	return p
}

func (n *Network) port(name string) *networkPort {
	for _, p := range n.ports {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Open creates a session. Taken names get a "-NN" suffix.
func (n *Network) Open(name string) (graph.Conn, error) {
	n.init()
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopped {
		return nil, ErrServerStopped
	}
	unique := name
	for i := 1; n.sessions[unique] != nil; i++ {
		unique = fmt.Sprintf("%s-%02d", name, i)
	}
	s := &networkSession{Network: n, name: unique}
	n.sessions[unique] = s
	return s, nil
}

// Cycle runs one processing cycle: fills the physical capture ports, runs the
// active sessions in activation order and mixes the physical playback ports.
// Data sent to a session activated earlier arrives on the next cycle.
func (n *Network) Cycle() {
	n.init()
	n.mu.Lock()
	if !n.stopped {
		n.update()
	}
	n.mu.Unlock()

	if n.LateUpdate != nil {
		n.LateUpdate()
	}
}

func (n *Network) update() {
	for i, p := range n.capture {
		if n.Source != nil {
			n.Source(i, p.buf)
		} else {
			clear(p.buf)
		}
	}

	for _, s := range n.order {
		if s.process == nil {
			continue
		}
		for _, p := range s.ports {
			if p.dir == graph.Input {
				p.mix()
			}
		}
		s.process(n.BufferSize)
	}

	for _, p := range n.playback {
		p.mix()
	}
	n.cycles++
}

func (p *networkPort) Name() string { return p.name }

func (p *networkPort) Buffer(nframes int) []float32 {
	if nframes > len(p.buf) {
		nframes = len(p.buf)
	}
	return p.buf[:nframes]
}

// sum up the output of all the sources to the input buffer
func (p *networkPort) mix() {
	clear(p.buf)
	for _, src := range p.sources {
		sumf32(p.buf, src.buf, p.buf)
	}
}

// Cycles reports how many cycles have run.
func (n *Network) Cycles() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cycles
}

// Peek returns a copy of the current samples of a port.
func (n *Network) Peek(name string) []float32 {
	n.init()
	n.mu.Lock()
	defer n.mu.Unlock()
	if p := n.port(name); p != nil {
		return slices.Clone(p.buf)
	}
	return nil
}

// Connections lists the sources connected to the port named dst.
func (n *Network) Connections(dst string) []string {
	n.init()
	n.mu.Lock()
	defer n.mu.Unlock()
	var names []string
	if p := n.port(dst); p != nil {
		for _, src := range p.sources {
			names = append(names, src.name)
		}
	}
	return names
}

func (n *Network) start() {
	done := make(chan struct{})
	n.done = done
	go func() {
		period := time.Duration(float64(n.BufferSize) / n.SampleRate * float64(time.Second))
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				n.Cycle()
			}
		}
	}()
}

// Stop halts the cycle driver without notifying the sessions.
func (n *Network) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.done != nil {
		close(n.done)
		n.done = nil
	}
}

// Shutdown simulates the server going away: cycles stop, every open session
// gets its shutdown hook called and later Opens fail.
func (n *Network) Shutdown() {
	n.init()
	n.Stop()

	n.mu.Lock()
	n.stopped = true
	var hooks []func()
	for _, s := range n.sessions {
		if s.shutdown != nil && !s.closed {
			hooks = append(hooks, s.shutdown)
		}
	}
	n.mu.Unlock()

	for _, h := range hooks {
		h()
	}
}

func (s *networkSession) Name() string        { return s.name }
func (s *networkSession) SampleRate() float64 { return s.Network.SampleRate }
func (s *networkSession) BufferSize() int     { return s.Network.BufferSize }

func (s *networkSession) RegisterPort(short string, dir graph.Direction) (graph.HostPort, error) {
	n := s.Network
	n.mu.Lock()
	defer n.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if n.MaxPorts > 0 && len(s.ports) >= n.MaxPorts {
		return nil, fmt.Errorf("%w: %d", ErrPortLimit, n.MaxPorts)
	}
	if n.port(s.name+":"+short) != nil {
		return nil, fmt.Errorf("%w: %s:%s", ErrDuplicatePort, s.name, short)
	}
	return n.addPort(s, short, dir), nil
}

func (s *networkSession) SetProcessCallback(f func(nframes int)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.process = f
	return nil
}

func (s *networkSession) OnShutdown(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = f
}

func (s *networkSession) Activate() error {
	n := s.Network
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopped {
		return ErrServerStopped
	}
	if s.closed {
		return ErrSessionClosed
	}
	if s.active {
		return nil
	}
	s.active = true
	n.order = append(n.order, s)
	if !n.Manual && n.done == nil {
		n.start()
	}
	return nil
}

func (s *networkSession) Ports(dir graph.Direction, physical bool) ([]string, error) {
	n := s.Network
	n.mu.Lock()
	defer n.mu.Unlock()

	var names []string
	for _, p := range n.ports {
		if p.dir == dir && (!physical || p.physical) {
			names = append(names, p.name)
		}
	}
	return names, nil
}

func (s *networkSession) Connect(src, dst string) error {
	n := s.Network
	n.mu.Lock()
	defer n.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	from, to := n.port(src), n.port(dst)
	if from == nil {
		return fmt.Errorf("%w: %s", ErrNoSuchPort, src)
	}
	if to == nil {
		return fmt.Errorf("%w: %s", ErrNoSuchPort, dst)
	}
	if from.dir != graph.Output || to.dir != graph.Input {
		return fmt.Errorf("%w: %s -> %s", ErrIncompatiblePorts, src, dst)
	}
	if slices.Contains(to.sources, from) {
		return fmt.Errorf("%w: %s -> %s", ErrAlreadyConnected, src, dst)
	}
	to.sources = append(to.sources, from)
	return nil
}

// Close unregisters the ports of the session and drops its connections. Once
// it returns the session is never processed again.
func (s *networkSession) Close() error {
	n := s.Network
	n.mu.Lock()
	defer n.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.process = nil
	s.shutdown = nil

	n.ports = slices.DeleteFunc(n.ports, func(p *networkPort) bool { return p.owner == s })
	for _, p := range n.ports {
		p.sources = slices.DeleteFunc(p.sources, func(src *networkPort) bool { return src.owner == s })
	}
	n.order = slices.DeleteFunc(n.order, func(o *networkSession) bool { return o == s })
	delete(n.sessions, s.name)
	s.ports = nil
	return nil
}
