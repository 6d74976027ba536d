//go:build windows

package host

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"Jacknode/pkg/graph"

	"github.com/xsjk/go-asio"
)

// ASIO exposes one ASIO driver as a single-session host. Device channels show
// up as the physical ports system:capture_N and system:playback_N.
type ASIO struct {
	DeviceName string
	SampleRate float64 // driver default when 0
	Inputs     int     // device input channels published as capture ports
	Outputs    int     // device output channels published as playback ports
	BufferSize int     // frames handed to the processor per call, BufferSize when 0

	mu   sync.Mutex
	conn *asioConn
}

// routing maps device channels to session ports. It is replaced, never mutated.
type routing struct {
	inputs  []*asioPort
	outputs []*asioPort
	capture map[*asioPort][]int // input port -> device input channels
	play    [][]*asioPort       // device output channel -> output ports
}

type asioPort struct {
	name string
	dir  graph.Direction
	buf  []float32
}

type asioConn struct {
	host       *ASIO
	device     asio.Device
	name       string
	sampleRate float64
	bufferSize int
	mix        []float32

	mu       sync.Mutex
	ports    []*asioPort
	route    atomic.Pointer[routing]
	process  func(int)
	shutdown func()
	started  bool
	closed   bool
}

func (a *ASIO) Open(name string) (graph.Conn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil && !a.conn.isClosed() {
		return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, a.conn.name)
	}

	c := &asioConn{host: a, name: name, bufferSize: a.BufferSize}
	if c.bufferSize == 0 {
		c.bufferSize = BufferSize
	}
	if err := c.device.Load(a.DeviceName); err != nil {
		return nil, err
	}
	if a.SampleRate != 0 {
		if err := c.device.SetSampleRate(a.SampleRate); err != nil {
			c.device.Unload()
			return nil, err
		}
	}
	rate, err := c.device.GetSampleRate()
	if err != nil {
		c.device.Unload()
		return nil, err
	}
	c.sampleRate = rate
	if err := c.device.Open(); err != nil {
		c.device.Unload()
		return nil, err
	}

	c.mix = make([]float32, c.bufferSize)
	c.route.Store(&routing{capture: map[*asioPort][]int{}, play: make([][]*asioPort, a.Outputs)})
	a.conn = c
	return c, nil
}

func (c *asioConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *asioConn) Name() string        { return c.name }
func (c *asioConn) SampleRate() float64 { return c.sampleRate }
func (c *asioConn) BufferSize() int     { return c.bufferSize }

func (c *asioConn) RegisterPort(short string, dir graph.Direction) (graph.HostPort, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrSessionClosed
	}
	name := c.name + ":" + short
	if slices.ContainsFunc(c.ports, func(p *asioPort) bool { return p.name == name }) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePort, name)
	}
	p := &asioPort{name: name, dir: dir, buf: make([]float32, c.bufferSize)}
	c.ports = append(c.ports, p)

	r := c.route.Load().clone()
	if dir == graph.Input {
		r.inputs = append(r.inputs, p)
	} else {
		r.outputs = append(r.outputs, p)
	}
	c.route.Store(r)
	return p, nil
}

func (c *asioConn) SetProcessCallback(f func(nframes int)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("process callback set after activation")
	}
	c.process = f
	return nil
}

// OnShutdown stores the hook. ASIO drivers never evict a session, so it is not called.
func (c *asioConn) OnShutdown(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = f
}

func (c *asioConn) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionClosed
	}
	if c.started {
		return nil
	}
	if err := c.device.Start(c.update); err != nil {
		return err
	}
	c.started = true
	return nil
}

// update runs on the driver thread for every buffer switch.
func (c *asioConn) update(in, out [][]int32) {
	r := c.route.Load()
	nframes := 0
	if len(out) > 0 {
		nframes = len(out[0])
	} else if len(in) > 0 {
		nframes = len(in[0])
	}

	for off := 0; off < nframes; off += c.bufferSize {
		m := min(c.bufferSize, nframes-off)

		for _, p := range r.inputs {
			buf := p.buf[:m]
			clear(buf)
			for _, ch := range r.capture[p] {
				if ch < len(in) {
					Int32ToFloat32(c.mix[:m], in[ch][off:off+m])
					sumf32(buf, c.mix[:m], buf)
				}
			}
		}

		if c.process != nil {
			c.process(m)
		} else {
			for _, p := range r.outputs {
				clear(p.buf[:m])
			}
		}

		for ch := range out {
			mix := c.mix[:m]
			clear(mix)
			if ch < len(r.play) {
				for _, p := range r.play[ch] {
					sumf32(mix, p.buf[:m], mix)
				}
			}
			Float32ToInt32(out[ch][off:off+m], mix)
		}
	}
}

func (c *asioConn) Ports(dir graph.Direction, physical bool) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var names []string
	if dir == graph.Output {
		for i := 1; i <= c.host.Inputs; i++ {
			names = append(names, fmt.Sprintf("system:capture_%d", i))
		}
	} else {
		for i := 1; i <= c.host.Outputs; i++ {
			names = append(names, fmt.Sprintf("system:playback_%d", i))
		}
	}
	if !physical {
		for _, p := range c.ports {
			if p.dir == dir {
				names = append(names, p.name)
			}
		}
	}
	return names, nil
}

func physicalChannel(name, prefix string, count int) (int, bool) {
	var ch int
	if _, err := fmt.Sscanf(name, prefix+"%d", &ch); err != nil || ch < 1 || ch > count {
		return 0, false
	}
	return ch - 1, true
}

func (c *asioConn) Connect(src, dst string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrSessionClosed
	}
	find := func(name string, dir graph.Direction) *asioPort {
		for _, p := range c.ports {
			if p.name == name && p.dir == dir {
				return p
			}
		}
		return nil
	}

	r := c.route.Load().clone()
	if ch, ok := physicalChannel(src, "system:capture_", c.host.Inputs); ok {
		p := find(dst, graph.Input)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrNoSuchPort, dst)
		}
		if slices.Contains(r.capture[p], ch) {
			return fmt.Errorf("%w: %s -> %s", ErrAlreadyConnected, src, dst)
		}
		r.capture[p] = append(slices.Clone(r.capture[p]), ch)
	} else if ch, ok := physicalChannel(dst, "system:playback_", c.host.Outputs); ok {
		p := find(src, graph.Output)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrNoSuchPort, src)
		}
		if slices.Contains(r.play[ch], p) {
			return fmt.Errorf("%w: %s -> %s", ErrAlreadyConnected, src, dst)
		}
		r.play[ch] = append(slices.Clone(r.play[ch]), p)
	} else {
		return fmt.Errorf("%w: %s -> %s", ErrNoSuchPort, src, dst)
	}
	c.route.Store(r)
	return nil
}

func (c *asioConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	var err error
	if c.started {
		err = c.device.Stop()
	}
	if cerr := c.device.Close(); err == nil {
		err = cerr
	}
	c.device.Unload()
	c.ports = nil
	return err
}

func (r *routing) clone() *routing {
	return &routing{
		inputs:  slices.Clone(r.inputs),
		outputs: slices.Clone(r.outputs),
		capture: maps.Clone(r.capture),
		play:    slices.Clone(r.play),
	}
}

func (p *asioPort) Name() string { return p.name }

func (p *asioPort) Buffer(nframes int) []float32 {
	return p.buf[:min(nframes, len(p.buf))]
}
