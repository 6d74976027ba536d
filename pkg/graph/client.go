package graph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"Jacknode/pkg/processor"
)

// State is the lifecycle state of a client session.
type State int32

const (
	StateCreated State = iota
	StateOpen
	StateConfigured
	StateRunning
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpen:
		return "open"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Port is a port owned by a Client.
type Port struct {
	short string
	dir   Direction
	hp    HostPort
}

func (p *Port) Name() string         { return p.hp.Name() }
func (p *Port) ShortName() string    { return p.short }
func (p *Port) Direction() Direction { return p.dir }

// Client drives one session on a Host.
//
// All methods are meant for the control context. Once running, the host calls back into
// the installed processor from its realtime context; that path only reads fields that
// were fixed before Activate.
type Client struct {
	host  Host
	conn  Conn
	state atomic.Int32

	mu         sync.Mutex
	name       string
	sampleRate float64
	ports      []*Port
	input      *Port // bound to the processor input
	output     *Port // bound to the processor output
	processor  processor.Processor
	hooked     bool
}

func NewClient(host Host) *Client {
	return &Client{host: host}
}

// Open creates a client and opens a session named name on host.
func Open(host Host, name string) (*Client, error) {
	c := NewClient(host)
	if err := c.Open(name); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Open(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.State(); s != StateCreated {
		return fmt.Errorf("%w: open while %s", ErrInvalidState, s)
	}

	conn, err := c.host.Open(name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	c.conn = conn
	c.name = conn.Name()
	c.sampleRate = conn.SampleRate()
	c.setState(StateOpen)
	return nil
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// Name is the session name assigned by the host, which may differ from the requested one.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) SampleRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleRate
}

func (c *Client) BufferSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return 0
	}
	return c.conn.BufferSize()
}

func (c *Client) Ports() []*Port {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Port(nil), c.ports...)
}

func (c *Client) configurable() error {
	switch s := c.State(); s {
	case StateOpen, StateConfigured:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidState, s)
	}
}

// the session is configured once it has a port and a processor
func (c *Client) updateConfigured() {
	if len(c.ports) > 0 && c.processor != nil {
		c.setState(StateConfigured)
	}
}

// RegisterPort creates a port. The first port of each direction feeds the processor.
func (c *Client) RegisterPort(shortName string, dir Direction) (*Port, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.configurable(); err != nil {
		return nil, fmt.Errorf("register port %q: %w", shortName, err)
	}

	hp, err := c.conn.RegisterPort(shortName, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPortExhausted, shortName, err)
	}

	port := &Port{short: shortName, dir: dir, hp: hp}
	c.ports = append(c.ports, port)
	switch {
	case dir == Input && c.input == nil:
		c.input = port
	case dir == Output && c.output == nil:
		c.output = port
	}
	c.updateConfigured()
	return port, nil
}

// InstallProcessor binds the per-cycle processor. It can be done once per session.
func (c *Client) InstallProcessor(p processor.Processor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.configurable(); err != nil {
		return fmt.Errorf("install processor: %w", err)
	}
	if c.processor != nil {
		return fmt.Errorf("install processor: %w", ErrAlreadyInstalled)
	}
	if p == nil {
		return fmt.Errorf("install processor: nil processor")
	}

	if err := c.conn.SetProcessCallback(c.cycle); err != nil {
		return fmt.Errorf("install processor: %w", err)
	}
	c.processor = p
	c.updateConfigured()
	return nil
}

// InstallShutdownHook binds the function the host calls when it shuts the session down.
// The hook runs in a restricted context: it must not block.
func (c *Client) InstallShutdownHook(hook func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.configurable(); err != nil {
		return fmt.Errorf("install shutdown hook: %w", err)
	}
	if c.hooked {
		return fmt.Errorf("install shutdown hook: %w", ErrAlreadyInstalled)
	}
	if hook == nil {
		return fmt.Errorf("install shutdown hook: nil hook")
	}

	c.conn.OnShutdown(hook)
	c.hooked = true
	return nil
}

// Activate asks the host to start calling the processor.
func (c *Client) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.State(); s != StateConfigured {
		return fmt.Errorf("%w: activate while %s", ErrInvalidState, s)
	}
	if err := c.conn.Activate(); err != nil {
		return fmt.Errorf("%w: %w", ErrActivation, err)
	}
	c.setState(StateRunning)
	return nil
}

// cycle runs in the realtime context.
func (c *Client) cycle(nframes int) {
	var in, out []float32
	if c.input != nil {
		in = c.input.hp.Buffer(nframes)
	}
	if c.output != nil {
		out = c.output.hp.Buffer(nframes)
	}
	c.processor.Process(in, out)
}

func (c *Client) open() error {
	switch s := c.State(); s {
	case StateOpen, StateConfigured, StateRunning:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidState, s)
	}
}

// PhysicalPorts lists the hardware ports of direction dir exposed by the host:
// Input gives playback ports, Output gives capture ports.
func (c *Client) PhysicalPorts(dir Direction) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.open(); err != nil {
		return nil, err
	}
	ports, err := c.conn.Ports(dir, true)
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPhysicalPorts, dir)
	}
	return ports, nil
}

// Connect requests a connection from src to dst. A failure leaves the session usable.
func (c *Client) Connect(src, dst string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.open(); err != nil {
		return fmt.Errorf("%w %s -> %s: %w", ErrConnect, src, dst, err)
	}
	if err := c.conn.Connect(src, dst); err != nil {
		return fmt.Errorf("%w %s -> %s: %w", ErrConnect, src, dst, err)
	}
	return nil
}

// Close detaches the hooks, releases the ports and ends the session.
// Closing a closed client does nothing.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateClosed:
		return nil
	case StateCreated:
		c.setState(StateClosed)
		return nil
	}

	c.setState(StateShuttingDown)
	err := c.conn.Close()

	// the host no longer runs cycles once the session is closed
	c.ports = nil
	c.input = nil
	c.output = nil
	c.processor = nil
	c.setState(StateClosed)

	if err != nil {
		return fmt.Errorf("close %s: %w", c.name, err)
	}
	return nil
}
