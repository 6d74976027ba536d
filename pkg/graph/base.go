package graph

// Direction of a port, seen from the client that owns it.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// Opposite returns the direction a peer port needs in order to be connected to a port of direction d.
func (d Direction) Opposite() Direction {
	if d == Input {
		return Output
	}
	return Input
}

// AudioType is the only payload type carried by ports: single-channel 32-bit float samples.
const AudioType = "32 bit float mono audio"

// Host is the audio graph service the client negotiates with.
type Host interface {
	// Open requests a session. The host may rename the session when name is taken.
	Open(name string) (Conn, error)
}

// Conn is one open session on the host.
type Conn interface {
	Name() string
	SampleRate() float64
	BufferSize() int

	RegisterPort(shortName string, dir Direction) (HostPort, error)

	// SetProcessCallback binds the per-cycle hook, called from the realtime context.
	SetProcessCallback(func(nframes int)) error
	// OnShutdown binds the hook called when the host terminates or evicts the session.
	OnShutdown(func())

	Activate() error

	// Ports lists the full names of the ports of the given direction, optionally physical only.
	Ports(dir Direction, physical bool) ([]string, error)
	Connect(src, dst string) error

	// Close releases the session. Calling it more than once is allowed.
	Close() error
}

// HostPort is a port registered on the host.
type HostPort interface {
	Name() string
	// Buffer returns the cycle-local samples of the port. It must not allocate.
	Buffer(nframes int) []float32
}
