//go:build jack

package host

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"unsafe"

	"Jacknode/pkg/graph"

	"github.com/xthexder/go-jack"
)

// JACKAvailable reports whether the JACK backend is compiled in.
const JACKAvailable = true

// JACK opens sessions on a JACK server through libjack.
type JACK struct {
	NoStartServer bool         // fail instead of starting a server
	Logger        *slog.Logger // slog.Default() when nil
}

type jackConn struct {
	client *jack.Client
	logger *slog.Logger
	once   sync.Once
	xruns  atomic.Uint64
}

type jackPort struct {
	port *jack.Port
}

func (j *JACK) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *JACK) Open(name string) (graph.Conn, error) {
	logger := j.logger()
	jack.SetErrorFunction(func(msg string) { logger.Error(msg, "source", "jack") })
	jack.SetInfoFunction(func(msg string) { logger.Debug(msg, "source", "jack") })

	options := jack.NullOption
	if j.NoStartServer {
		options = jack.NoStartServer
	}
	client, status := jack.ClientOpen(name, options)
	if client == nil {
		err := fmt.Errorf("jack_client_open() failed, status = %#x", status)
		if status&jack.ServerFailed != 0 {
			err = fmt.Errorf("%w: unable to connect to JACK server", err)
		}
		return nil, err
	}
	if status&jack.ServerStarted != 0 {
		logger.Info("JACK server started")
	}

	c := &jackConn{client: client, logger: logger}
	client.SetXRunCallback(func() int {
		c.xruns.Add(1)
		return 0
	})
	return c, nil
}

func jackError(code int) error {
	return jack.StrError(code)
}

func (c *jackConn) Name() string        { return c.client.GetName() }
func (c *jackConn) SampleRate() float64 { return float64(c.client.GetSampleRate()) }
func (c *jackConn) BufferSize() int     { return int(c.client.GetBufferSize()) }

func (c *jackConn) RegisterPort(short string, dir graph.Direction) (graph.HostPort, error) {
	flags := uint64(jack.PortIsInput)
	if dir == graph.Output {
		flags = uint64(jack.PortIsOutput)
	}
	p := c.client.PortRegister(short, jack.DEFAULT_AUDIO_TYPE, flags, 0)
	if p == nil {
		return nil, errors.New("no more JACK ports available")
	}
	return &jackPort{port: p}, nil
}

func (c *jackConn) SetProcessCallback(f func(nframes int)) error {
	return jackError(c.client.SetProcessCallback(func(nframes uint32) int {
		f(int(nframes))
		return 0
	}))
}

func (c *jackConn) OnShutdown(f func()) {
	c.client.OnShutdown(f)
}

func (c *jackConn) Activate() error {
	return jackError(c.client.Activate())
}

func (c *jackConn) Ports(dir graph.Direction, physical bool) ([]string, error) {
	flags := uint64(jack.PortIsInput)
	if dir == graph.Output {
		flags = uint64(jack.PortIsOutput)
	}
	if physical {
		flags |= uint64(jack.PortIsPhysical)
	}
	return c.client.GetPorts("", jack.DEFAULT_AUDIO_TYPE, flags), nil
}

func (c *jackConn) Connect(src, dst string) error {
	return jackError(c.client.Connect(src, dst))
}

func (c *jackConn) Close() error {
	var err error
	c.once.Do(func() {
		if n := c.xruns.Load(); n > 0 {
			c.logger.Debug("session closed", "xruns", n)
		}
		err = jackError(c.client.Close())
	})
	return err
}

func (p *jackPort) Name() string { return p.port.GetName() }

func (p *jackPort) Buffer(nframes int) []float32 {
	samples := p.port.GetBuffer(uint32(nframes))
	if len(samples) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&samples[0])), len(samples))
}
