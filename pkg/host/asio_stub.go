//go:build !windows

package host

import (
	"errors"

	"Jacknode/pkg/graph"
)

var ErrNoASIO = errors.New("ASIO is only available on windows")

type ASIO struct {
	DeviceName string
	SampleRate float64
	Inputs     int
	Outputs    int
	BufferSize int
}

func (a *ASIO) Open(name string) (graph.Conn, error) {
	return nil, ErrNoASIO
}
