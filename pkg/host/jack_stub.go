//go:build !jack

package host

import (
	"errors"
	"log/slog"

	"Jacknode/pkg/graph"
)

// JACKAvailable reports whether the JACK backend is compiled in.
const JACKAvailable = false

var ErrNoJACK = errors.New("built without JACK support, rebuild with -tags jack")

type JACK struct {
	NoStartServer bool
	Logger        *slog.Logger
}

func (j *JACK) Open(name string) (graph.Conn, error) {
	return nil, ErrNoJACK
}
