package host

import "errors"

// BufferSize is the default number of frames per cycle.
const BufferSize = 512

// DefaultSampleRate is used by simulated hosts when none is configured.
const DefaultSampleRate = 48000.0

var (
	ErrServerStopped     = errors.New("server is not running")
	ErrNoSuchPort        = errors.New("no such port")
	ErrAlreadyConnected  = errors.New("the connection is already made")
	ErrPortLimit         = errors.New("port limit reached")
	ErrDuplicatePort     = errors.New("port name already in use")
	ErrIncompatiblePorts = errors.New("ports cannot be connected in this direction")
	ErrSessionClosed     = errors.New("session is closed")
	ErrDeviceBusy        = errors.New("device already in use")
)
