package graph

import "errors"

var (
	// ErrConnection means the host graph could not be reached or refused the session.
	ErrConnection = errors.New("cannot connect to the audio graph")
	// ErrPortExhausted means the host could not allocate a port.
	ErrPortExhausted = errors.New("no more ports available")
	// ErrNoPhysicalPorts means port discovery returned nothing.
	ErrNoPhysicalPorts = errors.New("no physical ports")
	// ErrConnect wraps a failed connection request; the session stays usable.
	ErrConnect = errors.New("cannot connect ports")
	// ErrActivation means the host refused to activate the session.
	ErrActivation = errors.New("cannot activate client")
	// ErrInvalidState is returned for an operation not allowed in the current lifecycle state.
	ErrInvalidState = errors.New("invalid client state")
	// ErrAlreadyInstalled is returned when a hook is bound a second time.
	ErrAlreadyInstalled = errors.New("hook already installed")
)
