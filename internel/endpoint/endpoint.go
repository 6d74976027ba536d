package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"Jacknode/internel/config"
	"Jacknode/pkg/async"
	"Jacknode/pkg/graph"
	"Jacknode/pkg/oscillator"
	"Jacknode/pkg/processor"
	"Jacknode/pkg/rt"
	"Jacknode/pkg/shutdown"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

// DefaultFrequency is the tone played when no frequency is given.
const DefaultFrequency = 440.0

var ErrInvalidFrequency = errors.New("frequency must be a positive finite number")

// Node is one endpoint program: a single client with an optional input port
// and one output port.
type Node struct {
	Endpoint config.Endpoint

	// Input registers an input port fed from the first physical capture port.
	Input bool
	// Processor builds the per-cycle processor once the sample rate is known.
	Processor func(sampleRate float64) (processor.Processor, error)
	// HostShutdownCode is returned when the host ends the session.
	HostShutdownCode int
	// Enter, when set, interrupts the node once it fires.
	Enter <-chan struct{}

	Logger *slog.Logger
}

func Passthrough(endpoint config.Endpoint) *Node {
	return &Node{
		Endpoint: endpoint,
		Input:    true,
		Processor: func(float64) (processor.Processor, error) {
			return processor.Passthrough{}, nil
		},
		HostShutdownCode: ExitFailure,
	}
}

func Sine(endpoint config.Endpoint, frequency float64) *Node {
	return &Node{
		Endpoint: endpoint,
		Processor: func(sampleRate float64) (processor.Processor, error) {
			state, err := oscillator.New(frequency, sampleRate)
			if err != nil {
				return nil, err
			}
			return processor.NewOscillator(state), nil
		},
		HostShutdownCode: ExitOK,
	}
}

// ParseFrequency reads the optional frequency argument.
func ParseFrequency(args []string) (float64, error) {
	switch len(args) {
	case 0:
		return DefaultFrequency, nil
	case 1:
	default:
		return 0, fmt.Errorf("too many arguments: %q", args[1:])
	}
	f, err := strconv.ParseFloat(args[0], 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, args[0])
	}
	return f, nil
}

// RunPassthrough mirrors the first physical capture port to the configured outputs.
func RunPassthrough(ctx context.Context, h graph.Host, endpoint config.Endpoint, enter <-chan struct{}, logger *slog.Logger) int {
	node := Passthrough(endpoint)
	node.Enter = enter
	node.Logger = logger
	return node.Run(ctx, h)
}

// RunSine validates args before touching the host, then plays the tone.
func RunSine(ctx context.Context, h graph.Host, endpoint config.Endpoint, args []string, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	frequency, err := ParseFrequency(args)
	if err != nil {
		logger.Error("invalid arguments", "err", err, "usage", "sine [frequency]")
		return ExitFailure
	}
	node := Sine(endpoint, frequency)
	node.Logger = logger.With("frequency", frequency)
	return node.Run(ctx, h)
}

func (n *Node) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// Run opens the session, wires it and blocks until the host or the user ends it.
// Interrupts are honored from the start: one arriving during startup skips the
// remaining steps and closes the session.
func (n *Node) Run(ctx context.Context, h graph.Host) int {
	logger := n.logger()
	name := n.Endpoint.ClientName

	coordinator := shutdown.New(nil, n.Endpoint.PollInterval)
	stop := async.Interrupt(coordinator.Interrupt)
	defer stop()

	client, err := graph.Open(h, name)
	if err != nil {
		logger.Error("cannot open client", "name", name, "err", err)
		return ExitFailure
	}
	coordinator.Attach(client)
	if client.Name() != name {
		logger.Info(fmt.Sprintf("unique name `%s' assigned", client.Name()))
	}
	logger = logger.With("client", client.Name())

	if err := rt.LockMemory(); err != nil {
		logger.Debug("cannot lock memory", "err", err)
	} else {
		defer rt.UnlockMemory()
	}

	if err := n.start(ctx, client, coordinator, logger); err != nil {
		logger.Error("startup failed", "err", err)
		if err := client.Close(); err != nil {
			logger.Warn("close failed", "err", err)
		}
		return ExitFailure
	}
	return n.wait(ctx, coordinator, logger)
}

// interrupted reports whether startup should stop and leave the rest to wait.
func interrupted(ctx context.Context, coordinator *shutdown.Coordinator, logger *slog.Logger) bool {
	if coordinator.State() == shutdown.Running && ctx.Err() == nil {
		return false
	}
	logger.Info("startup interrupted")
	return true
}

func (n *Node) start(ctx context.Context, client *graph.Client, coordinator *shutdown.Coordinator, logger *slog.Logger) error {
	if interrupted(ctx, coordinator, logger) {
		return nil
	}

	var input *graph.Port
	if n.Input {
		var err error
		if input, err = client.RegisterPort("input", graph.Input); err != nil {
			return err
		}
	}
	output, err := client.RegisterPort("output", graph.Output)
	if err != nil {
		return err
	}

	p, err := n.Processor(client.SampleRate())
	if err != nil {
		return err
	}
	if err := client.InstallProcessor(p); err != nil {
		return err
	}
	if err := client.InstallShutdownHook(coordinator.HostShutdown); err != nil {
		return err
	}

	logger.Info("client ready", "sample_rate", client.SampleRate(), "buffer_size", client.BufferSize())

	if interrupted(ctx, coordinator, logger) {
		return nil
	}
	if err := client.Activate(); err != nil {
		return err
	}

	if input != nil {
		capture, err := client.PhysicalPorts(graph.Output)
		if err != nil {
			return fmt.Errorf("no physical capture ports: %w", err)
		}
		if err := client.Connect(capture[0], input.Name()); err != nil {
			logger.Warn("cannot connect input port", "err", err)
		}
	}

	playback, err := client.PhysicalPorts(graph.Input)
	if err != nil {
		return fmt.Errorf("no physical playback ports: %w", err)
	}
	for _, ch := range n.Endpoint.PlaybackChannels {
		if ch < 1 || ch > len(playback) {
			logger.Warn("no such playback channel", "channel", ch, "available", len(playback))
			continue
		}
		if err := client.Connect(output.Name(), playback[ch-1]); err != nil {
			logger.Warn("cannot connect output port", "err", err)
		}
	}
	for _, dst := range n.Endpoint.Destinations {
		if err := client.Connect(output.Name(), dst); err != nil {
			logger.Warn("cannot connect output port", "err", err)
		}
	}
	return nil
}

func (n *Node) wait(ctx context.Context, coordinator *shutdown.Coordinator, logger *slog.Logger) int {
	if n.Enter != nil {
		go func() {
			select {
			case <-n.Enter:
				coordinator.Interrupt()
			case <-coordinator.Done():
			}
		}()
	}

	cause, err := coordinator.Wait(ctx)
	if cause == shutdown.CauseHost {
		if n.HostShutdownCode != ExitOK {
			logger.Error("host shut down the session")
		} else {
			logger.Info("host shut down the session")
		}
		if err != nil {
			logger.Debug("close failed", "err", err)
		}
		return n.HostShutdownCode
	}

	logger.Info("exiting", "cause", cause)
	if err != nil {
		logger.Error("close failed", "err", err)
		return ExitFailure
	}
	return ExitOK
}
