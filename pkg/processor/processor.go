package processor

import "Jacknode/pkg/oscillator"

// Processor is invoked by the host once per cycle from the realtime context.
//
// Implementations must fill exactly len(out) samples, finish in bounded time and
// never allocate, block, take locks or panic. in is nil for nodes without an input port.
type Processor interface {
	Process(in, out []float32)
}

// Func adapts an ordinary function to the Processor interface.
type Func func(in, out []float32)

func (f Func) Process(in, out []float32) {
	f(in, out)
}

// Passthrough mirrors the input stream to the output stream.
type Passthrough struct{}

func (Passthrough) Process(in, out []float32) {
	n := copy(out, in)
	clear(out[n:])
}

// Oscillator renders a sine wave from a session-owned oscillator state.
// The phase carries over between cycles.
type Oscillator struct {
	state *oscillator.State
}

func NewOscillator(state *oscillator.State) *Oscillator {
	return &Oscillator{state: state}
}

func (o *Oscillator) Process(_, out []float32) {
	o.state.Fill(out)
}

func (o *Oscillator) State() *oscillator.State {
	return o.state
}
