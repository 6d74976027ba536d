package host

// NewLoopback returns a free running Network whose playback port k is fed
// back into capture port k on the next cycle.
func NewLoopback(sampleRate float64, bufferSize, channels int) *Network {
	n := &Network{
		SampleRate: sampleRate,
		BufferSize: bufferSize,
		Capture:    channels,
		Playback:   channels,
	}
	n.Source = func(channel int, buf []float32) {
		copy(buf, n.playback[channel].buf)
	}
	return n
}
