package callbacks

// Recorder captures its input into a preallocated track and drops what does not fit.
type Recorder struct {
	n     int
	track []float32
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{track: make([]float32, capacity)}
}

func (r *Recorder) Process(in, _ []float32) {
	r.n += copy(r.track[r.n:], in)
}

// Track returns the samples recorded so far.
func (r *Recorder) Track() []float32 {
	return r.track[:r.n]
}

func (r *Recorder) Full() bool {
	return r.n == len(r.track)
}

func (r *Recorder) Reset() {
	r.n = 0
}
