package host

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"Jacknode/internel/callbacks"
	"Jacknode/pkg/graph"
	"Jacknode/pkg/oscillator"
	"Jacknode/pkg/processor"

	"golang.org/x/exp/rand"
)

func randf32(buf []float32) {
	for i := range buf {
		buf[i] = rand.Float32()*2 - 1
	}
}

func openClient(t *testing.T, h graph.Host, name string, p processor.Processor, dirs ...graph.Direction) *graph.Client {
	t.Helper()
	c, err := graph.Open(h, name)
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", name, err)
	}
	for _, dir := range dirs {
		if _, err := c.RegisterPort(dir.String(), dir); err != nil {
			t.Fatalf("RegisterPort(%v) failed: %v", dir, err)
		}
	}
	if err := c.InstallProcessor(p); err != nil {
		t.Fatalf("InstallProcessor failed: %v", err)
	}
	if err := c.Activate(); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	return c
}

func TestNetwork_Passthrough(t *testing.T) {
	var captured []float32
	n := &Network{
		BufferSize: 64,
		Capture:    1,
		Playback:   2,
		Manual:     true,
		Source: func(channel int, buf []float32) {
			randf32(buf)
			captured = append(captured[:0], buf...)
		},
	}

	c := openClient(t, n, "passthrough", processor.Passthrough{}, graph.Input, graph.Output)
	defer c.Close()

	capture, err := c.PhysicalPorts(graph.Output)
	if err != nil {
		t.Fatal(err)
	}
	playback, err := c.PhysicalPorts(graph.Input)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(capture, []string{"system:capture_1"}) {
		t.Errorf("Expected %v, but got %v", []string{"system:capture_1"}, capture)
	}
	if !reflect.DeepEqual(playback, []string{"system:playback_1", "system:playback_2"}) {
		t.Errorf("Expected %v, but got %v", []string{"system:playback_1", "system:playback_2"}, playback)
	}

	if err := c.Connect(capture[0], "passthrough:input"); err != nil {
		t.Fatal(err)
	}
	if err := c.Connect("passthrough:output", playback[0]); err != nil {
		t.Fatal(err)
	}

	for range 10 {
		n.Cycle()
		if got := n.Peek("system:playback_1"); !reflect.DeepEqual(got, captured) {
			t.Errorf("Expected %v, but got %v", captured, got)
		}
		if got := n.Peek("system:playback_2"); !reflect.DeepEqual(got, make([]float32, 64)) {
			t.Errorf("Expected silence on an unconnected port, but got %v", got)
		}
	}
	if n.Cycles() != 10 {
		t.Errorf("Expected %v cycles, but got %v", 10, n.Cycles())
	}
}

func TestNetwork_UniqueName(t *testing.T) {
	n := &Network{Manual: true}

	names := []string{}
	for range 3 {
		conn, err := n.Open("client")
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, conn.Name())
	}
	expected := []string{"client", "client-01", "client-02"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("Expected %v, but got %v", expected, names)
	}
}

func TestNetwork_ActivationOrder(t *testing.T) {
	const size = 32
	n := &Network{BufferSize: size, Manual: true}

	// the receiver is activated first, so it sees the tone one cycle late
	early := callbacks.NewRecorder(2 * size)
	openClient(t, n, "early", early, graph.Input)

	state, _ := oscillator.New(1000, DefaultSampleRate)
	sine := openClient(t, n, "sine", processor.NewOscillator(state), graph.Output)

	late := callbacks.NewRecorder(2 * size)
	openClient(t, n, "late", late, graph.Input)

	for _, dst := range []string{"early:input", "late:input"} {
		if err := sine.Connect("sine:output", dst); err != nil {
			t.Fatal(err)
		}
	}

	n.Cycle()
	n.Cycle()

	reference, _ := oscillator.New(1000, DefaultSampleRate)
	tone := make([]float32, 2*size)
	reference.Fill(tone)

	if !reflect.DeepEqual(late.Track(), tone) {
		t.Errorf("Expected %v, but got %v", tone, late.Track())
	}
	if !reflect.DeepEqual(early.Track()[:size], make([]float32, size)) {
		t.Errorf("Expected one cycle of silence, but got %v", early.Track()[:size])
	}
	if !reflect.DeepEqual(early.Track()[size:], tone[:size]) {
		t.Errorf("Expected %v, but got %v", tone[:size], early.Track()[size:])
	}
}

func TestNetwork_Mix(t *testing.T) {
	n := &Network{BufferSize: 4, Playback: 1, Manual: true}

	a := openClient(t, n, "a", &callbacks.Player{Track: []float32{1, 2, 3, 4}}, graph.Output)
	b := openClient(t, n, "b", &callbacks.Player{Track: []float32{0.5, 0.5, 0.5, 0.5}}, graph.Output)
	if err := a.Connect("a:output", "system:playback_1"); err != nil {
		t.Fatal(err)
	}
	if err := b.Connect("b:output", "system:playback_1"); err != nil {
		t.Fatal(err)
	}

	n.Cycle()
	expected := []float32{1.5, 2.5, 3.5, 4.5}
	if got := n.Peek("system:playback_1"); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, but got %v", expected, got)
	}
	expectedSources := []string{"a:output", "b:output"}
	if got := n.Connections("system:playback_1"); !reflect.DeepEqual(got, expectedSources) {
		t.Errorf("Expected %v, but got %v", expectedSources, got)
	}
}

func TestNetwork_ConnectErrors(t *testing.T) {
	n := &Network{Capture: 1, Playback: 1, Manual: true}
	conn, _ := n.Open("c")
	conn.RegisterPort("input", graph.Input)
	conn.RegisterPort("output", graph.Output)

	testCases := []struct {
		src, dst string
		err      error
	}{
		{"system:capture_1", "c:input", nil},
		{"system:capture_1", "c:input", ErrAlreadyConnected},
		{"c:output", "nobody:input", ErrNoSuchPort},
		{"c:input", "system:playback_1", ErrIncompatiblePorts},
		{"system:capture_1", "c:output", ErrIncompatiblePorts},
	}
	for _, tc := range testCases {
		err := conn.Connect(tc.src, tc.dst)
		if tc.err == nil && err != nil {
			t.Errorf("[%s -> %s] Expected no error, but got %v", tc.src, tc.dst, err)
		}
		if tc.err != nil && !errors.Is(err, tc.err) {
			t.Errorf("[%s -> %s] Expected %v, but got %v", tc.src, tc.dst, tc.err, err)
		}
	}
}

func TestNetwork_RegisterErrors(t *testing.T) {
	n := &Network{MaxPorts: 1, Manual: true}
	conn, _ := n.Open("c")

	if _, err := conn.RegisterPort("output", graph.Output); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.RegisterPort("output2", graph.Output); !errors.Is(err, ErrPortLimit) {
		t.Errorf("Expected %v, but got %v", ErrPortLimit, err)
	}

	other, _ := (&Network{Manual: true}).Open("d")
	other.RegisterPort("x", graph.Input)
	if _, err := other.RegisterPort("x", graph.Input); !errors.Is(err, ErrDuplicatePort) {
		t.Errorf("Expected %v, but got %v", ErrDuplicatePort, err)
	}
}

func TestNetwork_Close(t *testing.T) {
	n := &Network{Capture: 1, Playback: 1, Manual: true}
	rec := callbacks.NewRecorder(1024)
	c := openClient(t, n, "c", rec, graph.Input, graph.Output)
	c.Connect("system:capture_1", "c:input")
	c.Connect("c:output", "system:playback_1")

	n.Cycle()
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	recorded := len(rec.Track())
	n.Cycle()

	if len(rec.Track()) != recorded {
		t.Errorf("Expected no processing after close, but got %v more samples", len(rec.Track())-recorded)
	}
	if got := n.Connections("system:playback_1"); len(got) != 0 {
		t.Errorf("Expected the connections to be dropped, but got %v", got)
	}
	if got := n.Peek("c:input"); got != nil {
		t.Errorf("Expected the ports to be unregistered, but got %v", got)
	}

	// the name is free again
	conn, err := n.Open("c")
	if err != nil {
		t.Fatal(err)
	}
	if conn.Name() != "c" {
		t.Errorf("Expected %v, but got %v", "c", conn.Name())
	}
}

func TestNetwork_Shutdown(t *testing.T) {
	n := &Network{Manual: true}
	conn, _ := n.Open("c")

	called := 0
	conn.OnShutdown(func() { called++ })
	closed, _ := n.Open("closed")
	closed.OnShutdown(func() { t.Errorf("Expected no hook on a closed session") })
	closed.Close()

	n.Shutdown()
	if called != 1 {
		t.Errorf("Expected the hook to be called once, but got %v", called)
	}
	if _, err := n.Open("late"); !errors.Is(err, ErrServerStopped) {
		t.Errorf("Expected %v, but got %v", ErrServerStopped, err)
	}
	if err := conn.Activate(); !errors.Is(err, ErrServerStopped) {
		t.Errorf("Expected %v, but got %v", ErrServerStopped, err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Expected close to succeed after shutdown, but got %v", err)
	}
}

func TestNetwork_Driver(t *testing.T) {
	n := &Network{SampleRate: 48000, BufferSize: 48}
	defer n.Stop()

	cycles := make(chan struct{}, 1)
	n.LateUpdate = func() {
		select {
		case cycles <- struct{}{}:
		default:
		}
	}
	openClient(t, n, "c", processor.Passthrough{}, graph.Output)

	for range 3 {
		select {
		case <-cycles:
		case <-time.After(time.Second):
			t.Fatal("TestNetwork_Driver timed out")
		}
	}
}
