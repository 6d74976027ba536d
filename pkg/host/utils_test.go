package host

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestConvert_RoundTrip(t *testing.T) {
	src := make([]float32, 256)
	for i := range src {
		src[i] = rand.Float32()*2 - 1
	}
	ints := make([]int32, len(src))
	back := make([]float32, len(src))

	Float32ToInt32(ints, src)
	Int32ToFloat32(back, ints)

	for i := range src {
		if math.Abs(float64(src[i]-back[i])) > 1e-6 {
			t.Errorf("Expected %v at %d, but got %v", src[i], i, back[i])
		}
	}
}

func TestConvert_Clip(t *testing.T) {
	ints := make([]int32, 3)
	Float32ToInt32(ints, []float32{2, -2, 0})
	if ints[0] != math.MaxInt32 || ints[1] != -math.MaxInt32 || ints[2] != 0 {
		t.Errorf("Expected clipped full scale values, but got %v", ints)
	}
}

func TestSumf32(t *testing.T) {
	a := []float32{1, 2, 3}
	sumf32(a, []float32{0.5, 0.5, -3}, a)
	if a[0] != 1.5 || a[1] != 2.5 || a[2] != 0 {
		t.Errorf("Expected [1.5 2.5 0], but got %v", a)
	}
}
