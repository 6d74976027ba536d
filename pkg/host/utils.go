package host

func sumf32(a, b, c []float32) {
	for i := range a {
		c[i] = a[i] + b[i]
	}
}

// Int32ToFloat32 converts full scale int32 samples into dst. Both slices must have the same length.
func Int32ToFloat32(dst []float32, src []int32) {
	for i, v := range src {
		dst[i] = float32(float64(v) / 0x7fffffff)
	}
}

// Float32ToInt32 converts samples into full scale int32, clipping to [-1, 1].
func Float32ToInt32(dst []int32, src []float32) {
	for i, v := range src {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		dst[i] = int32(float64(v) * 0x7fffffff)
	}
}
