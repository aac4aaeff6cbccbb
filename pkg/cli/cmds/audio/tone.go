package audio

import "math"

// Tone generates a sine tone of hz lasting ms milliseconds at the given
// sample rate. amplitude is relative to full scale, within 0 to 1.
func Tone(hz, ms, rate int, amplitude float64) []int16 {
	n := rate * ms / 1000
	samples := make([]int16, n)
	scale := amplitude * math.MaxInt16
	for i := range samples {
		samples[i] = int16(scale * math.Sin(2*math.Pi*float64(hz)*float64(i)/float64(rate)))
	}
	return samples
}
