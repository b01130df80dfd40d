package synth

import (
	"math"
	"math/cmplx"

	"github.com/viterin/vek/vek32"

	"github.com/keisili/beepbox"
)

// Analysis helpers over rendered audio: peak and RMS levels, windowed RMS
// envelopes, and power spectra. The player prints these and the tests lean
// on them to check the engine's output.

// ChannelSamples extracts one channel of a stereo buffer.
func ChannelSamples(buffer beepbox.AudioBuffer, channel int) []float32 {
	out := make([]float32, len(buffer))
	for i, s := range buffer {
		out[i] = s[channel]
	}
	return out
}

// Peak returns the largest absolute sample value of one channel.
func Peak(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	tmp := make([]float32, len(samples))
	copy(tmp, samples)
	vek32.Abs_Inplace(tmp)
	return float64(vek32.Max(tmp))
}

// RMS returns the root mean square level of the samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	tmp := make([]float32, len(samples))
	vek32.Mul_Into(tmp, samples, samples)
	return math.Sqrt(float64(vek32.Mean(tmp)))
}

// RMSWindows slices the samples into consecutive windows and returns the
// RMS level of each.
func RMSWindows(samples []float32, windowSize int) []float64 {
	if windowSize <= 0 {
		return nil
	}
	var out []float64
	for start := 0; start+windowSize <= len(samples); start += windowSize {
		out = append(out, RMS(samples[start:start+windowSize]))
	}
	return out
}

// PowerSpectrum returns the Hann-windowed power spectrum of the samples.
// The sample count is truncated to a power of two.
func PowerSpectrum(samples []float32) []float64 {
	n := 1
	for n*2 <= len(samples) {
		n *= 2
	}
	windowed := make([]float32, n)
	copy(windowed, samples[:n])
	window := make([]float32, n)
	for i := range window {
		window[i] = float32(0.5 - 0.5*math.Cos(2.0*math.Pi*float64(i)/float64(n)))
	}
	vek32.Mul_Inplace(windowed, window)

	scratch := make([]complex128, n)
	for i, s := range windowed {
		scratch[i] = complex(float64(s), 0)
	}
	forwardFFT(scratch)
	power := make([]float64, n/2)
	for i := range power {
		power[i] = real(scratch[i])*real(scratch[i]) + imag(scratch[i])*imag(scratch[i])
	}
	return power
}

// forwardFFT is inverseFFT with the twiddle direction flipped.
func forwardFFT(a []complex128) {
	for i := range a {
		a[i] = cmplx.Conj(a[i])
	}
	inverseFFT(a)
	for i := range a {
		a[i] = cmplx.Conj(a[i])
	}
}

// DominantFrequency finds the strongest spectral peak in Hz, refined with a
// parabolic fit around the winning bin.
func DominantFrequency(samples []float32, sampleRate int) float64 {
	power := PowerSpectrum(samples)
	if len(power) < 3 {
		return 0
	}
	best := 1
	for i := 2; i < len(power); i++ {
		if power[i] > power[best] {
			best = i
		}
	}
	binWidth := float64(sampleRate) / float64(len(power)*2)
	if best <= 0 || best >= len(power)-1 {
		return float64(best) * binWidth
	}
	// parabolic interpolation over log power
	y0 := math.Log(power[best-1] + 1e-30)
	y1 := math.Log(power[best] + 1e-30)
	y2 := math.Log(power[best+1] + 1e-30)
	denom := y0 - 2.0*y1 + y2
	offset := 0.0
	if denom != 0 {
		offset = 0.5 * (y0 - y2) / denom
	}
	return (float64(best) + offset) * binWidth
}
