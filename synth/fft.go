package synth

import (
	"math"

	"github.com/chewxy/math32"
)

// inverseFFT runs an in-place radix-2 inverse Fourier transform over the
// complex scratch buffer. The length must be a power of two. No 1/N scaling
// is applied; wave builders normalize afterwards anyway.
func inverseFFT(a []complex128) {
	n := len(a)
	if n&(n-1) != 0 {
		panic("inverseFFT length must be a power of two")
	}
	// bit-reversal permutation
	j := 0
	for i := 1; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j |= bit
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}
	for length := 2; length <= n; length <<= 1 {
		angle := 2.0 * math.Pi / float64(length)
		wLen := complex(math.Cos(angle), math.Sin(angle))
		for i := 0; i < n; i += length {
			w := complex(1, 0)
			half := length >> 1
			for k := 0; k < half; k++ {
				u := a[i+k]
				v := a[i+k+half] * w
				a[i+k] = u + v
				a[i+k+half] = u - v
				w *= wLen
			}
		}
	}
}

// realWaveFromSpectrum synthesizes a real waveform of the given power-of-two
// length from bin amplitudes and phases (bin k completes k cycles per
// wavetable period). Bin 0 and anything at or above Nyquist are ignored.
func realWaveFromSpectrum(length int, amplitudes, phases []float64) []float32 {
	scratch := make([]complex128, length)
	for k := 1; k < len(amplitudes) && k < length/2; k++ {
		if amplitudes[k] == 0 {
			continue
		}
		re := amplitudes[k] * math.Cos(phases[k])
		im := amplitudes[k] * math.Sin(phases[k])
		scratch[k] = complex(re, im)
		scratch[length-k] = complex(re, -im)
	}
	inverseFFT(scratch)
	wave := make([]float32, length)
	for i := range wave {
		wave[i] = float32(real(scratch[i]))
	}
	return wave
}

// normalizeWave scales the wave so its peak magnitude matches target.
func normalizeWave(wave []float32, target float64) {
	var peak float32
	for _, s := range wave {
		if a := math32.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	mult := float32(target) / peak
	for i := range wave {
		wave[i] *= mult
	}
}
