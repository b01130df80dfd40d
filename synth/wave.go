package synth

import (
	"math"

	"github.com/keisili/beepbox"
)

const (
	noiseWaveLength     = 32768
	spectrumWaveLength  = 32768
	harmonicsWaveLength = 2048
	sineWaveLength      = 256
	guitarImpulseLength = 8192
)

// waveBank holds the lazily-built immutable wave tables. It is owned by a
// Synth instance so multiple engines can coexist.
type waveBank struct {
	chipWaves  [][]float32 // integrated, one extra sample for wrap reads
	noiseWaves [][]float32
	sineWave   []float32
	// guitarImpulse is an integrated antialiased impulse; plucks add two
	// offset copies of it into the string's delay line.
	guitarImpulse []float32
}

func newWaveBank() *waveBank {
	return &waveBank{
		chipWaves:  make([][]float32, len(beepbox.ChipWaves)),
		noiseWaves: make([][]float32, len(beepbox.NoiseWaves)),
	}
}

// integrate returns the running sum of one wave cycle with a leading zero.
// DC-centered cycles integrate back to zero, so the table is periodic and
// the playback loop can sample first differences without drift.
func integrate(samples []float64) []float32 {
	out := make([]float32, len(samples)+1)
	sum := 0.0
	for i, s := range samples {
		out[i] = float32(sum)
		sum += s
	}
	out[len(samples)] = float32(sum)
	return out
}

func (b *waveBank) chipWave(index int) []float32 {
	if b.chipWaves[index] == nil {
		b.chipWaves[index] = integrate(beepbox.ChipWaves[index].Samples)
	}
	return b.chipWaves[index]
}

func (b *waveBank) sine() []float32 {
	if b.sineWave == nil {
		b.sineWave = make([]float32, sineWaveLength+1)
		for i := range b.sineWave {
			b.sineWave[i] = float32(math.Sin(2.0 * math.Pi * float64(i) / sineWaveLength))
		}
	}
	return b.sineWave
}

func (b *waveBank) noiseWave(index int) []float32 {
	if b.noiseWaves[index] == nil {
		b.noiseWaves[index] = buildNoiseWave(index)
	}
	return b.noiseWaves[index]
}

// buildNoiseWave generates the cached retro noise tables. The tables are
// deterministic: each generator runs a fixed-seed linear feedback shift
// register or congruential generator.
func buildNoiseWave(index int) []float32 {
	wave := make([]float32, noiseWaveLength)
	switch beepbox.NoiseWaves[index].Name {
	case "white":
		seed := uint32(1)
		for i := range wave {
			seed *= 16007
			wave[i] = float32(int32(seed)) / -2147483648.0
		}
	case "clang":
		lfsr := uint32(1 << 14)
		for i := range wave {
			lfsr = stepLFSR(stepLFSR(stepLFSR(lfsr)))
			wave[i] = float32(lfsr&1)*2.0 - 1.0
		}
	case "buzz":
		lfsr := uint32(1 << 14)
		value := float32(1.0)
		hold := 0
		for i := range wave {
			if hold <= 0 {
				lfsr = stepLFSR(lfsr)
				value = float32(lfsr&1)*2.0 - 1.0
				hold = 1 + int((lfsr>>1)&7)
			}
			wave[i] = value
			hold--
		}
	case "hollow":
		return buildHollowWave()
	default: // retro
		lfsr := uint32(1 << 14)
		for i := range wave {
			lfsr = stepLFSR(lfsr)
			wave[i] = float32(lfsr&1)*2.0 - 1.0
		}
	}
	return wave
}

// stepLFSR advances the 15-bit taps-at-0-and-1 shift register used by the
// classic noise channel.
func stepLFSR(lfsr uint32) uint32 {
	bit := (lfsr ^ (lfsr >> 1)) & 1
	return (lfsr >> 1) | (bit << 14)
}

// buildHollowWave synthesizes the hollow noise table from a fixed band-pass
// shaped spectrum, the same way spectrum instruments build their waves.
func buildHollowWave() []float32 {
	binCount := spectrumWaveLength / 2
	amplitudes := make([]float64, binCount)
	phases := make([]float64, binCount)
	phaseSeed := uint32(0x9e3779b9)
	for bin := 2; bin < binCount; bin++ {
		octave := math.Log2(float64(bin))
		amplitudes[bin] = math.Exp2(-math.Abs(octave-6.0)) / math.Sqrt(float64(bin))
		phaseSeed = phaseSeed*1664525 + 1013904223
		phases[bin] = 2.0 * math.Pi * float64(phaseSeed) / 4294967296.0
	}
	wave := realWaveFromSpectrum(spectrumWaveLength, amplitudes, phases)
	normalizeWave(wave, 1.0)
	return wave
}

// buildSpectrumWave converts a 30-point spectrum control array to a noise
// wave table. The control points are spaced along octaves; bins between
// points interpolate the curve and get deterministic pseudo-random phases.
func buildSpectrumWave(points *[beepbox.SpectrumControlPoints]int) []float32 {
	binCount := spectrumWaveLength / 2
	amplitudes := make([]float64, binCount)
	phases := make([]float64, binCount)

	lowestOctave := 2.0
	highestOctave := 13.0
	octavesPerPoint := (highestOctave - lowestOctave) / float64(beepbox.SpectrumControlPoints-1)
	phaseSeed := uint32(0x1234567)
	for bin := 4; bin < binCount; bin++ {
		octave := math.Log2(float64(bin))
		if octave < lowestOctave || octave > highestOctave {
			continue
		}
		position := (octave - lowestOctave) / octavesPerPoint
		index := int(position)
		frac := position - float64(index)
		var control float64
		if index >= beepbox.SpectrumControlPoints-1 {
			control = float64(points[beepbox.SpectrumControlPoints-1])
		} else {
			control = float64(points[index])*(1.0-frac) + float64(points[index+1])*frac
		}
		if control <= 0 {
			continue
		}
		// control 0..7 maps exponentially to amplitude, tilted down toward
		// high bins so flat settings sound balanced
		amplitudes[bin] = math.Exp2(control-beepbox.SpectrumMax) / math.Sqrt(float64(bin))
		phaseSeed = phaseSeed*1664525 + 1013904223
		phases[bin] = 2.0 * math.Pi * float64(phaseSeed) / 4294967296.0
	}
	wave := realWaveFromSpectrum(spectrumWaveLength, amplitudes, phases)
	normalizeWave(wave, 1.0)
	return wave
}

// buildHarmonicsWave converts a 28-point harmonics control array to an
// integrated wave table for the chip-style playback loop. Harmonics above
// the controlled range are extended from the last point with a gentle
// falloff to keep the top end alive.
func buildHarmonicsWave(points *[beepbox.HarmonicsControlPoints]int) []float32 {
	binCount := harmonicsWaveLength / 2
	amplitudes := make([]float64, binCount)
	phases := make([]float64, binCount)
	controlled := beepbox.HarmonicsControlPoints
	lastControl := float64(points[controlled-1])
	for bin := 1; bin < binCount && bin <= 64; bin++ {
		var control float64
		if bin <= controlled {
			control = float64(points[bin-1])
		} else {
			control = lastControl - float64(bin-controlled)*0.5
		}
		if control <= 0 {
			continue
		}
		amplitudes[bin] = math.Exp2(control-beepbox.HarmonicsMax) / float64(bin)
	}
	wave := realWaveFromSpectrum(harmonicsWaveLength, amplitudes, phases)
	normalizeWave(wave, 1.0)
	samples := make([]float64, len(wave))
	for i, s := range wave {
		samples[i] = float64(s)
	}
	return integrate(samples)
}

// guitarImpulseWave is the shared antialiased pluck impulse: a burst with a
// raised-cosine spectral rolloff, integrated so a pluck can add two offset
// copies and inject a band-limited step pair.
func (b *waveBank) guitarImpulseWave() []float32 {
	if b.guitarImpulse == nil {
		binCount := guitarImpulseLength / 2
		amplitudes := make([]float64, binCount)
		phases := make([]float64, binCount)
		for bin := 1; bin < binCount; bin++ {
			rolloff := 0.5 + 0.5*math.Cos(math.Pi*float64(bin)/float64(binCount))
			amplitudes[bin] = rolloff / float64(bin)
		}
		wave := realWaveFromSpectrum(guitarImpulseLength, amplitudes, phases)
		normalizeWave(wave, 1.0)
		samples := make([]float64, len(wave))
		for i, s := range wave {
			samples[i] = float64(s)
		}
		b.guitarImpulse = integrate(samples)
	}
	return b.guitarImpulse
}

// spectrumHash fingerprints a spectrum control array so instrument states
// can rebuild their cached waves only when the settings change.
func spectrumHash(points *[beepbox.SpectrumControlPoints]int) uint64 {
	h := uint64(1469598103934665603)
	for _, p := range points {
		h = (h ^ uint64(p)) * 1099511628211
	}
	return h
}

func harmonicsHash(points *[beepbox.HarmonicsControlPoints]int) uint64 {
	h := uint64(1469598103934665603)
	for _, p := range points {
		h = (h ^ uint64(p)) * 1099511628211
	}
	return h
}
