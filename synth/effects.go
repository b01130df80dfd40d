package synth

import (
	"math"

	"github.com/chewxy/math32"

	"github.com/keisili/beepbox"
)

const (
	reverbDelayBufferSize = 16384
	chorusDelayBufferSize = 2048
	panDelayBufferSize    = 1024

	panDelaySecondsMax = 0.001

	chorusPeriodSeconds = 2.0

	// the delay tail is considered inaudible below this fraction of full
	// scale
	tailThreshold = 1.0 / 256.0
)

// Four prime-ish tap offsets inside the reverb ring, mixed by a 4×4
// Hadamard matrix.
var reverbTapOffsets = [4]int{0, 3041, 6426, 10907}

// Fixed chorus tap centers in seconds, three per stereo side, each moving
// sinusoidally with its own phase offset.
var (
	chorusTapCenters = [3]float64{0.0034, 0.0077, 0.0120}
	chorusTapRange   = 0.0015
	chorusPhasesL    = [3]float64{0.0, 2.1, 4.2}
	chorusPhasesR    = [3]float64{3.2, 5.3, 1.0}
)

type instrumentState struct {
	channel int
	index   int

	activeTones   []*Tone
	releasedTones []*Tone

	awake                   bool
	flushing                bool
	flushedSamples          int
	deactivateAfterThisTick bool

	panningDelayLine []float32
	panningDelayPos  int

	chorusDelayLineL []float32
	chorusDelayLineR []float32
	chorusDelayPos   int
	chorusPhase      float64

	reverbDelayLine []float32
	reverbDelayPos  int
	reverbShelf     [4]float64

	bitcrusherPhase        float64
	bitcrusherCurrentValue float64

	distortionFilters     [beepbox.FilterMaxPoints]DynamicBiquadFilter
	distortionFilterCount int

	// cached custom waves, rebuilt when the control points change
	spectrumWave  []float32
	spectrumHash  uint64
	harmonicsWave []float32
	harmonicsHash uint64
	drumsetWaves  [beepbox.DrumCount][]float32
	drumsetHashes [beepbox.DrumCount]uint64
}

// refreshWaves rebuilds the instrument's cached custom waves if their
// control points changed since the last tone started.
func (state *instrumentState) refreshWaves(inst *beepbox.Instrument) {
	switch inst.Type {
	case beepbox.InstrumentSpectrum:
		if h := spectrumHash(&inst.Spectrum.Points); state.spectrumWave == nil || h != state.spectrumHash {
			state.spectrumWave = buildSpectrumWave(&inst.Spectrum.Points)
			state.spectrumHash = h
		}
	case beepbox.InstrumentDrumset:
		for d := 0; d < beepbox.DrumCount; d++ {
			if h := spectrumHash(&inst.DrumsetSpectra[d].Points); state.drumsetWaves[d] == nil || h != state.drumsetHashes[d] {
				state.drumsetWaves[d] = buildSpectrumWave(&inst.DrumsetSpectra[d].Points)
				state.drumsetHashes[d] = h
			}
		}
	case beepbox.InstrumentHarmonics, beepbox.InstrumentGuitar:
		if h := harmonicsHash(&inst.Harmonics.Points); state.harmonicsWave == nil || h != state.harmonicsHash {
			state.harmonicsWave = buildHarmonicsWave(&inst.Harmonics.Points)
			state.harmonicsHash = h
		}
	}
}

// totalDelaySamples is the combined capacity of the enabled delay lines,
// bounding how long a flush takes.
func (state *instrumentState) totalDelaySamples(inst *beepbox.Instrument) int {
	total := 0
	if inst.EffectEnabled(beepbox.EffectPanning) {
		total += panDelayBufferSize
	}
	if inst.EffectEnabled(beepbox.EffectChorus) {
		total += chorusDelayBufferSize
	}
	if inst.EffectEnabled(beepbox.EffectReverb) {
		total += reverbDelayBufferSize
	}
	return total
}

func (state *instrumentState) allocateDelayLines(inst *beepbox.Instrument) {
	if inst.EffectEnabled(beepbox.EffectPanning) && state.panningDelayLine == nil {
		state.panningDelayLine = make([]float32, panDelayBufferSize)
	}
	if inst.EffectEnabled(beepbox.EffectChorus) && state.chorusDelayLineL == nil {
		state.chorusDelayLineL = make([]float32, chorusDelayBufferSize)
		state.chorusDelayLineR = make([]float32, chorusDelayBufferSize)
	}
	if inst.EffectEnabled(beepbox.EffectReverb) && state.reverbDelayLine == nil {
		state.reverbDelayLine = make([]float32, reverbDelayBufferSize)
	}
}

func (state *instrumentState) clearDelayLines() {
	zero32(state.panningDelayLine)
	zero32(state.chorusDelayLineL)
	zero32(state.chorusDelayLineR)
	zero32(state.reverbDelayLine)
	for i := range state.reverbShelf {
		state.reverbShelf[i] = 0
	}
	state.bitcrusherPhase = 0
	state.bitcrusherCurrentValue = 0
}

func zero32(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

// loadDistortionFilters prepares the effect-filter cascade for a run.
func (state *instrumentState) loadDistortionFilters(inst *beepbox.Instrument, sampleRate float64, runLength int) {
	points := inst.DistortionFilter.Points
	state.distortionFilterCount = len(points)
	deltaRate := 1.0 / float64(runLength)
	for i, p := range points {
		coeffs := pointToCoefficients(p, sampleRate, 1.0)
		state.distortionFilters[i].LoadCoefficientsWithGradient(coeffs, coeffs, deltaRate)
	}
}

// processEffects reads the mono scratch buffer, applies the instrument's
// enabled effects in their fixed order, and sums the stereo result into the
// output mix. The scratch buffer is cleared on the way through.
func (s *Synth) processEffects(inst *beepbox.Instrument, state *instrumentState, output beepbox.AudioBuffer, runLength int) {
	mono := s.tempMono[:runLength]
	sampleRate := float64(s.SampleRate)

	distortion := inst.EffectEnabled(beepbox.EffectDistortion)
	bitcrusher := inst.EffectEnabled(beepbox.EffectBitcrusher)
	effectFilter := inst.EffectEnabled(beepbox.EffectFilter) && state.distortionFilterCount > 0
	panning := inst.EffectEnabled(beepbox.EffectPanning)
	chorus := inst.EffectEnabled(beepbox.EffectChorus)
	reverb := inst.EffectEnabled(beepbox.EffectReverb)

	inputMult := 1.0
	if state.flushing {
		inputMult = 0.0
	}

	// distortion parameters
	slider := float64(inst.Distortion) / (beepbox.DistortionRange - 1)
	distortionAmount := math.Pow(1.0-0.95*slider, 1.5)
	distortionDrive := 1.0 + 2.0*slider

	// bitcrusher parameters: the hold rate tracks an exponential curve over
	// the freq setting, the quantization steps over the quant setting
	crusherFreq := 44100.0 * math.Exp2(-(beepbox.BitcrusherFreqRange-1-float64(inst.BitcrusherFreq))*0.75) / 32.0
	crusherPhaseDelta := crusherFreq / sampleRate
	quantLevels := math.Exp2(float64(beepbox.BitcrusherQuantRange-inst.BitcrusherQuantization) * 0.8)

	// cosine-law pan gains with small inter-channel delays
	pan := float64(inst.Pan) / beepbox.PanMax
	angle := pan * math.Pi * 0.5
	panGainL := math.Cos(angle)
	panGainR := math.Sin(angle)
	panOffsetL := int((pan) * panDelaySecondsMax * sampleRate)
	panOffsetR := int((1.0 - pan) * panDelaySecondsMax * sampleRate)

	reverbMult := reverbFeedback(inst.Reverb)

	chorusDelta := 2.0 * math.Pi / (chorusPeriodSeconds * sampleRate)

	for i := 0; i < runLength; i++ {
		sample := float64(mono[i]) * inputMult
		mono[i] = 0

		if distortion {
			input := sample * distortionDrive
			abs := math.Abs(input)
			sample = distortionBaseVolume * input / ((1.0-distortionAmount)*abs + distortionAmount)
		}

		if bitcrusher {
			state.bitcrusherPhase += crusherPhaseDelta
			if state.bitcrusherPhase >= 1.0 {
				state.bitcrusherPhase -= math.Floor(state.bitcrusherPhase)
				quantized := math.Floor(sample*quantLevels+0.5) / quantLevels
				state.bitcrusherCurrentValue = quantized
			}
			sample = state.bitcrusherCurrentValue
		}

		if effectFilter {
			sample = applyFilters(sample, state.distortionFilters[:state.distortionFilterCount])
		}

		var left, right float64
		if panning {
			mask := len(state.panningDelayLine) - 1
			state.panningDelayLine[state.panningDelayPos&mask] = float32(sample)
			readL := (state.panningDelayPos - panOffsetL + len(state.panningDelayLine)) & mask
			readR := (state.panningDelayPos - panOffsetR + len(state.panningDelayLine)) & mask
			left = float64(state.panningDelayLine[readL]) * panGainL
			right = float64(state.panningDelayLine[readR]) * panGainR
			state.panningDelayPos++
		} else {
			left = sample
			right = sample
		}

		if chorus {
			mask := len(state.chorusDelayLineL) - 1
			state.chorusDelayLineL[state.chorusDelayPos&mask] = float32(left)
			state.chorusDelayLineR[state.chorusDelayPos&mask] = float32(right)
			var tapsL, tapsR [3]float64
			for t := 0; t < 3; t++ {
				offsetL := (chorusTapCenters[t] + chorusTapRange*math.Sin(state.chorusPhase+chorusPhasesL[t])) * sampleRate
				offsetR := (chorusTapCenters[t] + chorusTapRange*math.Sin(state.chorusPhase+chorusPhasesR[t])) * sampleRate
				readL := (state.chorusDelayPos - int(offsetL) + len(state.chorusDelayLineL)) & mask
				readR := (state.chorusDelayPos - int(offsetR) + len(state.chorusDelayLineR)) & mask
				tapsL[t] = float64(state.chorusDelayLineL[readL])
				tapsR[t] = float64(state.chorusDelayLineR[readR])
			}
			left = 0.5 * (left - tapsL[0] + tapsL[1] - tapsL[2])
			right = 0.5 * (right - tapsR[0] + tapsR[1] - tapsR[2])
			state.chorusDelayPos++
			state.chorusPhase += chorusDelta
			if state.chorusPhase >= 2.0*math.Pi {
				state.chorusPhase -= 2.0 * math.Pi
			}
		}

		if reverb {
			mask := len(state.reverbDelayLine) - 1
			pos := state.reverbDelayPos
			// four cursors into one ring: read, Hadamard mix, write back at
			// the same slots
			var index [4]int
			var taps [4]float64
			for t := 0; t < 4; t++ {
				index[t] = (pos + reverbTapOffsets[t]) & mask
				taps[t] = float64(state.reverbDelayLine[index[t]])
			}
			input := (left + right) * 0.25 * inputMult
			h0 := (taps[0] + input + taps[1] + taps[2] + taps[3]) * 0.5
			h1 := (taps[0] + input - taps[1] + taps[2] - taps[3]) * 0.5
			h2 := (taps[0] + input + taps[1] - taps[2] - taps[3]) * 0.5
			h3 := (taps[0] + input - taps[1] - taps[2] + taps[3]) * 0.5
			mixed := [4]float64{h0, h1, h2, h3}
			feedback := reverbMult
			if state.flushing {
				feedback = 0.0
			}
			for t := 0; t < 4; t++ {
				// per-tap one-pole lowpass inside the feedback path
				state.reverbShelf[t] += (mixed[t] - state.reverbShelf[t]) * 0.5
				state.reverbDelayLine[index[t]] = float32(state.reverbShelf[t] * feedback)
			}
			state.reverbDelayPos = (pos + 1) & mask
			wet := (taps[1] + taps[2] + taps[3]) * 0.66
			left += wet
			right += wet
		}

		output[i][0] += float32(left)
		output[i][1] += float32(right)
	}

	if state.flushing {
		state.flushedSamples += runLength
		if state.flushedSamples >= state.totalDelaySamples(inst) {
			state.deactivateAfterThisTick = true
		}
	}
}

const distortionBaseVolume = 0.6

func reverbFeedback(setting int) float64 {
	return float64(setting) / beepbox.ReverbRange * 0.7
}

// sanitizeDelayLines clips denormal or non-finite values in every delay
// line and filter history, once per tick.
func (state *instrumentState) sanitizeDelayLines() {
	sanitizeBuffer(state.panningDelayLine)
	sanitizeBuffer(state.chorusDelayLineL)
	sanitizeBuffer(state.chorusDelayLineR)
	sanitizeBuffer(state.reverbDelayLine)
	for i := range state.reverbShelf {
		state.reverbShelf[i] = sanitize(state.reverbShelf[i])
	}
	for i := 0; i < state.distortionFilterCount; i++ {
		state.distortionFilters[i].Sanitize()
	}
	for _, tone := range state.activeTones {
		for i := 0; i < tone.filterCount; i++ {
			tone.filters[i].Sanitize()
		}
	}
	for _, tone := range state.releasedTones {
		for i := 0; i < tone.filterCount; i++ {
			tone.filters[i].Sanitize()
		}
	}
}

func sanitizeBuffer(buf []float32) {
	for i, v := range buf {
		if math32.IsNaN(v) || math32.IsInf(v, 0) || math32.Abs(v) > 100.0 || (v != 0 && math32.Abs(v) < 1e-24) {
			buf[i] = 0
		}
	}
}
