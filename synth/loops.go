package synth

import (
	"fmt"
	"math"

	"github.com/keisili/beepbox"
)

// renderTone runs the instrument-specific inner loop for one tone, summing
// into the shared mono scratch buffer. One loop per variant; the FM
// algorithm table is consulted outside the sample loop.
func (s *Synth) renderTone(inst *beepbox.Instrument, state *instrumentState, tone *Tone, runLength int) {
	switch inst.Type {
	case beepbox.InstrumentChip:
		wave := s.waves.chipWave(inst.ChipWave)
		s.renderIntegratedWave(inst, tone, wave, beepbox.ChipWaves[inst.ChipWave].Expression, runLength)
	case beepbox.InstrumentHarmonics:
		s.renderIntegratedWave(inst, tone, state.harmonicsWave, 1.0, runLength)
	case beepbox.InstrumentPWM:
		s.renderPulse(tone, runLength)
	case beepbox.InstrumentFM:
		s.renderFM(inst, tone, runLength)
	case beepbox.InstrumentNoise:
		s.renderNoiseTable(tone, s.waves.noiseWave(inst.NoiseWave), tone.pitchFilterMult, runLength)
	case beepbox.InstrumentSpectrum:
		s.renderNoiseTable(tone, state.spectrumWave, 1.0, runLength)
	case beepbox.InstrumentDrumset:
		s.renderNoiseTable(tone, state.drumsetWaves[tone.drumIndex], 1.0, runLength)
	case beepbox.InstrumentGuitar:
		s.renderGuitar(inst, tone, runLength)
	default:
		panic(fmt.Sprintf("unknown instrument type %d", inst.Type))
	}
}

// interpolateIntegral reads the integrated wave table at a fractional
// position.
func interpolateIntegral(wave []float32, phase float64) float64 {
	index := int(phase)
	frac := phase - float64(index)
	return float64(wave[index]) + (float64(wave[index+1])-float64(wave[index]))*frac
}

// renderIntegratedWave is the chip and harmonics loop: two unison phase
// accumulators over an integrated table, so each output sample is a first
// difference divided by the phase delta. That keeps stepped waves
// band-limited without oversampling.
func (s *Synth) renderIntegratedWave(inst *beepbox.Instrument, tone *Tone, wave []float32, waveExpression float64, runLength int) {
	buffer := s.tempMono[:runLength]
	waveLength := float64(len(wave) - 1)
	intervalSign := beepbox.Intervals[inst.Interval].Sign

	phaseDeltaA := tone.phaseDeltas[0] * waveLength
	phaseDeltaB := tone.phaseDeltas[1] * waveLength
	phaseA := math.Mod(tone.phases[0], 1.0) * waveLength
	phaseB := math.Mod(tone.phases[1], 1.0) * waveLength
	expression := tone.expression * waveExpression
	expressionDelta := tone.expressionDelta * waveExpression
	filters := tone.filters[:tone.filterCount]

	prevIntegralA := interpolateIntegral(wave, phaseA)
	prevIntegralB := interpolateIntegral(wave, phaseB)
	for i := range buffer {
		phaseA += phaseDeltaA
		phaseB += phaseDeltaB
		if phaseA >= waveLength {
			phaseA -= waveLength
			prevIntegralA -= float64(wave[len(wave)-1])
		}
		if phaseB >= waveLength {
			phaseB -= waveLength
			prevIntegralB -= float64(wave[len(wave)-1])
		}
		integralA := interpolateIntegral(wave, phaseA)
		integralB := interpolateIntegral(wave, phaseB)
		sampleA := (integralA - prevIntegralA) / phaseDeltaA
		sampleB := (integralB - prevIntegralB) / phaseDeltaB
		prevIntegralA = integralA
		prevIntegralB = integralB

		sample := sampleA + sampleB*intervalSign
		sample = applyFilters(sample, filters)
		buffer[i] += float32(sample * expression)
		expression += expressionDelta
		phaseDeltaA *= tone.phaseDeltaScale
		phaseDeltaB *= tone.phaseDeltaScale
	}
	tone.phases[0] = phaseA / waveLength
	tone.phases[1] = phaseB / waveLength
	tone.phaseDeltas[0] = phaseDeltaA / waveLength
	tone.phaseDeltas[1] = phaseDeltaB / waveLength
	tone.expression = expression / waveExpression
}

// polyBLEP is the two-sample polynomial correction subtracted at sawtooth
// discontinuities.
func polyBLEP(phase, phaseDelta float64) float64 {
	if phase < phaseDelta {
		t := phase / phaseDelta
		return (t + t - t*t - 1.0) * 0.5
	}
	if phase > 1.0-phaseDelta {
		t := (phase - 1.0) / phaseDelta
		return (t*t + t + t + 1.0) * 0.5
	}
	return 0.0
}

// renderPulse is the PWM loop: two PolyBLEP saws separated by the pulse
// width, subtracted.
func (s *Synth) renderPulse(tone *Tone, runLength int) {
	buffer := s.tempMono[:runLength]
	phaseDelta := tone.phaseDeltas[0]
	phaseA := math.Mod(tone.phases[0], 1.0)
	pulseWidth := tone.pulseWidth
	expression := tone.expression
	filters := tone.filters[:tone.filterCount]

	for i := range buffer {
		phaseA += phaseDelta
		if phaseA >= 1.0 {
			phaseA -= 1.0
		}
		phaseB := phaseA + pulseWidth
		if phaseB >= 1.0 {
			phaseB -= 1.0
		}
		sawA := 2.0*phaseA - 1.0 - polyBLEP(phaseA, phaseDelta)
		sawB := 2.0*phaseB - 1.0 - polyBLEP(phaseB, phaseDelta)
		sample := (sawA - sawB) * 0.5
		sample = applyFilters(sample, filters)
		buffer[i] += float32(sample * expression)
		expression += tone.expressionDelta
		pulseWidth += tone.pulseWidthDelta
		phaseDelta *= tone.phaseDeltaScale
	}
	tone.phases[0] = phaseA
	tone.phaseDeltas[0] = phaseDelta
	tone.pulseWidth = pulseWidth
	tone.expression = expression
}

// renderNoiseTable is the noise, spectrum and drumset loop: a single wave
// table read at the tone's rate with a one-pole smoothing step whose cutoff
// tracks the fundamental.
func (s *Synth) renderNoiseTable(tone *Tone, wave []float32, pitchFilterMult float64, runLength int) {
	if wave == nil {
		return
	}
	buffer := s.tempMono[:runLength]
	length := float64(len(wave))
	mask := len(wave) - 1
	phase := math.Mod(tone.phases[0], 1.0) * length
	phaseDelta := tone.phaseDeltas[0]
	expression := tone.expression
	noiseSample := tone.noiseSample
	filters := tone.filters[:tone.filterCount]

	for i := range buffer {
		phase += phaseDelta
		if phase >= length {
			phase -= length
		}
		raw := float64(wave[int(phase)&mask])
		strength := math.Min(1.0, phaseDelta*pitchFilterMult)
		noiseSample += (raw - noiseSample) * strength
		sample := applyFilters(noiseSample, filters)
		buffer[i] += float32(sample * expression)
		expression += tone.expressionDelta
		phaseDelta *= tone.phaseDeltaScale
	}
	tone.phases[0] = phase / length
	tone.phaseDeltas[0] = phaseDelta
	tone.noiseSample = noiseSample
	tone.expression = expression
}

// renderFM is the four-operator loop. The wiring is read from the algorithm
// and feedback descriptors before the sample loop; inside it there are only
// array walks, no table lookups by name and no indirect calls.
func (s *Synth) renderFM(inst *beepbox.Instrument, tone *Tone, runLength int) {
	buffer := s.tempMono[:runLength]
	algorithm := &beepbox.Algorithms[inst.Algorithm]
	feedback := &beepbox.Feedbacks[inst.FeedbackType]
	carrierCount := algorithm.CarrierCount
	filters := tone.filters[:tone.filterCount]

	var phases, phaseDeltas, expressions, expressionDeltas [operatorSlots]float64
	for i := 0; i < operatorSlots; i++ {
		phases[i] = tone.phases[i]
		phaseDeltas[i] = tone.phaseDeltas[i]
		expressions[i] = tone.operatorExpressions[i]
		expressionDeltas[i] = tone.operatorExpressionDeltas[i]
	}
	feedbackMult := tone.feedbackMult
	expression := tone.expression
	outputs := tone.feedbackOutputs

	for i := range buffer {
		var next [operatorSlots]float64
		// evaluate modulators before the operators they feed
		for op := operatorSlots - 1; op >= 0; op-- {
			modulation := 0.0
			for _, mod := range algorithm.ModulatedBy[op] {
				modulation += next[mod-1]
			}
			for _, fb := range feedback.Indices[op] {
				modulation += outputs[fb-1] * feedbackMult
			}
			phases[op] += phaseDeltas[op]
			if phases[op] >= 1.0 {
				phases[op] -= math.Floor(phases[op])
			}
			next[op] = math.Sin(2.0*math.Pi*(phases[op]+modulation)) * expressions[op]
			expressions[op] += expressionDeltas[op]
			phaseDeltas[op] *= tone.phaseDeltaScale
		}
		outputs = next
		sample := 0.0
		for c := 0; c < carrierCount; c++ {
			sample += next[c]
		}
		sample = applyFilters(sample, filters)
		buffer[i] += float32(sample * expression)
		expression += tone.expressionDelta
		feedbackMult += tone.feedbackDelta
	}

	for i := 0; i < operatorSlots; i++ {
		tone.phases[i] = phases[i]
		tone.phaseDeltas[i] = phaseDeltas[i]
		tone.operatorExpressions[i] = expressions[i]
	}
	tone.feedbackOutputs = outputs
	tone.feedbackMult = feedbackMult
	tone.expression = expression
}

type guitarString struct {
	delayLine  []float32
	delayIndex int

	delayLength float64

	// dispersion all-pass and high-shelf decay filter histories
	allPassInput1, allPassOutput1 float64
	shelfInput1, shelfOutput1     float64
	fractionalInput1, fractionalOutput1 float64

	currentPitch int
	plucked      bool
}

// renderGuitar is the plucked-string loop: a circular delay line read
// through a fractional-delay all-pass, dispersed by a pitch-dependent
// first-order all-pass, damped by a high-shelf decay filter, and written
// back.
func (s *Synth) renderGuitar(inst *beepbox.Instrument, tone *Tone, runLength int) {
	buffer := s.tempMono[:runLength]
	sampleRate := float64(s.SampleRate)
	freq := tone.phaseDeltas[0] * sampleRate
	period := sampleRate / freq

	if tone.guitar == nil {
		tone.guitar = &guitarString{}
	}
	str := tone.guitar
	if str.delayLine == nil {
		// at least the period one octave below the lowest expected pitch
		capacity := 1
		for capacity < int(period*4.0)+guitarImpulseMargin {
			capacity <<= 1
		}
		if capacity < 2048 {
			capacity = 2048
		}
		str.delayLine = make([]float32, capacity)
	}

	// dispersion all-pass: its phase delay at the fundamental shortens the
	// effective string, so subtract it from the delay length
	dispersionCorner := math.Min(math.Pi*0.9, 2.0*math.Pi*freq*8.0/sampleRate)
	var dispersion FilterCoefficients
	dispersion.AllPass1stOrderInvertPhaseAbove(dispersionCorner)
	phaseDelay := allPassPhaseDelay(dispersion.B0, 2.0*math.Pi*freq/sampleRate)

	delayLength := period - phaseDelay - 1.0
	if delayLength < 2.0 {
		delayLength = 2.0
	}
	str.delayLength = delayLength
	integerDelay := int(delayLength)
	fractionalDelay := delayLength - float64(integerDelay)
	var fractional FilterCoefficients
	fractional.AllPass1stOrderFractionalDelay(fractionalDelay)

	// per-cycle attenuation from the sustain setting: -60 dB at the decay
	// time the sustain selects
	decaySeconds := 0.05 * math.Exp2(float64(inst.Sustain)*0.65)
	loopGain := math.Pow(10.0, -3.0/(freq*decaySeconds))
	var shelf FilterCoefficients
	shelf.HighShelf1stOrder(math.Min(math.Pi*0.9, 2.0*math.Pi*4000.0/sampleRate), 0.4)
	shelf.ScaleGain(loopGain)

	if !str.plucked || str.currentPitch != tone.Pitches[0] {
		s.pluckString(inst, str, period, integerDelay)
		str.plucked = true
		str.currentPitch = tone.Pitches[0]
	}

	mask := len(str.delayLine) - 1
	expression := tone.expression
	filters := tone.filters[:tone.filterCount]
	for i := range buffer {
		readIndex := (str.delayIndex - integerDelay + len(str.delayLine)) & mask
		raw := float64(str.delayLine[readIndex])

		// fractional-delay all-pass tap
		tap := fractional.B0*raw + fractional.B1*str.fractionalInput1 - fractional.A1*str.fractionalOutput1
		str.fractionalInput1 = raw
		str.fractionalOutput1 = tap

		// dispersion all-pass
		dispersed := dispersion.B0*tap + dispersion.B1*str.allPassInput1 - dispersion.A1*str.allPassOutput1
		str.allPassInput1 = tap
		str.allPassOutput1 = dispersed

		// high-shelf decay filter
		damped := shelf.B0*dispersed + shelf.B1*str.shelfInput1 - shelf.A1*str.shelfOutput1
		str.shelfInput1 = dispersed
		str.shelfOutput1 = damped

		str.delayLine[str.delayIndex&mask] = float32(damped)
		str.delayIndex++

		sample := applyFilters(damped, filters)
		buffer[i] += float32(sample * expression)
		expression += tone.expressionDelta
	}
	tone.expression = expression
}

const guitarImpulseMargin = 64

// allPassPhaseDelay returns the phase delay in samples of the first-order
// all-pass H(z) = (g + z^-1)/(1 + g z^-1) at the given radians per sample,
// -arg(H)/ω. Near DC it approaches (1-g)/(1+g).
func allPassPhaseDelay(g, radians float64) float64 {
	if radians <= 0 {
		return (1.0 - g) / (1.0 + g)
	}
	sin, cos := math.Sin(radians), math.Cos(radians)
	phase := math.Atan2(-sin, g+cos) - math.Atan2(-g*sin, 1.0+g*cos)
	return -phase / radians
}

// pluckString injects the initial spectrum into the region the read head is
// about to traverse: a zeroed span of two periods, then two integrated
// antialiased impulses of opposite sign, offset by the pulse width with a
// small random jitter.
func (s *Synth) pluckString(inst *beepbox.Instrument, str *guitarString, period float64, integerDelay int) {
	impulse := s.waves.guitarImpulseWave()
	mask := len(str.delayLine) - 1
	start := str.delayIndex - integerDelay
	zeroSpan := int(period * 2.0)
	if zeroSpan > len(str.delayLine) {
		zeroSpan = len(str.delayLine)
	}
	for i := 0; i < zeroSpan; i++ {
		str.delayLine[(start+i+len(str.delayLine))&mask] = 0
	}

	// the reader consumes exactly integerDelay slots before the writer laps
	// them, so the impulse has to fit in that window
	span := integerDelay
	width := pulseWidthSetting(inst.PulseWidth) * 2.0
	jitter := 1.0 + guitarPulseWidthRandomness*(s.rand.Float01()-0.5)
	offset := width * period * jitter
	stride := float64(guitarImpulseLength) / period
	for i := 0; i < span; i++ {
		posA := float64(i) * stride
		posB := posA - offset*stride
		value := sampleIntegratedImpulse(impulse, posA) - sampleIntegratedImpulse(impulse, posB)
		index := (start + i + len(str.delayLine)) & mask
		str.delayLine[index] += float32(value)
	}
}

const guitarPulseWidthRandomness = 0.1

func sampleIntegratedImpulse(impulse []float32, pos float64) float64 {
	if pos <= 0 {
		return float64(impulse[0])
	}
	if pos >= float64(len(impulse)-1) {
		return float64(impulse[len(impulse)-1])
	}
	index := int(pos)
	frac := pos - float64(index)
	return float64(impulse[index]) + (float64(impulse[index+1])-float64(impulse[index]))*frac
}
