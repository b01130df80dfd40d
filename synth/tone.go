package synth

import (
	"fmt"
	"math"

	"github.com/keisili/beepbox"
)

const operatorSlots = beepbox.OperatorCount

// Base output level per instrument type, scaling the raw ±1 generators down
// to mixing range.
var baseExpressions = map[beepbox.InstrumentType]float64{
	beepbox.InstrumentChip:      0.05,
	beepbox.InstrumentFM:        0.12,
	beepbox.InstrumentNoise:     0.2,
	beepbox.InstrumentSpectrum:  0.3,
	beepbox.InstrumentDrumset:   0.45,
	beepbox.InstrumentHarmonics: 0.035,
	beepbox.InstrumentPWM:       0.06,
	beepbox.InstrumentGuitar:    0.06,
}

type (
	// Tone is the per-voice synthesis state of one sounding note (or live
	// input pitch). Tones are pooled; Reset prepares a pooled tone for
	// reuse.
	Tone struct {
		Pitches    [beepbox.MaxChordSize]int
		PitchCount int

		note     *beepbox.Note
		prevNote *beepbox.Note
		nextNote *beepbox.Note

		noteStartPart int
		noteEndPart   int

		liveInput          bool
		released           bool
		ticksSinceReleased int
		fadeOutFast        bool
		isOnLastTick       bool

		// secondsAlive measures attack progress; it survives seamless
		// transitions so back-to-back notes do not re-attack.
		secondsAlive float64

		phases          [operatorSlots]float64
		phaseDeltas     [operatorSlots]float64
		phaseDeltaScale float64
		noiseSample     float64

		expression      float64
		expressionDelta float64

		operatorExpressions      [operatorSlots]float64
		operatorExpressionDeltas [operatorSlots]float64
		feedbackOutputs          [operatorSlots]float64
		feedbackMult             float64
		feedbackDelta            float64

		pulseWidth      float64
		pulseWidthDelta float64

		pitchFilterMult float64

		filters     [beepbox.FilterMaxPoints]DynamicBiquadFilter
		filterCount int

		guitar    *guitarString
		drumIndex int
	}
)

// Reset returns a pooled tone to its initial state.
func (t *Tone) Reset() {
	*t = Tone{phaseDeltaScale: 1.0}
}

func envelopeValue(env beepbox.Envelope, timeSeconds, beats, noteExpression float64) float64 {
	switch env.Type {
	case beepbox.EnvelopeCustom:
		return noteExpression
	case beepbox.EnvelopeSteady:
		return 1.0
	case beepbox.EnvelopePunch:
		return math.Max(1.0, 2.0-timeSeconds*10.0)
	case beepbox.EnvelopeFlare:
		attack := 0.25 / math.Sqrt(env.Speed)
		if timeSeconds < attack {
			return timeSeconds / attack
		}
		return 1.0 / (1.0 + (timeSeconds-attack)*env.Speed)
	case beepbox.EnvelopeTwang:
		return 1.0 / (1.0 + timeSeconds*env.Speed)
	case beepbox.EnvelopeSwell:
		return 1.0 - 1.0/(1.0+timeSeconds*env.Speed)
	case beepbox.EnvelopeTremolo:
		return 0.5 - 0.5*math.Cos(2.0*math.Pi*beats*env.Speed)
	case beepbox.EnvelopeTremolo2:
		return 0.75 - 0.25*math.Cos(2.0*math.Pi*beats*env.Speed)
	case beepbox.EnvelopeDecay:
		return math.Exp2(-env.Speed * timeSeconds)
	}
	// An unknown envelope at tone time is a configuration bug, not user
	// input.
	panic(fmt.Sprintf("unknown envelope type %d", env.Type))
}

func pitchToHz(semitone float64) float64 {
	return 440.0 * math.Exp2((semitone-69.0)/12.0)
}

// notePinsAt interpolates a note's pins at a time measured in parts relative
// to the note start.
func notePinsAt(note *beepbox.Note, partTime float64) (interval, expression float64) {
	pins := note.Pins
	if partTime <= 0 {
		return float64(pins[0].Interval), float64(pins[0].Expression)
	}
	last := pins[len(pins)-1]
	if partTime >= float64(last.Time) {
		return float64(last.Interval), float64(last.Expression)
	}
	for i := 1; i < len(pins); i++ {
		if partTime <= float64(pins[i].Time) {
			prev := pins[i-1]
			next := pins[i]
			ratio := (partTime - float64(prev.Time)) / float64(next.Time-prev.Time)
			interval = float64(prev.Interval) + (float64(next.Interval)-float64(prev.Interval))*ratio
			expression = float64(prev.Expression) + (float64(next.Expression)-float64(prev.Expression))*ratio
			return interval, expression
		}
	}
	return float64(last.Interval), float64(last.Expression)
}

// noteEndPitch is the sounding pitch at the end of a note, for slides.
func noteEndPitch(note *beepbox.Note) float64 {
	return float64(note.Pitches[0] + note.Pins[len(note.Pins)-1].Interval)
}

// computeTone refreshes every per-run synthesis parameter of one tone:
// interval, vibrato, arpeggio, envelopes, expression ramps, phase deltas,
// and the filter cascade gradients. The instrument generator loops consume
// the results.
func (s *Synth) computeTone(inst *beepbox.Instrument, channel int, tone *Tone, runLength int, samplesPerTick float64) {
	song := s.Song
	isNoise := song.IsNoiseChannel(channel)
	transition := beepbox.Transitions[inst.Transition]
	chord := beepbox.Chords[inst.Chord]
	intervalConfig := beepbox.Intervals[inst.Interval]
	secondsPerTick := samplesPerTick / float64(s.SampleRate)
	runSeconds := float64(runLength) / float64(s.SampleRate)
	runTicks := float64(runLength) / samplesPerTick

	tickRatio := 1.0 - s.tickSampleCountdown/samplesPerTick
	ticksIntoBarStart := float64(s.tick) + tickRatio
	ticksIntoBarEnd := ticksIntoBarStart + runTicks

	// time into the note, in parts, at the run boundaries
	var partTimeStart, partTimeEnd float64
	var noteLengthTicks float64
	if tone.note != nil {
		partTimeStart = ticksIntoBarStart/beepbox.TicksPerPart - float64(tone.noteStartPart)
		partTimeEnd = ticksIntoBarEnd/beepbox.TicksPerPart - float64(tone.noteStartPart)
		noteLengthTicks = float64(tone.noteEndPart-tone.noteStartPart) * beepbox.TicksPerPart
	}

	intervalStart, pinExpressionStart := 0.0, float64(beepbox.ExpressionMax)
	intervalEnd, pinExpressionEnd := 0.0, float64(beepbox.ExpressionMax)
	if tone.note != nil {
		intervalStart, pinExpressionStart = notePinsAt(tone.note, partTimeStart)
		intervalEnd, pinExpressionEnd = notePinsAt(tone.note, partTimeEnd)
	}

	// decayTime is the envelope clock in seconds; chordExpression scales
	// harmonized chords so they are not louder than single notes
	decayTimeStart := math.Max(0, partTimeStart*beepbox.TicksPerPart*secondsPerTick)
	decayTimeEnd := math.Max(0, partTimeEnd*beepbox.TicksPerPart*secondsPerTick)
	if tone.note == nil {
		decayTimeStart = tone.secondsAlive
		decayTimeEnd = tone.secondsAlive + runSeconds
	}
	chordExpressionStart, chordExpressionEnd := 1.0, 1.0
	if !chord.SingleTone && tone.note != nil && len(tone.note.Pitches) > 1 {
		mult := chordExpression(len(tone.note.Pitches))
		chordExpressionStart = mult
		chordExpressionEnd = mult
	}

	// slide transitions blend interval, decay time, expression and (for
	// non-arpeggiated chords) chord expression with the neighbors over a
	// window at each end of the note
	if transition.Slides && tone.note != nil {
		slideWindow := math.Min(float64(transition.SlideTicks), noteLengthTicks/2.0)
		if slideWindow > 0 {
			ticksIntoNoteStart := partTimeStart * beepbox.TicksPerPart
			ticksIntoNoteEnd := partTimeEnd * beepbox.TicksPerPart
			basePitch := float64(tone.Pitches[0])
			if prev := tone.prevNote; prev != nil {
				from := noteEndPitch(prev) - basePitch
				prevExpression := float64(prev.Pins[len(prev.Pins)-1].Expression)
				prevDecayTime := float64(prev.End-prev.Start) * beepbox.TicksPerPart * secondsPerTick
				prevChordExpression := 1.0
				if !chord.SingleTone && len(prev.Pitches) > 1 {
					prevChordExpression = chordExpression(len(prev.Pitches))
				}
				if ticksIntoNoteStart < slideWindow {
					weight := 0.5 * (1.0 - ticksIntoNoteStart/slideWindow)
					intervalStart += from * weight
					pinExpressionStart += (prevExpression - pinExpressionStart) * weight
					// the envelope clock carries over from the note slid from
					decayTimeStart += prevDecayTime * weight
					if !chord.Arpeggiates {
						chordExpressionStart += (prevChordExpression - chordExpressionStart) * weight
					}
				}
				if ticksIntoNoteEnd < slideWindow {
					weight := 0.5 * (1.0 - ticksIntoNoteEnd/slideWindow)
					intervalEnd += from * weight
					pinExpressionEnd += (prevExpression - pinExpressionEnd) * weight
					decayTimeEnd += prevDecayTime * weight
					if !chord.Arpeggiates {
						chordExpressionEnd += (prevChordExpression - chordExpressionEnd) * weight
					}
				}
			}
			if next := tone.nextNote; next != nil {
				to := float64(next.Pitches[0]) - basePitch
				nextExpression := float64(next.Pins[0].Expression)
				nextChordExpression := 1.0
				if !chord.SingleTone && len(next.Pitches) > 1 {
					nextChordExpression = chordExpression(len(next.Pitches))
				}
				fromEndStart := noteLengthTicks - ticksIntoNoteStart
				fromEndEnd := noteLengthTicks - ticksIntoNoteEnd
				if fromEndStart < slideWindow {
					weight := 0.5 * (1.0 - fromEndStart/slideWindow)
					intervalStart += to * weight
					pinExpressionStart += (nextExpression - pinExpressionStart) * weight
					// the note slid into restarts its envelope clock
					decayTimeStart *= 1.0 - weight
					if !chord.Arpeggiates {
						chordExpressionStart += (nextChordExpression - chordExpressionStart) * weight
					}
				}
				if fromEndEnd < slideWindow {
					weight := 0.5 * (1.0 - fromEndEnd/slideWindow)
					intervalEnd += to * weight
					pinExpressionEnd += (nextExpression - pinExpressionEnd) * weight
					decayTimeEnd *= 1.0 - weight
					if !chord.Arpeggiates {
						chordExpressionEnd += (nextChordExpression - chordExpressionEnd) * weight
					}
				}
			}
		}
	}

	// vibrato
	vibrato := beepbox.Vibratos[inst.Vibrato]
	if vibrato.Amplitude > 0 {
		globalSecondsStart := float64(s.totalSamples) / float64(s.SampleRate)
		globalSecondsEnd := globalSecondsStart + runSeconds
		ampStart, ampEnd := 1.0, 1.0
		if tone.note != nil {
			delay := float64(vibrato.DelayTicks)
			ticksIntoNoteStart := partTimeStart * beepbox.TicksPerPart
			ticksIntoNoteEnd := partTimeEnd * beepbox.TicksPerPart
			ampStart = clampFloat((ticksIntoNoteStart-delay)/2.0, 0.0, 1.0)
			ampEnd = clampFloat((ticksIntoNoteEnd-delay)/2.0, 0.0, 1.0)
		}
		intervalStart += vibratoLFO(vibrato, globalSecondsStart) * vibrato.Amplitude * ampStart
		intervalEnd += vibratoLFO(vibrato, globalSecondsEnd) * vibrato.Amplitude * ampEnd
	}

	// arpeggio selects which chord pitch sounds this tick
	pitch := tone.Pitches[0]
	secondaryPitch := pitch
	if tone.PitchCount > 1 && chord.Arpeggiates {
		rhythm := beepbox.Rhythms[song.Rhythm]
		patterns := rhythm.ArpeggioPatterns
		pattern := patterns[min(tone.PitchCount, len(patterns))-1]
		arpeggio := (s.totalTicks / rhythm.TicksPerArpeggio) % len(pattern)
		if chord.CustomInterval {
			// the first pitch holds, the arpeggio pitch detunes the
			// secondary unison voice
			index := 1 + arpeggio%(tone.PitchCount-1)
			secondaryPitch = tone.Pitches[index]
		} else {
			pitch = tone.Pitches[pattern[arpeggio]%tone.PitchCount]
			secondaryPitch = pitch
		}
	}

	// expression assembly
	expressionStart := baseExpressions[inst.Type] * inst.VolumeMult()
	expressionEnd := expressionStart
	expressionStart *= beepbox.ExpressionToGain(pinExpressionStart)
	expressionEnd *= beepbox.ExpressionToGain(pinExpressionEnd)
	expressionStart *= chordExpressionStart
	expressionEnd *= chordExpressionEnd

	// attack ramp
	if transition.AttackSeconds > 0 {
		attackStart := clampFloat(tone.secondsAlive/transition.AttackSeconds, 0.0, 1.0)
		attackEnd := clampFloat((tone.secondsAlive+runSeconds)/transition.AttackSeconds, 0.0, 1.0)
		expressionStart *= attackStart
		expressionEnd *= attackEnd
	}

	// release fade
	if tone.released {
		releaseTicks := float64(transition.ReleaseTicks)
		relStart := clampFloat(1.0-(float64(tone.ticksSinceReleased)+tickRatio)/releaseTicks, 0.0, 1.0)
		relEnd := clampFloat(1.0-(float64(tone.ticksSinceReleased)+tickRatio+runTicks)/releaseTicks, 0.0, 1.0)
		expressionStart *= math.Pow(relStart, 1.5)
		expressionEnd *= math.Pow(relEnd, 1.5)
		if tone.fadeOutFast {
			expressionEnd = 0.0
		}
		if float64(tone.ticksSinceReleased)+1.0 >= releaseTicks {
			tone.isOnLastTick = true
		}
	}

	// filter cascade with envelope-modulated cutoffs
	beatsIntoBar := ticksIntoBarStart / (beepbox.TicksPerPart * beepbox.PartsPerBeat)
	beatsIntoBarEnd := ticksIntoBarEnd / (beepbox.TicksPerPart * beepbox.PartsPerBeat)
	filterEnv := beepbox.Envelopes[inst.FilterEnvelope]
	noteExprStart := pinExpressionStart / beepbox.ExpressionMax
	noteExprEnd := pinExpressionEnd / beepbox.ExpressionMax
	envStart := envelopeValue(filterEnv, decayTimeStart, beatsIntoBar, noteExprStart)
	envEnd := envelopeValue(filterEnv, decayTimeEnd, beatsIntoBarEnd, noteExprEnd)
	points := inst.Filter.Points
	tone.filterCount = len(points)
	deltaRate := 1.0 / float64(runLength)
	for i, p := range points {
		start := pointToCoefficients(p, float64(s.SampleRate), envStart)
		end := pointToCoefficients(p, float64(s.SampleRate), envEnd)
		tone.filters[i].LoadCoefficientsWithGradient(start, end, deltaRate)
	}
	comp := filterVolumeCompensation(points)
	expressionStart *= comp
	expressionEnd *= comp

	// pitch to frequency
	var baseSemitoneStart, baseSemitoneEnd float64
	if isNoise {
		drum := clampInt(pitch, 0, beepbox.DrumCount-1)
		tone.drumIndex = drum
		wave := beepbox.NoiseWaves[inst.NoiseWave]
		basePitch := float64(wave.BasePitch)
		if inst.Type == beepbox.InstrumentSpectrum || inst.Type == beepbox.InstrumentDrumset {
			basePitch = beepbox.DrumBasePitch
		}
		baseSemitoneStart = basePitch + float64(drum)*6.0 + intervalStart
		baseSemitoneEnd = basePitch + float64(drum)*6.0 + intervalEnd
	} else {
		base := float64(beepbox.BasePitch(song.Key)) + float64(song.Channels[channel].Octave*12)
		baseSemitoneStart = base + float64(pitch) + intervalStart
		baseSemitoneEnd = base + float64(pitch) + intervalEnd
		// quieter at the top of the range
		pitchExpr := math.Exp2(-(float64(pitch) - 12.0) / 48.0)
		expressionStart *= pitchExpr
		expressionEnd *= pitchExpr
	}

	startHz := pitchToHz(baseSemitoneStart)
	endHz := pitchToHz(baseSemitoneEnd)
	startFreq := startHz / float64(s.SampleRate)
	tone.phaseDeltaScale = math.Pow(endHz/startHz, deltaRate)

	switch inst.Type {
	case beepbox.InstrumentChip, beepbox.InstrumentHarmonics:
		spread := intervalConfig.Spread * 0.5
		offset := intervalConfig.Offset
		tone.phaseDeltas[0] = pitchToHz(baseSemitoneStart+offset-spread) / float64(s.SampleRate)
		secondary := baseSemitoneStart + offset + spread
		if secondaryPitch != pitch {
			secondary = baseSemitoneStart + float64(secondaryPitch-pitch) + offset + spread
		}
		tone.phaseDeltas[1] = pitchToHz(secondary) / float64(s.SampleRate)
		expressionStart *= intervalConfig.Expression
		expressionEnd *= intervalConfig.Expression
	case beepbox.InstrumentPWM:
		spread := intervalConfig.Spread * 0.5
		tone.phaseDeltas[0] = pitchToHz(baseSemitoneStart+intervalConfig.Offset-spread) / float64(s.SampleRate)
		tone.phaseDeltas[1] = tone.phaseDeltas[0]
		expressionStart *= intervalConfig.Expression
		expressionEnd *= intervalConfig.Expression
		pwEnv := beepbox.Envelopes[inst.PulseEnvelope]
		widthBase := pulseWidthSetting(inst.PulseWidth)
		widthStart := widthBase * envelopeValue(pwEnv, decayTimeStart, beatsIntoBar, noteExprStart)
		widthEnd := widthBase * envelopeValue(pwEnv, decayTimeEnd, beatsIntoBarEnd, noteExprEnd)
		tone.pulseWidth = clampFloat(widthStart, 0.01, 0.99)
		tone.pulseWidthDelta = (clampFloat(widthEnd, 0.01, 0.99) - tone.pulseWidth) * deltaRate
	case beepbox.InstrumentFM:
		s.computeFMTone(inst, tone, startHz, decayTimeStart, decayTimeEnd, beatsIntoBar, beatsIntoBarEnd, noteExprStart, noteExprEnd, deltaRate, &expressionStart, &expressionEnd)
	case beepbox.InstrumentNoise:
		wave := beepbox.NoiseWaves[inst.NoiseWave]
		// the table plays one sample per output sample at its base pitch
		tone.phaseDeltas[0] = startHz / pitchToHz(float64(wave.BasePitch))
		tone.pitchFilterMult = wave.PitchFilterMult
		expressionStart *= wave.Expression
		expressionEnd *= wave.Expression
	case beepbox.InstrumentSpectrum, beepbox.InstrumentDrumset:
		tone.phaseDeltas[0] = startHz / pitchToHz(beepbox.DrumBasePitch)
		tone.pitchFilterMult = 1.0
		if inst.Type == beepbox.InstrumentDrumset {
			env := beepbox.Envelopes[inst.DrumsetEnvelopes[tone.drumIndex]]
			expressionStart *= envelopeValue(env, decayTimeStart, beatsIntoBar, noteExprStart)
			expressionEnd *= envelopeValue(env, decayTimeEnd, beatsIntoBarEnd, noteExprEnd)
		}
	case beepbox.InstrumentGuitar:
		tone.phaseDeltas[0] = startFreq
		expressionStart *= intervalConfig.Expression
		expressionEnd *= intervalConfig.Expression
	}

	tone.expression = expressionStart
	tone.expressionDelta = (expressionEnd - expressionStart) * deltaRate
	tone.secondsAlive += runSeconds
}

func (s *Synth) computeFMTone(inst *beepbox.Instrument, tone *Tone, baseHz, secondsStart, secondsEnd, beatsStart, beatsEnd, noteExprStart, noteExprEnd, deltaRate float64, expressionStart, expressionEnd *float64) {
	algorithm := beepbox.Algorithms[inst.Algorithm]
	totalCarrierExpression := 0.0
	totalModulatorAmplitude := 0.0
	for i := 0; i < beepbox.OperatorCount; i++ {
		op := inst.Operators[i]
		freq := beepbox.OperatorFrequencies[op.Frequency]
		hz := baseHz*freq.Mult + freq.HzOffset
		tone.phaseDeltas[i] = hz / float64(s.SampleRate)
		env := beepbox.Envelopes[op.Envelope]
		ampCurve := operatorAmplitudeCurve(float64(op.Amplitude))
		envStart := envelopeValue(env, secondsStart, beatsStart, noteExprStart)
		envEnd := envelopeValue(env, secondsEnd, beatsEnd, noteExprEnd)
		isCarrier := i < algorithm.CarrierCount
		if isCarrier {
			exprStart := ampCurve * envStart * freq.AmplitudeSign
			exprEnd := ampCurve * envEnd * freq.AmplitudeSign
			tone.operatorExpressions[i] = exprStart
			tone.operatorExpressionDeltas[i] = (exprEnd - exprStart) * deltaRate
			totalCarrierExpression += math.Abs(exprStart)
		} else {
			// modulators swing the carrier phase; keep their scale separate
			// from audible expression
			exprStart := ampCurve * envStart * fmModulationIndexScale * freq.AmplitudeSign
			exprEnd := ampCurve * envEnd * fmModulationIndexScale * freq.AmplitudeSign
			tone.operatorExpressions[i] = exprStart
			tone.operatorExpressionDeltas[i] = (exprEnd - exprStart) * deltaRate
			totalModulatorAmplitude += ampCurve * envStart
		}
	}

	fbEnv := beepbox.Envelopes[inst.FeedbackEnvelope]
	fbCurve := operatorAmplitudeCurve(float64(inst.FeedbackAmplitude)) * fmModulationIndexScale * 0.5
	fbStart := fbCurve * envelopeValue(fbEnv, secondsStart, beatsStart, noteExprStart)
	fbEnd := fbCurve * envelopeValue(fbEnv, secondsEnd, beatsEnd, noteExprEnd)
	tone.feedbackMult = fbStart
	tone.feedbackDelta = (fbEnd - fbStart) * deltaRate

	// heavy modulation spreads energy into sidebands; boost to keep the
	// perceived loudness steady
	boost := 1.0 + 2.0*(1.0-1.0/(1.0+totalModulatorAmplitude*0.5))
	if totalCarrierExpression > 1.0 {
		boost /= math.Sqrt(totalCarrierExpression)
	}
	*expressionStart *= boost
	*expressionEnd *= boost
}

// operatorAmplitudeCurve maps the 0..15 amplitude setting exponentially.
func operatorAmplitudeCurve(amplitude float64) float64 {
	return (math.Pow(16.0, amplitude/beepbox.OperatorAmplitudeMax) - 1.0) / 15.0
}

const fmModulationIndexScale = 2.0

// pulseWidthSetting converts the 0..7 setting to a duty cycle in 0..0.5.
func pulseWidthSetting(setting int) float64 {
	return 0.5 * math.Pow(0.5, float64(beepbox.PulseWidthRange-1-setting)*0.5)
}

// chordExpression scales one tone of an n-pitch harmonized chord so chords
// are not louder than single notes.
func chordExpression(pitchCount int) float64 {
	return 1.0 / math.Sqrt(float64(pitchCount))
}

func vibratoLFO(vibrato beepbox.Vibrato, seconds float64) float64 {
	sum := 0.0
	for _, period := range vibrato.Periods {
		sum += math.Sin(2.0 * math.Pi * seconds / period)
	}
	return sum / float64(len(vibrato.Periods))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
