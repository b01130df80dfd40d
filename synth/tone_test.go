package synth

import (
	"math"
	"testing"

	"github.com/keisili/beepbox"
)

func envByName(t *testing.T, name string) beepbox.Envelope {
	t.Helper()
	for _, e := range beepbox.Envelopes {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("no envelope named %q", name)
	return beepbox.Envelope{}
}

func TestEnvelopeBoundaryValues(t *testing.T) {
	const eps = 1e-9
	if v := envelopeValue(envByName(t, "twang 1"), 0, 0, 1); math.Abs(v-1.0) > eps {
		t.Errorf("twang(0) = %f, want 1", v)
	}
	if v := envelopeValue(envByName(t, "swell 1"), 1e9, 0, 1); math.Abs(v-1.0) > 1e-6 {
		t.Errorf("swell(inf) = %f, want 1", v)
	}
	if v := envelopeValue(envByName(t, "punch"), 0, 0, 1); math.Abs(v-2.0) > eps {
		t.Errorf("punch(0) = %f, want 2", v)
	}
	flare := envByName(t, "flare 2")
	attack := 0.25 / math.Sqrt(flare.Speed)
	if v := envelopeValue(flare, attack, 0, 1); math.Abs(v-1.0) > 1e-6 {
		t.Errorf("flare(attack) = %f, want 1", v)
	}
	if v := envelopeValue(envByName(t, "decay 1"), 0, 0, 1); math.Abs(v-1.0) > eps {
		t.Errorf("decay(0) = %f, want 1", v)
	}
	if v := envelopeValue(envByName(t, "tremolo1"), 0, 0, 1); math.Abs(v) > eps {
		t.Errorf("tremolo(0) = %f, want 0", v)
	}
	if v := envelopeValue(envByName(t, "tremolo4"), 0, 0, 1); math.Abs(v-0.5) > eps {
		t.Errorf("tremolo2(0) = %f, want 0.5", v)
	}
	if v := envelopeValue(envByName(t, "steady"), 12345, 678, 0.5); math.Abs(v-1.0) > eps {
		t.Errorf("steady(t) = %f, want 1", v)
	}
	if v := envelopeValue(envByName(t, "custom"), 3, 4, 0.75); math.Abs(v-0.75) > eps {
		t.Errorf("custom should return the note expression, got %f", v)
	}
}

func TestUnknownEnvelopeIsFatal(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("an unknown envelope type should panic")
		}
	}()
	envelopeValue(beepbox.Envelope{Type: beepbox.EnvelopeType(99)}, 0, 0, 1)
}

func TestNotePinsInterpolation(t *testing.T) {
	note := &beepbox.Note{
		Pitches: []int{12},
		Start:   0,
		End:     12,
		Pins: []beepbox.Pin{
			{Time: 0, Interval: 0, Expression: 0},
			{Time: 6, Interval: 6, Expression: 3},
			{Time: 12, Interval: 6, Expression: 1},
		},
	}
	interval, expression := notePinsAt(note, 3)
	if math.Abs(interval-3.0) > 1e-9 || math.Abs(expression-1.5) > 1e-9 {
		t.Errorf("mid first segment: interval %f expression %f", interval, expression)
	}
	interval, expression = notePinsAt(note, 9)
	if math.Abs(interval-6.0) > 1e-9 || math.Abs(expression-2.0) > 1e-9 {
		t.Errorf("mid second segment: interval %f expression %f", interval, expression)
	}
	// out of range clamps to the boundary pins
	if interval, _ = notePinsAt(note, -5); interval != 0 {
		t.Errorf("before the note: interval %f", interval)
	}
	if interval, _ = notePinsAt(note, 50); interval != 6 {
		t.Errorf("after the note: interval %f", interval)
	}
}

func TestPitchToHzReferences(t *testing.T) {
	if hz := pitchToHz(69); math.Abs(hz-440.0) > 1e-9 {
		t.Errorf("A4 should be 440 Hz, got %f", hz)
	}
	if hz := pitchToHz(60); math.Abs(hz-261.6255653) > 1e-3 {
		t.Errorf("middle C should be 261.63 Hz, got %f", hz)
	}
}

func TestOperatorAmplitudeCurve(t *testing.T) {
	if v := operatorAmplitudeCurve(0); v != 0 {
		t.Errorf("amplitude 0 should be silent, got %f", v)
	}
	if v := operatorAmplitudeCurve(beepbox.OperatorAmplitudeMax); math.Abs(v-1.0) > 1e-9 {
		t.Errorf("max amplitude should be unity, got %f", v)
	}
	prev := -1.0
	for a := 0; a <= beepbox.OperatorAmplitudeMax; a++ {
		v := operatorAmplitudeCurve(float64(a))
		if v <= prev {
			t.Fatalf("amplitude curve should be strictly increasing at %d", a)
		}
		prev = v
	}
}

// Slide transitions blend expression, decay time and chord expression with
// the neighboring notes, not just the interval.
func TestSlideTransitionBlendsWithNeighbors(t *testing.T) {
	pins := func(expression int) []beepbox.Pin {
		return []beepbox.Pin{
			{Time: 0, Interval: 0, Expression: expression},
			{Time: 24, Interval: 0, Expression: expression},
		}
	}
	first := beepbox.Note{Pitches: []int{12}, Start: 0, End: 24, Pins: pins(3)}
	second := beepbox.Note{Pitches: []int{12}, Start: 24, End: 48, Pins: pins(1)}

	compute := func(configure func(*beepbox.Instrument), tone func(*Tone)) *Tone {
		s := testSong(1)
		inst := &s.Channels[0].Instruments[0]
		configure(inst)
		engine := NewSynth(s, beepbox.DefaultSampleRate)
		engine.syncState()
		samplesPerTick := engine.SamplesPerTick()
		engine.tick = second.Start * beepbox.TicksPerPart
		engine.tickSampleCountdown = samplesPerTick
		result := engine.newTone()
		result.note = &second
		result.noteStartPart = second.Start
		result.noteEndPart = second.End
		result.Pitches[0] = second.Pitches[0]
		result.PitchCount = 1
		// the tone has already sounded through the first note, past its attack
		result.secondsAlive = 0.5
		tone(result)
		engine.computeTone(inst, 0, result, 128, samplesPerTick)
		return result
	}
	slide := func(inst *beepbox.Instrument) { inst.Transition = 3 }

	// the previous note ended louder, so the blended start is louder too
	blended := compute(slide, func(tone *Tone) { tone.prevNote = &first })
	plain := compute(slide, func(tone *Tone) {})
	if blended.expression <= plain.expression {
		t.Errorf("sliding from a louder note should raise the start expression: %f vs %f", blended.expression, plain.expression)
	}

	// without slides nothing blends
	hardBlend := compute(func(inst *beepbox.Instrument) { inst.Transition = 1 }, func(tone *Tone) { tone.prevNote = &first })
	hardPlain := compute(func(inst *beepbox.Instrument) { inst.Transition = 1 }, func(tone *Tone) {})
	if hardBlend.expression != hardPlain.expression {
		t.Errorf("a hard transition should not blend expression: %f vs %f", hardBlend.expression, hardPlain.expression)
	}

	// the decay-time clock carries over from the note slid from; a twang
	// pulse envelope makes that observable as a narrower starting width
	slidePWM := func(inst *beepbox.Instrument) {
		inst.SetTypeAndReset(beepbox.InstrumentPWM)
		inst.Transition = 3
		inst.PulseEnvelope = 6 // twang 1
	}
	pwmBlended := compute(slidePWM, func(tone *Tone) { tone.prevNote = &first })
	pwmPlain := compute(slidePWM, func(tone *Tone) {})
	if pwmBlended.pulseWidth >= pwmPlain.pulseWidth {
		t.Errorf("carrying the decay time over should advance the twang envelope: width %f vs %f", pwmBlended.pulseWidth, pwmPlain.pulseWidth)
	}

	// chord expression blends toward the neighbor's chord size: a previous
	// three-pitch chord pulls the start below the single-pitch case
	chordPrev := first.Copy()
	chordPrev.Pitches = []int{12, 16, 19}
	chordBlended := compute(slide, func(tone *Tone) { tone.prevNote = &chordPrev })
	if chordBlended.expression >= blended.expression {
		t.Errorf("sliding from a three-pitch chord should pull expression toward its chord scaling: %f vs %f", chordBlended.expression, blended.expression)
	}
}

func TestAllPassPhaseDelay(t *testing.T) {
	for _, g := range []float64{-0.5, 0.0, 0.3, 0.8} {
		dc := (1.0 - g) / (1.0 + g)
		if got := allPassPhaseDelay(g, 1e-6); math.Abs(got-dc) > 1e-3 {
			t.Errorf("g=%f: phase delay near DC should approach %f, got %f", g, dc, got)
		}
		if got := allPassPhaseDelay(g, 1.0); math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("g=%f: phase delay not finite at 1 rad/sample", g)
		}
	}
}

func TestPulseWidthSettingRange(t *testing.T) {
	prev := 0.0
	for pw := 0; pw < beepbox.PulseWidthRange; pw++ {
		w := pulseWidthSetting(pw)
		if w <= prev || w > 0.5 {
			t.Fatalf("pulse width %d should grow toward 0.5, got %f after %f", pw, w, prev)
		}
		prev = w
	}
	if math.Abs(pulseWidthSetting(beepbox.PulseWidthRange-1)-0.5) > 1e-9 {
		t.Errorf("top pulse width setting should be a square 0.5")
	}
}
