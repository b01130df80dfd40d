package synth

import (
	"math"
	"testing"

	"github.com/keisili/beepbox"
)

// testSong returns a short song at 120 BPM with the default channel layout.
func testSong(bars int) *beepbox.Song {
	s := beepbox.NewSong()
	s.Tempo = 120
	s.SetBarCount(bars)
	s.LoopStart = 0
	s.LoopLength = bars
	return s
}

// setNote puts a single note in channel's first pattern and assigns it to
// the first bar.
func setNote(s *beepbox.Song, channel, pitch, start, end int) {
	s.Channels[channel].Patterns[0] = beepbox.Pattern{
		Instrument: 0,
		Notes: []beepbox.Note{{
			Pitches: []int{pitch},
			Start:   start,
			End:     end,
			Pins: []beepbox.Pin{
				{Time: 0, Interval: 0, Expression: 3},
				{Time: end - start, Interval: 0, Expression: 3},
			},
		}},
	}
	s.Channels[channel].Bars[0] = 1
}

func centsOff(got, want float64) float64 {
	return 1200.0 * math.Log2(got/want)
}

func TestEmptySongRendersSilence(t *testing.T) {
	s := testSong(1)
	buffer, err := RenderSong(s, beepbox.DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("RenderSong: %v", err)
	}
	if len(buffer) < 2*beepbox.DefaultSampleRate {
		t.Fatalf("expected at least 2 seconds of audio, got %d samples", len(buffer))
	}
	for i, sample := range buffer {
		if sample[0] != 0 || sample[1] != 0 {
			t.Fatalf("sample %d is %v, expected exact zero", i, sample)
		}
	}
}

func TestChipSquareMiddleC(t *testing.T) {
	s := testSong(1)
	// channel 0 sits at octave 3, so song pitch 12 sounds at MIDI 60
	setNote(s, 0, 12, 0, beepbox.PartsPerBeat)
	buffer, err := RenderSong(s, beepbox.DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("RenderSong: %v", err)
	}
	left := ChannelSamples(buffer, 0)
	peak := Peak(left[:22050])
	if peak < 0.05 || peak > 0.9 {
		t.Errorf("peak %f outside 0.05..0.9", peak)
	}
	freq := DominantFrequency(left[1000:1000+16384], beepbox.DefaultSampleRate)
	if off := centsOff(freq, 261.6255653); math.Abs(off) > 1.0 {
		t.Errorf("fundamental at %f Hz, %f cents off middle C", freq, off)
	}
}

func TestFMSingleCarrierIsPureSine(t *testing.T) {
	s := testSong(1)
	inst := &s.Channels[0].Instruments[0]
	inst.SetTypeAndReset(beepbox.InstrumentFM)
	inst.Algorithm = 0
	inst.FeedbackAmplitude = 0
	inst.Operators[0] = beepbox.Operator{Frequency: 0, Amplitude: 10, Envelope: beepbox.EnvelopeSteadyIndex}
	for i := 1; i < beepbox.OperatorCount; i++ {
		inst.Operators[i].Amplitude = 0
	}
	// song pitch 0 sounds at MIDI 48, one second at 120 BPM is two beats
	setNote(s, 0, 0, 0, 2*beepbox.PartsPerBeat)
	buffer, err := RenderSong(s, beepbox.DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("RenderSong: %v", err)
	}
	left := ChannelSamples(buffer, 0)
	segment := left[2000 : 2000+32768]
	freq := DominantFrequency(segment, beepbox.DefaultSampleRate)
	if off := centsOff(freq, 130.8127827); math.Abs(off) > 1.0 {
		t.Errorf("fundamental at %f Hz, %f cents off C3", freq, off)
	}
	// purity: nearly all energy concentrates around the fundamental
	power := PowerSpectrum(segment)
	binWidth := float64(beepbox.DefaultSampleRate) / float64(len(power)*2)
	fundBin := int(130.8127827/binWidth + 0.5)
	var fundamental, total float64
	for i := 2; i < len(power); i++ {
		total += power[i]
		if i >= fundBin-3 && i <= fundBin+3 {
			fundamental += power[i]
		}
	}
	if fundamental < total*0.95 {
		t.Errorf("output is not a pure sinusoid: %f%% of energy at the fundamental", 100*fundamental/total)
	}
}

func TestGuitarDecayEnvelope(t *testing.T) {
	s := testSong(1)
	inst := &s.Channels[0].Instruments[0]
	inst.SetTypeAndReset(beepbox.InstrumentGuitar)
	inst.Sustain = 6
	// two seconds at 120 BPM is four beats
	setNote(s, 0, 0, 0, 4*beepbox.PartsPerBeat)
	buffer, err := RenderSong(s, beepbox.DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("RenderSong: %v", err)
	}
	left := ChannelSamples(buffer, 0)
	windowSize := beepbox.DefaultSampleRate / 100 // 10 ms
	rms := RMSWindows(left[:2*beepbox.DefaultSampleRate], windowSize)
	peakRMS := 0.0
	for _, v := range rms {
		peakRMS = math.Max(peakRMS, v)
	}
	if peakRMS == 0 {
		t.Fatal("guitar produced no output")
	}
	// monotonically decreasing after 50 ms, with a little slack for beating
	// between partials
	for i := 6; i < len(rms); i++ {
		if rms[i] > rms[i-1]*1.05+1e-6 {
			t.Fatalf("envelope rises at window %d: %f -> %f", i, rms[i-1], rms[i])
		}
	}
	if last := rms[len(rms)-1]; last > peakRMS*0.1 {
		t.Errorf("envelope should fall below 10%% of its peak by 2 s: %f vs peak %f", last, peakRMS)
	}
}

func TestPanningHardRight(t *testing.T) {
	s := testSong(1)
	inst := &s.Channels[0].Instruments[0]
	inst.SetEffectEnabled(beepbox.EffectPanning, true)
	inst.Pan = beepbox.PanMax
	setNote(s, 0, 12, 0, 4*beepbox.PartsPerBeat)
	buffer, err := RenderSong(s, beepbox.DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("RenderSong: %v", err)
	}
	leftRMS := RMS(ChannelSamples(buffer[:88200], 0))
	rightRMS := RMS(ChannelSamples(buffer[:88200], 1))
	if rightRMS == 0 {
		t.Fatal("no output on the right channel")
	}
	if leftRMS >= rightRMS*0.1 {
		t.Errorf("left RMS %f should be under 10%% of right RMS %f", leftRMS, rightRMS)
	}
}

func TestSeamlessTransitionKeepsTone(t *testing.T) {
	s := testSong(1)
	inst := &s.Channels[0].Instruments[0]
	inst.Transition = 0 // seamless
	s.Channels[0].Patterns[0] = beepbox.Pattern{
		Instrument: 0,
		Notes: []beepbox.Note{
			{Pitches: []int{12}, Start: 0, End: 24, Pins: []beepbox.Pin{{Time: 0, Interval: 0, Expression: 3}, {Time: 24, Interval: 0, Expression: 3}}},
			{Pitches: []int{12}, Start: 24, End: 48, Pins: []beepbox.Pin{{Time: 0, Interval: 0, Expression: 3}, {Time: 24, Interval: 0, Expression: 3}}},
		},
	}
	s.Channels[0].Bars[0] = 1

	engine := NewSynth(s, beepbox.DefaultSampleRate)
	engine.Play()
	chunk := make(beepbox.AudioBuffer, 256)
	var firstTone *Tone
	var output []float32
	boundarySample := int(0.5 * beepbox.DefaultSampleRate)
	for rendered := 0; rendered < beepbox.DefaultSampleRate; rendered += len(chunk) {
		if err := engine.Render(chunk); err != nil {
			t.Fatalf("Render: %v", err)
		}
		for _, sample := range chunk {
			output = append(output, sample[0])
		}
		state := engine.channels[0].instruments[0]
		if rendered > 1000 && firstTone == nil && len(state.activeTones) > 0 {
			firstTone = state.activeTones[0]
		}
		if rendered > boundarySample+2000 {
			if len(state.activeTones) == 0 || state.activeTones[0] != firstTone {
				t.Fatal("seamless transition should keep the same tone across the note boundary")
			}
			break
		}
	}
	if firstTone == nil {
		t.Fatal("no tone was created")
	}

	// no discontinuity spike at the boundary
	maxStepAround := 0.0
	for i := boundarySample - 500; i < boundarySample+500 && i+1 < len(output); i++ {
		maxStepAround = math.Max(maxStepAround, math.Abs(float64(output[i+1]-output[i])))
	}
	maxStepGlobal := 0.0
	for i := 5000; i+1 < len(output) && i < boundarySample-1000; i++ {
		maxStepGlobal = math.Max(maxStepGlobal, math.Abs(float64(output[i+1]-output[i])))
	}
	if maxStepAround > maxStepGlobal*1.5+1e-6 {
		t.Errorf("discontinuity at the seamless boundary: step %f vs steady-state %f", maxStepAround, maxStepGlobal)
	}
}

func TestDelayTailFlushing(t *testing.T) {
	s := testSong(2)
	inst := &s.Channels[0].Instruments[0]
	inst.SetEffectEnabled(beepbox.EffectReverb, true)
	inst.Reverb = 2
	setNote(s, 0, 12, 0, beepbox.PartsPerBeat)

	engine := NewSynth(s, beepbox.DefaultSampleRate)
	engine.Play()
	chunk := make(beepbox.AudioBuffer, 128)
	state := func() *instrumentState { return engine.channels[0].instruments[0] }

	tonesGoneTick := -1
	deactivatedTick := -1
	for rendered := 0; rendered < 8*beepbox.DefaultSampleRate; rendered += len(chunk) {
		if err := engine.Render(chunk); err != nil {
			t.Fatalf("Render: %v", err)
		}
		st := state()
		if tonesGoneTick == -1 && rendered > 1000 && len(st.activeTones) == 0 && len(st.releasedTones) == 0 {
			tonesGoneTick = engine.totalTicks
		}
		if tonesGoneTick != -1 && !st.awake {
			deactivatedTick = engine.totalTicks
			break
		}
	}
	if tonesGoneTick == -1 {
		t.Fatal("tones never stopped")
	}
	if deactivatedTick == -1 {
		t.Fatal("instrument never deactivated after its tones stopped")
	}
	bound := int(float64(reverbDelayBufferSize)/engine.SamplesPerTick()) + 3
	if deactivatedTick-tonesGoneTick > bound {
		t.Errorf("deactivation took %d ticks, bound is %d", deactivatedTick-tonesGoneTick, bound)
	}
	for i, v := range state().reverbDelayLine {
		if v != 0 {
			t.Fatalf("reverb delay line not cleared at %d: %f", i, v)
		}
	}
}

func TestMasterLimiter(t *testing.T) {
	engine := NewSynth(testSong(1), beepbox.DefaultSampleRate)
	buffer := make(beepbox.AudioBuffer, beepbox.DefaultSampleRate)
	const amplitude = 2.0
	for i := range buffer {
		v := float32(amplitude * math.Sin(2.0*math.Pi*440.0*float64(i)/beepbox.DefaultSampleRate))
		buffer[i] = [2]float32{v, v}
	}
	engine.applyLimiter(buffer)
	peak := 0.0
	for _, sample := range buffer[len(buffer)/2:] {
		peak = math.Max(peak, math.Abs(float64(sample[0])))
	}
	if limit := engine.Volume / 0.95; peak > limit {
		t.Errorf("converged limiter output peak %f exceeds %f", peak, limit)
	}

	// the follower relaxes back toward zero in silence
	silence := make(beepbox.AudioBuffer, 2*beepbox.DefaultSampleRate)
	engine.applyLimiter(silence)
	if engine.limit > 0.05 {
		t.Errorf("limit should decay toward zero in silence, still %f", engine.limit)
	}
}

// every instrument variant renders finite, nonzero audio
func TestAllInstrumentTypesRender(t *testing.T) {
	for _, instrumentType := range beepbox.PitchInstrumentTypes {
		t.Run(instrumentType.String(), func(t *testing.T) {
			s := testSong(1)
			s.Channels[0].Instruments[0].SetTypeAndReset(instrumentType)
			setNote(s, 0, 12, 0, 2*beepbox.PartsPerBeat)
			assertAudible(t, s)
		})
	}
	for _, instrumentType := range beepbox.NoiseInstrumentTypes {
		t.Run(instrumentType.String(), func(t *testing.T) {
			s := testSong(1)
			noiseChannel := s.PitchChannelCount
			s.Channels[noiseChannel].Instruments[0].SetTypeAndReset(instrumentType)
			setNote(s, noiseChannel, 4, 0, 2*beepbox.PartsPerBeat)
			assertAudible(t, s)
		})
	}
}

func assertAudible(t *testing.T, s *beepbox.Song) {
	t.Helper()
	buffer, err := RenderSong(s, beepbox.DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("RenderSong: %v", err)
	}
	sum := 0.0
	for _, sample := range buffer {
		for c := 0; c < 2; c++ {
			v := float64(sample[c])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatal("output contains NaN or Inf")
			}
			sum += math.Abs(v)
		}
	}
	if sum == 0 {
		t.Fatal("instrument produced no output at all")
	}
}

func TestEffectsChainSmoke(t *testing.T) {
	s := testSong(1)
	inst := &s.Channels[0].Instruments[0]
	for effect := 0; effect < beepbox.EffectCount; effect++ {
		inst.SetEffectEnabled(effect, true)
	}
	inst.DistortionFilter.Points = []beepbox.FilterControlPoint{
		{Type: beepbox.FilterLowPass, Freq: 25, Gain: beepbox.FilterGainCenter},
	}
	setNote(s, 0, 12, 0, 2*beepbox.PartsPerBeat)
	assertAudible(t, s)
}

func TestRenderDeterminism(t *testing.T) {
	build := func() *beepbox.Song {
		s := testSong(1)
		inst := &s.Channels[0].Instruments[0]
		inst.SetTypeAndReset(beepbox.InstrumentGuitar)
		setNote(s, 0, 12, 0, 2*beepbox.PartsPerBeat)
		return s
	}
	a, err := RenderSong(build(), beepbox.DefaultSampleRate, 42)
	if err != nil {
		t.Fatalf("RenderSong: %v", err)
	}
	b, err := RenderSong(build(), beepbox.DefaultSampleRate, 42)
	if err != nil {
		t.Fatalf("RenderSong: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at sample %d", i)
		}
	}
}
