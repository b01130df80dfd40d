package beepbox

import (
	"reflect"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

// testRand is a tiny deterministic generator so the round-trip tests cover
// the same songs on every run.
type testRand struct {
	state uint64
}

func (r *testRand) next(n int) int {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return int((r.state >> 33) % uint64(n))
}

func (r *testRand) pick(values ...int) int {
	return values[r.next(len(values))]
}

func makeRandomSong(seed uint64) *Song {
	r := &testRand{state: seed}
	s := NewSong()
	s.Scale = r.next(len(Scales))
	s.Key = r.next(len(Keys))
	s.Tempo = TempoMin + r.next(TempoMax-TempoMin+1)
	s.BeatsPerBar = BeatsPerBarMin + r.next(6)
	s.Rhythm = r.next(len(Rhythms))
	s.SetChannelCounts(1+r.next(3), r.next(3))
	s.SetBarCount(2 + r.next(8))
	s.SetPatternsPerChannel(1 + r.next(6))
	s.SetInstrumentsPerChannel(1 + r.next(3))
	s.LoopStart = r.next(s.BarCount)
	s.LoopLength = 1 + r.next(s.BarCount-s.LoopStart)

	for ci := range s.Channels {
		channel := &s.Channels[ci]
		channel.Octave = r.next(OctaveOffsetMax + 1)
		for b := range channel.Bars {
			channel.Bars[b] = r.next(s.PatternsPerChannel + 1)
		}
		for ii := range channel.Instruments {
			randomizeInstrument(r, &channel.Instruments[ii], s.IsNoiseChannel(ci))
		}
		for pi := range channel.Patterns {
			randomizePattern(r, &channel.Patterns[pi], s, ci)
		}
	}
	return s
}

func randomizeInstrument(r *testRand, inst *Instrument, isNoise bool) {
	types := PitchInstrumentTypes
	if isNoise {
		types = NoiseInstrumentTypes
	}
	inst.SetTypeAndReset(types[r.next(len(types))])
	inst.Volume = r.next(InstrumentVolumeMax + 1)
	inst.Preset = r.next(len(Presets))
	inst.Effects = uint32(r.next(1 << EffectCount))
	inst.Distortion = r.next(DistortionRange)
	inst.BitcrusherFreq = r.next(BitcrusherFreqRange)
	inst.BitcrusherQuantization = r.next(BitcrusherQuantRange)
	inst.Pan = r.next(PanMax + 1)
	inst.Reverb = r.next(ReverbRange)
	inst.FilterEnvelope = r.next(len(Envelopes))
	inst.Transition = r.next(len(Transitions))
	inst.Chord = r.next(len(Chords))
	inst.Vibrato = r.next(len(Vibratos))
	inst.Filter.Points = randomFilterPoints(r)
	inst.DistortionFilter.Points = randomFilterPoints(r)
	switch inst.Type {
	case InstrumentChip:
		inst.Interval = r.next(len(Intervals))
		inst.ChipWave = r.next(len(ChipWaves))
	case InstrumentNoise:
		inst.NoiseWave = r.next(len(NoiseWaves))
	case InstrumentFM:
		inst.Algorithm = r.next(len(Algorithms))
		inst.FeedbackType = r.next(len(Feedbacks))
		inst.FeedbackAmplitude = r.next(OperatorAmplitudeMax + 1)
		inst.FeedbackEnvelope = r.next(len(Envelopes))
		for i := range inst.Operators {
			inst.Operators[i].Frequency = r.next(len(OperatorFrequencies))
			inst.Operators[i].Amplitude = r.next(OperatorAmplitudeMax + 1)
			inst.Operators[i].Envelope = r.next(len(Envelopes))
		}
	case InstrumentSpectrum:
		for i := range inst.Spectrum.Points {
			inst.Spectrum.Points[i] = r.next(SpectrumMax + 1)
		}
	case InstrumentDrumset:
		for d := range inst.DrumsetEnvelopes {
			inst.DrumsetEnvelopes[d] = r.next(len(Envelopes))
			for i := range inst.DrumsetSpectra[d].Points {
				inst.DrumsetSpectra[d].Points[i] = r.next(SpectrumMax + 1)
			}
		}
	case InstrumentHarmonics:
		inst.Interval = r.next(len(Intervals))
		for i := range inst.Harmonics.Points {
			inst.Harmonics.Points[i] = r.next(HarmonicsMax + 1)
		}
	case InstrumentPWM:
		inst.Interval = r.next(len(Intervals))
		inst.PulseWidth = r.next(PulseWidthRange)
		inst.PulseEnvelope = r.next(len(Envelopes))
	case InstrumentGuitar:
		inst.Interval = r.next(len(Intervals))
		inst.Sustain = r.next(SustainRange)
		inst.PulseWidth = r.next(PulseWidthRange)
		inst.PulseEnvelope = r.next(len(Envelopes))
		for i := range inst.Harmonics.Points {
			inst.Harmonics.Points[i] = r.next(HarmonicsMax + 1)
		}
	}
}

func randomFilterPoints(r *testRand) []FilterControlPoint {
	count := r.next(4)
	var points []FilterControlPoint
	for i := 0; i < count; i++ {
		points = append(points, FilterControlPoint{
			Type: FilterType(r.next(int(FilterTypeCount))),
			Freq: r.next(FilterFreqRange),
			Gain: r.next(FilterGainRange),
		})
	}
	return points
}

func randomizePattern(r *testRand, pattern *Pattern, s *Song, channel int) {
	pattern.Instrument = r.next(s.InstrumentsPerChannel)
	pattern.Notes = nil
	partsPerBar := s.PartsPerBar()
	maxPitch := s.MaxPitchForChannel(channel)
	curPart := 0
	for n := 0; n < 4; n++ {
		start := curPart + r.next(8)
		length := 1 + r.next(24)
		if start+length > partsPerBar {
			break
		}
		note := Note{Start: start, End: start + length}
		pitchCount := 1 + r.next(MaxChordSize)
		pitch := r.next(maxPitch + 1)
		for p := 0; p < pitchCount; p++ {
			if pitch > maxPitch {
				break
			}
			note.Pitches = append(note.Pitches, pitch)
			pitch += 1 + r.next(7)
		}
		note.Pins = append(note.Pins, Pin{Time: 0, Interval: 0, Expression: r.next(ExpressionMax + 1)})
		if length > 2 && r.next(2) == 1 {
			mid := 1 + r.next(length-1)
			interval := 0
			if r.next(2) == 1 {
				interval = r.pick(-12, -5, -1, 1, 5, 12)
			}
			note.Pins = append(note.Pins, Pin{Time: mid, Interval: interval, Expression: r.next(ExpressionMax + 1)})
		}
		lastInterval := 0
		if r.next(3) == 0 {
			lastInterval = r.pick(-12, -2, 2, 12)
		}
		note.Pins = append(note.Pins, Pin{Time: length, Interval: lastInterval, Expression: r.next(ExpressionMax + 1)})
		pattern.Notes = append(pattern.Notes, note)
		curPart = note.End
	}
}

func assertSongsEqual(t *testing.T, want, got *Song, context string) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("%s: songs differ\nwant:\n%s\ngot:\n%s", context, spew.Sdump(want), spew.Sdump(got))
	}
}

func TestURLRoundTripDefaultSong(t *testing.T) {
	song := NewSong()
	url := EncodeURL(song)
	decoded, err := ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	assertSongsEqual(t, song, decoded, "default song")
}

func TestURLRoundTripRandomSongs(t *testing.T) {
	for seed := uint64(1); seed <= 40; seed++ {
		song := makeRandomSong(seed)
		if err := song.Validate(); err != nil {
			t.Fatalf("seed %d: generated an invalid song: %v", seed, err)
		}
		url := EncodeURL(song)
		decoded, err := ParseURL(url)
		if err != nil {
			t.Fatalf("seed %d: ParseURL: %v", seed, err)
		}
		assertSongsEqual(t, song, decoded, spew.Sprintf("seed %d", seed))

		// a second trip through the codec must be byte-identical
		url2 := EncodeURL(decoded)
		if url != url2 {
			t.Fatalf("seed %d: re-encoding changed the URL\nfirst:  %s\nsecond: %s", seed, url, url2)
		}
	}
}

func TestParseURLPrefixes(t *testing.T) {
	song := NewSong()
	url := EncodeURL(song)
	for _, prefix := range []string{"", "#", "  #", "\n#  "} {
		decoded, err := ParseURL(prefix + url)
		if err != nil {
			t.Fatalf("prefix %q: %v", prefix, err)
		}
		assertSongsEqual(t, song, decoded, "prefixed url")
	}
}

func TestParseURLUnknownTagFatal(t *testing.T) {
	url := EncodeURL(NewSong())
	broken := url[:1] + "!" + url[1:]
	if _, err := ParseURL(broken); err == nil {
		t.Fatal("expected an unknown tag to be a fatal decode error")
	}
	if _, err := ParseURL("x123"); err == nil {
		t.Fatal("expected an unrecognized version to be fatal")
	}
}

// legacyURL builds legacy tag streams symbol by symbol.
type legacyURL struct {
	strings.Builder
}

func (u *legacyURL) tag(tag byte, values ...int) {
	u.WriteByte(tag)
	for _, v := range values {
		u.WriteByte(Base64Encode(v))
	}
}

func TestLegacyVersion2Ingestion(t *testing.T) {
	var u legacyURL
	u.WriteByte(Base64Encode(2))
	u.tag('s', 5)
	u.tag('k', 1)
	u.tag('t', 3)
	u.tag('a', 7)
	u.tag('o', 0, 2) // channel 0, octave 2
	u.tag('w', 0, 4) // channel 0, wave 4
	u.tag('d', 0, 3)
	u.tag('c', 1, 2)
	u.tag('f', 0, 5) // channel 0, legacy cutoff 5
	u.tag('y', 0, 2) // channel 0, legacy resonance 2
	u.tag('z', 0, 6) // channel 0, legacy envelope twang 1
	u.tag('q', 0, 1) // channel 0, legacy effect enum: reverb
	u.tag('m', 3)    // global reverb
	url := u.String()

	first, err := ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	second, err := ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL again: %v", err)
	}
	assertSongsEqual(t, first, second, "version 2 decoded twice")

	if first.Tempo != legacyTempos[3] {
		t.Errorf("legacy tempo index 3 should map to %d BPM, got %d", legacyTempos[3], first.Tempo)
	}
	inst := &first.Channels[0].Instruments[0]
	if inst.ChipWave != 4 {
		t.Errorf("channel 0 wave not applied, got %d", inst.ChipWave)
	}
	if len(inst.Filter.Points) != 1 {
		t.Fatalf("legacy filter should translate to one control point, got %d", len(inst.Filter.Points))
	}
	if !inst.EffectEnabled(EffectReverb) || inst.Reverb != 3 {
		t.Errorf("global reverb should transfer to pitch instruments: enabled=%v amount=%d", inst.EffectEnabled(EffectReverb), inst.Reverb)
	}
	// noise channel instruments keep their own reverb
	noiseInst := &first.Channels[first.PitchChannelCount].Instruments[0]
	if noiseInst.EffectEnabled(EffectReverb) {
		t.Error("global reverb should not touch noise channels")
	}

	// re-encoding at the latest version and re-decoding is stable
	reDecoded, err := ParseURL(EncodeURL(first))
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	assertSongsEqual(t, first, reDecoded, "version 2 re-encoded")
}

func TestLegacyVersion5Ingestion(t *testing.T) {
	var u legacyURL
	u.WriteByte(Base64Encode(5))
	u.tag('n', 1, 1)
	u.tag('s', 2)
	u.tag('k', 3)
	u.tag('t', 190>>6, 190&0x3F)
	u.tag('g', 0, 7) // barCount 8
	u.tag('l', 0, 2)
	u.tag('e', 0, 3) // loop length 4
	u.tag('i', 0)
	u.tag('j', 3)
	u.tag('o', 2, 0)
	u.tag('T', int(InstrumentChip))
	u.tag('v', 1)
	u.tag('w', 3)
	u.tag('f', 8)
	u.tag('y', 0)
	u.tag('z', 18) // decay 1
	u.tag('q', 3)  // legacy enum: chorus & reverb
	u.tag('m', 2)
	u.tag('T', int(InstrumentNoise))
	u.tag('v', 0)
	u.tag('w', 1)
	url := u.String()

	first, err := ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	second, err := ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL again: %v", err)
	}
	assertSongsEqual(t, first, second, "version 5 decoded twice")

	if first.Tempo != 190 {
		t.Errorf("wide tempo payload should read 190, got %d", first.Tempo)
	}
	if first.BarCount != 8 || first.LoopStart != 2 || first.LoopLength != 4 {
		t.Errorf("bar/loop fields: barCount=%d loopStart=%d loopLength=%d", first.BarCount, first.LoopStart, first.LoopLength)
	}
	inst := &first.Channels[0].Instruments[0]
	if !inst.EffectEnabled(EffectChorus) || !inst.EffectEnabled(EffectReverb) {
		t.Error("legacy effect enum 3 should enable chorus and reverb")
	}
	if inst.Reverb != 2 {
		t.Errorf("legacy global reverb should transfer, got %d", inst.Reverb)
	}

	reDecoded, err := ParseURL(EncodeURL(first))
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	assertSongsEqual(t, first, reDecoded, "version 5 re-encoded")
}

func TestEncodedFixtureRoundTrip(t *testing.T) {
	song := makeRandomSong(0xBEEB)
	url1 := EncodeURL(song)
	decoded, err := ParseURL(url1)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	url2 := EncodeURL(decoded)
	if url1 != url2 {
		t.Fatalf("fixture encode/decode/encode is not byte-identical:\n%s\n%s", url1, url2)
	}
	again, err := ParseURL(url2)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	assertSongsEqual(t, decoded, again, "fixture")
}

func TestLegacyFilterTranslator(t *testing.T) {
	// flat, no envelope, cutoff at max: no points
	if points := TranslateLegacyFilter(10, 0, false, InstrumentChip); points != nil {
		t.Fatalf("flat legacy filter should produce no points, got %v", points)
	}
	// never more than one point, always in range
	for cutoff := 0; cutoff < legacyFilterCutoffRange; cutoff++ {
		for resonance := 0; resonance < legacyFilterResonanceRange; resonance++ {
			for _, decays := range []bool{false, true} {
				points := TranslateLegacyFilter(cutoff, resonance, decays, InstrumentChip)
				if len(points) > 1 {
					t.Fatalf("cutoff %d resonance %d: %d points", cutoff, resonance, len(points))
				}
				for _, p := range points {
					if p.Freq < 0 || p.Freq >= FilterFreqRange || p.Gain < 0 || p.Gain >= FilterGainRange {
						t.Fatalf("cutoff %d resonance %d: point out of range %+v", cutoff, resonance, p)
					}
				}
			}
		}
	}
	// lower cutoffs map to lower settings
	low := TranslateLegacyFilter(1, 0, false, InstrumentChip)
	high := TranslateLegacyFilter(8, 0, false, InstrumentChip)
	if len(low) != 1 || len(high) != 1 || low[0].Freq >= high[0].Freq {
		t.Fatalf("legacy cutoff ordering not preserved: %v vs %v", low, high)
	}
}

func TestLegacyFilterTranslatorInstrumentKinds(t *testing.T) {
	// the first-order warp distance depends on the instrument kind: smooth
	// FM and plucked-string spectra move the corner less than chip-family
	// sources, noise-family sources more
	fm := TranslateLegacyFilter(5, 0, false, InstrumentFM)
	guitar := TranslateLegacyFilter(5, 0, false, InstrumentGuitar)
	chip := TranslateLegacyFilter(5, 0, false, InstrumentChip)
	noise := TranslateLegacyFilter(5, 0, false, InstrumentNoise)
	for name, points := range map[string][]FilterControlPoint{"fm": fm, "guitar": guitar, "chip": chip, "noise": noise} {
		if len(points) != 1 {
			t.Fatalf("%s: expected one control point, got %d", name, len(points))
		}
	}
	if fm[0].Freq != guitar[0].Freq {
		t.Errorf("FM and guitar should share a warp distance: %d vs %d", fm[0].Freq, guitar[0].Freq)
	}
	if !(fm[0].Freq < chip[0].Freq && chip[0].Freq < noise[0].Freq) {
		t.Errorf("per-kind corners should be ordered fm < chip < noise, got %d, %d, %d", fm[0].Freq, chip[0].Freq, noise[0].Freq)
	}
	// the resonant branch keeps the intended peak for every kind
	resChip := TranslateLegacyFilter(5, 4, false, InstrumentChip)
	resFM := TranslateLegacyFilter(5, 4, false, InstrumentFM)
	if len(resChip) != 1 || len(resFM) != 1 || resChip[0] != resFM[0] {
		t.Errorf("the resonant translation does not depend on the kind: %v vs %v", resChip, resFM)
	}
}
