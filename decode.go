package beepbox

import (
	"fmt"
	"strings"
)

// ParseURL parses a song from its URL form. Leading whitespace and a single
// leading '#' are skipped. If the first significant character is '{' the
// data is parsed as the JSON form instead.
func ParseURL(data string) (*Song, error) {
	data = strings.TrimSpace(data)
	data = strings.TrimPrefix(data, "#")
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, fmt.Errorf("empty song data")
	}
	if data[0] == '{' {
		return ParseJSON([]byte(data))
	}
	d := &decoder{data: []byte(data), song: NewSong()}
	if err := d.run(); err != nil {
		return nil, err
	}
	return d.song, nil
}

type (
	decoder struct {
		song *Song
		data []byte
		pos  int

		version     int
		beforeThree bool
		beforeFour  bool
		beforeFive  bool
		beforeSix   bool
		beforeSeven bool
		beforeNine  bool

		// instrumentCursor walks channel-major over all instrument slots,
		// advanced by each startInstrument tag.
		instrumentCursor int

		legacyFilters          map[[2]int]*legacyFilterSettings
		legacyGlobalReverb     int
		haveLegacyGlobalReverb bool
	}

	// legacyFilterSettings stages the pre-version-9 simplified filter fields
	// until the whole stream is parsed and they can be translated into
	// modern control points.
	legacyFilterSettings struct {
		cutoff    int
		resonance int
		envelope  int
	}
)

var legacyTempos = []int{88, 95, 103, 111, 120, 130, 140, 151, 163, 176, 190, 206}

func (d *decoder) run() error {
	version, err := d.readChar('v')
	if err != nil {
		return fmt.Errorf("missing version symbol: %w", err)
	}
	if version < 2 || version > CurrentVersion {
		return fmt.Errorf("unrecognized song format version %d", version)
	}
	d.version = version
	d.beforeThree = version < 3
	d.beforeFour = version < 4
	d.beforeFive = version < 5
	d.beforeSix = version < 6
	d.beforeSeven = version < 7
	d.beforeNine = version < 9
	d.instrumentCursor = -1
	d.legacyFilters = make(map[[2]int]*legacyFilterSettings)

	for d.pos < len(d.data) {
		tag := d.data[d.pos]
		tagPos := d.pos
		d.pos++
		if err := d.readTag(tag); err != nil {
			return fmt.Errorf("tag %q at position %d: %w", tag, tagPos, err)
		}
	}
	d.finish()
	return nil
}

// readChar decodes the next base64 symbol of the payload of the named tag.
func (d *decoder) readChar(tag byte) (int, error) {
	if d.pos >= len(d.data) {
		return 0, fmt.Errorf("song data ended inside tag %q payload", tag)
	}
	v, err := Base64Decode(d.data[d.pos])
	if err != nil {
		return 0, fmt.Errorf("position %d: %w", d.pos, err)
	}
	d.pos++
	return v, nil
}

func (d *decoder) readChar2(tag byte) (int, error) {
	hi, err := d.readChar(tag)
	if err != nil {
		return 0, err
	}
	lo, err := d.readChar(tag)
	if err != nil {
		return 0, err
	}
	return hi<<6 | lo, nil
}

func (d *decoder) readTag(tag byte) error {
	s := d.song
	switch tag {
	case 'n':
		pitch, err := d.readChar(tag)
		if err != nil {
			return err
		}
		noise, err := d.readChar(tag)
		if err != nil {
			return err
		}
		s.SetChannelCounts(pitch, noise)
	case 's':
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		s.Scale = clampInt(v, 0, len(Scales)-1)
	case 'k':
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		s.Key = clampInt(v, 0, len(Keys)-1)
	case 'l':
		v, err := d.readNarrowOrWide(tag)
		if err != nil {
			return err
		}
		s.LoopStart = v
	case 'e':
		v, err := d.readNarrowOrWide(tag)
		if err != nil {
			return err
		}
		s.LoopLength = v + 1
	case 't':
		if d.beforeFour {
			v, err := d.readChar(tag)
			if err != nil {
				return err
			}
			s.Tempo = legacyTempos[clampInt(v, 0, len(legacyTempos)-1)]
		} else {
			v, err := d.readChar2(tag)
			if err != nil {
				return err
			}
			s.Tempo = clampInt(v, TempoMin, TempoMax)
		}
	case 'a':
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		s.BeatsPerBar = clampInt(v+1, BeatsPerBarMin, BeatsPerBarMax)
	case 'g':
		v, err := d.readNarrowOrWide(tag)
		if err != nil {
			return err
		}
		s.SetBarCount(v + 1)
	case 'j':
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		s.SetPatternsPerChannel(v + 1)
	case 'r':
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		s.Rhythm = clampInt(v, 0, len(Rhythms)-1)
	case 'i':
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		s.SetInstrumentsPerChannel(v + 1)
	case 'o':
		if d.beforeThree {
			channel, err := d.readChar(tag)
			if err != nil {
				return err
			}
			v, err := d.readChar(tag)
			if err != nil {
				return err
			}
			if channel >= 0 && channel < len(s.Channels) {
				s.Channels[channel].Octave = clampInt(v, 0, OctaveOffsetMax)
			}
		} else {
			for i := range s.Channels {
				v, err := d.readChar(tag)
				if err != nil {
					return err
				}
				s.Channels[i].Octave = clampInt(v, 0, OctaveOffsetMax)
			}
		}
	case 'T':
		d.instrumentCursor++
		inst, err := d.cursorInstrument()
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		channel := d.instrumentCursor / d.song.InstrumentsPerChannel
		inst.SetTypeAndReset(d.validInstrumentType(channel, InstrumentType(v)))
	case 'v':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.Volume = clampInt(v, 0, InstrumentVolumeMax)
	case 'u':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.Preset = clampInt(v, 0, len(Presets)-1)
	case 'q':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		if d.beforeSix {
			// name-indexed enum: none, reverb, chorus, chorus & reverb
			inst.Effects = 0
			switch clampInt(v, 0, 3) {
			case 1:
				inst.SetEffectEnabled(EffectReverb, true)
			case 2:
				inst.SetEffectEnabled(EffectChorus, true)
			case 3:
				inst.SetEffectEnabled(EffectChorus, true)
				inst.SetEffectEnabled(EffectReverb, true)
			}
		} else {
			inst.Effects = uint32(v) & ((1 << EffectCount) - 1)
		}
	case 'D':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.Distortion = clampInt(v, 0, DistortionRange-1)
	case 'R':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		freq, err := d.readChar(tag)
		if err != nil {
			return err
		}
		quant, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.BitcrusherFreq = clampInt(freq, 0, BitcrusherFreqRange-1)
		inst.BitcrusherQuantization = clampInt(quant, 0, BitcrusherQuantRange-1)
	case 'L':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.Pan = clampInt(v, 0, PanMax)
	case 'm':
		if d.beforeSeven {
			v, err := d.readChar(tag)
			if err != nil {
				return err
			}
			// The legacy mapping to the modern range is the identity even
			// though the modern range is larger.
			d.legacyGlobalReverb = clampInt(v, 0, 4)
			d.haveLegacyGlobalReverb = true
		} else {
			inst, err := d.tagInstrument(tag)
			if err != nil {
				return err
			}
			v, err := d.readChar(tag)
			if err != nil {
				return err
			}
			inst.Reverb = clampInt(v, 0, ReverbRange-1)
		}
	case 'f':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		if d.beforeNine {
			v, err := d.readChar(tag)
			if err != nil {
				return err
			}
			d.stagedLegacyFilter().cutoff = clampInt(v, 0, legacyFilterCutoffRange-1)
		} else {
			count, err := d.readChar(tag)
			if err != nil {
				return err
			}
			env, err := d.readChar(tag)
			if err != nil {
				return err
			}
			inst.FilterEnvelope = clampInt(env, 0, len(Envelopes)-1)
			points, err := d.readFilterPoints(tag, count)
			if err != nil {
				return err
			}
			inst.Filter.Points = points
		}
	case 'G':
		if d.beforeNine {
			return fmt.Errorf("unknown tag")
		}
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		count, err := d.readChar(tag)
		if err != nil {
			return err
		}
		points, err := d.readFilterPoints(tag, count)
		if err != nil {
			return err
		}
		inst.DistortionFilter.Points = points
	case 'y':
		if !d.beforeNine {
			return fmt.Errorf("unknown tag")
		}
		if _, err := d.tagInstrument(tag); err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		d.stagedLegacyFilter().resonance = clampInt(v, 0, legacyFilterResonanceRange-1)
	case 'z':
		if !d.beforeNine {
			return fmt.Errorf("unknown tag")
		}
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		v = clampInt(v, 0, len(Envelopes)-1)
		d.stagedLegacyFilter().envelope = v
		inst.FilterEnvelope = v
	case 'd':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.Transition = clampInt(v, 0, len(Transitions)-1)
	case 'c':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.Vibrato = clampInt(v, 0, len(Vibratos)-1)
	case 'C':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.Chord = clampInt(v, 0, len(Chords)-1)
	case 'h':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.Interval = clampInt(v, 0, len(Intervals)-1)
	case 'w':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		if inst.Type == InstrumentNoise {
			inst.NoiseWave = clampInt(v, 0, len(NoiseWaves)-1)
		} else {
			inst.ChipWave = clampInt(v, 0, len(ChipWaves)-1)
		}
	case 'A':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.Algorithm = clampInt(v, 0, len(Algorithms)-1)
	case 'F':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.FeedbackType = clampInt(v, 0, len(Feedbacks)-1)
	case 'B':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.FeedbackAmplitude = clampInt(v, 0, OperatorAmplitudeMax)
		if !d.beforeNine {
			env, err := d.readChar(tag)
			if err != nil {
				return err
			}
			inst.FeedbackEnvelope = clampInt(env, 0, len(Envelopes)-1)
		}
	case 'V':
		if !d.beforeNine {
			return fmt.Errorf("unknown tag")
		}
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.FeedbackEnvelope = clampInt(v, 0, len(Envelopes)-1)
	case 'Q':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		for i := range inst.Operators {
			v, err := d.readChar(tag)
			if err != nil {
				return err
			}
			inst.Operators[i].Frequency = clampInt(v, 0, len(OperatorFrequencies)-1)
		}
	case 'P':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		for i := range inst.Operators {
			v, err := d.readChar(tag)
			if err != nil {
				return err
			}
			inst.Operators[i].Amplitude = clampInt(v, 0, OperatorAmplitudeMax)
			if !d.beforeNine {
				env, err := d.readChar(tag)
				if err != nil {
					return err
				}
				inst.Operators[i].Envelope = clampInt(env, 0, len(Envelopes)-1)
			}
		}
	case 'E':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		if d.beforeNine {
			for i := range inst.Operators {
				v, err := d.readChar(tag)
				if err != nil {
					return err
				}
				inst.Operators[i].Envelope = clampInt(v, 0, len(Envelopes)-1)
			}
		} else {
			if inst.Type != InstrumentDrumset {
				return fmt.Errorf("drumset envelopes on a %v instrument", inst.Type)
			}
			for i := range inst.DrumsetEnvelopes {
				v, err := d.readChar(tag)
				if err != nil {
					return err
				}
				inst.DrumsetEnvelopes[i] = clampInt(v, 0, len(Envelopes)-1)
			}
		}
	case 'S':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		count := 1
		if inst.Type == InstrumentDrumset {
			count = DrumCount
		}
		bits := count * SpectrumControlPoints * 3
		r, err := d.readBits(tag, bits)
		if err != nil {
			return err
		}
		for c := 0; c < count; c++ {
			target := &inst.Spectrum
			if inst.Type == InstrumentDrumset {
				target = &inst.DrumsetSpectra[c]
			}
			for i := range target.Points {
				target.Points[i] = r.Read(3)
			}
		}
		if r.Err() != nil {
			return r.Err()
		}
	case 'H':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		r, err := d.readBits(tag, HarmonicsControlPoints*3)
		if err != nil {
			return err
		}
		for i := range inst.Harmonics.Points {
			inst.Harmonics.Points[i] = r.Read(3)
		}
		if r.Err() != nil {
			return r.Err()
		}
	case 'W':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.PulseWidth = clampInt(v, 0, PulseWidthRange-1)
		env, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.PulseEnvelope = clampInt(env, 0, len(Envelopes)-1)
	case 'U':
		inst, err := d.tagInstrument(tag)
		if err != nil {
			return err
		}
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		inst.Sustain = clampInt(v, 0, SustainRange-1)
	case 'b':
		return d.readBars(tag)
	case 'p':
		return d.readPatterns(tag)
	default:
		return fmt.Errorf("unknown tag")
	}
	return nil
}

// readNarrowOrWide reads a one-symbol payload for old versions and a
// two-symbol payload for version 5 and later.
func (d *decoder) readNarrowOrWide(tag byte) (int, error) {
	if d.beforeFive {
		return d.readChar(tag)
	}
	return d.readChar2(tag)
}

func (d *decoder) validInstrumentType(channel int, t InstrumentType) InstrumentType {
	isNoise := d.song.IsNoiseChannel(channel)
	valid := PitchInstrumentTypes
	if isNoise {
		valid = NoiseInstrumentTypes
	}
	for _, v := range valid {
		if v == t {
			return t
		}
	}
	return valid[0]
}

// cursorInstrument resolves the instrument the cursor points at.
func (d *decoder) cursorInstrument() (*Instrument, error) {
	if d.instrumentCursor < 0 {
		return nil, fmt.Errorf("instrument tag before any startInstrument tag")
	}
	channel := d.instrumentCursor / d.song.InstrumentsPerChannel
	index := d.instrumentCursor % d.song.InstrumentsPerChannel
	if channel >= len(d.song.Channels) {
		return nil, fmt.Errorf("startInstrument tags exceed the channel count")
	}
	return &d.song.Channels[channel].Instruments[index], nil
}

// tagInstrument resolves the instrument a per-instrument tag applies to. In
// versions before 3 the channel is explicit in the payload; later versions
// use the cursor.
func (d *decoder) tagInstrument(tag byte) (*Instrument, error) {
	if d.beforeThree {
		channel, err := d.readChar(tag)
		if err != nil {
			return nil, err
		}
		if channel < 0 || channel >= len(d.song.Channels) {
			return nil, fmt.Errorf("channel %d out of range", channel)
		}
		d.instrumentCursor = channel * d.song.InstrumentsPerChannel
		return &d.song.Channels[channel].Instruments[0], nil
	}
	return d.cursorInstrument()
}

func (d *decoder) stagedLegacyFilter() *legacyFilterSettings {
	channel := d.instrumentCursor / d.song.InstrumentsPerChannel
	index := d.instrumentCursor % d.song.InstrumentsPerChannel
	key := [2]int{channel, index}
	if d.legacyFilters[key] == nil {
		d.legacyFilters[key] = &legacyFilterSettings{cutoff: legacyFilterCutoffRange - 1, envelope: EnvelopeSteadyIndex}
	}
	return d.legacyFilters[key]
}

func (d *decoder) readFilterPoints(tag byte, count int) ([]FilterControlPoint, error) {
	if count > FilterMaxPoints {
		return nil, fmt.Errorf("%d filter control points exceeds the maximum %d", count, FilterMaxPoints)
	}
	var points []FilterControlPoint
	for i := 0; i < count; i++ {
		t, err := d.readChar(tag)
		if err != nil {
			return nil, err
		}
		freq, err := d.readChar(tag)
		if err != nil {
			return nil, err
		}
		gain, err := d.readChar(tag)
		if err != nil {
			return nil, err
		}
		points = append(points, FilterControlPoint{
			Type: FilterType(clampInt(t, 0, int(FilterTypeCount)-1)),
			Freq: clampInt(freq, 0, FilterFreqRange-1),
			Gain: clampInt(gain, 0, FilterGainRange-1),
		})
	}
	return points, nil
}

// readBits consumes as many payload symbols as needed to hold the given
// number of bits.
func (d *decoder) readBits(tag byte, bits int) (*BitReader, error) {
	chars := (bits + 5) / 6
	if d.pos+chars > len(d.data) {
		return nil, fmt.Errorf("bit stream of %d symbols extends past the end of the song data", chars)
	}
	r, err := NewBitReader(d.data[d.pos : d.pos+chars])
	if err != nil {
		return nil, err
	}
	d.pos += chars
	return r, nil
}

func (d *decoder) readBars(tag byte) error {
	s := d.song
	neededBits := bitsForMax(s.PatternsPerChannel)
	r, err := d.readBits(tag, neededBits*len(s.Channels)*s.BarCount)
	if err != nil {
		return err
	}
	for i := range s.Channels {
		for b := range s.Channels[i].Bars {
			s.Channels[i].Bars[b] = clampInt(r.Read(neededBits), 0, s.PatternsPerChannel)
		}
	}
	return r.Err()
}

type (
	noteShape struct {
		pitchCount        int
		initialExpression int
		pins              []shapePin
	}

	shapePin struct {
		interval   int
		duration   int
		expression int
	}
)

func (d *decoder) readPatterns(tag byte) error {
	digits, err := d.readChar(tag)
	if err != nil {
		return err
	}
	length := 0
	for i := 0; i < digits; i++ {
		v, err := d.readChar(tag)
		if err != nil {
			return err
		}
		length = length<<6 | v
	}
	if d.pos+length > len(d.data) {
		return fmt.Errorf("pattern bit stream of %d symbols extends past the end of the song data", length)
	}
	r, err := NewBitReader(d.data[d.pos : d.pos+length])
	if err != nil {
		return err
	}
	d.pos += length

	s := d.song
	neededInstrumentBits := bitsForMax(s.InstrumentsPerChannel - 1)
	partsPerBar := s.PartsPerBar()
	for channel := range s.Channels {
		isNoise := s.IsNoiseChannel(channel)
		recentPitches := initialPitchList(isNoise)
		lastPitch := initialLastPitch
		if isNoise {
			lastPitch = initialLastNoisePitch
		}
		var recentShapes []*noteShape
		maxPitchValue := s.MaxPitchForChannel(channel)

		for p := range s.Channels[channel].Patterns {
			pattern := &s.Channels[channel].Patterns[p]
			pattern.Instrument = clampInt(r.Read(neededInstrumentBits), 0, s.InstrumentsPerChannel-1)
			pattern.Notes = nil
			if r.ReadBit() == 0 {
				continue
			}
			curPart := 0
			for curPart < partsPerBar {
				if r.Err() != nil {
					return r.Err()
				}
				op := r.Read(2)
				switch op {
				case 0: // rest
					curPart += d.readDuration(r)
				case 2, 3:
					var shape *noteShape
					if op == 2 {
						shape = d.readShape(r)
						recentShapes = append([]*noteShape{shape}, recentShapes...)
						if len(recentShapes) > recentShapeLength {
							recentShapes = recentShapes[:recentShapeLength]
						}
					} else {
						index := r.ReadLongTail(0, 0)
						if index >= len(recentShapes) {
							return fmt.Errorf("recent shape index %d out of range at bit %d", index, r.Position())
						}
						shape = recentShapes[index]
						recentShapes = append(recentShapes[:index], recentShapes[index+1:]...)
						recentShapes = append([]*noteShape{shape}, recentShapes...)
					}
					note := Note{Start: curPart}
					for i := 0; i < shape.pitchCount; i++ {
						var pitch int
						if r.ReadBit() == 1 {
							index := r.Read(3)
							if index >= len(recentPitches) {
								return fmt.Errorf("recent pitch index %d out of range at bit %d", index, r.Position())
							}
							pitch = recentPitches[index]
							recentPitches = append(recentPitches[:index], recentPitches[index+1:]...)
						} else {
							pitch = pitchFromDelta(lastPitch, r.ReadPitchInterval(), recentPitches)
							pitch = clampInt(pitch, 0, maxPitchValue)
						}
						recentPitches = append([]int{pitch}, recentPitches...)
						if len(recentPitches) > recentPitchLength {
							recentPitches = recentPitches[:recentPitchLength]
						}
						lastPitch = pitch
						note.Pitches = append(note.Pitches, pitch)
					}
					note.Pins = append(note.Pins, Pin{Time: 0, Interval: 0, Expression: shape.initialExpression})
					time := 0
					for _, sp := range shape.pins {
						time += sp.duration
						note.Pins = append(note.Pins, Pin{Time: time, Interval: sp.interval, Expression: sp.expression})
					}
					note.End = note.Start + time
					if note.End > partsPerBar {
						return fmt.Errorf("note extends past the bar at bit %d", r.Position())
					}
					pattern.Notes = append(pattern.Notes, note)
					curPart = note.End
				default:
					return fmt.Errorf("invalid pattern opcode at bit %d", r.Position())
				}
			}
		}
	}
	return r.Err()
}

func (d *decoder) readDuration(r *BitReader) int {
	if d.beforeFive {
		return r.ReadLegacyPartDuration()
	}
	return r.ReadPartDuration()
}

func (d *decoder) readShape(r *BitReader) *noteShape {
	shape := &noteShape{pitchCount: 1}
	for shape.pitchCount < MaxChordSize {
		if r.ReadBit() == 1 {
			shape.pitchCount++
		} else {
			break
		}
	}
	pinCount := r.ReadPinCount()
	shape.initialExpression = r.Read(2)
	for i := 0; i < pinCount; i++ {
		var pin shapePin
		if r.ReadBit() == 1 {
			pin.interval = r.ReadPitchInterval()
		}
		pin.duration = d.readDuration(r)
		pin.expression = r.Read(2)
		shape.pins = append(shape.pins, pin)
	}
	return shape
}

// pitchFromDelta mirrors pitchDeltaSkippingRecent.
func pitchFromDelta(lastPitch, interval int, recent []int) int {
	iter := lastPitch
	for interval > 0 {
		iter++
		if indexOf(recent, iter) == -1 {
			interval--
		}
	}
	for interval < 0 {
		iter--
		if indexOf(recent, iter) == -1 {
			interval++
		}
	}
	return iter
}

// finish applies the cross-tag legacy conversions after the whole stream has
// been read.
func (d *decoder) finish() {
	s := d.song
	s.LoopStart = clampInt(s.LoopStart, 0, s.BarCount-1)
	s.LoopLength = clampInt(s.LoopLength, 1, s.BarCount-s.LoopStart)

	for key, legacy := range d.legacyFilters {
		channel, index := key[0], key[1]
		if channel >= len(s.Channels) || index >= s.InstrumentsPerChannel {
			continue
		}
		inst := &s.Channels[channel].Instruments[index]
		envelope := Envelopes[clampInt(legacy.envelope, 0, len(Envelopes)-1)]
		decays := envelope.Type == EnvelopeTwang || envelope.Type == EnvelopeDecay || envelope.Type == EnvelopeFlare
		inst.Filter.Points = TranslateLegacyFilter(legacy.cutoff, legacy.resonance, decays, inst.Type)
	}

	if d.haveLegacyGlobalReverb {
		for i := 0; i < s.PitchChannelCount; i++ {
			for j := range s.Channels[i].Instruments {
				inst := &s.Channels[i].Instruments[j]
				inst.Reverb = d.legacyGlobalReverb
				if d.legacyGlobalReverb > 0 {
					inst.SetEffectEnabled(EffectReverb, true)
				}
			}
		}
	}
}
