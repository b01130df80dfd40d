package beepbox

// CurrentVersion is the song format version written by EncodeURL. Versions
// back to 2 are still readable; see decode.go for the legacy forks.
const CurrentVersion = 9

// Initial recent-pitch lists of the pattern bit stream, shared between the
// encoder and the decoder. The lists are per channel and reset at the start
// of each channel's patterns.
var (
	initialRecentPitches      = []int{12, 19, 24, 31, 36, 7, 0, 43}
	initialRecentNoisePitches = []int{4, 6, 7, 2, 3, 8, 0, 10}
)

const (
	initialLastPitch      = 12
	initialLastNoisePitch = 4

	recentPitchLength = 8
	recentShapeLength = 10
)

// EncodeURL serializes the song in the binary URL form at CurrentVersion,
// emitting tags in the canonical order.
func EncodeURL(song *Song) string {
	buf := make([]byte, 0, 1024)
	buf = append(buf, Base64Encode(CurrentVersion))

	buf = append(buf, 'n', Base64Encode(song.PitchChannelCount), Base64Encode(song.NoiseChannelCount))
	buf = append(buf, 's', Base64Encode(song.Scale))
	buf = append(buf, 'k', Base64Encode(song.Key))
	buf = appendTag2(buf, 'l', song.LoopStart)
	buf = appendTag2(buf, 'e', song.LoopLength-1)
	buf = appendTag2(buf, 't', song.Tempo)
	buf = append(buf, 'a', Base64Encode(song.BeatsPerBar-1))
	buf = appendTag2(buf, 'g', song.BarCount-1)
	buf = append(buf, 'j', Base64Encode(song.PatternsPerChannel-1))
	buf = append(buf, 'r', Base64Encode(song.Rhythm))
	buf = append(buf, 'i', Base64Encode(song.InstrumentsPerChannel-1))

	buf = append(buf, 'o')
	for i := range song.Channels {
		buf = append(buf, Base64Encode(song.Channels[i].Octave))
	}

	for i := range song.Channels {
		for j := range song.Channels[i].Instruments {
			buf = appendInstrument(buf, &song.Channels[i].Instruments[j])
		}
	}

	buf = appendBars(buf, song)
	buf = appendPatterns(buf, song)
	return string(buf)
}

func appendTag2(buf []byte, tag byte, value int) []byte {
	return append(buf, tag, Base64Encode(value>>6), Base64Encode(value&0x3F))
}

func appendInstrument(buf []byte, inst *Instrument) []byte {
	buf = append(buf, 'T', Base64Encode(int(inst.Type)))
	buf = append(buf, 'v', Base64Encode(inst.Volume))
	buf = append(buf, 'u', Base64Encode(inst.Preset))
	buf = append(buf, 'q', Base64Encode(int(inst.Effects)))
	buf = append(buf, 'D', Base64Encode(inst.Distortion))
	buf = append(buf, 'R', Base64Encode(inst.BitcrusherFreq), Base64Encode(inst.BitcrusherQuantization))
	buf = append(buf, 'L', Base64Encode(inst.Pan))
	buf = append(buf, 'm', Base64Encode(inst.Reverb))

	buf = append(buf, 'f', Base64Encode(len(inst.Filter.Points)), Base64Encode(inst.FilterEnvelope))
	buf = appendFilterPoints(buf, inst.Filter.Points)
	buf = append(buf, 'G', Base64Encode(len(inst.DistortionFilter.Points)))
	buf = appendFilterPoints(buf, inst.DistortionFilter.Points)

	buf = append(buf, 'd', Base64Encode(inst.Transition))
	buf = append(buf, 'c', Base64Encode(inst.Vibrato))
	buf = append(buf, 'C', Base64Encode(inst.Chord))

	switch inst.Type {
	case InstrumentChip:
		buf = append(buf, 'h', Base64Encode(inst.Interval))
		buf = append(buf, 'w', Base64Encode(inst.ChipWave))
	case InstrumentNoise:
		buf = append(buf, 'w', Base64Encode(inst.NoiseWave))
	case InstrumentFM:
		buf = append(buf, 'A', Base64Encode(inst.Algorithm))
		buf = append(buf, 'F', Base64Encode(inst.FeedbackType))
		buf = append(buf, 'B', Base64Encode(inst.FeedbackAmplitude), Base64Encode(inst.FeedbackEnvelope))
		buf = append(buf, 'Q')
		for i := range inst.Operators {
			buf = append(buf, Base64Encode(inst.Operators[i].Frequency))
		}
		buf = append(buf, 'P')
		for i := range inst.Operators {
			buf = append(buf, Base64Encode(inst.Operators[i].Amplitude), Base64Encode(inst.Operators[i].Envelope))
		}
	case InstrumentSpectrum:
		buf = append(buf, 'S')
		w := &BitWriter{}
		writeSpectrum(w, &inst.Spectrum)
		buf = w.Encode(buf)
	case InstrumentDrumset:
		buf = append(buf, 'S')
		w := &BitWriter{}
		for d := 0; d < DrumCount; d++ {
			writeSpectrum(w, &inst.DrumsetSpectra[d])
		}
		buf = w.Encode(buf)
		buf = append(buf, 'E')
		for d := 0; d < DrumCount; d++ {
			buf = append(buf, Base64Encode(inst.DrumsetEnvelopes[d]))
		}
	case InstrumentHarmonics:
		buf = append(buf, 'h', Base64Encode(inst.Interval))
		buf = append(buf, 'H')
		w := &BitWriter{}
		writeHarmonics(w, &inst.Harmonics)
		buf = w.Encode(buf)
	case InstrumentPWM:
		buf = append(buf, 'h', Base64Encode(inst.Interval))
		buf = append(buf, 'W', Base64Encode(inst.PulseWidth), Base64Encode(inst.PulseEnvelope))
	case InstrumentGuitar:
		buf = append(buf, 'h', Base64Encode(inst.Interval))
		buf = append(buf, 'U', Base64Encode(inst.Sustain))
		buf = append(buf, 'W', Base64Encode(inst.PulseWidth), Base64Encode(inst.PulseEnvelope))
		buf = append(buf, 'H')
		w := &BitWriter{}
		writeHarmonics(w, &inst.Harmonics)
		buf = w.Encode(buf)
	}
	return buf
}

func appendFilterPoints(buf []byte, points []FilterControlPoint) []byte {
	for _, p := range points {
		buf = append(buf, Base64Encode(int(p.Type)), Base64Encode(p.Freq), Base64Encode(p.Gain))
	}
	return buf
}

func writeSpectrum(w *BitWriter, s *SpectrumWave) {
	for _, p := range s.Points {
		w.Write(3, p)
	}
}

func writeHarmonics(w *BitWriter, h *HarmonicsWave) {
	for _, p := range h.Points {
		w.Write(3, p)
	}
}

// bitsForMax returns the number of bits needed to store values 0..max.
func bitsForMax(max int) int {
	bits := 0
	for max > 0 {
		bits++
		max >>= 1
	}
	return bits
}

func appendBars(buf []byte, song *Song) []byte {
	buf = append(buf, 'b')
	w := &BitWriter{}
	neededBits := bitsForMax(song.PatternsPerChannel)
	for i := range song.Channels {
		for _, ref := range song.Channels[i].Bars {
			w.Write(neededBits, ref)
		}
	}
	return w.Encode(buf)
}

func appendPatterns(buf []byte, song *Song) []byte {
	w := &BitWriter{}
	neededInstrumentBits := bitsForMax(song.InstrumentsPerChannel - 1)
	partsPerBar := song.PartsPerBar()
	for channel := range song.Channels {
		isNoise := song.IsNoiseChannel(channel)
		recentPitches := initialPitchList(isNoise)
		lastPitch := initialLastPitch
		if isNoise {
			lastPitch = initialLastNoisePitch
		}
		recentShapes := make([]string, 0, recentShapeLength)

		for p := range song.Channels[channel].Patterns {
			pattern := &song.Channels[channel].Patterns[p]
			w.Write(neededInstrumentBits, pattern.Instrument)
			if len(pattern.Notes) == 0 {
				w.WriteBit(0)
				continue
			}
			w.WriteBit(1)
			curPart := 0
			for n := range pattern.Notes {
				note := &pattern.Notes[n]
				if note.Start > curPart {
					w.Write(2, 0) // rest
					w.WritePartDuration(note.Start - curPart)
				}

				shape := &BitWriter{}
				for i := 1; i < len(note.Pitches); i++ {
					shape.WriteBit(1)
				}
				if len(note.Pitches) < MaxChordSize {
					shape.WriteBit(0)
				}
				shape.WritePinCount(len(note.Pins) - 1)
				shape.Write(2, note.Pins[0].Expression)
				pinTime := 0
				for i := 1; i < len(note.Pins); i++ {
					pin := &note.Pins[i]
					if pin.Interval != 0 {
						shape.WriteBit(1)
						shape.WritePitchInterval(pin.Interval)
					} else {
						shape.WriteBit(0)
					}
					shape.WritePartDuration(pin.Time - pinTime)
					pinTime = pin.Time
					shape.Write(2, pin.Expression)
				}

				shapeKey := shape.BitPattern()
				shapeIndex := -1
				for i, s := range recentShapes {
					if s == shapeKey {
						shapeIndex = i
						break
					}
				}
				if shapeIndex == -1 {
					w.Write(2, 2) // new shape
					w.Concat(shape)
					recentShapes = append([]string{shapeKey}, recentShapes...)
					if len(recentShapes) > recentShapeLength {
						recentShapes = recentShapes[:recentShapeLength]
					}
				} else {
					w.Write(2, 3) // recent shape
					w.WriteLongTail(0, 0, shapeIndex)
					recentShapes = append(recentShapes[:shapeIndex], recentShapes[shapeIndex+1:]...)
					recentShapes = append([]string{shapeKey}, recentShapes...)
				}

				for _, pitch := range note.Pitches {
					pitchIndex := indexOf(recentPitches, pitch)
					if pitchIndex == -1 {
						interval := pitchDeltaSkippingRecent(lastPitch, pitch, recentPitches)
						w.WriteBit(0)
						w.WritePitchInterval(interval)
					} else {
						w.WriteBit(1)
						w.Write(3, pitchIndex)
						recentPitches = append(recentPitches[:pitchIndex], recentPitches[pitchIndex+1:]...)
					}
					recentPitches = append([]int{pitch}, recentPitches...)
					if len(recentPitches) > recentPitchLength {
						recentPitches = recentPitches[:recentPitchLength]
					}
					lastPitch = pitch
				}
				curPart = note.End
			}
			if curPart < partsPerBar {
				w.Write(2, 0)
				w.WritePartDuration(partsPerBar - curPart)
			}
		}
	}

	// The patterns payload is prefixed with its own length: one symbol
	// telling how many symbols encode the stream length, then the length,
	// then the bit stream.
	length := w.LengthInChars()
	digits := 1
	for 1<<(6*digits) <= length {
		digits++
	}
	buf = append(buf, 'p', Base64Encode(digits))
	for i := digits - 1; i >= 0; i-- {
		buf = append(buf, Base64Encode((length>>(6*i))&0x3F))
	}
	return w.Encode(buf)
}

func initialPitchList(isNoise bool) []int {
	var src []int
	if isNoise {
		src = initialRecentNoisePitches
	} else {
		src = initialRecentPitches
	}
	out := make([]int, len(src))
	copy(out, src)
	return out
}

func indexOf(list []int, value int) int {
	for i, v := range list {
		if v == value {
			return i
		}
	}
	return -1
}

// pitchDeltaSkippingRecent counts the semitone steps from lastPitch to
// pitch, not counting pitches that are in the recent list since those would
// have been encoded as references instead.
func pitchDeltaSkippingRecent(lastPitch, pitch int, recent []int) int {
	interval := 0
	iter := lastPitch
	for iter < pitch {
		iter++
		if indexOf(recent, iter) == -1 {
			interval++
		}
	}
	for iter > pitch {
		iter--
		if indexOf(recent, iter) == -1 {
			interval--
		}
	}
	return interval
}
