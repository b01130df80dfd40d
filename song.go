package beepbox

import (
	"errors"
	"fmt"
)

type (
	// Song is the complete symbolic description of a piece: global scale, key
	// and timing settings plus an ordered list of pitch channels followed by
	// noise channels.
	Song struct {
		Scale                 int
		Key                   int
		Tempo                 int
		BeatsPerBar           int
		BarCount              int
		PatternsPerChannel    int
		InstrumentsPerChannel int
		Rhythm                int
		LoopStart             int
		LoopLength            int
		PitchChannelCount     int
		NoiseChannelCount     int
		Channels              []Channel
	}

	// Channel owns a fixed-size list of instruments, a fixed-size list of
	// patterns, and one bar-index per song bar. A bar index of 0 means an
	// empty bar, otherwise it is a 1-based reference into Patterns.
	Channel struct {
		Octave      int
		Mute        bool
		Instruments []Instrument
		Patterns    []Pattern
		Bars        []int
	}

	// Pattern holds the notes played by one of the channel's instruments.
	// Notes are sorted by start and do not overlap.
	Pattern struct {
		Instrument int
		Notes      []Note
	}

	// Note is a chord of simultaneous pitches spanning Start..End (in parts)
	// with a non-empty sequence of pins shaping its bend and expression.
	Note struct {
		Pitches []int
		Start   int
		End     int
		Pins    []Pin
	}

	// Pin is a control point within a note. Time is relative to the note
	// start, Interval is a semitone bend relative to the base pitches, and
	// Expression is a velocity in 0..ExpressionMax. The first pin always has
	// Time == 0 and Interval == 0; the last pin's time equals End - Start.
	Pin struct {
		Time       int
		Interval   int
		Expression int
	}
)

// NewSong returns a song with the default settings: three pitch channels and
// one noise channel, each with one chip or noise instrument and empty bars.
func NewSong() *Song {
	s := &Song{}
	s.InitToDefault()
	return s
}

func (s *Song) InitToDefault() {
	s.Scale = ScaleDefault
	s.Key = KeyDefault
	s.Tempo = TempoDefault
	s.BeatsPerBar = BeatsPerBarDefault
	s.BarCount = BarCountDefault
	s.PatternsPerChannel = PatternsPerChannelDefault
	s.InstrumentsPerChannel = InstrumentsPerChannelDefault
	s.Rhythm = RhythmDefault
	s.LoopStart = 0
	s.LoopLength = s.BarCount
	s.PitchChannelCount = PitchChannelCountDefault
	s.NoiseChannelCount = NoiseChannelCountDefault
	s.Channels = nil
	s.rebuildChannels()
}

func (s *Song) rebuildChannels() {
	total := s.PitchChannelCount + s.NoiseChannelCount
	for len(s.Channels) < total {
		index := len(s.Channels)
		channel := Channel{}
		channel.Octave = defaultChannelOctave(index)
		s.Channels = append(s.Channels, channel)
	}
	s.Channels = s.Channels[:total]
	for i := range s.Channels {
		s.resizeChannel(i)
	}
}

func defaultChannelOctave(index int) int {
	octave := 3 - index
	if octave < 0 {
		octave = 0
	}
	return octave
}

func (s *Song) resizeChannel(index int) {
	channel := &s.Channels[index]
	isNoise := s.IsNoiseChannel(index)
	for len(channel.Instruments) < s.InstrumentsPerChannel {
		channel.Instruments = append(channel.Instruments, NewInstrument(isNoise))
	}
	channel.Instruments = channel.Instruments[:s.InstrumentsPerChannel]
	for len(channel.Patterns) < s.PatternsPerChannel {
		channel.Patterns = append(channel.Patterns, Pattern{})
	}
	channel.Patterns = channel.Patterns[:s.PatternsPerChannel]
	for len(channel.Bars) < s.BarCount {
		channel.Bars = append(channel.Bars, 0)
	}
	channel.Bars = channel.Bars[:s.BarCount]
}

// IsNoiseChannel reports whether the channel at the given index is one of the
// noise channels, which are ordered after all pitch channels.
func (s *Song) IsNoiseChannel(index int) bool {
	return index >= s.PitchChannelCount
}

func (s *Song) ChannelCount() int {
	return s.PitchChannelCount + s.NoiseChannelCount
}

// SetChannelCounts resizes the channel list, preserving existing channels.
// When the pitch channel count changes, the noise channels are moved so they
// stay after the pitch channels.
func (s *Song) SetChannelCounts(pitch, noise int) {
	pitch = clampInt(pitch, PitchChannelCountMin, PitchChannelCountMax)
	noise = clampInt(noise, NoiseChannelCountMin, NoiseChannelCountMax)
	if pitch == s.PitchChannelCount && noise == s.NoiseChannelCount && len(s.Channels) == pitch+noise {
		return
	}
	oldPitch := min(pitch, s.PitchChannelCount)
	oldNoise := s.Channels[min(s.PitchChannelCount, len(s.Channels)):]
	newChannels := make([]Channel, 0, pitch+noise)
	newChannels = append(newChannels, s.Channels[:oldPitch]...)
	for len(newChannels) < pitch {
		newChannels = append(newChannels, Channel{Octave: defaultChannelOctave(len(newChannels))})
	}
	newChannels = append(newChannels, oldNoise[:min(noise, len(oldNoise))]...)
	for len(newChannels) < pitch+noise {
		newChannels = append(newChannels, Channel{})
	}
	s.PitchChannelCount = pitch
	s.NoiseChannelCount = noise
	s.Channels = newChannels
	for i := range s.Channels {
		s.resizeChannel(i)
	}
}

// SetBarCount resizes every channel's bar list, preserving existing content.
func (s *Song) SetBarCount(count int) {
	s.BarCount = clampInt(count, BarCountMin, BarCountMax)
	if s.LoopStart >= s.BarCount {
		s.LoopStart = 0
	}
	if s.LoopStart+s.LoopLength > s.BarCount {
		s.LoopLength = s.BarCount - s.LoopStart
	}
	for i := range s.Channels {
		s.resizeChannel(i)
	}
}

// SetPatternsPerChannel resizes every channel's pattern list, preserving
// existing patterns.
func (s *Song) SetPatternsPerChannel(count int) {
	s.PatternsPerChannel = clampInt(count, PatternsPerChannelMin, PatternsPerChannelMax)
	for i := range s.Channels {
		s.resizeChannel(i)
	}
}

// SetInstrumentsPerChannel resizes every channel's instrument list,
// preserving existing instruments and resetting out-of-range pattern
// instrument indices to 0.
func (s *Song) SetInstrumentsPerChannel(count int) {
	s.InstrumentsPerChannel = clampInt(count, InstrumentsPerChannelMin, InstrumentsPerChannelMax)
	for i := range s.Channels {
		s.resizeChannel(i)
		for j := range s.Channels[i].Patterns {
			if s.Channels[i].Patterns[j].Instrument >= s.InstrumentsPerChannel {
				s.Channels[i].Patterns[j].Instrument = 0
			}
		}
	}
}

// PatternAtBar returns the pattern playing in the given channel at the given
// bar, or nil if the bar is empty or out of range.
func (s *Song) PatternAtBar(channel, bar int) *Pattern {
	if channel < 0 || channel >= len(s.Channels) {
		return nil
	}
	c := &s.Channels[channel]
	if bar < 0 || bar >= len(c.Bars) {
		return nil
	}
	ref := c.Bars[bar]
	if ref <= 0 || ref > len(c.Patterns) {
		return nil
	}
	return &c.Patterns[ref-1]
}

// PartsPerBar returns the length of one bar in parts.
func (s *Song) PartsPerBar() int {
	return PartsPerBeat * s.BeatsPerBar
}

// MaxPitchForChannel is MaxPitch for pitch channels and DrumCount-1 for
// noise channels.
func (s *Song) MaxPitchForChannel(channel int) int {
	if s.IsNoiseChannel(channel) {
		return DrumCount - 1
	}
	return MaxPitch
}

func (s *Song) Validate() error {
	if s.Tempo < TempoMin || s.Tempo > TempoMax {
		return fmt.Errorf("tempo %d outside %d..%d", s.Tempo, TempoMin, TempoMax)
	}
	if len(s.Channels) != s.ChannelCount() {
		return errors.New("channel list does not match channel counts")
	}
	for i := range s.Channels {
		c := &s.Channels[i]
		if len(c.Instruments) != s.InstrumentsPerChannel {
			return fmt.Errorf("channel %d has %d instruments, expected %d", i, len(c.Instruments), s.InstrumentsPerChannel)
		}
		if len(c.Patterns) != s.PatternsPerChannel {
			return fmt.Errorf("channel %d has %d patterns, expected %d", i, len(c.Patterns), s.PatternsPerChannel)
		}
		if len(c.Bars) != s.BarCount {
			return fmt.Errorf("channel %d has %d bars, expected %d", i, len(c.Bars), s.BarCount)
		}
		for _, ref := range c.Bars {
			if ref < 0 || ref > s.PatternsPerChannel {
				return fmt.Errorf("channel %d references pattern %d", i, ref)
			}
		}
		for j := range c.Patterns {
			if err := c.Patterns[j].validate(s.PartsPerBar()); err != nil {
				return fmt.Errorf("channel %d pattern %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func (p *Pattern) validate(partsPerBar int) error {
	prevEnd := 0
	for i := range p.Notes {
		n := &p.Notes[i]
		if n.End <= n.Start {
			return fmt.Errorf("note %d has end %d <= start %d", i, n.End, n.Start)
		}
		if n.Start < prevEnd {
			return fmt.Errorf("note %d overlaps the previous note", i)
		}
		if n.End > partsPerBar {
			return fmt.Errorf("note %d extends past the bar", i)
		}
		if len(n.Pitches) == 0 || len(n.Pitches) > MaxChordSize {
			return fmt.Errorf("note %d has %d pitches", i, len(n.Pitches))
		}
		if len(n.Pins) < 2 {
			return fmt.Errorf("note %d has %d pins", i, len(n.Pins))
		}
		if n.Pins[0].Time != 0 || n.Pins[0].Interval != 0 {
			return fmt.Errorf("note %d first pin is not at the origin", i)
		}
		if n.Pins[len(n.Pins)-1].Time != n.End-n.Start {
			return fmt.Errorf("note %d last pin does not end the note", i)
		}
		for j := 1; j < len(n.Pins); j++ {
			if n.Pins[j].Time <= n.Pins[j-1].Time {
				return fmt.Errorf("note %d pins are not time-increasing", i)
			}
		}
		prevEnd = n.End
	}
	return nil
}

// Copy makes a deep copy of a Song.
func (s *Song) Copy() Song {
	channels := make([]Channel, len(s.Channels))
	for i := range s.Channels {
		channels[i] = s.Channels[i].Copy()
	}
	ret := *s
	ret.Channels = channels
	return ret
}

// Copy makes a deep copy of a Channel.
func (c *Channel) Copy() Channel {
	instruments := make([]Instrument, len(c.Instruments))
	for i := range c.Instruments {
		instruments[i] = c.Instruments[i].Copy()
	}
	patterns := make([]Pattern, len(c.Patterns))
	for i := range c.Patterns {
		patterns[i] = c.Patterns[i].Copy()
	}
	bars := make([]int, len(c.Bars))
	copy(bars, c.Bars)
	return Channel{Octave: c.Octave, Mute: c.Mute, Instruments: instruments, Patterns: patterns, Bars: bars}
}

// Copy makes a deep copy of a Pattern.
func (p *Pattern) Copy() Pattern {
	notes := make([]Note, len(p.Notes))
	for i := range p.Notes {
		notes[i] = p.Notes[i].Copy()
	}
	return Pattern{Instrument: p.Instrument, Notes: notes}
}

// Copy makes a deep copy of a Note.
func (n *Note) Copy() Note {
	pitches := make([]int, len(n.Pitches))
	copy(pitches, n.Pitches)
	pins := make([]Pin, len(n.Pins))
	copy(pins, n.Pins)
	return Note{Pitches: pitches, Start: n.Start, End: n.End, Pins: pins}
}

func clampInt(value, minValue, maxValue int) int {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}
	return value
}
