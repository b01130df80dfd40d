package beepbox

import "testing"

func TestResizePreservesContent(t *testing.T) {
	s := NewSong()
	s.Channels[0].Patterns[0].Notes = []Note{{
		Pitches: []int{12},
		Start:   0,
		End:     24,
		Pins:    []Pin{{0, 0, 3}, {24, 0, 3}},
	}}
	s.Channels[0].Bars[0] = 1
	s.Channels[0].Instruments[0].Volume = 4

	s.SetBarCount(32)
	s.SetPatternsPerChannel(16)
	s.SetInstrumentsPerChannel(4)
	s.SetChannelCounts(4, 2)

	if len(s.Channels) != 6 {
		t.Fatalf("expected 6 channels, got %d", len(s.Channels))
	}
	if s.Channels[0].Bars[0] != 1 {
		t.Error("bar reference lost in resize")
	}
	if len(s.Channels[0].Patterns[0].Notes) != 1 {
		t.Error("pattern notes lost in resize")
	}
	if s.Channels[0].Instruments[0].Volume != 4 {
		t.Error("instrument settings lost in resize")
	}
	for i := range s.Channels {
		if len(s.Channels[i].Bars) != 32 || len(s.Channels[i].Patterns) != 16 || len(s.Channels[i].Instruments) != 4 {
			t.Fatalf("channel %d not resized correctly", i)
		}
	}

	// shrinking resets out-of-range pattern instrument references to 0
	s.Channels[0].Patterns[0].Instrument = 3
	s.SetInstrumentsPerChannel(2)
	if s.Channels[0].Patterns[0].Instrument != 0 {
		t.Error("out-of-range pattern instrument should reset to 0")
	}

	if err := s.Validate(); err != nil {
		t.Fatalf("resized song should validate: %v", err)
	}
}

func TestValidateRejectsBadNotes(t *testing.T) {
	s := NewSong()
	s.Channels[0].Patterns[0].Notes = []Note{{
		Pitches: []int{12},
		Start:   10,
		End:     5,
		Pins:    []Pin{{0, 0, 3}, {5, 0, 3}},
	}}
	if err := s.Validate(); err == nil {
		t.Error("end before start should not validate")
	}

	s = NewSong()
	s.Channels[0].Patterns[0].Notes = []Note{{
		Pitches: []int{12},
		Start:   0,
		End:     10,
		Pins:    []Pin{{0, 1, 3}, {10, 0, 3}},
	}}
	if err := s.Validate(); err == nil {
		t.Error("first pin with nonzero interval should not validate")
	}
}

func TestSongCopyIsDeep(t *testing.T) {
	s := makeRandomSong(123)
	c := s.Copy()
	c.Channels[0].Instruments[0].Volume = (c.Channels[0].Instruments[0].Volume + 1) % (InstrumentVolumeMax + 1)
	c.Channels[0].Bars[0] = (c.Channels[0].Bars[0] + 1) % (s.PatternsPerChannel + 1)
	if s.Channels[0].Instruments[0].Volume == c.Channels[0].Instruments[0].Volume &&
		s.Channels[0].Bars[0] == c.Channels[0].Bars[0] {
		t.Error("Copy should not share channel state with the original")
	}
}

func TestFilterControlPointConversions(t *testing.T) {
	p := FilterControlPoint{Type: FilterLowPass, Freq: FilterFreqRange - 1, Gain: FilterGainCenter}
	if hz := p.FreqHz(); hz < FilterFreqMaxHz*0.999 || hz > FilterFreqMaxHz*1.001 {
		t.Errorf("top setting should map to the max Hz, got %f", hz)
	}
	if gain := p.LinearGain(); gain < 0.999 || gain > 1.001 {
		t.Errorf("center gain should be unity, got %f", gain)
	}
	for freq := 0; freq < FilterFreqRange; freq++ {
		p := FilterControlPoint{Freq: freq}
		setting := HzToSetting(p.FreqHz())
		if diff := setting - float64(freq); diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("HzToSetting(FreqHz(%d)) = %f", freq, setting)
		}
	}
}
