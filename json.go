package beepbox

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// The JSON form is an exchange format: friendlier names, 1-based pattern
// instruments, and note velocities in percent. The same intermediate structs
// back the YAML form.
type (
	songExchange struct {
		Format         string            `json:"format" yaml:"format"`
		Version        int               `json:"version" yaml:"version"`
		Scale          string            `json:"scale" yaml:"scale"`
		Key            string            `json:"key" yaml:"key"`
		IntroBars      int               `json:"introBars" yaml:"introBars"`
		LoopBars       int               `json:"loopBars" yaml:"loopBars"`
		BeatsPerBar    int               `json:"beatsPerBar" yaml:"beatsPerBar"`
		TicksPerBeat   int               `json:"ticksPerBeat" yaml:"ticksPerBeat"`
		BeatsPerMinute int               `json:"beatsPerMinute" yaml:"beatsPerMinute"`
		Reverb         *int              `json:"reverb,omitempty" yaml:"reverb,omitempty"`
		Channels       []channelExchange `json:"channels" yaml:"channels"`
	}

	channelExchange struct {
		Type            string               `json:"type" yaml:"type"`
		OctaveScrollBar int                  `json:"octaveScrollBar" yaml:"octaveScrollBar"`
		Instruments     []instrumentExchange `json:"instruments" yaml:"instruments"`
		Patterns        []patternExchange    `json:"patterns" yaml:"patterns"`
		Sequence        []int                `json:"sequence" yaml:"sequence,flow"`
	}

	patternExchange struct {
		Instrument int            `json:"instrument" yaml:"instrument"` // 1-based
		Notes      []noteExchange `json:"notes" yaml:"notes"`
	}

	noteExchange struct {
		Pitches []int           `json:"pitches" yaml:"pitches,flow"`
		Points  []pointExchange `json:"points" yaml:"points,flow"`
	}

	pointExchange struct {
		Tick      int `json:"tick" yaml:"tick"`
		PitchBend int `json:"pitchBend" yaml:"pitchBend"`
		Volume    int `json:"volume" yaml:"volume"` // 0..100
	}

	instrumentExchange struct {
		Type                   string              `json:"type" yaml:"type"`
		Preset                 string              `json:"preset,omitempty" yaml:"preset,omitempty"`
		Volume                 int                 `json:"volume" yaml:"volume"`
		Effects                []string            `json:"effects,omitempty" yaml:"effects,omitempty,flow"`
		Filter                 []filterExchange    `json:"filter,omitempty" yaml:"filter,omitempty"`
		FilterEnvelope         string              `json:"filterEnvelope,omitempty" yaml:"filterEnvelope,omitempty"`
		EffectFilter           []filterExchange    `json:"effectFilter,omitempty" yaml:"effectFilter,omitempty"`
		Transition             string              `json:"transition,omitempty" yaml:"transition,omitempty"`
		Chord                  string              `json:"chord,omitempty" yaml:"chord,omitempty"`
		Vibrato                string              `json:"vibrato,omitempty" yaml:"vibrato,omitempty"`
		Interval               string              `json:"interval,omitempty" yaml:"interval,omitempty"`
		Distortion             *int                `json:"distortion,omitempty" yaml:"distortion,omitempty"`
		BitcrusherFreq         *int                `json:"bitcrusherFreq,omitempty" yaml:"bitcrusherFreq,omitempty"`
		BitcrusherQuantization *int                `json:"bitcrusherQuantization,omitempty" yaml:"bitcrusherQuantization,omitempty"`
		Pan                    *int                `json:"pan,omitempty" yaml:"pan,omitempty"`
		Reverb                 *int                `json:"reverb,omitempty" yaml:"reverb,omitempty"`
		Wave                   string              `json:"wave,omitempty" yaml:"wave,omitempty"`
		Algorithm              string              `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
		FeedbackType           string              `json:"feedbackType,omitempty" yaml:"feedbackType,omitempty"`
		FeedbackAmplitude      *int                `json:"feedbackAmplitude,omitempty" yaml:"feedbackAmplitude,omitempty"`
		FeedbackEnvelope       string              `json:"feedbackEnvelope,omitempty" yaml:"feedbackEnvelope,omitempty"`
		Operators              []operatorExchange  `json:"operators,omitempty" yaml:"operators,omitempty"`
		Spectrum               []int               `json:"spectrum,omitempty" yaml:"spectrum,omitempty,flow"`
		Harmonics              []int               `json:"harmonics,omitempty" yaml:"harmonics,omitempty,flow"`
		Drums                  []drumsetExchange   `json:"drums,omitempty" yaml:"drums,omitempty"`
		PulseWidth             *int                `json:"pulseWidth,omitempty" yaml:"pulseWidth,omitempty"`
		PulseEnvelope          string              `json:"pulseEnvelope,omitempty" yaml:"pulseEnvelope,omitempty"`
		Sustain                *int                `json:"sustain,omitempty" yaml:"sustain,omitempty"`
	}

	filterExchange struct {
		Type string `json:"type" yaml:"type"`
		Freq int    `json:"freq" yaml:"freq"`
		Gain int    `json:"gain" yaml:"gain"`
	}

	operatorExchange struct {
		Frequency string `json:"frequency" yaml:"frequency"`
		Amplitude int    `json:"amplitude" yaml:"amplitude"`
		Envelope  string `json:"envelope,omitempty" yaml:"envelope,omitempty"`
	}

	drumsetExchange struct {
		Spectrum []int  `json:"spectrum" yaml:"spectrum,flow"`
		Envelope string `json:"envelope" yaml:"envelope"`
	}
)

// ParseJSON parses the JSON form of a song.
func ParseJSON(data []byte) (*Song, error) {
	var ex songExchange
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("could not parse song JSON: %w", err)
	}
	s := NewSong()
	if err := s.fromExchange(&ex); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Song) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toExchange())
}

func (s *Song) UnmarshalJSON(data []byte) error {
	var ex songExchange
	if err := json.Unmarshal(data, &ex); err != nil {
		return err
	}
	s.InitToDefault()
	return s.fromExchange(&ex)
}

func (s Song) MarshalYAML() (interface{}, error) {
	return s.toExchange(), nil
}

func (s *Song) UnmarshalYAML(value *yaml.Node) error {
	var ex songExchange
	if err := value.Decode(&ex); err != nil {
		return err
	}
	s.InitToDefault()
	return s.fromExchange(&ex)
}

func (s *Song) toExchange() *songExchange {
	ex := &songExchange{
		Format:         "BeepBox",
		Version:        CurrentVersion,
		Scale:          Scales[s.Scale].Name,
		Key:            Keys[s.Key],
		IntroBars:      s.LoopStart,
		LoopBars:       s.LoopLength,
		BeatsPerBar:    s.BeatsPerBar,
		TicksPerBeat:   Rhythms[s.Rhythm].StepsPerBeat,
		BeatsPerMinute: s.Tempo,
	}
	for i := range s.Channels {
		c := &s.Channels[i]
		cex := channelExchange{OctaveScrollBar: c.Octave, Sequence: append([]int{}, c.Bars...)}
		if s.IsNoiseChannel(i) {
			cex.Type = "drum"
		} else {
			cex.Type = "pitch"
		}
		for j := range c.Instruments {
			cex.Instruments = append(cex.Instruments, instrumentToExchange(&c.Instruments[j]))
		}
		for j := range c.Patterns {
			p := &c.Patterns[j]
			pex := patternExchange{Instrument: p.Instrument + 1}
			for n := range p.Notes {
				note := &p.Notes[n]
				nex := noteExchange{Pitches: append([]int{}, note.Pitches...)}
				for _, pin := range note.Pins {
					nex.Points = append(nex.Points, pointExchange{
						Tick:      note.Start + pin.Time,
						PitchBend: pin.Interval,
						Volume:    int(math.Round(float64(pin.Expression) * 100.0 / ExpressionMax)),
					})
				}
				pex.Notes = append(pex.Notes, nex)
			}
			cex.Patterns = append(cex.Patterns, pex)
		}
		ex.Channels = append(ex.Channels, cex)
	}
	return ex
}

func instrumentToExchange(inst *Instrument) instrumentExchange {
	iex := instrumentExchange{
		Type:           inst.Type.String(),
		Volume:         inst.Volume,
		FilterEnvelope: Envelopes[inst.FilterEnvelope].Name,
		Transition:     Transitions[inst.Transition].Name,
		Chord:          Chords[inst.Chord].Name,
		Vibrato:        Vibratos[inst.Vibrato].Name,
	}
	if inst.Preset > 0 && inst.Preset < len(Presets) {
		iex.Preset = Presets[inst.Preset].Name
	}
	effectNames := []string{"distortion", "bitcrusher", "effect filter", "panning", "chorus", "reverb"}
	for bit, name := range effectNames {
		if inst.EffectEnabled(bit) {
			iex.Effects = append(iex.Effects, name)
		}
	}
	for _, p := range inst.Filter.Points {
		iex.Filter = append(iex.Filter, filterExchange{Type: p.Type.String(), Freq: p.Freq, Gain: p.Gain})
	}
	for _, p := range inst.DistortionFilter.Points {
		iex.EffectFilter = append(iex.EffectFilter, filterExchange{Type: p.Type.String(), Freq: p.Freq, Gain: p.Gain})
	}
	iex.Distortion = intPtr(inst.Distortion)
	iex.BitcrusherFreq = intPtr(inst.BitcrusherFreq)
	iex.BitcrusherQuantization = intPtr(inst.BitcrusherQuantization)
	iex.Pan = intPtr(inst.Pan)
	iex.Reverb = intPtr(inst.Reverb)
	switch inst.Type {
	case InstrumentChip:
		iex.Wave = ChipWaves[inst.ChipWave].Name
		iex.Interval = Intervals[inst.Interval].Name
	case InstrumentNoise:
		iex.Wave = NoiseWaves[inst.NoiseWave].Name
	case InstrumentFM:
		iex.Algorithm = Algorithms[inst.Algorithm].Name
		iex.FeedbackType = Feedbacks[inst.FeedbackType].Name
		iex.FeedbackAmplitude = intPtr(inst.FeedbackAmplitude)
		iex.FeedbackEnvelope = Envelopes[inst.FeedbackEnvelope].Name
		for _, op := range inst.Operators {
			iex.Operators = append(iex.Operators, operatorExchange{
				Frequency: OperatorFrequencies[op.Frequency].Name,
				Amplitude: op.Amplitude,
				Envelope:  Envelopes[op.Envelope].Name,
			})
		}
	case InstrumentSpectrum:
		iex.Spectrum = append(iex.Spectrum, inst.Spectrum.Points[:]...)
	case InstrumentDrumset:
		for d := 0; d < DrumCount; d++ {
			iex.Drums = append(iex.Drums, drumsetExchange{
				Spectrum: append([]int{}, inst.DrumsetSpectra[d].Points[:]...),
				Envelope: Envelopes[inst.DrumsetEnvelopes[d]].Name,
			})
		}
	case InstrumentHarmonics:
		iex.Harmonics = append(iex.Harmonics, inst.Harmonics.Points[:]...)
		iex.Interval = Intervals[inst.Interval].Name
	case InstrumentPWM:
		iex.PulseWidth = intPtr(inst.PulseWidth)
		iex.PulseEnvelope = Envelopes[inst.PulseEnvelope].Name
		iex.Interval = Intervals[inst.Interval].Name
	case InstrumentGuitar:
		iex.Sustain = intPtr(inst.Sustain)
		iex.PulseWidth = intPtr(inst.PulseWidth)
		iex.PulseEnvelope = Envelopes[inst.PulseEnvelope].Name
		iex.Harmonics = append(iex.Harmonics, inst.Harmonics.Points[:]...)
		iex.Interval = Intervals[inst.Interval].Name
	}
	return iex
}

func (s *Song) fromExchange(ex *songExchange) error {
	if ex.Format != "" && ex.Format != "BeepBox" {
		return fmt.Errorf("unrecognized song format %q", ex.Format)
	}
	if ex.Scale != "" {
		s.Scale = scaleIndexByName(ex.Scale)
	}
	if ex.Key != "" {
		s.Key = indexByName(Keys, ex.Key, KeyDefault)
	}
	if ex.BeatsPerBar != 0 {
		s.BeatsPerBar = clampInt(ex.BeatsPerBar, BeatsPerBarMin, BeatsPerBarMax)
	}
	if ex.TicksPerBeat != 0 {
		s.Rhythm = rhythmIndexBySteps(ex.TicksPerBeat)
	}
	if ex.BeatsPerMinute != 0 {
		s.Tempo = clampInt(ex.BeatsPerMinute, TempoMin, TempoMax)
	}

	pitch, noise := 0, 0
	for i := range ex.Channels {
		if ex.Channels[i].Type == "drum" {
			noise++
		} else {
			pitch++
		}
	}
	if len(ex.Channels) > 0 {
		s.SetChannelCounts(pitch, noise)
		maxInstruments, maxPatterns, maxBars := 1, 1, 1
		for i := range ex.Channels {
			maxInstruments = max(maxInstruments, len(ex.Channels[i].Instruments))
			maxPatterns = max(maxPatterns, len(ex.Channels[i].Patterns))
			maxBars = max(maxBars, len(ex.Channels[i].Sequence))
		}
		s.SetInstrumentsPerChannel(maxInstruments)
		s.SetPatternsPerChannel(maxPatterns)
		s.SetBarCount(maxBars)
	}

	s.LoopStart = clampInt(ex.IntroBars, 0, s.BarCount-1)
	if ex.LoopBars > 0 {
		s.LoopLength = clampInt(ex.LoopBars, 1, s.BarCount-s.LoopStart)
	} else {
		s.LoopLength = s.BarCount - s.LoopStart
	}

	// Sort the exchange channels so pitch channels land before noise
	// channels regardless of their order in the file.
	targets := make([]int, 0, len(ex.Channels))
	nextPitch, nextNoise := 0, pitch
	for i := range ex.Channels {
		if ex.Channels[i].Type == "drum" {
			targets = append(targets, nextNoise)
			nextNoise++
		} else {
			targets = append(targets, nextPitch)
			nextPitch++
		}
	}

	for i := range ex.Channels {
		cex := &ex.Channels[i]
		channel := &s.Channels[targets[i]]
		isNoise := s.IsNoiseChannel(targets[i])
		channel.Octave = clampInt(cex.OctaveScrollBar, 0, OctaveOffsetMax)
		for b, ref := range cex.Sequence {
			channel.Bars[b] = clampInt(ref, 0, s.PatternsPerChannel)
		}
		for j := range cex.Instruments {
			instrumentFromExchange(&channel.Instruments[j], &cex.Instruments[j], isNoise)
		}
		maxPitchValue := s.MaxPitchForChannel(targets[i])
		for j := range cex.Patterns {
			pex := &cex.Patterns[j]
			pattern := &channel.Patterns[j]
			pattern.Instrument = clampInt(pex.Instrument-1, 0, s.InstrumentsPerChannel-1)
			pattern.Notes = nil
			for n := range pex.Notes {
				note, ok := noteFromExchange(&pex.Notes[n], s.PartsPerBar(), maxPitchValue)
				if ok {
					pattern.Notes = append(pattern.Notes, note)
				}
			}
		}
	}

	if ex.Reverb != nil {
		// song-global reverb from old exports, applied like the legacy
		// binary form
		reverb := clampInt(*ex.Reverb, 0, 4)
		for i := 0; i < s.PitchChannelCount; i++ {
			for j := range s.Channels[i].Instruments {
				s.Channels[i].Instruments[j].Reverb = reverb
				if reverb > 0 {
					s.Channels[i].Instruments[j].SetEffectEnabled(EffectReverb, true)
				}
			}
		}
	}
	return nil
}

func noteFromExchange(nex *noteExchange, partsPerBar, maxPitchValue int) (Note, bool) {
	if len(nex.Pitches) == 0 || len(nex.Points) < 2 {
		return Note{}, false
	}
	note := Note{}
	for _, p := range nex.Pitches {
		if len(note.Pitches) < MaxChordSize {
			note.Pitches = append(note.Pitches, clampInt(p, 0, maxPitchValue))
		}
	}
	note.Start = clampInt(nex.Points[0].Tick, 0, partsPerBar-1)
	for _, point := range nex.Points {
		time := clampInt(point.Tick, note.Start, partsPerBar) - note.Start
		expression := int(math.Round(float64(clampInt(point.Volume, 0, 100)) * ExpressionMax / 100.0))
		if len(note.Pins) > 0 && time <= note.Pins[len(note.Pins)-1].Time {
			continue
		}
		interval := point.PitchBend
		if len(note.Pins) == 0 {
			interval = 0
			time = 0
		}
		note.Pins = append(note.Pins, Pin{Time: time, Interval: interval, Expression: expression})
	}
	if len(note.Pins) < 2 {
		return Note{}, false
	}
	note.End = note.Start + note.Pins[len(note.Pins)-1].Time
	return note, true
}

func instrumentFromExchange(inst *Instrument, iex *instrumentExchange, isNoiseChannel bool) {
	t := instrumentTypeByName(iex.Type, isNoiseChannel)
	inst.SetTypeAndReset(t)
	inst.Volume = clampInt(iex.Volume, 0, InstrumentVolumeMax)
	inst.Preset = presetIndexByName(iex.Preset)
	if iex.FilterEnvelope != "" {
		inst.FilterEnvelope = envelopeIndexByName(iex.FilterEnvelope)
	}
	if iex.Transition != "" {
		inst.Transition = transitionIndexByName(iex.Transition)
	}
	if iex.Chord != "" {
		inst.Chord = chordIndexByName(iex.Chord, inst.Chord)
	}
	if iex.Vibrato != "" {
		inst.Vibrato = vibratoIndexByName(iex.Vibrato)
	}
	if iex.Interval != "" {
		inst.Interval = intervalIndexByName(iex.Interval)
	}
	inst.Effects = 0
	for _, name := range iex.Effects {
		switch name {
		case "distortion":
			inst.SetEffectEnabled(EffectDistortion, true)
		case "bitcrusher":
			inst.SetEffectEnabled(EffectBitcrusher, true)
		case "effect filter":
			inst.SetEffectEnabled(EffectFilter, true)
		case "panning":
			inst.SetEffectEnabled(EffectPanning, true)
		case "chorus":
			inst.SetEffectEnabled(EffectChorus, true)
		case "reverb":
			inst.SetEffectEnabled(EffectReverb, true)
		}
	}
	inst.Filter.Points = filterPointsFromExchange(iex.Filter)
	inst.DistortionFilter.Points = filterPointsFromExchange(iex.EffectFilter)
	if iex.Distortion != nil {
		inst.Distortion = clampInt(*iex.Distortion, 0, DistortionRange-1)
	}
	if iex.BitcrusherFreq != nil {
		inst.BitcrusherFreq = clampInt(*iex.BitcrusherFreq, 0, BitcrusherFreqRange-1)
	}
	if iex.BitcrusherQuantization != nil {
		inst.BitcrusherQuantization = clampInt(*iex.BitcrusherQuantization, 0, BitcrusherQuantRange-1)
	}
	if iex.Pan != nil {
		inst.Pan = clampInt(*iex.Pan, 0, PanMax)
	}
	if iex.Reverb != nil {
		inst.Reverb = clampInt(*iex.Reverb, 0, ReverbRange-1)
	}
	switch t {
	case InstrumentChip:
		if iex.Wave != "" {
			inst.ChipWave = chipWaveIndexByName(iex.Wave)
		}
	case InstrumentNoise:
		if iex.Wave != "" {
			inst.NoiseWave = noiseWaveIndexByName(iex.Wave)
		}
	case InstrumentFM:
		if iex.Algorithm != "" {
			inst.Algorithm = algorithmIndexByName(iex.Algorithm)
		}
		if iex.FeedbackType != "" {
			inst.FeedbackType = feedbackIndexByName(iex.FeedbackType)
		}
		if iex.FeedbackAmplitude != nil {
			inst.FeedbackAmplitude = clampInt(*iex.FeedbackAmplitude, 0, OperatorAmplitudeMax)
		}
		if iex.FeedbackEnvelope != "" {
			inst.FeedbackEnvelope = envelopeIndexByName(iex.FeedbackEnvelope)
		}
		for i := 0; i < len(iex.Operators) && i < OperatorCount; i++ {
			op := &inst.Operators[i]
			op.Frequency = operatorFrequencyIndexByName(iex.Operators[i].Frequency)
			op.Amplitude = clampInt(iex.Operators[i].Amplitude, 0, OperatorAmplitudeMax)
			if iex.Operators[i].Envelope != "" {
				op.Envelope = envelopeIndexByName(iex.Operators[i].Envelope)
			}
		}
	case InstrumentSpectrum:
		copySpectrumPoints(&inst.Spectrum, iex.Spectrum)
	case InstrumentDrumset:
		for d := 0; d < len(iex.Drums) && d < DrumCount; d++ {
			copySpectrumPoints(&inst.DrumsetSpectra[d], iex.Drums[d].Spectrum)
			if iex.Drums[d].Envelope != "" {
				inst.DrumsetEnvelopes[d] = envelopeIndexByName(iex.Drums[d].Envelope)
			}
		}
	case InstrumentHarmonics:
		copyHarmonicsPoints(&inst.Harmonics, iex.Harmonics)
	case InstrumentPWM:
		if iex.PulseWidth != nil {
			inst.PulseWidth = clampInt(*iex.PulseWidth, 0, PulseWidthRange-1)
		}
		if iex.PulseEnvelope != "" {
			inst.PulseEnvelope = envelopeIndexByName(iex.PulseEnvelope)
		}
	case InstrumentGuitar:
		if iex.Sustain != nil {
			inst.Sustain = clampInt(*iex.Sustain, 0, SustainRange-1)
		}
		if iex.PulseWidth != nil {
			inst.PulseWidth = clampInt(*iex.PulseWidth, 0, PulseWidthRange-1)
		}
		if iex.PulseEnvelope != "" {
			inst.PulseEnvelope = envelopeIndexByName(iex.PulseEnvelope)
		}
		copyHarmonicsPoints(&inst.Harmonics, iex.Harmonics)
	}
}

func filterPointsFromExchange(points []filterExchange) []FilterControlPoint {
	var out []FilterControlPoint
	for _, p := range points {
		if len(out) >= FilterMaxPoints {
			break
		}
		t := FilterLowPass
		for i := 0; i < int(FilterTypeCount); i++ {
			if FilterType(i).String() == p.Type {
				t = FilterType(i)
			}
		}
		out = append(out, FilterControlPoint{
			Type: t,
			Freq: clampInt(p.Freq, 0, FilterFreqRange-1),
			Gain: clampInt(p.Gain, 0, FilterGainRange-1),
		})
	}
	return out
}

func copySpectrumPoints(dst *SpectrumWave, src []int) {
	for i := 0; i < len(src) && i < SpectrumControlPoints; i++ {
		dst.Points[i] = clampInt(src[i], 0, SpectrumMax)
	}
}

func copyHarmonicsPoints(dst *HarmonicsWave, src []int) {
	for i := 0; i < len(src) && i < HarmonicsControlPoints; i++ {
		dst.Points[i] = clampInt(src[i], 0, HarmonicsMax)
	}
}

func indexByName(names []string, name string, fallback int) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return fallback
}

func scaleIndexByName(name string) int {
	if alias, ok := scaleAliases[name]; ok {
		name = alias
	}
	for i := range Scales {
		if Scales[i].Name == name {
			return i
		}
	}
	return ScaleDefault
}

func rhythmIndexBySteps(steps int) int {
	for i := range Rhythms {
		if Rhythms[i].StepsPerBeat == steps {
			return i
		}
	}
	return RhythmDefault
}

func instrumentTypeByName(name string, isNoiseChannel bool) InstrumentType {
	for i := 0; i < int(InstrumentTypeCount); i++ {
		if InstrumentType(i).String() == name {
			t := InstrumentType(i)
			valid := PitchInstrumentTypes
			if isNoiseChannel {
				valid = NoiseInstrumentTypes
			}
			for _, v := range valid {
				if v == t {
					return t
				}
			}
		}
	}
	if isNoiseChannel {
		return InstrumentNoise
	}
	return InstrumentChip
}

func presetIndexByName(name string) int {
	for i := range Presets {
		if Presets[i].Name == name {
			return i
		}
	}
	return 0
}

func envelopeIndexByName(name string) int {
	for i := range Envelopes {
		if Envelopes[i].Name == name {
			return i
		}
	}
	return EnvelopeSteadyIndex
}

func transitionIndexByName(name string) int {
	for i := range Transitions {
		if Transitions[i].Name == name {
			return i
		}
	}
	return TransitionDefault
}

func chordIndexByName(name string, fallback int) int {
	for i := range Chords {
		if Chords[i].Name == name {
			return i
		}
	}
	return fallback
}

func vibratoIndexByName(name string) int {
	for i := range Vibratos {
		if Vibratos[i].Name == name {
			return i
		}
	}
	return 0
}

func intervalIndexByName(name string) int {
	for i := range Intervals {
		if Intervals[i].Name == name {
			return i
		}
	}
	return 0
}

func chipWaveIndexByName(name string) int {
	for i := range ChipWaves {
		if ChipWaves[i].Name == name {
			return i
		}
	}
	return ChipWaveDefault
}

func noiseWaveIndexByName(name string) int {
	for i := range NoiseWaves {
		if NoiseWaves[i].Name == name {
			return i
		}
	}
	return 0
}

func algorithmIndexByName(name string) int {
	for i := range Algorithms {
		if Algorithms[i].Name == name {
			return i
		}
	}
	return 0
}

func feedbackIndexByName(name string) int {
	for i := range Feedbacks {
		if Feedbacks[i].Name == name {
			return i
		}
	}
	return 0
}

func operatorFrequencyIndexByName(name string) int {
	for i := range OperatorFrequencies {
		if OperatorFrequencies[i].Name == name {
			return i
		}
	}
	return 0
}

func intPtr(v int) *int {
	return &v
}
