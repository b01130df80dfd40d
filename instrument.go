package beepbox

import "math"

type (
	InstrumentType int

	FilterType int

	// FilterControlPoint contributes one biquad stage to an instrument's
	// filter cascade. Freq and Gain are settings in the ranges declared in
	// config.go; FreqHz and LinearGain convert them to physical units.
	FilterControlPoint struct {
		Type FilterType
		Freq int
		Gain int
	}

	// FilterSettings is an ordered list of control points. The cascade is
	// applied in order; order matters only for the dynamic gradients, not for
	// the steady-state response.
	FilterSettings struct {
		Points []FilterControlPoint
	}

	// Operator is one FM operator: a frequency ratio selection, an amplitude
	// 0..OperatorAmplitudeMax, and an envelope applied to the amplitude.
	Operator struct {
		Frequency int
		Amplitude int
		Envelope  int
	}

	// SpectrumWave is the 30-point spectrum control array of the spectrum
	// instrument and of each drumset drum.
	SpectrumWave struct {
		Points [SpectrumControlPoints]int
	}

	// HarmonicsWave is the 28-point harmonic amplitude array of the
	// harmonics instrument.
	HarmonicsWave struct {
		Points [HarmonicsControlPoints]int
	}

	// Instrument is the variant-tagged instrument configuration. All fields
	// are always present; which ones are meaningful depends on Type.
	Instrument struct {
		Type    InstrumentType
		Preset  int
		Volume  int
		Filter  FilterSettings
		// DistortionFilter is the separate filter cascade inside the effects
		// chain, applied after the bitcrusher.
		DistortionFilter FilterSettings
		FilterEnvelope   int
		Transition       int
		Chord            int
		Vibrato          int
		Interval         int

		// Effects is a bitmask over the Effect* bit indices.
		Effects                uint32
		Distortion             int
		BitcrusherFreq         int
		BitcrusherQuantization int
		Pan                    int
		Reverb                 int

		ChipWave  int
		NoiseWave int

		Algorithm         int
		FeedbackType      int
		FeedbackAmplitude int
		FeedbackEnvelope  int
		Operators         [OperatorCount]Operator

		Spectrum  SpectrumWave
		Harmonics HarmonicsWave

		PulseWidth    int
		PulseEnvelope int

		Sustain int

		DrumsetEnvelopes [DrumCount]int
		DrumsetSpectra   [DrumCount]SpectrumWave
	}
)

const (
	InstrumentChip InstrumentType = iota
	InstrumentFM
	InstrumentNoise
	InstrumentSpectrum
	InstrumentDrumset
	InstrumentHarmonics
	InstrumentPWM
	InstrumentGuitar
	InstrumentTypeCount
)

var instrumentTypeNames = []string{"chip", "FM", "noise", "spectrum", "drumset", "harmonics", "PWM", "guitar"}

func (t InstrumentType) String() string {
	if t < 0 || int(t) >= len(instrumentTypeNames) {
		return "unknown"
	}
	return instrumentTypeNames[t]
}

// PitchInstrumentTypes lists the types selectable in pitch channels;
// NoiseInstrumentTypes the ones selectable in noise channels.
var (
	PitchInstrumentTypes = []InstrumentType{InstrumentChip, InstrumentFM, InstrumentHarmonics, InstrumentPWM, InstrumentGuitar}
	NoiseInstrumentTypes = []InstrumentType{InstrumentNoise, InstrumentSpectrum, InstrumentDrumset}
)

const (
	FilterLowPass FilterType = iota
	FilterHighPass
	FilterPeak
	FilterTypeCount
)

var filterTypeNames = []string{"low-pass", "high-pass", "peak"}

func (t FilterType) String() string {
	if t < 0 || int(t) >= len(filterTypeNames) {
		return "unknown"
	}
	return filterTypeNames[t]
}

// FreqHz converts the stored freq setting to Hertz.
func (p FilterControlPoint) FreqHz() float64 {
	return settingToHz(float64(p.Freq))
}

func settingToHz(setting float64) float64 {
	return FilterFreqMaxHz * math.Exp2((setting-(FilterFreqRange-1))*FilterFreqStep)
}

// HzToSetting is the inverse of FreqHz, unrounded.
func HzToSetting(hz float64) float64 {
	return (FilterFreqRange - 1) + math.Log2(hz/FilterFreqMaxHz)/FilterFreqStep
}

// LinearGain converts the stored gain setting to a linear gain.
func (p FilterControlPoint) LinearGain() float64 {
	return math.Exp2(float64(p.Gain-FilterGainCenter) * FilterGainStep)
}

// LinearGainToSetting is the inverse of LinearGain, unrounded.
func LinearGainToSetting(gain float64) float64 {
	return FilterGainCenter + math.Log2(gain)/FilterGainStep
}

// Copy makes a deep copy of FilterSettings.
func (f *FilterSettings) Copy() FilterSettings {
	points := make([]FilterControlPoint, len(f.Points))
	copy(points, f.Points)
	return FilterSettings{Points: points}
}

// NewInstrument returns an instrument of the default type for the channel
// kind, reset to that type's defaults.
func NewInstrument(isNoiseChannel bool) Instrument {
	var inst Instrument
	if isNoiseChannel {
		inst.SetTypeAndReset(InstrumentNoise)
	} else {
		inst.SetTypeAndReset(InstrumentChip)
	}
	return inst
}

// SetTypeAndReset switches the instrument type and restores every setting to
// that type's defaults.
func (inst *Instrument) SetTypeAndReset(t InstrumentType) {
	*inst = Instrument{Type: t}
	inst.Volume = 0
	inst.Preset = 0
	inst.FilterEnvelope = EnvelopeSteadyIndex
	inst.Transition = TransitionDefault
	inst.Chord = ChordDefault
	inst.Vibrato = 0
	inst.Interval = 0
	inst.Effects = 0
	inst.Distortion = DistortionRange / 2
	inst.BitcrusherFreq = BitcrusherFreqRange / 2
	inst.BitcrusherQuantization = BitcrusherQuantRange / 2
	inst.Pan = PanCenter
	inst.Reverb = 2
	switch t {
	case InstrumentChip:
		inst.ChipWave = ChipWaveDefault
	case InstrumentFM:
		inst.Algorithm = 0
		inst.FeedbackType = 0
		inst.FeedbackAmplitude = 0
		inst.FeedbackEnvelope = EnvelopeSteadyIndex
		for i := range inst.Operators {
			inst.Operators[i] = Operator{Frequency: 0, Amplitude: 0, Envelope: EnvelopeSteadyIndex}
		}
		inst.Operators[0].Amplitude = OperatorAmplitudeMax
	case InstrumentNoise:
		inst.NoiseWave = 0
		inst.Chord = 2 // arpeggio
	case InstrumentSpectrum:
		inst.Chord = 2
		for i := range inst.Spectrum.Points {
			inst.Spectrum.Points[i] = spectrumDefault(i)
		}
	case InstrumentDrumset:
		inst.Chord = 2
		for d := 0; d < DrumCount; d++ {
			inst.DrumsetEnvelopes[d] = twangEnvelopeIndex
			for i := range inst.DrumsetSpectra[d].Points {
				inst.DrumsetSpectra[d].Points[i] = drumsetSpectrumDefault(d, i)
			}
		}
	case InstrumentHarmonics:
		for i := range inst.Harmonics.Points {
			inst.Harmonics.Points[i] = harmonicsDefault(i)
		}
	case InstrumentPWM:
		inst.PulseWidth = PulseWidthRange - 1
		inst.PulseEnvelope = EnvelopeSteadyIndex
	case InstrumentGuitar:
		inst.Sustain = 6
		inst.PulseWidth = PulseWidthRange - 1
		for i := range inst.Harmonics.Points {
			inst.Harmonics.Points[i] = harmonicsDefault(i)
		}
	}
}

const twangEnvelopeIndex = 6 // twang 1

func spectrumDefault(i int) int {
	if i == 0 {
		return SpectrumMax
	}
	v := SpectrumMax - i/3
	if v < 1 {
		v = 1
	}
	return v
}

func drumsetSpectrumDefault(drum, i int) int {
	// lower drums lean on low bins, higher drums on high bins
	center := 4 + drum*2
	d := i - center
	if d < 0 {
		d = -d
	}
	v := SpectrumMax - d
	if v < 0 {
		v = 0
	}
	return v
}

func harmonicsDefault(i int) int {
	v := HarmonicsMax - i/2
	if v < 0 {
		v = 0
	}
	return v
}

// EffectEnabled reports whether the given Effect* bit is set.
func (inst *Instrument) EffectEnabled(effect int) bool {
	return inst.Effects&(1<<uint(effect)) != 0
}

// SetEffectEnabled sets or clears the given Effect* bit.
func (inst *Instrument) SetEffectEnabled(effect int, enabled bool) {
	if enabled {
		inst.Effects |= 1 << uint(effect)
	} else {
		inst.Effects &^= 1 << uint(effect)
	}
}

// VolumeMult converts the stored volume setting (0 loudest,
// InstrumentVolumeMax quietest) to a linear gain.
func (inst *Instrument) VolumeMult() float64 {
	return math.Pow(2.0, -float64(inst.Volume)*0.5)
}

// Copy makes a deep copy of an Instrument.
func (inst *Instrument) Copy() Instrument {
	ret := *inst
	ret.Filter = inst.Filter.Copy()
	ret.DistortionFilter = inst.DistortionFilter.Copy()
	return ret
}
