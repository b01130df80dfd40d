package beepbox

import "math"

type (
	// Scale is a set of allowed pitches within an octave. The editor uses the
	// flags to constrain note entry; the synth itself plays whatever pitches a
	// song contains.
	Scale struct {
		Name  string
		Flags [12]bool
	}

	// Transition selects how a tone behaves at note boundaries: how fast the
	// attack ramps, whether the tone keeps ringing after the note ends and for
	// how many ticks, whether adjacent notes continue the same tone without a
	// phase reset, and whether pitch/expression slide across the boundary.
	Transition struct {
		Name          string
		AttackSeconds float64
		Releases      bool
		ReleaseTicks  int
		IsSeamless    bool
		Slides        bool
		SlideTicks    int
	}

	// Vibrato is a pitch LFO configuration. The LFO is a sum of sines, one per
	// entry in Periods (in seconds). DelayTicks postpones the onset; the
	// amplitude then ramps from zero to Amplitude over two ticks.
	Vibrato struct {
		Name       string
		Amplitude  float64
		Periods    []float64
		DelayTicks int
	}

	// Interval configures the two unison voices of the chip, harmonics, pwm
	// and custom chip generators: Spread detunes them apart (in semitones),
	// Offset shifts both, Expression scales the result and Sign flips or
	// attenuates the second voice.
	Interval struct {
		Name       string
		Spread     float64
		Offset     float64
		Expression float64
		Sign       float64
	}

	// Chord selects how the simultaneous pitches of a note map to tones.
	Chord struct {
		Name           string
		Harmonizes     bool
		CustomInterval bool
		Arpeggiates    bool
		StrumParts     int
		SingleTone     bool
	}

	EnvelopeType int

	// Envelope is a named time→scalar curve with a speed parameter. The same
	// list serves filter cutoff, FM operator amplitude, feedback amplitude and
	// pulse width modulation.
	Envelope struct {
		Name  string
		Type  EnvelopeType
		Speed float64
	}

	// ChipWave is one cycle of a classic waveform. Samples hold the raw,
	// DC-centered cycle; the synth integrates it once at load so the playback
	// loop can sample a first difference.
	ChipWave struct {
		Name       string
		Expression float64
		Samples    []float64
	}

	// NoiseWave describes one of the cached pseudo-random noise tables.
	// BasePitch tunes which song pitch plays the table at unit speed and
	// PitchFilterMult sets how strongly the one-pole smoothing follows pitch.
	NoiseWave struct {
		Name            string
		Expression      float64
		BasePitch       int
		PitchFilterMult float64
		IsSoft          bool
	}

	// OperatorFrequency is a frequency ratio option of an FM operator. The
	// tilde variants add a constant Hz offset and invert the amplitude sign so
	// detuned pairs beat against each other.
	OperatorFrequency struct {
		Name          string
		Mult          float64
		HzOffset      float64
		AmplitudeSign float64
	}

	// Algorithm is an FM operator wiring. Operator indices in the tables are
	// 1-based as in the display names; ModulatedBy lists the modulator inputs
	// of each operator and AssociatedCarrier tells which carrier's pitch an
	// operator follows.
	Algorithm struct {
		Name              string
		CarrierCount      int
		AssociatedCarrier [OperatorCount]int
		ModulatedBy       [OperatorCount][]int
	}

	// Feedback is an FM feedback wiring, with the same 1-based index
	// convention as Algorithm.
	Feedback struct {
		Name    string
		Indices [OperatorCount][]int
	}

	// Preset names a factory configuration selectable per instrument type.
	Preset struct {
		Name string
	}
)

const (
	EnvelopeCustom EnvelopeType = iota
	EnvelopeSteady
	EnvelopePunch
	EnvelopeFlare
	EnvelopeTwang
	EnvelopeSwell
	EnvelopeTremolo
	EnvelopeTremolo2
	EnvelopeDecay
)

// Nested clock units: ticks < parts < beats < bars. TicksPerPart and
// PartsPerBeat are engine constants; beats per bar and BPM are per-song.
const (
	TicksPerPart = 2
	PartsPerBeat = 24
)

const DefaultSampleRate = 44100

const (
	TempoMin     = 30
	TempoMax     = 300
	TempoDefault = 150

	BeatsPerBarMin     = 3
	BeatsPerBarMax     = 16
	BeatsPerBarDefault = 8

	BarCountMin     = 1
	BarCountMax     = 128
	BarCountDefault = 16

	PatternsPerChannelMin     = 1
	PatternsPerChannelMax     = 64
	PatternsPerChannelDefault = 8

	InstrumentsPerChannelMin     = 1
	InstrumentsPerChannelMax     = 10
	InstrumentsPerChannelDefault = 1

	PitchChannelCountMin = 1
	PitchChannelCountMax = 6
	NoiseChannelCountMin = 0
	NoiseChannelCountMax = 3

	PitchChannelCountDefault = 3
	NoiseChannelCountDefault = 1
)

const (
	// PitchOctaves covers the whole pitch range of a pitch channel; noise
	// channels address DrumCount drums instead.
	PitchOctaves = 7
	MaxPitch     = 84
	DrumCount    = 12

	OctaveOffsetMax = 4

	MaxChordSize = 4

	// MaximumTonesPerChannel caps live tones; released tones beyond the cap
	// are marked to fade out fast.
	MaximumTonesPerChannel = 8
)

const (
	ExpressionMax = 3

	InstrumentVolumeMax = 5
)

// Filter control point parameter space. The stored freq setting maps to Hz as
// maxHz · 2^((freq − (range−1)) · step) and the stored gain maps to a linear
// gain of 2^((gain − center) · gainStep).
const (
	FilterFreqRange            = 34
	FilterFreqStep             = 0.25
	FilterFreqReferenceSetting = 28
	FilterFreqReferenceHz      = 8000.0
	FilterGainRange            = 15
	FilterGainCenter           = 7
	FilterGainStep             = 0.5
	FilterMaxPoints            = 8
)

// FilterFreqMaxHz is the Hz value of the topmost freq setting.
var FilterFreqMaxHz = FilterFreqReferenceHz * math.Exp2(FilterFreqStep*(FilterFreqRange-1-FilterFreqReferenceSetting))

// Effect bits of the per-instrument effects bitmask, in processing order.
const (
	EffectDistortion = iota
	EffectBitcrusher
	EffectFilter
	EffectPanning
	EffectChorus
	EffectReverb
	EffectCount
)

const (
	DistortionRange      = 8
	BitcrusherFreqRange  = 8
	BitcrusherQuantRange = 8
	PanMax               = 8
	PanCenter            = 4
	ReverbRange          = 8
)

const (
	OperatorCount        = 4
	OperatorAmplitudeMax = 15
)

const (
	SpectrumControlPoints     = 30
	SpectrumMax               = 7
	HarmonicsControlPoints    = 28
	HarmonicsMax              = 7
	DrumsetSpectrumPointCount = 30
)

const (
	PulseWidthRange = 8
	SustainRange    = 8
)

// Scales is ordered as stored in the song format; ScaleDefault is the
// fallback when a legacy name is unrecognized.
var Scales = []Scale{
	{Name: "easy :)", Flags: [12]bool{true, false, true, false, true, false, false, true, false, true, false, false}},
	{Name: "easy :(", Flags: [12]bool{true, false, false, true, false, true, false, true, false, false, true, false}},
	{Name: "island :)", Flags: [12]bool{true, false, false, false, true, true, false, true, false, false, false, true}},
	{Name: "island :(", Flags: [12]bool{true, true, false, true, false, false, false, true, true, false, false, false}},
	{Name: "blues :)", Flags: [12]bool{true, false, true, true, true, false, false, true, false, true, false, false}},
	{Name: "blues :(", Flags: [12]bool{true, true, false, true, false, true, false, true, true, false, false, false}},
	{Name: "normal :)", Flags: [12]bool{true, false, true, false, true, true, false, true, false, true, false, true}},
	{Name: "normal :(", Flags: [12]bool{true, false, true, true, false, true, false, true, true, false, true, false}},
	{Name: "dbl harmonic :)", Flags: [12]bool{true, true, false, false, true, true, false, true, true, false, false, true}},
	{Name: "dbl harmonic :(", Flags: [12]bool{true, false, true, true, false, false, true, true, true, false, false, true}},
	{Name: "enigma", Flags: [12]bool{true, false, true, false, true, false, true, false, true, false, true, false}},
	{Name: "expert", Flags: [12]bool{true, true, true, true, true, true, true, true, true, true, true, true}},
}

const ScaleDefault = 11 // expert

// scaleAliases maps historical scale names to their current spellings.
var scaleAliases = map[string]string{
	"romani :)": "dbl harmonic :)",
	"romani :(": "dbl harmonic :(",
}

var Keys = []string{"C", "C♯", "D", "D♯", "E", "F", "F♯", "G", "G♯", "A", "A♯", "B"}

const KeyDefault = 0

// BasePitch returns the MIDI-style pitch of song pitch 0 in a pitch channel.
func BasePitch(key int) int {
	return 12 + key
}

const DrumBasePitch = 69

type Rhythm struct {
	Name             string
	StepsPerBeat     int
	TicksPerArpeggio int
	ArpeggioPatterns [][]int
}

// Rhythms control note entry resolution and arpeggio pacing. Triplet rhythms
// use three-step arpeggio patterns so a three-note chord lands evenly.
var Rhythms = []Rhythm{
	{Name: "÷3 (triplets)", StepsPerBeat: 3, TicksPerArpeggio: 4, ArpeggioPatterns: [][]int{{0}, {0, 1}, {0, 1, 2}, {0, 1, 2, 3}}},
	{Name: "÷4 (standard)", StepsPerBeat: 4, TicksPerArpeggio: 3, ArpeggioPatterns: [][]int{{0}, {0, 1}, {0, 1, 2, 1}, {0, 1, 2, 3}}},
	{Name: "÷6", StepsPerBeat: 6, TicksPerArpeggio: 4, ArpeggioPatterns: [][]int{{0}, {0, 1}, {0, 1, 2}, {0, 1, 2, 3}}},
	{Name: "÷8", StepsPerBeat: 8, TicksPerArpeggio: 3, ArpeggioPatterns: [][]int{{0}, {0, 1}, {0, 1, 2, 1}, {0, 1, 2, 3}}},
}

const RhythmDefault = 1

var Transitions = []Transition{
	{Name: "seamless", AttackSeconds: 0.0, Releases: false, ReleaseTicks: 1, IsSeamless: true, Slides: false, SlideTicks: 3},
	{Name: "hard", AttackSeconds: 0.0, Releases: false, ReleaseTicks: 3, IsSeamless: false, Slides: false, SlideTicks: 3},
	{Name: "soft", AttackSeconds: 0.025, Releases: false, ReleaseTicks: 3, IsSeamless: false, Slides: false, SlideTicks: 3},
	{Name: "slide", AttackSeconds: 0.025, Releases: false, ReleaseTicks: 3, IsSeamless: true, Slides: true, SlideTicks: 3},
	{Name: "cross fade", AttackSeconds: 0.04, Releases: true, ReleaseTicks: 6, IsSeamless: false, Slides: false, SlideTicks: 3},
	{Name: "hard fade", AttackSeconds: 0.0, Releases: true, ReleaseTicks: 48, IsSeamless: false, Slides: false, SlideTicks: 3},
	{Name: "medium fade", AttackSeconds: 0.0125, Releases: true, ReleaseTicks: 72, IsSeamless: false, Slides: false, SlideTicks: 3},
	{Name: "soft fade", AttackSeconds: 0.06, Releases: true, ReleaseTicks: 96, IsSeamless: false, Slides: false, SlideTicks: 6},
}

// TransitionDefault is also the fallback when a legacy transition name is
// unrecognized.
const TransitionDefault = 1 // hard

var Vibratos = []Vibrato{
	{Name: "none", Amplitude: 0.0, Periods: []float64{0.14}, DelayTicks: 0},
	{Name: "light", Amplitude: 0.15, Periods: []float64{0.14}, DelayTicks: 0},
	{Name: "delayed", Amplitude: 0.3, Periods: []float64{0.14}, DelayTicks: 18},
	{Name: "heavy", Amplitude: 0.45, Periods: []float64{0.14}, DelayTicks: 0},
	{Name: "shaky", Amplitude: 0.1, Periods: []float64{0.11, 0.1618, 0.3}, DelayTicks: 0},
}

var Intervals = []Interval{
	{Name: "union", Spread: 0.0, Offset: 0.0, Expression: 0.7, Sign: 1.0},
	{Name: "shimmer", Spread: 0.018, Offset: 0.0, Expression: 0.8, Sign: 1.0},
	{Name: "hum", Spread: 0.045, Offset: 0.0, Expression: 1.0, Sign: 1.0},
	{Name: "honky tonk", Spread: 0.09, Offset: 0.0, Expression: 1.0, Sign: 1.0},
	{Name: "dissonant", Spread: 0.25, Offset: 0.0, Expression: 0.9, Sign: 1.0},
	{Name: "fifth", Spread: 3.5, Offset: 3.5, Expression: 0.9, Sign: 1.0},
	{Name: "octave", Spread: 6.0, Offset: 6.0, Expression: 0.8, Sign: 1.0},
	{Name: "bowed", Spread: 0.02, Offset: 0.0, Expression: 1.0, Sign: -1.0},
	{Name: "piano", Spread: 0.01, Offset: 0.0, Expression: 1.0, Sign: 0.7},
}

var Chords = []Chord{
	{Name: "harmony", Harmonizes: true, CustomInterval: false, Arpeggiates: false, StrumParts: 0, SingleTone: false},
	{Name: "strum", Harmonizes: true, CustomInterval: false, Arpeggiates: false, StrumParts: 1, SingleTone: false},
	{Name: "arpeggio", Harmonizes: false, CustomInterval: false, Arpeggiates: true, StrumParts: 0, SingleTone: true},
	{Name: "custom interval", Harmonizes: false, CustomInterval: true, Arpeggiates: true, StrumParts: 0, SingleTone: true},
}

const ChordDefault = 0

var Envelopes = []Envelope{
	{Name: "custom", Type: EnvelopeCustom, Speed: 0},
	{Name: "steady", Type: EnvelopeSteady, Speed: 0},
	{Name: "punch", Type: EnvelopePunch, Speed: 0},
	{Name: "flare 1", Type: EnvelopeFlare, Speed: 32},
	{Name: "flare 2", Type: EnvelopeFlare, Speed: 8},
	{Name: "flare 3", Type: EnvelopeFlare, Speed: 2},
	{Name: "twang 1", Type: EnvelopeTwang, Speed: 32},
	{Name: "twang 2", Type: EnvelopeTwang, Speed: 8},
	{Name: "twang 3", Type: EnvelopeTwang, Speed: 2},
	{Name: "swell 1", Type: EnvelopeSwell, Speed: 32},
	{Name: "swell 2", Type: EnvelopeSwell, Speed: 8},
	{Name: "swell 3", Type: EnvelopeSwell, Speed: 2},
	{Name: "tremolo1", Type: EnvelopeTremolo, Speed: 4},
	{Name: "tremolo2", Type: EnvelopeTremolo, Speed: 2},
	{Name: "tremolo3", Type: EnvelopeTremolo, Speed: 1},
	{Name: "tremolo4", Type: EnvelopeTremolo2, Speed: 4},
	{Name: "tremolo5", Type: EnvelopeTremolo2, Speed: 2},
	{Name: "tremolo6", Type: EnvelopeTremolo2, Speed: 1},
	{Name: "decay 1", Type: EnvelopeDecay, Speed: 10},
	{Name: "decay 2", Type: EnvelopeDecay, Speed: 7},
	{Name: "decay 3", Type: EnvelopeDecay, Speed: 4},
}

const EnvelopeSteadyIndex = 1

var ChipWaves = []ChipWave{
	{Name: "rounded", Expression: 0.94, Samples: centerWave([]float64{0.0, 0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 0.95, 0.9, 0.85, 0.8, 0.7, 0.6, 0.5, 0.4, 0.2, 0.0, -0.2, -0.4, -0.5, -0.6, -0.7, -0.8, -0.85, -0.9, -0.95, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -0.95, -0.9, -0.85, -0.8, -0.7, -0.6, -0.5, -0.4, -0.2})},
	{Name: "triangle", Expression: 1.0, Samples: centerWave([]float64{1.0 / 15.0, 3.0 / 15.0, 5.0 / 15.0, 7.0 / 15.0, 9.0 / 15.0, 11.0 / 15.0, 13.0 / 15.0, 15.0 / 15.0, 15.0 / 15.0, 13.0 / 15.0, 11.0 / 15.0, 9.0 / 15.0, 7.0 / 15.0, 5.0 / 15.0, 3.0 / 15.0, 1.0 / 15.0, -1.0 / 15.0, -3.0 / 15.0, -5.0 / 15.0, -7.0 / 15.0, -9.0 / 15.0, -11.0 / 15.0, -13.0 / 15.0, -15.0 / 15.0, -15.0 / 15.0, -13.0 / 15.0, -11.0 / 15.0, -9.0 / 15.0, -7.0 / 15.0, -5.0 / 15.0, -3.0 / 15.0, -1.0 / 15.0})},
	{Name: "square", Expression: 0.5, Samples: centerWave([]float64{1.0, -1.0})},
	{Name: "1/4 pulse", Expression: 0.5, Samples: centerWave([]float64{1.0, -1.0, -1.0, -1.0})},
	{Name: "1/8 pulse", Expression: 0.5, Samples: centerWave([]float64{1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0})},
	{Name: "sawtooth", Expression: 0.65, Samples: centerWave([]float64{1.0 / 31.0, 3.0 / 31.0, 5.0 / 31.0, 7.0 / 31.0, 9.0 / 31.0, 11.0 / 31.0, 13.0 / 31.0, 15.0 / 31.0, 17.0 / 31.0, 19.0 / 31.0, 21.0 / 31.0, 23.0 / 31.0, 25.0 / 31.0, 27.0 / 31.0, 29.0 / 31.0, 31.0 / 31.0, -31.0 / 31.0, -29.0 / 31.0, -27.0 / 31.0, -25.0 / 31.0, -23.0 / 31.0, -21.0 / 31.0, -19.0 / 31.0, -17.0 / 31.0, -15.0 / 31.0, -13.0 / 31.0, -11.0 / 31.0, -9.0 / 31.0, -7.0 / 31.0, -5.0 / 31.0, -3.0 / 31.0, -1.0 / 31.0})},
	{Name: "double saw", Expression: 0.5, Samples: centerWave([]float64{0.0, -0.2, -0.4, -0.6, -0.8, -1.0, 1.0, -0.8, -0.6, -0.4, -0.2, 1.0, 0.8, 0.6, 0.4, 0.2})},
	{Name: "double pulse", Expression: 0.4, Samples: centerWave([]float64{1.0, 1.0, 1.0, 1.0, 1.0, -1.0, -1.0, -1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, -1.0, -1.0})},
	{Name: "spiky", Expression: 0.4, Samples: centerWave([]float64{1.0, -1.0, 1.0, -1.0, 1.0, 0.0})},
}

const ChipWaveDefault = 2 // square

var NoiseWaves = []NoiseWave{
	{Name: "retro", Expression: 0.25, BasePitch: 69, PitchFilterMult: 1024.0, IsSoft: false},
	{Name: "white", Expression: 1.0, BasePitch: 69, PitchFilterMult: 8192.0, IsSoft: true},
	{Name: "clang", Expression: 0.4, BasePitch: 69, PitchFilterMult: 1024.0, IsSoft: false},
	{Name: "buzz", Expression: 0.3, BasePitch: 69, PitchFilterMult: 1024.0, IsSoft: false},
	{Name: "hollow", Expression: 1.5, BasePitch: 96, PitchFilterMult: 1.0, IsSoft: true},
}

var OperatorFrequencies = []OperatorFrequency{
	{Name: "1×", Mult: 1.0, HzOffset: 0.0, AmplitudeSign: 1.0},
	{Name: "~1×", Mult: 1.0, HzOffset: 1.5, AmplitudeSign: -1.0},
	{Name: "2×", Mult: 2.0, HzOffset: 0.0, AmplitudeSign: 1.0},
	{Name: "~2×", Mult: 2.0, HzOffset: -1.3, AmplitudeSign: -1.0},
	{Name: "3×", Mult: 3.0, HzOffset: 0.0, AmplitudeSign: 1.0},
	{Name: "4×", Mult: 4.0, HzOffset: 0.0, AmplitudeSign: 1.0},
	{Name: "5×", Mult: 5.0, HzOffset: 0.0, AmplitudeSign: 1.0},
	{Name: "6×", Mult: 6.0, HzOffset: 0.0, AmplitudeSign: 1.0},
	{Name: "7×", Mult: 7.0, HzOffset: 0.0, AmplitudeSign: 1.0},
	{Name: "8×", Mult: 8.0, HzOffset: 0.0, AmplitudeSign: 1.0},
	{Name: "11×", Mult: 11.0, HzOffset: 0.0, AmplitudeSign: 1.0},
	{Name: "16×", Mult: 16.0, HzOffset: 0.0, AmplitudeSign: 1.0},
	{Name: "20×", Mult: 20.0, HzOffset: 0.0, AmplitudeSign: 1.0},
}

var Algorithms = []Algorithm{
	{Name: "1←(2 3 4)", CarrierCount: 1, AssociatedCarrier: [OperatorCount]int{1, 1, 1, 1}, ModulatedBy: [OperatorCount][]int{{2, 3, 4}, {}, {}, {}}},
	{Name: "1←(2 3←4)", CarrierCount: 1, AssociatedCarrier: [OperatorCount]int{1, 1, 1, 1}, ModulatedBy: [OperatorCount][]int{{2, 3}, {}, {4}, {}}},
	{Name: "1←2←(3 4)", CarrierCount: 1, AssociatedCarrier: [OperatorCount]int{1, 1, 1, 1}, ModulatedBy: [OperatorCount][]int{{2}, {3, 4}, {}, {}}},
	{Name: "1←(2 3)←4", CarrierCount: 1, AssociatedCarrier: [OperatorCount]int{1, 1, 1, 1}, ModulatedBy: [OperatorCount][]int{{2, 3}, {4}, {4}, {}}},
	{Name: "1←2←3←4", CarrierCount: 1, AssociatedCarrier: [OperatorCount]int{1, 1, 1, 1}, ModulatedBy: [OperatorCount][]int{{2}, {3}, {4}, {}}},
	{Name: "1←3 2←4", CarrierCount: 2, AssociatedCarrier: [OperatorCount]int{1, 2, 1, 2}, ModulatedBy: [OperatorCount][]int{{3}, {4}, {}, {}}},
	{Name: "1 2←(3 4)", CarrierCount: 2, AssociatedCarrier: [OperatorCount]int{1, 2, 2, 2}, ModulatedBy: [OperatorCount][]int{{}, {3, 4}, {}, {}}},
	{Name: "1 2←3←4", CarrierCount: 2, AssociatedCarrier: [OperatorCount]int{1, 2, 2, 2}, ModulatedBy: [OperatorCount][]int{{}, {3}, {4}, {}}},
	{Name: "(1 2)←3←4", CarrierCount: 2, AssociatedCarrier: [OperatorCount]int{1, 2, 1, 2}, ModulatedBy: [OperatorCount][]int{{3}, {3}, {4}, {}}},
	{Name: "(1 2)←(3 4)", CarrierCount: 2, AssociatedCarrier: [OperatorCount]int{1, 2, 1, 2}, ModulatedBy: [OperatorCount][]int{{3, 4}, {3, 4}, {}, {}}},
	{Name: "1 2 3←4", CarrierCount: 3, AssociatedCarrier: [OperatorCount]int{1, 2, 3, 3}, ModulatedBy: [OperatorCount][]int{{}, {}, {4}, {}}},
	{Name: "(1 2 3)←4", CarrierCount: 3, AssociatedCarrier: [OperatorCount]int{1, 2, 3, 1}, ModulatedBy: [OperatorCount][]int{{4}, {4}, {4}, {}}},
	{Name: "1 2 3 4", CarrierCount: 4, AssociatedCarrier: [OperatorCount]int{1, 2, 3, 4}, ModulatedBy: [OperatorCount][]int{{}, {}, {}, {}}},
}

var Feedbacks = []Feedback{
	{Name: "1⟲", Indices: [OperatorCount][]int{{1}, {}, {}, {}}},
	{Name: "2⟲", Indices: [OperatorCount][]int{{}, {2}, {}, {}}},
	{Name: "3⟲", Indices: [OperatorCount][]int{{}, {}, {3}, {}}},
	{Name: "4⟲", Indices: [OperatorCount][]int{{}, {}, {}, {4}}},
	{Name: "1⟲ 2⟲", Indices: [OperatorCount][]int{{1}, {2}, {}, {}}},
	{Name: "3⟲ 4⟲", Indices: [OperatorCount][]int{{}, {}, {3}, {4}}},
	{Name: "1⟲ 2⟲ 3⟲", Indices: [OperatorCount][]int{{1}, {2}, {3}, {}}},
	{Name: "2⟲ 3⟲ 4⟲", Indices: [OperatorCount][]int{{}, {2}, {3}, {4}}},
	{Name: "1⟲ 2⟲ 3⟲ 4⟲", Indices: [OperatorCount][]int{{1}, {2}, {3}, {4}}},
	{Name: "1→2", Indices: [OperatorCount][]int{{}, {1}, {}, {}}},
	{Name: "1→3", Indices: [OperatorCount][]int{{}, {}, {1}, {}}},
	{Name: "1→4", Indices: [OperatorCount][]int{{}, {}, {}, {1}}},
	{Name: "2→3", Indices: [OperatorCount][]int{{}, {}, {2}, {}}},
	{Name: "2→4", Indices: [OperatorCount][]int{{}, {}, {}, {2}}},
	{Name: "3→4", Indices: [OperatorCount][]int{{}, {}, {}, {3}}},
	{Name: "1→3 2→4", Indices: [OperatorCount][]int{{}, {}, {1}, {2}}},
	{Name: "1→4 2→3", Indices: [OperatorCount][]int{{}, {}, {2}, {1}}},
	{Name: "1→2→3→4", Indices: [OperatorCount][]int{{}, {1}, {2}, {3}}},
}

// Presets selectable through the preset field; index 0 always means the
// instrument is fully customized.
var Presets = []Preset{
	{Name: "custom"},
	{Name: "grand piano"},
	{Name: "honky tonk"},
	{Name: "strings"},
	{Name: "brass"},
	{Name: "flute"},
	{Name: "bass"},
	{Name: "bell"},
	{Name: "organ"},
	{Name: "theremin"},
}

// centerWave removes the DC offset of one waveform cycle.
func centerWave(samples []float64) []float64 {
	var sum float64
	for _, s := range samples {
		sum += s
	}
	average := sum / float64(len(samples))
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s - average
	}
	return out
}

// ExpressionToGain converts a 0..3 pin expression to a linear gain.
func ExpressionToGain(expression float64) float64 {
	if expression <= 0 {
		return 0
	}
	return math.Pow(expression/ExpressionMax, 1.5)
}
