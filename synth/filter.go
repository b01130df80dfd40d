package synth

import (
	"math"

	"github.com/keisili/beepbox"
)

type (
	// FilterCoefficients is one set of Direct Form I biquad coefficients,
	// normalized so a0 == 1. First-order designs leave B2 and A2 zero.
	FilterCoefficients struct {
		A1, A2, B0, B1, B2 float64
	}

	// DynamicBiquadFilter evaluates the Direct Form I difference equation and
	// linearly interpolates all five coefficients per sample, so a cascade
	// can glide between the coefficient sets computed at run boundaries
	// without zipper noise.
	DynamicBiquadFilter struct {
		a1, a2, b0, b1, b2                          float64
		a1Delta, a2Delta, b0Delta, b1Delta, b2Delta float64
		input1, input2, output1, output2            float64
	}
)

// LowPass1stOrderButterworth designs a one-pole lowpass with the corner at
// the given radians per sample.
func (fc *FilterCoefficients) LowPass1stOrderButterworth(cornerRadians float64) {
	g := 1.0 / math.Tan(cornerRadians*0.5)
	a0 := 1.0 + g
	fc.A1 = (1.0 - g) / a0
	fc.A2 = 0.0
	fc.B0 = 1.0 / a0
	fc.B1 = 1.0 / a0
	fc.B2 = 0.0
}

// HighPass1stOrderButterworth designs a one-pole highpass.
func (fc *FilterCoefficients) HighPass1stOrderButterworth(cornerRadians float64) {
	g := 1.0 / math.Tan(cornerRadians*0.5)
	a0 := 1.0 + g
	fc.A1 = (1.0 - g) / a0
	fc.A2 = 0.0
	fc.B0 = g / a0
	fc.B1 = -g / a0
	fc.B2 = 0.0
}

// LowPass2ndOrderButterworth designs a resonant lowpass; peakLinearGain
// doubles as the resonance Q.
func (fc *FilterCoefficients) LowPass2ndOrderButterworth(cornerRadians, peakLinearGain float64) {
	alpha := math.Sin(cornerRadians) / (2.0 * peakLinearGain)
	cosw := math.Cos(cornerRadians)
	a0 := 1.0 + alpha
	fc.A1 = -2.0 * cosw / a0
	fc.A2 = (1.0 - alpha) / a0
	fc.B0 = (1.0 - cosw) * 0.5 / a0
	fc.B1 = (1.0 - cosw) / a0
	fc.B2 = (1.0 - cosw) * 0.5 / a0
}

// HighPass2ndOrderButterworth designs a resonant highpass.
func (fc *FilterCoefficients) HighPass2ndOrderButterworth(cornerRadians, peakLinearGain float64) {
	alpha := math.Sin(cornerRadians) / (2.0 * peakLinearGain)
	cosw := math.Cos(cornerRadians)
	a0 := 1.0 + alpha
	fc.A1 = -2.0 * cosw / a0
	fc.A2 = (1.0 - alpha) / a0
	fc.B0 = (1.0 + cosw) * 0.5 / a0
	fc.B1 = -(1.0 + cosw) / a0
	fc.B2 = (1.0 + cosw) * 0.5 / a0
}

// Peak2ndOrder designs a constant-Q peaking section centered at the corner.
func (fc *FilterCoefficients) Peak2ndOrder(cornerRadians, linearGain, bandWidthScale float64) {
	sqrtGain := math.Sqrt(linearGain)
	alpha := math.Sin(cornerRadians) * 0.5 * bandWidthScale
	cosw := math.Cos(cornerRadians)
	a0 := 1.0 + alpha/sqrtGain
	fc.A1 = -2.0 * cosw / a0
	fc.A2 = (1.0 - alpha/sqrtGain) / a0
	fc.B0 = (1.0 + alpha*sqrtGain) / a0
	fc.B1 = -2.0 * cosw / a0
	fc.B2 = (1.0 - alpha*sqrtGain) / a0
}

// HighShelf1stOrder designs a one-pole high shelf with the given shelf gain.
func (fc *FilterCoefficients) HighShelf1stOrder(cornerRadians, shelfLinearGain float64) {
	tan := math.Tan(cornerRadians * 0.5)
	sqrtGain := math.Sqrt(shelfLinearGain)
	a0 := tan + sqrtGain
	fc.A1 = (tan - sqrtGain) / a0
	fc.A2 = 0.0
	fc.B0 = (tan*sqrtGain + shelfLinearGain) / a0
	fc.B1 = (tan*sqrtGain - shelfLinearGain) / a0
	fc.B2 = 0.0
}

// AllPass1stOrderInvertPhaseAbove designs a first-order all-pass whose phase
// shift is 90 degrees at the corner and approaches 180 degrees above it.
func (fc *FilterCoefficients) AllPass1stOrderInvertPhaseAbove(cornerRadians float64) {
	tan := math.Tan(cornerRadians * 0.5)
	g := (tan - 1.0) / (tan + 1.0)
	fc.A1 = g
	fc.A2 = 0.0
	fc.B0 = g
	fc.B1 = 1.0
	fc.B2 = 0.0
}

// AllPass1stOrderFractionalDelay designs the y = g·x + x₋₁ − g·y₋₁ all-pass
// approximating a fractional sample delay d in 0..1.
func (fc *FilterCoefficients) AllPass1stOrderFractionalDelay(delay float64) {
	g := (1.0 - delay) / (1.0 + delay)
	fc.A1 = g
	fc.A2 = 0.0
	fc.B0 = g
	fc.B1 = 1.0
	fc.B2 = 0.0
}

// ScaleGain multiplies the numerator by a linear gain.
func (fc *FilterCoefficients) ScaleGain(linearGain float64) {
	fc.B0 *= linearGain
	fc.B1 *= linearGain
	fc.B2 *= linearGain
}

// pointToCoefficients designs the biquad of one filter control point.
// freqEnvelopeMult scales the cutoff per the instrument's filter envelope.
func pointToCoefficients(p beepbox.FilterControlPoint, sampleRate, freqEnvelopeMult float64) FilterCoefficients {
	hz := p.FreqHz() * freqEnvelopeMult
	radians := 2.0 * math.Pi * hz / sampleRate
	if radians < 0.0001 {
		radians = 0.0001
	}
	if radians > math.Pi*0.99 {
		radians = math.Pi * 0.99
	}
	gain := p.LinearGain()
	var fc FilterCoefficients
	switch p.Type {
	case beepbox.FilterLowPass:
		fc.LowPass2ndOrderButterworth(radians, gain)
	case beepbox.FilterHighPass:
		fc.HighPass2ndOrderButterworth(radians, gain)
	case beepbox.FilterPeak:
		fc.Peak2ndOrder(radians, gain, 1.0)
	}
	return fc
}

// pointVolumeCompensation counteracts the perceptual loudness change a
// control point introduces: a darkened lowpass or thinned highpass is nudged
// back up, an over-unity peak is damped.
func pointVolumeCompensation(p beepbox.FilterControlPoint) float64 {
	octavesFromMax := float64(beepbox.FilterFreqRange-1-p.Freq) * beepbox.FilterFreqStep
	gain := p.LinearGain()
	switch p.Type {
	case beepbox.FilterLowPass:
		comp := math.Pow(gain, -0.3) * (1.0 + octavesFromMax*0.03)
		return math.Min(2.0, comp)
	case beepbox.FilterHighPass:
		octavesFromMin := float64(beepbox.FilterFreqRange-1)*beepbox.FilterFreqStep - octavesFromMax
		comp := math.Pow(gain, -0.2) * (1.0 + octavesFromMin*0.02)
		return math.Min(2.0, comp)
	case beepbox.FilterPeak:
		if gain > 1.0 {
			return math.Pow(gain, -0.4)
		}
	}
	return 1.0
}

// filterVolumeCompensation is the aggregate pre-filter multiplier, capped.
func filterVolumeCompensation(points []beepbox.FilterControlPoint) float64 {
	mult := 1.0
	for _, p := range points {
		mult *= pointVolumeCompensation(p)
	}
	return math.Min(3.0, mult)
}

// LoadCoefficientsWithGradient sets the filter to start and arranges for it
// to reach end after 1/deltaRate samples.
func (f *DynamicBiquadFilter) LoadCoefficientsWithGradient(start, end FilterCoefficients, deltaRate float64) {
	f.a1 = start.A1
	f.a2 = start.A2
	f.b0 = start.B0
	f.b1 = start.B1
	f.b2 = start.B2
	f.a1Delta = (end.A1 - start.A1) * deltaRate
	f.a2Delta = (end.A2 - start.A2) * deltaRate
	f.b0Delta = (end.B0 - start.B0) * deltaRate
	f.b1Delta = (end.B1 - start.B1) * deltaRate
	f.b2Delta = (end.B2 - start.B2) * deltaRate
}

// Sample advances the filter by one input sample.
func (f *DynamicBiquadFilter) Sample(x float64) float64 {
	y := f.b0*x + f.b1*f.input1 + f.b2*f.input2 - f.a1*f.output1 - f.a2*f.output2
	f.input2 = f.input1
	f.input1 = x
	f.output2 = f.output1
	f.output1 = y
	f.a1 += f.a1Delta
	f.a2 += f.a2Delta
	f.b0 += f.b0Delta
	f.b1 += f.b1Delta
	f.b2 += f.b2Delta
	return y
}

// ResetState clears the sample histories but not the coefficients.
func (f *DynamicBiquadFilter) ResetState() {
	f.input1 = 0
	f.input2 = 0
	f.output1 = 0
	f.output2 = 0
}

// Sanitize clamps denormal or non-finite history values to zero and resets
// the whole history after a feedback blowup.
func (f *DynamicBiquadFilter) Sanitize() {
	for _, v := range [4]float64{f.input1, f.input2, f.output1, f.output2} {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > 100.0 {
			f.ResetState()
			return
		}
	}
	f.input1 = sanitize(f.input1)
	f.input2 = sanitize(f.input2)
	f.output1 = sanitize(f.output1)
	f.output2 = sanitize(f.output2)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > 100.0 {
		return 0.0
	}
	if math.Abs(v) < 1e-24 {
		return 0.0
	}
	return v
}

// applyFilters runs a sample through a filter cascade.
func applyFilters(sample float64, filters []DynamicBiquadFilter) float64 {
	for i := range filters {
		sample = filters[i].Sample(sample)
	}
	return sample
}
