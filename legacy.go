package beepbox

import "math"

// Songs before version 9 stored each instrument's filter as a simplified
// cutoff + resonance pair. The translator below approximates the response of
// that legacy IIR, evaluated at its reference rate of 48000 Hz, with at most
// one modern control point.
const (
	legacyFilterCutoffRange    = 11
	legacyFilterResonanceRange = 8

	legacyFilterReferenceRate = 48000.0
	legacyFilterMaxHz         = 8000.0
)

// legacyCutoffHz maps the legacy cutoff setting to the corner frequency of
// the old filter, in half-octave steps below 8 kHz.
func legacyCutoffHz(cutoff int) float64 {
	return legacyFilterMaxHz * math.Exp2(float64(cutoff-(legacyFilterCutoffRange-1))*0.5)
}

// legacyFilterWarpOctaves returns how far the first-order approximation
// moves the corner up, per instrument kind. A biquad cuts twice as steeply
// as the legacy one-pole, so bright chip-family sources hide the flattened
// knee 3.5 octaves up; FM and plucked strings are smoother and keep more
// character with a shorter move; the noise-family filter tracked pitch and
// sat higher to begin with.
func legacyFilterWarpOctaves(instrumentType InstrumentType) float64 {
	switch instrumentType {
	case InstrumentFM, InstrumentGuitar:
		return 2.5
	case InstrumentNoise, InstrumentSpectrum, InstrumentDrumset:
		return 4.0
	}
	return 3.5
}

// TranslateLegacyFilter converts the legacy simplified filter parameters to
// at most one modern control point. A flat first-order filter with the
// cutoff at its maximum and no decaying envelope needs no point at all.
func TranslateLegacyFilter(cutoff, resonance int, envelopeDecays bool, instrumentType InstrumentType) []FilterControlPoint {
	cutoff = clampInt(cutoff, 0, legacyFilterCutoffRange-1)
	resonance = clampInt(resonance, 0, legacyFilterResonanceRange-1)
	if resonance == 0 && cutoff == legacyFilterCutoffRange-1 && !envelopeDecays {
		return nil
	}

	legacyHz := legacyCutoffHz(cutoff)
	var freqSetting, gainSetting int
	if resonance == 0 {
		// The legacy filter was first order: move the corner up by the
		// kind-specific distance and compensate with a gain biased toward
		// what the legacy filter lost there.
		warpOctaves := legacyFilterWarpOctaves(instrumentType)
		newHz := legacyHz * math.Exp2(warpOctaves)
		ratio := newHz / legacyHz
		legacyMagnitude := 1.0 / math.Sqrt(1.0+ratio*ratio)
		targetGain := math.Sqrt(legacyMagnitude * math.Exp2(-warpOctaves))
		if envelopeDecays && targetGain < math.Exp2(-2.0) {
			targetGain = math.Exp2(-2.0)
		}
		freqSetting = clampInt(int(math.Round(HzToSetting(newHz))), 0, FilterFreqRange-1)
		gainSetting = clampInt(int(math.Round(LinearGainToSetting(targetGain))), 0, FilterGainRange-1)
	} else {
		// Second order: keep the intended resonance peak. The legacy filter
		// sharpened its corner as the resonance radians approached pi, so
		// curve the corner toward the peak before rounding to a setting.
		intendedGain := math.Exp2(float64(resonance) * 0.5)
		radians := 2.0 * math.Pi * legacyHz / legacyFilterReferenceRate
		if radians > math.Pi {
			radians = math.Pi
		}
		warped := radians * (1.0 + 0.25*(intendedGain-1.0)/intendedGain)
		if warped > math.Pi {
			warped = math.Pi
		}
		newHz := warped * legacyFilterReferenceRate / (2.0 * math.Pi)
		if resonance <= 1 && intendedGain > math.Sqrt(0.5) {
			intendedGain = math.Sqrt(0.5)
		}
		freqSetting = clampInt(int(math.Round(HzToSetting(newHz))), 0, FilterFreqRange-1)
		gainSetting = clampInt(int(math.Round(LinearGainToSetting(intendedGain))), 0, FilterGainRange-1)
	}

	return []FilterControlPoint{{Type: FilterLowPass, Freq: freqSetting, Gain: gainSetting}}
}
