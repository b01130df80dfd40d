package synth

import (
	"math"
	"testing"

	"github.com/keisili/beepbox"
)

// jury reports whether the biquad denominator 1 + a1 z^-1 + a2 z^-2 has all
// poles strictly inside the unit circle.
func jury(a1, a2 float64) bool {
	return math.Abs(a2) < 1.0 && math.Abs(a1) < 1.0+a2
}

func TestFilterPointStability(t *testing.T) {
	for ft := 0; ft < int(beepbox.FilterTypeCount); ft++ {
		for freq := 0; freq < beepbox.FilterFreqRange; freq++ {
			for gain := 0; gain < beepbox.FilterGainRange; gain++ {
				p := beepbox.FilterControlPoint{Type: beepbox.FilterType(ft), Freq: freq, Gain: gain}
				fc := pointToCoefficients(p, beepbox.DefaultSampleRate, 1.0)
				if !jury(fc.A1, fc.A2) {
					t.Fatalf("%v freq %d gain %d: poles outside the unit circle (a1=%f a2=%f)", p.Type, freq, gain, fc.A1, fc.A2)
				}
			}
		}
	}
}

func TestStaticDesignStability(t *testing.T) {
	for _, radians := range []float64{0.001, 0.01, 0.1, 1.0, 2.0, 3.0} {
		var fc FilterCoefficients
		fc.LowPass1stOrderButterworth(radians)
		if !jury(fc.A1, fc.A2) {
			t.Errorf("LP1 unstable at %f radians", radians)
		}
		fc.HighPass1stOrderButterworth(radians)
		if !jury(fc.A1, fc.A2) {
			t.Errorf("HP1 unstable at %f radians", radians)
		}
		fc.HighShelf1stOrder(radians, 0.3)
		if !jury(fc.A1, fc.A2) {
			t.Errorf("high shelf unstable at %f radians", radians)
		}
		fc.AllPass1stOrderInvertPhaseAbove(radians)
		if !jury(fc.A1, fc.A2) {
			t.Errorf("all-pass unstable at %f radians", radians)
		}
		for _, q := range []float64{0.2, 0.7, 1.0, 4.0} {
			fc.LowPass2ndOrderButterworth(radians, q)
			if !jury(fc.A1, fc.A2) {
				t.Errorf("LP2 unstable at %f radians q %f", radians, q)
			}
			fc.HighPass2ndOrderButterworth(radians, q)
			if !jury(fc.A1, fc.A2) {
				t.Errorf("HP2 unstable at %f radians q %f", radians, q)
			}
			fc.Peak2ndOrder(radians, q, 1.0)
			if !jury(fc.A1, fc.A2) {
				t.Errorf("peak unstable at %f radians gain %f", radians, q)
			}
		}
	}
}

func TestFractionalDelayAllPassCoefficient(t *testing.T) {
	for _, d := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		var fc FilterCoefficients
		fc.AllPass1stOrderFractionalDelay(d)
		g := (1.0 - d) / (1.0 + d)
		if math.Abs(fc.B0-g) > 1e-12 || math.Abs(fc.B1-1.0) > 1e-12 || math.Abs(fc.A1-g) > 1e-12 {
			t.Errorf("fractional delay %f: got b0=%f b1=%f a1=%f", d, fc.B0, fc.B1, fc.A1)
		}
	}
}

// With identical start and end coefficients the dynamic filter must match a
// plain static biquad.
func TestDynamicBiquadMatchesStatic(t *testing.T) {
	p := beepbox.FilterControlPoint{Type: beepbox.FilterPeak, Freq: 20, Gain: 11}
	fc := pointToCoefficients(p, beepbox.DefaultSampleRate, 1.0)

	var dynamic DynamicBiquadFilter
	dynamic.LoadCoefficientsWithGradient(fc, fc, 1.0/4096.0)

	var x1, x2, y1, y2 float64
	seed := uint32(12345)
	for i := 0; i < 4096; i++ {
		seed *= 16007
		x := float64(int32(seed)) / 2147483648.0
		want := fc.B0*x + fc.B1*x1 + fc.B2*x2 - fc.A1*y1 - fc.A2*y2
		x2, x1 = x1, x
		y2, y1 = y1, want
		got := dynamic.Sample(x)
		if math.Abs(got-want) > 1e-6 {
			t.Fatalf("sample %d: dynamic %f static %f", i, got, want)
		}
	}
}

// A gradient must land exactly on the end coefficients after 1/deltaRate
// samples.
func TestDynamicBiquadGradientConverges(t *testing.T) {
	start := FilterCoefficients{A1: -0.5, A2: 0.2, B0: 0.3, B1: 0.1, B2: 0.05}
	end := FilterCoefficients{A1: -0.3, A2: 0.1, B0: 0.5, B1: 0.2, B2: 0.1}
	var f DynamicBiquadFilter
	const n = 256
	f.LoadCoefficientsWithGradient(start, end, 1.0/n)
	for i := 0; i < n; i++ {
		f.Sample(0.0)
	}
	for _, pair := range [][2]float64{{f.a1, end.A1}, {f.a2, end.A2}, {f.b0, end.B0}, {f.b1, end.B1}, {f.b2, end.B2}} {
		if math.Abs(pair[0]-pair[1]) > 1e-9 {
			t.Fatalf("coefficient did not converge: got %f want %f", pair[0], pair[1])
		}
	}
}

func TestVolumeCompensationCap(t *testing.T) {
	var points []beepbox.FilterControlPoint
	for i := 0; i < beepbox.FilterMaxPoints; i++ {
		points = append(points, beepbox.FilterControlPoint{Type: beepbox.FilterLowPass, Freq: 0, Gain: 0})
	}
	if comp := filterVolumeCompensation(points); comp > 3.0 {
		t.Errorf("aggregate compensation should cap at 3.0, got %f", comp)
	}
	if comp := filterVolumeCompensation(nil); comp != 1.0 {
		t.Errorf("no points should mean no compensation, got %f", comp)
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{150.0, 0},
		{1e-30, 0},
		{0.5, 0.5},
		{-0.25, -0.25},
	}
	for _, c := range cases {
		if got := sanitize(c.in); got != c.want {
			t.Errorf("sanitize(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
