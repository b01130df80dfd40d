package synth

import (
	"math"
	"testing"

	"github.com/keisili/beepbox"
)

func TestRealWaveFromSpectrumSingleBin(t *testing.T) {
	const n = 1024
	amplitudes := make([]float64, 8)
	phases := make([]float64, 8)
	amplitudes[3] = 1.0
	wave := realWaveFromSpectrum(n, amplitudes, phases)
	// bin 3 with zero phase synthesizes a cosine at 3 cycles per table
	for _, i := range []int{0, 100, 500, 900} {
		want := 2.0 * math.Cos(2.0*math.Pi*3.0*float64(i)/n)
		if math.Abs(float64(wave[i])-want) > 1e-6 {
			t.Fatalf("sample %d: got %f want %f", i, wave[i], want)
		}
	}
}

func TestIntegratedChipWavesArePeriodic(t *testing.T) {
	bank := newWaveBank()
	for i := range beepbox.ChipWaves {
		wave := bank.chipWave(i)
		if len(wave) != len(beepbox.ChipWaves[i].Samples)+1 {
			t.Fatalf("wave %d has length %d", i, len(wave))
		}
		// DC-centered cycles integrate back to their starting value
		if math.Abs(float64(wave[len(wave)-1]-wave[0])) > 1e-9 {
			t.Errorf("wave %q integral does not wrap: %f vs %f", beepbox.ChipWaves[i].Name, wave[len(wave)-1], wave[0])
		}
	}
}

func TestNoiseWavesAreCachedAndBounded(t *testing.T) {
	bank := newWaveBank()
	for i := range beepbox.NoiseWaves {
		wave := bank.noiseWave(i)
		if len(wave) != noiseWaveLength {
			t.Fatalf("noise wave %q has length %d", beepbox.NoiseWaves[i].Name, len(wave))
		}
		for j, v := range wave {
			if math.IsNaN(float64(v)) || math.Abs(float64(v)) > 1.0001 {
				t.Fatalf("noise wave %q sample %d out of range: %f", beepbox.NoiseWaves[i].Name, j, v)
			}
		}
		if &bank.noiseWave(i)[0] != &wave[0] {
			t.Errorf("noise wave %q not cached", beepbox.NoiseWaves[i].Name)
		}
	}
}

func TestSpectrumWaveRespondsToControlPoints(t *testing.T) {
	var low, high [beepbox.SpectrumControlPoints]int
	for i := range low {
		if i < 5 {
			low[i] = beepbox.SpectrumMax
		}
		if i >= beepbox.SpectrumControlPoints-5 {
			high[i] = beepbox.SpectrumMax
		}
	}
	lowWave := buildSpectrumWave(&low)
	highWave := buildSpectrumWave(&high)
	// a low-biased spectrum has most of its energy in low bins
	lowPower := PowerSpectrum(lowWave[:4096])
	highPower := PowerSpectrum(highWave[:4096])
	lowCentroid := spectralCentroid(lowPower)
	highCentroid := spectralCentroid(highPower)
	if lowCentroid >= highCentroid {
		t.Errorf("spectrum control points ignored: centroids %f vs %f", lowCentroid, highCentroid)
	}
}

func spectralCentroid(power []float64) float64 {
	var sum, weighted float64
	for i, p := range power {
		sum += p
		weighted += p * float64(i)
	}
	if sum == 0 {
		return 0
	}
	return weighted / sum
}

func TestHarmonicsWaveIsIntegrated(t *testing.T) {
	var points [beepbox.HarmonicsControlPoints]int
	points[0] = beepbox.HarmonicsMax
	wave := buildHarmonicsWave(&points)
	if len(wave) != harmonicsWaveLength+1 {
		t.Fatalf("harmonics wave length %d", len(wave))
	}
	if math.Abs(float64(wave[len(wave)-1]-wave[0])) > 1e-3 {
		t.Errorf("harmonics integral does not wrap: %f vs %f", wave[len(wave)-1], wave[0])
	}
}

func TestRandIsDeterministic(t *testing.T) {
	a := NewRand(7)
	b := NewRand(7)
	for i := 0; i < 100; i++ {
		if a.Float() != b.Float() {
			t.Fatal("same seed should give the same sequence")
		}
	}
	if NewRand(0).seed != 1 {
		t.Error("seed zero should be remapped, a zero seed never advances")
	}
	r := NewRand(3)
	for i := 0; i < 1000; i++ {
		v := r.Float01()
		if v < 0 || v > 1 {
			t.Fatalf("Float01 out of range: %f", v)
		}
	}
}
