package synth

// Rand is the engine's seedable pseudo-random source, a small multiplicative
// generator. Guitar pluck jitter and spectrum phase randomization draw from
// it, so two engines created with the same seed render identical output.
type Rand struct {
	seed uint32
}

func NewRand(seed uint32) *Rand {
	if seed == 0 {
		seed = 1
	}
	return &Rand{seed: seed}
}

// Float returns a pseudo-random value in -1..1.
func (r *Rand) Float() float64 {
	r.seed *= 16007
	return float64(int32(r.seed)) / -2147483648.0
}

// Float01 returns a pseudo-random value in 0..1.
func (r *Rand) Float01() float64 {
	return (r.Float() + 1.0) * 0.5
}

// Intn returns a pseudo-random integer in 0..n-1.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(r.Float01() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}
