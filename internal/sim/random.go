package sim

// RandomSource produces uniform floats in [0, 1). The simulation threads one
// source through every force that needs perturbation so tests can substitute
// a deterministic sequence.
type RandomSource func() float64

// NewLCG returns a small deterministic linear congruential generator. The
// constants are the classic Numerical Recipes parameters; quality is
// irrelevant here, the generator only breaks exact coordinate ties.
func NewLCG(seed uint32) RandomSource {
	const (
		mul = 1664525
		inc = 1013904223
	)
	state := seed
	return func() float64 {
		state = state*mul + inc
		return float64(state) / (1 << 32)
	}
}

// jiggle returns a tiny random perturbation used to separate exactly
// coincident points before dividing by their distance.
func jiggle(random RandomSource) float64 {
	return (random() - 0.5) * 1e-6
}
