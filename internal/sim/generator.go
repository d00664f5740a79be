package sim

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Generator is the trial-generation capability: a pure function from a seed
// and a model configuration to that trial's ordered eigenvalue vector. It
// must be deterministic per seed so an interrupted run resumed with the same
// configuration reproduces the records it would have written.
type Generator interface {
	Generate(seed uint32, model Model, dim, steps int) []float64
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(seed uint32, model Model, dim, steps int) []float64

func (f GeneratorFunc) Generate(seed uint32, model Model, dim, steps int) []float64 {
	return f(seed, model, dim, steps)
}

// BrownianGenerator is the built-in trial generator. For each component it
// discretizes a standard Brownian motion over `steps` increments, applies the
// model's demeaning/detrending, and evaluates the unit-root score
// (integral B dB)^2 / integral B^2 dt. The restricted models contribute one
// extra component. Values are returned in descending order.
//
// Each trial draws from its own PCG stream keyed on (seed, model, dim,
// steps): no shared state, no side effects.
type BrownianGenerator struct{}

func (BrownianGenerator) Generate(seed uint32, model Model, dim, steps int) []float64 {
	k := model.ValuesPerTrial(dim)
	salt := uint64(model)<<56 | uint64(dim)<<48 | uint64(steps)
	rng := rand.New(rand.NewPCG(uint64(seed), salt^0x9E3779B97F4A7C15))

	values := make([]float64, k)
	for j := range values {
		values[j] = brownianScore(rng, model, steps)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	return values
}

func brownianScore(rng *rand.Rand, model Model, steps int) float64 {
	dt := 1.0 / float64(steps)
	sqrtDt := math.Sqrt(dt)

	incr := make([]float64, steps)
	path := make([]float64, steps)
	level := 0.0
	for i := range incr {
		incr[i] = rng.NormFloat64() * sqrtDt
		level += incr[i]
		path[i] = level
	}

	if model.HasIntercept() {
		demean(path)
	}
	if model.HasTrend() {
		detrend(path)
	}

	// Stochastic and quadratic integrals of the adjusted path.
	var num, den float64
	prev := 0.0
	for i := range path {
		num += prev * incr[i]
		den += path[i] * path[i] * dt
		prev = path[i]
	}
	if den == 0 {
		return 0
	}
	score := num * num / den
	// Normalized to the eigenvalue scale of the finite-sample problem.
	return score / float64(steps)
}

func demean(path []float64) {
	var mean float64
	for _, v := range path {
		mean += v
	}
	mean /= float64(len(path))
	for i := range path {
		path[i] -= mean
	}
}

func detrend(path []float64) {
	// Least-squares line through the path over t = 1..n.
	n := float64(len(path))
	var st, sv, stv, stt float64
	for i, v := range path {
		t := float64(i + 1)
		st += t
		sv += v
		stv += t * v
		stt += t * t
	}
	slope := (n*stv - st*sv) / (n*stt - st*st)
	icept := (sv - slope*st) / n
	for i := range path {
		path[i] -= icept + slope*float64(i+1)
	}
}
