package bayesee

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
)

// LogAddExp returns log(exp(a) + exp(b)) without leaving log space.
func LogAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, 1) {
		return a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// CumulativeLogWeights fills acc with the running log-sum of logw.
// NaN and +Inf entries are treated as excluded (-Inf) candidates.
func CumulativeLogWeights(logw []float64, acc []float64) []float64 {
	acc = acc[:0]
	total := math.Inf(-1)
	for _, w := range logw {
		if math.IsNaN(w) || math.IsInf(w, 1) {
			w = math.Inf(-1)
		}
		total = LogAddExp(total, w)
		acc = append(acc, total)
	}
	return acc
}

// categoricalSampler draws an index from unnormalised log weights.
// It keeps its cumulative buffer between calls.
type categoricalSampler struct {
	rnd *rand.Rand
	acc []float64
}

func newCategoricalSampler(rnd *rand.Rand) *categoricalSampler {
	return &categoricalSampler{rnd: rnd}
}

func (s *categoricalSampler) sample(logw []float64) (int, error) {
	s.acc = CumulativeLogWeights(logw, s.acc)
	return drawFromCumulative(s.rnd, s.acc)
}

// SampleLogWeights draws index i with probability proportional to exp(logw[i]).
func SampleLogWeights(rnd *rand.Rand, logw []float64) (int, error) {
	return drawFromCumulative(rnd, CumulativeLogWeights(logw, make([]float64, 0, len(logw))))
}

func drawFromCumulative(rnd *rand.Rand, acc []float64) (int, error) {
	if len(acc) == 0 {
		return -1, errors.Wrap(ErrDegenerateWeights, "no candidates")
	}
	last := len(acc) - 1
	total := acc[last]
	if math.IsInf(total, -1) || math.IsNaN(total) {
		return -1, errors.Wrapf(ErrDegenerateWeights, "%d candidates", len(acc))
	}
	u := math.Log(rnd.Float64()) + total
	for i, a := range acc {
		if a > u {
			return i, nil
		}
	}
	return last, nil
}
