package bayesee

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// SyntheticSpec describes domains to generate. LabelPriors and ErrorRates
// have one entry per domain; every ErrorRates row has one rate per predictor.
type SyntheticSpec struct {
	Instances   int
	LabelPriors []float64
	ErrorRates  [][]float64
}

// Synthesize draws labelled domains: each true label is Bernoulli(prior) and
// each output disagrees with it with the predictor's error rate.
func Synthesize(src rand.Source, spec SyntheticSpec) ([]DomainData, error) {
	if spec.Instances < 1 {
		return nil, errors.Wrapf(ErrBadInput, "instances = %d", spec.Instances)
	}
	if len(spec.ErrorRates) == 0 {
		return nil, errors.WithStack(ErrNoDomains)
	}
	if len(spec.LabelPriors) != len(spec.ErrorRates) {
		return nil, errors.Wrapf(ErrBadInput, "%d label priors for %d domains", len(spec.LabelPriors), len(spec.ErrorRates))
	}
	numPredictors := len(spec.ErrorRates[0])
	domains := make([]DomainData, len(spec.ErrorRates))
	for d, rates := range spec.ErrorRates {
		if len(rates) != numPredictors || numPredictors == 0 {
			return nil, errors.Wrapf(ErrRaggedPredictors, "domain %d has %d rates", d, len(rates))
		}
		prior := spec.LabelPriors[d]
		if prior < 0 || prior > 1 {
			return nil, errors.Wrapf(ErrBadInput, "label prior %v of domain %d", prior, d)
		}
		flips := make([]distuv.Bernoulli, numPredictors)
		for j, r := range rates {
			if r < 0 || r > 1 {
				return nil, errors.Wrapf(ErrBadInput, "error rate %v of domain %d predictor %d", r, d, j)
			}
			flips[j] = distuv.Bernoulli{P: r, Src: src}
		}
		label := distuv.Bernoulli{P: prior, Src: src}

		dom := DomainData{
			Name:       fmt.Sprintf("domain_%02d", d),
			Outputs:    make([][]bool, spec.Instances),
			TrueLabels: make([]bool, spec.Instances),
		}
		for i := 0; i < spec.Instances; i++ {
			truth := label.Rand() == 1
			dom.TrueLabels[i] = truth
			row := make([]bool, numPredictors)
			for j := range row {
				row[j] = truth != (flips[j].Rand() == 1)
			}
			dom.Outputs[i] = row
		}
		domains[d] = dom
	}
	return domains, nil
}
