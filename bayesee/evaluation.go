package bayesee

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// SampleErrorRates returns, per predictor, the fraction of instances whose
// output differs from the true label.
func SampleErrorRates(dom DomainData) ([]float64, error) {
	if dom.TrueLabels == nil {
		return nil, errors.Wrapf(ErrBadInput, "domain %s has no true labels", dom.Name)
	}
	if dom.NumInstances() == 0 {
		return nil, errors.Wrapf(ErrEmptyDomain, "domain %s", dom.Name)
	}
	rates := make([]float64, dom.NumPredictors())
	for i, row := range dom.Outputs {
		for j, out := range row {
			if out != dom.TrueLabels[i] {
				rates[j]++
			}
		}
	}
	for j := range rates {
		rates[j] /= float64(dom.NumInstances())
	}
	return rates, nil
}

// MeanAbsoluteDeviation compares estimated error rates with the sample error
// rates of labelled domains. It returns the per-domain deviation and their mean.
func MeanAbsoluteDeviation(estimates [][]float64, domains []DomainData) ([]float64, float64, error) {
	if len(estimates) != len(domains) {
		return nil, 0, errors.Wrapf(ErrBadInput, "%d estimates for %d domains", len(estimates), len(domains))
	}
	if len(domains) == 0 {
		return nil, 0, errors.WithStack(ErrNoDomains)
	}
	perDomain := make([]float64, len(domains))
	for d, dom := range domains {
		truth, err := SampleErrorRates(dom)
		if err != nil {
			return nil, 0, err
		}
		if len(truth) != len(estimates[d]) {
			return nil, 0, errors.Wrapf(ErrRaggedPredictors, "domain %s: %d estimates for %d predictors", dom.Name, len(estimates[d]), len(truth))
		}
		var sum float64
		for j := range truth {
			sum += math.Abs(truth[j] - estimates[d][j])
		}
		perDomain[d] = sum / float64(len(truth))
	}
	return perDomain, stat.Mean(perDomain, nil), nil
}
