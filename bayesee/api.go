package bayesee

import (
	"context"
)

// Estimate builds an engine for domains and runs it once.
func Estimate(ctx context.Context, domains []DomainData, cfg Config, opts ...Option) (*Posterior, error) {
	e, err := NewEngine(domains, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx)
}

// EstimateDir loads every CSV domain of dir and estimates their error rates.
func EstimateDir(ctx context.Context, dir string, thresholds []float64, cfg Config, opts ...Option) ([]DomainData, *Posterior, error) {
	domains, err := LoadDomainDir(dir, thresholds)
	if err != nil {
		return nil, nil, err
	}
	post, err := Estimate(ctx, domains, cfg, opts...)
	if err != nil {
		return domains, nil, err
	}
	return domains, post, nil
}

// Evaluate returns the mean absolute deviation of the posterior mean error
// rates from the sample error rates of labelled domains.
func Evaluate(post *Posterior, domains []DomainData) ([]float64, float64, error) {
	return MeanAbsoluteDeviation(post.ErrorRateMeans(), domains)
}
