package bayesee

import (
	"encoding/json"
	"io"
	"math"

	"github.com/pkg/errors"
)

type summaryJSON struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

type predictorJSON struct {
	Index     int         `json:"index"`
	ErrorRate summaryJSON `json:"errorRate"`
	RHat      *float64    `json:"rHat,omitempty"`
}

type domainJSON struct {
	Name       string          `json:"name"`
	LabelPrior summaryJSON     `json:"labelPrior"`
	Predictors []predictorJSON `json:"predictors"`
	Labels     []float64       `json:"labelProbabilities,omitempty"`
	MAD        *float64        `json:"meanAbsoluteDeviation,omitempty"`
}

type clustersJSON struct {
	Last         int          `json:"last"`
	Mean         float64      `json:"mean"`
	Alpha        summaryJSON  `json:"alpha"`
	Gamma        *summaryJSON `json:"gamma,omitempty"`
	CoClustering [][]float64  `json:"coClustering,omitempty"`
}

// Report is the JSON document written for a finished run.
type Report struct {
	RunID    string       `json:"runId,omitempty"`
	Config   Config       `json:"config"`
	Samples  int          `json:"samples"`
	Chains   int          `json:"chains"`
	Domains  []domainJSON `json:"domains"`
	Clusters clustersJSON `json:"clusters"`
	MAD      *float64     `json:"meanAbsoluteDeviation,omitempty"`
}

// ReportOptions selects the optional parts of a report.
type ReportOptions struct {
	RunID        string
	Chains       int
	RHat         [][]float64
	Domains      []DomainData // with true labels, enables the deviation fields
	Labels       bool
	CoClustering bool
}

// NewReport mirrors a posterior into its JSON form.
func NewReport(post *Posterior, cfg Config, opts ReportOptions) (*Report, error) {
	chains := opts.Chains
	if chains == 0 {
		chains = 1
	}
	rep := &Report{
		RunID:   opts.RunID,
		Config:  cfg,
		Samples: post.NumberOfSamples,
		Chains:  chains,
		Domains: make([]domainJSON, len(post.DomainNames)),
		Clusters: clustersJSON{
			Last:  post.NumberOfClusters,
			Mean:  post.MeanNumberOfClusters,
			Alpha: summaryJSON(post.ConcentrationAlpha),
		},
	}
	if cfg.Prior == PriorHDP {
		gamma := summaryJSON(post.HDPGamma)
		rep.Clusters.Gamma = &gamma
	}
	if opts.CoClustering {
		rep.Clusters.CoClustering = post.CoClustering
	}
	var perDomain []float64
	if opts.Domains != nil && hasTrueLabels(opts.Domains) {
		var mean float64
		var err error
		perDomain, mean, err = Evaluate(post, opts.Domains)
		if err != nil {
			return nil, err
		}
		rep.MAD = &mean
	}
	for d, name := range post.DomainNames {
		dom := domainJSON{
			Name:       name,
			LabelPrior: summaryJSON(post.LabelPriors[d]),
			Predictors: make([]predictorJSON, len(post.ErrorRates[d])),
		}
		for j, s := range post.ErrorRates[d] {
			dom.Predictors[j] = predictorJSON{Index: j, ErrorRate: summaryJSON(s)}
			// encoding/json rejects NaN and Inf
			if opts.RHat != nil && !math.IsNaN(opts.RHat[d][j]) && !math.IsInf(opts.RHat[d][j], 0) {
				r := opts.RHat[d][j]
				dom.Predictors[j].RHat = &r
			}
		}
		if opts.Labels {
			dom.Labels = make([]float64, len(post.Labels[d]))
			for i, s := range post.Labels[d] {
				dom.Labels[i] = s.Mean
			}
		}
		if perDomain != nil {
			dom.MAD = &perDomain[d]
		}
		rep.Domains[d] = dom
	}
	return rep, nil
}

// Write encodes the report; indent selects the human-readable layout.
func (r *Report) Write(w io.Writer, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return errors.Wrap(enc.Encode(r), "encode report")
}

func hasTrueLabels(domains []DomainData) bool {
	for _, d := range domains {
		if d.TrueLabels == nil {
			return false
		}
	}
	return true
}
