package bayesee

import "gonum.org/v1/gonum/stat"

// ClusterRate is the error rate of one occupied cluster in a snapshot.
type ClusterRate struct {
	Cluster   int
	Rate      float64
	Occupancy int
}

// Sample is one retained snapshot of the chain.
type Sample struct {
	Alpha float64
	Gamma float64 // 0 for the DP prior

	LabelPriors    []float64 // domain
	ItemErrorRates []float64 // item (domain*P + predictor), read through its cluster
	Assignments    []int     // item to cluster
	ClusterRates   []ClusterRate
	Labels         [][]bool // domain, instance
}

// Clone returns a deep copy.
func (s Sample) Clone() Sample {
	c := Sample{
		Alpha:          s.Alpha,
		Gamma:          s.Gamma,
		LabelPriors:    append([]float64(nil), s.LabelPriors...),
		ItemErrorRates: append([]float64(nil), s.ItemErrorRates...),
		Assignments:    append([]int(nil), s.Assignments...),
		ClusterRates:   append([]ClusterRate(nil), s.ClusterRates...),
		Labels:         make([][]bool, len(s.Labels)),
	}
	for d := range s.Labels {
		c.Labels[d] = append([]bool(nil), s.Labels[d]...)
	}
	return c
}

// flipDomains mirrors every domain where fewer than half of the predictors
// have an error rate below 0.5: its label prior, item error rates and labels
// are replaced by their complements. Cluster rates are left untouched since
// clusters may be shared with domains that are not flipped.
func (s *Sample) flipDomains(numPredictors int) {
	for d := range s.LabelPriors {
		rates := s.ItemErrorRates[d*numPredictors : (d+1)*numPredictors]
		below := 0
		for _, r := range rates {
			if r < 0.5 {
				below++
			}
		}
		if 2*below >= numPredictors {
			continue
		}
		s.LabelPriors[d] = 1 - s.LabelPriors[d]
		for j := range rates {
			rates[j] = 1 - rates[j]
		}
		for i := range s.Labels[d] {
			s.Labels[d][i] = !s.Labels[d][i]
		}
	}
}

// Summary is a posterior mean and unbiased variance.
type Summary struct {
	Mean     float64
	Variance float64
}

func summarize(x []float64) Summary {
	if len(x) == 1 {
		return Summary{Mean: x[0]}
	}
	mean, variance := stat.MeanVariance(x, nil)
	return Summary{Mean: mean, Variance: variance}
}

// Posterior aggregates the retained snapshots of a run.
type Posterior struct {
	DomainNames     []string
	NumPredictors   int
	NumberOfSamples int

	ConcentrationAlpha Summary
	HDPGamma           Summary // zero for the DP prior

	LabelPriors []Summary   // domain
	ErrorRates  [][]Summary // domain, predictor
	Labels      [][]Summary // domain, instance; mean is P(label = true)

	// NumberOfClusters is the count of distinct clusters in the last snapshot.
	NumberOfClusters     int
	MeanNumberOfClusters float64
	// CoClustering[a][b] is the fraction of snapshots with items a and b in one cluster.
	CoClustering [][]float64
}

func aggregate(trace []Sample, names []string, numPredictors int, flip bool) *Posterior {
	if flip {
		flipped := make([]Sample, len(trace))
		for n := range trace {
			flipped[n] = trace[n].Clone()
			flipped[n].flipDomains(numPredictors)
		}
		trace = flipped
	}
	numDomains := len(names)
	post := &Posterior{
		DomainNames:     append([]string(nil), names...),
		NumPredictors:   numPredictors,
		NumberOfSamples: len(trace),
		LabelPriors:     make([]Summary, numDomains),
		ErrorRates:      make([][]Summary, numDomains),
		Labels:          make([][]Summary, numDomains),
	}
	x := make([]float64, len(trace))
	collect := func(get func(s *Sample) float64) Summary {
		for n := range trace {
			x[n] = get(&trace[n])
		}
		return summarize(x)
	}

	post.ConcentrationAlpha = collect(func(s *Sample) float64 { return s.Alpha })
	post.HDPGamma = collect(func(s *Sample) float64 { return s.Gamma })
	for d := 0; d < numDomains; d++ {
		post.LabelPriors[d] = collect(func(s *Sample) float64 { return s.LabelPriors[d] })
		post.ErrorRates[d] = make([]Summary, numPredictors)
		for j := 0; j < numPredictors; j++ {
			item := d*numPredictors + j
			post.ErrorRates[d][j] = collect(func(s *Sample) float64 { return s.ItemErrorRates[item] })
		}
		post.Labels[d] = make([]Summary, len(trace[0].Labels[d]))
		for i := range post.Labels[d] {
			post.Labels[d][i] = collect(func(s *Sample) float64 {
				if s.Labels[d][i] {
					return 1
				}
				return 0
			})
		}
	}

	items := numDomains * numPredictors
	post.CoClustering = make([][]float64, items)
	for a := range post.CoClustering {
		post.CoClustering[a] = make([]float64, items)
	}
	clusters := 0
	for n := range trace {
		assign := trace[n].Assignments
		clusters += len(trace[n].ClusterRates)
		for a := 0; a < items; a++ {
			for b := a; b < items; b++ {
				if assign[a] == assign[b] {
					post.CoClustering[a][b]++
				}
			}
		}
	}
	samples := float64(len(trace))
	for a := 0; a < items; a++ {
		for b := a; b < items; b++ {
			post.CoClustering[a][b] /= samples
			post.CoClustering[b][a] = post.CoClustering[a][b]
		}
	}
	post.NumberOfClusters = len(trace[len(trace)-1].ClusterRates)
	post.MeanNumberOfClusters = float64(clusters) / samples
	return post
}

// ErrorRateMeans returns the posterior mean error rate per domain and predictor.
func (p *Posterior) ErrorRateMeans() [][]float64 {
	means := make([][]float64, len(p.ErrorRates))
	for d, row := range p.ErrorRates {
		means[d] = make([]float64, len(row))
		for j, s := range row {
			means[d][j] = s.Mean
		}
	}
	return means
}

// CoClusterRate is the fraction of snapshots in which (d1, j1) and (d2, j2) share a cluster.
func (p *Posterior) CoClusterRate(d1, j1, d2, j2 int) float64 {
	return p.CoClustering[d1*p.NumPredictors+j1][d2*p.NumPredictors+j2]
}
