package bayesee

import "github.com/pkg/errors"

// Candidate is one row of an assignment proposal.
type Candidate struct {
	Table        int // -1 for priors without a table level
	Cluster      int
	Weight       float64 // unnormalised prior weight
	FreshTable   bool
	FreshCluster bool
}

// PartitionPrior is an exchangeable prior over the cluster assignment of
// (domain, predictor) items. Items are numbered domain*P + predictor.
//
// The caller removes an item, asks for candidates, then adds the item back
// with the chosen candidate. Between the two calls Cluster(item) is -1.
type PartitionPrior interface {
	Cluster(item int) int
	RemoveAssignment(item int)
	Candidates(item int, dst []Candidate) []Candidate
	AddAssignment(item int, c Candidate)
	// Occupancy is the customer count of a cluster: items for the DP,
	// tables for the HDP.
	Occupancy(cluster int) int
	ActiveClusters(dst []int) []int
	NumClusterIDs() int
	// Verify recounts occupancy from the per-item assignments.
	Verify() error
}

// tableResampler is implemented by priors with a table level. It lets the
// orchestrator move a whole table, and every item seated at it, to a new cluster.
type tableResampler interface {
	TakenTables(domain int, dst []int) []int
	TableItems(domain, table int, dst []int) []int
	// RemoveTableAssignment detaches the table from its cluster and returns it.
	RemoveTableAssignment(domain, table int) int
	TopicCandidates(dst []Candidate) []Candidate
	AddTableAssignment(domain, table, cluster int)
}

// NewPartitionPrior builds the prior selected by cfg for the given shape.
func NewPartitionPrior(cfg Config, numDomains, numPredictors int) (PartitionPrior, error) {
	items := numDomains * numPredictors
	pool := cfg.ClusterPoolSize
	if pool == 0 || pool > items {
		pool = items
	}
	switch cfg.Prior {
	case PriorDP:
		return NewDPPrior(cfg.ConcentrationAlpha, pool, items), nil
	case PriorHDP:
		return NewHDPPrior(cfg.ConcentrationAlpha, cfg.HDPGamma, pool, numDomains, numPredictors), nil
	}
	return nil, errors.Wrapf(ErrInvalidConfig, "unknown prior %q", cfg.Prior)
}
