package bayesee

import "github.com/pkg/errors"

// DPPrior is a Chinese restaurant process over a bounded pool of cluster ids.
// Every item is a customer; joining cluster k has weight n_k and opening a
// fresh cluster has weight alpha.
type DPPrior struct {
	alpha      float64
	counts     []int // cluster to number of items
	total      int
	clusters   *idPool
	assignment []int // item to cluster, -1 while detached
}

// NewDPPrior returns DPPrior instance with no item seated.
func NewDPPrior(alpha float64, maxClusters int, items int) *DPPrior {
	dp := new(DPPrior)
	dp.alpha = alpha
	dp.counts = make([]int, maxClusters)
	dp.clusters = newIDPool(maxClusters)
	dp.assignment = make([]int, items)
	for i := range dp.assignment {
		dp.assignment[i] = -1
	}
	return dp
}

func (dp *DPPrior) add(k int) {
	if dp.counts[k] == 0 {
		dp.clusters.take(k)
	}
	dp.counts[k]++
	dp.total++
}

func (dp *DPPrior) remove(k int) {
	if dp.counts[k] <= 0 {
		panic(invariantf(k, "remove from empty cluster"))
	}
	dp.counts[k]--
	dp.total--
	if dp.counts[k] == 0 {
		dp.clusters.release(k)
	}
}

// enumerate lists one row per taken cluster plus one fresh row, if a free id exists.
func (dp *DPPrior) enumerate(dst []Candidate) []Candidate {
	dst = dst[:0]
	for _, k := range dp.clusters.order {
		dst = append(dst, Candidate{Table: -1, Cluster: k, Weight: float64(dp.counts[k])})
	}
	if k, ok := dp.clusters.firstAvailable(); ok {
		dst = append(dst, Candidate{Table: -1, Cluster: k, Weight: dp.alpha, FreshCluster: true})
	}
	return dst
}

// Cluster returns the cluster of item, or -1 while it is detached.
func (dp *DPPrior) Cluster(item int) int { return dp.assignment[item] }

// RemoveAssignment detaches item from its cluster.
func (dp *DPPrior) RemoveAssignment(item int) {
	k := dp.assignment[item]
	if k < 0 {
		panic(invariantf(-1, "item %d is not assigned", item))
	}
	dp.assignment[item] = -1
	dp.remove(k)
}

// Candidates returns the CRP rows for a detached item.
func (dp *DPPrior) Candidates(item int, dst []Candidate) []Candidate {
	return dp.enumerate(dst)
}

// AddAssignment seats item in the cluster of c.
func (dp *DPPrior) AddAssignment(item int, c Candidate) {
	if dp.assignment[item] >= 0 {
		panic(invariantf(dp.assignment[item], "item %d is already assigned", item))
	}
	dp.assignment[item] = c.Cluster
	dp.add(c.Cluster)
}

func (dp *DPPrior) Occupancy(cluster int) int { return dp.counts[cluster] }

func (dp *DPPrior) ActiveClusters(dst []int) []int { return dp.clusters.takenIDs(dst) }

func (dp *DPPrior) NumClusterIDs() int { return dp.clusters.size() }

// Verify recounts cluster sizes from the item assignments.
func (dp *DPPrior) Verify() error {
	counts := make([]int, len(dp.counts))
	total := 0
	for _, k := range dp.assignment {
		if k >= 0 {
			counts[k]++
			total++
		}
	}
	if total != dp.total {
		return errors.WithStack(invariantf(-1, "total %d, recount %d", dp.total, total))
	}
	for k := range counts {
		if counts[k] != dp.counts[k] {
			return errors.WithStack(invariantf(k, "occupancy %d, recount %d", dp.counts[k], counts[k]))
		}
		if (counts[k] > 0) != dp.clusters.isTaken(k) {
			return errors.WithStack(invariantf(k, "occupancy %d but taken=%v", counts[k], dp.clusters.isTaken(k)))
		}
	}
	return nil
}
