package bayesee

import "github.com/pkg/errors"

// HDPPrior is a Chinese restaurant franchise. Every domain is a restaurant
// whose tables are its predictors' seats; every table is served one cluster
// (dish) from the shared menu. The occupancy of a cluster is its table count.
type HDPPrior struct {
	alpha         float64 // top-level concentration
	gamma         float64 // domain-level concentration
	numPredictors int

	seated       [][]int // domain, predictor to table
	tableCount   [][]int // domain, table to number of seated predictors
	tableCluster [][]int // domain, table to cluster, -1 when none
	tables       []*idPool

	clusterTables []int // cluster to number of tables serving it
	totalTables   int
	clusters      *idPool
}

// NewHDPPrior returns HDPPrior instance with no item seated.
// Each domain has one table per predictor.
func NewHDPPrior(alpha float64, gamma float64, maxClusters int, numDomains int, numPredictors int) *HDPPrior {
	hdp := new(HDPPrior)
	hdp.alpha = alpha
	hdp.gamma = gamma
	hdp.numPredictors = numPredictors
	hdp.seated = make([][]int, numDomains)
	hdp.tableCount = make([][]int, numDomains)
	hdp.tableCluster = make([][]int, numDomains)
	hdp.tables = make([]*idPool, numDomains)
	for d := 0; d < numDomains; d++ {
		hdp.seated[d] = make([]int, numPredictors)
		hdp.tableCount[d] = make([]int, numPredictors)
		hdp.tableCluster[d] = make([]int, numPredictors)
		hdp.tables[d] = newIDPool(numPredictors)
		for j := 0; j < numPredictors; j++ {
			hdp.seated[d][j] = -1
			hdp.tableCluster[d][j] = -1
		}
	}
	hdp.clusterTables = make([]int, maxClusters)
	hdp.clusters = newIDPool(maxClusters)
	return hdp
}

func (hdp *HDPPrior) split(item int) (int, int) {
	return item / hdp.numPredictors, item % hdp.numPredictors
}

func (hdp *HDPPrior) addTable(k int) {
	if hdp.clusterTables[k] == 0 {
		hdp.clusters.take(k)
	}
	hdp.clusterTables[k]++
	hdp.totalTables++
}

func (hdp *HDPPrior) removeTable(k int) {
	if hdp.clusterTables[k] <= 0 {
		panic(invariantf(k, "remove table from cluster without tables"))
	}
	hdp.clusterTables[k]--
	hdp.totalTables--
	if hdp.clusterTables[k] == 0 {
		hdp.clusters.release(k)
	}
}

// Cluster returns the cluster served at the item's table, or -1.
func (hdp *HDPPrior) Cluster(item int) int {
	d, j := hdp.split(item)
	t := hdp.seated[d][j]
	if t < 0 {
		return -1
	}
	return hdp.tableCluster[d][t]
}

// Table returns the table the item sits at, or -1.
func (hdp *HDPPrior) Table(item int) int {
	d, j := hdp.split(item)
	return hdp.seated[d][j]
}

// RemoveAssignment unseats the item. An emptied table is closed and stops
// counting toward its cluster.
func (hdp *HDPPrior) RemoveAssignment(item int) {
	d, j := hdp.split(item)
	t := hdp.seated[d][j]
	if t < 0 {
		panic(invariantf(-1, "item %d is not seated", item))
	}
	hdp.seated[d][j] = -1
	hdp.tableCount[d][t]--
	if hdp.tableCount[d][t] == 0 {
		k := hdp.tableCluster[d][t]
		hdp.tableCluster[d][t] = -1
		hdp.tables[d].release(t)
		if k >= 0 {
			hdp.removeTable(k)
		}
	}
}

// Candidates lists, for a detached item: every open table of its domain
// (weight = seated count), a fresh table serving each taken cluster
// (gamma*m_k/(alpha+m)) and a fresh table with a fresh cluster
// (gamma*alpha/(alpha+m)). Fresh rows need a free table id and, for the
// last one, a free cluster id.
func (hdp *HDPPrior) Candidates(item int, dst []Candidate) []Candidate {
	d, _ := hdp.split(item)
	dst = dst[:0]
	for _, t := range hdp.tables[d].order {
		dst = append(dst, Candidate{
			Table:   t,
			Cluster: hdp.tableCluster[d][t],
			Weight:  float64(hdp.tableCount[d][t]),
		})
	}
	t, ok := hdp.tables[d].firstAvailable()
	if !ok {
		return dst
	}
	norm := hdp.alpha + float64(hdp.totalTables)
	for _, k := range hdp.clusters.order {
		dst = append(dst, Candidate{
			Table:      t,
			Cluster:    k,
			Weight:     hdp.gamma * float64(hdp.clusterTables[k]) / norm,
			FreshTable: true,
		})
	}
	if k, ok := hdp.clusters.firstAvailable(); ok {
		dst = append(dst, Candidate{
			Table:        t,
			Cluster:      k,
			Weight:       hdp.gamma * hdp.alpha / norm,
			FreshTable:   true,
			FreshCluster: true,
		})
	}
	return dst
}

// AddAssignment seats the item at c.Table; a newly opened table is served c.Cluster.
func (hdp *HDPPrior) AddAssignment(item int, c Candidate) {
	d, j := hdp.split(item)
	if hdp.seated[d][j] >= 0 {
		panic(invariantf(-1, "item %d is already seated", item))
	}
	t := c.Table
	hdp.seated[d][j] = t
	hdp.tableCount[d][t]++
	if hdp.tableCount[d][t] == 1 {
		hdp.tables[d].take(t)
		hdp.tableCluster[d][t] = c.Cluster
		hdp.addTable(c.Cluster)
	}
}

func (hdp *HDPPrior) Occupancy(cluster int) int { return hdp.clusterTables[cluster] }

func (hdp *HDPPrior) ActiveClusters(dst []int) []int { return hdp.clusters.takenIDs(dst) }

func (hdp *HDPPrior) NumClusterIDs() int { return hdp.clusters.size() }

// TakenTables appends the open tables of a domain to dst.
func (hdp *HDPPrior) TakenTables(domain int, dst []int) []int {
	return hdp.tables[domain].takenIDs(dst)
}

// TableItems appends the items seated at a table to dst.
func (hdp *HDPPrior) TableItems(domain, table int, dst []int) []int {
	dst = dst[:0]
	for j, t := range hdp.seated[domain] {
		if t == table {
			dst = append(dst, domain*hdp.numPredictors+j)
		}
	}
	return dst
}

// RemoveTableAssignment detaches an open table from its cluster, keeping its items seated.
func (hdp *HDPPrior) RemoveTableAssignment(domain, table int) int {
	k := hdp.tableCluster[domain][table]
	if k < 0 {
		panic(invariantf(-1, "table %d of domain %d serves no cluster", table, domain))
	}
	hdp.tableCluster[domain][table] = -1
	hdp.removeTable(k)
	return k
}

// TopicCandidates lists every taken cluster (weight = table count) and a
// fresh cluster (weight alpha) for a detached table.
func (hdp *HDPPrior) TopicCandidates(dst []Candidate) []Candidate {
	dst = dst[:0]
	for _, k := range hdp.clusters.order {
		dst = append(dst, Candidate{Table: -1, Cluster: k, Weight: float64(hdp.clusterTables[k])})
	}
	if k, ok := hdp.clusters.firstAvailable(); ok {
		dst = append(dst, Candidate{Table: -1, Cluster: k, Weight: hdp.alpha, FreshCluster: true})
	}
	return dst
}

// AddTableAssignment serves cluster at a detached table.
func (hdp *HDPPrior) AddTableAssignment(domain, table, cluster int) {
	if hdp.tableCluster[domain][table] >= 0 {
		panic(invariantf(cluster, "table %d of domain %d already serves a cluster", table, domain))
	}
	hdp.tableCluster[domain][table] = cluster
	hdp.addTable(cluster)
}

// Verify recounts table sizes and cluster table counts from the seating.
func (hdp *HDPPrior) Verify() error {
	clusterTables := make([]int, len(hdp.clusterTables))
	total := 0
	for d := range hdp.seated {
		counts := make([]int, hdp.numPredictors)
		for _, t := range hdp.seated[d] {
			if t >= 0 {
				counts[t]++
			}
		}
		for t, n := range counts {
			if n != hdp.tableCount[d][t] {
				return errors.WithStack(invariantf(-1, "domain %d table %d: count %d, recount %d", d, t, hdp.tableCount[d][t], n))
			}
			if (n > 0) != hdp.tables[d].isTaken(t) {
				return errors.WithStack(invariantf(-1, "domain %d table %d: count %d but taken=%v", d, t, n, hdp.tables[d].isTaken(t)))
			}
			if n > 0 {
				k := hdp.tableCluster[d][t]
				if k < 0 {
					return errors.WithStack(invariantf(-1, "domain %d table %d serves no cluster", d, t))
				}
				clusterTables[k]++
				total++
			}
		}
	}
	if total != hdp.totalTables {
		return errors.WithStack(invariantf(-1, "total tables %d, recount %d", hdp.totalTables, total))
	}
	for k, n := range clusterTables {
		if n != hdp.clusterTables[k] {
			return errors.WithStack(invariantf(k, "tables %d, recount %d", hdp.clusterTables[k], n))
		}
		if (n > 0) != hdp.clusters.isTaken(k) {
			return errors.WithStack(invariantf(k, "tables %d but taken=%v", n, hdp.clusters.isTaken(k)))
		}
	}
	return nil
}
