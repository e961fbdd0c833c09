package bayesee

import "github.com/pkg/errors"

// Cell holds the agreement and disagreement counts credited to one cluster.
type Cell struct {
	Agreements    int
	Disagreements int
}

// Total is the number of (instance, predictor) outcomes in the cell.
func (c Cell) Total() int { return c.Agreements + c.Disagreements }

// Ledger keeps per-cluster sufficient statistics in step with the current
// labels and assignments. An item (domain, predictor) is credited to at most
// one cluster at a time.
//
// Every mutation of labels or assignments is bracketed: call the Before*
// method, change the state, then call the matching After* method.
type Ledger struct {
	numPredictors int
	cells         []Cell
	cluster       []int // item to credited cluster, -1 while detached
	disagreements []int // item to disagreements with the current labels
	instances     []int // item to instances currently counted
}

// NewLedger returns Ledger instance with every item detached and no outcome counted.
func NewLedger(numClusters, numDomains, numPredictors int) *Ledger {
	items := numDomains * numPredictors
	l := &Ledger{
		numPredictors: numPredictors,
		cells:         make([]Cell, numClusters),
		cluster:       make([]int, items),
		disagreements: make([]int, items),
		instances:     make([]int, items),
	}
	for i := range l.cluster {
		l.cluster[i] = -1
	}
	return l
}

// Cell returns the statistics of cluster k.
func (l *Ledger) Cell(k int) Cell { return l.cells[k] }

// ItemCounts returns the disagreements and agreements of an item.
func (l *Ledger) ItemCounts(item int) (dis, agr int) {
	return l.disagreements[item], l.instances[item] - l.disagreements[item]
}

// Cluster returns the cluster an item is credited to, or -1.
func (l *Ledger) Cluster(item int) int { return l.cluster[item] }

func (l *Ledger) credit(k int, dis, agr int) {
	c := &l.cells[k]
	c.Disagreements += dis
	c.Agreements += agr
	if c.Disagreements < 0 || c.Agreements < 0 {
		panic(invariantf(k, "negative cell %+v", *c))
	}
}

// BeforeReassign subtracts the item's counts from its cluster and detaches it.
func (l *Ledger) BeforeReassign(item int) {
	k := l.cluster[item]
	if k < 0 {
		panic(invariantf(-1, "item %d is already detached", item))
	}
	dis, agr := l.ItemCounts(item)
	l.credit(k, -dis, -agr)
	l.cluster[item] = -1
}

// AfterReassign credits the item's counts to cluster k.
func (l *Ledger) AfterReassign(item int, k int) {
	if l.cluster[item] >= 0 {
		panic(invariantf(k, "item %d is still credited to cluster %d", item, l.cluster[item]))
	}
	dis, agr := l.ItemCounts(item)
	l.credit(k, dis, agr)
	l.cluster[item] = k
}

// BeforeLabelChange removes one instance of a domain, evaluated against its
// current label, from every predictor's item and cluster.
func (l *Ledger) BeforeLabelChange(domain int, outputs []bool, label bool) {
	l.labelDelta(domain, outputs, label, -1)
}

// AfterLabelChange adds the instance back, evaluated against its new label.
func (l *Ledger) AfterLabelChange(domain int, outputs []bool, label bool) {
	l.labelDelta(domain, outputs, label, 1)
}

func (l *Ledger) labelDelta(domain int, outputs []bool, label bool, sign int) {
	base := domain * l.numPredictors
	for j, out := range outputs {
		item := base + j
		dis := 0
		if out != label {
			dis = 1
		}
		l.instances[item] += sign
		l.disagreements[item] += sign * dis
		if l.instances[item] < 0 || l.disagreements[item] < 0 {
			panic(invariantf(l.cluster[item], "item %d has negative counts", item))
		}
		if k := l.cluster[item]; k >= 0 {
			l.credit(k, sign*dis, sign*(1-dis))
		}
	}
}

// Verify recomputes every statistic from the labels, outputs and item
// clusters and compares it with the incremental state.
func (l *Ledger) Verify(domains []domainState) error {
	cells := make([]Cell, len(l.cells))
	for d, dom := range domains {
		for j := 0; j < l.numPredictors; j++ {
			item := d*l.numPredictors + j
			dis := 0
			for i, label := range dom.labels {
				if dom.outputs[i][j] != label {
					dis++
				}
			}
			n := len(dom.labels)
			if dis != l.disagreements[item] || n != l.instances[item] {
				return errors.WithStack(invariantf(l.cluster[item],
					"item %d: counted %d/%d, recount %d/%d", item, l.disagreements[item], l.instances[item], dis, n))
			}
			if k := l.cluster[item]; k >= 0 {
				cells[k].Disagreements += dis
				cells[k].Agreements += n - dis
			}
		}
	}
	for k := range cells {
		if cells[k] != l.cells[k] {
			return errors.WithStack(invariantf(k, "cell %+v, recount %+v", l.cells[k], cells[k]))
		}
	}
	return nil
}
