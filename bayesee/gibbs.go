package bayesee

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	initialLabelPrior = 0.5
	initialErrorRate  = 0.25
)

type domainState struct {
	outputs   [][]bool
	labels    []bool
	observed  []bool
	positives int
}

// Engine runs one Gibbs chain over labels, label priors, error rates and
// the cluster assignment of every (domain, predictor) item.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	observer Observer

	names         []string
	domains       []domainState
	numPredictors int

	prior        PartitionPrior
	tableSampler tableResampler // nil unless the prior has tables
	ledger       *Ledger

	src *rand.PCG
	rnd *rand.Rand
	cls *categoricalSampler

	labelPriors []float64 // domain to P(label = true)
	rates       []float64 // cluster to error rate

	trace     []Sample
	posterior *Posterior
	ran       bool

	candidates []Candidate
	logw       []float64
	active     []int
	items      []int
	tables     []int
	pending    []Cell // per-cluster outcomes of the instance being scored
	touched    []int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers an observer called after every sweep.
func WithObserver(observer Observer) Option {
	return func(e *Engine) { e.observer = observer }
}

// NewEngine validates the input and returns an initialised Engine.
// The engine keeps its own copy of the outputs and observed flags.
// Labels start at the majority vote (observed labels at their true value),
// every item starts in cluster 0, label priors start at 0.5 and error rates at 0.25.
func NewEngine(domains []DomainData, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	numPredictors, err := validateDomains(domains)
	if err != nil {
		return nil, err
	}
	prior, err := NewPartitionPrior(cfg, len(domains), numPredictors)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           cfg,
		logger:        slog.Default(),
		numPredictors: numPredictors,
		prior:         prior,
		ledger:        NewLedger(prior.NumClusterIDs(), len(domains), numPredictors),
	}
	if ts, ok := prior.(tableResampler); ok {
		e.tableSampler = ts
	}
	for _, opt := range opts {
		opt(e)
	}
	e.src = rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	e.rnd = rand.New(e.src)
	e.cls = newCategoricalSampler(e.rnd)
	e.pending = make([]Cell, prior.NumClusterIDs())
	e.rates = make([]float64, prior.NumClusterIDs())
	for k := range e.rates {
		e.rates[k] = initialErrorRate
	}

	e.names = make([]string, len(domains))
	e.domains = make([]domainState, len(domains))
	e.labelPriors = make([]float64, len(domains))
	for d, dom := range domains {
		e.names[d] = dom.Name
		state := domainState{
			outputs: make([][]bool, len(dom.Outputs)),
			labels:  MajorityVote(dom.Outputs),
		}
		for i, row := range dom.Outputs {
			state.outputs[i] = append([]bool(nil), row...)
		}
		if dom.Observed != nil {
			state.observed = append([]bool(nil), dom.Observed...)
		}
		for i := range state.labels {
			if state.observed != nil && state.observed[i] {
				state.labels[i] = dom.TrueLabels[i]
			}
			if state.labels[i] {
				state.positives++
			}
			e.ledger.AfterLabelChange(d, state.outputs[i], state.labels[i])
		}
		e.domains[d] = state
		e.labelPriors[d] = initialLabelPrior
	}
	for item := 0; item < len(domains)*numPredictors; item++ {
		e.prior.AddAssignment(item, Candidate{Table: 0, Cluster: 0})
		e.ledger.AfterReassign(item, 0)
	}
	return e, nil
}

// Run performs burn-in, then collects NumberOfSamples retained snapshots,
// each preceded by ThinningIterations discarded sweeps, and aggregates them.
// A cancelled context stops the run and returns ctx.Err().
func (e *Engine) Run(ctx context.Context) (post *Posterior, err error) {
	if e.ran {
		return nil, errors.WithStack(ErrAlreadyRun)
	}
	e.ran = true
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InvariantError)
			if !ok {
				panic(r)
			}
			e.logger.Error("sampling aborted", "err", ie)
			post, err = nil, errors.WithStack(ie)
		}
	}()

	total := e.cfg.TotalSweeps()
	e.logger.Info("sampling started",
		"prior", e.cfg.Prior,
		"collapsed", e.cfg.Collapsed,
		"domains", len(e.domains),
		"predictors", e.numPredictors,
		"sweeps", total,
	)
	var bar *pb.ProgressBar
	if e.cfg.ShowProgress {
		bar = pb.StartNew(total)
		defer bar.Finish()
	}

	start := time.Now()
	sweep := 0
	step := func(phase Phase) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		begin := time.Now()
		if err := e.sweep(); err != nil {
			return errors.WithMessagef(err, "sweep %d", sweep)
		}
		if e.cfg.CheckInvariants {
			if err := e.CheckInvariants(); err != nil {
				return errors.WithMessagef(err, "sweep %d", sweep)
			}
		}
		e.active = e.prior.ActiveClusters(e.active)
		stats := SweepStats{Phase: phase, Sweep: sweep, ActiveClusters: len(e.active), Duration: time.Since(begin)}
		e.logger.Debug("sweep done", "phase", phase, "sweep", sweep, "clusters", stats.ActiveClusters)
		if e.observer != nil {
			e.observer.ObserveSweep(stats)
		}
		if bar != nil {
			bar.Increment()
		}
		sweep++
		return nil
	}

	for i := 0; i < e.cfg.BurnInIterations; i++ {
		if err := step(PhaseBurnIn); err != nil {
			return nil, err
		}
	}
	e.trace = make([]Sample, 0, e.cfg.NumberOfSamples)
	for n := 0; n < e.cfg.NumberOfSamples; n++ {
		for t := 0; t < e.cfg.ThinningIterations; t++ {
			if err := step(PhaseThinning); err != nil {
				return nil, err
			}
		}
		if err := step(PhaseRetained); err != nil {
			return nil, err
		}
		e.trace = append(e.trace, e.snapshot())
	}

	e.posterior = aggregate(e.trace, e.names, e.numPredictors, e.cfg.FlipSymmetry)
	e.logger.Info("sampling finished",
		"samples", len(e.trace),
		"clusters", e.posterior.NumberOfClusters,
		"meanClusters", e.posterior.MeanNumberOfClusters,
		"elapsed", time.Since(start),
	)
	return e.posterior, nil
}

// Posterior returns the aggregated result of a finished Run.
func (e *Engine) Posterior() (*Posterior, error) {
	if e.posterior == nil {
		return nil, errors.WithStack(ErrNotRun)
	}
	return e.posterior, nil
}

// Samples returns copies of the retained snapshots of a finished Run.
func (e *Engine) Samples() ([]Sample, error) {
	if e.posterior == nil {
		return nil, errors.WithStack(ErrNotRun)
	}
	samples := make([]Sample, len(e.trace))
	for n := range e.trace {
		samples[n] = e.trace[n].Clone()
	}
	return samples, nil
}

// NumPredictors returns the shared predictor count.
func (e *Engine) NumPredictors() int { return e.numPredictors }

func (e *Engine) sweep() error {
	e.sampleLabelPriors()
	if !e.cfg.Collapsed {
		e.sampleErrorRates()
	}
	if err := e.sampleAssignments(); err != nil {
		return err
	}
	if e.tableSampler != nil {
		if err := e.sampleTableClusters(); err != nil {
			return err
		}
	}
	if e.cfg.AlphaPrior != nil || e.cfg.GammaPrior != nil {
		e.resampleConcentrations()
	}
	return e.sampleLabels()
}

func (e *Engine) sampleLabelPriors() {
	for d := range e.domains {
		dom := &e.domains[d]
		e.labelPriors[d] = e.cfg.LabelPrior.Draw(e.src, dom.positives, len(dom.labels)-dom.positives)
	}
}

func (e *Engine) sampleErrorRates() {
	e.active = e.prior.ActiveClusters(e.active)
	for _, k := range e.active {
		c := e.ledger.Cell(k)
		e.rates[k] = e.cfg.ErrorRatePrior.Draw(e.src, c.Disagreements, c.Agreements)
	}
}

// clusterLogLik scores dis disagreements and agr agreements under candidate c.
// A fresh cluster has no rate yet and is always scored by its marginal.
func (e *Engine) clusterLogLik(c Candidate, dis, agr int) float64 {
	if e.cfg.Collapsed || c.FreshCluster {
		return e.cfg.ErrorRatePrior.LogIncrement(e.ledger.Cell(c.Cluster), dis, agr)
	}
	return bernoulliLogLik(e.rates[c.Cluster], dis, agr)
}

func (e *Engine) choose(cands []Candidate, dis, agr int) (Candidate, error) {
	e.logw = e.logw[:0]
	for _, c := range cands {
		e.logw = append(e.logw, math.Log(c.Weight)+e.clusterLogLik(c, dis, agr))
	}
	idx, err := e.cls.sample(e.logw)
	if err != nil {
		return Candidate{}, err
	}
	return cands[idx], nil
}

func (e *Engine) openCluster(k int, dis, agr int) {
	if !e.cfg.Collapsed {
		e.rates[k] = e.cfg.ErrorRatePrior.Draw(e.src, dis, agr)
	}
}

func (e *Engine) sampleAssignments() error {
	items := len(e.domains) * e.numPredictors
	for item := 0; item < items; item++ {
		e.ledger.BeforeReassign(item)
		e.prior.RemoveAssignment(item)
		dis, agr := e.ledger.ItemCounts(item)

		e.candidates = e.prior.Candidates(item, e.candidates)
		c, err := e.choose(e.candidates, dis, agr)
		if err != nil {
			return errors.WithMessagef(err, "assign domain %d predictor %d", item/e.numPredictors, item%e.numPredictors)
		}
		e.prior.AddAssignment(item, c)
		e.ledger.AfterReassign(item, c.Cluster)
		if c.FreshCluster {
			e.openCluster(c.Cluster, dis, agr)
		}
	}
	return nil
}

// sampleTableClusters moves every open table, with all items seated at it, to a new cluster.
func (e *Engine) sampleTableClusters() error {
	for d := range e.domains {
		e.tables = e.tableSampler.TakenTables(d, e.tables)
		for _, t := range e.tables {
			e.items = e.tableSampler.TableItems(d, t, e.items)
			dis, agr := 0, 0
			for _, item := range e.items {
				e.ledger.BeforeReassign(item)
				di, ag := e.ledger.ItemCounts(item)
				dis += di
				agr += ag
			}
			e.tableSampler.RemoveTableAssignment(d, t)

			e.candidates = e.tableSampler.TopicCandidates(e.candidates)
			c, err := e.choose(e.candidates, dis, agr)
			if err != nil {
				return errors.WithMessagef(err, "cluster of domain %d table %d", d, t)
			}
			e.tableSampler.AddTableAssignment(d, t, c.Cluster)
			for _, item := range e.items {
				e.ledger.AfterReassign(item, c.Cluster)
			}
			if c.FreshCluster {
				e.openCluster(c.Cluster, dis, agr)
			}
		}
	}
	return nil
}

func (e *Engine) sampleLabels() error {
	for d := range e.domains {
		dom := &e.domains[d]
		pi := e.labelPriors[d]
		for i, outputs := range dom.outputs {
			if dom.observed != nil && dom.observed[i] {
				continue
			}
			e.ledger.BeforeLabelChange(d, outputs, dom.labels[i])
			if dom.labels[i] {
				dom.positives--
			}

			lwFalse := math.Log1p(-pi) + e.labelLogLik(d, outputs, false)
			lwTrue := math.Log(pi) + e.labelLogLik(d, outputs, true)
			label, err := e.drawLabel(lwFalse, lwTrue)
			if err != nil {
				return errors.WithMessagef(err, "label of domain %d instance %d", d, i)
			}

			dom.labels[i] = label
			if label {
				dom.positives++
			}
			e.ledger.AfterLabelChange(d, outputs, label)
		}
	}
	return nil
}

// labelLogLik is the log likelihood of one instance's outputs given its label.
// In collapsed mode outputs whose items share a cluster are scored
// sequentially, each one conditioning on the ones before it.
func (e *Engine) labelLogLik(d int, outputs []bool, label bool) float64 {
	base := d * e.numPredictors
	var ll float64
	if !e.cfg.Collapsed {
		for j, out := range outputs {
			r := e.rates[e.ledger.Cluster(base+j)]
			if out != label {
				ll += math.Log(r)
			} else {
				ll += math.Log1p(-r)
			}
		}
		return ll
	}

	for j, out := range outputs {
		k := e.ledger.Cluster(base + j)
		c := e.ledger.Cell(k)
		p := &e.pending[k]
		if p.Total() == 0 {
			e.touched = append(e.touched, k)
		}
		pDis := e.cfg.ErrorRatePrior.PredictiveOne(c.Disagreements+p.Disagreements, c.Agreements+p.Agreements)
		if out != label {
			ll += math.Log(pDis)
			p.Disagreements++
		} else {
			ll += math.Log1p(-pDis)
			p.Agreements++
		}
	}
	for _, k := range e.touched {
		e.pending[k] = Cell{}
	}
	e.touched = e.touched[:0]
	return ll
}

func (e *Engine) drawLabel(lwFalse, lwTrue float64) (bool, error) {
	e.logw = append(e.logw[:0], lwFalse, lwTrue)
	for i, w := range e.logw {
		if math.IsNaN(w) {
			e.logw[i] = math.Inf(-1)
		}
	}
	lse := floats.LogSumExp(e.logw)
	if math.IsInf(lse, 0) || math.IsNaN(lse) {
		return false, errors.Wrapf(ErrDegenerateWeights, "label weights %v", e.logw)
	}
	bern := distuv.Bernoulli{P: math.Exp(e.logw[1] - lse), Src: e.src}
	return bern.Rand() == 1, nil
}

// snapshot records the current state. In collapsed mode the rate of every
// occupied cluster is drawn from its conditional Beta first.
func (e *Engine) snapshot() Sample {
	e.active = e.prior.ActiveClusters(e.active)
	if e.cfg.Collapsed {
		for _, k := range e.active {
			c := e.ledger.Cell(k)
			e.rates[k] = e.cfg.ErrorRatePrior.Draw(e.src, c.Disagreements, c.Agreements)
		}
	}
	items := len(e.domains) * e.numPredictors
	alpha, gamma := e.concentrations()
	s := Sample{
		Alpha:          alpha,
		Gamma:          gamma,
		LabelPriors:    append([]float64(nil), e.labelPriors...),
		ItemErrorRates: make([]float64, items),
		Assignments:    make([]int, items),
		ClusterRates:   make([]ClusterRate, 0, len(e.active)),
		Labels:         make([][]bool, len(e.domains)),
	}
	for item := 0; item < items; item++ {
		k := e.prior.Cluster(item)
		s.Assignments[item] = k
		s.ItemErrorRates[item] = e.rates[k]
	}
	for _, k := range e.active {
		s.ClusterRates = append(s.ClusterRates, ClusterRate{Cluster: k, Rate: e.rates[k], Occupancy: e.prior.Occupancy(k)})
	}
	for d := range e.domains {
		s.Labels[d] = append([]bool(nil), e.domains[d].labels...)
	}
	return s
}

// CheckInvariants recounts every statistic from scratch and cross-checks the
// prior against the ledger.
func (e *Engine) CheckInvariants() error {
	if err := e.prior.Verify(); err != nil {
		return err
	}
	if err := e.ledger.Verify(e.domains); err != nil {
		return err
	}
	items := len(e.domains) * e.numPredictors
	for item := 0; item < items; item++ {
		if a, b := e.prior.Cluster(item), e.ledger.Cluster(item); a != b {
			return errors.WithStack(invariantf(a, "item %d: prior cluster %d, ledger cluster %d", item, a, b))
		}
	}
	for k := 0; k < e.prior.NumClusterIDs(); k++ {
		if occupied, counted := e.prior.Occupancy(k) > 0, e.ledger.Cell(k).Total() > 0; occupied != counted {
			return errors.WithStack(invariantf(k, "occupancy %d with cell %+v", e.prior.Occupancy(k), e.ledger.Cell(k)))
		}
	}
	for d, dom := range e.domains {
		positives := 0
		for _, l := range dom.labels {
			if l {
				positives++
			}
		}
		if positives != dom.positives {
			return errors.WithStack(invariantf(-1, "domain %d: %d positives, recount %d", d, dom.positives, positives))
		}
	}
	return nil
}
