package bayesee

import "time"

// Phase names the part of a run a sweep belongs to.
type Phase string

const (
	PhaseBurnIn   Phase = "burn-in"
	PhaseThinning Phase = "thinning"
	PhaseRetained Phase = "retained"
)

// SweepStats describes one finished sweep.
type SweepStats struct {
	Phase          Phase
	Sweep          int
	ActiveClusters int
	Duration       time.Duration
}

// Observer is notified after every sweep. Observers shared by RunChains
// must be safe for concurrent use.
type Observer interface {
	ObserveSweep(stats SweepStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(SweepStats)

func (f ObserverFunc) ObserveSweep(stats SweepStats) { f(stats) }
