package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tomoris/NPBEE/bayesee"
)

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate labelled synthetic domains as CSV files",
		RunE:  runSynth,
	}
	cmd.Flags().String("out", "", "output directory")
	cmd.Flags().Int("domains", 2, "number of domains")
	cmd.Flags().Int("instances", 100, "instances per domain")
	cmd.Flags().Float64Slice("error-rates", []float64{0.05, 0.2, 0.4}, "error rate of every predictor, shared by all domains")
	cmd.Flags().Float64("label-prior", 0.5, "probability of a true label")
	cmd.Flags().Uint64("seed", 1, "random seed")
	cmd.MarkFlagRequired("out")
	return cmd
}

func runSynth(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd, os.Stderr)
	if err != nil {
		return err
	}
	outDir, _ := cmd.Flags().GetString("out")
	numDomains, _ := cmd.Flags().GetInt("domains")
	instances, _ := cmd.Flags().GetInt("instances")
	rates, _ := cmd.Flags().GetFloat64Slice("error-rates")
	labelPrior, _ := cmd.Flags().GetFloat64("label-prior")
	seed, _ := cmd.Flags().GetUint64("seed")
	if numDomains < 1 {
		return errors.Wrapf(bayesee.ErrNoDomains, "domains = %d", numDomains)
	}

	spec := bayesee.SyntheticSpec{
		Instances:   instances,
		LabelPriors: make([]float64, numDomains),
		ErrorRates:  make([][]float64, numDomains),
	}
	for d := 0; d < numDomains; d++ {
		spec.LabelPriors[d] = labelPrior
		spec.ErrorRates[d] = rates
	}
	domains, err := bayesee.Synthesize(rand.NewPCG(seed, seed+1), spec)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", outDir)
	}
	for _, dom := range domains {
		path := filepath.Join(outDir, fmt.Sprintf("%s.csv", dom.Name))
		if err := bayesee.WriteDomainCSV(path, dom); err != nil {
			return err
		}
		sample, _ := bayesee.SampleErrorRates(dom)
		logger.Info("domain written", "path", path, "instances", dom.NumInstances(), "sampleErrorRates", sample)
	}
	return nil
}
