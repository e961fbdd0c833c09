package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tomoris/NPBEE/bayesee"
	"github.com/tomoris/NPBEE/telemetry"
)

func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate predictor error rates of CSV domains",
		Long: `estimate loads every *.csv file of --data as one domain. The first column
is the true label (used only for evaluation), the other columns are predictor
scores thresholded with --threshold.`,
		RunE: runEstimate,
	}
	cmd.Flags().String("data", "", "directory of domain CSV files")
	cmd.Flags().String("config", "", "YAML config file (defaults are used otherwise)")
	cmd.Flags().Float64Slice("threshold", nil, "score thresholds: one shared or one per predictor (default 0.5)")
	cmd.Flags().Int("chains", 1, "number of independent chains")
	cmd.Flags().String("prior", "", "partition prior (dp, hdp); overrides the config")
	cmd.Flags().Uint64("seed", 0, "random seed; overrides the config")
	cmd.Flags().Bool("instantiated", false, "sample cluster error rates explicitly instead of integrating them out")
	cmd.Flags().Bool("progress", false, "show a progress bar")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while sampling")
	cmd.Flags().String("out", "", "write the JSON report to this file (stdout otherwise)")
	cmd.Flags().Bool("labels", false, "include per-instance label probabilities in the report")
	cmd.MarkFlagRequired("data")
	return cmd
}

func estimateConfig(cmd *cobra.Command) (bayesee.Config, error) {
	cfg := bayesee.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = bayesee.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("prior") {
		prior, _ := flags.GetString("prior")
		cfg.Prior = bayesee.PriorKind(prior)
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("instantiated") {
		instantiated, _ := flags.GetBool("instantiated")
		cfg.Collapsed = !instantiated
	}
	if flags.Changed("progress") {
		cfg.ShowProgress, _ = flags.GetBool("progress")
	}
	return cfg, cfg.Validate()
}

func runEstimate(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd, os.Stderr)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	cfg, err := estimateConfig(cmd)
	if err != nil {
		return err
	}
	dataDir, _ := cmd.Flags().GetString("data")
	thresholds, _ := cmd.Flags().GetFloat64Slice("threshold")
	chains, _ := cmd.Flags().GetInt("chains")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	outPath, _ := cmd.Flags().GetString("out")
	withLabels, _ := cmd.Flags().GetBool("labels")

	domains, err := bayesee.LoadDomainDir(dataDir, thresholds)
	if err != nil {
		return err
	}
	logger.Info("domains loaded", "dir", dataDir, "domains", len(domains), "predictors", domains[0].NumPredictors())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []bayesee.Option{bayesee.WithLogger(logger)}
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, bayesee.WithObserver(telemetry.NewCollector(reg)))
		shutdown := serveMetrics(metricsAddr, reg, logger)
		defer shutdown()
	}

	repOpts := bayesee.ReportOptions{RunID: runID, Chains: chains, Domains: domains, Labels: withLabels}
	var post *bayesee.Posterior
	if chains > 1 {
		res, err := bayesee.RunChains(ctx, domains, cfg, chains, opts...)
		if err != nil {
			return err
		}
		post = res.Pooled
		repOpts.RHat = res.RHat
	} else {
		post, err = bayesee.Estimate(ctx, domains, cfg, opts...)
		if err != nil {
			return err
		}
	}

	rep, err := bayesee.NewReport(post, cfg, repOpts)
	if err != nil {
		return err
	}
	if rep.MAD != nil {
		logger.Info("evaluation", "meanAbsoluteDeviation", *rep.MAD)
	}
	return writeReport(rep, outPath)
}

func writeReport(rep *bayesee.Report, outPath string) error {
	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return errors.Wrapf(err, "create %s", outPath)
		}
		defer f.Close()
		w = f
	}
	return rep.Write(w, true)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
