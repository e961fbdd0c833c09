package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthThenEstimate(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	configPath := filepath.Join(dir, "run.yaml")
	out := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(configPath, []byte("burnInIterations: 20\nthinningIterations: 0\nnumberOfSamples: 20\n"), 0o644))

	root := newRootCmd()
	root.SetArgs([]string{"synth", "--out", data, "--domains", "2", "--instances", "30", "--log-level", "error"})
	require.NoError(t, root.Execute())
	files, err := filepath.Glob(filepath.Join(data, "*.csv"))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	root = newRootCmd()
	root.SetArgs([]string{"estimate", "--data", data, "--config", configPath, "--prior", "hdp",
		"--seed", "3", "--chains", "2", "--out", out, "--log-level", "error", "--log-format", "json"})
	require.NoError(t, root.Execute())

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var rep struct {
		RunID   string `json:"runId"`
		Samples int    `json:"samples"`
		Chains  int    `json:"chains"`
		Config struct {
			Prior string `json:"prior"`
			Seed  uint64 `json:"seed"`
		} `json:"config"`
		Domains []struct {
			Predictors []json.RawMessage `json:"predictors"`
		} `json:"domains"`
		MAD *float64 `json:"meanAbsoluteDeviation"`
	}
	require.NoError(t, json.Unmarshal(raw, &rep))
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 2, rep.Chains)
	assert.Equal(t, 40, rep.Samples, "samples of both chains pooled")
	assert.Equal(t, "hdp", rep.Config.Prior)
	assert.Equal(t, uint64(3), rep.Config.Seed)
	require.Len(t, rep.Domains, 2)
	assert.Len(t, rep.Domains[0].Predictors, 3)
	assert.NotNil(t, rep.MAD)
}

func TestEstimateRejectsBadFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"estimate", "--data", t.TempDir(), "--prior", "pitman-yor"})
	root.SetErr(new(nopWriter))
	assert.Error(t, root.Execute())

	root = newRootCmd()
	root.SetArgs([]string{"synth", "--out", t.TempDir(), "--log-format", "xml"})
	root.SetErr(new(nopWriter))
	assert.Error(t, root.Execute())
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
