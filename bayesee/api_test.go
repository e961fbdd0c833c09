package bayesee

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateDir(t *testing.T) {
	dir := t.TempDir()
	for _, dom := range synthDomains(t, 11, 60, []float64{0.05, 0.2, 0.3}, []float64{0.1, 0.25, 0.3}) {
		require.NoError(t, WriteDomainCSV(filepath.Join(dir, dom.Name+".csv"), dom))
	}
	cfg := testConfig(PriorDP, true)
	domains, post, err := EstimateDir(context.Background(), dir, nil, cfg, WithLogger(quietLogger))
	require.NoError(t, err)
	require.Len(t, domains, 2)
	assert.Equal(t, []string{"domain_00", "domain_01"}, post.DomainNames)

	perDomain, mad, err := Evaluate(post, domains)
	require.NoError(t, err)
	assert.Len(t, perDomain, 2)
	assert.GreaterOrEqual(t, mad, 0.0)
	assert.Less(t, mad, 0.5)

	_, _, err = EstimateDir(context.Background(), t.TempDir(), nil, cfg)
	assert.ErrorIs(t, err, ErrNoDomains)
}
