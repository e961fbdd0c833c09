package bayesee

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDomainCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.csv")
	writeFile(t, path, "label,a,b\n1,0.9,0.2\n0,0.5,0.49\n1,0.1,0.7\n\n")

	dom, err := LoadDomainCSV(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "books", dom.Name)
	assert.Equal(t, [][]bool{{true, false}, {true, false}, {false, true}}, dom.Outputs)
	assert.Equal(t, []bool{true, false, true}, dom.TrueLabels)

	dom, err = LoadDomainCSV(path, []float64{0.95, 0.1})
	require.NoError(t, err)
	assert.Equal(t, [][]bool{{false, true}, {false, true}, {false, true}}, dom.Outputs)

	dom, err = LoadDomainCSV(path, []float64{0.15})
	require.NoError(t, err)
	assert.Equal(t, [][]bool{{true, true}, {true, true}, {false, true}}, dom.Outputs)

	floats := filepath.Join(dir, "floats.csv")
	writeFile(t, floats, "label,a\n0.0,0.9\n1.0,0.1\n-0,0.2\n 0 ,0.3\n")
	dom, err = LoadDomainCSV(floats, nil)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false, false}, dom.TrueLabels)
}

func TestLoadDomainCSVErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDomainCSV(filepath.Join(dir, "missing.csv"), nil)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.csv")
	writeFile(t, bad, "label,a\n1,high\n")
	_, err = LoadDomainCSV(bad, nil)
	assert.ErrorIs(t, err, ErrBadInput)

	word := filepath.Join(dir, "word.csv")
	writeFile(t, word, "label,a\nfalse,0.9\n")
	_, err = LoadDomainCSV(word, nil)
	assert.ErrorIs(t, err, ErrBadInput, "non-numeric label")

	short := filepath.Join(dir, "short.csv")
	writeFile(t, short, "label,a\n1\n")
	_, err = LoadDomainCSV(short, nil)
	assert.ErrorIs(t, err, ErrBadInput)

	empty := filepath.Join(dir, "empty.csv")
	writeFile(t, empty, "label,a\n")
	_, err = LoadDomainCSV(empty, nil)
	assert.ErrorIs(t, err, ErrEmptyDomain)

	ok := filepath.Join(dir, "ok.csv")
	writeFile(t, ok, "label,a,b,c\n1,0.2,0.3,0.4\n")
	_, err = LoadDomainCSV(ok, []float64{0.5, 0.5})
	assert.ErrorIs(t, err, ErrBadInput, "missing threshold for the third predictor")
}

func TestLoadDomainDirAndWriteDomainCSV(t *testing.T) {
	dir := t.TempDir()
	second := DomainData{
		Name:       "b",
		Outputs:    [][]bool{{true, false}, {false, false}},
		TrueLabels: []bool{true, false},
	}
	first := DomainData{
		Name:       "a",
		Outputs:    [][]bool{{false, true}},
		TrueLabels: []bool{false},
	}
	require.NoError(t, WriteDomainCSV(filepath.Join(dir, "b.csv"), second))
	require.NoError(t, WriteDomainCSV(filepath.Join(dir, "a.csv"), first))
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	domains, err := LoadDomainDir(dir, nil)
	require.NoError(t, err)
	require.Len(t, domains, 2)
	assert.Equal(t, first, domains[0])
	assert.Equal(t, second, domains[1])

	_, err = LoadDomainDir(t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrNoDomains)
}

func TestValidateDomains(t *testing.T) {
	_, err := validateDomains(nil)
	assert.ErrorIs(t, err, ErrNoDomains)

	_, err = validateDomains([]DomainData{{Name: "empty"}})
	assert.ErrorIs(t, err, ErrEmptyDomain)

	_, err = validateDomains([]DomainData{
		{Outputs: [][]bool{{true, false}}},
		{Outputs: [][]bool{{true, false, true}}},
	})
	assert.ErrorIs(t, err, ErrRaggedPredictors)

	_, err = validateDomains([]DomainData{{Outputs: [][]bool{{true}}, Observed: []bool{true}}})
	assert.ErrorIs(t, err, ErrBadInput)

	p, err := validateDomains([]DomainData{
		{Outputs: [][]bool{{true, false}}},
		{Outputs: [][]bool{{true, true}, {false, false}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p)
}

func TestMajorityVote(t *testing.T) {
	labels := MajorityVote([][]bool{
		{true, true, false},
		{false, false, true},
		{true, false},
		{false, false},
	})
	assert.Equal(t, []bool{true, false, true, false}, labels)
}
