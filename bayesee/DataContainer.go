package bayesee

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DomainData contains the binary outputs of every predictor on the instances of one domain.
type DomainData struct {
	Name       string
	Outputs    [][]bool // instance to predictor output
	TrueLabels []bool   // optional; used for evaluation and clamped labels
	Observed   []bool   // optional; Observed[i] fixes label i to TrueLabels[i]
}

// NumInstances returns the number of instances.
func (d DomainData) NumInstances() int { return len(d.Outputs) }

// NumPredictors returns the number of predictors, 0 for an empty domain.
func (d DomainData) NumPredictors() int {
	if len(d.Outputs) == 0 {
		return 0
	}
	return len(d.Outputs[0])
}

// validateDomains checks the shape of the input and returns the shared predictor count.
func validateDomains(domains []DomainData) (int, error) {
	if len(domains) == 0 {
		return 0, errors.WithStack(ErrNoDomains)
	}
	numPredictors := -1
	for d, dom := range domains {
		if dom.NumInstances() == 0 || dom.NumPredictors() == 0 {
			return 0, errors.Wrapf(ErrEmptyDomain, "domain %d (%s)", d, dom.Name)
		}
		if numPredictors < 0 {
			numPredictors = dom.NumPredictors()
		}
		for i, row := range dom.Outputs {
			if len(row) != numPredictors {
				return 0, errors.Wrapf(ErrRaggedPredictors, "domain %d (%s) instance %d has %d outputs, want %d", d, dom.Name, i, len(row), numPredictors)
			}
		}
		if dom.TrueLabels != nil && len(dom.TrueLabels) != dom.NumInstances() {
			return 0, errors.Wrapf(ErrBadInput, "domain %d (%s) has %d true labels for %d instances", d, dom.Name, len(dom.TrueLabels), dom.NumInstances())
		}
		if dom.Observed != nil {
			if len(dom.Observed) != dom.NumInstances() {
				return 0, errors.Wrapf(ErrBadInput, "domain %d (%s) has %d observed flags for %d instances", d, dom.Name, len(dom.Observed), dom.NumInstances())
			}
			if dom.TrueLabels == nil {
				return 0, errors.Wrapf(ErrBadInput, "domain %d (%s) observes labels without true labels", d, dom.Name)
			}
		}
	}
	return numPredictors, nil
}

// MajorityVote returns the per-instance majority of the outputs; ties vote true.
func MajorityVote(outputs [][]bool) []bool {
	labels := make([]bool, len(outputs))
	for i, row := range outputs {
		positives := 0
		for _, out := range row {
			if out {
				positives++
			}
		}
		labels[i] = 2*positives >= len(row)
	}
	return labels
}

// LoadDomainCSV reads one domain from a CSV file. The first line is a header.
// Column 0 is the numeric true label, zero being false; every other column is
// a predictor score, thresholded with >=. thresholds may be nil (0.5), hold
// one shared value, or one value per predictor.
func LoadDomainCSV(filePath string, thresholds []float64) (DomainData, error) {
	dom := DomainData{Name: strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))}

	f, err := os.Open(filePath)
	if err != nil {
		return dom, errors.Wrapf(err, "cannot open filePath (%v)", filePath)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	count := 0
	for sc.Scan() {
		count++
		if count == 1 {
			continue
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			return dom, errors.Wrapf(ErrBadInput, "%v: line %v has %d columns", filePath, count, len(fields))
		}
		label, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return dom, errors.Wrapf(ErrBadInput, "%v: line %v label: %v", filePath, count, err)
		}
		row := make([]bool, len(fields)-1)
		for j, field := range fields[1:] {
			score, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return dom, errors.Wrapf(ErrBadInput, "%v: line %v column %v: %v", filePath, count, j+1, err)
			}
			threshold, err := thresholdFor(thresholds, j)
			if err != nil {
				return dom, errors.WithMessagef(err, "%v: line %v", filePath, count)
			}
			row[j] = score >= threshold
		}
		dom.Outputs = append(dom.Outputs, row)
		dom.TrueLabels = append(dom.TrueLabels, label != 0)
	}
	if err := sc.Err(); err != nil {
		return dom, errors.Wrapf(err, "read error in filePath (%v): line %v", filePath, count)
	}
	if dom.NumInstances() == 0 {
		return dom, errors.Wrapf(ErrEmptyDomain, "%v", filePath)
	}
	return dom, nil
}

func thresholdFor(thresholds []float64, j int) (float64, error) {
	switch {
	case len(thresholds) == 0:
		return 0.5, nil
	case len(thresholds) == 1:
		return thresholds[0], nil
	case j < len(thresholds):
		return thresholds[j], nil
	}
	return 0, errors.Wrapf(ErrBadInput, "no threshold for predictor %d (%d given)", j, len(thresholds))
}

// LoadDomainDir loads every *.csv file of dir in lexical order.
func LoadDomainDir(dir string, thresholds []float64) ([]DomainData, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, errors.Wrapf(err, "list %v", dir)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, errors.Wrapf(ErrNoDomains, "no csv file in %v", dir)
	}
	domains := make([]DomainData, 0, len(paths))
	for _, path := range paths {
		dom, err := LoadDomainCSV(path, thresholds)
		if err != nil {
			return nil, err
		}
		domains = append(domains, dom)
	}
	return domains, nil
}

// WriteDomainCSV writes a domain in the format LoadDomainCSV reads.
// Outputs are written as 1/0 scores; missing true labels are written as 0.
func WriteDomainCSV(filePath string, dom DomainData) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "cannot create filePath (%v)", filePath)
	}
	w := bufio.NewWriter(f)
	header := make([]string, 0, dom.NumPredictors()+1)
	header = append(header, "label")
	for j := 0; j < dom.NumPredictors(); j++ {
		header = append(header, fmt.Sprintf("predictor_%d", j))
	}
	fmt.Fprintln(w, strings.Join(header, ","))
	for i, row := range dom.Outputs {
		fields := make([]string, 0, len(row)+1)
		fields = append(fields, boolDigit(dom.TrueLabels != nil && dom.TrueLabels[i]))
		for _, out := range row {
			fields = append(fields, boolDigit(out))
		}
		fmt.Fprintln(w, strings.Join(fields, ","))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %v", filePath)
	}
	return errors.Wrapf(f.Close(), "close %v", filePath)
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
