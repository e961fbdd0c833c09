package bayesee

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PriorKind selects the partition prior over (domain, predictor) items.
type PriorKind string

const (
	// PriorDP shares one Chinese restaurant process across all domains.
	PriorDP PriorKind = "dp"
	// PriorHDP gives every domain its own restaurant in a shared franchise.
	PriorHDP PriorKind = "hdp"
)

// BetaPrior holds the two shape parameters of a Beta distribution.
type BetaPrior struct {
	Alpha float64 `yaml:"alpha" json:"alpha"`
	Beta  float64 `yaml:"beta" json:"beta"`
}

func (p BetaPrior) valid() bool {
	return p.Alpha > 0 && p.Beta > 0 && !math.IsInf(p.Alpha, 0) && !math.IsInf(p.Beta, 0)
}

// Config controls one sampling run.
type Config struct {
	BurnInIterations   int       `yaml:"burnInIterations" json:"burnInIterations"`
	ThinningIterations int       `yaml:"thinningIterations" json:"thinningIterations"`
	NumberOfSamples    int       `yaml:"numberOfSamples" json:"numberOfSamples"`
	ConcentrationAlpha float64   `yaml:"alpha" json:"alpha"`
	HDPGamma           float64   `yaml:"gamma" json:"gamma"`
	LabelPrior         BetaPrior `yaml:"labelPrior" json:"labelPrior"`
	ErrorRatePrior     BetaPrior `yaml:"errorRatePrior" json:"errorRatePrior"`
	Collapsed          bool      `yaml:"collapsed" json:"collapsed"`
	Prior              PriorKind `yaml:"prior" json:"prior"`
	Seed               uint64    `yaml:"seed" json:"seed"`

	// AlphaPrior and GammaPrior, when set, make the concentrations random
	// and resampled every sweep; the values above are then starting points.
	AlphaPrior *GammaPrior `yaml:"alphaPrior,omitempty" json:"alphaPrior,omitempty"`
	GammaPrior *GammaPrior `yaml:"gammaPrior,omitempty" json:"gammaPrior,omitempty"`

	// ClusterPoolSize bounds the number of clusters; 0 means one per item.
	ClusterPoolSize int  `yaml:"clusterPoolSize" json:"clusterPoolSize"`
	FlipSymmetry    bool `yaml:"flipSymmetry" json:"flipSymmetry"`
	CheckInvariants bool `yaml:"checkInvariants" json:"checkInvariants"`
	ShowProgress    bool `yaml:"showProgress" json:"showProgress"`
}

// DefaultConfig returns the settings used when nothing else is given.
func DefaultConfig() Config {
	return Config{
		BurnInIterations:   2000,
		ThinningIterations: 5,
		NumberOfSamples:    500,
		ConcentrationAlpha: 1.0,
		HDPGamma:           1.0,
		LabelPrior:         BetaPrior{Alpha: 1.0, Beta: 1.0},
		ErrorRatePrior:     BetaPrior{Alpha: 1.0, Beta: 1.0},
		Collapsed:          true,
		Prior:              PriorDP,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(ErrInvalidConfig, "parse %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.WithMessagef(err, "config %s", path)
	}
	return cfg, nil
}

// Validate reports the first invalid field, wrapped around ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.BurnInIterations < 0:
		return errors.Wrapf(ErrInvalidConfig, "burnInIterations = %d", c.BurnInIterations)
	case c.ThinningIterations < 0:
		return errors.Wrapf(ErrInvalidConfig, "thinningIterations = %d", c.ThinningIterations)
	case c.NumberOfSamples < 1:
		return errors.Wrapf(ErrInvalidConfig, "numberOfSamples = %d", c.NumberOfSamples)
	case !(c.ConcentrationAlpha > 0) || math.IsInf(c.ConcentrationAlpha, 0):
		return errors.Wrapf(ErrInvalidConfig, "alpha = %v", c.ConcentrationAlpha)
	case c.Prior != PriorDP && c.Prior != PriorHDP:
		return errors.Wrapf(ErrInvalidConfig, "unknown prior %q", c.Prior)
	case c.Prior == PriorHDP && (!(c.HDPGamma > 0) || math.IsInf(c.HDPGamma, 0)):
		return errors.Wrapf(ErrInvalidConfig, "gamma = %v", c.HDPGamma)
	case !c.LabelPrior.valid():
		return errors.Wrapf(ErrInvalidConfig, "labelPrior = %+v", c.LabelPrior)
	case !c.ErrorRatePrior.valid():
		return errors.Wrapf(ErrInvalidConfig, "errorRatePrior = %+v", c.ErrorRatePrior)
	case !c.AlphaPrior.valid():
		return errors.Wrapf(ErrInvalidConfig, "alphaPrior = %+v", *c.AlphaPrior)
	case !c.GammaPrior.valid():
		return errors.Wrapf(ErrInvalidConfig, "gammaPrior = %+v", *c.GammaPrior)
	case c.ClusterPoolSize < 0:
		return errors.Wrapf(ErrInvalidConfig, "clusterPoolSize = %d", c.ClusterPoolSize)
	}
	return nil
}

// TotalSweeps is the number of sweeps Run performs.
func (c Config) TotalSweeps() int {
	return c.BurnInIterations + c.NumberOfSamples*(c.ThinningIterations+1)
}
