package strategy

import (
	"os"
	"slices"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/internal/version"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the on-disk format of a strategy definitions file.
type File struct {
	// Version is the engine version the file was written for.
	Version    string                     `yaml:"version" json:"version"`
	Strategies []types.StrategyDefinition `yaml:"strategies" json:"strategies"`
}

var knownOperators = []types.Operator{
	types.OperatorLessThan,
	types.OperatorGreaterThan,
	types.OperatorAtOrBelow,
	types.OperatorAtOrAbove,
	types.OperatorCrossesAbove,
	types.OperatorCrossesBelow,
	types.OperatorRising,
	types.OperatorFalling,
	types.OperatorNearAny,
}

// LoadFile reads and validates a strategy definitions file.
func LoadFile(path string) ([]types.StrategyDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyNotFound, err, "failed to read strategy file %s", path)
	}

	return Parse(data)
}

// Parse decodes and validates a strategy definitions document.
func Parse(data []byte) ([]types.StrategyDefinition, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse strategy file", err)
	}

	if err := version.CheckVersionCompatibility(version.GetVersion(), file.Version); err != nil {
		return nil, err
	}

	for _, def := range file.Strategies {
		if err := Validate(def); err != nil {
			return nil, err
		}
	}

	return file.Strategies, nil
}

// Validate checks that a definition is structurally complete.
func Validate(def types.StrategyDefinition) error {
	if def.ID == "" {
		return errors.New(errors.ErrCodeStrategyConfigError, "strategy id is required")
	}

	if len(def.Conditions) == 0 {
		return errors.Newf(errors.ErrCodeStrategyConfigError, "strategy %s has no conditions", def.ID)
	}

	if def.MinStrength < 1 || def.MinStrength > types.MaxSignalStrength {
		return errors.Newf(errors.ErrCodeStrategyConfigError,
			"strategy %s min_strength must be between 1 and %d, got %d", def.ID, types.MaxSignalStrength, def.MinStrength)
	}

	for _, cond := range def.Conditions {
		if cond.Polarity != types.DirectionLong && cond.Polarity != types.DirectionShort {
			return errors.Newf(errors.ErrCodeStrategyConfigError,
				"strategy %s condition %s has invalid polarity %q", def.ID, cond.Name, cond.Polarity)
		}

		if len(cond.Clauses) == 0 {
			return errors.Newf(errors.ErrCodeStrategyConfigError,
				"strategy %s condition %s has no clauses", def.ID, cond.Name)
		}

		for _, clause := range cond.Clauses {
			if !slices.Contains(knownOperators, clause.Operator) {
				return errors.Newf(errors.ErrCodeStrategyConfigError,
					"strategy %s condition %s uses unknown operator %q", def.ID, cond.Name, clause.Operator)
			}

			if clause.Left.IsConst() {
				return errors.Newf(errors.ErrCodeStrategyConfigError,
					"strategy %s condition %s: left operand must be a series", def.ID, cond.Name)
			}

			if clause.Operator == types.OperatorNearAny && len(clause.Any) == 0 {
				return errors.Newf(errors.ErrCodeStrategyConfigError,
					"strategy %s condition %s: near_any needs at least one level", def.ID, cond.Name)
			}
		}
	}

	switch def.TrendFilter.Type {
	case types.TrendFilterNone, "":
	case types.TrendFilterSlope:
		if def.TrendFilter.Series == "" {
			return errors.Newf(errors.ErrCodeStrategyConfigError, "strategy %s slope filter needs a series", def.ID)
		}
	case types.TrendFilterOrdering:
		if def.TrendFilter.Series == "" || def.TrendFilter.Reference == "" {
			return errors.Newf(errors.ErrCodeStrategyConfigError,
				"strategy %s ordering filter needs a series and a reference", def.ID)
		}
	default:
		return errors.Newf(errors.ErrCodeStrategyConfigError,
			"strategy %s has unknown trend filter %q", def.ID, def.TrendFilter.Type)
	}

	return nil
}
