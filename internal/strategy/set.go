package strategy

import (
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// Set is an immutable, ordered collection of strategy definitions.
type Set struct {
	definitions []types.StrategyDefinition
	index       map[string]int
}

// NewSet validates defs and builds a set. Ids must be unique.
func NewSet(defs ...types.StrategyDefinition) (*Set, error) {
	set := &Set{
		definitions: make([]types.StrategyDefinition, 0, len(defs)),
		index:       make(map[string]int, len(defs)),
	}

	for _, def := range defs {
		if err := Validate(def); err != nil {
			return nil, err
		}

		if _, exists := set.index[def.ID]; exists {
			return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "duplicate strategy id %s", def.ID)
		}

		set.index[def.ID] = len(set.definitions)
		set.definitions = append(set.definitions, def)
	}

	return set, nil
}

// Get returns the definition with the given id.
func (s *Set) Get(id string) (types.StrategyDefinition, error) {
	i, ok := s.index[id]
	if !ok {
		return types.StrategyDefinition{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", id)
	}

	return s.definitions[i], nil
}

// All returns the definitions in insertion order.
func (s *Set) All() []types.StrategyDefinition {
	out := make([]types.StrategyDefinition, len(s.definitions))
	copy(out, s.definitions)

	return out
}

// IDs returns the strategy ids in insertion order.
func (s *Set) IDs() []string {
	ids := make([]string, len(s.definitions))
	for i, def := range s.definitions {
		ids[i] = def.ID
	}

	return ids
}

// Len returns the number of strategies.
func (s *Set) Len() int {
	return len(s.definitions)
}

// Select returns a new set restricted to ids. An empty ids keeps every strategy.
func (s *Set) Select(ids []string) (*Set, error) {
	if len(ids) == 0 {
		return s, nil
	}

	defs := make([]types.StrategyDefinition, 0, len(ids))

	for _, id := range ids {
		def, err := s.Get(id)
		if err != nil {
			return nil, err
		}

		defs = append(defs, def)
	}

	return NewSet(defs...)
}

// Merge returns a new set with other's definitions appended. Ids in other
// replace ids already in s.
func (s *Set) Merge(other []types.StrategyDefinition) (*Set, error) {
	defs := s.All()
	extra := make([]types.StrategyDefinition, 0, len(other))

	for _, def := range other {
		if i, ok := s.index[def.ID]; ok {
			defs[i] = def
			continue
		}

		extra = append(extra, def)
	}

	return NewSet(append(defs, extra...)...)
}

// FromConfig builds the active strategy set: the shipped strategies, overridden
// or extended by the strategies file, restricted to the active ids.
func FromConfig(cfg config.Config) (*Set, error) {
	set, err := NewSet(Builtin(cfg.Indicators, cfg.Risk.MinSignalStrength)...)
	if err != nil {
		return nil, err
	}

	if cfg.Bot.StrategiesFile != "" {
		defs, err := LoadFile(cfg.Bot.StrategiesFile)
		if err != nil {
			return nil, err
		}

		if set, err = set.Merge(defs); err != nil {
			return nil, err
		}
	}

	set, err = set.Select(cfg.Bot.ActiveStrategies)
	if err != nil {
		return nil, err
	}

	if set.Len() == 0 {
		return nil, errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies are active")
	}

	return set, nil
}
