package backtest

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Key identifies a strategy/symbol pair.
type Key struct {
	StrategyID string
	Symbol     string
}

// Entry is the published score of one strategy/symbol pair.
type Entry struct {
	Result   types.BacktestResult `json:"result" yaml:"result"`
	Eligible bool                 `json:"eligible" yaml:"eligible"`
}

// Snapshot is an immutable view of all published results.
type Snapshot struct {
	entries     map[Key]Entry
	publishedAt time.Time
}

// Get returns the entry for a strategy/symbol pair.
func (s *Snapshot) Get(strategyID, symbol string) (Entry, bool) {
	entry, ok := s.entries[Key{StrategyID: strategyID, Symbol: symbol}]

	return entry, ok
}

// Entries returns all entries ordered by score, best first.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Result.CompositeScore != out[j].Result.CompositeScore {
			return out[i].Result.CompositeScore > out[j].Result.CompositeScore
		}

		if out[i].Result.Symbol != out[j].Result.Symbol {
			return out[i].Result.Symbol < out[j].Result.Symbol
		}

		return out[i].Result.StrategyID < out[j].Result.StrategyID
	})

	return out
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// PublishedAt returns when the snapshot was swapped in. Zero for the empty snapshot.
func (s *Snapshot) PublishedAt() time.Time {
	return s.publishedAt
}

// Registry holds the latest backtest results. Readers load the current
// snapshot without locking and always see either the previous or the new
// set of results, never a mix.
type Registry struct {
	current  atomic.Pointer[Snapshot]
	mu       sync.Mutex
	minScore float64
	now      func() time.Time
}

// NewRegistry creates an empty registry. Results scoring below minScore are not eligible.
func NewRegistry(minScore float64) *Registry {
	r := &Registry{
		current:  atomic.Pointer[Snapshot]{},
		mu:       sync.Mutex{},
		minScore: minScore,
		now:      time.Now,
	}
	r.current.Store(&Snapshot{entries: map[Key]Entry{}, publishedAt: time.Time{}})

	return r
}

// Snapshot returns the current snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Eligibility answers the risk gate's question for a strategy/symbol pair.
func (r *Registry) Eligibility(strategyID, symbol string) risk.Eligibility {
	entry, ok := r.Snapshot().Get(strategyID, symbol)
	if !ok {
		return risk.Eligibility{Known: false, Score: 0, Eligible: false}
	}

	return risk.Eligibility{
		Known:    true,
		Score:    entry.Result.CompositeScore,
		Eligible: entry.Eligible,
	}
}

// IsEligible reports whether result scores at least the minimum.
func (r *Registry) IsEligible(result types.BacktestResult) bool {
	return result.TradeCount > 0 && result.CompositeScore >= r.minScore
}

// Publish swaps in a new snapshot containing results on top of the current
// entries and returns one attribution record per result.
func (r *Registry) Publish(results ...types.BacktestResult) []types.BacktestRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current.Load()
	now := r.now()

	next := &Snapshot{
		entries:     make(map[Key]Entry, len(prev.entries)+len(results)),
		publishedAt: now,
	}
	for k, v := range prev.entries {
		next.entries[k] = v
	}

	records := make([]types.BacktestRecord, 0, len(results))

	for _, result := range results {
		key := Key{StrategyID: result.StrategyID, Symbol: result.Symbol}
		old, existed := prev.entries[key]
		entry := Entry{Result: result, Eligible: r.IsEligible(result)}
		next.entries[key] = entry

		record := types.BacktestRecord{
			Timestamp:        now,
			Result:           result,
			PreviousScore:    0,
			PreviousEligible: false,
			Eligible:         entry.Eligible,
		}
		if existed {
			record.PreviousScore = old.Result.CompositeScore
			record.PreviousEligible = old.Eligible
		}

		records = append(records, record)
	}

	r.current.Store(next)

	return records
}
