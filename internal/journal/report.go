package journal

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// allBacktests is the union of this run's records and the imported history.
const allBacktests = "(SELECT * FROM backtest_results UNION ALL SELECT * FROM backtest_history) AS all_backtests"

// Recommendation thresholds.
const (
	RecommendationWindow = 7 * 24 * time.Hour
	HighWinRate          = 0.6
	LowDrawdown          = 0.1
	ConsistentScore      = 60.0
	ConsistentMinTests   = 2
	MaxConsistentSymbols = 5
)

// Report summarizes all recorded backtests. topSymbols limits the best symbols table.
func (j *DuckDBJournal) Report(ctx context.Context, topSymbols int) (types.PerformanceReport, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return types.PerformanceReport{}, errors.New(errors.ErrCodeJournalNotReady, "journal not initialized")
	}

	report := types.PerformanceReport{
		GeneratedAt:     j.now(),
		Strategies:      []types.StrategySummary{},
		TopSymbols:      []types.SymbolScore{},
		Recommendations: types.Recommendations{},
	}

	totals, args, err := j.sq.Select(
		"COUNT(*)",
		"COALESCE(AVG(composite_score), 0)",
		"COALESCE(AVG(win_rate), 0)",
		"COALESCE(AVG(max_drawdown), 0)",
		"COALESCE(AVG(sharpe_ratio), 0)",
	).From(allBacktests).ToSql()
	if err != nil {
		return report, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build totals query", err)
	}

	err = j.db.QueryRowContext(ctx, totals, args...).
		Scan(&report.TotalBacktests, &report.AvgScore, &report.AvgWinRate, &report.AvgMaxDrawdown, &report.AvgSharpe)
	if err != nil {
		return report, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query totals", err)
	}

	if report.Strategies, err = j.strategySummaries(ctx); err != nil {
		return report, err
	}

	if report.TopSymbols, err = j.topSymbols(ctx, topSymbols); err != nil {
		return report, err
	}

	if report.Recommendations, err = j.recommend(ctx, report.GeneratedAt.Add(-RecommendationWindow)); err != nil {
		return report, err
	}

	return report, nil
}

//nolint:funcorder // helper method used by Report
func (j *DuckDBJournal) strategySummaries(ctx context.Context) ([]types.StrategySummary, error) {
	query, args, err := j.sq.Select(
		"strategy_id",
		"COUNT(*)",
		"AVG(composite_score) AS avg_score",
		"AVG(win_rate)",
		"AVG(net_pnl)",
		"AVG(max_drawdown)",
		"COALESCE(AVG(sharpe_ratio), 0)",
		"COUNT(DISTINCT symbol)",
	).From(allBacktests).
		GroupBy("strategy_id").
		OrderBy("avg_score DESC", "strategy_id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build strategy summary query", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query strategy summaries", err)
	}
	defer rows.Close()

	summaries := make([]types.StrategySummary, 0)

	for rows.Next() {
		var s types.StrategySummary
		if err := rows.Scan(&s.StrategyID, &s.Tests, &s.AvgScore, &s.AvgWinRate, &s.AvgNetPnL, &s.AvgMaxDrawdown, &s.AvgSharpe, &s.Symbols); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan strategy summary", err)
		}

		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// topSymbols ranks the latest result of every strategy/symbol pair.
//
//nolint:funcorder // helper method used by Report
func (j *DuckDBJournal) topSymbols(ctx context.Context, limit int) ([]types.SymbolScore, error) {
	if limit <= 0 {
		return []types.SymbolScore{}, nil
	}

	latest := j.sq.Select("symbol", "strategy_id", "composite_score", "win_rate",
		"ROW_NUMBER() OVER (PARTITION BY strategy_id, symbol ORDER BY timestamp DESC) AS rn").
		From(allBacktests)

	query, args, err := j.sq.Select("symbol", "strategy_id", "composite_score", "win_rate").
		FromSelect(latest, "latest").
		Where(squirrel.Eq{"rn": 1}).
		OrderBy("composite_score DESC", "symbol ASC", "strategy_id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build top symbols query", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query top symbols", err)
	}
	defer rows.Close()

	scores := make([]types.SymbolScore, 0, limit)

	for rows.Next() {
		var s types.SymbolScore
		if err := rows.Scan(&s.Symbol, &s.StrategyID, &s.Score, &s.WinRate); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol score", err)
		}

		scores = append(scores, s)
	}

	return scores, rows.Err()
}

// recommend picks the best strategy by average score, the strategies with a
// high win rate or a low drawdown, and the symbols scoring well repeatedly,
// all over the backtests recorded since since.
//
//nolint:funcorder // helper method used by Report
func (j *DuckDBJournal) recommend(ctx context.Context, since time.Time) (types.Recommendations, error) {
	recent := squirrel.GtOrEq{"timestamp": since.UTC()}
	rec := types.Recommendations{
		Since:             since,
		BestStrategy:      "",
		HighWinRate:       []string{},
		LowDrawdown:       []string{},
		ConsistentSymbols: []string{},
	}

	best, err := j.column(ctx, j.sq.Select("strategy_id").
		From(allBacktests).
		Where(recent).
		GroupBy("strategy_id").
		OrderBy("AVG(composite_score) DESC", "strategy_id ASC").
		Limit(1))
	if err != nil {
		return rec, err
	}

	if len(best) == 0 {
		return rec, nil
	}

	rec.BestStrategy = best[0]

	if rec.HighWinRate, err = j.column(ctx, j.sq.Select("strategy_id").Distinct().
		From(allBacktests).
		Where(recent).
		Where(squirrel.Gt{"win_rate": HighWinRate}).
		OrderBy("strategy_id ASC")); err != nil {
		return rec, err
	}

	if rec.LowDrawdown, err = j.column(ctx, j.sq.Select("strategy_id").Distinct().
		From(allBacktests).
		Where(recent).
		Where(squirrel.Lt{"max_drawdown": LowDrawdown}).
		OrderBy("strategy_id ASC")); err != nil {
		return rec, err
	}

	if rec.ConsistentSymbols, err = j.column(ctx, j.sq.Select("symbol").
		From(allBacktests).
		Where(recent).
		GroupBy("symbol").
		Having("AVG(composite_score) > ? AND COUNT(*) >= ?", ConsistentScore, ConsistentMinTests).
		OrderBy("AVG(composite_score) DESC", "symbol ASC").
		Limit(MaxConsistentSymbols)); err != nil {
		return rec, err
	}

	return rec, nil
}

// column runs a single-column text query.
//
//nolint:funcorder // helper method used by Report
func (j *DuckDBJournal) column(ctx context.Context, builder squirrel.SelectBuilder) ([]string, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build recommendation query", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query recommendations", err)
	}
	defer rows.Close()

	values := make([]string, 0)

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan recommendation", err)
		}

		values = append(values, v)
	}

	return values, rows.Err()
}
