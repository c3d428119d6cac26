// Package journal keeps the audit trail of position transitions and
// backtest recomputations in DuckDB and persists it as parquet files in the
// run folder.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

const (
	// TransitionsFile is the parquet file of position transitions in a run folder.
	TransitionsFile = "transitions.parquet"
	// BacktestsFile is the parquet file of backtest records in a run folder.
	BacktestsFile = "backtest_results.parquet"
)

// Recorder persists audit records.
type Recorder interface {
	RecordTransition(record types.TransitionRecord) error
	RecordBacktest(record types.BacktestRecord) error
	Close() error
}

// DuckDBJournal stores records in an in-memory DuckDB database. When a
// session is attached, each write is exported to the run folder.
type DuckDBJournal struct {
	db      *sql.DB
	sq      squirrel.StatementBuilderType
	session *SessionManager
	mu      sync.Mutex
	log     *logger.Logger
	now     func() time.Time
}

var _ Recorder = (*DuckDBJournal)(nil)

// NewDuckDBJournal creates a journal. A nil session keeps records in memory only.
func NewDuckDBJournal(session *SessionManager, log *logger.Logger) *DuckDBJournal {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &DuckDBJournal{
		db:      nil,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		session: session,
		mu:      sync.Mutex{},
		log:     log,
		now:     time.Now,
	}
}

// Initialize opens the database and creates the tables. When historyPath is
// not empty, backtest records of earlier runs below it are imported into a
// separate history table so reports cover the whole history while the run
// folder only receives records of this run.
func (j *DuckDBJournal) Initialize(historyPath string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalNotReady, "failed to open DuckDB connection", err)
	}

	j.db = db

	_, err = j.db.Exec(`
		CREATE TABLE IF NOT EXISTS transitions (
			timestamp TIMESTAMP,
			position_id TEXT,
			symbol TEXT,
			strategy_id TEXT,
			from_state TEXT,
			to_state TEXT,
			reason TEXT
		);
		CREATE TABLE IF NOT EXISTS backtest_results (
			timestamp TIMESTAMP,
			id TEXT,
			strategy_id TEXT,
			symbol TEXT,
			computed_at TIMESTAMP,
			bars_from TIMESTAMP,
			bars_to TIMESTAMP,
			trade_count INTEGER,
			winning_trades INTEGER,
			losing_trades INTEGER,
			win_rate DOUBLE,
			profit_factor DOUBLE,
			net_pnl DOUBLE,
			total_fees DOUBLE,
			max_drawdown DOUBLE,
			composite_score DOUBLE,
			previous_score DOUBLE,
			previous_eligible BOOLEAN,
			eligible BOOLEAN,
			sharpe_ratio DOUBLE
		);
		CREATE TABLE IF NOT EXISTS backtest_history AS SELECT * FROM backtest_results LIMIT 0;
	`)
	if err != nil {
		j.db.Close()
		j.db = nil

		return errors.Wrap(errors.ErrCodeJournalNotReady, "failed to create journal tables", err)
	}

	if historyPath != "" {
		if err := j.importHistory(historyPath); err != nil {
			return err
		}
	}

	return nil
}

//nolint:funcorder // helper method used by Initialize
func (j *DuckDBJournal) importHistory(historyPath string) error {
	files, err := filepath.Glob(filepath.Join(historyPath, "*", "run_*", BacktestsFile))
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalNotReady, "failed to scan backtest history", err)
	}

	if len(files) == 0 {
		return nil
	}

	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = quote(f)
	}

	_, err = j.db.Exec(fmt.Sprintf(`INSERT INTO backtest_history SELECT * FROM read_parquet([%s])`, strings.Join(quoted, ", ")))
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalNotReady, "failed to import backtest history", err)
	}

	j.log.Info("Imported backtest history", zap.Int("files", len(files)))

	return nil
}

// RecordTransition appends a transition and exports the table.
func (j *DuckDBJournal) RecordTransition(record types.TransitionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return errors.New(errors.ErrCodeJournalNotReady, "journal not initialized")
	}

	query, args, err := j.sq.Insert("transitions").
		Columns("timestamp", "position_id", "symbol", "strategy_id", "from_state", "to_state", "reason").
		Values(record.Timestamp.UTC(), record.PositionID, record.Symbol, record.StrategyID,
			string(record.From), string(record.To), record.Reason).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to build transition insert", err)
	}

	if _, err := j.db.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to insert transition", err)
	}

	return j.export("transitions", "timestamp", TransitionsFile)
}

// RecordBacktest appends a backtest record and exports the table.
func (j *DuckDBJournal) RecordBacktest(record types.BacktestRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return errors.New(errors.ErrCodeJournalNotReady, "journal not initialized")
	}

	r := record.Result

	query, args, err := j.sq.Insert("backtest_results").
		Columns("timestamp", "id", "strategy_id", "symbol", "computed_at", "bars_from", "bars_to",
			"trade_count", "winning_trades", "losing_trades", "win_rate", "profit_factor", "net_pnl",
			"total_fees", "max_drawdown", "composite_score", "previous_score", "previous_eligible", "eligible",
			"sharpe_ratio").
		Values(record.Timestamp.UTC(), r.ID, r.StrategyID, r.Symbol, r.ComputedAt.UTC(), r.BarsFrom.UTC(), r.BarsTo.UTC(),
			r.TradeCount, r.WinningTrades, r.LosingTrades, r.WinRate, r.ProfitFactor, r.NetPnL,
			r.TotalFees, r.MaxDrawdown, r.CompositeScore, record.PreviousScore, record.PreviousEligible, record.Eligible,
			r.SharpeRatio).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to build backtest insert", err)
	}

	if _, err := j.db.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to insert backtest record", err)
	}

	return j.export("backtest_results", "timestamp", BacktestsFile)
}

// Transitions returns the audit trail of symbol, oldest first. An empty symbol returns all transitions.
func (j *DuckDBJournal) Transitions(ctx context.Context, symbol string) ([]types.TransitionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil, errors.New(errors.ErrCodeJournalNotReady, "journal not initialized")
	}

	builder := j.sq.Select("timestamp", "position_id", "symbol", "strategy_id", "from_state", "to_state", "reason").
		From("transitions").
		OrderBy("timestamp ASC")
	if symbol != "" {
		builder = builder.Where(squirrel.Eq{"symbol": symbol})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build transitions query", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query transitions", err)
	}
	defer rows.Close()

	records := make([]types.TransitionRecord, 0)

	for rows.Next() {
		var (
			record   types.TransitionRecord
			from, to string
		)

		if err := rows.Scan(&record.Timestamp, &record.PositionID, &record.Symbol, &record.StrategyID, &from, &to, &record.Reason); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan transition", err)
		}

		record.From = types.PositionState(from)
		record.To = types.PositionState(to)
		records = append(records, record)
	}

	return records, rows.Err()
}

// Flush exports both tables to the run folder.
func (j *DuckDBJournal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return errors.New(errors.ErrCodeJournalNotReady, "journal not initialized")
	}

	if err := j.export("transitions", "timestamp", TransitionsFile); err != nil {
		return err
	}

	return j.export("backtest_results", "timestamp", BacktestsFile)
}

// Close flushes and releases the database.
func (j *DuckDBJournal) Close() error {
	if err := j.Flush(); err != nil && !errors.HasCode(err, errors.ErrCodeJournalNotReady) {
		j.log.Warn("Failed to flush journal on close", zap.Error(err))
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil
	}

	err := j.db.Close()
	j.db = nil

	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to close journal database", err)
	}

	return nil
}

// export writes table to the run folder. Without a session it is a no-op.
//
//nolint:funcorder // helper method used by the record methods
func (j *DuckDBJournal) export(table, orderBy, filename string) error {
	if j.session == nil {
		return nil
	}

	path := j.session.FilePath(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to create run folder", err)
	}

	_, err := j.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM %s ORDER BY %s ASC) TO %s (FORMAT PARQUET)`, table, orderBy, quote(path)))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJournalWriteFailed, err, "failed to export %s to parquet", table)
	}

	return nil
}

func quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}
