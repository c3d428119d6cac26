package journal

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type JournalTestSuite struct {
	suite.Suite
	dataPath string
	session  *SessionManager
	journal  *DuckDBJournal
	now      time.Time
}

func TestJournalSuite(t *testing.T) {
	suite.Run(t, new(JournalTestSuite))
}

func (suite *JournalTestSuite) SetupTest() {
	suite.dataPath = suite.T().TempDir()
	suite.now = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	suite.session = suite.newSession()
	suite.journal = NewDuckDBJournal(suite.session, nil)
	suite.journal.now = func() time.Time { return suite.now.Add(2 * time.Hour) }
	suite.Require().NoError(suite.journal.Initialize(""))
}

func (suite *JournalTestSuite) TearDownTest() {
	suite.journal.Close()
}

func (suite *JournalTestSuite) newSession() *SessionManager {
	session := NewSessionManager(suite.dataPath, nil)
	session.now = func() time.Time { return suite.now }
	suite.Require().NoError(session.Initialize())

	return session
}

func transition(i int, symbol string, from, to types.PositionState) types.TransitionRecord {
	return types.TransitionRecord{
		Timestamp:  time.Date(2025, 6, 1, 10, i, 0, 0, time.UTC),
		PositionID: "pos-" + symbol,
		Symbol:     symbol,
		StrategyID: "macd_ema_vol",
		From:       from,
		To:         to,
		Reason:     fmt.Sprintf("step %d", i),
	}
}

func backtestRecord(strategyID, symbol string, score, winRate float64, at time.Time) types.BacktestRecord {
	return types.BacktestRecord{
		Timestamp: at,
		Result: types.BacktestResult{
			ID:             strategyID + symbol + at.String(),
			StrategyID:     strategyID,
			Symbol:         symbol,
			ComputedAt:     at,
			BarsFrom:       at.Add(-24 * time.Hour),
			BarsTo:         at,
			TradeCount:     4,
			WinningTrades:  2,
			LosingTrades:   2,
			WinRate:        winRate,
			ProfitFactor:   1.5,
			SharpeRatio:    0.5,
			NetPnL:         1,
			MaxDrawdown:    0.05,
			CompositeScore: score,
		},
		PreviousScore:    0,
		PreviousEligible: false,
		Eligible:         score >= 45,
	}
}

func (suite *JournalTestSuite) countRows(path string) int {
	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)

	defer db.Close()

	var count int
	suite.Require().NoError(db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM read_parquet(%s)", quote(path))).Scan(&count))

	return count
}

func (suite *JournalTestSuite) TestRecordTransitions() {
	suite.Require().NoError(suite.journal.RecordTransition(transition(0, "BTCUSDT", types.PositionStateCandidate, types.PositionStateSizing)))
	suite.Require().NoError(suite.journal.RecordTransition(transition(1, "ETHUSDT", types.PositionStateCandidate, types.PositionStateSizing)))
	suite.Require().NoError(suite.journal.RecordTransition(transition(2, "BTCUSDT", types.PositionStateSizing, types.PositionStateSubmitting)))

	btc, err := suite.journal.Transitions(context.Background(), "BTCUSDT")
	suite.Require().NoError(err)
	suite.Require().Len(btc, 2)
	suite.Equal(types.PositionStateCandidate, btc[0].From)
	suite.Equal(types.PositionStateSubmitting, btc[1].To)
	suite.Equal("step 2", btc[1].Reason)

	all, err := suite.journal.Transitions(context.Background(), "")
	suite.Require().NoError(err)
	suite.Len(all, 3)

	path := suite.session.FilePath(TransitionsFile)
	suite.FileExists(path)
	suite.Equal(3, suite.countRows(path))
}

func (suite *JournalTestSuite) TestReport() {
	at := suite.now

	records := []types.BacktestRecord{
		backtestRecord("macd_ema_vol", "BTCUSDT", 40, 0.4, at),
		backtestRecord("macd_ema_vol", "BTCUSDT", 60, 0.6, at.Add(time.Hour)),
		backtestRecord("macd_ema_vol", "ETHUSDT", 50, 0.5, at),
		backtestRecord("rsi_bb_vwap", "SOLUSDT", 70, 0.7, at),
	}
	for _, r := range records {
		suite.Require().NoError(suite.journal.RecordBacktest(r))
	}

	report, err := suite.journal.Report(context.Background(), 2)
	suite.Require().NoError(err)

	suite.Equal(4, report.TotalBacktests)
	suite.InDelta(55.0, report.AvgScore, 1e-9)
	suite.InDelta(0.55, report.AvgWinRate, 1e-9)

	suite.Require().Len(report.Strategies, 2)
	suite.Equal("rsi_bb_vwap", report.Strategies[0].StrategyID)
	suite.Equal(1, report.Strategies[0].Tests)
	suite.Equal("macd_ema_vol", report.Strategies[1].StrategyID)
	suite.Equal(3, report.Strategies[1].Tests)
	suite.Equal(2, report.Strategies[1].Symbols)
	suite.InDelta(50.0, report.Strategies[1].AvgScore, 1e-9)

	// Latest BTCUSDT result (60) counts, the older 40 does not.
	suite.Require().Len(report.TopSymbols, 2)
	suite.Equal("SOLUSDT", report.TopSymbols[0].Symbol)
	suite.Equal("BTCUSDT", report.TopSymbols[1].Symbol)
	suite.Equal(60.0, report.TopSymbols[1].Score)

	suite.InDelta(0.5, report.AvgSharpe, 1e-9)
	suite.InDelta(0.5, report.Strategies[0].AvgSharpe, 1e-9)

	suite.Equal("rsi_bb_vwap", report.Recommendations.BestStrategy)
	suite.Equal([]string{"rsi_bb_vwap"}, report.Recommendations.HighWinRate)
	suite.Equal([]string{"macd_ema_vol", "rsi_bb_vwap"}, report.Recommendations.LowDrawdown)
	suite.Empty(report.Recommendations.ConsistentSymbols)

	suite.Equal(4, suite.countRows(suite.session.FilePath(BacktestsFile)))
}

func (suite *JournalTestSuite) TestRecommendationsUseRecentBacktests() {
	at := suite.now

	stale := backtestRecord("stoch_fib_trend", "XRPUSDT", 95, 0.9, at.Add(-10*24*time.Hour))
	btcFirst := backtestRecord("macd_ema_vol", "BTCUSDT", 65, 0.5, at)
	btcFirst.Result.MaxDrawdown = 0.2
	btcSecond := backtestRecord("macd_ema_vol", "BTCUSDT", 70, 0.5, at.Add(time.Hour))
	btcSecond.Result.MaxDrawdown = 0.2

	records := []types.BacktestRecord{
		stale,
		btcFirst,
		btcSecond,
		backtestRecord("rsi_bb_vwap", "ETHUSDT", 80, 0.7, at),
		backtestRecord("rsi_bb_vwap", "SOLUSDT", 62, 0.65, at),
	}
	for _, r := range records {
		suite.Require().NoError(suite.journal.RecordBacktest(r))
	}

	report, err := suite.journal.Report(context.Background(), 3)
	suite.Require().NoError(err)
	suite.Equal(5, report.TotalBacktests)

	rec := report.Recommendations
	suite.Equal(suite.now.Add(2*time.Hour).Add(-RecommendationWindow), rec.Since)
	suite.Equal("rsi_bb_vwap", rec.BestStrategy)
	suite.Equal([]string{"rsi_bb_vwap"}, rec.HighWinRate)
	suite.Equal([]string{"rsi_bb_vwap"}, rec.LowDrawdown)
	suite.Equal([]string{"BTCUSDT"}, rec.ConsistentSymbols)
}

func (suite *JournalTestSuite) TestEmptyReport() {
	report, err := suite.journal.Report(context.Background(), 5)
	suite.Require().NoError(err)
	suite.Equal(0, report.TotalBacktests)
	suite.Empty(report.Strategies)
	suite.Empty(report.TopSymbols)
	suite.Empty(report.Recommendations.BestStrategy)
}

func (suite *JournalTestSuite) TestHistoryImport() {
	suite.Require().NoError(suite.journal.RecordBacktest(backtestRecord("macd_ema_vol", "BTCUSDT", 60, 0.6, suite.now)))
	suite.Require().NoError(suite.journal.Close())

	session := suite.newSession()
	suite.Equal("run_2", session.RunID())

	next := NewDuckDBJournal(session, nil)
	suite.Require().NoError(next.Initialize(suite.dataPath))

	defer next.Close()

	suite.Require().NoError(next.RecordBacktest(backtestRecord("macd_ema_vol", "ETHUSDT", 50, 0.5, suite.now)))

	report, err := next.Report(context.Background(), 5)
	suite.Require().NoError(err)
	suite.Equal(2, report.TotalBacktests)

	// The new run folder only holds its own record.
	suite.Equal(1, suite.countRows(session.FilePath(BacktestsFile)))
}

func (suite *JournalTestSuite) TestNotInitialized() {
	journal := NewDuckDBJournal(nil, nil)

	err := journal.RecordTransition(transition(0, "BTCUSDT", types.PositionStateCandidate, types.PositionStateSizing))
	suite.True(errors.HasCode(err, errors.ErrCodeJournalNotReady))

	_, err = journal.Report(context.Background(), 1)
	suite.True(errors.HasCode(err, errors.ErrCodeJournalNotReady))

	suite.NoError(journal.Close())
}

func (suite *JournalTestSuite) TestMemoryOnlyJournal() {
	journal := NewDuckDBJournal(nil, nil)
	suite.Require().NoError(journal.Initialize(""))

	defer journal.Close()

	suite.Require().NoError(journal.RecordBacktest(backtestRecord("macd_ema_vol", "BTCUSDT", 60, 0.6, suite.now)))

	report, err := journal.Report(context.Background(), 1)
	suite.Require().NoError(err)
	suite.Equal(1, report.TotalBacktests)
}
