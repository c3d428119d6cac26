package backtest

import (
	"sync"
	"testing"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.registry = NewRegistry(45)
}

func scoredResult(strategyID, symbol string, score float64) types.BacktestResult {
	return types.BacktestResult{
		ID:             strategyID + "-" + symbol,
		StrategyID:     strategyID,
		Symbol:         symbol,
		TradeCount:     4,
		CompositeScore: score,
	}
}

func (suite *RegistryTestSuite) TestUnknownPair() {
	eligibility := suite.registry.Eligibility("macd_ema_vol", "BTCUSDT")
	suite.False(eligibility.Known)
	suite.False(eligibility.Eligible)
	suite.Equal(0, suite.registry.Snapshot().Len())
	suite.True(suite.registry.Snapshot().PublishedAt().IsZero())
}

func (suite *RegistryTestSuite) TestPublishSetsEligibility() {
	records := suite.registry.Publish(
		scoredResult("macd_ema_vol", "BTCUSDT", 55),
		scoredResult("macd_ema_vol", "ETHUSDT", 30),
	)
	suite.Len(records, 2)
	suite.True(records[0].Eligible)
	suite.False(records[1].Eligible)

	btc := suite.registry.Eligibility("macd_ema_vol", "BTCUSDT")
	suite.True(btc.Known)
	suite.True(btc.Eligible)
	suite.Equal(55.0, btc.Score)

	eth := suite.registry.Eligibility("macd_ema_vol", "ETHUSDT")
	suite.True(eth.Known)
	suite.False(eth.Eligible)
}

func (suite *RegistryTestSuite) TestZeroTradeResultIsNotEligible() {
	r := scoredResult("macd_ema_vol", "BTCUSDT", 0)
	r.TradeCount = 0

	registry := NewRegistry(0)
	records := registry.Publish(r)
	suite.False(records[0].Eligible)
}

func (suite *RegistryTestSuite) TestRecordsCarryPreviousScore() {
	suite.registry.Publish(scoredResult("rsi_bb_vwap", "BTCUSDT", 60))

	records := suite.registry.Publish(scoredResult("rsi_bb_vwap", "BTCUSDT", 40))
	suite.Require().Len(records, 1)
	suite.Equal(60.0, records[0].PreviousScore)
	suite.True(records[0].PreviousEligible)
	suite.False(records[0].Eligible)
}

func (suite *RegistryTestSuite) TestOldSnapshotIsUnchanged() {
	suite.registry.Publish(scoredResult("rsi_bb_vwap", "BTCUSDT", 60))
	before := suite.registry.Snapshot()

	suite.registry.Publish(scoredResult("rsi_bb_vwap", "BTCUSDT", 20), scoredResult("rsi_bb_vwap", "SOLUSDT", 70))

	entry, ok := before.Get("rsi_bb_vwap", "BTCUSDT")
	suite.True(ok)
	suite.Equal(60.0, entry.Result.CompositeScore)
	suite.Equal(1, before.Len())

	after := suite.registry.Snapshot()
	suite.Equal(2, after.Len())

	entries := after.Entries()
	suite.Equal("SOLUSDT", entries[0].Result.Symbol)
	suite.Equal("BTCUSDT", entries[1].Result.Symbol)
}

// Readers must see either every result of a publish or none of them.
func (suite *RegistryTestSuite) TestConcurrentReadersSeeWholeSnapshots() {
	const rounds = 200

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for i := 0; i < rounds; i++ {
			score := float64(i)
			suite.registry.Publish(
				scoredResult("a", "BTCUSDT", score),
				scoredResult("b", "BTCUSDT", score),
			)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < rounds; i++ {
				snapshot := suite.registry.Snapshot()
				a, okA := snapshot.Get("a", "BTCUSDT")
				b, okB := snapshot.Get("b", "BTCUSDT")

				if okA != okB || a.Result.CompositeScore != b.Result.CompositeScore {
					suite.Fail("torn snapshot")

					return
				}
			}
		}()
	}

	wg.Wait()
}
