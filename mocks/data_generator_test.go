package mocks

import (
	"testing"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/stretchr/testify/suite"
)

type DataGeneratorTestSuite struct {
	suite.Suite
}

func TestDataGeneratorSuite(t *testing.T) {
	suite.Run(t, new(DataGeneratorTestSuite))
}

func (suite *DataGeneratorTestSuite) TestGenerate() {
	config := DefaultConfig()
	config.Count = 200

	bars := NewDataGenerator(42).Generate(config)
	suite.Len(bars, 200)
	suite.NoError(types.ValidateBars(bars))

	for i, bar := range bars {
		suite.Positive(bar.Low, "bar %d", i)
		suite.GreaterOrEqual(bar.High, bar.Low, "bar %d", i)
		suite.GreaterOrEqual(bar.High, bar.Open, "bar %d", i)
		suite.GreaterOrEqual(bar.High, bar.Close, "bar %d", i)
		suite.LessOrEqual(bar.Low, bar.Open, "bar %d", i)
		suite.Positive(bar.Volume, "bar %d", i)

		if i > 0 {
			suite.Equal(config.Interval, bar.Time.Sub(bars[i-1].Time))
		}
	}
}

func (suite *DataGeneratorTestSuite) TestReproducible() {
	config := DefaultConfig()
	config.Count = 50

	suite.Equal(NewDataGenerator(7).Generate(config), NewDataGenerator(7).Generate(config))
	suite.NotEqual(NewDataGenerator(7).Generate(config), NewDataGenerator(8).Generate(config))
	suite.Equal(GenerateSeries(30), GenerateSeries(30))
}

func (suite *DataGeneratorTestSuite) TestTrend() {
	config := DefaultConfig()
	config.Count = 500
	config.Volatility = 0.0001
	config.Trend = 0.5

	bars := NewDataGenerator(1).Generate(config)
	suite.Greater(bars[len(bars)-1].Close, bars[0].Open*1.4)
}

func (suite *DataGeneratorTestSuite) TestMultiSymbol() {
	config := DefaultConfig()
	config.Count = 20

	series := NewDataGenerator(3).GenerateMultiSymbol([]string{"BTCUSDT", "ETHUSDT"}, config)
	suite.Len(series, 2)
	suite.Len(series["BTCUSDT"], 20)
	suite.Len(series["ETHUSDT"], 20)
	suite.NotEqual(series["BTCUSDT"][0].Open, series["ETHUSDT"][0].Open)
}
