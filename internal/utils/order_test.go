package utils

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsTestSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestRoundToDecimalPrecision() {
	suite.Equal(1.23, RoundToDecimalPrecision(1.239, 2))
	suite.Equal(1.0, RoundToDecimalPrecision(1.9, 0))
}

func (suite *UtilsTestSuite) TestRoundDownToStep() {
	tests := []struct {
		name      string
		quantity  float64
		step      float64
		precision int
		expected  float64
	}{
		{"btc step", 0.0015789, 0.001, 3, 0.001},
		{"whole step", 17.9, 1, 0, 17},
		{"exact multiple", 0.3, 0.1, 1, 0.3},
		{"falls back to precision", 1.2345, 0, 2, 1.23},
		{"zero quantity", 0, 0.001, 3, 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.expected, RoundDownToStep(tc.quantity, tc.step, tc.precision), 1e-12)
		})
	}
}

func (suite *UtilsTestSuite) TestRoundToTick() {
	suite.InDelta(101.5, RoundToTick(101.52, 0.1, 1), 1e-12)
	suite.InDelta(101.53, RoundToTick(101.526, 0, 2), 1e-12)
	suite.InDelta(0.0123, RoundToTick(0.01234, 0.0001, 4), 1e-12)
}

func (suite *UtilsTestSuite) TestCalculateQuantityForNotional() {
	// 150 USDT of BTC at 95000 with a 0.001 step
	suite.InDelta(0.001, CalculateQuantityForNotional(150, 95000, 0.001, 3), 1e-12)
	// 150 USDT at 100 with a 0.1 step
	suite.InDelta(1.5, CalculateQuantityForNotional(150, 100, 0.1, 1), 1e-12)
	suite.Equal(0.0, CalculateQuantityForNotional(150, 0, 0.1, 1))
}
