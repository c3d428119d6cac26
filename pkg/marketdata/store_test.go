package marketdata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/marketdata/writer"
	"github.com/stretchr/testify/suite"
)

type ParquetStoreTestSuite struct {
	suite.Suite
	store *ParquetStore
	path  string
}

func TestParquetStoreSuite(t *testing.T) {
	suite.Run(t, new(ParquetStoreTestSuite))
}

func (suite *ParquetStoreTestSuite) SetupTest() {
	store, err := NewParquetStore(nil)
	suite.Require().NoError(err)
	suite.store = store

	suite.path = filepath.Join(suite.T().TempDir(), "bars.parquet")
	w := writer.NewDuckDBWriter(suite.path, nil)
	suite.Require().NoError(w.Initialize())

	for i := 0; i < 10; i++ {
		bar := types.Bar{
			Time:   baseTime.Add(time.Duration(i) * time.Hour),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100 + float64(i),
			Volume: 10,
		}
		suite.Require().NoError(w.Write("BTCUSDT", bar))
		suite.Require().NoError(w.Write("ETHUSDT", bar))
	}

	_, err = w.Finalize()
	suite.Require().NoError(err)
	suite.Require().NoError(w.Close())
}

func (suite *ParquetStoreTestSuite) TearDownTest() {
	suite.store.Close()
}

func (suite *ParquetStoreTestSuite) TestLoadBars() {
	bars, err := suite.store.LoadBars(context.Background(), suite.path, "BTCUSDT",
		optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)

	suite.Len(bars, 10)
	suite.True(bars[0].Time.Equal(baseTime))
	suite.Equal(109.0, bars[9].Close)
}

func (suite *ParquetStoreTestSuite) TestLoadBarsRange() {
	bars, err := suite.store.LoadBars(context.Background(), suite.path, "ETHUSDT",
		optional.Some(baseTime.Add(2*time.Hour)), optional.Some(baseTime.Add(5*time.Hour)))
	suite.Require().NoError(err)

	suite.Len(bars, 4)
	suite.Equal(102.0, bars[0].Close)
}

func (suite *ParquetStoreTestSuite) TestUnknownSymbolIsEmpty() {
	bars, err := suite.store.LoadBars(context.Background(), suite.path, "SOLUSDT",
		optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Empty(bars)
}

func (suite *ParquetStoreTestSuite) TestSymbols() {
	symbols, err := suite.store.Symbols(context.Background(), suite.path)
	suite.Require().NoError(err)
	suite.Equal([]string{"BTCUSDT", "ETHUSDT"}, symbols)
}

func (suite *ParquetStoreTestSuite) TestMissingFile() {
	_, err := suite.store.LoadBars(context.Background(), filepath.Join(suite.T().TempDir(), "missing.parquet"), "BTCUSDT",
		optional.None[time.Time](), optional.None[time.Time]())
	suite.Error(err)
}
