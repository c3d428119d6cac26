package exchange

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	argoerrors "github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// mockFuturesClient implements BinanceFuturesClient for testing.
type mockFuturesClient struct {
	orders      []*mockCreateOrderService
	createResp  *futures.CreateOrderResponse
	createErr   error
	order       *futures.Order
	orderErr    error
	queried     []string
	cancelled   []string
	cancelErr   error
	balances    []*futures.Balance
	balanceErr  error
	risks       []*futures.PositionRisk
	marginErr   error
	leverageErr error
	leverage    map[string]int
	info        *futures.ExchangeInfo
	infoCalls   int
}

func (m *mockFuturesClient) NewCreateOrderService() CreateOrderService {
	service := &mockCreateOrderService{client: m}
	m.orders = append(m.orders, service)

	return service
}

func (m *mockFuturesClient) NewGetOrderService() GetOrderService {
	return &mockGetOrderService{client: m}
}

func (m *mockFuturesClient) NewCancelAllOpenOrdersService() CancelAllOpenOrdersService {
	return &mockCancelService{client: m}
}

func (m *mockFuturesClient) NewGetBalanceService() GetBalanceService {
	return &mockBalanceService{client: m}
}

func (m *mockFuturesClient) NewGetPositionRiskService() GetPositionRiskService {
	return &mockPositionRiskService{client: m}
}

func (m *mockFuturesClient) NewChangeLeverageService() ChangeLeverageService {
	return &mockLeverageService{client: m}
}

func (m *mockFuturesClient) NewChangeMarginTypeService() ChangeMarginTypeService {
	return &mockMarginService{client: m}
}

func (m *mockFuturesClient) NewExchangeInfoService() ExchangeInfoService {
	return &mockInfoService{client: m}
}

type mockCreateOrderService struct {
	client        *mockFuturesClient
	symbol        string
	side          futures.SideType
	orderType     futures.OrderType
	quantity      string
	reduceOnly    bool
	stopPrice     string
	closePosition bool
	workingType   futures.WorkingType
	clientID      string
}

func (s *mockCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.symbol = symbol

	return s
}

func (s *mockCreateOrderService) Side(side futures.SideType) CreateOrderService {
	s.side = side

	return s
}

func (s *mockCreateOrderService) Type(orderType futures.OrderType) CreateOrderService {
	s.orderType = orderType

	return s
}

func (s *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.quantity = quantity

	return s
}

func (s *mockCreateOrderService) ReduceOnly(reduceOnly bool) CreateOrderService {
	s.reduceOnly = reduceOnly

	return s
}

func (s *mockCreateOrderService) StopPrice(stopPrice string) CreateOrderService {
	s.stopPrice = stopPrice

	return s
}

func (s *mockCreateOrderService) ClosePosition(closePosition bool) CreateOrderService {
	s.closePosition = closePosition

	return s
}

func (s *mockCreateOrderService) WorkingType(workingType futures.WorkingType) CreateOrderService {
	s.workingType = workingType

	return s
}

func (s *mockCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.clientID = id

	return s
}

func (s *mockCreateOrderService) Do(_ context.Context) (*futures.CreateOrderResponse, error) {
	if s.client.createErr != nil {
		return nil, s.client.createErr
	}

	if s.client.createResp != nil {
		return s.client.createResp, nil
	}

	return &futures.CreateOrderResponse{OrderID: int64(len(s.client.orders)), ClientOrderID: s.clientID, Status: futures.OrderStatusTypeNew}, nil
}

type mockGetOrderService struct {
	client   *mockFuturesClient
	clientID string
}

func (s *mockGetOrderService) Symbol(string) GetOrderService { return s }

func (s *mockGetOrderService) OrigClientOrderID(id string) GetOrderService {
	s.clientID = id

	return s
}

func (s *mockGetOrderService) Do(_ context.Context) (*futures.Order, error) {
	s.client.queried = append(s.client.queried, s.clientID)

	return s.client.order, s.client.orderErr
}

type mockCancelService struct {
	client *mockFuturesClient
	symbol string
}

func (s *mockCancelService) Symbol(symbol string) CancelAllOpenOrdersService {
	s.symbol = symbol

	return s
}

func (s *mockCancelService) Do(_ context.Context) error {
	s.client.cancelled = append(s.client.cancelled, s.symbol)

	return s.client.cancelErr
}

type mockBalanceService struct{ client *mockFuturesClient }

func (s *mockBalanceService) Do(_ context.Context) ([]*futures.Balance, error) {
	return s.client.balances, s.client.balanceErr
}

type mockPositionRiskService struct{ client *mockFuturesClient }

func (s *mockPositionRiskService) Do(_ context.Context) ([]*futures.PositionRisk, error) {
	return s.client.risks, nil
}

type mockLeverageService struct {
	client   *mockFuturesClient
	symbol   string
	leverage int
}

func (s *mockLeverageService) Symbol(symbol string) ChangeLeverageService {
	s.symbol = symbol

	return s
}

func (s *mockLeverageService) Leverage(leverage int) ChangeLeverageService {
	s.leverage = leverage

	return s
}

func (s *mockLeverageService) Do(_ context.Context) (*futures.SymbolLeverage, error) {
	if s.client.leverageErr != nil {
		return nil, s.client.leverageErr
	}

	s.client.leverage[s.symbol] = s.leverage

	return &futures.SymbolLeverage{Symbol: s.symbol, Leverage: s.leverage}, nil
}

type mockMarginService struct{ client *mockFuturesClient }

func (s *mockMarginService) Symbol(string) ChangeMarginTypeService { return s }

func (s *mockMarginService) MarginType(futures.MarginType) ChangeMarginTypeService { return s }

func (s *mockMarginService) Do(_ context.Context) error {
	return s.client.marginErr
}

type mockInfoService struct{ client *mockFuturesClient }

func (s *mockInfoService) Do(_ context.Context) (*futures.ExchangeInfo, error) {
	s.client.infoCalls++

	return s.client.info, nil
}

func btcInfo() *futures.ExchangeInfo {
	return &futures.ExchangeInfo{
		Symbols: []futures.Symbol{{
			Symbol:            "BTCUSDT",
			QuantityPrecision: 3,
			PricePrecision:    1,
			Filters: []map[string]interface{}{
				{"filterType": "LOT_SIZE", "stepSize": "0.001", "minQty": "0.001", "maxQty": "1000"},
				{"filterType": "PRICE_FILTER", "tickSize": "0.10", "minPrice": "556.80", "maxPrice": "4529764"},
				{"filterType": "MIN_NOTIONAL", "notional": "100"},
			},
		}},
	}
}

type BinanceFuturesTestSuite struct {
	suite.Suite
	client   *mockFuturesClient
	exchange *BinanceFutures
}

func TestBinanceFuturesSuite(t *testing.T) {
	suite.Run(t, new(BinanceFuturesTestSuite))
}

func (suite *BinanceFuturesTestSuite) SetupTest() {
	suite.client = &mockFuturesClient{
		leverage: make(map[string]int),
		info:     btcInfo(),
	}
	suite.exchange = NewBinanceFuturesWithClient(suite.client, time.Second, logger.NewNopLogger())
}

func (suite *BinanceFuturesTestSuite) TestSymbolRulesAreCached() {
	rules, err := suite.exchange.GetSymbolRules(context.Background(), "BTCUSDT")
	suite.Require().NoError(err)

	suite.Equal(0.001, rules.StepSize)
	suite.Equal(0.1, rules.TickSize)
	suite.Equal(0.001, rules.MinQty)
	suite.Equal(100.0, rules.MinNotional)
	suite.Equal(3, rules.QuantityPrecision)

	_, err = suite.exchange.GetSymbolRules(context.Background(), "BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal(1, suite.client.infoCalls)

	_, err = suite.exchange.GetSymbolRules(context.Background(), "NOPEUSDT")
	suite.True(argoerrors.IsExchangeErrorKind(err, argoerrors.ExchangeErrorRejected))
}

func (suite *BinanceFuturesTestSuite) TestSubmitOrderRoundsQuantity() {
	suite.client.createResp = &futures.CreateOrderResponse{
		OrderID:          42,
		ClientOrderID:    "af-abc",
		Status:           futures.OrderStatusTypeFilled,
		ExecutedQuantity: "0.002",
		AvgPrice:         "60000.5",
	}

	result, err := suite.exchange.SubmitOrder(context.Background(), types.OrderRequest{
		Symbol:        "BTCUSDT",
		Side:          types.SideBuy,
		Type:          types.OrderTypeMarket,
		Quantity:      0.0025,
		Leverage:      10,
		ClientOrderID: "af-abc",
		ReduceOnly:    false,
	})
	suite.Require().NoError(err)

	suite.Equal("42", result.OrderID)
	suite.Equal(types.OrderStatusFilled, result.Status)
	suite.Equal(0.002, result.FilledQty)
	suite.Equal(60000.5, result.AvgPrice)

	sent := suite.client.orders[0]
	suite.Equal("0.002", sent.quantity)
	suite.Equal(futures.SideTypeBuy, sent.side)
	suite.Equal(futures.OrderTypeMarket, sent.orderType)
	suite.Equal("af-abc", sent.clientID)
	suite.False(sent.reduceOnly)
}

func (suite *BinanceFuturesTestSuite) TestSubmitOrderRejectsInvalidRequest() {
	_, err := suite.exchange.SubmitOrder(context.Background(), types.OrderRequest{Symbol: "BTCUSDT"})
	suite.True(argoerrors.IsExchangeErrorKind(err, argoerrors.ExchangeErrorRejected))
	suite.Empty(suite.client.orders)
}

func (suite *BinanceFuturesTestSuite) TestErrorClassification() {
	tests := []struct {
		name string
		err  error
		kind argoerrors.ExchangeErrorKind
	}{
		{"invalid api key", &common.APIError{Code: -2015, Message: "Invalid API-key"}, argoerrors.ExchangeErrorAuth},
		{"bad signature", &common.APIError{Code: -1022, Message: "Signature invalid"}, argoerrors.ExchangeErrorAuth},
		{"too many requests", &common.APIError{Code: -1003, Message: "Too many requests"}, argoerrors.ExchangeErrorRateLimit},
		{"too many orders", &common.APIError{Code: -1015, Message: "Too many new orders"}, argoerrors.ExchangeErrorRateLimit},
		{"exchange timeout", &common.APIError{Code: -1007, Message: "Timeout waiting for response"}, argoerrors.ExchangeErrorTimeout},
		{"disconnected", &common.APIError{Code: -1001, Message: "Internal error"}, argoerrors.ExchangeErrorMaintenance},
		{"insufficient margin", &common.APIError{Code: -2019, Message: "Margin is insufficient"}, argoerrors.ExchangeErrorRejected},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), argoerrors.ExchangeErrorTimeout},
		{"http 503", errors.New("<APIError> code=0, msg=503 Service Unavailable"), argoerrors.ExchangeErrorMaintenance},
		{"http 429", errors.New("status 429"), argoerrors.ExchangeErrorRateLimit},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.client.createErr = tt.err
			suite.client.createResp = nil

			_, err := suite.exchange.SubmitOrder(context.Background(), types.OrderRequest{
				Symbol:        "BTCUSDT",
				Side:          types.SideSell,
				Type:          types.OrderTypeMarket,
				Quantity:      0.01,
				Leverage:      5,
				ClientOrderID: "af-1",
				ReduceOnly:    true,
			})

			exErr, ok := argoerrors.AsExchangeError(err)
			suite.Require().True(ok)
			suite.Equal(tt.kind, exErr.Kind)
		})
	}
}

func (suite *BinanceFuturesTestSuite) TestQueryOrder() {
	suite.client.order = &futures.Order{
		OrderID:          7,
		ClientOrderID:    "af-q",
		Status:           futures.OrderStatusTypeCanceled,
		ExecutedQuantity: "0",
		AvgPrice:         "0",
	}

	result, err := suite.exchange.QueryOrder(context.Background(), "BTCUSDT", "af-q")
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusCanceled, result.Status)
	suite.True(result.IsTerminalWithoutFill())
	suite.Equal([]string{"af-q"}, suite.client.queried)
}

func (suite *BinanceFuturesTestSuite) TestQueryUnknownOrderIsNotFound() {
	suite.client.orderErr = &common.APIError{Code: -2013, Message: "Order does not exist."}

	result, err := suite.exchange.QueryOrder(context.Background(), "BTCUSDT", "af-missing")
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusNotFound, result.Status)
	suite.Equal("af-missing", result.ClientOrderID)
}

func (suite *BinanceFuturesTestSuite) TestPlaceProtectiveOrders() {
	err := suite.exchange.PlaceProtectiveOrders(context.Background(), types.ProtectiveOrders{
		Symbol:          "BTCUSDT",
		Side:            types.SideSell,
		StopLossPrice:   59100.04,
		TakeProfitPrice: 61200.06,
		StopLossID:      "af-sl",
		TakeProfitID:    "af-tp",
	})
	suite.Require().NoError(err)
	suite.Require().Len(suite.client.orders, 2)

	stop := suite.client.orders[0]
	suite.Equal(futures.OrderTypeStopMarket, stop.orderType)
	suite.Equal("59100.0", stop.stopPrice)
	suite.True(stop.closePosition)
	suite.Equal(futures.WorkingTypeMarkPrice, stop.workingType)
	suite.Equal("af-sl", stop.clientID)

	take := suite.client.orders[1]
	suite.Equal(futures.OrderTypeTakeProfitMarket, take.orderType)
	suite.Equal("61200.1", take.stopPrice)
	suite.Equal(futures.SideTypeSell, take.side)
}

func (suite *BinanceFuturesTestSuite) TestBalanceAndPositions() {
	suite.client.balances = []*futures.Balance{
		{Asset: "BNB", AvailableBalance: "3"},
		{Asset: "USDT", AvailableBalance: "123.45"},
	}
	suite.client.risks = []*futures.PositionRisk{
		{Symbol: "BTCUSDT", PositionAmt: "-0.010", EntryPrice: "60000", Leverage: "10"},
		{Symbol: "ETHUSDT", PositionAmt: "0.000", EntryPrice: "0", Leverage: "10"},
	}

	balance, err := suite.exchange.GetBalance(context.Background())
	suite.Require().NoError(err)
	suite.Equal(123.45, balance)

	positions, err := suite.exchange.GetOpenPositions(context.Background())
	suite.Require().NoError(err)
	suite.Require().Len(positions, 1)
	suite.Equal(types.DirectionShort, positions["BTCUSDT"].Direction)
	suite.Equal(0.01, positions["BTCUSDT"].Quantity)
	suite.Equal(10, positions["BTCUSDT"].Leverage)
}

func (suite *BinanceFuturesTestSuite) TestPrepareSymbolToleratesNoChange() {
	suite.client.marginErr = &common.APIError{Code: -4046, Message: "No need to change margin type."}

	err := suite.exchange.PrepareSymbol(context.Background(), "BTCUSDT", 20, config.MarginTypeIsolated)
	suite.Require().NoError(err)
	suite.Equal(20, suite.client.leverage["BTCUSDT"])

	suite.client.leverageErr = &common.APIError{Code: -2015, Message: "Invalid API-key"}
	err = suite.exchange.PrepareSymbol(context.Background(), "BTCUSDT", 20, config.MarginTypeIsolated)
	suite.True(argoerrors.IsExchangeErrorKind(err, argoerrors.ExchangeErrorAuth))
}

func (suite *BinanceFuturesTestSuite) TestCancelOpenOrders() {
	suite.Require().NoError(suite.exchange.CancelOpenOrders(context.Background(), "BTCUSDT"))
	suite.Equal([]string{"BTCUSDT"}, suite.client.cancelled)

	suite.client.cancelErr = &common.APIError{Code: -1003, Message: "Too many requests"}
	err := suite.exchange.CancelOpenOrders(context.Background(), "BTCUSDT")
	suite.True(argoerrors.IsExchangeErrorKind(err, argoerrors.ExchangeErrorRateLimit))
}
