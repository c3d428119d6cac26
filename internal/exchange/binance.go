package exchange

import (
	"context"
	stderrors "errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/internal/utils"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

// Binance futures API error codes.
const (
	codeDisconnected         = -1001
	codeTooManyRequests      = -1003
	codeTimeout              = -1007
	codeTooManyOrders        = -1015
	codeServiceShuttingDown  = -1016
	codeInvalidSignature     = -1022
	codeInvalidAPIKeyOrIP    = -2008
	codeNoSuchOrder          = -2013
	codeRejectedMBXKey       = -2014
	codeRejectedAPIKey       = -2015
	codeNoNeedToChangeLevel  = -4028
	codeNoNeedToChangeMargin = -4046
)

const (
	defaultQuantityPrecision = 3
	defaultPricePrecision    = 2
	// BinanceFuturesTestnetURL is the USDT-M futures testnet endpoint.
	BinanceFuturesTestnetURL = "https://testnet.binancefuture.com"
)

// BinanceFuturesConfig carries the credentials and endpoint of the USDT-M futures API.
type BinanceFuturesConfig struct {
	APIKey         string
	SecretKey      string
	Testnet        bool
	BaseURL        string
	RequestTimeout time.Duration
}

// NewBinanceFuturesConfig extracts the adapter settings from the run configuration.
func NewBinanceFuturesConfig(cfg config.ExchangeConfig) BinanceFuturesConfig {
	return BinanceFuturesConfig{
		APIKey:         cfg.APIKey,
		SecretKey:      cfg.SecretKey,
		Testnet:        cfg.Testnet,
		BaseURL:        cfg.BaseURL,
		RequestTimeout: cfg.RequestTimeout,
	}
}

// BinanceFutures executes orders on Binance USDT-M futures.
type BinanceFutures struct {
	client  BinanceFuturesClient
	timeout time.Duration
	log     *logger.Logger

	rulesMu sync.RWMutex
	rules   map[string]types.SymbolRules
}

var _ Exchange = (*BinanceFutures)(nil)

// NewBinanceFutures creates a Binance futures adapter. BaseURL takes precedence over Testnet.
func NewBinanceFutures(cfg BinanceFuturesConfig, log *logger.Logger) *BinanceFutures {
	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.Testnet:
		client.BaseURL = BinanceFuturesTestnetURL
	}

	return NewBinanceFuturesWithClient(&realFuturesClient{client: client}, cfg.RequestTimeout, log)
}

// NewBinanceFuturesWithClient creates an adapter over a custom client. Used by tests.
func NewBinanceFuturesWithClient(client BinanceFuturesClient, timeout time.Duration, log *logger.Logger) *BinanceFutures {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &BinanceFutures{
		client:  client,
		timeout: timeout,
		log:     log,
		rulesMu: sync.RWMutex{},
		rules:   make(map[string]types.SymbolRules),
	}
}

// SubmitOrder implements Exchange.
func (b *BinanceFutures) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return types.OrderResult{}, errors.NewExchangeError(errors.ExchangeErrorRejected, 0, "invalid order request", err)
	}

	rules, err := b.GetSymbolRules(ctx, req.Symbol)
	if err != nil {
		return types.OrderResult{}, err
	}

	quantity := utils.RoundDownToStep(req.Quantity, rules.StepSize, rules.QuantityPrecision)
	if quantity <= 0 {
		return types.OrderResult{}, errors.NewExchangeError(errors.ExchangeErrorRejected, 0,
			"quantity is zero after rounding to the symbol step", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	service := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderType(req.Type)).
		Quantity(formatNumber(quantity, rules.QuantityPrecision)).
		NewClientOrderID(req.ClientOrderID)

	if req.ReduceOnly {
		service = service.ReduceOnly(true)
	}

	resp, err := service.Do(ctx)
	if err != nil {
		return types.OrderResult{}, classifyError("submit order", err)
	}

	return types.OrderResult{
		OrderID:       strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		Status:        types.OrderStatus(resp.Status),
		FilledQty:     parseFloat(resp.ExecutedQuantity),
		AvgPrice:      parseFloat(resp.AvgPrice),
	}, nil
}

// QueryOrder implements Exchange.
func (b *BinanceFutures) QueryOrder(ctx context.Context, symbol, clientOrderID string) (types.OrderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	order, err := b.client.NewGetOrderService().Symbol(symbol).OrigClientOrderID(clientOrderID).Do(ctx)
	if err != nil {
		if apiCode(err) == codeNoSuchOrder {
			return types.OrderResult{
				OrderID:       "",
				ClientOrderID: clientOrderID,
				Status:        types.OrderStatusNotFound,
				FilledQty:     0,
				AvgPrice:      0,
			}, nil
		}

		return types.OrderResult{}, classifyError("query order", err)
	}

	return types.OrderResult{
		OrderID:       strconv.FormatInt(order.OrderID, 10),
		ClientOrderID: order.ClientOrderID,
		Status:        types.OrderStatus(order.Status),
		FilledQty:     parseFloat(order.ExecutedQuantity),
		AvgPrice:      parseFloat(order.AvgPrice),
	}, nil
}

// CancelOpenOrders implements Exchange.
func (b *BinanceFutures) CancelOpenOrders(ctx context.Context, symbol string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.client.NewCancelAllOpenOrdersService().Symbol(symbol).Do(ctx); err != nil {
		return classifyError("cancel open orders", err)
	}

	return nil
}

// PlaceProtectiveOrders implements Exchange with STOP_MARKET and
// TAKE_PROFIT_MARKET orders that close the whole position at mark price.
func (b *BinanceFutures) PlaceProtectiveOrders(ctx context.Context, orders types.ProtectiveOrders) error {
	if err := orders.Validate(); err != nil {
		return errors.NewExchangeError(errors.ExchangeErrorRejected, 0, "invalid protective orders", err)
	}

	rules, err := b.GetSymbolRules(ctx, orders.Symbol)
	if err != nil {
		return err
	}

	legs := []struct {
		orderType futures.OrderType
		price     float64
		id        string
	}{
		{futures.OrderTypeStopMarket, orders.StopLossPrice, orders.StopLossID},
		{futures.OrderTypeTakeProfitMarket, orders.TakeProfitPrice, orders.TakeProfitID},
	}

	for _, leg := range legs {
		price := utils.RoundToTick(leg.price, rules.TickSize, rules.PricePrecision)

		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		_, err := b.client.NewCreateOrderService().
			Symbol(orders.Symbol).
			Side(futures.SideType(orders.Side)).
			Type(leg.orderType).
			StopPrice(formatNumber(price, rules.PricePrecision)).
			ClosePosition(true).
			WorkingType(futures.WorkingTypeMarkPrice).
			NewClientOrderID(leg.id).
			Do(callCtx)

		cancel()

		if err != nil {
			return classifyError("place "+string(leg.orderType), err)
		}
	}

	return nil
}

// GetBalance implements Exchange. It returns the available USDT balance.
func (b *BinanceFutures) GetBalance(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	balances, err := b.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return 0, classifyError("get balance", err)
	}

	for _, balance := range balances {
		if balance.Asset == "USDT" {
			return parseFloat(balance.AvailableBalance), nil
		}
	}

	return 0, nil
}

// GetOpenPositions implements Exchange.
func (b *BinanceFutures) GetOpenPositions(ctx context.Context) (map[string]types.ExchangePosition, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	risks, err := b.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, classifyError("get positions", err)
	}

	positions := make(map[string]types.ExchangePosition)

	for _, risk := range risks {
		amount := parseFloat(risk.PositionAmt)
		if amount == 0 {
			continue
		}

		direction := types.DirectionLong
		if amount < 0 {
			direction = types.DirectionShort
			amount = -amount
		}

		leverage, _ := strconv.Atoi(risk.Leverage)

		positions[risk.Symbol] = types.ExchangePosition{
			Symbol:     risk.Symbol,
			Direction:  direction,
			Quantity:   amount,
			EntryPrice: parseFloat(risk.EntryPrice),
			Leverage:   leverage,
		}
	}

	return positions, nil
}

// PrepareSymbol implements Exchange. A margin type or leverage that is
// already set is not an error.
func (b *BinanceFutures) PrepareSymbol(ctx context.Context, symbol string, leverage int, marginType config.MarginType) error {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	err := b.client.NewChangeMarginTypeService().Symbol(symbol).MarginType(futures.MarginType(marginType)).Do(callCtx)

	cancel()

	if err != nil && !isNoChange(err) {
		return classifyError("change margin type", err)
	}

	callCtx, cancel = context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if _, err := b.client.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(callCtx); err != nil && !isNoChange(err) {
		return classifyError("change leverage", err)
	}

	b.log.Debug("Prepared symbol",
		zap.String("symbol", symbol),
		zap.Int("leverage", leverage),
		zap.String("margin_type", string(marginType)),
	)

	return nil
}

// GetSymbolRules implements Exchange. Exchange info is fetched once and cached.
func (b *BinanceFutures) GetSymbolRules(ctx context.Context, symbol string) (types.SymbolRules, error) {
	b.rulesMu.RLock()
	rules, ok := b.rules[symbol]
	b.rulesMu.RUnlock()

	if ok {
		return rules, nil
	}

	if err := b.loadRules(ctx); err != nil {
		return types.SymbolRules{}, err
	}

	b.rulesMu.RLock()
	defer b.rulesMu.RUnlock()

	rules, ok = b.rules[symbol]
	if !ok {
		return types.SymbolRules{}, errors.NewExchangeError(errors.ExchangeErrorRejected, 0, "unknown symbol "+symbol, nil)
	}

	return rules, nil
}

func (b *BinanceFutures) loadRules(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	info, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return classifyError("get exchange info", err)
	}

	rules := make(map[string]types.SymbolRules, len(info.Symbols))
	for _, s := range info.Symbols {
		rules[s.Symbol] = symbolRules(s)
	}

	b.rulesMu.Lock()
	b.rules = rules
	b.rulesMu.Unlock()

	return nil
}

func symbolRules(s futures.Symbol) types.SymbolRules {
	rules := types.SymbolRules{
		Symbol:            s.Symbol,
		StepSize:          0,
		TickSize:          0,
		MinQty:            0,
		MinNotional:       0,
		QuantityPrecision: s.QuantityPrecision,
		PricePrecision:    s.PricePrecision,
	}

	if lot := s.LotSizeFilter(); lot != nil {
		rules.StepSize = parseFloat(lot.StepSize)
		rules.MinQty = parseFloat(lot.MinQuantity)
	}

	if price := s.PriceFilter(); price != nil {
		rules.TickSize = parseFloat(price.TickSize)
	}

	if notional := s.MinNotionalFilter(); notional != nil {
		rules.MinNotional = parseFloat(notional.Notional)
	}

	if rules.QuantityPrecision == 0 && rules.StepSize == 0 {
		rules.QuantityPrecision = defaultQuantityPrecision
	}

	if rules.PricePrecision == 0 && rules.TickSize == 0 {
		rules.PricePrecision = defaultPricePrecision
	}

	return rules
}

// classifyError maps a Binance client error onto an ExchangeError kind.
func classifyError(op string, err error) *errors.ExchangeError {
	if exErr, ok := errors.AsExchangeError(err); ok {
		return exErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewExchangeError(errors.ExchangeErrorTimeout, 0, op+" timed out", err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewExchangeError(errors.ExchangeErrorTimeout, 0, op+" timed out", err)
	}

	code := apiCode(err)

	switch code {
	case codeRejectedMBXKey, codeRejectedAPIKey, codeInvalidSignature, codeInvalidAPIKeyOrIP:
		return errors.NewExchangeError(errors.ExchangeErrorAuth, int(code), op+" was not authorized", err)
	case codeTooManyRequests, codeTooManyOrders:
		return errors.NewExchangeError(errors.ExchangeErrorRateLimit, int(code), op+" was rate limited", err)
	case codeTimeout:
		return errors.NewExchangeError(errors.ExchangeErrorTimeout, int(code), op+" timed out on the exchange", err)
	case codeDisconnected, codeServiceShuttingDown:
		return errors.NewExchangeError(errors.ExchangeErrorMaintenance, int(code), op+" failed: exchange unavailable", err)
	}

	message := err.Error()

	switch {
	case strings.Contains(message, "429") || strings.Contains(message, "418"):
		return errors.NewExchangeError(errors.ExchangeErrorRateLimit, int(code), op+" was rate limited", err)
	case strings.Contains(message, "503"):
		return errors.NewExchangeError(errors.ExchangeErrorMaintenance, int(code), op+" failed: exchange unavailable", err)
	}

	return errors.NewExchangeError(errors.ExchangeErrorRejected, int(code), op+" was rejected", err)
}

// apiCode returns the Binance error code of err, or 0 when err is not an API error.
func apiCode(err error) int64 {
	var apiErr *common.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}

	return 0
}

func isNoChange(err error) bool {
	code := apiCode(err)

	return code == codeNoNeedToChangeMargin || code == codeNoNeedToChangeLevel ||
		strings.Contains(err.Error(), "No need to change")
}

func formatNumber(value float64, precision int) string {
	if precision <= 0 {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	return strconv.FormatFloat(value, 'f', precision, 64)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return v
}
