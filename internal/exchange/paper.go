package exchange

import (
	"context"
	"strconv"
	"sync"

	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/internal/utils"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaperConfig parameterizes the simulated exchange.
type PaperConfig struct {
	InitialBalance float64
	FeeRate        float64
	// Rules is returned for every symbol.
	Rules types.SymbolRules
}

type paperPosition struct {
	direction types.Direction
	quantity  decimal.Decimal
	entry     decimal.Decimal
	leverage  int
}

// Paper is an in-memory exchange that fills market orders at the latest price.
type Paper struct {
	prices PriceSource
	cfg    PaperConfig
	log    *logger.Logger

	mu         sync.Mutex
	balance    decimal.Decimal
	positions  map[string]*paperPosition
	orders     map[string]types.OrderResult
	protective map[string]types.ProtectiveOrders
	leverage   map[string]int
	nextID     int64
}

var _ Exchange = (*Paper)(nil)

// NewPaper creates a paper exchange priced by prices.
func NewPaper(prices PriceSource, cfg PaperConfig, log *logger.Logger) *Paper {
	return &Paper{
		prices:     prices,
		cfg:        cfg,
		log:        log,
		mu:         sync.Mutex{},
		balance:    decimal.NewFromFloat(cfg.InitialBalance),
		positions:  make(map[string]*paperPosition),
		orders:     make(map[string]types.OrderResult),
		protective: make(map[string]types.ProtectiveOrders),
		leverage:   make(map[string]int),
		nextID:     0,
	}
}

// SubmitOrder implements Exchange. Only market orders are supported.
func (p *Paper) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return types.OrderResult{}, errors.NewExchangeError(errors.ExchangeErrorRejected, 0, "invalid order request", err)
	}

	if req.Type != types.OrderTypeMarket {
		return types.OrderResult{}, errors.NewExchangeError(errors.ExchangeErrorRejected, 0,
			"paper exchange only fills market orders", nil)
	}

	price, err := p.prices.GetCurrentPrice(ctx, req.Symbol)
	if err != nil {
		return types.OrderResult{}, errors.NewExchangeError(errors.ExchangeErrorTimeout, 0, "no price for "+req.Symbol, err)
	}

	quantity := utils.RoundDownToStep(req.Quantity, p.cfg.Rules.StepSize, p.cfg.Rules.QuantityPrecision)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, dup := p.orders[req.ClientOrderID]; dup {
		return types.OrderResult{}, errors.NewExchangeError(errors.ExchangeErrorRejected, 0, "duplicate client order id", nil)
	}

	p.nextID++
	result := types.OrderResult{
		OrderID:       strconv.FormatInt(p.nextID, 10),
		ClientOrderID: req.ClientOrderID,
		Status:        types.OrderStatusFilled,
		FilledQty:     quantity,
		AvgPrice:      price,
	}

	if err := p.fill(req, decimal.NewFromFloat(quantity), decimal.NewFromFloat(price)); err != nil {
		result.Status = types.OrderStatusRejected
		result.FilledQty = 0
		result.AvgPrice = 0
		p.orders[req.ClientOrderID] = result

		return types.OrderResult{}, err
	}

	p.orders[req.ClientOrderID] = result

	p.log.Debug("Paper order filled",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
	)

	return result, nil
}

// fill applies an executed order to the simulated account. Caller holds mu.
func (p *Paper) fill(req types.OrderRequest, quantity, price decimal.Decimal) error {
	fee := quantity.Mul(price).Mul(decimal.NewFromFloat(p.cfg.FeeRate))
	position, open := p.positions[req.Symbol]

	if req.ReduceOnly {
		if !open || types.ExitSide(position.direction) != req.Side {
			return errors.NewExchangeError(errors.ExchangeErrorRejected, 0, "reduce-only order would open a position", nil)
		}

		closed := decimal.Min(quantity, position.quantity)
		pnl := types.RealizedPnLFor(position.direction, position.entry.InexactFloat64(), price.InexactFloat64(), closed.InexactFloat64())
		p.balance = p.balance.Add(pnl).Sub(fee)

		position.quantity = position.quantity.Sub(closed)
		if position.quantity.IsZero() {
			delete(p.positions, req.Symbol)
			delete(p.protective, req.Symbol)
		}

		return nil
	}

	if open {
		return errors.NewExchangeError(errors.ExchangeErrorRejected, 0, "paper exchange holds one position per symbol", nil)
	}

	leverage := req.Leverage
	if configured, ok := p.leverage[req.Symbol]; ok {
		leverage = configured
	}

	if leverage < 1 {
		leverage = 1
	}

	margin := quantity.Mul(price).Div(decimal.NewFromInt(int64(leverage)))
	if margin.Add(fee).GreaterThan(p.availableLocked()) {
		return errors.NewExchangeError(errors.ExchangeErrorRejected, 0, "insufficient margin", nil)
	}

	direction := types.DirectionLong
	if req.Side == types.SideSell {
		direction = types.DirectionShort
	}

	p.balance = p.balance.Sub(fee)
	p.positions[req.Symbol] = &paperPosition{
		direction: direction,
		quantity:  quantity,
		entry:     price,
		leverage:  leverage,
	}

	return nil
}

// availableLocked is the balance not used as margin. Caller holds mu.
func (p *Paper) availableLocked() decimal.Decimal {
	available := p.balance

	for _, position := range p.positions {
		margin := position.quantity.Mul(position.entry).Div(decimal.NewFromInt(int64(position.leverage)))
		available = available.Sub(margin)
	}

	return available
}

// QueryOrder implements Exchange.
func (p *Paper) QueryOrder(_ context.Context, _ string, clientOrderID string) (types.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result, ok := p.orders[clientOrderID]
	if !ok {
		return types.OrderResult{
			OrderID:       "",
			ClientOrderID: clientOrderID,
			Status:        types.OrderStatusNotFound,
			FilledQty:     0,
			AvgPrice:      0,
		}, nil
	}

	return result, nil
}

// CancelOpenOrders implements Exchange.
func (p *Paper) CancelOpenOrders(_ context.Context, symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.protective, symbol)

	return nil
}

// PlaceProtectiveOrders implements Exchange. Paper protective orders are
// recorded only; the position manager monitors the levels itself.
func (p *Paper) PlaceProtectiveOrders(_ context.Context, orders types.ProtectiveOrders) error {
	if err := orders.Validate(); err != nil {
		return errors.NewExchangeError(errors.ExchangeErrorRejected, 0, "invalid protective orders", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.positions[orders.Symbol]; !ok {
		return errors.NewExchangeError(errors.ExchangeErrorRejected, 0, "no position to protect", nil)
	}

	p.protective[orders.Symbol] = orders

	return nil
}

// Protective returns the protective orders recorded for symbol.
func (p *Paper) Protective(symbol string) (types.ProtectiveOrders, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	orders, ok := p.protective[symbol]

	return orders, ok
}

// GetBalance implements Exchange.
func (p *Paper) GetBalance(_ context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.availableLocked().InexactFloat64(), nil
}

// GetOpenPositions implements Exchange.
func (p *Paper) GetOpenPositions(_ context.Context) (map[string]types.ExchangePosition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	positions := make(map[string]types.ExchangePosition, len(p.positions))
	for symbol, position := range p.positions {
		positions[symbol] = types.ExchangePosition{
			Symbol:     symbol,
			Direction:  position.direction,
			Quantity:   position.quantity.InexactFloat64(),
			EntryPrice: position.entry.InexactFloat64(),
			Leverage:   position.leverage,
		}
	}

	return positions, nil
}

// PrepareSymbol implements Exchange.
func (p *Paper) PrepareSymbol(_ context.Context, symbol string, leverage int, _ config.MarginType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.leverage[symbol] = leverage

	return nil
}

// GetSymbolRules implements Exchange.
func (p *Paper) GetSymbolRules(_ context.Context, symbol string) (types.SymbolRules, error) {
	rules := p.cfg.Rules
	rules.Symbol = symbol

	return rules, nil
}
