package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

type Side string

type OrderType string

type OrderStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeMarket           OrderType = "MARKET"
	OrderTypeStopMarket       OrderType = "STOP_MARKET"
	OrderTypeTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	OrderStatusNotFound        OrderStatus = "NOT_FOUND"
	OrderStatusUnknown         OrderStatus = "UNKNOWN"
)

// EntrySide returns the order side that opens a position in direction d.
func EntrySide(d Direction) Side {
	if d == DirectionShort {
		return SideSell
	}

	return SideBuy
}

// ExitSide returns the order side that closes a position in direction d.
func ExitSide(d Direction) Side {
	if d == DirectionShort {
		return SideBuy
	}

	return SideSell
}

// OrderRequest is an order sent to the exchange.
type OrderRequest struct {
	Symbol        string    `yaml:"symbol" json:"symbol" validate:"required"`
	Side          Side      `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Type          OrderType `yaml:"type" json:"type" validate:"required,oneof=MARKET STOP_MARKET TAKE_PROFIT_MARKET"`
	Quantity      float64   `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	Leverage      int       `yaml:"leverage" json:"leverage" validate:"gte=1,lte=125"`
	ClientOrderID string    `yaml:"client_order_id" json:"client_order_id" validate:"required,max=36"`
	ReduceOnly    bool      `yaml:"reduce_only" json:"reduce_only"`
}

// Validate validates the OrderRequest struct.
func (o *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	return nil
}

// OrderResult is the exchange's view of an order.
type OrderResult struct {
	OrderID       string      `yaml:"order_id" json:"order_id"`
	ClientOrderID string      `yaml:"client_order_id" json:"client_order_id"`
	Status        OrderStatus `yaml:"status" json:"status"`
	FilledQty     float64     `yaml:"filled_qty" json:"filled_qty"`
	AvgPrice      float64     `yaml:"avg_price" json:"avg_price"`
}

// HasFill reports whether any quantity was executed.
func (r OrderResult) HasFill() bool {
	return r.FilledQty > 0
}

// IsTerminalWithoutFill reports whether the exchange confirmed the order can no longer fill and never did.
func (r OrderResult) IsTerminalWithoutFill() bool {
	switch r.Status {
	case OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired, OrderStatusNotFound:
		return r.FilledQty == 0
	case OrderStatusNew, OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusUnknown:
		return false
	default:
		return false
	}
}

// ProtectiveOrders are the exchange-side stop-loss and take-profit orders of an open position.
type ProtectiveOrders struct {
	Symbol          string  `yaml:"symbol" json:"symbol" validate:"required"`
	Side            Side    `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	StopLossPrice   float64 `yaml:"stop_loss_price" json:"stop_loss_price" validate:"required,gt=0"`
	TakeProfitPrice float64 `yaml:"take_profit_price" json:"take_profit_price" validate:"required,gt=0"`
	StopLossID      string  `yaml:"stop_loss_id" json:"stop_loss_id" validate:"required"`
	TakeProfitID    string  `yaml:"take_profit_id" json:"take_profit_id" validate:"required"`
}

// Validate validates the ProtectiveOrders struct.
func (p *ProtectiveOrders) Validate() error {
	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid protective orders", err)
	}

	return nil
}

// ExchangePosition is a position as reported by the exchange.
type ExchangePosition struct {
	Symbol     string    `yaml:"symbol" json:"symbol"`
	Direction  Direction `yaml:"direction" json:"direction"`
	Quantity   float64   `yaml:"quantity" json:"quantity"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price"`
	Leverage   int       `yaml:"leverage" json:"leverage"`
}

// SymbolRules are the exchange trading filters of a symbol.
type SymbolRules struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	// StepSize is the quantity increment. Zero means QuantityPrecision decimals.
	StepSize          float64 `yaml:"step_size" json:"step_size"`
	TickSize          float64 `yaml:"tick_size" json:"tick_size"`
	MinQty            float64 `yaml:"min_qty" json:"min_qty"`
	MinNotional       float64 `yaml:"min_notional" json:"min_notional"`
	QuantityPrecision int     `yaml:"quantity_precision" json:"quantity_precision"`
	PricePrecision    int     `yaml:"price_precision" json:"price_precision"`
}
