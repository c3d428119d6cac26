// Package exchange adapts order execution venues to the decision core.
//
// Every failure is returned as *errors.ExchangeError so callers can route on
// its Kind: AUTH and MAINTENANCE halt submissions, RATE_LIMIT backs off,
// REJECTED and TIMEOUT fail the position.
package exchange

import (
	"context"

	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Exchange is the execution interface of a futures venue.
type Exchange interface {
	// SubmitOrder sends an order and returns the venue's immediate view of it.
	SubmitOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)
	// QueryOrder looks an order up by client order id. An order the venue
	// never saw is reported with status NOT_FOUND and no error.
	QueryOrder(ctx context.Context, symbol, clientOrderID string) (types.OrderResult, error)
	// CancelOpenOrders cancels every open order of symbol, protective orders included.
	CancelOpenOrders(ctx context.Context, symbol string) error
	// PlaceProtectiveOrders attaches stop-loss and take-profit orders that close the position.
	PlaceProtectiveOrders(ctx context.Context, orders types.ProtectiveOrders) error
	// GetBalance returns the available quote balance.
	GetBalance(ctx context.Context) (float64, error)
	// GetOpenPositions returns the non-flat positions keyed by symbol.
	GetOpenPositions(ctx context.Context) (map[string]types.ExchangePosition, error)
	// PrepareSymbol sets leverage and margin type before the first order.
	PrepareSymbol(ctx context.Context, symbol string, leverage int, marginType config.MarginType) error
	// GetSymbolRules returns the trading filters of symbol.
	GetSymbolRules(ctx context.Context, symbol string) (types.SymbolRules, error)
}

// PriceSource provides the latest trade price. marketdata.Provider satisfies it.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}
