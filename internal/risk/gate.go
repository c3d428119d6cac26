// Package risk validates every transition that could commit capital.
//
// The gate is pure: it reads an immutable RiskConfig and the facts handed to
// it and returns either a value or a RiskRejectedError. It never talks to the
// exchange.
package risk

import (
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/internal/utils"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// Exposure is the position manager's state at the time of a check.
type Exposure struct {
	OpenPositions int
	SymbolActive  bool
	// Blocked is set while new submissions are halted or backing off.
	Blocked     bool
	BlockReason string
}

// Eligibility is the latest backtest verdict for a strategy on a symbol.
type Eligibility struct {
	Known    bool
	Score    float64
	Eligible bool
}

// Sizing is an approved order size.
type Sizing struct {
	Price    float64
	Quantity float64
	Notional float64
	Margin   float64
	Leverage int
}

// Gate applies the risk rules of one run.
type Gate struct {
	cfg             config.RiskConfig
	requireBacktest bool
}

// NewGate creates a gate. When requireBacktest is false the backtest score is not consulted.
func NewGate(cfg config.RiskConfig, requireBacktest bool) *Gate {
	return &Gate{
		cfg:             cfg,
		requireBacktest: requireBacktest,
	}
}

// Config returns the risk configuration the gate enforces.
func (g *Gate) Config() config.RiskConfig {
	return g.cfg
}

// CheckCandidate runs the checks that must pass before SIZING.
func (g *Gate) CheckCandidate(signal types.Signal, eligibility Eligibility, exposure Exposure) error {
	symbol := signal.Symbol

	if !signal.IsActionable() {
		return errors.NewRiskRejectedError(errors.RiskReasonNoDirection, symbol, "signal has no direction")
	}

	if signal.Strength < g.cfg.MinSignalStrength {
		return errors.NewRiskRejectedErrorf(errors.RiskReasonSignalStrength, symbol,
			"strength %d is below the minimum %d", signal.Strength, g.cfg.MinSignalStrength)
	}

	if exposure.Blocked {
		return errors.NewRiskRejectedErrorf(errors.RiskReasonExchangeBlocked, symbol,
			"new orders are blocked: %s", exposure.BlockReason)
	}

	if g.requireBacktest {
		if !eligibility.Known {
			return errors.NewRiskRejectedErrorf(errors.RiskReasonStrategyIneligible, symbol,
				"strategy %s has no backtest result", signal.StrategyID)
		}

		if eligibility.Score < g.cfg.MinBacktestScore {
			return errors.NewRiskRejectedErrorf(errors.RiskReasonBacktestScore, symbol,
				"strategy %s scored %.2f, below the minimum %.2f", signal.StrategyID, eligibility.Score, g.cfg.MinBacktestScore)
		}

		if !eligibility.Eligible {
			return errors.NewRiskRejectedErrorf(errors.RiskReasonStrategyIneligible, symbol,
				"strategy %s is not eligible", signal.StrategyID)
		}
	}

	if exposure.SymbolActive {
		return errors.NewRiskRejectedError(errors.RiskReasonDuplicateSymbol, symbol, "a position for this symbol is already active")
	}

	if exposure.OpenPositions >= g.cfg.MaxConcurrentPositions {
		return errors.NewRiskRejectedErrorf(errors.RiskReasonMaxPositions, symbol,
			"%d positions open, maximum is %d", exposure.OpenPositions, g.cfg.MaxConcurrentPositions)
	}

	return nil
}

// CheckBalance rejects when balance is below the configured floor.
func (g *Gate) CheckBalance(symbol string, balance float64) error {
	if balance < g.cfg.MinBalance {
		return errors.NewRiskRejectedErrorf(errors.RiskReasonBalanceFloor, symbol,
			"balance %.2f is below the floor %.2f", balance, g.cfg.MinBalance)
	}

	return nil
}

// Size computes the order quantity for one position: the configured volume is
// the margin, notional is volume times leverage and the quantity is rounded
// down to the symbol's step.
func (g *Gate) Size(symbol string, price, balance float64, rules types.SymbolRules) (Sizing, error) {
	if err := g.CheckBalance(symbol, balance); err != nil {
		return Sizing{}, err
	}

	if price <= 0 {
		return Sizing{}, errors.NewRiskRejectedErrorf(errors.RiskReasonNotionalMin, symbol, "invalid price %f", price)
	}

	leverage := g.cfg.Leverage
	target := g.cfg.Volume * float64(leverage)
	quantity := utils.CalculateQuantityForNotional(target, price, rules.StepSize, rules.QuantityPrecision)
	notional := quantity * price
	margin := notional / float64(leverage)

	minNotional := max(g.cfg.MinNotional, rules.MinNotional)
	if quantity <= 0 || quantity < rules.MinQty || notional < minNotional {
		return Sizing{}, errors.NewRiskRejectedErrorf(errors.RiskReasonNotionalMin, symbol,
			"notional %.4f (qty %g) is below the minimum %.2f", notional, quantity, minNotional)
	}

	if notional > g.cfg.MaxNotional {
		return Sizing{}, errors.NewRiskRejectedErrorf(errors.RiskReasonNotionalMax, symbol,
			"notional %.2f exceeds the maximum %.2f", notional, g.cfg.MaxNotional)
	}

	if margin > balance*g.cfg.MaxBalanceFraction {
		return Sizing{}, errors.NewRiskRejectedErrorf(errors.RiskReasonBalanceFraction, symbol,
			"margin %.2f exceeds %.0f%% of balance %.2f", margin, g.cfg.MaxBalanceFraction*100, balance)
	}

	if balance-margin < g.cfg.MinBalance {
		return Sizing{}, errors.NewRiskRejectedErrorf(errors.RiskReasonBalanceFloor, symbol,
			"margin %.2f would leave %.2f, below the floor %.2f", margin, balance-margin, g.cfg.MinBalance)
	}

	return Sizing{
		Price:    price,
		Quantity: quantity,
		Notional: notional,
		Margin:   margin,
		Leverage: leverage,
	}, nil
}
