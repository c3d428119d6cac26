package risk

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/internal/utils"
)

// Levels are the stop-loss and take-profit prices of a position.
type Levels struct {
	StopLoss   float64
	TakeProfit float64
}

// ProtectiveLevels places the stop-loss stopLoss and the take-profit
// takeProfit (both fractions of entry) on the losing and winning side of entry.
func ProtectiveLevels(side types.Direction, entry, stopLoss, takeProfit float64) Levels {
	if side == types.DirectionShort {
		return Levels{
			StopLoss:   entry * (1 + stopLoss),
			TakeProfit: entry * (1 - takeProfit),
		}
	}

	return Levels{
		StopLoss:   entry * (1 - stopLoss),
		TakeProfit: entry * (1 + takeProfit),
	}
}

// Levels returns the configured protective levels rounded to the symbol's tick.
func (g *Gate) Levels(side types.Direction, entry float64, rules types.SymbolRules) Levels {
	levels := ProtectiveLevels(side, entry, g.cfg.StopLoss, g.cfg.TakeProfit)

	return Levels{
		StopLoss:   utils.RoundToTick(levels.StopLoss, rules.TickSize, rules.PricePrecision),
		TakeProfit: utils.RoundToTick(levels.TakeProfit, rules.TickSize, rules.PricePrecision),
	}
}

// ExitTrigger checks a bar's range against the protective levels. When both
// levels are crossed inside the same bar the stop-loss wins.
func ExitTrigger(side types.Direction, levels Levels, high, low float64) (float64, types.CloseReason, bool) {
	switch side {
	case types.DirectionLong:
		if low <= levels.StopLoss {
			return levels.StopLoss, types.CloseReasonStopLoss, true
		}

		if high >= levels.TakeProfit {
			return levels.TakeProfit, types.CloseReasonTakeProfit, true
		}
	case types.DirectionShort:
		if high >= levels.StopLoss {
			return levels.StopLoss, types.CloseReasonStopLoss, true
		}

		if low <= levels.TakeProfit {
			return levels.TakeProfit, types.CloseReasonTakeProfit, true
		}
	case types.DirectionNone:
	}

	return 0, "", false
}
