package position

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

// maxAttempts bounds market order submission. The second attempt is made
// only after the exchange confirmed the first one never filled.
const maxAttempts = 2

// outcome is the settled result of submitting one market order.
type outcome struct {
	result types.OrderResult
	err    error
	// unknown is set when the exchange could not confirm whether the order filled.
	unknown bool
}

func (o outcome) filled() bool {
	return o.err == nil && o.result.HasFill()
}

func (o outcome) describe() string {
	switch {
	case o.unknown:
		return "outcome unknown"
	case o.err != nil:
		return "failed"
	default:
		return "ended " + string(o.result.Status) + " without fill"
	}
}

// execute submits a market order under a fresh client order id. A timeout
// is resolved by querying the id. A confirmed no-fill is retried once with
// a new id; anything the exchange cannot confirm is reported as unknown.
func (m *Manager) execute(ctx context.Context, req types.OrderRequest, prefix string) outcome {
	last := outcome{result: types.OrderResult{}, err: nil, unknown: false}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req.ClientOrderID = m.clientOrderID(prefix)

		callCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
		result, err := m.exchange.SubmitOrder(callCtx, req)
		cancel()

		if err == nil && result.HasFill() {
			return outcome{result: result, err: nil, unknown: false}
		}

		if err != nil && !errors.IsExchangeErrorKind(err, errors.ExchangeErrorTimeout) && ctx.Err() == nil {
			return outcome{result: result, err: err, unknown: false}
		}

		if err == nil && result.IsTerminalWithoutFill() {
			last = outcome{result: result, err: noFillError(req, result), unknown: false}
		} else {
			m.log.Warn("Order outcome unclear, confirming",
				zap.String("symbol", req.Symbol),
				zap.String("client_order_id", req.ClientOrderID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)

			confirmed, qerr := m.confirm(ctx, req)

			switch {
			case qerr != nil:
				return outcome{
					result:  result,
					err:     errors.Wrapf(errors.ErrCodeReconcileRequired, qerr, "order %s could not be confirmed", req.ClientOrderID),
					unknown: true,
				}
			case confirmed.HasFill():
				return outcome{result: confirmed, err: nil, unknown: false}
			case confirmed.IsTerminalWithoutFill():
				last = outcome{result: confirmed, err: noFillError(req, confirmed), unknown: false}
			default:
				return outcome{
					result:  confirmed,
					err:     errors.Newf(errors.ErrCodeReconcileRequired, "order %s is %s after confirmation", req.ClientOrderID, confirmed.Status),
					unknown: true,
				}
			}
		}

		if ctx.Err() != nil {
			break
		}

		m.log.Info("Order confirmed without fill",
			zap.String("symbol", req.Symbol),
			zap.String("client_order_id", req.ClientOrderID),
			zap.String("status", string(last.result.Status)),
			zap.Int("attempt", attempt),
		)
	}

	return last
}

// confirm queries an order by client id. It outlives ctx cancellation so a
// shutdown does not leave a submitted order unresolved.
func (m *Manager) confirm(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ConfirmTimeout)
	defer cancel()

	result, err := m.exchange.QueryOrder(callCtx, req.Symbol, req.ClientOrderID)
	if err != nil {
		return types.OrderResult{}, err
	}

	if result.Status == types.OrderStatusUnknown {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeReconcileRequired, "order %s status unknown", req.ClientOrderID)
	}

	return result, nil
}

func noFillError(req types.OrderRequest, result types.OrderResult) error {
	return errors.New(errors.ErrCodeOrderFailed,
		fmt.Sprintf("%s %s order %s ended %s without fill", req.Side, req.Symbol, req.ClientOrderID, result.Status))
}
