package commission_fee

type CommissionFee interface {
	// Calculate the commission fee for one side of a trade with the given notional, in USDT
	Calculate(notional float64) float64
}

type Broker string

const (
	BrokerBinanceFutures Broker = "binance_futures"
	BrokerZero           Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerBinanceFutures,
	BrokerZero,
}

// GetCommissionFeeHandler returns the fee model for a broker. rate is the per side
// fraction of notional and is ignored by brokers that do not charge.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerBinanceFutures:
		return NewBinanceFuturesCommissionFee(rate)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
