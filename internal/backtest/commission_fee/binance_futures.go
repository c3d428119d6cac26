package commission_fee

// DefaultTakerRate is the Binance USDT-M taker fee without discounts.
const DefaultTakerRate = 0.0005

type BinanceFuturesCommissionFee struct {
	rate float64
}

func NewBinanceFuturesCommissionFee(rate float64) CommissionFee {
	if rate < 0 {
		rate = DefaultTakerRate
	}

	return &BinanceFuturesCommissionFee{
		rate: rate,
	}
}

func (c *BinanceFuturesCommissionFee) Calculate(notional float64) float64 {
	if notional <= 0 {
		return 0
	}

	return notional * c.rate
}
