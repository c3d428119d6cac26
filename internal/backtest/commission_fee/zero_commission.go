package commission_fee

type ZeroCommissionFee struct {
}

func NewZeroCommissionFee() CommissionFee {
	return &ZeroCommissionFee{}
}

func (c *ZeroCommissionFee) Calculate(_ float64) float64 {
	return 0
}
