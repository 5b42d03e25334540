package booking

import (
	"github.com/evrental/evrental/internal/timewindow"
)

// FeeBreakdown 结算明细。
type FeeBreakdown struct {
	Base      float64 `json:"base"`
	LateFee   float64 `json:"late_fee"`
	DamageFee float64 `json:"damage_fee"`
	EnergyFee float64 `json:"energy_fee"`
	Total     float64 `json:"total"`
}

// FeeCalculator 费用计算器。结算的正确性不属于分配核心，
// 核心只依赖这个接口，占位实现可整体替换。
type FeeCalculator interface {
	// Quote 按时间窗报价，创建预约时写入 TotalPrice。
	Quote(win timewindow.Window) float64
	// Settle 对预约做结算明细计算，不修改预约本身。
	Settle(b *Booking) FeeBreakdown
}

// FlatRateCalculator 占位计费：按小时单价计租金，附加费恒为 0。
// 真实计价接入前不要把这里的数字当财务结果用。
type FlatRateCalculator struct {
	HourlyRate float64
}

func NewFlatRateCalculator(hourlyRate float64) *FlatRateCalculator {
	if hourlyRate <= 0 {
		hourlyRate = 10
	}
	return &FlatRateCalculator{HourlyRate: hourlyRate}
}

func (c *FlatRateCalculator) Quote(win timewindow.Window) float64 {
	hours := win.Duration().Hours()
	if hours <= 0 {
		return 0
	}
	return hours * c.HourlyRate
}

func (c *FlatRateCalculator) Settle(b *Booking) FeeBreakdown {
	out := FeeBreakdown{
		Base:      b.TotalPrice,
		LateFee:   0,
		DamageFee: 0,
		EnergyFee: 0,
	}
	out.Total = out.Base + out.LateFee + out.DamageFee + out.EnergyFee
	return out
}
