package forecast

import (
	"math"

	"github.com/jiangshan55555/power-market-system/market"
)

// 预测驱动的网格边界参数
const (
	priceBuffer = 20.0  // 预测区间两侧的缓冲（CNY/MWh）
	minSpan     = 100.0 // 网格最小跨度
	gridPoints  = 150
	minStep     = 0.2
)

// Bounds 由预测序列推导的价格网格参数。
type Bounds struct {
	PriceMin float64
	PriceMax float64
	Step     float64
}

// DeriveBounds 从预测价格序列推导网格：预测区间两侧各加缓冲，下界不低于0，
// 跨度不足时围绕中点扩展，步长按目标点数均分并设下限。
func DeriveBounds(sample market.Sample) (Bounds, error) {
	points := sample.Points()
	if len(points) == 0 {
		return Bounds{}, ErrNoRecords
	}

	lo, hi := points[0].DA, points[0].DA
	for _, p := range points[1:] {
		lo = math.Min(lo, p.DA)
		hi = math.Max(hi, p.DA)
	}

	lo = math.Max(lo-priceBuffer, 0)
	hi += priceBuffer

	if hi-lo < minSpan {
		center := (lo + hi) / 2
		lo = math.Max(center-minSpan/2, 0)
		hi = lo + minSpan
	}

	step := math.Max((hi-lo)/gridPoints, minStep)
	return Bounds{PriceMin: lo, PriceMax: hi, Step: step}, nil
}
