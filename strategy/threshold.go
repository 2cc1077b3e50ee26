// Package strategy derives the final bidding strategy from solved price
// points: threshold-region detection, adaptive grid refinement and curve
// assembly.
package strategy

import (
	"math"
	"sort"

	"github.com/jiangshan55555/power-market-system/solver"
)

// Thresholds 门槛跳跃判定参数。默认值是经验常数，没有理论推导，
// 不保证适用于所有成本/容量组合，因此做成可配置项。
type Thresholds struct {
	LowRatio      float64 // 低出力比例（相对 P_max）
	HighRatio     float64 // 高出力比例
	JumpRatio     float64 // 相邻点功率跳变比例
	Participation float64 // 参与市场的最小申报电量（MW）
}

// DefaultThresholds 生产默认值。
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowRatio:      0.30,
		HighRatio:     0.70,
		JumpRatio:     0.30,
		Participation: 0.1,
	}
}

// Region 粗网格上一对相邻价格，其最优申报电量跳变超过判定标准。
type Region struct {
	Lo, Hi       float64 // DA价格区间端点
	PDALo, PDAHi float64 // 两端的申报电量，供日志参考
}

// DetectThresholds 扫描已求解的价格→电量映射，返回按价格升序排列的门槛区域。
// 纯函数，输入相同结果相同。
func DetectThresholds(points map[float64]solver.Point, maxPower float64, th Thresholds) []Region {
	prices := sortedPrices(points)

	var regions []Region
	for i := 0; i+1 < len(prices); i++ {
		cur := points[prices[i]].PDA
		next := points[prices[i+1]].PDA

		jump := false
		switch {
		// 从低出力跳到高出力，或反向
		case cur < th.LowRatio*maxPower && next > th.HighRatio*maxPower:
			jump = true
		case cur > th.HighRatio*maxPower && next < th.LowRatio*maxPower:
			jump = true
		// 功率变化超过跳变比例
		case math.Abs(next-cur) > th.JumpRatio*maxPower:
			jump = true
		// 是否参与市场的边界
		case cur < th.Participation && next > th.Participation:
			jump = true
		}

		if jump {
			regions = append(regions, Region{
				Lo:    prices[i],
				Hi:    prices[i+1],
				PDALo: cur,
				PDAHi: next,
			})
		}
	}
	return regions
}

func sortedPrices(points map[float64]solver.Point) []float64 {
	prices := make([]float64, 0, len(points))
	for p := range points {
		prices = append(prices, p)
	}
	sort.Float64s(prices)
	return prices
}
