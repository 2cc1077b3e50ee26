package engine

import (
	"math"

	"github.com/jiangshan55555/power-market-system/market"
)

// 动态价格范围的边界约束
const (
	boundsBufferRatio = 0.15 // 在 ±3σ 范围外再加的缓冲比例
	boundsFloor       = 200.0
	boundsCeiling     = 1000.0
	minGridSpan       = 100.0 // 网格最小跨度，保证门槛两侧都有足够支撑
	defaultGridPoints = 150
	minGridStep       = 0.2
)

// resolveGrid 确定价格网格的边界与步长。配置显式给出边界时直接使用；
// 否则从拟合的价格分布按 μ±3σ 推导，外加缓冲并夹到合理的市场价格区间。
func (e *Engine) resolveGrid(dist market.Distribution) (lo, hi, step float64) {
	g := e.cfg.Grid
	if g.PriceMin != 0 || g.PriceMax != 0 {
		lo, hi = g.PriceMin, g.PriceMax
	} else {
		lo, hi = deriveBounds(dist, e.cfg.Costs.Generation)
	}

	step = g.Step
	if step <= 0 {
		step = math.Max((hi-lo)/defaultGridPoints, minGridStep)
	}
	return lo, hi, step
}

func deriveBounds(dist market.Distribution, costGen float64) (lo, hi float64) {
	lo = math.Min(dist.DA.Mu-3*dist.DA.Sigma, dist.RT.Mu-3*dist.RT.Sigma)
	hi = math.Max(dist.DA.Mu+3*dist.DA.Sigma, dist.RT.Mu+3*dist.RT.Sigma)

	buffer := boundsBufferRatio * (hi - lo)
	lo = math.Max(lo-buffer, math.Max(costGen*0.8, boundsFloor))
	hi = math.Min(hi+buffer, boundsCeiling)

	// 分布过窄时围绕中点扩展，确保门槛扫描有足够的价格跨度
	if hi-lo < minGridSpan {
		center := (lo + hi) / 2
		lo = math.Max(center-minGridSpan/2, 0)
		hi = lo + minGridSpan
	}
	return lo, hi
}
