package strategy

import (
	"errors"
	"math"

	"github.com/jiangshan55555/power-market-system/solver"
)

// ErrEmptyResult 粗网格与细化合并后没有任何结果点。
var ErrEmptyResult = errors.New("empty optimization result set")

// 接近0的申报电量在分析与导出时按0处理
const zeroSnap = 0.1

// Stats 一次运行的汇总统计。
type Stats struct {
	TotalPoints     int
	ConvergedPoints int
	FinePoints      int     // 细化网格点数（非整数价格）
	ConvergenceRate float64 // 百分比
	AvgIterations   float64
}

// Curve 最终的价格→策略曲线：按DA价格升序的完整结果序列、推荐门槛价格
// 与汇总统计。优化核心对外的唯一产物。
type Curve struct {
	Points         []solver.Point
	ThresholdPrice float64
	Stats          Stats
}

// Assemble 合并粗网格与细化结果（细化价格作为新键与粗网格交错），推导
// 代表性门槛价格并计算收敛统计。合并后为空时返回 ErrEmptyResult。
func Assemble(coarse, refined map[float64]solver.Point, costGen, maxPower float64) (*Curve, error) {
	merged := make(map[float64]solver.Point, len(coarse)+len(refined))
	for p, pt := range coarse {
		merged[p] = pt
	}
	for p, pt := range refined {
		merged[p] = pt
	}
	if len(merged) == 0 {
		return nil, ErrEmptyResult
	}

	prices := sortedPrices(merged)
	points := make([]solver.Point, len(prices))
	for i, p := range prices {
		points[i] = merged[p]
	}

	curve := &Curve{
		Points:         points,
		ThresholdPrice: thresholdPrice(points, costGen, maxPower),
		Stats:          computeStats(points),
	}
	return curve, nil
}

// thresholdPrice 在排序后的序列中寻找申报电量穿越50% P_max 的区间，取距离
// 发电边际成本最近的穿越区间中点——个别点未收敛到全局最优时会在远离成本处
// 造成孤立尖峰，按"第一次穿越"取值会被尖峰劫持。若有细化点恰好落在转换带
// （40%~60%）内则取其中最靠近该中点的价格，得到更锐利的估计。找不到任何
// 转换时退回发电边际成本。
func thresholdPrice(points []solver.Point, costGen, maxPower float64) float64 {
	mid := 0.5 * maxPower

	threshold := costGen
	bestDist := math.Inf(1)
	for i := 0; i+1 < len(points); i++ {
		a := snapZero(points[i].PDA)
		b := snapZero(points[i+1].PDA)
		if (a < mid && b > mid) || (a > mid && b < mid) {
			cand := (points[i].DAPrice + points[i+1].DAPrice) / 2
			if d := math.Abs(cand - costGen); d < bestDist {
				bestDist = d
				threshold = cand
			}
		}
	}

	// 细化点落在转换带内时给出更锐利的估计
	fine := threshold
	fineDist := math.Inf(1)
	for _, pt := range points {
		if !isFinePrice(pt.DAPrice) {
			continue
		}
		if pt.PDA > 0.4*maxPower && pt.PDA < 0.6*maxPower {
			if d := math.Abs(pt.DAPrice - threshold); d < fineDist {
				fineDist = d
				fine = pt.DAPrice
			}
		}
	}
	return fine
}

func computeStats(points []solver.Point) Stats {
	st := Stats{TotalPoints: len(points)}
	var totalIter int
	for _, pt := range points {
		if pt.Converged {
			st.ConvergedPoints++
		}
		if isFinePrice(pt.DAPrice) {
			st.FinePoints++
		}
		totalIter += pt.Iterations
	}
	if st.TotalPoints > 0 {
		st.ConvergenceRate = float64(st.ConvergedPoints) / float64(st.TotalPoints) * 100
		st.AvgIterations = float64(totalIter) / float64(st.TotalPoints)
	}
	return st
}

// isFinePrice 非整数价格视为细化网格点。
func isFinePrice(p float64) bool {
	_, frac := math.Modf(p)
	return math.Abs(frac) > 1e-9 && math.Abs(frac-1) > 1e-9
}

func snapZero(pda float64) float64 {
	if math.Abs(pda) < zeroSnap {
		return 0
	}
	return pda
}
