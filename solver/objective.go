package solver

import (
	"math"

	"github.com/jiangshan55555/power-market-system/market"
)

// dispatch 给定 PDA 与单个RT价格的闭式实时调度：价格高于边际成本则顶格上调，
// 否则顶格下调。调整量分别受 R_up_max / R_dn_max 限制。
func (s *Solver) dispatch(pda, rtPrice float64) (prt, rup, rdn float64) {
	if rtPrice > s.params.CostGen {
		prt = pda + s.params.MaxUpReg
		if prt > s.params.MaxPower {
			prt = s.params.MaxPower
		}
		rup = prt - pda
		return prt, rup, 0
	}
	prt = pda - s.params.MaxDownReg
	if prt < 0 {
		prt = 0
	}
	rdn = pda - prt
	return prt, 0, rdn
}

// objective 期望总收益：日前收益 + RT网格上按概率质量加权的实时收益。
// 概率质量用正态密度×网格步长近似。
func (s *Solver) objective(daPrice, pda float64) float64 {
	daProfit := pda * (daPrice - s.params.CostGen)

	rtStep := s.grid.Step()
	var rtProfit float64
	for _, rt := range s.grid.Prices() {
		prt, rup, rdn := s.dispatch(pda, rt)
		profit := prt*(rt-s.params.CostGen) - s.params.CostUp*rup - s.params.CostDn*rdn
		mass := s.dist.RT.Pdf(rt) * rtStep
		rtProfit += mass * profit
	}

	return daProfit + rtProfit
}

// responseVectors 在 PDA 定稿后生成整条RT响应曲线（闭式，不迭代）。
func (s *Solver) responseVectors(pda float64) (prt, rup, rdn []float64) {
	n := s.grid.Len()
	prt = make([]float64, n)
	rup = make([]float64, n)
	rdn = make([]float64, n)
	for i, rt := range s.grid.Prices() {
		prt[i], rup[i], rdn[i] = s.dispatch(pda, rt)
	}
	return prt, rup, rdn
}

// rtVolatility 网格价格的总体标准差，梯度估计用作波动性因子。
func rtVolatility(grid market.Grid) float64 {
	prices := grid.Prices()
	if len(prices) < 2 {
		return 1.0
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	mu := sum / float64(len(prices))
	var ss float64
	for _, p := range prices {
		ss += (p - mu) * (p - mu)
	}
	return math.Sqrt(ss / float64(len(prices)))
}
