package solver

import (
	"math"
	"math/rand"
)

// adaptiveEta 自适应学习率：综合梯度大小、价格与门槛的距离、迭代阶段、
// 近期步长历史与小幅随机扰动，最终约束在 [EtaMin, 5×EtaBase]。
func (s *Solver) adaptiveEta(iteration int, grad, daPrice float64, st *trackState, rng *rand.Rand) float64 {
	p := s.params

	// 梯度大小：平衡点附近加大探索，梯度大时收紧避免震荡
	var etaGrad float64
	magnitude := math.Abs(grad)
	switch {
	case magnitude < 0.05:
		etaGrad = 3.0
	case magnitude < 0.5:
		etaGrad = 1.5
	case magnitude < 2.0:
		etaGrad = 1.0
	default:
		etaGrad = 0.2
	}

	// 价格与门槛的距离：越近越精细
	var etaPrice float64
	distance := math.Abs(daPrice - p.CostGen)
	switch {
	case distance < 1:
		etaPrice = 0.3
	case distance < 3:
		etaPrice = 0.6
	case distance < 8:
		etaPrice = 1.0
	default:
		etaPrice = 1.2
	}

	// 迭代阶段：早期探索，后期收敛
	var etaStage float64
	switch {
	case iteration < 50:
		etaStage = 1.2
	case iteration < 200:
		etaStage = 1.0
	default:
		etaStage = 0.7
	}

	// 近期收敛历史：步长过小说明收敛太慢，过大说明震荡
	etaConv := 1.0
	if avg, ok := st.avgRecentStep(); ok {
		if avg < 0.01 {
			etaConv = 1.5
		} else if avg > 0.5 {
			etaConv = 0.5
		}
	}

	// 小幅随机扰动帮助跳出局部最优
	randomFactor := 1.0
	if p.NoiseFactor > 0 {
		randomFactor = 1 + 0.1*rng.NormFloat64()*0.1
		randomFactor = math.Max(0.8, math.Min(1.2, randomFactor))
	}

	eta := p.EtaBase * etaGrad * etaPrice * etaStage * etaConv * randomFactor
	return math.Max(p.EtaMin, math.Min(eta, p.EtaBase*5))
}
