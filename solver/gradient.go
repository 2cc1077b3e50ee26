package solver

import (
	"math"
	"math/rand"

	"github.com/jiangshan55555/power-market-system/market"
)

// 经验调参常数，与求解器超参数分开维护
const (
	priceSensitivity = 0.1 // 初始化时的价格敏感性振幅
	nonlinearFactor  = 1.2 // 中等价格区间的非线性指数
)

// trackState 单次 Solve 调用内跨迭代的本地累积量。每次调用独立持有，
// 点与点之间互不共享，因此可以安全并行。
type trackState struct {
	hasLast   bool
	lastPrice float64
	lastPower float64
	// 最近若干次迭代的步长，自适应学习率参考
	recentSteps []float64
}

func (st *trackState) recordStep(step float64) {
	st.recentSteps = append(st.recentSteps, step)
	if len(st.recentSteps) > 10 {
		st.recentSteps = st.recentSteps[1:]
	}
}

func (st *trackState) avgRecentStep() (float64, bool) {
	if len(st.recentSteps) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range st.recentSteps {
		sum += math.Abs(s)
	}
	return sum / float64(len(st.recentSteps)), true
}

// GradientEstimator 梯度估计策略。默认实现是一组经验调参的非线性项；
// 替换实现（如凸优化器）不需要改动网格/细化/汇总逻辑。
type GradientEstimator interface {
	Estimate(daPrice, pda float64, st *trackState, rng *rand.Rand) float64
}

// heuristicGradient 启发式梯度：日前边际收益、RT期望边际贡献、竞争效应、
// 技术约束效应、价格动量修正与随机市场冲击的加权组合。
type heuristicGradient struct {
	params Params

	// RT边际贡献只依赖网格与成本，构造时预计算
	rtContribution float64
	noiseEnabled   bool
}

func newHeuristicGradient(params Params, grid market.Grid) *heuristicGradient {
	h := &heuristicGradient{
		params:       params,
		noiseEnabled: params.NoiseFactor > 0,
	}
	vol := rtVolatility(grid)
	volatilityFactor := 1 + 0.05*vol/10

	var sum float64
	for _, rt := range grid.Prices() {
		diff := rt - params.CostGen
		var c float64
		if diff > 0 {
			// 实时价格高：上调整收益，叠加周期性风险修正
			c = 0.3 * diff * (1 + 0.1*math.Sin(rt/20))
		} else {
			// 实时价格低：下调整成本
			c = 0.2 * diff * (1 - 0.1*math.Cos(rt/15))
		}
		sum += c * volatilityFactor
	}
	if grid.Len() > 0 {
		h.rtContribution = sum / float64(grid.Len())
	}
	return h
}

func (h *heuristicGradient) Estimate(daPrice, pda float64, st *trackState, rng *rand.Rand) float64 {
	cg := h.params.CostGen
	pmax := h.params.MaxPower

	// 1. 日前市场边际收益
	baseGrad := daPrice - cg

	// 2. 市场竞争与风险厌恶：高价区竞争压低投标积极性
	var competition float64
	if daPrice > cg+5 {
		competition = -0.1 * (daPrice - cg - 5) * math.Sin(daPrice/10)
	}

	// 3. 技术约束的非线性响应：低出力考虑启动成本，高出力考虑技术上限
	var technical float64
	ratio := pda / pmax
	if ratio < 0.2 {
		technical = 0.2 * (0.2 - ratio) * math.Exp(-ratio*5)
	} else if ratio > 0.8 {
		technical = -0.15 * (ratio - 0.8) * (1 + math.Sin(daPrice/8))
	}

	// 4. 价格动量修正：价格与功率变化方向相反时施加小幅纠偏。
	// 状态只在本次调用内累积，同一价格下 trend 为 0，该项自然熄灭。
	var momentum float64
	if st.hasLast {
		priceTrend := daPrice - st.lastPrice
		powerTrend := pda - st.lastPower
		if priceTrend*powerTrend < 0 {
			momentum = 0.1 * priceTrend / math.Max(math.Abs(priceTrend), 1)
		}
	}

	// 5. 随机市场冲击
	var shock float64
	if h.noiseEnabled {
		shock = rng.NormFloat64() * 0.05 * math.Abs(baseGrad)
	}

	// 6. 门槛附近的敏感性增强
	sensitivity := 1.0
	dist := math.Abs(daPrice - cg)
	if dist < 2 {
		sensitivity = 1.5 + 0.3*math.Sin((daPrice-cg)*math.Pi)
	} else if dist > 10 {
		sensitivity = 0.8
	}

	total := baseGrad*sensitivity + h.rtContribution + competition + technical + momentum + shock

	// 7. 边界推离
	if pda < 0.5 {
		push := 0.1 * (0.5 - pda)
		if daPrice > cg {
			push = 0.3 * (0.5 - pda)
		}
		total += push
	} else if pda > pmax-0.5 {
		total -= 0.2 * (pda - (pmax - 0.5))
	}

	st.hasLast = true
	st.lastPrice = daPrice
	st.lastPower = pda

	return total
}
