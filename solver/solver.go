// Package solver implements the neurodynamic point optimizer: for one fixed
// day-ahead price it searches the bid quantity maximizing expected profit
// under real-time price uncertainty, by gradient ascent with momentum,
// adaptive learning rate and seeded exploration noise.
package solver

import (
	"math"
	"math/rand"
	"time"

	"github.com/jiangshan55555/power-market-system/market"
)

// Solver 在共享的只读输入（参数、价格分布、RT网格）上做单点求解。
// 同一实例可被多个 goroutine 并发调用 Solve。
type Solver struct {
	params Params
	dist   market.Distribution
	grid   market.Grid
	grad   GradientEstimator
}

// New 创建求解器，使用默认的启发式梯度估计。
func New(params Params, dist market.Distribution, grid market.Grid) *Solver {
	s := &Solver{
		params: params,
		dist:   dist,
		grid:   grid,
	}
	s.grad = newHeuristicGradient(params, grid)
	return s
}

// WithGradientEstimator 替换梯度估计策略，返回求解器自身便于链式构造。
func (s *Solver) WithGradientEstimator(g GradientEstimator) *Solver {
	s.grad = g
	return s
}

// Grid 返回共享的RT价格网格。
func (s *Solver) Grid() market.Grid { return s.grid }

// Solve 求解单个DA价格点。不返回错误：数值失败降级为 Converged=false，
// PDA 取最后一个有效的最优解（或初始猜测）。
func (s *Solver) Solve(daPrice float64) Point {
	p := s.params

	// 以价格推导随机种子，同一价格多次求解结果可复现
	seed := int64(daPrice*1000) % (1 << 32)
	rng := rand.New(rand.NewSource(seed))

	pda := s.initialGuess(daPrice, rng)

	start := time.Now()
	st := &trackState{}

	var (
		converged  bool
		timedOut   bool
		iterations int
		velocity   float64
		noImprove  int

		bestPDA = pda
		bestObj = math.Inf(-1)
		hasBest = false
	)

	// 初始猜测先评估入榜：轨迹漂移到更差的边界时不会把它覆盖掉
	if obj := s.objective(daPrice, pda); isFinite(obj) {
		bestObj = obj
	}

	for i := 0; i < p.MaxIterations; i++ {
		iterations = i + 1

		// 墙钟超时：取当前最优解并按超时收敛处理，保证单点不会拖垮整批
		if time.Since(start) > p.PointTimeout {
			converged = true
			timedOut = true
			break
		}

		grad := s.grad.Estimate(daPrice, pda, st, rng)
		if !isFinite(grad) {
			converged = hasBest
			break
		}

		eta := s.adaptiveEta(i, grad, daPrice, st, rng)

		// 衰减的探索噪声，叠加价格相关的周期扰动
		var noise float64
		if p.NoiseFactor > 0 {
			strength := p.NoiseFactor * p.MaxPower * math.Sqrt(1-float64(i)/float64(p.MaxIterations))
			priceNoise := 0.01 * p.MaxPower * math.Sin(daPrice/20) * math.Cos(float64(i)/50)
			noise = rng.NormFloat64()*strength + priceNoise
		}

		velocity = p.Momentum*velocity + eta*grad
		next := clamp(pda+velocity+noise, 0, p.MaxPower)

		obj := s.objective(daPrice, next)
		if !isFinite(obj) {
			converged = hasBest
			break
		}

		if obj > bestObj {
			bestObj = obj
			bestPDA = next
			hasBest = true
			noImprove = 0
		} else {
			noImprove++
		}

		step := next - pda
		st.recordStep(step)

		if math.Abs(step) < p.Tolerance {
			pda = next
			converged = true
			break
		}
		if noImprove > p.Patience {
			converged = true
			break
		}

		pda = next
	}

	pda = bestPDA

	prt, rup, rdn := s.responseVectors(pda)

	return Point{
		DAPrice:    daPrice,
		PDA:        pda,
		PRT:        prt,
		RUp:        rup,
		RDn:        rdn,
		Objective:  s.objective(daPrice, pda),
		Converged:  converged,
		TimedOut:   timedOut,
		Iterations: iterations,
	}
}

// initialGuess 价格相关的非线性初始化：远低于成本时基本为0，远高于成本时
// 接近满发，中间区间用平滑的非线性插值并加入种子化扰动，避免所有点从同一
// 对称位置出发塌缩到相同局部最优。
func (s *Solver) initialGuess(daPrice float64, rng *rand.Rand) float64 {
	p := s.params
	diff := daPrice - p.CostGen

	var pda float64
	switch {
	case diff < 0:
		// 低于成本：小概率少量发电
		if rng.Float64() < 0.1 {
			pda = rng.ExpFloat64() * p.MaxPower * 0.05
		}
	case diff > 30:
		// 远高于成本：大概率满发，带波动
		baseRatio := 0.7 + 0.3*(1-math.Exp(-diff/20))
		noiseAmp := p.MaxPower * priceSensitivity * math.Sin(daPrice/10)
		pda = p.MaxPower*baseRatio + noiseAmp + rng.NormFloat64()*p.MaxPower*0.05
	default:
		normalized := diff / 30
		base := math.Pow(normalized, nonlinearFactor)
		wave := 0.1 * math.Sin(daPrice/5) * math.Cos(daPrice/8)
		random := rng.NormFloat64() * 0.1 * normalized
		pda = p.MaxPower * (base + wave + random)
	}

	return clamp(pda, 0, p.MaxPower)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
