package solver

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiangshan55555/power-market-system/market"
)

func testParams() Params {
	return Params{
		CostGen:       380,
		CostUp:        500,
		CostDn:        300,
		MaxPower:      100,
		MaxUpReg:      8,
		MaxDownReg:    8,
		EtaBase:       0.05,
		EtaMin:        0.0005,
		MaxIterations: 2000,
		Tolerance:     1e-5,
		Patience:      150,
		Momentum:      0.85,
		NoiseFactor:   0, // 噪声关闭，保证测试确定性
		PointTimeout:  30 * time.Second,
	}
}

func testSolver(t *testing.T, params Params) *Solver {
	t.Helper()
	grid, err := market.NewGrid(350, 500, 1)
	require.NoError(t, err)
	dist := market.Distribution{
		DA: market.Gaussian{Mu: 380, Sigma: 25},
		RT: market.Gaussian{Mu: 380, Sigma: 25},
	}
	return New(params, dist, grid)
}

func TestSolve_Deterministic(t *testing.T) {
	s := testSolver(t, testParams())
	a := s.Solve(383.0)
	b := s.Solve(383.0)
	assert.Equal(t, a.PDA, b.PDA, "same price must give identical result")
	assert.Equal(t, a.Objective, b.Objective)
	assert.Equal(t, a.Iterations, b.Iterations)
}

func TestSolve_FarBelowCost(t *testing.T) {
	s := testSolver(t, testParams())
	pt := s.Solve(330) // c_g - 50
	assert.Less(t, pt.PDA, 2.0, "well below cost the bid must collapse to zero")
	assert.True(t, pt.Converged)
}

func TestSolve_FarAboveCost(t *testing.T) {
	s := testSolver(t, testParams())
	pt := s.Solve(430) // c_g + 50
	assert.Greater(t, pt.PDA, 98.0, "well above cost the bid must reach full power")
	assert.True(t, pt.Converged)
}

func TestSolve_BelowCostKeepsInitialGuessAsFloor(t *testing.T) {
	s := testSolver(t, testParams())
	// 低于成本的细化价格点：轨迹即使漂向满发边界，也不得把比初始猜测
	// 更差的边界点当作最优解返回
	for _, daPrice := range []float64{368.01, 368.79, 372.4} {
		pt := s.Solve(daPrice)
		assert.Less(t, pt.PDA, 5.0, "da=%f must not bid near full power below cost", daPrice)
	}
}

func TestSolve_VectorInvariants(t *testing.T) {
	s := testSolver(t, testParams())
	for _, daPrice := range []float64{350, 375, 381, 420, 500} {
		pt := s.Solve(daPrice)
		require.Equal(t, s.Grid().Len(), len(pt.PRT))
		require.Equal(t, s.Grid().Len(), len(pt.RUp))
		require.Equal(t, s.Grid().Len(), len(pt.RDn))

		assert.GreaterOrEqual(t, pt.PDA, 0.0)
		assert.LessOrEqual(t, pt.PDA, 100.0)

		for i := range pt.PRT {
			assert.GreaterOrEqual(t, pt.PRT[i], 0.0)
			assert.LessOrEqual(t, pt.PRT[i], 100.0)
			assert.GreaterOrEqual(t, pt.RUp[i], 0.0)
			assert.LessOrEqual(t, pt.RUp[i], 8.0)
			assert.GreaterOrEqual(t, pt.RDn[i], 0.0)
			assert.LessOrEqual(t, pt.RDn[i], 8.0)

			// 功率平衡必须精确成立
			balance := pt.PDA + pt.RUp[i] - pt.RDn[i]
			assert.InDelta(t, balance, pt.PRT[i], 1e-12,
				"power balance violated at da=%f rt index %d", daPrice, i)
		}
	}
}

func TestSolve_DispatchRule(t *testing.T) {
	s := testSolver(t, testParams())
	pt := s.Solve(430)
	prices := s.Grid().Prices()
	for i, rt := range prices {
		if rt > 380 {
			// 高于成本顶格上调
			assert.Zero(t, pt.RDn[i])
			expected := math.Min(pt.PDA+8, 100)
			assert.InDelta(t, expected, pt.PRT[i], 1e-12)
		} else {
			// 低于成本顶格下调
			assert.Zero(t, pt.RUp[i])
			expected := math.Max(pt.PDA-8, 0)
			assert.InDelta(t, expected, pt.PRT[i], 1e-12)
		}
	}
}

type nanGradient struct{}

func (nanGradient) Estimate(daPrice, pda float64, st *trackState, rng *rand.Rand) float64 {
	return math.NaN()
}

func TestSolve_NonFiniteGradientDegrades(t *testing.T) {
	s := testSolver(t, testParams()).WithGradientEstimator(nanGradient{})
	pt := s.Solve(400)
	// 第一次迭代梯度即失效：没有任何有效评估，标记未收敛，回退初始猜测
	assert.False(t, pt.Converged)
	assert.GreaterOrEqual(t, pt.PDA, 0.0)
	assert.LessOrEqual(t, pt.PDA, 100.0)
	assert.Equal(t, 1, pt.Iterations)
}

func TestSolve_TimeoutCountsAsConverged(t *testing.T) {
	params := testParams()
	params.PointTimeout = 1 * time.Nanosecond
	s := testSolver(t, params)
	pt := s.Solve(400)
	assert.True(t, pt.Converged, "timeout must degrade to best-so-far, not failure")
	assert.True(t, pt.TimedOut)
}

func TestSolve_NoiseStillSeededPerPrice(t *testing.T) {
	params := testParams()
	params.NoiseFactor = 0.05
	s := testSolver(t, params)
	a := s.Solve(379.25)
	b := s.Solve(379.25)
	assert.Equal(t, a.PDA, b.PDA, "noise is derived from the price seed and must reproduce")
}
