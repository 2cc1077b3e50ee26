// Package engine orchestrates a full optimization run: distribution fit,
// coarse grid solve, threshold detection, layered refinement and final
// curve assembly.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jiangshan55555/power-market-system/config"
	"github.com/jiangshan55555/power-market-system/infrastructure/logger"
	"github.com/jiangshan55555/power-market-system/market"
	"github.com/jiangshan55555/power-market-system/metrics"
	"github.com/jiangshan55555/power-market-system/solver"
	"github.com/jiangshan55555/power-market-system/strategy"
)

// ErrAlreadyRunning 同一引擎实例同时只允许一次优化运行。
var ErrAlreadyRunning = errors.New("optimization run already in progress")

// State 引擎状态。
type State int32

const (
	StateIdle State = iota
	StateRunning
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// 超精细层只处理价格最低的前几个门槛区域
const ultraFineRegionLimit = 3

// PointProgress 单个DA价格点求解完成的进度通知。
type PointProgress struct {
	DAPrice    float64
	PDA        float64
	Converged  bool
	Iterations int
}

// Engine 批量优化引擎。持有一次运行的全部配置与最近一次的结果，
// 供结果服务查询。
type Engine struct {
	cfg config.AppConfig
	log *logger.Logger

	mu        sync.RWMutex
	state     State
	lastCurve *strategy.Curve
	lastGrid  market.Grid
	lastRun   time.Time
	onPoint   func(PointProgress)
}

// New 创建引擎并做一次完整的配置校验，配置错误直接拒绝启动。
func New(cfg config.AppConfig, log *logger.Logger) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// State 返回当前引擎状态。
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// LastCurve 返回最近一次成功运行的结果曲线与完成时间，无结果时返回 nil。
func (e *Engine) LastCurve() (*strategy.Curve, time.Time) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastCurve, e.lastRun
}

// LastGrid 返回最近一次运行使用的RT价格网格。
func (e *Engine) LastGrid() market.Grid {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastGrid
}

// Config 返回引擎当前配置的副本。
func (e *Engine) Config() config.AppConfig { return e.cfg }

// OnPoint 注册单点进度回调。回调在求解工作协程内同步执行，必须快速返回，
// 耗时的消费方（如网络推送）自行异步化。
func (e *Engine) OnPoint(fn func(PointProgress)) {
	e.mu.Lock()
	e.onPoint = fn
	e.mu.Unlock()
}

func (e *Engine) pointCallback() func(PointProgress) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.onPoint
}

// Run 在一份历史价格样本上执行完整优化流程并返回最终策略曲线。
// cutoff 非零时仅用严格早于 cutoff 的记录拟合分布（回测场景）。
// 单点失败不会中断整批，只会体现在收敛统计里。
func (e *Engine) Run(ctx context.Context, sample market.Sample, cutoff time.Time) (*strategy.Curve, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	started := time.Now()

	dist, err := market.FitDistribution(sample, cutoff)
	if err != nil {
		return nil, fmt.Errorf("fit price distribution: %w", err)
	}

	lo, hi, step := e.resolveGrid(dist)
	grid, err := market.NewGrid(lo, hi, step)
	if err != nil {
		return nil, fmt.Errorf("build price grid [%.1f, %.1f] step %.3f: %w", lo, hi, step, err)
	}

	s := solver.New(solverParams(e.cfg), dist, grid)
	inst := &instrumentedSolver{inner: s, log: e.log, onPoint: e.pointCallback()}
	workers := e.cfg.Solver.Workers

	e.log.LogPhase("coarse_grid", map[string]interface{}{
		"price_min": grid.Min(),
		"price_max": grid.Max(),
		"step":      grid.Step(),
		"points":    grid.Len(),
		"rt_mu":     dist.RT.Mu,
		"rt_sigma":  dist.RT.Sigma,
	})

	coarse := strategy.SolveGrid(grid.Prices(), workers, inst.Solve)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	regions := strategy.DetectThresholds(coarse, e.cfg.Capacity.MaxPower, detectorThresholds(e.cfg.Detector))
	e.log.LogPhase("threshold_detection", map[string]interface{}{
		"regions": len(regions),
	})

	refiner := &strategy.Refiner{
		Solver:   inst,
		Workers:  workers,
		PriceMin: grid.Min(),
		PriceMax: grid.Max(),
	}

	// 三层细化：同一批区域逐层缩小步长，最细一层只处理最靠前的区域
	passes := []struct {
		name    string
		step    float64
		regions []strategy.Region
	}{
		{"coarse", 0.2, regions},
		{"fine", e.cfg.Solver.FineStep, regions},
		{"ultra_fine", e.cfg.Solver.UltraFineStep, topRegions(regions, ultraFineRegionLimit)},
	}

	refined := make(map[float64]solver.Point)
	for _, pass := range passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sub := refiner.Refine(pass.regions, pass.step)
		for price, pt := range sub {
			refined[price] = pt
		}
		metrics.RefinedPoints.WithLabelValues(pass.name).Add(float64(len(sub)))
		e.log.LogPhase("refinement", map[string]interface{}{
			"pass":   pass.name,
			"step":   pass.step,
			"points": len(sub),
		})
	}

	curve, err := strategy.Assemble(coarse, refined, e.cfg.Costs.Generation, e.cfg.Capacity.MaxPower)
	if err != nil {
		return nil, fmt.Errorf("assemble curve for grid [%.1f, %.1f]: %w", grid.Min(), grid.Max(), err)
	}

	metrics.UpdateRunSummary(curve.Stats.ConvergenceRate, curve.ThresholdPrice, len(regions))
	e.log.LogPhase("run_summary", map[string]interface{}{
		"threshold_price":  curve.ThresholdPrice,
		"convergence_rate": curve.Stats.ConvergenceRate,
		"total_points":     curve.Stats.TotalPoints,
		"converged_points": curve.Stats.ConvergedPoints,
		"fine_points":      curve.Stats.FinePoints,
		"duration":         time.Since(started).String(),
	})

	e.mu.Lock()
	e.lastCurve = curve
	e.lastGrid = grid
	e.lastRun = time.Now()
	e.mu.Unlock()

	return curve, nil
}

func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRunning {
		return ErrAlreadyRunning
	}
	e.state = StateRunning
	return nil
}

func (e *Engine) end() {
	e.mu.Lock()
	e.state = StateIdle
	e.mu.Unlock()
}

// instrumentedSolver 在单点求解外层挂接指标、调试日志与进度回调。
type instrumentedSolver struct {
	inner   *solver.Solver
	log     *logger.Logger
	onPoint func(PointProgress)
}

func (s *instrumentedSolver) Solve(daPrice float64) solver.Point {
	start := time.Now()
	pt := s.inner.Solve(daPrice)
	metrics.ObservePoint(pt.Converged, pt.Iterations, time.Since(start).Seconds())
	s.log.LogPoint(pt.DAPrice, pt.PDA, pt.Converged, pt.Iterations)
	if s.onPoint != nil {
		s.onPoint(PointProgress{
			DAPrice:    pt.DAPrice,
			PDA:        pt.PDA,
			Converged:  pt.Converged,
			Iterations: pt.Iterations,
		})
	}
	return pt
}

func solverParams(cfg config.AppConfig) solver.Params {
	return solver.Params{
		CostGen:       cfg.Costs.Generation,
		CostUp:        cfg.Costs.Upward,
		CostDn:        cfg.Costs.Downward,
		MaxPower:      cfg.Capacity.MaxPower,
		MaxUpReg:      cfg.Capacity.MaxUpReg,
		MaxDownReg:    cfg.Capacity.MaxDownReg,
		EtaBase:       cfg.Solver.EtaBase,
		EtaMin:        cfg.Solver.EtaMin,
		MaxIterations: cfg.Solver.MaxIterations,
		Tolerance:     cfg.Solver.Tolerance,
		Patience:      cfg.Solver.Patience,
		Momentum:      cfg.Solver.Momentum,
		NoiseFactor:   cfg.Solver.NoiseFactor,
		PointTimeout:  cfg.Solver.PointTimeout,
	}
}

func detectorThresholds(cfg config.DetectorConfig) strategy.Thresholds {
	return strategy.Thresholds{
		LowRatio:      cfg.LowRatio,
		HighRatio:     cfg.HighRatio,
		JumpRatio:     cfg.JumpRatio,
		Participation: cfg.Participation,
	}
}

func topRegions(regions []strategy.Region, n int) []strategy.Region {
	if len(regions) <= n {
		return regions
	}
	return regions[:n]
}
