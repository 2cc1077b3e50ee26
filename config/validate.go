package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig 配置校验失败的哨兵错误，具体原因通过 %w 包装附加。
var ErrInvalidConfig = errors.New("invalid config")

// Validate ensures the configuration is structurally sound before any
// optimization starts. A bad price range or capacity here is fatal for the
// whole run, so it is rejected up front.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return fmt.Errorf("%w: env is required", ErrInvalidConfig)
	}
	if cfg.Costs.Generation <= 0 {
		return fmt.Errorf("%w: costs.generation must be > 0", ErrInvalidConfig)
	}
	if cfg.Costs.Upward <= 0 || cfg.Costs.Downward <= 0 {
		return fmt.Errorf("%w: regulation costs must be > 0", ErrInvalidConfig)
	}
	if cfg.Capacity.MaxPower <= 0 {
		return fmt.Errorf("%w: capacity.maxPower must be > 0", ErrInvalidConfig)
	}
	if cfg.Capacity.MaxUpReg < 0 || cfg.Capacity.MaxDownReg < 0 {
		return fmt.Errorf("%w: regulation capacity must be >= 0", ErrInvalidConfig)
	}
	if cfg.Capacity.MaxUpReg > cfg.Capacity.MaxPower || cfg.Capacity.MaxDownReg > cfg.Capacity.MaxPower {
		return fmt.Errorf("%w: regulation capacity exceeds maxPower", ErrInvalidConfig)
	}
	// 价格范围可以留空（从预测数据动态确定），但指定时必须有效
	if cfg.Grid.PriceMin != 0 || cfg.Grid.PriceMax != 0 {
		if cfg.Grid.PriceMax <= cfg.Grid.PriceMin {
			return fmt.Errorf("%w: grid.priceMax (%.1f) must be > grid.priceMin (%.1f)",
				ErrInvalidConfig, cfg.Grid.PriceMax, cfg.Grid.PriceMin)
		}
	}
	if cfg.Grid.Step < 0 {
		return fmt.Errorf("%w: grid.step must be >= 0", ErrInvalidConfig)
	}
	if err := validateSolver(cfg.Solver); err != nil {
		return err
	}
	if err := validateDetector(cfg.Detector); err != nil {
		return err
	}
	return nil
}

func validateSolver(s SolverConfig) error {
	if s.EtaBase <= 0 || s.EtaMin <= 0 {
		return fmt.Errorf("%w: solver learning rates must be > 0", ErrInvalidConfig)
	}
	if s.EtaMin > s.EtaBase {
		return fmt.Errorf("%w: solver.etaMin must be <= solver.etaBase", ErrInvalidConfig)
	}
	if s.MaxIterations <= 0 {
		return fmt.Errorf("%w: solver.maxIterations must be > 0", ErrInvalidConfig)
	}
	if s.Tolerance <= 0 {
		return fmt.Errorf("%w: solver.tolerance must be > 0", ErrInvalidConfig)
	}
	if s.Patience <= 0 {
		return fmt.Errorf("%w: solver.patience must be > 0", ErrInvalidConfig)
	}
	if s.Momentum < 0 || s.Momentum >= 1 {
		return fmt.Errorf("%w: solver.momentum must be in [0, 1)", ErrInvalidConfig)
	}
	if s.NoiseFactor < 0 {
		return fmt.Errorf("%w: solver.noiseFactor must be >= 0", ErrInvalidConfig)
	}
	if s.FineStep <= 0 || s.UltraFineStep <= 0 {
		return fmt.Errorf("%w: refinement steps must be > 0", ErrInvalidConfig)
	}
	if s.PointTimeout <= 0 {
		return fmt.Errorf("%w: solver.pointTimeout must be > 0", ErrInvalidConfig)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: solver.workers must be >= 0", ErrInvalidConfig)
	}
	return nil
}

func validateDetector(d DetectorConfig) error {
	if d.LowRatio <= 0 || d.LowRatio >= 1 || d.HighRatio <= 0 || d.HighRatio >= 1 {
		return fmt.Errorf("%w: detector ratios must be in (0, 1)", ErrInvalidConfig)
	}
	if d.LowRatio >= d.HighRatio {
		return fmt.Errorf("%w: detector.lowRatio must be < detector.highRatio", ErrInvalidConfig)
	}
	if d.JumpRatio <= 0 || d.JumpRatio >= 1 {
		return fmt.Errorf("%w: detector.jumpRatio must be in (0, 1)", ErrInvalidConfig)
	}
	if d.Participation < 0 {
		return fmt.Errorf("%w: detector.participation must be >= 0", ErrInvalidConfig)
	}
	return nil
}
