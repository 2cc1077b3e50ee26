package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jiangshan55555/power-market-system/config"
	"github.com/jiangshan55555/power-market-system/strategy"
)

// Summary 运行级汇总，供下游管线与归档消费。
type Summary struct {
	GeneratedAt string `json:"generated_at"`
	Method      string `json:"method"`

	CostGeneration float64 `json:"cost_generation"`
	CostUpward     float64 `json:"cost_upward"`
	CostDownward   float64 `json:"cost_downward"`
	MaxPower       float64 `json:"max_power"`
	MaxUpReg       float64 `json:"max_up_reg"`
	MaxDownReg     float64 `json:"max_down_reg"`

	TotalPoints     int     `json:"total_points"`
	ConvergedPoints int     `json:"converged_points"`
	ConvergenceRate float64 `json:"convergence_rate"`
	AvgIterations   float64 `json:"avg_iterations"`
	FinePoints      int     `json:"fine_points"`
	ThresholdPrice  float64 `json:"threshold_price"`
}

// NewSummary 从结果曲线与配置构造汇总。
func NewSummary(curve *strategy.Curve, cfg config.AppConfig, at time.Time) Summary {
	return Summary{
		GeneratedAt:     at.UTC().Format(time.RFC3339),
		Method:          "neurodynamic_gradient_ascent",
		CostGeneration:  cfg.Costs.Generation,
		CostUpward:      cfg.Costs.Upward,
		CostDownward:    cfg.Costs.Downward,
		MaxPower:        cfg.Capacity.MaxPower,
		MaxUpReg:        cfg.Capacity.MaxUpReg,
		MaxDownReg:      cfg.Capacity.MaxDownReg,
		TotalPoints:     curve.Stats.TotalPoints,
		ConvergedPoints: curve.Stats.ConvergedPoints,
		ConvergenceRate: curve.Stats.ConvergenceRate,
		AvgIterations:   curve.Stats.AvgIterations,
		FinePoints:      curve.Stats.FinePoints,
		ThresholdPrice:  curve.ThresholdPrice,
	}
}

// WriteSummaryJSON 写出JSON格式的运行汇总。
func WriteSummaryJSON(path string, curve *strategy.Curve, cfg config.AppConfig, at time.Time) error {
	data, err := json.MarshalIndent(NewSummary(curve, cfg, at), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
