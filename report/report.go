// Package report writes the artifacts of one optimization run: the full
// strategy grid (CSV), a machine-readable run summary (JSON) and a
// human-readable bidding recommendation (markdown).
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jiangshan55555/power-market-system/config"
	"github.com/jiangshan55555/power-market-system/strategy"
)

// 固定的产物文件名，消费方按名字取用
const (
	StrategyFile       = "bidding_strategy.csv"
	SummaryFile        = "optimization_summary.json"
	RecommendationFile = "strategy_report.md"
)

// Writer 把一次运行的全部产物写入输出目录。
type Writer struct {
	Dir string
	Now func() time.Time // 可注入，便于测试
}

// WriteAll 写出全部三个产物并返回文件路径。输出目录不存在时自动创建。
func (w *Writer) WriteAll(curve *strategy.Curve, cfg config.AppConfig, rtPrices []float64) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	csvPath := filepath.Join(w.Dir, StrategyFile)
	if err := WriteStrategyCSV(csvPath, curve, rtPrices); err != nil {
		return nil, err
	}

	jsonPath := filepath.Join(w.Dir, SummaryFile)
	if err := WriteSummaryJSON(jsonPath, curve, cfg, now()); err != nil {
		return nil, err
	}

	mdPath := filepath.Join(w.Dir, RecommendationFile)
	if err := WriteRecommendation(mdPath, curve, cfg, now()); err != nil {
		return nil, err
	}

	return []string{csvPath, jsonPath, mdPath}, nil
}
