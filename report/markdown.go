package report

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/jiangshan55555/power-market-system/config"
	"github.com/jiangshan55555/power-market-system/solver"
	"github.com/jiangshan55555/power-market-system/strategy"
)

// 对照表只列出申报电量发生实质变化的价格点
const levelChangeMin = 0.5

// WriteRecommendation 写出面向交易员的markdown策略建议：门槛结论、
// 策略类型判定与价格-电量对照表。
func WriteRecommendation(path string, curve *strategy.Curve, cfg config.AppConfig, at time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# 日前市场投标策略建议\n\n")
	fmt.Fprintf(&b, "生成时间: %s\n\n", at.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "优化方法: 神经动力学梯度上升\n\n")

	fmt.Fprintf(&b, "## 机组参数\n\n")
	fmt.Fprintf(&b, "- 发电边际成本: %.1f CNY/MWh\n", cfg.Costs.Generation)
	fmt.Fprintf(&b, "- 上调整成本: %.1f CNY/MWh\n", cfg.Costs.Upward)
	fmt.Fprintf(&b, "- 下调整成本: %.1f CNY/MWh\n", cfg.Costs.Downward)
	fmt.Fprintf(&b, "- 最大出力: %.1f MW（上调上限 %.1f MW，下调上限 %.1f MW）\n\n",
		cfg.Capacity.MaxPower, cfg.Capacity.MaxUpReg, cfg.Capacity.MaxDownReg)

	fmt.Fprintf(&b, "## 核心结论\n\n")
	fmt.Fprintf(&b, "推荐门槛价格: **%.2f CNY/MWh**\n\n", curve.ThresholdPrice)
	fmt.Fprintf(&b, "- 日前价格低于门槛时不申报（P_DA ≈ 0）\n")
	fmt.Fprintf(&b, "- 日前价格高于门槛时按接近满发申报（P_DA ≈ %.0f MW）\n\n", cfg.Capacity.MaxPower)

	levels := distinctLevels(curve)
	fmt.Fprintf(&b, "## 策略类型\n\n")
	if levels > 3 {
		fmt.Fprintf(&b, "检测到 %d 个不同的申报电量水平，策略呈阶梯形，建议按下表分段申报。\n\n", levels)
	} else {
		fmt.Fprintf(&b, "策略为门槛型（bang-bang）：只需盯住门槛价格两侧切换申报。\n\n")
	}

	fmt.Fprintf(&b, "## 价格-电量对照表\n\n")
	fmt.Fprintf(&b, "| DA价格 (CNY/MWh) | 申报电量 (MW) | 备注 |\n")
	fmt.Fprintf(&b, "|---:|---:|:---|\n")
	for _, row := range tableRows(curve) {
		fmt.Fprintf(&b, "| %.3f | %.2f | %s |\n", row.price, row.pda, row.note)
	}
	b.WriteString("\n")

	st := curve.Stats
	fmt.Fprintf(&b, "## 收敛统计\n\n")
	fmt.Fprintf(&b, "- 求解点数: %d（细化点 %d）\n", st.TotalPoints, st.FinePoints)
	fmt.Fprintf(&b, "- 收敛率: %.1f%%\n", st.ConvergenceRate)
	fmt.Fprintf(&b, "- 平均迭代次数: %.0f\n", st.AvgIterations)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write recommendation: %w", err)
	}
	return nil
}

type tableRow struct {
	price float64
	pda   float64
	note  string
}

// tableRows 压缩曲线：保留首尾与申报电量发生实质变化的点。
func tableRows(curve *strategy.Curve) []tableRow {
	points := curve.Points
	if len(points) == 0 {
		return nil
	}

	rows := []tableRow{newRow(points[0])}
	lastPDA := snap(points[0].PDA)
	for i := 1; i < len(points)-1; i++ {
		pt := points[i]
		if math.Abs(snap(pt.PDA)-lastPDA) > levelChangeMin {
			rows = append(rows, newRow(pt))
			lastPDA = snap(pt.PDA)
		}
	}
	if len(points) > 1 {
		rows = append(rows, newRow(points[len(points)-1]))
	}
	return rows
}

func newRow(pt solver.Point) tableRow {
	var notes []string
	if isFinePrice(pt.DAPrice) {
		notes = append(notes, "细化点")
	}
	if !pt.Converged {
		notes = append(notes, "未收敛")
	}
	return tableRow{price: pt.DAPrice, pda: snap(pt.PDA), note: strings.Join(notes, "，")}
}

func distinctLevels(curve *strategy.Curve) int {
	seen := make(map[int64]struct{})
	for _, pt := range curve.Points {
		seen[int64(math.Round(snap(pt.PDA)))] = struct{}{}
	}
	return len(seen)
}

func isFinePrice(p float64) bool {
	_, frac := math.Modf(p)
	return math.Abs(frac) > 1e-9 && math.Abs(frac-1) > 1e-9
}
