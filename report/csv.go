package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/jiangshan55555/power-market-system/strategy"
)

// 接近0的电量在导出时按0处理，与曲线汇总保持一致
const zeroSnap = 0.1

// WriteStrategyCSV 导出完整策略网格：每个 (DA价格, RT价格) 组合一行，
// 包含申报电量、实时出力与上下调整量。
func WriteStrategyCSV(path string, curve *strategy.Curve, rtPrices []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create strategy csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"DA_Price", "RT_Price", "P_DA", "P_RT", "R_up", "R_dn", "Objective"}); err != nil {
		return fmt.Errorf("write strategy csv header: %w", err)
	}

	for _, pt := range curve.Points {
		for i, rt := range rtPrices {
			if i >= len(pt.PRT) {
				break
			}
			row := []string{
				fprice(pt.DAPrice),
				fprice(rt),
				fpower(snap(pt.PDA)),
				fpower(snap(pt.PRT[i])),
				fpower(snap(pt.RUp[i])),
				fpower(snap(pt.RDn[i])),
				strconv.FormatFloat(pt.Objective, 'f', 6, 64),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write strategy csv row: %w", err)
			}
		}
	}

	w.Flush()
	return w.Error()
}

func fprice(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
func fpower(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func snap(v float64) float64 {
	if math.Abs(v) < zeroSnap {
		return 0
	}
	return v
}
