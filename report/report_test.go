package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiangshan55555/power-market-system/config"
	"github.com/jiangshan55555/power-market-system/solver"
	"github.com/jiangshan55555/power-market-system/strategy"
)

var testRTPrices = []float64{375, 385}

func testCurve() *strategy.Curve {
	mk := func(price, pda float64, converged bool) solver.Point {
		return solver.Point{
			DAPrice:    price,
			PDA:        pda,
			PRT:        []float64{pda, pda + 8},
			RUp:        []float64{0, 8},
			RDn:        []float64{0, 0},
			Objective:  pda * 2,
			Converged:  converged,
			Iterations: 100,
		}
	}
	return &strategy.Curve{
		Points: []solver.Point{
			mk(378, 0.05, true),
			mk(380, 0, true),
			mk(380.75, 50, true),
			mk(382, 100, false),
			mk(384, 100, true),
		},
		ThresholdPrice: 380.75,
		Stats: strategy.Stats{
			TotalPoints:     5,
			ConvergedPoints: 4,
			FinePoints:      1,
			ConvergenceRate: 80,
			AvgIterations:   100,
		},
	}
}

func testReportConfig() config.AppConfig {
	cfg := config.Default()
	cfg.Costs = config.CostConfig{Generation: 380, Upward: 500, Downward: 300}
	cfg.Capacity = config.CapacityConfig{MaxPower: 100, MaxUpReg: 8, MaxDownReg: 8}
	return cfg
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{
		Dir: filepath.Join(dir, "bidding"),
		Now: func() time.Time { return time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC) },
	}

	files, err := w.WriteAll(testCurve(), testReportConfig(), testRTPrices)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		_, err := os.Stat(f)
		assert.NoError(t, err, "artifact %s must exist", f)
	}
}

func TestWriteStrategyCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), StrategyFile)
	require.NoError(t, WriteStrategyCSV(path, testCurve(), testRTPrices))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// 表头 + 5个点 × 2个RT价格
	require.Len(t, rows, 1+5*2)
	assert.Equal(t, []string{"DA_Price", "RT_Price", "P_DA", "P_RT", "R_up", "R_dn", "Objective"}, rows[0])

	// 接近0的申报电量导出为0
	assert.Equal(t, "378.000", rows[1][0])
	assert.Equal(t, "0.0000", rows[1][2])
}

func TestWriteSummaryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), SummaryFile)
	at := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, WriteSummaryJSON(path, testCurve(), testReportConfig(), at))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var s Summary
	require.NoError(t, json.Unmarshal(raw, &s))
	assert.Equal(t, "2024-06-02T08:00:00Z", s.GeneratedAt)
	assert.Equal(t, "neurodynamic_gradient_ascent", s.Method)
	assert.Equal(t, 380.0, s.CostGeneration)
	assert.Equal(t, 5, s.TotalPoints)
	assert.Equal(t, 4, s.ConvergedPoints)
	assert.InDelta(t, 80.0, s.ConvergenceRate, 1e-9)
	assert.Equal(t, 380.75, s.ThresholdPrice)
}

func TestWriteRecommendation(t *testing.T) {
	path := filepath.Join(t.TempDir(), RecommendationFile)
	at := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, WriteRecommendation(path, testCurve(), testReportConfig(), at))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)

	assert.Contains(t, content, "380.75")
	assert.Contains(t, content, "细化点")
	assert.Contains(t, content, "未收敛")
	// 三个电量水平（0/50/100）仍算门槛型
	assert.Contains(t, content, "门槛型")
}

func TestWriteRecommendation_SteppedStrategy(t *testing.T) {
	curve := testCurve()
	curve.Points = append(curve.Points,
		solver.Point{DAPrice: 386, PDA: 20, Converged: true},
		solver.Point{DAPrice: 388, PDA: 75, Converged: true},
	)

	path := filepath.Join(t.TempDir(), RecommendationFile)
	require.NoError(t, WriteRecommendation(path, curve, testReportConfig(), time.Now()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "阶梯")
}

func TestTableRows_CompressesFlatSegments(t *testing.T) {
	rows := tableRows(testCurve())
	// 378(0) 起点、380.75(50)、382(100)、384(100) 终点；380 与 378 同水平被压缩
	require.Len(t, rows, 4)
	assert.Equal(t, 378.0, rows[0].price)
	assert.Equal(t, 384.0, rows[len(rows)-1].price)
	for _, r := range rows {
		assert.False(t, strings.Contains(r.note, "，，"))
	}
}
