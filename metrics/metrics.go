// Package metrics provides Prometheus metrics for the bidding optimizer
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PointsTotal 已求解的DA价格点总数，按结果分类
	PointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bidding_points_total",
		Help: "Number of DA price points solved, by outcome.",
	}, []string{"outcome"}) // converged / diverged

	// PointIterations 单点迭代次数分布
	PointIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bidding_point_iterations",
		Help:    "Iterations per point solve.",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2000},
	})

	// PointDuration 单点求解耗时（秒）
	PointDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bidding_point_duration_seconds",
		Help:    "Wall-clock duration per point solve.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	// ThresholdRegions 最近一次运行检测到的门槛区域数
	ThresholdRegions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bidding_threshold_regions",
		Help: "Threshold regions detected in the last run.",
	})

	// RefinedPoints 各细化层新增的网格点数
	RefinedPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bidding_refined_points_total",
		Help: "Refined grid points added, by refinement pass.",
	}, []string{"pass"}) // coarse / fine / ultra_fine

	// ConvergenceRate 最近一次运行的收敛率（百分比）
	ConvergenceRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bidding_convergence_rate_percent",
		Help: "Convergence rate of the last completed run.",
	})

	// ThresholdPrice 最近一次运行推导的门槛价格
	ThresholdPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bidding_threshold_price",
		Help: "Threshold price derived by the last completed run.",
	})
)

// ObservePoint 记录一次单点求解
func ObservePoint(converged bool, iterations int, seconds float64) {
	outcome := "converged"
	if !converged {
		outcome = "diverged"
	}
	PointsTotal.WithLabelValues(outcome).Inc()
	PointIterations.Observe(float64(iterations))
	PointDuration.Observe(seconds)
}

// UpdateRunSummary 更新运行级汇总指标
func UpdateRunSummary(convergenceRate, thresholdPrice float64, regions int) {
	ConvergenceRate.Set(convergenceRate)
	ThresholdPrice.Set(thresholdPrice)
	ThresholdRegions.Set(float64(regions))
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
