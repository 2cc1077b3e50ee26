package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jiangshan55555/power-market-system/metrics"
)

// 向 /metrics 填充一批模拟数据，便于 Prometheus/Grafana 面板验证
func main() {
	addr := flag.String("metricsAddr", ":9100", "Prometheus 指标监听地址")
	rate := flag.Float64("convergenceRate", 97.5, "模拟收敛率（百分比）")
	threshold := flag.Float64("thresholdPrice", 380.5, "模拟门槛价格")
	regions := flag.Int("regions", 1, "模拟门槛区域数")
	flag.Parse()

	metrics.StartMetricsServer(*addr)
	fmt.Printf("metrics_probe started at %s\n", *addr)

	// 额外注册一个探针指标，确保 /metrics 可见 bidding_* 前缀
	probe := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bidding_probe_test",
		Help: "Probe test metric",
	})
	prometheus.MustRegister(probe)
	probe.Set(1)

	metrics.UpdateRunSummary(*rate, *threshold, *regions)

	// 周期性灌入模拟的单点求解样本，观察直方图与计数器变化
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	iter := 100
	for range ticker.C {
		iter = (iter % 2000) + 37
		metrics.ObservePoint(iter%7 != 0, iter, float64(iter)*0.0004)
		metrics.RefinedPoints.WithLabelValues("fine").Inc()
	}
}
