package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jiangshan55555/power-market-system/config"
	"github.com/jiangshan55555/power-market-system/forecast"
	"github.com/jiangshan55555/power-market-system/infrastructure/logger"
	"github.com/jiangshan55555/power-market-system/internal/engine"
	"github.com/jiangshan55555/power-market-system/market"
	"github.com/jiangshan55555/power-market-system/metrics"
	"github.com/jiangshan55555/power-market-system/report"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	input := flag.String("input", "", "预测CSV路径，覆盖配置")
	forecastURL := flag.String("forecastURL", "", "预测服务URL，覆盖配置")
	output := flag.String("output", "", "报告输出目录，覆盖配置")
	cutoffStr := flag.String("cutoff", "", "分布拟合截止时间（RFC3339），留空用全部历史")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，留空则关闭")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *input != "" {
		cfg.Input.File = *input
	}
	if *forecastURL != "" {
		cfg.Input.ForecastURL = *forecastURL
	}
	if *output != "" {
		cfg.Output.Dir = *output
	}

	zl, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Outputs:    cfg.Log.Outputs,
		OutputFile: cfg.Log.OutputFile,
		Format:     cfg.Log.Format,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zl.Close()

	if *metricsAddr != "" {
		metrics.StartMetricsServer(*metricsAddr)
	}

	var cutoff time.Time
	if *cutoffStr != "" {
		cutoff, err = time.Parse(time.RFC3339, *cutoffStr)
		if err != nil {
			log.Fatalf("解析cutoff失败: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sample, err := loadSample(ctx, cfg)
	if err != nil {
		log.Fatalf("加载预测数据失败: %v", err)
	}

	// 未指定网格边界时由预测序列推导
	if cfg.Grid.PriceMin == 0 && cfg.Grid.PriceMax == 0 {
		if b, err := forecast.DeriveBounds(sample); err == nil {
			cfg.Grid = config.GridConfig{PriceMin: b.PriceMin, PriceMax: b.PriceMax, Step: b.Step}
		}
	}

	eng, err := engine.New(cfg, zl)
	if err != nil {
		log.Fatalf("初始化引擎失败: %v", err)
	}

	curve, err := eng.Run(ctx, sample, cutoff)
	if err != nil {
		log.Fatalf("优化运行失败: %v", err)
	}

	writer := &report.Writer{Dir: cfg.Output.Dir}
	files, err := writer.WriteAll(curve, cfg, eng.LastGrid().Prices())
	if err != nil {
		log.Fatalf("写出报告失败: %v", err)
	}

	fmt.Printf("门槛价格: %.2f CNY/MWh（%d个价格点，收敛率 %.1f%%）\n",
		curve.ThresholdPrice, curve.Stats.TotalPoints, curve.Stats.ConvergenceRate)
	for _, f := range files {
		fmt.Printf("已写出 %s\n", f)
	}
}

// loadConfig 读配置文件，文件不存在时退回内置默认值。
func loadConfig(path string) (config.AppConfig, error) {
	cfg, err := config.LoadWithEnvOverrides(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		return cfg, config.Validate(cfg)
	}
	return cfg, err
}

// loadSample 按配置选择数据来源：预测服务URL优先，否则读本地CSV。
func loadSample(ctx context.Context, cfg config.AppConfig) (market.Sample, error) {
	if cfg.Input.ForecastURL != "" {
		c := &forecast.Client{
			URL:         cfg.Input.ForecastURL,
			ForecastCol: cfg.Input.ForecastColumn,
			ActualCol:   cfg.Input.ActualColumn,
			HTTPClient:  forecast.NewDefaultHTTPClient(),
		}
		return c.Fetch(ctx)
	}
	return forecast.LoadFile(cfg.Input.File, cfg.Input.ForecastColumn, cfg.Input.ActualColumn)
}
