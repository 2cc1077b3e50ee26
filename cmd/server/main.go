package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/jiangshan55555/power-market-system/config"
	"github.com/jiangshan55555/power-market-system/forecast"
	"github.com/jiangshan55555/power-market-system/infrastructure/logger"
	"github.com/jiangshan55555/power-market-system/internal/engine"
	"github.com/jiangshan55555/power-market-system/market"
	"github.com/jiangshan55555/power-market-system/metrics"
	"github.com/jiangshan55555/power-market-system/report"
	"github.com/jiangshan55555/power-market-system/server"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, reloader, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
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

	if cfg.Server.MetricsAddr != "" {
		metrics.StartMetricsServer(cfg.Server.MetricsAddr)
	}

	eng, err := engine.New(cfg, zl)
	if err != nil {
		log.Fatalf("初始化引擎失败: %v", err)
	}

	// 每次触发都重新取当前配置：输入/输出路径支持热更新，
	// 求解器参数沿用启动时的配置
	current := func() config.AppConfig {
		if reloader != nil {
			return reloader.Current()
		}
		return cfg
	}
	trigger := func(ctx context.Context) error {
		cur := current()
		sample, err := loadSample(ctx, cur)
		if err != nil {
			return err
		}
		curve, err := eng.Run(ctx, sample, time.Time{})
		if err != nil {
			return err
		}
		writer := &report.Writer{Dir: cur.Output.Dir}
		_, err = writer.WriteAll(curve, eng.Config(), eng.LastGrid().Prices())
		return err
	}

	srv := server.New(cfg, eng, trigger, zl)

	if reloader != nil {
		if err := reloader.Start(); err != nil {
			zl.LogError(err, map[string]interface{}{"op": "config_watch"})
		} else {
			defer reloader.Stop()
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	// systemd 就绪通知，非systemd环境下是空操作
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Fatalf("HTTP服务退出: %v", err)
		}
		return
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.LogError(err, map[string]interface{}{"op": "shutdown"})
	}
}

// loadConfig 读配置并在文件存在时启用热更新；文件不存在退回内置默认值。
func loadConfig(path string) (config.AppConfig, *config.HotReloader, error) {
	reloader, err := config.NewHotReloader(path, 0, nil)
	if err == nil {
		return reloader.Current(), reloader, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		cfg := config.Default()
		return cfg, nil, config.Validate(cfg)
	}
	return config.AppConfig{}, nil, err
}

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
