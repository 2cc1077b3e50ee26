package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the full runtime configuration for one optimization run.
type AppConfig struct {
	Env      string         `yaml:"env"`
	Costs    CostConfig     `yaml:"costs"`
	Capacity CapacityConfig `yaml:"capacity"`
	Grid     GridConfig     `yaml:"grid"`
	Solver   SolverConfig   `yaml:"solver"`
	Detector DetectorConfig `yaml:"detector"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// CostConfig 机组成本参数（CNY/MWh）。
type CostConfig struct {
	Generation float64 `yaml:"generation"` // 发电边际成本 c_g
	Upward     float64 `yaml:"upward"`     // 上调整成本 c_up
	Downward   float64 `yaml:"downward"`   // 下调整成本 c_dn
}

// CapacityConfig 机组容量参数（MW）。
type CapacityConfig struct {
	MaxPower   float64 `yaml:"maxPower"`   // 最大出力 P_max
	MaxUpReg   float64 `yaml:"maxUpReg"`   // 上调整容量上限 R_up_max
	MaxDownReg float64 `yaml:"maxDownReg"` // 下调整容量上限 R_dn_max
}

// GridConfig 价格网格参数。PriceMin/PriceMax 为 0 时由预测数据动态确定。
type GridConfig struct {
	PriceMin float64 `yaml:"priceMin"`
	PriceMax float64 `yaml:"priceMax"`
	Step     float64 `yaml:"step"`
}

// SolverConfig 神经动力学求解器超参数。
type SolverConfig struct {
	EtaBase       float64       `yaml:"etaBase"`       // 基础学习率
	EtaMin        float64       `yaml:"etaMin"`        // 最小学习率
	MaxIterations int           `yaml:"maxIterations"` // 单点最大迭代次数
	Tolerance     float64       `yaml:"tolerance"`     // 收敛步长阈值
	Patience      int           `yaml:"patience"`      // 无改进早停阈值
	Momentum      float64       `yaml:"momentum"`      // 动量系数
	NoiseFactor   float64       `yaml:"noiseFactor"`   // 探索噪声因子，0 关闭噪声
	FineStep      float64       `yaml:"fineStep"`      // 第二层细化步长
	UltraFineStep float64       `yaml:"ultraFineStep"` // 第三层超精细步长
	PointTimeout  time.Duration `yaml:"pointTimeout"`  // 单点墙钟超时
	Workers       int           `yaml:"workers"`       // 并行 worker 数，0 = GOMAXPROCS
}

// DetectorConfig 门槛区域检测阈值。默认值来自经验调参，不保证适用于所有成本/容量组合。
type DetectorConfig struct {
	LowRatio      float64 `yaml:"lowRatio"`      // 低出力判定比例（相对 P_max）
	HighRatio     float64 `yaml:"highRatio"`     // 高出力判定比例
	JumpRatio     float64 `yaml:"jumpRatio"`     // 相邻点功率跳变比例
	Participation float64 `yaml:"participation"` // 参与市场的最小申报电量（MW）
}

// InputConfig 预测数据来源：本地 CSV 或预测服务 URL（二选一，URL 优先）。
type InputConfig struct {
	File           string `yaml:"file"`
	ForecastURL    string `yaml:"forecastURL"`
	ForecastColumn string `yaml:"forecastColumn"` // 日前市场使用的预测列
	ActualColumn   string `yaml:"actualColumn"`   // 实时市场使用的实际价格列
}

// OutputConfig 报告输出目录。
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig 结果服务与指标监听地址。
type ServerConfig struct {
	ListenAddr   string   `yaml:"listenAddr"`
	MetricsAddr  string   `yaml:"metricsAddr"`
	AllowOrigins []string `yaml:"allowOrigins"`
}

// LogConfig 日志配置，传给 infrastructure/logger。
type LogConfig struct {
	Level      string   `yaml:"level"`
	Format     string   `yaml:"format"`
	Outputs    []string `yaml:"outputs"`
	OutputFile string   `yaml:"outputFile"`
}

// Default returns the built-in configuration. The solver defaults mirror the
// tuned production parameters; override per run via YAML.
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Costs: CostConfig{
			Generation: 375,
			Upward:     530,
			Downward:   310,
		},
		Capacity: CapacityConfig{
			MaxPower:   100,
			MaxUpReg:   8,
			MaxDownReg: 8,
		},
		Grid: GridConfig{
			// PriceMin/PriceMax 留空，由预测数据动态确定
			Step: 2,
		},
		Solver: SolverConfig{
			EtaBase:       0.05,
			EtaMin:        0.0005,
			MaxIterations: 2000,
			Tolerance:     1e-5,
			Patience:      150,
			Momentum:      0.85,
			NoiseFactor:   0.05,
			FineStep:      0.05,
			UltraFineStep: 0.005,
			PointTimeout:  30 * time.Second,
		},
		Detector: DetectorConfig{
			LowRatio:      0.30,
			HighRatio:     0.70,
			JumpRatio:     0.30,
			Participation: 0.1,
		},
		Input: InputConfig{
			File:           "output/predictions/prediction_results.csv",
			ForecastColumn: "ensemble",
			ActualColumn:   "actual",
		},
		Output: OutputConfig{
			Dir: "output/bidding",
		},
		Server: ServerConfig{
			ListenAddr:  ":8080",
			MetricsAddr: ":9100",
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "json",
			Outputs: []string{"stdout"},
		},
	}
}

// Load reads YAML config from path on top of the defaults and validates it.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deployment-specific fields
// from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("PMS_INPUT_FILE"); v != "" {
		cfg.Input.File = v
	}
	if v := os.Getenv("PMS_FORECAST_URL"); v != "" {
		cfg.Input.ForecastURL = v
	}
	if v := os.Getenv("PMS_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("PMS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.Workers = n
		}
	}
	return cfg, Validate(cfg)
}
