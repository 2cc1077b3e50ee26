// Package server exposes the optimizer over HTTP: strategy and summary
// queries, run triggering and a websocket progress stream.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/jiangshan55555/power-market-system/config"
	"github.com/jiangshan55555/power-market-system/infrastructure/logger"
	"github.com/jiangshan55555/power-market-system/internal/engine"
	"github.com/jiangshan55555/power-market-system/report"
)

// TriggerFunc 触发一次完整优化运行。由装配方注入：加载预测数据、调用
// engine.Run 并写出报告。
type TriggerFunc func(ctx context.Context) error

// Server 结果查询与运行触发服务。
type Server struct {
	cfg     config.AppConfig
	eng     *engine.Engine
	trigger TriggerFunc
	log     *logger.Logger
	hub     *Hub

	httpSrv *http.Server
}

// New 创建服务实例，并把引擎的单点进度接到websocket广播上。
func New(cfg config.AppConfig, eng *engine.Engine, trigger TriggerFunc, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		cfg:     cfg,
		eng:     eng,
		trigger: trigger,
		log:     log,
		hub:     NewHub(log),
	}
	eng.OnPoint(func(p engine.PointProgress) {
		s.hub.Broadcast(ProgressEvent{
			Event: "point_solved",
			Point: &PointUpdate{
				DAPrice:    p.DAPrice,
				PDA:        p.PDA,
				Converged:  p.Converged,
				Iterations: p.Iterations,
			},
		})
	})
	return s
}

// Hub 返回进度广播中心。
func (s *Server) Hub() *Hub { return s.hub }

// Handler 组装完整的HTTP处理链：gin路由外层包一圈CORS。
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.GET("/ws/progress", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})

	api := router.Group("/api/v1")
	{
		api.GET("/strategy", s.handleStrategy)
		api.GET("/summary", s.handleSummary)
		api.POST("/optimize", s.handleOptimize)
	}

	origins := s.cfg.Server.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(router)
}

// Start 启动HTTP服务，阻塞直到服务退出。
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.LogPhase("server_listening", map[string]interface{}{"addr": s.cfg.Server.ListenAddr})
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown 优雅关闭：先断开进度订阅，再排空HTTP连接。
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"state":  s.eng.State().String(),
	})
}

// strategyRow 单个价格点的查询视图。
type strategyRow struct {
	DAPrice    float64 `json:"da_price"`
	PDA        float64 `json:"p_da"`
	Objective  float64 `json:"objective"`
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
}

func (s *Server) handleStrategy(c *gin.Context) {
	curve, at := s.eng.LastCurve()
	if curve == nil {
		s.noResult(c)
		return
	}

	rows := make([]strategyRow, len(curve.Points))
	for i, pt := range curve.Points {
		rows[i] = strategyRow{
			DAPrice:    pt.DAPrice,
			PDA:        pt.PDA,
			Objective:  pt.Objective,
			Converged:  pt.Converged,
			Iterations: pt.Iterations,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"generated_at":    at.UTC().Format(time.RFC3339),
		"threshold_price": curve.ThresholdPrice,
		"points":          rows,
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	curve, at := s.eng.LastCurve()
	if curve == nil {
		s.noResult(c)
		return
	}
	c.JSON(http.StatusOK, report.NewSummary(curve, s.eng.Config(), at))
}

func (s *Server) handleOptimize(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": gin.H{"code": "NO_TRIGGER", "message": "optimization trigger not configured"},
		})
		return
	}
	if s.eng.State() == engine.StateRunning {
		c.JSON(http.StatusConflict, gin.H{
			"error": gin.H{"code": "ALREADY_RUNNING", "message": "optimization run already in progress"},
		})
		return
	}

	go s.runTrigger()
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) runTrigger() {
	s.hub.Broadcast(ProgressEvent{Event: "run_started"})

	if err := s.trigger(context.Background()); err != nil {
		s.log.LogError(err, map[string]interface{}{"op": "triggered_run"})
		s.hub.Broadcast(ProgressEvent{Event: "run_failed", Error: err.Error()})
		return
	}

	ev := ProgressEvent{Event: "run_finished"}
	if curve, _ := s.eng.LastCurve(); curve != nil {
		ev.ThresholdPrice = curve.ThresholdPrice
		ev.TotalPoints = curve.Stats.TotalPoints
	}
	s.hub.Broadcast(ev)
}

func (s *Server) noResult(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": gin.H{"code": "NO_RESULT", "message": "no completed optimization run yet"},
	})
}
