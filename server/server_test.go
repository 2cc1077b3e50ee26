package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiangshan55555/power-market-system/config"
	"github.com/jiangshan55555/power-market-system/infrastructure/logger"
	"github.com/jiangshan55555/power-market-system/internal/engine"
	"github.com/jiangshan55555/power-market-system/market"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// 小网格配置，让测试中的完整运行在亚秒级完成
func serverTestConfig() config.AppConfig {
	cfg := config.Default()
	cfg.Costs = config.CostConfig{Generation: 380, Upward: 500, Downward: 300}
	cfg.Capacity = config.CapacityConfig{MaxPower: 100, MaxUpReg: 8, MaxDownReg: 8}
	cfg.Grid = config.GridConfig{PriceMin: 375, PriceMax: 385, Step: 1}
	cfg.Solver.NoiseFactor = 0
	cfg.Solver.Workers = 2
	return cfg
}

func serverTestSample(t *testing.T) market.Sample {
	t.Helper()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	const n = 24
	ts := make([]time.Time, n)
	da := make([]float64, n)
	rt := make([]float64, n)
	for i := 0; i < n; i++ {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
		price := 380.0 + 25.0
		if i%2 == 1 {
			price = 380.0 - 25.0
		}
		da[i] = price
		rt[i] = price
	}
	sample, err := market.NewSample(ts, da, rt)
	require.NoError(t, err)
	return sample
}

func newTestServer(t *testing.T, trigger TriggerFunc) (*Server, *engine.Engine) {
	t.Helper()
	eng, err := engine.New(serverTestConfig(), logger.Nop())
	require.NoError(t, err)
	return New(serverTestConfig(), eng, trigger, logger.Nop()), eng
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "idle", body["state"])
}

func TestStrategy_NoResult(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	for _, path := range []string{"/api/v1/strategy", "/api/v1/summary"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestStrategyAndSummary_AfterRun(t *testing.T) {
	s, eng := newTestServer(t, nil)
	_, err := eng.Run(context.Background(), serverTestSample(t), time.Time{})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/strategy")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var strat struct {
		ThresholdPrice float64       `json:"threshold_price"`
		Points         []strategyRow `json:"points"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&strat))
	assert.GreaterOrEqual(t, len(strat.Points), 11)
	assert.Greater(t, strat.ThresholdPrice, 0.0)

	resp2, err := http.Get(srv.URL + "/api/v1/summary")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var summary map[string]interface{}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&summary))
	assert.Equal(t, "neurodynamic_gradient_ascent", summary["method"])
	assert.NotZero(t, summary["total_points"])
}

func TestOptimize_Triggers(t *testing.T) {
	done := make(chan struct{})
	trigger := func(ctx context.Context) error {
		close(done)
		return nil
	}
	s, _ := newTestServer(t, trigger)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/optimize", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger was not invoked")
	}
}

func TestProgressStream_PerPointEvents(t *testing.T) {
	s, eng := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	defer s.hub.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.clientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	// 先起读协程再触发运行，逐点事件在求解过程中实时推送
	events := make(chan ProgressEvent, 256)
	go func() {
		defer close(events)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev ProgressEvent
			if json.Unmarshal(msg, &ev) == nil {
				events <- ev
			}
		}
	}()

	_, err = eng.Run(context.Background(), serverTestSample(t), time.Time{})
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "connection closed before any point event")
			if ev.Event != "point_solved" {
				continue
			}
			require.NotNil(t, ev.Point)
			assert.GreaterOrEqual(t, ev.Point.DAPrice, 375.0)
			assert.LessOrEqual(t, ev.Point.DAPrice, 385.0)
			assert.Greater(t, ev.Point.Iterations, 0)
			return
		case <-deadline:
			t.Fatal("timed out waiting for point_solved event")
		}
	}
}

func TestOptimize_NoTriggerConfigured(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/optimize", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
