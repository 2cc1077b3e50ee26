package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jiangshan55555/power-market-system/infrastructure/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域由外层CORS中间件统一控制
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PointUpdate 单个价格点求解完成的推送载荷。
type PointUpdate struct {
	DAPrice    float64 `json:"da_price"`
	PDA        float64 `json:"p_da"`
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
}

// ProgressEvent 推送给订阅端的运行进度事件。
type ProgressEvent struct {
	Event          string       `json:"event"` // run_started / point_solved / run_finished / run_failed
	Ts             string       `json:"ts"`
	Point          *PointUpdate `json:"point,omitempty"`
	ThresholdPrice float64      `json:"threshold_price,omitempty"`
	TotalPoints    int          `json:"total_points,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// Hub 向所有websocket订阅端广播进度事件。发送非阻塞：队列满的慢客户端
// 直接断开，绝不拖慢优化主流程。
type Hub struct {
	log *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

// NewHub 创建广播中心。
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:     log,
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Broadcast 向所有已连接客户端广播一个事件。
func (h *Hub) Broadcast(ev ProgressEvent) {
	if ev.Ts == "" {
		ev.Ts = time.Now().UTC().Format(time.RFC3339Nano)
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// 慢客户端：断开并移除
			delete(h.clients, conn)
			close(ch)
			_ = conn.Close()
		}
	}
}

// ServeWS 把一个HTTP请求升级为websocket订阅。
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.LogError(err, map[string]interface{}{"op": "ws_upgrade"})
		return
	}

	ch := make(chan []byte, 16)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[conn] = ch
	h.mu.Unlock()

	go h.writeLoop(conn, ch)
	go h.readLoop(conn)
}

// Close 断开所有客户端并拒绝新的订阅。
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for conn, ch := range h.clients {
		close(ch)
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, ch chan []byte) {
	for msg := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(conn)
			return
		}
	}
}

// readLoop 只为感知客户端断开，收到的数据全部丢弃。
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
	_ = conn.Close()
}
