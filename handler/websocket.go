package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"snapconnect_agents/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境需要检查 Origin
		return true
	},
}

// FeedClient 活动流观察端连接
type FeedClient struct {
	ID   uuid.UUID
	Conn *websocket.Conn
	Send chan []byte
}

// FeedHub 活动流连接管理中心：运行期间把每个社交动作
// 以 JSON 事件实时广播给连接的运营端
type FeedHub struct {
	clients map[uuid.UUID]*FeedClient
	mu      sync.RWMutex
}

var _ service.ActionNotifier = (*FeedHub)(nil)

// NewFeedHub 创建 Hub
func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients: make(map[uuid.UUID]*FeedClient),
	}
}

// NotifyAction 实现 service.ActionNotifier：事件序列化后广播
func (h *FeedHub) NotifyAction(event service.ActionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			// 写不进去说明客户端消费太慢，丢弃该事件（活动流允许有损）
		}
	}
}

func (h *FeedHub) register(client *FeedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *FeedHub) unregister(client *FeedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
}

// HandleFeed WebSocket 活动流端点
func HandleFeed(hub *FeedHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ERROR] websocket upgrade failed: %v", err)
			return
		}

		client := &FeedClient{
			ID:   uuid.New(),
			Conn: conn,
			Send: make(chan []byte, 64),
		}
		hub.register(client)
		log.Printf("feed client connected: %s", client.ID)

		go writePump(hub, client)
		go readPump(hub, client)
	}
}

// writePump 把事件写给客户端；带定期 ping 保活
func writePump(hub *FeedHub, client *FeedClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Send:
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 活动流是单向的，读循环只负责探测断开
func readPump(hub *FeedHub, client *FeedClient) {
	defer func() {
		hub.unregister(client)
		client.Conn.Close()
		log.Printf("feed client disconnected: %s", client.ID)
	}()
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
