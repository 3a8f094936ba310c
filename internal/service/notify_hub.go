package service

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"goal_tracker_backend/internal/model"
	"goal_tracker_backend/pkg/logger"
	"goal_tracker_backend/pkg/monitoring"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage 推送给客户端的消息信封
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ReminderEvent 一条已触发的提醒
type ReminderEvent struct {
	ID      string                `json:"id"`
	FiredAt time.Time             `json:"firedAt"`
	Payload model.ReminderPayload `json:"payload"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NotifyHub 向所有已连接客户端广播触发的提醒（移动端的通知面板）
type NotifyHub struct {
	register   chan *hubClient
	unregister chan *hubClient
	broadcast  chan []byte
	done       chan struct{}

	mu      sync.Mutex
	clients map[*hubClient]bool
}

func NewNotifyHub() *NotifyHub {
	return &NotifyHub{
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		clients:    make(map[*hubClient]bool),
	}
}

// Run 事件循环，单 goroutine 持有 clients 的写权
func (h *NotifyHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				client.conn.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop 关闭全部连接并退出事件循环
func (h *NotifyHub) Stop() {
	close(h.done)
}

// BroadcastReminder 把触发的提醒推给所有在线客户端
func (h *NotifyHub) BroadcastReminder(id string, payload model.ReminderPayload) {
	event := WSMessage{
		Type: "REMINDER",
		Data: ReminderEvent{ID: id, FiredAt: time.Now(), Payload: payload},
	}
	raw, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("failed to encode reminder event", zap.Error(err))
		return
	}
	monitoring.RemindersFired.Inc()

	select {
	case h.broadcast <- raw:
	case <-h.done:
	}
}

// ServeWS 升级连接并注册客户端
func (h *NotifyHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &hubClient{conn: conn, send: make(chan []byte, 16)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

func (h *NotifyHub) removeClient(client *hubClient) {
	h.mu.Lock()
	if h.clients[client] {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	client.conn.Close()
}

// readPump 只用于探测断连，客户端没有上行协议
func (c *hubClient) readPump(h *NotifyHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
