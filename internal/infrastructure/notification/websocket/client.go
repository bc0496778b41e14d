package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/health-checker/pkg/logger"
)

const (
	// Время ожидания для write операций
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал ping сообщений (должен быть меньше pongWait)
	pingPeriod = pongWait * 9 / 10

	// клиенты ничего не присылают, кроме control frames
	maxMessageSize = 512

	// Размер очереди отчетов на клиента
	sendBuffer = 16
)

// Client представляет подписчика на поток отчетов
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	send   chan Message
	logger *logger.Logger

	closeOnce sync.Once
}

// NewClient создает нового WebSocket клиента
func NewClient(hub *Hub, conn *websocket.Conn, logger *logger.Logger) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, sendBuffer),
		logger: logger.With("remote_addr", conn.RemoteAddr().String()),
	}
}

// ReadPump держит соединение живым и замечает отключение клиента.
// Запускается в отдельной goroutine
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket client dropped", "error", err.Error())
			}
			return
		}
	}
}

// WritePump пишет отчеты и ping в соединение.
// Запускается в отдельной goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub остановлен или отписал клиента
				c.control(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopped"))
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Warn("WebSocket write failed", "error", err.Error(), "type", message.Type)
				return
			}

		case <-ticker.C:
			if err := c.control(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) control(messageType int, data []byte) error {
	return c.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}
