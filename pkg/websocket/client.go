package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout = 10 * time.Second
	idleTimeout  = time.Minute
	pingInterval = 50 * time.Second
	// Канал только на выдачу: от браузера ждём управляющие кадры, не данные.
	inboundLimit = 512
	sendBuffer   = 64
)

// Client - одно соединение пользователя. У пользователя их может быть несколько (вкладки, устройства).
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{hub: hub, conn: conn, Send: make(chan []byte, sendBuffer), UserID: userID}
}

// Serve регистрирует клиента в хабе и запускает чтение и запись. Не блокирует.
func (c *Client) Serve() {
	c.hub.Register <- c
	go c.writeLoop()
	go c.readLoop()
}

// readLoop держит дедлайн чтения по понгам и снимает клиента с хаба при обрыве.
func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(inboundLimit)
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(idleTimeout)) }
	_ = extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("WebSocket: соединение оборвано",
					zap.String("user_id", c.UserID.String()), zap.Error(err))
			}
			return
		}
	}
}

// writeLoop выдаёт сообщения из Send и пингует клиента. Закрытый Send - сигнал хаба завершить соединение.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, open := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !open {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.logger.Debug("WebSocket: запись не удалась", zap.String("user_id", c.UserID.String()), zap.Error(err))
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
