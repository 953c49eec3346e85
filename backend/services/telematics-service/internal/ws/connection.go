package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit  = 4 * 1024
	pongWait   = 60 * time.Second
	sendBuffer = 64
)

// Client is one dashboard connection subscribed to a VIN, or to every VIN
// when vin is empty.
type Client struct {
	id           string
	vin          string
	ws           *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	logger       *zap.Logger
	writeTimeout time.Duration
	pingInterval time.Duration
	onClose      func(*Client)
}

// NewClient wraps an upgraded connection.
func NewClient(id, vin string, ws *websocket.Conn, writeTimeout, pingInterval time.Duration, logger *zap.Logger, onClose func(*Client)) *Client {
	return &Client{
		id:           id,
		vin:          vin,
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		logger:       logger,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		onClose:      onClose,
	}
}

// ID returns identifier.
func (c *Client) ID() string {
	return c.id
}

// Wants reports whether the client follows vin.
func (c *Client) Wants(vin string) bool {
	return c.vin == "" || c.vin == vin
}

// Start runs the write pump in the background and blocks in the read pump
// until the peer goes away.
func (c *Client) Start() {
	go c.writePump()
	c.readPump()
}

// readPump only services control frames; the feed is one-way.
func (c *Client) readPump() {
	defer c.Close()
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.logger.Debug("live feed read closed", zap.String("client_id", c.id), zap.Error(err))
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Send enqueues a message; it is dropped when the client is slow or gone.
func (c *Client) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("dropping live feed message, buffer full", zap.String("client_id", c.id))
		return false
	}
}

// Close tears the connection down once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.onClose != nil {
			c.onClose(c)
		}
		// Let the write pump send the close frame before the socket goes.
		time.AfterFunc(c.writeTimeout, func() { _ = c.ws.Close() })
	})
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}
