package ws

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait             = 10 * time.Second
	pongWait              = 60 * time.Second
	pingPeriod            = (pongWait * 9) / 10
	defaultMaxMessageSize = 1 << 20
)

// Client represents a WebSocket client connection
type Client struct {
	conn           *websocket.Conn
	next           http.Handler
	maxMessageSize int64
	logger         zerolog.Logger

	sendChan  chan []byte
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, next http.Handler, maxMessageSize int64, logger zerolog.Logger) *Client {
	return &Client{
		conn:           conn,
		next:           next,
		maxMessageSize: maxMessageSize,
		logger:         logger,
		sendChan:       make(chan []byte, 256),
		closeChan:      make(chan struct{}),
	}
}

// Run starts the client read and write loops
func (c *Client) Run(ctx context.Context) {
	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump(ctx)
	go c.closeOnDone(ctx)

	c.readPump(ctx)
}

// closeOnDone closes the connection when ctx ends, which unblocks a
// pending ReadMessage in readPump
func (c *Client) closeOnDone(ctx context.Context) {
	select {
	case <-ctx.Done():
		c.Close()
	case <-c.closeChan:
	}
}

// readPump reads messages from the WebSocket connection
func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("read error")
			}
			return
		}

		c.handleMessage(ctx, data)
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		case data := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("write error")
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

// handleMessage dispatches one tunneled request through the HTTP handler
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	req, err := ParseRequest(data)
	if err != nil {
		c.sendResponse(NewErrorResponse(nil, http.StatusBadRequest, "invalid message"))
		return
	}
	if err := req.Validate(); err != nil {
		c.sendResponse(NewErrorResponse(req.ID, http.StatusBadRequest, err.Error()))
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		c.sendResponse(NewErrorResponse(req.ID, http.StatusBadRequest, err.Error()))
		return
	}
	httpReq.RequestURI = req.URL
	httpReq.RemoteAddr = c.conn.RemoteAddr().String()
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	buf := newResponseBuffer()
	c.next.ServeHTTP(buf, httpReq)

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", buf.status).
		Msg("tunneled request")

	c.sendResponse(buf.response(req.ID))
}

// sendResponse sends a tunnel response
func (c *Client) sendResponse(resp *Response) {
	data, err := resp.Bytes()
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to marshal response")
		return
	}
	c.send(data)
}

// send sends data to the client
func (c *Client) send(data []byte) {
	select {
	case c.sendChan <- data:
	case <-c.closeChan:
	default:
		c.logger.Warn().Msg("send channel full, dropping message")
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		c.conn.Close()
		c.logger.Debug().Msg("client closed")
	})
}
