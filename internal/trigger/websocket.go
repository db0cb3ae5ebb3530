package trigger

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smartfill/api/schemas"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Must be less than pongWait.
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 4096
	sendChannelSize = 16
)

// wsClient is one WebSocket connection on /ws/v1/fill.
type wsClient struct {
	server *Server
	conn   *websocket.Conn
	logger *zap.Logger
	send   chan schemas.FillResponse
	done   chan struct{}

	// ctx is cancelled when the connection goes away, which stops any
	// run it started between fields.
	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

func (s *Server) handleFillSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.logger.Warn("Failed to upgrade connection to WebSocket.", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &wsClient{
		server: s,
		conn:   conn,
		logger: s.logger.With(zap.String("remote_addr", r.RemoteAddr)),
		send:   make(chan schemas.FillResponse, sendChannelSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	c.logger.Debug("WebSocket connection established.")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()
	c.readPump()

	c.cancel()
	c.runs.Wait()
	close(c.done)
	<-writerDone
	c.logger.Debug("WebSocket connection finished.")
}

// readPump reads commands until the connection fails or closes.
func (c *wsClient) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("Failed to set initial read deadline.", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd schemas.FillCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket closed unexpectedly.", zap.Error(err))
			}
			return
		}
		c.logger.Debug("Received command.", zap.String("action", cmd.Action), zap.String("request_id", cmd.RequestID))

		// Runs happen off the read loop so pongs and close frames keep flowing.
		c.runs.Add(1)
		go func(cmd schemas.FillCommand) {
			defer c.runs.Done()
			resp, _ := c.server.dispatcher.Dispatch(c.ctx, cmd)
			c.enqueue(resp)
		}(cmd)
	}
}

// writePump owns every write to the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case resp := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(resp); err != nil {
				c.logger.Warn("Failed to write WebSocket message.", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (c *wsClient) enqueue(resp schemas.FillResponse) {
	select {
	case c.send <- resp:
	default:
		c.logger.Warn("WebSocket send buffer full, dropping response.", zap.String("request_id", resp.RequestID))
	}
}
