package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aura-live/showcase/internal/models"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Dispatcher is the coordinator side of a connection.
type Dispatcher interface {
	Connect(p Peer, role models.Role)
	Dispatch(ctx context.Context, p Peer, ev InboundEvent) error
	Disconnect(p Peer)
}

// TokenValidator resolves an optional bearer token to a role.
type TokenValidator func(token string) (models.Role, error)

// ServerOptions tunes the websocket endpoint.
type ServerOptions struct {
	SendBuffer     int
	InboxBuffer    int
	AllowedOrigins map[string]bool // empty or containing "*" allows all
}

// Client represents a single WebSocket connection.
type Client struct {
	id       string
	role     models.Role
	conn     *websocket.Conn
	send     chan WSMessage
	closed   chan struct{}
	logger   *zap.Logger
	dispatch Dispatcher
	decoder  *Decoder
}

// ID returns the connection identifier.
func (c *Client) ID() string { return c.id }

// Role returns the role resolved at connect time.
func (c *Client) Role() models.Role { return c.role }

// Deliver queues msg for the write pump without blocking.
func (c *Client) Deliver(msg WSMessage) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
// The token query parameter is optional; without it the connection is a viewer.
func ServeWs(hub *Hub, dispatcher Dispatcher, decoder *Decoder, validate TokenValidator, opts ServerOptions, logger *zap.Logger) gin.HandlerFunc {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.InboxBuffer <= 0 {
		opts.InboxBuffer = 64
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(opts.AllowedOrigins) == 0 || opts.AllowedOrigins["*"] || origin == "" || opts.AllowedOrigins[origin]
		},
	}
	return func(c *gin.Context) {
		role := models.RoleViewer
		if token := c.Query("token"); token != "" {
			r, err := validate(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
				return
			}
			role = r
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			id:       uuid.New().String(),
			role:     role,
			conn:     conn,
			send:     make(chan WSMessage, opts.SendBuffer),
			closed:   make(chan struct{}),
			logger:   logger,
			dispatch: dispatcher,
			decoder:  decoder,
		}
		hub.Register(client)
		dispatcher.Connect(client, role)
		logger.Debug("client connected", zap.String("client_id", client.id), zap.String("role", string(role)))

		go client.writePump()
		client.run(opts.InboxBuffer)
		hub.Unregister(client)
	}
}

// run reads frames on its own goroutine and dispatches them in arrival order.
// A read error cancels the connection context so an in-flight event aborts
// promptly, then Disconnect releases presence exactly once.
func (c *Client) run(inboxSize int) {
	ctx, cancel := context.WithCancel(context.Background())
	inbox := make(chan WSMessage, inboxSize)

	go c.readPump(cancel, inbox)

	for msg := range inbox {
		if ctx.Err() != nil {
			break
		}
		c.handle(ctx, msg)
	}
	cancel()

	c.dispatch.Disconnect(c)
	close(c.closed)
	_ = c.conn.Close()
	c.logger.Debug("client disconnected", zap.String("client_id", c.id))
}

func (c *Client) handle(ctx context.Context, msg WSMessage) {
	ev, err := c.decoder.Decode(msg)
	if err == nil && ev.AdminOnly() && c.role != models.RoleAdmin {
		err = models.ErrForbidden
	}
	if err == nil {
		err = c.dispatch.Dispatch(ctx, c, ev)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Debug("event rejected", zap.String("client_id", c.id), zap.String("event", msg.Event), zap.Error(err))
		Send(c, EventError, NewErrorPayload(err))
	}
}

func (c *Client) readPump(cancel context.CancelFunc, inbox chan<- WSMessage) {
	defer func() {
		cancel()
		close(inbox)
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		select {
		case inbox <- msg:
		default:
			// inbox full, the client is flooding; drop and tell it
			Send(c, EventError, ErrorPayload{Message: "too many pending events", Code: "RateLimited"})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
