package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"naskahcollab/middleware"
	"naskahcollab/pkg/logger"
	"naskahcollab/pkg/metrics"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"
)

const writeWait = 10 * time.Second

func newConnectionID() string {
	return ulid.Make().String()
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	id       string
	identity middleware.Identity
	send     chan []byte
	limiter  *rate.Limiter

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewUpgrader accepts websocket upgrades from allowedOrigin, or from anywhere when it is "*".
func NewUpgrader(allowedOrigin string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
		},
	}
}

// ServeWs upgrades the request and runs the connection until it closes. A zero identity
// joins anonymously. When the URL
// carries docId the connection joins that document immediately, with the optional
// role query parameter as the requested role.
func ServeWs(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, identity middleware.Identity) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:      hub,
		conn:     conn,
		id:       newConnectionID(),
		identity: identity,
		send:     make(chan []byte, hub.opts.SendBuffer),
		limiter:  newEventLimiter(hub.opts),
		ctx:      ctx,
		cancel:   cancel,
	}
	metrics.ActiveConnections.Inc()
	logger.Sugar.Infow("Connection opened", "connection_id", client.id, "user_id", identity.UserID)

	var initial *WSMessage
	if docID := r.URL.Query().Get("docId"); docID != "" {
		payload, _ := json.Marshal(JoinPayload{DocumentID: docID, RequestedRole: r.URL.Query().Get("role")})
		initial = &WSMessage{Type: JoinType, DocID: docID, Payload: payload}
	}

	go client.writePump()
	go client.readPump(initial)
}

func newEventLimiter(opts Options) *rate.Limiter {
	if opts.EventRPS <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := opts.EventBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(opts.EventRPS), burst)
}

// enqueue hands a frame to the writer. A client whose buffer is full is lagging and
// gets disconnected rather than stalling its peers.
func (c *Client) enqueue(msg []byte) {
	select {
	case <-c.ctx.Done():
		return
	default:
	}
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	default:
		metrics.DroppedEvents.WithLabelValues("slow_consumer").Inc()
		logger.Sugar.Warnf("Client %s's send buffer is full. Disconnecting.", c.id)
		c.close()
	}
}

// close is safe to call from any goroutine, any number of times.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) readPump(initial *WSMessage) {
	defer func() {
		c.hub.leave(c.id)
		c.close()
		metrics.ActiveConnections.Dec()
		logger.Sugar.Infow("Connection closed", "connection_id", c.id)
	}()

	pongWait := 2 * c.hub.opts.PingInterval
	c.conn.SetReadLimit(c.hub.opts.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if initial != nil {
		c.hub.dispatch(c, *initial)
	}

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			drop("malformed", c.id, "")
			continue
		}

		// Blocks until a token is available; paced events are delayed, never dropped.
		if err := c.limiter.Wait(c.ctx); err != nil {
			return
		}
		c.hub.dispatch(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
