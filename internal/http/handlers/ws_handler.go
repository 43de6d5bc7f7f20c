package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/aims-admin/backend/internal/events"
	"github.com/aims-admin/backend/internal/models"
	"github.com/aims-admin/backend/internal/rbac"
	"github.com/goccy/go-json"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenResolver resolves a bare access token into a session.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.Session, error)
}

// AuditStreamHub fans audit events out to connected admin websockets.
type AuditStreamHub struct {
	sessions    TokenResolver
	subscriber  events.Subscriber
	adminRole   string
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[uuid.UUID][]*streamClient
}

// streamClient serializes writes to one socket. Events can arrive from
// several publisher goroutines at once and the websocket allows a single
// concurrent writer.
type streamClient struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

const streamWriteTimeout = 5 * time.Second

func (sc *streamClient) write(data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return nil
	}
	_ = sc.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return sc.conn.WriteMessage(websocket.TextMessage, data)
}

// close waits for an in-flight write; the connection is recycled once the
// handler returns.
func (sc *streamClient) close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.closed {
		sc.closed = true
		_ = sc.conn.Close()
	}
}

func NewAuditStreamHub(sessions TokenResolver, subscriber events.Subscriber, adminRole string, log *zap.Logger) *AuditStreamHub {
	return &AuditStreamHub{
		sessions:    sessions,
		subscriber:  subscriber,
		adminRole:   adminRole,
		log:         log,
		connections: make(map[uuid.UUID][]*streamClient),
	}
}

func (h *AuditStreamHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamAudit, h.broadcast)
}

func (h *AuditStreamHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("audit stream marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*streamClient, 0, len(h.connections))
	for _, cs := range h.connections {
		clients = append(clients, cs...)
	}
	h.mu.RUnlock()

	for _, sc := range clients {
		if err := sc.write(data); err != nil {
			// The read loop sees the closed socket and detaches it.
			h.log.Debug("audit stream write failed", zap.Error(err))
			sc.close()
		}
	}
}

// Connections reports how many sockets are attached.
func (h *AuditStreamHub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *AuditStreamHub) HandleWS(conn *websocket.Conn) {
	// Browsers cannot set headers on upgrade, so the token rides in the query.
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		h.reject(conn, "missing token")
		return
	}

	sess, err := h.sessions.ResolveToken(context.Background(), tokenStr)
	if err != nil {
		h.reject(conn, err.Error())
		return
	}
	if d := rbac.RoleGate(sess.Roles, h.adminRole); !d.Allowed {
		h.reject(conn, "forbidden")
		return
	}

	userID := sess.UserID
	client := &streamClient{conn: conn}

	h.mu.Lock()
	h.connections[userID] = append(h.connections[userID], client)
	h.mu.Unlock()
	h.log.Debug("audit stream attached", zap.String("user_id", userID.String()))

	defer func() {
		h.mu.Lock()
		conns := h.connections[userID]
		for i, c := range conns {
			if c == client {
				h.connections[userID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[userID]) == 0 {
			delete(h.connections, userID)
		}
		h.mu.Unlock()
		client.close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *AuditStreamHub) reject(conn *websocket.Conn, reason string) {
	msg, _ := json.Marshal(map[string]any{"success": false, "message": reason})
	_ = conn.WriteMessage(websocket.TextMessage, msg)
	conn.Close()
}
