package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/events"
	"github.com/postertrack/backend/internal/middleware"
	"github.com/postertrack/backend/internal/rbac"
	"go.uber.org/zap"
)

const (
	wsSendBuffer    = 32
	wsWriteTimeout  = 10 * time.Second
	wsSessionCheck  = time.Minute
	wsValidateLimit = 5 * time.Second

	wsAuthLocal = "ws_auth"
)

// wsAuth is what the upgrade middleware saw, kept so the session can be
// rechecked while the socket is open.
type wsAuth struct {
	token     string
	ip        string
	userAgent string
}

type wsMessage struct {
	Stream string       `json:"stream"`
	Event  events.Event `json:"event"`
}

// wsClient is one live connection. Writes go through send so only the writer
// goroutine touches the socket.
type wsClient struct {
	actor rbac.Actor
	auth  wsAuth
	send  chan []byte
}

// WSHub pushes campaign and image events to connected users who may see them.
// Open sockets are closed once their session is revoked or the user is
// deactivated.
type WSHub struct {
	subscriber events.Subscriber
	sessions   middleware.SessionValidator
	log        *zap.Logger
	recheck    time.Duration
	mu         sync.RWMutex
	clients    map[*wsClient]struct{}
}

func NewWSHub(subscriber events.Subscriber, sessions middleware.SessionValidator, log *zap.Logger) *WSHub {
	return &WSHub{
		subscriber: subscriber,
		sessions:   sessions,
		log:        log,
		recheck:    wsSessionCheck,
		clients:    make(map[*wsClient]struct{}),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, h.dispatch, events.StreamCampaign, events.StreamImage)
}

func (h *WSHub) dispatch(stream string, event events.Event) {
	data, err := json.Marshal(wsMessage{Stream: stream, Event: event})
	if err != nil {
		h.log.Error("failed to marshal ws event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		if !events.VisibleTo(stream, event, cl.actor) {
			continue
		}
		select {
		case cl.send <- data:
		default:
			h.log.Warn("dropping ws event for slow client", zap.String("user_id", cl.actor.UserID.String()))
		}
	}
}

func (h *WSHub) register(actor rbac.Actor, auth wsAuth) *wsClient {
	cl := &wsClient{actor: actor, auth: auth, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	return cl
}

func (h *WSHub) unregister(cl *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}

// WSUpgradeMiddleware authenticates the ?token= query parameter and requires a
// websocket upgrade.
func WSUpgradeMiddleware(sessions middleware.SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := c.Query("token")
		if token == "" {
			return apperr.Unauthorized("missing token")
		}
		actor, err := sessions.Validate(c.UserContext(), token, c.IP(), c.Get(fiber.HeaderUserAgent))
		if err != nil {
			return err
		}
		c.Locals(middleware.CtxActor, actor)
		c.Locals(wsAuthLocal, wsAuth{token: token, ip: c.IP(), userAgent: c.Get(fiber.HeaderUserAgent)})
		return c.Next()
	}
}

// sessionAlive revalidates the token the socket was opened with.
func (h *WSHub) sessionAlive(cl *wsClient) bool {
	ctx, cancel := context.WithTimeout(context.Background(), wsValidateLimit)
	defer cancel()
	_, err := h.sessions.Validate(ctx, cl.auth.token, cl.auth.ip, cl.auth.userAgent)
	if err != nil {
		h.log.Info("closing ws connection", zap.String("user_id", cl.actor.UserID.String()), zap.Error(err))
		return false
	}
	return true
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	actor, ok := conn.Locals(middleware.CtxActor).(rbac.Actor)
	if !ok {
		_ = conn.Close()
		return
	}
	auth, _ := conn.Locals(wsAuthLocal).(wsAuth)

	cl := h.register(actor, auth)
	done := make(chan struct{})
	go func() {
		defer close(done)
		var tick <-chan time.Time
		if h.sessions != nil && auth.token != "" {
			ticker := time.NewTicker(h.recheck)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case data, ok := <-cl.send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-tick:
				if h.sessionAlive(cl) {
					continue
				}
				msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session ended")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
				// Unblocks the read loop below.
				_ = conn.Close()
				return
			}
		}
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(cl)
	<-done
	_ = conn.Close()
}
