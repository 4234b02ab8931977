package api

import (
	"AgentDeck/backend/go/internal/models"
	"AgentDeck/backend/go/internal/task_service/service"
	"AgentDeck/backend/go/pkg/httpmiddleware"
	"AgentDeck/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	maxFrameSize       = 64 << 10
	defaultPongWait    = 60 * time.Second
	defaultPingPeriod  = defaultPongWait * 9 / 10
	healthCheckTimeout = 2 * time.Second
)

// HealthChecker reports whether a dependency is reachable. *kafka.Client implements it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type namedCheck struct {
	name  string
	check HealthChecker
}

// API provides the HTTP and WebSocket handlers of the task server.
type API struct {
	service      *service.TaskService
	logger       *logger.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pongWait     time.Duration
	pingPeriod   time.Duration
	checks       []namedCheck

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// Option configures an API.
type Option func(*API)

// WithHealthCheck adds check to /health under name.
func WithHealthCheck(name string, check HealthChecker) Option {
	return func(a *API) {
		a.checks = append(a.checks, namedCheck{name: name, check: check})
	}
}

// WithKeepAlive sets how often the server pings each socket and how long it
// waits for any frame or pong before dropping the connection.
func WithKeepAlive(pongWait, pingPeriod time.Duration) Option {
	return func(a *API) {
		if pongWait > 0 && pingPeriod > 0 && pingPeriod < pongWait {
			a.pongWait = pongWait
			a.pingPeriod = pingPeriod
		}
	}
}

// NewAPI creates a new API handler. Socket upgrades are accepted from
// allowedOrigins; "*" or an empty list allows any origin.
func NewAPI(svc *service.TaskService, log *logger.Logger, allowedOrigins []string, writeTimeout time.Duration, opts ...Option) *API {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	a := &API{
		service:      svc,
		logger:       log,
		writeTimeout: writeTimeout,
		pongWait:     defaultPongWait,
		pingPeriod:   defaultPingPeriod,
		conns:        make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigins),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// HealthHandler reports liveness. With health checks configured it also
// reports each dependency and answers 503 when one of them fails.
func (a *API) HealthHandler(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if len(a.checks) == 0 {
		c.JSON(http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()
	code := http.StatusOK
	results := make(map[string]string, len(a.checks))
	for _, nc := range a.checks {
		if err := nc.check.HealthCheck(ctx); err != nil {
			results[nc.name] = err.Error()
			code = http.StatusServiceUnavailable
			body["status"] = "degraded"
			a.logger.WithError(models.NewErrorInfo(err, "health_check")).Warn("Health check failed: " + nc.name)
			continue
		}
		results[nc.name] = "ok"
	}
	body["checks"] = results
	c.JSON(code, body)
}

// AgentsHandler returns the agent descriptor table keyed by agent type.
func (a *API) AgentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.service.Registry().Descriptors())
}

// WebSocketHandler upgrades the connection and serves one session until the client leaves.
func (a *API) WebSocketHandler(c *gin.Context) {
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.WithError(models.NewErrorInfo(err, "upgrade_error")).Error("Failed to upgrade WebSocket connection")
		return
	}
	a.track(conn)
	defer a.untrack(conn)

	userID := c.GetString(httpmiddleware.UserIDKey)
	log := a.logger.WithPayload(map[string]interface{}{"user_id": userID, "remote_addr": c.Request.RemoteAddr})

	emitter := &wsEmitter{conn: conn, writeTimeout: a.writeTimeout}
	sess := a.service.OpenSession(context.Background(), emitter)
	defer a.service.CloseSession(sess)
	log.Info("WebSocket connection opened for session: " + sess.ID())

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(a.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(a.pongWait))
	})
	stopPing := make(chan struct{})
	defer close(stopPing)
	go a.keepAlive(conn, stopPing)

	for {
		_, frame, err := conn.ReadMessage()
		if err == nil {
			err = conn.SetReadDeadline(time.Now().Add(a.pongWait))
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(models.NewErrorInfo(err, "transport_error")).Warn("WebSocket read failed")
			}
			break
		}
		a.dispatch(sess, emitter, frame)
	}
	log.Info("WebSocket connection closed for session: " + sess.ID())
}

// keepAlive pings conn until stop is closed. A peer that stops answering
// lets the read deadline expire, which ends the read loop and the session.
func (a *API) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(a.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(a.writeTimeout)); err != nil {
				return
			}
		}
	}
}

// dispatch handles one client frame. Protocol errors are answered with an
// error event and leave the connection open.
func (a *API) dispatch(sess *service.Session, emitter service.Emitter, frame []byte) {
	var env models.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		_ = emitter.Emit(models.EventError, models.ErrorEvent{Error: "invalid message: " + err.Error()})
		return
	}
	switch env.Event {
	case models.EventSubmitTask:
		var req models.SubmitTaskRequest
		if len(env.Data) == 0 || json.Unmarshal(env.Data, &req) != nil {
			_ = emitter.Emit(models.EventError, models.ErrorEvent{Error: "invalid submitTask payload"})
			return
		}
		// Rejections are already reported to the client as taskRejected.
		_, _ = sess.Submit(req.Request)
	default:
		_ = emitter.Emit(models.EventError, models.ErrorEvent{Error: "unknown event: " + env.Event})
	}
}

func (a *API) track(conn *websocket.Conn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conns[conn] = struct{}{}
}

func (a *API) untrack(conn *websocket.Conn) {
	a.mu.Lock()
	delete(a.conns, conn)
	a.mu.Unlock()
	conn.Close()
}

// Shutdown cancels every session and closes the hijacked connections that
// http.Server.Shutdown does not track.
func (a *API) Shutdown() {
	a.service.Shutdown()
	a.mu.Lock()
	defer a.mu.Unlock()
	for conn := range a.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

// wsEmitter writes envelopes to one connection. gorilla allows a single
// concurrent writer, so writes are serialized.
type wsEmitter struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func (e *wsEmitter) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.conn.SetWriteDeadline(time.Now().Add(e.writeTimeout)); err != nil {
		return err
	}
	return e.conn.WriteJSON(models.Envelope{Event: event, Data: data})
}
