// Package ws streams lifecycle events and device output to websocket
// clients.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/devicesession/internal/domain/lifecycle"
	"github.com/GriffinCanCode/devicesession/internal/domain/logs"
	"github.com/GriffinCanCode/devicesession/internal/domain/session"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/devicesession/internal/shared/id"
)

const (
	sendBuffer   = 256
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Message types.
const (
	TypeHello     = "hello"
	TypeLifecycle = "lifecycle"
	TypeLog       = "log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one frame sent to a client.
type Message struct {
	Type       string               `json:"type"`
	Connection id.ConnectionID      `json:"connection,omitempty"`
	Device     string               `json:"device,omitempty"`
	Lifecycle  *lifecycle.Event     `json:"lifecycle,omitempty"`
	Log        *logs.DeviceLogEvent `json:"log,omitempty"`
}

// Handler serves the event stream.
type Handler struct {
	manager *session.Manager
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a stream handler over manager.
func NewHandler(manager *session.Manager) *Handler {
	return &Handler{manager: manager, logger: zap.NewNop()}
}

// WithLogger sets the handler logger.
func (h *Handler) WithLogger(logger *zap.Logger) *Handler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithMetrics enables connection metrics.
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// HandleStream upgrades the request and streams events until the client
// disconnects. The optional device query parameter limits the stream to one
// device.
func (h *Handler) HandleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:     id.NewConnectionID(),
		conn:   conn,
		device: c.Query("device"),
		send:   make(chan Message, sendBuffer),
		done:   make(chan struct{}),
	}
	cl.logger = h.logger.With(zap.Stringer("connection", cl.id))

	h.metrics.IncStreamConnections()
	defer h.metrics.DecStreamConnections()

	h.serve(cl)
}

func (h *Handler) serve(cl *client) {
	defer cl.conn.Close()

	lifecycleSub := h.manager.Subscribe(func(ev lifecycle.Event) {
		if cl.wants(ev.DeviceIdentifier) {
			cl.enqueue(Message{Type: TypeLifecycle, Lifecycle: &ev})
		}
	})
	defer lifecycleSub.Cancel()

	logSub := h.manager.Pipeline().Subscribe(func(ev logs.DeviceLogEvent) {
		if cl.wants(ev.DeviceIdentifier) {
			cl.enqueue(Message{Type: TypeLog, Log: &ev})
		}
	})
	defer logSub.Cancel()

	if err := cl.write(Message{Type: TypeHello, Connection: cl.id, Device: cl.device}); err != nil {
		cl.logger.Debug("Hello failed", zap.Error(err))
		return
	}
	cl.logger.Info("Stream client connected", zap.String("device", cl.device))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cl.writeLoop()
	}()

	cl.readLoop()
	cl.stop()
	wg.Wait()

	cl.logger.Info("Stream client disconnected", zap.Int64("dropped", cl.dropped()))
}

// client is one stream connection. Subscribers never block on it: frames
// that do not fit the send buffer are dropped.
type client struct {
	id     id.ConnectionID
	conn   *websocket.Conn
	device string
	logger *zap.Logger

	send chan Message
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	lost    int64
	writeMu sync.Mutex
}

func (cl *client) wants(deviceID string) bool {
	return cl.device == "" || cl.device == deviceID
}

func (cl *client) enqueue(msg Message) {
	select {
	case <-cl.done:
	case cl.send <- msg:
	default:
		cl.mu.Lock()
		cl.lost++
		cl.mu.Unlock()
	}
}

func (cl *client) dropped() int64 {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.lost
}

func (cl *client) stop() {
	cl.once.Do(func() { close(cl.done) })
}

func (cl *client) write(msg Message) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return cl.conn.WriteMessage(websocket.TextMessage, data)
}

func (cl *client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case msg := <-cl.send:
			if err := cl.write(msg); err != nil {
				cl.logger.Debug("Stream write failed", zap.Error(err))
				cl.stop()
				_ = cl.conn.Close()
				return
			}
		case <-ticker.C:
			cl.writeMu.Lock()
			err := cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			cl.writeMu.Unlock()
			if err != nil {
				cl.stop()
				_ = cl.conn.Close()
				return
			}
		}
	}
}

// readLoop drains client frames so control messages are processed, and
// returns when the connection fails or the writer gives up.
func (cl *client) readLoop() {
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
		select {
		case <-cl.done:
			return
		default:
		}
	}
}
