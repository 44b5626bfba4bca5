package ws

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Router is the intake core as seen by the transport.
type Router interface {
	Route(ctx context.Context, msg domain.Message) error
}

// Frame is one client-to-server message.
type Frame struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Text     string `json:"text,omitempty"`
	ButtonID string `json:"buttonId,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	// Data is base64 in JSON.
	Data []byte `json:"data,omitempty"`
}

// Event is one server-to-client message.
type Event struct {
	Type      string             `json:"type"`
	Message   *domain.Renderable `json:"message,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// Handler upgrades GET /ws?user=<key> to a chat connection.
type Handler struct {
	router   Router
	hub      *Hub
	token    string
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithToken requires token in the "token" query parameter.
func WithToken(token string) HandlerOption {
	return func(h *Handler) { h.token = token }
}

// WithLogger sets the connection logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler creates a websocket handler. router must send its replies
// through hub for them to reach the connection.
func NewHandler(router Router, hub *Hub, opts ...HandlerOption) *Handler {
	h := &Handler{
		router: router,
		hub:    hub,
		logger: logging.NewNop(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userKey := strings.TrimSpace(q.Get("user"))
	if userKey == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}
	if h.token != "" && subtle.ConstantTimeCompare([]byte(q.Get("token")), []byte(h.token)) != 1 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	user := logging.Redact(userKey)
	h.logger.Info("ws: connected", "user", user)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbox, unsubscribe := h.hub.Subscribe(userKey)
	defer unsubscribe()

	errs := make(chan string, 1)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, outbox, errs)
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws: read failed", "user", user, "error", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := h.router.Route(ctx, toMessage(userKey, f)); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Error("ws: delivery failed", "user", user, "error", err)
			select {
			case errs <- "delivery failed":
			default:
			}
		}
	}

	cancel()
	<-writerDone
	h.logger.Info("ws: disconnected", "user", user)
}

// writeLoop is the only writer on conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, outbox <-chan domain.Renderable, errs <-chan string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(ev Event) bool {
		ev.Timestamp = time.Now().Unix()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Warn("ws: write failed", "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case r, ok := <-outbox:
			if !ok {
				return
			}
			if !write(Event{Type: "message", Message: &r}) {
				return
			}
		case msg := <-errs:
			if !write(Event{Type: "error", Error: msg}) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func toMessage(userKey string, f Frame) domain.Message {
	msg := domain.Message{
		ID:         f.ID,
		UserKey:    userKey,
		Modality:   domain.Modality(strings.ToLower(f.Type)),
		Payload:    f.Text,
		ReceivedAt: time.Now().UTC(),
	}
	if f.ButtonID != "" {
		msg.Modality = domain.ModalityButton
		msg.Payload = f.ButtonID
	}
	if len(f.Data) > 0 || f.MIMEType != "" {
		msg.Media = &domain.Media{MIMEType: f.MIMEType, Data: f.Data}
	}
	return msg
}
