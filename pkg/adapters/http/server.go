package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TokenHeader carries the shared webhook secret.
const TokenHeader = "X-Intake-Token"

// DefaultMaxBodyBytes bounds an inbound webhook body, media included.
const DefaultMaxBodyBytes = 16 << 20

// Router is the intake core as seen by the transport.
type Router interface {
	Route(ctx context.Context, msg domain.Message) error
}

// Server serves the chat webhook.
type Server struct {
	router   Router
	token    string
	maxBody  int64
	logger   *slog.Logger
	evidence string
	metrics  http.Handler
	ready    func(context.Context) error
	mounts   map[string]http.Handler
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithVerifyToken requires token on every webhook call and on the
// subscription handshake.
func WithVerifyToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithEvidenceDir serves stored evidence files under /evidence/.
func WithEvidenceDir(root string) Option {
	return func(s *Server) { s.evidence = root }
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithReadiness makes /healthz report the result of check.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// WithRoute serves h for GET requests on pattern, such as a websocket
// transport sharing the listener.
func WithRoute(pattern string, h http.Handler) Option {
	return func(s *Server) {
		if s.mounts == nil {
			s.mounts = make(map[string]http.Handler)
		}
		s.mounts[pattern] = h
	}
}

// NewHandler creates the HTTP handler for router.
func NewHandler(router Router, opts ...Option) http.Handler {
	s := &Server{
		router:  router,
		maxBody: DefaultMaxBodyBytes,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/webhook", s.subscribe)
	r.Post("/webhook", s.receive)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	for pattern, h := range s.mounts {
		r.Method(http.MethodGet, pattern, h)
	}
	if s.evidence != "" {
		fs := http.StripPrefix("/evidence/", http.FileServer(http.Dir(s.evidence)))
		r.Get("/evidence/*", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}
			fs.ServeHTTP(w, r)
		})
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+TokenHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MediaRequest is an attachment inside a webhook call. Data is base64 in JSON.
type MediaRequest struct {
	ID       string `json:"id,omitempty"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// MessageRequest is the body of POST /webhook.
type MessageRequest struct {
	ID       string        `json:"id,omitempty"`
	From     string        `json:"from"`
	Type     string        `json:"type,omitempty"`
	Text     string        `json:"text,omitempty"`
	ButtonID string        `json:"button_id,omitempty"`
	Media    *MediaRequest `json:"media,omitempty"`
	// Timestamp is unix seconds; zero means now.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// MessageResponse lists the replies produced for the request, in order.
type MessageResponse struct {
	Replies []domain.Renderable `json:"replies"`
}

func (s *Server) toMessage(req MessageRequest) domain.Message {
	msg := domain.Message{
		ID:       req.ID,
		UserKey:  strings.TrimSpace(req.From),
		Modality: modality(req.Type),
		Payload:  req.Text,
	}
	if req.ButtonID != "" {
		msg.Modality = domain.ModalityButton
		msg.Payload = req.ButtonID
	}
	if req.Media != nil {
		msg.Media = &domain.Media{ID: req.Media.ID, MIMEType: req.Media.MIMEType, Data: req.Media.Data}
	}
	if req.Timestamp > 0 {
		msg.ReceivedAt = time.Unix(req.Timestamp, 0).UTC()
	} else {
		msg.ReceivedAt = s.now().UTC()
	}
	return msg
}

func modality(t string) domain.Modality {
	switch strings.ToLower(t) {
	case "audio", "voice":
		return domain.ModalityVoice
	case "interactive", "button":
		return domain.ModalityButton
	}
	// Unknown types are left to the router's classifier.
	return domain.Modality(strings.ToLower(t))
}

func (s *Server) authorized(got string) bool {
	if s.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1
}

// subscribe answers the platform's verification handshake by echoing the
// challenge.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || !s.authorized(q.Get("hub.verify_token")) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(q.Get("hub.challenge")))
}

// receive handles one inbound message.
func (s *Server) receive(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r.Header.Get(TokenHeader)) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req MessageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("webhook: invalid request body", "error", err)
		return
	}
	if req.From == "" {
		http.Error(w, "Missing sender", http.StatusBadRequest)
		return
	}
	msg := s.toMessage(req)
	ctx, replies := WithCapture(r.Context())
	if err := s.router.Route(ctx, msg); err != nil {
		s.logger.Error("webhook: delivery failed", "user", logging.Redact(msg.UserKey), "error", err)
		http.Error(w, "Delivery failed", http.StatusBadGateway)
		return
	}

	resp := MessageResponse{Replies: replies.Messages()}
	if resp.Replies == nil {
		resp.Replies = []domain.Renderable{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("webhook: response encode failed", "error", err)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
