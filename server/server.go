package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/room4-2/serviceswarm/config"
	"github.com/room4-2/serviceswarm/dialogue"
	"github.com/room4-2/serviceswarm/logger"
	"github.com/room4-2/serviceswarm/messages"
	"github.com/room4-2/serviceswarm/turn"
)

// Calls is the dialogue surface the webhooks drive
type Calls interface {
	HandleTurn(ctx context.Context, callID string, in turn.Input) dialogue.Directive
	Abandon(ctx context.Context, callID string)
}

// SessionCounter reports live sessions for the health endpoint
type SessionCounter interface {
	GetActiveSessionCount(ctx context.Context) int
}

// Server is the HTTP front of the engine
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	calls      Calls
	sessions   SessionCounter
	renderer   *messages.Renderer
	monitor    *Hub
	config     *config.Config
}

// Option configures optional endpoints
type Option func(*Server)

// WithMetrics mounts h on /metrics
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.router.Handle("/metrics", h).Methods("GET") }
}

// WithMonitor mounts the live turn feed on /monitor
func WithMonitor(hub *Hub) Option {
	return func(s *Server) {
		s.monitor = hub
		s.router.Handle("/monitor", hub).Methods("GET")
	}
}

// NewServer wires the routes
func NewServer(cfg *config.Config, calls Calls, sessions SessionCounter, opts ...Option) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		calls:    calls,
		sessions: sessions,
		renderer: messages.NewRenderer(cfg.TwilioVoice, cfg.PublicBaseURL),
		config:   cfg,
	}

	voice := s.router.PathPrefix("/voice").Subrouter()
	voice.Use(s.recoverTwiML)
	voice.HandleFunc("", s.handleOnline).Methods("GET")
	voice.HandleFunc("", s.handleVoiceCall).Methods("POST")
	voice.HandleFunc("/recorded", s.handleOnline).Methods("GET")
	voice.HandleFunc("/recorded", s.handleRecordedCall).Methods("POST")
	voice.HandleFunc("/turn", s.handleTurn).Methods("POST")
	voice.HandleFunc("/status", s.handleStatus).Methods("POST")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Use(logRequests)

	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
		// Extraction is bounded by EXTRACTION_TIMEOUT; leave room for two calls
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.ExtractionTimeout + 10*time.Second,
	}
	return s
}

// Handler exposes the router, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for connections
func (s *Server) Start() error {
	logger.Info("HTTP server starting",
		zap.String("addr", s.httpServer.Addr),
		zap.String("voice_webhook", s.config.PublicBaseURL+"/voice"),
		zap.Bool("monitor", s.monitor != nil),
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server")
	if s.monitor != nil {
		s.monitor.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
