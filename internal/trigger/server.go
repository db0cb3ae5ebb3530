package trigger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smartfill/api/schemas"
	"github.com/xkilldash9x/smartfill/internal/config"
	"github.com/xkilldash9x/smartfill/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const shutdownTimeout = 10 * time.Second

// Server is the local trigger API.
type Server struct {
	cfg        config.TriggerConfig
	dispatcher *Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

// NewServer creates a trigger server. metrics may be nil, in which case
// /metrics is not served.
func NewServer(cfg config.TriggerConfig, runner Runner, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:        cfg,
		dispatcher: NewDispatcher(runner, logger),
		metrics:    metrics,
		logger:     logger.Named("trigger"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}
	return s
}

// Dispatcher returns the dispatcher shared by every trigger path.
func (s *Server) Dispatcher() *Dispatcher { return s.dispatcher }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	// The WebSocket route stays outside the timeout and request logger.
	r.Get("/ws/v1/fill", s.handleFillSocket)

	r.Group(func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		r.Use(middleware.Logger)

		r.Get("/healthz", s.handleHealthCheck)
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/command", s.handleCommand)
		})
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
		}
	})
	return r
}

// Start serves on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Trigger server listening.", zap.String("address", s.cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("trigger server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down trigger server.")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("trigger server shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd schemas.FillCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		s.respond(w, http.StatusBadRequest, schemas.FillResponse{Message: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	resp, status := s.dispatcher.Dispatch(r.Context(), cmd)
	s.respond(w, status, resp)
}

func (s *Server) respond(w http.ResponseWriter, status int, resp schemas.FillResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode response.", zap.Error(err))
	}
}

// cors allows the configured origins; "*" allows any.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case s.allowsAny():
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && s.allowsOrigin(origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.allowsAny() || s.allowsOrigin(origin)
}

func (s *Server) allowsAny() bool {
	return s.allowsOrigin("*")
}

func (s *Server) allowsOrigin(origin string) bool {
	for _, o := range s.cfg.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}
