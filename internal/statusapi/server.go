package statusapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"inputpipe/internal/config"
)

// Server is the HUD API: the router plus the websocket hub.
type Server struct {
	cfg     config.StatusConfig
	ctrl    Controller
	router  *chi.Mux
	hub     *Hub
	limiter *IPRateLimiter
	log     *zap.Logger

	srv    *http.Server
	ln     net.Listener
	cancel context.CancelFunc
	served chan struct{}
}

// NewServer wires the router and hub. Nothing runs until Start.
func NewServer(cfg config.StatusConfig, ctrl Controller, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("statusapi")

	s := &Server{
		cfg:  cfg,
		ctrl: ctrl,
		hub:  NewHub(cfg.AllowedOrigins, cfg.MaxClients, log),
		log:  log,
	}
	if cfg.RateLimit > 0 {
		s.limiter = NewIPRateLimiter(RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit,
			Burst:             cfg.RateBurst,
		})
	}
	s.router = NewRouter(RouterConfig{
		Controller:  ctrl,
		RateLimiter: s.limiter,
		CORSOrigins: cfg.AllowedOrigins,
		Logger:      log,
	})
	s.router.Get("/ws", s.hub.HandleWebSocket)
	return s
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler { return s.router }

// Hub exposes the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("status api listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln

	interval := s.cfg.BroadcastInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.hub.Start(ctx, s.ctrl, interval)

	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.served = make(chan struct{})
	go func() {
		defer close(s.served)
		s.log.Info("status api listening", zap.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status api error", zap.Error(err))
		}
	}()
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.cfg.ListenAddr
	}
	return s.ln.Addr().String()
}

// Shutdown disconnects HUD clients, stops the HTTP server and the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.srv != nil {
		s.cancel()
		s.hub.Stop()
		err = s.srv.Shutdown(ctx)
		<-s.served
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return err
}
