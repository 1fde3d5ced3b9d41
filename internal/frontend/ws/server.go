package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server serves the Viewer at /ws and a liveness probe at /healthz.
type Server struct {
	addr   string
	logger *zap.Logger
	srv    *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a Server bound to addr once started.
//
// Precondition: viewer and logger must be non-nil.
func NewServer(addr string, viewer *Viewer, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", viewer)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{
		addr:   addr,
		logger: logger,
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}
}

// Start listens and serves until Stop is called.
//
// Postcondition: returns nil after a clean Stop.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.logger.Info("websocket viewer listening", zap.String("addr", l.Addr().String()))

	if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting briefly for open handlers.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("websocket viewer shutdown", zap.Error(err))
	}
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
