package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"echo_nexus/internal/shared"
	"echo_nexus/internal/shared/logger"
	"echo_nexus/internal/shared/types"
)

// EchoController is the part of the echo server the web front end drives.
type EchoController interface {
	HandleConn(conn net.Conn)
	State() types.ServerState
	Stats() types.TrafficStats
	GetListenerInfo() *types.ListenerInfo
}

// --- DIAGNOSTIC HELPER: A listener that logs accepted connections ---
type loggingListener struct {
	net.Listener
}

func (l loggingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err == nil {
		logger.Debug().Msgf(" [WebServer DIAGNOSTIC] Connection accepted from: %s ", conn.RemoteAddr())
	}
	return conn, err
}

// Server exposes the echo server over WebSocket and a JSON status endpoint.
type Server struct {
	cfg        types.ServerConf
	controller EchoController
	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener
	closeOnce  sync.Once
}

// New builds the web front end; nothing is bound until Start.
func New(cfg types.ServerConf, controller EchoController) *Server {
	s := &Server{
		cfg:        cfg,
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadChunkSize,
			WriteBufferSize: cfg.ReadChunkSize,
			CheckOrigin:     func(r *http.Request) bool { return true }, // Allow all origins
		},
	}

	wsPath := cfg.WSPath
	if wsPath == "" {
		wsPath = "/echo"
	}
	handler := NewHandler(controller)
	mux := http.NewServeMux()
	mux.HandleFunc(wsPath, s.serveEcho)
	mux.HandleFunc("/api/status", handler.HandleStatus)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start binds cfg.WSPort on cfg.Host and returns the bound port.
func (s *Server) Start() (int, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.WSPort))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("web server failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	logger.Info().Str("listen_addr", listener.Addr().String()).Msg("SUCCESS: WebSocket echo endpoint is listening.")
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// Serve blocks until Close. A closed server is not an error.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("web server Serve() called before Start()")
	}
	err := s.httpServer.Serve(loggingListener{Listener: s.listener})
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info().Msg("Web server stopped.")
		return nil
	}
	return err
}

// Close shuts the HTTP side down. Upgraded echo connections belong to the
// echo server and are closed by it.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) serveEcho(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to upgrade websocket")
		return
	}
	s.controller.HandleConn(shared.NewWebSocketConnAdapter(ws))
}
