package echo

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"echo_nexus/internal/shared"
	"echo_nexus/internal/shared/config"
	"echo_nexus/internal/shared/logger"
	"echo_nexus/internal/shared/types"
)

const maxAcceptDelay = time.Second

// Server is a TCP echo server. It accepts connections in a loop and writes
// every received chunk back to its sender until the sender closes.
type Server struct {
	cfg          types.ServerConf
	listener     net.Listener
	listenerInfo *types.ListenerInfo

	counters types.Counters
	state    atomic.Int32

	// mu guards conns and closed. waitGroup.Add is only called with mu held
	// and closed == false, so Close's Wait never races an Add.
	mu        sync.Mutex
	conns     map[net.Conn]struct{}
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
	waitGroup sync.WaitGroup

	log zerolog.Logger
}

// NewServer creates a server for cfg. Nothing is bound until Start.
func NewServer(cfg types.ServerConf) *Server {
	if cfg.ReadChunkSize <= 0 {
		cfg.ReadChunkSize = config.DefaultReadChunkSize
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = config.DefaultBacklog
	}
	if cfg.Mode == "" {
		cfg.Mode = types.ModeSequential
	}
	s := &Server{
		cfg:   cfg,
		conns: make(map[net.Conn]struct{}),
		done:  make(chan struct{}),
		log:   logger.WithComponent("echo-server"),
	}
	s.state.Store(int32(types.StateListening))
	return s
}

// Start binds the listening socket without blocking and returns the port
// actually bound, which differs from the configured one when that is 0.
func (s *Server) Start() (int, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	listener, err := listenTCP(s.cfg.Host, s.cfg.Port, s.cfg.Backlog)
	if err != nil {
		return 0, classifyListenErr(addr, err)
	}
	if s.cfg.Mode == types.ModeConcurrent && s.cfg.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.cfg.MaxConnections)
	}
	s.listener = listener

	tcpAddr := listener.Addr().(*net.TCPAddr)
	s.listenerInfo = &types.ListenerInfo{
		Address: tcpAddr.IP.String(),
		Port:    tcpAddr.Port,
	}
	s.log.Info().
		Str("listen_addr", listener.Addr().String()).
		Str("mode", string(s.cfg.Mode)).
		Int("backlog", s.cfg.Backlog).
		Msg(">>> Echo server is listening.")
	return s.listenerInfo.Port, nil
}

// Serve runs the accept loop until Close is called or ctx is cancelled, in
// which case it returns nil. It returns an error only if the listener fails
// in a way that retrying cannot fix; descriptor exhaustion and aborted
// handshakes are retried with backoff.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return ErrNotListening
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	var tempDelay time.Duration
	for {
		s.setState(types.StateAccepting)
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				s.log.Info().Msg("Echo server listener is closing.")
				s.setState(types.StateStopped)
				return nil
			}
			if !isTransientAcceptErr(err) {
				s.log.Error().Err(err).Msg("Echo server listener failed")
				s.Close()
				return err
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > maxAcceptDelay {
				tempDelay = maxAcceptDelay
			}
			s.log.Warn().Err(err).Msgf("Accept failed, retrying in %v", tempDelay)
			select {
			case <-time.After(tempDelay):
			case <-s.done:
			}
			continue
		}
		tempDelay = 0

		if !s.trackConn(conn) {
			conn.Close()
			continue
		}
		s.counters.Accepted.Add(1)

		if s.cfg.Mode == types.ModeConcurrent {
			go s.handleConnection(conn)
			continue
		}
		s.setState(types.StateEchoing)
		s.handleConnection(conn)
	}
}

// ListenAndServe is Start followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if _, err := s.Start(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// HandleConn echoes on a connection accepted elsewhere, such as an upgraded
// WebSocket. It blocks until the connection ends and takes ownership of conn.
func (s *Server) HandleConn(conn net.Conn) {
	if !s.trackConn(conn) {
		conn.Close()
		return
	}
	s.counters.Accepted.Add(1)
	s.handleConnection(conn)
}

// handleConnection owns conn for its whole life and always closes it.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.untrackConn(conn)
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	l := s.log.With().
		Str("conn_id", uuid.NewString()).
		Str("remote_addr", remote).
		Logger()
	l.Info().Msgf("Connected by %s", remote)

	start := time.Now()
	buf := make([]byte, s.cfg.ReadChunkSize)
	n, err := echoLoop(shared.NewCountedConn(conn, &s.counters), buf, s.cfg.IdleTimeout())

	ev := l.Info()
	reason := "peer closed"
	switch {
	case err == nil:
	case s.isClosed():
		reason = "server shutdown"
	case isTimeout(err):
		reason = "idle timeout"
	default:
		ev = l.Warn().Err(err)
		reason = "i/o error"
	}
	ev.Int64("bytes", n).
		Dur("duration", time.Since(start)).
		Str("reason", reason).
		Msg("Connection closed")
}

func (s *Server) trackConn(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.waitGroup.Add(1)
	s.counters.ActiveConnections.Add(1)
	return true
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.counters.ActiveConnections.Add(-1)
	s.waitGroup.Done()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops accepting, closes every open connection and waits for their
// handlers to return. It is safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.done)
		if s.listener != nil {
			err = s.listener.Close()
		}
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()

		s.waitGroup.Wait()
		s.setState(types.StateStopped)
		stats := s.Stats()
		s.log.Info().
			Uint64("accepted", stats.Accepted).
			Uint64("bytes_in", stats.Downlink).
			Uint64("bytes_out", stats.Uplink).
			Msg("Echo server has been shut down")
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

// GetListenerInfo 返回服务器的监听信息。
func (s *Server) GetListenerInfo() *types.ListenerInfo {
	return s.listenerInfo
}

// State reports where the server is in its lifecycle.
func (s *Server) State() types.ServerState {
	return types.ServerState(s.state.Load())
}

// Stats returns a snapshot of the server's connection and byte counters.
func (s *Server) Stats() types.TrafficStats {
	return s.counters.Snapshot()
}

// setState moves to state unless the server already stopped; Stopped is final.
func (s *Server) setState(state types.ServerState) {
	for {
		cur := s.state.Load()
		if types.ServerState(cur) == types.StateStopped {
			return
		}
		if s.state.CompareAndSwap(cur, int32(state)) {
			return
		}
	}
}
