package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"echo_nexus/internal/echo"
	"echo_nexus/internal/service/web"
	"echo_nexus/internal/shared/logger"
	"echo_nexus/internal/shared/types"
)

const statsInterval = 30 * time.Second

// AppServer wires the TCP echo server and the optional WebSocket front end
// into one lifecycle.
type AppServer struct {
	cfg     *types.Config
	echo    *echo.Server
	web     *web.Server
	started bool
}

// New creates an AppServer for cfg without binding anything.
func New(cfg *types.Config) *AppServer {
	s := &AppServer{
		cfg:  cfg,
		echo: echo.NewServer(cfg.ServerConf),
	}
	if cfg.ServerConf.WSPort > 0 {
		s.web = web.New(cfg.ServerConf, s.echo)
	}
	return s
}

// Start binds every configured listener. On failure nothing is left bound.
func (s *AppServer) Start() error {
	if _, err := s.echo.Start(); err != nil {
		return err
	}
	if s.web != nil {
		if _, err := s.web.Start(); err != nil {
			s.echo.Close()
			return err
		}
	} else {
		logger.Info().Msg("WebSocket endpoint is disabled.")
	}
	s.started = true
	return nil
}

// Run starts the listeners if needed and serves until ctx is cancelled or a
// listener fails. Cancellation is a clean exit and returns nil.
func (s *AppServer) Run(ctx context.Context) error {
	if !s.started {
		if err := s.Start(); err != nil {
			return err
		}
	}
	logger.Info().Msg("Starting echo server...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Serve only returns nil once the echo server is closed; the rest of
		// the group follows it down.
		defer cancel()
		return s.echo.Serve(gctx)
	})
	if s.web != nil {
		g.Go(s.web.Serve)
		g.Go(func() error {
			<-gctx.Done()
			return s.web.Close()
		})
	}
	g.Go(func() error {
		s.statsLoop(gctx)
		return nil
	})

	err := g.Wait()
	s.Stop()
	return err
}

// Stop closes every listener and open connection. It is safe to call more
// than once.
func (s *AppServer) Stop() {
	if s.web != nil {
		if err := s.web.Close(); err != nil {
			logger.Warn().Err(err).Msg("Web server did not shut down cleanly")
		}
	}
	s.echo.Close()
}

// Echo exposes the underlying echo server.
func (s *AppServer) Echo() *echo.Server {
	return s.echo
}

func (s *AppServer) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			stats := s.echo.Stats()
			logger.Debug().
				Str("state", s.echo.State().String()).
				Uint64("accepted", stats.Accepted).
				Int64("active", stats.ActiveConnections).
				Uint64("bytes_in", stats.Downlink).
				Uint64("bytes_out", stats.Uplink).
				Msg("Echo server stats")
		case <-ctx.Done():
			return
		}
	}
}
