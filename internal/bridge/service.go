package bridge

import (
	"context"
	"net"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gardenzilla/cashregisterbridge/internal/device"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Service runs the bridge as a standalone process.
type Service struct {
	cfg    ServiceConfig
	writer *device.Writer
	server *Server
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	if strings.TrimSpace(cfg.Subprotocol) == "" {
		cfg.Subprotocol = DefaultSubprotocol
	}
	return &Service{cfg: cfg}
}

// Run blocks until SIGINT/SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext binds ListenAddr and serves until ctx ends.
func (s *Service) RunContext(ctx context.Context) error {
	if err := s.bootstrap(); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", strings.TrimSpace(s.cfg.ListenAddr))
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Service) Server() *Server {
	return s.server
}

func (s *Service) bootstrap() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	writer, err := device.NewWriter(device.Config{
		Path:         s.cfg.Device.Path,
		WriteTimeout: s.cfg.Device.WriteTimeout,
	})
	if err != nil {
		return err
	}
	s.writer = writer
	s.server = NewServer(s.cfg, writer)

	log.Info().
		Str("listen_addr", s.cfg.ListenAddr).
		Str("device", writer.Path()).
		Str("item_label", s.cfg.Receipt.ItemLabel).
		Int("max_connections", s.cfg.MaxConnections).
		Msg("bridge.Service.bootstrap ready")
	return nil
}

func (s *Service) serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.server.Serve(gctx, ln)
	})
	g.Go(func() error {
		s.heartbeat(gctx)
		return nil
	})
	err := g.Wait()
	log.Info().Msg("bridge.Service.serve shutdown")
	return err
}

func (s *Service) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.writer.Stats()
			log.Info().
				Int("active_clients", s.server.Handler().ActiveConnections()).
				Uint64("accepted_total", s.server.Handler().AcceptedConnections()).
				Uint64("device_writes", stats.Writes).
				Uint64("device_failures", stats.Failures).
				Msg("bridge.Service.heartbeat")
		}
	}
}
