package bridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gardenzilla/cashregisterbridge/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server is the listening side: one gin engine carrying the websocket
// endpoint and the status routes.
type Server struct {
	cfg        ServiceConfig
	handler    *Handler
	router     *gin.Engine
	devicePath string
	started    time.Time
}

func NewServer(cfg ServiceConfig, sink CommandSink) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:        cfg,
		handler:    NewHandler(cfg.handlerConfig(), sink),
		router:     r,
		devicePath: cfg.Device.Path,
		started:    time.Now(),
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) Handler() *Handler {
	return s.handler
}

func (s *Server) RegisterRoutes() {
	// Any path upgrades; only the offered sub-protocol decides acceptance.
	s.router.GET(s.cfg.websocketPath(), gin.WrapH(s.handler))
	s.router.NoRoute(gin.WrapH(s.handler))

	status := s.router.Group("/", cors.New(corsConfig(s.cfg.AllowedOrigins)))
	status.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"uptime":      time.Since(s.started).String(),
			"subprotocol": s.cfg.Subprotocol,
			"connections": s.handler.ActiveConnections(),
		})
	})

	status.GET("/ready", func(c *gin.Context) {
		err := s.deviceReady()
		code := http.StatusOK
		body := gin.H{"ready": true, "device": s.devicePath}
		if err != nil {
			code = http.StatusServiceUnavailable
			body["ready"] = false
			body["error"] = err.Error()
		}
		c.JSON(code, body)
	})

	status.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve accepts connections on ln until ctx ends, then stops accepting,
// closes live websocket connections and waits for them up to
// ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().
		Str("addr", ln.Addr().String()).
		Str("path", s.cfg.websocketPath()).
		Str("subprotocol", s.cfg.Subprotocol).
		Msg("bridge.server listening")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if herr := s.handler.Shutdown(shutdownCtx); herr != nil && err == nil {
		err = herr
	}
	<-serveErr
	log.Info().Err(err).Msg("bridge.server stopped")
	return err
}

func (s *Server) deviceReady() error {
	_, err := os.Stat(s.devicePath)
	return err
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
