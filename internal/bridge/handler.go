package bridge

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gardenzilla/cashregisterbridge/internal/fiscat"
	"github.com/gardenzilla/cashregisterbridge/internal/observability"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrProtocolRejected = errors.New("bridge: required subprotocol not offered")

// CommandSink receives formatted register commands. device.Writer is the
// production sink.
type CommandSink interface {
	Write(ctx context.Context, command string) error
}

// HandlerConfig is the per-connection subset of ServiceConfig.
type HandlerConfig struct {
	Subprotocol    string
	AllowedOrigins []string
	MaxConnections int
	ReadLimit      int64
	WriteTimeout   time.Duration
	Receipt        ReceiptConfig
}

func (c ServiceConfig) handlerConfig() HandlerConfig {
	return HandlerConfig{
		Subprotocol:    c.Subprotocol,
		AllowedOrigins: c.AllowedOrigins,
		MaxConnections: c.MaxConnections,
		ReadLimit:      c.ReadLimit,
		WriteTimeout:   c.WriteTimeout,
		Receipt:        c.Receipt,
	}
}

// Handler negotiates websocket connections and runs one message loop per
// connection. It is an http.Handler; net/http gives every connection its
// own goroutine.
type Handler struct {
	cfg       HandlerConfig
	sink      CommandSink
	decoder   fiscat.Decoder
	formatter fiscat.Formatter
	upgrader  websocket.Upgrader
	conns     *connRegistry
	baseCtx   context.Context
	cancel    context.CancelFunc
	accepted  atomic.Uint64
}

func NewHandler(cfg HandlerConfig, sink CommandSink) *Handler {
	if strings.TrimSpace(cfg.Subprotocol) == "" {
		cfg.Subprotocol = DefaultSubprotocol
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		cfg:       cfg,
		sink:      sink,
		decoder:   fiscat.Decoder{Footnote: cfg.Receipt.Footnote},
		formatter: fiscat.Formatter{ItemLabel: cfg.Receipt.ItemLabel},
		conns:     newConnRegistry(),
		baseCtx:   ctx,
		cancel:    cancel,
	}
	h.upgrader = websocket.Upgrader{
		HandshakeTimeout: cfg.WriteTimeout,
		Subprotocols:     []string{cfg.Subprotocol},
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	remote := r.RemoteAddr
	offered := websocket.Subprotocols(r)
	if !slices.Contains(offered, h.cfg.Subprotocol) {
		observability.RecordHandshake("rejected")
		log.Warn().
			Str("remote", remote).
			Strs("offered", offered).
			Err(ErrProtocolRejected).
			Msg("bridge.handshake rejected")
		http.Error(w, ErrProtocolRejected.Error(), http.StatusBadRequest)
		return
	}

	if !h.conns.reserve(h.cfg.MaxConnections) {
		observability.RecordHandshake("refused")
		log.Warn().
			Str("remote", remote).
			Int("max_connections", h.cfg.MaxConnections).
			Msg("bridge.handshake refused, at capacity or shutting down")
		http.Error(w, "bridge: no connection slot available", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.conns.unreserve()
		observability.RecordHandshake("failed")
		log.Warn().Str("remote", remote).Err(err).Msg("bridge.handshake upgrade failed")
		return
	}
	observability.RecordHandshake("accepted")
	h.accepted.Add(1)

	c := newConn(h, ws, remote)
	defer h.conns.release(c.id)
	if !h.conns.attach(c.id, ws) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge shutting down")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
		_ = ws.Close()
		return
	}
	c.run(h.baseCtx)
}

// ActiveConnections returns the number of connections past negotiation.
func (h *Handler) ActiveConnections() int {
	return h.conns.count()
}

// AcceptedConnections returns the total accepted since start.
func (h *Handler) AcceptedConnections() uint64 {
	return h.accepted.Load()
}

// Shutdown closes every live connection and waits for their loops to end.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.cancel()
	h.conns.closeAll(h.cfg.WriteTimeout)
	return h.conns.wait(ctx)
}

// checkOrigin allows any origin when none are configured, and requests
// without an Origin header (non-browser clients).
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, origin)
}

func newConnID() string {
	return uuid.NewString()
}
