package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gardenzilla/cashregisterbridge/internal/observability"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// conn is one accepted websocket client in the open state. All writes to
// ws happen on the goroutine running run; control frames are answered from
// inside ReadMessage, so replies keep arrival order.
type conn struct {
	h      *Handler
	ws     *websocket.Conn
	id     string
	remote string
	seq    uint64
	logger zerolog.Logger
}

func newConn(h *Handler, ws *websocket.Conn, remote string) *conn {
	id := newConnID()
	return &conn{
		h:      h,
		ws:     ws,
		id:     id,
		remote: remote,
		logger: log.Logger.With().Str("conn_id", id).Str("remote", remote).Logger(),
	}
}

func (c *conn) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.ws.Close()

	opened := time.Now()
	observability.ConnectionOpened()
	defer func() { observability.ConnectionClosed(time.Since(opened)) }()

	c.logger.Info().
		Str("subprotocol", c.ws.Subprotocol()).
		Int("active_clients", c.h.ActiveConnections()).
		Msg("bridge.conn connected")

	if c.h.cfg.ReadLimit > 0 {
		c.ws.SetReadLimit(c.h.cfg.ReadLimit)
	}
	c.ws.SetPingHandler(c.onPing)
	c.ws.SetPongHandler(c.onPong)
	c.ws.SetCloseHandler(c.onClose)

	for {
		kind, payload, err := c.ws.ReadMessage()
		if err != nil {
			c.logDisconnect(err)
			return
		}
		switch kind {
		case websocket.TextMessage:
			c.handleText(ctx, payload)
		default:
			if err := c.write(kind, payload); err != nil {
				c.logger.Warn().Err(err).Msg("bridge.conn echo failed")
				return
			}
		}
	}
}

// handleText runs decode -> format -> device write for one message. Failures
// are logged and the connection stays open.
func (c *conn) handleText(ctx context.Context, payload []byte) {
	c.seq++
	commandID := fmt.Sprintf("cmd.%s.%d", c.id[:8], c.seq)
	logger := c.logger.With().Str("command_id", commandID).Logger()

	cmd, err := c.h.decoder.Decode(payload)
	if err != nil {
		observability.RecordCommand(observability.CommandOutcomeDecodeFailed, "unknown")
		logger.Warn().Err(err).Int("bytes", len(payload)).Msg("bridge.conn decode failed")
		return
	}

	line := c.h.formatter.Format(cmd)
	start := time.Now()
	err = c.h.sink.Write(ctx, line)
	elapsed := time.Since(start)
	observability.RecordDeviceWrite(elapsed, err == nil)
	if err != nil {
		observability.RecordCommand(observability.CommandOutcomeDeviceFailed, cmd.PaymentKind.String())
		logger.Error().
			Err(err).
			Int64("total_price", cmd.TotalPrice).
			Str("payment_kind", cmd.PaymentKind.String()).
			Msg("bridge.conn device write failed")
		return
	}

	observability.RecordCommand(observability.CommandOutcomeWritten, cmd.PaymentKind.String())
	logger.Info().
		Int64("total_price", cmd.TotalPrice).
		Str("payment_kind", cmd.PaymentKind.String()).
		Int("footnote_lines", len(cmd.Footnote)).
		Dur("duration", elapsed).
		Msg("bridge.conn command written")
}

func (c *conn) onPing(data string) error {
	return c.control(websocket.PongMessage, []byte(data))
}

// onPong echoes unsolicited pongs like any other non-text frame.
func (c *conn) onPong(data string) error {
	return c.control(websocket.PongMessage, []byte(data))
}

// onClose acknowledges with an empty close frame. ReadMessage then returns
// a *websocket.CloseError and run exits.
func (c *conn) onClose(code int, text string) error {
	c.logger.Debug().Int("code", code).Str("reason", text).Msg("bridge.conn close received")
	msg := websocket.FormatCloseMessage(websocket.CloseNoStatusReceived, "")
	if err := c.control(websocket.CloseMessage, msg); err != nil {
		c.logger.Debug().Err(err).Msg("bridge.conn close ack failed")
	}
	return nil
}

func (c *conn) control(kind int, data []byte) error {
	err := c.ws.WriteControl(kind, data, time.Now().Add(c.h.cfg.WriteTimeout))
	if err == nil || errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil
	}
	return err
}

func (c *conn) write(kind int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.h.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(kind, data)
}

func (c *conn) logDisconnect(err error) {
	remaining := c.h.ActiveConnections() - 1
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		c.logger.Info().
			Int("code", closeErr.Code).
			Int("active_clients", remaining).
			Msg("bridge.conn closed")
		return
	}
	c.logger.Warn().
		Err(err).
		Int("active_clients", remaining).
		Msg("bridge.conn transport error")
}
