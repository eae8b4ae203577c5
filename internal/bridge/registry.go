package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connRegistry tracks live connections so shutdown can close and await them.
type connRegistry struct {
	mu       sync.Mutex
	reserved int
	closed   bool
	conns    map[string]*websocket.Conn
	wg       sync.WaitGroup
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[string]*websocket.Conn)}
}

// reserve claims a slot before the upgrade. limit <= 0 means unbounded.
// No slots are handed out once closeAll has run.
func (r *connRegistry) reserve(limit int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if limit > 0 && r.reserved >= limit {
		return false
	}
	r.reserved++
	r.wg.Add(1)
	return true
}

// unreserve returns a slot whose upgrade failed.
func (r *connRegistry) unreserve() {
	r.mu.Lock()
	r.reserved--
	r.mu.Unlock()
	r.wg.Done()
}

// attach reports false when shutdown began while ws was upgrading.
func (r *connRegistry) attach(id string, ws *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.conns[id] = ws
	return true
}

func (r *connRegistry) release(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.reserved--
	r.mu.Unlock()
	r.wg.Done()
}

func (r *connRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserved
}

// closeAll sends a going-away close frame to every live connection and
// closes the socket, which ends each connection's read loop.
func (r *connRegistry) closeAll(writeTimeout time.Duration) {
	r.mu.Lock()
	r.closed = true
	conns := make([]*websocket.Conn, 0, len(r.conns))
	for _, ws := range r.conns {
		conns = append(conns, ws)
	}
	r.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge shutting down")
	for _, ws := range conns {
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		_ = ws.Close()
	}
}

// wait blocks until every reserved connection is released or ctx ends.
func (r *connRegistry) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
