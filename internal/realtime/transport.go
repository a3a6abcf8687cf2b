// Package realtime implements the live delivery layer: a concurrency-safe
// registry of open connections with user and group indices, and a broadcaster
// that fans application messages out to the transports resolved through it.
//
// The registry owns connection lifecycle; the broadcaster only borrows
// transport handles for the duration of a send. Lifecycle races (duplicate
// add, late remove, send to a just-closed connection) are expected under
// concurrent network I/O and are handled as logged no-ops, never as errors.
package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrTransportClosed is returned by writes issued after the transport has
// been closed locally.
var ErrTransportClosed = errors.New("transport closed")

// Transport is the write side of one live duplex session. Implementations
// must serialize writers so frames for a single connection leave in the order
// they were issued.
type Transport interface {
	// WriteJSON serializes v and writes it as one frame.
	WriteJSON(v any) error

	// Open reports whether the transport can still accept writes.
	Open() bool

	// Close attempts a graceful shutdown of the underlying connection.
	// Closing an already-closed transport is a no-op.
	Close() error
}

// WSTransport adapts a gorilla/websocket connection to the Transport
// interface. A mutex enforces the single-writer discipline the websocket
// package requires, which is also what guarantees per-connection ordering.
type WSTransport struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
	closed       bool
}

// NewWSTransport wraps conn. writeTimeout bounds each frame write; zero
// disables the deadline.
func NewWSTransport(conn *websocket.Conn, writeTimeout time.Duration) *WSTransport {
	return &WSTransport{conn: conn, writeTimeout: writeTimeout}
}

// WriteJSON writes v as a single JSON text frame.
func (t *WSTransport) WriteJSON(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	return t.conn.WriteJSON(v)
}

// Open reports whether Close has been called.
func (t *WSTransport) Open() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Close sends a close control frame on a best-effort basis and tears down the
// underlying network connection.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	deadline := time.Now().Add(time.Second)
	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	return t.conn.Close()
}
