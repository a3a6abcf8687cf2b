package realtime

import "time"

// Connection describes one live duplex session accepted by the transport
// layer: its opaque identity, owning user, device tag, and transport handle.
type Connection struct {
	ID          string
	UserID      int64
	Device      string
	Established time.Time

	transport Transport
}

// NewConnection builds a Connection for a freshly accepted session.
func NewConnection(id string, userID int64, device string, t Transport) *Connection {
	return &Connection{
		ID:          id,
		UserID:      userID,
		Device:      device,
		Established: time.Now().UTC(),
		transport:   t,
	}
}

// Transport exposes the handle for the duration of a send. The registry
// remains the owner; callers must not retain it past the send.
func (c *Connection) Transport() Transport { return c.transport }
