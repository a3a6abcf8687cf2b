package realtime

import (
	"sync"

	"github.com/rs/zerolog"
)

// Announcer delivers registry lifecycle acknowledgments back to clients.
// The Broadcaster satisfies it; the indirection exists because the registry
// and the broadcaster reference each other and are bound after construction.
type Announcer interface {
	SendToConnection(connectionID string, message any)
	SendToUser(userID int64, message any)
}

// Registry is the concurrency-safe directory of live connections along with
// two secondary indices: user id → connection ids and group name → connection
// ids. Each map is guarded by its own lock; an add/remove sequence updates
// them one after another, so a concurrent reader can observe a connection
// that is gone from the table but not yet purged from a group. The window is
// bounded and self-heals on the next send or remove.
type Registry struct {
	log       zerolog.Logger
	announcer Announcer

	connMu sync.RWMutex
	conns  map[string]*Connection

	userMu sync.RWMutex
	users  map[int64]map[string]struct{}

	groupMu sync.RWMutex
	groups  map[string]map[string]struct{}
}

// NewRegistry builds an empty registry. Bind an Announcer before accepting
// connections so registration acknowledgments can be delivered.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		log:    log,
		conns:  make(map[string]*Connection),
		users:  make(map[int64]map[string]struct{}),
		groups: make(map[string]map[string]struct{}),
	}
}

// BindAnnouncer wires the broadcaster used for lifecycle acknowledgments.
func (r *Registry) BindAnnouncer(a Announcer) { r.announcer = a }

// Add registers a freshly accepted connection, indexes it under its user, and
// announces the registration to that user. It reports whether the connection
// was registered: adding an id that already exists is a logged no-op that
// closes the rejected connection's transport, since the registry never took
// ownership of it.
func (r *Registry) Add(c *Connection) bool {
	r.connMu.Lock()
	if _, exists := r.conns[c.ID]; exists {
		r.connMu.Unlock()
		r.log.Warn().Str("connection_id", c.ID).Int64("user_id", c.UserID).
			Msg("duplicate connection id, add ignored")
		if c.transport.Open() {
			if err := c.transport.Close(); err != nil {
				r.log.Debug().Err(err).Str("connection_id", c.ID).Msg("transport close failed")
			}
		}
		return false
	}
	r.conns[c.ID] = c
	r.connMu.Unlock()

	r.userMu.Lock()
	set, ok := r.users[c.UserID]
	if !ok {
		set = make(map[string]struct{})
		r.users[c.UserID] = set
	}
	set[c.ID] = struct{}{}
	r.userMu.Unlock()

	connectionsGauge.Inc()
	r.log.Debug().Str("connection_id", c.ID).Int64("user_id", c.UserID).
		Str("device", c.Device).Msg("connection registered")

	if r.announcer != nil {
		r.announcer.SendToUser(c.UserID, NewConnectionEstablished(c.ID, c.UserID))
	}
	return true
}

// Remove deregisters a connection: it is dropped from the connection table,
// from its user's index (deleting the user entry when it empties), and from
// every group (deleting emptied groups), and its transport is closed
// gracefully when still open. Removing an unknown id is a logged no-op.
func (r *Registry) Remove(connectionID string) {
	r.connMu.Lock()
	c, ok := r.conns[connectionID]
	if !ok {
		r.connMu.Unlock()
		r.log.Debug().Str("connection_id", connectionID).Msg("remove of unknown connection ignored")
		return
	}
	delete(r.conns, connectionID)
	r.connMu.Unlock()

	r.userMu.Lock()
	if set, ok := r.users[c.UserID]; ok {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(r.users, c.UserID)
		}
	}
	r.userMu.Unlock()

	r.groupMu.Lock()
	for name, members := range r.groups {
		if _, member := members[connectionID]; !member {
			continue
		}
		delete(members, connectionID)
		if len(members) == 0 {
			delete(r.groups, name)
			groupsGauge.Dec()
		}
	}
	r.groupMu.Unlock()

	if c.transport.Open() {
		if err := c.transport.Close(); err != nil {
			r.log.Debug().Err(err).Str("connection_id", connectionID).Msg("transport close failed")
		}
	}

	connectionsGauge.Dec()
	r.log.Debug().Str("connection_id", connectionID).Int64("user_id", c.UserID).
		Msg("connection removed")
}

// Lookup returns the connection registered under id.
func (r *Registry) Lookup(connectionID string) (*Connection, bool) {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	c, ok := r.conns[connectionID]
	return c, ok
}

// ConnectionsOf returns the ids of every live connection owned by userID.
// The result is a snapshot; it is empty when the user has no connections.
func (r *Registry) ConnectionsOf(userID int64) []string {
	r.userMu.RLock()
	defer r.userMu.RUnlock()
	set := r.users[userID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// AllConnectionIDs returns a snapshot of every registered connection id.
func (r *Registry) AllConnectionIDs() []string {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// GroupMembers returns a snapshot of the connection ids joined to group.
func (r *Registry) GroupMembers(group string) []string {
	r.groupMu.RLock()
	defer r.groupMu.RUnlock()
	members := r.groups[group]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// JoinGroup adds the connection to the named group and acknowledges the join
// to the connection itself. Joining twice is idempotent; joining with an
// unknown connection id is a logged no-op so group membership only ever
// references live connections.
func (r *Registry) JoinGroup(connectionID, group string) {
	if _, ok := r.Lookup(connectionID); !ok {
		r.log.Debug().Str("connection_id", connectionID).Str("group", group).
			Msg("join for unknown connection ignored")
		return
	}

	r.groupMu.Lock()
	members, ok := r.groups[group]
	if !ok {
		members = make(map[string]struct{})
		r.groups[group] = members
		groupsGauge.Inc()
	}
	members[connectionID] = struct{}{}
	r.groupMu.Unlock()

	if r.announcer != nil {
		r.announcer.SendToConnection(connectionID, NewGroupJoined(group))
	}
}

// LeaveGroup removes the connection from the named group, deleting the group
// when it empties, and acknowledges the leave to the connection. Leaving a
// group the connection is not in is idempotent.
func (r *Registry) LeaveGroup(connectionID, group string) {
	r.groupMu.Lock()
	if members, ok := r.groups[group]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(r.groups, group)
			groupsGauge.Dec()
		}
	}
	r.groupMu.Unlock()

	if r.announcer != nil {
		r.announcer.SendToConnection(connectionID, NewGroupLeft(group))
	}
}
