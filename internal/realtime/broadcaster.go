package realtime

import (
	"sync"

	"github.com/rs/zerolog"
)

// Broadcaster serializes application messages and delivers them to the
// transports resolved through the registry. It isolates callers from
// transport failure: a send to a dead or broken connection deregisters that
// connection instead of surfacing an error.
//
// Fan-out sends are dispatched concurrently and joined before returning, so
// no ordering is guaranteed across recipients. Per recipient, frames leave in
// issue order because each transport serializes its writers.
type Broadcaster struct {
	reg *Registry
	log zerolog.Logger
}

// NewBroadcaster builds a broadcaster resolving connections through reg.
func NewBroadcaster(reg *Registry, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{reg: reg, log: log}
}

// SendToConnection delivers message to a single connection. An unknown id is
// a no-op; a non-open transport or a failed write removes the connection.
func (b *Broadcaster) SendToConnection(connectionID string, message any) {
	b.send("connection", connectionID, message)
}

// SendToUser fans message out to every connection owned by userID. A user
// with no connections is a logged no-op.
func (b *Broadcaster) SendToUser(userID int64, message any) {
	ids := b.reg.ConnectionsOf(userID)
	if len(ids) == 0 {
		b.log.Debug().Int64("user_id", userID).Msg("send to user with no live connections")
		return
	}
	b.fanOut("user", ids, message)
}

// SendToGroup fans message out to every member of the named group. An
// unknown or empty group is a no-op.
func (b *Broadcaster) SendToGroup(group string, message any) {
	ids := b.reg.GroupMembers(group)
	if len(ids) == 0 {
		return
	}
	b.fanOut("group", ids, message)
}

// SendToAll fans message out to every live connection except those whose ids
// appear in excluded.
func (b *Broadcaster) SendToAll(message any, excluded map[string]struct{}) {
	all := b.reg.AllConnectionIDs()
	ids := all[:0]
	for _, id := range all {
		if _, skip := excluded[id]; !skip {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	b.fanOut("all", ids, message)
}

// fanOut dispatches one send per connection concurrently and waits for the
// whole batch.
func (b *Broadcaster) fanOut(scope string, connectionIDs []string, message any) {
	var wg sync.WaitGroup
	for _, id := range connectionIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			b.send(scope, id, message)
		}(id)
	}
	wg.Wait()
}

func (b *Broadcaster) send(scope, connectionID string, message any) {
	c, ok := b.reg.Lookup(connectionID)
	if !ok {
		return
	}
	t := c.Transport()
	if !t.Open() {
		sendsTotal.WithLabelValues(scope, "dead").Inc()
		b.reg.Remove(connectionID)
		return
	}
	if err := t.WriteJSON(message); err != nil {
		// Write failure is connection death, not a retryable condition.
		sendsTotal.WithLabelValues(scope, "write_failed").Inc()
		b.log.Warn().Err(err).Str("connection_id", connectionID).
			Msg("write failed, dropping connection")
		b.reg.Remove(connectionID)
		return
	}
	sendsTotal.WithLabelValues(scope, "ok").Inc()
}
