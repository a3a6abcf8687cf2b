// Package handlers – websocket attach endpoint.
//
// GET /ws upgrades the request, registers the connection with the realtime
// registry, and runs the read loop. Inbound control frames toggle group
// membership; a read error of any kind deregisters the connection. Outbound
// traffic never flows through this loop — all writes go through the
// broadcaster against the registered transport.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/avennor/go-collab-backend/internal/config"
	"github.com/avennor/go-collab-backend/internal/http/middleware"
	"github.com/avennor/go-collab-backend/internal/realtime"
	"github.com/avennor/go-collab-backend/internal/sysutil"
)

// Inbound frame actions understood by the read loop.
const (
	actionJoinGroup  = "join"
	actionLeaveGroup = "leave"
	actionPing       = "ping"
)

// inboundFrame is the decoded shape of a client control frame.
type inboundFrame struct {
	Action string `json:"action"`
	Group  string `json:"group,omitempty"`
}

// WSHandler owns the websocket attach endpoint.
type WSHandler struct {
	Registry *realtime.Registry
	WS       config.WSConfig

	upgrader websocket.Upgrader
}

// NewWSHandler builds the attach handler with upgrader settings from cfg.
// Origin checking is left to the CORS layer and the upstream proxy.
func NewWSHandler(reg *realtime.Registry, cfg config.WSConfig) *WSHandler {
	return &WSHandler{
		Registry: reg,
		WS:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferBytes,
			WriteBufferSize: cfg.WriteBufferBytes,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Attach handles GET /ws. The caller identity comes from the X-User-ID
// header or, for browser clients that cannot set headers on the websocket
// handshake, the user_id query parameter.
func (h *WSHandler) Attach(c *gin.Context) {
	userID, okID := identifyWS(c)
	if !okID {
		return
	}
	device := sysutil.FirstNonEmpty(c.Query("device"), c.GetHeader("User-Agent"))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote its own response; just log.
		middleware.LoggerFrom(c).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	if h.WS.MaxFrameBytes > 0 {
		conn.SetReadLimit(h.WS.MaxFrameBytes)
	}

	transport := realtime.NewWSTransport(conn, h.WS.WriteTimeout)
	connection := realtime.NewConnection(uuid.NewString(), userID, device, transport)
	if !h.Registry.Add(connection) {
		// Rejected duplicate id; the registry already closed the transport.
		return
	}

	go h.readLoop(connection.ID, conn)
}

// readLoop consumes inbound frames until the peer goes away, then removes
// the connection from the registry. It tolerates undecodable frames.
func (h *WSHandler) readLoop(connectionID string, conn *websocket.Conn) {
	defer h.Registry.Remove(connectionID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Action {
		case actionJoinGroup:
			if frame.Group != "" {
				h.Registry.JoinGroup(connectionID, frame.Group)
			}
		case actionLeaveGroup:
			if frame.Group != "" {
				h.Registry.LeaveGroup(connectionID, frame.Group)
			}
		case actionPing:
			_ = conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second))
		default:
			// Frames this subsystem does not own are decoded and routed by
			// the surrounding system; ignore them here.
		}
	}
}

// identifyWS resolves the connecting user from header or query parameter.
func identifyWS(c *gin.Context) (int64, bool) {
	if raw := c.Query("user_id"); raw != "" {
		c.Request.Header.Set("X-User-ID", raw)
	}
	return identify(c)
}
