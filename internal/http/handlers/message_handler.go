// Package handlers – message ingestion endpoint.
//
// POST /messages accepts a proposed chat message, identifies the sender from
// the X-User-ID header, and forwards it to the idempotent creation flow. An
// optional Idempotency-Key header opts the caller into duplicate collapsing;
// without it a key is derived server-side and naturally-retried requests are
// NOT deduplicated.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avennor/go-collab-backend/internal/domain"
	"github.com/avennor/go-collab-backend/internal/services"
)

// HeaderIdempotencyKey is the request header carrying an explicit
// idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// maxIdempotencyKeyLen bounds accepted explicit keys.
const maxIdempotencyKeyLen = 200

// MessageCreator is the ingestion contract the handler depends on.
type MessageCreator interface {
	CreateChatMessage(ctx context.Context, senderID, receiverID int64, content, msgType, department, explicitKey string) (*domain.Message, error)
}

// NotificationReader lists a user's pending (offline) notifications and
// marks them read.
type NotificationReader interface {
	ListPending(ctx context.Context, userID int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id uint, userID int64) error
}

// API bundles the handler dependencies.
type API struct {
	Messages      MessageCreator
	Notifications NotificationReader
	Scheduler     NotificationScheduler
}

// NewAPI constructs the handler set.
func NewAPI(messages MessageCreator, notifications NotificationReader, scheduler NotificationScheduler) *API {
	return &API{Messages: messages, Notifications: notifications, Scheduler: scheduler}
}

// createMessageRequest is the POST /messages body.
type createMessageRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content" binding:"required"`
	Type       string `json:"type"`
	Department string `json:"department"`
}

// CreateMessage handles POST /messages.
func (a *API) CreateMessage(c *gin.Context) {
	senderID, okID := identify(c)
	if !okID {
		return
	}

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLen {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "idempotency key too long")
		return
	}

	msg, err := a.Messages.CreateChatMessage(c.Request.Context(), senderID, req.ReceiverID, req.Content, req.Type, req.Department, key)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, msg)
	case errors.Is(err, services.ErrReceiverNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "receiver not found")
	case errors.Is(err, services.ErrEmptyContent), errors.Is(err, services.ErrContentTooLong), errors.Is(err, services.ErrInvalidSender):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create message")
	}
}

// ListNotifications handles GET /notifications: the caller's unread pending
// notifications, oldest first.
func (a *API) ListNotifications(c *gin.Context) {
	userID, okID := identify(c)
	if !okID {
		return
	}
	items, err := a.Notifications.ListPending(c.Request.Context(), userID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list notifications")
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}
	ok(c, http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// ReadNotification handles PUT /notifications/:id/read.
func (a *API) ReadNotification(c *gin.Context) {
	userID, okID := identify(c)
	if !okID {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid notification id")
		return
	}
	if err := a.Notifications.MarkRead(c.Request.Context(), uint(id), userID); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
		return
	}
	noContent(c)
}

// identify extracts the caller's user id from the X-User-ID header. The
// surrounding system authenticates upstream; this subsystem only needs the
// resolved identity.
func identify(c *gin.Context) (int64, bool) {
	raw := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if raw == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing X-User-ID header")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid X-User-ID header")
		return 0, false
	}
	return id, true
}
