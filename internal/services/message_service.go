// Package services – MessageService
//
// This file implements the idempotent message ingestion flow. A proposed
// message is deduplicated by idempotency key, persisted under a transaction
// boundary, and, once durably committed, announced to the receiver through
// the notification collaborator.
//
// Idempotency is opt-in: callers that supply an explicit key get the
// at-most-once guarantee (a repeated key returns the original message).
// When no key is supplied one is derived from sender, receiver, content, and
// the current time; because the derived key embeds the creation instant, two
// organically retried requests produce distinct keys and are NOT collapsed.
// This looseness is deliberate and preserved.
//
// Observability: CreateChatMessage is OpenTelemetry-instrumented; spans
// carry sender/receiver identifiers.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/avennor/go-collab-backend/internal/domain"
	"github.com/avennor/go-collab-backend/internal/repo"
)

const defaultMessageType = "chat"

// MessageRepo defines the persistence contract required by MessageService.
type MessageRepo interface {
	// CreateMessage inserts a message row, assigning its id; a unique
	// violation on the idempotency key surfaces as repo.ErrDuplicate.
	CreateMessage(ctx context.Context, tx *gorm.DB, m *domain.Message) error

	// FindByIdempotencyKey returns the sender's message previously created
	// under key, or repo.ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string, senderID int64) (*domain.Message, error)

	// InTransaction runs fn inside one transaction boundary.
	InTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error
}

// UserDirectory is the identity-lookup collaborator.
type UserDirectory interface {
	UserExists(ctx context.Context, db *gorm.DB, id int64) (bool, error)
	UserDisplayName(ctx context.Context, db *gorm.DB, id int64) (string, error)
}

// MessageDeliverer announces a committed message to its receiver, over the
// live connection or as a pending notification.
type MessageDeliverer interface {
	DeliverMessage(ctx context.Context, m *domain.Message, title string) error
}

// MessageService owns idempotent message creation.
type MessageService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the message repository.
	Repo MessageRepo
	// Users resolves receiver existence and sender display names.
	Users UserDirectory
	// Delivery announces newly created non-global messages to the receiver.
	Delivery MessageDeliverer

	// MaxContentRunes caps message content by rune length; 0 disables the cap.
	MaxContentRunes int
}

// CreateChatMessage creates a message record at most once per idempotency
// key and notifies the receiver.
//
// An explicit key is looked up first; a hit short-circuits and returns the
// existing message with no new persistence and no duplicate notification.
// The receiver must exist (validated before any transaction); receiver 0 is
// the broadcast sentinel and flags the message global. The message is
// committed first and the notification dispatched after: a notification
// failure is logged but never rolls back or fails the durably created
// message.
func (s *MessageService) CreateChatMessage(ctx context.Context, senderID, receiverID int64, content, msgType, department, explicitKey string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "CreateChatMessage",
		trace.WithAttributes(
			attribute.Int64("sender.id", senderID),
			attribute.Int64("receiver.id", receiverID),
		),
	)
	defer span.End()

	if senderID <= 0 {
		return nil, ErrInvalidSender
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, ErrContentTooLong
	}
	if msgType = strings.TrimSpace(msgType); msgType == "" {
		msgType = defaultMessageType
	}

	global := receiverID == domain.BroadcastReceiverID
	if !global {
		exists, err := s.Users.UserExists(ctx, s.DB, receiverID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrReceiverNotFound
		}
	}

	key := strings.TrimSpace(explicitKey)
	if key != "" {
		existing, err := s.Repo.FindByIdempotencyKey(ctx, s.DB, key, senderID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	} else {
		key = deriveIdempotencyKey(senderID, receiverID, content, time.Now().UTC())
	}

	msg := &domain.Message{
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		Type:           msgType,
		Department:     strings.TrimSpace(department),
		Global:         global,
		IdempotencyKey: key,
		CreatedAt:      time.Now().UTC(),
	}

	err := s.Repo.InTransaction(ctx, s.DB, func(tx *gorm.DB) error {
		return s.Repo.CreateMessage(ctx, tx, msg)
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// Lost a race against a concurrent request with the same key; the
		// winner's row is the message.
		return s.Repo.FindByIdempotencyKey(ctx, s.DB, key, senderID)
	}
	if err != nil {
		return nil, err
	}

	// The message is durable from here on; delivery trouble is logged, never
	// surfaced to the caller.
	if !global && s.Delivery != nil {
		title := s.notificationTitle(ctx, senderID)
		if derr := s.Delivery.DeliverMessage(ctx, msg, title); derr != nil {
			log.Warn().Err(derr).Int64("receiver_id", receiverID).Uint("message_id", msg.ID).
				Msg("message committed but delivery failed")
		}
	}

	return msg, nil
}

// notificationTitle builds the receiver-facing title from the sender's
// display name, degrading gracefully when the lookup fails.
func (s *MessageService) notificationTitle(ctx context.Context, senderID int64) string {
	name, err := s.Users.UserDisplayName(ctx, s.DB, senderID)
	if err != nil || name == "" {
		return "New message"
	}
	return "New message from " + name
}

// deriveIdempotencyKey hashes sender, receiver, content, and the creation
// instant. The embedded timestamp means organically distinct messages almost
// never collide, and also that auto-keyed retries are not deduplicated.
func deriveIdempotencyKey(senderID, receiverID int64, content string, at time.Time) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d|%d|%s|%d", senderID, receiverID, content, at.UnixNano()))
	return hex.EncodeToString(sum[:])
}
