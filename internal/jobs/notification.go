package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/avennor/go-collab-backend/internal/domain"
)

// TypeSendNotification is the built-in job type: deliver a notification to a
// user when the job comes due.
const TypeSendNotification = "send_notification"

// Payload field names of send-notification jobs.
const (
	FieldUserID  = "userId"
	FieldTitle   = "title"
	FieldMessage = "message"
	FieldType    = "type"
	FieldData    = "data"
)

// ErrMalformedPayload flags a send-notification payload missing or mangling
// a required field.
var ErrMalformedPayload = errors.New("malformed notification payload")

// Notifier is the collaborator that ultimately delivers a notification: over
// the live connection when the user is online, or into the durable pending
// store otherwise.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string, typ domain.NotificationType, data string) error
}

// NotificationJob is the typed shape of a send-notification payload.
// Scheduling through this struct validates the payload at construction time
// instead of at dispatch time.
type NotificationJob struct {
	UserID int64
	Title  string
	Body   string
	Type   domain.NotificationType
	Data   string
}

// Validate checks the required fields.
func (j NotificationJob) Validate() error {
	if j.UserID <= 0 {
		return fmt.Errorf("%w: missing or invalid %s", ErrMalformedPayload, FieldUserID)
	}
	if j.Title == "" {
		return fmt.Errorf("%w: missing %s", ErrMalformedPayload, FieldTitle)
	}
	if j.Body == "" {
		return fmt.Errorf("%w: missing %s", ErrMalformedPayload, FieldMessage)
	}
	return nil
}

// Payload renders the job into the store's named-field representation.
func (j NotificationJob) Payload() map[string]string {
	p := map[string]string{
		FieldUserID:  strconv.FormatInt(j.UserID, 10),
		FieldTitle:   j.Title,
		FieldMessage: j.Body,
		FieldType:    string(j.Type),
	}
	if j.Data != "" {
		p[FieldData] = j.Data
	}
	return p
}

// ScheduleNotification validates job and places it in the store, returning
// the generated job id.
func ScheduleNotification(store *Store, job NotificationJob, runAt time.Time) (string, error) {
	if job.Type == "" {
		job.Type = domain.NotificationInfo
	}
	if err := job.Validate(); err != nil {
		return "", err
	}
	return store.Schedule(TypeSendNotification, job.Payload(), runAt), nil
}

// notificationJobFromPayload parses and validates a raw payload map. An
// unknown type tag degrades to Info; missing required fields fail the parse.
func notificationJobFromPayload(p map[string]string) (NotificationJob, error) {
	raw, ok := p[FieldUserID]
	if !ok {
		return NotificationJob{}, fmt.Errorf("%w: missing %s", ErrMalformedPayload, FieldUserID)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return NotificationJob{}, fmt.Errorf("%w: invalid %s %q", ErrMalformedPayload, FieldUserID, raw)
	}
	title, ok := p[FieldTitle]
	if !ok || title == "" {
		return NotificationJob{}, fmt.Errorf("%w: missing %s", ErrMalformedPayload, FieldTitle)
	}
	body, ok := p[FieldMessage]
	if !ok || body == "" {
		return NotificationJob{}, fmt.Errorf("%w: missing %s", ErrMalformedPayload, FieldMessage)
	}
	return NotificationJob{
		UserID: userID,
		Title:  title,
		Body:   body,
		Type:   domain.ParseNotificationType(p[FieldType]),
		Data:   p[FieldData],
	}, nil
}

// NewNotificationHandler returns the dispatch-table handler for
// send-notification jobs. resolve is invoked once per dispatch to obtain the
// delivery collaborator. A malformed payload is logged and dropped with no
// side effects; only a delivery error marks the job failed.
func NewNotificationHandler(resolve func() Notifier, log zerolog.Logger) Handler {
	return func(ctx context.Context, job Job) error {
		nj, err := notificationJobFromPayload(job.Payload)
		if err != nil {
			log.Warn().Err(err).Str("job_id", job.ID).
				Msg("dropping malformed notification job")
			return nil
		}
		return resolve().Notify(ctx, nj.UserID, nj.Title, nj.Body, nj.Type, nj.Data)
	}
}
