// Package handlers – deferred notification endpoints.
//
// Users schedule a notification to themselves for a future instant, list
// what they have queued, and cancel entries they own. The entries live in
// the volatile job store; the sweep loop delivers them when due.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avennor/go-collab-backend/internal/domain"
	"github.com/avennor/go-collab-backend/internal/jobs"
)

// NotificationScheduler is the deferred-scheduling contract the handlers
// depend on.
type NotificationScheduler interface {
	ScheduleNotification(userID int64, title, body string, typ domain.NotificationType, data string, runAt time.Time) (string, error)
	ScheduledNotifications(userID int64) []jobs.Job
	CancelScheduled(userID int64, jobID string) bool
}

// scheduleNotificationRequest is the POST /notifications/schedule body. A
// missing run_at schedules for the next sweep.
type scheduleNotificationRequest struct {
	Title   string     `json:"title" binding:"required"`
	Message string     `json:"message" binding:"required"`
	Type    string     `json:"type"`
	Data    string     `json:"data"`
	RunAt   *time.Time `json:"run_at"`
}

// scheduledNotificationItem is the list/create response shape of one pending
// entry.
type scheduledNotificationItem struct {
	JobID   string    `json:"job_id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Type    string    `json:"type"`
	RunAt   time.Time `json:"run_at"`
}

// ScheduleNotification handles POST /notifications/schedule.
func (a *API) ScheduleNotification(c *gin.Context) {
	userID, okID := identify(c)
	if !okID {
		return
	}

	var req scheduleNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	runAt := time.Now().UTC()
	if req.RunAt != nil {
		runAt = req.RunAt.UTC()
	}
	typ := domain.ParseNotificationType(strings.TrimSpace(req.Type))

	jobID, err := a.Scheduler.ScheduleNotification(userID, req.Title, req.Message, typ, req.Data, runAt)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, gin.H{"job_id": jobID, "run_at": runAt})
	case errors.Is(err, jobs.ErrMalformedPayload):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not schedule notification")
	}
}

// ListScheduledNotifications handles GET /notifications/scheduled: the
// caller's pending deferred notifications.
func (a *API) ListScheduledNotifications(c *gin.Context) {
	userID, okID := identify(c)
	if !okID {
		return
	}
	items := []scheduledNotificationItem{}
	for _, job := range a.Scheduler.ScheduledNotifications(userID) {
		items = append(items, scheduledNotificationItem{
			JobID:   job.ID,
			Title:   job.Payload[jobs.FieldTitle],
			Message: job.Payload[jobs.FieldMessage],
			Type:    job.Payload[jobs.FieldType],
			RunAt:   job.RunAt,
		})
	}
	ok(c, http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// CancelScheduledNotification handles DELETE /notifications/scheduled/:id.
// A job id belonging to another user reads as not found.
func (a *API) CancelScheduledNotification(c *gin.Context) {
	userID, okID := identify(c)
	if !okID {
		return
	}
	jobID := strings.TrimSpace(c.Param("id"))
	if jobID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid job id")
		return
	}
	if !a.Scheduler.CancelScheduled(userID, jobID) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "scheduled notification not found")
		return
	}
	noContent(c)
}
