// Package services – SchedulerService
//
// This file fronts the in-memory job store for deferred notifications: users
// schedule a notification for a future instant, list what they have pending,
// and cancel entries they own. The sweep loop picks the jobs up when they
// come due and routes them through NotificationService.Notify.
package services

import (
	"strconv"
	"time"

	"github.com/avennor/go-collab-backend/internal/domain"
	"github.com/avennor/go-collab-backend/internal/jobs"
)

// SchedulerService owns deferred-notification scheduling over the volatile
// job store.
type SchedulerService struct {
	Store *jobs.Store
}

// ScheduleNotification places a send-notification job for userID due at
// runAt and returns its id. An empty type defaults to info; a payload missing
// its title or body fails with jobs.ErrMalformedPayload.
func (s *SchedulerService) ScheduleNotification(userID int64, title, body string, typ domain.NotificationType, data string, runAt time.Time) (string, error) {
	return jobs.ScheduleNotification(s.Store, jobs.NotificationJob{
		UserID: userID,
		Title:  title,
		Body:   body,
		Type:   typ,
		Data:   data,
	}, runAt)
}

// ScheduledNotifications returns userID's pending send-notification jobs.
func (s *SchedulerService) ScheduledNotifications(userID int64) []jobs.Job {
	return s.Store.Query(jobs.TypeSendNotification, jobs.FieldUserID, strconv.FormatInt(userID, 10))
}

// CancelScheduled deletes jobID if it is a pending send-notification job
// belonging to userID. It reports whether a job was removed; another user's
// job id is a miss, not an error.
func (s *SchedulerService) CancelScheduled(userID int64, jobID string) bool {
	for _, job := range s.ScheduledNotifications(userID) {
		if job.ID == jobID {
			return s.Store.Delete(jobs.TypeSendNotification, jobID)
		}
	}
	return false
}
