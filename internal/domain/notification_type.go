package domain

import "strings"

// NotificationType tags a notification with its display category.
type NotificationType string

// Known notification categories. Unrecognized input parses to Info.
const (
	NotificationInfo    NotificationType = "Info"
	NotificationWarning NotificationType = "Warning"
	NotificationMessage NotificationType = "Message"
	NotificationRequest NotificationType = "Request"
)

// ParseNotificationType maps a string tag to a known NotificationType,
// falling back to Info when the tag is unknown or empty.
func ParseNotificationType(s string) NotificationType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return NotificationWarning
	case "message":
		return NotificationMessage
	case "request":
		return NotificationRequest
	default:
		return NotificationInfo
	}
}
