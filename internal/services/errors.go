// Package services defines the business logic of the delivery subsystem:
// idempotent message ingestion and notification routing. This file
// centralizes the service-level error values so they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; mapping
// to user-facing messages or HTTP status codes happens at the handler layer.
package services

import "errors"

var (
	// ErrEmptyContent is returned when a message create request carries no
	// content after trimming.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrContentTooLong is returned when content exceeds the configured
	// maximum length.
	ErrContentTooLong = errors.New("message content too long")

	// ErrReceiverNotFound indicates that the addressed receiver does not
	// exist. The check runs before any transaction is opened.
	ErrReceiverNotFound = errors.New("receiver not found")

	// ErrInvalidSender is returned when the sender identity is missing or
	// malformed.
	ErrInvalidSender = errors.New("invalid sender")
)
