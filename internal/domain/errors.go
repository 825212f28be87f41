package domain

import "errors"

var (
	ErrUnknownFamily   = errors.New("unknown ticket family")
	ErrUnknownStatus   = errors.New("unknown ticket status")
	ErrUnknownPriority = errors.New("unknown ticket priority")

	// ErrInvalidTransition is returned when an operation is not legal from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNoChange is returned for assignments or transfers that would not change anything.
	ErrNoChange = errors.New("no change")

	ErrCompletionReasonRequired = errors.New("completion reason required")
	ErrAttachmentNotFound       = errors.New("attachment not found")
	ErrInvalidAttachment        = errors.New("attachment name and url required")

	ErrAlreadySigned           = errors.New("ticket already signed")
	ErrSignatureMethodConflict = errors.New("another signature method is pending")
	ErrSignatureNotPending     = errors.New("no pending signature")
)
