package service

import "errors"

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrUnknownRequestKind      = errors.New("unknown request kind")
	ErrInvalidOutcome          = errors.New("outcome must be approve or reject")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
	ErrInvalidPriority         = errors.New("priority must be normal or urgent")
	ErrInvalidRequestData      = errors.New("invalid request data")
	ErrRequestNotFound         = errors.New("request not found")
	ErrAlreadyProcessed        = errors.New("request was already processed")
	ErrDuplicatePending        = errors.New("an open request of this kind already exists for the task")
	ErrTaskNotFound            = errors.New("task not found")
	ErrInvalidTransition       = errors.New("task status transition not allowed")
	ErrUrgentReasonRequired    = errors.New("an urgent reason is required")
	ErrUrgentReasonNotFound    = errors.New("urgent reason not found")
	ErrPriorityUnchanged       = errors.New("requested priority equals the current priority")
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrRejectionNotFound       = errors.New("task rejection not found")
	ErrForbidden               = errors.New("operation not allowed for this user")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrAttachmentNotFound      = errors.New("attachment not found")
	ErrUserNotFound            = errors.New("user not found")
)
