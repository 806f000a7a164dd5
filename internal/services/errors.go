package services

import "errors"

var (
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrMentorNotFound         = errors.New("mentor not found")
	ErrSelfMessage            = errors.New("cannot message yourself")
	ErrEmptyContent           = errors.New("message content is empty")
	ErrContentTooLong         = errors.New("message content is too long")
	ErrEmailTaken             = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrStorageUnavailable     = errors.New("storage service is not configured")
)
