package onboarding

import "errors"

// Common errors for onboarding operations.
var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidStoreType  = errors.New("invalid store type")
	ErrNotFound          = errors.New("session not found")
	ErrValidation        = errors.New("validation failed")
	ErrRemote            = errors.New("remote call failed")
	ErrAtDomainStart     = errors.New("already at domain entry")
	ErrUnknownDirective  = errors.New("unknown jump directive")
	ErrQuestionMismatch  = errors.New("answer does not target the current question")
	ErrInvalidEvent      = errors.New("event not allowed in current step")
	ErrSubmissionPending = errors.New("a failed submission must be retried first")
)
