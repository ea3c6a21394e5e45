package models

import "errors"

// Error kinds reported to the originating connection. None of them change state.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotLive    = errors.New("session is not live")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrValidation        = errors.New("validation failed")
	ErrPersistence       = errors.New("persistence failed")
	ErrForbidden         = errors.New("insufficient permissions")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrAnotherLive       = errors.New("another session is already live")
)

// ErrorCode returns the stable machine-readable code for an error kind.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "SessionNotFound"
	case errors.Is(err, ErrSessionNotLive):
		return "SessionNotLive"
	case errors.Is(err, ErrQuestionNotFound):
		return "QuestionNotFound"
	case errors.Is(err, ErrValidation):
		return "ValidationFailed"
	case errors.Is(err, ErrPersistence):
		return "PersistenceFailed"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrUnknownEvent):
		return "UnknownEvent"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrAnotherLive):
		return "AnotherSessionLive"
	default:
		return "Internal"
	}
}
