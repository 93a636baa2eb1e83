package util

import "errors"

var (
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrDuplicateAttempt     = errors.New("an attempt for this quiz has already been submitted")
	ErrInsufficientSource   = errors.New("subject has no material or assignment text to draft questions from")
	ErrGeneratorUnavailable = errors.New("question generator unavailable")
	ErrPermissionDenied     = errors.New("permission denied")

	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionBusy        = errors.New("session is busy with another request")
	ErrSessionClosed      = errors.New("session is closed")
	ErrInvalidTransition  = errors.New("action not allowed in the current session state")
	ErrPositionOutOfRange = errors.New("question position out of range")
	ErrInvalidAnswer      = errors.New("answer is not valid for this question")
	ErrIncompleteAnswers  = errors.New("every question must be answered before submitting")
)
