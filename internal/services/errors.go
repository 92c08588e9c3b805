package services

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the core operations. Handlers map these to HTTP
// statuses; everything else is treated as an internal error.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindInvalidTransition
	KindForbidden
	KindInvalidAssignee
	KindValidation
	KindConflict
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func NotFoundError(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func InvalidTransitionError(current, target string) error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("invalid transition %s->%s", current, target)}
}

func ForbiddenError(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func InvalidAssigneeError(message string) error {
	return &Error{Kind: KindInvalidAssignee, Message: message}
}

func ValidationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func ConflictError(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

// KindOf returns the taxonomy kind of err, or 0 if err is not a service
// error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
