package util

import (
	"errors"
	"fmt"
)

// ErrorKind 业务错误类别，controller 层据此映射 HTTP 状态码
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindIneligible
	KindOutOfRange
	KindAlreadySettled
	KindModerationUnavailable
	KindContentRejected
	KindStorageFailure
	KindPersistenceConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindIneligible:
		return "Ineligible"
	case KindOutOfRange:
		return "OutOfRange"
	case KindAlreadySettled:
		return "AlreadySettled"
	case KindModerationUnavailable:
		return "ModerationUnavailable"
	case KindContentRejected:
		return "ContentRejected"
	case KindStorageFailure:
		return "StorageFailure"
	case KindPersistenceConflict:
		return "PersistenceConflict"
	}
	return "Unknown"
}

// AppError carries the closed error kind plus a human-readable reason.
type AppError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *AppError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return e.Kind.String()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(kind ErrorKind, reason string) *AppError {
	return &AppError{Kind: kind, Reason: reason}
}

func WrapAppError(kind ErrorKind, reason string, err error) *AppError {
	return &AppError{Kind: kind, Reason: reason, Err: err}
}

// KindOf returns the error kind, or 0 when err is not an AppError.
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

var (
	ErrUserNotFound      = NewAppError(KindNotFound, "user not found")
	ErrQuestNotFound     = NewAppError(KindNotFound, "quest not found")
	ErrAttemptNotFound   = NewAppError(KindNotFound, "attempt not found")
	ErrEmailRegistered   = errors.New("email already registered")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)
