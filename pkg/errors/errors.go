package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones with custom
// messages still match their predefined value.
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Generic errors shared by every module.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Registration code and account verification failures.
var (
	ErrNoPendingCode          = New("NO_PENDING_CODE", http.StatusBadRequest, "request a verification code first")
	ErrCodeMismatch           = New("CODE_MISMATCH", http.StatusUnauthorized, "verification code is incorrect")
	ErrCodeExpired            = New("CODE_EXPIRED", http.StatusGone, "verification code has expired")
	ErrInvalidCode            = New("INVALID_CODE", http.StatusUnauthorized, "verification code is invalid")
	ErrEmailAlreadyRegistered = New("EMAIL_ALREADY_REGISTERED", http.StatusConflict, "email is already registered")
	ErrAlreadyVerified        = New("ALREADY_VERIFIED", http.StatusConflict, "email is already verified")
	ErrEmailNotFound          = New("EMAIL_NOT_FOUND", http.StatusNotFound, "email not found")
)

// Account and credential failures.
var (
	ErrUsernameTaken    = New("USERNAME_TAKEN", http.StatusConflict, "username already exists")
	ErrEmailTaken       = New("EMAIL_TAKEN", http.StatusConflict, "email already exists")
	ErrUsernameNotFound = New("USERNAME_NOT_FOUND", http.StatusUnauthorized, "username does not exist")
	ErrPasswordMismatch = New("PASSWORD_MISMATCH", http.StatusUnauthorized, "password is incorrect")
	ErrAccountBanned    = New("ACCOUNT_BANNED", http.StatusForbidden, "account is banned, contact an administrator")
	ErrAccountDisabled  = New("ACCOUNT_DISABLED", http.StatusForbidden, "account is not enabled")
	ErrAccountNotFound  = New("ACCOUNT_NOT_FOUND", http.StatusNotFound, "account not found")
	ErrInvalidToken     = New("INVALID_TOKEN", http.StatusUnauthorized, "invalid token")
)

// Task and submission failures.
var (
	ErrCourseNotFound     = New("COURSE_NOT_FOUND", http.StatusNotFound, "course not found")
	ErrNotCourseOwner     = New("NOT_COURSE_OWNER", http.StatusForbidden, "not allowed to manage this course")
	ErrChapterNotFound    = New("CHAPTER_NOT_FOUND", http.StatusNotFound, "chapter not found")
	ErrChapterNotInCourse = New("CHAPTER_NOT_IN_COURSE", http.StatusBadRequest, "chapter does not belong to the course")
	ErrTaskNotFound       = New("TASK_NOT_FOUND", http.StatusNotFound, "task not found")
	ErrNotTaskOwner       = New("NOT_TASK_OWNER", http.StatusForbidden, "not allowed to manage this task")
	ErrTaskNotPublished   = New("TASK_NOT_PUBLISHED", http.StatusConflict, "task is not published")
	ErrStudentNotFound    = New("STUDENT_NOT_FOUND", http.StatusNotFound, "student not found")
	ErrSubmissionNotFound = New("SUBMISSION_NOT_FOUND", http.StatusNotFound, "submission not found")
	ErrUnsupportedExport  = New("UNSUPPORTED_EXPORT_FORMAT", http.StatusBadRequest, "unsupported export format")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Internal wraps an infrastructure failure with a caller-facing message.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}
