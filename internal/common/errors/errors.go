package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode identifies the class of an application error.
type ErrorCode string

const (
	// General
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeForbidden  ErrorCode = "FORBIDDEN"

	// Giveaway lifecycle
	ErrCodeConfiguration    ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeGiveawayNotFound ErrorCode = "GIVEAWAY_NOT_FOUND"
	ErrCodeGiveawayClosed   ErrorCode = "GIVEAWAY_CLOSED"
	ErrCodeProvisioning     ErrorCode = "PROVISIONING_FAILED"

	// Chat platform
	ErrCodeTransientPlatform ErrorCode = "TRANSIENT_PLATFORM_ERROR"
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"
	ErrCodePlatform          ErrorCode = "PLATFORM_ERROR"

	// Storage
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeStreamError   ErrorCode = "STREAM_ERROR"
)

// AppError is a typed application error.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Stack     []string               `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether the error means "no such resource".
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound || e.Code == ErrCodeGiveawayNotFound
}

// IsValidation reports whether the error was caused by bad input.
func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodeConfiguration
}

// IsTransient reports whether retrying the operation may succeed.
func (e *AppError) IsTransient() bool {
	return e.Code == ErrCodeTransientPlatform || e.Code == ErrCodeRateLimited
}

// WithDetail attaches a detail entry to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID attaches the HTTP request id.
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// New creates an application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     getStackTrace(),
	}
}

// Wrap wraps an existing error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// As finds the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsTransient reports whether err (or anything it wraps) is a transient
// platform error. Rate limits are transient.
func IsTransient(err error) bool {
	return HasCode(err, ErrCodeTransientPlatform) || HasCode(err, ErrCodeRateLimited)
}

// IsRateLimited reports whether the platform refused the request before
// acting on it.
func IsRateLimited(err error) bool {
	return HasCode(err, ErrCodeRateLimited)
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

// NewConfigurationError rejects a start request before anything is created.
func NewConfigurationError(field, reason string) *AppError {
	return New(ErrCodeConfiguration, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewGiveawayNotFoundError is returned for unknown giveaway ids.
func NewGiveawayNotFoundError(giveawayID string) *AppError {
	return New(ErrCodeGiveawayNotFound, fmt.Sprintf("giveaway not found: %s", giveawayID)).
		WithDetail("giveaway_id", giveawayID)
}

// NewGiveawayClosedError is returned when a giveaway no longer accepts entries.
func NewGiveawayClosedError(giveawayID string) *AppError {
	return New(ErrCodeGiveawayClosed, fmt.Sprintf("giveaway is not open: %s", giveawayID)).
		WithDetail("giveaway_id", giveawayID)
}

// NewProvisioningError reports a failed per-winner provisioning step.
func NewProvisioningError(winnerID, step string, err error) *AppError {
	return Wrap(err, ErrCodeProvisioning, fmt.Sprintf("provisioning %s for %s", step, winnerID)).
		WithDetail("winner_id", winnerID).
		WithDetail("step", step)
}

// NewTransientPlatformError marks a platform failure as retryable.
func NewTransientPlatformError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTransientPlatform, fmt.Sprintf("platform operation %s failed temporarily", operation)).
		WithDetail("operation", operation)
}

// NewRateLimitedError marks a request the platform rejected with a rate limit.
func NewRateLimitedError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeRateLimited, fmt.Sprintf("platform operation %s was rate limited", operation)).
		WithDetail("operation", operation)
}

// NewPlatformError marks a non-retryable platform failure.
func NewPlatformError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePlatform, fmt.Sprintf("platform operation %s failed", operation)).
		WithDetail("operation", operation)
}

// NewDatabaseError wraps storage failures.
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("database operation failed: %s", operation)).
		WithDetail("operation", operation)
}
