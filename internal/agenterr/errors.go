// Package agenterr defines the orchestrator-wide error taxonomy: a
// sentinel error code, a structured Error carrying that code plus
// debugging context, and the fixed mapping from code to the
// user-visible message a channel adapter should show.
package agenterr

import (
	"errors"
	"fmt"
)

// Code categorizes an error for retry policy, metrics, and the
// user-message mapping.
type Code string

const (
	// CodeTimeout is signaled by a per-call deadline exceeded.
	CodeTimeout Code = "timeout"

	// CodeConnectionError is signaled by a network/transport failure
	// talking to the backend or an LLM provider.
	CodeConnectionError Code = "connection_error"

	// CodeMissingParams is signaled when slot extraction returned
	// incomplete fields for a mutation.
	CodeMissingParams Code = "missing_params"

	// CodeRecordNotFound is signaled by a backend 404 or an empty
	// result on a targeted single-record lookup.
	CodeRecordNotFound Code = "record_not_found"

	// CodePermissionDenied is signaled by a backend 403 or an explicit
	// rejection message.
	CodePermissionDenied Code = "permission_denied"

	// CodePendingActionExpired is signaled when the state store
	// returns no pending action for a confirmation callback because
	// it lapsed past its TTL.
	CodePendingActionExpired Code = "pending_action_expired"

	// CodePendingActionNotFound is signaled when a callback arrives
	// with no matching pending action at all.
	CodePendingActionNotFound Code = "pending_action_not_found"

	// CodeGeneral is the uncategorized fallback.
	CodeGeneral Code = "general"

	// Additional codes surfaced distinctly by the backend client
	// (spec §4.4) that don't have their own user-message row but still
	// need to be distinguishable for local-fallback and retry logic.
	CodeFilterNotSupported Code = "filter_not_supported"
	CodeFieldNotFound      Code = "field_not_found"
	CodeRateLimit          Code = "rate_limit"
)

// userMessages is the fixed code → user-visible text mapping. Kept as
// a package-level table rather than a switch so UserMessage stays a
// straight lookup.
var userMessages = map[Code]string{
	CodeTimeout:               "请求超时，请稍后重试",
	CodeConnectionError:       "服务连接异常，请稍后重试",
	CodeMissingParams:         "缺少必要信息，请补充后重试",
	CodeRecordNotFound:        "未找到目标记录，请先查询确认",
	CodePermissionDenied:      "权限不足，请联系管理员",
	CodePendingActionExpired:  "操作已过期，请重新发起",
	CodePendingActionNotFound: "操作已过期，请重新发起",
	CodeGeneral:               "处理请求时发生错误，请稍后重试",
}

// UserMessage returns the fixed user-visible string for a code, falling
// back to the general apology for anything not in the table (including
// the backend-internal codes that are always masked before reaching a
// user).
func UserMessage(code Code) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[CodeGeneral]
}

// Error is a structured error carrying a Code for classification plus
// free-form Context for logs.
type Error struct {
	Code    Code
	Message string
	Err     error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given code and message.
func New(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err, Context: make(map[string]any)}
}

// WithContext attaches a debugging key/value pair and returns the
// receiver for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsRetryable reports whether the error represents a transient failure
// worth retrying locally: timeouts, connection errors, and rate
// limits.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case CodeTimeout, CodeConnectionError, CodeRateLimit:
		return true
	default:
		return false
	}
}

// GetCode extracts the Code from err if it is (or wraps) an *Error,
// otherwise returns CodeGeneral.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeGeneral
}

// IsRetryable reports whether err is a retryable *agenterr.Error.
// Errors of any other type are treated as non-retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}

// Convenience constructors matching each taxonomy entry.

func Timeout(message string, err error) *Error {
	return New(CodeTimeout, message, err)
}

func ConnectionError(message string, err error) *Error {
	return New(CodeConnectionError, message, err)
}

func MissingParams(message string, err error) *Error {
	return New(CodeMissingParams, message, err)
}

func RecordNotFound(message string, err error) *Error {
	return New(CodeRecordNotFound, message, err)
}

func PermissionDenied(message string, err error) *Error {
	return New(CodePermissionDenied, message, err)
}

func PendingActionExpired(message string) *Error {
	return New(CodePendingActionExpired, message, nil)
}

func PendingActionNotFound(message string) *Error {
	return New(CodePendingActionNotFound, message, nil)
}

func General(message string, err error) *Error {
	return New(CodeGeneral, message, err)
}

func FilterNotSupported(message string, err error) *Error {
	return New(CodeFilterNotSupported, message, err)
}

func FieldNotFound(message string, err error) *Error {
	return New(CodeFieldNotFound, message, err)
}

func RateLimit(message string, err error) *Error {
	return New(CodeRateLimit, message, err)
}
