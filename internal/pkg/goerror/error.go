// Package goerror carries caller-facing errors from usecases to the HTTP
// layer: a safe message, a Code that picks the status, optional field errors
// and an optional retry hint. The wrapped cause is for logs only.
package goerror

import (
	"fmt"
	"net/http"
	"time"
)

// Type groups errors by who is at fault.
type Type int

const (
	TypeServer Type = iota
	TypeBusiness
	TypeValidation
)

func (t Type) String() string {
	switch t {
	case TypeServer:
		return "ERROR_TYPE_SERVER"
	case TypeBusiness:
		return "ERROR_TYPE_BUSINESS"
	case TypeValidation:
		return "ERROR_TYPE_VALIDATION"
	default:
		return "ERROR_TYPE_UNKNOWN"
	}
}

// Code selects the HTTP status written for an error.
type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeUnauthorized
	CodeTooManyRequest
	CodeUnavailable
)

var codes = map[Code]struct {
	name   string
	status int
}{
	CodeInternal:       {"ERROR_CODE_INTERNAL", http.StatusInternalServerError},
	CodeInvalidFormat:  {"ERROR_CODE_INVALID_FORMAT", http.StatusBadRequest},
	CodeInvalidInput:   {"ERROR_CODE_INVALID_INPUT", http.StatusUnprocessableEntity},
	CodeUnauthorized:   {"ERROR_CODE_UNAUTHORIZED", http.StatusUnauthorized},
	CodeTooManyRequest: {"ERROR_CODE_TOO_MANY_REQUESTS", http.StatusTooManyRequests},
	CodeUnavailable:    {"ERROR_CODE_UNAVAILABLE", http.StatusServiceUnavailable},
}

func (c Code) String() string {
	if info, ok := codes[c]; ok {
		return info.name
	}
	return codes[CodeInternal].name
}

// Error is the structured error returned by usecases.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
	wait    time.Duration
}

// Error prefers the wrapped cause so logs show what actually failed. Callers
// get Msg instead.
func (e *Error) Error() string {
	switch {
	case e.err != nil:
		return e.err.Error()
	case e.msg != "":
		return e.msg
	default:
		return e.code.String()
	}
}

func (e *Error) String() string {
	return fmt.Sprintf("type=%s code=%s msg=%q cause=%v", e.errType, e.code, e.msg, e.err)
}

func (e *Error) Msg() string               { return e.msg }
func (e *Error) Type() Type                { return e.errType }
func (e *Error) Code() Code                { return e.code }
func (e *Error) Fields() map[string]string { return e.fields }
func (e *Error) Unwrap() error             { return e.err }

// RetryAfter is how long the caller should wait before trying again, zero
// when unknown.
func (e *Error) RetryAfter() time.Duration { return e.wait }

// StatusCode maps Code to an HTTP status. Unknown codes are 500.
func (e *Error) StatusCode() int {
	if info, ok := codes[e.code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// NewServer hides err behind a generic message.
func NewServer(err error) error {
	return &Error{err: err, msg: "Internal server error", errType: TypeServer, code: CodeInternal}
}

// NewUnavailable reports a failed downstream call with a caller-safe msg.
func NewUnavailable(err error, msg string) error {
	return &Error{err: err, msg: msg, errType: TypeServer, code: CodeUnavailable}
}

func NewBusiness(msg string, code Code) error {
	return &Error{msg: msg, errType: TypeBusiness, code: code}
}

// NewRateLimited is a 429 that tells the caller to come back after wait.
func NewRateLimited(msg string, wait time.Duration) error {
	return &Error{msg: msg, errType: TypeBusiness, code: CodeTooManyRequest, wait: wait}
}

// NewInvalidInput wraps a validator error, or builds field errors from
// key/value pairs when err is nil. An odd pair count means the caller sent
// something unreadable, which is reported as a bad format.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return &Error{err: err, msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput}
	}
	if len(kv)%2 != 0 {
		return NewInvalidFormat()
	}

	fields := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}

	return &Error{msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput, fields: fields}
}

// NewInvalidFormat is a 400 for a body that could not be decoded. The first
// msg, when given, replaces the default message.
func NewInvalidFormat(msgs ...string) error {
	msg := "Invalid request body"
	if len(msgs) > 0 {
		msg = msgs[0]
	}
	return &Error{msg: msg, errType: TypeValidation, code: CodeInvalidFormat}
}
