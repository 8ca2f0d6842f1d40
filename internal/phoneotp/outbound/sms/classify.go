package sms

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
)

// Error is a failed delivery attempt with its retry class.
type Error struct {
	Class    entity.ErrorClass
	Status   int
	Provider string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("sms %s: status %d: %s", e.Provider, e.Status, msg)
	}

	return fmt.Sprintf("sms %s: %s", e.Provider, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf returns the retry class carried by err. Unknown errors are terminal.
func ClassOf(err error) entity.ErrorClass {
	if err == nil {
		return entity.ErrorClassNone
	}

	var de *Error
	if errors.As(err, &de) {
		return de.Class
	}
	if errors.Is(err, entity.ErrConfig) {
		return entity.ErrorClassConfig
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return entity.ErrorClassTransient
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return entity.ErrorClassTransient
	}

	return entity.ErrorClassTerminal
}

// statusClass maps an HTTP status to a retry class.
func statusClass(code int) entity.ErrorClass {
	switch {
	case code >= 200 && code < 300:
		return entity.ErrorClassNone
	case code == http.StatusRequestTimeout,
		code == http.StatusTooEarly,
		code == http.StatusTooManyRequests,
		code >= 500:
		return entity.ErrorClassTransient
	default:
		return entity.ErrorClassTerminal
	}
}

func transportError(provider string, err error) *Error {
	return &Error{Class: entity.ErrorClassTransient, Provider: provider, Msg: "transport failure", Err: err}
}
