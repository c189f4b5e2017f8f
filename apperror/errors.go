// Package apperror defines the request-scoped failure taxonomy and its HTTP mapping.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code identifies a class of failure.
type Code string

const (
	CodeMalformedInput  Code = "MALFORMED_INPUT"
	CodeNotFound        Code = "NOT_FOUND"
	CodePayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
	CodeInternal        Code = "INTERNAL"
	CodeBindFailure     Code = "BIND_FAILURE"
)

// Sentinels for errors.Is matching by code.
var (
	ErrMalformedInput  = &Error{Code: CodeMalformedInput, Message: "malformed input"}
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrPayloadTooLarge = &Error{Code: CodePayloadTooLarge, Message: "payload too large"}
	ErrInternal        = &Error{Code: CodeInternal, Message: "internal server error"}
	ErrBindFailure     = &Error{Code: CodeBindFailure, Message: "bind failure"}
)

// Error is a failure with a code, a client-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New creates an error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// MalformedInput wraps a decoding failure of the request payload.
func MalformedInput(err error) *Error {
	return Wrap(err, CodeMalformedInput, "request body is not valid JSON")
}

// NotFound reports an unmatched method and path.
func NotFound(method, path string) *Error {
	return New(CodeNotFound, fmt.Sprintf("no route for %s %s", method, path))
}

// BindFailure wraps a listener creation error.
func BindFailure(addr string, err error) *Error {
	return Wrap(err, CodeBindFailure, "failed to bind "+addr)
}

// CodeOf extracts the code of err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps err to the status code written to the client.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeMalformedInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Body is the machine-readable error payload.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// BodyOf builds the client-facing payload. Internal causes are never exposed.
func BodyOf(err error) Body {
	code := CodeOf(err)
	msg := ErrInternal.Message
	var e *Error
	if code != CodeInternal && errors.As(err, &e) {
		msg = e.Message
	}
	return Body{Error: strings.ToLower(string(code)), Message: msg}
}
