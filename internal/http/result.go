package httpapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tells the dashboard how to render a response banner.
type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Envelope codes.
const (
	CodeOK     = 2000
	CodeFailed = -1
)

var errInternal = errors.New("internal server error")

// Result is the body of every JSON endpoint.
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    Kind   `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: CodeOK, Type: KindSuccess, Message: "ok", Result: result}
}

// Warn reports a completed operation whose cleanup partly failed.
func Warn[T any](result T, format string, args ...any) Result[T] {
	return Result[T]{Code: CodeOK, Type: KindWarning, Message: fmt.Sprintf(format, args...), Result: result}
}

// Fail wraps err for a response with the given status. Unclassified server
// errors are masked; their detail stays in the request log.
func Fail(status int, err error) Result[any] {
	if status == http.StatusInternalServerError {
		err = errInternal
	}
	return Result[any]{Code: CodeFailed, Type: KindError, Message: err.Error()}
}
