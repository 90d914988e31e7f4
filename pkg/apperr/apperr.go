// Package apperr holds the domain error kinds the handlers translate into
// HTTP responses
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindRateLimited
	KindBadRequest
	KindConflict
)

type Error struct {
	Kind    Kind
	Message string
	// RetryAfter is set in seconds for KindRateLimited
	RetryAfter int
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func RateLimited(retryAfter int) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("Please wait %d seconds before requesting a new OTP", retryAfter),
		RetryAfter: retryAfter,
	}
}

// Is reports whether err carries an *Error of kind k
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// Respond writes err as the standard JSON error body. Anything that isn't
// an *Error is logged and hidden behind a 500.
func Respond(c *gin.Context, err error, msg string) {
	requestID := c.GetString("requestID")

	var e *Error
	if !errors.As(err, &e) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error(msg, zap.Error(err), zap.String("requestID", requestID))
		return
	}

	body := gin.H{
		"error":     e.Message,
		"requestID": requestID,
	}

	if e.Kind == KindRateLimited {
		body["waitTime"] = e.RetryAfter
		c.Header("Retry-After", strconv.Itoa(e.RetryAfter))
	}

	c.AbortWithStatusJSON(e.Kind.Status(), body)
}
