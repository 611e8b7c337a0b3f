package utils

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorUserNotFound = errors.New("user not found")

	// ErrorRecordNotFound covers both "does not exist" and "belongs to
	// another user". Callers must not be able to tell the two apart.
	ErrorRecordNotFound = errors.New("record not found")

	ErrorInvalidAmount  = errors.New("invalid amount")
	ErrorRequestBlocked = errors.New("request blocked")
	ErrorReceiptParse   = errors.New("invalid response format from model")
)

// RateLimitedError carries the client backoff hints from the quota check.
type RateLimitedError struct {
	Remaining int64
	ResetIn   time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, please try again later (remaining=%d reset_in=%s)", e.Remaining, e.ResetIn)
}

func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}
