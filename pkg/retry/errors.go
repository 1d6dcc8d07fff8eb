package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrAttemptTimeout is returned when a single attempt exceeds its per-attempt timeout.
var ErrAttemptTimeout = errors.New("operation attempt timed out")

// Category represents a classification of data-access failures.
type Category string

const (
	// CategoryConnection represents refused or reset connections.
	CategoryConnection Category = "connection"

	// CategoryTimeout represents connection timeouts and attempts that exceeded their deadline.
	CategoryTimeout Category = "timeout"

	// CategoryUnknown represents every other failure. It is never retried.
	CategoryUnknown Category = "unknown"
)

// User-facing messages per category. Callers show these instead of the raw error.
const (
	MessageConnection = "Unable to reach the database right now. Please try again later."
	MessageTimeout    = "The database took too long to respond. Please try again later."
	MessageUnknown    = "Something went wrong while loading data. Please try again later."
)

// Retryable reports whether failures of this category are retried.
func (c Category) Retryable() bool {
	switch c {
	case CategoryConnection, CategoryTimeout:
		return true
	default:
		return false
	}
}

// Message returns the stable, user-presentable message for the category.
func (c Category) Message() string {
	switch c {
	case CategoryConnection:
		return MessageConnection
	case CategoryTimeout:
		return MessageTimeout
	default:
		return MessageUnknown
	}
}

// Classify maps an error onto a Category.
func Classify(err error) Category {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAttemptTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ETIMEDOUT):
		return CategoryTimeout
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, driver.ErrBadConn):
		return CategoryConnection
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	return CategoryUnknown
}

// DataAccessError is the normalized failure returned by Execute.
// Error() only ever yields the category message; the cause stays reachable
// through Unwrap for logging.
type DataAccessError struct {
	Op       string
	Category Category
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *DataAccessError) Error() string {
	return e.Category.Message()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// Detail describes the failure for logs, including the underlying cause.
func (e *DataAccessError) Detail() string {
	return fmt.Sprintf("%s failed (%s, %d attempts): %v", e.Op, e.Category, e.Attempts, e.Err)
}

// AsDataAccessError extracts a *DataAccessError from err's chain.
func AsDataAccessError(err error) (*DataAccessError, bool) {
	var dae *DataAccessError
	if errors.As(err, &dae) {
		return dae, true
	}
	return nil, false
}
