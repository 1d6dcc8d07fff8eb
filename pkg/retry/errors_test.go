package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"
)

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

var _ net.Error = timeoutNetError{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Category
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "connection refused",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			expected: CategoryConnection,
		},
		{
			name:     "connection reset",
			err:      fmt.Errorf("read: %w", syscall.ECONNRESET),
			expected: CategoryConnection,
		},
		{
			name:     "bad driver connection",
			err:      driver.ErrBadConn,
			expected: CategoryConnection,
		},
		{
			name:     "connection timeout",
			err:      syscall.ETIMEDOUT,
			expected: CategoryTimeout,
		},
		{
			name:     "net timeout",
			err:      &net.OpError{Op: "read", Net: "tcp", Err: timeoutNetError{}},
			expected: CategoryTimeout,
		},
		{
			name:     "attempt timeout",
			err:      fmt.Errorf("%w after 1s", ErrAttemptTimeout),
			expected: CategoryTimeout,
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: CategoryTimeout,
		},
		{
			name:     "constraint violation",
			err:      errors.New("UNIQUE constraint failed: blames.id"),
			expected: CategoryUnknown,
		},
		{
			name:     "context cancelled",
			err:      context.Canceled,
			expected: CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.expected {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestCategoryRetryable(t *testing.T) {
	tests := []struct {
		category Category
		expected bool
	}{
		{CategoryConnection, true},
		{CategoryTimeout, true},
		{CategoryUnknown, false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			if got := tt.category.Retryable(); got != tt.expected {
				t.Errorf("%q.Retryable() = %v, want %v", tt.category, got, tt.expected)
			}
		})
	}
}

func TestDataAccessError(t *testing.T) {
	cause := fmt.Errorf("dial: %w", syscall.ECONNREFUSED)
	err := &DataAccessError{
		Op:       "store.leaderboard",
		Category: CategoryConnection,
		Attempts: 3,
		Err:      cause,
	}

	if err.Error() != MessageConnection {
		t.Errorf("Error() = %q, want %q", err.Error(), MessageConnection)
	}
	if strings.Contains(err.Error(), "dial") {
		t.Error("Error() must not leak the underlying cause")
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Error("Expected cause to be reachable through Unwrap")
	}
	if !strings.Contains(err.Detail(), "store.leaderboard") || !strings.Contains(err.Detail(), "3 attempts") {
		t.Errorf("Detail() = %q, missing operation or attempts", err.Detail())
	}

	wrapped := fmt.Errorf("leaderboard: %w", err)
	dae, ok := AsDataAccessError(wrapped)
	if !ok || dae != err {
		t.Errorf("AsDataAccessError did not find wrapped error")
	}
	if _, ok := AsDataAccessError(cause); ok {
		t.Error("AsDataAccessError should not match a plain error")
	}
}
