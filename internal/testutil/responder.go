// Package testutil provides testing utilities for blamebot.
package testutil

import (
	"context"
	"sync"

	"github.com/Sternrassler/blamebot/pkg/pagination"
)

// MockResponder records replies and optionally fails them.
type MockResponder struct {
	mu      sync.Mutex
	replies []pagination.Reply

	// Err is returned from every Respond call when set.
	Err error
}

// NewMockResponder creates a responder that accepts every reply.
func NewMockResponder() *MockResponder {
	return &MockResponder{}
}

// Respond implements pagination.Responder.
func (m *MockResponder) Respond(_ context.Context, reply pagination.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, reply)
	return m.Err
}

// Replies returns all recorded replies.
func (m *MockResponder) Replies() []pagination.Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pagination.Reply(nil), m.replies...)
}

// Last returns the most recent reply, or false if there was none.
func (m *MockResponder) Last() (pagination.Reply, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return pagination.Reply{}, false
	}
	return m.replies[len(m.replies)-1], true
}

// Control returns the control for action in the most recent reply.
func (m *MockResponder) Control(action pagination.Action) (pagination.Control, bool) {
	last, ok := m.Last()
	if !ok {
		return pagination.Control{}, false
	}
	for _, c := range last.Controls {
		if c.Action == action {
			return c, true
		}
	}
	return pagination.Control{}, false
}

// Reset clears recorded replies.
func (m *MockResponder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = nil
}
