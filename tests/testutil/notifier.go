package testutil

import (
	"context"
	"sync"
)

// Send is one recorded notification attempt.
type Send struct {
	RecipientID string
	Message     string
}

// RecordingNotifier captures every Send call for assertions. When Err
// is set, each call records and then fails with it.
type RecordingNotifier struct {
	mu    sync.Mutex
	sends []Send

	Err error
}

// Send records the call.
func (n *RecordingNotifier) Send(_ context.Context, recipientID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, Send{RecipientID: recipientID, Message: message})
	return n.Err
}

// Sends returns a copy of the recorded calls.
func (n *RecordingNotifier) Sends() []Send {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Send, len(n.sends))
	copy(out, n.sends)
	return out
}

// Reset clears the recorded calls.
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = nil
}
