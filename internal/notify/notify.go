// Package notify defines the narrow outbound-notification interface the
// task store depends on, and its relay-backed implementation.
package notify

import "context"

// Notifier delivers a single best-effort message to a recipient on the
// messaging provider. Implementations make exactly one attempt; the
// caller decides whether a failure matters.
type Notifier interface {
	Send(ctx context.Context, recipientID, message string) error
}

// Nop is a Notifier that silently discards every message. Used when no
// relay is configured.
type Nop struct{}

// Send discards the message.
func (Nop) Send(context.Context, string, string) error { return nil }
