package notify

import (
	"context"
	"errors"
	"fmt"
)

// Notifier delivers a short message to an address. The caller decides what to do with
// the error; the order flow logs it and moves on.
type Notifier interface {
	Send(ctx context.Context, to, message string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, to, message string) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, to, message string) error {
	return f(ctx, to, message)
}

// Nop discards every message.
type Nop struct{}

// Send implements Notifier.
func (Nop) Send(context.Context, string, string) error { return nil }

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, to, message string) error {
	var joined error
	for i, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, to, message); err != nil {
			joined = errors.Join(joined, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return joined
}
