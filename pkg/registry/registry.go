// Package registry defines the identity↔bond registry collaborator.
// The custody engine notifies it of bond creation and closure; the
// engine never depends on its response.
package registry

import (
	"context"
	"sync"
	"time"
)

// Notification is one registry callback payload.
type Notification struct {
	Identity  string    `json:"identity"`
	Amount    int64     `json:"amount"`
	Closed    bool      `json:"closed"`
	Timestamp time.Time `json:"timestamp"`
}

// Registry receives bond lifecycle notifications.
type Registry interface {
	BondCreated(ctx context.Context, identity string, amount int64) error
	BondClosed(ctx context.Context, identity string) error
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) BondCreated(context.Context, string, int64) error { return nil }
func (Nop) BondClosed(context.Context, string) error         { return nil }

// InMemory records notifications for inspection in tests.
type InMemory struct {
	mu            sync.Mutex
	notifications []Notification
	clock         func() time.Time
}

// NewInMemory returns an empty recording registry.
func NewInMemory() *InMemory {
	return &InMemory{clock: time.Now}
}

func (r *InMemory) BondCreated(ctx context.Context, identity string, amount int64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{
		Identity:  identity,
		Amount:    amount,
		Timestamp: r.clock(),
	})
	return nil
}

func (r *InMemory) BondClosed(ctx context.Context, identity string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{
		Identity:  identity,
		Closed:    true,
		Timestamp: r.clock(),
	})
	return nil
}

// Notifications returns a copy of everything recorded so far.
func (r *InMemory) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}
