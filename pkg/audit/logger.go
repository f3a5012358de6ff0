// Package audit records structured custody events. Every event the
// engines emit (creations, slashes, withdrawals, denials) lands in one
// JSON stream through Logger; the hash-chained Trail (trail.go) holds the
// append-only records that must never be rewritten.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/credence-labs/credence-core/pkg/contracts"
)

// EventClass defines the category of the audit event.
type EventClass string

const (
	ClassLifecycle  EventClass = "LIFECYCLE"
	ClassGovernance EventClass = "GOVERNANCE"
	ClassEmergency  EventClass = "EMERGENCY"
	ClassDenial     EventClass = "DENIAL"
)

// Event is a structured audit record.
type Event struct {
	ID        string                 `json:"id"`
	Class     EventClass             `json:"class"`
	Name      string                 `json:"name"`
	Actor     string                 `json:"actor"`
	Subject   string                 `json:"subject,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Logger records audit events.
type Logger interface {
	Record(ctx context.Context, class EventClass, name, actor, subject string, metadata map[string]interface{}) error
	Denial(ctx context.Context, caller, role string, cause error) error
}

// logger writes structured JSON lines to a configurable Writer.
type logger struct {
	mu     sync.Mutex
	writer io.Writer
	clock  func() time.Time
}

// NewLogger creates a Logger writing to os.Stdout.
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter creates a Logger writing to the given writer.
// This allows injection for testing and custom sinks.
func NewLoggerWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &logger{writer: w, clock: time.Now}
}

func (l *logger) Record(ctx context.Context, class EventClass, name, actor, subject string, metadata map[string]interface{}) error {
	_ = ctx
	event := Event{
		ID:        uuid.New().String(),
		Class:     class,
		Name:      name,
		Actor:     actor,
		Subject:   subject,
		Timestamp: l.clock(),
		Metadata:  metadata,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	enc := json.NewEncoder(l.writer)
	return enc.Encode(event)
}

// Denial records an authorization failure for security monitoring.
func (l *logger) Denial(ctx context.Context, caller, role string, cause error) error {
	return l.Record(ctx, ClassDenial, contracts.EventAccessDenied, caller, "", map[string]interface{}{
		"role":   role,
		"reason": cause.Error(),
		"kind":   string(contracts.KindOf(cause)),
	})
}

// Nop returns a Logger that discards everything. Useful in tests that
// assert on engine state rather than the event stream.
func Nop() Logger {
	return &logger{writer: io.Discard, clock: time.Now}
}
