package service

import (
	"context"
	"log"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from the transport that
// pushes state changes to clients
// ─────────────────────────────────────────────────────────────

// EventEmitter publishes service events such as "session:converted" or
// "export:job-completed".
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to the standard logger.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, event string, data any) {
	log.Printf("[EVENT] %s %v", event, data)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func emit(ctx context.Context, e EventEmitter, event string, data any) {
	if e != nil {
		e.Emit(ctx, event, data)
	}
}
