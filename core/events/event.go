package events

import "yieldvault/core/types"

// Event is a committed ledger state change.
type Event interface {
	EventType() string
}

// Payload is implemented by events that render to the flat wire form consumed
// by log sinks and indexers.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter receives events after the transaction that produced them commits.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

// Emit implements Emitter.
func (f EmitterFunc) Emit(evt Event) { f(evt) }

// NoopEmitter discards every event.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
