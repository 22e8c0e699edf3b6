package store

import (
	"time"
)

// EventType identifies a store mutation.
type EventType uint8

const (
	EventUpdated EventType = iota
	EventCreated
	EventDeleted
	EventExecuted
	EventBackedUp
	EventRestored
)

var eventTypeNames = [...]string{"updated", "created", "deleted", "executed", "backedUp", "restored"}

// String returns the event name.
func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}

// Event describes one store mutation.
//
// URI is a resource URI, or "/objectId" for backup and restore. Value is
// the affected *model.Resource for updates and creates, the argument for
// executes, and nil otherwise.
type Event struct {
	URI       string
	Value     any
	Type      EventType
	Remote    bool
	ServerID  uint16
	Timestamp time.Time
}

// EventHandler receives store events. Handlers run synchronously after the
// mutation completes and must not call back into the store's write path.
type EventHandler func(Event)

// OnEvent registers a handler.
func (s *Store) OnEvent(h EventHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers = append(s.handlers, h)
}

func (s *Store) emit(e Event) {
	e.Timestamp = s.timeNow()

	s.handlersMu.RLock()
	handlers := s.handlers
	s.handlersMu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
