package core

import "sync"

// EventContext carries the data of an asset event.
type EventContext struct {
	Handle  uint64
	TypeTag string
	Path    string
	Err     error
}

// Asset event codes. Application codes should start beyond EventMaxCode.
type EventCode int

const (
	// A new handle was minted for a (type, path) pair.
	/* Context usage: Handle, TypeTag, Path */
	EventAssetRegistered EventCode = 0x01

	// A loader produced a payload that is now cached.
	/* Context usage: Handle, TypeTag, Path */
	EventAssetLoaded EventCode = 0x02

	// A loader failed. The handle stays valid with an empty payload.
	/* Context usage: Handle, TypeTag, Path, Err */
	EventAssetLoadFailed EventCode = 0x03

	// A registered file no longer exists on disk.
	/* Context usage: Handle, TypeTag, Path */
	EventAssetMissing EventCode = 0x04

	EventMaxCode EventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code EventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches asset events to registered listeners. Listeners must be
// comparable values, typically pointers.
type EventBus struct {
	registered map[EventCode][]*registeredEvent
	mutex      sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[EventCode][]*registeredEvent),
	}
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listeners will not be registered again and will cause this to return false.
 */
func (eb *EventBus) Register(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	if onEvent == nil {
		return false
	}
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for _, e := range eb.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eb.registered[code] = append(eb.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister stops the listener from receiving events with the provided code.
func (eb *EventBus) Unregister(code EventCode, listener interface{}) bool {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	events := eb.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eb.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 */
func (eb *EventBus) Fire(code EventCode, sender interface{}, context EventContext) bool {
	if eb == nil {
		return false
	}
	eb.mutex.RLock()
	events := eb.registered[code]
	eb.mutex.RUnlock()

	// Callbacks run unlocked so they can register or unregister themselves.
	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}
