package events

import (
	"sync"
)

// Subscriber represents a channel that receives events.
type Subscriber chan Event

// Broadcaster fans events out to in-process subscribers such as the MQTT
// event forwarder.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
}

var broadcaster = &Broadcaster{
	subscribers: make(map[Subscriber]struct{}),
}

// Subscribe adds a new subscriber and returns its channel.
// The channel has a buffer to prevent blocking on slow clients.
func Subscribe() Subscriber {
	ch := make(Subscriber, 64) // Buffer to avoid blocking Emit
	broadcaster.mu.Lock()
	broadcaster.subscribers[ch] = struct{}{}
	broadcaster.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Subscribers
// already dropped by CloseAllSubscribers are left alone.
func Unsubscribe(sub Subscriber) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if _, ok := broadcaster.subscribers[sub]; !ok {
		return
	}
	delete(broadcaster.subscribers, sub)
	close(sub)
}

// broadcast sends an event to all subscribers.
// Non-blocking: if a subscriber's buffer is full, the event is dropped for that subscriber.
func broadcast(e Event) {
	broadcaster.mu.RLock()
	defer broadcaster.mu.RUnlock()

	for sub := range broadcaster.subscribers {
		select {
		case sub <- e:
		default:
			// Buffer full, drop event for this slow subscriber
		}
	}
}

// CloseAllSubscribers removes and closes every subscriber.
func CloseAllSubscribers() {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	for sub := range broadcaster.subscribers {
		delete(broadcaster.subscribers, sub)
		close(sub)
	}
}

// SubscriberCount returns the current number of subscribers.
func SubscriberCount() int {
	broadcaster.mu.RLock()
	defer broadcaster.mu.RUnlock()
	return len(broadcaster.subscribers)
}

// RecentEvents returns the last n events from the ring buffer.
// If n is greater than available events, returns all available.
func RecentEvents(n int) []Event {
	all := buffer.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Observer is called synchronously from Emit for every event, so unlike a
// Subscriber it never misses one. It must not call Emit.
type Observer func(Event)

var observers = struct {
	mu   sync.RWMutex
	next int
	fns  map[int]Observer
}{fns: make(map[int]Observer)}

// AddObserver registers fn and returns a function that removes it.
func AddObserver(fn Observer) (remove func()) {
	observers.mu.Lock()
	id := observers.next
	observers.next++
	observers.fns[id] = fn
	observers.mu.Unlock()

	return func() {
		observers.mu.Lock()
		delete(observers.fns, id)
		observers.mu.Unlock()
	}
}

// ObserverCount returns the current number of observers.
func ObserverCount() int {
	observers.mu.RLock()
	defer observers.mu.RUnlock()
	return len(observers.fns)
}

func notify(e Event) {
	observers.mu.RLock()
	fns := make([]Observer, 0, len(observers.fns))
	for _, fn := range observers.fns {
		fns = append(fns, fn)
	}
	observers.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
