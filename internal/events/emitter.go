// Package events emits structured engine events. Each event is validated
// against a closed registry, kept in a ring buffer, fanned out to
// subscribers and, when a store is configured, persisted.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

var buffer = NewRingBuffer(256)

// Store persists events. *postgres.Client satisfies it.
type Store interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}, episodeID string) error
}

var (
	store          Store
	storeMu        sync.RWMutex
	storeErrLogged bool
)

// SetStore sets the persistent store; nil disables persistence.
func SetStore(s Store) {
	storeMu.Lock()
	store = s
	storeErrLogged = false
	storeMu.Unlock()
}

// GetStore returns the current store.
func GetStore() Store {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return store
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emit records an event and returns its JSON encoding.
// The "episode_id" field, when a string, is persisted as the event's episode.
func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	broadcast(e)
	notify(e)

	storeMu.RLock()
	s := store
	errorLogged := storeErrLogged
	storeMu.RUnlock()

	if s != nil {
		episodeID, _ := fields["episode_id"].(string)
		if err := s.Append(ts, level, name, msg, fields, episodeID); err != nil && !errorLogged {
			storeMu.Lock()
			if !storeErrLogged {
				storeErrLogged = true
				storeMu.Unlock()
				// Straight into the buffer: going through Emit would recurse
				// into the failing store.
				buffer.Add(Event{
					Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
					Level:     "error",
					Name:      "system.error",
					Message:   "event store append failed",
					Fields: map[string]interface{}{
						"error": err.Error(),
					},
				})
			} else {
				storeMu.Unlock()
			}
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return b, nil
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// Matching returns the buffered events accepted by keep, oldest first.
func Matching(keep func(Event) bool) []Event {
	return buffer.Filter(keep)
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
