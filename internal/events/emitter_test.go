package events

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingStore struct {
	mu       sync.Mutex
	episodes []string
	names    []string
	err      error
}

func (s *recordingStore) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, episodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes = append(s.episodes, episodeID)
	s.names = append(s.names, event)
	return s.err
}

func TestEmitRejectsUnknownEvent(t *testing.T) {
	if _, err := Emit("info", "episode.exploded", "", nil); err == nil {
		t.Error("expected error for unregistered event")
	}
}

func TestEmitReturnsJSON(t *testing.T) {
	Clear()

	b, err := Emit("info", "episode.started", "hello", map[string]interface{}{"task": "condition_block"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if e.Name != "episode.started" || e.Message != "hello" || e.Level != "info" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.Fields["task"] != "condition_block" {
		t.Errorf("unexpected fields: %v", e.Fields)
	}

	snap := Snapshot()
	if len(snap) != 1 || snap[0].Name != "episode.started" {
		t.Errorf("expected event in buffer, got %v", snap)
	}
}

func TestEmitPersistsEpisodeID(t *testing.T) {
	st := &recordingStore{}
	SetStore(st)
	defer SetStore(nil)

	Emit("info", "episode.configured", "", map[string]interface{}{"episode_id": "ep-7"})
	Emit("info", "system.startup", "", nil)

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.episodes) != 2 {
		t.Fatalf("expected 2 appends, got %d", len(st.episodes))
	}
	if st.episodes[0] != "ep-7" || st.episodes[1] != "" {
		t.Errorf("unexpected episode ids: %v", st.episodes)
	}
}

func TestEmitStoreErrorLoggedOnce(t *testing.T) {
	Clear()
	st := &recordingStore{err: errors.New("connection refused")}
	SetStore(st)
	defer SetStore(nil)

	for i := 0; i < 3; i++ {
		if _, err := Emit("info", "sequencer.repeat", "", nil); err != nil {
			t.Fatalf("store failure must not surface: %v", err)
		}
	}

	count := 0
	for _, e := range Snapshot() {
		if e.Name == "system.error" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one system.error, got %d", count)
	}
}

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, name := range []string{"a", "b", "c", "d"} {
		rb.Add(Event{Name: name})
	}
	snap := rb.Snapshot()
	if len(snap) != 3 || snap[0].Name != "b" || snap[2].Name != "d" {
		t.Errorf("unexpected snapshot: %v", snap)
	}
	rb.Clear()
	if len(rb.Snapshot()) != 0 {
		t.Error("expected empty buffer after clear")
	}
}

func TestRingBufferFilterAfterWrap(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, name := range []string{"episode.started", "waypoint.reached", "episode.failed", "episode.started"} {
		rb.Add(Event{Name: name})
	}

	got := rb.Filter(func(e Event) bool { return strings.HasPrefix(e.Name, "episode.") })
	if len(got) != 2 || got[0].Name != "episode.failed" || got[1].Name != "episode.started" {
		t.Errorf("unexpected filtered events: %+v", got)
	}
}
