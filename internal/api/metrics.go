package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/version"
)

// Stats counts episode outcomes seen on the event stream.
type Stats struct {
	mu        sync.RWMutex
	startTime time.Time
	task      string
	events    int
	started   int
	succeeded int
	failed    int
	placement int
}

func NewStats(task string) *Stats {
	return &Stats{startTime: time.Now(), task: task}
}

// Observe folds one event into the counters.
func (s *Stats) Observe(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events++
	switch e.Name {
	case "episode.started":
		s.started++
	case "episode.succeeded":
		s.succeeded++
	case "episode.failed":
		s.failed++
	case "placement.exhausted":
		s.placement++
	}
}

// Follow counts every emitted event until ctx is done. Counting happens
// synchronously inside Emit, so bursts are never dropped.
func (s *Stats) Follow(ctx context.Context) {
	remove := events.AddObserver(s.Observe)
	defer remove()
	<-ctx.Done()
}

type statsSnapshot struct {
	uptime             float64
	task               string
	events             int
	started            int
	succeeded          int
	failed             int
	placementExhausted int
}

func (s *Stats) snapshot() statsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statsSnapshot{
		uptime:             time.Since(s.startTime).Seconds(),
		task:               s.task,
		events:             s.events,
		started:            s.started,
		succeeded:          s.succeeded,
		failed:             s.failed,
		placementExhausted: s.placement,
	}
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func (s *Stats) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap := s.snapshot()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}

	labels := fmt.Sprintf(`task="%s",instance="%s",version="%s"`, snap.task, hostname, version.Version)

	writeMetric("episodes_uptime_seconds", "gauge",
		"Number of seconds since the engine started", snap.uptime, labels)
	writeMetric("episodes_events_total", "counter",
		"Total number of events observed since startup", snap.events, labels)
	writeMetric("episodes_started_total", "counter",
		"Episodes that began configuration", snap.started, labels)
	writeMetric("episodes_succeeded_total", "counter",
		"Episodes whose success condition was met", snap.succeeded, labels)
	writeMetric("episodes_failed_total", "counter",
		"Episodes that failed during configuration", snap.failed, labels)
	writeMetric("episodes_placement_exhausted_total", "counter",
		"Placement requests that hit the retry ceiling", snap.placementExhausted, labels)
	writeMetric("episodes_event_subscribers", "gauge",
		"Number of active event stream subscribers", events.SubscriberCount(), labels)
	writeMetric("episodes_event_observers", "gauge",
		"Number of synchronous event observers", events.ObserverCount(), labels)
}
