// Package api serves a read-only monitor for a running episode batch:
// health, recent events, a live event stream and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/version"
)

const shutdownTimeout = 5 * time.Second

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "episodes",
		Version:   version.Version,
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// eventsHandler returns buffered events, narrowed by the same episode and
// prefix parameters as the websocket stream.
func eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	out := events.Matching(filterFromQuery(r).match)
	if out == nil {
		out = []events.Event{}
	}
	_ = json.NewEncoder(w).Encode(out)
}

// NewHandler builds the monitor routes.
func NewHandler(stats *Stats) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/events", eventsHandler)
	mux.HandleFunc("/ws/events", wsEventsHandler)
	mux.HandleFunc("/metrics", stats.metricsHandler)
	return mux
}

// ListenAndServe serves the monitor on addr until ctx is done.
func ListenAndServe(ctx context.Context, addr string, stats *Stats) error {
	srv := &http.Server{Addr: addr, Handler: NewHandler(stats)}

	go stats.Follow(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("monitor listening on %s\n", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start runs the monitor in a goroutine.
// Errors are logged but do not stop the caller.
func Start(ctx context.Context, addr string, stats *Stats) {
	go func() {
		if err := ListenAndServe(ctx, addr, stats); err != nil {
			log.Printf("monitor error: %v", err)
		}
	}()
}
