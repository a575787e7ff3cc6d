package episode

import (
	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/storage/postgres"
)

// DefaultReplayLimit is the default number of events to load for replay.
const DefaultReplayLimit = 1000

// Status is the final known state of a persisted episode.
type Status string

const (
	StatusStarted    Status = "started"
	StatusConfigured Status = "configured"
	StatusFailed     Status = "failed"
	StatusSucceeded  Status = "succeeded"
)

// Outcome is one episode reconstructed from events.
type Outcome struct {
	EpisodeID string
	Task      string
	Variation int
	Status    Status
	Error     string
	CleanedUp bool
}

// EventSource returns the last events, newest first. *postgres.Client
// satisfies it.
type EventSource interface {
	Query(limit int) ([]postgres.EventRow, error)
}

// Summarize folds chronologically ordered rows into one outcome per
// episode, in order of first appearance.
func Summarize(rows []postgres.EventRow) []Outcome {
	var order []string
	byID := make(map[string]*Outcome)

	for _, row := range rows {
		id := episodeIDOf(row)
		if id == "" {
			continue
		}
		o, ok := byID[id]
		if !ok {
			o = &Outcome{EpisodeID: id, Status: StatusStarted}
			byID[id] = o
			order = append(order, id)
		}
		if task, ok := row.Fields["task"].(string); ok {
			o.Task = task
		}
		if v, ok := row.Fields["variation"].(float64); ok {
			o.Variation = int(v)
		}

		switch row.Event {
		case "episode.configured":
			o.Status = StatusConfigured
		case "episode.failed":
			o.Status = StatusFailed
			if msg, ok := row.Fields["error"].(string); ok {
				o.Error = msg
			}
		case "episode.succeeded":
			o.Status = StatusSucceeded
		case "episode.cleanup":
			o.CleanedUp = true
		}
	}

	out := make([]Outcome, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

func episodeIDOf(row postgres.EventRow) string {
	if row.EpisodeID != nil {
		return *row.EpisodeID
	}
	id, _ := row.Fields["episode_id"].(string)
	return id
}

// ReplayFromStore loads the last events and summarizes them. A nil source
// yields no outcomes.
func ReplayFromStore(src EventSource, limit int) ([]Outcome, int, error) {
	if src == nil {
		return nil, 0, nil
	}
	if limit <= 0 {
		limit = DefaultReplayLimit
	}

	rows, err := src.Query(limit)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}

	// Query returns newest first.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return Summarize(rows), len(rows), nil
}

// EmitReplaySummary reports a replay on startup.
func EmitReplaySummary(outcomes []Outcome, rows int) {
	counts := make(map[Status]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	events.Emit("info", "system.startup", "replayed episode history", map[string]interface{}{
		"rows":       rows,
		"episodes":   len(outcomes),
		"succeeded":  counts[StatusSucceeded],
		"failed":     counts[StatusFailed],
		"configured": counts[StatusConfigured],
	})
}
