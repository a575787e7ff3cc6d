package episode

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/AaronLay10/EpisodeEngine/internal/storage/postgres"
)

type fakeSource struct {
	rows  []postgres.EventRow
	err   error
	limit int
}

func (f *fakeSource) Query(limit int) ([]postgres.EventRow, error) {
	f.limit = limit
	return f.rows, f.err
}

func row(event, episodeID string, fields map[string]interface{}) postgres.EventRow {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["episode_id"] = episodeID
	fields["task"] = "condition_block"
	return postgres.EventRow{Timestamp: time.Now(), Event: event, Fields: fields, EpisodeID: &episodeID}
}

func TestSummarize(t *testing.T) {
	rows := []postgres.EventRow{
		row("episode.started", "a", map[string]interface{}{"variation": float64(3)}),
		row("episode.configured", "a", nil),
		row("episode.started", "b", map[string]interface{}{"variation": float64(7)}),
		row("episode.failed", "b", map[string]interface{}{"error": "sampling exhausted"}),
		row("episode.succeeded", "a", nil),
		row("episode.cleanup", "a", nil),
		row("episode.started", "c", nil),
		row("episode.configured", "c", nil),
		{Event: "system.startup"},
	}

	want := []Outcome{
		{EpisodeID: "a", Task: "condition_block", Variation: 3, Status: StatusSucceeded, CleanedUp: true},
		{EpisodeID: "b", Task: "condition_block", Variation: 7, Status: StatusFailed, Error: "sampling exhausted"},
		{EpisodeID: "c", Task: "condition_block", Status: StatusConfigured},
	}
	if diff := cmp.Diff(want, Summarize(rows)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
}

func TestReplayFromStoreReversesRows(t *testing.T) {
	// Newest first, as the store returns them.
	src := &fakeSource{rows: []postgres.EventRow{
		row("episode.configured", "a", nil),
		row("episode.failed", "a", nil),
		row("episode.started", "a", nil),
	}}

	outcomes, n, err := ReplayFromStore(src, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || src.limit != DefaultReplayLimit {
		t.Errorf("expected 3 rows with default limit, got %d rows, limit %d", n, src.limit)
	}
	if len(outcomes) != 1 || outcomes[0].Status != StatusConfigured {
		t.Errorf("expected last event to win, got %+v", outcomes)
	}
}

func TestReplayFromStoreNilAndErrors(t *testing.T) {
	if out, n, err := ReplayFromStore(nil, 10); out != nil || n != 0 || err != nil {
		t.Errorf("nil source: %v %d %v", out, n, err)
	}

	boom := errors.New("connection refused")
	if _, _, err := ReplayFromStore(&fakeSource{err: boom}, 10); !errors.Is(err, boom) {
		t.Errorf("expected query error, got %v", err)
	}

	if out, n, err := ReplayFromStore(&fakeSource{}, 10); out != nil || n != 0 || err != nil {
		t.Errorf("empty source: %v %d %v", out, n, err)
	}
}
