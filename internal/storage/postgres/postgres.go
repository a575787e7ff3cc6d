package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// EventRow represents an episode event stored in Postgres.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	BenchID   string                 `json:"bench_id"`
	EpisodeID *string                `json:"episode_id,omitempty"`
}

// Client manages the Postgres connection for episode event storage.
type Client struct {
	db      *sql.DB
	benchID string
}

// DSN builds a lib/pq connection string from PG* environment variables.
// password overrides PGPASSWORD when non-empty.
func DSN(password string) string {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "episodes")
	dbname := getEnv("PGDATABASE", "episodes")
	if password == "" {
		password = os.Getenv("PGPASSWORD")
	}

	if password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
}

// New connects using DSN(password) and ensures the events table exists.
func New(benchID, password string) (*Client, error) {
	db, err := sql.Open("postgres", DSN(password))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:      db,
		benchID: benchID,
	}

	if err := client.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create episode_events table: %w", err)
	}

	return client, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS episode_events (
			event_id   BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     JSONB,
			bench_id   TEXT NOT NULL,
			episode_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_episode_events_ts ON episode_events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_episode_events_bench_id ON episode_events(bench_id);
		CREATE INDEX IF NOT EXISTS idx_episode_events_episode_id ON episode_events(episode_id);
	`
	_, err := c.db.Exec(query)
	return err
}

// Append inserts an event. It satisfies events.Store.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, episodeID string) error {
	var fieldsJSON []byte
	var err error
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}

	var episodePtr *string
	if episodeID != "" {
		episodePtr = &episodeID
	}

	query := `
		INSERT INTO episode_events (ts, level, event, msg, fields, bench_id, episode_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = c.db.Exec(query, ts, level, event, msgPtr, fieldsJSON, c.benchID, episodePtr)
	return err
}

// Query returns the last N events of this bench, newest first.
func (c *Client) Query(limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}

	query := `
		SELECT event_id, ts, level, event, msg, fields, bench_id, episode_id
		FROM episode_events
		WHERE bench_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := c.db.Query(query, c.benchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// QueryEpisode returns every event of one episode in chronological order.
func (c *Client) QueryEpisode(episodeID string) ([]EventRow, error) {
	query := `
		SELECT event_id, ts, level, event, msg, fields, bench_id, episode_id
		FROM episode_events
		WHERE bench_id = $1 AND episode_id = $2
		ORDER BY ts ASC, event_id ASC
	`
	rows, err := c.db.Query(query, c.benchID, episodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]EventRow, error) {
	var events []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg, episodeID sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.BenchID, &episodeID); err != nil {
			return nil, err
		}

		if msg.Valid {
			e.Message = &msg.String
		}
		if episodeID.Valid {
			e.EpisodeID = &episodeID.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
