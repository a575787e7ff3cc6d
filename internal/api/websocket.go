package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/gorilla/websocket"
)

const (
	recentEventsCount = 50

	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = 54 * time.Second
)

// The monitor is read-only, so any origin may watch.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamFilter narrows the stream to one episode and/or one event family.
// The zero value passes everything.
type streamFilter struct {
	episodeID string
	prefix    string
}

func filterFromQuery(r *http.Request) streamFilter {
	q := r.URL.Query()
	return streamFilter{episodeID: q.Get("episode"), prefix: q.Get("prefix")}
}

func (f streamFilter) match(e events.Event) bool {
	if f.prefix != "" && !strings.HasPrefix(e.Name, f.prefix) {
		return false
	}
	if f.episodeID != "" {
		id, _ := e.Fields["episode_id"].(string)
		return id == f.episodeID
	}
	return true
}

func writeEvent(conn *websocket.Conn, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// wsEventsHandler streams matching recent events, then live ones.
// Query parameters: episode (episode id), prefix (event name prefix).
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	sub := events.Subscribe()
	closeAll := func() {
		events.Unsubscribe(sub)
		conn.Close()
	}

	for _, e := range events.RecentEvents(recentEventsCount) {
		if !filter.match(e) {
			continue
		}
		if err := writeEvent(conn, e); err != nil {
			log.Printf("ws write recent event failed: %v", err)
			closeAll()
			return
		}
	}

	// Reader: pongs and close frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			closeAll()
			return

		case e, ok := <-sub:
			if !ok {
				// Broadcaster shut down; it already dropped sub.
				conn.Close()
				return
			}
			if !filter.match(e) {
				continue
			}
			if err := writeEvent(conn, e); err != nil {
				log.Printf("ws write event failed: %v", err)
				closeAll()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				closeAll()
				return
			}
		}
	}
}
