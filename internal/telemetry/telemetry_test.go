package telemetry

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/snakeql/internal/core"
	"github.com/vovakirdan/snakeql/internal/games/snake"
	"github.com/vovakirdan/snakeql/internal/session"
)

func event(episode, score int) Event {
	return Event{RunID: 1, Episode: episode, Mode: "training", Score: score}
}

func TestEventFromResult(t *testing.T) {
	evt := EventFromResult(7, session.EpisodeResult{
		Episode:  3,
		Mode:     session.ModeTesting,
		Score:    5,
		Steps:    120,
		Length:   8,
		Duration: 1500 * time.Millisecond,
		Final: snake.Snapshot{
			Score:   5,
			Head:    core.Position{Row: 0, Col: 4},
			Heading: core.DirUp,
			State:   snake.StateGameOver,
		},
	})

	if evt.RunID != 7 || evt.Episode != 3 || evt.Mode != "testing" || evt.Score != 5 {
		t.Errorf("Unexpected event %+v", evt)
	}
	if evt.DurationMS != 1500 {
		t.Errorf("DurationMS = %d, expected 1500", evt.DurationMS)
	}
	if evt.Time.IsZero() {
		t.Error("Time should be set")
	}

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, want := range []string{`"heading":"up"`, `"state":"game_over"`, `"mode":"testing"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Event JSON %s missing %s", data, want)
		}
	}
}

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub(10)

	hub.Publish(event(1, 1))
	sub, history := hub.Subscribe(8)
	if len(history) != 1 || history[0].Episode != 1 {
		t.Errorf("Subscribe() history = %+v, expected episode 1", history)
	}
	if hub.Count() != 1 {
		t.Errorf("Count() = %d, expected 1", hub.Count())
	}

	hub.Publish(event(2, 4))
	select {
	case evt := <-sub.Events():
		if evt.Episode != 2 || evt.Score != 4 {
			t.Errorf("Received %+v, expected episode 2", evt)
		}
	default:
		t.Fatal("Subscriber did not receive the event")
	}

	hub.Unsubscribe(sub)
	if hub.Count() != 0 {
		t.Errorf("Count() after unsubscribe = %d, expected 0", hub.Count())
	}
	select {
	case <-sub.Done():
	default:
		t.Error("Unsubscribe should close the subscriber")
	}

	// Sending to a closed subscriber is a no-op
	sub.Send(event(3, 0))
	sub.Close()

	if hub.Published() != 2 {
		t.Errorf("Published() = %d, expected 2", hub.Published())
	}
}

func TestSubscriberDropsOldest(t *testing.T) {
	hub := NewHub(10)
	sub, _ := hub.Subscribe(2)

	for i := 1; i <= 5; i++ {
		hub.Publish(event(i, 0))
	}

	var got []int
	for len(sub.Events()) > 0 {
		got = append(got, (<-sub.Events()).Episode)
	}
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Errorf("Buffered episodes = %v, expected [4 5]", got)
	}
}

func TestHubHistoryIsBounded(t *testing.T) {
	hub := NewHub(3)
	for i := 1; i <= 5; i++ {
		hub.Publish(event(i, i))
	}

	recent := hub.Recent(0)
	if len(recent) != 3 || recent[0].Episode != 3 || recent[2].Episode != 5 {
		t.Errorf("Recent(0) = %+v, expected episodes 3..5", recent)
	}

	last := hub.Recent(1)
	if len(last) != 1 || last[0].Episode != 5 {
		t.Errorf("Recent(1) = %+v, expected episode 5", last)
	}

	// Returned slices are copies
	recent[0].Score = 99
	if hub.Recent(0)[0].Score == 99 {
		t.Error("Recent() should return a copy")
	}
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(50)
	logger := log.NewWithOptions(io.Discard, log.Options{})
	srv := httptest.NewServer(NewServer("", hub, logger).Handler())
	t.Cleanup(srv.Close)
	return hub, srv
}

func TestServerHealthAndEpisodes(t *testing.T) {
	hub, srv := newTestServer(t)
	hub.Publish(event(1, 2))
	hub.Publish(event(2, 6))

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	resp.Body.Close()
	if health.Status != "ok" || health.Published != 2 {
		t.Errorf("Health = %+v", health)
	}

	resp, err = http.Get(srv.URL + "/episodes?limit=1")
	if err != nil {
		t.Fatalf("GET /episodes failed: %v", err)
	}
	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	resp.Body.Close()
	if len(events) != 1 || events[0].Score != 6 {
		t.Errorf("Episodes = %+v, expected the newest event", events)
	}

	resp, err = http.Get(srv.URL + "/episodes?limit=abc")
	if err != nil {
		t.Fatalf("GET /episodes failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Bad limit status = %d, expected 400", resp.StatusCode)
	}
}

func TestServerWebsocketStream(t *testing.T) {
	hub, srv := newTestServer(t)
	hub.Publish(event(1, 3))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	read := func() Event {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			t.Fatalf("ReadJSON failed: %v", err)
		}
		return evt
	}

	// History arrives first, which also proves the subscription is live.
	if evt := read(); evt.Episode != 1 || evt.Score != 3 {
		t.Errorf("History event = %+v, expected episode 1", evt)
	}

	hub.Publish(event(2, 9))
	if evt := read(); evt.Episode != 2 || evt.Score != 9 {
		t.Errorf("Live event = %+v, expected episode 2", evt)
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	deadline := time.Now().Add(5 * time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Errorf("Subscriber not removed after close, Count() = %d", hub.Count())
	}
}
