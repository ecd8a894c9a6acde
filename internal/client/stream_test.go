package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bhis/bhis/internal/domain/queue"
	"github.com/bhis/bhis/internal/platform/websocket"
	"github.com/bhis/bhis/internal/session"
)

func newStreamServer(t *testing.T) (*websocket.Hub, string) {
	t.Helper()
	hub := websocket.NewHub(zerolog.Nop())
	h := websocket.NewHandler(hub, nil, queue.Topic)
	h.OnConnect = func() *websocket.Event {
		return &websocket.Event{Type: queue.EventSnapshot, Topic: queue.Topic}
	}
	e := echo.New()
	e.GET("/api/queue/stream", func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "Bearer tok-abc" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
		}
		return h.HandleConnect(c)
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return hub, srv.URL + "/api"
}

func TestWatchQueue_ReceivesEvents(t *testing.T) {
	hub, base := newStreamServer(t)
	c := New(base, authedSession())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []QueueEvent
	err := c.WatchQueue(ctx, func(ev QueueEvent) error {
		got = append(got, ev)
		if ev.Type == queue.EventSnapshot {
			go func() {
				for hub.TopicCount(queue.Topic) == 0 {
					time.Sleep(5 * time.Millisecond)
				}
				e := queue.Entry{ID: 4, Name: "Lola Nena", Status: queue.StatusWaiting}
				hub.Notify(queue.Topic, queue.EventAdded, queue.Change{Entry: &e, Counts: queue.Counts{Waiting: 1}})
			}()
			return nil
		}
		cancel()
		return nil
	})
	if err != nil {
		t.Fatalf("WatchQueue: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	added := got[1]
	if added.Type != queue.EventAdded || added.Change.Entry == nil || added.Change.Entry.ID != 4 {
		t.Errorf("unexpected event %+v", added)
	}
	if added.Change.Counts.Waiting != 1 {
		t.Errorf("expected waiting=1, got %+v", added.Change.Counts)
	}
}

func TestWatchQueue_CallbackErrorStops(t *testing.T) {
	_, base := newStreamServer(t)
	c := New(base, authedSession())
	stop := errors.New("enough")

	err := c.WatchQueue(context.Background(), func(QueueEvent) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestWatchQueue_Unauthorized(t *testing.T) {
	_, base := newStreamServer(t)
	c := New(base, &session.Session{AccessToken: "wrong"})

	err := c.WatchQueue(context.Background(), func(QueueEvent) error { return nil })
	if !IsUnauthorized(err) {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}

func TestWatchQueue_WithoutSession(t *testing.T) {
	c := New("http://127.0.0.1:1/api", nil)
	err := c.WatchQueue(context.Background(), func(QueueEvent) error { return nil })
	if !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"http://localhost:8000/api/queue/stream", "ws://localhost:8000/api/queue/stream", false},
		{"https://bhs.example/api/queue/stream", "wss://bhs.example/api/queue/stream", false},
		{"ftp://bhs.example/api", "", true},
	}
	for _, tt := range tests {
		got, err := streamURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("streamURL(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("streamURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
