package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	gorillawebsocket "github.com/gorilla/websocket"

	"github.com/bhis/bhis/internal/domain/queue"
	"github.com/bhis/bhis/internal/platform/websocket"
	"github.com/bhis/bhis/internal/session"
)

// QueueEvent is one decoded message from the live queue feed.
type QueueEvent struct {
	Type   string
	Change queue.Change
}

// WatchQueue follows the live queue feed, calling fn for every event until
// ctx is cancelled, the server hangs up or fn returns an error.
func (c *Client) WatchQueue(ctx context.Context, fn func(QueueEvent) error) error {
	if !c.session.Authenticated() {
		return session.ErrNoSession
	}
	target, err := streamURL(c.baseURL + "/queue/stream")
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.session.AccessToken)
	dialer := gorillawebsocket.Dialer{HandshakeTimeout: c.http.Timeout}
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && errors.Is(err, gorillawebsocket.ErrBadHandshake) {
			defer resp.Body.Close()
			return decodeAPIError(resp)
		}
		return &NetworkError{Op: "watch queue", Err: err}
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev websocket.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || gorillawebsocket.IsCloseError(err, gorillawebsocket.CloseNormalClosure) {
				return nil
			}
			return &NetworkError{Op: "watch queue", Err: err}
		}
		qe := QueueEvent{Type: ev.Type}
		if len(ev.Data) > 0 {
			if err := json.Unmarshal(ev.Data, &qe.Change); err != nil {
				return fmt.Errorf("watch queue: decode %s: %w", ev.Type, err)
			}
		}
		if err := fn(qe); err != nil {
			return err
		}
	}
}

func streamURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("invalid api url scheme %q", u.Scheme)
	}
	return u.String(), nil
}
