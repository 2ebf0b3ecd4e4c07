package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Realtime actions carried on change events.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is one pushed change: what happened, where, and the affected
// record as the backend serialized it.
type Event struct {
	Topic  string          `json:"topic"`
	Action string          `json:"action"`
	Record json.RawMessage `json:"record"`
}

// subscribeFrame is the first message on a realtime socket.
type subscribeFrame struct {
	Subscribe string `json:"subscribe"`
}

// Subscription is one active realtime topic. Events arrive on Events()
// until Unsubscribe or a read failure closes the channel.
type Subscription struct {
	topic  string
	conn   *websocket.Conn
	events chan Event
	once   sync.Once
	done   chan struct{}
}

// Subscribe opens the realtime channel for one topic, e.g.
// "public_todos/*". One subscription per topic per consumer: unsubscribe
// before resubscribing or events are delivered twice.
func (c *Client) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/realtime"

	header := http.Header{}
	if c.session != nil {
		if auth := c.session.Auth(); auth.Token != "" {
			header.Set("Authorization", "Bearer "+auth.Token)
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}
	if err := conn.WriteJSON(subscribeFrame{Subscribe: topic}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &Subscription{
		topic:  topic,
		conn:   conn,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	go sub.readLoop(c)
	c.log.Debug("subscribed", "topic", topic)
	return sub, nil
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

// Events is the delivery channel. Closed when the subscription ends.
func (s *Subscription) Events() <-chan Event { return s.events }

// Unsubscribe tears the socket down and closes the event channel. Safe
// to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
		<-s.done
	})
}

func (s *Subscription) readLoop(c *Client) {
	defer close(s.done)
	defer close(s.events)
	for {
		var ev Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			// normal teardown also lands here once the socket closes
			c.log.Debug("realtime read ended", "topic", s.topic, "err", err)
			return
		}
		if ev.Topic != "" && ev.Topic != s.topic {
			continue
		}
		s.events <- ev
	}
}
