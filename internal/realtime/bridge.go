// Package realtime turns the gateway's pushed change events into cache
// invalidations and user notifications. One bridge watches one
// collection; the group variant additionally post-filters events by the
// viewed group, because the underlying subscription is collection-wide.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/notify"
	"github.com/idilsaglam/tudu/internal/session"
)

// State of one bridge.
type State int

const (
	Unsubscribed State = iota
	Subscribing
	Subscribed
)

func (s State) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Subscribed:
		return "subscribed"
	default:
		return "unsubscribed"
	}
}

// eventRecord is the slice of a pushed record the bridge looks at.
type eventRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Group string `json:"group"`
}

// Bridge subscribes to one collection's change feed and reacts to every
// event with a cache invalidation plus a notification.
type Bridge struct {
	gw      *gateway.Client
	cache   *cache.Cache
	session *session.Session
	notify  notify.Notifier
	log     *log.Logger

	topic    string
	cacheKey string
	ready    func() bool // full scope key present; gates entry into Subscribed
	describe func(action string, rec eventRecord) (title, desc string)
	filter   func(rec eventRecord) bool

	mu    sync.Mutex
	state State
	sub   *gateway.Subscription
	done  chan struct{}
}

// NewPublicTodos builds the bridge for the public todo feed.
func NewPublicTodos(gw *gateway.Client, c *cache.Cache, sess *session.Session, n notify.Notifier, logger *log.Logger) *Bridge {
	return &Bridge{
		gw: gw, cache: c, session: sess, notify: n, log: logger,
		topic:    model.CollectionPublicTodos + "/*",
		cacheKey: cache.PublicTodosKey(),
		ready:    func() bool { return sess.UserID() != "" },
		filter:   func(eventRecord) bool { return true },
		describe: describePublic,
	}
}

// NewGroupTodos builds the bridge for one group's todo feed. The
// subscription itself is collection-wide; events for other groups are
// dropped after delivery. groupName is only used in notification text
// and may be empty.
func NewGroupTodos(gw *gateway.Client, c *cache.Cache, sess *session.Session, n notify.Notifier, logger *log.Logger, groupID, groupName string) *Bridge {
	if groupName == "" {
		groupName = "this group"
	}
	b := &Bridge{
		gw: gw, cache: c, session: sess, notify: n, log: logger,
		topic:    model.CollectionGroupTodos + "/*",
		cacheKey: cache.GroupTodosKey(groupID),
		ready:    func() bool { return sess.UserID() != "" && groupID != "" },
		filter:   func(rec eventRecord) bool { return rec.Group == groupID },
	}
	b.describe = func(action string, rec eventRecord) (string, string) {
		return describeGroup(action, groupName)
	}
	return b
}

// State returns the bridge's lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Topic returns the subscribed topic.
func (b *Bridge) Topic() string { return b.topic }

// Start subscribes when the full scope key is present: an authenticated
// identity, plus the viewed group for the group variant. Otherwise it
// stays Unsubscribed and returns nil: the caller retries once the
// missing piece arrives. An existing subscription is torn down first so
// events are never delivered twice.
func (b *Bridge) Start(ctx context.Context) error {
	if !b.ready() {
		return nil
	}

	b.Stop()

	b.mu.Lock()
	b.state = Subscribing
	b.mu.Unlock()

	sub, err := b.gw.Subscribe(ctx, b.topic)
	if err != nil {
		b.mu.Lock()
		b.state = Unsubscribed
		b.mu.Unlock()
		return fmt.Errorf("start bridge %s: %w", b.topic, err)
	}

	done := make(chan struct{})
	b.mu.Lock()
	b.sub = sub
	b.done = done
	b.state = Subscribed
	b.mu.Unlock()

	go func() {
		defer close(done)
		for ev := range sub.Events() {
			b.handle(ev)
		}
	}()
	return nil
}

// Stop unsubscribes and waits for the delivery goroutine to drain. Safe
// to call in any state.
func (b *Bridge) Stop() {
	b.mu.Lock()
	sub, done := b.sub, b.done
	b.sub, b.done = nil, nil
	b.state = Unsubscribed
	b.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
		<-done
	}
}

func (b *Bridge) handle(ev gateway.Event) {
	var rec eventRecord
	if len(ev.Record) > 0 {
		if err := json.Unmarshal(ev.Record, &rec); err != nil {
			b.log.Debug("unreadable realtime record", "topic", b.topic, "err", err)
		}
	}
	if !b.filter(rec) {
		return
	}

	b.cache.Invalidate(b.cacheKey)
	title, desc := b.describe(ev.Action, rec)
	b.notify.Info(title, desc)
	b.log.Debug("realtime event", "topic", b.topic, "action", ev.Action, "record", rec.ID)
}

func describePublic(action string, rec eventRecord) (string, string) {
	switch action {
	case gateway.ActionCreate:
		return "New Public Todo!", fmt.Sprintf("A new todo %q has been added.", rec.Title)
	case gateway.ActionUpdate:
		return "Public Todo Updated!", fmt.Sprintf("%q has been updated.", rec.Title)
	case gateway.ActionDelete:
		return "Public Todo Removed!", "A public todo has been removed."
	default:
		return "Public Todos Changed", ""
	}
}

func describeGroup(action, groupName string) (string, string) {
	var verb, headline string
	switch action {
	case gateway.ActionCreate:
		verb, headline = "created", "Group Todo Added!"
	case gateway.ActionUpdate:
		verb, headline = "updated", "Group Todo Updated!"
	case gateway.ActionDelete:
		verb, headline = "deleted", "Group Todo Removed!"
	default:
		return "Group Todos Changed", ""
	}
	return headline, fmt.Sprintf("A todo in %q has been %s.", groupName, verb)
}
