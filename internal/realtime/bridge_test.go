package realtime

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/notify"
	"github.com/idilsaglam/tudu/internal/session"
)

// feedServer is a scriptable realtime endpoint: it records connects and
// pushes whatever the test writes to push.
type feedServer struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	connects int
	topics   []string

	push chan gateway.Event
}

func newFeedServer() *feedServer {
	return &feedServer{push: make(chan gateway.Event, 16)}
}

func (f *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var frame struct {
		Subscribe string `json:"subscribe"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		return
	}
	f.mu.Lock()
	f.connects++
	f.topics = append(f.topics, frame.Subscribe)
	f.mu.Unlock()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case ev := <-f.push:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (f *feedServer) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

type fixture struct {
	feed    *feedServer
	cache   *cache.Cache
	session *session.Session
	toasts  *notify.ChanNotifier
	gw      *gateway.Client
	logger  *log.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	feed := newFeedServer()
	srv := httptest.NewServer(feed)
	t.Cleanup(srv.Close)

	sess := session.New()
	sess.SetCredentialsFile(filepath.Join(t.TempDir(), "credentials.json"))
	if err := sess.Set(session.Auth{Token: "tok", Record: model.User{ID: "u1", Email: "u1@example.com"}}); err != nil {
		t.Fatalf("session.Set failed: %v", err)
	}

	logger := log.New(io.Discard)
	gw, err := gateway.New(srv.URL, srv.Client(), sess, logger)
	if err != nil {
		t.Fatalf("gateway.New failed: %v", err)
	}
	return &fixture{
		feed:    feed,
		cache:   cache.New(),
		session: sess,
		toasts:  notify.NewChanNotifier(16),
		gw:      gw,
		logger:  logger,
	}
}

// invalidations returns a channel signalled on each invalidation of key.
func (f *fixture) invalidations(key string) <-chan struct{} {
	ch := make(chan struct{}, 16)
	f.cache.OnInvalidate(key, func(string) { ch <- struct{}{} })
	return ch
}

func record(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	return b
}

func waitSignal(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal(msg)
	}
}

func waitToast(t *testing.T, f *fixture) notify.Notification {
	t.Helper()
	select {
	case n := <-f.toasts.C():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return notify.Notification{}
	}
}

func TestPublicBridgeInvalidatesAndNotifies(t *testing.T) {
	f := newFixture(t)
	b := NewPublicTodos(f.gw, f.cache, f.session, f.toasts, f.logger)
	inv := f.invalidations(cache.PublicTodosKey())

	if err := b.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(b.Stop)
	if b.State() != Subscribed {
		t.Fatalf("state = %v, want subscribed", b.State())
	}

	f.feed.push <- gateway.Event{
		Topic:  b.Topic(),
		Action: gateway.ActionCreate,
		Record: record(t, map[string]any{"id": "r1", "title": "Fresh news", "author": "u2"}),
	}
	waitSignal(t, inv, "create event did not invalidate the public key")
	toast := waitToast(t, f)
	if toast.Title != "New Public Todo!" || !strings.Contains(toast.Description, "Fresh news") {
		t.Errorf("toast = %+v, want create wording with the record title", toast)
	}

	f.feed.push <- gateway.Event{
		Topic:  b.Topic(),
		Action: gateway.ActionDelete,
		Record: record(t, map[string]any{"id": "r1"}),
	}
	waitSignal(t, inv, "delete event did not invalidate the public key")
	toast = waitToast(t, f)
	if toast.Title != "Public Todo Removed!" {
		t.Errorf("toast = %+v, want delete wording", toast)
	}
}

func TestGroupBridgeFiltersByViewedGroup(t *testing.T) {
	f := newFixture(t)
	b := NewGroupTodos(f.gw, f.cache, f.session, f.toasts, f.logger, "g1", "Our Team")
	inv := f.invalidations(cache.GroupTodosKey("g1"))

	if err := b.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(b.Stop)

	// event for another group: delivered, then dropped by the filter
	f.feed.push <- gateway.Event{
		Topic:  b.Topic(),
		Action: gateway.ActionCreate,
		Record: record(t, map[string]any{"id": "r1", "title": "other", "group": "g2"}),
	}
	// event for the viewed group follows and must be the first reaction
	f.feed.push <- gateway.Event{
		Topic:  b.Topic(),
		Action: gateway.ActionUpdate,
		Record: record(t, map[string]any{"id": "r2", "title": "ours", "group": "g1"}),
	}

	waitSignal(t, inv, "matching event did not invalidate the group key")
	toast := waitToast(t, f)
	if toast.Title != "Group Todo Updated!" || !strings.Contains(toast.Description, "Our Team") {
		t.Errorf("toast = %+v, want update wording naming the group", toast)
	}
	select {
	case n := <-f.toasts.C():
		t.Errorf("unexpected extra toast %+v; the g2 event should have been filtered", n)
	case <-time.After(100 * time.Millisecond):
	}
	if len(inv) != 0 {
		t.Error("the g2 event must not invalidate the viewed group's key")
	}
}

func TestBridgeStaysDownWithoutSession(t *testing.T) {
	f := newFixture(t)
	if err := f.session.Clear(); err != nil {
		t.Fatalf("session.Clear failed: %v", err)
	}
	b := NewPublicTodos(f.gw, f.cache, f.session, f.toasts, f.logger)

	if err := b.Start(t.Context()); err != nil {
		t.Fatalf("Start without session should be a quiet no-op: %v", err)
	}
	if b.State() != Unsubscribed {
		t.Errorf("state = %v, want unsubscribed", b.State())
	}
	if f.feed.connectCount() != 0 {
		t.Error("no realtime dial expected without a session")
	}
}

func TestGroupBridgeStaysDownWithoutGroup(t *testing.T) {
	f := newFixture(t)
	b := NewGroupTodos(f.gw, f.cache, f.session, f.toasts, f.logger, "", "")

	if err := b.Start(t.Context()); err != nil {
		t.Fatalf("Start without a group should be a quiet no-op: %v", err)
	}
	if b.State() != Unsubscribed {
		t.Errorf("state = %v, want unsubscribed while no group is viewed", b.State())
	}
	if f.feed.connectCount() != 0 {
		t.Error("no realtime dial expected without a group")
	}
}

func TestRestartUnsubscribesFirst(t *testing.T) {
	f := newFixture(t)
	b := NewPublicTodos(f.gw, f.cache, f.session, f.toasts, f.logger)
	inv := f.invalidations(cache.PublicTodosKey())

	if err := b.Start(t.Context()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := b.Start(t.Context()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	t.Cleanup(b.Stop)

	if f.feed.connectCount() != 2 {
		t.Fatalf("connects = %d, want 2 (old subscription torn down, new one dialed)", f.feed.connectCount())
	}

	f.feed.push <- gateway.Event{
		Topic:  b.Topic(),
		Action: gateway.ActionUpdate,
		Record: record(t, map[string]any{"id": "r1", "title": "once"}),
	}
	waitSignal(t, inv, "event after restart did not invalidate")
	_ = waitToast(t, f)

	// exactly one delivery: no second invalidation or toast
	select {
	case <-inv:
		t.Error("duplicate invalidation: old subscription still delivering")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStopIsIdempotent(t *testing.T) {
	f := newFixture(t)
	b := NewPublicTodos(f.gw, f.cache, f.session, f.toasts, f.logger)
	if err := b.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	b.Stop()
	if b.State() != Unsubscribed {
		t.Errorf("state = %v, want unsubscribed after Stop", b.State())
	}
	b.Stop() // second Stop must not panic or block
}
