package todos

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/notify"
	"github.com/idilsaglam/tudu/internal/session"
)

// backend is a scriptable stand-in for the record gateway. It counts
// requests so tests can assert that local guards fired before any call.
type backend struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Body   []byte
}

func newBackend(handler http.HandlerFunc) *backend {
	return &backend{handler: handler}
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	q := make(map[string]string)
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	b.mu.Lock()
	b.requests = append(b.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: q, Body: body})
	b.mu.Unlock()
	if b.handler != nil {
		b.handler(w, r)
		return
	}
	http.Error(w, `{"code":500,"message":"no handler"}`, http.StatusInternalServerError)
}

func (b *backend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func (b *backend) last() recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return recordedRequest{}
	}
	return b.requests[len(b.requests)-1]
}

// harness bundles everything a view-model needs, with user u1 logged in
// by default.
type harness struct {
	backend  *backend
	cache    *cache.Cache
	session  *session.Session
	recorder *notify.Recorder
	gw       *gateway.Client
	logger   *log.Logger
}

func newHarness(t *testing.T, handler http.HandlerFunc) *harness {
	t.Helper()
	b := newBackend(handler)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	sess := session.New()
	sess.SetCredentialsFile(filepath.Join(t.TempDir(), "credentials.json"))

	logger := log.New(io.Discard)
	gw, err := gateway.New(srv.URL, srv.Client(), sess, logger)
	if err != nil {
		t.Fatalf("gateway.New failed: %v", err)
	}
	h := &harness{
		backend:  b,
		cache:    cache.New(),
		session:  sess,
		recorder: &notify.Recorder{},
		gw:       gw,
		logger:   logger,
	}
	h.login(t, "u1")
	return h
}

func (h *harness) login(t *testing.T, userID string) {
	t.Helper()
	if err := h.session.Set(session.Auth{Token: "tok-" + userID, Record: model.User{ID: userID, Email: userID + "@example.com"}}); err != nil {
		t.Fatalf("session.Set failed: %v", err)
	}
}

func (h *harness) logout(t *testing.T) {
	t.Helper()
	if err := h.session.Clear(); err != nil {
		t.Fatalf("session.Clear failed: %v", err)
	}
}

// invalidationCounter counts trigger firings for one cache key.
func (h *harness) invalidationCounter(key string) *int {
	n := new(int)
	h.cache.OnInvalidate(key, func(string) { *n++ })
	return n
}

func jsonOK(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func listBody(items string) string {
	return `{"page":1,"perPage":500,"totalPages":1,"totalItems":1,"items":` + items + `}`
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
