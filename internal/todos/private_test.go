package todos

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/notify"
)

func TestPrivateFetchWithoutUserIsEmptyAndSilent(t *testing.T) {
	h := newHarness(t, nil)
	h.logout(t)
	vm := NewPrivateTodos(h.gw, h.cache, h.session, h.recorder, h.logger)

	todos, err := vm.Fetch(t.Context())
	if err != nil {
		t.Fatalf("Fetch without user must not error: %v", err)
	}
	if len(todos) != 0 {
		t.Errorf("Fetch without user = %v, want empty", todos)
	}
	if h.backend.count() != 0 {
		t.Error("no gateway call expected without a scope key")
	}
}

func TestPrivateFetchScopedByOwnerAndCached(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, listBody(`[{"id":"r1","title":"Buy milk","completed":false,"user":"u1","created":"2025-06-02 10:00:00.000Z"}]`))
	})
	vm := NewPrivateTodos(h.gw, h.cache, h.session, h.recorder, h.logger)

	todos, err := vm.Fetch(t.Context())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(todos) != 1 || todos[0].Title != "Buy milk" {
		t.Fatalf("unexpected todos: %+v", todos)
	}

	req := h.backend.last()
	if req.Query["filter"] != `user = "u1"` {
		t.Errorf("filter = %q, want owner scope", req.Query["filter"])
	}
	if req.Query["sort"] != "-created" {
		t.Errorf("sort = %q, want -created (newest first, gateway-side)", req.Query["sort"])
	}

	// second fetch is served from the cache
	if _, err := vm.Fetch(t.Context()); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if h.backend.count() != 1 {
		t.Errorf("gateway calls = %d, want 1 (cached)", h.backend.count())
	}
}

func TestPrivateCreateUnauthenticated(t *testing.T) {
	h := newHarness(t, nil)
	h.logout(t)
	vm := NewPrivateTodos(h.gw, h.cache, h.session, h.recorder, h.logger)

	_, err := vm.Create(t.Context(), Input{Title: "x"})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("error = %v, want ErrNotAuthenticated", err)
	}
	if h.backend.count() != 0 {
		t.Error("unauthenticated create must not reach the gateway")
	}
	if last := h.recorder.Last(); last.Kind != notify.KindError || last.Description != "User not authenticated." {
		t.Errorf("notification = %+v, want local auth rejection", last)
	}
}

func TestPrivateCreateStampsOwnerAndInvalidates(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{"id":"r9","title":"Buy milk","completed":false,"user":"u1"}`)
	})
	vm := NewPrivateTodos(h.gw, h.cache, h.session, h.recorder, h.logger)
	vm.Editor.Open(nil)
	invalidations := h.invalidationCounter(cache.PrivateTodosKey("u1"))

	created, err := vm.Create(t.Context(), Input{Title: "Buy milk", Description: "2l"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.User != "u1" || created.Completed {
		t.Errorf("created = %+v, want owner u1 and completed=false", created)
	}

	var fields map[string]any
	if err := json.Unmarshal(h.backend.last().Body, &fields); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if fields["user"] != "u1" || fields["completed"] != false {
		t.Errorf("request fields = %v", fields)
	}

	if *invalidations != 1 {
		t.Errorf("invalidations = %d, want exactly 1", *invalidations)
	}
	if vm.Editor.IsOpen() {
		t.Error("editor should close on success")
	}
	if last := h.recorder.Last(); last.Kind != notify.KindSuccess || last.Title != "Todo Created" {
		t.Errorf("notification = %+v", last)
	}
}

func TestPrivateCreateFailureLeavesEditorOpen(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		jsonOK(w, `{"code":400,"message":"Failed to create record."}`)
	})
	vm := NewPrivateTodos(h.gw, h.cache, h.session, h.recorder, h.logger)
	vm.Editor.Open(nil)
	invalidations := h.invalidationCounter(cache.PrivateTodosKey("u1"))

	_, err := vm.Create(t.Context(), Input{Title: ""})
	if err == nil {
		t.Fatal("expected gateway failure")
	}
	if !vm.Editor.IsOpen() {
		t.Error("editor must stay open after a failed create")
	}
	if *invalidations != 0 {
		t.Error("failed mutation must not invalidate the cache")
	}
	if last := h.recorder.Last(); last.Kind != notify.KindError || !strings.Contains(last.Description, "Failed to create record.") {
		t.Errorf("notification = %+v, want backend message verbatim", last)
	}
}

func TestPrivateUpdateAppliesPatch(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{"id":"r1","title":"New title","completed":true,"user":"u1"}`)
	})
	vm := NewPrivateTodos(h.gw, h.cache, h.session, h.recorder, h.logger)
	todo := model.PrivateTodo{ID: "r1", Title: "Old", Completed: false, User: "u1"}

	if _, err := vm.Update(t.Context(), todo, Patch{Title: strPtr("New title"), Completed: boolPtr(true)}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	var fields map[string]any
	_ = json.Unmarshal(h.backend.last().Body, &fields)
	if fields["title"] != "New title" || fields["completed"] != true {
		t.Errorf("patched fields = %v", fields)
	}
	if h.backend.last().Method != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", h.backend.last().Method)
	}
}

func TestPrivateToggleFlipsCompletion(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{"id":"r1","title":"Buy milk","completed":true,"user":"u1"}`)
	})
	vm := NewPrivateTodos(h.gw, h.cache, h.session, h.recorder, h.logger)
	todo := model.PrivateTodo{ID: "r1", Title: "Buy milk", Completed: false, User: "u1"}

	updated, err := vm.ToggleComplete(t.Context(), todo)
	if err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}
	if !updated.Completed {
		t.Error("toggle should flip completed to true")
	}
	var fields map[string]any
	_ = json.Unmarshal(h.backend.last().Body, &fields)
	if fields["completed"] != true {
		t.Errorf("toggle sent completed = %v, want true", fields["completed"])
	}
}

func TestPrivateDeleteInvalidatesOnce(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	vm := NewPrivateTodos(h.gw, h.cache, h.session, h.recorder, h.logger)
	invalidations := h.invalidationCounter(cache.PrivateTodosKey("u1"))

	if err := vm.Delete(t.Context(), model.PrivateTodo{ID: "r1", User: "u1"}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if *invalidations != 1 {
		t.Errorf("invalidations = %d, want exactly 1", *invalidations)
	}
}
