package todos

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/model"
)

func TestGroupFetchNeedsGroupAndUser(t *testing.T) {
	tests := []struct {
		name    string
		groupID string
		login   bool
	}{
		{"no group id", "", true},
		{"no user", "g1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			if !tt.login {
				h.logout(t)
			}
			vm := NewGroupTodos(h.gw, h.cache, h.session, h.recorder, h.logger, tt.groupID)

			todos, err := vm.Fetch(t.Context())
			if err != nil || len(todos) != 0 {
				t.Fatalf("Fetch = (%v, %v), want empty and silent", todos, err)
			}
			if h.backend.count() != 0 {
				t.Error("no gateway call expected without a full scope key")
			}
		})
	}
}

func TestGroupFetchScopedByGroup(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, listBody(`[{"id":"r1","title":"Team thing","author":"u2","group":"g1"}]`))
	})
	vm := NewGroupTodos(h.gw, h.cache, h.session, h.recorder, h.logger, "g1")

	todos, err := vm.Fetch(t.Context())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(todos) != 1 || todos[0].Group != "g1" {
		t.Fatalf("unexpected todos: %+v", todos)
	}
	req := h.backend.last()
	if req.Query["filter"] != `group = "g1"` {
		t.Errorf("filter = %q, want group scope", req.Query["filter"])
	}
	if req.Query["expand"] != "author" {
		t.Errorf("expand = %q, want author", req.Query["expand"])
	}
}

func TestGroupCreateStampsGroupAndAuthor(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{"id":"r7","title":"Team thing","completed":false,"author":"u1","group":"g1"}`)
	})
	vm := NewGroupTodos(h.gw, h.cache, h.session, h.recorder, h.logger, "g1")
	invalidations := h.invalidationCounter(cache.GroupTodosKey("g1"))

	created, err := vm.Create(t.Context(), Input{Title: "Team thing"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Group != "g1" || created.Author != "u1" {
		t.Errorf("created = %+v", created)
	}

	var fields map[string]any
	_ = json.Unmarshal(h.backend.last().Body, &fields)
	if fields["group"] != "g1" || fields["author"] != "u1" || fields["completed"] != false {
		t.Errorf("request fields = %v", fields)
	}
	if *invalidations != 1 {
		t.Errorf("invalidations = %d, want exactly 1", *invalidations)
	}
}

func TestGroupCreateWithoutGroupID(t *testing.T) {
	h := newHarness(t, nil)
	vm := NewGroupTodos(h.gw, h.cache, h.session, h.recorder, h.logger, "")

	_, err := vm.Create(t.Context(), Input{Title: "x"})
	if !errors.Is(err, ErrMissingGroup) {
		t.Fatalf("error = %v, want ErrMissingGroup", err)
	}
	if h.backend.count() != 0 {
		t.Error("create without group id must not reach the gateway")
	}
	if last := h.recorder.Last(); last.Description != "User not authenticated or Group ID missing." {
		t.Errorf("notification = %+v", last)
	}
}

func TestGroupUpdateRejectsNonAuthorLocally(t *testing.T) {
	h := newHarness(t, nil)
	vm := NewGroupTodos(h.gw, h.cache, h.session, h.recorder, h.logger, "g1")

	foreign := model.GroupTodo{
		ID: "r1", Title: "Not mine", Author: "u2", Group: "g1",
		Expand: &model.GroupTodoExpand{Author: &model.User{ID: "u2"}},
	}
	if _, err := vm.Update(t.Context(), foreign, Patch{Title: strPtr("nope")}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("error = %v, want ErrNotOwner", err)
	}
	if err := vm.Delete(t.Context(), foreign); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("delete error = %v, want ErrNotOwner", err)
	}
	if h.backend.count() != 0 {
		t.Error("author guard must fire before any gateway call")
	}
}

func TestGroupUpdateByAuthorSucceeds(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{"id":"r1","title":"Done thing","completed":true,"author":"u1","group":"g1"}`)
	})
	vm := NewGroupTodos(h.gw, h.cache, h.session, h.recorder, h.logger, "g1")
	invalidations := h.invalidationCounter(cache.GroupTodosKey("g1"))

	mine := model.GroupTodo{ID: "r1", Title: "Thing", Author: "u1", Group: "g1"}
	updated, err := vm.ToggleComplete(t.Context(), mine)
	if err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}
	if !updated.Completed {
		t.Error("toggle should flip completed")
	}
	if *invalidations != 1 {
		t.Errorf("invalidations = %d, want exactly 1", *invalidations)
	}
}
