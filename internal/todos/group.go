package todos

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/notify"
	"github.com/idilsaglam/tudu/internal/session"
)

// GroupTodos is the view-model for one group's shared list. The scope
// key needs both an authenticated user and a group id; mutations carry
// the same author-only guard as the public scope.
type GroupTodos struct {
	gw      *gateway.Client
	cache   *cache.Cache
	session *session.Session
	notify  notify.Notifier
	log     *log.Logger

	groupID string

	Editor Editor[model.GroupTodo]
}

// NewGroupTodos wires the view-model for one group.
func NewGroupTodos(gw *gateway.Client, c *cache.Cache, sess *session.Session, n notify.Notifier, logger *log.Logger, groupID string) *GroupTodos {
	return &GroupTodos{gw: gw, cache: c, session: sess, notify: n, log: logger, groupID: groupID}
}

// GroupID returns the group this view-model is bound to.
func (g *GroupTodos) GroupID() string { return g.groupID }

// ScopeKey needs the group id and an authenticated user.
func (g *GroupTodos) ScopeKey() (string, bool) {
	if g.groupID == "" || g.session.UserID() == "" {
		return "", false
	}
	return cache.GroupTodosKey(g.groupID), true
}

// Fetch lists the group's todos newest first, authors expanded. An
// absent scope key quietly yields an empty list.
func (g *GroupTodos) Fetch(ctx context.Context) ([]model.GroupTodo, error) {
	key, ok := g.ScopeKey()
	if !ok {
		return nil, nil
	}
	return cache.Fetch(ctx, g.cache, key, func(ctx context.Context) ([]model.GroupTodo, error) {
		return gateway.ListRecords[model.GroupTodo](ctx, g.gw, model.CollectionGroupTodos, gateway.Query{
			Filter: gateway.Eq("group", g.groupID),
			Sort:   "-created",
			Expand: "author",
		})
	})
}

// Create adds a todo to the group, authored by the current user.
func (g *GroupTodos) Create(ctx context.Context, in Input) (model.GroupTodo, error) {
	uid := g.session.UserID()
	if uid == "" || g.groupID == "" {
		g.notify.Error("Error Creating Group Todo", "User not authenticated or Group ID missing.")
		if uid == "" {
			return model.GroupTodo{}, ErrNotAuthenticated
		}
		return model.GroupTodo{}, ErrMissingGroup
	}

	var created model.GroupTodo
	err := g.gw.Create(ctx, model.CollectionGroupTodos, map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"completed":   false,
		"group":       g.groupID,
		"author":      uid,
	}, &created)
	if err != nil {
		g.notify.Error("Error Creating Group Todo", err.Error())
		return model.GroupTodo{}, err
	}

	g.cache.Invalidate(cache.GroupTodosKey(g.groupID))
	g.Editor.Close()
	g.notify.Success("Group Todo Created", "Your group todo has been added.")
	return created, nil
}

// Update patches a group todo after the local author check.
func (g *GroupTodos) Update(ctx context.Context, todo model.GroupTodo, patch Patch) (model.GroupTodo, error) {
	if todo.AuthorID() != g.session.UserID() {
		g.notify.Error("Error Updating Group Todo", "You are not authorized to edit this todo.")
		return model.GroupTodo{}, ErrNotOwner
	}
	title, description, completed := patch.apply(todo.Title, todo.Description, todo.Completed)

	var updated model.GroupTodo
	err := g.gw.Update(ctx, model.CollectionGroupTodos, todo.ID, map[string]any{
		"title":       title,
		"description": description,
		"completed":   completed,
	}, &updated)
	if err != nil {
		g.notify.Error("Error Updating Group Todo", err.Error())
		return model.GroupTodo{}, err
	}

	g.cache.Invalidate(cache.GroupTodosKey(g.groupID))
	g.Editor.Close()
	g.notify.Success("Group Todo Updated", "The group todo has been updated.")
	return updated, nil
}

// Delete removes a group todo after the local author check.
func (g *GroupTodos) Delete(ctx context.Context, todo model.GroupTodo) error {
	if todo.AuthorID() != g.session.UserID() {
		g.notify.Error("Error Deleting Group Todo", "You are not authorized to delete this todo.")
		return ErrNotOwner
	}
	if err := g.gw.Delete(ctx, model.CollectionGroupTodos, todo.ID); err != nil {
		g.notify.Error("Error Deleting Group Todo", err.Error())
		return err
	}
	g.cache.Invalidate(cache.GroupTodosKey(g.groupID))
	g.notify.Success("Group Todo Deleted", "The group todo has been removed.")
	return nil
}

// ToggleComplete flips completion through the full update path.
func (g *GroupTodos) ToggleComplete(ctx context.Context, todo model.GroupTodo) (model.GroupTodo, error) {
	completed := !todo.Completed
	return g.Update(ctx, todo, Patch{Completed: &completed})
}
