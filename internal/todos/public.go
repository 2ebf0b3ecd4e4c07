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

// PublicTodos is the view-model for the shared public list. Everyone
// sees every record; only the author may edit or delete, checked locally
// before the gateway sees the request. Updates stamp last_edited_at.
type PublicTodos struct {
	gw      *gateway.Client
	cache   *cache.Cache
	session *session.Session
	notify  notify.Notifier
	log     *log.Logger

	Editor Editor[model.PublicTodo]
}

// NewPublicTodos wires the public-scope view-model.
func NewPublicTodos(gw *gateway.Client, c *cache.Cache, sess *session.Session, n notify.Notifier, logger *log.Logger) *PublicTodos {
	return &PublicTodos{gw: gw, cache: c, session: sess, notify: n, log: logger}
}

// ScopeKey returns the public list's cache key; present only while a
// user is authenticated (the page itself is behind the auth gate).
func (p *PublicTodos) ScopeKey() (string, bool) {
	if p.session.UserID() == "" {
		return "", false
	}
	return cache.PublicTodosKey(), true
}

// Fetch lists all public todos newest first, authors expanded.
func (p *PublicTodos) Fetch(ctx context.Context) ([]model.PublicTodo, error) {
	if p.session.UserID() == "" {
		return nil, nil
	}
	return cache.Fetch(ctx, p.cache, cache.PublicTodosKey(), func(ctx context.Context) ([]model.PublicTodo, error) {
		return gateway.ListRecords[model.PublicTodo](ctx, p.gw, model.CollectionPublicTodos, gateway.Query{
			Sort:   "-created",
			Expand: "author",
		})
	})
}

// Create adds a public todo authored by the current user.
func (p *PublicTodos) Create(ctx context.Context, in Input) (model.PublicTodo, error) {
	uid := p.session.UserID()
	if uid == "" {
		p.notify.Error("Error Creating Public Todo", "User not authenticated.")
		return model.PublicTodo{}, ErrNotAuthenticated
	}

	var created model.PublicTodo
	err := p.gw.Create(ctx, model.CollectionPublicTodos, map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"completed":   false,
		"author":      uid,
	}, &created)
	if err != nil {
		p.notify.Error("Error Creating Public Todo", err.Error())
		return model.PublicTodo{}, err
	}

	p.cache.Invalidate(cache.PublicTodosKey())
	p.Editor.Close()
	p.notify.Success("Public Todo Created", "Your public todo has been added.")
	return created, nil
}

// Update patches a public todo after the local ownership check, stamping
// last_edited_at on every update, completion toggles included.
func (p *PublicTodos) Update(ctx context.Context, todo model.PublicTodo, patch Patch) (model.PublicTodo, error) {
	if todo.AuthorID() != p.session.UserID() {
		p.notify.Error("Error Updating Public Todo", "You are not authorized to edit this todo.")
		return model.PublicTodo{}, ErrNotOwner
	}
	title, description, completed := patch.apply(todo.Title, todo.Description, todo.Completed)

	var updated model.PublicTodo
	err := p.gw.Update(ctx, model.CollectionPublicTodos, todo.ID, map[string]any{
		"title":          title,
		"description":    description,
		"completed":      completed,
		"last_edited_at": string(stampNow()),
	}, &updated)
	if err != nil {
		p.notify.Error("Error Updating Public Todo", err.Error())
		return model.PublicTodo{}, err
	}

	p.cache.Invalidate(cache.PublicTodosKey())
	p.Editor.Close()
	p.notify.Success("Public Todo Updated", "The public todo has been updated.")
	return updated, nil
}

// Delete removes a public todo after the local ownership check.
func (p *PublicTodos) Delete(ctx context.Context, todo model.PublicTodo) error {
	if todo.AuthorID() != p.session.UserID() {
		p.notify.Error("Error Deleting Public Todo", "You are not authorized to delete this todo.")
		return ErrNotOwner
	}
	if err := p.gw.Delete(ctx, model.CollectionPublicTodos, todo.ID); err != nil {
		p.notify.Error("Error Deleting Public Todo", err.Error())
		return err
	}
	p.cache.Invalidate(cache.PublicTodosKey())
	p.notify.Success("Public Todo Deleted", "The public todo has been removed.")
	return nil
}

// ToggleComplete flips completion through the full update path, so the
// ownership guard and the last_edited_at stamp both apply.
func (p *PublicTodos) ToggleComplete(ctx context.Context, todo model.PublicTodo) (model.PublicTodo, error) {
	completed := !todo.Completed
	return p.Update(ctx, todo, Patch{Completed: &completed})
}
