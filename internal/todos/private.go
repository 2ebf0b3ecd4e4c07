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

// PrivateTodos is the view-model for the caller's own todo list. Every
// record is implicitly scoped to the authenticated user, so mutations
// need no ownership pre-check.
type PrivateTodos struct {
	gw      *gateway.Client
	cache   *cache.Cache
	session *session.Session
	notify  notify.Notifier
	log     *log.Logger

	Editor Editor[model.PrivateTodo]
}

// NewPrivateTodos wires the private-scope view-model.
func NewPrivateTodos(gw *gateway.Client, c *cache.Cache, sess *session.Session, n notify.Notifier, logger *log.Logger) *PrivateTodos {
	return &PrivateTodos{gw: gw, cache: c, session: sess, notify: n, log: logger}
}

// ScopeKey returns the cache key for the current user, false when no one
// is logged in.
func (p *PrivateTodos) ScopeKey() (string, bool) {
	uid := p.session.UserID()
	if uid == "" {
		return "", false
	}
	return cache.PrivateTodosKey(uid), true
}

// Fetch lists the user's todos newest first. Without an authenticated
// user it quietly returns an empty list.
func (p *PrivateTodos) Fetch(ctx context.Context) ([]model.PrivateTodo, error) {
	uid := p.session.UserID()
	if uid == "" {
		return nil, nil
	}
	return cache.Fetch(ctx, p.cache, cache.PrivateTodosKey(uid), func(ctx context.Context) ([]model.PrivateTodo, error) {
		return gateway.ListRecords[model.PrivateTodo](ctx, p.gw, model.CollectionPrivateTodos, gateway.Query{
			Filter: gateway.Eq("user", uid),
			Sort:   "-created",
		})
	})
}

// Create adds a todo owned by the current user, completed=false.
func (p *PrivateTodos) Create(ctx context.Context, in Input) (model.PrivateTodo, error) {
	uid := p.session.UserID()
	if uid == "" {
		p.notify.Error("Error Creating Todo", "User not authenticated.")
		return model.PrivateTodo{}, ErrNotAuthenticated
	}

	var created model.PrivateTodo
	err := p.gw.Create(ctx, model.CollectionPrivateTodos, map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"completed":   false,
		"user":        uid,
	}, &created)
	if err != nil {
		p.notify.Error("Error Creating Todo", err.Error())
		return model.PrivateTodo{}, err
	}

	p.cache.Invalidate(cache.PrivateTodosKey(uid))
	p.Editor.Close()
	p.notify.Success("Todo Created", "Your private todo has been added.")
	return created, nil
}

// Update patches a todo. Private records are already scoped to the
// caller, so there is no local ownership check.
func (p *PrivateTodos) Update(ctx context.Context, todo model.PrivateTodo, patch Patch) (model.PrivateTodo, error) {
	title, description, completed := patch.apply(todo.Title, todo.Description, todo.Completed)

	var updated model.PrivateTodo
	err := p.gw.Update(ctx, model.CollectionPrivateTodos, todo.ID, map[string]any{
		"title":       title,
		"description": description,
		"completed":   completed,
	}, &updated)
	if err != nil {
		p.notify.Error("Error Updating Todo", err.Error())
		return model.PrivateTodo{}, err
	}

	p.invalidate()
	p.Editor.Close()
	p.notify.Success("Todo Updated", "Your private todo has been updated.")
	return updated, nil
}

// Delete removes a todo.
func (p *PrivateTodos) Delete(ctx context.Context, todo model.PrivateTodo) error {
	if err := p.gw.Delete(ctx, model.CollectionPrivateTodos, todo.ID); err != nil {
		p.notify.Error("Error Deleting Todo", err.Error())
		return err
	}
	p.invalidate()
	p.notify.Success("Todo Deleted", "Your private todo has been removed.")
	return nil
}

// ToggleComplete flips completion through the full update path.
func (p *PrivateTodos) ToggleComplete(ctx context.Context, todo model.PrivateTodo) (model.PrivateTodo, error) {
	completed := !todo.Completed
	return p.Update(ctx, todo, Patch{Completed: &completed})
}

func (p *PrivateTodos) invalidate() {
	if key, ok := p.ScopeKey(); ok {
		p.cache.Invalidate(key)
	}
}
