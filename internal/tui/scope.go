package tui

import (
	"context"
	"errors"
	"time"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/realtime"
	"github.com/idilsaglam/tudu/internal/todos"
)

// errRowGone surfaces when an operation targets a record that vanished
// between the last load and the keypress.
var errRowGone = errors.New("that todo is no longer listed; refresh and retry")

// todoRow is one rendered line, whatever the scope. The id carries the
// record identity so operations survive list filtering and reordering.
type todoRow struct {
	id     string
	title  string
	byline string
	done   bool
}

// todoScope adapts one of the three todo view-models to the shared
// list page. Operations take the record id from the row, never a
// position: the visible list may be filtered.
type todoScope struct {
	name   string
	load   func(ctx context.Context) ([]todoRow, error)
	add    func(ctx context.Context, title string) error
	rename func(ctx context.Context, id, title string) error
	toggle func(ctx context.Context, id string) error
	remove func(ctx context.Context, id string) error

	// onInvalidate registers a trigger on the scope's cache key so the
	// page re-fetches whenever the key is invalidated.
	onInvalidate func(fn func()) (remove func())

	bridge  *realtime.Bridge // live change feed; nil for the private scope
	back    page
	extras  map[string]navigateMsg // extra key bindings
	timeout time.Duration
}

func privateScope(deps Deps) *todoScope {
	vm := todos.NewPrivateTodos(deps.Gateway, deps.Cache, deps.Session, deps.toasts, deps.Logger)
	var items []model.PrivateTodo
	byID := func(id string) (model.PrivateTodo, error) {
		for _, t := range items {
			if t.ID == id {
				return t, nil
			}
		}
		return model.PrivateTodo{}, errRowGone
	}
	return &todoScope{
		name:    "Private Todos",
		back:    pageDashboard,
		timeout: deps.Config.RequestTimeout(),
		onInvalidate: func(fn func()) func() {
			return deps.Cache.OnInvalidate(cache.PrivateTodosKey(deps.Session.UserID()), func(string) { fn() })
		},
		load: func(ctx context.Context) ([]todoRow, error) {
			var err error
			items, err = vm.Fetch(ctx)
			if err != nil {
				return nil, err
			}
			rows := make([]todoRow, 0, len(items))
			for _, t := range items {
				rows = append(rows, todoRow{id: t.ID, title: t.Title, done: t.Completed})
			}
			return rows, nil
		},
		add: func(ctx context.Context, title string) error {
			_, err := vm.Create(ctx, todos.Input{Title: title})
			return err
		},
		rename: func(ctx context.Context, id, title string) error {
			t, err := byID(id)
			if err != nil {
				return err
			}
			_, err = vm.Update(ctx, t, todos.Patch{Title: &title})
			return err
		},
		toggle: func(ctx context.Context, id string) error {
			t, err := byID(id)
			if err != nil {
				return err
			}
			_, err = vm.ToggleComplete(ctx, t)
			return err
		},
		remove: func(ctx context.Context, id string) error {
			t, err := byID(id)
			if err != nil {
				return err
			}
			return vm.Delete(ctx, t)
		},
	}
}

func publicScope(deps Deps) *todoScope {
	vm := todos.NewPublicTodos(deps.Gateway, deps.Cache, deps.Session, deps.toasts, deps.Logger)
	var items []model.PublicTodo
	byID := func(id string) (model.PublicTodo, error) {
		for _, t := range items {
			if t.ID == id {
				return t, nil
			}
		}
		return model.PublicTodo{}, errRowGone
	}
	return &todoScope{
		name:    "Public Todos",
		back:    pageDashboard,
		timeout: deps.Config.RequestTimeout(),
		bridge:  realtime.NewPublicTodos(deps.Gateway, deps.Cache, deps.Session, deps.toasts, deps.Logger),
		onInvalidate: func(fn func()) func() {
			return deps.Cache.OnInvalidate(cache.PublicTodosKey(), func(string) { fn() })
		},
		load: func(ctx context.Context) ([]todoRow, error) {
			var err error
			items, err = vm.Fetch(ctx)
			if err != nil {
				return nil, err
			}
			rows := make([]todoRow, 0, len(items))
			for _, t := range items {
				var author *model.User
				if t.Expand != nil {
					author = t.Expand.Author
				}
				rows = append(rows, todoRow{id: t.ID, title: t.Title, byline: authorLabel(author, t.Author), done: t.Completed})
			}
			return rows, nil
		},
		add: func(ctx context.Context, title string) error {
			_, err := vm.Create(ctx, todos.Input{Title: title})
			return err
		},
		rename: func(ctx context.Context, id, title string) error {
			t, err := byID(id)
			if err != nil {
				return err
			}
			_, err = vm.Update(ctx, t, todos.Patch{Title: &title})
			return err
		},
		toggle: func(ctx context.Context, id string) error {
			t, err := byID(id)
			if err != nil {
				return err
			}
			_, err = vm.ToggleComplete(ctx, t)
			return err
		},
		remove: func(ctx context.Context, id string) error {
			t, err := byID(id)
			if err != nil {
				return err
			}
			return vm.Delete(ctx, t)
		},
	}
}

func groupScope(deps Deps, group model.Group) *todoScope {
	vm := todos.NewGroupTodos(deps.Gateway, deps.Cache, deps.Session, deps.toasts, deps.Logger, group.ID)
	var items []model.GroupTodo
	byID := func(id string) (model.GroupTodo, error) {
		for _, t := range items {
			if t.ID == id {
				return t, nil
			}
		}
		return model.GroupTodo{}, errRowGone
	}
	return &todoScope{
		name:    group.Name,
		back:    pageGroups,
		timeout: deps.Config.RequestTimeout(),
		bridge:  realtime.NewGroupTodos(deps.Gateway, deps.Cache, deps.Session, deps.toasts, deps.Logger, group.ID, group.Name),
		onInvalidate: func(fn func()) func() {
			return deps.Cache.OnInvalidate(cache.GroupTodosKey(group.ID), func(string) { fn() })
		},
		extras: map[string]navigateMsg{
			"m": {to: pageMembers, group: group},
		},
		load: func(ctx context.Context) ([]todoRow, error) {
			var err error
			items, err = vm.Fetch(ctx)
			if err != nil {
				return nil, err
			}
			rows := make([]todoRow, 0, len(items))
			for _, t := range items {
				var author *model.User
				if t.Expand != nil {
					author = t.Expand.Author
				}
				rows = append(rows, todoRow{id: t.ID, title: t.Title, byline: authorLabel(author, t.Author), done: t.Completed})
			}
			return rows, nil
		},
		add: func(ctx context.Context, title string) error {
			_, err := vm.Create(ctx, todos.Input{Title: title})
			return err
		},
		rename: func(ctx context.Context, id, title string) error {
			t, err := byID(id)
			if err != nil {
				return err
			}
			_, err = vm.Update(ctx, t, todos.Patch{Title: &title})
			return err
		},
		toggle: func(ctx context.Context, id string) error {
			t, err := byID(id)
			if err != nil {
				return err
			}
			_, err = vm.ToggleComplete(ctx, t)
			return err
		},
		remove: func(ctx context.Context, id string) error {
			t, err := byID(id)
			if err != nil {
				return err
			}
			return vm.Delete(ctx, t)
		},
	}
}

func authorLabel(author *model.User, rawID string) string {
	if author != nil {
		if author.Name != "" {
			return "by " + author.Name
		}
		return "by " + author.Email
	}
	if rawID == "" {
		return ""
	}
	return "by " + rawID
}
