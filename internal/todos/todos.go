// Package todos holds the three todo view-models (private, public,
// group). Each wraps one backend collection with fetch/create/update/
// delete, ownership guards for the shared scopes, scope-keyed caching,
// and user notifications. The guards are a UX courtesy only: the backend
// re-checks every mutation against its own rules.
package todos

import (
	"errors"

	"github.com/idilsaglam/tudu/internal/model"
)

// Local guard rejections, raised before any gateway call.
var (
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrNotOwner         = errors.New("not the owner of this todo")
	ErrMissingGroup     = errors.New("group id missing")
)

// Input are the form fields for creating a todo.
type Input struct {
	Title       string
	Description string
}

// Patch is a partial update. Nil fields keep the record's value.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// apply overlays the patch onto existing field values.
func (p Patch) apply(title, description string, completed bool) (string, string, bool) {
	if p.Title != nil {
		title = *p.Title
	}
	if p.Description != nil {
		description = *p.Description
	}
	if p.Completed != nil {
		completed = *p.Completed
	}
	return title, description, completed
}

// Editor tracks the open edit form for a list view. Mutation success
// closes it; failure leaves it open so the user can fix and retry.
type Editor[T any] struct {
	open    bool
	current *T
}

// Open shows the form, optionally pre-filled with an existing record.
func (e *Editor[T]) Open(t *T) {
	e.current = t
	e.open = true
}

// Close hides the form and clears the record being edited.
func (e *Editor[T]) Close() {
	e.current = nil
	e.open = false
}

// IsOpen reports whether the form is showing.
func (e *Editor[T]) IsOpen() bool { return e.open }

// Current returns the record being edited, nil for a fresh create.
func (e *Editor[T]) Current() *T { return e.current }

// stampNow is model.NowDateTime, indirected so tests can freeze time.
var stampNow = model.NowDateTime
