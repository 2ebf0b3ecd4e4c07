// Package model defines the typed records for every backend collection.
// The backend stores loose JSON; everything entering the client is decoded
// into these structs after passing schema validation (see schema.go).
package model

import (
	"strings"
	"time"
)

// Collection names as the backend knows them.
const (
	CollectionPrivateTodos = "private_todos"
	CollectionPublicTodos  = "public_todos"
	CollectionGroupTodos   = "group_todos"
	CollectionGroups       = "groups"
	CollectionGroupMembers = "group_members"
	CollectionUsers        = "users"
)

// DateTime is a server-assigned timestamp, kept in its wire form.
// The backend emits either RFC 3339 or "2006-01-02 15:04:05.000Z".
type DateTime string

// Time parses the timestamp. Zero time on failure or empty value.
func (d DateTime) Time() time.Time {
	s := string(d)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05.000Z", s); err == nil {
		return t
	}
	return time.Time{}
}

// IsZero reports whether the timestamp is absent.
func (d DateTime) IsZero() bool { return strings.TrimSpace(string(d)) == "" }

// Before compares two timestamps; absent values sort first.
func (d DateTime) Before(other DateTime) bool {
	return d.Time().Before(other.Time())
}

// NowDateTime stamps the current moment in the format the backend accepts.
func NowDateTime() DateTime {
	return DateTime(time.Now().UTC().Format(time.RFC3339))
}

// User is an account record. Read-only for this client except for the
// identity of the authenticated session.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name,omitempty"`
	Verified bool     `json:"verified,omitempty"`
	Created  DateTime `json:"created,omitempty"`
	Updated  DateTime `json:"updated,omitempty"`
}

// PrivateTodo is visible only to its owning user. The `user` relation is
// set at creation and never changed.
type PrivateTodo struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Completed   bool     `json:"completed"`
	User        string   `json:"user"`
	Created     DateTime `json:"created,omitempty"`
	Updated     DateTime `json:"updated,omitempty"`
}

// PublicTodoExpand carries relations the gateway expanded inline.
type PublicTodoExpand struct {
	Author *User `json:"author,omitempty"`
}

// PublicTodo is readable by everyone; only the author may mutate it.
// LastEditedAt is stamped client-side on every update.
type PublicTodo struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Completed    bool              `json:"completed"`
	Author       string            `json:"author"`
	LastEditedAt DateTime          `json:"last_edited_at,omitempty"`
	Created      DateTime          `json:"created,omitempty"`
	Updated      DateTime          `json:"updated,omitempty"`
	Expand       *PublicTodoExpand `json:"expand,omitempty"`
}

// AuthorID prefers the expanded author record over the raw relation id.
func (t PublicTodo) AuthorID() string {
	if t.Expand != nil && t.Expand.Author != nil {
		return t.Expand.Author.ID
	}
	return t.Author
}

// GroupTodoExpand carries relations the gateway expanded inline.
type GroupTodoExpand struct {
	Author *User  `json:"author,omitempty"`
	Group  *Group `json:"group,omitempty"`
}

// GroupTodo belongs to a group; only the author may mutate it.
type GroupTodo struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Completed   bool             `json:"completed"`
	Author      string           `json:"author"`
	Group       string           `json:"group"`
	Created     DateTime         `json:"created,omitempty"`
	Updated     DateTime         `json:"updated,omitempty"`
	Expand      *GroupTodoExpand `json:"expand,omitempty"`
}

// AuthorID prefers the expanded author record over the raw relation id.
func (t GroupTodo) AuthorID() string {
	if t.Expand != nil && t.Expand.Author != nil {
		return t.Expand.Author.ID
	}
	return t.Author
}

// GroupExpand carries relations the gateway expanded inline.
type GroupExpand struct {
	Admin *User `json:"admin,omitempty"`
}

// Group is a shared todo space. Admin is the creator, immutable.
type Group struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Admin   string       `json:"admin"`
	Created DateTime     `json:"created,omitempty"`
	Updated DateTime     `json:"updated,omitempty"`
	Expand  *GroupExpand `json:"expand,omitempty"`
}

// GroupMemberExpand carries relations the gateway expanded inline.
type GroupMemberExpand struct {
	User  *User  `json:"user,omitempty"`
	Group *Group `json:"group,omitempty"`
}

// GroupMember links one user into one group. Uniqueness of the
// (group, user) pair is expected but only the backend can enforce it.
type GroupMember struct {
	ID      string             `json:"id"`
	Group   string             `json:"group"`
	User    string             `json:"user"`
	Created DateTime           `json:"created,omitempty"`
	Updated DateTime           `json:"updated,omitempty"`
	Expand  *GroupMemberExpand `json:"expand,omitempty"`
}

// UserID prefers the expanded user record over the raw relation id.
func (m GroupMember) UserID() string {
	if m.Expand != nil && m.Expand.User != nil {
		return m.Expand.User.ID
	}
	return m.User
}
