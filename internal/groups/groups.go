// Package groups manages group CRUD and membership. A user's group list
// is the union of groups they administer and groups their memberships
// point at; member management works against the cached membership list,
// so its duplicate check is best-effort only (the backend is the
// authority).
package groups

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/notify"
	"github.com/idilsaglam/tudu/internal/session"
)

// Local guard rejections, raised before any gateway call.
var (
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrDuplicateMember  = errors.New("user is already a member of this group")
)

// Manager is the view-model behind the group pages.
type Manager struct {
	gw      *gateway.Client
	cache   *cache.Cache
	session *session.Session
	notify  notify.Notifier
	log     *log.Logger
}

// NewManager wires the group management view-model.
func NewManager(gw *gateway.Client, c *cache.Cache, sess *session.Session, n notify.Notifier, logger *log.Logger) *Manager {
	return &Manager{gw: gw, cache: c, session: sess, notify: n, log: logger}
}

// ListGroups returns the caller's groups: administered ones first, then
// groups joined through membership, deduplicated by id with the first
// occurrence winning. Empty without an authenticated user.
func (m *Manager) ListGroups(ctx context.Context) ([]model.Group, error) {
	uid := m.session.UserID()
	if uid == "" {
		return nil, nil
	}
	return cache.Fetch(ctx, m.cache, cache.GroupsKey(uid), func(ctx context.Context) ([]model.Group, error) {
		memberships, err := gateway.ListRecords[model.GroupMember](ctx, m.gw, model.CollectionGroupMembers, gateway.Query{
			Filter: gateway.Eq("user", uid),
			Expand: "group",
		})
		if err != nil {
			return nil, err
		}
		memberGroupIDs := make([]string, 0, len(memberships))
		for _, mem := range memberships {
			memberGroupIDs = append(memberGroupIDs, mem.Group)
		}

		adminGroups, err := gateway.ListRecords[model.Group](ctx, m.gw, model.CollectionGroups, gateway.Query{
			Filter: gateway.Eq("admin", uid),
			Sort:   "-created",
			Expand: "admin",
		})
		if err != nil {
			return nil, err
		}

		var memberGroups []model.Group
		if len(memberGroupIDs) > 0 {
			memberGroups, err = gateway.ListRecords[model.Group](ctx, m.gw, model.CollectionGroups, gateway.Query{
				Filter: gateway.OrEq("id", memberGroupIDs),
				Sort:   "-created",
				Expand: "admin",
			})
			if err != nil {
				return nil, err
			}
		}

		seen := make(map[string]bool, len(adminGroups)+len(memberGroups))
		all := make([]model.Group, 0, len(adminGroups)+len(memberGroups))
		for _, g := range append(adminGroups, memberGroups...) {
			if seen[g.ID] {
				continue
			}
			seen[g.ID] = true
			all = append(all, g)
		}
		return all, nil
	})
}

// CreateGroup creates a group administered by the caller.
func (m *Manager) CreateGroup(ctx context.Context, name string) (model.Group, error) {
	uid := m.session.UserID()
	if uid == "" {
		m.notify.Error("Error Creating Group", "User not authenticated.")
		return model.Group{}, ErrNotAuthenticated
	}

	var created model.Group
	err := m.gw.Create(ctx, model.CollectionGroups, map[string]any{
		"name":  name,
		"admin": uid,
	}, &created)
	if err != nil {
		m.notify.Error("Error Creating Group", err.Error())
		return model.Group{}, err
	}

	m.cache.Invalidate(cache.GroupsKey(uid))
	m.notify.Success("Group Created", "Your new group has been added.")
	return created, nil
}

// DeleteGroup removes a group. No local pre-check: the backend's rules
// decide who may delete; the UI only shows the action to the admin.
func (m *Manager) DeleteGroup(ctx context.Context, groupID string) error {
	if err := m.gw.Delete(ctx, model.CollectionGroups, groupID); err != nil {
		m.notify.Error("Error Deleting Group", err.Error())
		return err
	}
	if uid := m.session.UserID(); uid != "" {
		m.cache.Invalidate(cache.GroupsKey(uid))
	}
	m.notify.Success("Group Deleted", "The group has been removed.")
	return nil
}

// Members lists a group's memberships, member users expanded.
func (m *Manager) Members(ctx context.Context, groupID string) ([]model.GroupMember, error) {
	if groupID == "" {
		return nil, nil
	}
	return cache.Fetch(ctx, m.cache, cache.GroupMembersKey(groupID), func(ctx context.Context) ([]model.GroupMember, error) {
		return gateway.ListRecords[model.GroupMember](ctx, m.gw, model.CollectionGroupMembers, gateway.Query{
			Filter: gateway.Eq("group", groupID),
			Expand: "user",
		})
	})
}

// AvailableUsers is the derived set offered by the add-member picker:
// every user except the caller, minus current members of the group. The
// difference is recomputed on each call, never cached as its own key.
func (m *Manager) AvailableUsers(ctx context.Context, groupID string) ([]model.User, error) {
	uid := m.session.UserID()
	if uid == "" {
		return nil, nil
	}
	users, err := cache.Fetch(ctx, m.cache, cache.AllUsersKey(), func(ctx context.Context) ([]model.User, error) {
		return gateway.ListRecords[model.User](ctx, m.gw, model.CollectionUsers, gateway.Query{
			Filter: gateway.NotEq("id", uid),
		})
	})
	if err != nil {
		return nil, err
	}
	members, err := m.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(members)+1)
	taken[uid] = true // the caller is never offered, even if the filter missed them
	for _, mem := range members {
		taken[mem.UserID()] = true
	}
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if !taken[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}

// AddMember links a user into a group. The duplicate check consults only
// the cached membership list, so two clients racing can still both pass
// it and create twin rows; the backend accepts what it accepts.
func (m *Manager) AddMember(ctx context.Context, groupID, userID string) error {
	if cached, ok := cache.Peek[[]model.GroupMember](m.cache, cache.GroupMembersKey(groupID)); ok {
		for _, mem := range cached {
			if mem.UserID() == userID {
				m.notify.Error("Error Adding Member", "User is already a member of this group.")
				return ErrDuplicateMember
			}
		}
	}

	err := m.gw.Create(ctx, model.CollectionGroupMembers, map[string]any{
		"group": groupID,
		"user":  userID,
	}, nil)
	if err != nil {
		m.notify.Error("Error Adding Member", err.Error())
		return err
	}

	m.cache.Invalidate(cache.GroupMembersKey(groupID))
	m.notify.Success("Member Added", "User has been added to the group.")
	return nil
}

// RemoveMember deletes a membership row and refreshes the group's
// member list. No ownership pre-check.
func (m *Manager) RemoveMember(ctx context.Context, membershipID, groupID string) error {
	if err := m.gw.Delete(ctx, model.CollectionGroupMembers, membershipID); err != nil {
		m.notify.Error("Error Removing Member", err.Error())
		return err
	}
	m.cache.Invalidate(cache.GroupMembersKey(groupID))
	m.notify.Success("Member Removed", "User has been removed from the group.")
	return nil
}

// Group fetches one group by id, admin expanded, for the detail page
// header.
func (m *Manager) Group(ctx context.Context, groupID string) (model.Group, error) {
	var g model.Group
	if err := m.gw.Get(ctx, model.CollectionGroups, groupID, &g); err != nil {
		return model.Group{}, err
	}
	return g, nil
}
