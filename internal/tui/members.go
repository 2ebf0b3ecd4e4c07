package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tudu/internal/groups"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/ui"
)

type membersLoadedMsg struct {
	members []model.GroupMember
	err     error
}

type candidatesLoadedMsg struct {
	users []model.User
	err   error
}

type memberOpDoneMsg struct{ err error }

// membersPage manages one group's membership: list, add from the
// remaining users, remove.
type membersPage struct {
	deps  Deps
	mgr   *groups.Manager
	group model.Group

	members []model.GroupMember
	cursor  int
	loading bool
	errText string

	picking    bool
	candidates []model.User
	pickCursor int
}

func newMembersPage(deps Deps, group model.Group) *membersPage {
	return &membersPage{
		deps:    deps,
		mgr:     groups.NewManager(deps.Gateway, deps.Cache, deps.Session, deps.toasts, deps.Logger),
		group:   group,
		loading: true,
	}
}

func (p *membersPage) loadCmd() tea.Cmd {
	deps, mgr, gid := p.deps, p.mgr, p.group.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deps.Config.RequestTimeout())
		defer cancel()
		members, err := mgr.Members(ctx, gid)
		return membersLoadedMsg{members: members, err: err}
	}
}

func (p *membersPage) candidatesCmd() tea.Cmd {
	deps, mgr, gid := p.deps, p.mgr, p.group.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deps.Config.RequestTimeout())
		defer cancel()
		users, err := mgr.AvailableUsers(ctx, gid)
		return candidatesLoadedMsg{users: users, err: err}
	}
}

func (p *membersPage) opCmd(op func(ctx context.Context) error) tea.Cmd {
	deps := p.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deps.Config.RequestTimeout())
		defer cancel()
		return memberOpDoneMsg{err: op(ctx)}
	}
}

func (p *membersPage) Init() tea.Cmd { return p.loadCmd() }

func (p *membersPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case membersLoadedMsg:
		p.loading = false
		if msg.err != nil {
			p.errText = msg.err.Error()
			return p, nil
		}
		p.errText = ""
		p.members = msg.members
		if p.cursor >= len(p.members) {
			p.cursor = len(p.members) - 1
		}
		if p.cursor < 0 {
			p.cursor = 0
		}
		return p, nil

	case candidatesLoadedMsg:
		if msg.err != nil {
			p.errText = msg.err.Error()
			return p, nil
		}
		p.candidates = msg.users
		p.pickCursor = 0
		p.picking = true
		return p, nil

	case memberOpDoneMsg:
		if msg.err != nil {
			return p, nil
		}
		return p, p.loadCmd()

	case tea.KeyMsg:
		if p.picking {
			return p.updatePicker(msg)
		}
		switch msg.String() {
		case "q", "esc":
			return p, navigateGroup(pageGroupDetail, p.group)
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(p.members)-1 {
				p.cursor++
			}
		case "r":
			p.loading = true
			return p, p.loadCmd()
		case "a":
			return p, p.candidatesCmd()
		case "d":
			if len(p.members) > 0 {
				m := p.members[p.cursor]
				mgr, gid := p.mgr, p.group.ID
				return p, p.opCmd(func(ctx context.Context) error {
					return mgr.RemoveMember(ctx, m.ID, gid)
				})
			}
		}
	}
	return p, nil
}

func (p *membersPage) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		p.picking = false
		return p, nil
	case "up", "k":
		if p.pickCursor > 0 {
			p.pickCursor--
		}
	case "down", "j":
		if p.pickCursor < len(p.candidates)-1 {
			p.pickCursor++
		}
	case "enter":
		if len(p.candidates) == 0 {
			p.picking = false
			return p, nil
		}
		uid := p.candidates[p.pickCursor].ID
		p.picking = false
		mgr, gid := p.mgr, p.group.ID
		return p, p.opCmd(func(ctx context.Context) error {
			return mgr.AddMember(ctx, gid, uid)
		})
	}
	return p, nil
}

func (p *membersPage) View() string {
	lines := []string{ui.TitleStyle.Render(p.group.Name + " members"), ""}

	switch {
	case p.loading:
		lines = append(lines, ui.MutedStyle.Render("loading..."))
	case p.errText != "":
		lines = append(lines, ui.ErrorStyle.Render(p.errText))
	case len(p.members) == 0:
		lines = append(lines, ui.MutedStyle.Render("no members"))
	}
	for i, m := range p.members {
		label := m.UserID()
		if m.Expand != nil && m.Expand.User != nil {
			label = m.Expand.User.Email
			if m.Expand.User.Name != "" {
				label = m.Expand.User.Name + " " + ui.MutedStyle.Render("<"+m.Expand.User.Email+">")
			}
		}
		if m.UserID() == p.group.Admin {
			label += " " + ui.AccentStyle.Render("(admin)")
		}
		prefix := "  "
		if i == p.cursor && !p.picking {
			prefix = ui.SelectedStyle.Render("> ")
		}
		lines = append(lines, prefix+label)
	}

	if p.picking {
		lines = append(lines, "", ui.TitleStyle.Render("Add member"))
		if len(p.candidates) == 0 {
			lines = append(lines, ui.MutedStyle.Render("everyone is already in this group"))
		}
		for i, u := range p.candidates {
			label := u.Email
			if u.Name != "" {
				label = u.Name + " " + ui.MutedStyle.Render("<"+u.Email+">")
			}
			prefix := "  "
			if i == p.pickCursor {
				prefix = ui.SelectedStyle.Render("> ")
			}
			lines = append(lines, prefix+label)
		}
	}
	lines = append(lines, "", ui.HelpStyle.Render("a add • d remove • r refresh • esc back"))
	return ui.PanelBox(lines)
}
