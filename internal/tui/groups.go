package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tudu/internal/groups"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/ui"
	"github.com/idilsaglam/tudu/internal/validate"
)

type groupsLoadedMsg struct {
	groups []model.Group
	err    error
}

type groupOpDoneMsg struct{ err error }

// groupsPage lists the user's groups; enter opens a group's todos.
type groupsPage struct {
	deps Deps
	mgr  *groups.Manager

	groups  []model.Group
	cursor  int
	loading bool
	errText string

	creating bool
	ti       textinput.Model
	inputErr string
}

func newGroupsPage(deps Deps) *groupsPage {
	p := &groupsPage{
		deps:    deps,
		mgr:     groups.NewManager(deps.Gateway, deps.Cache, deps.Session, deps.toasts, deps.Logger),
		loading: true,
	}
	p.ti = textinput.New()
	p.ti.Prompt = "> "
	p.ti.Placeholder = "New group name..."
	p.ti.CharLimit = 120
	return p
}

func (p *groupsPage) loadCmd() tea.Cmd {
	deps, mgr := p.deps, p.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deps.Config.RequestTimeout())
		defer cancel()
		list, err := mgr.ListGroups(ctx)
		return groupsLoadedMsg{groups: list, err: err}
	}
}

func (p *groupsPage) opCmd(op func(ctx context.Context) error) tea.Cmd {
	deps := p.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deps.Config.RequestTimeout())
		defer cancel()
		return groupOpDoneMsg{err: op(ctx)}
	}
}

func (p *groupsPage) Init() tea.Cmd { return p.loadCmd() }

func (p *groupsPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case groupsLoadedMsg:
		p.loading = false
		if msg.err != nil {
			p.errText = msg.err.Error()
			return p, nil
		}
		p.errText = ""
		p.groups = msg.groups
		if p.cursor >= len(p.groups) {
			p.cursor = len(p.groups) - 1
		}
		if p.cursor < 0 {
			p.cursor = 0
		}
		return p, nil

	case groupOpDoneMsg:
		if msg.err != nil {
			return p, nil
		}
		return p, p.loadCmd()

	case tea.KeyMsg:
		if p.creating {
			return p.updateInput(msg)
		}
		switch msg.String() {
		case "q", "esc":
			return p, navigate(pageDashboard)
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(p.groups)-1 {
				p.cursor++
			}
		case "enter":
			if len(p.groups) > 0 {
				return p, navigateGroup(pageGroupDetail, p.groups[p.cursor])
			}
		case "r":
			p.loading = true
			return p, p.loadCmd()
		case "n":
			p.creating = true
			p.inputErr = ""
			p.ti.SetValue("")
			p.ti.Focus()
			return p, textinput.Blink
		case "d":
			if len(p.groups) > 0 {
				id := p.groups[p.cursor].ID
				mgr := p.mgr
				return p, p.opCmd(func(ctx context.Context) error { return mgr.DeleteGroup(ctx, id) })
			}
		}
	}
	return p, nil
}

func (p *groupsPage) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		name := strings.TrimSpace(p.ti.Value())
		if err := validate.GroupName(name); err != nil {
			p.inputErr = err.Error()
			return p, nil
		}
		p.creating = false
		p.ti.SetValue("")
		p.ti.Blur()
		mgr := p.mgr
		return p, p.opCmd(func(ctx context.Context) error {
			_, err := mgr.CreateGroup(ctx, name)
			return err
		})
	case "esc":
		p.creating = false
		p.ti.SetValue("")
		p.ti.Blur()
		return p, nil
	}
	var cmd tea.Cmd
	p.ti, cmd = p.ti.Update(msg)
	return p, cmd
}

func (p *groupsPage) View() string {
	lines := []string{ui.TitleStyle.Render("Groups"), ""}
	uid := p.deps.Session.UserID()

	switch {
	case p.loading:
		lines = append(lines, ui.MutedStyle.Render("loading..."))
	case p.errText != "":
		lines = append(lines, ui.ErrorStyle.Render(p.errText))
	case len(p.groups) == 0:
		lines = append(lines, ui.MutedStyle.Render("no groups yet — press n to create one"))
	}
	for i, g := range p.groups {
		label := g.Name
		if g.Admin == uid {
			label += " " + ui.AccentStyle.Render("(admin)")
		}
		prefix := "  "
		if i == p.cursor && !p.creating {
			prefix = ui.SelectedStyle.Render("> ")
		}
		lines = append(lines, prefix+label)
	}

	if p.creating {
		label := "New group"
		if p.inputErr != "" {
			label += " — " + ui.ErrorStyle.Render(p.inputErr)
		}
		lines = append(lines, "", label, p.ti.View())
	}
	lines = append(lines, "", ui.HelpStyle.Render("enter open • n new • d delete • r refresh • esc back"))
	return ui.PanelBox(lines)
}
