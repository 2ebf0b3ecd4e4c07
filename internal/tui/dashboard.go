package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tudu/internal/ui"
)

type menuEntry struct {
	label string
	to    page
}

// dashboard is the landing page for signed-in users.
type dashboard struct {
	deps    Deps
	entries []menuEntry
	cursor  int
}

func newDashboard(deps Deps) *dashboard {
	return &dashboard{
		deps: deps,
		entries: []menuEntry{
			{label: "Private Todos", to: pagePrivate},
			{label: "Public Todos", to: pagePublic},
			{label: "Groups", to: pageGroups},
		},
	}
}

func (d *dashboard) Init() tea.Cmd { return nil }

func (d *dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if d.cursor > 0 {
				d.cursor--
			}
		case "down", "j":
			if d.cursor < len(d.entries)-1 {
				d.cursor++
			}
		case "enter":
			return d, navigate(d.entries[d.cursor].to)
		case "L":
			deps := d.deps
			return d, func() tea.Msg {
				if err := deps.Session.Clear(); err != nil {
					deps.Logger.Error("logout failed", "err", err)
				}
				return nil
			}
		case "q", "esc", "ctrl+q":
			return d, tea.Quit
		}
	}
	return d, nil
}

func (d *dashboard) View() string {
	u := d.deps.Session.Auth().Record
	who := u.Email
	if u.Name != "" {
		who = u.Name
	}
	lines := []string{
		ui.TitleStyle.Render("tudu") + "  " + ui.MutedStyle.Render(fmt.Sprintf("signed in as %s", who)),
		"",
	}
	for i, e := range d.entries {
		prefix := "  "
		label := e.label
		if i == d.cursor {
			prefix = ui.SelectedStyle.Render("> ")
			label = ui.TitleStyle.Render(label)
		}
		lines = append(lines, prefix+label)
	}
	lines = append(lines, "", ui.HelpStyle.Render("enter open • L logout • q quit"))
	return ui.PanelBox(lines)
}
