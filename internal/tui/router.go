package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/notify"
	"github.com/idilsaglam/tudu/internal/session"
	"github.com/idilsaglam/tudu/internal/ui"
)

// page identifies a routing target.
type page int

const (
	pageLogin page = iota
	pageRegister
	pageForgot
	pageDashboard
	pagePrivate
	pagePublic
	pageGroups
	pageGroupDetail
	pageMembers
)

func (p page) protected() bool { return p >= pageDashboard }

// navigateMsg asks the router to swap the active page.
type navigateMsg struct {
	to    page
	group model.Group // set for group detail / members
}

func navigate(to page) tea.Cmd {
	return func() tea.Msg { return navigateMsg{to: to} }
}

func navigateGroup(to page, g model.Group) tea.Cmd {
	return func() tea.Msg { return navigateMsg{to: to, group: g} }
}

type authChangedMsg struct{ auth session.Auth }

type toastMsg notify.Notification

type toastExpiredMsg struct{ at time.Time }

const toastTTL = 4 * time.Second

type routerModel struct {
	deps    Deps
	current page
	active  tea.Model

	toast   notify.Notification
	toastAt time.Time

	width, height int
}

func newRouter(deps Deps) routerModel {
	r := routerModel{deps: deps, width: 80, height: 24}
	if deps.Session.IsValid() {
		r.current = pageDashboard
		r.active = newDashboard(deps)
	} else {
		r.current = pageLogin
		r.active = newLoginPage(deps)
	}
	return r
}

// listenToasts waits for the next notification; re-armed on each receipt.
func (r routerModel) listenToasts() tea.Cmd {
	ch := r.deps.toasts.C()
	return func() tea.Msg { return toastMsg(<-ch) }
}

func (r routerModel) Init() tea.Cmd {
	return tea.Batch(r.listenToasts(), r.active.Init())
}

// switchTo builds the page model for a target, enforcing the auth gate:
// signed-out visitors land on login, signed-in ones skip the auth pages.
func (r routerModel) switchTo(msg navigateMsg) (routerModel, tea.Cmd) {
	to := msg.to
	if to.protected() && !r.deps.Session.IsValid() {
		to = pageLogin
	}
	if !to.protected() && r.deps.Session.IsValid() {
		to = pageDashboard
	}
	if closer, ok := r.active.(interface{ Close() }); ok {
		closer.Close()
	}
	r.current = to
	switch to {
	case pageLogin:
		r.active = newLoginPage(r.deps)
	case pageRegister:
		r.active = newRegisterPage(r.deps)
	case pageForgot:
		r.active = newForgotPage(r.deps)
	case pageDashboard:
		r.active = newDashboard(r.deps)
	case pagePrivate:
		r.active = newTodoPage(privateScope(r.deps))
	case pagePublic:
		r.active = newTodoPage(publicScope(r.deps))
	case pageGroups:
		r.active = newGroupsPage(r.deps)
	case pageGroupDetail:
		r.active = newTodoPage(groupScope(r.deps, msg.group))
	case pageMembers:
		r.active = newMembersPage(r.deps, msg.group)
	}
	var cmd tea.Cmd
	if sized, ok := r.active.(interface{ setSize(w, h int) }); ok {
		sized.setSize(r.width, r.height)
	}
	cmd = r.active.Init()
	return r, cmd
}

func (r routerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width, r.height = msg.Width, msg.Height

	case navigateMsg:
		return r.switchTo(msg)

	case authChangedMsg:
		// expired or cleared session while on a protected page
		if r.current.protected() && !r.deps.Session.IsValid() {
			return r.switchTo(navigateMsg{to: pageLogin})
		}
		// signing in while on an auth page
		if !r.current.protected() && r.deps.Session.IsValid() {
			return r.switchTo(navigateMsg{to: pageDashboard})
		}

	case toastMsg:
		r.toast = notify.Notification(msg)
		r.toastAt = time.Now()
		at := r.toastAt
		expire := tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{at: at} })
		next, cmd := r.active.Update(msg)
		r.active = next
		return r, tea.Batch(r.listenToasts(), expire, cmd)

	case toastExpiredMsg:
		if msg.at.Equal(r.toastAt) {
			r.toast = notify.Notification{}
		}
		return r, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return r, tea.Quit
		}
	}

	next, cmd := r.active.Update(msg)
	r.active = next
	return r, cmd
}

func (r routerModel) View() string {
	view := r.active.View()
	if r.toast.Title != "" {
		style := ui.InfoStyle
		switch r.toast.Kind {
		case notify.KindSuccess:
			style = ui.SuccessStyle
		case notify.KindError:
			style = ui.ErrorStyle
		}
		line := style.Render(r.toast.Title)
		if r.toast.Description != "" {
			line += " " + ui.MutedStyle.Render(r.toast.Description)
		}
		view += "\n" + line
	}
	return view
}
