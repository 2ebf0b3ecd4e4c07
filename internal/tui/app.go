// Package tui is the full-screen mode: a page router over the same
// view-models the plain subcommands use, with a shared toast line and
// live change feeds for the shared scopes.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/config"
	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/notify"
	"github.com/idilsaglam/tudu/internal/session"
)

// Deps are the wired application pieces every page shares.
type Deps struct {
	Config  *config.Config
	Logger  *log.Logger
	Session *session.Session
	Gateway *gateway.Client
	Cache   *cache.Cache

	toasts *notify.ChanNotifier
}

// Run starts the program and blocks until the user quits.
func Run(deps Deps) error {
	deps.toasts = notify.NewChanNotifier(32)

	p := tea.NewProgram(newRouter(deps), tea.WithAltScreen())

	// Session changes land as messages so an expiring token kicks the
	// user back to the login page no matter which page is open.
	remove := deps.Session.OnChange(func(a session.Auth) {
		p.Send(authChangedMsg{auth: a})
	})
	defer remove()

	_, err := p.Run()
	return err
}
