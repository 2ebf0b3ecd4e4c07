package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/ui"
	"github.com/idilsaglam/tudu/internal/validate"
)

type authResultMsg struct{ err error }

// loginPage is the email + password form; also the landing page for
// signed-out users.
type loginPage struct {
	deps     Deps
	email    textinput.Model
	password textinput.Model
	focus    int
	busy     bool
	errText  string
}

func newLoginPage(deps Deps) *loginPage {
	p := &loginPage{deps: deps}
	p.email = textinput.New()
	p.email.Prompt = "> "
	p.email.Placeholder = "you@example.com"
	p.email.CharLimit = 120
	p.email.Focus()
	p.password = textinput.New()
	p.password.Prompt = "> "
	p.password.Placeholder = "password"
	p.password.EchoMode = textinput.EchoPassword
	p.password.CharLimit = 120
	return p
}

func (p *loginPage) Init() tea.Cmd { return textinput.Blink }

func (p *loginPage) submit() tea.Cmd {
	email, password := p.email.Value(), p.password.Value()
	if err := validate.Email(email); err != nil {
		p.errText = err.Error()
		return nil
	}
	if err := validate.LoginPassword(password); err != nil {
		p.errText = err.Error()
		return nil
	}
	p.errText = ""
	p.busy = true
	deps := p.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deps.Config.RequestTimeout())
		defer cancel()
		_, err := deps.Gateway.AuthWithPassword(ctx, email, password)
		return authResultMsg{err: err}
	}
}

func (p *loginPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		p.busy = false
		if msg.err != nil {
			p.errText = msg.err.Error()
		}
		// success routes through the session observer
		return p, nil

	case tea.KeyMsg:
		if p.busy {
			return p, nil
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			p.focus = 1 - p.focus
			if p.focus == 0 {
				p.email.Focus()
				p.password.Blur()
			} else {
				p.password.Focus()
				p.email.Blur()
			}
			return p, nil
		case "enter":
			if p.focus == 0 {
				p.focus = 1
				p.password.Focus()
				p.email.Blur()
				return p, nil
			}
			return p, p.submit()
		case "ctrl+r":
			return p, navigate(pageRegister)
		case "ctrl+f":
			return p, navigate(pageForgot)
		case "ctrl+q":
			return p, tea.Quit
		}
	}
	var cmd tea.Cmd
	if p.focus == 0 {
		p.email, cmd = p.email.Update(msg)
	} else {
		p.password, cmd = p.password.Update(msg)
	}
	return p, cmd
}

func (p *loginPage) View() string {
	lines := []string{
		ui.TitleStyle.Render("Sign in"),
		"",
		"Email",
		p.email.View(),
		"Password",
		p.password.View(),
		"",
	}
	if p.busy {
		lines = append(lines, ui.MutedStyle.Render("signing in..."))
	} else if p.errText != "" {
		lines = append(lines, ui.ErrorStyle.Render(p.errText))
	}
	lines = append(lines, "",
		ui.HelpStyle.Render("enter sign in • ctrl+r register • ctrl+f forgot password • ctrl+q quit"))
	return ui.PanelBox(lines)
}

// registerPage creates an account, then signs the new user in.
type registerPage struct {
	deps    Deps
	inputs  [3]textinput.Model // email, password, confirm
	focus   int
	busy    bool
	errText string
}

func newRegisterPage(deps Deps) *registerPage {
	p := &registerPage{deps: deps}
	labels := []string{"you@example.com", "password (8+ characters)", "confirm password"}
	for i := range p.inputs {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = labels[i]
		ti.CharLimit = 120
		if i > 0 {
			ti.EchoMode = textinput.EchoPassword
		}
		p.inputs[i] = ti
	}
	p.inputs[0].Focus()
	return p
}

func (p *registerPage) Init() tea.Cmd { return textinput.Blink }

func (p *registerPage) setFocus(i int) {
	p.focus = (i + len(p.inputs)) % len(p.inputs)
	for j := range p.inputs {
		if j == p.focus {
			p.inputs[j].Focus()
		} else {
			p.inputs[j].Blur()
		}
	}
}

func (p *registerPage) submit() tea.Cmd {
	email, password, confirm := p.inputs[0].Value(), p.inputs[1].Value(), p.inputs[2].Value()
	if err := validate.Email(email); err != nil {
		p.errText = err.Error()
		return nil
	}
	if err := validate.RegisterPassword(password); err != nil {
		p.errText = err.Error()
		return nil
	}
	if err := validate.PasswordConfirm(password, confirm); err != nil {
		p.errText = err.Error()
		return nil
	}
	p.errText = ""
	p.busy = true
	deps := p.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deps.Config.RequestTimeout())
		defer cancel()
		if err := validate.EmailAsync(ctx, email); err != nil {
			return authResultMsg{err: err}
		}
		input := gateway.RegisterInput{Email: email, Password: password, PasswordConfirm: confirm}
		if _, err := deps.Gateway.Register(ctx, input); err != nil {
			return authResultMsg{err: err}
		}
		if err := deps.Gateway.RequestVerification(ctx, email); err != nil {
			deps.Logger.Warn("could not send the verification email", "err", err)
		}
		_, err := deps.Gateway.AuthWithPassword(ctx, email, password)
		return authResultMsg{err: err}
	}
}

func (p *registerPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		p.busy = false
		if msg.err != nil {
			p.errText = msg.err.Error()
		}
		return p, nil

	case tea.KeyMsg:
		if p.busy {
			return p, nil
		}
		switch msg.String() {
		case "tab", "down":
			p.setFocus(p.focus + 1)
			return p, nil
		case "shift+tab", "up":
			p.setFocus(p.focus - 1)
			return p, nil
		case "enter":
			if p.focus < len(p.inputs)-1 {
				p.setFocus(p.focus + 1)
				return p, nil
			}
			return p, p.submit()
		case "esc":
			return p, navigate(pageLogin)
		}
	}
	var cmd tea.Cmd
	p.inputs[p.focus], cmd = p.inputs[p.focus].Update(msg)
	return p, cmd
}

func (p *registerPage) View() string {
	lines := []string{
		ui.TitleStyle.Render("Create an account"),
		"",
		"Email", p.inputs[0].View(),
		"Password", p.inputs[1].View(),
		"Confirm", p.inputs[2].View(),
		"",
	}
	if p.busy {
		lines = append(lines, ui.MutedStyle.Render("creating account..."))
	} else if p.errText != "" {
		lines = append(lines, ui.ErrorStyle.Render(p.errText))
	}
	lines = append(lines, "", ui.HelpStyle.Render("enter submit • esc back to sign in"))
	return ui.PanelBox(lines)
}

// forgotPage requests a password reset email.
type forgotPage struct {
	deps    Deps
	email   textinput.Model
	busy    bool
	sent    bool
	errText string
}

type resetSentMsg struct{ err error }

func newForgotPage(deps Deps) *forgotPage {
	p := &forgotPage{deps: deps}
	p.email = textinput.New()
	p.email.Prompt = "> "
	p.email.Placeholder = "you@example.com"
	p.email.CharLimit = 120
	p.email.Focus()
	return p
}

func (p *forgotPage) Init() tea.Cmd { return textinput.Blink }

func (p *forgotPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resetSentMsg:
		p.busy = false
		if msg.err != nil {
			p.errText = msg.err.Error()
		} else {
			p.sent = true
		}
		return p, nil

	case tea.KeyMsg:
		if p.busy {
			return p, nil
		}
		switch msg.String() {
		case "enter":
			email := p.email.Value()
			if err := validate.Email(email); err != nil {
				p.errText = err.Error()
				return p, nil
			}
			p.errText = ""
			p.busy = true
			deps := p.deps
			return p, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), deps.Config.RequestTimeout())
				defer cancel()
				return resetSentMsg{err: deps.Gateway.RequestPasswordReset(ctx, email)}
			}
		case "esc":
			return p, navigate(pageLogin)
		}
	}
	var cmd tea.Cmd
	p.email, cmd = p.email.Update(msg)
	return p, cmd
}

func (p *forgotPage) View() string {
	lines := []string{
		ui.TitleStyle.Render("Reset your password"),
		"",
		"Email", p.email.View(),
		"",
	}
	switch {
	case p.busy:
		lines = append(lines, ui.MutedStyle.Render("sending..."))
	case p.sent:
		lines = append(lines, ui.SuccessStyle.Render("Check your inbox for the reset link."))
	case p.errText != "":
		lines = append(lines, ui.ErrorStyle.Render(p.errText))
	}
	lines = append(lines, "", ui.HelpStyle.Render("enter send • esc back to sign in"))
	return ui.PanelBox(lines)
}
