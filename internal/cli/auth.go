package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/ui"
	"github.com/idilsaglam/tudu/internal/validate"
)

func doLogin(args []string, opt *Options) int {
	if opt.Session.IsValid() {
		opt.okf("already logged in as %s", opt.Session.Auth().Record.Email)
		return 0
	}
	if len(args) > 0 && args[0] == "--oauth" {
		if len(args) != 2 {
			opt.failf("usage: tudu login --oauth <provider>")
			return 2
		}
		return doOAuthLogin(args[1], opt)
	}

	var email string
	var err error
	if len(args) > 0 {
		email = args[0]
	} else {
		email, err = opt.prompt("Email: ")
		if err != nil {
			opt.failf("read email: %s", err)
			return 1
		}
	}
	if err := validate.Email(email); err != nil {
		opt.failf("email: %s", err)
		return 2
	}
	password, err := opt.prompt("Password: ")
	if err != nil {
		opt.failf("read password: %s", err)
		return 1
	}
	if err := validate.LoginPassword(password); err != nil {
		opt.failf("password: %s", err)
		return 2
	}

	ctx, cancel := opt.ctx()
	defer cancel()
	auth, err := opt.Gateway.AuthWithPassword(ctx, email, password)
	if err != nil {
		opt.failf("login: %s", err)
		return 1
	}
	opt.okf("logged in as %s", auth.Record.Email)
	return 0
}

func doOAuthLogin(name string, opt *Options) int {
	ctx, cancel := opt.ctx()
	defer cancel()

	providers, err := opt.Gateway.AuthMethods(ctx)
	if err != nil {
		opt.failf("auth methods: %s", err)
		return 1
	}
	var provider *gateway.OAuthProvider
	for i := range providers {
		if strings.EqualFold(providers[i].Name, name) {
			provider = &providers[i]
			break
		}
	}
	if provider == nil {
		var names []string
		for _, p := range providers {
			names = append(names, p.Name)
		}
		opt.failf("unknown provider %q (configured: %s)", name, strings.Join(names, ", "))
		return 2
	}

	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/redirect", opt.Config.OAuthRedirectPort)
	opt.infof("Open this URL in your browser and authorize the app:")
	opt.infof("")
	opt.infof("  %s", provider.AuthURL+redirectURL)
	opt.infof("")
	code, err := opt.prompt("Paste the code from the redirect URL: ")
	if err != nil {
		opt.failf("read code: %s", err)
		return 1
	}

	ctx2, cancel2 := opt.ctx()
	defer cancel2()
	auth, err := opt.Gateway.AuthWithOAuth2(ctx2, provider.Name, code, provider.CodeVerifier, redirectURL)
	if err != nil {
		opt.failf("oauth login: %s", err)
		return 1
	}
	opt.okf("logged in as %s", auth.Record.Email)
	return 0
}

func doRegister(args []string, opt *Options) int {
	if opt.Session.IsValid() {
		opt.okf("already logged in as %s", opt.Session.Auth().Record.Email)
		return 0
	}
	if len(args) != 1 {
		opt.failf("usage: tudu register <email>")
		return 2
	}
	email := args[0]
	if err := validate.Email(email); err != nil {
		opt.failf("email: %s", err)
		return 2
	}
	password, err := opt.prompt("Password: ")
	if err != nil {
		opt.failf("read password: %s", err)
		return 1
	}
	if err := validate.RegisterPassword(password); err != nil {
		opt.failf("password: %s", err)
		return 2
	}
	confirm, err := opt.prompt("Confirm password: ")
	if err != nil {
		opt.failf("read password: %s", err)
		return 1
	}
	if err := validate.PasswordConfirm(password, confirm); err != nil {
		opt.failf("password: %s", err)
		return 2
	}

	ctx, cancel := opt.ctx()
	defer cancel()
	input := gateway.RegisterInput{Email: email, Password: password, PasswordConfirm: confirm}
	if _, err := opt.Gateway.Register(ctx, input); err != nil {
		opt.failf("register: %s", err)
		return 1
	}
	if err := opt.Gateway.RequestVerification(ctx, email); err != nil {
		opt.Logger.Warn("could not send the verification email", "err", err)
	}
	if _, err := opt.Gateway.AuthWithPassword(ctx, email, password); err != nil {
		opt.failf("account created, but signing in failed: %s", err)
		return 1
	}
	opt.okf("account created, logged in as %s", email)
	return 0
}

func doForgotPassword(args []string, opt *Options) int {
	if len(args) != 1 {
		opt.failf("usage: tudu forgot-password <email>")
		return 2
	}
	email := args[0]
	if err := validate.Email(email); err != nil {
		opt.failf("email: %s", err)
		return 2
	}
	ctx, cancel := opt.ctx()
	defer cancel()
	if err := opt.Gateway.RequestPasswordReset(ctx, email); err != nil {
		opt.failf("password reset: %s", err)
		return 1
	}
	opt.okf("password reset email sent to %s", email)
	return 0
}

func doLogout(opt *Options) int {
	if !opt.Session.IsValid() {
		opt.okf("not logged in (nothing to do)")
		return 0
	}
	if err := opt.Session.Clear(); err != nil {
		opt.failf("logout: %s", err)
		return 1
	}
	opt.okf("logged out")
	return 0
}

func doWhoAmI(opt *Options) int {
	if code := opt.requireSession(); code != 0 {
		return code
	}
	u := opt.Session.Auth().Record
	t := ui.Current()
	lines := []string{
		ui.C(t.Title, "Signed in"),
		"",
		"email:    " + u.Email,
	}
	if u.Name != "" {
		lines = append(lines, "name:     "+u.Name)
	}
	lines = append(lines, "id:       "+u.ID)
	verified := "no"
	if u.Verified {
		verified = "yes"
	}
	lines = append(lines, "verified: "+verified)
	fmt.Fprintln(opt.out(), ui.PanelString(lines))
	return 0
}

// errorOut maps a view-model error to an exit code: local guard
// rejections are usage errors, everything else is a failure.
func errorOut(opt *Options, err error, localGuards ...error) int {
	for _, guard := range localGuards {
		if errors.Is(err, guard) {
			opt.failf("%s", err)
			return 2
		}
	}
	opt.failf("%s", err)
	return 1
}
