package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/config"
	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/notify"
	"github.com/idilsaglam/tudu/internal/session"
	"github.com/idilsaglam/tudu/internal/ui"
)

// Options carry the wired application pieces plus the streams to talk
// to the user on. Zero streams fall back to the process defaults.
type Options struct {
	Config  *config.Config
	Logger  *log.Logger
	Session *session.Session
	Gateway *gateway.Client
	Cache   *cache.Cache

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive launches the full-screen mode; set by main so this
	// package stays free of the terminal program dependency.
	Interactive func() error
}

func (o *Options) in() io.Reader {
	if o.Stdin != nil {
		return o.Stdin
	}
	return os.Stdin
}

func (o *Options) out() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

func (o *Options) errw() io.Writer {
	if o.Stderr != nil {
		return o.Stderr
	}
	return os.Stderr
}

func (o *Options) okf(format string, a ...any) {
	fmt.Fprintln(o.out(), ui.Checkmark(fmt.Sprintf(format, a...)))
}

func (o *Options) failf(format string, a ...any) {
	fmt.Fprintln(o.errw(), ui.Crossmark(fmt.Sprintf(format, a...)))
}

func (o *Options) infof(format string, a ...any) {
	fmt.Fprintln(o.out(), fmt.Sprintf(format, a...))
}

// prompt reads one line from the input stream.
func (o *Options) prompt(label string) (string, error) {
	fmt.Fprint(o.out(), label)
	sc := bufio.NewScanner(o.in())
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(sc.Text()), nil
}

// notifier routes the view-model messages through the process logger;
// the plain CLI has no toast line.
func (o *Options) notifier() notify.Notifier {
	return notify.NewLogNotifier(o.Logger)
}

func (o *Options) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.Config.RequestTimeout())
}

// requireSession gates protected subcommands the way the UI routes an
// unauthenticated visitor to the login page.
func (o *Options) requireSession() int {
	if o.Session.IsValid() {
		return 0
	}
	o.failf("You are not logged in. Run `tudu login` first.")
	return 2
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	if len(args) == 0 {
		if opt.Interactive != nil {
			if code := opt.requireSession(); code != 0 {
				return code
			}
			if err := opt.Interactive(); err != nil {
				opt.failf("interactive mode: %s", err)
				return 1
			}
			return 0
		}
		PrintHelp(opt.out())
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.out())
		return 0

	case "login":
		return doLogin(a, &opt)

	case "register":
		return doRegister(a, &opt)

	case "forgot-password":
		return doForgotPassword(a, &opt)

	case "logout":
		return doLogout(&opt)

	case "whoami":
		return doWhoAmI(&opt)

	case "private", "public":
		if code := opt.requireSession(); code != 0 {
			return code
		}
		return runTodoScope(cmd, a, &opt)

	case "groups":
		if code := opt.requireSession(); code != 0 {
			return code
		}
		return runGroups(a, &opt)

	case "members":
		if code := opt.requireSession(); code != 0 {
			return code
		}
		return runMembers(a, &opt)

	case "group-todos":
		if code := opt.requireSession(); code != 0 {
			return code
		}
		return runGroupTodos(a, &opt)

	case "watch":
		if code := opt.requireSession(); code != 0 {
			return code
		}
		return doWatch(a, &opt)

	case "tui":
		if opt.Interactive == nil {
			opt.failf("interactive mode is not available in this build")
			return 1
		}
		if code := opt.requireSession(); code != 0 {
			return code
		}
		if err := opt.Interactive(); err != nil {
			opt.failf("interactive mode: %s", err)
			return 1
		}
		return 0
	}

	opt.failf("unknown subcommand: %s", cmd)
	fmt.Fprintln(opt.errw())
	PrintHelp(opt.errw())
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `tudu - todos in your terminal, shared through your server

Usage:
  tudu [flags] <subcommand> [args]

Account:
  login [email]                Sign in with email + password
  login --oauth <provider>     Sign in through an OAuth2 provider
  register <email>             Create an account
  forgot-password <email>      Request a password reset email
  logout                       Drop the stored session
  whoami                       Show the signed-in user

Todos:
  private ls|add|done|rm       Your private todos
  public  ls|add|done|rm       The shared public feed
  group-todos <group> ...      A group's todos (ls|add|done|rm)

Groups:
  groups ls                    Groups you belong to
  groups new <name...>         Create a group (you become admin)
  groups rm <index>            Delete a group
  members <group> ls           List a group's members
  members <group> add <email>  Add a member
  members <group> rm <index>   Remove a member

Other:
  watch [group]                Stream live changes as they happen
  tui                          Full-screen interactive mode (default)

Examples:
  tudu login alice@example.com
  tudu private add "Buy milk"
  tudu public done 2
  tudu group-todos "Our Team" ls
`)
}

// parseIndex turns a 1-based argument into a valid slice index.
func parseIndex(arg string, length int) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("not a number: %s", arg)
	}
	if n < 1 || n > length {
		return 0, fmt.Errorf("index out of range: have %d, got %d", length, n)
	}
	return n - 1, nil
}
