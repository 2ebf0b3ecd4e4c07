package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/idilsaglam/tudu/internal/groups"
	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/notify"
	"github.com/idilsaglam/tudu/internal/realtime"
	"github.com/idilsaglam/tudu/internal/ui"
	"github.com/idilsaglam/tudu/internal/validate"
)

func (o *Options) groupManager() *groups.Manager {
	return groups.NewManager(o.Gateway, o.Cache, o.Session, o.notifier(), o.Logger)
}

// resolveGroup accepts a group name or record id and returns the record.
func resolveGroup(ctx context.Context, opt *Options, ref string) (model.Group, error) {
	list, err := opt.groupManager().ListGroups(ctx)
	if err != nil {
		return model.Group{}, fmt.Errorf("list groups: %w", err)
	}
	for _, g := range list {
		if strings.EqualFold(g.Name, ref) || g.ID == ref {
			return g, nil
		}
	}
	return model.Group{}, fmt.Errorf("no group named %q (run `tudu groups ls`)", ref)
}

func runGroups(args []string, opt *Options) int {
	if len(args) == 0 {
		args = []string{"ls"}
	}
	sub, rest := args[0], args[1:]
	mgr := opt.groupManager()
	ctx, cancel := opt.ctx()
	defer cancel()

	switch sub {
	case "ls":
		list, err := mgr.ListGroups(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		t := ui.Current()
		lines := []string{ui.C(t.Title, "Groups"), ""}
		if len(list) == 0 {
			lines = append(lines, ui.C(t.Muted, "no groups yet"))
		}
		uid := opt.Session.UserID()
		for i, g := range list {
			line := fmt.Sprintf("%s %s", ui.C("\033[2m", fmt.Sprintf("%2d.", i+1)), g.Name)
			if g.Admin == uid {
				line += " " + ui.C(t.Accent, "(admin)")
			}
			lines = append(lines, line)
		}
		fmt.Fprintln(opt.out(), ui.PanelString(lines))
		return 0

	case "new":
		name := strings.TrimSpace(strings.Join(rest, " "))
		if err := validate.GroupName(name); err != nil {
			opt.failf("new: %s", err)
			return 2
		}
		g, err := mgr.CreateGroup(ctx, name)
		if err != nil {
			return errorOut(opt, err, groups.ErrNotAuthenticated)
		}
		opt.okf("created %s", g.Name)
		return 0

	case "rm":
		if len(rest) != 1 {
			opt.failf("usage: tudu groups rm <index>")
			return 2
		}
		list, err := mgr.ListGroups(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		i, err := parseIndex(rest[0], len(list))
		if err != nil {
			opt.failf("rm: %s", err)
			return 2
		}
		if err := mgr.DeleteGroup(ctx, list[i].ID); err != nil {
			return errorOut(opt, err)
		}
		opt.okf("deleted %s", list[i].Name)
		return 0

	// aliases for the top-level members command
	case "members":
		return runMembers(rest, opt)
	case "add-member":
		if len(rest) != 2 {
			opt.failf("usage: tudu groups add-member <group> <email>")
			return 2
		}
		return runMembers([]string{rest[0], "add", rest[1]}, opt)
	case "rm-member":
		if len(rest) != 2 {
			opt.failf("usage: tudu groups rm-member <group> <index>")
			return 2
		}
		return runMembers([]string{rest[0], "rm", rest[1]}, opt)
	}

	opt.failf("usage: tudu groups <ls|new|rm>")
	return 2
}

func runMembers(args []string, opt *Options) int {
	if len(args) == 0 {
		opt.failf("usage: tudu members <group> [ls|add|rm]")
		return 2
	}
	ctx, cancel := opt.ctx()
	defer cancel()

	group, err := resolveGroup(ctx, opt, args[0])
	if err != nil {
		opt.failf("%s", err)
		return 1
	}
	args = args[1:]
	if len(args) == 0 {
		args = []string{"ls"}
	}
	sub, rest := args[0], args[1:]
	mgr := opt.groupManager()

	switch sub {
	case "ls":
		members, err := mgr.Members(ctx, group.ID)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		t := ui.Current()
		lines := []string{ui.C(t.Title, group.Name+" members"), ""}
		if len(members) == 0 {
			lines = append(lines, ui.C(t.Muted, "no members"))
		}
		for i, m := range members {
			label := m.UserID()
			if m.Expand != nil && m.Expand.User != nil {
				label = m.Expand.User.Email
			}
			line := fmt.Sprintf("%s %s", ui.C("\033[2m", fmt.Sprintf("%2d.", i+1)), label)
			if m.UserID() == group.Admin {
				line += " " + ui.C(t.Accent, "(admin)")
			}
			lines = append(lines, line)
		}
		fmt.Fprintln(opt.out(), ui.PanelString(lines))
		return 0

	case "add":
		if len(rest) != 1 {
			opt.failf("usage: tudu members <group> add <email>")
			return 2
		}
		email := rest[0]
		candidates, err := mgr.AvailableUsers(ctx, group.ID)
		if err != nil {
			opt.failf("fetch users: %s", err)
			return 1
		}
		var userID string
		for _, u := range candidates {
			if strings.EqualFold(u.Email, email) {
				userID = u.ID
				break
			}
		}
		if userID == "" {
			opt.failf("no addable user with email %q", email)
			return 2
		}
		if err := mgr.AddMember(ctx, group.ID, userID); err != nil {
			return errorOut(opt, err, groups.ErrDuplicateMember)
		}
		opt.okf("added %s to %s", email, group.Name)
		return 0

	case "rm":
		if len(rest) != 1 {
			opt.failf("usage: tudu members <group> rm <index>")
			return 2
		}
		members, err := mgr.Members(ctx, group.ID)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		i, err := parseIndex(rest[0], len(members))
		if err != nil {
			opt.failf("rm: %s", err)
			return 2
		}
		if err := mgr.RemoveMember(ctx, members[i].ID, group.ID); err != nil {
			return errorOut(opt, err)
		}
		opt.okf("removed")
		return 0
	}

	opt.failf("usage: tudu members <group> <ls|add|rm>")
	return 2
}

// doWatch streams live change notifications until interrupted.
func doWatch(args []string, opt *Options) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	toasts := notify.NewChanNotifier(32)
	bridges := []*realtime.Bridge{
		realtime.NewPublicTodos(opt.Gateway, opt.Cache, opt.Session, toasts, opt.Logger),
	}
	if len(args) > 0 {
		rctx, cancel := opt.ctx()
		group, err := resolveGroup(rctx, opt, args[0])
		cancel()
		if err != nil {
			opt.failf("%s", err)
			return 1
		}
		bridges = append(bridges,
			realtime.NewGroupTodos(opt.Gateway, opt.Cache, opt.Session, toasts, opt.Logger, group.ID, group.Name))
	}
	for _, b := range bridges {
		if err := b.Start(ctx); err != nil {
			opt.failf("subscribe: %s", err)
			return 1
		}
		defer b.Stop()
	}

	t := ui.Current()
	opt.infof("%s", ui.C(t.Muted, "watching for changes (ctrl-c to stop)"))
	for {
		select {
		case <-ctx.Done():
			opt.infof("")
			return 0
		case n := <-toasts.C():
			color, sym := t.Info, t.SymInfo
			switch n.Kind {
			case notify.KindSuccess:
				color, sym = t.Success, t.SymDone
			case notify.KindError:
				color, sym = t.Error, "!"
			}
			opt.infof("%s %s", ui.C(color, sym+" "+n.Title), ui.C(t.Muted, n.Description))
		}
	}
}
